// Command classify trains the classifier and classifies image files,
// writing the highlight images of non-normal predictions next to each other
// in the output directory.
//
// Usage:
//
//	classify -dataset ./Dataset_BUSI_with_GT -output out scan1.png scan2.jpg
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-tumorscope/classifier"
	"github.com/nvr-ai/go-tumorscope/config"
	"github.com/nvr-ai/go-tumorscope/dataset"
	"github.com/nvr-ai/go-tumorscope/detector"
	"github.com/nvr-ai/go-tumorscope/images"
	"github.com/nvr-ai/go-tumorscope/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultOutputDir is where highlight images are written.
	DefaultOutputDir = "results"
)

func main() {
	var (
		configPath string
		datasetDir string
		modelType  string
		outputDir  string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&datasetDir, "dataset", "", "Dataset root with normal/, benign/ and malignant/ folders")
	flag.StringVar(&modelType, "model", "", "Classifier: random_forest or svm")
	flag.StringVar(&outputDir, "output", DefaultOutputDir, "Output directory for highlight images")
	flag.BoolVar(&verbose, "v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] image...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "classify: %v\n", err)
		os.Exit(2)
	}
	if datasetDir != "" {
		cfg.Dataset.Root = datasetDir
		cfg.Dataset.Categories = nil
	}
	if modelType != "" {
		cfg.Training.Model = classifier.ModelType(modelType)
	}
	cfg.Logging.Pretty = true
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "classify: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	det, err := detector.New(cfg.Config, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create detector")
	}
	defer det.Close()

	loader, err := dataset.NewLoader(cfg.Categories(), det.Extractor(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid dataset configuration")
	}
	res, err := det.Train(ctx, loader, cfg.Training.Model)
	if err != nil {
		logger.Fatal().Err(err).Msg("training failed")
	}
	if res.Report != nil {
		fmt.Println(res.Report.String())
	}
	for i, f := range res.TopFeatures {
		fmt.Printf("%2d. %-20s %.4f\n", i+1, f.Name, f.Score)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", outputDir).Msg("failed to create output directory")
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := classify(det, path, outputDir, logger); err != nil {
			logger.Error().Err(err).Str("file", path).Msg("classification failed")
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func classify(det *detector.TumorDetector, path, outputDir string, logger zerolog.Logger) error {
	res, err := det.PredictFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s (%.2f%%)\n", path, res.Prediction, res.Confidence*100)
	if res.IsNormal {
		return nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outputs := []struct {
		suffix string
		img    image.Image
	}{
		{"binary", res.Binary},
		{"contours", res.Contours},
		{"overlay", res.Overlay},
	}
	for _, out := range outputs {
		data, err := images.EncodeJPEG(out.img, images.DefaultJPEGQuality)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s image", out.suffix)
		}
		name := filepath.Join(outputDir, fmt.Sprintf("%s_%s.jpg", base, out.suffix))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", name)
		}
		logger.Debug().Str("file", name).Msg("wrote highlight image")
	}
	for _, r := range res.Regions {
		fmt.Printf("  %s\n", r)
	}
	return nil
}
