// Command tumorscope trains the classifier on the configured dataset and
// serves detections over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-tumorscope/classifier"
	"github.com/nvr-ai/go-tumorscope/config"
	"github.com/nvr-ai/go-tumorscope/dataset"
	"github.com/nvr-ai/go-tumorscope/detector"
	"github.com/nvr-ai/go-tumorscope/history"
	"github.com/nvr-ai/go-tumorscope/logging"
	"github.com/nvr-ai/go-tumorscope/profiler"
	"github.com/nvr-ai/go-tumorscope/server"
)

func main() {
	var (
		configPath string
		addr       string
		datasetDir string
		modelType  string
		logLevel   string
		pretty     bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	flag.StringVar(&datasetDir, "dataset", "", "Dataset root with normal/, benign/ and malignant/ folders")
	flag.StringVar(&modelType, "model", "", "Classifier: random_forest or svm")
	flag.StringVar(&logLevel, "log-level", "", "Log level, overrides logging.level")
	flag.BoolVar(&pretty, "pretty", false, "Human readable logs")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tumorscope: %v\n", err)
		os.Exit(2)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if datasetDir != "" {
		cfg.Dataset.Root = datasetDir
		cfg.Dataset.Categories = nil
	}
	if modelType != "" {
		cfg.Training.Model = classifier.ModelType(modelType)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if pretty {
		cfg.Logging.Pretty = true
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tumorscope: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prof := profiler.New(cfg.Profiler, logger)
	prof.Start(ctx)
	defer prof.Stop()

	det, err := detector.New(cfg.Config, prof, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create detector")
	}
	defer det.Close()

	loader, err := dataset.NewLoader(cfg.Categories(), det.Extractor(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid dataset configuration")
	}

	// A failed training run leaves the server up; /api/detect reports it.
	if res, err := det.Train(ctx, loader, cfg.Training.Model); err != nil {
		logger.Error().Err(err).Msg("training failed, detections are disabled")
	} else {
		logger.Info().
			Str("model", string(res.Model)).
			Int("train", res.TrainSize).
			Int("test", res.TestSize).
			Dur("duration", res.Duration).
			Msg("model trained")
	}

	srv := server.New(cfg.Server, det, history.NewStore(), prof, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
