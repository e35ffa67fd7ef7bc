package dataset

import (
	"context"
	"os"
	"time"

	"github.com/nvr-ai/go-tumorscope/features"
	"github.com/nvr-ai/go-tumorscope/logging"
	"github.com/rs/zerolog"
)

// ProgressInterval is the number of processed images between progress logs.
const ProgressInterval = 10

// Extractor turns an image file into a feature vector.
type Extractor interface {
	ExtractFile(path string) (features.FeatureVector, error)
}

// Loader loads every category directory into a Dataset.
type Loader struct {
	categories []Category
	extractor  Extractor
	logger     zerolog.Logger
}

// NewLoader constructs a Loader.
//
// Arguments:
//   - categories: Ordered category to directory mapping. The order defines labels.
//   - extractor: The feature extractor applied to every image.
//   - logger: The logger for progress and skipped files.
//
// Returns:
//   - *Loader: The loader.
//   - error: An error if the categories are invalid.
func NewLoader(categories []Category, extractor Extractor, logger zerolog.Logger) (*Loader, error) {
	if err := ValidateCategories(categories); err != nil {
		return nil, err
	}
	cats := make([]Category, len(categories))
	copy(cats, categories)
	return &Loader{
		categories: cats,
		extractor:  extractor,
		logger:     logging.Component(logger, "dataset"),
	}, nil
}

// Classes returns the class names in label order.
func (l *Loader) Classes() []string {
	out := make([]string, len(l.categories))
	for i, c := range l.categories {
		out[i] = c.Name
	}
	return out
}

// Load extracts the features of every image of every category.
//
// Missing category directories are logged and skipped. Files that cannot be
// decoded or processed are logged and skipped. An empty result is not an
// error; the returned Dataset simply has no samples.
//
// Arguments:
//   - ctx: Cancelling the context stops loading between files.
//
// Returns:
//   - *Dataset: The labeled samples.
//   - error: The context error if loading was cancelled.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{Classes: l.Classes()}
	start := time.Now()

	for label, category := range l.categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := os.Stat(category.Path); err != nil {
			l.logger.Error().Err(err).Str("category", category.Name).Str("path", category.Path).
				Msg("skipping non-existent category")
			continue
		}

		files, err := ListImageFiles(category.Path)
		if err != nil {
			l.logger.Error().Err(err).Str("category", category.Name).Msg("skipping unreadable category")
			continue
		}

		l.logger.Info().Str("category", category.Name).Int("files", len(files)).Msg("processing images")
		count := 0
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			vec, err := l.extractor.ExtractFile(file.Path)
			if err != nil {
				l.logger.Warn().Err(err).Str("path", file.Path).Msg("skipping image")
				continue
			}

			ds.Add(vec, label, file.Path)
			count++
			if count%ProgressInterval == 0 {
				l.logger.Info().Str("category", category.Name).Int("processed", count).Msg("progress")
			}
		}
		l.logger.Info().Str("category", category.Name).Int("images", count).Msg("category completed")
	}

	l.logger.Info().Int("samples", ds.Len()).Dur("elapsed", time.Since(start)).Msg("dataset loaded")
	return ds, nil
}
