// Package config loads the YAML configuration shared by the binaries.
//
// Example:
//
//	server:
//	  addr: ":5000"
//	  allowed_origins: ["http://localhost:3000"]
//	  forward:
//	    url: "http://localhost:5001/api/results/save"
//	    api_key: "change-me"
//	    timeout: 5s
//	dataset:
//	  root: ./Dataset_BUSI_with_GT
//	model:
//	  type: random_forest
//	  num_trees: 100
//	features:
//	  size: 224
//	logging:
//	  level: info
//	  pretty: true
package config

import (
	"os"

	"github.com/nvr-ai/go-tumorscope/dataset"
	"github.com/nvr-ai/go-tumorscope/detector"
	"github.com/nvr-ai/go-tumorscope/logging"
	"github.com/nvr-ai/go-tumorscope/profiler"
	"github.com/nvr-ai/go-tumorscope/server"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DatasetConfig locates the labeled images. When Categories is empty the
// canonical classes are read from Root/<class>.
type DatasetConfig struct {
	Root       string             `yaml:"root" json:"root"`
	Categories []dataset.Category `yaml:"categories" json:"categories"`
}

// Config is the complete application configuration.
type Config struct {
	Server          server.Options   `yaml:"server" json:"server"`
	Dataset         DatasetConfig    `yaml:"dataset" json:"dataset"`
	detector.Config `yaml:",inline" json:",inline"`
	Profiler        profiler.Options `yaml:"profiler" json:"profiler"`
	Logging         logging.Config   `yaml:"logging" json:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: server.Options{
			Addr:           ":5000",
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   server.DefaultMaxBodyBytes,
			Forward:        server.ForwardConfig{Timeout: server.DefaultForwardTimeout},
		},
		Dataset:  DatasetConfig{Root: "Dataset_BUSI_with_GT"},
		Config:   detector.DefaultConfig(),
		Profiler: profiler.Options{MaxSamples: 600},
		Logging:  logging.Config{Level: "info"},
	}
}

// Load reads the YAML file at path over Default.
//
// Arguments:
//   - path: The configuration file. An empty path returns Default.
//
// Returns:
//   - Config: The merged configuration.
//   - error: An error if the file cannot be read, parsed or validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Categories returns the configured categories, or the canonical classes
// under the dataset root.
func (c Config) Categories() []dataset.Category {
	if len(c.Dataset.Categories) > 0 {
		return c.Dataset.Categories
	}
	return dataset.DefaultCategories(c.Dataset.Root)
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.Errorf("config: server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.Forward.Timeout < 0 {
		return errors.New("config: server.forward.timeout must not be negative")
	}
	if len(c.Dataset.Categories) == 0 && c.Dataset.Root == "" {
		return errors.New("config: dataset.root or dataset.categories is required")
	}
	if err := dataset.ValidateCategories(c.Categories()); err != nil {
		return errors.Wrap(err, "config")
	}
	if err := c.Features.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	if err := c.Highlight.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	if err := c.Training.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	if _, err := logging.New(c.Logging); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}
