package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/nvr-ai/go-tumorscope/history"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultForwardTimeout bounds a single forward request.
const DefaultForwardTimeout = 5 * time.Second

// ForwardConfig configures the persistence forward. An empty URL disables it.
type ForwardConfig struct {
	URL     string        `yaml:"url" json:"url"`
	APIKey  string        `yaml:"api_key" json:"-"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Forwarder posts records to an external persistence service in the
// background. Failures are logged and never reach the caller.
type Forwarder struct {
	cfg    ForwardConfig
	client *http.Client
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewForwarder creates a forwarder.
func NewForwarder(cfg ForwardConfig, logger zerolog.Logger) *Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultForwardTimeout
	}
	return &Forwarder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Enabled reports whether a forward URL is configured.
func (f *Forwarder) Enabled() bool { return f.cfg.URL != "" }

// Forward sends rec asynchronously when forwarding is enabled.
func (f *Forwarder) Forward(rec *history.Record) {
	if !f.Enabled() {
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.Timeout)
		defer cancel()
		if err := f.send(ctx, rec); err != nil {
			f.logger.Error().Err(err).Str("id", rec.ID).Msg("failed to forward result")
			return
		}
		f.logger.Info().Str("id", rec.ID).Msg("result forwarded")
	}()
}

func (f *Forwarder) send(ctx context.Context, rec *history.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to marshal record")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", f.cfg.APIKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Wait blocks until all in-flight forwards are done.
func (f *Forwarder) Wait() { f.wg.Wait() }
