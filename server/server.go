// Package server exposes the tumor detector over HTTP.
//
// Routes:
//
//	POST /api/detect        classify a base64 or data URL image
//	GET  /api/results       list results, optionally ?user_id=N
//	GET  /api/results/{id}  a single result
//	GET  /health            liveness and model state
//	GET  /api/stats         profiler snapshot
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/nvr-ai/go-tumorscope/classifier"
	"github.com/nvr-ai/go-tumorscope/detector"
	"github.com/nvr-ai/go-tumorscope/history"
	"github.com/nvr-ai/go-tumorscope/logging"
	"github.com/nvr-ai/go-tumorscope/profiler"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// DefaultMaxBodyBytes is the request body limit when none is configured.
const DefaultMaxBodyBytes = 16 << 20

// shutdownTimeout bounds the graceful shutdown of Run.
const shutdownTimeout = 10 * time.Second

// Predictor is the part of the detector the server depends on.
type Predictor interface {
	Predict(img gocv.Mat) (*detector.DetectionResult, error)
	Trained() bool
	ModelType() classifier.ModelType
}

// Options configures the server.
type Options struct {
	Addr           string        `yaml:"addr" json:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" json:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	Forward        ForwardConfig `yaml:"forward" json:"forward"`
}

// Server serves detections and their history.
type Server struct {
	opts      Options
	predictor Predictor
	store     *history.Store
	profiler  *profiler.Profiler
	forwarder *Forwarder
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a server.
//
// Arguments:
//   - opts: The server options.
//   - predictor: The detector.
//   - store: The result history.
//   - prof: The profiler backing /api/stats.
//   - logger: The logger.
//
// Returns:
//   - *Server: The server, ready for Handler or Run.
func New(opts Options, predictor Predictor, store *history.Store, prof *profiler.Profiler, logger zerolog.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	logger = logging.Component(logger, "server")
	return &Server{
		opts:      opts,
		predictor: predictor,
		store:     store,
		profiler:  prof,
		forwarder: NewForwarder(opts.Forward, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Handler returns the routed handler with CORS and body limits applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/detect", s.handleDetect)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/results/{id}", s.handleResult)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	return s.cors(s.limitBody(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully and waits
// for pending forwards.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.forwarder.Wait()
	if err != nil {
		return errors.Wrap(err, "shutdown failed")
	}
	return nil
}

// Wait blocks until all in-flight forwards are done.
func (s *Server) Wait() { s.forwarder.Wait() }

func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.opts.AllowedOrigins))
	for _, o := range s.opts.AllowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowed["*"]:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
