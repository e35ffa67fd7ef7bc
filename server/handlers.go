package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nvr-ai/go-tumorscope/common"
	"github.com/nvr-ai/go-tumorscope/detector"
	"github.com/nvr-ai/go-tumorscope/history"
	"github.com/nvr-ai/go-tumorscope/images"
	"github.com/pkg/errors"
)

const errModelNotTrained = "Model not trained. Please check the dataset paths and restart the server."

// DetectRequest is the body of POST /api/detect.
type DetectRequest struct {
	Image  string `json:"image"`
	UserID *int64 `json:"user_id,omitempty"`
}

// DetectResponse is the body of a successful POST /api/detect.
type DetectResponse struct {
	Success       bool               `json:"success"`
	ID            string             `json:"id"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Original      string             `json:"original"`
	Binary        string             `json:"binary"`
	Contours      string             `json:"contours"`
	Overlay       string             `json:"overlay"`
	Regions       []common.Region    `json:"regions"`
	IsNormal      bool               `json:"is_normal"`
	Timestamp     int64              `json:"timestamp"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Trained bool   `json:"trained"`
	Model   string `json:"model"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if !s.predictor.Trained() {
		s.logger.Error().Msg("model not trained")
		s.writeError(w, http.StatusInternalServerError, errModelNotTrained)
		return
	}

	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Image == "" {
		s.writeError(w, http.StatusBadRequest, "No image data received")
		return
	}
	if req.UserID == nil {
		s.logger.Warn().Msg("no user_id provided in request")
	}

	data, err := images.DecodeBase64(req.Image)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to decode image data")
		s.writeError(w, http.StatusBadRequest, "Invalid image data format")
		return
	}
	s.logger.Debug().Str("format", string(images.DetectFormat(data))).Int("bytes", len(data)).Msg("received image")
	mat, err := images.Decode(data)
	defer mat.Close()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to decode image")
		s.writeError(w, http.StatusBadRequest, "Invalid image data format")
		return
	}

	res, err := s.predictor.Predict(mat)
	switch {
	case errors.Is(err, detector.ErrModelNotTrained):
		s.writeError(w, http.StatusInternalServerError, errModelNotTrained)
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("failed to process image")
		s.writeError(w, http.StatusInternalServerError, "Error processing image: "+err.Error())
		return
	}

	rec, err := history.NewRecord(res, req.UserID, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode result")
		s.writeError(w, http.StatusInternalServerError, "Error processing image")
		return
	}
	s.store.Add(rec)
	if rec.UserID != nil {
		s.forwarder.Forward(rec)
	}

	s.writeJSON(w, http.StatusOK, DetectResponse{
		Success:       true,
		ID:            rec.ID,
		Prediction:    rec.Prediction,
		Confidence:    rec.Confidence,
		Probabilities: rec.Probabilities,
		Original:      rec.Original,
		Binary:        rec.Binary,
		Contours:      rec.Contours,
		Overlay:       rec.Overlay,
		Regions:       rec.Regions,
		IsNormal:      rec.IsNormal,
		Timestamp:     rec.Timestamp.Unix(),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		userID = &id
	}
	s.writeJSON(w, http.StatusOK, s.store.List(userID))
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Result not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Trained: s.predictor.Trained(),
		Model:   string(s.predictor.ModelType()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.profiler.Snapshot())
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}
}
