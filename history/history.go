// Package history keeps detection results in memory so they can be listed
// and looked up after the request that produced them.
package history

import (
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-tumorscope/common"
	"github.com/nvr-ai/go-tumorscope/detector"
	"github.com/nvr-ai/go-tumorscope/images"
	"github.com/pkg/errors"
)

// ThumbnailSize bounds the larger edge of record thumbnails.
const ThumbnailSize = 128

// Record is a serialized detection result. Image fields are base64 JPEG and
// empty when the result had no such image.
type Record struct {
	ID            string             `json:"id"`
	UserID        *int64             `json:"user_id,omitempty"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Original      string             `json:"original"`
	Binary        string             `json:"binary"`
	Contours      string             `json:"contours"`
	Overlay       string             `json:"overlay"`
	Thumbnail     string             `json:"thumbnail"`
	Regions       []common.Region    `json:"regions"`
	IsNormal      bool               `json:"is_normal"`
	Timestamp     time.Time          `json:"timestamp"`
}

// NewRecord encodes a detection result into a Record with a fresh id.
//
// Arguments:
//   - res: The detection result.
//   - userID: The owner of the record, or nil.
//   - now: The record timestamp.
//
// Returns:
//   - *Record: The encoded record.
//   - error: An error if an image cannot be encoded.
func NewRecord(res *detector.DetectionResult, userID *int64, now time.Time) (*Record, error) {
	if res == nil {
		return nil, errors.New("history: nil detection result")
	}

	rec := &Record{
		ID:            uuid.NewString(),
		UserID:        userID,
		Prediction:    res.Prediction,
		Confidence:    res.Confidence,
		Probabilities: res.Probabilities,
		Regions:       res.Regions,
		IsNormal:      res.IsNormal,
		Timestamp:     now.UTC(),
	}

	fields := []struct {
		dst *string
		img image.Image
	}{
		{&rec.Original, res.Original},
		{&rec.Binary, res.Binary},
		{&rec.Contours, res.Contours},
		{&rec.Overlay, res.Overlay},
	}
	for _, f := range fields {
		encoded, err := images.EncodeBase64JPEG(f.img)
		if err != nil {
			return nil, errors.Wrap(err, "history: failed to encode image")
		}
		*f.dst = encoded
	}

	preview := res.Overlay
	if preview == nil {
		preview = res.Original
	}
	if preview != nil {
		thumb, err := images.EncodeBase64JPEG(images.Thumbnail(preview, ThumbnailSize))
		if err != nil {
			return nil, errors.Wrap(err, "history: failed to encode thumbnail")
		}
		rec.Thumbnail = thumb
	}

	return rec, nil
}

// Store is an unbounded, insertion ordered, concurrency safe record store.
type Store struct {
	mu      sync.RWMutex
	records []*Record
	byID    map[string]*Record
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Record)}
}

// Add appends a record.
func (s *Store) Add(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	s.byID[rec.ID] = rec
}

// List returns the records in insertion order, restricted to userID when it
// is not nil.
func (s *Store) List(userID *int64) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		if userID != nil && (rec.UserID == nil || *rec.UserID != *userID) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Get looks a record up by id.
func (s *Store) Get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	return rec, ok
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
