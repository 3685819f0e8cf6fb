// Package transaction commits a journey log to the collection endpoint
// optimistically: the log is drained before the request is sent and the
// drained events are merged back in front of anything recorded meanwhile
// when the request fails.
package transaction

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vincentbai/journeytrace/internal/fetch"
	"github.com/vincentbai/journeytrace/internal/models"
)

// ErrNotConfigured is returned when no API key has been set.
var ErrNotConfigured = errors.New("journeytrace: API key not set, call Init first")

// Log is the part of journey.Log the syncer needs.
type Log interface {
	Drain() []*models.Event
	MergeBack(snapshot []*models.Event)
}

// BuildFunc shapes the drained events into a request.
type BuildFunc func(snapshot []*models.Event) (fetch.Request, error)

// SendFunc dispatches a request.
type SendFunc func(ctx context.Context, req fetch.Request) (fetch.JSON, error)

// Syncer runs one Sync at a time so snapshots are merged back in the
// order they were drained. Call does not take part.
type Syncer struct {
	log    Log
	logger *slog.Logger

	mu sync.Mutex
}

func NewSyncer(log Log, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{log: log, logger: logger}
}

// Sync drains the log and sends it. On any failure after the drain the
// snapshot is merged back and the original error returned.
func (s *Syncer) Sync(ctx context.Context, token string, build BuildFunc, send SendFunc) (fetch.JSON, error) {
	if token == "" {
		return fetch.JSON{}, ErrNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.log.Drain()

	req, err := build(snapshot)
	if err != nil {
		s.restore(snapshot, err)
		return fetch.JSON{}, err
	}

	resp, err := send(ctx, req)
	if err != nil {
		s.restore(snapshot, err)
		return fetch.JSON{}, err
	}
	return resp, nil
}

// Call sends a request that does not carry the journey log.
func (s *Syncer) Call(ctx context.Context, token string, build BuildFunc, send SendFunc) (fetch.JSON, error) {
	if token == "" {
		return fetch.JSON{}, ErrNotConfigured
	}
	req, err := build(nil)
	if err != nil {
		return fetch.JSON{}, err
	}
	return send(ctx, req)
}

func (s *Syncer) restore(snapshot []*models.Event, cause error) {
	s.log.MergeBack(snapshot)
	if len(snapshot) > 0 {
		s.logger.Warn("journey sync failed, events restored",
			"events", len(snapshot),
			"error", cause)
	}
}
