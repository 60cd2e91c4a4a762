package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/service"
)

// sweepBatchLimit caps how many overdue sessions one sweep pass touches.
const sweepBatchLimit = 200

// ExpiryWorker periodically terminates sessions whose deadline has passed.
// The lazy check on candidate reads handles sessions that are still being
// polled; this sweep catches abandoned ones whose clients went away.
type ExpiryWorker struct {
	sessionService *service.SessionService
	interval       time.Duration
	log            zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(sessionService *service.SessionService, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		sessionService: sessionService,
		interval:       interval,
		log:            log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	sessions, err := w.sessionService.ListOverdue(ctx, sweepBatchLimit)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to list overdue sessions")
		return
	}
	if len(sessions) == 0 {
		return
	}

	expired := 0
	for i := range sessions {
		// ExpireOverdue re-checks the deadline with the grace period; the SQL
		// prefilter ignores grace, so rows still inside it fall through here.
		ok, err := w.sessionService.ExpireOverdue(ctx, &sessions[i])
		if err != nil {
			w.log.Error().Err(err).
				Str("session_id", sessions[i].ID.String()).
				Msg("Failed to expire session")
			continue
		}
		if ok {
			expired++
		}
	}

	if expired > 0 {
		w.log.Info().
			Int("expired", expired).
			Int("candidates", len(sessions)).
			Msg("Expiry sweep complete")
	}
}
