// Package workers holds background maintenance jobs run by the server
// process itself; there is no separate worker binary.
package workers

import (
	"time"

	"github.com/rs/zerolog/log"

	"hooklink/internal/platform/repositories"
)

// RetentionWorker periodically prunes old rows from the inbound audit log
// so the events table does not grow without bound.
type RetentionWorker struct {
	events   *repositories.EventRepository
	maxAge   time.Duration
	interval time.Duration
	done     chan struct{}
}

func NewRetentionWorker(events *repositories.EventRepository, maxAge, interval time.Duration) *RetentionWorker {
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionWorker{
		events:   events,
		maxAge:   maxAge,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (w *RetentionWorker) Start() {
	go w.run()
}

func (w *RetentionWorker) Stop() {
	close(w.done)
}

func (w *RetentionWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.prune()
		case <-w.done:
			return
		}
	}
}

func (w *RetentionWorker) prune() {
	cutoff := time.Now().Add(-w.maxAge).Unix()
	removed, err := w.events.PruneBefore(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("event retention prune failed")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("pruned old webhook events")
	}
}
