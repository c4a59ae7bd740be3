package tasks

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
)

// Reporter aggregates progress messages into [models.Stats].
type Reporter struct {
	logger    *log.Logger
	onMessage func(models.ProgressMessage)
	stats     models.Stats
	inFlight  map[string]int64 // bytes already counted per file being copied
}

// NewReporter creates a [Reporter]. onMessage, when set, sees every message after it is counted.
func NewReporter(logger *log.Logger, onMessage func(models.ProgressMessage)) *Reporter {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Reporter{
		logger:    logger,
		onMessage: onMessage,
		inFlight:  make(map[string]int64),
	}
}

// Run consumes in until it is closed and returns the final stats.
func (r *Reporter) Run(in <-chan models.ProgressMessage) models.Stats {
	for msg := range in {
		r.Observe(msg)
		if r.onMessage != nil {
			r.onMessage(msg)
		}
	}
	return r.stats
}

// Stats returns the totals observed so far.
func (r *Reporter) Stats() models.Stats {
	return r.stats
}

// Observe counts one message. It is not safe for concurrent use.
func (r *Reporter) Observe(msg models.ProgressMessage) {
	switch msg.Kind {
	case models.Todo:
		r.stats.Entries = msg.Entries
		r.stats.NumFiles = msg.NumFiles
		r.stats.TotalSize = msg.TotalSize
	case models.Syncing:
		if delta := msg.Done - r.inFlight[msg.Description]; delta > 0 {
			r.stats.BytesCopied += delta
		}
		if msg.Done >= msg.Size {
			delete(r.inFlight, msg.Description)
		} else {
			r.inFlight[msg.Description] = msg.Done
		}
	case models.DoneSyncing:
		// A file that shrank during the copy never reports Done == Size.
		delete(r.inFlight, msg.Description)
		r.stats.Add(msg.Outcome)
		r.logger.Debug("entry synced", "outcome", msg.Outcome, "synced", r.stats.Synced)
	}
}
