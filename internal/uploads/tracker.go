package uploads

import (
	"log/slog"
	"sync"
	"time"

	"colourstream/internal/logging"
)

// DefaultRetention is how long completed records are kept before the sweep
// removes them.
const DefaultRetention = 24 * time.Hour

// Tracker maintains the latest state of every in-flight or recently-completed
// upload. All operations are safe for concurrent use; updates for a single
// identifier are atomic with respect to each other.
type Tracker struct {
	mu      sync.Mutex
	records map[string]Record

	now        func() time.Time
	logger     *slog.Logger
	queueSize  int
	dispatcher *dispatcher
}

// Option customizes Tracker construction.
type Option func(*Tracker)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithQueueSize sets the notification queue capacity.
func WithQueueSize(size int) Option {
	return func(t *Tracker) {
		if size > 0 {
			t.queueSize = size
		}
	}
}

// NewTracker builds a tracker that fans updates out to notifier. A nil
// notifier disables notifications but tracking still works.
func NewTracker(notifier Notifier, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		records:   make(map[string]Record),
		now:       time.Now,
		logger:    logging.NewComponentLogger(logger, "upload-tracker"),
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.dispatcher = newDispatcher(notifier, t.logger, t.queueSize)
	return t
}

// Close stops the notification dispatcher. Pending queued notifications are
// delivered before Close returns.
func (t *Tracker) Close() {
	t.dispatcher.close()
}

// Track records a progress observation. The record is merged with any prior
// state for the same ID (last-write-wins), transfer speed is derived when a
// prior sample with a different offset exists, and one notification attempt
// is queued. Track never fails from the caller's perspective.
func (t *Tracker) Track(rec Record) {
	if rec.ID == "" {
		t.logger.Warn("ignoring upload event without id")
		return
	}

	now := t.now()

	t.mu.Lock()
	existing, exists := t.records[rec.ID]

	merged := rec.clone()
	merged.Speed = 0
	merged.LastUpdated = now

	if exists {
		merged.CreatedAt = existing.CreatedAt
		if existing.Offset != rec.Offset {
			elapsed := now.Sub(existing.LastUpdated).Seconds()
			if elapsed > 0 {
				merged.Speed = float64(rec.Offset-existing.Offset) / elapsed
			}
		}
		// Completion is monotonic: a stray progress event after completion
		// must not reactivate the record.
		if existing.Complete {
			if !merged.Complete {
				t.logger.Debug("progress event after completion ignored for state",
					logging.String(logging.FieldUploadID, rec.ID),
					logging.Int64("offset", rec.Offset))
			}
			merged.Complete = true
			merged.CompletedAt = existing.CompletedAt
		}
	} else {
		merged.CreatedAt = now
	}

	t.records[rec.ID] = merged
	snapshot := merged.clone()
	t.mu.Unlock()

	trackedTotal.Inc()
	t.logger.Debug("upload progress recorded",
		logging.String(logging.FieldUploadID, snapshot.ID),
		logging.Int64("offset", snapshot.Offset),
		logging.Int64("size", snapshot.Size),
		logging.Float64("speed_bps", snapshot.Speed))

	t.dispatcher.enqueue(snapshot)
}

// Complete marks an upload as finished, snapping the offset to the declared
// size and notifying once more so consumers can render a terminal message.
// Completing an unknown id is tolerated: hook ordering races can deliver a
// finish event without a preceding create.
func (t *Tracker) Complete(id string) {
	now := t.now()

	t.mu.Lock()
	rec, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		t.logger.Warn("completion for unknown upload",
			logging.String(logging.FieldUploadID, id))
		return
	}

	rec.Offset = rec.Size
	rec.LastUpdated = now
	if !rec.Complete {
		rec.Complete = true
		done := now
		rec.CompletedAt = &done
	}
	t.records[id] = rec
	snapshot := rec.clone()
	t.mu.Unlock()

	completedTotal.Inc()
	t.logger.Info("upload completed",
		logging.String(logging.FieldUploadID, id),
		logging.Int64("size", snapshot.Size))

	t.dispatcher.enqueue(snapshot)
}

// Get returns the record for id, if known.
func (t *Tracker) Get(id string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Active returns all records that have not completed. Order is unspecified.
func (t *Tracker) Active() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Record
	for _, rec := range t.records {
		if !rec.Complete {
			out = append(out, rec.clone())
		}
	}
	return out
}

// All returns every known record. Order is unspecified.
func (t *Tracker) All() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec.clone())
	}
	return out
}

// CleanupOld purges records that completed and have been inactive for longer
// than maxAge. Active records are never purged regardless of age: stuck
// uploads remain visible until completed or the process restarts. Returns the
// number of records removed.
func (t *Tracker) CleanupOld(maxAge time.Duration) int {
	now := t.now()

	t.mu.Lock()
	var removed int
	for id, rec := range t.records {
		if rec.Complete && now.Sub(rec.LastUpdated) > maxAge {
			delete(t.records, id)
			removed++
		}
	}
	t.mu.Unlock()

	if removed > 0 {
		t.logger.Info("purged completed upload records", logging.Int("count", removed))
	}
	return removed
}
