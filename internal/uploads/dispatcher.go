package uploads

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"colourstream/internal/logging"
)

const (
	defaultQueueSize = 256
	notifyTimeout    = 15 * time.Second
)

// Notifier is the capability the tracker fans progress snapshots out to.
// Implementations must not panic; returned errors are logged and swallowed.
type Notifier interface {
	NotifyUploadProgress(ctx context.Context, rec Record) error
}

// dispatcher delivers records to the notifier from a bounded queue. A full
// queue drops the event rather than blocking the tracking call.
type dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	events   chan Record

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

func newDispatcher(notifier Notifier, logger *slog.Logger, queueSize int) *dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &dispatcher{
		notifier: notifier,
		logger:   logger,
		events:   make(chan Record, queueSize),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) enqueue(rec Record) {
	if d.notifier == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	// Tracking calls can still arrive while the daemon shuts down, for
	// example from an upload handler mid-transfer. After close the event is
	// dropped; it must never panic the caller.
	if d.closed {
		notifyDropped.Inc()
		d.logger.Warn("dispatcher closed, dropping event",
			logging.String(logging.FieldUploadID, rec.ID))
		return
	}
	select {
	case d.events <- rec:
	default:
		notifyDropped.Inc()
		d.logger.Warn("notification queue full, dropping event",
			logging.String(logging.FieldUploadID, rec.ID))
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for rec := range d.events {
		d.deliver(rec)
	}
}

func (d *dispatcher) deliver(rec Record) {
	defer func() {
		if r := recover(); r != nil {
			notifyFailures.Inc()
			d.logger.Error("notifier panicked",
				logging.String(logging.FieldUploadID, rec.ID),
				logging.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := d.notifier.NotifyUploadProgress(ctx, rec); err != nil {
		notifyFailures.Inc()
		d.logger.Warn("notification delivery failed",
			logging.String(logging.FieldUploadID, rec.ID),
			logging.Error(err))
	}
}

// close drains the queue and stops the worker. Events enqueued afterwards
// are dropped.
func (d *dispatcher) close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.events)
		<-d.done
	})
}
