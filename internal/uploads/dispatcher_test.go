package uploads_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"colourstream/internal/logging"
	"colourstream/internal/uploads"
)

type panickingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *panickingNotifier) NotifyUploadProgress(context.Context, uploads.Record) error {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	panic("notifier exploded")
}

func TestPanickingNotifierIsContained(t *testing.T) {
	notifier := &panickingNotifier{}
	tracker := uploads.NewTracker(notifier, logging.NewNop())

	tracker.Track(uploads.Record{ID: "a", Size: 10, Offset: 5})
	tracker.Track(uploads.Record{ID: "a", Size: 10, Offset: 7})
	tracker.Close()

	notifier.mu.Lock()
	calls := notifier.calls
	notifier.mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected dispatcher to survive panics and keep delivering, got %d calls", calls)
	}
	if rec, ok := tracker.Get("a"); !ok || rec.Offset != 7 {
		t.Fatalf("expected tracker state unaffected by notifier panics, got %+v", rec)
	}
}

type blockingNotifier struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (n *blockingNotifier) NotifyUploadProgress(context.Context, uploads.Record) error {
	n.once.Do(func() { close(n.started) })
	<-n.release
	return nil
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	notifier := &blockingNotifier{
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	tracker := uploads.NewTracker(notifier, logging.NewNop(), uploads.WithQueueSize(1))

	// First event occupies the worker, second fills the queue; everything
	// after must be dropped without stalling Track.
	tracker.Track(uploads.Record{ID: "a", Size: 10, Offset: 1})
	<-notifier.started

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			tracker.Track(uploads.Record{ID: "a", Size: 10, Offset: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Track blocked on a saturated notification queue")
	}

	close(notifier.release)
	tracker.Close()
}
