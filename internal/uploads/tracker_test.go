package uploads_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"colourstream/internal/logging"
	"colourstream/internal/uploads"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []uploads.Record
	err   error
}

func (n *recordingNotifier) NotifyUploadProgress(_ context.Context, rec uploads.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, rec)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *recordingNotifier) last() (uploads.Record, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return uploads.Record{}, false
	}
	return n.calls[len(n.calls)-1], true
}

func newTestTracker(t *testing.T, notifier uploads.Notifier, clock *fakeClock) *uploads.Tracker {
	t.Helper()
	tracker := uploads.NewTracker(notifier, logging.NewNop(), uploads.WithClock(clock.Now))
	t.Cleanup(tracker.Close)
	return tracker
}

func TestTrackCreatesRecord(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 0})

	rec, ok := tracker.Get("a")
	if !ok {
		t.Fatal("expected record for id a")
	}
	if rec.Complete {
		t.Fatal("expected new record to be incomplete")
	}
	if !rec.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("expected createdAt %v, got %v", clock.Now(), rec.CreatedAt)
	}
	if rec.Speed != 0 {
		t.Fatalf("expected no derived speed on first sample, got %f", rec.Speed)
	}
}

func TestTrackDerivesSpeed(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 10000, Offset: 0})
	clock.Advance(time.Second)
	tracker.Track(uploads.Record{ID: "a", Size: 10000, Offset: 1000})

	rec, _ := tracker.Get("a")
	if rec.Speed < 990 || rec.Speed > 1010 {
		t.Fatalf("expected ~1000 bytes/sec, got %f", rec.Speed)
	}
}

func TestTrackOffsetRegressionYieldsNegativeSpeed(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 10000, Offset: 5000})
	clock.Advance(time.Second)
	tracker.Track(uploads.Record{ID: "a", Size: 10000, Offset: 4000})

	rec, _ := tracker.Get("a")
	if rec.Speed >= 0 {
		t.Fatalf("expected negative speed for offset regression, got %f", rec.Speed)
	}
}

func TestTrackUnchangedOffsetLeavesSpeedUnset(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 50})
	clock.Advance(time.Second)
	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 50})

	rec, _ := tracker.Get("a")
	if rec.Speed != 0 {
		t.Fatalf("expected no speed for unchanged offset, got %f", rec.Speed)
	}
}

func TestTrackInheritsCreatedAt(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 0})
	created := clock.Now()
	clock.Advance(time.Minute)
	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 60})

	rec, _ := tracker.Get("a")
	if !rec.CreatedAt.Equal(created) {
		t.Fatalf("expected createdAt inherited from first observation, got %v", rec.CreatedAt)
	}
	if !rec.LastUpdated.Equal(clock.Now()) {
		t.Fatalf("expected lastUpdated to advance, got %v", rec.LastUpdated)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 40})
	tracker.Complete("a")

	first, _ := tracker.Get("a")
	if !first.Complete {
		t.Fatal("expected record to be complete")
	}
	if first.Offset != first.Size {
		t.Fatalf("expected offset snapped to size, got %d", first.Offset)
	}
	if first.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}
	completedAt := *first.CompletedAt

	clock.Advance(time.Minute)
	tracker.Complete("a")

	second, _ := tracker.Get("a")
	if !second.Complete {
		t.Fatal("expected record to stay complete")
	}
	if second.CompletedAt == nil || !second.CompletedAt.Equal(completedAt) {
		t.Fatalf("expected completedAt unchanged, got %v", second.CompletedAt)
	}
	if len(tracker.All()) != 1 {
		t.Fatalf("expected one record, got %d", len(tracker.All()))
	}
}

func TestCompleteUnknownIDIsNoop(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Complete("ghost")

	if _, ok := tracker.Get("ghost"); ok {
		t.Fatal("expected no record to be created for unknown completion")
	}
}

func TestCompletionIsMonotonic(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 100})
	tracker.Complete("a")
	clock.Advance(time.Second)
	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 100})

	rec, _ := tracker.Get("a")
	if !rec.Complete {
		t.Fatal("expected stray progress event to not reactivate a completed record")
	}
	if rec.CompletedAt == nil {
		t.Fatal("expected completedAt preserved")
	}
}

func TestActiveExcludesCompleted(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 10, Offset: 1})
	tracker.Track(uploads.Record{ID: "b", Size: 10, Offset: 2})
	tracker.Track(uploads.Record{ID: "c", Size: 10, Offset: 3})
	tracker.Complete("b")

	active := tracker.Active()
	if len(active) != 2 {
		t.Fatalf("expected 2 active uploads, got %d", len(active))
	}
	for _, rec := range active {
		if rec.ID == "b" {
			t.Fatal("expected completed upload to be excluded from active set")
		}
	}
	if len(tracker.All()) != 3 {
		t.Fatalf("expected 3 records total, got %d", len(tracker.All()))
	}
}

func TestCleanupOldPurgesOnlyCompleted(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "done", Size: 10, Offset: 10})
	tracker.Complete("done")
	tracker.Track(uploads.Record{ID: "stuck", Size: 10, Offset: 5})

	clock.Advance(25 * time.Hour)
	removed := tracker.CleanupOld(24 * time.Hour)

	if removed != 1 {
		t.Fatalf("expected 1 record removed, got %d", removed)
	}
	if _, ok := tracker.Get("done"); ok {
		t.Fatal("expected completed record to be purged")
	}
	if _, ok := tracker.Get("stuck"); !ok {
		t.Fatal("expected active record to survive the sweep regardless of age")
	}
}

func TestCleanupOldRetainsRecentCompleted(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 10, Offset: 10})
	tracker.Complete("a")
	clock.Advance(time.Hour)

	if removed := tracker.CleanupOld(24 * time.Hour); removed != 0 {
		t.Fatalf("expected no records removed, got %d", removed)
	}
}

func TestNotifierReceivesEveryUpdate(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	tracker := newTestTracker(t, notifier, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 0})
	clock.Advance(time.Second)
	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 50})
	tracker.Complete("a")
	tracker.Close()

	if notifier.count() != 3 {
		t.Fatalf("expected 3 notifications, got %d", notifier.count())
	}
	last, _ := notifier.last()
	if !last.Complete {
		t.Fatal("expected final notification to carry the terminal record")
	}
	if last.Offset != last.Size {
		t.Fatalf("expected terminal offset == size, got %d != %d", last.Offset, last.Size)
	}
}

func TestFailingNotifierDoesNotAffectState(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{err: errors.New("chat api unavailable")}
	tracker := newTestTracker(t, notifier, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 10})
	tracker.Complete("a")
	tracker.Close()

	rec, ok := tracker.Get("a")
	if !ok {
		t.Fatal("expected record despite notifier failures")
	}
	if !rec.Complete || rec.Offset != 100 {
		t.Fatalf("expected completed record, got %+v", rec)
	}
	if notifier.count() != 2 {
		t.Fatalf("expected both notification attempts, got %d", notifier.count())
	}
}

func TestTrackingAfterCloseUpdatesStateWithoutPanicking(t *testing.T) {
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	tracker := newTestTracker(t, notifier, clock)

	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 10})
	tracker.Close()
	delivered := notifier.count()

	// Shutdown races: an upload handler mid-transfer can still report
	// progress after the dispatcher stopped. State keeps updating and the
	// notification is dropped.
	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 60})
	tracker.Complete("a")
	tracker.Track(uploads.Record{ID: "late", Size: 10, Offset: 0})

	rec, ok := tracker.Get("a")
	if !ok || !rec.Complete || rec.Offset != 100 {
		t.Fatalf("expected completed record after close, got %+v", rec)
	}
	if _, ok := tracker.Get("late"); !ok {
		t.Fatal("expected record created after close")
	}
	if notifier.count() != delivered {
		t.Fatalf("expected no deliveries after close, got %d extra", notifier.count()-delivered)
	}
}

func TestMetadataIsPassedThroughUnmodified(t *testing.T) {
	clock := newFakeClock()
	tracker := newTestTracker(t, nil, clock)

	meta := map[string]string{
		uploads.MetaFilename: "shot_042.mov",
		uploads.MetaClient:   "acme",
		uploads.MetaProject:  "spring-campaign",
	}
	tracker.Track(uploads.Record{ID: "a", Size: 100, Offset: 0, Metadata: meta})

	meta[uploads.MetaFilename] = "mutated.mov"

	rec, _ := tracker.Get("a")
	if rec.Metadata[uploads.MetaFilename] != "shot_042.mov" {
		t.Fatalf("expected tracker to hold its own metadata copy, got %q", rec.Metadata[uploads.MetaFilename])
	}
	if rec.Filename() != "shot_042.mov" {
		t.Fatalf("unexpected display filename: %q", rec.Filename())
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		name   string
		size   int64
		offset int64
		want   float64
	}{
		{"zero size", 0, 500, 0},
		{"halfway", 200, 100, 50},
		{"overshoot clamps", 100, 150, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := uploads.Record{Size: tc.size, Offset: tc.offset}
			if got := rec.Percent(); got != tc.want {
				t.Fatalf("expected %f, got %f", tc.want, got)
			}
		})
	}
}
