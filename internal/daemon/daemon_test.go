package daemon

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"colourstream/internal/logging"
	"colourstream/internal/store"
	"colourstream/internal/testsupport"
	"colourstream/internal/uploads"
)

func newTestDaemon(t *testing.T) (*Daemon, *store.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() {
		if d.running.Load() {
			d.Stop()
		} else {
			d.tracker.Close()
		}
	})
	return d, st
}

func TestDaemonStartStop(t *testing.T) {
	d, st := newTestDaemon(t)
	ctx := context.Background()

	if d.Status().Running {
		t.Fatal("daemon reported running before start")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("daemon not running after start")
	}
	if status.APIAddress == "" {
		t.Fatal("daemon has no api address after start")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/api/health", status.APIAddress))
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	user, err := st.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("lookup admin: %v", err)
	}
	if user == nil {
		t.Fatal("admin account not seeded on start")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon still running after stop")
	}
}

func TestDaemonSecondInstanceRefused(t *testing.T) {
	first, _ := newTestDaemon(t)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("start first daemon: %v", err)
	}

	second, err := New(first.cfg, first.store, logging.NewNop())
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	t.Cleanup(second.tracker.Close)

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second daemon acquired the lock while the first was running")
	}

	first.Stop()

	if err := second.Start(ctx); err != nil {
		t.Fatalf("restart after lock release: %v", err)
	}
	second.Stop()
}

func TestDaemonRestart(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := d.Start(ctx); err != nil {
			t.Fatalf("start cycle %d: %v", i, err)
		}
		d.Stop()
	}
}

func TestSweepPurgesExpiredState(t *testing.T) {
	d, st := newTestDaemon(t)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	room := &store.Room{
		ID:             "room-expired",
		Name:           "old show",
		MiroTalkRoomID: "mtk-expired",
		StreamKey:      "key-expired",
		ExpiresAt:      &expired,
		CreatedAt:      time.Now().Add(-2 * time.Hour),
	}
	if err := st.CreateRoom(ctx, room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	link := &store.UploadLink{
		Token:      "tok-expired",
		ClientName: "client",
		ExpiresAt:  &expired,
		CreatedAt:  time.Now().Add(-2 * time.Hour),
	}
	if err := st.CreateUploadLink(ctx, link); err != nil {
		t.Fatalf("create upload link: %v", err)
	}

	d.tracker.Track(uploads.Record{ID: "live-upload", Size: 100, Offset: 10})

	d.sweeper.sweep(ctx)

	gotRoom, err := st.GetRoom(ctx, "room-expired")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if gotRoom != nil {
		t.Fatal("expired room survived sweep")
	}

	gotLink, err := st.GetUploadLink(ctx, "tok-expired")
	if err != nil {
		t.Fatalf("get upload link: %v", err)
	}
	if gotLink != nil {
		t.Fatal("expired upload link survived sweep")
	}

	if _, ok := d.tracker.Get("live-upload"); !ok {
		t.Fatal("active upload purged by sweep")
	}
}

func TestTestNotificationUnconfigured(t *testing.T) {
	d, _ := newTestDaemon(t)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if sent {
		t.Fatal("notification reported sent without telegram configuration")
	}
	if message == "" {
		t.Fatal("expected a human readable status message")
	}
}
