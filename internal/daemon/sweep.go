package daemon

import (
	"context"
	"sync"
	"time"

	"colourstream/internal/logging"
)

// sweeper runs the periodic retention pass: purging completed upload
// records past their retention window, deleting expired rooms and pruning
// expired upload links. Sweeps run sequentially on a single goroutine, so a
// slow pass delays the next tick instead of overlapping it.
type sweeper struct {
	daemon   *Daemon
	interval time.Duration

	mu     sync.Mutex
	stopFn context.CancelFunc
	done   chan struct{}
}

func newSweeper(d *Daemon, interval time.Duration) *sweeper {
	return &sweeper{daemon: d, interval: interval}
}

func (s *sweeper) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopFn != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.stopFn = cancel
	s.done = make(chan struct{})
	done := s.done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *sweeper) stop() {
	s.mu.Lock()
	stopFn := s.stopFn
	done := s.done
	s.stopFn = nil
	s.done = nil
	s.mu.Unlock()

	if stopFn == nil {
		return
	}
	stopFn()
	<-done
}

// sweep executes one retention pass.
func (s *sweeper) sweep(ctx context.Context) {
	d := s.daemon
	logger := d.logger

	// CleanupOld logs its own purge count.
	d.tracker.CleanupOld(d.retention())

	rooms, err := d.rooms.CleanupExpired(ctx)
	if err != nil {
		logger.Warn("room cleanup failed", logging.Error(err))
	} else if rooms > 0 {
		logger.Info("deleted expired rooms", logging.Int64("count", rooms))
	}

	links, err := d.store.DeleteExpiredUploadLinks(ctx, time.Now())
	if err != nil {
		logger.Warn("upload link cleanup failed", logging.Error(err))
	} else if links > 0 {
		logger.Info("deleted expired upload links", logging.Int64("count", links))
	}
}
