package artifact

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically deletes artifacts older than the retention window,
// whether or not they were downloaded.
type Sweeper struct {
	store     *Store
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewSweeper(store *Store, interval, retention time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int {
	removed := s.store.Expire(ctx, s.now(), s.retention)
	if removed > 0 {
		log.Printf("🧹 [CLEANUP] Removed %d expired artifact(s), %d remaining", removed, s.store.Len())
	}
	return removed
}
