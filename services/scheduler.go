package services

import (
	"context"
	"log"
	"sync"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/observability"

	"github.com/go-co-op/gocron/v2"
)

const DefaultPushRetryInterval = time.Minute

type pendingPush struct {
	session models.Session
	stats   models.ServerUserStats
}

// PushRetryScheduler re-sends stats pushes that failed. Only the newest
// stats per user are kept.
type PushRetryScheduler struct {
	Backend  StatsBackend
	Interval time.Duration

	mu      sync.Mutex
	pending map[string]pendingPush
	sched   gocron.Scheduler
}

func NewPushRetryScheduler(backend StatsBackend, interval time.Duration) *PushRetryScheduler {
	if interval <= 0 {
		interval = DefaultPushRetryInterval
	}
	return &PushRetryScheduler{Backend: backend, Interval: interval, pending: make(map[string]pendingPush)}
}

// Enqueue replaces any pending push for the same user.
func (s *PushRetryScheduler) Enqueue(session models.Session, stats models.ServerUserStats) {
	if !session.CanReachServer() {
		return
	}
	s.mu.Lock()
	s.pending[session.UserID] = pendingPush{session: session, stats: stats}
	n := len(s.pending)
	s.mu.Unlock()
	observability.SetPendingPushes(n)
}

// Pending returns how many users wait for a retry.
func (s *PushRetryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Start runs RetryPending every Interval until Stop.
func (s *PushRetryScheduler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
			defer cancel()
			s.RetryPending(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	sched.Start()
	s.sched = sched
	log.Printf("[Scheduler] push retry every %s", s.Interval)
	return nil
}

func (s *PushRetryScheduler) Stop() {
	if s.sched == nil {
		return
	}
	if err := s.sched.Shutdown(); err != nil {
		log.Printf("[Scheduler] shutdown error: %v", err)
	}
}

// RetryPending pushes every queued entry once. Entries that fail again stay
// queued unless a newer push arrived meanwhile.
func (s *PushRetryScheduler) RetryPending(ctx context.Context) {
	s.mu.Lock()
	batch := make([]pendingPush, 0, len(s.pending))
	for _, p := range s.pending {
		batch = append(batch, p)
	}
	clear(s.pending)
	s.mu.Unlock()

	for _, p := range batch {
		err := s.Backend.PushUserStats(ctx, p.session.Token, p.stats)
		observability.RecordPush(err == nil)
		if err != nil {
			log.Printf("[Scheduler] push retry failed for %s: %v", p.session.UserID, err)
			s.mu.Lock()
			if _, newer := s.pending[p.session.UserID]; !newer {
				s.pending[p.session.UserID] = p
			}
			s.mu.Unlock()
			continue
		}
		log.Printf("✅ Retried stats push for %s", p.session.UserID)
	}
	observability.SetPendingPushes(s.Pending())
}
