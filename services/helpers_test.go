package services

import (
	"context"
	"sync"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/store"
)

type fakeBackend struct {
	mu       sync.Mutex
	stats    *models.ServerUserStats
	fetchErr error
	pushErr  error
	fetches  int
	pushed   []models.ServerUserStats
}

func (f *fakeBackend) FetchUserStats(_ context.Context, _ string) (*models.ServerUserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.stats == nil {
		return &models.ServerUserStats{}, nil
	}
	out := *f.stats
	return &out, nil
}

func (f *fakeBackend) PushUserStats(_ context.Context, _ string, stats models.ServerUserStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, stats)
	return nil
}

func (f *fakeBackend) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock {
	return &clock{now: t}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	store        *store.MemoryStore
	repo         *store.Repository
	locks        *NamespaceLocks
	clock        *clock
	history      *HistoryService
	achievements *AchievementService
}

func newFixture() *fixture {
	kv := store.NewMemoryStore()
	repo := store.NewRepository(kv)
	locks := NewNamespaceLocks()
	clk := newClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))

	history := NewHistoryService(repo, locks)
	history.Now = clk.Now
	achievements := NewAchievementService(repo, locks, time.UTC)
	achievements.Now = clk.Now

	return &fixture{
		store:        kv,
		repo:         repo,
		locks:        locks,
		clock:        clk,
		history:      history,
		achievements: achievements,
	}
}

func (f *fixture) newReconciler(backend StatsBackend) *ReconcilerService {
	throttle := NewMemoryThrottle(DefaultRefreshThrottle)
	throttle.Now = f.clock.Now
	r, err := NewReconcilerService(f.repo, backend, throttle, f.locks, 8)
	if err != nil {
		panic(err)
	}
	r.Now = f.clock.Now
	return r
}
