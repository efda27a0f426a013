package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/services"
	"ecoecho-core/store"

	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	mu     sync.Mutex
	pushes int
}

func (b *countingBackend) FetchUserStats(context.Context, string) (*models.ServerUserStats, error) {
	return &models.ServerUserStats{}, nil
}

func (b *countingBackend) PushUserStats(context.Context, string, models.ServerUserStats) error {
	b.mu.Lock()
	b.pushes++
	b.mu.Unlock()
	return nil
}

func TestSyncActiveRefreshesRecentSessions(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := store.NewRepository(store.NewMemoryStore())
	throttle := services.NewMemoryThrottle(time.Second)
	throttle.Now = clock
	backend := &countingBackend{}
	reconciler, err := services.NewReconcilerService(repo, backend, throttle, services.NewNamespaceLocks(), 0)
	require.NoError(t, err)
	reconciler.Now = clock

	_, err = reconciler.Refresh(context.Background(), models.Session{UserID: "u1", Token: "t"})
	require.NoError(t, err)
	require.Equal(t, 1, backend.pushes)

	now = now.Add(time.Minute)
	w := NewStatsSyncWorker(reconciler, 0)
	require.Equal(t, 1, w.syncActive(context.Background()))
	require.Equal(t, 2, backend.pushes)

	// Background refreshes do not keep a session active.
	now = now.Add(activeWindow + time.Minute)
	require.Equal(t, 0, w.syncActive(context.Background()))
}
