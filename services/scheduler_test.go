package services

import (
	"context"
	"errors"
	"testing"

	"ecoecho-core/models"

	"github.com/stretchr/testify/require"
)

func TestEnqueueKeepsNewestPerUser(t *testing.T) {
	s := NewPushRetryScheduler(&fakeBackend{}, 0)
	require.Equal(t, DefaultPushRetryInterval, s.Interval)

	s.Enqueue(models.Session{UserID: "u1", Token: "t"}, models.ServerUserStats{TotalItems: 1})
	s.Enqueue(models.Session{UserID: "u1", Token: "t"}, models.ServerUserStats{TotalItems: 2})
	s.Enqueue(models.Session{}, models.ServerUserStats{TotalItems: 9})
	require.Equal(t, 1, s.Pending())

	backend := s.Backend.(*fakeBackend)
	s.RetryPending(context.Background())
	require.Equal(t, 0, s.Pending())
	require.Equal(t, []models.ServerUserStats{{TotalItems: 2}}, backend.pushed)
}

func TestRetryKeepsFailures(t *testing.T) {
	backend := &fakeBackend{pushErr: errors.New("503")}
	s := NewPushRetryScheduler(backend, 0)
	s.Enqueue(models.Session{UserID: "u1", Token: "t"}, models.ServerUserStats{TotalItems: 1})

	s.RetryPending(context.Background())
	require.Equal(t, 1, s.Pending())
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewPushRetryScheduler(&fakeBackend{}, 0)
	s.Stop()
	require.NoError(t, s.Start())
	s.Stop()
}
