package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/store"

	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	require.Equal(t, 1, levelFor(0))
	require.Equal(t, 1, levelFor(999))
	require.Equal(t, 2, levelFor(1000))
	require.Equal(t, 1, levelFor(-5))
	require.Equal(t, 1000, pointsToNextLevel(0))
	require.Equal(t, 150, pointsToNextLevel(1850))
}

func TestGetProgress(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")
	scanAt(f, t, ns, models.ScanInput{EcoScore: 90})

	got := NewProgressionService(f.repo).GetProgress(context.Background(), ns)
	require.Equal(t, 700, got.Points.Total)
	require.Equal(t, 1, got.Level)
	require.Equal(t, 300, got.NextLevelPoints)
	require.Equal(t, 1, got.Progress.ScanCount)
}

func TestGetPointsHistoryPaginates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ns := store.ForUser("u1")

	ledger := models.NewPointsLedger()
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range 25 {
		ledger.Award(10, fmt.Sprintf("a%d", i), base.Add(time.Duration(i)*time.Minute))
	}
	require.NoError(t, f.repo.SavePoints(ctx, ns, ledger))

	svc := NewProgressionService(f.repo)
	page, err := svc.GetPointsHistory(ctx, ns, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 20)
	require.Equal(t, "a24", page.Entries[0].AchievementID)
	require.Equal(t, 25, page.TotalItems)
	require.Equal(t, 2, page.TotalPages)
	require.Equal(t, 250, page.Total)

	page, err = svc.GetPointsHistory(ctx, ns, 2, 20)
	require.NoError(t, err)
	require.Len(t, page.Entries, 5)
	require.Equal(t, "a0", page.Entries[4].AchievementID)

	page, err = svc.GetPointsHistory(ctx, ns, 9, 20)
	require.NoError(t, err)
	require.Empty(t, page.Entries)

	stored, err := f.repo.Points(ctx, ns)
	require.NoError(t, err)
	require.Equal(t, "a0", stored.Earned[0].AchievementID)
}
