package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/store"

	"github.com/stretchr/testify/require"
)

type invalidations struct {
	seen []string
}

func (i *invalidations) Invalidate(_ context.Context, ns store.Namespace) {
	i.seen = append(i.seen, ns.String())
}

func TestMigrateSumsDisjointScans(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := store.ForUser("u1")

	for range 4 {
		scanAt(f, t, store.Anonymous, models.ScanInput{Category: "Plastic", IsRecyclable: true, EcoScore: 60})
	}
	f.clock.Advance(time.Minute)
	for range 2 {
		scanAt(f, t, user, models.ScanInput{Category: "Paper", EcoScore: 90})
	}

	inv := &invalidations{}
	m := NewMigrationService(f.repo, f.locks, inv)
	require.NoError(t, m.MigrateOnLogin(ctx, "u1"))

	stats, err := f.repo.Aggregate(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 6, stats.TotalItemsScanned)
	require.Equal(t, 4, stats.RecyclableItemsCount)
	require.Equal(t, 4, stats.ScansByCategory["Plastic"])
	require.Equal(t, 2, stats.ScansByCategory["Paper"])
	require.InDelta(t, (4*60.0+2*90.0)/6, stats.AverageEcoScore, 1e-9)

	history, err := f.repo.History(ctx, user)
	require.NoError(t, err)
	require.Len(t, history.Records, 6)
	require.Equal(t, models.CategoryPaper, history.Records[0].Category)

	progress, found, err := f.repo.Progress(ctx, user)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 6, progress.ScanCount)
	require.ElementsMatch(t, []string{"Plastic", "Paper"}, progress.CategoriesScanned)

	ledger, err := f.repo.Points(ctx, user)
	require.NoError(t, err)
	awards := map[string]int{}
	for _, e := range ledger.Earned {
		awards[e.AchievementID]++
	}
	require.Equal(t, 1, awards["first_scan"])
	require.Equal(t, 1, awards["high_scorer"])

	keys, err := f.store.ListKeys(ctx)
	require.NoError(t, err)
	for _, k := range keys {
		require.False(t, strings.HasPrefix(k, store.AnonymousPrefix), k)
	}
	require.ElementsMatch(t, []string{"u1", "anonymous"}, inv.seen)
}

func TestMigrateWithoutAnonymousDataIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	scanAt(f, t, store.ForUser("u1"), models.ScanInput{})

	inv := &invalidations{}
	m := NewMigrationService(f.repo, f.locks, inv)
	require.NoError(t, m.MigrateOnLogin(ctx, "u1"))
	require.Empty(t, inv.seen)

	stats, err := f.repo.Aggregate(ctx, store.ForUser("u1"))
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalItemsScanned)
}

func TestMigrateNeedsUser(t *testing.T) {
	m := NewMigrationService(store.NewRepository(store.NewMemoryStore()), NewNamespaceLocks(), nil)
	require.Error(t, m.MigrateOnLogin(context.Background(), "  "))
}

func TestMigrateRemovesAnonymousKeysEvenOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	scanAt(f, t, store.Anonymous, models.ScanInput{})
	require.NoError(t, f.store.Set(ctx, store.Anonymous.Key(store.KeyUserStats), []byte("not json")))

	m := NewMigrationService(f.repo, f.locks, nil)
	err := m.MigrateOnLogin(ctx, "u1")
	require.Error(t, err)

	keys, err := f.store.ListKeys(ctx)
	require.NoError(t, err)
	for _, k := range keys {
		require.False(t, strings.HasPrefix(k, store.AnonymousPrefix), k)
	}

	history, err := f.repo.History(ctx, store.ForUser("u1"))
	require.NoError(t, err)
	require.Len(t, history.Records, 1)
}

func TestMergeHistoryDedupesAndCaps(t *testing.T) {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	var a, b []models.ScanRecord
	for i := range 80 {
		a = append(a, models.ScanRecord{ID: fmt.Sprintf("a-%d", i), Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}
	for i := range 40 {
		b = append(b, models.ScanRecord{ID: fmt.Sprintf("b-%d", i), Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	b = append(b, a[0])

	got := MergeHistory(a, b)
	require.Len(t, got, MaxHistoryRecords)
	for i := 1; i < len(got); i++ {
		require.False(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
	seen := map[string]bool{}
	for _, r := range got {
		require.False(t, seen[r.ID], r.ID)
		seen[r.ID] = true
	}
}

func TestMergeLedgersOneAwardPerAchievement(t *testing.T) {
	now := time.Now()
	a := models.NewPointsLedger()
	a.Award(50, "first_scan", now)
	b := models.NewPointsLedger()
	b.Award(50, "first_scan", now)
	b.Award(100, "share_the_love", now)

	got := MergeLedgers(a, b)
	require.Len(t, got.Earned, 2)
	require.Equal(t, 150, got.Total)
}

func TestMergeProgress(t *testing.T) {
	early := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)

	a := models.NewUserProgress()
	a.ScanCount, a.DailyStreak, a.LastScanDate = 3, 5, &late
	a.AddCategory("Plastic")
	a.Unlock("first_scan")

	b := models.NewUserProgress()
	b.ScanCount, b.DailyStreak, b.LastScanDate, b.ShareCount = 2, 2, &early, 1
	b.AddCategory("Plastic")
	b.AddCategory("Glass")
	b.Unlock("first_scan")
	b.Unlock("share_the_love")

	got := MergeProgress(a, b)
	require.Equal(t, 5, got.ScanCount)
	require.Equal(t, 5, got.DailyStreak)
	require.Equal(t, 1, got.ShareCount)
	require.Equal(t, late, *got.LastScanDate)
	require.Equal(t, []string{"Plastic", "Glass"}, got.CategoriesScanned)
	require.Equal(t, []string{"first_scan", "share_the_love"}, got.UnlockedAchievements)
}

func TestMigrateIntoUserNamedAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	scanAt(f, t, store.Anonymous, models.ScanInput{})

	m := NewMigrationService(f.repo, f.locks, nil)
	require.NoError(t, m.MigrateOnLogin(ctx, "anonymous"))

	stats, err := f.repo.Aggregate(ctx, store.ForUser("anonymous"))
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalItemsScanned)
}

func TestMigrateUnlocksThresholdsCrossedByMerge(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := store.ForUser("u1")

	for range 6 {
		scanAt(f, t, store.Anonymous, models.ScanInput{Category: "Glass", IsRecyclable: true, EcoScore: 40})
	}
	for range 5 {
		scanAt(f, t, user, models.ScanInput{Category: "Metal", EcoScore: 40})
	}
	progress, _, err := f.repo.Progress(ctx, user)
	require.NoError(t, err)
	require.False(t, progress.IsUnlocked("scan_veteran"))

	// Late evening: hour-of-day entries must not unlock on login.
	f.clock.Set(time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC))
	m := NewMigrationService(f.repo, f.locks, nil)
	m.Now = f.clock.Now
	require.NoError(t, m.MigrateOnLogin(ctx, "u1"))

	progress, _, err = f.repo.Progress(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 11, progress.ScanCount)
	require.True(t, progress.IsUnlocked("scan_veteran"))
	require.True(t, progress.IsUnlocked("recycling_rookie"))
	require.False(t, progress.IsUnlocked("night_owl"))

	ledger, err := f.repo.Points(ctx, user)
	require.NoError(t, err)
	awards := map[string]int{}
	for _, e := range ledger.Earned {
		awards[e.AchievementID]++
	}
	require.Equal(t, 1, awards["scan_veteran"])
	require.Equal(t, 1, awards["recycling_rookie"])
	require.Equal(t, 1, awards["first_scan"])
	require.Zero(t, awards["night_owl"])
	require.Equal(t, 100.0, f.achievements.ProgressFraction(ctx, user, "scan_veteran"))
}

func TestClearUserOnLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	scanAt(f, t, store.Anonymous, models.ScanInput{Category: "Glass"})
	scanAt(f, t, store.ForUser("u1"), models.ScanInput{Category: "Paper"})
	scanAt(f, t, store.ForUser("u2"), models.ScanInput{Category: "Paper"})

	inv := &invalidations{}
	m := NewMigrationService(f.repo, f.locks, inv)
	require.NoError(t, m.ClearUser(ctx, "u1"))
	require.Equal(t, []string{"u1"}, inv.seen)

	keys, err := f.store.ListKeys(ctx)
	require.NoError(t, err)
	for _, k := range keys {
		require.False(t, store.ForUser("u1").Owns(k), k)
	}
	history, err := f.repo.History(ctx, store.ForUser("u2"))
	require.NoError(t, err)
	require.Len(t, history.Records, 1)
	history, err = f.repo.History(ctx, store.Anonymous)
	require.NoError(t, err)
	require.Len(t, history.Records, 1)

	require.Error(t, m.ClearUser(ctx, " "))
}
