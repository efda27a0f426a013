package services

import (
	"context"
	"testing"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/store"

	"github.com/stretchr/testify/require"
)

func ids(defs []models.AchievementDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func scanAt(f *fixture, t *testing.T, ns store.Namespace, input models.ScanInput) []models.AchievementDefinition {
	t.Helper()
	record, err := f.history.RecordScan(context.Background(), ns, input, "")
	require.NoError(t, err)
	unlocked, err := f.achievements.RecordScanProgress(context.Background(), ns, record)
	require.NoError(t, err)
	return unlocked
}

func TestFirstScanUnlocksOnce(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")

	first := scanAt(f, t, ns, models.ScanInput{Category: "Paper", EcoScore: 40})
	require.Equal(t, []string{"first_scan"}, ids(first))

	second := scanAt(f, t, ns, models.ScanInput{Category: "Paper", EcoScore: 40})
	require.NotContains(t, ids(second), "first_scan")

	ledger, err := f.repo.Points(context.Background(), ns)
	require.NoError(t, err)
	require.Equal(t, 50, ledger.Total)
	require.Len(t, ledger.Earned, 1)
}

func TestUnlocksComeInCatalogOrder(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")

	// A single scan with a high score unlocks first_scan, high_scorer and
	// eco_perfectionist together.
	got := scanAt(f, t, ns, models.ScanInput{Category: "Glass", EcoScore: 90})
	require.Equal(t, []string{"first_scan", "high_scorer", "eco_perfectionist"}, ids(got))

	ledger, err := f.repo.Points(context.Background(), ns)
	require.NoError(t, err)
	require.Equal(t, 50+250+400, ledger.Total)
}

func TestUnlockedNeverShrinks(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")

	scanAt(f, t, ns, models.ScanInput{EcoScore: 90})
	// Dragging the average below 70 keeps the score achievements.
	for range 5 {
		scanAt(f, t, ns, models.ScanInput{EcoScore: 0})
	}

	progress, err := f.achievements.Progress(context.Background(), ns)
	require.NoError(t, err)
	require.Less(t, progress.AverageEcoScore(), 70.0)
	require.True(t, progress.IsUnlocked("high_scorer"))
	require.True(t, progress.IsUnlocked("eco_perfectionist"))
}

func TestRecyclingAndDiversity(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")

	var all []string
	for _, c := range []string{"Plastic", "Paper", "Glass", "Metal", "Organic"} {
		all = append(all, ids(scanAt(f, t, ns, models.ScanInput{Category: c, IsRecyclable: true}))...)
	}
	require.Contains(t, all, "recycling_rookie")
	require.Contains(t, all, "category_explorer")
	require.NotContains(t, all, "waste_detective")
}

func TestDailyStreak(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")

	scanAt(f, t, ns, models.ScanInput{})
	scanAt(f, t, ns, models.ScanInput{})
	progress, _ := f.achievements.Progress(context.Background(), ns)
	require.Equal(t, 1, progress.DailyStreak)

	var unlocked []string
	for range 6 {
		f.clock.Advance(24 * time.Hour)
		unlocked = append(unlocked, ids(scanAt(f, t, ns, models.ScanInput{}))...)
	}
	progress, _ = f.achievements.Progress(context.Background(), ns)
	require.Equal(t, 7, progress.DailyStreak)
	require.Contains(t, unlocked, "weekly_warrior")

	f.clock.Advance(72 * time.Hour)
	scanAt(f, t, ns, models.ScanInput{})
	progress, _ = f.achievements.Progress(context.Background(), ns)
	require.Equal(t, 1, progress.DailyStreak)
	require.True(t, progress.IsUnlocked("weekly_warrior"))
}

func TestStreakUsesLocalCalendarDays(t *testing.T) {
	f := newFixture()
	loc := time.FixedZone("UTC+10", 10*60*60)
	f.achievements.Location = loc
	ns := store.ForUser("u1")

	// 13:30 UTC is 23:30 local; 14:30 UTC is already the next local day.
	f.clock.Set(time.Date(2025, time.March, 10, 13, 30, 0, 0, time.UTC))
	scanAt(f, t, ns, models.ScanInput{})
	f.clock.Advance(time.Hour)
	scanAt(f, t, ns, models.ScanInput{})

	progress, _ := f.achievements.Progress(context.Background(), ns)
	require.Equal(t, 2, progress.DailyStreak)
}

func TestEarlyBirdAndNightOwl(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")

	f.clock.Set(time.Date(2025, time.March, 10, 7, 59, 0, 0, time.UTC))
	require.Contains(t, ids(scanAt(f, t, ns, models.ScanInput{})), "early_bird")

	f.clock.Set(time.Date(2025, time.March, 10, 21, 59, 0, 0, time.UTC))
	require.NotContains(t, ids(scanAt(f, t, ns, models.ScanInput{})), "night_owl")

	f.clock.Set(time.Date(2025, time.March, 10, 22, 0, 0, 0, time.UTC))
	require.Contains(t, ids(scanAt(f, t, ns, models.ScanInput{})), "night_owl")
}

func TestShareUnlocksShareTheLove(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")

	got, err := f.achievements.RecordShare(context.Background(), ns)
	require.NoError(t, err)
	require.Equal(t, []string{"share_the_love"}, ids(got))

	got, err = f.achievements.RecordShare(context.Background(), ns)
	require.NoError(t, err)
	require.Empty(t, got)

	progress, _ := f.achievements.Progress(context.Background(), ns)
	require.Equal(t, 2, progress.ShareCount)
}

func TestProgressFraction(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")

	for range 5 {
		scanAt(f, t, ns, models.ScanInput{})
	}
	ctx := context.Background()
	require.Equal(t, 100.0, f.achievements.ProgressFraction(ctx, ns, "first_scan"))
	require.Equal(t, 50.0, f.achievements.ProgressFraction(ctx, ns, "scan_veteran"))
	require.InDelta(t, 10.0, f.achievements.ProgressFraction(ctx, ns, "scan_master"), 1e-9)
	require.Equal(t, 0.0, f.achievements.ProgressFraction(ctx, ns, "early_bird"))
	require.Equal(t, 0.0, f.achievements.ProgressFraction(ctx, ns, "no_such_achievement"))
}

func TestProgressFractionCapsAtHundred(t *testing.T) {
	p := models.NewUserProgress()
	p.ShareCount = 4
	def, ok := models.FindAchievement("share_the_love")
	require.True(t, ok)
	require.Equal(t, 100.0, progressFraction(&p, def))
}

func TestCorruptProgressStartsFresh(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")
	require.NoError(t, f.store.Set(context.Background(), ns.Key(store.KeyUserProgress), []byte("{broken")))

	got := scanAt(f, t, ns, models.ScanInput{})
	require.Equal(t, []string{"first_scan"}, ids(got))
}

func TestUnlockedAndCatalog(t *testing.T) {
	f := newFixture()
	ns := store.ForUser("u1")
	scanAt(f, t, ns, models.ScanInput{})

	unlocked, err := f.achievements.Unlocked(context.Background(), ns)
	require.NoError(t, err)
	require.Equal(t, []string{"first_scan"}, ids(unlocked))

	byCategory := f.achievements.CatalogByCategory()
	require.Len(t, byCategory[models.AchievementMilestone], 4)
	require.Len(t, f.achievements.Catalog(), len(models.AchievementCatalog))
}

func TestEveryMetricIsEvaluated(t *testing.T) {
	p := models.NewUserProgress()
	for _, def := range models.AchievementCatalog {
		switch def.Requirement.Metric {
		case models.MetricEarlyScanHour, models.MetricLateScanHour:
			continue
		}
		_, ok := metricValue(&p, def.Requirement.Metric)
		require.True(t, ok, def.ID)
	}
}
