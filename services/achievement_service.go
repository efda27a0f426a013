package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/observability"
	"ecoecho-core/store"
)

// AchievementService is the gamification state machine: it updates progress
// counters and unlocks catalog entries once their requirement is met.
type AchievementService struct {
	Repo     *store.Repository
	Locks    *NamespaceLocks
	Location *time.Location
	Now      func() time.Time
}

func NewAchievementService(repo *store.Repository, locks *NamespaceLocks, loc *time.Location) *AchievementService {
	if loc == nil {
		loc = time.Local
	}
	return &AchievementService{Repo: repo, Locks: locks, Location: loc, Now: time.Now}
}

// RecordScanProgress folds one scan into the namespace's progress and returns
// the achievements it newly unlocked, in catalog order.
func (s *AchievementService) RecordScanProgress(ctx context.Context, ns store.Namespace, scan models.ScanRecord) ([]models.AchievementDefinition, error) {
	unlock := s.Locks.Lock(ns)
	defer unlock()

	now := s.Now().In(s.Location)
	progress := s.loadProgress(ctx, ns)

	progress.ScanCount++
	if scan.IsRecyclable {
		progress.RecyclableCount++
	}
	progress.TotalEcoScore += float64(scan.EcoScore)
	progress.AddCategory(string(scan.Category))
	advanceStreak(&progress, now)

	return s.unlockAndSave(ctx, ns, &progress, now)
}

// RecordShare counts a share and returns any achievements it unlocked.
func (s *AchievementService) RecordShare(ctx context.Context, ns store.Namespace) ([]models.AchievementDefinition, error) {
	unlock := s.Locks.Lock(ns)
	defer unlock()

	now := s.Now().In(s.Location)
	progress := s.loadProgress(ctx, ns)
	progress.ShareCount++

	return s.unlockAndSave(ctx, ns, &progress, now)
}

// ProgressFraction is how far ns is towards the achievement, from 0 to 100.
func (s *AchievementService) ProgressFraction(ctx context.Context, ns store.Namespace, id string) float64 {
	def, ok := models.FindAchievement(id)
	if !ok {
		return 0
	}
	progress, _, err := s.Repo.Progress(ctx, ns)
	if err != nil {
		log.Printf("[ACHIEVEMENTS] failed to read progress for %s: %v", ns, err)
		return 0
	}
	return progressFraction(&progress, def)
}

// FractionOf is ProgressFraction over already loaded progress.
func (s *AchievementService) FractionOf(progress *models.UserProgress, def models.AchievementDefinition) float64 {
	return progressFraction(progress, def)
}

// Progress returns the stored counters, or fresh ones.
func (s *AchievementService) Progress(ctx context.Context, ns store.Namespace) (models.UserProgress, error) {
	progress, _, err := s.Repo.Progress(ctx, ns)
	return progress, err
}

// Unlocked returns the unlocked definitions in catalog order.
func (s *AchievementService) Unlocked(ctx context.Context, ns store.Namespace) ([]models.AchievementDefinition, error) {
	progress, _, err := s.Repo.Progress(ctx, ns)
	if err != nil {
		return nil, err
	}
	var out []models.AchievementDefinition
	for _, def := range models.AchievementCatalog {
		if progress.IsUnlocked(def.ID) {
			out = append(out, def)
		}
	}
	return out, nil
}

// Catalog returns every definition in evaluation order.
func (s *AchievementService) Catalog() []models.AchievementDefinition {
	return models.AchievementCatalog
}

// CatalogByCategory groups definitions by category, keeping catalog order.
func (s *AchievementService) CatalogByCategory() map[models.AchievementCategory][]models.AchievementDefinition {
	out := make(map[models.AchievementCategory][]models.AchievementDefinition)
	for _, def := range models.AchievementCatalog {
		out[def.Category] = append(out[def.Category], def)
	}
	return out
}

func (s *AchievementService) loadProgress(ctx context.Context, ns store.Namespace) models.UserProgress {
	progress, found, err := s.Repo.Progress(ctx, ns)
	if err != nil {
		log.Printf("[ACHIEVEMENTS] unreadable progress for %s, starting fresh: %v", ns, err)
		return models.NewUserProgress()
	}
	if !found {
		log.Printf("[ACHIEVEMENTS] initializing progress for %s", ns)
	}
	return progress
}

func (s *AchievementService) unlockAndSave(ctx context.Context, ns store.Namespace, progress *models.UserProgress, now time.Time) ([]models.AchievementDefinition, error) {
	ledger, err := s.Repo.Points(ctx, ns)
	if err != nil {
		log.Printf("[ACHIEVEMENTS] unreadable ledger for %s, starting fresh: %v", ns, err)
		ledger = models.NewPointsLedger()
	}

	unlocked := evaluateUnlocks(progress, &ledger, now, true)

	// Ledger first: a retried unlock finds the award and skips it.
	if len(unlocked) > 0 {
		if err := s.Repo.SavePoints(ctx, ns, ledger); err != nil {
			return nil, fmt.Errorf("save points: %w", err)
		}
	}
	if err := s.Repo.SaveProgress(ctx, ns, *progress); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	announceUnlocks(ns, unlocked)
	if len(unlocked) == 0 {
		return nil, nil
	}
	return unlocked, nil
}

// evaluateUnlocks unlocks every catalog entry whose requirement progress now
// meets and awards its points once. Hour-of-day entries are only considered
// when the evaluation stands for an action taken at now.
func evaluateUnlocks(progress *models.UserProgress, ledger *models.PointsLedger, now time.Time, timeOfDay bool) []models.AchievementDefinition {
	var unlocked []models.AchievementDefinition
	for _, def := range models.AchievementCatalog {
		if progress.IsUnlocked(def.ID) {
			continue
		}
		if !timeOfDay && isTimeOfDay(def.Requirement.Metric) {
			continue
		}
		if !meetsRequirement(progress, def.Requirement, now) {
			continue
		}
		progress.Unlock(def.ID)
		if !ledger.HasAward(def.ID) {
			ledger.Award(def.Points, def.ID, now.UTC())
		}
		unlocked = append(unlocked, def)
	}
	return unlocked
}

func announceUnlocks(ns store.Namespace, unlocked []models.AchievementDefinition) {
	for _, def := range unlocked {
		observability.RecordAchievementUnlocked(def.ID)
		log.Printf("[ACHIEVEMENTS] 🎖️ %s unlocked %s (+%d points)", ns, def.ID, def.Points)
	}
}

func isTimeOfDay(m models.Metric) bool {
	return m == models.MetricEarlyScanHour || m == models.MetricLateScanHour
}

// advanceStreak moves the daily streak for a scan at now.
func advanceStreak(p *models.UserProgress, now time.Time) {
	today := calendarDay(now)
	yesterday := today.AddDate(0, 0, -1)

	switch {
	case p.LastScanDate == nil:
		p.DailyStreak++
	default:
		last := calendarDay(p.LastScanDate.In(now.Location()))
		switch {
		case last.Equal(today):
		case last.Equal(yesterday):
			p.DailyStreak++
		default:
			p.DailyStreak = 1
		}
	}
	if p.DailyStreak < 1 {
		p.DailyStreak = 1
	}
	at := now.UTC()
	p.LastScanDate = &at
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// metricValue is the current value of a cumulative metric.
func metricValue(p *models.UserProgress, m models.Metric) (float64, bool) {
	switch m {
	case models.MetricScanCount:
		return float64(p.ScanCount), true
	case models.MetricRecyclableCount:
		return float64(p.RecyclableCount), true
	case models.MetricAverageScore:
		return p.AverageEcoScore(), true
	case models.MetricCategoryDiversity:
		return float64(len(p.CategoriesScanned)), true
	case models.MetricDailyStreak:
		return float64(p.DailyStreak), true
	case models.MetricShareCount:
		return float64(p.ShareCount), true
	case models.MetricEarlyScanHour, models.MetricLateScanHour:
		return 0, false
	}
	return 0, false
}

func meetsRequirement(p *models.UserProgress, req models.Requirement, now time.Time) bool {
	switch req.Metric {
	case models.MetricEarlyScanHour:
		return float64(now.Hour()) < req.Threshold
	case models.MetricLateScanHour:
		return float64(now.Hour()) >= req.Threshold
	default:
		v, ok := metricValue(p, req.Metric)
		return ok && v >= req.Threshold
	}
}

func progressFraction(p *models.UserProgress, def models.AchievementDefinition) float64 {
	if p.IsUnlocked(def.ID) {
		return 100
	}
	v, ok := metricValue(p, def.Requirement.Metric)
	if !ok || def.Requirement.Threshold <= 0 {
		return 0
	}
	return min(v/def.Requirement.Threshold*100, 100)
}
