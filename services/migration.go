package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/observability"
	"ecoecho-core/store"
)

// CacheInvalidator drops derived state of a namespace after its data changed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, ns store.Namespace)
}

// MigrationService folds the anonymous, pre-login namespace into a user's
// namespace right after login.
type MigrationService struct {
	Repo        *store.Repository
	Locks       *NamespaceLocks
	Invalidator CacheInvalidator
	Now         func() time.Time
}

func NewMigrationService(repo *store.Repository, locks *NamespaceLocks, invalidator CacheInvalidator) *MigrationService {
	return &MigrationService{Repo: repo, Locks: locks, Invalidator: invalidator, Now: time.Now}
}

// MigrateOnLogin merges every anonymous document into userID's namespace and
// then removes the anonymous copies, even when a merge step failed.
func (s *MigrationService) MigrateOnLogin(ctx context.Context, userID string) error {
	user := store.ForUser(userID)
	if user.IsAnonymous() {
		return errors.New("migration needs a user id")
	}

	keys, err := s.Repo.Store().ListKeys(ctx)
	if err != nil {
		observability.RecordMigration(false)
		return fmt.Errorf("list keys: %w", err)
	}
	var anonKeys []string
	for _, k := range keys {
		if strings.HasPrefix(k, store.AnonymousPrefix) {
			anonKeys = append(anonKeys, k)
		}
	}
	if len(anonKeys) == 0 {
		return nil
	}

	unlockAnon := s.Locks.Lock(store.Anonymous)
	defer unlockAnon()
	unlockUser := s.Locks.Lock(user)
	defer unlockUser()

	log.Printf("[MIGRATE] merging %d anonymous documents into %s", len(anonKeys), user)

	errs := []error{
		s.mergeHistory(ctx, user),
		s.mergeAggregate(ctx, user),
		s.mergeProgress(ctx, user),
		s.mergePoints(ctx, user),
		s.mergeProfileStats(ctx, user),
	}
	// Summed counters can cross thresholds neither side reached alone.
	errs = append(errs, s.unlockMerged(ctx, user))
	for _, k := range anonKeys {
		if err := s.Repo.Store().Remove(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}

	if s.Invalidator != nil {
		s.Invalidator.Invalidate(ctx, user)
		s.Invalidator.Invalidate(ctx, store.Anonymous)
	}

	err = errors.Join(errs...)
	observability.RecordMigration(err == nil)
	if err != nil {
		log.Printf("[MIGRATE] ❌ migration into %s finished with errors: %v", user, err)
		return err
	}
	log.Printf("[MIGRATE] ✅ anonymous data moved into %s", user)
	return nil
}

func (s *MigrationService) mergeHistory(ctx context.Context, user store.Namespace) error {
	anon, err := s.Repo.History(ctx, store.Anonymous)
	if err != nil {
		return fmt.Errorf("read anonymous history: %w", err)
	}
	if len(anon.Records) == 0 {
		return nil
	}
	mine, err := s.Repo.History(ctx, user)
	if err != nil {
		return fmt.Errorf("read user history: %w", err)
	}
	mine.Records = MergeHistory(mine.Records, anon.Records)
	return s.Repo.SaveHistory(ctx, user, mine)
}

func (s *MigrationService) mergeAggregate(ctx context.Context, user store.Namespace) error {
	anon, err := s.Repo.Aggregate(ctx, store.Anonymous)
	if err != nil {
		return fmt.Errorf("read anonymous stats: %w", err)
	}
	if anon.TotalItemsScanned == 0 && len(anon.ScansByCategory) == 0 && len(anon.ScansByMaterial) == 0 {
		return nil
	}
	mine, err := s.Repo.Aggregate(ctx, user)
	if err != nil {
		return fmt.Errorf("read user stats: %w", err)
	}
	return s.Repo.SaveAggregate(ctx, user, MergeAggregates(mine, anon))
}

func (s *MigrationService) mergeProgress(ctx context.Context, user store.Namespace) error {
	anon, found, err := s.Repo.Progress(ctx, store.Anonymous)
	if err != nil {
		return fmt.Errorf("read anonymous progress: %w", err)
	}
	if !found {
		return nil
	}
	mine, _, err := s.Repo.Progress(ctx, user)
	if err != nil {
		return fmt.Errorf("read user progress: %w", err)
	}
	return s.Repo.SaveProgress(ctx, user, MergeProgress(mine, anon))
}

func (s *MigrationService) mergePoints(ctx context.Context, user store.Namespace) error {
	anon, err := s.Repo.Points(ctx, store.Anonymous)
	if err != nil {
		return fmt.Errorf("read anonymous points: %w", err)
	}
	if len(anon.Earned) == 0 {
		return nil
	}
	mine, err := s.Repo.Points(ctx, user)
	if err != nil {
		return fmt.Errorf("read user points: %w", err)
	}
	return s.Repo.SavePoints(ctx, user, MergeLedgers(mine, anon))
}

func (s *MigrationService) unlockMerged(ctx context.Context, user store.Namespace) error {
	progress, found, err := s.Repo.Progress(ctx, user)
	if err != nil {
		return fmt.Errorf("read merged progress: %w", err)
	}
	if !found {
		return nil
	}
	ledger, err := s.Repo.Points(ctx, user)
	if err != nil {
		return fmt.Errorf("read merged points: %w", err)
	}
	unlocked := evaluateUnlocks(&progress, &ledger, s.Now(), false)
	if len(unlocked) == 0 {
		return nil
	}
	if err := s.Repo.SavePoints(ctx, user, ledger); err != nil {
		return fmt.Errorf("save merged points: %w", err)
	}
	if err := s.Repo.SaveProgress(ctx, user, progress); err != nil {
		return fmt.Errorf("save merged progress: %w", err)
	}
	announceUnlocks(user, unlocked)
	return nil
}

// ClearUser drops everything stored for userID and its cached server state.
// It runs on logout; the anonymous namespace is left alone.
func (s *MigrationService) ClearUser(ctx context.Context, userID string) error {
	user := store.ForUser(userID)
	if user.IsAnonymous() {
		return errors.New("logout needs a user id")
	}

	unlock := s.Locks.Lock(user)
	defer unlock()

	if s.Invalidator != nil {
		s.Invalidator.Invalidate(ctx, user)
	}
	if err := s.Repo.RemoveNamespace(ctx, user); err != nil {
		log.Printf("[SESSION] ❌ failed to clear data for %s: %v", user, err)
		return err
	}
	log.Printf("[SESSION] cleared local data for %s", user)
	return nil
}

func (s *MigrationService) mergeProfileStats(ctx context.Context, user store.Namespace) error {
	anon, err := s.Repo.ProfileStats(ctx, store.Anonymous)
	if err != nil {
		return fmt.Errorf("read anonymous profile stats: %w", err)
	}
	if anon == nil {
		return nil
	}
	mine, err := s.Repo.ProfileStats(ctx, user)
	if err != nil {
		return fmt.Errorf("read user profile stats: %w", err)
	}
	merged := *anon
	if mine != nil {
		merged.TotalItems = max(mine.TotalItems, anon.TotalItems)
		merged.RecyclableItems = max(mine.RecyclableItems, anon.RecyclableItems)
		merged.TotalWeight = max(NormalizeWeight(mine.TotalWeight, mine.TotalItems), NormalizeWeight(anon.TotalWeight, anon.TotalItems))
		merged.TotalCarbonSaved = max(mine.TotalCarbonSaved, anon.TotalCarbonSaved)
		merged.LastUpdated = mine.LastUpdated
	}
	return s.Repo.SaveProfileStats(ctx, user, merged)
}

// MergeHistory joins two histories, dropping duplicate ids and keeping the
// newest MaxHistoryRecords.
func MergeHistory(a, b []models.ScanRecord) []models.ScanRecord {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]models.ScanRecord, 0, len(a)+len(b))
	for _, r := range slices.Concat(a, b) {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(x, y models.ScanRecord) int {
		return cmp.Compare(y.Timestamp.UnixNano(), x.Timestamp.UnixNano())
	})
	if len(out) > MaxHistoryRecords {
		out = out[:MaxHistoryRecords]
	}
	return out
}

// MergeAggregates sums two aggregates built from disjoint scans.
func MergeAggregates(a, b models.LocalAggregateStats) models.LocalAggregateStats {
	out := models.NewLocalAggregateStats()
	out.TotalItemsScanned = a.TotalItemsScanned + b.TotalItemsScanned
	out.RecyclableItemsCount = a.RecyclableItemsCount + b.RecyclableItemsCount
	out.TotalEcoScore = a.TotalEcoScore + b.TotalEcoScore
	for _, src := range []models.LocalAggregateStats{a, b} {
		for k, v := range src.ScansByCategory {
			out.ScansByCategory[k] += v
		}
		for k, v := range src.ScansByMaterial {
			out.ScansByMaterial[k] += v
		}
	}
	out.LastUpdated = a.LastUpdated
	if b.LastUpdated != nil && (a.LastUpdated == nil || b.LastUpdated.After(*a.LastUpdated)) {
		out.LastUpdated = b.LastUpdated
	}
	out.RecomputeAverage()
	return out
}

// MergeProgress sums counters and unions the sets of two progress documents.
func MergeProgress(a, b models.UserProgress) models.UserProgress {
	out := models.NewUserProgress()
	out.ScanCount = a.ScanCount + b.ScanCount
	out.RecyclableCount = a.RecyclableCount + b.RecyclableCount
	out.TotalEcoScore = a.TotalEcoScore + b.TotalEcoScore
	out.ShareCount = a.ShareCount + b.ShareCount
	out.DailyStreak = max(a.DailyStreak, b.DailyStreak)
	for _, c := range slices.Concat(a.CategoriesScanned, b.CategoriesScanned) {
		out.AddCategory(c)
	}
	for _, id := range slices.Concat(a.UnlockedAchievements, b.UnlockedAchievements) {
		out.Unlock(id)
	}
	out.LastScanDate = a.LastScanDate
	if b.LastScanDate != nil && (a.LastScanDate == nil || b.LastScanDate.After(*a.LastScanDate)) {
		out.LastScanDate = b.LastScanDate
	}
	return out
}

// MergeLedgers keeps at most one award per achievement id.
func MergeLedgers(a, b models.PointsLedger) models.PointsLedger {
	out := models.NewPointsLedger()
	for _, e := range slices.Concat(a.Earned, b.Earned) {
		if e.AchievementID != "" && out.HasAward(e.AchievementID) {
			continue
		}
		out.Award(e.Points, e.AchievementID, e.Timestamp)
	}
	return out
}
