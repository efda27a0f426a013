package services

import (
	"context"
	"log"
	"slices"

	"ecoecho-core/models"
	"ecoecho-core/store"
)

// PointsPerLevel is the flat number of points between two levels.
const PointsPerLevel = 1000

// levelFor returns the level reached with total points; everyone starts at 1.
func levelFor(total int) int {
	if total < 0 {
		total = 0
	}
	return total/PointsPerLevel + 1
}

// pointsToNextLevel returns the points still needed to leave the current level.
func pointsToNextLevel(total int) int {
	if total < 0 {
		total = 0
	}
	return levelFor(total)*PointsPerLevel - total
}

// ProgressSummary is the level view shown on the profile.
type ProgressSummary struct {
	Progress        models.UserProgress `json:"progress"`
	Points          models.PointsLedger `json:"points"`
	Level           int                 `json:"level"`
	NextLevelPoints int                 `json:"nextLevelPoints"`
}

// PointsPage is one page of the ledger, newest first.
type PointsPage struct {
	Entries    []models.PointAward `json:"entries"`
	Page       int                 `json:"page"`
	Size       int                 `json:"size"`
	TotalItems int                 `json:"total_items"`
	TotalPages int                 `json:"total_pages"`
	Total      int                 `json:"total"`
}

type ProgressionService struct {
	Repo *store.Repository
}

func NewProgressionService(repo *store.Repository) *ProgressionService {
	return &ProgressionService{Repo: repo}
}

// GetProgress never fails: unreadable documents read as empty, level 1.
func (s *ProgressionService) GetProgress(ctx context.Context, ns store.Namespace) ProgressSummary {
	progress, _, err := s.Repo.Progress(ctx, ns)
	if err != nil {
		log.Printf("[PROGRESSION] failed to read progress for %s: %v", ns, err)
		progress = models.NewUserProgress()
	}
	ledger, err := s.Repo.Points(ctx, ns)
	if err != nil {
		log.Printf("[PROGRESSION] failed to read points for %s: %v", ns, err)
		ledger = models.NewPointsLedger()
	}
	return ProgressSummary{
		Progress:        progress,
		Points:          ledger,
		Level:           levelFor(ledger.Total),
		NextLevelPoints: pointsToNextLevel(ledger.Total),
	}
}

// GetPointsHistory returns paginated ledger entries, newest first.
func (s *ProgressionService) GetPointsHistory(ctx context.Context, ns store.Namespace, page, size int) (PointsPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	ledger, err := s.Repo.Points(ctx, ns)
	if err != nil {
		return PointsPage{}, err
	}

	entries := slices.Clone(ledger.Earned)
	slices.Reverse(entries)

	totalItems := len(entries)
	totalPages := (totalItems + size - 1) / size
	offset := min((page-1)*size, totalItems)
	end := min(offset+size, totalItems)

	return PointsPage{
		Entries:    entries[offset:end],
		Page:       page,
		Size:       size,
		TotalItems: totalItems,
		TotalPages: totalPages,
		Total:      ledger.Total,
	}, nil
}
