package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/observability"
	"ecoecho-core/store"

	"github.com/google/uuid"
)

const (
	// MaxHistoryRecords is how many scans a namespace keeps.
	MaxHistoryRecords = 100

	DefaultHistoryLimit = 10
	defaultDisposal     = "Unknown"
)

// HistoryService appends scans to the on-device history and keeps the
// local aggregate in step with it.
type HistoryService struct {
	Repo  *store.Repository
	Locks *NamespaceLocks
	Now   func() time.Time
}

func NewHistoryService(repo *store.Repository, locks *NamespaceLocks) *HistoryService {
	return &HistoryService{Repo: repo, Locks: locks, Now: time.Now}
}

// RecordScan stores one scan and updates the aggregate. Both documents are
// read before either is written; if the aggregate cannot be saved the
// previous history is put back so the two never disagree.
func (s *HistoryService) RecordScan(ctx context.Context, ns store.Namespace, input models.ScanInput, imageRef string) (models.ScanRecord, error) {
	record, err := s.newRecord(input, imageRef)
	if err != nil {
		return models.ScanRecord{}, err
	}

	unlock := s.Locks.Lock(ns)
	defer unlock()

	history, err := s.Repo.History(ctx, ns)
	if err != nil {
		return models.ScanRecord{}, err
	}
	stats, err := s.Repo.Aggregate(ctx, ns)
	if err != nil {
		log.Printf("[HISTORY] unreadable aggregate for %s, starting over: %v", ns, err)
		stats = models.NewLocalAggregateStats()
	}

	previous := history.Records
	history.Records = append([]models.ScanRecord{record}, previous...)
	if len(history.Records) > MaxHistoryRecords {
		history.Records = history.Records[:MaxHistoryRecords]
	}
	applyScan(&stats, record)

	if err := s.Repo.SaveHistory(ctx, ns, history); err != nil {
		return models.ScanRecord{}, err
	}
	if err := s.Repo.SaveAggregate(ctx, ns, stats); err != nil {
		history.Records = previous
		if rerr := s.Repo.SaveHistory(ctx, ns, history); rerr != nil {
			log.Printf("[HISTORY] ❌ could not restore history for %s: %v", ns, rerr)
			return models.ScanRecord{}, errors.Join(err, rerr)
		}
		return models.ScanRecord{}, err
	}

	observability.RecordScan()
	log.Printf("[HISTORY] saved scan %s (%s) for %s", record.ID, record.Category, ns)
	return record, nil
}

// History returns up to limit records, newest first.
func (s *HistoryService) History(ctx context.Context, ns store.Namespace, limit int) ([]models.ScanRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	history, err := s.Repo.History(ctx, ns)
	if err != nil {
		return nil, err
	}
	if len(history.Records) > limit {
		return history.Records[:limit], nil
	}
	return history.Records, nil
}

// LocalStats never fails; a missing or unreadable aggregate reads as zero.
func (s *HistoryService) LocalStats(ctx context.Context, ns store.Namespace) models.LocalAggregateStats {
	stats, err := s.Repo.Aggregate(ctx, ns)
	if err != nil {
		log.Printf("[HISTORY] failed to read local stats for %s: %v", ns, err)
		return models.NewLocalAggregateStats()
	}
	return stats
}

func (s *HistoryService) newRecord(input models.ScanInput, imageRef string) (models.ScanRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return models.ScanRecord{}, err
	}
	disposal := strings.TrimSpace(input.DisposalMethod)
	if disposal == "" {
		disposal = defaultDisposal
	}
	record := models.ScanRecord{
		ID:             id.String(),
		Timestamp:      s.Now().UTC(),
		ItemName:       strings.TrimSpace(input.ItemName),
		Category:       models.ParseCategory(input.Category),
		IsRecyclable:   input.IsRecyclable,
		EcoScore:       models.ClampEcoScore(input.EcoScore),
		Confidence:     models.ClampConfidence(input.Confidence),
		DisposalMethod: disposal,
		Material:       strings.ToLower(strings.TrimSpace(input.Material)),
	}
	if ref := strings.TrimSpace(imageRef); ref != "" {
		record.ImageRef = &ref
	}
	return record, nil
}

func applyScan(stats *models.LocalAggregateStats, record models.ScanRecord) {
	stats.TotalItemsScanned++
	if record.IsRecyclable {
		stats.RecyclableItemsCount++
	}
	stats.TotalEcoScore += float64(record.EcoScore)
	stats.RecomputeAverage()
	stats.ScansByCategory[string(record.Category)]++
	if record.Material != "" {
		stats.ScansByMaterial[record.Material]++
	}
	updated := record.Timestamp
	stats.LastUpdated = &updated
}
