package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"ecoecho-core/models"
	"ecoecho-core/store"

	"github.com/google/uuid"
)

// ImageStore keeps scan images and returns a reference to them.
type ImageStore interface {
	SaveImage(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Classifier labels a waste image.
type Classifier interface {
	Classify(ctx context.Context, filename string, image []byte) (*Classification, error)
}

// ErrClassifierDisabled is returned when an image scan arrives without a
// configured classifier.
var ErrClassifierDisabled = errors.New("classifier not configured")

// ScanOutcome is everything one recorded scan produced.
type ScanOutcome struct {
	Scan            models.ScanRecord              `json:"scan"`
	NewAchievements []models.AchievementDefinition `json:"newAchievements"`
	Stats           *models.ReconciledStats        `json:"stats,omitempty"`
	Classification  *Classification                `json:"classification,omitempty"`
}

// ScanService records a scan, then lets achievements and reconciliation
// catch up. Only the history write can fail the scan.
type ScanService struct {
	History      *HistoryService
	Achievements *AchievementService
	Reconciler   *ReconcilerService
	Images       ImageStore
	Classifier   Classifier
}

func NewScanService(history *HistoryService, achievements *AchievementService, reconciler *ReconcilerService, images ImageStore, classifier Classifier) *ScanService {
	return &ScanService{
		History:      history,
		Achievements: achievements,
		Reconciler:   reconciler,
		Images:       images,
		Classifier:   classifier,
	}
}

// Record saves input for the session and updates everything derived from it.
func (s *ScanService) Record(ctx context.Context, session models.Session, input models.ScanInput, imageRef string) (ScanOutcome, error) {
	ns := store.ForUser(session.UserID)

	record, err := s.History.RecordScan(ctx, ns, input, imageRef)
	if err != nil {
		return ScanOutcome{}, err
	}
	out := ScanOutcome{Scan: record, NewAchievements: []models.AchievementDefinition{}}

	if s.Achievements != nil {
		unlocked, err := s.Achievements.RecordScanProgress(ctx, ns, record)
		if err != nil {
			log.Printf("[SCAN] achievements not updated for %s: %v", ns, err)
		} else if len(unlocked) > 0 {
			out.NewAchievements = unlocked
		}
	}

	if s.Reconciler != nil {
		stats, err := s.Reconciler.Refresh(ctx, session)
		if err != nil {
			log.Printf("[SCAN] stats refresh incomplete for %s: %v", ns, err)
		}
		out.Stats = &stats
	}
	return out, nil
}

// RecordImage stores and classifies an image, then records the result.
// An image that cannot be stored is still classified and recorded.
func (s *ScanService) RecordImage(ctx context.Context, session models.Session, filename, contentType string, image []byte) (ScanOutcome, error) {
	if s.Classifier == nil {
		return ScanOutcome{}, ErrClassifierDisabled
	}
	ns := store.ForUser(session.UserID)

	var imageRef string
	if s.Images != nil {
		key := imageKey(ns, filename)
		ref, err := s.Images.SaveImage(ctx, key, contentType, image)
		if err != nil {
			log.Printf("[SCAN] ⚠️ image not stored for %s: %v", ns, err)
		} else {
			imageRef = ref
		}
	}

	classification, err := s.Classifier.Classify(ctx, filename, image)
	if err != nil {
		return ScanOutcome{}, fmt.Errorf("classify image: %w", err)
	}

	out, err := s.Record(ctx, session, classification.ToScanInput(), imageRef)
	if err != nil {
		return ScanOutcome{}, err
	}
	out.Classification = classification
	return out, nil
}

// Share counts a share of the user's results.
func (s *ScanService) Share(ctx context.Context, session models.Session) ([]models.AchievementDefinition, error) {
	unlocked, err := s.Achievements.RecordShare(ctx, store.ForUser(session.UserID))
	if err != nil {
		return nil, err
	}
	if unlocked == nil {
		unlocked = []models.AchievementDefinition{}
	}
	return unlocked, nil
}

func imageKey(ns store.Namespace, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	owner := "anonymous"
	if !ns.IsAnonymous() {
		owner = ns.UserID
	}
	return fmt.Sprintf("scans/%s/%s%s", owner, uuid.NewString(), ext)
}
