package models

import (
	"slices"
	"time"
)

// UserProgress tracks the achievement counters for one namespace.
type UserProgress struct {
	SchemaVersion int `json:"schemaVersion"`

	// Activity counters
	ScanCount         int        `json:"scanCount"`
	RecyclableCount   int        `json:"recyclableCount"`
	TotalEcoScore     float64    `json:"totalEcoScore"`
	CategoriesScanned []string   `json:"categoriesScanned"`
	DailyStreak       int        `json:"dailyStreak"`
	LastScanDate      *time.Time `json:"lastScanDate"`
	ShareCount        int        `json:"shareCount"`

	// Unlocked achievement ids, in unlock order. Never shrinks.
	UnlockedAchievements []string `json:"unlockedAchievements"`
}

// NewUserProgress returns all-zero progress.
func NewUserProgress() UserProgress {
	return UserProgress{
		SchemaVersion:        CurrentSchemaVersion,
		CategoriesScanned:    []string{},
		UnlockedAchievements: []string{},
	}
}

// AverageEcoScore is 0 until the first scan.
func (p *UserProgress) AverageEcoScore() float64 {
	if p.ScanCount == 0 {
		return 0
	}
	return p.TotalEcoScore / float64(p.ScanCount)
}

// AddCategory records a category once.
func (p *UserProgress) AddCategory(category string) {
	if category == "" || slices.Contains(p.CategoriesScanned, category) {
		return
	}
	p.CategoriesScanned = append(p.CategoriesScanned, category)
}

// IsUnlocked reports whether the achievement id has been unlocked.
func (p *UserProgress) IsUnlocked(id string) bool {
	return slices.Contains(p.UnlockedAchievements, id)
}

// Unlock adds id to the unlocked set and reports whether it was new.
func (p *UserProgress) Unlock(id string) bool {
	if p.IsUnlocked(id) {
		return false
	}
	p.UnlockedAchievements = append(p.UnlockedAchievements, id)
	return true
}

// Upgrade fills the defaults a legacy document may be missing and drops
// duplicate set entries.
func (p *UserProgress) Upgrade() {
	p.CategoriesScanned = dedupe(p.CategoriesScanned)
	p.UnlockedAchievements = dedupe(p.UnlockedAchievements)
	p.SchemaVersion = CurrentSchemaVersion
}

// PointAward is one ledger entry.
type PointAward struct {
	Points        int       `json:"points"`
	AchievementID string    `json:"achievementId"`
	Timestamp     time.Time `json:"timestamp"`
}

// PointsLedger is the append-only record of points earned.
type PointsLedger struct {
	SchemaVersion int          `json:"schemaVersion"`
	Total         int          `json:"total"`
	Earned        []PointAward `json:"earned"`
}

// NewPointsLedger returns an empty ledger.
func NewPointsLedger() PointsLedger {
	return PointsLedger{SchemaVersion: CurrentSchemaVersion, Earned: []PointAward{}}
}

// Award appends an entry and bumps the running total.
func (l *PointsLedger) Award(points int, achievementID string, at time.Time) {
	l.Total += points
	l.Earned = append(l.Earned, PointAward{Points: points, AchievementID: achievementID, Timestamp: at})
}

// HasAward reports whether an entry exists for the achievement id.
func (l *PointsLedger) HasAward(achievementID string) bool {
	for _, e := range l.Earned {
		if e.AchievementID == achievementID {
			return true
		}
	}
	return false
}

// Upgrade fills defaults and makes Total agree with the entries.
func (l *PointsLedger) Upgrade() {
	if l.Earned == nil {
		l.Earned = []PointAward{}
	}
	total := 0
	for _, e := range l.Earned {
		total += e.Points
	}
	l.Total = total
	l.SchemaVersion = CurrentSchemaVersion
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
