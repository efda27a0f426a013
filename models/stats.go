package models

import "time"

// CurrentSchemaVersion is stamped on every document this service writes.
// Documents with version 0 were written by the legacy mobile client.
const CurrentSchemaVersion = 1

// LocalAggregateStats is the on-device aggregate derived from scan history.
type LocalAggregateStats struct {
	SchemaVersion        int            `json:"schemaVersion"`
	TotalItemsScanned    int            `json:"totalItemsScanned"`
	RecyclableItemsCount int            `json:"recyclableItemsCount"`
	TotalEcoScore        float64        `json:"totalEcoScore"`
	AverageEcoScore      float64        `json:"averageEcoScore"`
	ScansByCategory      map[string]int `json:"scansByCategory"`
	ScansByMaterial      map[string]int `json:"scansByMaterial"`
	LastUpdated          *time.Time     `json:"lastUpdated"`
}

// NewLocalAggregateStats returns an empty aggregate.
func NewLocalAggregateStats() LocalAggregateStats {
	return LocalAggregateStats{
		SchemaVersion:   CurrentSchemaVersion,
		ScansByCategory: map[string]int{},
		ScansByMaterial: map[string]int{},
	}
}

// RecomputeAverage keeps AverageEcoScore equal to TotalEcoScore/TotalItemsScanned.
func (s *LocalAggregateStats) RecomputeAverage() {
	if s.TotalItemsScanned > 0 {
		s.AverageEcoScore = s.TotalEcoScore / float64(s.TotalItemsScanned)
		return
	}
	s.AverageEcoScore = 0
}

// Upgrade fills the defaults a legacy document may be missing.
func (s *LocalAggregateStats) Upgrade() {
	if s.ScansByCategory == nil {
		s.ScansByCategory = map[string]int{}
	}
	if s.ScansByMaterial == nil {
		s.ScansByMaterial = map[string]int{}
	}
	if s.TotalItemsScanned < 0 {
		s.TotalItemsScanned = 0
	}
	if s.RecyclableItemsCount < 0 {
		s.RecyclableItemsCount = 0
	}
	s.RecomputeAverage()
	s.SchemaVersion = CurrentSchemaVersion
}

// ServerUserStats is the stats record owned by the EcoEcho backend.
// TotalWeight may be reported in grams or kilograms.
type ServerUserStats struct {
	SchemaVersion    int        `json:"schemaVersion,omitempty"`
	TotalItems       int        `json:"totalItems"`
	TotalWeight      float64    `json:"totalWeight"`
	TotalCarbonSaved float64    `json:"totalCarbonSaved"`
	RecyclableItems  int        `json:"recyclableItems"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`
}

// StatsSnapshot is one source's view of the user's totals, fed to reconciliation.
// Zero values mean "not reported".
type StatsSnapshot struct {
	Source           string
	TotalItems       int
	TotalWeight      float64
	TotalCarbonSaved float64
	RecyclableItems  int
	ScansByCategory  map[string]int
}

// SnapshotFromServer adapts a server stats record.
func SnapshotFromServer(source string, s *ServerUserStats) StatsSnapshot {
	if s == nil {
		return StatsSnapshot{Source: source}
	}
	return StatsSnapshot{
		Source:           source,
		TotalItems:       s.TotalItems,
		TotalWeight:      s.TotalWeight,
		TotalCarbonSaved: s.TotalCarbonSaved,
		RecyclableItems:  s.RecyclableItems,
	}
}

// ReconciledStats is the merged view across local, server and profile sources.
type ReconciledStats struct {
	TotalItems      int       `json:"totalItems"`
	TotalWeightKg   float64   `json:"totalWeightKg"`
	CO2SavedKg      float64   `json:"co2SavedKg"`
	RecyclableItems int       `json:"recyclableItems"`
	TreesEquivalent float64   `json:"treesEquivalent"`
	ComputedAt      time.Time `json:"computedAt"`
}

// ToServerStats shapes reconciled values for the backend's PUT /stats/user.
// The schema version is left unset; only the stored profile copy carries one.
func (r ReconciledStats) ToServerStats() ServerUserStats {
	updated := r.ComputedAt
	return ServerUserStats{
		TotalItems:       r.TotalItems,
		TotalWeight:      r.TotalWeightKg,
		TotalCarbonSaved: r.CO2SavedKg,
		RecyclableItems:  r.RecyclableItems,
		LastUpdated:      &updated,
	}
}
