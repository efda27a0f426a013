package models

// Metric is the progress counter an achievement requirement is measured against.
type Metric string

const (
	MetricScanCount         Metric = "scan_count"
	MetricRecyclableCount   Metric = "recyclable_count"
	MetricAverageScore      Metric = "average_score"
	MetricCategoryDiversity Metric = "category_diversity"
	MetricDailyStreak       Metric = "daily_streak"
	MetricShareCount        Metric = "share_count"
	MetricEarlyScanHour     Metric = "early_scan_hour"
	MetricLateScanHour      Metric = "late_scan_hour"
)

// AchievementCategory groups achievements for display.
type AchievementCategory string

const (
	AchievementMilestone AchievementCategory = "milestone"
	AchievementRecycling AchievementCategory = "recycling"
	AchievementScore     AchievementCategory = "score"
	AchievementDiversity AchievementCategory = "diversity"
	AchievementStreak    AchievementCategory = "streak"
	AchievementSpecial   AchievementCategory = "special"
	AchievementSocial    AchievementCategory = "social"
)

// Requirement is the single threshold an achievement must reach.
type Requirement struct {
	Metric    Metric  `json:"metric"`
	Threshold float64 `json:"threshold"`
}

// AchievementDefinition is a static catalog entry.
type AchievementDefinition struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Points      int                 `json:"points"`
	Category    AchievementCategory `json:"category"`
	Requirement Requirement         `json:"requirement"`
}

// AchievementCatalog is evaluated in slice order.
var AchievementCatalog = []AchievementDefinition{
	{
		ID:          "first_scan",
		Title:       "First Steps",
		Description: "Complete your first waste scan",
		Icon:        "camera-outline",
		Points:      50,
		Category:    AchievementMilestone,
		Requirement: Requirement{Metric: MetricScanCount, Threshold: 1},
	},
	{
		ID:          "scan_veteran",
		Title:       "Scan Veteran",
		Description: "Complete 10 waste scans",
		Icon:        "star-outline",
		Points:      200,
		Category:    AchievementMilestone,
		Requirement: Requirement{Metric: MetricScanCount, Threshold: 10},
	},
	{
		ID:          "scan_master",
		Title:       "Scan Master",
		Description: "Complete 50 waste scans",
		Icon:        "trophy-outline",
		Points:      500,
		Category:    AchievementMilestone,
		Requirement: Requirement{Metric: MetricScanCount, Threshold: 50},
	},
	{
		ID:          "eco_champion",
		Title:       "Eco Champion",
		Description: "Complete 100 waste scans",
		Icon:        "crown-outline",
		Points:      1000,
		Category:    AchievementMilestone,
		Requirement: Requirement{Metric: MetricScanCount, Threshold: 100},
	},
	{
		ID:          "recycling_rookie",
		Title:       "Recycling Rookie",
		Description: "Scan 5 recyclable items",
		Icon:        "recycle",
		Points:      100,
		Category:    AchievementRecycling,
		Requirement: Requirement{Metric: MetricRecyclableCount, Threshold: 5},
	},
	{
		ID:          "recycling_hero",
		Title:       "Recycling Hero",
		Description: "Scan 25 recyclable items",
		Icon:        "leaf-outline",
		Points:      300,
		Category:    AchievementRecycling,
		Requirement: Requirement{Metric: MetricRecyclableCount, Threshold: 25},
	},
	{
		ID:          "green_guardian",
		Title:       "Green Guardian",
		Description: "Scan 50 recyclable items",
		Icon:        "earth",
		Points:      600,
		Category:    AchievementRecycling,
		Requirement: Requirement{Metric: MetricRecyclableCount, Threshold: 50},
	},
	{
		ID:          "high_scorer",
		Title:       "High Scorer",
		Description: "Achieve an average eco score of 70+",
		Icon:        "trending-up",
		Points:      250,
		Category:    AchievementScore,
		Requirement: Requirement{Metric: MetricAverageScore, Threshold: 70},
	},
	{
		ID:          "eco_perfectionist",
		Title:       "Eco Perfectionist",
		Description: "Achieve an average eco score of 85+",
		Icon:        "medal-outline",
		Points:      400,
		Category:    AchievementScore,
		Requirement: Requirement{Metric: MetricAverageScore, Threshold: 85},
	},
	{
		ID:          "category_explorer",
		Title:       "Category Explorer",
		Description: "Scan items from 4 different categories",
		Icon:        "compass-outline",
		Points:      150,
		Category:    AchievementDiversity,
		Requirement: Requirement{Metric: MetricCategoryDiversity, Threshold: 4},
	},
	{
		ID:          "waste_detective",
		Title:       "Waste Detective",
		Description: "Scan items from all 7 waste categories",
		Icon:        "magnify",
		Points:      350,
		Category:    AchievementDiversity,
		Requirement: Requirement{Metric: MetricCategoryDiversity, Threshold: 7},
	},
	{
		ID:          "weekly_warrior",
		Title:       "Weekly Warrior",
		Description: "Scan items for 7 consecutive days",
		Icon:        "calendar-check",
		Points:      200,
		Category:    AchievementStreak,
		Requirement: Requirement{Metric: MetricDailyStreak, Threshold: 7},
	},
	{
		ID:          "consistency_king",
		Title:       "Consistency King",
		Description: "Scan items for 30 consecutive days",
		Icon:        "calendar-star",
		Points:      800,
		Category:    AchievementStreak,
		Requirement: Requirement{Metric: MetricDailyStreak, Threshold: 30},
	},
	{
		ID:          "early_bird",
		Title:       "Early Bird",
		Description: "Scan an item before 8 AM",
		Icon:        "weather-sunrise",
		Points:      75,
		Category:    AchievementSpecial,
		Requirement: Requirement{Metric: MetricEarlyScanHour, Threshold: 8},
	},
	{
		ID:          "night_owl",
		Title:       "Night Owl",
		Description: "Scan an item after 10 PM",
		Icon:        "weather-night",
		Points:      75,
		Category:    AchievementSpecial,
		Requirement: Requirement{Metric: MetricLateScanHour, Threshold: 22},
	},
	{
		ID:          "share_the_love",
		Title:       "Share the Love",
		Description: "Share your first scan result",
		Icon:        "share-variant",
		Points:      100,
		Category:    AchievementSocial,
		Requirement: Requirement{Metric: MetricShareCount, Threshold: 1},
	},
}

// FindAchievement looks up a catalog entry by id.
func FindAchievement(id string) (AchievementDefinition, bool) {
	for _, a := range AchievementCatalog {
		if a.ID == id {
			return a, true
		}
	}
	return AchievementDefinition{}, false
}
