package services

import (
	"math"

	"ecoecho-core/models"
)

const (
	// A per-item average above this many "kilograms" means the source sent grams.
	gramsPerItemThreshold = 10.0

	estimatedKgPerItem = 0.1
	co2KgPerRecyclable = 0.5
	treeCO2KgPerYear   = 20.0
)

var co2BonusByCategory = map[models.Category]float64{
	models.CategoryPlastic: 0.3,
	models.CategoryPaper:   0.2,
}

// NormalizeWeight returns raw in kilograms. Values whose per-item average is
// implausibly high for kilograms are treated as grams.
func NormalizeWeight(raw float64, itemCount int) float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw <= 0 {
		return 0
	}
	if itemCount > 0 && raw > float64(itemCount)*gramsPerItemThreshold {
		raw = raw / 1000
	}
	return round1(raw)
}

// EstimateWeightKg is the fallback weight when no source reports one.
func EstimateWeightKg(items int) float64 {
	if items <= 0 {
		return 0
	}
	return round1(float64(items) * estimatedKgPerItem)
}

// EstimateCO2SavedKg derives carbon savings from recyclable counts and the
// per-category scan breakdown.
func EstimateCO2SavedKg(recyclable int, byCategory map[string]int) float64 {
	total := float64(max(recyclable, 0)) * co2KgPerRecyclable
	for cat, bonus := range co2BonusByCategory {
		total += float64(max(byCategory[string(cat)], 0)) * bonus
	}
	return round1(total)
}

// TreesEquivalent converts kilograms of CO2 into trees' yearly absorption.
func TreesEquivalent(co2Kg float64) float64 {
	if co2Kg <= 0 {
		return 0
	}
	return round1(co2Kg / treeCO2KgPerYear)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
