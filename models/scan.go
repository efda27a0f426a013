package models

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the waste category assigned to a scanned item.
type Category string

const (
	CategoryPlastic     Category = "Plastic"
	CategoryPaper       Category = "Paper"
	CategoryGlass       Category = "Glass"
	CategoryMetal       Category = "Metal"
	CategoryOrganic     Category = "Organic"
	CategoryElectronic  Category = "Electronic"
	CategoryOther       Category = "Other"
	CategoryCompostable Category = "Compostable"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryPlastic,
	CategoryPaper,
	CategoryGlass,
	CategoryMetal,
	CategoryOrganic,
	CategoryElectronic,
	CategoryOther,
	CategoryCompostable,
}

// categoryAliases maps slugged classifier labels onto categories.
var categoryAliases = map[string]Category{
	"plastic":     CategoryPlastic,
	"plastics":    CategoryPlastic,
	"paper":       CategoryPaper,
	"cardboard":   CategoryPaper,
	"glass":       CategoryGlass,
	"metal":       CategoryMetal,
	"metals":      CategoryMetal,
	"aluminium":   CategoryMetal,
	"aluminum":    CategoryMetal,
	"organic":     CategoryOrganic,
	"food":        CategoryOrganic,
	"electronic":  CategoryElectronic,
	"electronics": CategoryElectronic,
	"e-waste":     CategoryElectronic,
	"other":       CategoryOther,
	"compostable": CategoryCompostable,
	"compost":     CategoryCompostable,
}

var titleCaser = cases.Title(language.English)

// ParseCategory turns free-form category text into a Category.
// Empty or unrecognised text yields CategoryOther.
func ParseCategory(raw string) Category {
	key := slug.Make(strings.TrimSpace(raw))
	if key == "" {
		return CategoryOther
	}
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	candidate := Category(titleCaser.String(key))
	for _, c := range Categories {
		if c == candidate {
			return c
		}
	}
	return CategoryOther
}

// ScanInput is the raw result of a scan, as produced by the classifier or the UI.
// Every field is optional.
type ScanInput struct {
	ItemName       string  `json:"itemName" validate:"max=200"`
	Category       string  `json:"category" validate:"max=64"`
	IsRecyclable   bool    `json:"isRecyclable"`
	EcoScore       int     `json:"ecoScore"`
	Confidence     float64 `json:"confidence"`
	DisposalMethod string  `json:"disposalMethod" validate:"max=500"`
	Material       string  `json:"material" validate:"max=100"`
}

// ScanRecord is one stored scan. Records are never mutated after creation.
type ScanRecord struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	ItemName       string    `json:"itemName"`
	Category       Category  `json:"category"`
	IsRecyclable   bool      `json:"isRecyclable"`
	EcoScore       int       `json:"ecoScore"`
	Confidence     float64   `json:"confidence"`
	DisposalMethod string    `json:"disposalMethod"`
	Material       string    `json:"material,omitempty"`
	ImageRef       *string   `json:"imageUri"`
}

// ScanHistory is the persisted, newest-first list of scans for a namespace.
type ScanHistory struct {
	SchemaVersion int          `json:"schemaVersion"`
	Records       []ScanRecord `json:"records"`
}
