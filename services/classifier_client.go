package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"ecoecho-core/models"
	"ecoecho-core/utils"
)

const classifierServiceName = "classifier"

// Classification is the classifier's answer for one image.
type Classification struct {
	ClassName            string  `json:"class_name"`
	Category             string  `json:"category"`
	Confidence           float64 `json:"confidence"`
	Recyclable           bool    `json:"recyclable"`
	EcoScore             float64 `json:"eco_score"`
	DisposalInstructions string  `json:"disposal_instructions"`
	EnvironmentalImpact  string  `json:"environmental_impact"`
}

// ToScanInput maps a classification onto raw scan input. Confidence arrives
// as a percentage.
func (c Classification) ToScanInput() models.ScanInput {
	confidence := c.Confidence
	if confidence > 1 {
		confidence = confidence / 100
	}
	return models.ScanInput{
		ItemName:       c.ClassName,
		Category:       string(StandardizeCategory(c.Category, c.ClassName)),
		IsRecyclable:   c.Recyclable,
		EcoScore:       int(c.EcoScore + 0.5),
		Confidence:     confidence,
		DisposalMethod: c.DisposalInstructions,
		Material:       c.ClassName,
	}
}

var materialCategories = []struct {
	category models.Category
	needles  []string
}{
	{models.CategoryOrganic, []string{"food", "coffee", "egg", "tea"}},
	{models.CategoryPlastic, []string{"plastic", "styrofoam"}},
	{models.CategoryPaper, []string{"paper", "cardboard", "magazine", "newspaper"}},
	{models.CategoryGlass, []string{"glass"}},
	{models.CategoryMetal, []string{"metal", "aluminum", "steel", "aerosol"}},
	{models.CategoryElectronic, []string{"battery", "electronic", "phone", "cable"}},
}

// StandardizeCategory maps the model's coarse category and material label
// onto a display category.
func StandardizeCategory(category, material string) models.Category {
	category = strings.ToLower(strings.TrimSpace(category))
	material = strings.ToLower(material)
	if category == "compostable" {
		return models.CategoryOrganic
	}
	for _, mc := range materialCategories {
		for _, n := range mc.needles {
			if strings.Contains(material, n) {
				return mc.category
			}
		}
	}
	return models.ParseCategory(category)
}

// ClassifierClient posts images to the waste classifier.
type ClassifierClient struct {
	BaseURL string
	Client  *http.Client
}

func NewClassifierClient(baseURL string, client *http.Client) *ClassifierClient {
	if client == nil {
		client = utils.NewHTTPClient(0)
	}
	return &ClassifierClient{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// Classify uploads one image as the multipart field "image".
func (c *ClassifierClient) Classify(ctx context.Context, filename string, image []byte) (*Classification, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/predict", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, &NetworkError{Service: classifierServiceName, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("[CLASSIFIER] /predict returned %d: %s", resp.StatusCode, string(body))
		return nil, &NetworkError{Service: classifierServiceName, StatusCode: resp.StatusCode}
	}

	var out Classification
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &NetworkError{Service: classifierServiceName, Err: fmt.Errorf("decode prediction: %w", err)}
	}
	return &out, nil
}
