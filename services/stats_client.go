package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"ecoecho-core/models"
	"ecoecho-core/utils"
)

const statsServiceName = "stats service"

// StatsClient talks to the backend's /stats/user endpoint.
type StatsClient struct {
	BaseURL string
	Client  *http.Client
}

func NewStatsClient(baseURL string, client *http.Client) *StatsClient {
	if client == nil {
		client = utils.NewHTTPClient(0)
	}
	return &StatsClient{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// statsEnvelope accepts {stats:{...}}, {data:{...}} or the bare object.
type statsEnvelope struct {
	Stats *models.ServerUserStats `json:"stats"`
	Data  *models.ServerUserStats `json:"data"`
	models.ServerUserStats
}

// FetchUserStats returns the server's stats for the token's user.
func (c *StatsClient) FetchUserStats(ctx context.Context, token string) (*models.ServerUserStats, error) {
	url := fmt.Sprintf("%s/stats/user", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var env statsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &NetworkError{Service: statsServiceName, Err: fmt.Errorf("decode stats: %w", err)}
	}
	switch {
	case env.Stats != nil:
		return env.Stats, nil
	case env.Data != nil:
		return env.Data, nil
	default:
		out := env.ServerUserStats
		return &out, nil
	}
}

// PushUserStats replaces the server's stats with reconciled values.
func (c *StatsClient) PushUserStats(ctx context.Context, token string, stats models.ServerUserStats) error {
	url := fmt.Sprintf("%s/stats/user", c.BaseURL)
	jsonData, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = c.do(req)
	return err
}

func (c *StatsClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, &NetworkError{Service: statsServiceName, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[RECONCILE] %s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
		return nil, &NetworkError{Service: statsServiceName, StatusCode: resp.StatusCode}
	}
	return body, nil
}
