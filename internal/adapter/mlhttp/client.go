// Package mlhttp implements domain.Predictor against a remote inference
// service speaking a small JSON-over-HTTP contract.
package mlhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zonewatch/riskcore/internal/domain"
)

// Client calls the inference service once per zone per cycle.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a prediction client. The timeout bounds a single request;
// callers additionally pass per-zone deadline contexts.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Predict requests flood and heat probabilities for one zone. A hazard the
// service omits from its response stays nil, signalling composite-only fusion
// for that hazard.
func (c *Client) Predict(ctx context.Context, zone domain.Zone, obs *domain.HazardObservation) (domain.PredictionSet, error) {
	payload := predictRequest{
		ZoneID:      zone.ID,
		Zone:        zone,
		Observation: obs,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.PredictionSet{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.PredictionSet{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PredictionSet{}, fmt.Errorf("predict request for zone %s: %w", zone.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return domain.PredictionSet{}, fmt.Errorf("inference API error: status %d: %s", resp.StatusCode, b)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return domain.PredictionSet{}, fmt.Errorf("decode response: %w", err)
	}

	set := domain.PredictionSet{Flood: pr.Flood, Heat: pr.Heat}
	if err := validatePrediction(set.Flood); err != nil {
		return domain.PredictionSet{}, fmt.Errorf("flood prediction for zone %s: %w", zone.ID, err)
	}
	if err := validatePrediction(set.Heat); err != nil {
		return domain.PredictionSet{}, fmt.Errorf("heat prediction for zone %s: %w", zone.ID, err)
	}
	return set, nil
}

func validatePrediction(p *domain.MLPrediction) error {
	if p == nil {
		return nil
	}
	if p.Probability < 0 || p.Probability > 1 {
		return fmt.Errorf("probability %v out of range", p.Probability)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", p.Confidence)
	}
	return nil
}

// Inference service wire types.

type predictRequest struct {
	ZoneID      string                    `json:"zone_id"`
	Zone        domain.Zone               `json:"zone"`
	Observation *domain.HazardObservation `json:"observation,omitempty"`
}

type predictResponse struct {
	Flood *domain.MLPrediction `json:"flood,omitempty"`
	Heat  *domain.MLPrediction `json:"heat,omitempty"`
}
