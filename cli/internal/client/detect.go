package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// TelemetrySubmission is the detect service's submission payload.
type TelemetrySubmission struct {
	RecordID string         `json:"record_id,omitempty"`
	OrgID    string         `json:"org_id"`
	DataType string         `json:"data_type"`
	Fields   map[string]any `json:"fields"`
	Source   string         `json:"source,omitempty"`
	Version  int            `json:"version,omitempty"`
}

// AnomalyList is the detect service's query response.
type AnomalyList struct {
	Records []models.AnomalyRecord `json:"records"`
	Total   int                    `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

// AnomalyFilter holds the query parameters for listing anomalies.
type AnomalyFilter struct {
	OrgID       string
	DataType    string
	MinSeverity string
	From        string
	To          string
	Limit       int
	Offset      int
}

// DetectClient talks to the detection service.
type DetectClient struct {
	baseURL string
	client  *http.Client
}

func NewDetectClient(baseURL string) *DetectClient {
	return &DetectClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit sends one telemetry record and returns the stored anomaly record.
func (c *DetectClient) Submit(sub *TelemetrySubmission) (*models.AnomalyRecord, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/telemetry", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ctrace/0.1.0")
	req.Header.Set("X-Chaintrace-Source", "cli")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var rec models.AnomalyRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode anomaly record: %w", err)
	}
	return &rec, nil
}

// ListAnomalies queries stored anomaly records.
func (c *DetectClient) ListAnomalies(f AnomalyFilter) (*AnomalyList, error) {
	q := url.Values{}
	if f.OrgID != "" {
		q.Set("org", f.OrgID)
	}
	if f.DataType != "" {
		q.Set("data_type", f.DataType)
	}
	if f.MinSeverity != "" {
		q.Set("min_severity", f.MinSeverity)
	}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", f.Offset))
	}

	u := c.baseURL + "/api/v1/anomalies"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	resp, err := c.client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var list AnomalyList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode anomaly list: %w", err)
	}
	return &list, nil
}

// GetAnomaly fetches one anomaly record by ID.
func (c *DetectClient) GetAnomaly(id string) (*models.AnomalyRecord, error) {
	resp, err := c.client.Get(c.baseURL + "/api/v1/anomalies/" + id)
	if err != nil {
		return nil, fmt.Errorf("get anomaly: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var rec models.AnomalyRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode anomaly record: %w", err)
	}
	return &rec, nil
}
