package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// AnchorClient talks to the ledger anchoring service.
type AnchorClient struct {
	baseURL string
	client  *http.Client
}

func NewAnchorClient(baseURL string) *AnchorClient {
	return &AnchorClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// GetAnchor fetches the ledger anchor state for an anomaly.
func (c *AnchorClient) GetAnchor(anomalyID string) (*models.LedgerAnchor, error) {
	resp, err := c.client.Get(c.baseURL + "/api/v1/anchors/" + anomalyID)
	if err != nil {
		return nil, fmt.Errorf("get anchor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var anchor models.LedgerAnchor
	if err := json.NewDecoder(resp.Body).Decode(&anchor); err != nil {
		return nil, fmt.Errorf("decode anchor: %w", err)
	}
	return &anchor, nil
}
