package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// ExplainClient talks to the explanation service.
type ExplainClient struct {
	baseURL string
	client  *http.Client
}

func NewExplainClient(baseURL string) *ExplainClient {
	return &ExplainClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// GetExplanation fetches the per-feature attribution for an anomaly.
func (c *ExplainClient) GetExplanation(anomalyID string) (*models.Explanation, error) {
	resp, err := c.client.Get(c.baseURL + "/api/v1/explanations/" + anomalyID)
	if err != nil {
		return nil, fmt.Errorf("get explanation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var exp models.Explanation
	if err := json.NewDecoder(resp.Body).Decode(&exp); err != nil {
		return nil, fmt.Errorf("decode explanation: %w", err)
	}
	return &exp, nil
}
