// Package privacy talks to the privacy codec collaborator, which owns payload
// integrity verification. The detection pipeline only consumes its verdicts.
package privacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Verifier checks a submitted payload against its integrity digest.
type Verifier interface {
	VerifyIntegrity(ctx context.Context, payload []byte, digest string) (bool, error)
}

// Client is the HTTP privacy codec client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type verifyRequest struct {
	Payload []byte `json:"payload"`
	Digest  string `json:"digest"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// VerifyIntegrity returns whether the codec accepts the payload/digest pair.
// Transport failures are errors, not rejections, so callers can distinguish
// a tampered record from an unreachable codec.
func (c *Client) VerifyIntegrity(ctx context.Context, payload []byte, digest string) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("privacy client not configured")
	}

	bodyBytes, err := json.Marshal(verifyRequest{Payload: payload, Digest: digest})
	if err != nil {
		return false, fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/codec/verify", bytes.NewReader(bodyBytes))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("codec returned status %d", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return result.Valid, nil
}

// NoopVerifier accepts everything; used when the codec integration is
// disabled in config.
type NoopVerifier struct{}

func (NoopVerifier) VerifyIntegrity(context.Context, []byte, string) (bool, error) {
	return true, nil
}
