// Package ledgerclient talks to the external ledger gateway that anchors
// verdict digests. The gateway owns consensus; this client only submits
// digests and polls transaction status.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/config"
)

// TxStatus is the ledger's view of one anchoring transaction.
type TxStatus struct {
	TxRef          string  `json:"tx_ref"`
	BlockRef       string  `json:"block_ref,omitempty"`
	Confirmations  int     `json:"confirmations"`
	ConsensusRatio float64 `json:"consensus_ratio"`
}

// Ledger is the gateway surface the anchor service depends on.
type Ledger interface {
	// Submit anchors a signed digest and returns the transaction reference.
	Submit(ctx context.Context, digest, signature string) (string, error)
	// Status polls confirmation progress for a submitted transaction.
	Status(ctx context.Context, txRef string) (*TxStatus, error)
}

// Client is the HTTP implementation of Ledger.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(cfg config.LedgerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
}

type submitResponse struct {
	TxRef string `json:"tx_ref"`
}

func (c *Client) Submit(ctx context.Context, digest, signature string) (string, error) {
	body, err := json.Marshal(submitRequest{Digest: digest, Signature: signature})
	if err != nil {
		return "", fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/ledger/submit", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ledger submit returned %d: %s", resp.StatusCode, string(b))
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if sr.TxRef == "" {
		return "", fmt.Errorf("ledger submit returned empty tx_ref")
	}
	return sr.TxRef, nil
}

func (c *Client) Status(ctx context.Context, txRef string) (*TxStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/ledger/status/"+txRef, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ledger status returned %d: %s", resp.StatusCode, string(b))
	}

	var st TxStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &st, nil
}
