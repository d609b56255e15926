package ledgerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace-systems/chaintrace-stack/common/config"
)

func newTestClient(url string) *Client {
	return New(config.LedgerConfig{URL: url, Timeout: 2 * time.Second})
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/ledger/submit", r.URL.Path)

		var req submitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abc123", req.Digest)
		assert.NotEmpty(t, req.Signature)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(submitResponse{TxRef: "tx-0001"})
	}))
	defer srv.Close()

	txRef, err := newTestClient(srv.URL).Submit(context.Background(), "abc123", "sig")
	require.NoError(t, err)
	assert.Equal(t, "tx-0001", txRef)
}

func TestSubmitGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "ledger unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), "abc123", "sig")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSubmitEmptyTxRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(submitResponse{})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), "abc123", "sig")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/ledger/status/tx-0001", r.URL.Path)
		json.NewEncoder(w).Encode(TxStatus{
			TxRef:          "tx-0001",
			BlockRef:       "block-99",
			Confirmations:  3,
			ConsensusRatio: 0.86,
		})
	}))
	defer srv.Close()

	st, err := newTestClient(srv.URL).Status(context.Background(), "tx-0001")
	require.NoError(t, err)
	assert.Equal(t, "block-99", st.BlockRef)
	assert.Equal(t, 3, st.Confirmations)
	assert.InDelta(t, 0.86, st.ConsensusRatio, 1e-9)
}

func TestStatusUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unknown tx", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Status(context.Background(), "tx-gone")
	assert.Error(t, err)
}
