// Package client provides HTTP clients for the ChainTrace services, used by
// the ctrace CLI.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// apiError is the error envelope every ChainTrace service writes.
type apiError struct {
	Error string `json:"error"`
}

// decodeError turns a non-2xx response into a readable error.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode)
	}
	return fmt.Errorf("request failed with HTTP %d", resp.StatusCode)
}
