// Package digest produces tamper-evident digests of anomaly verdicts for
// ledger anchoring and HMAC signatures for stored-record integrity checks.
package digest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// verdictDigest is the canonical subset of an anomaly record that gets
// anchored. Field order is fixed by the struct so the digest is stable.
type verdictDigest struct {
	AnomalyID  string          `json:"anomaly_id"`
	RecordID   string          `json:"record_id"`
	Version    int             `json:"version"`
	OrgID      string          `json:"org_id"`
	Confidence float64         `json:"confidence"`
	Severity   models.Severity `json:"severity"`
	CreatedAt  string          `json:"created_at"`
}

// Record computes the sha256 digest of the canonical verdict fields of an
// anomaly record. The raw record never leaves the pipeline; only this digest
// is submitted to the ledger collaborator.
func Record(rec *models.AnomalyRecord) (string, error) {
	canonical := verdictDigest{
		AnomalyID:  rec.ID,
		RecordID:   rec.Verdict.RecordID,
		Version:    rec.Verdict.Version,
		OrgID:      rec.OrgID,
		Confidence: rec.Verdict.Confidence,
		Severity:   rec.Verdict.Severity,
		CreatedAt:  rec.Verdict.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
	payload, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("marshal digest payload: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Signer produces and verifies HMAC-SHA256 signatures over record digests,
// keyed with a per-deployment secret.
type Signer struct {
	secretKey []byte
}

// NewSigner creates a signer from the shared secret.
func NewSigner(secretKey string) *Signer {
	return &Signer{secretKey: []byte(secretKey)}
}

// Sign returns the hex HMAC of a digest.
func (s *Signer) Sign(digest string) string {
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(digest))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature in constant time.
func (s *Signer) Verify(digest, signature string) bool {
	expected := s.Sign(digest)
	return hmac.Equal([]byte(expected), []byte(signature))
}
