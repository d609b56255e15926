package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaintrace-systems/chaintrace-stack/common/database"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// PostgresReader reads anomaly records from the anomalies table written by
// the detection service.
type PostgresReader struct {
	pool *pgxpool.Pool
}

func NewPostgresReader(ctx context.Context, connString string) (*PostgresReader, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PostgresReader{pool: pool}, nil
}

func (r *PostgresReader) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresReader) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresReader) GetByID(ctx context.Context, id string) (*models.AnomalyRecord, error) {
	q := `SELECT id, org_id, record_id, version, data_type, confidence,
	        severity, degraded, scores, features, model_version,
	        telemetry_index, created_at
	    FROM anomalies WHERE id = $1`

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	var (
		rec       models.AnomalyRecord
		dataType  string
		sev       string
		scores    []byte
		features  []byte
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rec.ID, &rec.OrgID, &rec.Verdict.RecordID, &rec.Verdict.Version,
		&dataType, &rec.Verdict.Confidence, &sev, &rec.Verdict.Degraded,
		&scores, &features, &rec.ModelVersion, &rec.TelemetryRef.Index,
		&createdAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get anomaly: %w", err)
	}

	rec.DataType = models.DataType(dataType)
	rec.Verdict.Severity = models.Severity(sev)
	rec.Verdict.CreatedAt = createdAt
	// An empty index means the telemetry was never archived.
	if rec.TelemetryRef.Index != "" {
		rec.TelemetryRef.RecordID = rec.Verdict.RecordID
	}
	if err := json.Unmarshal(scores, &rec.Verdict.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	if err := json.Unmarshal(features, &rec.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	return &rec, nil
}
