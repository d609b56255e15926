package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
)

// PostgresRepository stores anomaly records in the anomalies table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Put upserts on (record_id, version). The unique constraint makes repeated
// puts of the same verdict version converge instead of duplicating, which is
// what lets the submit path retry safely.
func (r *PostgresRepository) Put(ctx context.Context, rec *models.AnomalyRecord) error {
	scores, err := json.Marshal(rec.Verdict.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	q := `INSERT INTO anomalies (
	        id, org_id, record_id, version, data_type, confidence, severity,
	        degraded, scores, features, model_version, telemetry_index,
	        created_at, updated_at
	    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
	    ON CONFLICT (record_id, version) DO UPDATE SET
	        org_id = EXCLUDED.org_id,
	        data_type = EXCLUDED.data_type,
	        confidence = EXCLUDED.confidence,
	        severity = EXCLUDED.severity,
	        degraded = EXCLUDED.degraded,
	        scores = EXCLUDED.scores,
	        features = EXCLUDED.features,
	        model_version = EXCLUDED.model_version,
	        telemetry_index = EXCLUDED.telemetry_index,
	        updated_at = NOW()`

	_, err = r.pool.Exec(ctx, q,
		rec.ID, rec.OrgID, rec.Verdict.RecordID, rec.Verdict.Version,
		string(rec.DataType), rec.Verdict.Confidence, string(rec.Verdict.Severity),
		rec.Verdict.Degraded, scores, features, rec.ModelVersion,
		rec.TelemetryRef.Index, rec.Verdict.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put anomaly: %w", err)
	}
	return nil
}

const selectColumns = `id, org_id, record_id, version, data_type, confidence,
	severity, degraded, scores, features, model_version, telemetry_index, created_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.AnomalyRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM anomalies WHERE id = $1`, selectColumns)
	rec, err := scanRecord(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get anomaly: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetByRecordVersion(ctx context.Context, recordID string, version int) (*models.AnomalyRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM anomalies WHERE record_id = $1 AND version = $2`, selectColumns)
	rec, err := scanRecord(r.pool.QueryRow(ctx, q, recordID, version))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get anomaly by record version: %w", err)
	}
	return rec, nil
}

// Query builds the filtered listing. Severity filtering happens on rank, so
// min_severity=medium includes high and critical.
func (r *PostgresRepository) Query(ctx context.Context, f dmodels.QueryFilter) ([]models.AnomalyRecord, int, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OrgID != "" {
		add("org_id = $%d", f.OrgID)
	}
	if f.DataType != "" {
		add("data_type = $%d", string(f.DataType))
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}
	if f.MinSeverity != "" {
		tiers := severitiesAtLeast(f.MinSeverity)
		add("severity = ANY($%d)", tiers)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM anomalies"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count anomalies: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	q := fmt.Sprintf(`SELECT %s FROM anomalies%s
	    ORDER BY created_at DESC, version DESC, id ASC
	    LIMIT $%d OFFSET $%d`, selectColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var out []models.AnomalyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan anomaly: %w", err)
		}
		out = append(out, *rec)
	}
	return out, total, nil
}

func severitiesAtLeast(min models.Severity) []string {
	all := []models.Severity{
		models.SeverityInfo, models.SeverityLow, models.SeverityMedium,
		models.SeverityHigh, models.SeverityCritical,
	}
	var out []string
	for _, s := range all {
		if s.AtLeast(min) {
			out = append(out, string(s))
		}
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.AnomalyRecord, error) {
	var (
		rec       models.AnomalyRecord
		dataType  string
		sev       string
		scores    []byte
		features  []byte
		createdAt time.Time
	)
	err := row.Scan(
		&rec.ID, &rec.OrgID, &rec.Verdict.RecordID, &rec.Verdict.Version,
		&dataType, &rec.Verdict.Confidence, &sev, &rec.Verdict.Degraded,
		&scores, &features, &rec.ModelVersion, &rec.TelemetryRef.Index,
		&createdAt,
	)
	if err != nil {
		return nil, err
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
