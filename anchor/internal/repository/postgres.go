package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaintrace-systems/chaintrace-stack/common/database"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// PostgresRepository stores anchors in the anchors table.
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

func (r *PostgresRepository) Upsert(ctx context.Context, a *models.LedgerAnchor) error {
	q := `INSERT INTO anchors (
	        anomaly_id, digest, tx_ref, block_ref, consensus_ratio, status,
	        attempts, anchored_at, updated_at
	    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
	    ON CONFLICT (anomaly_id) DO UPDATE SET
	        digest = EXCLUDED.digest,
	        tx_ref = EXCLUDED.tx_ref,
	        block_ref = EXCLUDED.block_ref,
	        consensus_ratio = EXCLUDED.consensus_ratio,
	        status = EXCLUDED.status,
	        attempts = EXCLUDED.attempts,
	        anchored_at = EXCLUDED.anchored_at,
	        updated_at = NOW()`

	var anchoredAt *time.Time
	if !a.AnchoredAt.IsZero() {
		anchoredAt = &a.AnchoredAt
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		a.AnomalyID, a.Digest, a.TxRef, a.BlockRef, a.ConsensusRatio,
		string(a.Status), a.Attempts, anchoredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert anchor: %w", err)
	}
	return nil
}

const anchorColumns = `anomaly_id, digest, tx_ref, block_ref, consensus_ratio,
	status, attempts, anchored_at, updated_at`

func (r *PostgresRepository) Get(ctx context.Context, anomalyID string) (*models.LedgerAnchor, error) {
	q := fmt.Sprintf(`SELECT %s FROM anchors WHERE anomaly_id = $1`, anchorColumns)

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	a, err := scanAnchor(r.pool.QueryRow(ctx, q, anomalyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get anchor: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListPending(ctx context.Context, limit int) ([]models.LedgerAnchor, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT %s FROM anchors
	    WHERE status = $1
	    ORDER BY updated_at ASC
	    LIMIT $2`, anchorColumns)

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, string(models.AnchorPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending anchors: %w", err)
	}
	defer rows.Close()

	var out []models.LedgerAnchor
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan anchor: %w", err)
		}
		out = append(out, *a)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnchor(row rowScanner) (*models.LedgerAnchor, error) {
	var (
		a          models.LedgerAnchor
		status     string
		anchoredAt *time.Time
	)
	err := row.Scan(
		&a.AnomalyID, &a.Digest, &a.TxRef, &a.BlockRef, &a.ConsensusRatio,
		&status, &a.Attempts, &anchoredAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = models.AnchorStatus(status)
	if anchoredAt != nil {
		a.AnchoredAt = *anchoredAt
	}
	return &a, nil
}
