package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"tutorly-backend/internal/models"
)

type ProgressRepo struct {
	pool *pgxpool.Pool
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

// Re-sending a record with the same id is a no-op, so retried writes stay idempotent.
const insertProgress = `INSERT INTO progress_records (id, plan_id, session_id, recorded_at, duration_minutes)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
	RETURNING created_at`

func progressArgs(rec *models.ProgressRecord) []any {
	var recordedAt *time.Time
	if rec.Date != nil {
		t := rec.Date.Time
		recordedAt = &t
	}
	return []any{rec.ID, rec.PlanID, rec.SessionID, recordedAt, rec.DurationMinutes}
}

// Append stores one progress record, assigning an id if it has none.
func (r *ProgressRepo) Append(ctx context.Context, rec *models.ProgressRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, insertProgress, progressArgs(rec)...).Scan(&rec.CreatedAt)
	return classify("progress.append", err)
}

// AppendBatch stores records in one round trip. Each insert is independent;
// the batch is not wrapped in a transaction.
func (r *ProgressRepo) AppendBatch(ctx context.Context, recs []models.ProgressRecord) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range recs {
		recs[i].ID = uuid.New()
		batch.Queue(insertProgress, progressArgs(&recs[i])...)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range recs {
		if err := results.QueryRow().Scan(&recs[i].CreatedAt); err != nil {
			return classify("progress.append_batch", err)
		}
	}
	return nil
}

func (r *ProgressRepo) ListByPlan(ctx context.Context, planID uuid.UUID) ([]models.ProgressRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, plan_id, session_id, recorded_at, duration_minutes, created_at
		FROM progress_records
		WHERE plan_id = $1
		ORDER BY recorded_at NULLS LAST, created_at
	`, planID)
	if err != nil {
		return nil, classify("progress.list", err)
	}
	defer rows.Close()

	var records []models.ProgressRecord
	for rows.Next() {
		var (
			rec        models.ProgressRecord
			recordedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&rec.ID, &rec.PlanID, &rec.SessionID, &recordedAt, &rec.DurationMinutes, &rec.CreatedAt); err != nil {
			return nil, classify("progress.list", err)
		}
		if recordedAt.Valid {
			rec.Date = models.NewInstant(recordedAt.Time)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("progress.list", err)
	}
	return records, nil
}
