package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tutorly-backend/internal/models"
)

type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

// Create appends a new plan. Plans are never updated; a newer plan supersedes older ones.
func (r *PlanRepo) Create(ctx context.Context, p *models.StudyPlan) error {
	p.ID = uuid.New()
	if p.Schedule == nil {
		p.Schedule = []models.StudySession{}
	}

	scheduleJSON, err := json.Marshal(p.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	query := `INSERT INTO study_plans (id, profile_id, subject, content, schedule_json)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	err = r.pool.QueryRow(ctx, query, p.ID, p.ProfileID, p.Subject, p.Content, scheduleJSON).Scan(&p.CreatedAt)
	return classify("plan.create", err)
}

// GetLatest returns the plan in effect for a profile: the most recently created one.
func (r *PlanRepo) GetLatest(ctx context.Context, profileID uuid.UUID) (*models.StudyPlan, error) {
	query := `SELECT id, profile_id, subject, content, schedule_json, created_at
		FROM study_plans WHERE profile_id = $1
		ORDER BY created_at DESC LIMIT 1`

	p := &models.StudyPlan{}
	var scheduleJSON []byte
	err := r.pool.QueryRow(ctx, query, profileID).Scan(
		&p.ID, &p.ProfileID, &p.Subject, &p.Content, &scheduleJSON, &p.CreatedAt,
	)
	if err != nil {
		return nil, classify("plan.latest", err)
	}

	if err := json.Unmarshal(scheduleJSON, &p.Schedule); err != nil {
		return nil, fmt.Errorf("failed to decode schedule for plan %s: %w", p.ID, err)
	}
	return p, nil
}
