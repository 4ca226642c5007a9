package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tutorly-backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

const profileColumns = `id, user_id, name, age, grade_level, country, preferred_learning_language, created_at, updated_at`

func scanProfile(row interface{ Scan(dest ...any) error }) (*models.StudentProfile, error) {
	p := &models.StudentProfile{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Age, &p.GradeLevel, &p.Country,
		&p.PreferredLearningLanguage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByUser returns the learner's one active profile. user_id is unique, so
// there is never a choice between profiles to make here.
func (r *ProfileRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM student_profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		return nil, classify("profile.get", err)
	}
	return p, nil
}

// Upsert creates the profile or merges the non-nil fields of u into it.
func (r *ProfileRepo) Upsert(ctx context.Context, userID uuid.UUID, u models.ProfileUpdate) (*models.StudentProfile, error) {
	query := `
		INSERT INTO student_profiles (id, user_id, name, age, grade_level, country, preferred_learning_language)
		VALUES ($1, $2, COALESCE($3, ''), COALESCE($4, 0), COALESCE($5, ''), COALESCE($6, ''), COALESCE($7, ''))
		ON CONFLICT (user_id) DO UPDATE SET
			name                        = COALESCE($3, student_profiles.name),
			age                         = COALESCE($4, student_profiles.age),
			grade_level                 = COALESCE($5, student_profiles.grade_level),
			country                     = COALESCE($6, student_profiles.country),
			preferred_learning_language = COALESCE($7, student_profiles.preferred_learning_language),
			updated_at                  = NOW()
		RETURNING ` + profileColumns

	row := r.pool.QueryRow(ctx, query,
		uuid.New(), userID, u.Name, u.Age, u.GradeLevel, u.Country, u.PreferredLearningLanguage,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, classify("profile.upsert", err)
	}
	return p, nil
}
