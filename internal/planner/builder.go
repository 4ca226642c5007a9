package planner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/services"
)

type PlanGenerator interface {
	GenerateStudyPlan(ctx context.Context, prompt string) (*services.PlanDraft, error)
}

// Builder turns a profile and study preferences into a plan ready to save.
type Builder struct {
	gen PlanGenerator
	loc *time.Location
	now func() time.Time
}

func NewBuilder(gen PlanGenerator, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{gen: gen, loc: loc, now: time.Now}
}

// ProfileComplete reports the profile fields still missing, keyed by JSON name.
func ProfileComplete(p *models.StudentProfile) map[string]string {
	missing := map[string]string{}
	if p == nil {
		missing["profile"] = "is required"
		return missing
	}
	if strings.TrimSpace(p.Name) == "" {
		missing["name"] = "is required"
	}
	if p.Age <= 0 {
		missing["age"] = "is required"
	}
	if strings.TrimSpace(p.GradeLevel) == "" {
		missing["grade_level"] = "is required"
	}
	if strings.TrimSpace(p.Country) == "" {
		missing["country"] = "is required"
	}
	if strings.TrimSpace(p.PreferredLearningLanguage) == "" {
		missing["preferred_learning_language"] = "is required"
	}
	return missing
}

func validatePlanRequest(req models.GeneratePlanRequest) map[string]string {
	fields := map[string]string{}
	required := map[string]string{
		"subject":                   req.Subject,
		"curriculum":                req.Curriculum,
		"educational_materials":     req.EducationalMaterials,
		"study_time_preference":     req.StudyTimePreference,
		"study_duration_preference": req.StudyDurationPreference,
	}
	for name, val := range required {
		if strings.TrimSpace(val) == "" {
			fields[name] = "is required"
		}
	}
	return fields
}

// Build generates a plan for the profile. Session ids always come from here,
// never from the generator.
func (b *Builder) Build(ctx context.Context, profile *models.StudentProfile, req models.GeneratePlanRequest) (*models.StudyPlan, error) {
	const op = "planner.build"

	if missing := ProfileComplete(profile); len(missing) > 0 {
		e := apperr.New(apperr.KindPreconditionMissing, op, "complete your profile first")
		e.Fields = missing
		return nil, e
	}
	if fields := validatePlanRequest(req); len(fields) > 0 {
		return nil, apperr.Validation(op, fields)
	}

	prompt := buildPlanPrompt(profile, req, b.now().In(b.loc))
	draft, err := b.gen.GenerateStudyPlan(ctx, prompt)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			return nil, apperr.Wrap(apperr.KindGenerationFailed, op, err)
		}
		return nil, err
	}
	if draft == nil || len(draft.Schedule) == 0 {
		return nil, apperr.New(apperr.KindGenerationFailed, op, "failed to generate study plan")
	}

	schedule := make([]models.StudySession, len(draft.Schedule))
	for i, s := range draft.Schedule {
		s.ID = uuid.NewString()
		schedule[i] = s
	}

	return &models.StudyPlan{
		ProfileID: profile.ID,
		Subject:   strings.TrimSpace(req.Subject),
		Content:   draft.Content,
		Schedule:  schedule,
	}, nil
}
