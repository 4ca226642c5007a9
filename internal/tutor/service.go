package tutor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/planner"
	"tutorly-backend/internal/services"
)

type ProfileReader interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error)
}

type PlanReader interface {
	GetLatest(ctx context.Context, profileID uuid.UUID) (*models.StudyPlan, error)
}

type ConversationStore interface {
	Save(ctx context.Context, conv *models.Conversation) error
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error)
	Lock(ctx context.Context, id uuid.UUID) (func(), error)
}

type AttachmentPreparer interface {
	Prepare(a models.Attachment) (*services.PreparedAttachment, error)
}

type Responder interface {
	Respond(ctx context.Context, in TurnInput) (*models.ChatTurn, error)
}

type ProgressRecorder interface {
	Record(ctx context.Context, userID, planID uuid.UUID, session *models.StudySession, start *time.Time) bool
}

// Service runs tutoring conversations: it pins the active session when a
// conversation opens, answers one turn at a time and records progress.
type Service struct {
	profiles      ProfileReader
	plans         PlanReader
	conversations ConversationStore
	attachments   AttachmentPreparer
	responder     Responder
	recorder      ProgressRecorder
	loc           *time.Location
	now           func() time.Time
}

func NewService(
	profiles ProfileReader,
	plans PlanReader,
	conversations ConversationStore,
	attachments AttachmentPreparer,
	responder Responder,
	recorder ProgressRecorder,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		profiles:      profiles,
		plans:         plans,
		conversations: conversations,
		attachments:   attachments,
		responder:     responder,
		recorder:      recorder,
		loc:           loc,
		now:           time.Now,
	}
}

func (s *Service) loadProfile(ctx context.Context, op string, userID uuid.UUID) (*models.StudentProfile, error) {
	profile, err := s.profiles.GetByUser(ctx, userID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, apperr.New(apperr.KindPreconditionMissing, op, "complete your profile first")
	}
	return profile, err
}

// loadPlan returns the latest plan, or nil when the learner has none yet.
func (s *Service) loadPlan(ctx context.Context, profileID uuid.UUID) (*models.StudyPlan, error) {
	plan, err := s.plans.GetLatest(ctx, profileID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	return plan, err
}

// Open starts a conversation and pins the next scheduled session, if any.
func (s *Service) Open(ctx context.Context, userID uuid.UUID) (*models.Conversation, error) {
	profile, err := s.loadProfile(ctx, "tutor.open", userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	conv := &models.Conversation{
		ID:              uuid.New(),
		UserID:          userID,
		ProfileID:       profile.ID,
		History:         []models.ChatTurn{},
		CreatedAt:       now,
		LastInteraction: now,
	}
	if plan != nil {
		planID := plan.ID
		conv.PlanID = &planID
		if next := planner.Locate(plan, now, s.loc); next != nil {
			session := next.Session
			conv.ActiveSession = &session
		}
	}

	if err := s.conversations.Save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error) {
	return s.conversations.Get(ctx, userID, id)
}

// Ask answers one learner question. Turns on the same conversation never
// overlap. A failed turn leaves the history as it was.
func (s *Service) Ask(ctx context.Context, userID, conversationID uuid.UUID, req models.AskRequest) (*models.AskResponse, error) {
	const op = "tutor.ask"

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperr.Validation(op, map[string]string{"question": "is required"})
	}

	release, err := s.conversations.Lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer release()

	conv, err := s.conversations.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadPlan(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	var prepared *services.PreparedAttachment
	if req.Attachment != nil && strings.TrimSpace(req.Attachment.DataURI) != "" {
		prepared, err = s.attachments.Prepare(*req.Attachment)
		if err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	if conv.ActiveSession != nil && conv.SessionStart == nil {
		conv.SessionStart = &now
	}

	in := TurnInput{
		Profile:    profile,
		Topic:      planner.Topic(conv.ActiveSession),
		History:    conv.History,
		Attachment: prepared,
		Question:   question,
	}
	if plan != nil {
		in.Subject = plan.Subject
		in.PlanContent = plan.Content
	}

	tutorTurn, err := s.responder.Respond(ctx, in)
	conv.LastInteraction = now
	if err != nil {
		// keep the session start, drop the unanswered question
		_ = s.conversations.Save(ctx, conv)
		return nil, err
	}

	learnerTurn := models.ChatTurn{
		Role:      models.RoleLearner,
		Question:  question,
		CreatedAt: now,
	}
	if prepared != nil {
		learnerTurn.AttachmentName = prepared.Name
	}
	conv.History = append(conv.History, learnerTurn, *tutorTurn)

	if err := s.conversations.Save(ctx, conv); err != nil {
		return nil, err
	}

	queued := false
	if conv.ActiveSession != nil && conv.PlanID != nil {
		queued = s.recorder.Record(ctx, userID, *conv.PlanID, conv.ActiveSession, conv.SessionStart)
	}

	return &models.AskResponse{
		Turn:           *tutorTurn,
		Topic:          in.Topic,
		ActiveSession:  conv.ActiveSession,
		ProgressQueued: queued,
	}, nil
}
