package tutor

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/services"
)

type TextGenerator interface {
	GenerateTutorReply(ctx context.Context, prompt string, media []services.InlineMedia) (*services.TutorReply, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// TurnInput is everything the tutor needs to answer one question.
type TurnInput struct {
	Profile     *models.StudentProfile
	Subject     string
	PlanContent string
	Topic       string
	History     []models.ChatTurn
	Attachment  *services.PreparedAttachment
	Question    string
}

// Orchestrator produces a tutor turn in three stages: text, then both audio
// renderings in parallel, then aggregation. Any stage failing fails the turn.
type Orchestrator struct {
	text   TextGenerator
	speech Synthesizer
	now    func() time.Time
}

func NewOrchestrator(text TextGenerator, speech Synthesizer) *Orchestrator {
	return &Orchestrator{text: text, speech: speech, now: time.Now}
}

func (o *Orchestrator) Respond(ctx context.Context, in TurnInput) (*models.ChatTurn, error) {
	const op = "tutor.respond"

	var media []services.InlineMedia
	if in.Attachment != nil && in.Attachment.Inline != nil {
		media = append(media, *in.Attachment.Inline)
	}

	reply, err := o.text.GenerateTutorReply(ctx, buildTutorPrompt(in), media)
	if err != nil {
		return nil, asKind(apperr.KindGenerationFailed, op, err)
	}
	if reply == nil || strings.TrimSpace(reply.Explanation) == "" || strings.TrimSpace(reply.Example) == "" {
		return nil, apperr.New(apperr.KindGenerationFailed, op, "failed to get a text response from the tutor")
	}

	var explanationAudio, exampleAudio string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		audio, err := o.synthesize(gctx, reply.Explanation)
		explanationAudio = audio
		return err
	})
	g.Go(func() error {
		audio, err := o.synthesize(gctx, reply.Example)
		exampleAudio = audio
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.ChatTurn{
		Role:             models.RoleTutor,
		Explanation:      reply.Explanation,
		Example:          reply.Example,
		ExplanationAudio: explanationAudio,
		ExampleAudio:     exampleAudio,
		CreatedAt:        o.now().UTC(),
	}, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, text string) (string, error) {
	const op = "tutor.synthesize"

	audio, err := o.speech.Synthesize(ctx, text)
	if err != nil {
		return "", asKind(apperr.KindAudioSynthesisFailed, op, err)
	}
	if strings.TrimSpace(audio) == "" {
		return "", apperr.New(apperr.KindAudioSynthesisFailed, op, "failed to generate audio for the explanation or example")
	}
	return audio, nil
}

// asKind keeps the kind of an already classified error and tags the rest.
func asKind(kind apperr.Kind, op string, err error) error {
	if apperr.KindOf(err) == kind {
		return err
	}
	return apperr.Wrap(kind, op, err)
}
