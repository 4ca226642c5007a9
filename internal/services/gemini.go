package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/models"
)

// PlanDraft is the generator's plan before the schedule builder assigns session ids.
type PlanDraft struct {
	Content  string
	Schedule []models.StudySession
}

// TutorReply is the text half of a tutor turn.
type TutorReply struct {
	Explanation string
	Example     string
}

type GeminiService struct {
	client     *genai.Client
	planModel  *genai.GenerativeModel
	tutorModel *genai.GenerativeModel
	log        *logger.Logger
	rateChan   chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int, log *logger.Logger) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	planModel := client.GenerativeModel(modelName)
	planModel.SetTemperature(0.4)
	planModel.SetTopP(0.95)
	planModel.ResponseMIMEType = "application/json"
	planModel.ResponseSchema = planSchema

	tutorModel := client.GenerativeModel(modelName)
	tutorModel.SetTemperature(0.6)
	tutorModel.SetTopP(0.95)
	tutorModel.ResponseMIMEType = "application/json"
	tutorModel.ResponseSchema = tutorSchema

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:     client,
		planModel:  planModel,
		tutorModel: tutorModel,
		log:        log,
		rateChan:   rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

var planSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"study_plan": {
			Type:        genai.TypeString,
			Description: "The personalized study plan as human-readable text in the student's preferred learning language.",
		},
		"schedule": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"topic":              {Type: genai.TypeString},
					"date":               {Type: genai.TypeString, Description: "YYYY-MM-DD"},
					"time":               {Type: genai.TypeString, Description: "HH:MM, 24-hour"},
					"duration_minutes":   {Type: genai.TypeInteger},
					"learning_objective": {Type: genai.TypeString},
					"activity":           {Type: genai.TypeString},
				},
				Required: []string{"topic", "date", "time", "duration_minutes", "learning_objective", "activity"},
			},
		},
	},
	Required: []string{"study_plan", "schedule"},
}

var tutorSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"explanation": {Type: genai.TypeString},
		"example":     {Type: genai.TypeString},
	},
	Required: []string{"explanation", "example"},
}

// GenerateStudyPlan runs the plan prompt and returns the structured draft.
func (s *GeminiService) GenerateStudyPlan(ctx context.Context, prompt string) (*PlanDraft, error) {
	const op = "gemini.generate_plan"

	if err := s.acquireRate(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailed, op, err)
	}
	defer s.releaseRate()

	resp, err := s.planModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailed, op, fmt.Errorf("Gemini API error: %w", err))
	}
	s.logFinish(op, resp)

	draft, err := parsePlanDraft(extractText(resp))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailed, op, err)
	}
	return draft, nil
}

// GenerateTutorReply runs the tutoring prompt, attaching any inline media after the text.
func (s *GeminiService) GenerateTutorReply(ctx context.Context, prompt string, media []InlineMedia) (*TutorReply, error) {
	const op = "gemini.generate_tutor_reply"

	if err := s.acquireRate(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailed, op, err)
	}
	defer s.releaseRate()

	parts := []genai.Part{genai.Text(prompt)}
	for _, m := range media {
		parts = append(parts, genai.Blob{MIMEType: m.MIMEType, Data: m.Data})
	}

	resp, err := s.tutorModel.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailed, op, fmt.Errorf("Gemini API error: %w", err))
	}
	s.logFinish(op, resp)

	reply, err := parseTutorReply(extractText(resp))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGenerationFailed, op, err)
	}
	return reply, nil
}

func (s *GeminiService) logFinish(op string, resp *genai.GenerateContentResponse) {
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.log.Warn("Gemini stopped early", "op", op, "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// decodeModelJSON strips markdown fences and, failing a direct parse, retries on
// the outermost JSON object in the text.
func decodeModelJSON(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return fmt.Errorf("model returned no output")
	}

	err := json.Unmarshal([]byte(raw), out)
	if err == nil {
		return nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err2 := json.Unmarshal([]byte(raw[start:end+1]), out); err2 == nil {
			return nil
		}
	}
	return fmt.Errorf("model output is not valid JSON: %w", err)
}

func parsePlanDraft(raw string) (*PlanDraft, error) {
	var out struct {
		StudyPlan string `json:"study_plan"`
		Schedule  []struct {
			Topic             string `json:"topic"`
			Date              string `json:"date"`
			Time              string `json:"time"`
			DurationMinutes   int    `json:"duration_minutes"`
			LearningObjective string `json:"learning_objective"`
			Activity          string `json:"activity"`
		} `json:"schedule"`
	}
	if err := decodeModelJSON(raw, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.StudyPlan) == "" {
		return nil, fmt.Errorf("model output is missing study_plan")
	}
	if len(out.Schedule) == 0 {
		return nil, fmt.Errorf("model output has no schedule")
	}

	draft := &PlanDraft{
		Content:  out.StudyPlan,
		Schedule: make([]models.StudySession, 0, len(out.Schedule)),
	}
	for _, sess := range out.Schedule {
		draft.Schedule = append(draft.Schedule, models.StudySession{
			Topic:             strings.TrimSpace(sess.Topic),
			Date:              strings.TrimSpace(sess.Date),
			Time:              strings.TrimSpace(sess.Time),
			DurationMinutes:   sess.DurationMinutes,
			LearningObjective: sess.LearningObjective,
			Activity:          sess.Activity,
		})
	}
	return draft, nil
}

func parseTutorReply(raw string) (*TutorReply, error) {
	var out struct {
		Explanation string `json:"explanation"`
		Example     string `json:"example"`
	}
	if err := decodeModelJSON(raw, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Explanation) == "" {
		return nil, fmt.Errorf("model output is missing explanation")
	}
	if strings.TrimSpace(out.Example) == "" {
		return nil, fmt.Errorf("model output is missing example")
	}
	return &TutorReply{Explanation: out.Explanation, Example: out.Example}, nil
}
