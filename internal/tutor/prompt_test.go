package tutor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tutorly-backend/internal/models"
	"tutorly-backend/internal/services"
)

func TestBuildTutorPrompt_FocusedLesson(t *testing.T) {
	prompt := buildTutorPrompt(TurnInput{
		Profile:     &models.StudentProfile{Name: "Ana", GradeLevel: "6th grade", Country: "Mexico", PreferredLearningLanguage: "spanish"},
		Subject:     "Mathematics",
		PlanContent: "Semana 1: fracciones",
		Topic:       "Fractions",
		History: []models.ChatTurn{
			{Role: models.RoleLearner, Question: "what is a numerator?"},
			{Role: models.RoleTutor, Explanation: "The top number.", Example: "In 3/4 it is 3."},
		},
		Question: "explain fractions",
	})

	assert.Contains(t, prompt, `You are in a focused lesson`)
	assert.Contains(t, prompt, `current topic: "Fractions"`)
	assert.NotContains(t, prompt, "general session")
	assert.Contains(t, prompt, "- Name: Ana")
	assert.Contains(t, prompt, "- Preferred Language: spanish")
	assert.Contains(t, prompt, "Semana 1: fracciones")
	assert.Contains(t, prompt, "Latest Student Question: explain fractions")

	learner := strings.Index(prompt, "Student: what is a numerator?")
	tutor := strings.Index(prompt, "Professor: The top number.\nIn 3/4 it is 3.")
	assert.True(t, learner >= 0 && tutor > learner, "history must be replayed in order")
}

func TestBuildTutorPrompt_GeneralQuestion(t *testing.T) {
	prompt := buildTutorPrompt(TurnInput{Topic: models.GeneralQuestionTopic, Question: "why is the sky blue?"})

	assert.Contains(t, prompt, "You are in a general session")
	assert.NotContains(t, prompt, "focused lesson")
	assert.NotContains(t, prompt, "Overall Study Plan Context")
}

func TestBuildTutorPrompt_Attachment(t *testing.T) {
	att := &services.PreparedAttachment{Name: "homework.docx", Text: "1) 1/2 + 1/3 = ?"}

	focused := buildTutorPrompt(TurnInput{Topic: "Fractions", Attachment: att, Question: "help"})
	assert.Contains(t, focused, "use it as the primary context for your answer, relating it back to the current topic")
	assert.Contains(t, focused, "File name: homework.docx")
	assert.Contains(t, focused, "1) 1/2 + 1/3 = ?")

	general := buildTutorPrompt(TurnInput{Topic: models.GeneralQuestionTopic, Attachment: att, Question: "help"})
	assert.Contains(t, general, "use it as the primary context for your answer.")
	assert.NotContains(t, general, "relating it back")
}
