package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanDraft(t *testing.T) {
	raw := "```json\n" + `{
		"study_plan": "Semana 1: fracciones",
		"schedule": [
			{"topic": " Fractions ", "date": "2025-03-01", "time": "09:00", "duration_minutes": 30,
			 "learning_objective": "add fractions", "activity": "worksheet"}
		]
	}` + "\n```"

	draft, err := parsePlanDraft(raw)
	require.NoError(t, err)
	assert.Equal(t, "Semana 1: fracciones", draft.Content)
	require.Len(t, draft.Schedule, 1)
	assert.Equal(t, "Fractions", draft.Schedule[0].Topic)
	assert.Equal(t, 30, draft.Schedule[0].DurationMinutes)
	assert.Empty(t, draft.Schedule[0].ID)
}

func TestParsePlanDraft_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "I'm sorry, I can't help with that."},
		{"missing plan", `{"schedule": []}`},
		{"missing schedule", `{"study_plan": "x"}`},
		{"empty schedule", `{"study_plan": "rest week", "schedule": []}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parsePlanDraft(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestParseTutorReply(t *testing.T) {
	reply, err := parseTutorReply(`Here you go: {"explanation": "A fraction is a part of a whole.", "example": "1/2 of a pizza"}`)
	require.NoError(t, err)
	assert.Equal(t, "A fraction is a part of a whole.", reply.Explanation)
	assert.Equal(t, "1/2 of a pizza", reply.Example)

	_, err = parseTutorReply(`{"explanation": "only half"}`)
	assert.Error(t, err)

	_, err = parseTutorReply(`{"explanation": "  ", "example": "x"}`)
	assert.Error(t, err)
}
