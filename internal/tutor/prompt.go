package tutor

import (
	"fmt"
	"strings"

	"tutorly-backend/internal/models"
)

func isGeneralQuestion(topic string) bool {
	return topic == "" || strings.EqualFold(topic, models.GeneralQuestionTopic)
}

func buildTutorPrompt(in TurnInput) string {
	var b strings.Builder
	topic := in.Topic
	if topic == "" {
		topic = models.GeneralQuestionTopic
	}

	b.WriteString("You are an AI Professor specializing in personalized education.\n\n")

	if isGeneralQuestion(topic) {
		b.WriteString("You are in a general session. The student does not have a specific topic scheduled. Be a helpful academic assistant: answer the student's question clearly and provide a relevant example, tailored to the student's profile.\n\n")
	} else {
		fmt.Fprintf(&b, "You are in a focused lesson. Your primary goal is a clear explanation and a relevant example for the student's current topic: %q. You MUST focus your response on this specific topic.\n\n", topic)
	}

	b.WriteString("Tailor the explanation and example to the student's needs, considering their profile and question.\n\n")

	if in.Attachment != nil {
		b.WriteString("The student has uploaded a file with their latest question. You MUST analyze its contents and use it as the primary context for your answer")
		if !isGeneralQuestion(topic) {
			b.WriteString(", relating it back to the current topic")
		}
		b.WriteString(".\n")
		if in.Attachment.Name != "" {
			fmt.Fprintf(&b, "File name: %s\n", in.Attachment.Name)
		}
		if in.Attachment.Text != "" {
			b.WriteString("---FILE CONTENT START---\n")
			b.WriteString(in.Attachment.Text)
			b.WriteString("\n---FILE CONTENT END---\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Consider the conversation history so your answer helps the student progress. The overall study plan is for broad context.\n\n")

	if p := in.Profile; p != nil {
		b.WriteString("Student Details:\n")
		fmt.Fprintf(&b, "- Name: %s\n", p.Name)
		fmt.Fprintf(&b, "- Grade Level: %s\n", p.GradeLevel)
		fmt.Fprintf(&b, "- Country: %s\n", p.Country)
		fmt.Fprintf(&b, "- Preferred Language: %s\n\n", p.PreferredLearningLanguage)
	}

	b.WriteString("Current Lesson Details:\n")
	fmt.Fprintf(&b, "- Subject: %s\n", in.Subject)
	fmt.Fprintf(&b, "- Topic: %s\n\n", topic)

	if strings.TrimSpace(in.PlanContent) != "" {
		b.WriteString("Overall Study Plan Context (for reference):\n---\n")
		b.WriteString(in.PlanContent)
		b.WriteString("\n---\n\n")
	}

	b.WriteString("Conversation History:\n")
	for _, turn := range in.History {
		switch turn.Role {
		case models.RoleLearner:
			fmt.Fprintf(&b, "Student: %s\n", turn.Question)
		case models.RoleTutor:
			fmt.Fprintf(&b, "Professor: %s\n%s\n", turn.Explanation, turn.Example)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Latest Student Question: %s\n\n", in.Question)
	b.WriteString("Based on all this information, respond with a JSON object containing \"explanation\" and \"example\" for the student's question.\n")

	return b.String()
}
