package planner

import (
	"fmt"
	"strings"
	"time"

	"tutorly-backend/internal/models"
)

func buildPlanPrompt(p *models.StudentProfile, req models.GeneratePlanRequest, today time.Time) string {
	var b strings.Builder

	b.WriteString("You are an expert educational planner, skilled in creating realistic and effective study schedules with a focused pedagogical approach.\n\n")
	b.WriteString("Your task is to generate a detailed, actionable and personalized study plan.\n\n")

	b.WriteString("Student profile:\n")
	fmt.Fprintf(&b, "- Name: %s\n", p.Name)
	fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	fmt.Fprintf(&b, "- Grade Level: %s\n", p.GradeLevel)
	fmt.Fprintf(&b, "- Country: %s\n", p.Country)
	fmt.Fprintf(&b, "- Preferred Learning Language: %s\n\n", p.PreferredLearningLanguage)

	b.WriteString("Learning context:\n")
	fmt.Fprintf(&b, "- Subject: %s\n", req.Subject)
	fmt.Fprintf(&b, "- Curriculum: %s\n", req.Curriculum)
	fmt.Fprintf(&b, "- Educational Materials: %s\n\n", req.EducationalMaterials)

	b.WriteString("Availability and preferences:\n")
	fmt.Fprintf(&b, "- Preferred Study Times: %s\n", req.StudyTimePreference)
	fmt.Fprintf(&b, "- Preferred Session Duration: %s\n\n", req.StudyDurationPreference)

	fmt.Fprintf(&b, "Today is %s. Every session must be scheduled on or after today.\n\n", today.Format(models.SessionDateLayout))

	b.WriteString("Return a JSON object with two fields:\n")
	fmt.Fprintf(&b, "1. \"study_plan\": a human-readable, detailed study plan written entirely in %s, broken down into a weekly or daily schedule. For each session give the topic, the learning objective and a concrete suggested activity.\n", p.PreferredLearningLanguage)
	b.WriteString("2. \"schedule\": an array of sessions, each with topic, date (YYYY-MM-DD), time (HH:MM, 24-hour), duration_minutes (integer derived from the preferred session duration), learning_objective and activity. Do not include an id field.\n")

	return b.String()
}
