package progress

import (
	"fmt"
	"time"

	"tutorly-backend/internal/models"
)

// Aggregate builds dashboard statistics for the calendar year containing now.
// Records without a date are skipped; a missing duration counts as 0.
// Zone-less dates are read as wall clock time in loc.
func Aggregate(plan *models.StudyPlan, records []models.ProgressRecord, now time.Time, loc *time.Location) models.ProgressStats {
	if loc == nil {
		loc = time.UTC
	}
	year := now.In(loc).Year()

	stats := models.ProgressStats{
		Year:        year,
		Monthly:     make([]models.MonthlyMinutes, 12),
		CurrentGoal: "N/A",
	}
	for m := time.January; m <= time.December; m++ {
		stats.Monthly[m-1] = models.MonthlyMinutes{Month: m.String()[:3]}
	}

	sessions := make(map[string]struct{})
	days := make(map[string]struct{})

	for _, rec := range records {
		if rec.Date == nil || rec.Date.IsZero() {
			continue
		}
		at := rec.Date.Anchor(loc)

		minutes := 0
		if rec.DurationMinutes != nil {
			minutes = *rec.DurationMinutes
		}

		stats.TotalMinutes += minutes
		if at.Year() == year {
			stats.Monthly[at.Month()-1].Minutes += minutes
		}
		if rec.SessionID != nil && *rec.SessionID != "" {
			sessions[*rec.SessionID] = struct{}{}
		}
		days[at.Format(models.SessionDateLayout)] = struct{}{}
	}

	stats.LessonsCompleted = len(sessions)
	stats.ActiveDays = len(days)
	stats.TimeStudied = FormatStudyTime(stats.TotalMinutes)

	if plan != nil {
		stats.LessonsPlanned = len(plan.Schedule)
		if plan.Subject != "" {
			stats.CurrentGoal = plan.Subject
		}
	}
	stats.CompletionPercent = CompletionPercent(stats.LessonsCompleted, stats.LessonsPlanned)

	return stats
}

// CompletionPercent is round(100 * completed / total), or 0 for an empty schedule.
func CompletionPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	// half-up rounding on integers
	return (200*completed + total) / (2 * total)
}

// FormatStudyTime renders minutes as "Xh Ym".
func FormatStudyTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
