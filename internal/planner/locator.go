package planner

import (
	"fmt"
	"strings"
	"time"

	"tutorly-backend/internal/models"
)

var sessionClockLayouts = []string{
	models.SessionDateLayout + " " + models.SessionTimeLayout,
	models.SessionDateLayout + " 15:04:05",
}

// SessionInstant combines a session's date and start time into an instant in loc.
func SessionInstant(s models.StudySession, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw := strings.TrimSpace(s.Date) + " " + strings.TrimSpace(s.Time)
	for _, layout := range sessionClockLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("session %q has an invalid date or time %q", s.ID, raw)
}

// NextSession returns the session with the earliest start strictly after now.
// Sessions with unreadable dates are ignored. Among sessions starting at the
// same instant the one listed first wins. ok is false when nothing is upcoming.
func NextSession(schedule []models.StudySession, now time.Time, loc *time.Location) (session models.StudySession, startsAt time.Time, ok bool) {
	for _, s := range schedule {
		at, err := SessionInstant(s, loc)
		if err != nil || !at.After(now) {
			continue
		}
		if !ok || at.Before(startsAt) {
			session, startsAt, ok = s, at, true
		}
	}
	return session, startsAt, ok
}

// Locate runs NextSession over a plan and shapes the result for the session card.
func Locate(plan *models.StudyPlan, now time.Time, loc *time.Location) *models.NextSession {
	if plan == nil {
		return nil
	}
	session, startsAt, ok := NextSession(plan.Schedule, now, loc)
	if !ok {
		return nil
	}
	return &models.NextSession{
		Session:         session,
		PlanID:          plan.ID,
		Subject:         plan.Subject,
		StartsAt:        startsAt,
		DurationSeconds: session.DurationMinutes * 60,
	}
}

// Topic is what the tutor should focus on: the active session's topic, or the
// general-question sentinel when there is none.
func Topic(active *models.StudySession) string {
	if active == nil || strings.TrimSpace(active.Topic) == "" {
		return models.GeneralQuestionTopic
	}
	return active.Topic
}
