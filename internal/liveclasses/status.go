package liveclasses

import (
	"time"

	"github.com/vidya-portal/backend/internal/models"
)

// TemporalState is the read-time classification of a live class relative to
// the clock. It is derived on every read, never stored; the persisted status
// on the class is a separate, teacher-controlled axis.
type TemporalState string

const (
	StateUpcoming TemporalState = "upcoming"
	StateLive     TemporalState = "live"
	StateEnded    TemporalState = "ended"
)

// Resolve classifies a class against now. The live window is closed at both
// ends: now == scheduledAt and now == scheduledAt + duration are both live.
func Resolve(scheduledAt time.Time, durationMinutes int, now time.Time) TemporalState {
	if now.Before(scheduledAt) {
		return StateUpcoming
	}
	end := scheduledAt.Add(time.Duration(durationMinutes) * time.Minute)
	if now.After(end) {
		return StateEnded
	}
	return StateLive
}

// CanJoin reports whether the join affordance should be enabled: the class
// must be live right now and carry a meeting reference.
func CanJoin(lc *models.LiveClass, now time.Time) bool {
	if lc.MeetingLink == "" && lc.MeetingID == "" {
		return false
	}
	return Resolve(lc.ScheduledAt, lc.DurationMinutes, now) == StateLive
}
