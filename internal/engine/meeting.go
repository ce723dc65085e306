package engine

import "github.com/galleon/clash-of-courses/internal/models"

// Overlaps reports whether two weekly meetings collide. Intervals are
// half-open [start, end), so back-to-back meetings (a ends exactly when b
// starts) do not conflict. Meetings on different days never overlap;
// midnight-spanning meetings are not supported by the day-of-week model.
func Overlaps(a, b models.Meeting) bool {
	if a.DayOfWeek != b.DayOfWeek {
		return false
	}
	return a.StartMin < b.EndMin && b.StartMin < a.EndMin
}
