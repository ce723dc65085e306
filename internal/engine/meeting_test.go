package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galleon/clash-of-courses/internal/models"
)

func meeting(day, start, end int) models.Meeting {
	return models.Meeting{DayOfWeek: day, StartMin: start, EndMin: end}
}

func TestOverlapsDifferentDaysNeverConflict(t *testing.T) {
	a := meeting(0, 600, 675)
	for day := 1; day <= 6; day++ {
		require.False(t, Overlaps(a, meeting(day, 600, 675)))
		require.False(t, Overlaps(meeting(day, 600, 675), a))
	}
}

func TestOverlapsSelf(t *testing.T) {
	a := meeting(2, 540, 630)
	require.True(t, Overlaps(a, a))
}

func TestOverlapsHalfOpenBackToBack(t *testing.T) {
	a := meeting(0, 540, 600)
	b := meeting(0, 600, 660)
	require.False(t, Overlaps(a, b), "end == start must not conflict")
	require.False(t, Overlaps(b, a))
}

func TestOverlapsPartial(t *testing.T) {
	// Mon 10:00-11:15 vs Mon 10:30-11:45
	a := meeting(0, 600, 675)
	b := meeting(0, 630, 705)
	require.True(t, Overlaps(a, b))
	require.True(t, Overlaps(b, a), "predicate is symmetric")
}

func TestOverlapsContainment(t *testing.T) {
	outer := meeting(3, 480, 720)
	inner := meeting(3, 540, 600)
	require.True(t, Overlaps(outer, inner))
	require.True(t, Overlaps(inner, outer))
}
