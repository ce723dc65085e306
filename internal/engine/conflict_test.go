package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galleon/clash-of-courses/internal/models"
)

func TestFindConflictsEmptyInputs(t *testing.T) {
	require.Empty(t, FindConflicts(nil, nil))
	require.Empty(t, FindConflicts([]models.Meeting{meeting(0, 600, 660)}, nil))
	require.Empty(t, FindConflicts(nil, []models.Meeting{meeting(0, 600, 660)}))
}

func TestFindConflictsReportsEveryPair(t *testing.T) {
	candidate := []models.Meeting{
		meeting(0, 600, 675), // overlaps both busy Monday meetings
		meeting(2, 480, 540), // free
	}
	busy := []models.Meeting{
		meeting(0, 630, 705),
		meeting(0, 660, 720),
		meeting(4, 600, 675),
	}

	pairs := FindConflicts(candidate, busy)
	require.Len(t, pairs, 2)
	for _, pair := range pairs {
		require.Equal(t, 0, pair.Candidate.DayOfWeek)
		require.True(t, Overlaps(pair.Candidate, pair.Existing))
	}
}

func TestFindConflictsDisjointSchedules(t *testing.T) {
	candidate := []models.Meeting{meeting(1, 540, 600), meeting(3, 540, 600)}
	busy := []models.Meeting{meeting(1, 600, 660), meeting(3, 480, 540)}
	require.Empty(t, FindConflicts(candidate, busy))
}
