package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galleon/clash-of-courses/internal/models"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
)

func newRequest(state models.RequestState) *models.RegistrationRequest {
	return &models.RegistrationRequest{
		ID:        "req-1",
		StudentID: "stu-1",
		Type:      models.RequestTypeAdd,
		State:     state,
	}
}

func TestDecideAdvisorApprove(t *testing.T) {
	req := newRequest(models.StateSubmitted)
	decision, err := Decide(req, models.ActorAdvisor, "adv-1", models.ActionApprove, "schedule fits")
	require.NoError(t, err)
	require.Equal(t, models.StateApproved, req.State)
	require.Len(t, req.Decisions, 1)
	require.Equal(t, models.ActorAdvisor, decision.ActorRole)
	require.Equal(t, "schedule fits", decision.Rationale)
}

// Scenario E: advisor refers, department head rejects; two decisions with
// the correct actor roles.
func TestDecideReferThenReject(t *testing.T) {
	req := newRequest(models.StateSubmitted)

	_, err := Decide(req, models.ActorAdvisor, "adv-1", models.ActionRefer, "needs dept sign-off")
	require.NoError(t, err)
	require.Equal(t, models.StateDeptReview, req.State)

	_, err = Decide(req, models.ActorDepartmentHead, "dept-1", models.ActionReject, "course retired")
	require.NoError(t, err)
	require.Equal(t, models.StateRejected, req.State)

	require.Len(t, req.Decisions, 2)
	require.Equal(t, models.ActorAdvisor, req.Decisions[0].ActorRole)
	require.Equal(t, models.ActorDepartmentHead, req.Decisions[1].ActorRole)
}

func TestDecideHoldKeepsStateAndAppendsRationale(t *testing.T) {
	req := newRequest(models.StateDeptReview)
	_, err := Decide(req, models.ActorDepartmentHead, "dept-1", models.ActionHold, "awaiting transcript")
	require.NoError(t, err)
	require.Equal(t, models.StateDeptReview, req.State)
	require.Len(t, req.Decisions, 1)

	_, err = Decide(req, models.ActorDepartmentHead, "dept-1", models.ActionHold, "still waiting")
	require.NoError(t, err)
	require.Len(t, req.Decisions, 2, "holds keep extending the log")
}

func TestDecideStudentCancelFromEachReviewState(t *testing.T) {
	for _, state := range []models.RequestState{
		models.StateSubmitted, models.StateAdvisorReview, models.StateDeptReview,
	} {
		req := newRequest(state)
		_, err := Decide(req, models.ActorStudent, "stu-1", models.ActionCancel, "changed my mind")
		require.NoError(t, err, "cancel from %s", state)
		require.Equal(t, models.StateCancelled, req.State)
	}
}

// Requests stored under the legacy advisor_review stage name resolve
// through the submitted rows for advisor decisions; other actors gain
// nothing from the shim.
func TestDecideLegacyAdvisorReviewState(t *testing.T) {
	req := newRequest(models.StateAdvisorReview)
	_, err := Decide(req, models.ActorAdvisor, "adv-1", models.ActionRefer, "needs dept sign-off")
	require.NoError(t, err)
	require.Equal(t, models.StateDeptReview, req.State)

	req = newRequest(models.StateAdvisorReview)
	_, err = Decide(req, models.ActorDepartmentHead, "dept-1", models.ActionApprove, "")
	require.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))

	req = newRequest(models.StateAdvisorReview)
	_, err = Decide(req, models.ActorSystem, "", models.ActionApprove, "")
	require.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
}

func TestDecideSystemAutoApprove(t *testing.T) {
	req := newRequest(models.StateSubmitted)
	decision, err := Decide(req, models.ActorSystem, "", models.ActionApprove, "auto-resolved to section A2")
	require.NoError(t, err)
	require.Equal(t, models.StateApproved, req.State)
	require.Equal(t, models.ActorSystem, decision.ActorRole)
}

func TestDecideTerminalStatesRejectEverything(t *testing.T) {
	terminals := []models.RequestState{models.StateApproved, models.StateRejected, models.StateCancelled}
	actors := []models.ActorRole{models.ActorStudent, models.ActorAdvisor, models.ActorDepartmentHead, models.ActorSystem}
	actions := []models.DecisionAction{models.ActionApprove, models.ActionReject, models.ActionRefer, models.ActionHold, models.ActionCancel}

	for _, state := range terminals {
		require.True(t, state.Terminal())
		for _, actor := range actors {
			for _, action := range actions {
				req := newRequest(state)
				_, err := Decide(req, actor, "x", action, "nope")
				require.Error(t, err)
				require.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition),
					"%s/%s/%s must be illegal", state, actor, action)
				require.Equal(t, state, req.State, "state must be unchanged")
				require.Empty(t, req.Decisions, "no decision may be appended")
			}
		}
	}
}

// Exhaustive sweep: every triple not present in the transition table fails
// with ERR_ILLEGAL_TRANSITION and leaves the request untouched.
func TestDecideExhaustiveTable(t *testing.T) {
	states := []models.RequestState{
		models.StateSubmitted, models.StateAdvisorReview, models.StateDeptReview,
		models.StateApproved, models.StateRejected, models.StateCancelled,
	}
	actors := []models.ActorRole{models.ActorStudent, models.ActorAdvisor, models.ActorDepartmentHead, models.ActorSystem}
	actions := []models.DecisionAction{models.ActionApprove, models.ActionReject, models.ActionRefer, models.ActionHold, models.ActionCancel}

	for _, state := range states {
		for _, actor := range actors {
			for _, action := range actions {
				req := newRequest(state)
				_, err := Decide(req, actor, "x", action, "sweep")
				if CanTransition(state, actor, action) {
					require.NoError(t, err)
					require.Len(t, req.Decisions, 1, "exactly one decision per transition")
				} else {
					require.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
					require.Equal(t, state, req.State)
				}
			}
		}
	}
}

func TestDecideWrongActorForState(t *testing.T) {
	req := newRequest(models.StateSubmitted)
	_, err := Decide(req, models.ActorDepartmentHead, "dept-1", models.ActionApprove, "")
	require.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition),
		"department head cannot act before referral")

	req = newRequest(models.StateDeptReview)
	_, err = Decide(req, models.ActorAdvisor, "adv-1", models.ActionApprove, "")
	require.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition),
		"advisor cannot act after referral")
}
