package engine

import (
	"time"

	"github.com/galleon/clash-of-courses/internal/models"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
)

type transitionKey struct {
	State  models.RequestState
	Actor  models.ActorRole
	Action models.DecisionAction
}

// transitions is the single authoritative table of legal request
// transitions. Any (state, actor, action) triple absent from the table is
// illegal. Holds at department review keep the state but still append a
// decision; students may cancel from any non-terminal state.
var transitions = map[transitionKey]models.RequestState{
	{models.StateSubmitted, models.ActorAdvisor, models.ActionApprove}: models.StateApproved,
	{models.StateSubmitted, models.ActorAdvisor, models.ActionReject}:  models.StateRejected,
	{models.StateSubmitted, models.ActorAdvisor, models.ActionRefer}:   models.StateDeptReview,

	{models.StateDeptReview, models.ActorDepartmentHead, models.ActionApprove}: models.StateApproved,
	{models.StateDeptReview, models.ActorDepartmentHead, models.ActionReject}:  models.StateRejected,
	{models.StateDeptReview, models.ActorDepartmentHead, models.ActionHold}:    models.StateDeptReview,

	{models.StateSubmitted, models.ActorStudent, models.ActionCancel}:     models.StateCancelled,
	{models.StateAdvisorReview, models.ActorStudent, models.ActionCancel}: models.StateCancelled,
	{models.StateDeptReview, models.ActorStudent, models.ActionCancel}:    models.StateCancelled,

	// Auto-resolution: the system approves a fresh request outright when
	// the only violations were time conflicts and an alternative was found,
	// or when the check was clean.
	{models.StateSubmitted, models.ActorSystem, models.ActionApprove}: models.StateApproved,
}

// lookup resolves a triple against the table. Rows persisted under the
// legacy advisor_review stage name resolve through the submitted rows for
// advisor decisions, a storage-migration shim rather than extra table rows.
func lookup(state models.RequestState, actor models.ActorRole, action models.DecisionAction) (models.RequestState, bool) {
	next, ok := transitions[transitionKey{state, actor, action}]
	if !ok && state == models.StateAdvisorReview && actor == models.ActorAdvisor {
		next, ok = transitions[transitionKey{models.StateSubmitted, actor, action}]
	}
	return next, ok
}

// CanTransition reports whether the triple resolves to a legal transition.
func CanTransition(state models.RequestState, actor models.ActorRole, action models.DecisionAction) bool {
	_, ok := lookup(state, actor, action)
	return ok
}

// Decide applies one decision to the request. On a legal transition the
// request state advances and an immutable Decision is appended to the log;
// otherwise ErrIllegalTransition is returned and the request is untouched.
// The log is append-only: decisions are never rewritten or removed.
func Decide(req *models.RegistrationRequest, actor models.ActorRole, actorID string, action models.DecisionAction, rationale string) (models.Decision, error) {
	next, ok := lookup(req.State, actor, action)
	if !ok {
		return models.Decision{}, appErrors.Clone(appErrors.ErrIllegalTransition,
			"illegal transition: "+string(req.State)+"/"+string(actor)+"/"+string(action))
	}

	now := time.Now().UTC()
	decision := models.Decision{
		RequestID: req.ID,
		ActorRole: actor,
		ActorID:   actorID,
		Action:    action,
		Rationale: rationale,
		DecidedAt: now,
	}
	req.State = next
	req.UpdatedAt = now
	req.Decisions = append(req.Decisions, decision)
	return decision, nil
}
