package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galleon/clash-of-courses/internal/dto"
	"github.com/galleon/clash-of-courses/internal/models"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
)

type stubSectionAdminStore struct {
	detail  models.SectionDetail
	applied bool
	set     []int
}

func (s *stubSectionAdminStore) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail := s.detail
	return &detail, nil
}

func (s *stubSectionAdminStore) OverrideCapacity(ctx context.Context, sectionID string, capacity int) (bool, error) {
	s.set = append(s.set, capacity)
	return s.applied, nil
}

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) Invalidate(ctx context.Context) { s.calls++ }

func TestOverrideCapacityInvalidatesCatalog(t *testing.T) {
	store := &stubSectionAdminStore{
		detail:  models.SectionDetail{Section: models.Section{ID: "sec-1", Capacity: 40, EnrolledCount: 28}},
		applied: true,
	}
	invalidator := &stubInvalidator{}
	audit := &stubAudit{}
	svc := NewSectionService(store, audit, invalidator, nil)

	detail, err := svc.OverrideCapacity(context.Background(), "sec-1", "head-1", dto.OverrideCapacityRequest{
		Capacity: 40, Reason: "waitlist pressure",
	})
	require.NoError(t, err)
	require.Equal(t, 40, detail.Section.Capacity)
	require.Equal(t, []int{40}, store.set)
	require.Equal(t, 1, invalidator.calls)
	require.Len(t, audit.entries, 1)
	require.Equal(t, models.AuditActionCapacityOverride, audit.entries[0].Action)
}

func TestOverrideCapacityBelowEnrolledRejected(t *testing.T) {
	store := &stubSectionAdminStore{applied: false}
	svc := NewSectionService(store, nil, nil, nil)

	_, err := svc.OverrideCapacity(context.Background(), "sec-1", "head-1", dto.OverrideCapacityRequest{
		Capacity: 5, Reason: "shrink room",
	})
	require.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestExplainRuleCoversEveryCode(t *testing.T) {
	svc := NewSectionService(&stubSectionAdminStore{}, nil, nil, nil)
	codes := []models.RuleCode{
		models.RulePrereqNotMet,
		models.RuleSectionFull,
		models.RuleHoldBlocks,
		models.RuleCreditCapExceeded,
		models.RuleTimeConflict,
		models.RuleAlreadyEnrolled,
	}
	for _, code := range codes {
		explanation, err := svc.ExplainRule(code)
		require.NoError(t, err)
		require.Equal(t, code, explanation.RuleCode)
		require.NotEmpty(t, explanation.Description)
	}

	_, err := svc.ExplainRule(models.RuleCode("NOT_A_RULE"))
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
