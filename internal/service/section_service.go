package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/galleon/clash-of-courses/internal/dto"
	"github.com/galleon/clash-of-courses/internal/models"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
)

type sectionAdminStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	OverrideCapacity(ctx context.Context, sectionID string, capacity int) (bool, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// SectionService covers administrative section operations and reviewer
// rule documentation.
type SectionService struct {
	sections  sectionAdminStore
	audit     auditLogger
	catalog   cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs the service.
func NewSectionService(sections sectionAdminStore, audit auditLogger, catalog cacheInvalidator, logger *zap.Logger) *SectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{sections: sections, audit: audit, catalog: catalog, validator: validator.New(), logger: logger}
}

// OverrideCapacity sets a new capacity for a section. The new value may
// never drop below the current enrolled count.
func (s *SectionService) OverrideCapacity(ctx context.Context, sectionID, actorID string, req dto.OverrideCapacityRequest) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	applied, err := s.sections.OverrideCapacity(ctx, sectionID, req.Capacity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to override capacity")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity cannot drop below the current enrolled count")
	}

	detail, err := s.sections.FindDetailByID(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload section")
	}

	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	if s.audit != nil {
		entry := &models.AuditLog{
			Action:   models.AuditActionCapacityOverride,
			Resource: "section",
		}
		entry.UserID = &actorID
		entry.ResourceID = &sectionID
		if err := s.audit.Create(ctx, entry); err != nil {
			s.logger.Warn("audit write failed", zap.String("section_id", sectionID), zap.Error(err))
		}
	}
	return detail, nil
}

// ruleCatalog documents every business rule the engine enforces, keyed by
// the code reviewers see on violations.
var ruleCatalog = map[models.RuleCode]dto.ExplainRuleResponse{
	models.RulePrereqNotMet: {
		RuleCode:    models.RulePrereqNotMet,
		Title:       "Prerequisites not met",
		Description: "Every prerequisite course must be completed, not merely enrolled in, before attaching to any section of the course.",
	},
	models.RuleSectionFull: {
		RuleCode:    models.RuleSectionFull,
		Title:       "Section full",
		Description: "The section has no remaining seats. Capacity can be raised by a department head override.",
	},
	models.RuleHoldBlocks: {
		RuleCode:    models.RuleHoldBlocks,
		Title:       "Registration hold",
		Description: "Suspended academic standing or an outstanding balance blocks all registration until cleared. Exempt financial status lifts the balance hold.",
	},
	models.RuleCreditCapExceeded: {
		RuleCode:    models.RuleCreditCapExceeded,
		Title:       "Credit cap exceeded",
		Description: "Adding the course would push the student past the per-term credit ceiling.",
	},
	models.RuleTimeConflict: {
		RuleCode:    models.RuleTimeConflict,
		Title:       "Time conflict",
		Description: "A meeting of the target section overlaps a meeting the student already attends. Back-to-back meetings do not conflict.",
	},
	models.RuleAlreadyEnrolled: {
		RuleCode:    models.RuleAlreadyEnrolled,
		Title:       "Already enrolled",
		Description: "The student holds an active enrollment in another section of the same course. Use a section change instead.",
	},
}

// ExplainRule returns reviewer-facing documentation for a rule code.
func (s *SectionService) ExplainRule(code models.RuleCode) (*dto.ExplainRuleResponse, error) {
	explanation, ok := ruleCatalog[code]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown rule code")
	}
	return &explanation, nil
}
