package models

// RuleCode identifies a registration business rule.
type RuleCode string

// Rule codes emitted by the eligibility checker and conflict detector.
const (
	RulePrereqNotMet      RuleCode = "PREREQ_NOT_MET"
	RuleSectionFull       RuleCode = "SECTION_FULL"
	RuleHoldBlocks        RuleCode = "HOLD_BLOCKS_REGISTRATION"
	RuleCreditCapExceeded RuleCode = "CREDIT_CAP_EXCEEDED"
	RuleTimeConflict      RuleCode = "TIME_CONFLICT"
	RuleAlreadyEnrolled   RuleCode = "ALREADY_ENROLLED"
)

// ViolationSeverity grades a violation.
type ViolationSeverity string

// Possible severities.
const (
	SeverityError   ViolationSeverity = "error"
	SeverityWarning ViolationSeverity = "warning"
)

// Violation is an expected business outcome, returned as data rather than
// raised as an error so callers can surface every violation at once. It is
// only ever attached to an eligibility result or a registration request.
type Violation struct {
	RuleCode    RuleCode               `db:"rule_code" json:"rule_code"`
	Severity    ViolationSeverity      `db:"severity" json:"severity"`
	Description string                 `db:"description" json:"description"`
	Details     map[string]interface{} `db:"-" json:"details,omitempty"`
}
