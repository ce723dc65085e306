package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/galleon/clash-of-courses/internal/models"
)

// RequestRepository persists registration requests, their violations, and
// their append-only decision logs.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new instance of RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create persists a new request with its recorded violations.
func (r *RequestRepository) Create(ctx context.Context, request *models.RegistrationRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = now
	}
	if request.State == "" {
		request.State = models.StateSubmitted
	}

	const query = `INSERT INTO registration_requests (id, student_id, type, from_section_id, to_section_id, reason, state, created_at, updated_at)
VALUES (:id, :student_id, :type, :from_section_id, :to_section_id, :reason, :state, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if len(request.Violations) > 0 {
		if err := r.insertViolations(ctx, request.ID, request.Violations); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns a request with violations and the full decision log.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	const query = `SELECT id, student_id, type, from_section_id, to_section_id, reason, state, created_at, updated_at
FROM registration_requests WHERE id = $1 LIMIT 1`
	var request models.RegistrationRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get request: %w", err)
	}

	violations, err := r.listViolations(ctx, id)
	if err != nil {
		return nil, err
	}
	request.Violations = violations

	decisions, err := r.ListDecisions(ctx, id)
	if err != nil {
		return nil, err
	}
	request.Decisions = decisions
	return &request, nil
}

// List returns requests matching the filter with a total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RegistrationRequest, int, error) {
	base := `FROM registration_requests WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		conditions = append(conditions, fmt.Sprintf("state = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(states))
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT id, student_id, type, from_section_id, to_section_id, reason, state, created_at, updated_at
%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, base+clause, len(args)+1, len(args)+2)
	listArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)

	requests := make([]models.RegistrationRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// UpdateState transitions a request row, guarded on the expected current
// state so concurrent deciders cannot double-apply.
func (r *RequestRepository) UpdateState(ctx context.Context, id string, from, to models.RequestState, updatedAt time.Time) (bool, error) {
	const query = `UPDATE registration_requests SET state = $3, updated_at = $4 WHERE id = $1 AND state = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, updatedAt)
	if err != nil {
		return false, fmt.Errorf("update request state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update request state result: %w", err)
	}
	return affected == 1, nil
}

// AppendDecision records one decision log entry. Entries are never
// updated or deleted.
func (r *RequestRepository) AppendDecision(ctx context.Context, decision *models.Decision) error {
	if decision.ID == "" {
		decision.ID = uuid.NewString()
	}
	if decision.DecidedAt.IsZero() {
		decision.DecidedAt = time.Now().UTC()
	}
	const query = `INSERT INTO request_decisions (id, request_id, actor_role, actor_id, action, rationale, decided_at)
VALUES (:id, :request_id, :actor_role, :actor_id, :action, :rationale, :decided_at)`
	if _, err := r.db.NamedExecContext(ctx, query, decision); err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

// ListDecisions returns the decision log for a request in decided order.
func (r *RequestRepository) ListDecisions(ctx context.Context, requestID string) ([]models.Decision, error) {
	const query = `SELECT id, request_id, actor_role, actor_id, action, rationale, decided_at
FROM request_decisions WHERE request_id = $1 ORDER BY decided_at, id`
	decisions := make([]models.Decision, 0)
	if err := r.db.SelectContext(ctx, &decisions, query, requestID); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return decisions, nil
}

// ListDecisionsByTerm returns every decision made on requests whose
// student was active in the given term, used by the decision log report.
func (r *RequestRepository) ListDecisionsByTerm(ctx context.Context, termID string) ([]models.Decision, error) {
	const query = `SELECT d.id, d.request_id, d.actor_role, d.actor_id, d.action, d.rationale, d.decided_at
FROM request_decisions d
JOIN registration_requests rr ON rr.id = d.request_id
JOIN students st ON st.id = rr.student_id
WHERE st.active_term_id = $1
ORDER BY d.decided_at, d.id`
	decisions := make([]models.Decision, 0)
	if err := r.db.SelectContext(ctx, &decisions, query, termID); err != nil {
		return nil, fmt.Errorf("list decisions by term: %w", err)
	}
	return decisions, nil
}

type violationRow struct {
	RuleCode    models.RuleCode          `db:"rule_code"`
	Severity    models.ViolationSeverity `db:"severity"`
	Description string                   `db:"description"`
	Details     []byte                   `db:"details"`
}

func (r *RequestRepository) insertViolations(ctx context.Context, requestID string, violations []models.Violation) error {
	const query = `INSERT INTO request_violations (id, request_id, rule_code, severity, description, details)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, v := range violations {
		details, err := json.Marshal(v.Details)
		if err != nil {
			return fmt.Errorf("marshal violation details: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), requestID, v.RuleCode, v.Severity, v.Description, details); err != nil {
			return fmt.Errorf("insert violation: %w", err)
		}
	}
	return nil
}

func (r *RequestRepository) listViolations(ctx context.Context, requestID string) ([]models.Violation, error) {
	const query = `SELECT rule_code, severity, description, details
FROM request_violations WHERE request_id = $1 ORDER BY id`
	rows := make([]violationRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	violations := make([]models.Violation, 0, len(rows))
	for _, row := range rows {
		v := models.Violation{
			RuleCode:    row.RuleCode,
			Severity:    row.Severity,
			Description: row.Description,
		}
		if len(row.Details) > 0 {
			if err := json.Unmarshal(row.Details, &v.Details); err != nil {
				return nil, fmt.Errorf("unmarshal violation details: %w", err)
			}
		}
		violations = append(violations, v)
	}
	return violations, nil
}
