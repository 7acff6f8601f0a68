package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/database"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
)

// SpendRepository records spend entries against policy categories.
type SpendRepository struct {
	db *database.DB
}

// NewSpendRepository creates a new SpendRepository.
func NewSpendRepository(db *database.DB) *SpendRepository {
	return &SpendRepository{db: db}
}

// Record inserts one spend entry.
func (r *SpendRepository) Record(ctx context.Context, e *model.SpendEntry) error {
	query := `
		INSERT INTO case_spend
		    (id, case_id, category, amount, note, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
	`
	_, err := r.db.Exec(ctx, query, e.ID, e.CaseID, e.Category, e.Amount, e.Note, e.RecordedBy, e.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to record spend")
	}
	return nil
}

// Totals sums spend per category for a case.
func (r *SpendRepository) Totals(ctx context.Context, caseID string) (map[string]int64, error) {
	query := `
		SELECT category, COALESCE(SUM(amount), 0)::BIGINT
		FROM case_spend
		WHERE case_id = $1
		GROUP BY category
	`
	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to sum spend")
	}
	defer rows.Close()

	totals := map[string]int64{}
	for rows.Next() {
		var (
			category string
			amount   int64
		)
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan spend total")
		}
		totals[category] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to sum spend")
	}
	return totals, nil
}

// ExceptionRepository stores exception requests.
type ExceptionRepository struct {
	db *database.DB
}

// NewExceptionRepository creates a new ExceptionRepository.
func NewExceptionRepository(db *database.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

const exceptionColumns = `
	id, case_id, category, reason, requested_by, status,
	resolved_by, resolution_note, created_at, resolved_at
`

// Create inserts a new exception request.
func (r *ExceptionRepository) Create(ctx context.Context, e *model.ExceptionRequest) error {
	query := `
		INSERT INTO case_exception_requests
		    (id, case_id, category, reason, requested_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::exception_status, $7)
	`
	_, err := r.db.Exec(ctx, query, e.ID, e.CaseID, e.Category, e.Reason, e.RequestedBy, string(e.Status), e.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create exception request")
	}
	return nil
}

// GetByID retrieves an exception request.
func (r *ExceptionRepository) GetByID(ctx context.Context, id string) (*model.ExceptionRequest, error) {
	query := `SELECT ` + exceptionColumns + ` FROM case_exception_requests WHERE id = $1`

	e, err := scanException(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("exception_request", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get exception request")
	}
	return e, nil
}

// ListByCase returns a case's exception requests, oldest first.
func (r *ExceptionRepository) ListByCase(ctx context.Context, caseID string) ([]*model.ExceptionRequest, error) {
	query := `SELECT ` + exceptionColumns + ` FROM case_exception_requests WHERE case_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list exception requests")
	}
	defer rows.Close()

	out := []*model.ExceptionRequest{}
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan exception request")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list exception requests")
	}
	return out, nil
}

// Resolve closes a PENDING exception request. A request that was resolved
// in the meantime is reported as a conflict.
func (r *ExceptionRepository) Resolve(ctx context.Context, id string, status model.ExceptionStatus, resolvedBy string, note *string, at time.Time) error {
	query := `
		UPDATE case_exception_requests
		SET status          = $2::exception_status,
		    resolved_by     = $3,
		    resolution_note = $4,
		    resolved_at     = $5
		WHERE id = $1 AND status = 'PENDING'
	`
	tag, err := r.db.Exec(ctx, query, id, string(status), resolvedBy, note, at)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to resolve exception request")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeConflict, "exception request is no longer pending")
	}
	return nil
}

func scanException(sc rowScanner) (*model.ExceptionRequest, error) {
	e := &model.ExceptionRequest{}
	var status string
	err := sc.Scan(
		&e.ID, &e.CaseID, &e.Category, &e.Reason, &e.RequestedBy, &status,
		&e.ResolvedBy, &e.ResolutionNote, &e.CreatedAt, &e.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = model.ExceptionStatus(status)
	return e, nil
}

// ComplianceActionRepository records HR actions on compliance checks.
type ComplianceActionRepository struct {
	db *database.DB
}

// NewComplianceActionRepository creates a new ComplianceActionRepository.
func NewComplianceActionRepository(db *database.DB) *ComplianceActionRepository {
	return &ComplianceActionRepository{db: db}
}

// Append inserts one compliance action.
func (r *ComplianceActionRepository) Append(ctx context.Context, a *model.ComplianceAction) error {
	query := `
		INSERT INTO case_compliance_actions
		    (id, case_id, check_id, action_type, notes, acted_by, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
	`
	_, err := r.db.Exec(ctx, query, a.ID, a.CaseID, a.CheckID, a.ActionType, a.Notes, a.ActedBy, a.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to record compliance action")
	}
	return nil
}

// ListByCase returns a case's compliance actions, oldest first.
func (r *ComplianceActionRepository) ListByCase(ctx context.Context, caseID string) ([]*model.ComplianceAction, error) {
	query := `
		SELECT id, case_id, check_id, action_type, COALESCE(notes, ''), acted_by, created_at
		FROM case_compliance_actions
		WHERE case_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list compliance actions")
	}
	defer rows.Close()

	out := []*model.ComplianceAction{}
	for rows.Next() {
		a := &model.ComplianceAction{}
		if err := rows.Scan(&a.ID, &a.CaseID, &a.CheckID, &a.ActionType, &a.Notes, &a.ActedBy, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan compliance action")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list compliance actions")
	}
	return out, nil
}
