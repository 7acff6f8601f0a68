package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/database"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
)

// CaseRepository stores relocation cases. The draft and the compliance
// report are JSONB documents on the case row.
type CaseRepository struct {
	db *database.DB
}

// NewCaseRepository creates a new CaseRepository.
func NewCaseRepository(db *database.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

const caseColumns = `
	id, org_id, created_by,
	COALESCE(employee_id, ''), COALESCE(employee_email, ''),
	status, draft, completeness,
	COALESCE(hr_notes, ''), requested_sections,
	compliance_report,
	submitted_at, decided_at,
	created_at, updated_at
`

// Create inserts a new case.
func (r *CaseRepository) Create(ctx context.Context, c *model.Case) error {
	draftJSON, reportJSON, err := marshalCaseDocs(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO relocation_cases
		    (id, org_id, created_by,
		     employee_id, employee_email,
		     status, draft, completeness,
		     hr_notes, requested_sections,
		     compliance_report,
		     submitted_at, decided_at,
		     created_at, updated_at)
		VALUES ($1, $2, $3,
		        NULLIF($4, ''), NULLIF($5, ''),
		        $6::case_status, $7, $8,
		        NULLIF($9, ''), $10,
		        $11,
		        $12, $13,
		        $14, $15)
	`

	_, err = r.db.Exec(ctx, query,
		c.ID, c.OrgID, c.CreatedBy,
		c.EmployeeID, c.EmployeeEmail,
		string(c.Status), draftJSON, c.Completeness,
		c.HRNotes, nonNilStrings(c.RequestedSections),
		reportJSON,
		c.SubmittedAt, c.DecidedAt,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create case")
	}
	return nil
}

// GetByID retrieves a case by its primary key.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*model.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM relocation_cases WHERE id = $1`

	c, err := r.scanCase(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("case", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get case")
	}
	return c, nil
}

// List returns cases matching the filter, newest first.
func (r *CaseRepository) List(ctx context.Context, filter model.CaseFilter) ([]*model.Case, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.OrgID != "" {
		add("org_id = $%d", filter.OrgID)
	}
	if filter.EmployeeID != "" {
		add("employee_id = $%d", filter.EmployeeID)
	}
	if filter.Status != "" {
		add("status = $%d::case_status", string(filter.Status))
	}

	query := `SELECT ` + caseColumns + ` FROM relocation_cases`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list cases")
	}
	defer rows.Close()

	cases := []*model.Case{}
	for rows.Next() {
		c, err := r.scanCase(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan case")
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list cases")
	}
	return cases, nil
}

// Update overwrites every mutable column of a case. There is no version
// check: concurrent writers race and the last one wins.
func (r *CaseRepository) Update(ctx context.Context, c *model.Case) error {
	draftJSON, reportJSON, err := marshalCaseDocs(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE relocation_cases
		SET employee_id        = NULLIF($2, ''),
		    employee_email     = NULLIF($3, ''),
		    status             = $4::case_status,
		    draft              = $5,
		    completeness       = $6,
		    hr_notes           = NULLIF($7, ''),
		    requested_sections = $8,
		    compliance_report  = $9,
		    submitted_at       = $10,
		    decided_at         = $11,
		    updated_at         = $12
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		c.ID,
		c.EmployeeID, c.EmployeeEmail,
		string(c.Status), draftJSON, c.Completeness,
		c.HRNotes, nonNilStrings(c.RequestedSections),
		reportJSON,
		c.SubmittedAt, c.DecidedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update case")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("case", c.ID)
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *CaseRepository) scanCase(sc rowScanner) (*model.Case, error) {
	c := &model.Case{}
	var (
		status     string
		draftJSON  []byte
		reportJSON []byte
	)

	err := sc.Scan(
		&c.ID, &c.OrgID, &c.CreatedBy,
		&c.EmployeeID, &c.EmployeeEmail,
		&status, &draftJSON, &c.Completeness,
		&c.HRNotes, &c.RequestedSections,
		&reportJSON,
		&c.SubmittedAt, &c.DecidedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = model.Status(status)

	if len(draftJSON) > 0 {
		if err := json.Unmarshal(draftJSON, &c.Draft); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
		}
	}
	if len(reportJSON) > 0 {
		c.ComplianceReport = &model.ComplianceReport{}
		if err := json.Unmarshal(reportJSON, c.ComplianceReport); err != nil {
			return nil, fmt.Errorf("failed to unmarshal compliance report: %w", err)
		}
	}
	return c, nil
}

func marshalCaseDocs(c *model.Case) (draftJSON, reportJSON []byte, err error) {
	draftJSON, err = json.Marshal(c.Draft)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal draft")
	}
	if c.ComplianceReport != nil {
		reportJSON, err = json.Marshal(c.ComplianceReport)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal compliance report")
		}
	}
	return draftJSON, reportJSON, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
