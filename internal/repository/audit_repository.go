package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/database"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
)

// AuditRepository appends and reads immutable case audit log entries.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry. The table has a delete-prevention trigger so
// this is the only mutation operation exposed.
func (r *AuditRepository) Append(ctx context.Context, entry *model.AuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal audit metadata")
		}
	}

	query := `
		INSERT INTO case_audit_log
		    (id, case_id, org_id,
		     action, performed_by, performed_at,
		     status_before, status_after,
		     metadata)
		VALUES ($1, $2, $3,
		        $4, $5, $6,
		        $7, $8,
		        $9)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.CaseID,
		entry.OrgID,
		entry.Action,
		entry.PerformedBy,
		entry.PerformedAt,
		statusText(entry.StatusBefore),
		statusText(entry.StatusAfter),
		metadataJSON,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append audit entry")
	}
	return nil
}

// ListByCase returns the full audit trail for a case ordered oldest-first.
func (r *AuditRepository) ListByCase(ctx context.Context, caseID string) ([]*model.AuditEntry, error) {
	query := `
		SELECT id, case_id, org_id,
		       action, performed_by, performed_at,
		       status_before, status_after,
		       metadata
		FROM case_audit_log
		WHERE case_id = $1
		ORDER BY performed_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get audit log")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *AuditRepository) scanRows(rows pgx.Rows) ([]*model.AuditEntry, error) {
	entries := []*model.AuditEntry{}
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read audit log")
	}
	return entries, nil
}

func (r *AuditRepository) scanEntry(sc rowScanner) (*model.AuditEntry, error) {
	entry := &model.AuditEntry{}
	var (
		before, after *string
		metadataJSON  []byte
	)

	err := sc.Scan(
		&entry.ID,
		&entry.CaseID,
		&entry.OrgID,
		&entry.Action,
		&entry.PerformedBy,
		&entry.PerformedAt,
		&before,
		&after,
		&metadataJSON,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan audit entry")
	}
	if before != nil {
		s := model.Status(*before)
		entry.StatusBefore = &s
	}
	if after != nil {
		s := model.Status(*after)
		entry.StatusAfter = &s
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal audit metadata")
		}
	}

	return entry, nil
}

func statusText(s *model.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
