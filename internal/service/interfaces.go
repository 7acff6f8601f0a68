package service

import (
	"context"
	"time"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// CaseStore persists cases. Update overwrites the whole row; the last write
// wins.
type CaseStore interface {
	Create(ctx context.Context, c *model.Case) error
	GetByID(ctx context.Context, id string) (*model.Case, error)
	List(ctx context.Context, filter model.CaseFilter) ([]*model.Case, error)
	Update(ctx context.Context, c *model.Case) error
}

// AuditStore is the append-only case history.
type AuditStore interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
	ListByCase(ctx context.Context, caseID string) ([]*model.AuditEntry, error)
}

// SpendStore records spend against policy categories.
type SpendStore interface {
	Record(ctx context.Context, entry *model.SpendEntry) error
	Totals(ctx context.Context, caseID string) (map[string]int64, error)
}

// ExceptionStore holds exception requests.
type ExceptionStore interface {
	Create(ctx context.Context, e *model.ExceptionRequest) error
	GetByID(ctx context.Context, id string) (*model.ExceptionRequest, error)
	ListByCase(ctx context.Context, caseID string) ([]*model.ExceptionRequest, error)
	Resolve(ctx context.Context, id string, status model.ExceptionStatus, resolvedBy string, note *string, at time.Time) error
}

// ComplianceActionStore records HR actions taken on compliance checks.
type ComplianceActionStore interface {
	Append(ctx context.Context, a *model.ComplianceAction) error
	ListByCase(ctx context.Context, caseID string) ([]*model.ComplianceAction, error)
}

// EventPublisher announces case events. Implementations must not fail the
// caller; a nil publisher is allowed.
type EventPublisher interface {
	PublishCaseEvent(ctx context.Context, eventType, caseID, orgID, actorID string, recipients []string, payload map[string]interface{})
}

// PolicyProvider serves the active relocation policy.
type PolicyProvider interface {
	Current() *compliance.Policy
}
