// Package memory holds process-local implementations of the case stores.
// They back the "memory" storage driver used for local development and the
// transport tests; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
)

// Cases stores relocation cases by id. Rows are deep-copied on the way in
// and out, so callers never share a draft with the store.
type Cases struct {
	mu   sync.Mutex
	rows map[string]*model.Case
}

func NewCases() *Cases { return &Cases{rows: map[string]*model.Case{}} }

func (m *Cases) Create(_ context.Context, c *model.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[c.ID]; ok {
		return errors.New(errors.ErrCodeConflict, "case already exists")
	}
	m.rows[c.ID] = c.Clone()
	return nil
}

func (m *Cases) GetByID(_ context.Context, id string) (*model.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, errors.NotFound("case", id)
	}
	return c.Clone(), nil
}

// List applies the filter and orders by last update, newest first, with the
// id as tie breaker.
func (m *Cases) List(_ context.Context, f model.CaseFilter) ([]*model.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Case{}
	for _, c := range m.rows {
		if f.OrgID != "" && c.OrgID != f.OrgID {
			continue
		}
		if f.EmployeeID != "" && c.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*model.Case{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Cases) Update(_ context.Context, c *model.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[c.ID]; !ok {
		return errors.NotFound("case", c.ID)
	}
	m.rows[c.ID] = c.Clone()
	return nil
}

// Audit is an append-only audit log.
type Audit struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func NewAudit() *Audit { return &Audit{} }

func (m *Audit) Append(_ context.Context, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *Audit) ListByCase(_ context.Context, caseID string) ([]*model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.AuditEntry{}
	for _, e := range m.entries {
		if e.CaseID == caseID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Spend records spend entries.
type Spend struct {
	mu      sync.Mutex
	entries []model.SpendEntry
}

func NewSpend() *Spend { return &Spend{} }

func (m *Spend) Record(_ context.Context, e *model.SpendEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *Spend) Totals(_ context.Context, caseID string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, e := range m.entries {
		if e.CaseID == caseID {
			out[e.Category] += e.Amount
		}
	}
	return out, nil
}

// Exceptions stores exception requests in creation order.
type Exceptions struct {
	mu   sync.Mutex
	rows []*model.ExceptionRequest
}

func NewExceptions() *Exceptions { return &Exceptions{} }

func (m *Exceptions) Create(_ context.Context, e *model.ExceptionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *Exceptions) GetByID(_ context.Context, id string) (*model.ExceptionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, errors.NotFound("exception_request", id)
}

func (m *Exceptions) ListByCase(_ context.Context, caseID string) ([]*model.ExceptionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ExceptionRequest{}
	for _, e := range m.rows {
		if e.CaseID == caseID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Resolve closes a pending request; resolving twice is a conflict.
func (m *Exceptions) Resolve(_ context.Context, id string, status model.ExceptionStatus, resolvedBy string, note *string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ID != id {
			continue
		}
		if e.Status != model.ExceptionPending {
			return errors.New(errors.ErrCodeConflict, "exception request is no longer pending")
		}
		e.Status = status
		e.ResolvedBy = &resolvedBy
		e.ResolutionNote = note
		e.ResolvedAt = &at
		return nil
	}
	return errors.NotFound("exception_request", id)
}

// Actions records HR actions on compliance checks.
type Actions struct {
	mu   sync.Mutex
	rows []*model.ComplianceAction
}

func NewActions() *Actions { return &Actions{} }

func (m *Actions) Append(_ context.Context, a *model.ComplianceAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *Actions) ListByCase(_ context.Context, caseID string) ([]*model.ComplianceAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ComplianceAction{}
	for _, a := range m.rows {
		if a.CaseID == caseID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
