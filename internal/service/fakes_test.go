package service

import (
	"context"
	"sync"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
	"github.com/pesio-ai/be-relocation-cases/internal/repository/memory"
)

// memAudit can be switched into a failing mode.
type memAudit struct {
	*memory.Audit
	fail bool
}

func (m *memAudit) Append(ctx context.Context, e *model.AuditEntry) error {
	if m.fail {
		return errors.New(errors.ErrCodeInternal, "audit unavailable")
	}
	return m.Audit.Append(ctx, e)
}

func (m *memAudit) actions(caseID string) []string {
	entries, _ := m.ListByCase(context.Background(), caseID)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

type publishedEvent struct {
	eventType  string
	caseID     string
	recipients []string
}

type memPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *memPublisher) PublishCaseEvent(_ context.Context, eventType, caseID, _, _ string, recipients []string, _ map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{eventType: eventType, caseID: caseID, recipients: recipients})
}

func (m *memPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.eventType)
	}
	return out
}

type staticPolicy struct{ p *compliance.Policy }

func (s staticPolicy) Current() *compliance.Policy { return s.p }

// failingCases rejects Update once failUpdate is set.
type failingCases struct {
	*memory.Cases
	failUpdate bool
}

func (f *failingCases) Update(ctx context.Context, c *model.Case) error {
	if f.failUpdate {
		return errors.New(errors.ErrCodeInternal, "db down")
	}
	return f.Cases.Update(ctx, c)
}
