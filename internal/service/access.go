package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/auth"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/logger"
)

// Event types published to the notification stream.
const (
	EventCaseCreated          = "case_created"
	EventCaseAssigned         = "case_assigned"
	EventCaseSubmitted        = "case_submitted"
	EventCaseOpened           = "case_opened"
	EventCaseApproved         = "case_approved"
	EventCaseChangesRequested = "case_changes_requested"
	EventExceptionRequested   = "exception_requested"
	EventExceptionResolved    = "exception_resolved"
	EventComplianceRun        = "compliance_run"
)

// caseCore is shared by the case and compliance services.
type caseCore struct {
	cases     CaseStore
	audit     AuditStore
	publisher EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

func (s *caseCore) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// loadCase fetches a case and checks the session may see it. HR sees its
// organisation's cases; an employee sees only cases assigned to them.
func (s *caseCore) loadCase(ctx context.Context, sess auth.Session, caseID string) (*model.Case, error) {
	if caseID == "" {
		return nil, errors.InvalidInput("id", "case id is required")
	}
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := canView(sess, c); err != nil {
		return nil, err
	}
	return c, nil
}

func canView(sess auth.Session, c *model.Case) error {
	switch sess.Role {
	case auth.RoleHR:
		if c.OrgID == sess.OrgID {
			return nil
		}
	case auth.RoleEmployee:
		if c.EmployeeID != "" && c.EmployeeID == sess.UserID {
			return nil
		}
	}
	return errors.NotFound("case", c.ID)
}

func requireHR(sess auth.Session) error {
	if !sess.IsHR() {
		return errors.Forbidden("HR role required")
	}
	return nil
}

func requireAssignee(sess auth.Session, c *model.Case) error {
	if !sess.IsEmployee() || c.EmployeeID != sess.UserID {
		return errors.Forbidden("only the assigned employee may do this")
	}
	return nil
}

// appendAudit writes an audit entry and logs a warning on failure (never returns error).
func (s *caseCore) appendAudit(ctx context.Context, c *model.Case, action, actor string, before, after *model.Status, metadata map[string]interface{}) {
	entry := &model.AuditEntry{
		ID:           uuid.NewString(),
		CaseID:       c.ID,
		OrgID:        c.OrgID,
		Action:       action,
		PerformedBy:  actor,
		PerformedAt:  s.clock(),
		StatusBefore: before,
		StatusAfter:  after,
		Metadata:     metadata,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("case_id", c.ID).
			Str("action", action).
			Msg("Failed to write audit log entry")
	}
}

func (s *caseCore) publish(ctx context.Context, eventType string, c *model.Case, actor string, recipients []string, payload map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishCaseEvent(ctx, eventType, c.ID, c.OrgID, actor, recipients, payload)
}

func statusPtr(s model.Status) *model.Status { return &s }

func nonEmpty(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
