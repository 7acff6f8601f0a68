package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
	"github.com/pesio-ai/be-relocation-cases/internal/lifecycle"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/auth"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/logger"
)

// ComplianceService owns policy coverage, exception requests and compliance
// runs for a case.
type ComplianceService struct {
	caseCore
	spend      SpendStore
	exceptions ExceptionStore
	actions    ComplianceActionStore
	policy     PolicyProvider
}

// NewComplianceService creates a new ComplianceService.
func NewComplianceService(
	cases CaseStore,
	audit AuditStore,
	spend SpendStore,
	exceptions ExceptionStore,
	actions ComplianceActionStore,
	policy PolicyProvider,
	publisher EventPublisher,
	log *logger.Logger,
) *ComplianceService {
	return &ComplianceService{
		caseCore: caseCore{
			cases:     cases,
			audit:     audit,
			publisher: publisher,
			log:       log,
		},
		spend:      spend,
		exceptions: exceptions,
		actions:    actions,
		policy:     policy,
	}
}

// PolicyView is the coverage envelope of a case.
type PolicyView struct {
	CaseID     string                    `json:"caseId"`
	Currency   string                    `json:"currency"`
	Coverage   []model.Coverage          `json:"coverage"`
	Exceptions []*model.ExceptionRequest `json:"exceptions"`
	Gate       compliance.Verdict        `json:"gate"`
}

// ComplianceView is the stored report plus the gate verdict derived from it.
type ComplianceView struct {
	CaseID  string                    `json:"caseId"`
	Report  *model.ComplianceReport   `json:"report,omitempty"`
	Gate    compliance.Verdict        `json:"gate"`
	Actions []*model.ComplianceAction `json:"actions"`
}

// RecordSpendRequest represents a spend entry against a policy category
type RecordSpendRequest struct {
	CaseID   string
	Category string
	Amount   int64
	Note     string
}

// ExceptionRequestInput represents a request to exceed a category cap
type ExceptionRequestInput struct {
	CaseID   string
	Category string
	Reason   string
}

// ResolveExceptionRequest represents HR's answer to an exception request
type ResolveExceptionRequest struct {
	ExceptionID string
	Approve     bool
	Note        string
}

// ComplianceActionRequest represents an HR action on one compliance check
type ComplianceActionRequest struct {
	CaseID     string
	CheckID    string
	ActionType string
	Category   string // REQUEST_EXCEPTION only; defaults from a cap check id
	Notes      string
}

// ── Policy ────────────────────────────────────────────────────────────────────

// GetPolicy returns coverage per category, the case's exception requests and
// the combined gate verdict.
func (s *ComplianceService) GetPolicy(ctx context.Context, sess auth.Session, caseID string) (*PolicyView, error) {
	c, err := s.loadCase(ctx, sess, caseID)
	if err != nil {
		return nil, err
	}
	policy := s.policy.Current()
	coverage, exceptions, err := s.coverage(ctx, c.ID, policy)
	if err != nil {
		return nil, err
	}
	return &PolicyView{
		CaseID:     c.ID,
		Currency:   policy.Currency,
		Coverage:   coverage,
		Exceptions: exceptions,
		Gate:       compliance.Evaluate(reportChecks(c), coverage, derefExceptions(exceptions)),
	}, nil
}

func (s *ComplianceService) coverage(ctx context.Context, caseID string, policy *compliance.Policy) ([]model.Coverage, []*model.ExceptionRequest, error) {
	totals, err := s.spend.Totals(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	exceptions, err := s.exceptions.ListByCase(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	if exceptions == nil {
		exceptions = []*model.ExceptionRequest{}
	}
	return compliance.BuildCoverage(policy, totals), exceptions, nil
}

// RecordSpend adds an expense to a category. It never touches the cap.
func (s *ComplianceService) RecordSpend(ctx context.Context, sess auth.Session, req *RecordSpendRequest) (*model.SpendEntry, error) {
	if err := requireHR(sess); err != nil {
		return nil, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, errors.InvalidInput("category", "category is required")
	}
	if req.Amount <= 0 {
		return nil, errors.InvalidInput("amount", "amount must be positive")
	}
	c, err := s.loadCase(ctx, sess, req.CaseID)
	if err != nil {
		return nil, err
	}

	entry := &model.SpendEntry{
		ID:         uuid.NewString(),
		CaseID:     c.ID,
		Category:   category,
		Amount:     req.Amount,
		Note:       req.Note,
		RecordedBy: sess.UserID,
		CreatedAt:  s.clock(),
	}
	if err := s.spend.Record(ctx, entry); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, c, "spend_recorded", sess.UserID, nil, nil, map[string]interface{}{
		"category": category,
		"amount":   req.Amount,
	})
	return entry, nil
}

// RequestException files a PENDING exception for a category. HR or the
// assigned employee may ask.
func (s *ComplianceService) RequestException(ctx context.Context, sess auth.Session, req *ExceptionRequestInput) (*model.ExceptionRequest, error) {
	c, err := s.loadCase(ctx, sess, req.CaseID)
	if err != nil {
		return nil, err
	}
	return s.fileException(ctx, sess, c, req.Category, req.Reason)
}

func (s *ComplianceService) fileException(ctx context.Context, sess auth.Session, c *model.Case, category, reason string) (*model.ExceptionRequest, error) {
	category = strings.TrimSpace(category)
	reason = strings.TrimSpace(reason)
	if category == "" {
		return nil, errors.InvalidInput("category", "category is required")
	}
	if reason == "" {
		return nil, errors.InvalidInput("reason", "reason is required")
	}

	exc := &model.ExceptionRequest{
		ID:          uuid.NewString(),
		CaseID:      c.ID,
		Category:    category,
		Reason:      reason,
		RequestedBy: sess.UserID,
		Status:      model.ExceptionPending,
		CreatedAt:   s.clock(),
	}
	if err := s.exceptions.Create(ctx, exc); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, c, "exception_requested", sess.UserID, nil, nil, map[string]interface{}{
		"exception_id": exc.ID,
		"category":     category,
	})
	s.publish(ctx, EventExceptionRequested, c, sess.UserID, nonEmpty(c.CreatedBy), map[string]interface{}{
		"exception_id": exc.ID,
		"category":     category,
	})
	return exc, nil
}

// ResolveException approves or rejects a PENDING exception.
func (s *ComplianceService) ResolveException(ctx context.Context, sess auth.Session, req *ResolveExceptionRequest) (*model.ExceptionRequest, error) {
	if err := requireHR(sess); err != nil {
		return nil, err
	}
	if req.ExceptionID == "" {
		return nil, errors.InvalidInput("id", "exception id is required")
	}
	exc, err := s.exceptions.GetByID(ctx, req.ExceptionID)
	if err != nil {
		return nil, err
	}
	c, err := s.loadCase(ctx, sess, exc.CaseID)
	if err != nil {
		return nil, err
	}
	if exc.Status != model.ExceptionPending {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("exception is not pending (status: %s)", exc.Status))
	}

	status := model.ExceptionRejected
	if req.Approve {
		status = model.ExceptionApproved
	}
	var note *string
	if n := strings.TrimSpace(req.Note); n != "" {
		note = &n
	}
	now := s.clock()
	if err := s.exceptions.Resolve(ctx, exc.ID, status, sess.UserID, note, now); err != nil {
		return nil, err
	}
	exc.Status = status
	exc.ResolvedBy = &sess.UserID
	exc.ResolutionNote = note
	exc.ResolvedAt = &now

	s.appendAudit(ctx, c, "exception_resolved", sess.UserID, nil, nil, map[string]interface{}{
		"exception_id": exc.ID,
		"status":       string(status),
	})
	s.publish(ctx, EventExceptionResolved, c, sess.UserID, nonEmpty(exc.RequestedBy), map[string]interface{}{
		"exception_id": exc.ID,
		"status":       string(status),
	})
	return exc, nil
}

// ── Compliance ────────────────────────────────────────────────────────────────

// RunCompliance rebuilds the compliance report from the current draft and
// coverage and attaches it to the case. The report is not refreshed
// automatically when the draft changes afterwards.
func (s *ComplianceService) RunCompliance(ctx context.Context, sess auth.Session, caseID string) (*model.ComplianceReport, error) {
	if err := requireHR(sess); err != nil {
		return nil, err
	}
	c, err := s.loadCase(ctx, sess, caseID)
	if err != nil {
		return nil, err
	}

	policy := s.policy.Current()
	coverage, exceptions, err := s.coverage(ctx, c.ID, policy)
	if err != nil {
		return nil, err
	}

	report := compliance.BuildReport(compliance.ReportInput{
		Draft:      c.Draft,
		Coverage:   coverage,
		Exceptions: derefExceptions(exceptions),
		Policy:     policy,
		Stage:      lifecycle.StageLabel(c.Status),
		Now:        s.clock(),
	})
	c.ComplianceReport = &report
	c.UpdatedAt = report.GeneratedAt
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"risk_score":     report.Summary.RiskScore,
		"blocking_count": report.Summary.BlockingCount,
	}
	s.appendAudit(ctx, c, "compliance_run", sess.UserID, nil, nil, metadata)
	s.publish(ctx, EventComplianceRun, c, sess.UserID, nonEmpty(c.EmployeeID), metadata)

	s.log.Info().
		Str("case_id", c.ID).
		Int("risk_score", report.Summary.RiskScore).
		Int("blocking", report.Summary.BlockingCount).
		Msg("Compliance checks run")
	return &report, nil
}

// GetCompliance returns the last report, its gate verdict and recorded actions.
func (s *ComplianceService) GetCompliance(ctx context.Context, sess auth.Session, caseID string) (*ComplianceView, error) {
	c, err := s.loadCase(ctx, sess, caseID)
	if err != nil {
		return nil, err
	}
	coverage, exceptions, err := s.coverage(ctx, c.ID, s.policy.Current())
	if err != nil {
		return nil, err
	}
	actions, err := s.actions.ListByCase(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if actions == nil {
		actions = []*model.ComplianceAction{}
	}
	return &ComplianceView{
		CaseID:  c.ID,
		Report:  c.ComplianceReport,
		Gate:    compliance.Evaluate(reportChecks(c), coverage, derefExceptions(exceptions)),
		Actions: actions,
	}, nil
}

// RecordComplianceAction records an HR action on a check of the last report.
// REQUEST_EXCEPTION also files a PENDING exception. Its category defaults
// from a <category>_cap check id and must be given for any other check.
func (s *ComplianceService) RecordComplianceAction(ctx context.Context, sess auth.Session, req *ComplianceActionRequest) (*model.ComplianceAction, error) {
	if err := requireHR(sess); err != nil {
		return nil, err
	}
	switch req.ActionType {
	case model.ActionMarkReviewed, model.ActionRequestException, model.ActionApplyFix:
	default:
		return nil, errors.InvalidInput("action_type", "must be MARK_REVIEWED, REQUEST_EXCEPTION or APPLY_FIX")
	}
	if req.CheckID == "" {
		return nil, errors.InvalidInput("check_id", "check id is required")
	}

	c, err := s.loadCase(ctx, sess, req.CaseID)
	if err != nil {
		return nil, err
	}
	if !hasCheck(c, req.CheckID) {
		return nil, errors.NotFound("compliance_check", req.CheckID)
	}
	var category string
	if req.ActionType == model.ActionRequestException {
		category = exceptionCategory(req.CheckID, req.Category)
		if category == "" {
			return nil, errors.InvalidInput("category", "category is required for a non-cap check")
		}
	}

	action := &model.ComplianceAction{
		ID:         uuid.NewString(),
		CaseID:     c.ID,
		CheckID:    req.CheckID,
		ActionType: req.ActionType,
		Notes:      strings.TrimSpace(req.Notes),
		ActedBy:    sess.UserID,
		CreatedAt:  s.clock(),
	}
	if err := s.actions.Append(ctx, action); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, c, "compliance_action", sess.UserID, nil, nil, map[string]interface{}{
		"check_id":    req.CheckID,
		"action_type": req.ActionType,
	})

	if req.ActionType == model.ActionRequestException {
		reason := action.Notes
		if reason == "" {
			reason = "Exception requested from compliance check " + req.CheckID
		}
		if _, err := s.fileException(ctx, sess, c, category, reason); err != nil {
			return nil, err
		}
	}
	return action, nil
}

// ── Internal helpers ──────────────────────────────────────────────────────────

func exceptionCategory(checkID, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if category, ok := strings.CutSuffix(checkID, "_cap"); ok && category != "" {
		return category
	}
	return ""
}

func hasCheck(c *model.Case, checkID string) bool {
	for _, ch := range reportChecks(c) {
		if ch.CheckID == checkID {
			return true
		}
	}
	return false
}

func derefExceptions(in []*model.ExceptionRequest) []model.ExceptionRequest {
	out := make([]model.ExceptionRequest, 0, len(in))
	for _, e := range in {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}
