package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
	"github.com/pesio-ai/be-relocation-cases/internal/intake"
	"github.com/pesio-ai/be-relocation-cases/internal/lifecycle"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/auth"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/logger"
)

// CaseService drives a case through intake, submission and HR decision.
type CaseService struct {
	caseCore
	memo *intake.Memo
}

// NewCaseService creates a new CaseService.
func NewCaseService(
	cases CaseStore,
	audit AuditStore,
	publisher EventPublisher,
	log *logger.Logger,
) *CaseService {
	return &CaseService{
		caseCore: caseCore{
			cases:     cases,
			audit:     audit,
			publisher: publisher,
			log:       log,
		},
		memo: intake.NewMemo(4096),
	}
}

// CreateCaseRequest represents a create case request
type CreateCaseRequest struct {
	EmployeeID    string
	EmployeeEmail string
	Draft         *model.Draft
}

// AssignCaseRequest represents an assign case request
type AssignCaseRequest struct {
	CaseID        string
	EmployeeID    string
	EmployeeEmail string
}

// DecisionRequest represents an HR decision on a submitted case
type DecisionRequest struct {
	CaseID            string
	Decision          lifecycle.Verdict
	Notes             string
	RequestedSections []string
}

// WizardView is what the intake wizard renders for one navigation attempt.
type WizardView struct {
	CaseID            string                   `json:"caseId"`
	Status            model.Status             `json:"status"`
	Stage             string                   `json:"stage"`
	Editable          bool                     `json:"editable"`
	Completion        intake.Completion        `json:"completion"`
	Navigation        intake.GuardResult       `json:"navigation"`
	Section           string                   `json:"section,omitempty"`
	Requirements      []intake.RequirementItem `json:"requirements"`
	Classification    intake.Classification    `json:"classification"`
	HRNotes           string                   `json:"hrNotes,omitempty"`
	RequestedSections []string                 `json:"requestedSections,omitempty"`
	FixActions        []lifecycle.FixAction    `json:"fixActions"`
	CanSubmit         bool                     `json:"canSubmit"`
	SubmitBlockedBy   string                   `json:"submitBlockedBy,omitempty"`
}

// ── Create / assign ───────────────────────────────────────────────────────────

// CreateCase opens a DRAFT case in the caller's organisation. When an
// employee is named the case is assigned straight away.
func (s *CaseService) CreateCase(ctx context.Context, sess auth.Session, req *CreateCaseRequest) (*model.Case, error) {
	if err := requireHR(sess); err != nil {
		return nil, err
	}
	if req.EmployeeEmail != "" {
		if _, err := mail.ParseAddress(req.EmployeeEmail); err != nil {
			return nil, errors.InvalidInput("employee_email", "invalid email address")
		}
	}

	now := s.clock()
	c := &model.Case{
		ID:        uuid.NewString(),
		OrgID:     sess.OrgID,
		CreatedBy: sess.UserID,
		Status:    model.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Draft != nil {
		c.Draft = *req.Draft
	}
	c.Completeness = s.memo.Completion(c.Draft).Completeness

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, c, "created", sess.UserID, nil, statusPtr(c.Status), nil)
	s.publish(ctx, EventCaseCreated, c, sess.UserID, nonEmpty(sess.UserID), nil)

	s.log.Info().
		Str("case_id", c.ID).
		Str("org_id", c.OrgID).
		Msg("Case created")

	if req.EmployeeID == "" {
		return c, nil
	}
	return s.assign(ctx, sess, c, req.EmployeeID, req.EmployeeEmail)
}

// AssignCase hands a DRAFT case to an employee and starts the intake.
func (s *CaseService) AssignCase(ctx context.Context, sess auth.Session, req *AssignCaseRequest) (*model.Case, error) {
	if err := requireHR(sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.EmployeeID) == "" {
		return nil, errors.InvalidInput("employee_id", "employee id is required")
	}
	if req.EmployeeEmail != "" {
		if _, err := mail.ParseAddress(req.EmployeeEmail); err != nil {
			return nil, errors.InvalidInput("employee_email", "invalid email address")
		}
	}
	c, err := s.loadCase(ctx, sess, req.CaseID)
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, sess, c, strings.TrimSpace(req.EmployeeID), req.EmployeeEmail)
}

func (s *CaseService) assign(ctx context.Context, sess auth.Session, c *model.Case, employeeID, email string) (*model.Case, error) {
	before := c.Status
	to, err := lifecycle.Transition(c.Status, lifecycle.EventAssign)
	if err != nil {
		return nil, transitionError(err)
	}

	c.EmployeeID = employeeID
	c.EmployeeEmail = email
	c.Status = to
	c.UpdatedAt = s.clock()
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, c, "assigned", sess.UserID, &before, statusPtr(to), map[string]interface{}{
		"employee_id": employeeID,
	})
	s.publish(ctx, EventCaseAssigned, c, sess.UserID, nonEmpty(employeeID), nil)

	s.log.Info().
		Str("case_id", c.ID).
		Str("employee_id", employeeID).
		Msg("Case assigned")
	return c, nil
}

// ── Read ──────────────────────────────────────────────────────────────────────

// GetCase returns a case visible to the session.
func (s *CaseService) GetCase(ctx context.Context, sess auth.Session, caseID string) (*model.Case, error) {
	return s.loadCase(ctx, sess, caseID)
}

// ListCases lists the organisation's cases for HR, and the caller's own
// cases for an employee.
func (s *CaseService) ListCases(ctx context.Context, sess auth.Session, status model.Status, limit, offset int) ([]*model.Case, error) {
	if status != "" && !lifecycle.ValidStatus(status) {
		return nil, errors.InvalidInput("status", "unknown case status")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	filter := model.CaseFilter{Status: status, Limit: limit, Offset: offset}
	switch sess.Role {
	case auth.RoleHR:
		filter.OrgID = sess.OrgID
	case auth.RoleEmployee:
		filter.EmployeeID = sess.UserID
	default:
		return nil, errors.Forbidden("unknown role")
	}
	return s.cases.List(ctx, filter)
}

// History returns the audit trail of a case.
func (s *CaseService) History(ctx context.Context, sess auth.Session, caseID string) ([]*model.AuditEntry, error) {
	if _, err := s.loadCase(ctx, sess, caseID); err != nil {
		return nil, err
	}
	return s.audit.ListByCase(ctx, caseID)
}

// ── Intake ────────────────────────────────────────────────────────────────────

// SaveDraft stores the employee's draft. Saving after HR requested changes
// resumes the intake; the HR notes stay visible until the next submission.
func (s *CaseService) SaveDraft(ctx context.Context, sess auth.Session, caseID string, draft model.Draft) (*model.Case, error) {
	c, err := s.loadCase(ctx, sess, caseID)
	if err != nil {
		return nil, err
	}
	if err := requireAssignee(sess, c); err != nil {
		return nil, err
	}
	if !lifecycle.Editable(c.Status) {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("case is not editable (status: %s)", c.Status))
	}

	before := c.Status
	if c.Status == model.StatusChangesRequested {
		to, err := lifecycle.Transition(c.Status, lifecycle.EventResume)
		if err != nil {
			return nil, transitionError(err)
		}
		c.Status = to
	}

	completion := s.memo.Completion(draft)
	c.Draft = draft
	c.Completeness = completion.Completeness
	c.UpdatedAt = s.clock()
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}

	action := "draft_saved"
	if before != c.Status {
		action = "resumed"
	}
	s.appendAudit(ctx, c, action, sess.UserID, &before, statusPtr(c.Status), map[string]interface{}{
		"completeness": completion.Completeness,
	})

	s.log.Debug().
		Str("case_id", c.ID).
		Int("completeness", completion.Completeness).
		Int("max_unlocked", completion.MaxUnlocked).
		Msg("Draft saved")
	return c, nil
}

// WizardView resolves a navigation attempt to a wizard step. Step 0 means
// "resume": the first incomplete step. Steps named by an HR change request
// stay reachable until the case is resubmitted.
func (s *CaseService) WizardView(ctx context.Context, sess auth.Session, caseID string, step int) (*WizardView, error) {
	c, err := s.loadCase(ctx, sess, caseID)
	if err != nil {
		return nil, err
	}

	completion := s.memo.Completion(c.Draft)
	if step == 0 {
		step = completion.FirstIncompleteStep()
	}

	nav := intake.Guard(step, completion.MaxUnlocked)
	fixes := []lifecycle.FixAction{}
	if len(c.RequestedSections) > 0 {
		fixes = lifecycle.FixActions(c.RequestedSections)
		for _, f := range fixes {
			if f.Step == intake.ClampStep(step) {
				nav = intake.FixTarget(step)
				break
			}
		}
	}

	eval := intake.Evaluate(c.Draft)
	view := &WizardView{
		CaseID:            c.ID,
		Status:            c.Status,
		Stage:             lifecycle.StageLabel(c.Status),
		Editable:          lifecycle.Editable(c.Status),
		Completion:        completion,
		Navigation:        nav,
		Requirements:      eval.Requirements,
		Classification:    intake.Classify(c.Draft),
		HRNotes:           c.HRNotes,
		RequestedSections: c.RequestedSections,
		FixActions:        fixes,
	}
	if nav.AllowedStep < intake.ReviewStep {
		view.Section = intake.Sections[nav.AllowedStep-1]
	}

	if err := lifecycle.CheckSubmission(c.Status, completion, reportChecks(c)); err != nil {
		view.SubmitBlockedBy = err.Error()
	} else {
		view.CanSubmit = true
	}
	return view, nil
}

// DraftEvaluation is the stateless intake assessment of a draft.
type DraftEvaluation struct {
	Completion     intake.Completion        `json:"completion"`
	MissingFields  []intake.FieldRef        `json:"missingFields"`
	Requirements   []intake.RequirementItem `json:"requirements"`
	Classification intake.Classification    `json:"classification"`
	Stage          string                   `json:"stage"`
}

// EvaluateDraft scores a draft without touching any case.
func (s *CaseService) EvaluateDraft(draft model.Draft) *DraftEvaluation {
	eval := intake.Evaluate(draft)
	return &DraftEvaluation{
		Completion:     s.memo.Completion(draft),
		MissingFields:  eval.MissingFields,
		Requirements:   eval.Requirements,
		Classification: intake.Classify(draft),
		Stage:          lifecycle.StageLabel(model.StatusInProgress),
	}
}

// ── Submit ────────────────────────────────────────────────────────────────────

// SubmitCase hands the intake to HR. It requires every section done and no
// blocking compliance check on the last report.
func (s *CaseService) SubmitCase(ctx context.Context, sess auth.Session, caseID string) (*model.Case, error) {
	c, err := s.loadCase(ctx, sess, caseID)
	if err != nil {
		return nil, err
	}
	if err := requireAssignee(sess, c); err != nil {
		return nil, err
	}

	completion := s.memo.Completion(c.Draft)
	if err := lifecycle.CheckSubmission(c.Status, completion, reportChecks(c)); err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			return nil, transitionError(err)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConflict, "case cannot be submitted")
	}

	before := c.Status
	to, err := lifecycle.Transition(c.Status, lifecycle.EventSubmit)
	if err != nil {
		return nil, transitionError(err)
	}

	now := s.clock()
	c.Status = to
	c.Completeness = completion.Completeness
	c.HRNotes = ""
	c.RequestedSections = nil
	c.SubmittedAt = &now
	c.UpdatedAt = now
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, c, "submitted", sess.UserID, &before, statusPtr(to), nil)
	s.publish(ctx, EventCaseSubmitted, c, sess.UserID, nonEmpty(c.CreatedBy), map[string]interface{}{
		"resubmission": before == model.StatusChangesRequested,
	})

	s.log.Info().
		Str("case_id", c.ID).
		Str("employee_id", sess.UserID).
		Msg("Case submitted")
	return c, nil
}

// ── HR review ─────────────────────────────────────────────────────────────────

// OpenCase moves a submitted case into HR review.
func (s *CaseService) OpenCase(ctx context.Context, sess auth.Session, caseID string) (*model.Case, error) {
	if err := requireHR(sess); err != nil {
		return nil, err
	}
	c, err := s.loadCase(ctx, sess, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.open(ctx, sess, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CaseService) open(ctx context.Context, sess auth.Session, c *model.Case) error {
	before := c.Status
	to, err := lifecycle.Transition(c.Status, lifecycle.EventOpen)
	if err != nil {
		return transitionError(err)
	}
	c.Status = to
	c.UpdatedAt = s.clock()
	if err := s.cases.Update(ctx, c); err != nil {
		return err
	}
	s.appendAudit(ctx, c, "opened", sess.UserID, &before, statusPtr(to), nil)
	s.publish(ctx, EventCaseOpened, c, sess.UserID, nonEmpty(c.EmployeeID), nil)
	return nil
}

// DecideCase applies an HR verdict. A case still waiting in
// EMPLOYEE_SUBMITTED is opened for review first.
func (s *CaseService) DecideCase(ctx context.Context, sess auth.Session, req *DecisionRequest) (*model.Case, error) {
	if err := requireHR(sess); err != nil {
		return nil, err
	}
	decision, err := lifecycle.Decide(req.Decision, req.Notes, req.RequestedSections)
	if err != nil {
		return nil, decisionError(err)
	}

	c, err := s.loadCase(ctx, sess, req.CaseID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusEmployeeSubmitted && c.Status != model.StatusHRReview {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("case is not awaiting review (status: %s)", c.Status))
	}
	if decision.Event == lifecycle.EventApprove {
		if blocking := compliance.BlockingChecks(reportChecks(c)); len(blocking) > 0 {
			return nil, errors.New(errors.ErrCodeConflict,
				fmt.Sprintf("cannot approve: %d blocking compliance check(s) unresolved", len(blocking)))
		}
	}

	// OPEN and the verdict are applied together and stored with one update.
	submitted := c.Status
	opened := false
	if c.Status == model.StatusEmployeeSubmitted {
		to, err := lifecycle.Transition(c.Status, lifecycle.EventOpen)
		if err != nil {
			return nil, transitionError(err)
		}
		c.Status = to
		opened = true
	}

	before := c.Status
	to, err := lifecycle.Transition(c.Status, decision.Event)
	if err != nil {
		return nil, transitionError(err)
	}

	now := s.clock()
	c.Status = to
	c.UpdatedAt = now
	var eventType, action string
	switch decision.Event {
	case lifecycle.EventApprove:
		c.HRNotes = ""
		c.RequestedSections = nil
		c.DecidedAt = &now
		eventType, action = EventCaseApproved, "approved"
	default:
		c.HRNotes = decision.Notes
		c.RequestedSections = decision.RequestedSections
		eventType, action = EventCaseChangesRequested, "changes_requested"
	}
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}

	if opened {
		s.appendAudit(ctx, c, "opened", sess.UserID, &submitted, statusPtr(before), nil)
		s.publish(ctx, EventCaseOpened, c, sess.UserID, nonEmpty(c.EmployeeID), nil)
	}

	metadata := map[string]interface{}{}
	if decision.Notes != "" {
		metadata["notes"] = decision.Notes
	}
	if len(decision.RequestedSections) > 0 {
		metadata["requested_sections"] = decision.RequestedSections
	}
	s.appendAudit(ctx, c, action, sess.UserID, &before, statusPtr(to), metadata)
	s.publish(ctx, eventType, c, sess.UserID, nonEmpty(c.EmployeeID), metadata)

	s.log.Info().
		Str("case_id", c.ID).
		Str("decision", string(req.Decision)).
		Str("status", string(c.Status)).
		Msg("Case decided")
	return c, nil
}

// ── Internal helpers ──────────────────────────────────────────────────────────

func reportChecks(c *model.Case) []model.ComplianceCheck {
	if c.ComplianceReport == nil {
		return nil
	}
	return c.ComplianceReport.Checks
}

func transitionError(err error) error {
	return errors.Wrap(err, errors.ErrCodeConflict, "invalid case status transition")
}

func decisionError(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrNothingToFix):
		return errors.InvalidInput("notes", "provide notes or at least one section to fix")
	case errors.Is(err, lifecycle.ErrUnknownSection):
		return errors.InvalidInput("requested_sections", err.Error())
	case errors.Is(err, lifecycle.ErrUnknownVerdict):
		return errors.InvalidInput("decision", err.Error())
	}
	return err
}
