package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
)

func coverageFor(t *testing.T, view *PolicyView, category string) model.Coverage {
	t.Helper()
	for _, c := range view.Coverage {
		if c.Category == category {
			return c
		}
	}
	t.Fatalf("no coverage for %q", category)
	return model.Coverage{}
}

func TestGetPolicy_CoverageAndGate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.assignedCase(t)

	_, err := env.compSvc.RecordSpend(ctx, hrSession, &RecordSpendRequest{CaseID: c.ID, Category: "housing", Amount: 300000})
	require.NoError(t, err)
	_, err = env.compSvc.RecordSpend(ctx, hrSession, &RecordSpendRequest{CaseID: c.ID, Category: "housing", Amount: 160000})
	require.NoError(t, err)
	_, err = env.compSvc.RecordSpend(ctx, hrSession, &RecordSpendRequest{CaseID: c.ID, Category: "immigration", Amount: 400001})
	require.NoError(t, err)

	view, err := env.compSvc.GetPolicy(ctx, employeeSession, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", view.Currency)

	housing := coverageFor(t, view, "housing")
	assert.Equal(t, int64(460000), housing.Used)
	assert.Equal(t, model.CoverageNearLimit, housing.Status)
	assert.Equal(t, int64(40000), housing.Remaining)

	assert.Equal(t, model.CoverageOverLimit, coverageFor(t, view, "immigration").Status)
	assert.Equal(t, model.CoverageOnTrack, coverageFor(t, view, "schools").Status)

	assert.False(t, view.Gate.Blocked, "no compliance report yet")
	assert.True(t, view.Gate.RequiresAcknowledgement)
	assert.True(t, view.Gate.RequiresHRApproval)
	assert.NotNil(t, view.Exceptions)
}

func TestRecordSpend_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.assignedCase(t)

	_, err := env.compSvc.RecordSpend(ctx, employeeSession, &RecordSpendRequest{CaseID: c.ID, Category: "housing", Amount: 1})
	assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))

	_, err = env.compSvc.RecordSpend(ctx, hrSession, &RecordSpendRequest{CaseID: c.ID, Category: " ", Amount: 1})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	_, err = env.compSvc.RecordSpend(ctx, hrSession, &RecordSpendRequest{CaseID: c.ID, Category: "housing", Amount: 0})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}

func TestExceptionWorkflow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.assignedCase(t)

	exc, err := env.compSvc.RequestException(ctx, employeeSession, &ExceptionRequestInput{
		CaseID: c.ID, Category: "housing", Reason: "Family of five",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ExceptionPending, exc.Status)

	view, err := env.compSvc.GetPolicy(ctx, hrSession, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), coverageFor(t, view, "housing").Cap, "an exception never moves the cap")
	assert.True(t, view.Gate.RequiresHRApproval)
	assert.Len(t, view.Gate.PendingExceptions, 1)

	_, err = env.compSvc.ResolveException(ctx, employeeSession, &ResolveExceptionRequest{ExceptionID: exc.ID, Approve: true})
	assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))

	resolved, err := env.compSvc.ResolveException(ctx, hrSession, &ResolveExceptionRequest{ExceptionID: exc.ID, Approve: true, Note: "ok"})
	require.NoError(t, err)
	assert.Equal(t, model.ExceptionApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "hr-1", *resolved.ResolvedBy)

	_, err = env.compSvc.ResolveException(ctx, hrSession, &ResolveExceptionRequest{ExceptionID: exc.ID})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict))

	_, err = env.compSvc.ResolveException(ctx, otherOrgHR, &ResolveExceptionRequest{ExceptionID: exc.ID})
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))

	_, err = env.compSvc.RequestException(ctx, employeeSession, &ExceptionRequestInput{CaseID: c.ID, Category: "housing"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	assert.Contains(t, env.publisher.types(), EventExceptionResolved)
}

func TestRunCompliance(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.assignedCase(t)

	_, err := env.caseSvc.SaveDraft(ctx, employeeSession, c.ID, completeDraft())
	require.NoError(t, err)

	_, err = env.compSvc.RunCompliance(ctx, employeeSession, c.ID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeForbidden))

	report, err := env.compSvc.RunCompliance(ctx, hrSession, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, report.Summary.RiskScore)
	assert.Equal(t, fixedNow, report.GeneratedAt)
	assert.Equal(t, "Intake - In progress", report.Stage)

	stored, err := env.caseSvc.GetCase(ctx, hrSession, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ComplianceReport)

	view, err := env.compSvc.GetCompliance(ctx, employeeSession, c.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Report)
	assert.False(t, view.Gate.Blocked)
	assert.Empty(t, view.Actions)
}

func TestReportGoesStaleUntilRerun(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.assignedCase(t)

	d := completeDraft()
	d.ComplianceDocs.HasEmploymentLetter = new(bool)
	_, err := env.caseSvc.SaveDraft(ctx, employeeSession, c.ID, d)
	require.NoError(t, err)
	_, err = env.compSvc.RunCompliance(ctx, hrSession, c.ID)
	require.NoError(t, err)

	_, err = env.caseSvc.SaveDraft(ctx, employeeSession, c.ID, completeDraft())
	require.NoError(t, err)
	_, err = env.caseSvc.SubmitCase(ctx, employeeSession, c.ID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict), "the old report still blocks")

	_, err = env.compSvc.RunCompliance(ctx, hrSession, c.ID)
	require.NoError(t, err)
	_, err = env.caseSvc.SubmitCase(ctx, employeeSession, c.ID)
	assert.NoError(t, err)
}

func TestRecordComplianceAction(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.assignedCase(t)

	_, err := env.caseSvc.SaveDraft(ctx, employeeSession, c.ID, completeDraft())
	require.NoError(t, err)
	_, err = env.compSvc.RecordSpend(ctx, hrSession, &RecordSpendRequest{CaseID: c.ID, Category: "movers", Amount: 1200000})
	require.NoError(t, err)

	_, err = env.compSvc.RecordComplianceAction(ctx, hrSession, &ComplianceActionRequest{
		CaseID: c.ID, CheckID: "movers_cap", ActionType: model.ActionMarkReviewed,
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound), "no report yet")

	_, err = env.compSvc.RunCompliance(ctx, hrSession, c.ID)
	require.NoError(t, err)

	_, err = env.compSvc.RecordComplianceAction(ctx, hrSession, &ComplianceActionRequest{
		CaseID: c.ID, CheckID: "movers_cap", ActionType: "ESCALATE",
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	action, err := env.compSvc.RecordComplianceAction(ctx, hrSession, &ComplianceActionRequest{
		CaseID: c.ID, CheckID: "movers_cap", ActionType: model.ActionRequestException, Notes: "Piano",
	})
	require.NoError(t, err)
	assert.Equal(t, "hr-1", action.ActedBy)

	exceptions, err := env.exceptions.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, "movers", exceptions[0].Category)
	assert.Equal(t, "Piano", exceptions[0].Reason)
	assert.Equal(t, model.ExceptionPending, exceptions[0].Status)

	view, err := env.compSvc.GetCompliance(ctx, hrSession, c.ID)
	require.NoError(t, err)
	assert.Len(t, view.Actions, 1)
	assert.True(t, view.Gate.Blocked)
	assert.True(t, view.Gate.RequiresHRApproval)
}

func TestRecordComplianceAction_ExceptionCategory(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.assignedCase(t)

	_, err := env.caseSvc.SaveDraft(ctx, employeeSession, c.ID, completeDraft())
	require.NoError(t, err)
	_, err = env.compSvc.RunCompliance(ctx, hrSession, c.ID)
	require.NoError(t, err)

	_, err = env.compSvc.RecordComplianceAction(ctx, hrSession, &ComplianceActionRequest{
		CaseID: c.ID, CheckID: "lead_time", ActionType: model.ActionRequestException, Notes: "Urgent start",
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))

	actions, err := env.actions.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, actions, "rejected request records nothing")

	_, err = env.compSvc.RecordComplianceAction(ctx, hrSession, &ComplianceActionRequest{
		CaseID: c.ID, CheckID: "lead_time", ActionType: model.ActionRequestException,
		Category: "temporary_housing", Notes: "Urgent start",
	})
	require.NoError(t, err)

	exceptions, err := env.exceptions.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, "temporary_housing", exceptions[0].Category)

	_, err = env.compSvc.RecordComplianceAction(ctx, hrSession, &ComplianceActionRequest{
		CaseID: c.ID, CheckID: "lead_time", ActionType: model.ActionMarkReviewed,
	})
	assert.NoError(t, err, "category only matters for exception requests")
}

func TestExceptionCategory(t *testing.T) {
	assert.Equal(t, "housing", exceptionCategory("housing_cap", ""))
	assert.Equal(t, "schooling", exceptionCategory("housing_cap", " schooling "))
	assert.Equal(t, "", exceptionCategory("lead_time", ""))
	assert.Equal(t, "", exceptionCategory("_cap", ""))
}
