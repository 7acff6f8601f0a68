package compliance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestCoverageStatus(t *testing.T) {
	tests := []struct {
		name  string
		used  int64
		limit int64
		want  model.CoverageStatus
	}{
		{"no spend no cap", 0, 0, model.CoverageOnTrack},
		{"spend without cap", 50000, 0, model.CoverageOnTrack},
		{"negative cap", 10, -1, model.CoverageOnTrack},
		{"over by one", 10001, 10000, model.CoverageOverLimit},
		{"near", 9500, 10000, model.CoverageNearLimit},
		{"at band edge", 9000, 10000, model.CoverageNearLimit},
		{"below band", 8999, 10000, model.CoverageOnTrack},
		{"exactly at cap", 10000, 10000, model.CoverageNearLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoverageStatus(tt.used, tt.limit, DefaultNearLimitBand))
		})
	}
}

func TestCoverageStatus_InvalidBandFallsBackToDefault(t *testing.T) {
	assert.Equal(t, model.CoverageNearLimit, CoverageStatus(9500, 10000, 0))
	assert.Equal(t, model.CoverageOnTrack, CoverageStatus(8500, 10000, 1.5))
	assert.Equal(t, model.CoverageNearLimit, CoverageStatus(8500, 10000, 0.85))
}

func TestIsBlocked_FlagNotSeverity(t *testing.T) {
	critical := model.ComplianceCheck{CheckID: "a", Status: model.CheckFail, Severity: model.SeverityCritical, Blocking: false}
	lowButBlocking := model.ComplianceCheck{CheckID: "b", Status: model.CheckWarn, Severity: model.SeverityLow, Blocking: true}

	assert.False(t, IsBlocked(nil))
	assert.False(t, IsBlocked([]model.ComplianceCheck{critical}))
	assert.True(t, IsBlocked([]model.ComplianceCheck{critical, lowButBlocking}))

	blocking := BlockingChecks([]model.ComplianceCheck{critical, lowButBlocking})
	require.Len(t, blocking, 1)
	assert.Equal(t, "b", blocking[0].CheckID)
}

func TestEvaluate(t *testing.T) {
	coverage := []model.Coverage{
		{Category: "housing", Status: model.CoverageOverLimit},
		{Category: "movers", Status: model.CoverageNearLimit},
	}
	exceptions := []model.ExceptionRequest{
		{ID: "e1", Status: model.ExceptionApproved},
		{ID: "e2", Status: model.ExceptionPending},
	}

	v := Evaluate(nil, coverage, exceptions)
	assert.False(t, v.Blocked, "coverage alone never blocks")
	assert.True(t, v.RequiresAcknowledgement)
	assert.True(t, v.RequiresHRApproval)
	require.Len(t, v.OverLimit, 1)
	assert.Equal(t, "housing", v.OverLimit[0].Category)
	require.Len(t, v.PendingExceptions, 1)
	assert.Equal(t, "e2", v.PendingExceptions[0].ID)

	v = Evaluate(nil, nil, []model.ExceptionRequest{{Status: model.ExceptionPending}})
	assert.False(t, v.RequiresAcknowledgement)
	assert.True(t, v.RequiresHRApproval)

	v = Evaluate(nil, nil, nil)
	assert.NotNil(t, v.BlockingChecks)
	assert.False(t, v.RequiresHRApproval)
}

func TestBuildCoverage(t *testing.T) {
	p := DefaultPolicy()
	items := BuildCoverage(p, map[string]int64{"housing": 600000, "movers": 950000, "pets": 1000})

	byCategory := map[string]model.Coverage{}
	for _, c := range items {
		byCategory[c.Category] = c
	}
	require.Len(t, items, 5)
	assert.Equal(t, "housing", items[0].Category, "categories are sorted")

	housing := byCategory["housing"]
	assert.Equal(t, model.CoverageOverLimit, housing.Status)
	assert.Equal(t, int64(0), housing.Remaining)
	assert.Equal(t, "USD", housing.Currency)
	assert.Equal(t, "Housing", housing.Title)

	assert.Equal(t, model.CoverageNearLimit, byCategory["movers"].Status)
	assert.Equal(t, int64(50000), byCategory["movers"].Remaining)

	pets := byCategory["pets"]
	assert.Equal(t, model.CoverageOnTrack, pets.Status)
	assert.Equal(t, int64(0), pets.Cap)
	assert.Equal(t, "pets", pets.Title)

	assert.Equal(t, model.CoverageOnTrack, byCategory["schools"].Status)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]byte(`
currency: EUR
nearLimitBand: 0.85
caps:
  housing:
    title: Housing
    amount: 300000
`))
	require.NoError(t, err)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, 0.85, p.NearLimitBand)
	assert.Equal(t, int64(300000), p.Caps["housing"].Amount)
	assert.Equal(t, 30, p.LeadTimeMinDays, "omitted keys keep defaults")
	assert.NotContains(t, p.Caps, "movers", "a caps block replaces the default caps")

	_, err = ParsePolicy([]byte("nearLimitBand: 1.2"))
	assert.Error(t, err)

	_, err = ParsePolicy([]byte("caps:\n  housing:\n    amount: -5\n"))
	assert.Error(t, err)

	_, err = ParsePolicy([]byte("caps: [oops"))
	assert.Error(t, err)
}

func TestFilePolicySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currency: GBP\n"), 0o600))

	src, err := NewFilePolicySource(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "GBP", src.Current().Currency)

	require.NoError(t, os.WriteFile(path, []byte("nearLimitBand: 7\n"), 0o600))
	src.reload()
	assert.Equal(t, "GBP", src.Current().Currency, "bad edit keeps the last good policy")

	require.NoError(t, os.WriteFile(path, []byte("currency: CHF\n"), 0o600))
	src.reload()
	assert.Equal(t, "CHF", src.Current().Currency)

	_, err = NewFilePolicySource(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	assert.Error(t, err)
}

func TestPolicySource_WatchFollowsRenameSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currency: GBP\n"), 0o600))

	src, err := NewFilePolicySource(path, zerolog.Nop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Watch(ctx))

	save := func(currency string) {
		tmp := filepath.Join(dir, ".policy.yaml.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte("currency: "+currency+"\n"), 0o600))
		require.NoError(t, os.Rename(tmp, path))
	}
	current := func() string { return src.Current().Currency }

	save("CHF")
	require.Eventually(t, func() bool { return current() == "CHF" }, 2*time.Second, 10*time.Millisecond)

	// A second rename save still reloads after the first replaced the inode.
	save("NOK")
	require.Eventually(t, func() bool { return current() == "NOK" }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("currency: SEK\n"), 0o600))
	require.Eventually(t, func() bool { return current() == "SEK" }, 2*time.Second, 10*time.Millisecond)
}

func TestPolicyEvent(t *testing.T) {
	target := filepath.Join("/etc", "relocation", "policy.yaml")
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: target, Op: fsnotify.Write}, true},
		{"create after rename", fsnotify.Event{Name: target, Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: target, Op: fsnotify.Remove}, false},
		{"chmod", fsnotify.Event{Name: target, Op: fsnotify.Chmod}, false},
		{"sibling file", fsnotify.Event{Name: filepath.Join("/etc", "relocation", "other.yaml"), Op: fsnotify.Write}, false},
		{"configmap swap", fsnotify.Event{Name: filepath.Join("/etc", "relocation", "..data"), Op: fsnotify.Create}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policyEvent(tt.event, target))
		})
	}
}

func TestPolicySource_NearLimitBandOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nearLimitBand: 0.5\n"), 0o600))

	src, err := NewFilePolicySource(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0.5, src.Current().NearLimitBand)

	src.OverrideNearLimitBand(0.8)
	assert.Equal(t, 0.8, src.Current().NearLimitBand)

	require.NoError(t, os.WriteFile(path, []byte("nearLimitBand: 0.6\ncurrency: EUR\n"), 0o600))
	src.reload()
	assert.Equal(t, "EUR", src.Current().Currency)
	assert.Equal(t, 0.8, src.Current().NearLimitBand, "override survives reloads")

	static := NewStaticPolicySource(DefaultPolicy())
	static.OverrideNearLimitBand(0)
	assert.Equal(t, DefaultNearLimitBand, static.Current().NearLimitBand)
}

var reportNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func completeDraft() model.Draft {
	return model.Draft{
		RelocationBasics: &model.RelocationBasics{
			OriginCountry: "DE", DestCountry: "US", Purpose: "Assignment", TargetMoveDate: "2026-06-01",
		},
		EmployeeProfile: &model.EmployeeProfile{
			FullName: "Ada Example", PassportExpiry: "2030-01-01",
		},
		AssignmentContext: &model.AssignmentContext{
			ContractType: "Permanent", JobTitle: "Engineer", ContractStartDate: "2026-06-01",
		},
		ComplianceDocs: &model.ComplianceDocs{
			HasPassportScans:    boolPtr(true),
			HasEmploymentLetter: boolPtr(true),
		},
	}
}

func checkByID(t *testing.T, r model.ComplianceReport, id string) model.ComplianceCheck {
	t.Helper()
	for _, c := range r.Checks {
		if c.CheckID == id {
			return c
		}
	}
	t.Fatalf("check %q not in report", id)
	return model.ComplianceCheck{}
}

func TestBuildReport_CleanCase(t *testing.T) {
	r := BuildReport(ReportInput{Draft: completeDraft(), Policy: DefaultPolicy(), Now: reportNow, Stage: "HR Review"})

	for _, c := range r.Checks {
		assert.Equal(t, model.CheckPass, c.Status, c.CheckID)
		assert.False(t, c.Blocking, c.CheckID)
	}
	assert.Equal(t, 100, r.Summary.RiskScore)
	assert.Equal(t, "Low", r.Summary.Label)
	assert.Zero(t, r.Summary.BlockingCount)
	assert.Empty(t, r.Conflicts)
	assert.Equal(t, "HR Review", r.Stage)
	assert.Equal(t, reportNow, r.GeneratedAt)
	assert.False(t, IsBlocked(r.Checks))
}

func TestBuildReport_PassportExpiresTooSoon(t *testing.T) {
	d := completeDraft()
	d.EmployeeProfile.PassportExpiry = "2026-09-01"

	r := BuildReport(ReportInput{Draft: d, Now: reportNow})
	c := checkByID(t, r, "passport_validity")
	assert.Equal(t, model.CheckFail, c.Status)
	assert.Equal(t, model.SeverityCritical, c.Severity)
	assert.True(t, c.Blocking)
	assert.Equal(t, PillarIdentity, c.Pillar)
	assert.True(t, IsBlocked(r.Checks))
	assert.Equal(t, 82, r.Summary.RiskScore)
}

func TestBuildReport_UnknownPassportWarns(t *testing.T) {
	d := completeDraft()
	d.EmployeeProfile.PassportExpiry = ""

	c := checkByID(t, BuildReport(ReportInput{Draft: d, Now: reportNow}), "passport_validity")
	assert.Equal(t, model.CheckWarn, c.Status)
	assert.False(t, c.Blocking)
}

func TestBuildReport_Documents(t *testing.T) {
	d := completeDraft()
	d.FamilyMembers = &model.FamilyMembers{
		Spouse:   &model.FamilyMember{FullName: "Sam Example"},
		Children: []model.FamilyMember{{FullName: "Kid", DateOfBirth: "2020-05-05"}},
	}
	d.ComplianceDocs.HasEmploymentLetter = boolPtr(false)
	d.ComplianceDocs.HasMarriageCertificate = boolPtr(true)

	r := BuildReport(ReportInput{Draft: d, Now: reportNow})

	letter := checkByID(t, r, "employment_letter")
	assert.Equal(t, model.CheckFail, letter.Status)
	assert.Equal(t, model.SeverityHigh, letter.Severity)
	assert.True(t, letter.Blocking)

	assert.Equal(t, model.CheckPass, checkByID(t, r, "marriage_certificate").Status)

	birth := checkByID(t, r, "birth_certificates")
	assert.Equal(t, model.CheckWarn, birth.Status)
	assert.Equal(t, model.SeverityMed, birth.Severity)
	assert.False(t, birth.Blocking)
}

func TestBuildReport_NoSpouseNoMarriageCheck(t *testing.T) {
	r := BuildReport(ReportInput{Draft: completeDraft(), Now: reportNow})
	for _, c := range r.Checks {
		assert.NotEqual(t, "marriage_certificate", c.CheckID)
		assert.NotEqual(t, "birth_certificates", c.CheckID)
	}
}

func TestBuildReport_LeadTime(t *testing.T) {
	d := completeDraft()
	d.AssignmentContext.ContractStartDate = "2026-03-15"

	r := BuildReport(ReportInput{Draft: d, Now: reportNow})
	c := checkByID(t, r, "lead_time")
	assert.Equal(t, model.CheckFail, c.Status)
	assert.Equal(t, "Lead time is 14 days; minimum is 30.", c.WhyItMatters)
	assert.True(t, c.Blocking)

	require.Len(t, r.Conflicts, 1)
	assert.Equal(t, "date_mismatch", r.Conflicts[0].ID)
}

func TestBuildReport_CoverageAndDependents(t *testing.T) {
	d := completeDraft()
	d.FamilyMembers = &model.FamilyMembers{
		Children: []model.FamilyMember{{FullName: "Kid", DateOfBirth: "2027-01-01"}},
	}
	coverage := []model.Coverage{
		{Category: "housing", Title: "Housing", Status: model.CoverageOverLimit},
		{Category: "movers", Title: "Movers & Logistics", Status: model.CoverageNearLimit},
	}
	exceptions := []model.ExceptionRequest{{Category: "housing", Status: model.ExceptionPending}}

	r := BuildReport(ReportInput{Draft: d, Coverage: coverage, Exceptions: exceptions, Now: reportNow})

	housing := checkByID(t, r, "housing_cap")
	assert.Equal(t, model.CheckFail, housing.Status)
	assert.Equal(t, model.SeverityCritical, housing.Severity)
	assert.Equal(t, PillarPolicy, housing.Pillar)
	assert.Equal(t, []string{"Mark Reviewed"}, housing.FixActions)

	movers := checkByID(t, r, "movers_cap")
	assert.Equal(t, model.CheckWarn, movers.Status)
	assert.False(t, movers.Blocking)

	dob := checkByID(t, r, "dependent_dob_0")
	assert.Equal(t, model.CheckFail, dob.Status)
	assert.Equal(t, PillarConsistency, dob.Pillar)

	assert.Equal(t, 2, r.Summary.CriticalCount)
	assert.Equal(t, 2, r.Summary.BlockingCount)
}

func TestRiskLabel(t *testing.T) {
	th := DefaultPolicy().RiskThresholds
	assert.Equal(t, "Low", RiskLabel(80, th))
	assert.Equal(t, "Moderate", RiskLabel(79, th))
	assert.Equal(t, "Moderate", RiskLabel(60, th))
	assert.Equal(t, "High", RiskLabel(59, th))

	many := make([]model.ComplianceCheck, 10)
	for i := range many {
		many[i] = model.ComplianceCheck{Status: model.CheckFail, Severity: model.SeverityCritical}
	}
	assert.Equal(t, 0, RiskScore(many))
}
