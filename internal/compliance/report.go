package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// Pillars group checks on the compliance screen.
const (
	PillarIdentity    = "Identity & Documents"
	PillarTimeline    = "Timeline & Lead Time"
	PillarEmployment  = "Employment & Assignment"
	PillarPolicy      = "Policy / Package Compliance"
	PillarConsistency = "Consistency & Data Integrity"
)

const (
	ownerEmployee = "Employee"
	ownerHR       = "HR"

	fixUpload           = "Upload Document"
	fixAskEmployee      = "Ask Employee"
	fixRequestException = "Request Exception"
	fixMarkReviewed     = "Mark Reviewed"
)

const dateLayout = "2006-01-02"

// ReportInput is everything a compliance run looks at.
type ReportInput struct {
	Draft      model.Draft
	Coverage   []model.Coverage
	Exceptions []model.ExceptionRequest
	Policy     *Policy
	Stage      string
	Now        time.Time
}

// BuildReport derives the check list and risk summary for a case. It is the
// only place the blocking flag is set.
func BuildReport(in ReportInput) model.ComplianceReport {
	policy := in.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	today := truncateDay(now)
	d := in.Draft

	var (
		moveDate, startDate, passportExpiry *time.Time
		roleTitle                           string
	)
	if d.RelocationBasics != nil {
		moveDate = parseDate(d.RelocationBasics.TargetMoveDate)
	}
	if d.AssignmentContext != nil {
		startDate = parseDate(d.AssignmentContext.ContractStartDate)
		roleTitle = strings.TrimSpace(d.AssignmentContext.JobTitle)
	}
	if d.EmployeeProfile != nil {
		passportExpiry = parseDate(d.EmployeeProfile.PassportExpiry)
	}

	checks := documentChecks(d, policy.DocumentRequirements)
	checks = append(checks, passportValidityCheck(passportExpiry, moveDate, policy.PassportValidityDays))

	planned := startDate
	if planned == nil {
		planned = moveDate
	}
	checks = append(checks, leadTimeCheck(planned, today, policy.LeadTimeMinDays))

	conflicts := []model.ConsistencyConflict{}
	if startDate != nil && moveDate != nil && !startDate.Equal(*moveDate) {
		conflicts = append(conflicts, model.ConsistencyConflict{
			ID:    "date_mismatch",
			Title: "Start date mismatch",
			Details: map[string]string{
				"contractStartDate": startDate.Format(dateLayout),
				"targetMoveDate":    moveDate.Format(dateLayout),
			},
		})
	}

	checks = append(checks, presenceCheck("role_title", "Role/title provided", roleTitle, ownerHR))

	for _, item := range in.Coverage {
		checks = append(checks, coverageCheck(item, in.Exceptions))
	}

	if d.FamilyMembers != nil {
		for i, child := range d.FamilyMembers.Children {
			dob := parseDate(child.DateOfBirth)
			if dob != nil && dob.After(today) {
				checks = append(checks, newCheck(fmt.Sprintf("dependent_dob_%d", i), PillarConsistency,
					"Dependent birth date in future", model.CheckFail, model.SeverityCritical, "LOW", ownerHR,
					"DOB must be in the past.", []string{"Dependent documentation"}, []string{fixMarkReviewed}))
			}
		}
	}

	return model.ComplianceReport{
		Checks:      checks,
		Conflicts:   conflicts,
		Summary:     summarize(checks, policy.RiskThresholds),
		Stage:       in.Stage,
		GeneratedAt: now,
	}
}

// RiskScore starts at 100 and deducts 18 per critical failure, 12 per other
// failure and 6 per warning, clamped to 0..100.
func RiskScore(checks []model.ComplianceCheck) int {
	score := 100
	for _, c := range checks {
		switch c.Status {
		case model.CheckFail:
			if c.Severity == model.SeverityCritical {
				score -= 18
			} else {
				score -= 12
			}
		case model.CheckWarn:
			score -= 6
		}
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RiskLabel maps a score onto Low, Moderate or High.
func RiskLabel(score int, t RiskThresholds) string {
	switch {
	case score >= t.Low:
		return "Low"
	case score >= t.Moderate:
		return "Moderate"
	default:
		return "High"
	}
}

func summarize(checks []model.ComplianceCheck, t RiskThresholds) model.ReportSummary {
	score := RiskScore(checks)
	s := model.ReportSummary{RiskScore: score, Label: RiskLabel(score, t)}
	for _, c := range checks {
		if c.Severity == model.SeverityCritical {
			s.CriticalCount++
		}
		if c.Blocking {
			s.BlockingCount++
		}
	}
	return s
}

type documentKey struct {
	id    string
	value func(*model.ComplianceDocs) *bool
}

var documentKeys = map[string]documentKey{
	"Passport scans":       {"passport_scans", func(d *model.ComplianceDocs) *bool { return d.HasPassportScans }},
	"Employment letter":    {"employment_letter", func(d *model.ComplianceDocs) *bool { return d.HasEmploymentLetter }},
	"Marriage certificate": {"marriage_certificate", func(d *model.ComplianceDocs) *bool { return d.HasMarriageCertificate }},
	"Birth certificates":   {"birth_certificates", func(d *model.ComplianceDocs) *bool { return d.HasBirthCertificates }},
	"Bank statements":      {"bank_statements", func(d *model.ComplianceDocs) *bool { return d.HasBankStatements }},
}

func documentChecks(d model.Draft, req DocumentRequirements) []model.ComplianceCheck {
	required := append([]string{}, req.Base...)
	if f := d.FamilyMembers; f != nil {
		if f.Spouse != nil && strings.TrimSpace(f.Spouse.FullName) != "" {
			required = append(required, req.Married...)
		}
		if len(f.Children) > 0 {
			required = append(required, req.Children...)
		}
	}

	checks := make([]model.ComplianceCheck, 0, len(required))
	seen := make(map[string]bool, len(required))
	for _, label := range required {
		if seen[label] {
			continue
		}
		seen[label] = true

		key, ok := documentKeys[label]
		if !ok {
			key = documentKey{id: "doc_" + slug(label)}
		}
		var value *bool
		if d.ComplianceDocs != nil && key.value != nil {
			value = key.value(d.ComplianceDocs)
		}
		checks = append(checks, documentCheck(key.id, label, value))
	}
	return checks
}

func documentCheck(id, label string, value *bool) model.ComplianceCheck {
	evidence := []string{label}
	switch {
	case value == nil:
		return newCheck(id, PillarIdentity, label+" status unknown", model.CheckWarn, model.SeverityMed, "LOW",
			ownerEmployee, label+" status not provided.", evidence, []string{fixAskEmployee})
	case *value:
		return newCheck(id, PillarIdentity, label+" provided", model.CheckPass, model.SeverityLow, "HIGH",
			ownerEmployee, label+" has been uploaded.", evidence, nil)
	default:
		return newCheck(id, PillarIdentity, label+" missing", model.CheckFail, model.SeverityHigh, "MED",
			ownerEmployee, label+" is required but missing.", evidence, []string{fixUpload, fixAskEmployee})
	}
}

func passportValidityCheck(expiry, move *time.Time, validityDays int) model.ComplianceCheck {
	const title = "Valid Passport (6+ months)"
	evidence := []string{"Passport scan"}
	if expiry == nil || move == nil {
		return newCheck("passport_validity", PillarIdentity, title, model.CheckWarn, model.SeverityMed, "LOW",
			ownerEmployee, "Passport validity must extend 6 months beyond entry.", evidence, []string{fixAskEmployee})
	}
	if expiry.Before(move.AddDate(0, 0, validityDays)) {
		return newCheck("passport_validity", PillarIdentity, title, model.CheckFail, model.SeverityCritical, "HIGH",
			ownerEmployee, "Passport expires too soon after intended entry.", evidence, []string{fixUpload, fixAskEmployee})
	}
	return newCheck("passport_validity", PillarIdentity, title, model.CheckPass, model.SeverityLow, "HIGH",
		ownerEmployee, "Passport validity meets policy requirement.", evidence, nil)
}

func leadTimeCheck(planned *time.Time, today time.Time, minDays int) model.ComplianceCheck {
	const title = "Minimum lead time"
	evidence := []string{"Assignment dates"}
	if planned == nil {
		return newCheck("lead_time", PillarTimeline, title, model.CheckWarn, model.SeverityMed, "LOW",
			ownerHR, "Planned start/arrival date missing.", evidence, []string{fixAskEmployee})
	}
	days := int(planned.Sub(today).Hours() / 24)
	if days < minDays {
		return newCheck("lead_time", PillarTimeline, title, model.CheckFail, model.SeverityHigh, "MED",
			ownerHR, fmt.Sprintf("Lead time is %d days; minimum is %d.", days, minDays), evidence,
			[]string{fixRequestException, fixAskEmployee})
	}
	return newCheck("lead_time", PillarTimeline, title, model.CheckPass, model.SeverityLow, "MED",
		ownerHR, fmt.Sprintf("Lead time is %d days; meets minimum %d.", days, minDays), evidence, nil)
}

func presenceCheck(id, title, value, owner string) model.ComplianceCheck {
	if value != "" {
		return newCheck(id, PillarEmployment, title, model.CheckPass, model.SeverityLow, "HIGH", owner, "Provided.", nil, nil)
	}
	return newCheck(id, PillarEmployment, title, model.CheckWarn, model.SeverityMed, "LOW", owner, "Missing detail.", nil,
		[]string{fixAskEmployee})
}

func coverageCheck(item model.Coverage, exceptions []model.ExceptionRequest) model.ComplianceCheck {
	id := item.Category + "_cap"
	evidence := []string{item.Title + " cap"}
	switch item.Status {
	case model.CoverageOverLimit:
		fix := fixRequestException
		if hasPendingException(exceptions, item.Category) {
			fix = fixMarkReviewed
		}
		return newCheck(id, PillarPolicy, item.Title+" over policy cap", model.CheckFail, model.SeverityCritical, "HIGH",
			ownerHR, "Category spend exceeds policy cap.", evidence, []string{fix})
	case model.CoverageNearLimit:
		return newCheck(id, PillarPolicy, item.Title+" near policy cap", model.CheckWarn, model.SeverityMed, "MED",
			ownerHR, "Category spend approaching policy cap.", evidence, []string{fixRequestException})
	default:
		return newCheck(id, PillarPolicy, item.Title+" within policy cap", model.CheckPass, model.SeverityLow, "HIGH",
			ownerHR, "Category spend within cap.", evidence, nil)
	}
}

func hasPendingException(exceptions []model.ExceptionRequest, category string) bool {
	for _, e := range exceptions {
		if e.Category == category && e.Status == model.ExceptionPending {
			return true
		}
	}
	return false
}

func newCheck(id, pillar, title string, status model.CheckStatus, severity model.Severity, confidence, owner, why string,
	evidence, fixes []string) model.ComplianceCheck {
	return model.ComplianceCheck{
		CheckID:        id,
		Title:          title,
		Pillar:         pillar,
		Status:         status,
		Severity:       severity,
		Confidence:     confidence,
		Owner:          owner,
		WhyItMatters:   why,
		EvidenceNeeded: evidence,
		FixActions:     fixes,
		Blocking:       status == model.CheckFail && (severity == model.SeverityHigh || severity == model.SeverityCritical),
	}
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return nil
		}
		t = truncateDay(t)
	}
	return &t
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
