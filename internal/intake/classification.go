package intake

import (
	"slices"
	"strings"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// CaseType is the relocation route a draft points at.
type CaseType string

const (
	CaseEmployeeSponsored CaseType = "employee_sponsored"
	CaseRemoteWorker      CaseType = "remote_worker"
	CaseStudent           CaseType = "student"
	CaseSelfEmployed      CaseType = "self_employed"
	CaseUnknown           CaseType = "unknown"
)

// Risk flags raised by Classify.
const (
	RiskCrossBorderPayroll  = "cross_border_payroll_risk"
	RiskRemoteTaxResidency  = "remote_work_tax_residency_risk"
	RiskSameCountryMove     = "same_country_move"
	RiskTimelineReady       = "timeline_ready"
	RiskTimelineMissingDate = "timeline_missing_move_date"
)

type ActionPriority string

const (
	PriorityHigh   ActionPriority = "high"
	PriorityMedium ActionPriority = "medium"
	PriorityLow    ActionPriority = "low"
)

// NextAction is one thing the employee should fill in next.
type NextAction struct {
	Key      string         `json:"key"`
	Label    string         `json:"label"`
	Priority ActionPriority `json:"priority"`
}

// Classification routes a draft to a case type and lists what stands in the
// way of handling it.
type Classification struct {
	CaseType    CaseType     `json:"caseType"`
	RiskFlags   []string     `json:"riskFlags"`
	Blockers    []FieldRef   `json:"blockers"`
	NextActions []NextAction `json:"nextActions"`
}

// classificationFields are the fields without which a case cannot be
// classified at all.
var classificationFields = []FieldRef{
	"relocationBasics.originCountry",
	"relocationBasics.destCountry",
	"assignmentContext.contractType",
}

// employmentKind folds the free-text employment type into the three kinds
// the classifier distinguishes. Unrecognised values classify as unknown.
func employmentKind(contractType string) string {
	v := strings.ToLower(strings.TrimSpace(contractType))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	switch v {
	case "":
		return ""
	case "student":
		return "student"
	case "self_employed", "contractor", "freelancer":
		return "self_employed"
	case "employee", "permanent", "fixed_term", "temporary", "secondment":
		return "employee"
	}
	return "other"
}

// Classify derives the case type, blockers, next actions and risk flags of a
// draft. Next actions are ordered high priority first.
func Classify(d model.Draft) Classification {
	b, a := basics(d), assignment(d)
	origin := strings.TrimSpace(b.OriginCountry)
	dest := strings.TrimSpace(b.DestCountry)
	moveDate := strings.TrimSpace(b.TargetMoveDate)
	employerCountry := strings.TrimSpace(a.EmployerCountry)
	kind := employmentKind(a.ContractType)

	out := Classification{
		CaseType:    CaseUnknown,
		RiskFlags:   []string{},
		Blockers:    []FieldRef{},
		NextActions: []NextAction{},
	}
	switch kind {
	case "student":
		out.CaseType = CaseStudent
	case "self_employed":
		out.CaseType = CaseSelfEmployed
	case "employee":
		out.CaseType = CaseEmployeeSponsored
		if a.WorksRemote != nil && *a.WorksRemote {
			out.CaseType = CaseRemoteWorker
		}
	}

	for _, step := range []int{1, 4} {
		for _, f := range missingForStep(d, step) {
			if slices.Contains(classificationFields, f.ref) {
				out.Blockers = append(out.Blockers, f.ref)
			}
		}
	}

	add := func(cond bool, key, label string, p ActionPriority) {
		if cond {
			out.NextActions = append(out.NextActions, NextAction{Key: key, Label: label, Priority: p})
		}
	}
	add(origin == "", "collect_origin_country", "Add your origin country", PriorityHigh)
	add(dest == "", "collect_destination_country", "Add your destination country", PriorityHigh)
	add(kind == "", "collect_employment_type", "Add your employment type", PriorityHigh)
	add(moveDate == "", "collect_move_date", "Add your move date", PriorityHigh)
	add(kind == "employee" && employerCountry == "", "collect_employer_country", "Add your employer country", PriorityMedium)
	add(kind == "employee" && a.WorksRemote == nil, "confirm_remote_work", "Confirm whether you will work remotely", PriorityMedium)

	if kind == "employee" && employerCountry != "" && dest != "" && !strings.EqualFold(employerCountry, dest) {
		out.RiskFlags = append(out.RiskFlags, RiskCrossBorderPayroll)
	}
	if a.WorksRemote != nil && *a.WorksRemote {
		out.RiskFlags = append(out.RiskFlags, RiskRemoteTaxResidency)
	}
	if origin != "" && dest != "" && strings.EqualFold(origin, dest) {
		out.RiskFlags = append(out.RiskFlags, RiskSameCountryMove)
	}
	if origin != "" && dest != "" && moveDate != "" {
		out.RiskFlags = append(out.RiskFlags, RiskTimelineReady)
	} else {
		out.RiskFlags = append(out.RiskFlags, RiskTimelineMissingDate)
	}
	return out
}

