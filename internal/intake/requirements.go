// Package intake holds the employee intake rules: which draft fields are
// required, which wizard steps are complete, and which step a caller may open.
// Everything here is pure and deterministic.
package intake

import (
	"strings"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// Section labels, in wizard order.
const (
	SectionRelocationBasics  = "Relocation Basics"
	SectionEmployeeProfile   = "Employee Profile"
	SectionFamilyMembers     = "Family Members"
	SectionAssignmentContext = "Assignment / Context"
)

// Sections lists the intake sections in step order (index 0 is step 1).
var Sections = [...]string{
	SectionRelocationBasics,
	SectionEmployeeProfile,
	SectionFamilyMembers,
	SectionAssignmentContext,
}

// FieldRef is a dotted draft path such as "relocationBasics.destCountry".
type FieldRef string

// RequirementSeverity tells whether a missing field stops the case from
// being classified at all.
type RequirementSeverity string

const (
	SeverityBlocker RequirementSeverity = "BLOCKER"
	SeverityInfo    RequirementSeverity = "INFO"
)

// RequirementItem is derived one-to-one from a missing field.
type RequirementItem struct {
	ID       string              `json:"id"`
	Field    FieldRef            `json:"field"`
	Section  string              `json:"section"`
	Step     int                 `json:"step"`
	Title    string              `json:"title"`
	Severity RequirementSeverity `json:"severity"`
}

// Evaluation is the result of Evaluate.
type Evaluation struct {
	MissingFields []FieldRef        `json:"missingFields"`
	Requirements  []RequirementItem `json:"requirements"`
}

// HasBlockers reports whether any requirement is a blocker.
func (e Evaluation) HasBlockers() bool {
	for _, r := range e.Requirements {
		if r.Severity == SeverityBlocker {
			return true
		}
	}
	return false
}

type fieldSpec struct {
	ref      FieldRef
	label    string
	severity RequirementSeverity
	value    func(d model.Draft) string
}

// DependentsField is reported when dependents are declared but none is named.
const DependentsField FieldRef = "familyMembers.dependents"

func basics(d model.Draft) model.RelocationBasics {
	if d.RelocationBasics == nil {
		return model.RelocationBasics{}
	}
	return *d.RelocationBasics
}

func profile(d model.Draft) model.EmployeeProfile {
	if d.EmployeeProfile == nil {
		return model.EmployeeProfile{}
	}
	return *d.EmployeeProfile
}

func assignment(d model.Draft) model.AssignmentContext {
	if d.AssignmentContext == nil {
		return model.AssignmentContext{}
	}
	return *d.AssignmentContext
}

// requiredFields holds the required scalar fields per step (index 0 is step 1).
// Step 3 additionally checks dependents, see missingForStep.
var requiredFields = [4][]fieldSpec{
	{
		{"relocationBasics.originCountry", "Origin country", SeverityBlocker, func(d model.Draft) string { return basics(d).OriginCountry }},
		{"relocationBasics.originCity", "Origin city", SeverityInfo, func(d model.Draft) string { return basics(d).OriginCity }},
		{"relocationBasics.destCountry", "Destination country", SeverityBlocker, func(d model.Draft) string { return basics(d).DestCountry }},
		{"relocationBasics.destCity", "Destination city", SeverityInfo, func(d model.Draft) string { return basics(d).DestCity }},
		{"relocationBasics.purpose", "Purpose of relocation", SeverityBlocker, func(d model.Draft) string { return basics(d).Purpose }},
		{"relocationBasics.targetMoveDate", "Target move date", SeverityBlocker, func(d model.Draft) string { return basics(d).TargetMoveDate }},
	},
	{
		{"employeeProfile.fullName", "Full name", SeverityInfo, func(d model.Draft) string { return profile(d).FullName }},
		{"employeeProfile.nationality", "Nationality", SeverityInfo, func(d model.Draft) string { return profile(d).Nationality }},
		{"employeeProfile.passportCountry", "Passport country", SeverityInfo, func(d model.Draft) string { return profile(d).PassportCountry }},
		{"employeeProfile.passportExpiry", "Passport expiry", SeverityInfo, func(d model.Draft) string { return profile(d).PassportExpiry }},
		{"employeeProfile.residenceCountry", "Country of residence", SeverityInfo, func(d model.Draft) string { return profile(d).ResidenceCountry }},
		{"employeeProfile.email", "Email", SeverityInfo, func(d model.Draft) string { return profile(d).Email }},
	},
	{
		{"familyMembers.maritalStatus", "Marital status", SeverityInfo, func(d model.Draft) string {
			if d.FamilyMembers == nil {
				return ""
			}
			return d.FamilyMembers.MaritalStatus
		}},
	},
	{
		{"assignmentContext.employerName", "Employer name", SeverityInfo, func(d model.Draft) string { return assignment(d).EmployerName }},
		{"assignmentContext.jobTitle", "Job title", SeverityInfo, func(d model.Draft) string { return assignment(d).JobTitle }},
		{"assignmentContext.contractStartDate", "Contract start date", SeverityInfo, func(d model.Draft) string { return assignment(d).ContractStartDate }},
		{"assignmentContext.contractType", "Employment type", SeverityBlocker, func(d model.Draft) string { return assignment(d).ContractType }},
		{"assignmentContext.salaryBand", "Salary band", SeverityInfo, func(d model.Draft) string { return assignment(d).SalaryBand }},
	},
}

var dependentsSpec = fieldSpec{
	ref:      DependentsField,
	label:    "Dependent details",
	severity: SeverityInfo,
}

// missingForStep returns the required fields of a single step (1-4) that are
// empty, ignoring whether earlier steps are complete.
func missingForStep(d model.Draft, step int) []fieldSpec {
	var missing []fieldSpec
	for _, f := range requiredFields[step-1] {
		if strings.TrimSpace(f.value(d)) == "" {
			missing = append(missing, f)
		}
	}
	if step == 3 && basics(d).HasDependents && d.FamilyMembers.NamedDependents() == 0 {
		missing = append(missing, dependentsSpec)
	}
	return missing
}

// Evaluate lists the missing required fields of a draft and the requirement
// item each one produces.
func Evaluate(d model.Draft) Evaluation {
	ev := Evaluation{
		MissingFields: []FieldRef{},
		Requirements:  []RequirementItem{},
	}
	for step := 1; step <= len(Sections); step++ {
		for _, f := range missingForStep(d, step) {
			ev.MissingFields = append(ev.MissingFields, f.ref)
			ev.Requirements = append(ev.Requirements, RequirementItem{
				ID:       "missing:" + string(f.ref),
				Field:    f.ref,
				Section:  Sections[step-1],
				Step:     step,
				Title:    f.label + " is required",
				Severity: f.severity,
			})
		}
	}
	return ev
}
