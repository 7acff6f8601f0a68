package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

func actionKeys(c Classification) []string {
	keys := make([]string, 0, len(c.NextActions))
	for _, a := range c.NextActions {
		keys = append(keys, a.Key)
	}
	return keys
}

func TestClassify(t *testing.T) {
	remote := func(v bool) model.Draft {
		d := fullDraft()
		d.AssignmentContext.EmployerCountry = "SG"
		d.AssignmentContext.WorksRemote = &v
		return d
	}

	tests := []struct {
		name     string
		draft    model.Draft
		caseType CaseType
		blockers []FieldRef
		actions  []string
		flags    []string
	}{
		{
			name:     "empty draft",
			draft:    model.Draft{},
			caseType: CaseUnknown,
			blockers: []FieldRef{"relocationBasics.originCountry", "relocationBasics.destCountry", "assignmentContext.contractType"},
			actions:  []string{"collect_origin_country", "collect_destination_country", "collect_employment_type", "collect_move_date"},
			flags:    []string{RiskTimelineMissingDate},
		},
		{
			name:     "permanent contract without remote answer",
			draft:    fullDraft(),
			caseType: CaseEmployeeSponsored,
			blockers: []FieldRef{},
			actions:  []string{"collect_employer_country", "confirm_remote_work"},
			flags:    []string{RiskTimelineReady},
		},
		{
			name:     "on-site employee paid in the destination",
			draft:    remote(false),
			caseType: CaseEmployeeSponsored,
			blockers: []FieldRef{},
			actions:  []string{},
			flags:    []string{RiskTimelineReady},
		},
		{
			name:     "remote employee",
			draft:    remote(true),
			caseType: CaseRemoteWorker,
			blockers: []FieldRef{},
			actions:  []string{},
			flags:    []string{RiskRemoteTaxResidency, RiskTimelineReady},
		},
		{
			name: "employer abroad",
			draft: func() model.Draft {
				d := remote(false)
				d.AssignmentContext.EmployerCountry = "NO"
				return d
			}(),
			caseType: CaseEmployeeSponsored,
			blockers: []FieldRef{},
			actions:  []string{},
			flags:    []string{RiskCrossBorderPayroll, RiskTimelineReady},
		},
		{
			name: "freelancer moving within the country",
			draft: func() model.Draft {
				d := fullDraft()
				d.RelocationBasics.DestCountry = "no"
				d.AssignmentContext.ContractType = " Freelancer "
				return d
			}(),
			caseType: CaseSelfEmployed,
			blockers: []FieldRef{},
			actions:  []string{},
			flags:    []string{RiskSameCountryMove, RiskTimelineReady},
		},
		{
			name: "student without move date",
			draft: func() model.Draft {
				d := fullDraft()
				d.RelocationBasics.TargetMoveDate = "  "
				d.AssignmentContext.ContractType = "Student"
				return d
			}(),
			caseType: CaseStudent,
			blockers: []FieldRef{},
			actions:  []string{"collect_move_date"},
			flags:    []string{RiskTimelineMissingDate},
		},
		{
			name: "unrecognised employment type",
			draft: func() model.Draft {
				d := fullDraft()
				d.AssignmentContext.ContractType = "volunteer"
				return d
			}(),
			caseType: CaseUnknown,
			blockers: []FieldRef{},
			actions:  []string{},
			flags:    []string{RiskTimelineReady},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.draft)
			assert.Equal(t, tt.caseType, c.CaseType)
			assert.Equal(t, tt.blockers, c.Blockers)
			assert.Equal(t, tt.actions, actionKeys(c))
			assert.Equal(t, tt.flags, c.RiskFlags)
		})
	}
}

func TestClassify_HighPriorityFirst(t *testing.T) {
	d := fullDraft()
	d.RelocationBasics.OriginCountry = ""
	c := Classify(d)

	seenMedium := false
	for _, a := range c.NextActions {
		if a.Priority == PriorityMedium {
			seenMedium = true
		}
		if seenMedium {
			assert.NotEqual(t, PriorityHigh, a.Priority, a.Key)
		}
	}
	assert.Equal(t, "collect_origin_country", c.NextActions[0].Key)
	assert.Equal(t, []FieldRef{"relocationBasics.originCountry"}, c.Blockers)
}
