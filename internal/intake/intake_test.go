package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

func basicsOnly() model.Draft {
	return model.Draft{
		RelocationBasics: &model.RelocationBasics{
			OriginCountry:  "NO",
			OriginCity:     "Oslo",
			DestCountry:    "SG",
			DestCity:       "Singapore",
			Purpose:        "employment",
			TargetMoveDate: "2027-03-01",
		},
	}
}

func fullDraft() model.Draft {
	d := basicsOnly()
	d.EmployeeProfile = &model.EmployeeProfile{
		FullName:         "Ada Lovelace",
		Nationality:      "NO",
		PassportCountry:  "NO",
		PassportExpiry:   "2031-01-01",
		ResidenceCountry: "NO",
		Email:            "ada@example.com",
	}
	d.FamilyMembers = &model.FamilyMembers{MaritalStatus: "single"}
	d.AssignmentContext = &model.AssignmentContext{
		EmployerName:      "Acme",
		JobTitle:          "Engineer",
		ContractStartDate: "2027-03-15",
		ContractType:      "permanent",
		SalaryBand:        "B3",
	}
	return d
}

func TestEvaluate(t *testing.T) {
	t.Run("empty draft is entirely missing and does not panic", func(t *testing.T) {
		ev := Evaluate(model.Draft{})
		assert.Len(t, ev.MissingFields, 6+6+1+5)
		assert.True(t, ev.HasBlockers())
		assert.Equal(t, FieldRef("relocationBasics.originCountry"), ev.MissingFields[0])
	})

	t.Run("full draft has no requirements", func(t *testing.T) {
		ev := Evaluate(fullDraft())
		assert.Empty(t, ev.MissingFields)
		assert.Empty(t, ev.Requirements)
		assert.False(t, ev.HasBlockers())
	})

	t.Run("severity classification", func(t *testing.T) {
		ev := Evaluate(model.Draft{})
		severities := map[FieldRef]RequirementSeverity{}
		for _, r := range ev.Requirements {
			severities[r.Field] = r.Severity
		}
		for _, f := range []FieldRef{
			"relocationBasics.originCountry",
			"relocationBasics.destCountry",
			"relocationBasics.targetMoveDate",
			"relocationBasics.purpose",
			"assignmentContext.contractType",
		} {
			assert.Equal(t, SeverityBlocker, severities[f], f)
		}
		assert.Equal(t, SeverityInfo, severities["employeeProfile.email"])
		assert.Equal(t, SeverityInfo, severities["assignmentContext.salaryBand"])
	})

	t.Run("whitespace counts as empty", func(t *testing.T) {
		d := fullDraft()
		d.EmployeeProfile.Email = "   "
		ev := Evaluate(d)
		require.Len(t, ev.Requirements, 1)
		assert.Equal(t, SectionEmployeeProfile, ev.Requirements[0].Section)
		assert.Equal(t, 2, ev.Requirements[0].Step)
	})

	t.Run("declared dependents without names", func(t *testing.T) {
		d := fullDraft()
		d.RelocationBasics.HasDependents = true
		d.FamilyMembers = &model.FamilyMembers{
			MaritalStatus: "married",
			Children:      []model.FamilyMember{{DateOfBirth: "2019-01-01"}},
		}
		ev := Evaluate(d)
		assert.Equal(t, []FieldRef{DependentsField}, ev.MissingFields)
	})

	t.Run("blank dependent names do not count", func(t *testing.T) {
		d := fullDraft()
		d.RelocationBasics.HasDependents = true
		d.FamilyMembers.Spouse = &model.FamilyMember{FullName: "   "}
		d.FamilyMembers.Children = []model.FamilyMember{{FullName: "\t"}}
		ev := Evaluate(d)
		assert.Equal(t, []FieldRef{DependentsField}, ev.MissingFields)
	})

	t.Run("deterministic", func(t *testing.T) {
		d := basicsOnly()
		assert.Equal(t, Evaluate(d), Evaluate(d))
	})
}

func TestComputeCompletion(t *testing.T) {
	for name, tc := range map[string]struct {
		draft       model.Draft
		maxUnlocked int
		completed   []int
	}{
		"empty draft": {
			draft:       model.Draft{},
			maxUnlocked: 1,
			completed:   []int{},
		},
		"only step 1 fields": {
			draft:       basicsOnly(),
			maxUnlocked: 2,
			completed:   []int{1},
		},
		"everything filled": {
			draft:       fullDraft(),
			maxUnlocked: 5,
			completed:   []int{1, 2, 3, 4},
		},
		"step 3 data with step 1 blank stays locked": {
			draft: func() model.Draft {
				d := fullDraft()
				d.RelocationBasics.DestCity = ""
				return d
			}(),
			maxUnlocked: 1,
			completed:   []int{},
		},
		"dependents declared with a named child": {
			draft: func() model.Draft {
				d := fullDraft()
				d.RelocationBasics.HasDependents = true
				d.FamilyMembers.Children = []model.FamilyMember{{FullName: "Byron"}}
				return d
			}(),
			maxUnlocked: 5,
			completed:   []int{1, 2, 3, 4},
		},
		"dependents declared with a named spouse": {
			draft: func() model.Draft {
				d := fullDraft()
				d.RelocationBasics.HasDependents = true
				d.FamilyMembers.Spouse = &model.FamilyMember{FullName: "William"}
				return d
			}(),
			maxUnlocked: 5,
			completed:   []int{1, 2, 3, 4},
		},
		"dependents declared with a blank spouse name": {
			draft: func() model.Draft {
				d := fullDraft()
				d.RelocationBasics.HasDependents = true
				d.FamilyMembers.Spouse = &model.FamilyMember{FullName: "   "}
				return d
			}(),
			maxUnlocked: 3,
			completed:   []int{1, 2},
		},
		"dependents declared without names": {
			draft: func() model.Draft {
				d := fullDraft()
				d.RelocationBasics.HasDependents = true
				return d
			}(),
			maxUnlocked: 3,
			completed:   []int{1, 2},
		},
	} {
		t.Run(name, func(t *testing.T) {
			c := ComputeCompletion(tc.draft)
			assert.Equal(t, tc.maxUnlocked, c.MaxUnlocked)
			assert.Equal(t, tc.completed, c.CompletedSteps)
			assert.Equal(t, len(tc.completed)*25, c.Completeness)
		})
	}
}

func TestMonotonicUnlock(t *testing.T) {
	// Filling fields one at a time never lowers maxUnlocked.
	d := model.Draft{}
	edits := []func(){
		func() { d.RelocationBasics = &model.RelocationBasics{OriginCountry: "NO"} },
		func() { d.RelocationBasics.OriginCity = "Oslo" },
		func() { d.RelocationBasics.DestCountry = "SG" },
		func() { d.RelocationBasics.DestCity = "Singapore" },
		func() { d.RelocationBasics.Purpose = "employment" },
		func() { d.RelocationBasics.TargetMoveDate = "2027-03-01" },
		func() { d.EmployeeProfile = fullDraft().EmployeeProfile },
		func() { d.FamilyMembers = &model.FamilyMembers{MaritalStatus: "single"} },
		func() { d.AssignmentContext = fullDraft().AssignmentContext },
	}
	last := ComputeCompletion(d).MaxUnlocked
	for i, edit := range edits {
		edit()
		cur := ComputeCompletion(d).MaxUnlocked
		assert.GreaterOrEqual(t, cur, last, "edit %d", i)
		last = cur
	}
	assert.Equal(t, ReviewStep, last)

	// Clearing an earlier field is the only way back down.
	d.RelocationBasics.Purpose = ""
	assert.Equal(t, 1, ComputeCompletion(d).MaxUnlocked)
}

func TestFirstIncompleteStep(t *testing.T) {
	assert.Equal(t, 1, ComputeCompletion(model.Draft{}).FirstIncompleteStep())
	assert.Equal(t, 2, ComputeCompletion(basicsOnly()).FirstIncompleteStep())
	assert.Equal(t, ReviewStep, ComputeCompletion(fullDraft()).FirstIncompleteStep())
	assert.True(t, ComputeCompletion(fullDraft()).ReadyForReview())
}

func TestGuard(t *testing.T) {
	t.Run("within range is allowed", func(t *testing.T) {
		for step := 1; step <= 3; step++ {
			r := Guard(step, 3)
			assert.False(t, r.Blocked)
			assert.Equal(t, step, r.AllowedStep)
			assert.Empty(t, r.Notice)
		}
	})

	t.Run("every step past maxUnlocked redirects", func(t *testing.T) {
		for maxUnlocked := 1; maxUnlocked <= ReviewStep; maxUnlocked++ {
			for step := maxUnlocked + 1; step <= ReviewStep; step++ {
				r := Guard(step, maxUnlocked)
				assert.True(t, r.Blocked)
				assert.Equal(t, maxUnlocked, r.AllowedStep)
				assert.Equal(t, NoticeCompletePrevious, r.Notice)
			}
		}
	})

	t.Run("basics only, step 4 lands on step 2", func(t *testing.T) {
		r := Guard(4, ComputeCompletion(basicsOnly()).MaxUnlocked)
		assert.True(t, r.Blocked)
		assert.Equal(t, 2, r.AllowedStep)
	})

	t.Run("out of range requests", func(t *testing.T) {
		r := Guard(0, 3)
		assert.False(t, r.Blocked)
		assert.Equal(t, 1, r.AllowedStep)

		for _, step := range []int{6, 9} {
			r = Guard(step, 5)
			assert.True(t, r.Blocked, "step %d", step)
			assert.Equal(t, 5, r.AllowedStep)
			assert.Equal(t, NoticeCompletePrevious, r.Notice)
		}
	})

	t.Run("fix target ignores the forward guard", func(t *testing.T) {
		r := FixTarget(4)
		assert.False(t, r.Blocked)
		assert.Equal(t, 4, r.AllowedStep)
	})
}

func TestMemo(t *testing.T) {
	m := NewMemo(2)
	d := basicsOnly()

	first := m.Completion(d)
	assert.Equal(t, 1, m.Len())
	first.CompletedSteps[0] = 99

	again := m.Completion(d)
	assert.Equal(t, []int{1}, again.CompletedSteps)
	assert.Equal(t, 1, m.Len())

	m.Completion(fullDraft())
	m.Completion(model.Draft{})
	assert.Equal(t, 1, m.Len())

	assert.Equal(t, ContentHash(basicsOnly()), ContentHash(basicsOnly()))
	assert.NotEqual(t, ContentHash(basicsOnly()), ContentHash(fullDraft()))
}
