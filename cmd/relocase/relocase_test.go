package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
	"github.com/pesio-ai/be-relocation-cases/internal/intake"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

const draftYAML = `
relocationBasics:
  originCountry: DE
  originCity: Berlin
  destCountry: US
  destCity: Austin
  purpose: Assignment
  targetMoveDate: "2031-06-01"
employeeProfile:
  fullName: Ada Example
  nationality: DE
  passportCountry: DE
  passportExpiry: "2036-01-01"
  residenceCountry: DE
  email: ada@example.com
`

func TestParseDraftAcceptsYAMLAndJSON(t *testing.T) {
	d, err := parseDraft([]byte(draftYAML))
	require.NoError(t, err)
	require.NotNil(t, d.RelocationBasics)
	assert.Equal(t, "Austin", d.RelocationBasics.DestCity)

	d, err = parseDraft([]byte(`{"employeeProfile": {"fullName": "Ada"}}`))
	require.NoError(t, err)
	require.NotNil(t, d.EmployeeProfile)
	assert.Equal(t, "Ada", d.EmployeeProfile.FullName)

	_, err = parseDraft([]byte("relocationBasics: [unclosed"))
	assert.Error(t, err)
}

func TestParseSpend(t *testing.T) {
	spend, err := parseSpend([]string{"housing=100", "housing=50", "movers=7"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"housing": 150, "movers": 7}, spend)

	for _, bad := range []string{"housing", "=5", "housing=abc", "housing=-1"} {
		_, err := parseSpend([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestEvaluateDraftStopsAtFamilyStep(t *testing.T) {
	d, err := parseDraft([]byte(draftYAML))
	require.NoError(t, err)

	e := evaluateDraft(d, compliance.DefaultPolicy(), map[string]int64{"housing": 600000})
	assert.Equal(t, 50, e.Completion.Completeness)
	assert.Equal(t, 3, e.Completion.MaxUnlocked)
	assert.False(t, e.CanSubmit)
	assert.Contains(t, e.BlockedBy, "step 3")
	assert.Equal(t, intake.CaseUnknown, e.Classification.CaseType)
	assert.Equal(t, []intake.FieldRef{"assignmentContext.contractType"}, e.Classification.Blockers)

	var housing model.Coverage
	for _, c := range e.Coverage {
		if c.Category == "housing" {
			housing = c
		}
	}
	assert.Equal(t, model.CoverageOverLimit, housing.Status)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "5000.00 USD", money(500000, "USD"))
	assert.Equal(t, "-0.05 USD", money(-5, "USD"))
}

func TestEvaluateCommandJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(draftYAML), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--json", "evaluate", path})
	t.Cleanup(func() { jsonOutput = false })
	require.NoError(t, rootCmd.Execute())

	var got evaluation
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 50, got.Completion.Completeness)
	assert.NotEmpty(t, got.Requirements)
	assert.NotEmpty(t, got.Report.Checks)
	assert.Equal(t, intake.CaseUnknown, got.Classification.CaseType)
	assert.Contains(t, got.Classification.RiskFlags, intake.RiskTimelineReady)
}

func TestPrintEvaluationShowsClassification(t *testing.T) {
	d, err := parseDraft([]byte(draftYAML + `
assignmentContext:
  contractType: permanent
  employerCountry: DE
  worksRemote: true
`))
	require.NoError(t, err)

	var out bytes.Buffer
	printEvaluation(&out, evaluateDraft(d, compliance.DefaultPolicy(), nil))
	text := out.String()
	assert.Contains(t, text, "Case type: remote_worker")
	assert.Contains(t, text, intake.RiskCrossBorderPayroll)
	assert.Contains(t, text, intake.RiskRemoteTaxResidency)
}
