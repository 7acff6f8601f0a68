package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
	"github.com/pesio-ai/be-relocation-cases/internal/intake"
	"github.com/pesio-ai/be-relocation-cases/internal/lifecycle"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

var spendFlags []string

type evaluation struct {
	Completion     intake.Completion        `json:"completion"`
	Requirements   []intake.RequirementItem `json:"requirements"`
	Classification intake.Classification    `json:"classification"`
	Coverage       []model.Coverage         `json:"coverage"`
	Report         model.ComplianceReport   `json:"report"`
	CanSubmit      bool                     `json:"canSubmit"`
	BlockedBy      string                   `json:"blockedBy,omitempty"`
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <draft.yaml|draft.json|->",
	Short: "Score a draft: wizard completion, missing fields and compliance checks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		draft, err := parseDraft(data)
		if err != nil {
			return err
		}
		policy, err := loadPolicy()
		if err != nil {
			return err
		}
		spend, err := parseSpend(spendFlags)
		if err != nil {
			return err
		}

		result := evaluateDraft(draft, policy, spend)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		printEvaluation(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringArrayVar(&spendFlags, "spend", nil, "Spend per category as category=amount in minor units (repeatable)")
}

// parseDraft accepts YAML or JSON; JSON documents parse as YAML.
func parseDraft(data []byte) (model.Draft, error) {
	var d model.Draft
	if err := yaml.Unmarshal(data, &d); err != nil {
		return model.Draft{}, fmt.Errorf("failed to parse draft: %w", err)
	}
	return d, nil
}

func parseSpend(pairs []string) (map[string]int64, error) {
	spend := map[string]int64{}
	for _, p := range pairs {
		category, raw, ok := strings.Cut(p, "=")
		if !ok || category == "" {
			return nil, fmt.Errorf("invalid --spend %q, want category=amount", p)
		}
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || amount < 0 {
			return nil, fmt.Errorf("invalid amount in --spend %q", p)
		}
		spend[category] += amount
	}
	return spend, nil
}

func evaluateDraft(d model.Draft, policy *compliance.Policy, spend map[string]int64) evaluation {
	completion := intake.ComputeCompletion(d)
	coverage := compliance.BuildCoverage(policy, spend)
	report := compliance.BuildReport(compliance.ReportInput{
		Draft:    d,
		Coverage: coverage,
		Policy:   policy,
		Stage:    lifecycle.StageLabel(model.StatusInProgress),
		Now:      now(),
	})

	out := evaluation{
		Completion:     completion,
		Requirements:   intake.Evaluate(d).Requirements,
		Classification: intake.Classify(d),
		Coverage:       coverage,
		Report:         report,
	}
	if err := lifecycle.CheckSubmission(model.StatusInProgress, completion, report.Checks); err != nil {
		out.BlockedBy = err.Error()
	} else {
		out.CanSubmit = true
	}
	return out
}

func printEvaluation(w io.Writer, e evaluation) {
	fmt.Fprintf(w, "Completeness: %d%% (steps done: %v, max unlocked: %d)\n",
		e.Completion.Completeness, e.Completion.CompletedSteps, e.Completion.MaxUnlocked)

	cl := e.Classification
	fmt.Fprintf(w, "Case type: %s", cl.CaseType)
	if len(cl.RiskFlags) > 0 {
		fmt.Fprintf(w, " (flags: %s)", strings.Join(cl.RiskFlags, ", "))
	}
	fmt.Fprintln(w)
	for _, a := range cl.NextActions {
		fmt.Fprintf(w, "  next [%s] %s\n", a.Priority, a.Label)
	}

	if len(e.Requirements) > 0 {
		fmt.Fprintln(w, "\nMissing:")
		for _, r := range e.Requirements {
			fmt.Fprintf(w, "  [%s] step %d %s: %s\n", r.Severity, r.Step, r.Section, r.Title)
		}
	}

	fmt.Fprintf(w, "\nRisk: %d (%s), %d blocking\n",
		e.Report.Summary.RiskScore, e.Report.Summary.Label, e.Report.Summary.BlockingCount)
	for _, c := range e.Report.Checks {
		if c.Status == model.CheckPass {
			continue
		}
		marker := " "
		if c.Blocking {
			marker = "!"
		}
		fmt.Fprintf(w, " %s %-4s %-8s %s\n", marker, c.Status, c.Severity, c.Title)
	}
	for _, c := range e.Report.Conflicts {
		fmt.Fprintf(w, "   conflict: %s\n", c.Title)
	}

	if e.CanSubmit {
		fmt.Fprintln(w, "\nReady to submit")
	} else {
		fmt.Fprintf(w, "\nNot ready: %s\n", e.BlockedBy)
	}
}
