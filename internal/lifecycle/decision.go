package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pesio-ai/be-relocation-cases/internal/intake"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// Verdict is HR's decision on a submitted case.
type Verdict string

const (
	VerdictApprove        Verdict = "APPROVE"
	VerdictRequestChanges Verdict = "REQUEST_CHANGES"
)

var (
	// ErrNothingToFix rejects a change request with neither notes nor sections.
	ErrNothingToFix = errors.New("nothing to fix: provide notes or at least one section")
	// ErrUnknownSection rejects a section label outside the closed set.
	ErrUnknownSection = errors.New("unknown section")
	// ErrUnknownVerdict rejects anything but APPROVE and REQUEST_CHANGES.
	ErrUnknownVerdict = errors.New("unknown verdict")
)

var sectionSteps = map[string]int{
	intake.SectionRelocationBasics:  1,
	intake.SectionEmployeeProfile:   2,
	intake.SectionFamilyMembers:     3,
	intake.SectionAssignmentContext: 4,
}

// StepForSection resolves a section label to its wizard step.
func StepForSection(section string) (int, bool) {
	step, ok := sectionSteps[section]
	return step, ok
}

// StateTransition is what a decision does to a case.
type StateTransition struct {
	Event             Event
	To                model.Status
	Notes             string
	RequestedSections []string
}

// Decide validates an HR verdict and returns the transition it implies. The
// target status is set for the HR_REVIEW origin; callers apply it through
// Transition against the case's actual status.
func Decide(verdict Verdict, notes string, sections []string) (StateTransition, error) {
	notes = strings.TrimSpace(notes)

	switch verdict {
	case VerdictApprove:
		return StateTransition{Event: EventApprove, To: model.StatusHRApproved}, nil
	case VerdictRequestChanges:
		if notes == "" && len(sections) == 0 {
			return StateTransition{}, ErrNothingToFix
		}
		seen := make(map[string]bool, len(sections))
		var ordered []string
		for _, s := range sections {
			if _, ok := sectionSteps[s]; !ok {
				return StateTransition{}, fmt.Errorf("%w: %q", ErrUnknownSection, s)
			}
			if !seen[s] {
				seen[s] = true
				ordered = append(ordered, s)
			}
		}
		return StateTransition{
			Event:             EventRequestChanges,
			To:                model.StatusChangesRequested,
			Notes:             notes,
			RequestedSections: ordered,
		}, nil
	default:
		return StateTransition{}, fmt.Errorf("%w: %q", ErrUnknownVerdict, verdict)
	}
}

// FixAction is the employee-side shortcut back into a requested section.
type FixAction struct {
	Label   string `json:"label"`
	Section string `json:"section"`
	Step    int    `json:"step"`
}

// FixActions maps requested sections to "Fix: <section>" actions in wizard
// order. Unknown labels are skipped.
func FixActions(sections []string) []FixAction {
	actions := []FixAction{}
	for _, section := range intake.Sections {
		for _, requested := range sections {
			if requested == section {
				step := sectionSteps[section]
				actions = append(actions, FixAction{
					Label:   "Fix: " + section,
					Section: section,
					Step:    step,
				})
				break
			}
		}
	}
	return actions
}
