package lifecycle

import (
	"fmt"
	"strings"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
	"github.com/pesio-ai/be-relocation-cases/internal/intake"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// SubmissionBlockedError explains why a submission was refused. Step and
// Section name the first incomplete wizard step when the intake is not done.
type SubmissionBlockedError struct {
	Step           int
	Section        string
	BlockingChecks []string
}

func (e *SubmissionBlockedError) Error() string {
	var parts []string
	if e.Step > 0 {
		parts = append(parts, fmt.Sprintf("step %d (%s) is incomplete", e.Step, e.Section))
	}
	if len(e.BlockingChecks) > 0 {
		parts = append(parts, "blocking compliance checks: "+strings.Join(e.BlockingChecks, ", "))
	}
	return "cannot submit case: " + strings.Join(parts, "; ")
}

// CheckSubmission applies the submit guard: all four sections done and no
// blocking compliance check. It returns nil when submission may proceed.
func CheckSubmission(status model.Status, completion intake.Completion, checks []model.ComplianceCheck) error {
	if !Can(status, EventSubmit) {
		return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, EventSubmit, status)
	}

	blocked := &SubmissionBlockedError{}
	if !completion.ReadyForReview() {
		blocked.Step = completion.FirstIncompleteStep()
		blocked.Section = intake.Sections[blocked.Step-1]
	}
	for _, c := range compliance.BlockingChecks(checks) {
		blocked.BlockingChecks = append(blocked.BlockingChecks, c.CheckID)
	}

	if blocked.Step == 0 && len(blocked.BlockingChecks) == 0 {
		return nil
	}
	return blocked
}
