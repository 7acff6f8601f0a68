// Package compliance combines compliance check results and policy-cap
// coverage into the submission gate, and builds compliance reports.
package compliance

import "github.com/pesio-ai/be-relocation-cases/internal/model"

// IsBlocked reports whether any check is flagged blocking. Severity alone
// never blocks.
func IsBlocked(checks []model.ComplianceCheck) bool {
	for _, c := range checks {
		if c.Blocking {
			return true
		}
	}
	return false
}

// BlockingChecks returns the checks flagged blocking, in input order.
func BlockingChecks(checks []model.ComplianceCheck) []model.ComplianceCheck {
	var out []model.ComplianceCheck
	for _, c := range checks {
		if c.Blocking {
			out = append(out, c)
		}
	}
	return out
}

// Verdict is the gate's combined view of a case.
type Verdict struct {
	Blocked                 bool                     `json:"blocked"`
	BlockingChecks          []model.ComplianceCheck  `json:"blockingChecks"`
	OverLimit               []model.Coverage         `json:"overLimit"`
	PendingExceptions       []model.ExceptionRequest `json:"pendingExceptions"`
	RequiresAcknowledgement bool                     `json:"requiresAcknowledgement"`
	RequiresHRApproval      bool                     `json:"requiresHRApproval"`
}

// Evaluate aggregates checks, coverage and exception requests. Only the
// checks decide Blocked; coverage and exceptions feed the HR-facing flags.
func Evaluate(checks []model.ComplianceCheck, coverage []model.Coverage, exceptions []model.ExceptionRequest) Verdict {
	v := Verdict{
		BlockingChecks:    []model.ComplianceCheck{},
		OverLimit:         []model.Coverage{},
		PendingExceptions: []model.ExceptionRequest{},
	}
	v.BlockingChecks = append(v.BlockingChecks, BlockingChecks(checks)...)
	v.Blocked = len(v.BlockingChecks) > 0

	for _, c := range coverage {
		if c.Status == model.CoverageOverLimit {
			v.OverLimit = append(v.OverLimit, c)
		}
	}
	for _, e := range exceptions {
		if e.Status == model.ExceptionPending {
			v.PendingExceptions = append(v.PendingExceptions, e)
		}
	}

	v.RequiresAcknowledgement = len(v.OverLimit) > 0
	v.RequiresHRApproval = len(v.OverLimit) > 0 || len(v.PendingExceptions) > 0
	return v
}
