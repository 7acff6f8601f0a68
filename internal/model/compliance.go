package model

import "time"

type CheckStatus string

const (
	CheckPass CheckStatus = "PASS"
	CheckWarn CheckStatus = "WARN"
	CheckFail CheckStatus = "FAIL"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMed      Severity = "MED"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ComplianceCheck is one compliance check result. Blocking is authoritative
// for the submission gate; Severity is informational.
type ComplianceCheck struct {
	CheckID        string      `json:"checkId"`
	Title          string      `json:"title"`
	Pillar         string      `json:"pillar"`
	Status         CheckStatus `json:"status"`
	Severity       Severity    `json:"severity"`
	Confidence     string      `json:"confidence,omitempty"`
	Owner          string      `json:"owner"`
	WhyItMatters   string      `json:"whyItMatters,omitempty"`
	EvidenceNeeded []string    `json:"evidenceNeeded,omitempty"`
	FixActions     []string    `json:"fixActions,omitempty"`
	Blocking       bool        `json:"blocking"`
}

type ReportSummary struct {
	RiskScore     int    `json:"riskScore"`
	Label         string `json:"label"`
	CriticalCount int    `json:"criticalCount"`
	BlockingCount int    `json:"blockingCount"`
}

// ComplianceReport is a snapshot attached to a case after a compliance run.
type ComplianceReport struct {
	Checks      []ComplianceCheck     `json:"checks"`
	Conflicts   []ConsistencyConflict `json:"consistencyConflicts"`
	Summary     ReportSummary         `json:"summary"`
	Stage       string                `json:"stage,omitempty"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

// ConsistencyConflict flags two sources in the draft that disagree.
type ConsistencyConflict struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Details map[string]string `json:"details,omitempty"`
}

// Compliance actions HR may record against a check.
const (
	ActionMarkReviewed     = "MARK_REVIEWED"
	ActionRequestException = "REQUEST_EXCEPTION"
	ActionApplyFix         = "APPLY_FIX"
)

// ComplianceAction is a recorded HR action on a check.
type ComplianceAction struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"caseId"`
	CheckID    string    `json:"checkId"`
	ActionType string    `json:"actionType"`
	Notes      string    `json:"notes,omitempty"`
	ActedBy    string    `json:"actedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}
