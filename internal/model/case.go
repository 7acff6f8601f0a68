package model

import "time"

// Status is the lifecycle state of a case.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusEmployeeSubmitted Status = "EMPLOYEE_SUBMITTED"
	StatusHRReview          Status = "HR_REVIEW"
	StatusHRApproved        Status = "HR_APPROVED"
	StatusChangesRequested  Status = "CHANGES_REQUESTED"
)

// Case is one employee's relocation record, owned by an HR organisation.
type Case struct {
	ID                string            `json:"id"`
	OrgID             string            `json:"orgId"`
	CreatedBy         string            `json:"createdBy"`
	EmployeeID        string            `json:"employeeId,omitempty"`
	EmployeeEmail     string            `json:"employeeEmail,omitempty"`
	Status            Status            `json:"status"`
	Draft             Draft             `json:"draft"`
	Completeness      int               `json:"completeness"`
	HRNotes           string            `json:"hrNotes,omitempty"`
	RequestedSections []string          `json:"requestedSections,omitempty"`
	ComplianceReport  *ComplianceReport `json:"complianceReport,omitempty"`
	SubmittedAt       *time.Time        `json:"submittedAt,omitempty"`
	DecidedAt         *time.Time        `json:"decidedAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// AuditEntry is one immutable record in a case's history.
type AuditEntry struct {
	ID           string         `json:"id"`
	CaseID       string         `json:"caseId"`
	OrgID        string         `json:"orgId"`
	Action       string         `json:"action"`
	PerformedBy  string         `json:"performedBy"`
	PerformedAt  time.Time      `json:"performedAt"`
	StatusBefore *Status        `json:"statusBefore,omitempty"`
	StatusAfter  *Status        `json:"statusAfter,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CaseFilter narrows a case listing. Empty fields match everything.
type CaseFilter struct {
	OrgID      string
	EmployeeID string
	Status     Status
	Limit      int
	Offset     int
}
