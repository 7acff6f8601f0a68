package model

import "time"

type CoverageStatus string

const (
	CoverageOnTrack   CoverageStatus = "ON_TRACK"
	CoverageNearLimit CoverageStatus = "NEAR_LIMIT"
	CoverageOverLimit CoverageStatus = "OVER_LIMIT"
)

// Coverage is the used/cap view of one benefit category. Amounts are in
// minor currency units.
type Coverage struct {
	Category  string         `json:"category"`
	Title     string         `json:"title"`
	Used      int64          `json:"used"`
	Cap       int64          `json:"cap"`
	Remaining int64          `json:"remaining"`
	Currency  string         `json:"currency"`
	Status    CoverageStatus `json:"status"`
}

type ExceptionStatus string

const (
	ExceptionPending  ExceptionStatus = "PENDING"
	ExceptionApproved ExceptionStatus = "APPROVED"
	ExceptionRejected ExceptionStatus = "REJECTED"
)

// ExceptionRequest asks HR to allow spend beyond a category cap. It never
// changes the cap itself.
type ExceptionRequest struct {
	ID             string          `json:"id"`
	CaseID         string          `json:"caseId"`
	Category       string          `json:"category"`
	Reason         string          `json:"reason"`
	RequestedBy    string          `json:"requestedBy"`
	Status         ExceptionStatus `json:"status"`
	ResolvedBy     *string         `json:"resolvedBy,omitempty"`
	ResolutionNote *string         `json:"resolutionNote,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	ResolvedAt     *time.Time      `json:"resolvedAt,omitempty"`
}

// SpendEntry is one recorded expense against a category.
type SpendEntry struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"caseId"`
	Category   string    `json:"category"`
	Amount     int64     `json:"amount"`
	Note       string    `json:"note,omitempty"`
	RecordedBy string    `json:"recordedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}
