// Package lifecycle is the case state machine: the transition table, the
// submission guard and the HR decision router.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// Event is something that happens to a case.
type Event string

const (
	EventAssign         Event = "ASSIGN"
	EventResume         Event = "RESUME"
	EventSubmit         Event = "SUBMIT"
	EventOpen           Event = "OPEN"
	EventApprove        Event = "APPROVE"
	EventRequestChanges Event = "REQUEST_CHANGES"
)

// ErrInvalidTransition is returned for any (status, event) pair missing from
// the table.
var ErrInvalidTransition = errors.New("invalid case status transition")

type edge struct {
	from  model.Status
	event Event
}

var transitions = map[edge]model.Status{
	{model.StatusDraft, EventAssign}:                     model.StatusInProgress,
	{model.StatusChangesRequested, EventResume}:          model.StatusInProgress,
	{model.StatusInProgress, EventSubmit}:                model.StatusEmployeeSubmitted,
	{model.StatusChangesRequested, EventSubmit}:          model.StatusEmployeeSubmitted,
	{model.StatusEmployeeSubmitted, EventOpen}:           model.StatusHRReview,
	{model.StatusHRReview, EventApprove}:                 model.StatusHRApproved,
	{model.StatusHRReview, EventRequestChanges}:          model.StatusChangesRequested,
	{model.StatusEmployeeSubmitted, EventRequestChanges}: model.StatusChangesRequested,
}

// Transition returns the status reached by applying event to from.
func Transition(from model.Status, event Event) (model.Status, error) {
	to, ok := transitions[edge{from, event}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, from)
	}
	return to, nil
}

// Can reports whether event is allowed from status.
func Can(from model.Status, event Event) bool {
	_, ok := transitions[edge{from, event}]
	return ok
}

// Terminal reports whether no event leaves status.
func Terminal(s model.Status) bool {
	for e := range transitions {
		if e.from == s {
			return false
		}
	}
	return true
}

// Editable reports whether the employee may change the draft in status s.
func Editable(s model.Status) bool {
	return s == model.StatusInProgress || s == model.StatusChangesRequested
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s model.Status) bool {
	switch s {
	case model.StatusDraft, model.StatusInProgress, model.StatusEmployeeSubmitted,
		model.StatusHRReview, model.StatusHRApproved, model.StatusChangesRequested:
		return true
	}
	return false
}

// StageLabel is the human readable stage shown on HR screens.
func StageLabel(s model.Status) string {
	switch s {
	case model.StatusEmployeeSubmitted:
		return "Intake - Profile Review"
	case model.StatusHRReview:
		return "HR Review"
	case model.StatusChangesRequested:
		return "Changes Requested"
	case model.StatusHRApproved:
		return "Approved"
	case model.StatusDraft:
		return "Draft"
	default:
		return "Intake - In progress"
	}
}
