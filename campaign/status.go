package campaign

import "errors"

// Status represents the campaign lifecycle state.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusArchived Status = "ARCHIVED"
)

// ErrInvalidTransition signals a lifecycle move the transition table forbids.
var ErrInvalidTransition = errors.New("campaign: invalid status transition")

// transitions is the explicit lifecycle table. ARCHIVED is terminal.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusActive, StatusArchived},
	StatusActive:   {StatusPaused, StatusArchived},
	StatusPaused:   {StatusActive, StatusArchived},
	StatusArchived: nil,
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusArchived:
		return true
	default:
		return false
	}
}
