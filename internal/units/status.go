package units

import "slices"

// Status is a pipeline state.
type Status string

const (
	StatusReceived   Status = "RECEIVED"
	StatusClassified Status = "CLASSIFIED"
	StatusAnalyzed   Status = "ANALYZED"
	StatusIncomplete Status = "INCOMPLETE"
	StatusAmbiguous  Status = "AMBIGUOUS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

var transitions = map[Status][]Status{
	StatusReceived:   {StatusClassified, StatusAmbiguous},
	StatusClassified: {StatusAnalyzed, StatusIncomplete, StatusAmbiguous},
	StatusAnalyzed:   {StatusIncomplete, StatusAmbiguous, StatusResolved},
	StatusIncomplete: {StatusResolved},
	StatusAmbiguous:  {StatusResolved},
	StatusResolved:   {StatusClosed},
}

// CanTransition reports whether from → to is a legal edge of the state machine.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// NeedsReview reports whether s places a unit in the human-review queue.
func (s Status) NeedsReview() bool {
	return s == StatusIncomplete || s == StatusAmbiguous
}

// Automatic reports whether the pipeline, rather than a reviewer, moves a
// unit out of s.
func (s Status) Automatic() bool {
	return !s.Terminal() && !s.NeedsReview()
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusClosed || len(transitions[s]) > 0
}

// ReviewStatuses lists the statuses shown in the review queue.
var ReviewStatuses = []Status{StatusIncomplete, StatusAmbiguous}
