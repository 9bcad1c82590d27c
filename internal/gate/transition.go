package gate

import "fmt"

// pipelineTransitions are the status changes the automated pipeline may make.
var pipelineTransitions = map[Status][]Status{
	StatusStaged:     {StatusUploaded, StatusFailed},
	StatusUploaded:   {StatusAnalyzing, StatusFailed},
	StatusAnalyzing:  {StatusApproved, StatusRejected, StatusFailed},
	StatusApproved:   {StatusPublishing},
	StatusPublishing: {StatusActive, StatusApproved},
}

// overrideTransitions are reachable only through a recorded human decision.
var overrideTransitions = map[Status][]Status{
	StatusRejected: {StatusApproved},
	StatusFailed:   {StatusApproved},
	StatusApproved: {StatusRejected},
	StatusActive:   {StatusRejected},
}

// ValidateTransition checks from -> to against the transition table.
// Override transitions are only accepted when override is set.
func ValidateTransition(from, to Status, override bool) error {
	if allowed(pipelineTransitions[from], to) {
		return nil
	}
	if override && allowed(overrideTransitions[from], to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func allowed(targets []Status, to Status) bool {
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// ValidateOverride checks from -> to against the human override transitions only.
func ValidateOverride(from, to Status) error {
	if allowed(overrideTransitions[from], to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrOverrideNotAllowed, from, to)
}
