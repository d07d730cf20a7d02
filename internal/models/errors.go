package models

import "errors"

// Error kinds produced by the conversation core. Collaborator failures are
// wrapped with one of these so handlers can match them with errors.Is.
var (
	// ErrValidation marks user input that fails a field constraint.
	ErrValidation = errors.New("validation failed")
	// ErrTransport marks an unreachable LLM or storage backend.
	ErrTransport = errors.New("transport failure")
	// ErrParse marks model output that could not be turned into questions or a plan.
	ErrParse = errors.New("parse failure")
	// ErrState marks an event that has no matching session.
	ErrState = errors.New("no matching session")
)
