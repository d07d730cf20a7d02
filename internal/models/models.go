// Package models defines the core data structures for DietCoach.
//
// It includes the athlete profile, interview sessions, meal plans and the
// API response envelope shared across modules.
package models

import "time"

// ActivityKind identifies an audit record written after a user-visible milestone.
type ActivityKind string

const (
	// ActivityProfileCreated is recorded when the parameter flow completes.
	ActivityProfileCreated ActivityKind = "profile_created"
	// ActivityInterviewCompleted is recorded once a plan was generated from an interview.
	ActivityInterviewCompleted ActivityKind = "interview_completed"
)

// Activity is a fire-and-forget audit record.
type Activity struct {
	UserID    int64                  `json:"user_id"`
	Kind      ActivityKind           `json:"kind"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
