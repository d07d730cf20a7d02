// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType represents a specific conversation flow
type FlowType string

// StateType represents a specific state within a flow
type StateType string

// DataKey represents a key for storing state-specific data
type DataKey string

// Flow type constants.
const (
	FlowTypeConversation FlowType = "conversation"
)

// State constants for the conversation flow. StateNone is the state of a
// user the bot has no record of; StateAwaitingRestart follows a cancel and
// only /start leaves it.
const (
	StateNone                 StateType = ""
	StateAwaitingRestart      StateType = "AWAITING_RESTART"
	StateMainMenu             StateType = "MAIN_MENU"
	StateCollectingParameters StateType = "COLLECTING_PARAMETERS"
	StateTrainingInterview    StateType = "TRAINING_INTERVIEW"
	StateActivityInterview    StateType = "ACTIVITY_INTERVIEW"
	StateViewingPlan          StateType = "VIEWING_PLAN"
	StateViewingSavedPlans    StateType = "VIEWING_SAVED_PLANS"
)

// Data key constants for the conversation flow.
const (
	DataKeyProfileDraft DataKey = "profileDraft" // JSON AthleteProfile being collected
	DataKeyFieldCursor  DataKey = "fieldCursor"  // index into the parameter field list
	DataKeyCurrentPlan  DataKey = "currentPlan"  // plan id shown in ViewingPlan
	DataKeyCurrentDay   DataKey = "currentDay"   // day shown in ViewingPlan
)
