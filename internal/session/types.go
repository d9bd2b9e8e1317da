package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Identity is the uniqueness key of a dialogue session. At most one active
// session exists per triple at a time.
type Identity struct {
	OrgID          string `json:"org_id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

func (i Identity) Key() string {
	return fmt.Sprintf("%s:%s:%s", i.OrgID, i.ConversationID, i.UserID)
}

// Session is the durable per-identity dialogue record. Step and pattern
// values are owned by the dialogue package; the store treats them as strings.
type Session struct {
	ID       string   `json:"id"` // ULID
	Identity Identity `json:"identity"`

	Step       string `json:"step"`
	WhyAnswer  string `json:"why_answer,omitempty"`
	WhatAnswer string `json:"what_answer,omitempty"`
	HowAnswer  string `json:"how_answer,omitempty"`

	DetectedThemes []string `json:"detected_themes,omitempty"`
	GoalID         string   `json:"goal_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// terminalSteps match dialogue.StepComplete / StepAbandoned; a session in one
// of them is logically destroyed and invisible to Active.
var terminalSteps = map[string]bool{
	"complete":  true,
	"abandoned": true,
}

// Alive reports whether the session is still active at time now.
func (s *Session) Alive(now time.Time) bool {
	if s == nil {
		return false
	}
	if terminalSteps[s.Step] {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// Result of one logged interaction.
const (
	ResultAccepted  = "accepted"
	ResultRetry     = "retry"
	ResultAbandoned = "abandoned"
)

// LogEntry is one append-only interaction record. Entries are never mutated
// or deleted while their session is active; attempt counts are derived from
// them instead of being stored as a corruptible counter.
type LogEntry struct {
	ID        string   `json:"id"` // ULID
	SessionID string   `json:"session_id"`
	Identity  Identity `json:"identity"`

	Step        string `json:"step"`
	StepAttempt int    `json:"step_attempt"`

	UserMessage   string          `json:"user_message"`
	Response      string          `json:"response"`
	Pattern       string          `json:"pattern"`
	Evaluation    json.RawMessage `json:"evaluation,omitempty"`
	FeedbackGiven string          `json:"feedback_given,omitempty"`
	Result        string          `json:"result"`

	Timestamp time.Time `json:"ts"`
}

type index struct {
	Sessions map[string]Session `json:"sessions"` // keyed by Identity.Key()
}
