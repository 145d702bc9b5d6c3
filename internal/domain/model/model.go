// Package model contains domain models passed between layers.
package model

import "time"

// Participant is one roster row. Immutable once loaded.
type Participant struct {
	ID    string `json:"id"`    // stable identifier, unique across the roster
	Name  string `json:"name"`  // display name
	Group string `json:"group"` // group identifier
	Email string `json:"email"` // passcode destination
}

// Challenge is a passcode issued to a participant and awaiting verification.
type Challenge struct {
	Subject  Participant `json:"subject"`
	Code     string      `json:"code"`
	IssuedAt time.Time   `json:"issued_at"`
}

// CriterionScore is a single rubric value for one peer.
type CriterionScore struct {
	Criterion string `json:"criterion"`
	Value     int    `json:"value"`
}

// EvaluationRecord is one persisted row: an evaluator's assessment of one peer.
// Records are never mutated; a re-submission produces a fresh set.
type EvaluationRecord struct {
	EvaluatorID   string    `json:"evaluator_id"`
	EvaluatorName string    `json:"evaluator_name"`
	Group         string    `json:"group"`
	PeerID        string    `json:"peer_id"`
	PeerName      string    `json:"peer_name"`
	Timestamp     time.Time `json:"timestamp"`
	OverallScore  float64   `json:"overall_score"`
	Details       string    `json:"details"`
	Comment       string    `json:"comment"`
}
