package domain

import (
	"time"
)

// Outcome is the result of one cancellation attempt.
type Outcome string

const (
	// OutcomeCanceled means a CANCELED report was submitted.
	OutcomeCanceled Outcome = "CANCELED"
	// OutcomeAlreadyTerminal means the order was already terminal and nothing
	// was submitted.
	OutcomeAlreadyTerminal Outcome = "ALREADY_TERMINAL"
	// OutcomeFailed means the attempt ended with an error.
	OutcomeFailed Outcome = "FAILED"
)

// CancellationRecord is the journal entry persisted for each attempt.
type CancellationRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RunID       string    `gorm:"index" json:"run_id"`
	Scope       string    `json:"scope"`
	Account     string    `gorm:"index" json:"account"`
	OrderID     OrderID   `gorm:"index" json:"order_id"`
	Security    string    `json:"security"`
	Outcome     Outcome   `json:"outcome"`
	Writes      int       `json:"writes"`
	Error       string    `json:"error,omitempty"`
	Message     string    `json:"message"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// RunRecord summarizes one invocation of the tool.
type RunRecord struct {
	RunID           string    `gorm:"primaryKey" json:"run_id"`
	Scope           string    `json:"scope"`
	Target          string    `json:"target"`
	Attempted       int       `json:"attempted"`
	Canceled        int       `json:"canceled"`
	AlreadyTerminal int       `json:"already_terminal"`
	Failed          int       `json:"failed"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
