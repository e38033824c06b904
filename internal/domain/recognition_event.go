package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// RecognitionEvent is one plate sighting handed to the ledger. It is transient:
// only its EventID survives, stamped onto the session row it opened or closed.
type RecognitionEvent struct {
	EventID    string
	LotID      int
	Plate      string
	ObservedAt time.Time
	Confidence null.Float
}

// PlateObservationDTO is the body of POST /parking-lots/:id/events. ObservedAt
// defaults to server time when omitted.
type PlateObservationDTO struct {
	Plate      string   `json:"plate" binding:"required"`
	ObservedAt string   `json:"observed_at"`
	Confidence *float64 `json:"confidence" binding:"omitempty,gte=0,lte=100"`
}

type SessionResultType string

const (
	ResultEntry SessionResultType = "entry"
	ResultExit  SessionResultType = "exit"
)

// SessionResult is the outcome of processing one recognition event. Exit-only
// fields stay null on entry results.
type SessionResult struct {
	Type        SessionResultType `json:"type"`
	SessionID   int               `json:"session_id"`
	LotID       int               `json:"lot_id"`
	Plate       string            `json:"plate"`
	EntryTime   time.Time         `json:"entry_time"`
	ExitTime    null.Time         `json:"exit_time"`
	BilledHours null.Int          `json:"billed_hours"`
	Fee         null.Float        `json:"fee"`
	FreeSpaces  int               `json:"free_spaces"`
}
