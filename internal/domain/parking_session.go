package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ParkingSessionStatus string

const (
	SessionOpen   ParkingSessionStatus = "open"
	SessionClosed ParkingSessionStatus = "closed"
)

// ParkingSession is one vehicle's continuous occupancy of a lot. Rows are
// append-only: a session is created open by an entry event, closed exactly once
// by the matching exit event, and never deleted or reopened.
type ParkingSession struct {
	ID           int                  `json:"id"`
	LotID        int                  `json:"lot_id"`
	Plate        string               `json:"plate"`
	EntryTime    time.Time            `json:"entry_time"`
	ExitTime     null.Time            `json:"exit_time"`
	BilledHours  null.Int             `json:"billed_hours"`
	Fee          null.Float           `json:"fee"`
	Status       ParkingSessionStatus `json:"status"`
	EntryEventID null.String          `json:"entry_event_id,omitempty"`
	ExitEventID  null.String          `json:"exit_event_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type ParkingSessionFilterDTO struct {
	LotID  *int    `form:"lotId"`
	Plate  *string `form:"plate"`
	Status *string `form:"status"`
}
