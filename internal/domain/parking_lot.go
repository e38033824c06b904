package domain

import "time"

// ParkingLot is one facility with a fixed number of spaces and a billing rate.
// FreeSpaces is maintained in the same transaction as session writes so that
// free_spaces == total_spaces - count(open sessions) holds at every commit.
type ParkingLot struct {
	ID            int       `json:"id"`
	Name          string    `json:"name" binding:"required"`
	Address       string    `json:"address,omitempty"`
	TotalSpaces   int       `json:"total_spaces"`
	FreeSpaces    int       `json:"free_spaces"`
	UnitPrice     float64   `json:"unit_price"`
	GateThingName string    `json:"gate_thing_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ParkingLotDTO struct {
	Name          string  `json:"name" binding:"required"`
	Address       string  `json:"address"`
	TotalSpaces   int     `json:"total_spaces" binding:"required,gt=0"`
	UnitPrice     float64 `json:"unit_price" binding:"required,gt=0"`
	GateThingName string  `json:"gate_thing_name"`
}

// LotConfigDTO is the admin update payload. Both fields are optional so the
// endpoint can change the rate without touching capacity and vice versa.
type LotConfigDTO struct {
	TotalSpaces *int     `json:"total_spaces" binding:"omitempty,gt=0"`
	UnitPrice   *float64 `json:"unit_price" binding:"omitempty,gt=0"`
}

// LotAvailabilityDTO is what GET /parking-lots/:id returns and what the
// WebSocket feed pushes after every processed event.
type LotAvailabilityDTO struct {
	LotID       int     `json:"lot_id"`
	TotalSpaces int     `json:"total_spaces"`
	FreeSpaces  int     `json:"free_spaces"`
	UnitPrice   float64 `json:"unit_price"`
}
