package models

import "time"

type TripStatus string

const (
	TripNotStarted TripStatus = "NOT_STARTED"
	TripInProgress TripStatus = "IN_PROGRESS"
	TripCompleted  TripStatus = "COMPLETED"
	TripCancelled  TripStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// StudentStop is one planned pickup/dropoff on a trip.
type StudentStop struct {
	StudentID int64
	StationID int64
}

type Trip struct {
	ID     int64
	BusID  int64
	Status TripStatus
	// TripDate is a calendar day; the time component is always midnight.
	TripDate     time.Time
	StudentStops []StudentStop
}
