package models

import "time"

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Bus struct {
	ID           int64  `json:"id"`
	LicensePlate string `json:"licensePlate"`
	// APIKey is the device credential; never serialized to viewers.
	APIKey          string       `json:"-"`
	IsAssigned      bool         `json:"isAssigned"`
	CurrentLocation *Coordinates `json:"currentLocation,omitempty"`
	LocationAt      *time.Time   `json:"locationAt,omitempty"`
}
