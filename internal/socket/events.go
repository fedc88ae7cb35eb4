package socket

import (
	"encoding/json"
	"fmt"

	"github.com/smartschoolbus/tracker/internal/models"
)

// Inbound events.
const (
	EventGPSPing          = "gps-ping"
	EventStartTrip        = "driver:start_trip"
	EventUpdateLocation   = "driver:update_location"
	EventArrivedAtStation = "driver:arrived_at_station"
	EventJoinTripRoom     = "join_trip_room"
	EventJoinLiveMap      = "join_live_map"
)

// Outbound events.
const (
	EventBusMoved        = "bus-moved"
	EventLocationChanged = "bus:location_changed"
	EventTripStarted     = "trip:started_successfully"
	EventTripError       = "trip:error"
)

// Envelope is the wire format: one JSON text frame per event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type CoordsPayload struct {
	Coords models.Coordinates `json:"coords"`
}

type TripPayload struct {
	TripID int64 `json:"tripId"`
}

type StationPayload struct {
	StationID int64 `json:"stationId"`
}

type BusPayload struct {
	Bus *models.Bus `json:"bus"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encodeEvent(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
