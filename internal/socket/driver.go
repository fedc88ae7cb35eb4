package socket

import (
	"context"

	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
	"github.com/smartschoolbus/tracker/internal/metrics"
	"github.com/smartschoolbus/tracker/internal/models"
	"github.com/smartschoolbus/tracker/internal/observability"
)

// handleStartTrip drives the NOT_STARTED -> IN_PROGRESS transition. The
// status write is awaited before the acknowledgment: the device may only
// start sending trip pings once the persisted transition is durable. A trip
// already in progress (or finished) is an idempotent resume, which covers a
// driver reopening the app mid-trip and the loser of a duplicate-connection
// race.
func (g *Gateway) handleStartTrip(ctx context.Context, client *Client, dev *Device, tripID int64) {
	trip, err := g.trips.TripByID(ctx, tripID)
	if err != nil {
		observability.CaptureErr(ctx, err)
		g.log.Error("trip lookup failed",
			zap.String("conn_id", client.ID()), zap.Int64("trip_id", tripID), zap.Error(err))
		g.tripError(client, "could not load trip")
		return
	}
	if trip == nil {
		g.tripError(client, "trip not found")
		return
	}
	if trip.BusID != dev.BusID {
		g.log.Warn("start_trip for a trip of another bus",
			zap.String("conn_id", client.ID()),
			zap.Int64("bus_id", dev.BusID),
			zap.Int64("trip_bus_id", trip.BusID),
			zap.Int64("trip_id", tripID))
		g.tripError(client, "trip is not assigned to this bus")
		return
	}

	switch {
	case trip.Status == models.TripNotStarted:
		started, err := g.trips.MarkTripInProgress(ctx, tripID)
		if err != nil {
			observability.CaptureErr(ctx, err)
			g.log.Error("trip start write failed",
				zap.String("conn_id", client.ID()), zap.Int64("trip_id", tripID), zap.Error(err))
			g.tripError(client, "could not start trip")
			return
		}
		if !started {
			// lost the race against a duplicate device connection;
			// the transition already happened exactly once
			g.log.Info("trip already started elsewhere",
				zap.String("conn_id", client.ID()), zap.Int64("trip_id", tripID))
		}
	case trip.Status.Terminal():
		// reconciliation already closed the trip out; rebinding still
		// lets the driver's pings reach the (by now empty) trip room
		g.log.Info("start_trip for a closed trip, rebinding",
			zap.String("conn_id", client.ID()),
			zap.Int64("trip_id", tripID),
			zap.String("status", string(trip.Status)))
	}

	dev.bindTrip(tripID)
	g.unicast(client, EventTripStarted, TripPayload{TripID: tripID})
}

// handleUpdateLocation is the trip-bound ping path. The bus position write
// is detached: its failure is logged and counted but never delays or fails
// the room broadcast.
func (g *Gateway) handleUpdateLocation(ctx context.Context, client *Client, dev *Device, coords models.Coordinates) {
	tripID, ok := dev.CurrentTripID()
	if !ok {
		// no trip to attribute the ping to
		g.log.Debug("location ping before trip start dropped",
			zap.String("conn_id", client.ID()), zap.Int64("bus_id", dev.BusID))
		return
	}

	busID, connID := dev.BusID, client.ID()
	go func() {
		// detached from the connection's context on purpose: the write
		// outlives a disconnect, only the tags travel along
		wctx := ctxutil.WithConnID(context.Background(), connID)
		wctx = ctxutil.WithOp(wctx, EventUpdateLocation)
		wctx, cancel := ctxutil.WithDBTimeout(wctx)
		defer cancel()
		if _, err := g.buses.UpdateBusLocation(wctx, busID, coords); err != nil {
			metrics.LocationWriteErrors.Inc()
			observability.CaptureErr(wctx, err)
			g.log.Warn("bus location write failed",
				zap.String("conn_id", connID), zap.Int64("bus_id", busID), zap.Error(err))
		}
	}()

	g.hub.Broadcast(TripRoom(tripID), EventLocationChanged, CoordsPayload{Coords: coords})
	if g.bridge != nil {
		g.bridge.PublishPosition(busID, tripID, coords)
	}
}

// handleGPSPing is the unbound ping path: update the stored position and
// push the fresh bus snapshot to the live map, trip or no trip.
func (g *Gateway) handleGPSPing(ctx context.Context, client *Client, dev *Device, coords models.Coordinates) {
	bus, err := g.buses.UpdateBusLocation(ctx, dev.BusID, coords)
	if err != nil {
		observability.CaptureErr(ctx, err)
		g.log.Error("bus location update failed",
			zap.String("conn_id", client.ID()), zap.Int64("bus_id", dev.BusID), zap.Error(err))
		return
	}

	g.hub.Broadcast(RoomLiveMap, EventBusMoved, BusPayload{Bus: bus})
	if g.bridge != nil {
		g.bridge.PublishPosition(dev.BusID, 0, coords)
	}
}

// handleArrivedAtStation is a reserved extension point: the event is
// accepted and logged, nothing changes yet.
func (g *Gateway) handleArrivedAtStation(client *Client, dev *Device, stationID int64) {
	g.log.Debug("arrival reported",
		zap.String("conn_id", client.ID()),
		zap.Int64("bus_id", dev.BusID),
		zap.Int64("station_id", stationID))
}

// tripError is unicast to the originating device; the connection stays open
// for a retry.
func (g *Gateway) tripError(client *Client, message string) {
	g.unicast(client, EventTripError, ErrorPayload{Message: message})
}

func (g *Gateway) unicast(client *Client, event string, data any) {
	msg, err := encodeEvent(event, data)
	if err != nil {
		g.log.Error("unicast encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	client.enqueue(msg)
}
