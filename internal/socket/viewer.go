package socket

import (
	"context"

	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/metrics"
	"github.com/smartschoolbus/tracker/internal/observability"
)

// handleJoinTripRoom runs the authorization check and moves the viewer into
// the trip room on success. Denial is silent: the requester gets no event,
// only the server logs the attempt.
func (g *Gateway) handleJoinTripRoom(ctx context.Context, client *Client, v Viewer, tripID int64) {
	dec, err := g.authz.Allowed(ctx, v, tripID)
	if err != nil {
		observability.CaptureErr(ctx, err)
		g.log.Error("trip authorization check failed",
			zap.String("conn_id", client.ID()),
			zap.Int64("user_id", v.UserID),
			zap.Int64("trip_id", tripID),
			zap.Error(err))
		return
	}
	if !dec.Allowed {
		metrics.JoinDenied.Inc()
		g.log.Info("trip room join denied",
			zap.String("conn_id", client.ID()),
			zap.Int64("user_id", v.UserID),
			zap.String("role", string(v.Role)),
			zap.Int64("trip_id", tripID),
			zap.Bool("trip_exists", dec.TripExists))
		return
	}

	g.hub.JoinTripRoom(client, tripID)
	g.log.Debug("viewer joined trip room",
		zap.String("conn_id", client.ID()),
		zap.Int64("user_id", v.UserID),
		zap.Int64("trip_id", tripID))
}

// handleJoinLiveMap opts an operator into the live-map firehose. The room
// is not auto-joined on connect to keep fan-out bounded as the fleet grows.
func (g *Gateway) handleJoinLiveMap(client *Client, v Viewer) {
	if !v.Role.IsOperator() {
		metrics.JoinDenied.Inc()
		g.log.Info("live map join denied",
			zap.String("conn_id", client.ID()),
			zap.Int64("user_id", v.UserID),
			zap.String("role", string(v.Role)))
		return
	}
	g.hub.Join(client, RoomLiveMap)
}
