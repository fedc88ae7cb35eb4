package socket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
	"github.com/smartschoolbus/tracker/internal/metrics"
	"github.com/smartschoolbus/tracker/internal/models"
)

type TripStore interface {
	TripByID(ctx context.Context, id int64) (*models.Trip, error)
	MarkTripInProgress(ctx context.Context, id int64) (bool, error)
}

type BusLocationStore interface {
	UpdateBusLocation(ctx context.Context, busID int64, c models.Coordinates) (*models.Bus, error)
}

// Bridge republishes accepted pings to an external bus for downstream
// consumers. Implementations must not block.
type Bridge interface {
	PublishPosition(busID, tripID int64, c models.Coordinates)
}

// Gateway accepts websocket connections, resolves their identity and routes
// their events. One read loop and one writer goroutine per connection.
type Gateway struct {
	hub    *Hub
	auth   *Authenticator
	authz  *TripAuthorizer
	trips  TripStore
	buses  BusLocationStore
	bridge Bridge // nil when no external bus is configured
	log    *zap.Logger
}

func NewGateway(hub *Hub, auth *Authenticator, authz *TripAuthorizer, trips TripStore, buses BusLocationStore, log *zap.Logger) *Gateway {
	return &Gateway{hub: hub, auth: auth, authz: authz, trips: trips, buses: buses, log: log}
}

func (g *Gateway) SetBridge(b Bridge) { g.bridge = b }

const writeTimeout = 10 * time.Second

// Handler upgrades HTTP requests on the gateway route.
func (g *Gateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			g.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		authHeader := c.GetHeader("Authorization")
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		ident, err := g.auth.Resolve(c.Request.Context(), authHeader, apiKey)
		if err != nil {
			metrics.AuthFailures.Inc()
			g.log.Info("connection rejected", zap.Error(err))
			_ = conn.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}

		g.serve(c.Request.Context(), conn, newClient(ident))
	}
}

func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn, client *Client) {
	ctx = ctxutil.WithConnID(ctx, client.ID())

	g.hub.Attach(client)
	metrics.ConnectionsActive.WithLabelValues(client.Identity().Kind()).Inc()
	g.logConnected(client)

	defer func() {
		g.hub.Detach(client)
		metrics.ConnectionsActive.WithLabelValues(client.Identity().Kind()).Dec()
		g.logDisconnected(client)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	go g.writeLoop(ctx, conn, client)
	g.readLoop(ctx, conn, client)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.log.Warn("unparseable frame dropped",
				zap.String("conn_id", client.ID()), zap.Error(err))
			continue
		}
		g.Dispatch(ctx, client, env)
	}
}

func (g *Gateway) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	for msg := range client.send {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := conn.Write(wctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
}

// Dispatch routes one inbound event according to the session kind. Viewer
// and device operations are disjoint; events for the other kind are logged
// and dropped.
func (g *Gateway) Dispatch(ctx context.Context, client *Client, env Envelope) {
	metrics.EventsTotal.WithLabelValues(env.Event).Inc()
	ctx = ctxutil.WithOp(ctx, env.Event)

	switch ident := client.Identity().(type) {
	case Viewer:
		g.dispatchViewer(ctx, client, ident, env)
	case *Device:
		g.dispatchDevice(ctx, client, ident, env)
	}
}

func (g *Gateway) dispatchViewer(ctx context.Context, client *Client, v Viewer, env Envelope) {
	switch env.Event {
	case EventJoinTripRoom:
		var p TripPayload
		if !g.decode(client, env, &p) {
			return
		}
		g.handleJoinTripRoom(ctx, client, v, p.TripID)
	case EventJoinLiveMap:
		g.handleJoinLiveMap(client, v)
	default:
		g.log.Debug("unsupported viewer event dropped",
			zap.String("conn_id", client.ID()), zap.String("event", env.Event))
	}
}

func (g *Gateway) dispatchDevice(ctx context.Context, client *Client, dev *Device, env Envelope) {
	switch env.Event {
	case EventGPSPing:
		var p CoordsPayload
		if !g.decode(client, env, &p) {
			return
		}
		g.handleGPSPing(ctx, client, dev, p.Coords)
	case EventStartTrip:
		var p TripPayload
		if !g.decode(client, env, &p) {
			return
		}
		g.handleStartTrip(ctx, client, dev, p.TripID)
	case EventUpdateLocation:
		var p CoordsPayload
		if !g.decode(client, env, &p) {
			return
		}
		g.handleUpdateLocation(ctx, client, dev, p.Coords)
	case EventArrivedAtStation:
		var p StationPayload
		if !g.decode(client, env, &p) {
			return
		}
		g.handleArrivedAtStation(client, dev, p.StationID)
	default:
		g.log.Debug("unsupported device event dropped",
			zap.String("conn_id", client.ID()), zap.String("event", env.Event))
	}
}

func (g *Gateway) decode(client *Client, env Envelope, into any) bool {
	if err := json.Unmarshal(env.Data, into); err != nil {
		g.log.Warn("bad event payload dropped",
			zap.String("conn_id", client.ID()), zap.String("event", env.Event), zap.Error(err))
		return false
	}
	return true
}

func (g *Gateway) logConnected(client *Client) {
	switch ident := client.Identity().(type) {
	case Viewer:
		g.log.Info("viewer connected",
			zap.String("conn_id", client.ID()),
			zap.Int64("user_id", ident.UserID),
			zap.String("role", string(ident.Role)))
	case *Device:
		g.log.Info("bus device connected",
			zap.String("conn_id", client.ID()),
			zap.Int64("bus_id", ident.BusID))
	}
}

func (g *Gateway) logDisconnected(client *Client) {
	switch ident := client.Identity().(type) {
	case Viewer:
		g.log.Info("viewer disconnected",
			zap.String("conn_id", client.ID()),
			zap.Int64("user_id", ident.UserID))
	case *Device:
		g.log.Info("bus device disconnected",
			zap.String("conn_id", client.ID()),
			zap.Int64("bus_id", ident.BusID))
	}
}
