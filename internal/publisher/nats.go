package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/models"
)

// NATSBridge republishes accepted bus positions to NATS subjects
// (bus.position.<busId>) for downstream consumers. Publishing is
// fire-and-forget: failures are logged and counted, never surfaced to the
// websocket path.
type NATSBridge struct {
	nc  *nats.Conn
	log *zap.Logger
}

func NewNATSBridge(url string, log *zap.Logger) (*NATSBridge, error) {
	nc, err := nats.Connect(url,
		nats.Name("bus-tracker"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			natsConnected.Set(0)
			log.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			natsConnected.Set(1)
			log.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			natsConnected.Set(0)
			log.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	natsConnected.Set(1)
	return &NATSBridge{nc: nc, log: log}, nil
}

func (b *NATSBridge) Close() {
	if b.nc != nil {
		_ = b.nc.Drain()
		b.nc.Close()
	}
}

// PositionMessage is the external wire shape; TripID is zero for pings
// without trip context.
type PositionMessage struct {
	BusID     int64     `json:"busId"`
	TripID    int64     `json:"tripId,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

func (b *NATSBridge) PublishPosition(busID, tripID int64, c models.Coordinates) {
	msg := PositionMessage{
		BusID:     busID,
		TripID:    tripID,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("position message encode failed", zap.Error(err))
		return
	}
	subject := fmt.Sprintf("bus.position.%d", busID)
	if err := b.nc.Publish(subject, payload); err != nil {
		natsPublishErrs.Inc()
		b.log.Warn("nats publish failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	natsPublished.Inc()
}
