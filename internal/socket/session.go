package socket

import (
	"sync"

	"github.com/google/uuid"

	"github.com/smartschoolbus/tracker/internal/models"
)

// Identity is what authentication produced for one connection: exactly one
// of a human viewer or a bus device. The two variants carry disjoint
// capability sets; a connection never holds both.
type Identity interface {
	Kind() string
}

// Viewer is a browser/app session authenticated by bearer token.
type Viewer struct {
	UserID int64
	Role   models.Role
}

func (Viewer) Kind() string { return "viewer" }

// Device is a bus-mounted sender session authenticated by API key.
// currentTripID is zero until a start_trip has been acknowledged; location
// pings are dropped until then.
type Device struct {
	BusID         int64
	currentTripID int64
}

func (*Device) Kind() string { return "device" }

func (d *Device) CurrentTripID() (int64, bool) {
	return d.currentTripID, d.currentTripID != 0
}

// bindTrip is called only after the persisted status write succeeded.
func (d *Device) bindTrip(tripID int64) { d.currentTripID = tripID }

// Client is the in-memory half of a connection: identity plus a buffered
// outbound queue drained by the connection's writer goroutine. Destroyed on
// disconnect, never persisted.
type Client struct {
	id    string
	ident Identity

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

const sendBuffer = 256

func newClient(ident Identity) *Client {
	return &Client{
		id:    uuid.New().String(),
		ident: ident,
		send:  make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string         { return c.id }
func (c *Client) Identity() Identity { return c.ident }

// enqueue queues an outbound frame without blocking: a slow consumer gets
// frames dropped rather than stalling the sender.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
