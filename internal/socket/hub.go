package socket

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/metrics"
	"github.com/smartschoolbus/tracker/internal/models"
)

// Room names. Three families plus the shared live-map firehose.
const (
	RoomLiveMap       = "live-map"
	RoomNotifications = "receive_notification"

	tripRoomPrefix = "trip_"
)

func UserRoom(userID int64) string     { return fmt.Sprintf("user:%d", userID) }
func RoleRoom(role models.Role) string { return fmt.Sprintf("role:%s", role) }
func TripRoom(tripID int64) string     { return fmt.Sprintf("%s%d", tripRoomPrefix, tripID) }
func isTripRoom(room string) bool      { return strings.HasPrefix(room, tripRoomPrefix) }

// Hub owns room membership for all live connections. Devices never join
// rooms; a viewer holds at most one trip room at a time.
type Hub struct {
	log *zap.Logger

	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	joined map[*Client]map[string]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:    log,
		rooms:  make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
	}
}

// Attach registers the client and applies the automatic viewer memberships:
// the per-user room, the role room, and the operator notification room.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.joined[c] = make(map[string]struct{})

	v, ok := c.Identity().(Viewer)
	if !ok {
		return
	}
	h.join(c, UserRoom(v.UserID))
	h.join(c, RoleRoom(v.Role))
	if v.Role.IsOperator() {
		h.join(c, RoomNotifications)
	}
}

// Detach releases every membership and closes the outbound queue.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	for room := range h.joined[c] {
		h.leave(c, room)
	}
	delete(h.joined, c)
	h.mu.Unlock()

	c.close()
}

// Join adds a viewer to a room. Device sessions are refused.
func (h *Hub) Join(c *Client, room string) {
	if _, ok := c.Identity().(*Device); ok {
		h.log.Warn("device session tried to join a room",
			zap.String("conn_id", c.ID()), zap.String("room", room))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, known := h.joined[c]; !known {
		return
	}
	h.join(c, room)
}

// JoinTripRoom moves a viewer into the trip's room, leaving any previously
// joined trip room first so membership stays exclusive.
func (h *Hub) JoinTripRoom(c *Client, tripID int64) {
	if _, ok := c.Identity().(*Device); ok {
		h.log.Warn("device session tried to join a trip room",
			zap.String("conn_id", c.ID()), zap.Int64("trip_id", tripID))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, known := h.joined[c]; !known {
		return
	}
	for room := range h.joined[c] {
		if isTripRoom(room) {
			h.leave(c, room)
		}
	}
	h.join(c, TripRoom(tripID))
}

// Broadcast delivers one event to every current member of the room.
// Encoding happens once; delivery never blocks on a slow member.
func (h *Hub) Broadcast(room, event string, data any) {
	msg, err := encodeEvent(event, data)
	if err != nil {
		h.log.Error("broadcast encode failed", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	metrics.BroadcastsTotal.WithLabelValues(roomFamily(room)).Inc()
	for _, c := range members {
		if !c.enqueue(msg) {
			h.log.Debug("dropped frame for slow or closed client",
				zap.String("conn_id", c.ID()), zap.String("room", room))
		}
	}
}

// Rooms lists the client's memberships, sorted.
func (h *Hub) Rooms(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.joined[c]))
	for room := range h.joined[c] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// RoomSize reports current membership count; handy for logs and tests.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// join/leave require h.mu held.

func (h *Hub) join(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	h.joined[c][room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	delete(h.rooms[room], c)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	delete(h.joined[c], room)
}

func roomFamily(room string) string {
	switch {
	case room == RoomLiveMap:
		return "live-map"
	case room == RoomNotifications:
		return "notification"
	case isTripRoom(room):
		return "trip"
	case strings.HasPrefix(room, "user:"):
		return "user"
	case strings.HasPrefix(room, "role:"):
		return "role"
	default:
		return "other"
	}
}
