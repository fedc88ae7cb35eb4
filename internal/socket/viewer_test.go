package socket

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/models"
)

func newViewerTestGateway(store *fakeAuthStore) (*Gateway, *Hub) {
	log := zap.NewNop()
	hub := NewHub(log)
	auth := NewAuthenticator(fakeUsers{}, fakeBuses{}, testSecret, log)
	return NewGateway(hub, auth, NewTripAuthorizer(store), &fakeTrips{}, &fakeBusStore{}, log), hub
}

func TestJoinTripRoom_DenialChangesNoMembership(t *testing.T) {
	// trip 10 exists but serves none of parent 9's students
	gw, hub := newViewerTestGateway(&fakeAuthStore{
		trips:    map[int64]bool{10: true},
		students: map[int64][]int64{9: {90}},
	})

	parent := newClient(Viewer{UserID: 9, Role: models.Parent})
	hub.Attach(parent)
	before := hub.Rooms(parent)

	gw.Dispatch(context.Background(), parent, envelope(t, EventJoinTripRoom, TripPayload{TripID: 10}))

	if hub.RoomSize(TripRoom(10)) != 0 {
		t.Fatal("denied viewer must not enter the trip room")
	}
	if after := hub.Rooms(parent); !reflect.DeepEqual(after, before) {
		t.Fatalf("rooms changed on denial: %v -> %v", before, after)
	}
	// silent denial: nothing goes back to the requester
	assertNoEvent(t, parent)
}

func TestJoinTripRoom_AllowedGuardianJoins(t *testing.T) {
	gw, hub := newViewerTestGateway(&fakeAuthStore{
		trips:    map[int64]bool{10: true},
		students: map[int64][]int64{9: {90}},
		serves:   map[[2]int64]bool{{10, 9}: true},
	})

	parent := newClient(Viewer{UserID: 9, Role: models.Parent})
	hub.Attach(parent)

	gw.Dispatch(context.Background(), parent, envelope(t, EventJoinTripRoom, TripPayload{TripID: 10}))

	if hub.RoomSize(TripRoom(10)) != 1 {
		t.Fatal("authorized guardian must enter the trip room")
	}
}
