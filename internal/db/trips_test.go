//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/smartschoolbus/tracker/internal/db"
	"github.com/smartschoolbus/tracker/internal/models"
	"github.com/smartschoolbus/tracker/internal/testutil/testdb"
)

func mustExec(t *testing.T, database *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := database.Exec(query, args...); err != nil {
		t.Fatal(err)
	}
}

func mustInsertID(t *testing.T, database *sql.DB, query string, args ...any) int64 {
	t.Helper()
	var id int64
	if err := database.QueryRow(query, args...).Scan(&id); err != nil {
		t.Fatal(err)
	}
	return id
}

func seedFixture(t *testing.T, database *sql.DB) (busID, parentID, studentID, tripID int64) {
	t.Helper()
	busID = mustInsertID(t, database, `
		INSERT INTO buses (license_plate, api_key) VALUES ('51F-123.45', 'secret-key') RETURNING id`)
	parentID = mustInsertID(t, database, `
		INSERT INTO users (name, email, phone_number, role)
		VALUES ('Nguyen Van A', 'a@example.com', '+84900000001', 'Parent') RETURNING id`)
	studentID = mustInsertID(t, database, `
		INSERT INTO students (name, grade, parent_id) VALUES ('An', '3A', $1) RETURNING id`, parentID)
	tripID = mustInsertID(t, database, `
		INSERT INTO trips (bus_id, trip_date) VALUES ($1, CURRENT_DATE) RETURNING id`, busID)
	mustExec(t, database, `
		INSERT INTO trip_stops (trip_id, seq, student_id, station_id) VALUES ($1, 1, $2, 100)`,
		tripID, studentID)
	return busID, parentID, studentID, tripID
}

func TestMarkTripInProgress_ConcurrentStarts(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	_, _, _, tripID := seedFixture(t, h.DB)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := db.MarkTripInProgress(ctx, h.DB, tripID)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("transitions = %d, want exactly 1", wins)
	}

	trip, err := db.TripByID(ctx, h.DB, tripID)
	if err != nil {
		t.Fatal(err)
	}
	if trip.Status != models.TripInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", trip.Status)
	}
}

func TestTripByID_LoadsOrderedStops(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	busID, parentID, studentID, tripID := seedFixture(t, h.DB)
	ctx := context.Background()

	second := mustInsertID(t, h.DB, `
		INSERT INTO students (name, grade, parent_id) VALUES ('Binh', '3A', $1) RETURNING id`, parentID)
	mustExec(t, h.DB, `
		INSERT INTO trip_stops (trip_id, seq, student_id, station_id) VALUES ($1, 2, $2, 101)`,
		tripID, second)

	trip, err := db.TripByID(ctx, h.DB, tripID)
	if err != nil {
		t.Fatal(err)
	}
	if trip == nil || trip.BusID != busID {
		t.Fatalf("trip = %+v", trip)
	}
	if len(trip.StudentStops) != 2 ||
		trip.StudentStops[0].StudentID != studentID ||
		trip.StudentStops[1].StudentID != second {
		t.Fatalf("stops = %+v", trip.StudentStops)
	}

	missing, err := db.TripByID(ctx, h.DB, 9999)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatal("missing trip should be (nil, nil)")
	}
}

func TestGuardianQueries(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	_, parentID, studentID, tripID := seedFixture(t, h.DB)
	ctx := context.Background()

	ids, err := db.StudentIDsByParent(ctx, h.DB, parentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != studentID {
		t.Fatalf("student ids = %v", ids)
	}

	serves, err := db.TripServesGuardian(ctx, h.DB, tripID, parentID)
	if err != nil {
		t.Fatal(err)
	}
	if !serves {
		t.Fatal("trip serves the parent's student")
	}

	other := mustInsertID(t, h.DB, `
		INSERT INTO users (name, email, phone_number, role)
		VALUES ('Tran Thi B', 'b@example.com', '+84900000002', 'Parent') RETURNING id`)
	serves, err = db.TripServesGuardian(ctx, h.DB, tripID, other)
	if err != nil {
		t.Fatal(err)
	}
	if serves {
		t.Fatal("unrelated parent must not match")
	}
}

func TestGuardianQueries_InactiveStudentCountsNowhere(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	_, _, _, tripID := seedFixture(t, h.DB)
	ctx := context.Background()

	// parent with an active student riding elsewhere and a withdrawn
	// student whose stop is on the trip
	parentID := mustInsertID(t, h.DB, `
		INSERT INTO users (name, email, phone_number, role)
		VALUES ('Le Van C', 'c@example.com', '+84900000003', 'Parent') RETURNING id`)
	activeID := mustInsertID(t, h.DB, `
		INSERT INTO students (name, grade, parent_id) VALUES ('Cuong', '4B', $1) RETURNING id`, parentID)
	withdrawnID := mustInsertID(t, h.DB, `
		INSERT INTO students (name, grade, parent_id, is_active)
		VALUES ('Dung', '4B', $1, FALSE) RETURNING id`, parentID)
	mustExec(t, h.DB, `
		INSERT INTO trip_stops (trip_id, seq, student_id, station_id) VALUES ($1, 2, $2, 101)`,
		tripID, withdrawnID)

	// the withdrawn student is out of the guardian's student set
	ids, err := db.StudentIDsByParent(ctx, h.DB, parentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != activeID {
		t.Fatalf("student ids = %v, want only %d", ids, activeID)
	}

	// and must not grant trip access through its stop either
	serves, err := db.TripServesGuardian(ctx, h.DB, tripID, parentID)
	if err != nil {
		t.Fatal(err)
	}
	if serves {
		t.Fatal("a withdrawn student's stop must not grant access")
	}
}

func TestBusByAPIKeyAndLocationUpdate(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	seedFixture(t, h.DB)
	ctx := context.Background()

	bus, err := db.BusByAPIKey(ctx, h.DB, "secret-key")
	if err != nil {
		t.Fatal(err)
	}
	if bus == nil || bus.LicensePlate != "51F-123.45" {
		t.Fatalf("bus = %+v", bus)
	}
	if bus.CurrentLocation != nil {
		t.Fatal("fresh bus has no location")
	}

	none, err := db.BusByAPIKey(ctx, h.DB, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatal("unknown key should be (nil, nil)")
	}

	coords := models.Coordinates{Latitude: 21.0278, Longitude: 105.8342}
	updated, err := db.UpdateBusLocation(ctx, h.DB, bus.ID, coords)
	if err != nil {
		t.Fatal(err)
	}
	if updated.CurrentLocation == nil || *updated.CurrentLocation != coords {
		t.Fatalf("location = %+v", updated.CurrentLocation)
	}
	if updated.LocationAt == nil || time.Since(*updated.LocationAt) > time.Minute {
		t.Fatalf("location_at = %v", updated.LocationAt)
	}
}
