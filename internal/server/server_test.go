package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gridtown/trafficsim/pkg/grid"
	"github.com/gridtown/trafficsim/pkg/sim"
)

func testWorld(t *testing.T) *sim.World {
	t.Helper()
	tm := grid.NewTilemap(12, 12)
	for col := 1; col <= 9; col++ {
		tm.SetRoad(grid.C(col, 5))
	}
	w := sim.NewWorld(tm, 4, 8, nil)
	if _, err := w.AddLot(grid.C(4, 5), grid.Up, 1, 1); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestTakeSnapshotCopiesWorld(t *testing.T) {
	w := testWorld(t)
	lot := w.Lots()[0]
	if _, err := w.SpawnResident(lot.ID); err != nil {
		t.Fatal(err)
	}
	w.Step()

	snap := TakeSnapshot(w)
	if snap.Tick != w.Tick {
		t.Errorf("snapshot tick %d, world tick %d", snap.Tick, w.Tick)
	}
	if len(snap.Cars) != 1 {
		t.Fatalf("snapshot has %d cars, want 1", len(snap.Cars))
	}
	if snap.Cars[0].State != "parked" {
		t.Errorf("car state = %q, want parked", snap.Cars[0].State)
	}
	if len(snap.Lots) != 1 || len(snap.Lots[0].Spots) != 2 {
		t.Fatalf("snapshot lots malformed: %+v", snap.Lots)
	}
	reserved := 0
	for _, sp := range snap.Lots[0].Spots {
		if sp.Reserved {
			reserved++
		}
	}
	if reserved != 1 {
		t.Errorf("snapshot shows %d reserved spots, want 1", reserved)
	}

	// Mutating the world must not reach into an old snapshot.
	before := snap.Cars[0].X
	for i := 0; i < 60; i++ {
		w.Step()
	}
	if snap.Cars[0].X != before {
		t.Error("snapshot shares state with the live world")
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	w := testWorld(t)
	srv := New(w, nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Before the first tick there is nothing to serve.
	resp, err := http.Get(ts.URL + "/api/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("empty server status = %d, want 503", resp.StatusCode)
	}

	w.Step()
	srv.publish()

	resp, err = http.Get(ts.URL + "/api/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Tick != w.Tick {
		t.Errorf("served tick %d, world tick %d", snap.Tick, w.Tick)
	}
}

func TestHubCount(t *testing.T) {
	h := NewHub()
	if h.Count() != 0 {
		t.Error("fresh hub should be empty")
	}
	// Broadcast on an empty hub is a no-op, not a panic.
	h.Broadcast([]byte(`{}`))
}
