package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verdantworks/field-tracker/core"
	"github.com/verdantworks/field-tracker/model"
)

func TestReplaySensor_CurrentPosition(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	track := SyntheticTrack(model.LatLon{Lat: 10.76, Lon: 106.66}, 20, 3, at, time.Second)

	sensor := NewReplaySensor(track, time.Millisecond)
	p, err := sensor.CurrentPosition(context.Background(), WatchOptions{})
	if err != nil {
		t.Fatalf("CurrentPosition: %v", err)
	}
	if p.Latitude != track[0].Latitude || p.Longitude != track[0].Longitude {
		t.Errorf("probe position = (%v, %v), want head of track", p.Latitude, p.Longitude)
	}

	empty := NewReplaySensor(nil, time.Millisecond)
	if _, err := empty.CurrentPosition(context.Background(), WatchOptions{}); !errors.Is(err, ErrPositionUnavailable) {
		t.Errorf("empty-track probe error = %v, want ErrPositionUnavailable", err)
	}
}

func TestReplaySensor_StopHaltsDelivery(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	track := SyntheticTrack(model.LatLon{Lat: 10.76, Lon: 106.66}, 20, 1000, at, time.Second)

	sensor := NewReplaySensor(track, 5*time.Millisecond)
	got := make(chan model.Position, len(track))
	sub, err := sensor.Watch(WatchOptions{}, func(p model.Position) { got <- p }, func(error) {})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	<-got
	sub.Stop()
	sub.Stop() // Stop is idempotent

	// Give any in-flight delivery a moment, then confirm silence.
	time.Sleep(30 * time.Millisecond)
	drained := len(got)
	time.Sleep(30 * time.Millisecond)
	if len(got) != drained {
		t.Errorf("samples kept arriving after Stop: %d then %d", drained, len(got))
	}
}

// TestReplaySensor_DoneAfterExhaustion covers the driver contract:
// waiting on Done must work even when a distance filter suppresses
// every sample after the first, so no position events ever arrive.
func TestReplaySensor_DoneAfterExhaustion(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	// 15 m strides, filtered at 100 m: only the first sample passes.
	track := SyntheticTrack(model.LatLon{Lat: 10.76, Lon: 106.66}, 15, 4, at, time.Second)

	sensor := NewReplaySensor(track, time.Millisecond)
	tr := New(sensor, nil, Config{DistanceFilterMeters: 100})
	events := tr.Events()

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tr.Stop()

	select {
	case <-sensor.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sensor never signalled exhaustion")
	}

	emitted := 0
	for drained := false; !drained; {
		select {
		case ev := <-events:
			if _, ok := ev.(PositionEvent); ok {
				emitted++
			}
		default:
			drained = true
		}
	}
	if emitted != 1 {
		t.Errorf("emitted = %d position events, want 1 (rest filtered)", emitted)
	}
	if got := len(tr.History()); got != 1 {
		t.Errorf("history = %d points, want 1", got)
	}
}

func TestReplaySensor_DoneAfterStop(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	track := SyntheticTrack(model.LatLon{Lat: 10.76, Lon: 106.66}, 20, 1000, at, time.Second)

	sensor := NewReplaySensor(track, time.Hour)
	sub, err := sensor.Watch(WatchOptions{}, func(model.Position) {}, func(error) {})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	sub.Stop()

	select {
	case <-sensor.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed after Stop")
	}
}

// TestReplayEndToEnd walks a synthetic track through a real field:
// sensor, tracker, spatial index, and events all wired together the way
// the replay binary wires them.
func TestReplayEndToEnd(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	track := SyntheticTrack(model.LatLon{Lat: 10.7600, Lon: 106.6600}, 20, 5, at, time.Second)

	field := core.NewFieldState()
	// A square around the third track point only.
	field.SetZones([]model.Zone{{
		ID:     "orchard-east",
		Name:   "East Orchard",
		Active: true,
		Boundary: []model.LatLon{
			{Lat: 10.7602, Lon: 106.6602},
			{Lat: 10.7605, Lon: 106.6602},
			{Lat: 10.7605, Lon: 106.6605},
			{Lat: 10.7602, Lon: 106.6605},
		},
	}})
	field.SetTrees([]model.TreePoint{
		{ID: "mango-7", Latitude: 10.7600, Longitude: 106.6600},
	})

	sensor := NewReplaySensor(track, 5*time.Millisecond)
	tr := New(sensor, field, Config{ProximityRadiusMeters: 30})
	events := tr.Events()

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tr.Stop()

	var positions []PositionEvent
	var zoneChanges []ZoneChangeEvent
	deadline := time.After(5 * time.Second)
	for len(positions) < len(track) {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case PositionEvent:
				positions = append(positions, e)
			case ZoneChangeEvent:
				zoneChanges = append(zoneChanges, e)
			}
		case <-deadline:
			t.Fatalf("timed out with %d of %d position events", len(positions), len(track))
		}
	}

	// The first sample stands next to mango-7.
	if trees := positions[0].Proximity.NearbyTrees; len(trees) != 1 || trees[0].Tree.ID != "mango-7" {
		t.Errorf("first-sample nearby trees = %+v, want mango-7", trees)
	}

	// The walk crosses the orchard: one entry, one exit, in that order.
	if len(zoneChanges) != 2 {
		t.Fatalf("zone changes = %d, want 2 (entry and exit)", len(zoneChanges))
	}
	if zoneChanges[0].Entered == nil || zoneChanges[0].Entered.ID != "orchard-east" {
		t.Errorf("first change = %+v, want entry into orchard-east", zoneChanges[0])
	}
	if zoneChanges[1].Exited == nil || zoneChanges[1].Exited.ID != "orchard-east" || zoneChanges[1].Entered != nil {
		t.Errorf("second change = %+v, want exit from orchard-east", zoneChanges[1])
	}

	// The full walk is retained, oldest first.
	history := tr.History()
	if len(history) != len(track) {
		t.Fatalf("history length = %d, want %d", len(history), len(track))
	}
	for i, pt := range history {
		if pt.Latitude != track[i].Latitude || pt.Longitude != track[i].Longitude {
			t.Errorf("history[%d] = (%v, %v), want track point %d", i, pt.Latitude, pt.Longitude, i)
		}
	}

	// Exhausting the track is not an error condition.
	if got := tr.State(); got != model.TrackingActive {
		t.Errorf("state after replay = %v, want active", got)
	}
}
