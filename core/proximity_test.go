package core

import (
	"testing"
	"time"

	"github.com/verdantworks/field-tracker/model"
)

func positionAt(lat, lon float64) *model.Position {
	return &model.Position{
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: 5,
		Timestamp:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestComputeProximity_RadiusBoundary(t *testing.T) {
	pos := positionAt(10.0, 106.0)
	trees := []model.TreePoint{
		{ID: "in-29", Latitude: 10.0 + metersNorth(29), Longitude: 106.0},
		{ID: "out-31", Latitude: 10.0 + metersNorth(31), Longitude: 106.0},
	}

	result := ComputeProximity(pos, 30, trees, nil)
	if len(result.NearbyTrees) != 1 {
		t.Fatalf("nearby trees = %d, want 1", len(result.NearbyTrees))
	}
	if result.NearbyTrees[0].Tree.ID != "in-29" {
		t.Errorf("nearby tree = %q, want in-29", result.NearbyTrees[0].Tree.ID)
	}
	if d := result.NearbyTrees[0].DistanceMeters; d < 28 || d > 30 {
		t.Errorf("distance = %v, want ≈ 29", d)
	}
}

func TestComputeProximity_TreesSortedAscending(t *testing.T) {
	pos := positionAt(10.0, 106.0)
	trees := []model.TreePoint{
		{ID: "t-far", Latitude: 10.0 + metersNorth(25), Longitude: 106.0},
		{ID: "t-near", Latitude: 10.0 + metersNorth(5), Longitude: 106.0},
		{ID: "t-mid", Latitude: 10.0 + metersNorth(15), Longitude: 106.0},
	}

	result := ComputeProximity(pos, 100, trees, nil)
	want := []string{"t-near", "t-mid", "t-far"}
	if len(result.NearbyTrees) != len(want) {
		t.Fatalf("nearby trees = %d, want %d", len(result.NearbyTrees), len(want))
	}
	for i, id := range want {
		if result.NearbyTrees[i].Tree.ID != id {
			t.Errorf("position %d = %q, want %q", i, result.NearbyTrees[i].Tree.ID, id)
		}
	}
}

func TestComputeProximity_SkipsTreesWithoutCoordinates(t *testing.T) {
	pos := positionAt(0.0001, 0.0001)
	trees := []model.TreePoint{
		{ID: "unset"}, // (0,0) means the location was never captured
		{ID: "real", Latitude: 0.0001, Longitude: 0.0001},
	}

	result := ComputeProximity(pos, 1000, trees, nil)
	if len(result.NearbyTrees) != 1 || result.NearbyTrees[0].Tree.ID != "real" {
		t.Fatalf("nearby = %+v, want only tree %q", result.NearbyTrees, "real")
	}
}

func TestComputeProximity_InsideZoneKeptBeyondRadius(t *testing.T) {
	// A zone large enough that its centroid is outside the radius
	// still shows up while we stand inside it.
	zone := squareZone("big", 10.0, 106.0, 2000)
	pos := positionAt(10.0+metersNorth(10), 106.0+metersNorth(10))

	result := ComputeProximity(pos, 30, nil, []model.Zone{zone})
	if len(result.NearbyZones) != 1 {
		t.Fatalf("nearby zones = %d, want 1", len(result.NearbyZones))
	}
	if !result.NearbyZones[0].Inside {
		t.Error("zone should be flagged inside")
	}
	if result.CurrentZone == nil || result.CurrentZone.ID != "big" {
		t.Errorf("current zone = %v, want big", result.CurrentZone)
	}
}

func TestComputeProximity_ZoneOutsideRadiusExcluded(t *testing.T) {
	zone := squareZone("distant", 10.0+metersNorth(5000), 106.0, 100)
	pos := positionAt(10.0, 106.0)

	result := ComputeProximity(pos, 30, nil, []model.Zone{zone})
	if len(result.NearbyZones) != 0 {
		t.Errorf("nearby zones = %+v, want none", result.NearbyZones)
	}
	if result.CurrentZone != nil {
		t.Errorf("current zone = %v, want nil", result.CurrentZone)
	}
}

func TestComputeProximity_NoFixIsNeutral(t *testing.T) {
	trees := []model.TreePoint{{ID: "t", Latitude: 10, Longitude: 106}}
	zones := []model.Zone{squareZone("z", 10, 106, 100)}

	result := ComputeProximity(nil, 30, trees, zones)
	if len(result.NearbyTrees) != 0 || len(result.NearbyZones) != 0 || result.CurrentZone != nil {
		t.Errorf("no-fix result = %+v, want empty/neutral", result)
	}
}
