package core

import (
	"testing"

	"github.com/verdantworks/field-tracker/model"
)

func squareZone(id string, lat, lon, sideMeters float64) model.Zone {
	side := metersNorth(sideMeters)
	return model.Zone{
		ID:     id,
		Name:   id,
		Active: true,
		Boundary: []model.LatLon{
			{Lat: lat, Lon: lon},
			{Lat: lat, Lon: lon + side},
			{Lat: lat + side, Lon: lon + side},
			{Lat: lat + side, Lon: lon},
		},
	}
}

func TestResolveZones_InsideZoneHasZeroDistance(t *testing.T) {
	zone := squareZone("block-a", 10.0, 106.0, 200)
	pos := model.LatLon{
		Lat: 10.0 + metersNorth(100),
		Lon: 106.0 + metersNorth(100),
	}

	resolved := ResolveZones(pos, []model.Zone{zone})
	if len(resolved) != 1 {
		t.Fatalf("resolved %d zones, want 1", len(resolved))
	}
	if !resolved[0].Inside {
		t.Error("position should be inside the zone")
	}
	if resolved[0].DistanceMeters != 0 {
		t.Errorf("inside distance = %v, want 0", resolved[0].DistanceMeters)
	}
	current := CurrentZone(resolved)
	if current == nil || current.ID != "block-a" {
		t.Errorf("CurrentZone = %v, want block-a", current)
	}
}

func TestResolveZones_SortedAscendingInsideFirst(t *testing.T) {
	near := squareZone("near", 10.0, 106.0, 100)
	far := squareZone("far", 10.0+metersNorth(5000), 106.0, 100)
	containing := squareZone("containing", 9.999, 105.999, 500)

	pos := model.LatLon{Lat: 10.0 + metersNorth(50), Lon: 106.0 + metersNorth(50)}
	resolved := ResolveZones(pos, []model.Zone{far, near, containing})

	if len(resolved) != 3 {
		t.Fatalf("resolved %d zones, want 3", len(resolved))
	}
	for i := 1; i < len(resolved); i++ {
		if resolved[i].DistanceMeters < resolved[i-1].DistanceMeters {
			t.Errorf("zones not sorted ascending at %d: %v then %v",
				i, resolved[i-1].DistanceMeters, resolved[i].DistanceMeters)
		}
	}
	if !resolved[0].Inside {
		t.Errorf("first zone %q should be an inside zone", resolved[0].Zone.ID)
	}
	if resolved[len(resolved)-1].Zone.ID != "far" {
		t.Errorf("last zone = %q, want far", resolved[len(resolved)-1].Zone.ID)
	}
}

func TestResolveZones_OmitsMalformedBoundaries(t *testing.T) {
	malformed := model.Zone{
		ID: "bad",
		Boundary: []model.LatLon{
			{Lat: 10, Lon: 106},
			{Lat: 10, Lon: 106}, // duplicate collapses the boundary below 3 vertices
			{Lat: 10, Lon: 106},
		},
	}
	good := squareZone("good", 10.0, 106.0, 100)

	resolved := ResolveZones(model.LatLon{Lat: 10, Lon: 106}, []model.Zone{malformed, good})
	if len(resolved) != 1 {
		t.Fatalf("resolved %d zones, want 1 (malformed omitted)", len(resolved))
	}
	if resolved[0].Zone.ID != "good" {
		t.Errorf("surviving zone = %q, want good", resolved[0].Zone.ID)
	}
}

func TestCurrentZone_OverlapPicksSmallestArea(t *testing.T) {
	sector := squareZone("sector", 10.0, 106.0, 1000)
	block := squareZone("block", 10.0, 106.0, 200)

	pos := model.LatLon{Lat: 10.0 + metersNorth(50), Lon: 106.0 + metersNorth(50)}

	// Input order must not matter: the smaller containing zone wins.
	for _, zones := range [][]model.Zone{
		{sector, block},
		{block, sector},
	} {
		resolved := ResolveZones(pos, zones)
		current := CurrentZone(resolved)
		if current == nil || current.ID != "block" {
			t.Errorf("CurrentZone with order %q,%q = %v, want block",
				zones[0].ID, zones[1].ID, current)
		}
	}
}

func TestCurrentZone_NoContainmentIsNil(t *testing.T) {
	zone := squareZone("block-a", 10.0, 106.0, 100)
	resolved := ResolveZones(model.LatLon{Lat: 20, Lon: 100}, []model.Zone{zone})
	if current := CurrentZone(resolved); current != nil {
		t.Errorf("CurrentZone = %v, want nil", current)
	}
}

// TestResolveZones_UnclosedFieldBoundary replays the canonical field
// scenario: a 4-vertex unclosed boundary around (10.7620, 106.6600).
func TestResolveZones_UnclosedFieldBoundary(t *testing.T) {
	zone := model.Zone{
		ID:   "field-7",
		Name: "Field 7",
		Boundary: []model.LatLon{
			{Lat: 10.7615, Lon: 106.6595},
			{Lat: 10.7625, Lon: 106.6595},
			{Lat: 10.7625, Lon: 106.6605},
			{Lat: 10.7615, Lon: 106.6605},
		},
	}
	pos := model.LatLon{Lat: 10.7620, Lon: 106.6600}

	if !PointInPolygon(pos, zone.Boundary) {
		t.Fatal("position should be inside the closed boundary")
	}

	resolved := ResolveZones(pos, []model.Zone{zone})
	if len(resolved) != 1 || !resolved[0].Inside || resolved[0].DistanceMeters != 0 {
		t.Fatalf("resolved = %+v, want field-7 inside at distance 0", resolved)
	}
	current := CurrentZone(resolved)
	if current == nil || current.ID != "field-7" {
		t.Errorf("CurrentZone = %v, want field-7", current)
	}
}
