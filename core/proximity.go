package core

import (
	"sort"

	"github.com/verdantworks/field-tracker/model"
)

// ComputeProximity derives the full "nearby" result for a position: a
// distance-sorted tree list, a distance-sorted zone list, and the
// current zone. It is a pure function of its inputs, safe to call on
// every position tick, and accumulates no state across calls.
//
// A nil position means no GPS fix yet, which yields the neutral empty
// result rather than an error.
func ComputeProximity(pos *model.Position, radiusMeters float64, trees []model.TreePoint, zones []model.Zone) model.ProximityResult {
	if pos == nil {
		return model.EmptyProximityResult()
	}
	at := pos.LatLon()

	result := model.ProximityResult{
		NearbyTrees: nearbyTrees(at, radiusMeters, trees),
		NearbyZones: nearbyZones(at, radiusMeters, zones),
	}
	result.CurrentZone = CurrentZone(result.NearbyZones)
	return result
}

// nearbyTrees filters trees with usable coordinates to those within
// radiusMeters of at, ascending by distance.
func nearbyTrees(at model.LatLon, radiusMeters float64, trees []model.TreePoint) []model.NearbyTree {
	nearby := make([]model.NearbyTree, 0, len(trees))
	for _, tree := range trees {
		if !tree.HasCoordinates() {
			continue
		}
		d := DistanceMeters(at, tree.LatLon())
		if d <= radiusMeters {
			nearby = append(nearby, model.NearbyTree{Tree: tree, DistanceMeters: d})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby
}

// nearbyZones resolves all zones and keeps those within radiusMeters
// or containing the position. ResolveZones already sorts ascending
// with inside zones first.
func nearbyZones(at model.LatLon, radiusMeters float64, zones []model.Zone) []model.NearbyZone {
	resolved := ResolveZones(at, zones)
	nearby := make([]model.NearbyZone, 0, len(resolved))
	for _, nz := range resolved {
		if nz.Inside || nz.DistanceMeters <= radiusMeters {
			nearby = append(nearby, nz)
		}
	}
	return nearby
}
