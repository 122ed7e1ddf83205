package core

import (
	"sort"

	"github.com/verdantworks/field-tracker/model"
)

// ResolveZones evaluates every usable zone against the position and
// returns them ascending by distance. A zone containing the position
// gets distance 0 and therefore sorts first; all other zones are
// ranked by haversine distance to their vertex-mean centroid.
//
// Zones whose boundary has fewer than three vertices after
// deduplication are omitted entirely. They are not errors and they are
// not given an infinite distance; callers that want to surface
// malformed geometry can diff the output against their input.
//
// The sort is stable, so equidistant zones keep their input order.
func ResolveZones(pos model.LatLon, zones []model.Zone) []model.NearbyZone {
	resolved := make([]model.NearbyZone, 0, len(zones))
	for _, z := range zones {
		boundary := DedupBoundary(z.Boundary)
		if len(boundary) < 3 {
			continue
		}
		nz := model.NearbyZone{
			Zone:         z,
			Inside:       PointInPolygon(pos, boundary),
			AreaHectares: PolygonAreaHectares(boundary),
		}
		if !nz.Inside {
			nz.DistanceMeters = DistanceMeters(pos, Centroid(boundary))
		}
		resolved = append(resolved, nz)
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].DistanceMeters < resolved[j].DistanceMeters
	})
	return resolved
}

// CurrentZone picks the zone the position is inside from an already
// resolved list, or nil when the position is in no zone.
//
// When zones overlap, the smallest zone by area wins: a worker
// standing in an orchard block that sits inside a larger irrigation
// sector is "in the block". Equal areas fall back to resolved order.
func CurrentZone(resolved []model.NearbyZone) *model.Zone {
	var best *model.NearbyZone
	for i := range resolved {
		if !resolved[i].Inside {
			continue
		}
		if best == nil || resolved[i].AreaHectares < best.AreaHectares {
			best = &resolved[i]
		}
	}
	if best == nil {
		return nil
	}
	z := best.Zone
	return &z
}
