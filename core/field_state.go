package core

import (
	"math"
	"sync"

	"github.com/tidwall/rtree"

	"github.com/verdantworks/field-tracker/model"
)

// metersPerDegreeLat is the length of one degree of latitude on the
// engine's reference sphere.
const metersPerDegreeLat = EarthRadiusMeters * math.Pi / 180.0

// FieldState holds the engine's read-only snapshot of the farm: the
// zone polygons and the tree points, plus an R-tree over the trees so
// radius queries don't scan every tree on every position tick.
//
// The data layer owns zone and tree lifetimes; SetZones/SetTrees
// replace whole snapshots and the engine never writes back. All access
// is safe for one writer and many readers.
type FieldState struct {
	mu    sync.RWMutex
	zones []model.Zone
	trees []model.TreePoint
	index rtree.RTreeG[model.TreePoint]
}

// NewFieldState constructs an empty field snapshot store.
func NewFieldState() *FieldState {
	return &FieldState{}
}

// SetZones replaces the zone snapshot.
func (fs *FieldState) SetZones(zones []model.Zone) {
	snapshot := make([]model.Zone, len(zones))
	copy(snapshot, zones)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.zones = snapshot
}

// SetTrees replaces the tree snapshot and rebuilds the spatial index.
// Trees without coordinates are kept in the snapshot but never
// indexed, so they can't appear in proximity results.
func (fs *FieldState) SetTrees(trees []model.TreePoint) {
	snapshot := make([]model.TreePoint, len(trees))
	copy(snapshot, trees)

	var index rtree.RTreeG[model.TreePoint]
	for _, t := range snapshot {
		if !t.HasCoordinates() {
			continue
		}
		pt := [2]float64{t.Longitude, t.Latitude}
		index.Insert(pt, pt, t)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.trees = snapshot
	fs.index = index
}

// Zones returns a copy of the current zone snapshot.
func (fs *FieldState) Zones() []model.Zone {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]model.Zone, len(fs.zones))
	copy(out, fs.zones)
	return out
}

// Trees returns a copy of the current tree snapshot.
func (fs *FieldState) Trees() []model.TreePoint {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]model.TreePoint, len(fs.trees))
	copy(out, fs.trees)
	return out
}

// Counts reports the snapshot sizes, mainly for logs and gauges.
func (fs *FieldState) Counts() (zones, trees int) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.zones), len(fs.trees)
}

// Proximity answers the same question as ComputeProximity against the
// stored snapshot, using the index to pre-filter trees to a bounding
// box around the position before the exact haversine check. Results
// are identical to the linear scan.
func (fs *FieldState) Proximity(pos *model.Position, radiusMeters float64) model.ProximityResult {
	if pos == nil {
		return model.EmptyProximityResult()
	}
	at := pos.LatLon()

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	candidates := fs.searchLocked(at, radiusMeters)
	result := model.ProximityResult{
		NearbyTrees: nearbyTrees(at, radiusMeters, candidates),
		NearbyZones: nearbyZones(at, radiusMeters, fs.zones),
	}
	result.CurrentZone = CurrentZone(result.NearbyZones)
	return result
}

// searchLocked collects trees whose point lies in the bounding box
// that encloses the radius circle. The box is padded slightly because
// the degree conversion is itself an approximation; the exact distance
// filter afterwards removes anything the padding lets through.
func (fs *FieldState) searchLocked(at model.LatLon, radiusMeters float64) []model.TreePoint {
	const pad = 1.01
	dLat := radiusMeters / metersPerDegreeLat * pad

	cosLat := math.Cos(at.Lat * degToRad)
	dLon := 180.0
	if cosLat > 1e-6 {
		dLon = radiusMeters / (metersPerDegreeLat * cosLat) * pad
	}

	var candidates []model.TreePoint
	fs.index.Search(
		[2]float64{at.Lon - dLon, at.Lat - dLat},
		[2]float64{at.Lon + dLon, at.Lat + dLat},
		func(_, _ [2]float64, t model.TreePoint) bool {
			candidates = append(candidates, t)
			return true
		},
	)
	return candidates
}
