package model

// NearbyTree pairs a tree with its distance from the query position.
type NearbyTree struct {
	Tree           TreePoint
	DistanceMeters float64
}

// NearbyZone pairs a zone with its distance from the query position.
// Distance is zero when the position is inside the zone; otherwise it
// is the distance to the zone's vertex-mean centroid.
type NearbyZone struct {
	Zone           Zone
	DistanceMeters float64
	Inside         bool
	AreaHectares   float64
}

// ProximityResult is the derived "what is around me" value. It is
// recomputed from scratch on every position update and never
// persisted.
type ProximityResult struct {
	// NearbyTrees holds trees within the query radius, ascending by
	// distance.
	NearbyTrees []NearbyTree

	// NearbyZones holds zones within the query radius or containing
	// the position, ascending by distance (inside zones first).
	NearbyZones []NearbyZone

	// CurrentZone is the zone the position is inside, or nil.
	CurrentZone *Zone
}

// EmptyProximityResult is the neutral value returned when there is no
// GPS fix yet. Having no fix is not an error.
func EmptyProximityResult() ProximityResult {
	return ProximityResult{
		NearbyTrees: []NearbyTree{},
		NearbyZones: []NearbyZone{},
	}
}
