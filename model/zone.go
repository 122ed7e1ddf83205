package model

// Zone is a named polygonal region of a farm. The boundary is an
// ordered vertex list and is treated as implicitly closed: geometric
// operations append the first vertex when the ring is open, without
// mutating the stored boundary.
//
// A zone participates in containment and area calculations only if its
// boundary still has at least three vertices after consecutive
// duplicates are dropped. Zones that fail that test are omitted from
// results, never errored.
type Zone struct {
	ID       string
	Name     string
	Boundary []LatLon
	Color    string
	Active   bool
}

// TreePoint is any entity with a coordinate. Only entities with
// non-zero coordinates participate in proximity results; (0, 0) marks
// an entity whose location was never captured.
type TreePoint struct {
	ID        string
	Latitude  float64
	Longitude float64
}

// HasCoordinates reports whether the tree carries a usable location.
func (t TreePoint) HasCoordinates() bool {
	return t.Latitude != 0 || t.Longitude != 0
}

// LatLon returns the tree's coordinate.
func (t TreePoint) LatLon() LatLon {
	return LatLon{Lat: t.Latitude, Lon: t.Longitude}
}
