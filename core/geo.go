package core

import (
	"math"

	"github.com/verdantworks/field-tracker/model"
)

// EarthRadiusMeters is the mean Earth radius used for all geodesy in
// the engine (metres).
const EarthRadiusMeters = 6371000.0

const degToRad = math.Pi / 180.0

// DistanceMeters returns the great-circle (haversine) distance between
// two coordinates in metres. It is symmetric and returns 0 for
// coincident points.
func DistanceMeters(a, b model.LatLon) float64 {
	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad
	dLat := (b.Lat - a.Lat) * degToRad
	dLon := (b.Lon - a.Lon) * degToRad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// DedupBoundary removes consecutive duplicate vertices. It never
// mutates the input slice; when nothing is dropped the input is
// returned as-is.
func DedupBoundary(boundary []model.LatLon) []model.LatLon {
	if len(boundary) < 2 {
		return boundary
	}
	dups := 0
	for i := 1; i < len(boundary); i++ {
		if boundary[i] == boundary[i-1] {
			dups++
		}
	}
	if dups == 0 {
		return boundary
	}
	out := make([]model.LatLon, 0, len(boundary)-dups)
	out = append(out, boundary[0])
	for i := 1; i < len(boundary); i++ {
		if boundary[i] != boundary[i-1] {
			out = append(out, boundary[i])
		}
	}
	return out
}

// ClosePolygon returns a closed ring: when the first and last vertex
// differ (exact coordinate match), a copy of the first vertex is
// appended. The caller's slice is never mutated. Closing an already
// closed ring returns it unchanged, so the operation is idempotent.
// Boundaries with fewer than three vertices are not polygons and yield
// nil.
func ClosePolygon(boundary []model.LatLon) []model.LatLon {
	if len(boundary) < 3 {
		return nil
	}
	if boundary[0] == boundary[len(boundary)-1] {
		return boundary
	}
	closed := make([]model.LatLon, 0, len(boundary)+1)
	closed = append(closed, boundary...)
	closed = append(closed, boundary[0])
	return closed
}

// PolygonAreaHectares computes the approximate area of the boundary in
// hectares, rounded to two decimal places. Vertices are projected to
// planar metres with an equirectangular approximation anchored at the
// boundary's mean latitude, then run through the shoelace formula.
//
// The projection is only valid at farm scale; it is not a geodesic
// area and degrades for polygons spanning large latitude ranges.
func PolygonAreaHectares(boundary []model.LatLon) float64 {
	ring := ClosePolygon(DedupBoundary(boundary))
	if ring == nil {
		return 0
	}

	var latSum float64
	for _, v := range ring {
		latSum += v.Lat
	}
	lat0 := latSum / float64(len(ring))
	cosLat0 := math.Cos(lat0 * degToRad)

	// Shoelace over the closed ring in projected metres.
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		x1 := ring[i].Lon * degToRad * EarthRadiusMeters * cosLat0
		y1 := ring[i].Lat * degToRad * EarthRadiusMeters
		x2 := ring[i+1].Lon * degToRad * EarthRadiusMeters * cosLat0
		y2 := ring[i+1].Lat * degToRad * EarthRadiusMeters
		sum += x1*y2 - x2*y1
	}
	hectares := math.Abs(sum) / 2 / 10000
	return math.Round(hectares*100) / 100
}

// PointInPolygon reports whether pt lies inside the boundary using the
// even-odd (ray casting) rule over the closed ring.
//
// Degenerate or self-intersecting boundaries produce the even-odd
// answer, not a guaranteed-correct one. That matches the data we
// actually see from hand-drawn farm zones and is a documented
// limitation, not something we try to correct.
func PointInPolygon(pt model.LatLon, boundary []model.LatLon) bool {
	ring := ClosePolygon(DedupBoundary(boundary))
	if ring == nil {
		return false
	}

	x, y := pt.Lon, pt.Lat
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
	}
	return inside
}

// Centroid returns the arithmetic mean of the closed, deduplicated
// boundary vertices. This is an approximation of the true polygon
// centroid that is stable and cheap, which is all zone distance
// ranking needs. Returns the zero coordinate for degenerate input.
func Centroid(boundary []model.LatLon) model.LatLon {
	ring := ClosePolygon(DedupBoundary(boundary))
	if ring == nil {
		return model.LatLon{}
	}
	var latSum, lonSum float64
	for _, v := range ring {
		latSum += v.Lat
		lonSum += v.Lon
	}
	n := float64(len(ring))
	return model.LatLon{Lat: latSum / n, Lon: lonSum / n}
}
