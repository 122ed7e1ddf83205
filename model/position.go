package model

import "time"

// LatLon is a geographic coordinate in decimal degrees (WGS84).
type LatLon struct {
	Lat float64
	Lon float64
}

// Position is a single accepted sample from a location sensor.
// Positions are immutable once emitted; consumers only ever read the
// latest value (path history lives in TrackingHistory).
type Position struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64

	// HeadingDegrees and SpeedMps are nil when the sensor does not
	// report them (common for stationary fixes).
	HeadingDegrees *float64
	SpeedMps       *float64

	Timestamp time.Time
}

// LatLon returns the position's coordinate.
func (p Position) LatLon() LatLon {
	return LatLon{Lat: p.Latitude, Lon: p.Longitude}
}

// Valid reports whether the sample satisfies the basic coordinate
// invariants: latitude in [-90, 90], longitude in [-180, 180], and a
// non-negative accuracy.
func (p Position) Valid() bool {
	if p.Latitude < -90 || p.Latitude > 90 {
		return false
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return false
	}
	return p.AccuracyMeters >= 0
}

// TrackingPoint is a position sample retained only for path display.
// TrackingPoints are owned exclusively by the TrackingHistory ring.
type TrackingPoint struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}

// TrackingPointFrom reduces a full position sample to its path form.
func TrackingPointFrom(p Position) TrackingPoint {
	return TrackingPoint{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Timestamp: p.Timestamp,
	}
}
