// Package ingest loads zone and tree data from the JSON exports the
// backend and field surveys produce. The exports are not uniform:
// boundary vertices appear under several key names and in both object
// and pair form, so the decoders here normalise all known shapes into
// the model types.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/verdantworks/field-tracker/model"
)

// Summary reports what a load produced. Mainly useful for logging
// from main().
type Summary struct {
	ZoneIDs []string
	TreeIDs []string

	// SkippedZones counts records without a usable boundary;
	// SkippedTrees counts records without coordinates.
	SkippedZones int
	SkippedTrees int
}

// internal JSON shapes, unexported so we are free to evolve them.

// flexString accepts string or numeric identifiers.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = flexString(num.String())
		return nil
	}
	return fmt.Errorf("identifier is neither string nor number: %s", data)
}

// vertexJSON accepts {"lat":..,"lng":..}, {"latitude":..,"longitude":..}
// and the bare pair form [lat, lng].
type vertexJSON model.LatLon

func (v *vertexJSON) UnmarshalJSON(data []byte) error {
	var obj struct {
		Lat       *float64 `json:"lat"`
		Latitude  *float64 `json:"latitude"`
		Lng       *float64 `json:"lng"`
		Lon       *float64 `json:"lon"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		lat := firstFloat(obj.Lat, obj.Latitude)
		lon := firstFloat(obj.Lng, obj.Lon, obj.Longitude)
		if lat != nil && lon != nil {
			v.Lat, v.Lon = *lat, *lon
			return nil
		}
	}

	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil && len(pair) >= 2 {
		v.Lat, v.Lon = pair[0], pair[1]
		return nil
	}

	return fmt.Errorf("vertex is neither a lat/lng object nor a [lat, lng] pair: %s", data)
}

func firstFloat(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

type zoneJSON struct {
	ID      flexString `json:"id"`
	ZoneID  flexString `json:"zoneId"`
	MongoID flexString `json:"_id"`
	Name    string     `json:"name"`
	Color   string     `json:"color"`

	Active   *bool `json:"active"`
	IsActive *bool `json:"isActive"`

	Boundary    []vertexJSON `json:"boundary"`
	Boundaries  []vertexJSON `json:"boundaries"`
	Coordinates []vertexJSON `json:"coordinates"`
	Polygon     []vertexJSON `json:"polygon"`
	Points      []vertexJSON `json:"points"`
}

func (z zoneJSON) id() string {
	for _, c := range []flexString{z.ID, z.ZoneID, z.MongoID} {
		if c != "" {
			return string(c)
		}
	}
	return ""
}

func (z zoneJSON) boundary() []vertexJSON {
	for _, c := range [][]vertexJSON{z.Boundary, z.Boundaries, z.Coordinates, z.Polygon, z.Points} {
		if len(c) > 0 {
			return c
		}
	}
	return nil
}

func (z zoneJSON) active() bool {
	if z.IsActive != nil {
		return *z.IsActive
	}
	if z.Active != nil {
		return *z.Active
	}
	return true
}

type treeJSON struct {
	ID     flexString `json:"id"`
	TreeID flexString `json:"treeId"`
	Code   flexString `json:"code"`

	Lat       *float64 `json:"lat"`
	Latitude  *float64 `json:"latitude"`
	Lng       *float64 `json:"lng"`
	Lon       *float64 `json:"lon"`
	Longitude *float64 `json:"longitude"`
}

func (t treeJSON) id() string {
	for _, c := range []flexString{t.ID, t.TreeID, t.Code} {
		if c != "" {
			return string(c)
		}
	}
	return ""
}

// envelope accepts both a bare array and the wrapped export form
// {"zones": [...]} / {"trees": [...]} / {"data": [...]}.
func unwrap(data []byte, keys ...string) (json.RawMessage, error) {
	trimmed := firstByte(data)
	if trimmed == '[' {
		return data, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range keys {
		if raw, ok := wrapper[key]; ok {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("no %q array in wrapped document", keys)
}

func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

// LoadZones reads zone records from r, normalising every known export
// shape. Records with no usable boundary are skipped and counted, not
// fatal; only malformed JSON fails the load. A record with no
// identifier gets a positional one.
func LoadZones(r io.Reader) ([]model.Zone, *Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read zones: %w", err)
	}
	raw, err := unwrap(data, "zones", "data")
	if err != nil {
		return nil, nil, fmt.Errorf("decode zones: %w", err)
	}

	var records []zoneJSON
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil, fmt.Errorf("decode zones: %w", err)
	}

	summary := &Summary{}
	zones := make([]model.Zone, 0, len(records))
	for i, rec := range records {
		verts := rec.boundary()
		if len(verts) == 0 {
			summary.SkippedZones++
			continue
		}
		boundary := make([]model.LatLon, len(verts))
		for j, v := range verts {
			boundary[j] = model.LatLon(v)
		}

		id := rec.id()
		if id == "" {
			id = "zone-" + strconv.Itoa(i)
		}
		zones = append(zones, model.Zone{
			ID:       id,
			Name:     rec.Name,
			Boundary: boundary,
			Color:    rec.Color,
			Active:   rec.active(),
		})
		summary.ZoneIDs = append(summary.ZoneIDs, id)
	}
	return zones, summary, nil
}

// LoadTrees reads tree point records from r. Records without
// coordinates are skipped and counted; the tracker would ignore them
// anyway, this just surfaces the gap earlier.
func LoadTrees(r io.Reader) ([]model.TreePoint, *Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read trees: %w", err)
	}
	raw, err := unwrap(data, "trees", "data")
	if err != nil {
		return nil, nil, fmt.Errorf("decode trees: %w", err)
	}

	var records []treeJSON
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil, fmt.Errorf("decode trees: %w", err)
	}

	summary := &Summary{}
	trees := make([]model.TreePoint, 0, len(records))
	for i, rec := range records {
		lat := firstFloat(rec.Lat, rec.Latitude)
		lon := firstFloat(rec.Lng, rec.Lon, rec.Longitude)
		if lat == nil || lon == nil {
			summary.SkippedTrees++
			continue
		}

		id := rec.id()
		if id == "" {
			id = "tree-" + strconv.Itoa(i)
		}
		trees = append(trees, model.TreePoint{
			ID:        id,
			Latitude:  *lat,
			Longitude: *lon,
		})
		summary.TreeIDs = append(summary.TreeIDs, id)
	}
	return trees, summary, nil
}

// LoadGeoJSON reads a GeoJSON FeatureCollection: Polygon (and
// MultiPolygon) features become zones from their outer ring, Point
// features become trees. Zone names and colors come from the "name"
// and "color"/"fill" properties.
func LoadGeoJSON(r io.Reader) ([]model.Zone, []model.TreePoint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode geojson: %w", err)
	}

	var zones []model.Zone
	var trees []model.TreePoint
	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Point:
			trees = append(trees, model.TreePoint{
				ID: featureID(f, i),
				// orb points are lon/lat ordered.
				Latitude:  g.Lat(),
				Longitude: g.Lon(),
			})
		case orb.Polygon:
			if z, ok := zoneFromPolygon(f, i, g); ok {
				zones = append(zones, z)
			}
		case orb.MultiPolygon:
			for _, poly := range g {
				if z, ok := zoneFromPolygon(f, i, poly); ok {
					zones = append(zones, z)
				}
			}
		}
	}
	return zones, trees, nil
}

func zoneFromPolygon(f *geojson.Feature, index int, poly orb.Polygon) (model.Zone, bool) {
	if len(poly) == 0 || len(poly[0]) < 3 {
		return model.Zone{}, false
	}
	ring := poly[0]
	// GeoJSON rings repeat the first vertex at the end; the boundary
	// convention here is unclosed.
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	boundary := make([]model.LatLon, len(ring))
	for i, pt := range ring {
		boundary[i] = model.LatLon{Lat: pt.Lat(), Lon: pt.Lon()}
	}

	color := f.Properties.MustString("color", "")
	if color == "" {
		color = f.Properties.MustString("fill", "")
	}
	return model.Zone{
		ID:       featureID(f, index),
		Name:     f.Properties.MustString("name", ""),
		Boundary: boundary,
		Color:    color,
		Active:   true,
	}, true
}

func featureID(f *geojson.Feature, index int) string {
	switch id := f.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	if id := f.Properties.MustString("id", ""); id != "" {
		return id
	}
	return "feature-" + strconv.Itoa(index)
}
