// Package geo provides the area-of-interest geometry used to scope a
// filmstrip analysis: polygon rings in lon/lat, bounding boxes, and the
// spherical area approximation used for size-limit checks.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Earth mean radius in kilometers
const earthRadiusKm = 6371.0088

// Point is a lon/lat coordinate in degrees (EPSG:4326)
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// BoundingBox is an axis-aligned lon/lat extent
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Intersects reports whether two boxes share any area
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinLon < o.MaxLon && b.MaxLon > o.MinLon &&
		b.MinLat < o.MaxLat && b.MaxLat > o.MinLat
}

// Center returns the box midpoint
func (b BoundingBox) Center() Point {
	return Point{Lon: (b.MinLon + b.MaxLon) / 2, Lat: (b.MinLat + b.MaxLat) / 2}
}

// Polygon is a single closed ring of lon/lat vertices. The ring may be
// stored open (first vertex not repeated); Bounds and Area handle both.
type Polygon struct {
	Ring []Point `json:"ring"`
}

// FromBoundingBox builds a rectangular polygon from a box extent
func FromBoundingBox(b BoundingBox) Polygon {
	return Polygon{Ring: []Point{
		{b.MinLon, b.MinLat},
		{b.MaxLon, b.MinLat},
		{b.MaxLon, b.MaxLat},
		{b.MinLon, b.MaxLat},
	}}
}

// Validate rejects degenerate geometries before they reach the catalog
func (p Polygon) Validate() error {
	if len(p.vertices()) < 3 {
		return fmt.Errorf("polygon requires at least 3 distinct vertices, got %d", len(p.vertices()))
	}
	for _, v := range p.Ring {
		if math.IsNaN(v.Lon) || math.IsNaN(v.Lat) || math.IsInf(v.Lon, 0) || math.IsInf(v.Lat, 0) {
			return fmt.Errorf("polygon vertex (%g, %g) is not finite", v.Lon, v.Lat)
		}
		if v.Lat < -90 || v.Lat > 90 || v.Lon < -180 || v.Lon > 180 {
			return fmt.Errorf("polygon vertex (%g, %g) outside lon/lat range", v.Lon, v.Lat)
		}
	}
	if p.AreaKm2() == 0 {
		return fmt.Errorf("polygon has zero area")
	}
	return nil
}

// vertices returns the ring without a repeated closing vertex
func (p Polygon) vertices() []Point {
	v := p.Ring
	if len(v) > 1 && v[0] == v[len(v)-1] {
		v = v[:len(v)-1]
	}
	return v
}

// Bounds returns the polygon's axis-aligned extent
func (p Polygon) Bounds() BoundingBox {
	b := BoundingBox{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
	for _, v := range p.Ring {
		b.MinLon = math.Min(b.MinLon, v.Lon)
		b.MinLat = math.Min(b.MinLat, v.Lat)
		b.MaxLon = math.Max(b.MaxLon, v.Lon)
		b.MaxLat = math.Max(b.MaxLat, v.Lat)
	}
	return b
}

// AreaKm2 computes the enclosed area in square kilometers using the
// shoelace formula on an equirectangular projection about the ring's
// mean latitude. Adequate for the AOI sizes this tool caps anyway.
func (p Polygon) AreaKm2() float64 {
	v := p.vertices()
	if len(v) < 3 {
		return 0
	}

	var meanLat float64
	for _, pt := range v {
		meanLat += pt.Lat
	}
	meanLat /= float64(len(v))

	kmPerDegLat := earthRadiusKm * math.Pi / 180
	kmPerDegLon := kmPerDegLat * math.Cos(meanLat*math.Pi/180)

	var sum float64
	for i := range v {
		j := (i + 1) % len(v)
		xi, yi := v[i].Lon*kmPerDegLon, v[i].Lat*kmPerDegLat
		xj, yj := v[j].Lon*kmPerDegLon, v[j].Lat*kmPerDegLat
		sum += xi*yj - xj*yi
	}
	return math.Abs(sum) / 2
}

// Contains reports whether the point lies inside the ring (ray casting).
// Points exactly on an edge may fall on either side.
func (p Polygon) Contains(pt Point) bool {
	v := p.vertices()
	inside := false
	for i, j := 0, len(v)-1; i < len(v); j, i = i, i+1 {
		if (v[i].Lat > pt.Lat) != (v[j].Lat > pt.Lat) &&
			pt.Lon < (v[j].Lon-v[i].Lon)*(pt.Lat-v[i].Lat)/(v[j].Lat-v[i].Lat)+v[i].Lon {
			inside = !inside
		}
	}
	return inside
}

// geoJSONGeometry is the subset of GeoJSON this tool accepts: a single
// Polygon geometry or a Feature wrapping one.
type geoJSONGeometry struct {
	Type        string           `json:"type"`
	Coordinates [][][2]float64   `json:"coordinates,omitempty"`
	Geometry    *geoJSONGeometry `json:"geometry,omitempty"`
}

// ParseGeoJSON decodes a GeoJSON Polygon (or Feature containing one) into
// a Polygon. Only the exterior ring is kept; holes are ignored.
func ParseGeoJSON(data []byte) (Polygon, error) {
	var g geoJSONGeometry
	if err := json.Unmarshal(data, &g); err != nil {
		return Polygon{}, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	if g.Type == "Feature" {
		if g.Geometry == nil {
			return Polygon{}, fmt.Errorf("GeoJSON feature has no geometry")
		}
		g = *g.Geometry
	}
	if g.Type != "Polygon" {
		return Polygon{}, fmt.Errorf("unsupported GeoJSON geometry type %q (want Polygon)", g.Type)
	}
	if len(g.Coordinates) == 0 {
		return Polygon{}, fmt.Errorf("GeoJSON polygon has no rings")
	}

	ring := make([]Point, len(g.Coordinates[0]))
	for i, c := range g.Coordinates[0] {
		ring[i] = Point{Lon: c[0], Lat: c[1]}
	}
	poly := Polygon{Ring: ring}
	if err := poly.Validate(); err != nil {
		return Polygon{}, err
	}
	return poly, nil
}

// LoadGeoJSONFile reads and parses an AOI polygon from a GeoJSON file
func LoadGeoJSONFile(path string) (Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Polygon{}, fmt.Errorf("reading AOI file: %w", err)
	}
	return ParseGeoJSON(data)
}
