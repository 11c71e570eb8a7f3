/*
# Module: services/points.go
Reads, writes and generates sweep query points.

## Linked Modules
- [types/point](../types/point.go) - QueryPoint

## Tags
business-logic, sweep, csv, geolocation

## Exports
ReadSweepPoints, ParseSweepPoints, WriteSweepPoints, BoundingBox, GenerateGrid, DistanceMeters, MetersToDegrees

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "services/points.go" ;
    code:description "Reads, writes and generates sweep query points" ;
    code:linksTo [
        code:name "types/point" ;
        code:path "../types/point.go" ;
        code:relationship "QueryPoint"
    ] ;
    code:exports :ReadSweepPoints, :ParseSweepPoints, :WriteSweepPoints, :BoundingBox, :GenerateGrid, :DistanceMeters, :MetersToDegrees ;
    code:tags "business-logic", "sweep", "csv", "geolocation" .
<!-- End LinkedDoc RDF -->
*/
package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"places-sweep/types"
)

const earthRadiusMeters = 6371008.8

// maxGridPoints bounds GenerateGrid so a tiny spacing cannot exhaust memory
const maxGridPoints = 100000

// ReadSweepPoints parses a CSV file with latitude, longitude and radius_m
// columns (radius is accepted as an alias) and an optional label column.
func ReadSweepPoints(path string) ([]types.QueryPoint, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("sweep file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open sweep file: %w", err)
	}
	defer file.Close()

	return ParseSweepPoints(file, path)
}

// ParseSweepPoints parses sweep points from CSV. source is used in error messages.
func ParseSweepPoints(r io.Reader, source string) ([]types.QueryPoint, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("sweep file %s is empty", source)
		}
		return nil, fmt.Errorf("failed to read sweep header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}
	if _, ok := columns["radius_m"]; !ok {
		if idx, ok := columns["radius"]; ok {
			columns["radius_m"] = idx
		}
	}

	missing := []string{}
	for _, required := range []string{"latitude", "longitude", "radius_m"} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("sweep file %s missing columns: %s", source, strings.Join(missing, ", "))
	}
	labelIdx, hasLabel := columns["label"]

	points := []types.QueryPoint{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sweep row %d: %w", line, err)
		}
		if isBlankRow(row) {
			continue
		}

		lat, err := parseFloatCell(row, columns["latitude"])
		if err != nil {
			return nil, fmt.Errorf("invalid sweep row %d (latitude): %w", line, err)
		}
		lon, err := parseFloatCell(row, columns["longitude"])
		if err != nil {
			return nil, fmt.Errorf("invalid sweep row %d (longitude): %w", line, err)
		}
		radius, err := parseFloatCell(row, columns["radius_m"])
		if err != nil {
			return nil, fmt.Errorf("invalid sweep row %d (radius_m): %w", line, err)
		}

		point := types.QueryPoint{
			Latitude:     lat,
			Longitude:    lon,
			RadiusMeters: int(radius),
		}
		if hasLabel && labelIdx < len(row) {
			point.Label = strings.TrimSpace(row[labelIdx])
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("sweep file %s did not contain any points", source)
	}
	return points, nil
}

// WriteSweepPoints writes points as CSV with a label column
func WriteSweepPoints(path string, points []types.QueryPoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sweep file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"latitude", "longitude", "radius_m", "label"}); err != nil {
		return fmt.Errorf("failed to write sweep header: %w", err)
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			strconv.FormatFloat(p.Longitude, 'f', -1, 64),
			strconv.Itoa(p.RadiusMeters),
			p.Label,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write sweep row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush sweep file: %w", err)
	}
	return file.Close()
}

// BoundingBox is a latitude/longitude rectangle in degrees
type BoundingBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Validate checks ordering and ranges of the box corners
func (b BoundingBox) Validate() error {
	sw := s2.LatLngFromDegrees(b.South, b.West)
	ne := s2.LatLngFromDegrees(b.North, b.East)
	if !sw.IsValid() || !ne.IsValid() {
		return fmt.Errorf("bounding box corners out of range: %+v", b)
	}
	if b.South > b.North || b.West > b.East {
		return fmt.Errorf("bounding box must have south <= north and west <= east: %+v", b)
	}
	return nil
}

// GenerateGrid lays out query points row by row from the south-west corner.
// Rows are spacingMeters apart; within a row, points are spacingMeters apart
// along the parallel, so longitude steps widen toward the poles.
func GenerateGrid(box BoundingBox, spacingMeters float64, radiusMeters int) ([]types.QueryPoint, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if spacingMeters <= 0 {
		return nil, fmt.Errorf("grid spacing must be positive, got %v", spacingMeters)
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("grid radius must be positive, got %d", radiusMeters)
	}

	latStep := MetersToDegrees(spacingMeters)
	points := []types.QueryPoint{}

	for row, lat := 0, box.South; lat <= box.North+1e-9; row, lat = row+1, lat+latStep {
		cosLat := math.Cos((s1.Angle(lat) * s1.Degree).Radians())
		lonStep := latStep
		if cosLat > 1e-6 {
			lonStep = latStep / cosLat
		}
		for col, lon := 0, box.West; lon <= box.East+1e-9; col, lon = col+1, lon+lonStep {
			if len(points) >= maxGridPoints {
				return nil, fmt.Errorf("grid exceeds %d points; increase spacing", maxGridPoints)
			}
			points = append(points, types.QueryPoint{
				Latitude:     roundCoord(lat),
				Longitude:    roundCoord(lon),
				RadiusMeters: radiusMeters,
				Label:        fmt.Sprintf("r%dc%d", row+1, col+1),
			})
		}
	}
	return points, nil
}

// DistanceMeters returns the great-circle distance between two points
func DistanceMeters(a, b types.QueryPoint) float64 {
	from := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	to := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return from.Distance(to).Radians() * earthRadiusMeters
}

// MetersToDegrees converts a distance along a meridian to degrees of latitude
func MetersToDegrees(meters float64) float64 {
	return s1.Angle(meters / earthRadiusMeters).Degrees()
}

func roundCoord(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func parseFloatCell(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, fmt.Errorf("missing value")
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("not a finite number: %q", row[idx])
	}
	return value, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
