/*
# Module: services/exporter.go
Flattens canonical records into tabular rows and writes CSV, Excel and GeoJSON exports.

## Linked Modules
- [types/business](../types/business.go) - Business and ordered Record

## Tags
business-logic, export, csv, excel, geojson

## Exports
ErrNoRecords, BusinessRecords, FlattenRecords, ExportCSV, ExportExcel, BusinessesToGeoJSON, FeatureCollection, Feature, PointGeometry

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "services/exporter.go" ;
    code:description "Flattens canonical records into tabular rows and writes CSV, Excel and GeoJSON exports" ;
    code:linksTo [
        code:name "types/business" ;
        code:path "../types/business.go" ;
        code:relationship "Business and ordered Record"
    ] ;
    code:exports :ErrNoRecords, :BusinessRecords, :FlattenRecords, :ExportCSV, :ExportExcel, :BusinessesToGeoJSON, :FeatureCollection, :Feature, :PointGeometry ;
    code:tags "business-logic", "export", "csv", "excel", "geojson" .
<!-- End LinkedDoc RDF -->
*/
package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"places-sweep/types"
)

// DefaultSheetName is used by ExportExcel when no sheet name is given
const DefaultSheetName = "Businesses"

const maxColumnWidth = 60

// ErrNoRecords is returned when an export is asked to write nothing
var ErrNoRecords = errors.New("no records to export")

// BusinessRecords converts businesses to ordered records, keeping their order
func BusinessRecords(businesses []types.Business, includeRaw bool) []types.Record {
	records := make([]types.Record, 0, len(businesses))
	for _, b := range businesses {
		records = append(records, b.ToRecord(includeRaw))
	}
	return records
}

// FlattenRecords turns records into a header row and string rows.
// Headers are the union of keys in first-seen order. Missing and nil values
// become "", lists are joined with ", " and nested objects are JSON encoded.
func FlattenRecords(records []types.Record) ([]string, [][]string) {
	headers := []string{}
	index := map[string]int{}
	for _, record := range records {
		for _, field := range record {
			if _, ok := index[field.Key]; !ok {
				index[field.Key] = len(headers)
				headers = append(headers, field.Key)
			}
		}
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(headers))
		for _, field := range record {
			row[index[field.Key]] = flattenValue(field.Value)
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func flattenValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, flattenValue(item))
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return toJSON(v)
	}
}

func toJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// ExportCSV writes records to path as CSV with a header row
func ExportCSV(records []types.Record, path string) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	headers, rows := FlattenRecords(records)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close CSV file: %w", err)
	}

	log.Printf("📄 Exported %d records to %s", len(rows), path)
	return nil
}

// ExportExcel writes records to a single-sheet workbook. Column widths fit
// the longest cell plus padding, capped at 60 characters.
func ExportExcel(records []types.Record, path, sheet string) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	if sheet == "" {
		sheet = DefaultSheetName
	}
	headers, rows := FlattenRecords(records)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	widths := make([]int, len(headers))
	if err := writeSheetRow(f, sheet, 1, headers, widths); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeSheetRow(f, sheet, i+2, row, widths); err != nil {
			return err
		}
	}

	for i, width := range widths {
		column, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(sheet, column, column, float64(min(width+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("failed to size column %s: %w", column, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	log.Printf("📊 Exported %d records to %s (sheet %s)", len(rows), path, sheet)
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, rowNum int, values []string, widths []int) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to resolve row %d: %w", rowNum, err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
		if n := utf8.RuneCountInString(v); n > widths[i] {
			widths[i] = n
		}
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

// FeatureCollection is a GeoJSON FeatureCollection
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON point feature
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   PointGeometry  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// PointGeometry holds [longitude, latitude]
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// BusinessesToGeoJSON builds a FeatureCollection of businesses that have
// coordinates. Businesses without coordinates are left out.
func BusinessesToGeoJSON(businesses []types.Business) FeatureCollection {
	collection := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	for _, b := range businesses {
		if !b.HasCoordinates() {
			continue
		}
		properties := map[string]any{}
		for _, field := range b.ToRecord(false) {
			switch field.Key {
			case "latitude", "longitude":
				continue
			}
			if field.Value != nil {
				properties[field.Key] = field.Value
			}
		}
		collection.Features = append(collection.Features, Feature{
			Type: "Feature",
			ID:   b.ID,
			Geometry: PointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{*b.Longitude, *b.Latitude},
			},
			Properties: properties,
		})
	}
	return collection
}
