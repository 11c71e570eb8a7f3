/*
# Module: services/visualization.go
Coordinate extraction and PNG rendering of sweep points and business density.

## Linked Modules
- [types/business](../types/business.go) - Ordered records carrying coordinates
- [types/point](../types/point.go) - Sweep query points
- [services/points](./points.go) - Meter to degree conversion

## Tags
visualization, png, freetype, geolocation

## Exports
Coordinate, CollectCoordinates, PlotOptions, RenderPointsPNG, RenderDensityPNG, ErrNothingToPlot

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "services/visualization.go" ;
    code:description "Coordinate extraction and PNG rendering of sweep points and business density" ;
    code:linksTo [
        code:name "types/business" ;
        code:path "../types/business.go" ;
        code:relationship "Ordered records carrying coordinates"
    ], [
        code:name "types/point" ;
        code:path "../types/point.go" ;
        code:relationship "Sweep query points"
    ], [
        code:name "services/points" ;
        code:path "./points.go" ;
        code:relationship "Meter to degree conversion"
    ] ;
    code:exports :Coordinate, :CollectCoordinates, :PlotOptions, :RenderPointsPNG, :RenderDensityPNG, :ErrNothingToPlot ;
    code:tags "visualization", "png", "freetype", "geolocation" .
<!-- End LinkedDoc RDF -->
*/
package services

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"places-sweep/types"
)

// ErrNothingToPlot is returned when a renderer receives no drawable input
var ErrNothingToPlot = errors.New("nothing to plot")

// Coordinate is a latitude/longitude pair in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CollectCoordinates extracts coordinate pairs from records.
// Records missing either value, or holding a value that is not a number or
// numeric string, are skipped.
func CollectCoordinates(records []types.Record) []Coordinate {
	coords := []Coordinate{}
	for _, record := range records {
		lat, latOK := recordFloat(record, "latitude")
		lon, lonOK := recordFloat(record, "longitude")
		if !latOK || !lonOK {
			continue
		}
		coords = append(coords, Coordinate{Latitude: lat, Longitude: lon})
	}
	return coords
}

func recordFloat(record types.Record, key string) (float64, bool) {
	value, ok := record.Get(key)
	if !ok {
		return 0, false
	}
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// PlotOptions controls image size and annotations
type PlotOptions struct {
	Width    int
	Height   int
	Title    string
	CellSize int // density bin size in pixels
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = 1000
	}
	if o.Height <= 0 {
		o.Height = 1000
	}
	if o.CellSize <= 0 {
		o.CellSize = 10
	}
	return o
}

const (
	plotMargin   = 60
	markerRadius = 6
)

var (
	pointRamp = []color.RGBA{{68, 1, 84, 255}, {33, 145, 140, 255}, {253, 231, 37, 255}}
	heatRamp  = []color.RGBA{{49, 54, 149, 255}, {254, 224, 144, 255}, {215, 48, 39, 255}}
	textColor = color.RGBA{31, 31, 31, 255}
	ringColor = color.RGBA{60, 60, 60, 255}
)

// RenderPointsPNG draws each sweep point as a colored marker numbered in
// input order, with a dashed circle showing its query radius.
func RenderPointsPNG(w io.Writer, points []types.QueryPoint, opts PlotOptions) error {
	if len(points) == 0 {
		return ErrNothingToPlot
	}
	opts = opts.withDefaults()

	lats := make([]float64, 0, len(points)*2)
	lons := make([]float64, 0, len(points)*2)
	for _, p := range points {
		radiusDeg := MetersToDegrees(float64(p.RadiusMeters))
		lats = append(lats, p.Latitude-radiusDeg, p.Latitude+radiusDeg)
		lons = append(lons, p.Longitude-radiusDeg, p.Longitude+radiusDeg)
	}
	proj := newProjection(lats, lons, opts.Width, opts.Height)

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	drawBackground(img)

	for i, p := range points {
		x, y := proj.toPixel(p.Latitude, p.Longitude)
		radiusPx := MetersToDegrees(float64(p.RadiusMeters)) * proj.scale
		drawDashedCircle(img, x, y, radiusPx, ringColor)

		t := 0.0
		if len(points) > 1 {
			t = float64(i) / float64(len(points)-1)
		}
		drawDisc(img, x, y, markerRadius+1, color.RGBA{0, 0, 0, 255})
		drawDisc(img, x, y, markerRadius, rampColor(pointRamp, t))

		label := p.Label
		if label == "" {
			label = fmt.Sprintf("Point %d", i+1)
		}
		drawText(img, fmt.Sprintf("%d. %s", i+1, label), x+markerRadius+2, y-markerRadius-2, 11, textColor)
	}

	title := opts.Title
	if title == "" {
		title = "Sweep Points"
	}
	drawText(img, title, plotMargin, plotMargin/2, 20, textColor)
	drawText(img, fmt.Sprintf("%d points", len(points)), plotMargin, opts.Height-plotMargin/3, 12, textColor)

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// RenderDensityPNG bins coordinates into square pixel cells and colors each
// occupied cell by its count relative to the busiest cell.
func RenderDensityPNG(w io.Writer, coords []Coordinate, opts PlotOptions) error {
	if len(coords) == 0 {
		return ErrNothingToPlot
	}
	opts = opts.withDefaults()

	lats := make([]float64, len(coords))
	lons := make([]float64, len(coords))
	for i, c := range coords {
		lats[i] = c.Latitude
		lons[i] = c.Longitude
	}
	proj := newProjection(lats, lons, opts.Width, opts.Height)

	cols := (opts.Width + opts.CellSize - 1) / opts.CellSize
	rows := (opts.Height + opts.CellSize - 1) / opts.CellSize
	counts := make([]int, cols*rows)
	maxCount := 0
	for _, c := range coords {
		x, y := proj.toPixel(c.Latitude, c.Longitude)
		col, row := clamp(x/opts.CellSize, 0, cols-1), clamp(y/opts.CellSize, 0, rows-1)
		counts[row*cols+col]++
		maxCount = max(maxCount, counts[row*cols+col])
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	drawBackground(img)

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			n := counts[row*cols+col]
			if n == 0 {
				continue
			}
			t := 0.0
			if maxCount > 1 {
				t = math.Log1p(float64(n-1)) / math.Log1p(float64(maxCount-1))
			}
			fillRect(img, image.Rect(col*opts.CellSize, row*opts.CellSize, (col+1)*opts.CellSize, (row+1)*opts.CellSize), rampColor(heatRamp, t))
		}
	}

	title := opts.Title
	if title == "" {
		title = "Business Density"
	}
	drawText(img, title, plotMargin, plotMargin/2, 20, textColor)
	drawText(img, fmt.Sprintf("%d businesses, max %d per cell", len(coords), maxCount), plotMargin, opts.Height-plotMargin/3, 12, textColor)

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// projection maps degrees to pixels with an equirectangular projection
// scaled by the cosine of the center latitude, preserving aspect ratio.
type projection struct {
	minLat, maxLat float64
	minLon, maxLon float64
	cosLat         float64
	scale          float64 // pixels per degree of latitude
	offsetX        float64
	offsetY        float64
	height         int
}

func newProjection(lats, lons []float64, width, height int) projection {
	p := projection{
		minLat: math.Inf(1), maxLat: math.Inf(-1),
		minLon: math.Inf(1), maxLon: math.Inf(-1),
		height: height,
	}
	for _, lat := range lats {
		p.minLat = math.Min(p.minLat, lat)
		p.maxLat = math.Max(p.maxLat, lat)
	}
	for _, lon := range lons {
		p.minLon = math.Min(p.minLon, lon)
		p.maxLon = math.Max(p.maxLon, lon)
	}
	if p.maxLat-p.minLat < 1e-6 {
		p.minLat -= 0.01
		p.maxLat += 0.01
	}
	if p.maxLon-p.minLon < 1e-6 {
		p.minLon -= 0.01
		p.maxLon += 0.01
	}

	p.cosLat = math.Max(math.Cos((p.minLat+p.maxLat)/2*math.Pi/180), 0.01)
	plotW := float64(max(width-2*plotMargin, 1))
	plotH := float64(max(height-2*plotMargin, 1))
	lonSpan := (p.maxLon - p.minLon) * p.cosLat
	latSpan := p.maxLat - p.minLat
	p.scale = math.Min(plotW/lonSpan, plotH/latSpan)

	p.offsetX = plotMargin + (plotW-lonSpan*p.scale)/2
	p.offsetY = plotMargin + (plotH-latSpan*p.scale)/2
	return p
}

func (p projection) toPixel(lat, lon float64) (int, int) {
	x := p.offsetX + (lon-p.minLon)*p.cosLat*p.scale
	y := float64(p.height) - (p.offsetY + (lat-p.minLat)*p.scale)
	return int(math.Round(x)), int(math.Round(y))
}

// drawBackground fills the image with a light vertical gradient
func drawBackground(img *image.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		ratio := float64(y) / float64(bounds.Max.Y)
		c := color.RGBA{uint8(250 - ratio*12), uint8(250 - ratio*8), 252, 255}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func drawDisc(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setIfInside(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func drawDashedCircle(img *image.RGBA, cx, cy int, radius float64, c color.RGBA) {
	if radius < 1 {
		return
	}
	steps := int(2 * math.Pi * radius)
	for i := 0; i < steps; i++ {
		// 6px on, 4px off
		if i%10 >= 6 {
			continue
		}
		theta := float64(i) / radius
		x := cx + int(math.Round(radius*math.Cos(theta)))
		y := cy + int(math.Round(radius*math.Sin(theta)))
		setIfInside(img, x, y, c)
	}
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{x, y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func rampColor(stops []color.RGBA, t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	frac := pos - float64(i)
	a, b := stops[i], stops[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*frac) }
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 255}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

var (
	plotFont     *truetype.Font
	plotFontErr  error
	plotFontOnce sync.Once
)

// drawText draws a single line with its baseline at y
func drawText(img *image.RGBA, text string, x, y int, size float64, c color.RGBA) {
	plotFontOnce.Do(func() {
		plotFont, plotFontErr = freetype.ParseFont(goregular.TTF)
	})
	if plotFontErr != nil {
		return
	}

	drawer := &font.Drawer{
		Dst: img,
		Src: image.NewUniform(c),
		Face: truetype.NewFace(plotFont, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		}),
		Dot: fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	drawer.DrawString(text)
}
