// Package render draws run results as Leaflet HTML maps and GeoJSON.
package render

import (
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venuecluster/internal/model"
)

// Default map settings.
const (
	DefaultZoom         = 14
	DefaultRadiusMeters = 1000
	DefaultColor        = "#3186cc"
)

// Marker is one labelled point on a map.
type Marker struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
	Color string  `json:"color"`
}

// Map is a self-contained Leaflet page. A positive RadiusMeters draws a
// circle around Center. FitBounds zooms to the markers instead of Zoom.
type Map struct {
	Title        string
	Center       model.Point
	Zoom         int
	RadiusMeters int
	FitBounds    bool
	Markers      []Marker
}

// Labels reach Leaflet as text nodes; bindPopup parses strings as HTML.
var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Center.Lat}}, {{.Center.Lng}}], {{.Zoom}});
L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
{{- if gt .RadiusMeters 0}}
L.circle([{{.Center.Lat}}, {{.Center.Lng}}], {radius: {{.RadiusMeters}}, color: '#3186cc', fill: false}).addTo(map);
{{- end}}
var markers = {{.Markers}};
var bounds = [];
markers.forEach(function (m) {
  var popup = document.createElement('span');
  popup.textContent = m.label;
  L.circleMarker([m.lat, m.lng], {radius: 5, color: m.color, fillColor: m.color, fillOpacity: 0.7})
    .bindPopup(popup)
    .addTo(map);
  bounds.push([m.lat, m.lng]);
});
{{- if .FitBounds}}
if (bounds.length > 0) { map.fitBounds(bounds, {padding: [20, 20]}); }
{{- end}}
</script>
</body>
</html>
`))

// Render writes m as an HTML page.
func (m *Map) Render(w io.Writer) error {
	data := *m
	if data.Zoom <= 0 {
		data.Zoom = DefaultZoom
	}
	if data.Markers == nil {
		data.Markers = []Marker{}
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return eris.Wrap(err, "render: execute map template")
	}
	return nil
}

// VenueMap draws the venues of one neighborhood, labelled by category,
// inside a radiusMeters circle around the neighborhood.
func VenueMap(run *model.Run, id string, radiusMeters, zoom int) (*Map, error) {
	n, ok := run.Neighborhood(id)
	if !ok {
		return nil, eris.Errorf("render: unknown neighborhood %q", id)
	}
	if !n.Geocoded() {
		return nil, eris.Errorf("render: neighborhood %q has no location", id)
	}

	m := &Map{
		Title:        fmt.Sprintf("Venues near %s", n.Name),
		Center:       *n.Location,
		Zoom:         zoom,
		RadiusMeters: radiusMeters,
	}
	for _, v := range model.VenuesFor(run.Venues, id) {
		m.Markers = append(m.Markers, Marker{
			Lat:   v.Lat,
			Lng:   v.Lng,
			Label: fmt.Sprintf("%s (%s)", v.Category, v.Name),
			Color: DefaultColor,
		})
	}
	return m, nil
}

// ClusterMap draws every clustered neighborhood coloured by cluster label.
func ClusterMap(run *model.Run) *Map {
	palette := Palette(len(run.Clusters))
	m := &Map{Title: "Neighborhood clusters", FitBounds: true}

	var sumLat, sumLng float64
	for _, n := range run.Neighborhoods {
		if n.Cluster == nil || !n.Geocoded() {
			continue
		}
		color := DefaultColor
		if *n.Cluster < len(palette) {
			color = palette[*n.Cluster]
		}
		m.Markers = append(m.Markers, Marker{
			Lat:   n.Location.Lat,
			Lng:   n.Location.Lng,
			Label: fmt.Sprintf("%s, cluster %d", n.Name, *n.Cluster),
			Color: color,
		})
		sumLat += n.Location.Lat
		sumLng += n.Location.Lng
	}
	if len(m.Markers) > 0 {
		m.Center = model.Point{Lat: sumLat / float64(len(m.Markers)), Lng: sumLng / float64(len(m.Markers))}
	}
	m.Zoom = 5
	return m
}

// Palette returns k colours spread evenly around the hue circle.
func Palette(k int) []string {
	colors := make([]string, k)
	for i := range k {
		colors[i] = hsvHex(float64(i)/float64(k)*300, 0.85, 0.9)
	}
	return colors
}

func hsvHex(h, s, v float64) string {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to := func(f float64) int { return int(math.Round((f + m) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to(r), to(g), to(b))
}
