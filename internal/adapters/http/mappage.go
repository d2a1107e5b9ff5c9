package http

import (
	"html/template"
	"io"
	"strings"

	"github.com/samirrijal/racemap/internal/core/domain"
	"github.com/samirrijal/racemap/internal/pkg/config"
)

// mapPageConfig is handed to the page script as JSON.
type mapPageConfig struct {
	GeoJSONURL   string   `json:"geojsonUrl"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Zoom         int      `json:"zoom"`
	TileURL      string   `json:"tileUrl"`
	Subdomains   []string `json:"subdomains"`
	Attribution  string   `json:"attribution"`
	PathColor    string   `json:"pathColor"`
	PathWidth    float64  `json:"pathWidth"`
	PathOpacity  float64  `json:"pathOpacity"`
	MarkerRadius float64  `json:"markerRadius"`
	MarkerStroke float64  `json:"markerStroke"`
	MarkerColor  string   `json:"markerColor"`
	MarkerFill   string   `json:"markerFill"`
	StartIconURL string   `json:"startIconUrl"`
}

// startIconPath serves the built-in or file-based start icon.
const startIconPath = "/v1/assets/start-icon.png"

// startIconURL is the icon the page shows at the start point: the
// configured URL when there is one, the served asset otherwise.
func startIconURL(style config.RenderConfig) string {
	if strings.HasPrefix(style.StartIconPath, "http://") || strings.HasPrefix(style.StartIconPath, "https://") {
		return style.StartIconPath
	}
	return startIconPath
}

var mapPageTmpl = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
  <style>html,body,#map{height:100%;margin:0}</style>
</head>
<body>
  <div id="map"></div>
  <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
  <script>
    const cfg = {{.Config}};
    const startIcon = L.icon({
      iconUrl: cfg.startIconUrl,
      iconSize: [25, 41],
      iconAnchor: [12, 41],
      popupAnchor: [1, -34],
    });
    const map = L.map('map').setView([cfg.lat, cfg.lon], cfg.zoom);
    L.tileLayer(cfg.tileUrl, {
      attribution: cfg.attribution,
      subdomains: cfg.subdomains.length ? cfg.subdomains : 'abc',
      maxZoom: 19,
    }).addTo(map);

    fetch(cfg.geojsonUrl)
      .then((r) => r.json())
      .then((fc) => {
        L.geoJSON(fc, {
          style: () => ({
            color: cfg.pathColor,
            weight: cfg.pathWidth,
            opacity: cfg.pathOpacity,
            lineCap: 'round',
            lineJoin: 'round',
          }),
          pointToLayer: (f, latlng) => {
            if (f.properties.kind === 'km') {
              return L.circleMarker(latlng, {
                radius: cfg.markerRadius,
                color: cfg.markerColor,
                weight: cfg.markerStroke,
                fillColor: cfg.markerFill,
                fillOpacity: 1,
              }).bindPopup(f.properties.label);
            }
            return L.marker(latlng, { icon: startIcon }).bindPopup('<b>' + f.properties.title + '</b><br>' + f.properties.message);
          },
        }).addTo(map);
      })
      .catch((err) => console.error('route unavailable', err));
  </script>
</body>
</html>`))

// renderMapPage writes the interactive page for route centred on view.
func renderMapPage(w io.Writer, route domain.RouteID, view domain.RouteView, tiles config.TilesConfig, style config.RenderConfig) error {
	return mapPageTmpl.Execute(w, struct {
		Title  string
		Config mapPageConfig
	}{
		Title: route.Title(),
		Config: mapPageConfig{
			GeoJSONURL:   "/v1/routes/" + route.Slug() + "/geojson",
			Lat:          view.Center.Lat,
			Lon:          view.Center.Lon,
			Zoom:         view.Zoom,
			TileURL:      strings.ReplaceAll(tiles.URL, "{key}", tiles.APIKey),
			Subdomains:   tiles.Subdomains,
			Attribution:  tiles.Attribution,
			PathColor:    style.PathColor,
			PathWidth:    style.PathWidth,
			PathOpacity:  style.PathOpacity,
			MarkerRadius: style.MarkerRadius,
			MarkerStroke: style.MarkerStroke,
			MarkerColor:  style.MarkerColor,
			MarkerFill:   style.MarkerFill,
			StartIconURL: startIconURL(style),
		},
	})
}
