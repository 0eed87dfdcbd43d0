package server

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	v1 "geo-places/api/places/v1"

	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// responseEncoder 根据 format 参数选择输出格式，默认 JSON。
func responseEncoder(w http.ResponseWriter, r *http.Request, v any) error {
	if r != nil {
		switch r.URL.Query().Get("format") {
		case "geojson":
			return encodeGeoJSON(w, r, v)
		case "geocodejson":
			return encodeGeocodeJSON(w, r, v)
		case "xml":
			return encodeXML(w, r, v)
		}
	}
	return http.DefaultResponseEncoder(w, r, v)
}

func asPlaces(val any) ([]*v1.Place, bool) {
	switch t := val.(type) {
	case *v1.PlacesReply:
		return t.GetPlaces(), true
	case *v1.GetPlaceReply:
		if t.GetPlace() == nil {
			return []*v1.Place{}, true
		}
		return []*v1.Place{t.GetPlace()}, true
	default:
		return nil, false
	}
}

type polygonOutputs struct {
	text, svg, kml bool
}

func wantPolygonOutputs(r *http.Request) polygonOutputs {
	q := r.URL.Query()
	return polygonOutputs{
		text: q.Get("polygon_text") == "1",
		svg:  q.Get("polygon_svg") == "1",
		kml:  q.Get("polygon_kml") == "1",
	}
}

// apply 把 polygon 的文本/SVG/KML 表示写入 props。
func (o polygonOutputs) apply(p *v1.Place, props map[string]any) {
	if p.Polygon == nil || !(o.text || o.svg || o.kml) {
		return
	}
	poly, ok := p.Polygon.Geometry().(orb.Polygon)
	if !ok || len(poly) == 0 {
		return
	}
	if o.text {
		props["polygon"] = toPolygonText(poly)
	}
	if o.svg {
		props["svg"] = toPolygonSVG(poly)
	}
	if o.kml {
		props["kml"] = toPolygonKML(poly)
	}
}

// featureGeometry 优先返回多边形，没有时返回中心点。
func featureGeometry(p *v1.Place) orb.Geometry {
	if p.Polygon != nil {
		return p.Polygon.Geometry()
	}
	if p.Center != nil {
		return p.Center.Geometry()
	}
	return orb.Point{p.Longitude, p.Latitude}
}

func encodeGeoJSON(w http.ResponseWriter, r *http.Request, v any) error {
	places, ok := asPlaces(v)
	if !ok {
		return http.DefaultResponseEncoder(w, r, v)
	}
	outputs := wantPolygonOutputs(r)
	fc := geojson.NewFeatureCollection()
	for _, p := range places {
		if p == nil {
			continue
		}
		f := geojson.NewFeature(featureGeometry(p))
		f.ID = p.Id
		f.Properties["id"] = p.Id
		f.Properties["name"] = p.Name
		f.Properties["popularity"] = p.Popularity
		f.Properties["latitude"] = p.Latitude
		f.Properties["longitude"] = p.Longitude
		if p.Distance != nil {
			f.Properties["distance"] = *p.Distance
		}
		outputs.apply(p, f.Properties)
		fc.Append(f)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return writeJSON(w, r, b)
}

// geocodejson structures
type geocodeJSON struct {
	Type      string           `json:"type"`
	Geocoding map[string]any   `json:"geocoding"`
	Features  []map[string]any `json:"features"`
}

func encodeGeocodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	places, ok := asPlaces(v)
	if !ok {
		return http.DefaultResponseEncoder(w, r, v)
	}
	outputs := wantPolygonOutputs(r)
	out := geocodeJSON{
		Type:      "FeatureCollection",
		Geocoding: map[string]any{"version": "0.1.0"},
		Features:  []map[string]any{},
	}
	for _, p := range places {
		if p == nil {
			continue
		}
		geocoding := map[string]any{
			"place_id": p.Id,
			"label":    p.Name,
			"name":     p.Name,
		}
		if p.Distance != nil {
			geocoding["distance"] = *p.Distance
		}
		props := map[string]any{"geocoding": geocoding}
		outputs.apply(p, props)
		out.Features = append(out.Features, map[string]any{
			"type":       "Feature",
			"properties": props,
			"geometry":   geojson.NewGeometry(featureGeometry(p)),
		})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return writeJSON(w, r, b)
}

// writeJSON 支持 json_callback 的 JSONP 输出
func writeJSON(w http.ResponseWriter, r *http.Request, b []byte) error {
	if cb := r.URL.Query().Get("json_callback"); cb != "" {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, err := fmt.Fprintf(w, "%s(%s)", cb, b)
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, err := w.Write(append(b, '\n'))
	return err
}

// Minimal XML output (compact)
type xmlPlaces struct {
	XMLName xml.Name   `xml:"places"`
	Place   []xmlPlace `xml:"place"`
}

type xmlPlace struct {
	XMLName    xml.Name `xml:"place"`
	ID         int64    `xml:"id,attr"`
	Name       string   `xml:"name,attr"`
	Lat        float64  `xml:"lat,attr"`
	Lon        float64  `xml:"lon,attr"`
	Popularity int64    `xml:"popularity,attr"`
	Distance   *float64 `xml:"distance,attr,omitempty"`
	Polygon    string   `xml:"polygon,omitempty"`
}

func toXMLPlace(p *v1.Place) xmlPlace {
	x := xmlPlace{
		ID:         p.Id,
		Name:       p.Name,
		Lat:        p.Latitude,
		Lon:        p.Longitude,
		Popularity: p.Popularity,
		Distance:   p.Distance,
	}
	if p.Polygon != nil {
		if poly, ok := p.Polygon.Geometry().(orb.Polygon); ok {
			x.Polygon = toPolygonText(poly)
		}
	}
	return x
}

func encodeXML(w http.ResponseWriter, r *http.Request, v any) error {
	places, ok := asPlaces(v)
	if !ok {
		return http.DefaultResponseEncoder(w, r, v)
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	xr := xmlPlaces{}
	for _, p := range places {
		if p != nil {
			xr.Place = append(xr.Place, toXMLPlace(p))
		}
	}
	return enc.Encode(xr)
}

// --- polygon helpers ---

// toPolygonText 输出简化的 polygon 文本（lon lat 以空格分隔，点以逗号分隔，环以分号分隔）
func toPolygonText(poly orb.Polygon) string {
	var sb strings.Builder
	for i, ring := range poly {
		if i > 0 {
			sb.WriteString(";")
		}
		for j, pt := range ring {
			if j > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(fmt.Sprintf("%g %g", pt.Lon(), pt.Lat()))
		}
	}
	return sb.String()
}

// toPolygonSVG 输出外环的 path 数据（未包含外部 svg 标签）
func toPolygonSVG(poly orb.Polygon) string {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, pt := range poly[0] {
		if i == 0 {
			sb.WriteString(fmt.Sprintf("M %g %g ", pt.Lon(), pt.Lat()))
		} else {
			sb.WriteString(fmt.Sprintf("L %g %g ", pt.Lon(), pt.Lat()))
		}
	}
	sb.WriteString("Z")
	return sb.String()
}

// toPolygonKML 输出一个简单 KML Polygon 片段（不含外层文档）
func toPolygonKML(poly orb.Polygon) string {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<Polygon><outerBoundaryIs><LinearRing><coordinates>")
	for i, pt := range poly[0] {
		if i > 0 {
			sb.WriteString(" ")
		}
		// KML: lon,lat[,alt]
		sb.WriteString(fmt.Sprintf("%g,%g", pt.Lon(), pt.Lat()))
	}
	sb.WriteString("</coordinates></LinearRing></outerBoundaryIs></Polygon>")
	return sb.String()
}
