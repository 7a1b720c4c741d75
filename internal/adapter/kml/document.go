// Package kml renders placemarks as KML documents and KMZ archives.
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

const namespace = "http://www.opengis.net/kml/2.2"

// Style is a shared point or line style referenced by placemarks as "#ID".
type Style struct {
	ID         string
	IconHref   string
	IconScale  float64
	LabelScale float64
	LineColor  string // aabbggrr
	LineWidth  float64
}

// Document is an ordered KML document.
type Document struct {
	name       string
	styles     []Style
	placemarks []placemark
}

type placemark struct {
	name        string
	styleID     string
	description string
	point       *domain.Geo
	line        []domain.Geo
	ring        []domain.Geo
}

// NewDocument creates an empty document.
func NewDocument(name string) *Document {
	return &Document{name: name}
}

// AddStyle registers a style.
func (d *Document) AddStyle(s Style) {
	d.styles = append(d.styles, s)
}

// AddPoint adds a point placemark. description is HTML and is emitted as
// CDATA; styleID may be empty.
func (d *Document) AddPoint(name, styleID, description string, at domain.Geo) {
	g := at
	d.placemarks = append(d.placemarks, placemark{name: name, styleID: styleID, description: description, point: &g})
}

// AddLine adds a line placemark through pts in order. Lines with fewer than
// two points are ignored.
func (d *Document) AddLine(name, styleID, description string, pts []domain.Geo) {
	if len(pts) < 2 {
		return
	}
	d.placemarks = append(d.placemarks, placemark{name: name, styleID: styleID, description: description, line: append([]domain.Geo(nil), pts...)})
}

// AddPolygon adds a polygon placemark bounded by ring. The ring is closed if
// its last point differs from the first; rings with fewer than three distinct
// points are ignored.
func (d *Document) AddPolygon(name, styleID, description string, ring []domain.Geo) {
	pts := append([]domain.Geo(nil), ring...)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return
	}
	pts = append(pts, pts[0])
	d.placemarks = append(d.placemarks, placemark{name: name, styleID: styleID, description: description, ring: pts})
}

// Len returns the number of placemarks.
func (d *Document) Len() int {
	return len(d.placemarks)
}

// Encode writes the document as UTF-8 KML.
func (d *Document) Encode(w io.Writer) error {
	root := kmlRoot{Xmlns: namespace, Document: kmlDocument{Name: d.name}}
	for _, s := range d.styles {
		root.Document.Styles = append(root.Document.Styles, encodeStyle(s))
	}
	for _, p := range d.placemarks {
		root.Document.Placemarks = append(root.Document.Placemarks, encodePlacemark(p))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write kml: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeStyle(s Style) kmlStyle {
	out := kmlStyle{ID: s.ID}
	if s.IconHref != "" {
		out.IconStyle = &kmlIconStyle{Scale: s.IconScale, Icon: kmlIcon{Href: s.IconHref}}
	}
	if s.LabelScale > 0 {
		out.LabelStyle = &kmlLabelStyle{Scale: s.LabelScale}
	}
	if s.LineColor != "" || s.LineWidth > 0 {
		out.LineStyle = &kmlLineStyle{Color: s.LineColor, Width: s.LineWidth}
	}
	return out
}

func encodePlacemark(p placemark) kmlPlacemark {
	out := kmlPlacemark{Name: p.name}
	if p.styleID != "" {
		out.StyleURL = "#" + p.styleID
	}
	if p.description != "" {
		out.Description = &cdata{Text: p.description}
	}
	if p.point != nil {
		out.Point = &kmlPoint{Coordinates: domain.FormatCoordinate(*p.point)}
	}
	if len(p.line) > 0 {
		out.LineString = &kmlLineString{Tessellate: 1, Coordinates: joinCoordinates(p.line)}
	}
	if len(p.ring) > 0 {
		out.Polygon = &kmlPolygon{Outer: kmlBoundary{Ring: kmlLinearRing{Coordinates: joinCoordinates(p.ring)}}}
	}
	return out
}

func joinCoordinates(pts []domain.Geo) string {
	coords := make([]string, len(pts))
	for i, g := range pts {
		coords[i] = domain.FormatCoordinate(g)
	}
	return strings.Join(coords, " ")
}

// KML element types.

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name,omitempty"`
	Styles     []kmlStyle     `xml:"Style"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlStyle struct {
	ID         string         `xml:"id,attr"`
	IconStyle  *kmlIconStyle  `xml:"IconStyle,omitempty"`
	LabelStyle *kmlLabelStyle `xml:"LabelStyle,omitempty"`
	LineStyle  *kmlLineStyle  `xml:"LineStyle,omitempty"`
}

type kmlIconStyle struct {
	Scale float64 `xml:"scale,omitempty"`
	Icon  kmlIcon `xml:"Icon"`
}

type kmlIcon struct {
	Href string `xml:"href"`
}

type kmlLabelStyle struct {
	Scale float64 `xml:"scale"`
}

type kmlLineStyle struct {
	Color string  `xml:"color,omitempty"`
	Width float64 `xml:"width,omitempty"`
}

type kmlPlacemark struct {
	Name        string         `xml:"name"`
	StyleURL    string         `xml:"styleUrl,omitempty"`
	Description *cdata         `xml:"description,omitempty"`
	Point       *kmlPoint      `xml:"Point,omitempty"`
	LineString  *kmlLineString `xml:"LineString,omitempty"`
	Polygon     *kmlPolygon    `xml:"Polygon,omitempty"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer kmlBoundary `xml:"outerBoundaryIs"`
}

type kmlBoundary struct {
	Ring kmlLinearRing `xml:"LinearRing"`
}

type kmlLinearRing struct {
	Coordinates string `xml:"coordinates"`
}
