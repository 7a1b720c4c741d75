package domain

import "math"

// CoordinateKind classifies a raw (x, y) pair found in a source table.
type CoordinateKind int

const (
	CoordinateUnknown CoordinateKind = iota
	CoordinateUTM
	CoordinateLatLon
)

func (k CoordinateKind) String() string {
	switch k {
	case CoordinateUTM:
		return "utm"
	case CoordinateLatLon:
		return "latlon"
	default:
		return "unknown"
	}
}

// DetectCoordinateKind guesses whether (x, y) is an Iberian ETRS89 UTM
// easting/northing pair or a latitude/longitude pair.
func DetectCoordinateKind(x, y float64) CoordinateKind {
	switch {
	case x > 100000 && x < 1000000 && y > 4000000 && y < 5000000:
		return CoordinateUTM
	case x >= -90 && x <= 90 && y >= -180 && y <= 180:
		return CoordinateLatLon
	default:
		return CoordinateUnknown
	}
}

// WGS84 / GRS80 ellipsoid; the two differ far below the precision of the
// published coordinates.
const (
	utmK0 = 0.9996
	utmA  = 6378137.0
	utmE2 = 0.00669438 // first eccentricity squared
)

// UTMToLatLon converts a UTM easting/northing in the given zone to decimal
// degrees (inverse transverse Mercator, Snyder's series). ok is false for an
// invalid zone.
func UTMToLatLon(easting, northing float64, zone int, northern bool) (lat, lon float64, ok bool) {
	if zone < 1 || zone > 60 {
		return 0, 0, false
	}

	ep2 := utmE2 / (1 - utmE2)
	e1 := (1 - math.Sqrt(1-utmE2)) / (1 + math.Sqrt(1-utmE2))

	x := easting - 500000
	y := northing
	if !northern {
		y -= 10000000
	}

	m := y / utmK0
	mu := m / (utmA * (1 - utmE2/4 - 3*utmE2*utmE2/64 - 5*utmE2*utmE2*utmE2/256))

	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96-417*math.Pow(e1, 5)/128)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sinPhi := math.Sin(phi1)
	cosPhi := math.Cos(phi1)
	tanPhi := sinPhi / cosPhi

	n1 := utmA / math.Sqrt(1-utmE2*sinPhi*sinPhi)
	t1 := tanPhi * tanPhi
	c1 := ep2 * cosPhi * cosPhi
	r1 := utmA * (1 - utmE2) / math.Pow(1-utmE2*sinPhi*sinPhi, 1.5)
	d := x / (n1 * utmK0)

	latRad := phi1 - (n1*tanPhi/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*math.Pow(d, 6)/720)

	lonRad := (d -
		(1+2*t1+c1)*math.Pow(d, 3)/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*math.Pow(d, 5)/120) / cosPhi

	central := float64((zone-1)*6 - 180 + 3)
	lat = latRad * 180 / math.Pi
	lon = central + lonRad*180/math.Pi
	return lat, lon, true
}
