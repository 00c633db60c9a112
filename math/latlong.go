// math/latlong.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"encoding/json"
	"fmt"
	gomath "math"
	"regexp"
	"strconv"
)

const NMPerLatitude = 60

const NauticalMilesToFeet = 6076.12
const FeetToNauticalMiles = 1 / NauticalMilesToFeet

///////////////////////////////////////////////////////////////////////////
// Point2LL

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude
type Point2LL [2]float32

func (p Point2LL) Longitude() float32 {
	return p[0]
}

func (p Point2LL) Latitude() float32 {
	return p[1]
}

func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

// DMSString returns the position in degrees minutes, seconds, e.g.
// N039.51.39.243,W075.16.29.511
func (p Point2LL) DMSString() string {
	format := func(v float32) string {
		s := fmt.Sprintf("%03d", int(v))
		v -= Floor(v)
		v *= 60
		s += fmt.Sprintf(".%02d", int(v))
		v -= Floor(v)
		v *= 60
		s += fmt.Sprintf(".%02d", int(v))
		v -= Floor(v)
		v *= 1000
		s += fmt.Sprintf(".%03d", int(v))
		return s
	}

	s := "S"
	if p[1] > 0 {
		s = "N"
	}
	s += format(Abs(p[1]))

	if p[0] > 0 {
		s += ",E"
	} else {
		s += ",W"
	}
	s += format(Abs(p[0]))

	return s
}

// ICAOString returns the position in the compact degrees/minutes form
// used in ICAO route strings, e.g. 4620N05005W.
func (p Point2LL) ICAOString() string {
	dm := func(v float32) (int, int) {
		v = Abs(v)
		d := int(v)
		m := int(gomath.Round(float64((v - float32(d)) * 60)))
		if m == 60 {
			d, m = d+1, 0
		}
		return d, m
	}
	latd, latm := dm(p[1])
	lond, lonm := dm(p[0])
	ns := "N"
	if p[1] < 0 {
		ns = "S"
	}
	ew := "E"
	if p[0] < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%02d%02d%s%03d%02d%s", latd, latm, ns, lond, lonm, ew)
}

var (
	// pair of floats (no exponents)
	reWaypointFloat = regexp.MustCompile(`^(\-?[0-9]+\.[0-9]+), *(\-?[0-9]+\.[0-9]+)$`)
	// e.g. N40.37.58.400, W073.46.17.000
	reWaypointDotted = regexp.MustCompile(`^([NS])([0-9]+)\.([0-9]+)\.([0-9]+)\.([0-9]+), *([EW])([0-9]+)\.([0-9]+)\.([0-9]+)\.([0-9]+)$`)
	// ICAO route coordinates: 4620N05005W, 46N050W, 462030N0500530W
	reICAOCoordinate = regexp.MustCompile(`^([0-9]{2})([0-9]{2})?([0-9]{2})?([NS])([0-9]{3})([0-9]{2})?([0-9]{2})?([EW])$`)
)

// ParseLatLong parses either dotted degrees/minutes/seconds positions
// ("N40.37.58.400, W073.46.17.000") or decimal degree pairs
// ("40.6328888, -73.771385").
func ParseLatLong(llstr []byte) (Point2LL, error) {
	if strs := reWaypointDotted.FindStringSubmatch(string(llstr)); len(strs) == 11 {
		parse := func(hemi, deg, min, sec, frac string) (float32, error) {
			var v [4]int
			for i, s := range []string{deg, min, sec, frac} {
				n, err := strconv.Atoi(s)
				if err != nil {
					return 0, err
				}
				v[i] = n
			}
			// Nxx.yy.zz.1 is Nxx.yy.zz.100
			for j := len(frac); j < 3; j++ {
				v[3] *= 10
			}
			ll := float32(v[0]) + float32(v[1])/60 + float32(v[2])/3600 + float32(v[3])/3600000
			if hemi == "S" || hemi == "W" {
				ll = -ll
			}
			return ll, nil
		}

		var p Point2LL
		var err error
		if p[1], err = parse(strs[1], strs[2], strs[3], strs[4], strs[5]); err != nil {
			return Point2LL{}, err
		}
		if p[0], err = parse(strs[6], strs[7], strs[8], strs[9], strs[10]); err != nil {
			return Point2LL{}, err
		}
		return p, nil
	} else if strs := reWaypointFloat.FindStringSubmatch(string(llstr)); len(strs) == 3 {
		var p Point2LL
		if l, err := strconv.ParseFloat(strs[1], 32); err != nil {
			return Point2LL{}, err
		} else {
			p[1] = float32(l)
		}
		if l, err := strconv.ParseFloat(strs[2], 32); err != nil {
			return Point2LL{}, err
		} else {
			p[0] = float32(l)
		}
		return p, nil
	}
	return Point2LL{}, fmt.Errorf("%s: invalid latlong string", llstr)
}

// ParseICAOCoordinate parses the coordinate forms allowed in ICAO route
// strings; the returned Boolean indicates whether s was one of them.
func ParseICAOCoordinate(s string) (Point2LL, bool) {
	m := reICAOCoordinate.FindStringSubmatch(s)
	if m == nil {
		return Point2LL{}, false
	}
	// Seconds are only allowed when minutes are present.
	if (m[2] == "" && m[3] != "") || (m[6] == "" && m[7] != "") {
		return Point2LL{}, false
	}

	atoi := func(s string) int {
		if s == "" {
			return 0
		}
		v, _ := strconv.Atoi(s)
		return v
	}
	lat := float32(atoi(m[1])) + float32(atoi(m[2]))/60 + float32(atoi(m[3]))/3600
	lon := float32(atoi(m[5])) + float32(atoi(m[6]))/60 + float32(atoi(m[7]))/3600
	if lat > 90 || lon > 180 || atoi(m[2]) >= 60 || atoi(m[6]) >= 60 {
		return Point2LL{}, false
	}
	if m[4] == "S" {
		lat = -lat
	}
	if m[8] == "W" {
		lon = -lon
	}
	return Point2LL{lon, lat}, true
}

// NMDistance2LL returns the distance in nautical miles between two
// provided lat-long coordinates.
func NMDistance2LL(a Point2LL, b Point2LL) float32 {
	// https://www.movable-type.co.uk/scripts/latlong.html
	const R = 6371000 // metres
	rad := func(d float64) float64 { return float64(d) / 180 * gomath.Pi }
	lat1, lon1 := rad(float64(a[1])), rad(float64(a[0]))
	lat2, lon2 := rad(float64(b[1])), rad(float64(b[0]))
	dlat, dlon := lat2-lat1, lon2-lon1

	x := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	c := 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))
	dm := R * c // in metres

	return float32(dm * 0.000539957)
}

// InitialBearing returns the great-circle bearing in degrees true from a
// to b, in [0,360).
func InitialBearing(a Point2LL, b Point2LL) float32 {
	rad := func(d float32) float64 { return float64(d) / 180 * gomath.Pi }
	lat1, lat2 := rad(a[1]), rad(b[1])
	dlon := rad(b[0] - a[0])

	y := gomath.Sin(dlon) * gomath.Cos(lat2)
	x := gomath.Cos(lat1)*gomath.Sin(lat2) - gomath.Sin(lat1)*gomath.Cos(lat2)*gomath.Cos(dlon)
	return NormalizeHeading(float32(gomath.Atan2(y, x) * 180 / gomath.Pi))
}

// DestinationPoint returns the point reached by following the great
// circle from p with the given initial bearing (degrees true) for dist
// nautical miles.
func DestinationPoint(p Point2LL, bearing float32, dist float32) Point2LL {
	const R = 6371000 / 1852.0 // earth radius, nm
	rad := func(d float32) float64 { return float64(d) / 180 * gomath.Pi }
	lat1, lon1 := rad(p[1]), rad(p[0])
	brg := rad(bearing)
	delta := float64(dist) / R

	lat2 := gomath.Asin(gomath.Sin(lat1)*gomath.Cos(delta) + gomath.Cos(lat1)*gomath.Sin(delta)*gomath.Cos(brg))
	lon2 := lon1 + gomath.Atan2(gomath.Sin(brg)*gomath.Sin(delta)*gomath.Cos(lat1),
		gomath.Cos(delta)-gomath.Sin(lat1)*gomath.Sin(lat2))
	lon2 = gomath.Mod(lon2+3*gomath.Pi, 2*gomath.Pi) - gomath.Pi

	return Point2LL{float32(lon2 * 180 / gomath.Pi), float32(lat2 * 180 / gomath.Pi)}
}

// NMPerLongitudeAt returns the number of nautical miles per degree of
// longitude at the latitude of the given point.
func NMPerLongitudeAt(p Point2LL) float32 {
	return NMPerLatitude * Cos(Radians(p[1]))
}

// LL2NM converts a point expressed in latitude-longitude coordinates to
// nautical mile coordinates; this is useful for example for reasoning
// about distances, since both axes then have the same measure.
func LL2NM(p Point2LL, nmPerLongitude float32) [2]float32 {
	return [2]float32{p[0] * nmPerLongitude, p[1] * NMPerLatitude}
}

// NM2LL converts a point expressed in nautical mile coordinates to
// lat-long.
func NM2LL(p [2]float32, nmPerLongitude float32) Point2LL {
	return Point2LL{p[0] / nmPerLongitude, p[1] / NMPerLatitude}
}

// Store Point2LLs as strings is JSON, for compactness/friendliness...
func (p Point2LL) MarshalJSON() ([]byte, error) {
	return []byte("\"" + p.DMSString() + "\""), nil
}

func (p *Point2LL) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var pt [2]float32
		err := json.Unmarshal(b, &pt)
		if err == nil {
			*p = pt
		}
		return err
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pt, err := ParseLatLong([]byte(s))
	if err != nil {
		if ll, ok := ParseICAOCoordinate(s); ok {
			*p = ll
			return nil
		}
		return err
	}
	*p = pt
	return nil
}
