// math/geom.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// Return minimum distance between line segment vw and point p
// https://stackoverflow.com/a/1501725
func PointSegmentDistance(p, v, w [2]float32) float32 {
	l := Sub2f(v, w)
	l2 := Dot(l, l)
	if l2 == 0 {
		return Length2f(Sub2f(p, v))
	}
	t := Clamp(Dot(Sub2f(p, v), Sub2f(w, v))/l2, 0, 1)
	proj := Add2f(v, Scale2f(Sub2f(w, v), t))
	return Distance2f(p, proj)
}

// NMPointSegmentDistance returns the distance in nautical miles from p
// to the segment between a and b, treating the earth as locally flat.
func NMPointSegmentDistance(p, a, b Point2LL) float32 {
	nmPerLongitude := NMPerLongitudeAt(p)
	return PointSegmentDistance(LL2NM(p, nmPerLongitude), LL2NM(a, nmPerLongitude), LL2NM(b, nmPerLongitude))
}

// ArcPoints returns n+1 points along the circular arc of the given
// radius (nm) around center, starting at bearing start and sweeping
// sweep degrees, clockwise or counter-clockwise.
func ArcPoints(center Point2LL, radius, start, sweep float32, clockwise bool, n int) []Point2LL {
	if n < 1 {
		n = 1
	}
	pts := make([]Point2LL, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float32(i) / float32(n)
		d := sweep * t
		if !clockwise {
			d = -d
		}
		pts = append(pts, DestinationPoint(center, NormalizeHeading(start+d), radius))
	}
	return pts
}
