// math/heading.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// HeadingDifference returns the minimum difference between two
// headings. (i.e., the result is always in the range [0,180].)
func HeadingDifference(a float32, b float32) float32 {
	var d float32
	if a > b {
		d = a - b
	} else {
		d = b - a
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}

// HeadingSignedTurn returns the signed turn in degrees from cur to
// target; positive values are turns to the right.
func HeadingSignedTurn(cur, target float32) float32 {
	// Rotate so that the target is at 180 to avoid dealing with the
	// wraparound at 0/360.
	rot := NormalizeHeading(180 - target)
	return 180 - NormalizeHeading(cur+rot)
}

// Reduces it to [0,360).
func NormalizeHeading(h float32) float32 {
	if h < 0 {
		return 360 - NormalizeHeading(-h)
	}
	return Mod(h, 360)
}

func OppositeHeading(h float32) float32 {
	return NormalizeHeading(h + 180)
}

// ArcSweep returns the angle in degrees swept when turning from bearing
// start to bearing end in the given direction; the result is in
// [0,360).
func ArcSweep(start, end float32, clockwise bool) float32 {
	if clockwise {
		return NormalizeHeading(end - start)
	}
	return NormalizeHeading(start - end)
}
