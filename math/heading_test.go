// math/heading_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import "testing"

func TestNormalizeHeading(t *testing.T) {
	for _, tc := range [][2]float32{{0, 0}, {360, 0}, {-10, 350}, {725, 5}, {-370, 350}, {180, 180}} {
		if h := NormalizeHeading(tc[0]); Abs(h-tc[1]) > 1e-4 {
			t.Errorf("NormalizeHeading(%f) = %f, expected %f", tc[0], h, tc[1])
		}
	}
}

func TestHeadingDifference(t *testing.T) {
	for _, tc := range [][3]float32{{10, 350, 20}, {350, 10, 20}, {90, 270, 180}, {45, 45, 0}, {0, 181, 179}} {
		if d := HeadingDifference(tc[0], tc[1]); Abs(d-tc[2]) > 1e-4 {
			t.Errorf("HeadingDifference(%f, %f) = %f, expected %f", tc[0], tc[1], d, tc[2])
		}
	}
}

func TestHeadingSignedTurn(t *testing.T) {
	for _, tc := range [][3]float32{{350, 10, 20}, {10, 350, -20}, {90, 180, 90}, {180, 90, -90}} {
		if d := HeadingSignedTurn(tc[0], tc[1]); Abs(d-tc[2]) > 1e-4 {
			t.Errorf("HeadingSignedTurn(%f, %f) = %f, expected %f", tc[0], tc[1], d, tc[2])
		}
	}
}

func TestArcSweep(t *testing.T) {
	for _, tc := range []struct {
		start, end float32
		cw         bool
		sweep      float32
	}{
		{350, 10, true, 20},
		{350, 10, false, 340},
		{10, 350, false, 20},
		{90, 270, true, 180},
	} {
		if s := ArcSweep(tc.start, tc.end, tc.cw); Abs(s-tc.sweep) > 1e-4 {
			t.Errorf("ArcSweep(%f, %f, %v) = %f, expected %f", tc.start, tc.end, tc.cw, s, tc.sweep)
		}
	}
}
