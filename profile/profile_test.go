// profile/profile_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import (
	"context"
	"errors"
	gomath "math"
	"testing"
	"time"

	av "github.com/mmp/routeplan/aviation"
)

// 500'/nm climb, 333'/nm descent
var perf = av.AircraftPerformance{
	Name:         "test",
	ClimbSpeed:   120,
	ClimbRate:    1000,
	CruiseSpeed:  150,
	DescentSpeed: 140,
}

func near(a, b, tol float32) bool {
	return gomath.Abs(float64(a-b)) <= float64(tol)
}

func airport(id string, elev float32) av.Fix {
	return av.Fix{Kind: av.FixKindAirport, Ident: id, Elevation: elev}
}

func waypoint(id string) av.Fix {
	return av.Fix{Kind: av.FixKindWaypoint, Ident: id}
}

// makePlan returns a plan whose legs have the given lengths; the first
// leg is the departure.
func makePlan(cruise float32, dists ...float32) *av.FlightPlan {
	fp := &av.FlightPlan{CruiseAltitude: cruise}
	fp.Legs = append(fp.Legs, av.Leg{Type: av.InitialFix, Fix: airport("KAAA", 0)})
	for i, d := range dists {
		fix := waypoint(string(rune('B' + i)))
		if i == len(dists)-1 {
			fix = airport("KZZZ", 0)
		}
		fp.Legs = append(fp.Legs, av.Leg{Type: av.DirectToFix, Fix: fix, Distance: d})
	}
	return fp
}

func TestConfigurationErrors(t *testing.T) {
	var s Solver
	ctx := context.Background()

	tests := []struct {
		name string
		fp   *av.FlightPlan
		perf av.AircraftPerformance
	}{
		{"no cruise altitude", makePlan(0, 100), perf},
		{"no climb speed", makePlan(10000, 100), av.AircraftPerformance{DescentSpeed: 140}},
		{"no descent speed", makePlan(10000, 100), av.AircraftPerformance{ClimbSpeed: 120}},
		{"no legs", &av.FlightPlan{CruiseAltitude: 10000}, perf},
	}
	for _, test := range tests {
		vp, err := s.Solve(ctx, test.fp, test.perf)
		var cerr *av.ConfigurationError
		if !errors.As(err, &cerr) || !errors.Is(err, av.ErrConfiguration) {
			t.Errorf("%s: expected ConfigurationError, got %v", test.name, err)
		}
		if vp != nil {
			t.Errorf("%s: expected no profile", test.name)
		}
	}
}

func TestClimbCruiseDescent(t *testing.T) {
	vp, err := Solver{}.Solve(context.Background(), makePlan(10000, 100, 100), perf)
	if err != nil {
		t.Fatal(err)
	}

	if !near(vp.TopOfClimb, 20, 0.2) {
		t.Errorf("expected top of climb at 20nm, got %f", vp.TopOfClimb)
	}
	if !near(vp.TopOfDescent, 170, 0.2) {
		t.Errorf("expected top of descent at 170nm, got %f", vp.TopOfDescent)
	}
	if vp.MaxAltitude != 10000 || vp.TotalDistance != 200 {
		t.Errorf("unexpected profile %s", vp)
	}
	if vp.TopOfClimbLeg() != 1 || vp.TopOfDescentLeg() != 2 {
		t.Errorf("unexpected TOC/TOD legs %d %d", vp.TopOfClimbLeg(), vp.TopOfDescentLeg())
	}
	if !near(vp.AltitudeAt(10), 5000, 20) || !near(vp.AltitudeAt(100), 10000, 1) || !near(vp.AltitudeAt(200), 0, 1) {
		t.Errorf("unexpected altitudes %f %f %f", vp.AltitudeAt(10), vp.AltitudeAt(100), vp.AltitudeAt(200))
	}
	if vp.LegAltitudes[1] != 10000 || len(vp.Warnings) != 0 {
		t.Errorf("unexpected leg altitudes %v / warnings %v", vp.LegAltitudes, vp.Warnings)
	}
	if len(vp.Points) > 10 {
		t.Errorf("expected profile polyline to be simplified; got %d points", len(vp.Points))
	}

	if d := vp.ClimbTime - 10*time.Minute; d < -time.Minute || d > time.Minute {
		t.Errorf("expected 10 minute climb, got %s", vp.ClimbTime)
	}
	if d := vp.CruiseTime - 60*time.Minute; d < -time.Minute || d > time.Minute {
		t.Errorf("expected 60 minute cruise, got %s", vp.CruiseTime)
	}
}

func TestShortFlight(t *testing.T) {
	vp, err := Solver{}.Solve(context.Background(), makePlan(30000, 30), perf)
	if err != nil {
		t.Fatal(err)
	}
	// The climb and descent meet at 12nm, 6000'
	if !near(vp.MaxAltitude, 6000, 60) {
		t.Errorf("expected peak around 6000', got %f", vp.MaxAltitude)
	}
	if vp.TopOfClimb > vp.TopOfDescent {
		t.Errorf("top of climb %f after top of descent %f", vp.TopOfClimb, vp.TopOfDescent)
	}
	if !near(vp.TopOfClimb, 12, 0.3) {
		t.Errorf("expected top of climb around 12nm, got %f", vp.TopOfClimb)
	}
}

func TestRestrictions(t *testing.T) {
	fp := makePlan(10000, 50, 150)
	fp.Legs[1].Altitude = av.AtOrBelowAltitude(5000)

	vp, err := Solver{}.Solve(context.Background(), fp, perf)
	if err != nil {
		t.Fatal(err)
	}
	if !near(vp.LegAltitudes[1], 5000, 1) {
		t.Errorf("expected 5000' at the restricted fix, got %f", vp.LegAltitudes[1])
	}
	if len(vp.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", vp.Warnings)
	}
	if !near(vp.TopOfClimb, 20, 0.2) || !near(vp.TopOfDescent, 170, 0.2) {
		t.Errorf("unexpected TOC/TOD %s", vp)
	}
	if !near(vp.AltitudeAt(55), 7500, 30) {
		t.Errorf("expected climb resumed after restriction, got %f at 55nm", vp.AltitudeAt(55))
	}

	tests := []struct {
		name    string
		legs    []float32
		leg     int
		alt     av.AltitudeRestriction
		typ     av.LegType
		missed  bool
		warning bool
	}{
		{name: "above cruise", legs: []float32{100, 100}, leg: 1, alt: av.AtOrAboveAltitude(15000), warning: true},
		{name: "too steep a climb", legs: []float32{10, 190}, leg: 1, alt: av.AtOrAboveAltitude(9000), warning: true},
		{name: "too steep a descent", legs: []float32{190, 10}, leg: 1, alt: av.AtAltitude(9000), warning: true},
		{name: "reachable", legs: []float32{30, 170}, leg: 1, alt: av.AtOrAboveAltitude(9000)},
		{name: "range", legs: []float32{100, 100}, leg: 1, alt: av.AltitudeRestriction{Range: [2]float32{8000, 12000}}},
		{name: "altitude terminated", legs: []float32{1, 199}, leg: 1, alt: av.AtOrAboveAltitude(9000),
			typ: av.CourseToAltitude},
		{name: "missed approach", legs: []float32{190, 10}, leg: 1, alt: av.AtAltitude(9000), missed: true},
	}
	for _, test := range tests {
		fp := makePlan(10000, test.legs...)
		fp.Legs[test.leg].Altitude = test.alt
		if test.typ != av.InitialFix {
			fp.Legs[test.leg].Type = test.typ
		}
		if test.missed {
			fp.Legs[test.leg].Category = av.MissedApproach
		}

		vp, err := Solver{}.Solve(context.Background(), fp, perf)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if test.warning {
			var ri *av.RestrictionInfeasible
			if len(vp.Warnings) != 1 || !errors.As(vp.Warnings[0], &ri) || ri.Leg != test.leg {
				t.Errorf("%s: expected RestrictionInfeasible for leg %d, got %v", test.name, test.leg, vp.Warnings)
			} else if !errors.Is(vp.Warnings[0], av.ErrRestrictionInfeasible) {
				t.Errorf("%s: warning doesn't match sentinel", test.name)
			}
		} else if len(vp.Warnings) != 0 {
			t.Errorf("%s: unexpected warnings %v", test.name, vp.Warnings)
		}
		if vp.TopOfClimb > vp.TopOfDescent {
			t.Errorf("%s: top of climb after top of descent", test.name)
		}
	}
}

func TestElevations(t *testing.T) {
	fp := makePlan(10000, 100, 100)
	fp.Legs[0].Fix.Elevation = 5000
	fp.Legs[2].Fix.Elevation = 1000

	vp, err := Solver{}.Solve(context.Background(), fp, perf)
	if err != nil {
		t.Fatal(err)
	}
	if vp.AltitudeAt(0) != 5000 || !near(vp.AltitudeAt(200), 1000, 1) {
		t.Errorf("profile should start and end at field elevation: %f %f", vp.AltitudeAt(0), vp.AltitudeAt(200))
	}
	if !near(vp.TopOfClimb, 10, 0.2) || !near(vp.TopOfDescent, 173, 0.2) {
		t.Errorf("unexpected TOC/TOD %s", vp)
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Solver{}).Solve(ctx, makePlan(10000, 100, 100), perf); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
