// profile/profile.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package profile computes climb, cruise, and descent altitude profiles
// for flight plans.
package profile

import (
	"context"
	"fmt"
	"time"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/log"
	"github.com/mmp/routeplan/math"
)

// DefaultTolerance is the amount in feet by which the profile may miss an
// altitude restriction before it's reported as infeasible.
const DefaultTolerance = 10

// Point is a point on the profile.
type Point struct {
	Distance float32 `json:"distance"` // nm from departure
	Altitude float32 `json:"altitude"` // feet
}

// VerticalProfile is the altitude profile for a flight plan.
type VerticalProfile struct {
	CruiseAltitude float32 `json:"cruise_altitude"`
	// MaxAltitude is the highest altitude reached; it's less than
	// CruiseAltitude for short flights or when restrictions keep the
	// aircraft low.
	MaxAltitude float32 `json:"max_altitude"`
	// TopOfClimb and TopOfDescent are distances along the route; the
	// profile is at MaxAltitude between them.
	TopOfClimb    float32 `json:"top_of_climb"`
	TopOfDescent  float32 `json:"top_of_descent"`
	TotalDistance float32 `json:"total_distance"`

	// Altitude and cumulative distance at the end of each leg.
	LegAltitudes []float32 `json:"leg_altitudes"`
	LegDistances []float32 `json:"leg_distances"`

	// Points is a polyline of the profile.
	Points []Point `json:"points"`

	ClimbTime   time.Duration `json:"climb_time"`
	CruiseTime  time.Duration `json:"cruise_time"`
	DescentTime time.Duration `json:"descent_time"`

	// Warnings holds a *av.RestrictionInfeasible for each restriction
	// that the profile doesn't meet.
	Warnings []error `json:"-"`
}

// AltitudeAt returns the profile altitude at distance d nm from the
// departure.
func (vp *VerticalProfile) AltitudeAt(d float32) float32 {
	pts := vp.Points
	if len(pts) == 0 {
		return 0
	}
	if d <= pts[0].Distance {
		return pts[0].Altitude
	}
	for i := 1; i < len(pts); i++ {
		if d <= pts[i].Distance {
			p0, p1 := pts[i-1], pts[i]
			if p1.Distance == p0.Distance {
				return p1.Altitude
			}
			return math.Lerp((d-p0.Distance)/(p1.Distance-p0.Distance), p0.Altitude, p1.Altitude)
		}
	}
	return pts[len(pts)-1].Altitude
}

// TopOfClimbLeg returns the index of the leg during which the top of
// climb is reached.
func (vp *VerticalProfile) TopOfClimbLeg() int { return vp.legAt(vp.TopOfClimb) }

// TopOfDescentLeg returns the index of the leg during which the descent
// starts.
func (vp *VerticalProfile) TopOfDescentLeg() int { return vp.legAt(vp.TopOfDescent) }

func (vp *VerticalProfile) legAt(d float32) int {
	for i, ld := range vp.LegDistances {
		if ld >= d {
			return i
		}
	}
	return len(vp.LegDistances) - 1
}

func (vp *VerticalProfile) TotalTime() time.Duration {
	return vp.ClimbTime + vp.CruiseTime + vp.DescentTime
}

// Solver computes vertical profiles.
type Solver struct {
	Logger *log.Logger
	// Tolerance in feet for restriction checks; DefaultTolerance is used
	// if it's zero.
	Tolerance float32
}

// constraint is an altitude restriction at a distance along the route.
type constraint struct {
	leg      int
	distance float32
	lower    float32 // 0 if none
	upper    float32 // 0 if none
}

// Solve computes the profile for fp. The profile is the highest one that
// climbs from the departure at the aircraft's climb gradient, descends
// to the destination at its descent gradient, and stays at or below
// cruise altitude and every at-or-below restriction. Restrictions with
// lower limits it doesn't meet are returned as warnings in the profile.
//
// A *av.ConfigurationError is returned if the plan has no cruise
// altitude or the performance data is incomplete.
func (s Solver) Solve(ctx context.Context, fp *av.FlightPlan, perf av.AircraftPerformance) (*VerticalProfile, error) {
	if fp.CruiseAltitude <= 0 {
		return nil, &av.ConfigurationError{Msg: "cruise altitude not set"}
	}
	if err := perf.Validate(); err != nil {
		return nil, err
	}
	if len(fp.Legs) < 2 {
		return nil, &av.ConfigurationError{Msg: "flight plan needs a departure and destination"}
	}

	tol := s.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}

	n := len(fp.Legs)
	dist := fp.Distances()
	total := dist[n-1]
	depElev, arrElev := fp.Legs[0].Fix.Elevation, fp.Legs[n-1].Fix.Elevation
	gc, gd := perf.ClimbGradient(), perf.DescentGradient()
	cruise := fp.CruiseAltitude

	var constraints []constraint
	for i := 1; i < n-1; i++ {
		leg := fp.Legs[i]
		if !leg.Altitude.IsSet() || leg.Category == av.MissedApproach || leg.Type.IsAltitudeTerminated() {
			continue
		}
		c := constraint{leg: i, distance: dist[i]}
		c.lower, _ = leg.Altitude.Lower()
		c.upper, _ = leg.Altitude.Upper()
		constraints = append(constraints, c)
	}

	// The profile is the minimum of cruise altitude, the climb envelope
	// from the departure, and the descent envelope back from the
	// destination. Upper limits cap both envelopes.
	altitude := func(d float32) float32 {
		alt := min(cruise, depElev+gc*d, arrElev+gd*(total-d))
		for _, c := range constraints {
			if c.upper == 0 {
				continue
			}
			if c.distance <= d {
				alt = min(alt, c.upper+gc*(d-c.distance))
			}
			if c.distance >= d {
				alt = min(alt, c.upper+gd*(c.distance-d))
			}
		}
		return alt
	}

	// Sample the profile along the route, including at the end of each leg.
	step := max(0.1, total/20000)
	var samples []Point
	li := 0
	for d := float32(0); ; {
		if len(samples)%1000 == 999 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		samples = append(samples, Point{Distance: d, Altitude: altitude(d)})
		if d >= total {
			break
		}
		next := min(d+step, total)
		for li < n && dist[li] <= d {
			li++
		}
		if li < n && dist[li] < next {
			next = dist[li]
		}
		d = next
	}

	vp := &VerticalProfile{
		CruiseAltitude: cruise,
		TotalDistance:  total,
		LegDistances:   dist,
	}
	for _, p := range samples {
		vp.MaxAltitude = max(vp.MaxAltitude, p.Altitude)
	}
	vp.TopOfClimb, vp.TopOfDescent = total, 0
	for _, p := range samples {
		if p.Altitude >= vp.MaxAltitude-1 {
			vp.TopOfClimb = min(vp.TopOfClimb, p.Distance)
			vp.TopOfDescent = max(vp.TopOfDescent, p.Distance)
		}
	}
	vp.TopOfDescent = max(vp.TopOfDescent, vp.TopOfClimb)
	vp.Points = simplify(samples)

	vp.LegAltitudes = make([]float32, n)
	for i := range fp.Legs {
		vp.LegAltitudes[i] = altitude(dist[i])
	}

	for _, c := range constraints {
		alt := vp.LegAltitudes[c.leg]
		if !fp.Legs[c.leg].Altitude.Satisfied(alt, tol) {
			vp.Warnings = append(vp.Warnings, &av.RestrictionInfeasible{
				Leg:         c.leg,
				Fix:         fp.Legs[c.leg].Ident(),
				Restriction: fp.Legs[c.leg].Altitude,
				Altitude:    alt,
			})
		}
	}

	hours := func(nm, speed float32) time.Duration {
		if speed <= 0 {
			return 0
		}
		return time.Duration(float64(nm/speed) * float64(time.Hour))
	}
	cruiseSpeed := perf.CruiseSpeed
	if fp.CruiseSpeed > 0 {
		cruiseSpeed = fp.CruiseSpeed
	} else if cruiseSpeed == 0 {
		cruiseSpeed = perf.ClimbSpeed
	}
	vp.ClimbTime = hours(vp.TopOfClimb, perf.ClimbSpeed)
	vp.CruiseTime = hours(vp.TopOfDescent-vp.TopOfClimb, cruiseSpeed)
	vp.DescentTime = hours(total-vp.TopOfDescent, perf.DescentSpeed)

	s.Logger.Debug("computed vertical profile", "distance", total, "toc", vp.TopOfClimb,
		"tod", vp.TopOfDescent, "max_altitude", vp.MaxAltitude, "warnings", len(vp.Warnings))

	return vp, nil
}

// simplify removes samples that are collinear with their neighbors.
func simplify(pts []Point) []Point {
	if len(pts) <= 2 {
		return pts
	}
	slope := func(a, b Point) float32 {
		if b.Distance == a.Distance {
			return 0
		}
		return (b.Altitude - a.Altitude) / (b.Distance - a.Distance)
	}

	out := []Point{pts[0]}
	for i := 1; i < len(pts)-1; i++ {
		prev := out[len(out)-1]
		if math.Abs(slope(prev, pts[i])-slope(pts[i], pts[i+1])) > 0.01 {
			out = append(out, pts[i])
		}
	}
	return append(out, pts[len(pts)-1])
}

func (vp *VerticalProfile) String() string {
	return fmt.Sprintf("TOC %.1fnm TOD %.1fnm max %.0f' (%d warnings)", vp.TopOfClimb, vp.TopOfDescent,
		vp.MaxAltitude, len(vp.Warnings))
}
