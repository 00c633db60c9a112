// aviation/flightplan.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"

	"github.com/mmp/routeplan/math"

	"github.com/brunoga/deep"
)

// FlightPlan is an ordered sequence of legs from a departure airport to
// a destination airport along with cruise parameters.
type FlightPlan struct {
	Legs           []Leg   `json:"legs"`
	CruiseAltitude float32 `json:"cruise_altitude"`
	CruiseSpeed    float32 `json:"cruise_speed,omitempty"` // knots
	CruiseMach     float32 `json:"cruise_mach,omitempty"`
	// Generic plans may start or end somewhere other than an airport.
	Generic       bool   `json:"generic,omitempty"`
	Alternates    []Fix  `json:"alternates,omitempty"`
	DepartureTime string `json:"departure_time,omitempty"` // HHMM
	ArrivalTime   string `json:"arrival_time,omitempty"`
}

func (fp *FlightPlan) Clone() FlightPlan {
	return deep.MustCopy(*fp)
}

func (fp *FlightPlan) IsEmpty() bool { return len(fp.Legs) == 0 }

func (fp *FlightPlan) Departure() (Fix, bool) {
	if len(fp.Legs) == 0 {
		return Fix{}, false
	}
	return fp.Legs[0].Fix, true
}

func (fp *FlightPlan) Destination() (Fix, bool) {
	if len(fp.Legs) == 0 {
		return Fix{}, false
	}
	return fp.Legs[len(fp.Legs)-1].Fix, true
}

// Procedure returns the index range [start, end) of the legs of the
// given category's procedure, or (-1, -1) if there is none. The
// categories of the procedure's transitions are included.
func (fp *FlightPlan) Procedure(t ProcedureType) (start, end int) {
	start, end = -1, -1
	for i, leg := range fp.Legs {
		if pt, ok := leg.Category.ProcedureType(); ok && pt == t {
			if start == -1 {
				start = i
			}
			end = i + 1
		}
	}
	return
}

// ProcedureName returns the name of the plan's procedure of the given
// type, if any.
func (fp *FlightPlan) ProcedureName(t ProcedureType) (name, transition string) {
	if start, end := fp.Procedure(t); start != -1 {
		for _, leg := range fp.Legs[start:end] {
			if leg.Transition != "" && transition == "" && !IsRunwayTransition(leg.Transition) {
				transition = leg.Transition
			}
		}
		return fp.Legs[start].Procedure, transition
	}
	return "", ""
}

///////////////////////////////////////////////////////////////////////////
// Invariants

// FirstCategoryOrderViolation returns the index of the first leg whose
// category comes before the preceding leg's in the fixed SID, enroute,
// STAR, approach order, or -1 if the legs are in order.
func FirstCategoryOrderViolation(legs []Leg) int {
	for i := 1; i < len(legs); i++ {
		if legs[i].Category.Rank() < legs[i-1].Category.Rank() {
			return i
		}
	}
	return -1
}

// Validate checks the flight plan's structural invariants, returning an
// *InvariantViolation for the first one that doesn't hold.
func (fp *FlightPlan) Validate() error {
	n := len(fp.Legs)
	if n == 0 {
		return nil
	}

	if !fp.Generic {
		for _, i := range []int{0, n - 1} {
			if fix := fp.Legs[i].Fix; fix.Kind != FixKindAirport {
				return &InvariantViolation{
					Kind:  EndpointNotAirport,
					Index: i,
					Msg:   fmt.Sprintf("%s is not an airport", fp.Legs[i].Ident()),
				}
			}
		}
	}

	for i := 1; i < n; i++ {
		prev, leg := fp.Legs[i-1], fp.Legs[i]
		if prev.HasFix() && leg.HasFix() && prev.Fix.Same(leg.Fix) && !leg.Type.IsFlownAtFix() &&
			prev.Category != MissedApproach && leg.Category != MissedApproach {
			return &InvariantViolation{
				Kind:  DuplicateConsecutiveFix,
				Index: i,
				Msg:   fmt.Sprintf("%s repeated", leg.Fix),
			}
		}
	}

	for _, t := range []ProcedureType{ProcedureSID, ProcedureSTAR, ProcedureApproach} {
		name := ""
		for i, leg := range fp.Legs {
			if pt, ok := leg.Category.ProcedureType(); !ok || pt != t {
				continue
			}
			if name == "" {
				name = leg.Procedure
			} else if leg.Procedure != name {
				return &InvariantViolation{
					Kind:  MultipleProcedures,
					Index: i,
					Msg:   fmt.Sprintf("%s %s follows %s", t, leg.Procedure, name),
				}
			}
		}
		if start, end := fp.Procedure(t); start != -1 {
			for i := start; i < end; i++ {
				if pt, ok := fp.Legs[i].Category.ProcedureType(); !ok || pt != t {
					return &InvariantViolation{
						Kind:  MultipleProcedures,
						Index: i,
						Msg:   fmt.Sprintf("%s legs are not contiguous", t),
					}
				}
			}
		}
	}

	if n > 2 {
		if i := FirstCategoryOrderViolation(fp.Legs[1 : n-1]); i != -1 {
			return &InvariantViolation{
				Kind:  CategoryOrder,
				Index: i + 1,
				Msg: fmt.Sprintf("%s leg follows %s leg", fp.Legs[i+1].Category,
					fp.Legs[i].Category),
			}
		}
	}

	return nil
}

///////////////////////////////////////////////////////////////////////////
// Geometry

// UpdateGeometry recomputes each leg's end location, course, distance,
// and polyline from its fix and the preceding leg. Arcs and legs with
// coded courses keep the values given to them when they were built.
func (fp *FlightPlan) UpdateGeometry() {
	var prev math.Point2LL // location before the current leg
	var beforeMissed math.Point2LL
	for i := range fp.Legs {
		leg := &fp.Legs[i]

		if leg.Category == MissedApproach && (i == 0 || fp.Legs[i-1].Category != MissedApproach) {
			beforeMissed = prev
		} else if leg.Category != MissedApproach && i > 0 && fp.Legs[i-1].Category == MissedApproach {
			// The missed approach isn't flown; continue from where the
			// approach ended.
			prev = beforeMissed
		}

		switch {
		case leg.Type == TrackFromFixFromDistance || leg.Type == TrackFromFixToDMEDistance:
			leg.Location = math.DestinationPoint(leg.Fix.Location, leg.Course, leg.Distance)
			leg.Geometry = []math.Point2LL{leg.Fix.Location, leg.Location}

		case leg.HasFix():
			leg.Location = leg.Fix.Location
			if leg.Arc != nil {
				leg.Distance = leg.Arc.Length()
				leg.Geometry = leg.Arc.Points()
			} else if i == 0 || prev.IsZero() || leg.Type.IsFlownAtFix() {
				leg.Distance = 0
				leg.Geometry = []math.Point2LL{leg.Location}
			} else {
				leg.Distance = math.NMDistance2LL(prev, leg.Location)
				if leg.Type != CourseToFix || leg.Course == 0 {
					leg.Course = math.InitialBearing(prev, leg.Location)
				}
				leg.Geometry = []math.Point2LL{prev, leg.Location}
			}

		default:
			leg.Location = prev
			leg.Distance = 0
			leg.Geometry = nil
		}

		prev = leg.Location
	}
}

// Distances returns the cumulative along-track distance at the end of
// each leg. Missed approach legs don't add to the total.
func (fp *FlightPlan) Distances() []float32 {
	d := make([]float32, len(fp.Legs))
	var sum float32
	for i, leg := range fp.Legs {
		if leg.Category != MissedApproach {
			sum += leg.Distance
		}
		d[i] = sum
	}
	return d
}

func (fp *FlightPlan) TotalDistance() float32 {
	if d := fp.Distances(); len(d) > 0 {
		return d[len(d)-1]
	}
	return 0
}

// ActiveLeg returns the index of the leg an aircraft at p is most likely
// flying: the one whose track passes closest to p. It returns -1 if the
// plan has no legs with extent.
func (fp *FlightPlan) ActiveLeg(p math.Point2LL) int {
	best, bestDist := -1, math.Infinity()
	for i, leg := range fp.Legs {
		if leg.Category == MissedApproach || len(leg.Geometry) < 2 {
			continue
		}
		for j := 1; j < len(leg.Geometry); j++ {
			if d := math.NMPointSegmentDistance(p, leg.Geometry[j-1], leg.Geometry[j]); d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	return best
}

///////////////////////////////////////////////////////////////////////////
// Route strings

// RouteString returns the plan's fixes as a simple route string of
// space-separated identifiers; user-defined positions are given as
// coordinates.
func (fp *FlightPlan) RouteString() string {
	var ids []string
	for _, leg := range fp.Legs {
		if !leg.HasFix() || leg.Category == MissedApproach || leg.Fix.Kind == FixKindRunwayEnd {
			continue
		}
		id := leg.Fix.Ident
		if leg.Fix.Kind == FixKindUserDefined {
			id = leg.Fix.Location.ICAOString()
		}
		if len(ids) > 0 && ids[len(ids)-1] == id {
			continue
		}
		ids = append(ids, id)
	}
	return strings.Join(ids, " ")
}

// SpeedAltitudeString returns the ICAO cruise speed and level group,
// e.g. "N0450F350", or "" if they're not both known.
func (fp *FlightPlan) SpeedAltitudeString() string {
	if fp.CruiseAltitude <= 0 || (fp.CruiseSpeed <= 0 && fp.CruiseMach <= 0) {
		return ""
	}
	var s string
	if fp.CruiseMach > 0 {
		s = fmt.Sprintf("M%03d", int(fp.CruiseMach*100+0.5))
	} else {
		s = fmt.Sprintf("N%04d", int(fp.CruiseSpeed+0.5))
	}
	if fp.CruiseAltitude >= 18000 {
		s += fmt.Sprintf("F%03d", int(fp.CruiseAltitude+50)/100)
	} else {
		s += fmt.Sprintf("A%03d", int(fp.CruiseAltitude+50)/100)
	}
	return s
}

// ICAORouteString returns the route in ICAO flight plan form, with
// procedures and airways given by name.
func (fp *FlightPlan) ICAORouteString() string {
	n := len(fp.Legs)
	if n == 0 {
		return ""
	}

	var s []string
	add := func(id string) {
		if len(s) == 0 || s[len(s)-1] != id {
			s = append(s, id)
		}
	}
	fixId := func(f Fix) string {
		if f.Kind == FixKindUserDefined {
			return f.Location.ICAOString()
		}
		return f.Ident
	}

	add(fixId(fp.Legs[0].Fix))
	if sa := fp.SpeedAltitudeString(); sa != "" {
		s = append(s, sa)
	}

	for i := 1; i < n-1; i++ {
		leg := fp.Legs[i]
		switch {
		case leg.Category.IsDeparture():
			// Emit the SID once and then the fix where it ends so that
			// enroute airways have an entry point.
			if i+1 == n-1 || !fp.Legs[i+1].Category.IsDeparture() {
				name, tr := fp.ProcedureName(ProcedureSID)
				add(name + dotted(tr))
				if leg.HasFix() && leg.Fix.Kind != FixKindRunwayEnd {
					add(fixId(leg.Fix))
				}
			}

		case leg.Category.IsArrival():
			if i > 1 && fp.Legs[i-1].Category.IsArrival() {
				continue
			}
			// An airway may end at the first fix of the arrival.
			if leg.Airway != "" {
				add(leg.Airway)
				s = append(s, fixId(leg.Fix))
			}
			if pt, _ := leg.Category.ProcedureType(); pt == ProcedureSTAR {
				name, tr := fp.ProcedureName(ProcedureSTAR)
				add(name + dotted(tr))
			}

		case leg.Airway != "":
			// Collapse the run of legs along the same airway.
			if i+1 < n-1 && fp.Legs[i+1].Airway == leg.Airway {
				continue
			}
			add(leg.Airway)
			s = append(s, fixId(leg.Fix))

		case leg.HasFix():
			add(fixId(leg.Fix))
		}
	}

	add(fixId(fp.Legs[n-1].Fix))
	for _, alt := range fp.Alternates {
		s = append(s, fixId(alt))
	}
	return strings.Join(s, " ")
}

func dotted(tr string) string {
	if tr == "" {
		return ""
	}
	return "." + tr
}
