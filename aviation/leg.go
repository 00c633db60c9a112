// aviation/leg.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"

	"github.com/mmp/routeplan/math"
)

///////////////////////////////////////////////////////////////////////////
// LegType

// LegType is an ARINC-424 path terminator.
type LegType int

const (
	InitialFix LegType = iota
	TrackToFix
	CourseToFix
	DirectToFix
	FixToAltitude
	TrackFromFixFromDistance
	TrackFromFixToDMEDistance
	FromFixToManual
	CourseToAltitude
	CourseToDMEDistance
	CourseToIntercept
	CourseToRadialTermination
	ConstantRadiusArc
	ArcToFix
	HeadingToAltitude
	HeadingToDMEDistance
	HeadingToIntercept
	HeadingToManual
	HeadingToRadialTermination
	ProcedureTurn
	HoldToAltitude
	HoldToFix
	HoldToManual
	numLegTypes
)

var legTypeCodes = [numLegTypes]string{
	InitialFix:                 "IF",
	TrackToFix:                 "TF",
	CourseToFix:                "CF",
	DirectToFix:                "DF",
	FixToAltitude:              "FA",
	TrackFromFixFromDistance:   "FC",
	TrackFromFixToDMEDistance:  "FD",
	FromFixToManual:            "FM",
	CourseToAltitude:           "CA",
	CourseToDMEDistance:        "CD",
	CourseToIntercept:          "CI",
	CourseToRadialTermination:  "CR",
	ConstantRadiusArc:          "RF",
	ArcToFix:                   "AF",
	HeadingToAltitude:          "VA",
	HeadingToDMEDistance:       "VD",
	HeadingToIntercept:         "VI",
	HeadingToManual:            "VM",
	HeadingToRadialTermination: "VR",
	ProcedureTurn:              "PI",
	HoldToAltitude:             "HA",
	HoldToFix:                  "HF",
	HoldToManual:               "HM",
}

var legTypeNames = [numLegTypes]string{
	InitialFix:                 "InitialFix",
	TrackToFix:                 "TrackToFix",
	CourseToFix:                "CourseToFix",
	DirectToFix:                "DirectToFix",
	FixToAltitude:              "FixToAltitude",
	TrackFromFixFromDistance:   "TrackFromFixFromDistance",
	TrackFromFixToDMEDistance:  "TrackFromFixToDMEDistance",
	FromFixToManual:            "FromFixToManual",
	CourseToAltitude:           "CourseToAltitude",
	CourseToDMEDistance:        "CourseToDMEDistance",
	CourseToIntercept:          "CourseToIntercept",
	CourseToRadialTermination:  "CourseToRadialTermination",
	ConstantRadiusArc:          "ConstantRadiusArc",
	ArcToFix:                   "ArcToFix",
	HeadingToAltitude:          "HeadingToAltitude",
	HeadingToDMEDistance:       "HeadingToDMEDistance",
	HeadingToIntercept:         "HeadingToIntercept",
	HeadingToManual:            "HeadingToManual",
	HeadingToRadialTermination: "HeadingToRadialTermination",
	ProcedureTurn:              "ProcedureTurn",
	HoldToAltitude:             "HoldToAltitude",
	HoldToFix:                  "HoldToFix",
	HoldToManual:               "HoldToManual",
}

// ParseLegType returns the LegType for a two-letter ARINC-424 path
// terminator code.
func ParseLegType(code string) (LegType, error) {
	for i, c := range legTypeCodes {
		if c == code {
			return LegType(i), nil
		}
	}
	return 0, fmt.Errorf("%q: unknown path terminator", code)
}

func (t LegType) valid() bool { return t >= 0 && t < numLegTypes }

func (t LegType) String() string {
	if !t.valid() {
		return fmt.Sprintf("LegType(%d)", int(t))
	}
	return legTypeNames[t]
}

// Code returns the two-letter ARINC-424 path terminator.
func (t LegType) Code() string {
	if !t.valid() {
		return "??"
	}
	return legTypeCodes[t]
}

func (t LegType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Code())
}

func (t *LegType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	lt, err := ParseLegType(s)
	if err == nil {
		*t = lt
	}
	return err
}

// TerminatesAtFix reports whether legs of this type end at their fix.
func (t LegType) TerminatesAtFix() bool {
	switch t {
	case InitialFix, TrackToFix, CourseToFix, DirectToFix, ConstantRadiusArc, ArcToFix,
		ProcedureTurn, HoldToAltitude, HoldToFix, HoldToManual:
		return true
	default:
		return false
	}
}

// StartsAtFix reports whether legs of this type begin at their fix and
// terminate somewhere else.
func (t LegType) StartsAtFix() bool {
	switch t {
	case FixToAltitude, TrackFromFixFromDistance, TrackFromFixToDMEDistance, FromFixToManual:
		return true
	default:
		return false
	}
}

// IsAltitudeTerminated reports whether the leg ends when an altitude is
// reached; the altitude restriction of such a leg is its termination
// condition and so is always met.
func (t LegType) IsAltitudeTerminated() bool {
	switch t {
	case CourseToAltitude, HeadingToAltitude, FixToAltitude, HoldToAltitude:
		return true
	default:
		return false
	}
}

func (t LegType) IsHold() bool {
	return t == HoldToAltitude || t == HoldToFix || t == HoldToManual
}

// IsFlownAtFix reports whether the leg is flown at its fix after
// reaching it (holds and procedure turns), so that it repeats the fix of
// the preceding leg.
func (t LegType) IsFlownAtFix() bool {
	return t.IsHold() || t == ProcedureTurn
}

func (t LegType) IsArc() bool {
	return t == ConstantRadiusArc || t == ArcToFix
}

// IsManual reports whether the leg ends with a manual termination, which
// the flight plan can't continue from automatically.
func (t LegType) IsManual() bool {
	return t == FromFixToManual || t == HeadingToManual || t == HoldToManual
}

///////////////////////////////////////////////////////////////////////////
// LegCategory

type LegCategory int

// The zero value is Enroute so that legs default to being outside of a
// procedure.
const (
	Enroute LegCategory = iota
	SID
	SIDTransition
	STARTransition
	STAR
	ApproachTransition
	Approach
	MissedApproach
)

func (c LegCategory) String() string {
	switch c {
	case Enroute:
		return "Enroute"
	case SID:
		return "SID"
	case SIDTransition:
		return "SIDTransition"
	case STARTransition:
		return "STARTransition"
	case STAR:
		return "STAR"
	case ApproachTransition:
		return "ApproachTransition"
	case Approach:
		return "Approach"
	case MissedApproach:
		return "MissedApproach"
	default:
		return fmt.Sprintf("LegCategory(%d)", int(c))
	}
}

// Rank gives the position of the category in the fixed order in which
// categories must appear in a flight plan.
func (c LegCategory) Rank() int {
	switch c {
	case SID:
		return 0
	case SIDTransition:
		return 1
	case Enroute:
		return 2
	case STARTransition:
		return 3
	case STAR:
		return 4
	case ApproachTransition:
		return 5
	case Approach:
		return 6
	case MissedApproach:
		return 7
	default:
		return -1
	}
}

func (c LegCategory) IsDeparture() bool { return c == SID || c == SIDTransition }

func (c LegCategory) IsArrival() bool {
	return c == STARTransition || c == STAR || c == ApproachTransition || c == Approach || c == MissedApproach
}

// ProcedureType returns the type of procedure legs of this category
// belong to; ok is false for enroute legs.
func (c LegCategory) ProcedureType() (ProcedureType, bool) {
	switch c {
	case SID, SIDTransition:
		return ProcedureSID, true
	case STAR, STARTransition:
		return ProcedureSTAR, true
	case Approach, ApproachTransition, MissedApproach:
		return ProcedureApproach, true
	default:
		return 0, false
	}
}

///////////////////////////////////////////////////////////////////////////
// Leg

type TurnDirection int

const (
	TurnEither TurnDirection = iota
	TurnLeft
	TurnRight
)

func (t TurnDirection) String() string {
	return [...]string{"Either", "Left", "Right"}[t]
}

type SpeedRestrictionKind int

const (
	SpeedAt SpeedRestrictionKind = iota
	SpeedAtOrBelow
	SpeedAtOrAbove
)

// SpeedRestriction is a speed constraint in knots; a zero Speed means no
// restriction.
type SpeedRestriction struct {
	Speed float32              `json:"speed,omitempty"`
	Kind  SpeedRestrictionKind `json:"kind,omitempty"`
}

func (s SpeedRestriction) IsSet() bool { return s.Speed != 0 }

func (s SpeedRestriction) Encoded() string {
	if s.Speed == 0 {
		return ""
	}
	switch s.Kind {
	case SpeedAtOrBelow:
		return fmt.Sprintf("%.0f-", s.Speed)
	case SpeedAtOrAbove:
		return fmt.Sprintf("%.0f+", s.Speed)
	default:
		return fmt.Sprintf("%.0f", s.Speed)
	}
}

// ArcGeometry describes a circular arc leg: ConstantRadiusArc legs are
// centered on a fix and ArcToFix (DME arc) legs on a navaid.
type ArcGeometry struct {
	Center       math.Point2LL `json:"center"`
	Radius       float32       `json:"radius"`        // nm
	StartBearing float32       `json:"start_bearing"` // degrees true, from the center
	EndBearing   float32       `json:"end_bearing"`
	Clockwise    bool          `json:"clockwise"`
}

// Sweep returns the number of degrees swept by the arc.
func (a ArcGeometry) Sweep() float32 {
	return math.ArcSweep(a.StartBearing, a.EndBearing, a.Clockwise)
}

// Length returns the length of the arc in nautical miles.
func (a ArcGeometry) Length() float32 {
	return a.Radius * math.Radians(a.Sweep())
}

// Points returns a polyline approximating the arc.
func (a ArcGeometry) Points() []math.Point2LL {
	n := max(2, int(a.Sweep()/5))
	return math.ArcPoints(a.Center, a.Radius, a.StartBearing, a.Sweep(), a.Clockwise, n)
}

// Leg is a single element of a flight plan or procedure.
type Leg struct {
	Type     LegType     `json:"type"`
	Category LegCategory `json:"category"`
	// Fix is the zero Fix for legs that don't reference one.
	Fix               Fix `json:"fix"`
	RecommendedNavaid Fix `json:"recommended_navaid"`
	// Center is the arc center fix for ConstantRadiusArc legs.
	Center Fix `json:"center"`

	// Location is where the leg ends; legs without a fixed termination
	// point take the location of the preceding leg.
	Location math.Point2LL `json:"location"`
	Course   float32       `json:"course"`   // degrees
	Distance float32       `json:"distance"` // along-track nm
	Time     float32       `json:"time"`     // minutes, for holds

	Turn     TurnDirection       `json:"turn"`
	Altitude AltitudeRestriction `json:"altitude"`
	Speed    SpeedRestriction    `json:"speed"`
	FlyOver  bool                `json:"fly_over,omitempty"`
	IAF      bool                `json:"iaf,omitempty"`
	FAF      bool                `json:"faf,omitempty"`

	Procedure  string `json:"procedure,omitempty"`
	Transition string `json:"transition,omitempty"`
	Runway     string `json:"runway,omitempty"`

	Airway            string  `json:"airway,omitempty"`
	AirwayMinAltitude float32 `json:"airway_min_altitude,omitempty"`
	AirwayMaxAltitude float32 `json:"airway_max_altitude,omitempty"`

	Arc      *ArcGeometry    `json:"arc,omitempty"`
	Geometry []math.Point2LL `json:"geometry,omitempty"`
}

func (l Leg) HasFix() bool { return l.Fix.Ident != "" }

func (l Leg) IsProcedure() bool { return l.Category != Enroute }

// Ident returns the identifier shown for the leg: its fix or, for legs
// without one, the path terminator code.
func (l Leg) Ident() string {
	if l.HasFix() {
		return l.Fix.Ident
	}
	return "(" + l.Type.Code() + ")"
}

func (l Leg) String() string {
	s := l.Type.Code() + " " + l.Ident()
	if l.Airway != "" {
		s += " via " + l.Airway
	}
	if l.Altitude.IsSet() {
		s += " " + l.Altitude.Encoded()
	}
	return s
}
