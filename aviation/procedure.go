// aviation/procedure.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"
)

type ProcedureType int

const (
	ProcedureSID ProcedureType = iota
	ProcedureSTAR
	ProcedureApproach
)

func (t ProcedureType) String() string {
	switch t {
	case ProcedureSID:
		return "SID"
	case ProcedureSTAR:
		return "STAR"
	case ProcedureApproach:
		return "Approach"
	default:
		return fmt.Sprintf("ProcedureType(%d)", int(t))
	}
}

// ProcedureSegment identifies which part of a procedure a raw leg belongs
// to.
type ProcedureSegment int

const (
	// SegmentUnknown is used for records that don't say; the segment is
	// then inferred from the transition identifier.
	SegmentUnknown ProcedureSegment = iota
	SegmentRunwayTransition
	SegmentCommon
	SegmentEnrouteTransition
	SegmentApproachTransition
	SegmentFinal
)

func (s ProcedureSegment) String() string {
	return [...]string{"Unknown", "RunwayTransition", "Common", "EnrouteTransition",
		"ApproachTransition", "Final"}[s]
}

// RawLeg is a procedure leg as it is stored in the navigation database,
// before its fixes are resolved.
type RawLeg struct {
	Airport    string           `json:"airport"`
	Procedure  string           `json:"procedure"`
	Type       ProcedureType    `json:"type"`
	Segment    ProcedureSegment `json:"segment"`
	Transition string           `json:"transition,omitempty"`
	Sequence   int              `json:"sequence"`

	PathTerminator LegType `json:"path_terminator"`
	Fix            string  `json:"fix,omitempty"`
	FixRegion      string  `json:"fix_region,omitempty"`
	Navaid         string  `json:"navaid,omitempty"`
	NavaidRegion   string  `json:"navaid_region,omitempty"`
	CenterFix      string  `json:"center_fix,omitempty"`
	CenterRegion   string  `json:"center_region,omitempty"`

	ArcRadius float32       `json:"arc_radius,omitempty"` // nm
	Theta     float32       `json:"theta,omitempty"`      // bearing from the navaid, degrees
	Rho       float32       `json:"rho,omitempty"`        // distance from the navaid, nm
	Course    float32       `json:"course,omitempty"`
	Distance  float32       `json:"distance,omitempty"` // nm
	Time      float32       `json:"time,omitempty"`     // minutes
	Turn      TurnDirection `json:"turn,omitempty"`

	AltitudeDescriptor byte    `json:"altitude_descriptor,omitempty"`
	Altitude1          float32 `json:"altitude1,omitempty"`
	Altitude2          float32 `json:"altitude2,omitempty"`
	Speed              float32 `json:"speed,omitempty"`
	SpeedDescriptor    byte    `json:"speed_descriptor,omitempty"`

	FlyOver        bool `json:"fly_over,omitempty"`
	IAF            bool `json:"iaf,omitempty"`
	IF             bool `json:"if,omitempty"`
	FAF            bool `json:"faf,omitempty"`
	MissedApproach bool `json:"missed_approach,omitempty"`
	GPSOverlay     bool `json:"gps_overlay,omitempty"`
}

// SegmentKind returns the leg's segment, inferring it from the
// transition identifier if the record didn't specify it.
func (r RawLeg) SegmentKind() ProcedureSegment {
	if r.Segment != SegmentUnknown {
		return r.Segment
	}
	switch {
	case r.Type == ProcedureApproach && (r.Transition == "" || r.Transition == r.Procedure):
		return SegmentFinal
	case r.Type == ProcedureApproach:
		return SegmentApproachTransition
	case IsRunwayTransition(r.Transition):
		return SegmentRunwayTransition
	case r.Transition == "" || r.Transition == "ALL":
		return SegmentCommon
	default:
		return SegmentEnrouteTransition
	}
}

// AltitudeRestriction decodes the leg's altitude fields.
func (r RawLeg) AltitudeRestriction() (AltitudeRestriction, error) {
	return DecodeARINCAltitude(r.AltitudeDescriptor, r.Altitude1, r.Altitude2)
}

func (r RawLeg) SpeedRestriction() SpeedRestriction {
	if r.Speed == 0 {
		return SpeedRestriction{}
	}
	switch r.SpeedDescriptor {
	case '+':
		return SpeedRestriction{Speed: r.Speed, Kind: SpeedAtOrAbove}
	case '-', ' ', 0:
		// Unqualified procedure speeds are limits.
		return SpeedRestriction{Speed: r.Speed, Kind: SpeedAtOrBelow}
	default:
		return SpeedRestriction{Speed: r.Speed, Kind: SpeedAt}
	}
}

// DecodeARINCAltitude converts an ARINC-424 altitude description (5.29)
// and its two altitude fields to an AltitudeRestriction.
func DecodeARINCAltitude(descriptor byte, alt1, alt2 float32) (AltitudeRestriction, error) {
	if alt1 == 0 && alt2 == 0 {
		return AltitudeRestriction{}, nil
	}

	switch descriptor {
	case ' ', '@', 0:
		return AtAltitude(alt1), nil
	case '+':
		return AtOrAboveAltitude(alt1), nil
	case '-':
		return AtOrBelowAltitude(alt1), nil
	case 'B': // "At or above to at or below"; The higher value will always appear first.
		return AltitudeRestriction{Range: [2]float32{alt2 /* low */, alt1 /* high */}}, nil
	case 'G', 'I', 'X':
		// glideslope or coded vertical angle alt in second, 'at' in first
		return AtAltitude(alt1), nil
	case 'H', 'J', 'V':
		// glideslope or coded vertical angle alt in second, 'at or above' in first
		return AtOrAboveAltitude(alt1), nil
	default:
		return AltitudeRestriction{}, fmt.Errorf("%c: unknown altitude description", descriptor)
	}
}

// IsRunwayTransition reports whether a SID or STAR transition identifier
// names a runway, e.g. "RW04L" or "RW31B".
func IsRunwayTransition(t string) bool {
	return len(t) >= 4 && t[:2] == "RW" && t[2] >= '0' && t[2] <= '9' && t[3] >= '0' && t[3] <= '9'
}

// NormalizeRunway returns the runway identifier without the "RW" prefix
// or a leading zero, so that "RW04L", "04L", and "4L" are all "4L".
func NormalizeRunway(rwy string) string {
	rwy = strings.TrimSpace(strings.ToUpper(rwy))
	rwy = strings.TrimPrefix(rwy, "RW")
	return strings.TrimPrefix(rwy, "0")
}

// RunwayTransitionMatches reports whether the runway transition
// identifier t (e.g., "RW04B") applies to the given runway. A "B" suffix
// covers all of the parallel runways with that number.
func RunwayTransitionMatches(t, runway string) bool {
	tr, rwy := NormalizeRunway(t), NormalizeRunway(runway)
	if tr == rwy {
		return true
	}
	if n := len(tr); n > 0 && tr[n-1] == 'B' {
		return strings.TrimRight(rwy, "LRC") == tr[:n-1]
	}
	return false
}

// ApproachRunway returns the runway an approach identifier is for, e.g.
// "I04R" -> "4R", "H22LZ" -> "22L". Circling approaches return "".
func ApproachRunway(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) < 2 {
		return ""
	}
	rest := id[1:]
	start := strings.IndexAny(rest, "0123456789")
	if start == -1 {
		return ""
	}
	end := start
	for end < len(rest) && end < start+2 && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end < len(rest) && strings.ContainsRune("LRC", rune(rest[end])) {
		end++
	}
	return NormalizeRunway(rest[start:end])
}

// Procedure is a SID, STAR, or approach, expanded for a specific runway
// and transition.
type Procedure struct {
	Airport    string        `json:"airport"`
	Name       string        `json:"name"`
	Type       ProcedureType `json:"type"`
	Runway     string        `json:"runway,omitempty"`
	Transition string        `json:"transition,omitempty"`
	Legs       []Leg         `json:"legs"`

	// Runways and Transitions give all of the runways the procedure
	// applies to and all of its transitions, not just the ones used for
	// Legs.
	Runways     []string `json:"runways,omitempty"`
	Transitions []string `json:"transitions,omitempty"`
	GPSOverlay  bool     `json:"gps_overlay,omitempty"`
}

func (p Procedure) String() string {
	s := p.Name
	if p.Transition != "" {
		s += "." + p.Transition
	}
	if p.Runway != "" {
		s += " RWY " + p.Runway
	}
	return s
}
