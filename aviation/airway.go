// aviation/airway.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

type AirwayLevel int

const (
	AirwayLevelAll AirwayLevel = iota
	AirwayLevelLow
	AirwayLevelHigh
)

type AirwayDirection int

const (
	AirwayDirectionAny AirwayDirection = iota
	AirwayDirectionForward
	AirwayDirectionBackward
)

func (d AirwayDirection) String() string {
	return [...]string{"Bidirectional", "Forward", "Backward"}[d]
}

type AirwayFix struct {
	Fix Fix `json:"fix"`
	// Altitude limits for the segment that ends at this fix; zero if
	// unspecified. They are always zero for the first fix.
	MinAltitude float32     `json:"min_altitude,omitempty"`
	MaxAltitude float32     `json:"max_altitude,omitempty"`
	Level       AirwayLevel `json:"level,omitempty"`
}

// Airway is one charted segment of an airway; an airway name may be used
// for several disjoint segments.
type Airway struct {
	Name      string          `json:"name"`
	Fixes     []AirwayFix     `json:"fixes"`
	Direction AirwayDirection `json:"direction,omitempty"`
}

// Index returns the index of the given fix in the airway or -1 if it
// isn't on it. An empty region matches any region.
func (a Airway) Index(ident, region string) int {
	for i, af := range a.Fixes {
		if af.Fix.Ident == ident && (region == "" || af.Fix.Region == "" || af.Fix.Region == region) {
			return i
		}
	}
	return -1
}

// CanFly reports whether the airway may be flown from fix index from to
// fix index to.
func (a Airway) CanFly(from, to int) bool {
	switch a.Direction {
	case AirwayDirectionForward:
		return to > from
	case AirwayDirectionBackward:
		return to < from
	default:
		return true
	}
}

// SegmentAltitudes returns the altitude limits for flying between the
// adjacent fixes with indices i and j.
func (a Airway) SegmentAltitudes(i, j int) (minAlt, maxAlt float32) {
	af := a.Fixes[max(i, j)]
	return af.MinAltitude, af.MaxAltitude
}
