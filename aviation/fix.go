// aviation/fix.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"

	"github.com/mmp/routeplan/math"
)

type FixKind int

const (
	FixKindWaypoint FixKind = iota
	FixKindAirport
	FixKindVOR
	FixKindNDB
	FixKindUserDefined
	FixKindRunwayEnd
)

func (k FixKind) String() string {
	switch k {
	case FixKindWaypoint:
		return "Waypoint"
	case FixKindAirport:
		return "Airport"
	case FixKindVOR:
		return "VOR"
	case FixKindNDB:
		return "NDB"
	case FixKindUserDefined:
		return "UserDefined"
	case FixKindRunwayEnd:
		return "RunwayEnd"
	default:
		return fmt.Sprintf("FixKind(%d)", int(k))
	}
}

// Fix is a navigable point. Fixes are values copied out of the
// navigation database; legs that refer to the same physical point hold
// equal Fixes.
type Fix struct {
	Kind      FixKind       `json:"kind"`
	Ident     string        `json:"ident"`
	Region    string        `json:"region,omitempty"` // ICAO region code, e.g. "K6"
	Location  math.Point2LL `json:"location"`
	Elevation float32       `json:"elevation,omitempty"` // feet
	Name      string        `json:"name,omitempty"`
}

func (f Fix) IsZero() bool {
	return f.Ident == "" && f.Location.IsZero()
}

// Same reports whether f and g refer to the same physical point.
func (f Fix) Same(g Fix) bool {
	return f.Kind == g.Kind && f.Ident == g.Ident && f.Region == g.Region && f.Location == g.Location
}

func (f Fix) String() string {
	if f.Region != "" {
		return f.Ident + "/" + f.Region
	}
	return f.Ident
}

// UserFix returns a user-defined position at the given location, named
// with its ICAO coordinate string.
func UserFix(p math.Point2LL) Fix {
	return Fix{Kind: FixKindUserDefined, Ident: p.ICAOString(), Location: p}
}
