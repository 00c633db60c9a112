// navdb/db.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package navdb provides read-only access to navigation data: fixes,
// airways, and the raw legs of SIDs, STARs, and approaches.
package navdb

import (
	"context"
	"slices"
	"strings"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/util"
)

// Database is implemented by navigation data stores. Queries that find
// nothing return an empty result and a nil error; errors are reserved
// for failures of the store itself. Implementations must be safe for
// concurrent use by multiple readers.
type Database interface {
	// FindFixByIdent returns all fixes with the given identifier; if
	// region is non-empty, only fixes in that ICAO region are returned.
	FindFixByIdent(ctx context.Context, ident, region string) ([]av.Fix, error)
	// GetAirway returns the charted segments with the given airway name.
	GetAirway(ctx context.Context, name string) ([]av.Airway, error)
	// GetProcedureLegs returns the raw legs matching key, in database
	// order.
	GetProcedureLegs(ctx context.Context, key ProcedureKey) ([]av.RawLeg, error)
	// Procedures summarizes the procedures available at an airport.
	Procedures(ctx context.Context, airport string) ([]ProcedureInfo, error)
}

// ProcedureKey selects procedure legs; empty fields match everything.
type ProcedureKey struct {
	Airport    string
	Procedure  string
	Transition string
	// Runway restricts runway transitions to the ones for the given
	// runway; legs common to all runways always match.
	Runway string
}

func (k ProcedureKey) String() string {
	s := k.Airport + "/" + k.Procedure
	if k.Transition != "" {
		s += "." + k.Transition
	}
	if k.Runway != "" {
		s += "/RW" + k.Runway
	}
	return s
}

func (k ProcedureKey) Matches(leg av.RawLeg) bool {
	if k.Airport != "" && k.Airport != leg.Airport {
		return false
	}
	if k.Procedure != "" && k.Procedure != leg.Procedure {
		return false
	}
	if k.Transition != "" && k.Transition != leg.Transition {
		return false
	}
	if k.Runway != "" {
		if leg.Type == av.ProcedureApproach {
			if rwy := av.ApproachRunway(leg.Procedure); rwy != "" && rwy != av.NormalizeRunway(k.Runway) {
				return false
			}
		} else if leg.SegmentKind() == av.SegmentRunwayTransition &&
			!av.RunwayTransitionMatches(leg.Transition, k.Runway) {
			return false
		}
	}
	return true
}

// ProcedureInfo summarizes a procedure.
type ProcedureInfo struct {
	Airport     string           `json:"airport"`
	Name        string           `json:"name"`
	Type        av.ProcedureType `json:"type"`
	Runways     []string         `json:"runways,omitempty"`
	Transitions []string         `json:"transitions,omitempty"`
	GPSOverlay  bool             `json:"gps_overlay,omitempty"`
}

// SummarizeProcedures groups raw legs by procedure, in the order the
// procedures first appear.
func SummarizeProcedures(legs []av.RawLeg) []ProcedureInfo {
	var infos []ProcedureInfo
	index := make(map[string]int)
	for _, leg := range legs {
		k := leg.Airport + "/" + leg.Procedure
		i, ok := index[k]
		if !ok {
			i = len(infos)
			index[k] = i
			infos = append(infos, ProcedureInfo{Airport: leg.Airport, Name: leg.Procedure, Type: leg.Type})
			if leg.Type == av.ProcedureApproach {
				if rwy := av.ApproachRunway(leg.Procedure); rwy != "" {
					infos[i].Runways = []string{rwy}
				}
			}
		}
		info := &infos[i]
		info.GPSOverlay = info.GPSOverlay || leg.GPSOverlay

		switch leg.SegmentKind() {
		case av.SegmentRunwayTransition:
			info.Runways = append(info.Runways, av.NormalizeRunway(leg.Transition))
		case av.SegmentEnrouteTransition, av.SegmentApproachTransition:
			info.Transitions = append(info.Transitions, leg.Transition)
		}
	}

	for i := range infos {
		infos[i].Runways = util.DedupeSlice(infos[i].Runways)
		infos[i].Transitions = util.DedupeSlice(infos[i].Transitions)
		slices.Sort(infos[i].Runways)
		slices.Sort(infos[i].Transitions)
	}
	return infos
}

func normalizeIdent(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
