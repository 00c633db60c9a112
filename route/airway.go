// route/airway.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"context"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/navdb"
)

// AirwayResolver expands airway segments of a route into legs.
type AirwayResolver struct {
	DB navdb.Database
}

// Resolve returns the TrackToFix legs for flying the named airway from
// entry to exit. The entry fix isn't included; the exit fix is the last
// leg.
func (r AirwayResolver) Resolve(ctx context.Context, name string, entry, exit av.Fix) ([]av.Leg, error) {
	airways, err := r.DB.GetAirway(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(airways) == 0 {
		return nil, &av.ResolutionError{Kind: av.NotFound, Ident: name}
	}
	return ResolveAirway(airways, entry, exit)
}

// ResolveAirway slices the legs from entry to exit out of the given
// segments of an airway. If more than one segment contains both fixes,
// the one whose entry fix is closest to entry's location is used.
func ResolveAirway(airways []av.Airway, entry, exit av.Fix) ([]av.Leg, error) {
	name := ""
	if len(airways) > 0 {
		name = airways[0].Name
	}
	if entry.Ident == exit.Ident && (entry.Region == exit.Region || entry.Region == "" || exit.Region == "") {
		return nil, &av.AirwayError{Kind: av.DegenerateRange, Airway: name, Entry: entry.Ident, Exit: exit.Ident}
	}

	var airway *av.Airway
	var from, to int
	bestDist := math.Infinity()
	for i := range airways {
		a := &airways[i]
		f, t := a.Index(entry.Ident, entry.Region), a.Index(exit.Ident, exit.Region)
		if f == -1 || t == -1 {
			continue
		}
		d := float32(0)
		if !entry.Location.IsZero() {
			d = math.NMDistance2LL(entry.Location, a.Fixes[f].Fix.Location)
		}
		if d < bestDist {
			airway, from, to, bestDist = a, f, t, d
		}
	}

	if airway == nil {
		return nil, &av.AirwayError{Kind: av.FixNotOnAirway, Airway: name, Entry: entry.Ident, Exit: exit.Ident}
	}
	if from == to {
		return nil, &av.AirwayError{Kind: av.DegenerateRange, Airway: name, Entry: entry.Ident, Exit: exit.Ident}
	}
	if !airway.CanFly(from, to) {
		return nil, &av.AirwayError{Kind: av.DirectionViolation, Airway: name, Entry: entry.Ident, Exit: exit.Ident}
	}

	step := 1
	if to < from {
		step = -1
	}
	var legs []av.Leg
	for i := from + step; ; i += step {
		minAlt, maxAlt := airway.SegmentAltitudes(i-step, i)
		legs = append(legs, av.Leg{
			Type:              av.TrackToFix,
			Fix:               airway.Fixes[i].Fix,
			Airway:            airway.Name,
			AirwayMinAltitude: minAlt,
			AirwayMaxAltitude: maxAlt,
		})
		if i == to {
			break
		}
	}
	return legs, nil
}
