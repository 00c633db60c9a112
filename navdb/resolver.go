// navdb/resolver.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"cmp"
	"context"
	"slices"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/math"
)

// Resolver turns identifiers into single fixes.
type Resolver struct {
	DB Database
}

// Resolution is the result of resolving an identifier.
type Resolution struct {
	Fix        av.Fix
	Candidates []av.Fix
	// Warning is set to an Ambiguous *av.ResolutionError if there were
	// multiple candidates and no reference point to choose between them.
	Warning error
}

// Resolve finds the fix with the given identifier. If more than one
// matches, the one closest to ref is returned; without a reference
// point, airports are preferred, and the rest are ordered by region,
// kind, and location. If prefer is given, candidates of those kinds are
// used if there are any. Runway ends are only returned if preferred.
//
// A *av.ResolutionError with Kind NotFound is returned if nothing
// matches.
func (r Resolver) Resolve(ctx context.Context, ident, region string, ref *math.Point2LL,
	prefer ...av.FixKind) (Resolution, error) {
	fixes, err := r.DB.FindFixByIdent(ctx, ident, region)
	if err != nil {
		return Resolution{}, err
	}
	// The database may return a slice it also holds (e.g., when cached).
	fixes = slices.Clone(fixes)

	if !slices.Contains(prefer, av.FixKindRunwayEnd) {
		fixes = slices.DeleteFunc(fixes, func(f av.Fix) bool { return f.Kind == av.FixKindRunwayEnd })
	}
	if len(prefer) > 0 {
		preferred := slices.DeleteFunc(slices.Clone(fixes), func(f av.Fix) bool {
			return !slices.Contains(prefer, f.Kind)
		})
		if len(preferred) > 0 {
			fixes = preferred
		}
	}

	if len(fixes) == 0 {
		return Resolution{}, &av.ResolutionError{Kind: av.NotFound, Ident: ident}
	}

	slices.SortFunc(fixes, compareFixes)
	if ref != nil && !ref.IsZero() {
		// SortStableFunc keeps the deterministic order for equidistant
		// candidates.
		slices.SortStableFunc(fixes, func(a, b av.Fix) int {
			return cmp.Compare(math.NMDistance2LL(*ref, a.Location), math.NMDistance2LL(*ref, b.Location))
		})
		return Resolution{Fix: fixes[0], Candidates: fixes}, nil
	}

	res := Resolution{Fix: fixes[0], Candidates: fixes}
	if len(fixes) > 1 {
		res.Warning = &av.ResolutionError{
			Kind:       av.Ambiguous,
			Ident:      ident,
			Candidates: fixes,
			Chosen:     fixes[0],
		}
	}
	return res, nil
}

// compareFixes orders airports first and then by region, kind, latitude,
// and longitude.
func compareFixes(a, b av.Fix) int {
	if ap, bp := a.Kind == av.FixKindAirport, b.Kind == av.FixKindAirport; ap != bp {
		if ap {
			return -1
		}
		return 1
	}
	return cmp.Or(
		cmp.Compare(a.Region, b.Region),
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.Location.Latitude(), b.Location.Latitude()),
		cmp.Compare(a.Location.Longitude(), b.Location.Longitude()))
}
