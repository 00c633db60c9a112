// route/procedure.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/navdb"
	"github.com/mmp/routeplan/util"
)

// ProcedureRequest specifies a procedure to expand.
type ProcedureRequest struct {
	Airport    string
	Name       string
	Type       av.ProcedureType
	Runway     string
	Transition string
	// OmitRunwayTransition builds a SID or STAR without its runway
	// specific legs, for when the runway isn't known yet.
	OmitRunwayTransition bool
}

func (r ProcedureRequest) String() string {
	s := r.Airport + "/" + r.Name
	if r.Transition != "" {
		s += "." + r.Transition
	}
	if r.Runway != "" {
		s += " RWY " + av.NormalizeRunway(r.Runway)
	}
	return s
}

// ProcedureLegBuilder expands SIDs, STARs, and approaches from the raw
// legs in the navigation database.
type ProcedureLegBuilder struct {
	DB navdb.Database
}

type procedureSegment struct {
	kind       av.ProcedureSegment
	transition string
	legs       []av.RawLeg
}

// groupSegments splits the legs into segments, in the order in which the
// segments first appear. Each segment's legs are sorted by sequence
// number.
func groupSegments(raw []av.RawLeg) []procedureSegment {
	var segs []procedureSegment
	for _, r := range raw {
		kind := r.SegmentKind()
		idx := slices.IndexFunc(segs, func(s procedureSegment) bool {
			return s.kind == kind && s.transition == r.Transition
		})
		if idx == -1 {
			segs = append(segs, procedureSegment{kind: kind, transition: r.Transition})
			idx = len(segs) - 1
		}
		segs[idx].legs = append(segs[idx].legs, r)
	}
	for i := range segs {
		slices.SortStableFunc(segs[i].legs, func(a, b av.RawLeg) int { return a.Sequence - b.Sequence })
	}
	return segs
}

func segmentsOfKind(segs []procedureSegment, kind av.ProcedureSegment) []*procedureSegment {
	var r []*procedureSegment
	for i := range segs {
		if segs[i].kind == kind {
			r = append(r, &segs[i])
		}
	}
	return r
}

// Build expands the requested procedure. Fixes that aren't in the
// database are reported to e as *av.ProcedureError MissingFix warnings;
// the legs that depend on them are skipped and the rest of the procedure
// is still returned. A *av.ProcedureError is returned if the procedure,
// its runway, or its transition can't be found.
func (b ProcedureLegBuilder) Build(ctx context.Context, req ProcedureRequest, e *util.ErrorLogger) (av.Procedure, error) {
	if e == nil {
		e = &util.ErrorLogger{}
	}
	req.Airport = strings.ToUpper(req.Airport)
	req.Name = strings.ToUpper(req.Name)
	req.Transition = strings.ToUpper(req.Transition)

	procErr := func(kind av.ProcedureErrorKind, candidates []string) error {
		return &av.ProcedureError{
			Kind:       kind,
			Airport:    req.Airport,
			Procedure:  req.Name,
			Runway:     req.Runway,
			Transition: req.Transition,
			Candidates: candidates,
		}
	}

	raw, err := b.DB.GetProcedureLegs(ctx, navdb.ProcedureKey{Airport: req.Airport, Procedure: req.Name})
	if err != nil {
		return av.Procedure{}, err
	}
	raw = util.FilterSlice(raw, func(r av.RawLeg) bool { return r.Type == req.Type })
	if len(raw) == 0 {
		return av.Procedure{}, procErr(av.UnknownProcedure, nil)
	}

	info := navdb.SummarizeProcedures(raw)[0]
	proc := av.Procedure{
		Airport:     req.Airport,
		Name:        req.Name,
		Type:        req.Type,
		Transition:  req.Transition,
		Runways:     info.Runways,
		Transitions: info.Transitions,
		GPSOverlay:  info.GPSOverlay,
	}
	segs := groupSegments(raw)

	// Runway
	var runwaySeg *procedureSegment
	if req.Type == av.ProcedureApproach {
		rwy := av.ApproachRunway(req.Name)
		if req.Runway != "" && rwy != "" && rwy != av.NormalizeRunway(req.Runway) {
			return av.Procedure{}, procErr(av.RunwayMismatch, info.Runways)
		}
		proc.Runway = util.Select(rwy != "", rwy, av.NormalizeRunway(req.Runway))
	} else if rwys := segmentsOfKind(segs, av.SegmentRunwayTransition); len(rwys) > 0 && !req.OmitRunwayTransition {
		if req.Runway == "" {
			if len(rwys) > 1 {
				return av.Procedure{}, procErr(av.RunwayMismatch, info.Runways)
			}
			runwaySeg = rwys[0]
		} else {
			idx := slices.IndexFunc(rwys, func(s *procedureSegment) bool {
				return av.RunwayTransitionMatches(s.transition, req.Runway)
			})
			if idx == -1 {
				return av.Procedure{}, procErr(av.RunwayMismatch, info.Runways)
			}
			runwaySeg = rwys[idx]
		}
		proc.Runway = av.NormalizeRunway(util.Select(req.Runway != "", req.Runway, runwaySeg.transition))
	} else {
		proc.Runway = av.NormalizeRunway(req.Runway)
	}

	// Transition
	var transitionSeg *procedureSegment
	if req.Transition != "" {
		kind := util.Select(req.Type == av.ProcedureApproach, av.SegmentApproachTransition, av.SegmentEnrouteTransition)
		for _, s := range segmentsOfKind(segs, kind) {
			if s.transition == req.Transition {
				transitionSeg = s
			}
		}
		if transitionSeg == nil {
			return av.Procedure{}, procErr(av.UnknownTransition, info.Transitions)
		}
	}

	// The segments to fly, in order, with the category of their legs.
	type part struct {
		seg      *procedureSegment
		category av.LegCategory
	}
	var parts []part
	switch req.Type {
	case av.ProcedureSID:
		parts = append(parts, part{runwaySeg, av.SID})
		for _, s := range segmentsOfKind(segs, av.SegmentCommon) {
			parts = append(parts, part{s, av.SID})
		}
		parts = append(parts, part{transitionSeg, av.SIDTransition})
	case av.ProcedureSTAR:
		parts = append(parts, part{transitionSeg, av.STARTransition})
		for _, s := range segmentsOfKind(segs, av.SegmentCommon) {
			parts = append(parts, part{s, av.STAR})
		}
		parts = append(parts, part{runwaySeg, av.STAR})
	case av.ProcedureApproach:
		parts = append(parts, part{transitionSeg, av.ApproachTransition})
		for _, s := range segmentsOfKind(segs, av.SegmentFinal) {
			parts = append(parts, part{s, av.Approach})
		}
	}

	resolver := navdb.Resolver{DB: b.DB}
	airport, err := resolver.Resolve(ctx, req.Airport, "", nil, av.FixKindAirport)
	if err != nil {
		return av.Procedure{}, err
	}
	ref := airport.Fix.Location

	// Where the first leg starts from.
	var start math.Point2LL
	if req.Type == av.ProcedureSID {
		start = ref
		if proc.Runway != "" {
			if rwy, err := resolver.Resolve(ctx, "RW"+padRunway(proc.Runway), "", &ref, av.FixKindRunwayEnd); err == nil &&
				rwy.Fix.Kind == av.FixKindRunwayEnd {
				start = rwy.Fix.Location
			}
		}
	}

	lb := legBuilder{ctx: ctx, resolver: resolver, ref: ref, prev: start, proc: &proc, e: e}
	e.Push(proc.Airport + "/" + proc.Name)
	defer e.Pop()

	for _, p := range parts {
		if p.seg == nil {
			continue
		}
		var legs []av.Leg
		for _, r := range p.seg.legs {
			leg, ok, err := lb.build(r, p.category)
			if err != nil {
				return av.Procedure{}, err
			}
			if ok {
				legs = append(legs, leg)
			}
		}
		proc.Legs = spliceLegs(proc.Legs, legs)
	}

	if err := CheckCategoryOrder(proc); err != nil {
		return av.Procedure{}, err
	}

	fp := av.FlightPlan{Legs: proc.Legs, Generic: true}
	fp.UpdateGeometry()
	proc.Legs = fp.Legs

	return proc, nil
}

// joinTransition returns the enroute transition of a SID or STAR that
// is named after fix, where the route leaves the SID or joins the STAR,
// or "" if the procedure has no such transition.
func joinTransition(ctx context.Context, db navdb.Database, req ProcedureRequest, fix string) string {
	if fix == "" || req.Type == av.ProcedureApproach {
		return ""
	}
	procs, err := db.Procedures(ctx, strings.ToUpper(req.Airport))
	if err != nil {
		return ""
	}
	for _, p := range procs {
		if p.Name == strings.ToUpper(req.Name) && p.Type == req.Type && slices.Contains(p.Transitions, fix) {
			return fix
		}
	}
	return ""
}

// CheckCategoryOrder returns a *av.ProcedureError if the procedure's
// legs aren't in SID, enroute, STAR, approach order.
func CheckCategoryOrder(p av.Procedure) error {
	if i := av.FirstCategoryOrderViolation(p.Legs); i != -1 {
		return &av.ProcedureError{
			Kind:      av.CategoryOrderViolation,
			Airport:   p.Airport,
			Procedure: p.Name,
			Fix:       p.Legs[i].Ident(),
		}
	}
	return nil
}

// padRunway returns the runway number with a leading zero, as used in
// runway fix identifiers.
func padRunway(rwy string) string {
	if len(rwy) == 1 || (len(rwy) == 2 && (rwy[1] < '0' || rwy[1] > '9')) {
		return "0" + rwy
	}
	return rwy
}

type legBuilder struct {
	ctx      context.Context
	resolver navdb.Resolver
	ref      math.Point2LL
	prev     math.Point2LL // location of the last leg built with a fix
	proc     *av.Procedure
	e        *util.ErrorLogger
}

// resolve looks up a fix referenced by a procedure. ok is false if the
// fix isn't in the database, in which case a warning has been reported.
func (lb *legBuilder) resolve(ident, region string, prefer ...av.FixKind) (av.Fix, bool, error) {
	if strings.HasPrefix(ident, "RW") {
		prefer = append(prefer, av.FixKindRunwayEnd)
	}
	res, err := lb.resolver.Resolve(lb.ctx, ident, region, &lb.ref, prefer...)
	if err != nil {
		var rerr *av.ResolutionError
		if errors.As(err, &rerr) {
			lb.e.Error(&av.ProcedureError{
				Kind:      av.MissingFix,
				Airport:   lb.proc.Airport,
				Procedure: lb.proc.Name,
				Fix:       ident,
			})
			return av.Fix{}, false, nil
		}
		return av.Fix{}, false, err
	}
	return res.Fix, true, nil
}

// build converts a raw leg; ok is false if the leg can't be built
// because a fix it depends on is missing.
func (lb *legBuilder) build(r av.RawLeg, category av.LegCategory) (av.Leg, bool, error) {
	if r.MissedApproach && category == av.Approach {
		category = av.MissedApproach
	}

	leg := av.Leg{
		Type:       r.PathTerminator,
		Category:   category,
		Course:     r.Course,
		Distance:   r.Distance,
		Time:       r.Time,
		Turn:       r.Turn,
		Speed:      r.SpeedRestriction(),
		FlyOver:    r.FlyOver,
		IAF:        r.IAF,
		FAF:        r.FAF,
		Procedure:  lb.proc.Name,
		Transition: util.Select(r.SegmentKind() == av.SegmentCommon, "", r.Transition),
		Runway:     lb.proc.Runway,
	}

	alt, err := r.AltitudeRestriction()
	if err != nil {
		lb.e.Error(fmt.Errorf("%s: %w", util.Select(r.Fix != "", r.Fix, r.PathTerminator.Code()), err))
	}
	leg.Altitude = alt

	if r.Fix != "" {
		fix, ok, err := lb.resolve(r.Fix, r.FixRegion)
		if err != nil || !ok {
			return av.Leg{}, false, err
		}
		leg.Fix = fix
		leg.Location = fix.Location
	}
	if r.Navaid != "" {
		navaid, ok, err := lb.resolve(r.Navaid, r.NavaidRegion, av.FixKindVOR, av.FixKindNDB)
		if err != nil {
			return av.Leg{}, false, err
		} else if !ok && r.PathTerminator == av.ArcToFix {
			return av.Leg{}, false, nil
		}
		leg.RecommendedNavaid = navaid
	}

	switch r.PathTerminator {
	case av.ConstantRadiusArc:
		if r.CenterFix == "" {
			lb.e.ErrorString("%s: arc without a center fix", leg.Ident())
			return av.Leg{}, false, nil
		}
		center, ok, err := lb.resolve(r.CenterFix, r.CenterRegion)
		if err != nil || !ok {
			return av.Leg{}, false, err
		}
		leg.Center = center
		leg.Arc = lb.arc(center.Location, r.ArcRadius, leg)

	case av.ArcToFix:
		leg.Arc = lb.arc(leg.RecommendedNavaid.Location, r.Rho, leg)
	}

	if leg.HasFix() {
		lb.prev = leg.Location
	}
	return leg, true, nil
}

// arc returns the geometry of an arc around center that ends at the
// leg's fix, starting from where the previous leg ended.
func (lb *legBuilder) arc(center math.Point2LL, radius float32, leg av.Leg) *av.ArcGeometry {
	if center.IsZero() || lb.prev.IsZero() || !leg.HasFix() {
		return nil
	}
	if radius == 0 {
		radius = math.NMDistance2LL(center, leg.Location)
	}
	return &av.ArcGeometry{
		Center:       center,
		Radius:       radius,
		StartBearing: math.InitialBearing(center, lb.prev),
		EndBearing:   math.InitialBearing(center, leg.Location),
		Clockwise:    leg.Turn == av.TurnRight,
	}
}

// spliceLegs appends b to a, merging the last leg of a with the first
// leg of b if they're to the same fix. Leg attributes from a take
// precedence at the junction.
func spliceLegs(a, b []av.Leg) []av.Leg {
	if len(a) == 0 || len(b) == 0 {
		return append(a, b...)
	}
	last := &a[len(a)-1]
	if !last.HasFix() {
		return append(a, b...)
	}

	// Only the first leg of b can be the junction.
	j := b[0]
	if !j.HasFix() || !j.Fix.Same(last.Fix) || j.Type.IsFlownAtFix() || j.Category == av.MissedApproach {
		return append(a, b...)
	}

	last.IAF = last.IAF || j.IAF
	last.FAF = last.FAF || j.FAF
	if !last.Altitude.IsSet() {
		last.Altitude = j.Altitude
	}
	if !last.Speed.IsSet() {
		last.Speed = j.Speed
	}
	return append(a, b[1:]...)
}
