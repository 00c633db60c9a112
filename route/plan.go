// route/plan.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/log"
	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/navdb"
	"github.com/mmp/routeplan/profile"
	"github.com/mmp/routeplan/util"
)

// UndoLimit is the number of transactions that can be undone.
const UndoLimit = 50

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrInvalidIndex  = errors.New("invalid leg index")
	ErrProcedureLeg  = errors.New("procedure legs can't be moved")
)

const cruiseAltitudeEdit = "cruise altitude"

// Edit modifies a copy of a flight plan.
type Edit func(fp *av.FlightPlan) error

type transaction struct {
	name          string
	before, after av.FlightPlan
}

// Plan is an editable flight plan. Each edit is a transaction: it's
// applied to a copy of the plan, the plan's invariants are checked, and
// the copy replaces the plan only if they hold. Committed transactions
// can be undone and redone. The vertical profile is recomputed after
// each one.
//
// Plan's methods may be called concurrently; edits are serialized.
type Plan struct {
	DB     navdb.Database
	Logger *log.Logger

	mu         sync.Mutex
	fp         av.FlightPlan
	perf       av.AircraftPerformance
	profile    *profile.VerticalProfile
	profileErr error
	undo, redo []transaction
	mergeable  bool // the last undo entry may absorb a following cruise altitude edit
	cancelPrev context.CancelFunc
	previewSeq int
}

func NewPlan(db navdb.Database, perf av.AircraftPerformance, lg *log.Logger) *Plan {
	return &Plan{DB: db, Logger: lg, perf: perf}
}

// FlightPlan returns a copy of the current flight plan.
func (p *Plan) FlightPlan() av.FlightPlan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fp.Clone()
}

// Profile returns the vertical profile of the current flight plan, or
// the error from computing it; a *av.ConfigurationError if the plan has
// no cruise altitude. Both are nil if the plan has no departure and
// destination yet.
func (p *Plan) Profile() (*profile.VerticalProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profile, p.profileErr
}

// SetPerformance changes the aircraft performance used for the vertical
// profile. It isn't an undoable edit.
func (p *Plan) SetPerformance(ctx context.Context, perf av.AircraftPerformance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.perf = perf
	p.updateProfile(ctx)
}

func (p *Plan) CanUndo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.undo) > 0
}

func (p *Plan) CanRedo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.redo) > 0
}

// History returns the names of the transactions that can be undone,
// oldest first.
func (p *Plan) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return util.MapSlice(p.undo, func(t transaction) string { return t.name })
}

// Apply runs edit as a named transaction.
func (p *Plan) Apply(ctx context.Context, name string, edit Edit) error {
	return p.commit(ctx, name, edit)
}

func (p *Plan) commit(ctx context.Context, name string, edit Edit) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelPreview()

	fp := p.fp.Clone()
	if err := edit(&fp); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fp.UpdateGeometry()
	if err := fp.Validate(); err != nil {
		p.Logger.Warn("rolled back edit", "edit", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}

	if name == cruiseAltitudeEdit && p.mergeable && len(p.undo) > 0 && p.undo[len(p.undo)-1].name == name {
		p.undo[len(p.undo)-1].after = fp.Clone()
	} else {
		p.undo = append(p.undo, transaction{name: name, before: p.fp, after: fp.Clone()})
		if len(p.undo) > UndoLimit {
			p.undo = slices.Delete(p.undo, 0, len(p.undo)-UndoLimit)
		}
	}
	p.mergeable = true
	p.redo = nil
	p.fp = fp

	p.Logger.Debug("committed edit", "edit", name, "route", p.fp.RouteString(), "undo", len(p.undo))
	p.updateProfile(ctx)
	return nil
}

// Undo reverts the most recent transaction.
func (p *Plan) Undo(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.undo) == 0 {
		return ErrNothingToUndo
	}
	p.cancelPreview()
	t := p.undo[len(p.undo)-1]
	p.undo = p.undo[:len(p.undo)-1]
	p.redo = append(p.redo, t)
	p.fp = t.before.Clone()
	p.mergeable = false

	p.Logger.Debug("undo", "edit", t.name)
	p.updateProfile(ctx)
	return nil
}

// Redo reapplies the most recently undone transaction.
func (p *Plan) Redo(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.redo) == 0 {
		return ErrNothingToRedo
	}
	p.cancelPreview()
	t := p.redo[len(p.redo)-1]
	p.redo = p.redo[:len(p.redo)-1]
	p.undo = append(p.undo, t)
	p.fp = t.after.Clone()
	p.mergeable = false

	p.Logger.Debug("redo", "edit", t.name)
	p.updateProfile(ctx)
	return nil
}

func (p *Plan) solver() profile.Solver {
	return profile.Solver{Logger: p.Logger}
}

// updateProfile must be called with p.mu held.
func (p *Plan) updateProfile(ctx context.Context) {
	p.profile, p.profileErr = nil, nil
	if len(p.fp.Legs) < 2 {
		return
	}
	p.profile, p.profileErr = p.solver().Solve(ctx, &p.fp, p.perf)
	if p.profileErr != nil {
		p.Logger.Warn("vertical profile", "error", p.profileErr)
	}
}

// cancelPreview must be called with p.mu held.
func (p *Plan) cancelPreview() {
	if p.cancelPrev != nil {
		p.cancelPrev()
		p.cancelPrev = nil
	}
}

// Preview applies edit to a copy of the plan and computes its profile
// without committing it. Starting another preview or committing an edit
// cancels a preview that's in progress; the superseded preview returns
// context.Canceled.
func (p *Plan) Preview(ctx context.Context, edit Edit) (av.FlightPlan, *profile.VerticalProfile, error) {
	p.mu.Lock()
	p.cancelPreview()
	ctx, cancel := context.WithCancel(ctx)
	p.cancelPrev = cancel
	p.previewSeq++
	seq := p.previewSeq
	fp := p.fp.Clone()
	perf := p.perf
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.previewSeq == seq {
			p.cancelPrev = nil
		}
		p.mu.Unlock()
		cancel()
	}()

	if err := edit(&fp); err != nil {
		return av.FlightPlan{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return av.FlightPlan{}, nil, err
	}
	fp.UpdateGeometry()
	if err := fp.Validate(); err != nil {
		return av.FlightPlan{}, nil, err
	}

	vp, err := p.solver().Solve(ctx, &fp, perf)
	if err != nil {
		return av.FlightPlan{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return av.FlightPlan{}, nil, err
	}
	return fp, vp, nil
}

///////////////////////////////////////////////////////////////////////////
// Edits

// Load replaces the plan with the one given by the route string.
func (p *Plan) Load(ctx context.Context, route string, opts Options, e *util.ErrorLogger) error {
	return p.commit(ctx, "load "+route, func(fp *av.FlightPlan) error {
		a := Assembler{DB: p.DB, Logger: p.Logger}
		nfp, err := a.AssembleString(ctx, route, opts, e)
		if err != nil {
			return err
		}
		*fp = nfp
		return nil
	})
}

// InsertFix inserts a direct leg to the named fix before the leg at
// index; index may be the number of legs to add one at the end. The fix
// closest to the preceding leg is used if the identifier is ambiguous.
func (p *Plan) InsertFix(ctx context.Context, index int, ident string) error {
	return p.commit(ctx, "insert "+ident, func(fp *av.FlightPlan) error {
		leg, err := p.directLeg(ctx, fp, index, ident)
		if err != nil {
			return err
		}
		return insertLeg(fp, index, leg)
	})
}

// InsertLeg inserts the given leg before the leg at index.
func (p *Plan) InsertLeg(ctx context.Context, index int, leg av.Leg) error {
	return p.commit(ctx, "insert "+leg.Ident(), func(fp *av.FlightPlan) error {
		return insertLeg(fp, index, leg)
	})
}

// Append adds a direct leg to the named fix at the end of the enroute
// part of the route, before any arrival procedures and the destination.
func (p *Plan) Append(ctx context.Context, ident string) error {
	return p.commit(ctx, "append "+ident, func(fp *av.FlightPlan) error {
		index := arrivalStart(fp)
		leg, err := p.directLeg(ctx, fp, index, ident)
		if err != nil {
			return err
		}
		return insertLeg(fp, index, leg)
	})
}

// Delete removes the legs [start, end). Procedures are removed as a
// whole: the range is widened to cover every SID, STAR, or approach it
// touches, and removing the departure or destination also removes its
// procedures.
func (p *Plan) Delete(ctx context.Context, start, end int) error {
	return p.commit(ctx, "delete", func(fp *av.FlightPlan) error {
		if start < 0 || end > len(fp.Legs) || start >= end {
			return fmt.Errorf("[%d, %d): %w", start, end, ErrInvalidIndex)
		}
		start, end = affectedRange(fp, start, end)
		fp.Legs = slices.Delete(fp.Legs, start, end)
		leaveAirway(fp, start)
		retagEnds(fp)
		return nil
	})
}

// affectedRange returns the range of legs removed when [start, end) is
// deleted.
func affectedRange(fp *av.FlightPlan, start, end int) (int, int) {
	n := len(fp.Legs)
	for _, t := range []av.ProcedureType{av.ProcedureSID, av.ProcedureSTAR, av.ProcedureApproach} {
		ps, pe := fp.Procedure(t)
		if ps == -1 {
			continue
		}
		touchesEnd := util.Select(t == av.ProcedureSID, start == 0, end == n)
		if touchesEnd || (ps < end && start < pe) {
			start, end = min(start, ps), max(end, pe)
		}
	}
	return start, end
}

// Move moves the leg at index from so that it's at index to. Procedure
// legs can't be moved.
func (p *Plan) Move(ctx context.Context, from, to int) error {
	return p.commit(ctx, "move", func(fp *av.FlightPlan) error {
		if from < 0 || from >= len(fp.Legs) || to < 0 || to >= len(fp.Legs) {
			return fmt.Errorf("%d -> %d: %w", from, to, ErrInvalidIndex)
		}
		if fp.Legs[from].Category != av.Enroute {
			return fmt.Errorf("%s: %w", fp.Legs[from].Ident(), ErrProcedureLeg)
		}
		leg := fp.Legs[from]
		fp.Legs = slices.Delete(fp.Legs, from, from+1)
		leaveAirway(fp, from)
		fp.Legs = slices.Insert(fp.Legs, to, leg)
		leaveAirway(fp, to)
		leaveAirway(fp, to+1)
		retagEnds(fp)
		return nil
	})
}

// Reverse swaps the departure and destination and reverses the route.
// Procedures are removed, since they don't apply in the other direction.
// Reversing a plan without procedures twice gives the original plan.
func (p *Plan) Reverse(ctx context.Context) error {
	return p.commit(ctx, "reverse", func(fp *av.FlightPlan) error {
		fp.Legs = reverseLegs(fp.Legs)
		fp.DepartureTime, fp.ArrivalTime = "", ""
		return nil
	})
}

func reverseLegs(legs []av.Leg) []av.Leg {
	var r []av.Leg
	for i := len(legs) - 1; i >= 0; i-- {
		if legs[i].Category != av.Enroute {
			continue
		}
		leg := legs[i]
		if i > 0 && legs[i-1].Category != av.Enroute {
			// It was joined from a procedure leg that is being dropped.
			leg.Airway, leg.AirwayMinAltitude, leg.AirwayMaxAltitude = "", 0, 0
		}
		r = append(r, leg)
	}

	// A leg's airway describes how it's reached from the previous leg,
	// so the labels shift by one when the order is reversed.
	for k := len(r) - 1; k > 0; k-- {
		r[k].Airway, r[k].AirwayMinAltitude, r[k].AirwayMaxAltitude =
			r[k-1].Airway, r[k-1].AirwayMinAltitude, r[k-1].AirwayMaxAltitude
	}
	for k := range r {
		if k == 0 {
			r[k].Airway, r[k].AirwayMinAltitude, r[k].AirwayMaxAltitude = "", 0, 0
			r[k].Type = av.InitialFix
		} else {
			r[k].Type = util.Select(r[k].Airway != "", av.TrackToFix, av.DirectToFix)
		}
		r[k].Course = 0
	}
	return r
}

// SetDeparture replaces the departure airport. The SID is removed,
// since it belongs to the old departure. The airport closest to the
// destination is used if the identifier is ambiguous.
func (p *Plan) SetDeparture(ctx context.Context, ident string) error {
	return p.commit(ctx, "departure "+ident, func(fp *av.FlightPlan) error {
		fix, err := p.resolveAirport(ctx, fp, ident, len(fp.Legs)-1)
		if err != nil {
			return err
		}
		leg := av.Leg{Type: av.InitialFix, Fix: fix, Location: fix.Location}
		if len(fp.Legs) == 0 {
			fp.Legs = []av.Leg{leg}
			return nil
		}
		removeProcedure(fp, av.ProcedureSID)
		fp.Legs[0] = leg
		fp.DepartureTime = ""
		leaveAirway(fp, 1)
		fp.Legs = mergeDuplicateFixes(fp.Legs)
		retagEnds(fp)
		return nil
	})
}

// SetDestination replaces the destination airport. The STAR and
// approach are removed, since they belong to the old destination. A
// plan with only a departure gets the destination added.
func (p *Plan) SetDestination(ctx context.Context, ident string) error {
	return p.commit(ctx, "destination "+ident, func(fp *av.FlightPlan) error {
		if len(fp.Legs) == 0 {
			return fmt.Errorf("%s: flight plan has no departure", ident)
		}
		fix, err := p.resolveAirport(ctx, fp, ident, 0)
		if err != nil {
			return err
		}
		leg := av.Leg{Type: av.DirectToFix, Fix: fix, Location: fix.Location}
		if len(fp.Legs) == 1 {
			fp.Legs = append(fp.Legs, leg)
			return nil
		}
		removeProcedure(fp, av.ProcedureSTAR)
		removeProcedure(fp, av.ProcedureApproach)
		fp.Legs[len(fp.Legs)-1] = leg
		fp.ArrivalTime = ""
		fp.Legs = mergeDuplicateFixes(fp.Legs)
		return nil
	})
}

// resolveAirport resolves ident, preferring airports, relative to the
// leg at index ref if there is one.
func (p *Plan) resolveAirport(ctx context.Context, fp *av.FlightPlan, ident string, ref int) (av.Fix, error) {
	var loc *math.Point2LL
	if ref >= 0 && ref < len(fp.Legs) && !fp.Legs[ref].Location.IsZero() {
		loc = &fp.Legs[ref].Location
	}
	res, err := navdb.Resolver{DB: p.DB}.Resolve(ctx, ident, "", loc, av.FixKindAirport)
	if err != nil {
		return av.Fix{}, err
	}
	return res.Fix, nil
}

// InsertPlan inserts the route of another flight plan before the leg at
// index. Inserting before the departure prepends it along with its SID,
// replacing the plan's SID; inserting after the destination appends it
// along with its STAR and approach, replacing the plan's. Inserting
// before the destination removes the plan's STAR and approach. The
// other procedures of the inserted plan are not used.
func (p *Plan) InsertPlan(ctx context.Context, index int, other av.FlightPlan) error {
	return p.commit(ctx, "insert plan "+other.RouteString(), func(fp *av.FlightPlan) error {
		n := len(fp.Legs)
		if index < 0 || index > n {
			return fmt.Errorf("%d: %w", index, ErrInvalidIndex)
		}
		prepend, appendAfter := index == 0, index == n

		legs := util.FilterSlice(other.Clone().Legs, func(l av.Leg) bool {
			switch {
			case l.Category == av.Enroute:
				return true
			case l.Category.IsDeparture():
				return prepend
			default:
				return appendAfter
			}
		})
		if len(legs) == 0 {
			return nil
		}

		switch {
		case prepend:
			removeProcedure(fp, av.ProcedureSID)
			fp.DepartureTime = other.DepartureTime
		case index >= n-1:
			removeProcedure(fp, av.ProcedureSTAR)
			removeProcedure(fp, av.ProcedureApproach)
			index = len(fp.Legs) - 1
			if appendAfter {
				index = len(fp.Legs)
				fp.ArrivalTime = other.ArrivalTime
			}
		}

		fp.Legs = slices.Insert(fp.Legs, index, legs...)
		leaveAirway(fp, index+len(legs))
		fp.Legs = mergeDuplicateFixes(fp.Legs)
		retagEnds(fp)
		return nil
	})
}

// SetProcedure replaces the plan's procedure of the requested type with
// the one requested. Problems with the procedure's fixes are reported to
// e.
func (p *Plan) SetProcedure(ctx context.Context, req ProcedureRequest, e *util.ErrorLogger) error {
	return p.commit(ctx, "procedure "+req.String(), func(fp *av.FlightPlan) error {
		if len(fp.Legs) < 2 {
			return fmt.Errorf("%s: no departure and destination", req)
		}
		if req.Airport == "" {
			i := util.Select(req.Type == av.ProcedureSID, 0, len(fp.Legs)-1)
			req.Airport = fp.Legs[i].Fix.Ident
		}

		removeProcedure(fp, req.Type)
		if req.Transition == "" {
			req.Transition = joinTransition(ctx, p.DB, req, joinFix(fp, req.Type))
		}

		proc, err := ProcedureLegBuilder{DB: p.DB}.Build(ctx, req, e)
		if err != nil {
			return err
		}
		if len(proc.Legs) == 0 {
			return nil
		}

		rank := proc.Legs[0].Category.Rank()
		index := len(fp.Legs) - 1
		for i := 1; i < len(fp.Legs)-1; i++ {
			if fp.Legs[i].Category.Rank() > rank {
				index = i
				break
			}
		}
		fp.Legs = mergeDuplicateFixes(slices.Insert(fp.Legs, index, proc.Legs...))
		return nil
	})
}

// RemoveProcedure removes the plan's procedure of the given type.
func (p *Plan) RemoveProcedure(ctx context.Context, t av.ProcedureType) error {
	return p.commit(ctx, "remove "+t.String(), func(fp *av.FlightPlan) error {
		if !removeProcedure(fp, t) {
			return fmt.Errorf("no %s in flight plan", t)
		}
		return nil
	})
}

func removeProcedure(fp *av.FlightPlan, t av.ProcedureType) bool {
	start, end := fp.Procedure(t)
	if start == -1 {
		return false
	}
	fp.Legs = slices.Delete(fp.Legs, start, end)
	return true
}

// Direct removes the enroute legs between the departure and destination
// so that the aircraft flies direct from the end of the departure
// procedure to the start of the arrival.
func (p *Plan) Direct(ctx context.Context) error {
	return p.commit(ctx, "direct", func(fp *av.FlightPlan) error {
		n := len(fp.Legs)
		if n < 2 {
			return nil
		}
		interior := util.FilterSlice(fp.Legs[1:n-1], func(l av.Leg) bool { return l.Category != av.Enroute })
		fp.Legs = slices.Concat(fp.Legs[:1], interior, fp.Legs[n-1:])
		if len(fp.Legs) > 1 {
			if l := &fp.Legs[1]; l.Category == av.Enroute || l.Type == av.InitialFix {
				l.Type = av.DirectToFix
			}
			fp.Legs[1].Airway, fp.Legs[1].AirwayMinAltitude, fp.Legs[1].AirwayMaxAltitude = "", 0, 0
		}
		return nil
	})
}

// SetCruiseAltitude sets the cruise altitude. Consecutive cruise
// altitude changes are undone together.
func (p *Plan) SetCruiseAltitude(ctx context.Context, alt float32) error {
	return p.commit(ctx, cruiseAltitudeEdit, func(fp *av.FlightPlan) error {
		if alt <= 0 {
			return &av.ConfigurationError{Msg: fmt.Sprintf("%.0f: invalid cruise altitude", alt)}
		}
		fp.CruiseAltitude = alt
		return nil
	})
}

// AdjustCruiseAltitude raises the cruise altitude to the lowest one that
// is appropriate for the direction of flight and is at or above the
// minimum altitudes of the route's airways. The new cruise altitude is
// returned.
func (p *Plan) AdjustCruiseAltitude(ctx context.Context) (float32, error) {
	fp := p.FlightPlan()
	alt, err := AdjustedCruiseAltitude(&fp)
	if err != nil || alt == fp.CruiseAltitude {
		return alt, err
	}
	return alt, p.SetCruiseAltitude(ctx, alt)
}

// AdjustedCruiseAltitude returns the altitude AdjustCruiseAltitude would
// choose for fp. Eastbound flights (courses 0-179) use odd thousands of
// feet and westbound flights use even thousands, up to FL410; above
// that, eastbound flights use FL450, FL490, ... and westbound flights use
// FL430, FL470, ...
func AdjustedCruiseAltitude(fp *av.FlightPlan) (float32, error) {
	if len(fp.Legs) < 2 {
		return 0, &av.ConfigurationError{Msg: "flight plan needs a departure and destination"}
	}
	dep, arr := fp.Legs[0].Location, fp.Legs[len(fp.Legs)-1].Location
	if dep.IsZero() {
		dep = fp.Legs[0].Fix.Location
	}
	if arr.IsZero() {
		arr = fp.Legs[len(fp.Legs)-1].Fix.Location
	}
	eastbound := math.NormalizeHeading(math.InitialBearing(dep, arr)) < 180

	floor := fp.CruiseAltitude
	for _, leg := range fp.Legs {
		floor = max(floor, leg.AirwayMinAltitude)
	}

	for alt := float32(1000); ; alt += 1000 {
		if alt >= floor && isHemisphericAltitude(alt, eastbound) {
			return alt, nil
		}
	}
}

func isHemisphericAltitude(alt float32, eastbound bool) bool {
	a := int(alt)
	if a%1000 != 0 {
		return false
	}
	if a <= 41000 {
		odd := (a/1000)%2 == 1
		return odd == eastbound
	}
	if eastbound {
		return (a-41000)%4000 == 0
	}
	return (a-43000)%4000 == 0
}

///////////////////////////////////////////////////////////////////////////
// Helpers

// directLeg returns an enroute leg direct to the named fix, which is
// resolved relative to the leg before index (or after it, for the first
// leg).
func (p *Plan) directLeg(ctx context.Context, fp *av.FlightPlan, index int, ident string) (av.Leg, error) {
	if index < 0 || index > len(fp.Legs) {
		return av.Leg{}, fmt.Errorf("%d: %w", index, ErrInvalidIndex)
	}

	var ref *math.Point2LL
	if index > 0 {
		ref = &fp.Legs[index-1].Location
	} else if len(fp.Legs) > 0 {
		ref = &fp.Legs[0].Location
	}
	if ref != nil && ref.IsZero() {
		ref = nil
	}

	if pt, ok := math.ParseICAOCoordinate(ident); ok {
		fix := av.UserFix(pt)
		return av.Leg{Type: av.DirectToFix, Fix: fix, Location: pt}, nil
	}

	res, err := navdb.Resolver{DB: p.DB}.Resolve(ctx, ident, "", ref)
	if err != nil {
		return av.Leg{}, err
	}
	return av.Leg{Type: av.DirectToFix, Fix: res.Fix, Location: res.Fix.Location}, nil
}

// joinFix returns the identifier of the enroute fix where the route
// leaves the SID or joins the STAR of the given type, if there is one.
func joinFix(fp *av.FlightPlan, t av.ProcedureType) string {
	var i int
	switch t {
	case av.ProcedureSID:
		i = 1
		if _, end := fp.Procedure(av.ProcedureSID); end != -1 {
			i = end
		}
	case av.ProcedureSTAR:
		i = arrivalStart(fp) - 1
	default:
		return ""
	}
	if i <= 0 || i >= len(fp.Legs)-1 || fp.Legs[i].Category != av.Enroute || !fp.Legs[i].HasFix() {
		return ""
	}
	return fp.Legs[i].Fix.Ident
}

func insertLeg(fp *av.FlightPlan, index int, leg av.Leg) error {
	if index < 0 || index > len(fp.Legs) {
		return fmt.Errorf("%d: %w", index, ErrInvalidIndex)
	}
	fp.Legs = slices.Insert(fp.Legs, index, leg)
	retagEnds(fp)
	return nil
}

// leaveAirway clears the airway the leg at index i is reached by, for
// when the leg before it has changed; enroute legs become direct legs.
// Out of range indices are ignored.
func leaveAirway(fp *av.FlightPlan, i int) {
	if i < 0 || i >= len(fp.Legs) || fp.Legs[i].Airway == "" {
		return
	}
	leg := &fp.Legs[i]
	leg.Airway, leg.AirwayMinAltitude, leg.AirwayMaxAltitude = "", 0, 0
	if leg.Category == av.Enroute && leg.Type == av.TrackToFix {
		leg.Type = av.DirectToFix
	}
}

// retagEnds makes the first leg of the plan an initial fix leg and keeps
// later enroute legs from being initial fix legs.
func retagEnds(fp *av.FlightPlan) {
	for i := range fp.Legs {
		leg := &fp.Legs[i]
		if leg.Category != av.Enroute {
			continue
		}
		if i == 0 {
			leg.Type = av.InitialFix
			leg.Airway, leg.AirwayMinAltitude, leg.AirwayMaxAltitude = "", 0, 0
		} else if leg.Type == av.InitialFix {
			leg.Type = av.DirectToFix
		}
	}
}

// arrivalStart returns the index of the first leg of the arrival: the
// STAR, approach, or destination.
func arrivalStart(fp *av.FlightPlan) int {
	n := len(fp.Legs)
	if n < 2 {
		return n
	}
	for i := 1; i < n-1; i++ {
		if fp.Legs[i].Category.Rank() > av.Enroute.Rank() {
			return i
		}
	}
	return n - 1
}
