// route/assemble.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"context"
	"errors"
	"fmt"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/log"
	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/navdb"
	"github.com/mmp/routeplan/util"
)

// Options gives the parts of a flight plan that aren't part of its route
// string.
type Options struct {
	DepartureRunway    string
	ArrivalRunway      string
	Approach           string
	ApproachTransition string
	// Generic allows the plan to start or end somewhere other than an
	// airport.
	Generic bool
}

// Assembler builds flight plans from parsed routes.
type Assembler struct {
	DB     navdb.Database
	Logger *log.Logger
}

func (a Assembler) resolver() navdb.Resolver { return navdb.Resolver{DB: a.DB} }

// AssembleString parses the route string and assembles it.
func (a Assembler) AssembleString(ctx context.Context, route string, opts Options, e *util.ErrorLogger) (av.FlightPlan, error) {
	pr, err := ParseRouteString(route, DatabaseClassifier{Ctx: ctx, DB: a.DB}, e)
	if err != nil {
		return av.FlightPlan{}, err
	}
	return a.Assemble(ctx, pr, opts, e)
}

// Assemble resolves the elements of the parsed route and returns the
// resulting flight plan. Enroute elements and procedures that can't be
// resolved are skipped, with the problem reported to e. An error is
// returned if the departure or destination can't be found, or if the
// resulting plan isn't valid; an *av.InvariantViolation if either isn't
// an airport and opts.Generic isn't set.
func (a Assembler) Assemble(ctx context.Context, pr ParsedRoute, opts Options, e *util.ErrorLogger) (av.FlightPlan, error) {
	if e == nil {
		e = &util.ErrorLogger{}
	}

	dep, arr, err := a.resolveEndpoints(ctx, pr.Departure, pr.Destination, e)
	if err != nil {
		return av.FlightPlan{}, err
	}

	fp := av.FlightPlan{
		CruiseAltitude: pr.CruiseAltitude,
		CruiseSpeed:    pr.CruiseSpeed,
		CruiseMach:     pr.CruiseMach,
		Generic:        opts.Generic,
		DepartureTime:  pr.DepartureTime,
		ArrivalTime:    pr.ArrivalTime,
	}

	legs := []av.Leg{{Type: av.InitialFix, Fix: dep, Location: dep.Location}}

	if pr.SID != "" {
		req := ProcedureRequest{
			Airport:    dep.Ident,
			Name:       pr.SID,
			Type:       av.ProcedureSID,
			Runway:     opts.DepartureRunway,
			Transition: pr.SIDTransition,
		}
		if req.Transition == "" && len(pr.Enroute) > 0 && pr.Enroute[0].Kind == TokenFix {
			req.Transition = joinTransition(ctx, a.DB, req, pr.Enroute[0].Ident)
		}
		legs = append(legs, a.procedure(ctx, req, e)...)
	}

	legs = a.appendEnroute(ctx, legs, pr.Enroute, e)

	if pr.STAR != "" {
		req := ProcedureRequest{
			Airport:    arr.Ident,
			Name:       pr.STAR,
			Type:       av.ProcedureSTAR,
			Runway:     opts.ArrivalRunway,
			Transition: pr.STARTransition,
		}
		if last := legs[len(legs)-1]; req.Transition == "" && len(legs) > 1 && last.Category == av.Enroute && last.HasFix() {
			req.Transition = joinTransition(ctx, a.DB, req, last.Fix.Ident)
		}
		legs = append(legs, a.procedure(ctx, req, e)...)
	}
	if opts.Approach != "" {
		legs = append(legs, a.procedure(ctx, ProcedureRequest{
			Airport:    arr.Ident,
			Name:       opts.Approach,
			Type:       av.ProcedureApproach,
			Runway:     opts.ArrivalRunway,
			Transition: opts.ApproachTransition,
		}, e)...)
	}

	legs = append(legs, av.Leg{Type: av.DirectToFix, Fix: arr, Location: arr.Location})
	fp.Legs = mergeDuplicateFixes(legs)

	for _, alt := range pr.Alternates {
		res, err := a.resolver().Resolve(ctx, alt, "", &arr.Location, av.FixKindAirport)
		if err != nil {
			e.Error(err)
			continue
		}
		fp.Alternates = append(fp.Alternates, res.Fix)
	}

	fp.UpdateGeometry()
	if err := fp.Validate(); err != nil {
		return av.FlightPlan{}, err
	}

	a.Logger.Debug("assembled flight plan", "route", fp.RouteString(), "legs", len(fp.Legs),
		"warnings", len(e.Errors()))
	return fp, nil
}

// resolveEndpoints finds the departure and destination. If one of them
// is ambiguous, the candidate closest to the other is used.
func (a Assembler) resolveEndpoints(ctx context.Context, from, to string, e *util.ErrorLogger) (dep, arr av.Fix, err error) {
	r := a.resolver()
	depRes, err := r.Resolve(ctx, from, "", nil, av.FixKindAirport)
	if err != nil {
		return av.Fix{}, av.Fix{}, fmt.Errorf("departure: %w", err)
	}
	arrRes, err := r.Resolve(ctx, to, "", nil, av.FixKindAirport)
	if err != nil {
		return av.Fix{}, av.Fix{}, fmt.Errorf("destination: %w", err)
	}

	switch {
	case depRes.Warning == nil && arrRes.Warning != nil:
		arrRes, err = r.Resolve(ctx, to, "", &depRes.Fix.Location, av.FixKindAirport)
	case depRes.Warning != nil && arrRes.Warning == nil:
		depRes, err = r.Resolve(ctx, from, "", &arrRes.Fix.Location, av.FixKindAirport)
	default:
		for _, w := range []error{depRes.Warning, arrRes.Warning} {
			if w != nil {
				e.Error(w)
			}
		}
	}
	return depRes.Fix, arrRes.Fix, err
}

// procedure builds the requested procedure, returning no legs if it
// can't be built. If a runway is needed but not given, the procedure is
// built without its runway legs.
func (a Assembler) procedure(ctx context.Context, req ProcedureRequest, e *util.ErrorLogger) []av.Leg {
	b := ProcedureLegBuilder{DB: a.DB}
	proc, err := b.Build(ctx, req, e)
	if errors.Is(err, av.ErrProcedureRunwayMismatch) && req.Runway == "" && req.Type != av.ProcedureApproach {
		e.Error(err)
		req.OmitRunwayTransition = true
		proc, err = b.Build(ctx, req, e)
	}
	if err != nil {
		e.Error(err)
		return nil
	}
	return proc.Legs
}

// appendEnroute resolves the enroute elements of a route and appends
// their legs.
func (a Assembler) appendEnroute(ctx context.Context, legs []av.Leg, tokens []Token, e *util.ErrorLogger) []av.Leg {
	r := a.resolver()
	airways := AirwayResolver{DB: a.DB}

	// Location of the last leg that has one.
	lastLocation := func() *math.Point2LL {
		for i := len(legs) - 1; i >= 0; i-- {
			if legs[i].HasFix() {
				return &legs[i].Fix.Location
			}
		}
		return nil
	}

	for _, tok := range tokens {
		switch tok.Kind {
		case TokenCoordinate:
			fix := av.UserFix(tok.Location)
			legs = append(legs, av.Leg{Type: av.DirectToFix, Fix: fix, Location: fix.Location})

		case TokenFix:
			res, err := r.Resolve(ctx, tok.Ident, "", lastLocation())
			if err != nil {
				e.Error(err)
				continue
			}
			if res.Warning != nil {
				e.Error(res.Warning)
			}
			legs = append(legs, av.Leg{Type: av.DirectToFix, Fix: res.Fix, Location: res.Fix.Location})

		case TokenAirway:
			entry := legs[len(legs)-1]
			if !entry.HasFix() {
				e.ErrorString("%s: no fix to join the airway from. Ignoring.", tok)
				continue
			}
			exit, err := r.Resolve(ctx, tok.Ident, "", &entry.Fix.Location)
			if err != nil {
				e.Error(err)
				continue
			}
			awy, err := airways.Resolve(ctx, tok.Airway, entry.Fix, exit.Fix)
			if err != nil {
				e.Error(err)
				continue
			}
			legs = append(legs, awy...)
		}
	}
	return legs
}

// mergeDuplicateFixes removes consecutive legs to the same fix, such as
// where an enroute fix is also the first fix of a STAR. The departure and
// destination legs are always kept; otherwise procedure legs are kept
// in preference to enroute legs.
func mergeDuplicateFixes(legs []av.Leg) []av.Leg {
	if len(legs) < 2 {
		return legs
	}

	out := []av.Leg{legs[0]}
	for i := 1; i < len(legs); i++ {
		leg := legs[i]
		last := &out[len(out)-1]
		dest := i == len(legs)-1
		if !isDuplicate(*last, leg) || (dest && len(out) == 1) {
			out = append(out, leg)
			continue
		}

		switch {
		case dest:
			*last = leg
		case len(out) == 1:
			// Keep the departure.
		case last.Category == av.Enroute && leg.Category != av.Enroute:
			leg.Airway, leg.AirwayMinAltitude, leg.AirwayMaxAltitude =
				last.Airway, last.AirwayMinAltitude, last.AirwayMaxAltitude
			*last = leg
		default:
			if !last.Altitude.IsSet() {
				last.Altitude = leg.Altitude
			}
			if !last.Speed.IsSet() {
				last.Speed = leg.Speed
			}
		}
	}
	return out
}

func isDuplicate(a, b av.Leg) bool {
	return a.HasFix() && b.HasFix() && a.Fix.Same(b.Fix) && !b.Type.IsFlownAtFix() &&
		a.Category != av.MissedApproach && b.Category != av.MissedApproach
}
