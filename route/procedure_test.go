// route/procedure_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"context"
	"errors"
	"slices"
	"testing"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/util"
)

func legIdents(legs []av.Leg) []string {
	return util.MapSlice(legs, func(l av.Leg) string { return l.Ident() })
}

func TestBuildProcedure(t *testing.T) {
	b := ProcedureLegBuilder{DB: testDatabase()}
	ctx := context.Background()

	tests := []struct {
		req    ProcedureRequest
		want   []string
		runway string
	}{
		{req: ProcedureRequest{Airport: "KORD", Name: "MONTY1", Type: av.ProcedureSID, Runway: "28R"},
			want: []string{"(VA)", "IOW"}, runway: "28R"},
		{req: ProcedureRequest{Airport: "kord", Name: "monty1", Type: av.ProcedureSID, OmitRunwayTransition: true},
			want: []string{"IOW"}},
		{req: ProcedureRequest{Airport: "KDEN", Name: "LANDR3", Type: av.ProcedureSTAR, Runway: "RW34R", Transition: "LBF"},
			want: []string{"LBF", "AKO", "LANDR", "FOLKS"}, runway: "34R"},
		{req: ProcedureRequest{Airport: "KDEN", Name: "I16L", Type: av.ProcedureApproach, Transition: "AKO"},
			want: []string{"AKO", "DRAKO", "CEDAR", "RW16L", "(CA)", "LANDR"}, runway: "16L"},
	}
	for _, test := range tests {
		var e util.ErrorLogger
		proc, err := b.Build(ctx, test.req, &e)
		if err != nil {
			t.Errorf("%s: %v", test.req, err)
			continue
		}
		if e.HaveErrors() {
			t.Errorf("%s: unexpected warnings %s", test.req, e.String())
		}
		if got := legIdents(proc.Legs); !slices.Equal(got, test.want) {
			t.Errorf("%s: got %v, expected %v", test.req, got, test.want)
		}
		if proc.Runway != test.runway {
			t.Errorf("%s: runway %q, expected %q", test.req, proc.Runway, test.runway)
		}
		if err := CheckCategoryOrder(proc); err != nil {
			t.Errorf("%s: %v", test.req, err)
		}
	}
}

func TestBuildProcedureDetails(t *testing.T) {
	b := ProcedureLegBuilder{DB: testDatabase()}
	ctx := context.Background()

	sid, err := b.Build(ctx, ProcedureRequest{Airport: "KORD", Name: "MONTY1", Type: av.ProcedureSID, Runway: "28R"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(sid.Runways, []string{"10L", "28R"}) {
		t.Errorf("runways %v", sid.Runways)
	}
	va := sid.Legs[0]
	if va.Category != av.SID || va.Course != 284 || va.Altitude != av.AtOrAboveAltitude(1200) || va.Runway != "28R" {
		t.Errorf("VA leg %+v", va)
	}
	if sid.Legs[1].Transition != "" {
		t.Errorf("common leg has transition %q", sid.Legs[1].Transition)
	}

	app, err := b.Build(ctx, ProcedureRequest{Airport: "KDEN", Name: "I16L", Type: av.ProcedureApproach, Transition: "AKO"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	categories := []av.LegCategory{av.ApproachTransition, av.ApproachTransition, av.Approach, av.Approach,
		av.MissedApproach, av.MissedApproach}
	for i, c := range categories {
		if app.Legs[i].Category != c {
			t.Errorf("leg %d (%s): category %s, expected %s", i, app.Legs[i].Ident(), app.Legs[i].Category, c)
		}
	}
	if !app.Legs[0].IAF || !app.Legs[2].FAF {
		t.Errorf("IAF/FAF flags not set")
	}
	// The transition and final approach were spliced at DRAKO.
	if n := len(slices.DeleteFunc(legIdents(app.Legs), func(s string) bool { return s != "DRAKO" })); n != 1 {
		t.Errorf("DRAKO appears %d times", n)
	}
}

func TestBuildProcedureErrors(t *testing.T) {
	b := ProcedureLegBuilder{DB: testDatabase()}
	ctx := context.Background()

	tests := []struct {
		req        ProcedureRequest
		err        error
		candidates []string
	}{
		{req: ProcedureRequest{Airport: "KORD", Name: "MONTY1", Type: av.ProcedureSID},
			err: av.ErrProcedureRunwayMismatch, candidates: []string{"10L", "28R"}},
		{req: ProcedureRequest{Airport: "KORD", Name: "MONTY1", Type: av.ProcedureSID, Runway: "4L"},
			err: av.ErrProcedureRunwayMismatch, candidates: []string{"10L", "28R"}},
		{req: ProcedureRequest{Airport: "KDEN", Name: "I16L", Type: av.ProcedureApproach, Runway: "34R"},
			err: av.ErrProcedureRunwayMismatch},
		{req: ProcedureRequest{Airport: "KDEN", Name: "LANDR3", Type: av.ProcedureSTAR, Runway: "16L", Transition: "XYZ"},
			err: av.ErrTransitionNotFound, candidates: []string{"LBF"}},
		{req: ProcedureRequest{Airport: "KDEN", Name: "LANDR3", Type: av.ProcedureSID},
			err: av.ErrProcedureNotFound},
		{req: ProcedureRequest{Airport: "KBOS", Name: "LANDR3", Type: av.ProcedureSTAR},
			err: av.ErrProcedureNotFound},
	}
	for _, test := range tests {
		_, err := b.Build(ctx, test.req, nil)
		if !errors.Is(err, test.err) {
			t.Errorf("%s: expected %v, got %v", test.req, test.err, err)
			continue
		}
		var perr *av.ProcedureError
		if !errors.As(err, &perr) {
			t.Errorf("%s: expected *ProcedureError, got %T", test.req, err)
		} else if test.candidates != nil && !slices.Equal(perr.Candidates, test.candidates) {
			t.Errorf("%s: candidates %v, expected %v", test.req, perr.Candidates, test.candidates)
		}
	}
}

func TestBuildProcedureMissingFix(t *testing.T) {
	b := ProcedureLegBuilder{DB: testDatabase()}

	var e util.ErrorLogger
	proc, err := b.Build(context.Background(), ProcedureRequest{Airport: "KDEN", Name: "V16L", Type: av.ProcedureApproach}, &e)
	if err != nil {
		t.Fatal(err)
	}
	if got := legIdents(proc.Legs); !slices.Equal(got, []string{"DRAKO", "RW16L"}) {
		t.Errorf("got %v", got)
	}

	errs := e.Errors()
	var perr *av.ProcedureError
	if len(errs) != 1 || !errors.Is(errs[0], av.ErrMissingFixInProcedure) || !errors.As(errs[0], &perr) || perr.Fix != "NOPEE" {
		t.Errorf("expected a missing fix warning for NOPEE, got %s", e.String())
	}
}

func TestBuildRFLeg(t *testing.T) {
	b := ProcedureLegBuilder{DB: testDatabase()}
	proc, err := b.Build(context.Background(), ProcedureRequest{Airport: "KDEN", Name: "R16L", Type: av.ProcedureApproach}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(proc.Legs) != 3 {
		t.Fatalf("expected 3 legs, got %v", legIdents(proc.Legs))
	}

	rf := proc.Legs[1]
	if rf.Arc == nil {
		t.Fatalf("RF leg has no arc")
	}
	if rf.Arc.Clockwise || rf.Center.Ident != "ARCCN" {
		t.Errorf("unexpected arc %+v centered at %s", *rf.Arc, rf.Center.Ident)
	}
	// A left turn of about 90 degrees around a center about 8.5nm away.
	if rf.Arc.Radius < 8 || rf.Arc.Radius > 9 {
		t.Errorf("radius %f", rf.Arc.Radius)
	}
	if sweep := rf.Arc.Sweep(); sweep < 80 || sweep > 100 {
		t.Errorf("sweep %f", sweep)
	}
	chord := math.NMDistance2LL(drako.Location, cedar.Location)
	if rf.Distance <= chord || rf.Distance > 1.2*chord {
		t.Errorf("arc length %f for chord %f", rf.Distance, chord)
	}
	if len(rf.Geometry) < 3 {
		t.Errorf("expected a polyline for the arc, got %v", rf.Geometry)
	}
}

func TestSpliceLegs(t *testing.T) {
	a := []av.Leg{
		{Type: av.InitialFix, Fix: lbf},
		{Type: av.TrackToFix, Fix: ako, Altitude: av.AtOrAboveAltitude(14000)},
	}
	b := []av.Leg{
		{Type: av.InitialFix, Fix: ako, IAF: true, Altitude: av.AtAltitude(15000)},
		{Type: av.TrackToFix, Fix: landr},
	}
	legs := spliceLegs(a, b)
	if got := legIdents(legs); !slices.Equal(got, []string{"LBF", "AKO", "LANDR"}) {
		t.Errorf("got %v", got)
	}
	if !legs[1].IAF || legs[1].Altitude != av.AtOrAboveAltitude(14000) {
		t.Errorf("junction leg %+v", legs[1])
	}

	// Holds at the junction fix aren't merged.
	b[0].Type = av.HoldToFix
	if got := legIdents(spliceLegs(a[:2:2], b)); !slices.Equal(got, []string{"LBF", "AKO", "AKO", "LANDR"}) {
		t.Errorf("got %v", got)
	}

	// Only the first leg of the next segment can be the junction and
	// none of its legs are dropped.
	for _, next := range [][]av.Leg{
		{{Type: av.TrackToFix, Fix: landr}, {Type: av.TrackToFix, Fix: ako}, {Type: av.TrackToFix, Fix: drako}},
		{{Type: av.HeadingToAltitude}, {Type: av.DirectToFix, Fix: ako}, {Type: av.TrackToFix, Fix: drako}},
	} {
		want := append([]string{"LBF", "AKO"}, legIdents(next)...)
		if got := legIdents(spliceLegs(a[:2:2], next)); !slices.Equal(got, want) {
			t.Errorf("got %v, expected %v", got, want)
		}
	}
	if got := legIdents(spliceLegs(a[:2:2], nil)); !slices.Equal(got, []string{"LBF", "AKO"}) {
		t.Errorf("got %v", got)
	}
}

func TestCheckCategoryOrder(t *testing.T) {
	p := av.Procedure{Airport: "KDEN", Name: "TEST", Legs: []av.Leg{
		{Fix: drako, Category: av.Approach},
		{Fix: cedar, Category: av.STAR},
	}}
	var perr *av.ProcedureError
	if err := CheckCategoryOrder(p); !errors.As(err, &perr) || perr.Kind != av.CategoryOrderViolation || perr.Fix != "CEDAR" {
		t.Errorf("expected category order violation at CEDAR, got %v", err)
	}
}
