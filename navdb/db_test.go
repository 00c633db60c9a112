// navdb/db_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/util"

	"github.com/klauspost/compress/zstd"
)

var (
	kjfk  = av.Fix{Kind: av.FixKindAirport, Ident: "KJFK", Region: "K6", Location: math.Point2LL{-73.7787, 40.6399}, Elevation: 13}
	kbos  = av.Fix{Kind: av.FixKindAirport, Ident: "KBOS", Region: "K6", Location: math.Point2LL{-71.0052, 42.3643}, Elevation: 20}
	rw04l = av.Fix{Kind: av.FixKindRunwayEnd, Ident: "RW04L", Region: "K6", Location: math.Point2LL{-73.7847, 40.6231}, Name: "KJFK"}
	// ALB is both a US VOR and a Canadian NDB.
	albUS = av.Fix{Kind: av.FixKindVOR, Ident: "ALB", Region: "K6", Location: math.Point2LL{-73.8031, 42.7473}}
	albCA = av.Fix{Kind: av.FixKindNDB, Ident: "ALB", Region: "CY", Location: math.Point2LL{-114.0, 51.0}}
	merit = av.Fix{Kind: av.FixKindWaypoint, Ident: "MERIT", Region: "K6", Location: math.Point2LL{-73.1333, 41.3830}}
	hfd   = av.Fix{Kind: av.FixKindVOR, Ident: "HFD", Region: "K6", Location: math.Point2LL{-72.5350, 41.6428}}
	put   = av.Fix{Kind: av.FixKindVOR, Ident: "PUT", Region: "K6", Location: math.Point2LL{-71.8000, 41.9500}}
)

func testDatabase() *MemoryDatabase {
	db := NewMemoryDatabase()
	db.AddFixes(kjfk, kbos, rw04l, albUS, albCA, merit, hfd, put)
	db.AddAirways(av.Airway{
		Name:  "J99",
		Fixes: []av.AirwayFix{{Fix: merit}, {Fix: hfd, MinAltitude: 18000}, {Fix: put, MinAltitude: 24000}},
	})
	db.AddProcedureLegs(
		av.RawLeg{Airport: "KJFK", Procedure: "DEEZZ5", Type: av.ProcedureSID, Transition: "RW04L",
			Sequence: 10, PathTerminator: av.CourseToAltitude, Course: 41, AltitudeDescriptor: '+', Altitude1: 500},
		av.RawLeg{Airport: "KJFK", Procedure: "DEEZZ5", Type: av.ProcedureSID, Transition: "RW31B",
			Sequence: 10, PathTerminator: av.HeadingToAltitude, Course: 310, AltitudeDescriptor: '+', Altitude1: 500},
		av.RawLeg{Airport: "KJFK", Procedure: "DEEZZ5", Type: av.ProcedureSID, Transition: "ALL",
			Sequence: 20, PathTerminator: av.DirectToFix, Fix: "MERIT", FixRegion: "K6"},
		av.RawLeg{Airport: "KJFK", Procedure: "DEEZZ5", Type: av.ProcedureSID, Transition: "HFD",
			Sequence: 10, PathTerminator: av.InitialFix, Fix: "MERIT", FixRegion: "K6"},
		av.RawLeg{Airport: "KJFK", Procedure: "DEEZZ5", Type: av.ProcedureSID, Transition: "HFD",
			Sequence: 20, PathTerminator: av.TrackToFix, Fix: "HFD", FixRegion: "K6"},
		av.RawLeg{Airport: "KJFK", Procedure: "I04R", Type: av.ProcedureApproach, Sequence: 10,
			PathTerminator: av.InitialFix, Fix: "MERIT", FixRegion: "K6", GPSOverlay: true},
	)
	return db
}

func TestFindFixByIdent(t *testing.T) {
	db := testDatabase()
	ctx := context.Background()

	tests := []struct {
		ident, region string
		want          []av.Fix
	}{
		{"KJFK", "", []av.Fix{kjfk}},
		{" kjfk", "", []av.Fix{kjfk}},
		{"ALB", "", []av.Fix{albUS, albCA}},
		{"ALB", "CY", []av.Fix{albCA}},
		{"ALB", "EG", nil},
		{"ZZZZZ", "", nil},
	}
	for _, test := range tests {
		got, err := db.FindFixByIdent(ctx, test.ident, test.region)
		if err != nil {
			t.Errorf("%s/%s: unexpected error %v", test.ident, test.region, err)
		} else if !slices.Equal(got, test.want) {
			t.Errorf("%s/%s: got %v, expected %v", test.ident, test.region, got, test.want)
		}
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := db.FindFixByIdent(cctx, "KJFK", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if !db.IsAirport("KJFK") || db.IsAirport("MERIT") {
		t.Errorf("IsAirport mismatch")
	}
	if !db.IsAirway("j99") || db.IsAirway("J100") {
		t.Errorf("IsAirway mismatch")
	}
	if !db.IsProcedure("KJFK", "DEEZZ5") || !db.IsProcedure("", "I04R") || db.IsProcedure("KBOS", "DEEZZ5") {
		t.Errorf("IsProcedure mismatch")
	}
}

func TestProcedureKeyMatches(t *testing.T) {
	rwyLeg := av.RawLeg{Airport: "KJFK", Procedure: "DEEZZ5", Type: av.ProcedureSID, Transition: "RW31B"}
	commonLeg := av.RawLeg{Airport: "KJFK", Procedure: "DEEZZ5", Type: av.ProcedureSID, Transition: "ALL"}
	approach := av.RawLeg{Airport: "KJFK", Procedure: "I04R", Type: av.ProcedureApproach}

	tests := []struct {
		key  ProcedureKey
		leg  av.RawLeg
		want bool
	}{
		{ProcedureKey{}, rwyLeg, true},
		{ProcedureKey{Airport: "KJFK", Procedure: "DEEZZ5"}, rwyLeg, true},
		{ProcedureKey{Airport: "KBOS"}, rwyLeg, false},
		{ProcedureKey{Runway: "31L"}, rwyLeg, true},
		{ProcedureKey{Runway: "RW31R"}, rwyLeg, true},
		{ProcedureKey{Runway: "4L"}, rwyLeg, false},
		{ProcedureKey{Runway: "4L"}, commonLeg, true},
		{ProcedureKey{Transition: "HFD"}, commonLeg, false},
		{ProcedureKey{Runway: "04R"}, approach, true},
		{ProcedureKey{Runway: "22L"}, approach, false},
	}
	for _, test := range tests {
		if got := test.key.Matches(test.leg); got != test.want {
			t.Errorf("%s matching %s/%s: got %v", test.key, test.leg.Procedure, test.leg.Transition, got)
		}
	}
}

func TestGetProcedureLegs(t *testing.T) {
	db := testDatabase()
	ctx := context.Background()

	legs, err := db.GetProcedureLegs(ctx, ProcedureKey{Airport: "KJFK", Procedure: "DEEZZ5", Runway: "4L"})
	if err != nil {
		t.Fatal(err)
	}
	// Runway 4L transition, common legs, and the HFD transition
	if len(legs) != 4 {
		t.Errorf("expected 4 legs, got %d: %+v", len(legs), legs)
	}
	for _, leg := range legs {
		if leg.Transition == "RW31B" {
			t.Errorf("unexpected RW31B leg")
		}
	}

	infos, err := db.Procedures(ctx, "kjfk")
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 procedures, got %+v", infos)
	}
	if infos[0].Name != "DEEZZ5" || !slices.Equal(infos[0].Runways, []string{"31B", "4L"}) ||
		!slices.Equal(infos[0].Transitions, []string{"HFD"}) {
		t.Errorf("unexpected DEEZZ5 summary %+v", infos[0])
	}
	if infos[1].Name != "I04R" || !slices.Equal(infos[1].Runways, []string{"4R"}) || !infos[1].GPSOverlay {
		t.Errorf("unexpected I04R summary %+v", infos[1])
	}
}

func TestSaveLoad(t *testing.T) {
	db := testDatabase()

	var buf bytes.Buffer
	if err := db.Save(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadMemoryDatabase(&buf)
	if err != nil {
		t.Fatal(err)
	}

	nf, na, nl := db.Stats()
	lf, la, ll := loaded.Stats()
	if nf != lf || na != la || nl != ll {
		t.Errorf("stats mismatch: %d/%d/%d vs %d/%d/%d", nf, na, nl, lf, la, ll)
	}

	fixes, _ := loaded.FindFixByIdent(context.Background(), "ALB", "CY")
	if len(fixes) != 1 || fixes[0] != albCA {
		t.Errorf("got %v after reload", fixes)
	}
	airways, _ := loaded.GetAirway(context.Background(), "J99")
	if len(airways) != 1 || airways[0].Fixes[2].MinAltitude != 24000 {
		t.Errorf("got %+v after reload", airways)
	}
}

type countingDatabase struct {
	Database
	fixQueries int
}

func (c *countingDatabase) FindFixByIdent(ctx context.Context, ident, region string) ([]av.Fix, error) {
	c.fixQueries++
	return c.Database.FindFixByIdent(ctx, ident, region)
}

func TestCachedDatabase(t *testing.T) {
	counting := &countingDatabase{Database: testDatabase()}
	db := NewCachedDatabase(counting, 16, time.Minute)
	ctx := context.Background()

	for range 3 {
		fixes, err := db.FindFixByIdent(ctx, "ALB", "")
		if err != nil || len(fixes) != 2 {
			t.Fatalf("unexpected result %v %v", fixes, err)
		}
	}
	if _, err := db.FindFixByIdent(ctx, "ALB", "CY"); err != nil {
		t.Fatal(err)
	}

	if counting.fixQueries != 2 {
		t.Errorf("expected 2 underlying queries, got %d", counting.fixQueries)
	}
	if hits, misses := db.Stats(); hits != 2 || misses != 2 {
		t.Errorf("expected 2 hits and 2 misses, got %d and %d", hits, misses)
	}

	db.Purge()
	if _, err := db.FindFixByIdent(ctx, "alb", ""); err != nil {
		t.Fatal(err)
	}
	if counting.fixQueries != 3 {
		t.Errorf("expected a query after Purge")
	}

	legs, err := db.GetProcedureLegs(ctx, ProcedureKey{Airport: "KJFK", Procedure: "I04R"})
	if err != nil || len(legs) != 1 {
		t.Errorf("unexpected legs %v %v", legs, err)
	}
}

func TestResolve(t *testing.T) {
	r := Resolver{DB: testDatabase()}
	ctx := context.Background()

	_, err := r.Resolve(ctx, "ZZZZZ", "", nil)
	var rerr *av.ResolutionError
	if !errors.As(err, &rerr) || rerr.Kind != av.NotFound || !errors.Is(err, av.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	} else if err.Error() != "Nothing found for ZZZZZ. Ignoring." {
		t.Errorf("unexpected message %q", err.Error())
	}

	// Nearest to the reference point
	near := math.Point2LL{-113, 50}
	res, err := r.Resolve(ctx, "ALB", "", &near)
	if err != nil || res.Fix != albCA || res.Warning != nil || len(res.Candidates) != 2 {
		t.Errorf("expected Canadian ALB without warning, got %+v %v", res, err)
	}
	res, err = r.Resolve(ctx, "ALB", "", &kjfk.Location)
	if err != nil || res.Fix != albUS {
		t.Errorf("expected US ALB, got %+v %v", res, err)
	}

	// No reference: deterministic choice with an ambiguity warning.
	res, err = r.Resolve(ctx, "ALB", "", nil)
	if err != nil || res.Fix != albCA {
		t.Errorf("expected CY region first, got %+v %v", res, err)
	}
	if !errors.Is(res.Warning, av.ErrAmbiguous) {
		t.Errorf("expected ambiguity warning, got %v", res.Warning)
	}

	// Preferred kinds
	res, err = r.Resolve(ctx, "ALB", "", nil, av.FixKindVOR)
	if err != nil || res.Fix != albUS || res.Warning != nil {
		t.Errorf("expected the VOR, got %+v %v", res, err)
	}

	// Runway ends only when asked for
	if _, err := r.Resolve(ctx, "RW04L", "", nil); !errors.Is(err, av.ErrNotFound) {
		t.Errorf("expected runway end to be excluded, got %v", err)
	}
	res, err = r.Resolve(ctx, "RW04L", "", nil, av.FixKindRunwayEnd)
	if err != nil || res.Fix != rw04l {
		t.Errorf("expected runway end, got %+v %v", res, err)
	}
}

func TestCompareFixes(t *testing.T) {
	apt := av.Fix{Kind: av.FixKindAirport, Ident: "X", Region: "ZZ"}
	wpt := av.Fix{Kind: av.FixKindWaypoint, Ident: "X", Region: "AA"}
	fixes := []av.Fix{wpt, apt}
	slices.SortFunc(fixes, compareFixes)
	if fixes[0] != apt {
		t.Errorf("airport should sort first: %v", fixes)
	}
}

func TestLoadFiles(t *testing.T) {
	setCol := func(b []byte, offset int, s string) { copy(b[offset:], s) }

	rec := []byte(strings.Repeat(" ", av.ARINC424RecordLength))
	setCol(rec, 0, "SUSAEAENRT   MERIT")
	setCol(rec, 19, "K6")
	setCol(rec, 32, "N41225860W073080000")
	waypoints := string(rec) + "\r\nSUSAEA\r\n" // short record: reported

	rec = []byte(strings.Repeat(" ", av.ARINC424RecordLength))
	setCol(rec, 0, "SUSAD        DPK")
	setCol(rec, 19, "K6")
	setCol(rec, 32, "N40472105W073181710")
	navaids := string(rec) + "\r\n"

	dir := t.TempDir()
	plain := filepath.Join(dir, "waypoints.dat")
	if err := os.WriteFile(plain, []byte(waypoints), 0o644); err != nil {
		t.Fatal(err)
	}

	compressed := filepath.Join(dir, "navaids.dat.zst")
	f, err := os.Create(compressed)
	if err != nil {
		t.Fatal(err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(navaids)); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	f.Close()

	var e util.ErrorLogger
	db, err := LoadFiles(context.Background(), []string{plain, compressed}, &e)
	if err != nil {
		t.Fatal(err)
	}
	if nf, _, _ := db.Stats(); nf != 2 {
		t.Errorf("expected 2 fixes, got %d", nf)
	}
	if fixes, _ := db.FindFixByIdent(context.Background(), "DPK", ""); len(fixes) != 1 || fixes[0].Kind != av.FixKindVOR {
		t.Errorf("DPK not loaded from compressed file: %v", fixes)
	}
	if !e.HaveErrors() || !strings.HasPrefix(e.Errors()[0].Error(), "waypoints.dat") {
		t.Errorf("expected error for the short record, got %q", e.String())
	}

	if _, err := LoadFiles(context.Background(), []string{filepath.Join(dir, "missing.dat")}, &e); err == nil {
		t.Errorf("expected error for missing file")
	}
}
