// cmd/routeplan/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// routeplan expands an ICAO route string into a flight plan using ARINC
// 424 navigation data and prints its legs and vertical profile.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/log"
	"github.com/mmp/routeplan/navdb"
	"github.com/mmp/routeplan/profile"
	"github.com/mmp/routeplan/route"
	"github.com/mmp/routeplan/util"

	"github.com/apenwarr/fixconsole"
	"github.com/goforj/godump"
	"github.com/iancoleman/orderedmap"
	"github.com/joho/godotenv"
)

var (
	routeString    = flag.String("route", "", "ICAO route string to expand, e.g. \"KORD N0450F350 MONTY1 J60 LBF LANDR3 KDEN\"")
	cifpFiles      = flag.String("cifp", "", "comma-separated ARINC 424 files to load (may be zstd compressed)")
	databaseURL    = flag.String("db", "", "PostgreSQL navigation database URL (default $ROUTEPLAN_DB_URL)")
	initDB         = flag.Bool("initdb", false, "create the PostgreSQL schema and load the -cifp/-gcs-object data into it")
	gcsBucket      = flag.String("gcs-bucket", "", "cloud storage bucket holding ARINC 424 data")
	gcsObject      = flag.String("gcs-object", "", "ARINC 424 object in -gcs-bucket to load")
	perfFile       = flag.String("perf", "", "JSON file with aircraft performance data")
	cruiseAltitude = flag.Float64("cruise", 0, "cruise altitude in feet, overriding the route string's")
	adjustCruise   = flag.Bool("adjust", false, "raise the cruise altitude to one appropriate for the direction of flight")
	sidRunway      = flag.String("sid-runway", "", "departure runway")
	starRunway     = flag.String("star-runway", "", "arrival runway")
	approach       = flag.String("approach", "", "approach procedure, with an optional transition: e.g. \"I16L\" or \"I16L.AKO\"")
	generic        = flag.Bool("generic", false, "allow the route to start or end somewhere other than an airport")
	newDeparture   = flag.String("departure", "", "replace the departure airport, removing the SID")
	newDestination = flag.String("destination", "", "replace the destination airport, removing the STAR and approach")
	reverse        = flag.Bool("reverse", false, "reverse the route before printing it")
	direct         = flag.Bool("direct", false, "fly direct from the departure procedure to the arrival")
	jsonOutput     = flag.Bool("json", false, "print the legs and profile as JSON")
	dump           = flag.Bool("dump", false, "dump the flight plan structure")
	useCache       = flag.Bool("cache", true, "cache parsed ARINC 424 files in the user's cache directory")
	snapshot       = flag.String("snapshot", "", "navigation database snapshot: written after loading -cifp, otherwise read")
	logLevel       = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir         = flag.String("logdir", "", "log file directory")
)

const (
	cacheSize = 4096
	cacheTTL  = time.Hour
	maxCache  = 512 * 1024 * 1024

	// Bump when av.ARINC424Result changes.
	arinc424CacheVersion = 1
)

// Used when -perf isn't given.
var defaultPerformance = av.AircraftPerformance{
	Name:         "B738",
	ClimbSpeed:   290,
	ClimbRate:    2000,
	CruiseSpeed:  450,
	DescentSpeed: 280,
}

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		lg.Warnf(".env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, lg); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *log.Logger) error {
	db, err := openDatabase(ctx, lg)
	if err != nil {
		return err
	}
	if *routeString == "" {
		if *initDB {
			return nil
		}
		return errors.New("no route given; use -route")
	}

	perf := defaultPerformance
	if *perfFile != "" {
		f, err := os.Open(*perfFile)
		if err != nil {
			return err
		}
		perf, err = av.LoadAircraftPerformance(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	opts := route.Options{DepartureRunway: *sidRunway, ArrivalRunway: *starRunway, Generic: *generic}
	opts.Approach, opts.ApproachTransition, _ = strings.Cut(*approach, ".")

	plan := route.NewPlan(db, perf, lg)
	var e util.ErrorLogger
	if err := plan.Load(ctx, *routeString, opts, &e); err != nil {
		e.PrintErrors(lg)
		return err
	}
	e.PrintErrors(lg)

	if *cruiseAltitude > 0 {
		if err := plan.SetCruiseAltitude(ctx, float32(*cruiseAltitude)); err != nil {
			return err
		}
	}
	if *newDeparture != "" {
		if err := plan.SetDeparture(ctx, *newDeparture); err != nil {
			return err
		}
	}
	if *newDestination != "" {
		if err := plan.SetDestination(ctx, *newDestination); err != nil {
			return err
		}
	}
	if *direct {
		if err := plan.Direct(ctx); err != nil {
			return err
		}
	}
	if *reverse {
		if err := plan.Reverse(ctx); err != nil {
			return err
		}
	}
	if *adjustCruise {
		alt, err := plan.AdjustCruiseAltitude(ctx)
		if err != nil {
			return err
		}
		lg.Infof("cruise altitude %.0f", alt)
	}

	fp := plan.FlightPlan()
	vp, profileErr := plan.Profile()
	if profileErr != nil {
		fmt.Fprintf(os.Stderr, "vertical profile: %v\n", profileErr)
	}

	if *dump {
		godump.Dump(fp)
	}

	rows := route.MakeLegTable(&fp, vp)
	if *jsonOutput {
		return writeJSON(os.Stdout, &fp, rows, vp)
	}
	return writeText(os.Stdout, &fp, rows, vp)
}

func writeText(w io.Writer, fp *av.FlightPlan, rows []route.LegRow, vp *profile.VerticalProfile) error {
	fmt.Fprintf(w, "Route: %s\n", fp.ICAORouteString())
	fmt.Fprintf(w, "Fixes: %s\n", fp.RouteString())
	fmt.Fprintf(w, "Distance: %.1f nm\n\n", fp.TotalDistance())
	if err := route.WriteLegTable(w, rows); err != nil {
		return err
	}

	if vp != nil {
		fmt.Fprintf(w, "\nProfile: %s\n", vp)
		fmt.Fprintf(w, "Climb %s, cruise %s, descent %s\n", vp.ClimbTime.Round(time.Second),
			vp.CruiseTime.Round(time.Second), vp.DescentTime.Round(time.Second))
		for _, warn := range vp.Warnings {
			fmt.Fprintf(w, "  %v\n", warn)
		}
	}
	return nil
}

func writeJSON(w io.Writer, fp *av.FlightPlan, rows []route.LegRow, vp *profile.VerticalProfile) error {
	out := orderedmap.New()
	out.Set("route", fp.ICAORouteString())
	out.Set("fixes", fp.RouteString())
	out.Set("cruise_altitude", fp.CruiseAltitude)
	out.Set("distance", fp.TotalDistance())
	out.Set("legs", rows)
	if vp != nil {
		p := orderedmap.New()
		p.Set("top_of_climb", vp.TopOfClimb)
		p.Set("top_of_descent", vp.TopOfDescent)
		p.Set("max_altitude", vp.MaxAltitude)
		p.Set("climb_time", vp.ClimbTime.String())
		p.Set("cruise_time", vp.CruiseTime.String())
		p.Set("descent_time", vp.DescentTime.String())
		p.Set("points", vp.Points)
		p.Set("warnings", util.MapSlice(vp.Warnings, func(err error) string { return err.Error() }))
		out.Set("profile", p)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

///////////////////////////////////////////////////////////////////////////
// Navigation data

func openDatabase(ctx context.Context, lg *log.Logger) (navdb.Database, error) {
	url := *databaseURL
	if url == "" {
		url = os.Getenv("ROUTEPLAN_DB_URL")
	}
	if *cifpFiles == "" {
		*cifpFiles = os.Getenv("ROUTEPLAN_CIFP")
	}

	if url != "" {
		sdb, err := navdb.OpenSQLDatabase(ctx, url)
		if err != nil {
			return nil, err
		}
		if *initDB {
			r, err := readSources(ctx, lg)
			if err != nil {
				return nil, err
			}
			if err := sdb.InitSchema(ctx); err != nil {
				return nil, err
			}
			start := time.Now()
			if err := sdb.Load(ctx, r); err != nil {
				return nil, err
			}
			lg.Info("loaded navigation database", "fixes", len(r.Fixes), "procedure_legs", len(r.Procedures),
				"elapsed", time.Since(start))
		}
		return navdb.NewCachedDatabase(sdb, cacheSize, cacheTTL), nil
	}
	if *initDB {
		return nil, errors.New("-initdb requires -db or $ROUTEPLAN_DB_URL")
	}

	if *snapshot != "" && *cifpFiles == "" && *gcsObject == "" {
		f, err := os.Open(*snapshot)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		mdb, err := navdb.LoadMemoryDatabase(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", *snapshot, err)
		}
		return mdb, nil
	}

	r, err := readSources(ctx, lg)
	if err != nil {
		return nil, err
	}
	mdb := navdb.MakeMemoryDatabase(r)
	fixes, airways, legs := mdb.Stats()
	lg.Info("navigation database", "fixes", fixes, "airways", airways, "procedure_legs", legs)

	if *snapshot != "" {
		if err := writeSnapshot(mdb, *snapshot); err != nil {
			return nil, err
		}
	}
	return mdb, nil
}

func writeSnapshot(db *navdb.MemoryDatabase, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := db.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readSources reads the ARINC 424 data given by the command-line flags.
// Local files are cached after they're parsed.
func readSources(ctx context.Context, lg *log.Logger) (av.ARINC424Result, error) {
	var paths []string
	if *cifpFiles != "" {
		paths = strings.Split(*cifpFiles, ",")
	}
	var sources []navdb.Source
	if *gcsObject != "" {
		client, err := gcsClient(ctx)
		if err != nil {
			return av.ARINC424Result{}, err
		}
		sources = append(sources, navdb.GCSSource(client, *gcsObject))
	}
	if len(paths) == 0 && len(sources) == 0 {
		return av.ARINC424Result{}, errors.New("no navigation data; use -cifp, -gcs-object, -snapshot, or -db")
	}

	cache := util.ObjectCache[av.ARINC424Result]{Name: "cifp", Version: arinc424CacheVersion}
	var key string
	if *useCache && len(sources) == 0 {
		var err error
		if key, err = cacheKey(cache, paths); err != nil {
			lg.Warnf("cache key: %v", err)
		} else if r, t, err := cache.Retrieve(key); err == nil {
			lg.Info("using cached navigation data", "key", key, "stored", t)
			return r, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			lg.Warnf("%v", err)
		}
	}

	var e util.ErrorLogger
	start := time.Now()
	r, err := navdb.ReadARINC424(ctx, append(sources, util.MapSlice(paths, navdb.FileSource)...), &e)
	if err != nil {
		return av.ARINC424Result{}, err
	}
	if e.HaveErrors() {
		lg.Warn("ARINC 424 records skipped", "count", len(e.Errors()))
		for _, err := range e.Errors() {
			lg.Debug("skipped record", "error", err)
		}
	}
	lg.Info("parsed ARINC 424 data", "fixes", len(r.Fixes), "elapsed", time.Since(start))

	if key != "" {
		if err := cache.Store(key, r); err != nil {
			lg.Warnf("%s: %v", key, err)
		} else if err := cache.Cull(maxCache); err != nil {
			lg.Warnf("cull cache: %v", err)
		}
	}
	return r, nil
}

func cacheKey(cache util.ObjectCache[av.ARINC424Result], paths []string) (string, error) {
	var readers []io.Reader
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", err
		}
		defer f.Close()
		readers = append(readers, f)
	}
	return cache.Key(readers...)
}

func gcsClient(ctx context.Context) (*util.GCSClient, error) {
	bucket := *gcsBucket
	if bucket == "" {
		bucket = os.Getenv("ROUTEPLAN_GCS_BUCKET")
	}

	var config util.GCSClientConfig
	if fn := os.Getenv("ROUTEPLAN_GCS_CREDENTIALS"); fn != "" {
		creds, err := os.ReadFile(fn)
		if err != nil {
			return nil, fmt.Errorf("GCS credentials: %w", err)
		}
		config.Credentials = creds
	}
	return util.MakeGCSClient(ctx, bucket, config)
}
