// navdb/sql.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/math"
	"github.com/mmp/routeplan/util"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// SQLDatabase stores navigation data in PostgreSQL.
type SQLDatabase struct {
	DB *sql.DB
}

// OpenSQLDatabase connects to the PostgreSQL database at the given URL.
func OpenSQLDatabase(ctx context.Context, databaseURL string) (*SQLDatabase, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open navdb: open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open navdb: verify postgres connection: %w", err)
	}

	return &SQLDatabase{DB: db}, nil
}

func (s *SQLDatabase) Close() error {
	return s.DB.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS fixes (
		ident TEXT NOT NULL,
		region TEXT NOT NULL,
		kind INTEGER NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		elevation REAL NOT NULL,
		name TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_fixes_ident ON fixes(ident, region);`,
	`CREATE TABLE IF NOT EXISTS airway_fixes (
		name TEXT NOT NULL,
		segment INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		direction INTEGER NOT NULL,
		ident TEXT NOT NULL,
		region TEXT NOT NULL,
		kind INTEGER NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		min_altitude REAL NOT NULL,
		max_altitude REAL NOT NULL,
		level INTEGER NOT NULL,
		PRIMARY KEY (name, segment, seq)
	);`,
	`CREATE TABLE IF NOT EXISTS procedure_legs (
		id BIGSERIAL PRIMARY KEY,
		airport TEXT NOT NULL,
		procedure TEXT NOT NULL,
		transition TEXT NOT NULL,
		data JSONB NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_procedure_legs ON procedure_legs(airport, procedure, transition);`,
}

// InitSchema creates the tables used by SQLDatabase if they don't
// already exist.
func (s *SQLDatabase) InitSchema(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}

// Load replaces the contents of the database with the given navigation
// data.
func (s *SQLDatabase) Load(ctx context.Context, r av.ARINC424Result) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load navdb: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"fixes", "airway_fixes", "procedure_legs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("load navdb: clear %s: %w", table, err)
		}
	}

	fixStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO fixes (ident, region, kind, lat, lon, elevation, name)
	VALUES ($1, $2, $3, $4, $5, $6, $7);`)
	if err != nil {
		return fmt.Errorf("load navdb: prepare fix insert: %w", err)
	}
	defer fixStmt.Close()

	for _, f := range r.Fixes {
		if _, err := fixStmt.ExecContext(ctx, f.Ident, f.Region, int(f.Kind), f.Location.Latitude(),
			f.Location.Longitude(), f.Elevation, f.Name); err != nil {
			return fmt.Errorf("load navdb: insert fix %s: %w", f, err)
		}
	}

	airwayStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO airway_fixes (name, segment, seq, direction, ident, region, kind, lat, lon,
		min_altitude, max_altitude, level)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`)
	if err != nil {
		return fmt.Errorf("load navdb: prepare airway insert: %w", err)
	}
	defer airwayStmt.Close()

	for _, name := range util.SortedMapKeys(r.Airways) {
		for segment, a := range r.Airways[name] {
			for seq, af := range a.Fixes {
				if _, err := airwayStmt.ExecContext(ctx, a.Name, segment, seq, int(a.Direction),
					af.Fix.Ident, af.Fix.Region, int(af.Fix.Kind), af.Fix.Location.Latitude(),
					af.Fix.Location.Longitude(), af.MinAltitude, af.MaxAltitude, int(af.Level)); err != nil {
					return fmt.Errorf("load navdb: insert airway %s: %w", a.Name, err)
				}
			}
		}
	}

	legStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO procedure_legs (airport, procedure, transition, data)
	VALUES ($1, $2, $3, $4);`)
	if err != nil {
		return fmt.Errorf("load navdb: prepare procedure insert: %w", err)
	}
	defer legStmt.Close()

	for _, leg := range r.Procedures {
		data, err := json.Marshal(leg)
		if err != nil {
			return fmt.Errorf("load navdb: encode %s/%s leg: %w", leg.Airport, leg.Procedure, err)
		}
		if _, err := legStmt.ExecContext(ctx, leg.Airport, leg.Procedure, leg.Transition, data); err != nil {
			return fmt.Errorf("load navdb: insert %s/%s leg: %w", leg.Airport, leg.Procedure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load navdb: commit tx: %w", err)
	}
	return nil
}

func (s *SQLDatabase) FindFixByIdent(ctx context.Context, ident, region string) ([]av.Fix, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT ident, region, kind, lat, lon, elevation, name
	FROM fixes
	WHERE ident = $1 AND ($2 = '' OR region = $2);`, normalizeIdent(ident), region)
	if err != nil {
		return nil, fmt.Errorf("find fix %s: %w", ident, err)
	}
	defer rows.Close()

	var fixes []av.Fix
	for rows.Next() {
		var f av.Fix
		var kind int
		var lat, lon float32
		if err := rows.Scan(&f.Ident, &f.Region, &kind, &lat, &lon, &f.Elevation, &f.Name); err != nil {
			return nil, fmt.Errorf("find fix %s: scan: %w", ident, err)
		}
		f.Kind = av.FixKind(kind)
		f.Location = math.Point2LL{lon, lat}
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}

func (s *SQLDatabase) GetAirway(ctx context.Context, name string) ([]av.Airway, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT segment, direction, ident, region, kind, lat, lon, min_altitude, max_altitude, level
	FROM airway_fixes
	WHERE name = $1
	ORDER BY segment, seq;`, normalizeIdent(name))
	if err != nil {
		return nil, fmt.Errorf("get airway %s: %w", name, err)
	}
	defer rows.Close()

	var airways []av.Airway
	lastSegment := -1
	for rows.Next() {
		var segment, direction, kind, level int
		var lat, lon float32
		var af av.AirwayFix
		if err := rows.Scan(&segment, &direction, &af.Fix.Ident, &af.Fix.Region, &kind, &lat, &lon,
			&af.MinAltitude, &af.MaxAltitude, &level); err != nil {
			return nil, fmt.Errorf("get airway %s: scan: %w", name, err)
		}
		af.Fix.Kind = av.FixKind(kind)
		af.Fix.Location = math.Point2LL{lon, lat}
		af.Level = av.AirwayLevel(level)

		if segment != lastSegment {
			airways = append(airways, av.Airway{Name: normalizeIdent(name), Direction: av.AirwayDirection(direction)})
			lastSegment = segment
		}
		a := &airways[len(airways)-1]
		a.Fixes = append(a.Fixes, af)
	}
	return airways, rows.Err()
}

func (s *SQLDatabase) queryLegs(ctx context.Context, airport, procedure, transition string) ([]av.RawLeg, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT data
	FROM procedure_legs
	WHERE ($1 = '' OR airport = $1) AND ($2 = '' OR procedure = $2) AND ($3 = '' OR transition = $3)
	ORDER BY id;`, normalizeIdent(airport), normalizeIdent(procedure), normalizeIdent(transition))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []av.RawLeg
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var leg av.RawLeg
		if err := json.Unmarshal(data, &leg); err != nil {
			return nil, errors.Join(errors.New("corrupt procedure leg"), err)
		}
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}

func (s *SQLDatabase) GetProcedureLegs(ctx context.Context, key ProcedureKey) ([]av.RawLeg, error) {
	legs, err := s.queryLegs(ctx, key.Airport, key.Procedure, key.Transition)
	if err != nil {
		return nil, fmt.Errorf("get procedure %s: %w", key, err)
	}
	return util.FilterSlice(legs, key.Matches), nil
}

func (s *SQLDatabase) Procedures(ctx context.Context, airport string) ([]ProcedureInfo, error) {
	legs, err := s.queryLegs(ctx, airport, "", "")
	if err != nil {
		return nil, fmt.Errorf("procedures at %s: %w", airport, err)
	}
	return SummarizeProcedures(legs), nil
}
