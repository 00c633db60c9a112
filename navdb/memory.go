// navdb/memory.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"context"
	"fmt"
	"io"
	"sync"

	av "github.com/mmp/routeplan/aviation"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// MemoryDatabase holds navigation data in memory, indexed by identifier.
type MemoryDatabase struct {
	mu         sync.RWMutex
	fixes      map[string][]av.Fix
	airways    map[string][]av.Airway
	procedures map[string][]av.RawLeg // by airport, in database order
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		fixes:      make(map[string][]av.Fix),
		airways:    make(map[string][]av.Airway),
		procedures: make(map[string][]av.RawLeg),
	}
}

// MakeMemoryDatabase returns a database holding the contents of parsed
// ARINC-424 data.
func MakeMemoryDatabase(r av.ARINC424Result) *MemoryDatabase {
	db := NewMemoryDatabase()
	db.Add(r)
	return db
}

// Add adds all of the fixes, airways, and procedure legs in r.
func (db *MemoryDatabase) Add(r av.ARINC424Result) {
	db.AddFixes(r.Fixes...)
	for _, airways := range r.Airways {
		db.AddAirways(airways...)
	}
	db.AddProcedureLegs(r.Procedures...)
}

func (db *MemoryDatabase) AddFixes(fixes ...av.Fix) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, f := range fixes {
		id := normalizeIdent(f.Ident)
		db.fixes[id] = append(db.fixes[id], f)
	}
}

func (db *MemoryDatabase) AddAirways(airways ...av.Airway) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range airways {
		id := normalizeIdent(a.Name)
		db.airways[id] = append(db.airways[id], a)
	}
}

func (db *MemoryDatabase) AddProcedureLegs(legs ...av.RawLeg) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, leg := range legs {
		id := normalizeIdent(leg.Airport)
		db.procedures[id] = append(db.procedures[id], leg)
	}
}

func (db *MemoryDatabase) FindFixByIdent(ctx context.Context, ident, region string) ([]av.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var fixes []av.Fix
	for _, f := range db.fixes[normalizeIdent(ident)] {
		if region == "" || f.Region == region {
			fixes = append(fixes, f)
		}
	}
	return fixes, nil
}

func (db *MemoryDatabase) GetAirway(ctx context.Context, name string) ([]av.Airway, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return append([]av.Airway(nil), db.airways[normalizeIdent(name)]...), nil
}

func (db *MemoryDatabase) GetProcedureLegs(ctx context.Context, key ProcedureKey) ([]av.RawLeg, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var legs []av.RawLeg
	match := func(all []av.RawLeg) {
		for _, leg := range all {
			if key.Matches(leg) {
				legs = append(legs, leg)
			}
		}
	}
	if key.Airport != "" {
		match(db.procedures[normalizeIdent(key.Airport)])
	} else {
		for _, all := range db.procedures {
			match(all)
		}
	}
	return legs, nil
}

func (db *MemoryDatabase) Procedures(ctx context.Context, airport string) ([]ProcedureInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return SummarizeProcedures(db.procedures[normalizeIdent(airport)]), nil
}

// IsAirway reports whether an airway with the given name exists.
func (db *MemoryDatabase) IsAirway(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.airways[normalizeIdent(name)]
	return ok
}

// IsAirport reports whether an airport with the given identifier exists.
func (db *MemoryDatabase) IsAirport(ident string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, f := range db.fixes[normalizeIdent(ident)] {
		if f.Kind == av.FixKindAirport {
			return true
		}
	}
	return false
}

// IsProcedure reports whether the airport has a procedure with the given
// name; if airport is empty, any airport matches.
func (db *MemoryDatabase) IsProcedure(airport, name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	name = normalizeIdent(name)
	check := func(legs []av.RawLeg) bool {
		for _, leg := range legs {
			if leg.Procedure == name {
				return true
			}
		}
		return false
	}
	if airport != "" {
		return check(db.procedures[normalizeIdent(airport)])
	}
	for _, legs := range db.procedures {
		if check(legs) {
			return true
		}
	}
	return false
}

// Stats returns the number of fixes, airways, and procedure legs.
func (db *MemoryDatabase) Stats() (fixes, airways, legs int) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, f := range db.fixes {
		fixes += len(f)
	}
	for _, a := range db.airways {
		airways += len(a)
	}
	for _, l := range db.procedures {
		legs += len(l)
	}
	return
}

// contents returns everything in the database in the form it was added.
func (db *MemoryDatabase) contents() av.ARINC424Result {
	db.mu.RLock()
	defer db.mu.RUnlock()

	r := av.ARINC424Result{Airways: make(map[string][]av.Airway)}
	for _, f := range db.fixes {
		r.Fixes = append(r.Fixes, f...)
	}
	for name, a := range db.airways {
		r.Airways[name] = a
	}
	for _, legs := range db.procedures {
		r.Procedures = append(r.Procedures, legs...)
	}
	return r
}

// Save writes the database to w in the snapshot format (msgpack +
// zstd compression).
func (db *MemoryDatabase) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(db.contents()); err != nil {
		return fmt.Errorf("failed to encode navigation database: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}

	return nil
}

// LoadMemoryDatabase reads a database written by Save.
func LoadMemoryDatabase(r io.Reader) (*MemoryDatabase, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var contents av.ARINC424Result
	if err := msgpack.NewDecoder(zr).Decode(&contents); err != nil {
		return nil, fmt.Errorf("failed to decode navigation database: %w", err)
	}

	return MakeMemoryDatabase(contents), nil
}
