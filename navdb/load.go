// navdb/load.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	av "github.com/mmp/routeplan/aviation"
	"github.com/mmp/routeplan/util"

	"golang.org/x/sync/errgroup"
)

// Source is a named provider of ARINC-424 data.
type Source struct {
	Name string
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// FileSource returns a Source for a local file, which may be zstd
// compressed.
func FileSource(path string) Source {
	return Source{
		Name: filepath.Base(path),
		Open: func(context.Context) (io.ReadCloser, error) { return util.OpenFile(path) },
	}
}

// GCSSource returns a Source for an object in a cloud storage bucket.
func GCSSource(client *util.GCSClient, object string) Source {
	return Source{
		Name: object,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			r, err := client.GetReader(ctx, object)
			if err != nil {
				return nil, err
			}
			return util.WrapReader(r, strings.HasSuffix(object, ".zst"))
		},
	}
}

// ReadARINC424 parses the given sources in parallel and returns their
// combined contents. Problems with individual records are reported to e,
// with the source name as context; an error is only returned if a source
// can't be read.
func ReadARINC424(ctx context.Context, sources []Source, e *util.ErrorLogger) (av.ARINC424Result, error) {
	results := make([]av.ARINC424Result, len(sources))
	loggers := make([]util.ErrorLogger, len(sources))

	eg, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		eg.Go(func() error {
			r, err := src.Open(ctx)
			if err != nil {
				return err
			}
			defer r.Close()

			results[i] = av.ParseARINC424(r, &loggers[i])
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return av.ARINC424Result{}, err
	}

	combined := av.ARINC424Result{Airways: make(map[string][]av.Airway)}
	for i, r := range results {
		combined.Fixes = append(combined.Fixes, r.Fixes...)
		for name, a := range r.Airways {
			combined.Airways[name] = append(combined.Airways[name], a...)
		}
		combined.Procedures = append(combined.Procedures, r.Procedures...)

		if e != nil {
			e.Push(sources[i].Name)
			for _, err := range loggers[i].Errors() {
				e.Error(err)
			}
			e.Pop()
		}
	}
	return combined, nil
}

// LoadFiles parses the given ARINC-424 files into a MemoryDatabase.
func LoadFiles(ctx context.Context, paths []string, e *util.ErrorLogger) (*MemoryDatabase, error) {
	r, err := ReadARINC424(ctx, util.MapSlice(paths, FileSource), e)
	if err != nil {
		return nil, err
	}
	return MakeMemoryDatabase(r), nil
}
