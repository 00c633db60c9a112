// util/files.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type fileReadCloser struct {
	io.Reader
	closers []func() error
}

func (f *fileReadCloser) Close() error {
	var err error
	for _, c := range f.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// OpenFile opens the named file for reading; if it's zstd compressed,
// the returned ReadCloser handles decompression transparently.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return WrapReader(f, filepath.Ext(path) == ".zst")
}

// WrapReader returns a ReadCloser for r, decompressing it if compressed
// is set. Closing the result closes r.
func WrapReader(r io.ReadCloser, compressed bool) (io.ReadCloser, error) {
	if !compressed {
		return r, nil
	}

	zr, err := zstd.NewReader(bufio.NewReader(r), zstd.WithDecoderConcurrency(0))
	if err != nil {
		r.Close()
		return nil, err
	}
	// zstd's Decoder.Close doesn't return an error.
	return &fileReadCloser{
		Reader:  zr,
		closers: []func() error{func() error { zr.Close(); return nil }, r.Close},
	}, nil
}
