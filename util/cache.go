// util/cache.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"compress/flate"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrCacheStale = errors.New("cached object has a different version")

// ObjectCache stores objects derived from source files, such as parsed
// ARINC 424 data, so that they needn't be derived again. Entries are
// keyed by a digest of the source contents and Version, so changing
// either invalidates them.
type ObjectCache[T any] struct {
	// Name is the subdirectory of the cache used for these objects.
	Name string
	// Version must change whenever T's encoding does.
	Version int
	// Dir overrides the user's cache directory.
	Dir string
}

type cacheEntry[T any] struct {
	Version int       `msgpack:"version"`
	Name    string    `msgpack:"name"`
	Stored  time.Time `msgpack:"stored"`
	Object  T         `msgpack:"object"`
}

func (c ObjectCache[T]) root() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	cd, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cd, "routeplan"), nil
}

func (c ObjectCache[T]) path(key string) (string, error) {
	root, err := c.root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, c.Name, key+".msgpack"), nil
}

// Key returns the key for the object derived from the contents of the
// given sources, which are read to the end.
func (c ObjectCache[T]) Key(sources ...io.Reader) (string, error) {
	h := sha256.New()
	binary.Write(h, binary.LittleEndian, int64(c.Version))
	for _, r := range sources {
		if _, err := io.Copy(h, r); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}

// Store msgpack-encodes obj and writes it, deflated, under key.
func (c ObjectCache[T]) Store(key string, obj T) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fw, err := flate.NewWriter(f, flate.BestSpeed)
	if err != nil {
		return err
	}

	entry := cacheEntry[T]{Version: c.Version, Name: c.Name, Stored: time.Now(), Object: obj}
	if err := msgpack.NewEncoder(fw).Encode(entry); err != nil {
		return err
	}
	return fw.Close()
}

// Retrieve returns the object stored under key and the time it was
// stored. ErrCacheStale is returned if it was stored with a different
// Version.
func (c ObjectCache[T]) Retrieve(key string) (T, time.Time, error) {
	var zero T
	path, err := c.path(key)
	if err != nil {
		return zero, time.Time{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return zero, time.Time{}, err
	}
	defer f.Close()

	fr := flate.NewReader(f)
	defer fr.Close()

	var entry cacheEntry[T]
	if err := msgpack.NewDecoder(fr).Decode(&entry); err != nil {
		return zero, time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	if entry.Version != c.Version || entry.Name != c.Name {
		return zero, time.Time{}, fmt.Errorf("%s: version %d: %w", key, entry.Version, ErrCacheStale)
	}
	return entry.Object, entry.Stored, nil
}

// Cull removes the least recently stored objects, of any type, until
// the total size of the cache is at most maxBytes.
func (c ObjectCache[T]) Cull(maxBytes int64) error {
	cacheDir, err := c.root()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		return nil
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var totalSize int64

	err = filepath.Walk(cacheDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, fileInfo{path: path, size: info.Size(), modTime: info.ModTime()})
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Oldest first
	slices.SortFunc(files, func(a, b fileInfo) int {
		return a.modTime.Compare(b.modTime)
	})

	for len(files) > 0 && totalSize > maxBytes {
		f := files[0]
		if err := os.Remove(f.path); err == nil {
			totalSize -= f.size
		}
		files = files[1:]
	}
	return nil
}
