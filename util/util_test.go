// util/util_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

var errTest = errors.New("test error")

func TestErrorLogger(t *testing.T) {
	var e ErrorLogger
	if e.HaveErrors() || e.Join() != nil {
		t.Errorf("fresh ErrorLogger should have no errors")
	}

	e.ErrorString("top level %d", 1)
	e.Push("KJFK")
	e.Push("DEEZZ5")
	e.Error(errTest)
	e.Pop()
	e.Pop()

	if !e.HaveErrors() || len(e.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %v", e.Errors())
	}
	if e.Errors()[0].Error() != "top level 1" {
		t.Errorf("got %q", e.Errors()[0].Error())
	}
	if e.Errors()[1].Error() != "KJFK / DEEZZ5: test error" {
		t.Errorf("got %q", e.Errors()[1].Error())
	}
	if !errors.Is(e.Errors()[1], errTest) {
		t.Errorf("context wrapping should preserve errors.Is")
	}
	if !errors.Is(e.Join(), errTest) {
		t.Errorf("Join should preserve errors.Is")
	}
	if e.String() != "top level 1\nKJFK / DEEZZ5: test error" {
		t.Errorf("unexpected String(): %q", e.String())
	}
	if e.CurrentDepth() != 0 {
		t.Errorf("expected depth 0, got %d", e.CurrentDepth())
	}
}

func TestGeneric(t *testing.T) {
	if Select(true, 1, 2) != 1 || Select(false, 1, 2) != 2 {
		t.Errorf("Select is broken")
	}
	if k := SortedMapKeys(map[string]int{"c": 1, "a": 2, "b": 3}); !slices.Equal(k, []string{"a", "b", "c"}) {
		t.Errorf("SortedMapKeys: got %v", k)
	}
	if f := FilterSlice([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 }); !slices.Equal(f, []int{2, 4}) {
		t.Errorf("FilterSlice: got %v", f)
	}
	if m := MapSlice([]int{1, 2}, func(v int) string { return strings.Repeat("x", v) }); !slices.Equal(m, []string{"x", "xx"}) {
		t.Errorf("MapSlice: got %v", m)
	}
	if d := DedupeSlice([]string{"RW04L", "RW04R", "RW04L"}); !slices.Equal(d, []string{"RW04L", "RW04R"}) {
		t.Errorf("DedupeSlice: got %v", d)
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte("SUSAP KJFKK6AKJFK     0     145YHN40382374W073464329W013000013         1800018000C    MNAR    JOHN F KENNEDY INTL           300671912\n")

	plain := filepath.Join(dir, "FAACIFP18")
	if err := os.WriteFile(plain, contents, 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write(contents)
	zw.Close()
	compressed := filepath.Join(dir, "FAACIFP18.zst")
	if err := os.WriteFile(compressed, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, fn := range []string{plain, compressed} {
		r, err := OpenFile(fn)
		if err != nil {
			t.Fatalf("%s: %v", fn, err)
		}
		b, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("%s: %v", fn, err)
		}
		if !bytes.Equal(b, contents) {
			t.Errorf("%s: contents mismatch", fn)
		}
	}

	if _, err := OpenFile(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestObjectCache(t *testing.T) {
	type cached struct {
		Fixes map[string][2]float32
		Count int
	}
	c := ObjectCache[cached]{Name: "cifp", Version: 2, Dir: t.TempDir()}
	obj := cached{Fixes: map[string][2]float32{"MERIT": {-73.2, 41.3}}, Count: 12}

	key, err := c.Key(strings.NewReader("some "), strings.NewReader("navdata"))
	if err != nil {
		t.Fatal(err)
	}
	if key2, _ := c.Key(strings.NewReader("other navdata")); key2 == key {
		t.Errorf("different contents gave the same key")
	}
	v3 := c
	v3.Version = 3
	if key3, _ := v3.Key(strings.NewReader("some navdata")); key3 == key {
		t.Errorf("different versions gave the same key")
	}
	if again, _ := c.Key(strings.NewReader("some navdata")); again != key {
		t.Errorf("key depends on how the sources are split: %s vs %s", again, key)
	}

	if _, _, err := c.Retrieve(key); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected missing entry, got %v", err)
	}

	if err := c.Store(key, obj); err != nil {
		t.Fatal(err)
	}
	back, stored, err := c.Retrieve(key)
	if err != nil {
		t.Fatal(err)
	}
	if back.Count != 12 || back.Fixes["MERIT"] != obj.Fixes["MERIT"] {
		t.Errorf("cache round trip mismatch: %+v", back)
	}
	if stored.IsZero() {
		t.Errorf("expected the time the object was stored")
	}

	// An entry written by an older version of the encoding isn't used.
	if _, _, err := v3.Retrieve(key); !errors.Is(err, ErrCacheStale) {
		t.Errorf("expected ErrCacheStale, got %v", err)
	}

	if err := c.Cull(0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Retrieve(key); err == nil {
		t.Errorf("expected culled object to be gone")
	}
}

func TestGCSGetReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/b/navdata/o/cifp/FAACIFP18.zst" || r.URL.Query().Get("alt") != "media" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	ctx := context.Background()
	g, err := MakeGCSClient(ctx, "navdata", GCSClientConfig{Endpoint: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	r, err := g.GetReader(ctx, "cifp/FAACIFP18.zst")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(r)
	r.Close()
	if string(b) != "payload" {
		t.Errorf("got %q", b)
	}

	if _, err := g.GetReader(ctx, "missing"); err == nil {
		t.Errorf("expected error for missing object")
	}
	if _, err := MakeGCSClient(ctx, "", GCSClientConfig{}); err == nil {
		t.Errorf("expected error for empty bucket")
	}
}
