package actions

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tarGzArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	gz.Close()
	return buf.Bytes()
}

func TestFetchActionPlainFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#!/bin/sh\necho ok\n"))
	}))
	defer srv.Close()

	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "bin", "node_exporter")
	a := &FetchAction{URL: srv.URL + "/node_exporter", Dest: dest}

	ok, _ := a.Check(ctx)
	if ok {
		t.Fatal("missing dest should not be satisfied")
	}
	if err := a.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	ok, err := a.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("dest should satisfy after apply")
	}
	info, _ := os.Stat(dest)
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %o, want 0755", info.Mode().Perm())
	}
}

func TestFetchActionUnpack(t *testing.T) {
	archive := tarGzArchive(t, map[string]string{
		"prometheus-2.53.0.linux-amd64/prometheus":     "binary",
		"prometheus-2.53.0.linux-amd64/promtool":       "binary",
		"prometheus-2.53.0.linux-amd64/prometheus.yml": "scrape_configs: []\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "opt")
	marker := filepath.Join(dest, "prometheus-2.53.0.linux-amd64", "prometheus")
	a := &FetchAction{
		URL:     srv.URL + "/prometheus-2.53.0.linux-amd64.tar.gz",
		Dest:    dest,
		Unpack:  true,
		Creates: marker,
	}

	ok, _ := a.Check(ctx)
	if ok {
		t.Fatal("missing marker should not be satisfied")
	}
	if err := a.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	ok, err := a.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("marker should satisfy after extraction")
	}
	data, err := os.ReadFile(filepath.Join(dest, "prometheus-2.53.0.linux-amd64", "prometheus.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "scrape_configs: []\n" {
		t.Errorf("extracted content = %q", data)
	}
}

func TestFetchActionHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	a := &FetchAction{URL: srv.URL + "/missing", Dest: filepath.Join(t.TempDir(), "out")}
	if err := a.Apply(context.Background()); err == nil {
		t.Error("expected error for HTTP 404")
	}
}

func TestFetchActionUnsupportedArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	a := &FetchAction{URL: srv.URL + "/blob.rar", Dest: t.TempDir(), Unpack: true}
	if err := a.Apply(context.Background()); err == nil {
		t.Error("expected error for unsupported archive type")
	}
}

func TestSafeJoinRejectsTraversal(t *testing.T) {
	if _, err := safeJoin("/opt/prometheus", "../../etc/passwd"); err == nil {
		t.Error("expected error for traversal entry")
	}
	got, err := safeJoin("/opt/prometheus", "dir/file")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "/opt/prometheus/") {
		t.Errorf("safeJoin() = %q", got)
	}
}

func TestFetchDescribe(t *testing.T) {
	a := &FetchAction{URL: "https://example.com/a.tar.gz", Dest: "/opt", Unpack: true}
	if got := a.Describe(); !strings.Contains(got, "unpack") {
		t.Errorf("Describe() = %q", got)
	}
}
