package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDatabase(t *testing.T) {
	if result := CheckDatabase(context.Background(), nil); result.Passed {
		t.Fatal("expected failure without a store")
	}

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	result := CheckDatabase(context.Background(), st)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	if result := CheckEndpoint(context.Background(), "hook", srv.URL+"/send", "secret"); !result.Passed {
		t.Fatalf("expected 4xx to count as reachable, got: %s", result.Detail)
	}
	if result := CheckEndpoint(context.Background(), "hook", srv.URL+"/broken", ""); result.Passed {
		t.Fatal("expected 5xx to fail")
	}
	if result := CheckEndpoint(context.Background(), "hook", "", ""); result.Passed {
		t.Fatal("expected missing url to fail")
	}
}

func TestRunAllWithDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)

	results := RunAll(context.Background(), cfg, st)
	if Failed(results) {
		t.Fatalf("expected defaults to pass, got %+v", results)
	}
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"Data directory", "Artifact directory", "Workflow database", "Notifications", "Rate limiter"} {
		if !names[want] {
			t.Fatalf("missing %q in %+v", want, results)
		}
	}
}

func TestRunAllFailsWithoutDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Artifacts.Backend = config.BackendS3
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(context.Background(), cfg, nil)
	if !Failed(results) {
		t.Fatalf("expected missing database to fail, got %+v", results)
	}
	for _, r := range results {
		if r.Name == "Artifact directory" {
			t.Fatal("artifact directory should not be checked for s3")
		}
	}
}
