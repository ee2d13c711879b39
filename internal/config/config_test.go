package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Addr != ":8080" || c.Solve.DefaultBackend != "annealer" || c.Solve.MaxVariables != 1<<16 {
		t.Fatalf("defaults = %+v", c)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qroute.yaml")
	body := []byte("addr: \":9090\"\nsolve:\n  defaultBackend: exact\n  timeLimit: 30s\nwebhooks:\n  - url: https://example.com/hook\n    secret: s3cret\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Addr != ":9090" || c.Solve.DefaultBackend != "exact" || c.Solve.TimeLimit != 30*time.Second {
		t.Fatalf("loaded = %+v", c)
	}
	if c.Solve.DefaultEncoding != "step" {
		t.Fatalf("unset fields must keep defaults, got %q", c.Solve.DefaultEncoding)
	}
	if len(c.Webhooks) != 1 || c.Webhooks[0].URL != "https://example.com/hook" {
		t.Fatalf("webhooks = %+v", c.Webhooks)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ADDR", ":7070")
	t.Setenv("MATRIX_API_KEY", "k2")
	c := Default()
	c.ApplyEnv()
	if c.Addr != ":7070" || c.Matrix.APIKey != "k2" {
		t.Fatalf("env overrides = %+v", c)
	}
}
