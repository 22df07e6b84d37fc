package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9090
database:
  url: postgres://localhost/synckit
cache:
  dir: /var/cache/synckit
executor:
  max_workers: 8
  node_timeout: 5m
storage:
  endpoint: https://storage.example.com
  bucket: renders
lipsync:
  url: https://lipsync.example.com/v1
  max_workers: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Database.URL != "postgres://localhost/synckit" {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if cfg.Executor.MaxWorkers != 8 || cfg.Executor.NodeTimeout != 5*time.Minute {
		t.Fatalf("executor = %+v", cfg.Executor)
	}
	if cfg.Storage.Bucket != "renders" || cfg.Lipsync.MaxWorkers != 3 {
		t.Fatalf("storage/lipsync = %+v / %+v", cfg.Storage, cfg.Lipsync)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 3000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("host default lost: %q", cfg.Server.Host)
	}
	if cfg.Executor.MaxWorkers != 4 {
		t.Fatalf("max_workers default lost: %d", cfg.Executor.MaxWorkers)
	}
}

func TestLoad_InvalidMaxWorkersReset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("executor:\n  max_workers: -2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Executor.MaxWorkers != 4 {
		t.Fatalf("max_workers = %d, want 4", cfg.Executor.MaxWorkers)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
