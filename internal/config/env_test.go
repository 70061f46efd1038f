package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "RENDER_SCALE", "RENDER_JPEG_QUALITY", "REDIS_URL", "S3_PREFIX", "MAX_UPLOAD_MB", "JOB_STATUS_TTL", "MAX_CONCURRENT_EXPORTS", "SOURCE_FILE_ROOT", "ALLOW_HTTP_SOURCES"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes != 100<<20 {
		t.Errorf("Server.MaxUploadBytes = %d, want %d", cfg.Server.MaxUploadBytes, 100<<20)
	}
	if cfg.Server.MaxExports != 2 {
		t.Errorf("Server.MaxExports = %d, want 2", cfg.Server.MaxExports)
	}
	if cfg.Render.Scale != 1.5 || cfg.Render.Quality != 80 {
		t.Errorf("Render = %+v, want scale 1.5 quality 80", cfg.Render)
	}
	if cfg.Status.RedisURL != "" || cfg.Status.TTL != 24*time.Hour {
		t.Errorf("Status = %+v", cfg.Status)
	}
	if cfg.Storage.Prefix != "pdfx" {
		t.Errorf("Storage.Prefix = %q, want pdfx", cfg.Storage.Prefix)
	}
	if cfg.Server.SourceFileRoot != "" || cfg.Server.AllowHTTPSources {
		t.Errorf("source refs = root %q http %v, want local and web refs disabled", cfg.Server.SourceFileRoot, cfg.Server.AllowHTTPSources)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("RENDER_SCALE", "2")
	t.Setenv("RENDER_JPEG_QUALITY", "150")
	t.Setenv("S3_PREFIX", "/edits/")
	t.Setenv("UPLOAD_RESULTS_TO_S3", "yes")
	t.Setenv("JOB_STATUS_TTL", "1h")
	t.Setenv("SOURCE_FILE_ROOT", "/srv/inbox")
	t.Setenv("ALLOW_HTTP_SOURCES", "true")
	cfg := FromEnv()
	if cfg.Render.Scale != 2 {
		t.Errorf("Render.Scale = %v, want 2", cfg.Render.Scale)
	}
	if cfg.Render.Quality != 80 {
		t.Errorf("Render.Quality = %d, want 80 for out of range input", cfg.Render.Quality)
	}
	if cfg.Storage.Prefix != "edits" || !cfg.Storage.UploadResults {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Status.TTL != time.Hour {
		t.Errorf("Status.TTL = %v, want 1h", cfg.Status.TTL)
	}
	if cfg.Server.SourceFileRoot != "/srv/inbox" || !cfg.Server.AllowHTTPSources {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PDFX_TEST_RESULT_DIR=/srv/out\nPORT=9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("PDFX_TEST_RESULT_DIR", "")
	os.Unsetenv("PDFX_TEST_RESULT_DIR")

	if err := Load(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := os.Getenv("PDFX_TEST_RESULT_DIR"); got != "/srv/out" {
		t.Errorf("PDFX_TEST_RESULT_DIR = %q, want /srv/out", got)
	}
	if got := os.Getenv("PORT"); got != "7000" {
		t.Errorf("PORT = %q, want existing value 7000 kept", got)
	}
}
