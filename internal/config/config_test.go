package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("CARDFORGE_CACHE_BACKEND")
	os.Unsetenv("CARDFORGE_DPI")
	os.Unsetenv("CARDFORGE_GPU")
	os.Unsetenv("CARDFORGE_LISTEN_ADDR")

	cfg := Load()

	if cfg.Cache.Backend != "fs" {
		t.Errorf("default cache backend = %q, want fs", cfg.Cache.Backend)
	}
	if cfg.Cache.Dir == "" {
		t.Error("default cache dir must not be empty")
	}
	if cfg.Render.DPI != 300 {
		t.Errorf("default DPI = %d, want 300", cfg.Render.DPI)
	}
	if cfg.Render.GPU {
		t.Error("GPU must default to off")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default listen addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CARDFORGE_CACHE_BACKEND", "postgres")
	t.Setenv("CARDFORGE_CACHE_DATABASE_URL", "postgres://cardforge@localhost/cache")
	t.Setenv("CARDFORGE_DPI", "600")
	t.Setenv("CARDFORGE_MAX_WORKERS", "8")
	t.Setenv("CARDFORGE_GPU", "true")
	t.Setenv("CARDFORGE_LISTEN_ADDR", ":9090")

	cfg := Load()

	if cfg.Cache.Backend != "postgres" {
		t.Errorf("cache backend = %q, want postgres", cfg.Cache.Backend)
	}
	if cfg.Cache.DatabaseURL != "postgres://cardforge@localhost/cache" {
		t.Errorf("database URL = %q", cfg.Cache.DatabaseURL)
	}
	if cfg.Render.DPI != 600 {
		t.Errorf("DPI = %d, want 600", cfg.Render.DPI)
	}
	if cfg.Render.MaxWorkers != 8 {
		t.Errorf("max workers = %d, want 8", cfg.Render.MaxWorkers)
	}
	if !cfg.Render.GPU {
		t.Error("GPU override not applied")
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("listen addr = %q, want :9090", cfg.Server.Addr)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("CARDFORGE_DPI", "not-a-number")
	if cfg := Load(); cfg.Render.DPI != 300 {
		t.Errorf("DPI = %d, want default 300 for invalid input", cfg.Render.DPI)
	}

	t.Setenv("CARDFORGE_DPI", "-300")
	if cfg := Load(); cfg.Render.DPI != 300 {
		t.Errorf("DPI = %d, want default 300 for negative input", cfg.Render.DPI)
	}
}

func TestLoad_EmbeddedPresets(t *testing.T) {
	cfg := Load()

	for _, name := range []string{"letter", "legal", "a4", "a3"} {
		p, ok := cfg.Presets.Pages[name]
		if !ok {
			t.Errorf("preset %q missing", name)
			continue
		}
		if p.WidthMm <= 0 || p.HeightMm <= 0 || p.Columns < 1 || p.Rows < 1 {
			t.Errorf("preset %q has invalid geometry: %+v", name, p)
		}
	}

	a4 := cfg.Presets.Pages["a4"]
	if a4.WidthMm != 210 || a4.HeightMm != 297 {
		t.Errorf("a4 = %vx%v mm, want 210x297", a4.WidthMm, a4.HeightMm)
	}
	if cfg.Presets.Defaults.BleedMm != 3 {
		t.Errorf("default bleed = %v, want 3mm", cfg.Presets.Defaults.BleedMm)
	}
}

func TestPagePreset_UnknownFallsBackToLetter(t *testing.T) {
	cfg := Load()

	p := cfg.PagePreset("tabloid")
	if p.WidthMm != 215.9 {
		t.Errorf("fallback preset width = %v, want letter 215.9", p.WidthMm)
	}
}
