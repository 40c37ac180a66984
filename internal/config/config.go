package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

type Config struct {
	Cache   CacheConfig
	Render  RenderConfig
	Server  ServerConfig
	Presets PresetsConfig
}

type CacheConfig struct {
	Backend     string // fs (default), postgres, mariadb
	Dir         string // blob directory for the fs backend
	DatabaseURL string // DSN for the SQL backends
}

type RenderConfig struct {
	DPI        int  // export resolution (default 300)
	MaxWorkers int  // worker pool bound (0 = derive from CPU count)
	GPU        bool // try the GPU flood-fill path
}

type ServerConfig struct {
	Addr string // listen address for the serve command (default :8080)
}

type PresetsConfig struct {
	Pages    map[string]PagePreset `yaml:"pages"`
	Defaults RenderDefaults        `yaml:"defaults"`
}

// PagePreset is a named page size with its card grid.
type PagePreset struct {
	WidthMm  float64 `yaml:"width_mm"`
	HeightMm float64 `yaml:"height_mm"`
	Columns  int     `yaml:"columns"`
	Rows     int     `yaml:"rows"`
}

// RenderDefaults are the built-in guide and bleed settings applied when no
// flag overrides them.
type RenderDefaults struct {
	BleedMm        float64 `yaml:"bleed_mm"`
	SpacingMm      float64 `yaml:"spacing_mm"`
	GuideStyle     string  `yaml:"guide_style"`
	GuidePlacement string  `yaml:"guide_placement"`
	GuideWidthPx   int     `yaml:"guide_width_px"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envBool treats "1", "true" and "yes" as true; anything else keeps the
// default.
func envBool(key string, defaultVal bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var presets PresetsConfig
	if err := yaml.Unmarshal(presetsYAML, &presets); err != nil {
		// Embedded file, cannot fail on a correct build.
		panic("failed to unmarshal embedded presets.yaml: " + err.Error())
	}

	return &Config{
		Cache: CacheConfig{
			Backend:     envString("CARDFORGE_CACHE_BACKEND", "fs"),
			Dir:         envString("CARDFORGE_CACHE_DIR", defaultCacheDir()),
			DatabaseURL: os.Getenv("CARDFORGE_CACHE_DATABASE_URL"),
		},
		Render: RenderConfig{
			DPI:        envInt("CARDFORGE_DPI", 300),
			MaxWorkers: envInt("CARDFORGE_MAX_WORKERS", 0),
			GPU:        envBool("CARDFORGE_GPU", false),
		},
		Server: ServerConfig{
			Addr: envString("CARDFORGE_LISTEN_ADDR", ":8080"),
		},
		Presets: presets,
	}
}

// PagePreset returns a named page preset, falling back to letter for
// unknown names.
func (c *Config) PagePreset(name string) PagePreset {
	if p, ok := c.Presets.Pages[name]; ok {
		return p
	}
	return c.Presets.Pages["letter"]
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".cardforge-cache"
	}
	return base + "/cardforge"
}
