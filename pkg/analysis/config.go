package analysis

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dtg01100/jar2appimage/pkg/archive"
	"github.com/dtg01100/jar2appimage/pkg/resolve"
)

// Config is the on-disk configuration for analysis runs, read from a
// TOML file. Zero values fall back to the built-in defaults.
//
//	workers = 4
//	timeout = "45s"
//	ignored-prefixes = ["java/", "kotlin/"]
//
//	[resolution]
//	platform = "linux"
//	strategy = "LATEST_VERSION"
//	max-depth = 10
//	include-native = true
//
//	[cache]
//	backend = "file"      # file | memory | redis | none
//	dir = "~/.cache/jar2appimage"
//	redis-addr = "localhost:6379"
type Config struct {
	Workers         int      `toml:"workers"`
	Timeout         duration `toml:"timeout"`
	IgnoredPrefixes []string `toml:"ignored-prefixes"`

	Resolution struct {
		Platform      string `toml:"platform"`
		Strategy      string `toml:"strategy"`
		MaxDepth      int    `toml:"max-depth"`
		IncludeNative bool   `toml:"include-native"`
	} `toml:"resolution"`

	Cache struct {
		Backend   string   `toml:"backend"`
		Dir       string   `toml:"dir"`
		TTL       duration `toml:"ttl"`
		RedisAddr string   `toml:"redis-addr"`
		RedisDB   int      `toml:"redis-db"`
	} `toml:"cache"`
}

// duration supports "30s"-style strings in TOML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// LoadConfig reads the configuration from path. A missing file yields
// the zero Config without error, so running unconfigured always works.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ResolutionContext converts the configured resolution section into a
// resolver context, leaving defaults to the resolver.
func (c Config) ResolutionContext() resolve.Context {
	return resolve.Context{
		Platform:      platformFromString(c.Resolution.Platform),
		Strategy:      resolve.Strategy(c.Resolution.Strategy),
		MaxDepth:      c.Resolution.MaxDepth,
		IncludeNative: c.Resolution.IncludeNative,
	}
}

func platformFromString(s string) archive.Platform {
	switch s {
	case "windows", "win":
		return archive.PlatformWindows
	case "macos", "darwin", "osx":
		return archive.PlatformMacOS
	case "any":
		return archive.PlatformAny
	case "linux":
		return archive.PlatformLinux
	default:
		return ""
	}
}

// Options converts the configuration into orchestrator options.
// The cache backend is constructed separately by the caller.
func (c Config) Options() Options {
	return Options{
		Workers:         c.Workers,
		Timeout:         c.Timeout.Duration,
		IgnoredPrefixes: c.IgnoredPrefixes,
		CacheTTL:        c.Cache.TTL.Duration,
	}
}
