// Package config loads blz's layered configuration: a global TOML file,
// optional per-source settings.toml overrides, and environment variable
// overrides on top of both.
//
// A plain struct is decoded from the config file, then mutated in place by
// a second pass reading os.Getenv -- the same two-pass shape used
// elsewhere in this codebase for layering config sources, retargeted here
// from YAML to TOML via github.com/pelletier/go-toml/v2.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/outfitter-dev/blz/internal/blzerr"
)

// Config is the global configuration schema, read by Load from the given
// path (default ~/.blz/config.toml).
type Config struct {
	Root              string        `toml:"root"`
	RefreshInterval   time.Duration `toml:"refresh_interval"`
	ArchiveRetention  int           `toml:"archive_retention"`
	FetchEnabled      bool          `toml:"fetch_enabled"`
	FollowLinks       bool          `toml:"follow_links"`
	MaxConcurrentOps  int           `toml:"max_concurrent_ops"`
	FetchTimeout      time.Duration `toml:"fetch_timeout"`
	UserAgent         string        `toml:"user_agent"`
	AllowNonEnglish   bool          `toml:"allow_non_english"`
}

// Defaults returns the built-in defaults used when no config file exists
// and no override applies: archive retention of 10 generations, 3
// concurrent fetch operations, and a 30-second fetch timeout.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Root:             filepath.Join(home, ".blz", "sources"),
		RefreshInterval:  24 * time.Hour,
		ArchiveRetention: 10,
		FetchEnabled:     true,
		FollowLinks:      false,
		MaxConcurrentOps: 3,
		FetchTimeout:     30 * time.Second,
		UserAgent:        "blz/1.0 (+https://github.com/outfitter-dev/blz)",
		AllowNonEnglish:  false,
	}
}

// Load reads the global config file at path, falling back to Defaults for
// any field the file leaves unset, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".blz", "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, blzerr.Wrap(blzerr.FileSystem, "read config file", err)
	}

	var fromFile Config
	if err := toml.Unmarshal(data, &fromFile); err != nil {
		return cfg, blzerr.Wrap(blzerr.ParseError, "decode config file", err)
	}
	mergeNonZero(&cfg, &fromFile)
	ApplyEnvOverrides(&cfg)
	return cfg, nil
}

// mergeNonZero overwrites dst fields with src fields that were actually
// set in the decoded TOML (non-zero-value), leaving Defaults() values
// otherwise.
func mergeNonZero(dst, src *Config) {
	if src.Root != "" {
		dst.Root = src.Root
	}
	if src.RefreshInterval != 0 {
		dst.RefreshInterval = src.RefreshInterval
	}
	if src.ArchiveRetention != 0 {
		dst.ArchiveRetention = src.ArchiveRetention
	}
	dst.FetchEnabled = src.FetchEnabled || dst.FetchEnabled
	dst.FollowLinks = src.FollowLinks || dst.FollowLinks
	if src.MaxConcurrentOps != 0 {
		dst.MaxConcurrentOps = src.MaxConcurrentOps
	}
	if src.FetchTimeout != 0 {
		dst.FetchTimeout = src.FetchTimeout
	}
	if src.UserAgent != "" {
		dst.UserAgent = src.UserAgent
	}
	dst.AllowNonEnglish = src.AllowNonEnglish || dst.AllowNonEnglish
}

// ApplyEnvOverrides forcefully overrides cfg fields with BLZ_* environment
// variables when set, giving env the final say over file-provided values.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv("BLZ_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("BLZ_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RefreshInterval = d
		}
	}
	if v := os.Getenv("BLZ_ARCHIVE_RETENTION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArchiveRetention = n
		}
	}
	if v := os.Getenv("BLZ_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.FetchTimeout = d
		}
	}
	if v := os.Getenv("BLZ_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	setBool(&cfg.FetchEnabled, "BLZ_FETCH_ENABLED")
	setBool(&cfg.FollowLinks, "BLZ_FOLLOW_LINKS")
	setBool(&cfg.AllowNonEnglish, "BLZ_ALLOW_NON_ENGLISH")
	if v := os.Getenv("BLZ_MAX_CONCURRENT_OPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentOps = n
		}
	}
}

func setBool(dst *bool, envKey string) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(envKey)))
	if v == "" {
		return
	}
	*dst = v == "1" || v == "true" || v == "yes" || v == "on"
}

// SourceOverrides mirrors Config's overridable fields for a single
// source's settings.toml. Zero values mean "inherit the global config".
type SourceOverrides struct {
	RefreshInterval  time.Duration `toml:"refresh_interval,omitempty"`
	ArchiveRetention int           `toml:"archive_retention,omitempty"`
	FetchEnabled     *bool         `toml:"fetch_enabled,omitempty"`
	FollowLinks      *bool         `toml:"follow_links,omitempty"`
	AllowNonEnglish  *bool         `toml:"allow_non_english,omitempty"`
}

// LoadSourceOverrides reads a per-source settings.toml if present. A
// missing file yields a zero-value SourceOverrides (inherit everything).
func LoadSourceOverrides(path string) (SourceOverrides, error) {
	var o SourceOverrides
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return o, nil
		}
		return o, blzerr.Wrap(blzerr.FileSystem, "read source settings", err)
	}
	if err := toml.Unmarshal(data, &o); err != nil {
		return o, blzerr.Wrap(blzerr.ParseError, "decode source settings", err)
	}
	return o, nil
}

// Effective applies a SourceOverrides on top of the global Config,
// returning the per-source effective configuration.
func Effective(global Config, src SourceOverrides) Config {
	eff := global
	if src.RefreshInterval != 0 {
		eff.RefreshInterval = src.RefreshInterval
	}
	if src.ArchiveRetention != 0 {
		eff.ArchiveRetention = src.ArchiveRetention
	}
	if src.FetchEnabled != nil {
		eff.FetchEnabled = *src.FetchEnabled
	}
	if src.FollowLinks != nil {
		eff.FollowLinks = *src.FollowLinks
	}
	if src.AllowNonEnglish != nil {
		eff.AllowNonEnglish = *src.AllowNonEnglish
	}
	return eff
}
