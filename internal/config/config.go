// Package config loads the compendium's data tables and runtime settings
// from TOML: an embedded default, optionally overlaid by a file on disk.
package config

import (
	_ "embed"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/budget"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

//go:embed default.toml
var defaultTOML []byte

// Snapshot backends
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Duration decodes Go duration strings such as "5s"
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full configuration document
type Config struct {
	Locale     string                `toml:"locale"`
	Server     Server                `toml:"server"`
	Resolution Resolution            `toml:"resolution"`
	Search     Search                `toml:"search"`
	Budget     map[string]BudgetTier `toml:"budget"`
	Cache      Cache                 `toml:"cache"`
	Snapshot   Snapshot              `toml:"snapshot"`
	Host       Host                  `toml:"host"`
}

// Server holds gRPC listener settings
type Server struct {
	Port    int    `toml:"port"`
	// GMToken gates the gm role header; empty trusts the header
	GMToken string `toml:"gm_token"`
}

// Resolution tunes the matching pipeline
type Resolution struct {
	Concurrency        int      `toml:"concurrency"`
	MaxReferenceLength int      `toml:"max_reference_length"`
	HostTimeout        Duration `toml:"host_timeout"`
	FuzzyThreshold     float64  `toml:"fuzzy_threshold"`
}

// Search holds normalization data
type Search struct {
	TokenCacheSize int               `toml:"token_cache_size"`
	LookupMaxKeys  int               `toml:"lookup_max_keys"`
	ScriptOrder    []string          `toml:"script_order"`
	ScriptPatterns map[string]string `toml:"script_patterns"`
	Aliases        [][]string        `toml:"aliases"`
}

// BudgetTier is one tier row; magic bounds are optional
type BudgetTier struct {
	Min      int         `toml:"min"`
	Max      int         `toml:"max"`
	MagicMin *int        `toml:"magic_min"`
	MagicMax *int        `toml:"magic_max"`
	Band     budget.Band `toml:"band"`
}

// Cache configures the cache builder
type Cache struct {
	Concurrency     int      `toml:"concurrency"`
	HostTimeout     Duration `toml:"host_timeout"`
	SystemVersion   string   `toml:"system_version"`
	CollectionTypes []string `toml:"collection_types"`
	CacheableTypes  []string `toml:"cacheable_types"`
}

// Snapshot selects and configures the snapshot store
type Snapshot struct {
	Backend       string   `toml:"backend"`
	Path          string   `toml:"path"`
	Watch         bool     `toml:"watch"`
	WatchDebounce Duration `toml:"watch_debounce"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisKey      string   `toml:"redis_key"`
}

// Host configures the D&D 5e SRD host store
type Host struct {
	BaseURL           string   `toml:"base_url"`
	HTTPTimeout       Duration `toml:"http_timeout"`
	CacheTTL          Duration `toml:"cache_ttl"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Concurrency       int      `toml:"concurrency"`
}

// Default returns the embedded configuration
func Default() (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(defaultTOML, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode embedded config")
	}
	return cfg, nil
}

// Load decodes the embedded defaults, overlays the file at path when given
// and validates the result
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NotFoundf("config file %s not found", path)
			}
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapWithCodef(err, errors.CodeInvalidArgument, "failed to parse %s", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the document
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		vb.InvalidField("server.port", "must be a TCP port")
	}
	if c.Resolution.Concurrency <= 0 {
		vb.InvalidField("resolution.concurrency", "must be positive")
	}
	if c.Resolution.MaxReferenceLength <= 0 {
		vb.InvalidField("resolution.max_reference_length", "must be positive")
	}
	if c.Resolution.HostTimeout <= 0 {
		vb.InvalidField("resolution.host_timeout", "must be positive")
	}
	if c.Resolution.FuzzyThreshold <= 0 || c.Resolution.FuzzyThreshold > 1 {
		vb.InvalidField("resolution.fuzzy_threshold", "must be in (0, 1]")
	}
	if c.Cache.Concurrency <= 0 {
		vb.InvalidField("cache.concurrency", "must be positive")
	}
	if _, err := c.CacheableTypes(); err != nil {
		vb.InvalidField("cache.cacheable_types", err.Error())
	}
	for _, name := range c.Search.ScriptOrder {
		if _, ok := c.Search.ScriptPatterns[name]; !ok {
			vb.Fieldf("search.script_order", "script %q has no pattern", name)
		}
	}

	switch c.Snapshot.Backend {
	case BackendFile:
	case BackendRedis:
		if c.Snapshot.RedisAddr == "" {
			vb.RequiredField("snapshot.redis_addr")
		}
	default:
		vb.InvalidField("snapshot.backend", "must be file or redis")
	}

	if err := c.BudgetTable().Validate(); err != nil {
		vb.InvalidField("budget", errors.GetMessage(err))
	}
	if _, err := search.NewNormalizer(c.SearchConfig()); err != nil {
		vb.InvalidField("search", errors.GetMessage(err))
	}

	return vb.Build()
}

// BudgetTable converts the budget rows. Unknown tier names are ignored.
func (c *Config) BudgetTable() budget.Table {
	table := make(budget.Table, len(c.Budget))
	for name, row := range c.Budget {
		tier, err := compendium.ParseBudgetTier(name)
		if err != nil {
			continue
		}
		rule := budget.TierRule{
			Range: compendium.PriceRange{Min: row.Min, Max: row.Max},
			Band:  row.Band,
		}
		if row.MagicMin != nil && row.MagicMax != nil {
			rule.MagicRange = &compendium.PriceRange{Min: *row.MagicMin, Max: *row.MagicMax}
		}
		table[tier] = rule
	}
	return table
}

// SearchConfig converts the search section
func (c *Config) SearchConfig() *search.Config {
	cfg := &search.Config{
		AliasGroups:    c.Search.Aliases,
		TokenCacheSize: c.Search.TokenCacheSize,
	}
	if len(c.Search.ScriptPatterns) > 0 {
		cfg.ScriptPatterns = make(map[search.Script]string, len(c.Search.ScriptPatterns))
		for name, pattern := range c.Search.ScriptPatterns {
			cfg.ScriptPatterns[search.Script(name)] = pattern
		}
	}
	for _, name := range c.Search.ScriptOrder {
		cfg.ScriptOrder = append(cfg.ScriptOrder, search.Script(name))
	}
	return cfg
}

// CacheableTypes parses the cacheable type allow-list
func (c *Config) CacheableTypes() ([]compendium.DocumentType, error) {
	out := make([]compendium.DocumentType, 0, len(c.Cache.CacheableTypes))
	for _, name := range c.Cache.CacheableTypes {
		t, ok := compendium.ParseDocumentType(name)
		if !ok {
			return nil, errors.InvalidArgumentf("unknown document type %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}
