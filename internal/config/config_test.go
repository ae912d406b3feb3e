package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-compendium/internal/config"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/budget"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *ConfigTestSuite) write(body string) string {
	path := filepath.Join(s.dir, "compendium.toml")
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (s *ConfigTestSuite) TestEmbeddedDefaults() {
	cfg, err := config.Load("")
	s.Require().NoError(err)

	s.Equal("en", cfg.Locale)
	s.Equal(4, cfg.Resolution.Concurrency)
	s.Equal(5*time.Second, cfg.Resolution.HostTimeout.Std())
	s.Equal(config.BackendFile, cfg.Snapshot.Backend)
	s.Equal(500*time.Millisecond, cfg.Snapshot.WatchDebounce.Std())
	s.Empty(cfg.Server.GMToken)

	types, err := cfg.CacheableTypes()
	s.Require().NoError(err)
	s.ElementsMatch(compendium.AllTypes, types)
}

func (s *ConfigTestSuite) TestBudgetTableMatchesBuiltin() {
	cfg, err := config.Default()
	s.Require().NoError(err)
	s.Equal(budget.DefaultTable(), cfg.BudgetTable())
}

func (s *ConfigTestSuite) TestSearchConfigBuildsNormalizer() {
	cfg, err := config.Default()
	s.Require().NoError(err)

	n, err := search.NewNormalizer(cfg.SearchConfig())
	s.Require().NoError(err)
	s.Contains(n.Expand("Стрелы"), "arrows")
	s.Equal(search.ScriptCyrillic, n.DetectScript("Полулаты"))
}

func (s *ConfigTestSuite) TestFileOverlay() {
	path := s.write(`
locale = "ru"

[server]
gm_token = "s3cret"

[snapshot]
backend = "redis"
redis_addr = "cache:6379"

[resolution]
host_timeout = "750ms"
`)

	cfg, err := config.Load(path)
	s.Require().NoError(err)
	s.Equal("ru", cfg.Locale)
	s.Equal(config.BackendRedis, cfg.Snapshot.Backend)
	s.Equal("cache:6379", cfg.Snapshot.RedisAddr)
	s.Equal(750*time.Millisecond, cfg.Resolution.HostTimeout.Std())
	s.Equal(4, cfg.Resolution.Concurrency, "untouched keys keep defaults")
	s.Equal("compendium:snapshot", cfg.Snapshot.RedisKey)
	s.Equal("s3cret", cfg.Server.GMToken)
	s.Equal(50051, cfg.Server.Port)
}

func (s *ConfigTestSuite) TestInvalidDocuments() {
	testCases := []struct {
		name  string
		body  string
		field string
	}{
		{name: "bad backend", body: "[snapshot]\nbackend = \"s3\"\n", field: "snapshot.backend"},
		{name: "bad type", body: "[cache]\ncacheable_types = [\"weapon\", \"vehicle\"]\n", field: "cache.cacheable_types"},
		{name: "zero concurrency", body: "[resolution]\nconcurrency = 0\n", field: "resolution.concurrency"},
		{name: "bad pattern", body: "[search.script_patterns]\nlatin = '['\n", field: "search"},
		{name: "missing pattern", body: "[search]\nscript_order = [\"latin\", \"greek\"]\n", field: "search.script_order"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := config.Load(s.write(tc.body))
			s.Require().Error(err)
			s.True(errors.IsInvalidArgument(err))
			s.Contains(err.Error(), tc.field)
		})
	}
}

func (s *ConfigTestSuite) TestUnparseableDuration() {
	_, err := config.Load(s.write("[resolution]\nhost_timeout = \"soon\"\n"))
	s.True(errors.IsInvalidArgument(err))
}

func (s *ConfigTestSuite) TestMissingFile() {
	_, err := config.Load(filepath.Join(s.dir, "nope.toml"))
	s.True(errors.IsNotFound(err))
}
