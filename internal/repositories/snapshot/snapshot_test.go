package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	"github.com/KirkDiggler/rpg-compendium/internal/repositories/snapshot"
	"github.com/KirkDiggler/rpg-compendium/internal/testutils"
)

var generatedAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func arsenalSnapshot() *compendium.Snapshot {
	s := testutils.CreateTestArsenal()
	s.GeneratedAt = generatedAt
	return s
}

type DecodeTestSuite struct {
	suite.Suite
}

func TestDecodeSuite(t *testing.T) {
	suite.Run(t, new(DecodeTestSuite))
}

func (s *DecodeTestSuite) TestRoundTrip() {
	data, err := snapshot.Encode(arsenalSnapshot())
	s.Require().NoError(err)

	out, report, err := snapshot.Decode(data)
	s.Require().NoError(err)
	s.True(report.OK(), "warnings: %v", report.Warnings)
	s.True(generatedAt.Equal(out.GeneratedAt))
	s.Equal("test-1", out.CacheVersion)
	s.Len(out.Packs, 3)

	longsword := out.Packs["weapons"].Documents["w-longsword"]
	s.Require().NotNil(longsword)
	copper, ok := longsword.PriceCopper()
	s.True(ok)
	s.Equal(1500, copper)
	s.Equal([]string{"weapons", "weapons-ru"}, out.PacksByType["weapon"])
}

func (s *DecodeTestSuite) TestReportsFieldProblems() {
	testCases := []struct {
		name     string
		json     string
		warnings []string
	}{
		{
			name: "all missing",
			json: `{}`,
			warnings: []string{
				"generatedAt: missing",
				"cacheVersion: missing",
				"packs: missing",
				"packsByType: missing, derived from packs",
			},
		},
		{
			name: "empty values",
			json: `{"generatedAt":"","cacheVersion":"","packs":{},"packsByType":{}}`,
			warnings: []string{
				"generatedAt: empty",
				"cacheVersion: empty",
				"packs: empty",
				"packsByType: empty, derived from packs",
			},
		},
		{
			name:     "bad timestamp",
			json:     `{"generatedAt":"yesterday","cacheVersion":"v","packs":{"a":{"entries":[]}},"packsByType":{"weapon":["a"]}}`,
			warnings: []string{`generatedAt: unparseable "yesterday"`},
		},
		{
			name:     "packs as array",
			json:     `{"generatedAt":"2025-03-14T09:30:00Z","cacheVersion":"v1","packs":[]}`,
			warnings: []string{"packs: invalid, ignored", "packsByType: missing, derived from packs"},
		},
		{
			name:     "wrong scalar types",
			json:     `{"generatedAt":12,"cacheVersion":true,"packs":{"a":{"entries":[]}},"packsByType":"weapon"}`,
			warnings: []string{"generatedAt: invalid, ignored", "cacheVersion: invalid, ignored", "packsByType: invalid, ignored"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			out, report, err := snapshot.Decode([]byte(tc.json))
			s.Require().NoError(err)
			s.Require().NotNil(out)
			s.NotNil(out.Packs)
			s.Equal(tc.warnings, report.Warnings)
		})
	}
}

func (s *DecodeTestSuite) TestDerivesPacksByType() {
	data := []byte(`{"generatedAt":"2025-03-14T09:30:00Z","cacheVersion":"v","packs":{
		"bows":{"label":"Bows","entries":[{"id":"b1","type":"weapon","name":"Longbow"}]},
		"kits":{"label":"Kits","entries":[{"id":"k1","type":"tool","name":"Thieves' Tools"},{"id":"k2","type":"weapon","name":"Sling"}]}
	}}`)

	out, report, err := snapshot.Decode(data)
	s.Require().NoError(err)
	s.Equal([]string{"packsByType: missing, derived from packs"}, report.Warnings)
	s.Equal([]string{"bows", "kits"}, out.PacksByType["weapon"])
	s.Equal([]string{"kits"}, out.PacksByType["tool"])
}

func (s *DecodeTestSuite) TestKeepsGoodFieldsBesideBadOnes() {
	data := []byte(`{"generatedAt":"2025-03-14T09:30:00Z","cacheVersion":"v1",
		"packs":{"bows":{"label":"Bows","entries":[{"id":"b1","type":"weapon","name":"Longbow"}]}},
		"packsByType":[1,2]}`)

	out, report, err := snapshot.Decode(data)
	s.Require().NoError(err)
	s.Equal([]string{"packsByType: invalid, ignored"}, report.Warnings)
	s.Equal("v1", out.CacheVersion)
	s.False(out.GeneratedAt.IsZero())
	s.Contains(out.Packs, "bows")
	s.Equal([]string{"bows"}, out.PacksByType["weapon"])
}

func (s *DecodeTestSuite) TestRejectsNonJSON() {
	_, _, err := snapshot.Decode([]byte("not json"))
	s.Require().Error(err)
	s.True(errors.IsDataLoss(err))

	_, _, err = snapshot.Decode([]byte(`["not","an","object"]`))
	s.Require().Error(err)
	s.True(errors.IsDataLoss(err))

	_, err = snapshot.Encode(nil)
	s.True(errors.IsInvalidArgument(err))
}

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr   *miniredis.Miniredis
	repo snapshot.Repository
	ctx  context.Context
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, mr := testutils.CreateTestRedisClient(s.T())
	s.mr = mr
	s.ctx = context.Background()

	repo, err := snapshot.NewRedis(&snapshot.RedisConfig{Client: client})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TestNewRedis() {
	_, err := snapshot.NewRedis(nil)
	s.Error(err)

	_, err = snapshot.NewRedis(&snapshot.RedisConfig{})
	s.Error(err)
}

func (s *RedisRepositoryTestSuite) TestLoadEmpty() {
	_, err := s.repo.Load(s.ctx, &snapshot.LoadInput{})
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestSaveThenLoad() {
	saved, err := s.repo.Save(s.ctx, &snapshot.SaveInput{Snapshot: arsenalSnapshot()})
	s.Require().NoError(err)
	s.Positive(saved.Bytes)
	s.True(s.mr.Exists(snapshot.DefaultRedisKey))

	out, err := s.repo.Load(s.ctx, &snapshot.LoadInput{})
	s.Require().NoError(err)
	s.True(out.Report.OK())
	s.Equal(7, out.Snapshot.DocumentCount())
}

func (s *RedisRepositoryTestSuite) TestLoadCorrupt() {
	s.Require().NoError(s.mr.Set(snapshot.DefaultRedisKey, "{"))

	_, err := s.repo.Load(s.ctx, &snapshot.LoadInput{})
	s.True(errors.IsDataLoss(err))
}

func (s *RedisRepositoryTestSuite) TestSaveNil() {
	_, err := s.repo.Save(s.ctx, &snapshot.SaveInput{})
	s.True(errors.IsInvalidArgument(err))
}

type FileRepositoryTestSuite struct {
	suite.Suite
	path string
	repo *snapshot.FileRepository
	ctx  context.Context
}

func TestFileRepositorySuite(t *testing.T) {
	suite.Run(t, new(FileRepositoryTestSuite))
}

func (s *FileRepositoryTestSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "nested", "compendium-cache.json")
	s.ctx = context.Background()

	repo, err := snapshot.NewFile(&snapshot.FileConfig{Path: s.path})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *FileRepositoryTestSuite) TestLoadMissingFile() {
	_, err := s.repo.Load(s.ctx, &snapshot.LoadInput{})
	s.True(errors.IsNotFound(err))
}

func (s *FileRepositoryTestSuite) TestSaveCreatesDirectoryAndReplaces() {
	_, err := s.repo.Save(s.ctx, &snapshot.SaveInput{Snapshot: arsenalSnapshot()})
	s.Require().NoError(err)

	next := arsenalSnapshot()
	next.CacheVersion = "test-2"
	_, err = s.repo.Save(s.ctx, &snapshot.SaveInput{Snapshot: next})
	s.Require().NoError(err)

	out, err := s.repo.Load(s.ctx, &snapshot.LoadInput{})
	s.Require().NoError(err)
	s.Equal("test-2", out.Snapshot.CacheVersion)

	entries, err := os.ReadDir(filepath.Dir(s.path))
	s.Require().NoError(err)
	s.Len(entries, 1, "temp files must not be left behind")
}

func (s *FileRepositoryTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.repo.Save(ctx, &snapshot.SaveInput{Snapshot: arsenalSnapshot()})
	s.True(errors.IsCanceled(err))
}

func (s *FileRepositoryTestSuite) TestDefaultPath() {
	s.T().Setenv("HOME", s.T().TempDir())

	repo, err := snapshot.NewFile(&snapshot.FileConfig{})
	s.Require().NoError(err)
	s.Equal(filepath.Join(os.Getenv("HOME"), ".rpg-compendium", "compendium-cache.json"), repo.Path())
}
