package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hupe1980/segread/directory"
	"github.com/hupe1980/segread/ordinal"
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

func (s *ConfigTestSuite) write(content string) string {
	path := filepath.Join(s.dir, "segread.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := Load("")
	s.Require().NoError(err)

	s.Equal(BackendFS, cfg.BackendType())
	s.Equal(".", cfg.Directory.Root)
	s.Equal(string(directory.LockNative), cfg.Directory.LockType)
	s.True(cfg.Directory.MMap)
	s.Equal(int64(64<<20), cfg.Cache.MemoryBytes)
	s.Equal(int64(1<<20), cfg.Cache.BlockSize)
	s.Equal(int64(8), cfg.Resource.MaxConcurrentFetches)
	s.Equal("text", cfg.Log.Format)
	c, err := cfg.Ordinals.CompressionType()
	s.Require().NoError(err)
	s.Equal(ordinal.CompressionZstd, c)

	s.Equal(cfg, Default())
}

func (s *ConfigTestSuite) TestFile() {
	path := s.write(`
directory:
  backend: S3
  root: indexes/prod
  lockType: simple
  s3:
    bucket: search-data
    region: eu-west-1
    lockTable: segread-locks
cache:
  memoryBytes: 1048576
  diskDir: /var/cache/segread
  diskBytes: 10485760
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal(BackendS3, cfg.BackendType())
	s.True(cfg.BackendType().IsBlob())
	s.Equal("indexes/prod", cfg.Directory.Root)
	s.Equal("simple", cfg.Directory.LockType)
	s.Equal("search-data", cfg.Directory.S3.Bucket)
	s.Equal("segread-locks", cfg.Directory.S3.LockTable)
	s.Equal(int64(1<<20), cfg.Cache.MemoryBytes)
	s.Equal(int64(10<<20), cfg.Cache.DiskBytes)

	level, err := cfg.Log.SlogLevel()
	s.Require().NoError(err)
	s.Equal(slog.LevelDebug, level)
}

func (s *ConfigTestSuite) TestEnvOverrides() {
	path := s.write("directory:\n  lockType: simple\n")
	s.T().Setenv("SEGREAD_DIRECTORY_LOCKTYPE", "single")
	s.T().Setenv("SEGREAD_RESOURCE_IOLIMITBYTESPERSEC", "2048")

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("single", cfg.Directory.LockType)
	s.Equal(int64(2048), cfg.Resource.IOLimitBytesPerSec)
}

func (s *ConfigTestSuite) TestMissingExplicitFile() {
	_, err := Load(filepath.Join(s.dir, "nope.yaml"))
	s.Error(err)
}

func (s *ConfigTestSuite) TestInvalidLockTypeFailsLoad() {
	path := s.write("directory:\n  lockType: flock\n")
	_, err := Load(path)
	s.ErrorIs(err, ErrInvalid)
	s.ErrorIs(err, directory.ErrUnknownLockType)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"memory backend without root", func(c *Config) {
			c.Directory.Backend = "memory"
			c.Directory.Root = ""
		}, true},
		{"unknown backend", func(c *Config) { c.Directory.Backend = "ftp" }, false},
		{"unknown lock type", func(c *Config) { c.Directory.LockType = "flock" }, false},
		{"lock type case-insensitive", func(c *Config) { c.Directory.LockType = "NONE" }, true},
		{"s3 without bucket", func(c *Config) { c.Directory.Backend = "s3" }, false},
		{"minio without endpoint", func(c *Config) {
			c.Directory.Backend = "minio"
			c.Directory.MinIO.Bucket = "b"
		}, false},
		{"fs without root", func(c *Config) { c.Directory.Root = "" }, false},
		{"negative cache", func(c *Config) { c.Cache.MemoryBytes = -1 }, false},
		{"cache without block size", func(c *Config) { c.Cache.BlockSize = 0 }, false},
		{"disk cache without dir", func(c *Config) { c.Cache.DiskBytes = 1 }, false},
		{"negative io limit", func(c *Config) { c.Resource.IOLimitBytesPerSec = -5 }, false},
		{"negative fetch limit", func(c *Config) { c.Resource.MaxConcurrentFetches = -1 }, false},
		{"lz4 ordinals", func(c *Config) { c.Ordinals.Compression = "LZ4" }, true},
		{"unknown compression", func(c *Config) { c.Ordinals.Compression = "brotli" }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend(" MinIO ")
	require.NoError(t, err)
	assert.Equal(t, BackendMinIO, b)
	assert.True(t, b.IsBlob())
	assert.False(t, BackendFS.IsBlob())

	_, err = ParseBackend("")
	assert.ErrorIs(t, err, ErrInvalid)
}
