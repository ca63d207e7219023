// Package config loads segread settings from a YAML file and SEGREAD_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/segread/directory"
	"github.com/hupe1980/segread/ordinal"
)

// EnvPrefix prefixes every environment override, e.g.
// SEGREAD_DIRECTORY_LOCKTYPE=single.
const EnvPrefix = "SEGREAD"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Backend names where directories live.
type Backend string

const (
	// BackendFS opens directories on the local filesystem.
	BackendFS Backend = "fs"
	// BackendMemory keeps directories in process memory.
	BackendMemory Backend = "memory"
	// BackendLocal stores directories as blobs under a local root.
	BackendLocal Backend = "local"
	// BackendS3 stores directories in an S3 bucket.
	BackendS3 Backend = "s3"
	// BackendMinIO stores directories on a MinIO or S3-compatible endpoint.
	BackendMinIO Backend = "minio"
)

// ParseBackend resolves a backend name case-insensitively.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendFS, BackendMemory, BackendLocal, BackendS3, BackendMinIO:
		return b, nil
	default:
		return "", fmt.Errorf("%w: unknown backend %q", ErrInvalid, s)
	}
}

// IsBlob reports whether b stores directories through a blob store.
func (b Backend) IsBlob() bool {
	return b == BackendLocal || b == BackendS3 || b == BackendMinIO
}

// Config is the full node configuration.
type Config struct {
	Directory DirectoryConfig `mapstructure:"directory"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Resource  ResourceConfig  `mapstructure:"resource"`
	Ordinals  OrdinalsConfig  `mapstructure:"ordinals"`
	Log       LogConfig       `mapstructure:"log"`
}

// DirectoryConfig selects the storage backend and default lock strategy.
type DirectoryConfig struct {
	Backend string `mapstructure:"backend"`
	// Root is the filesystem root for fs and local, or a key prefix for
	// s3 and minio.
	Root     string      `mapstructure:"root"`
	LockType string      `mapstructure:"lockType"`
	MMap     bool        `mapstructure:"mmap"`
	S3       S3Config    `mapstructure:"s3"`
	MinIO    MinIOConfig `mapstructure:"minio"`
}

// S3Config describes the S3 backend. LockTable enables DynamoDB-backed
// native locks.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	LockTable string `mapstructure:"lockTable"`
}

// MinIOConfig describes the MinIO backend.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Secure    bool   `mapstructure:"secure"`
}

// CacheConfig sizes the block cache in front of blob backends. A zero
// MemoryBytes disables caching.
type CacheConfig struct {
	MemoryBytes int64  `mapstructure:"memoryBytes"`
	Sharded     bool   `mapstructure:"sharded"`
	BlockSize   int64  `mapstructure:"blockSize"`
	DiskDir     string `mapstructure:"diskDir"`
	DiskBytes   int64  `mapstructure:"diskBytes"`
}

// ResourceConfig bounds cache memory, concurrent block fetches and remote IO.
type ResourceConfig struct {
	MemoryLimitBytes     int64 `mapstructure:"memoryLimitBytes"`
	IOLimitBytesPerSec   int64 `mapstructure:"ioLimitBytesPerSec"`
	MaxConcurrentFetches int64 `mapstructure:"maxConcurrentFetches"`
}

// OrdinalsConfig controls how ordinal files are written.
type OrdinalsConfig struct {
	// Compression is none, lz4 or zstd.
	Compression string `mapstructure:"compression"`
}

// CompressionType parses Compression.
func (o OrdinalsConfig) CompressionType() (ordinal.Compression, error) {
	switch strings.ToLower(o.Compression) {
	case "none", "":
		return ordinal.CompressionNone, nil
	case "lz4":
		return ordinal.CompressionLZ4, nil
	case "zstd":
		return ordinal.CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: ordinals.compression %q", ErrInvalid, o.Compression)
	}
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directory.backend", string(BackendFS))
	v.SetDefault("directory.root", ".")
	v.SetDefault("directory.lockType", string(directory.LockNative))
	v.SetDefault("directory.mmap", true)
	v.SetDefault("directory.s3.bucket", "")
	v.SetDefault("directory.s3.region", "")
	v.SetDefault("directory.s3.endpoint", "")
	v.SetDefault("directory.s3.lockTable", "")
	v.SetDefault("directory.minio.endpoint", "")
	v.SetDefault("directory.minio.bucket", "")
	v.SetDefault("directory.minio.region", "")
	v.SetDefault("directory.minio.accessKey", "")
	v.SetDefault("directory.minio.secretKey", "")
	v.SetDefault("directory.minio.secure", true)

	v.SetDefault("cache.memoryBytes", 64<<20)
	v.SetDefault("cache.sharded", true)
	v.SetDefault("cache.blockSize", 1<<20)
	v.SetDefault("cache.diskDir", "")
	v.SetDefault("cache.diskBytes", 0)

	v.SetDefault("resource.memoryLimitBytes", 0)
	v.SetDefault("resource.ioLimitBytesPerSec", 0)
	v.SetDefault("resource.maxConcurrentFetches", 8)

	v.SetDefault("ordinals.compression", "zstd")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads path, or segread.yaml from the working directory when path is
// empty, applies SEGREAD_ environment overrides and validates the result.
// A missing segread.yaml is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("segread")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks names and limits eagerly so that misconfiguration fails
// at startup.
func (c *Config) Validate() error {
	var errs []error

	backend, err := ParseBackend(c.Directory.Backend)
	if err != nil {
		errs = append(errs, err)
	}
	if _, err := directory.ParseLockType(c.Directory.LockType); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}

	switch backend {
	case BackendS3:
		if c.Directory.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("%w: directory.s3.bucket is required", ErrInvalid))
		}
	case BackendMinIO:
		if c.Directory.MinIO.Endpoint == "" || c.Directory.MinIO.Bucket == "" {
			errs = append(errs, fmt.Errorf("%w: directory.minio.endpoint and bucket are required", ErrInvalid))
		}
	case BackendFS, BackendLocal:
		if c.Directory.Root == "" {
			errs = append(errs, fmt.Errorf("%w: directory.root is required", ErrInvalid))
		}
	}

	if c.Cache.MemoryBytes < 0 || c.Cache.DiskBytes < 0 || c.Cache.BlockSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache sizes must not be negative", ErrInvalid))
	}
	if c.Cache.MemoryBytes > 0 && c.Cache.BlockSize == 0 {
		errs = append(errs, fmt.Errorf("%w: cache.blockSize is required with a cache", ErrInvalid))
	}
	if c.Cache.DiskBytes > 0 && c.Cache.DiskDir == "" {
		errs = append(errs, fmt.Errorf("%w: cache.diskDir is required with cache.diskBytes", ErrInvalid))
	}
	if c.Resource.MemoryLimitBytes < 0 || c.Resource.IOLimitBytesPerSec < 0 || c.Resource.MaxConcurrentFetches < 0 {
		errs = append(errs, fmt.Errorf("%w: resource limits must not be negative", ErrInvalid))
	}

	if _, err := c.Ordinals.CompressionType(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format))
	}

	return errors.Join(errs...)
}

// BackendType returns the parsed backend. Call Validate first.
func (c *Config) BackendType() Backend {
	b, _ := ParseBackend(c.Directory.Backend)
	return b
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, l.Level)
	}
	return level, nil
}
