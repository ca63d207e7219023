package segread

import (
	"log/slog"

	"github.com/hupe1980/segread/blobstore"
	"github.com/hupe1980/segread/blobstore/s3"
	"github.com/hupe1980/segread/internal/fs"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	blobStore        blobstore.BlobStore
	ddbClient        s3.DDBClient
	fileSystem       fs.FileSystem
}

// Option configures Open.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &segread.BasicMetricsCollector{}
//	node, _ := segread.Open(ctx, cfg, segread.WithMetricsCollector(metrics))
//	// ... use node ...
//	stats := metrics.GetStats()
//	fmt.Printf("Merges: %d, Avg latency: %dns\n", stats.MergeCount, stats.MergeAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations. Without it the
// node builds a logger from the log section of the configuration.
//
// Example with JSON logging:
//
//	logger := segread.NewJSONLogger(slog.LevelInfo)
//	node, _ := segread.Open(ctx, cfg, segread.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBlobStore serves directories from store instead of the configured
// backend. The block cache and resource limits still apply.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithDDBClient uses client for DynamoDB native locks instead of one built
// from the default AWS configuration. Only used when
// directory.s3.lockTable is set.
func WithDDBClient(client s3.DDBClient) Option {
	return func(o *options) {
		o.ddbClient = client
	}
}

// WithFileSystem replaces the file system used by the fs backend, e.g. with
// an fs.FaultyFS in tests.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fileSystem = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}
