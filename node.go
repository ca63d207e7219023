package segread

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/segread/blobstore"
	"github.com/hupe1980/segread/blobstore/minio"
	"github.com/hupe1980/segread/blobstore/s3"
	"github.com/hupe1980/segread/config"
	"github.com/hupe1980/segread/directory"
	"github.com/hupe1980/segread/index"
	"github.com/hupe1980/segread/internal/cache"
	"github.com/hupe1980/segread/internal/resource"
	"github.com/hupe1980/segread/ordinal"
	"github.com/hupe1980/segread/search"
)

// Node owns the shared directory handles of one process together with the
// block cache and resource limits behind them.
type Node struct {
	cfg         *config.Config
	backend     config.Backend
	lockType    directory.LockType
	compression ordinal.Compression

	factory *directory.CachingFactory
	rc      *resource.Controller
	cache   cache.BlockCache

	metrics MetricsCollector
	logger  *Logger
}

// Open builds a node from cfg. A nil cfg uses config.Default().
func Open(ctx context.Context, cfg *config.Config, optFns ...Option) (*Node, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, translateError(err)
	}
	opts := applyOptions(optFns)

	if opts.logger == nil {
		level, _ := cfg.Log.SlogLevel()
		opts.logger = newLogger(os.Stderr, cfg.Log.Format, level)
	}

	lt, _ := directory.ParseLockType(cfg.Directory.LockType)
	compression, _ := cfg.Ordinals.CompressionType()

	n := &Node{
		cfg:         cfg,
		backend:     cfg.BackendType(),
		lockType:    lt,
		compression: compression,
		metrics:     opts.metricsCollector,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:     cfg.Resource.MemoryLimitBytes,
			MaxConcurrentFetches: cfg.Resource.MaxConcurrentFetches,
			IOLimitBytesPerSec:   cfg.Resource.IOLimitBytesPerSec,
		}),
	}
	if opts.blobStore != nil {
		n.backend = config.BackendLocal
	}
	n.logger = opts.logger.WithBackend(string(n.backend))

	c, err := n.openCache()
	if err != nil {
		return nil, err
	}
	n.cache = c

	create, normalize, err := n.creator(ctx, opts)
	if err != nil {
		if n.cache != nil {
			_ = n.cache.Close()
		}
		return nil, translateError(err)
	}
	n.factory = directory.NewCachingFactory(create,
		directory.WithLogger(n.logger.Logger),
		directory.WithNormalizer(normalize),
	)

	n.logger.InfoContext(ctx, "node opened",
		"lock_type", string(lt),
		"cache_bytes", cfg.Cache.MemoryBytes,
	)
	return n, nil
}

// openCache returns nil when caching is disabled.
func (n *Node) openCache() (cache.BlockCache, error) {
	cc := n.cfg.Cache
	if cc.MemoryBytes == 0 {
		return nil, nil
	}

	var mem cache.BlockCache
	if cc.Sharded {
		mem = cache.NewShardedLRUBlockCache(cc.MemoryBytes, n.rc)
	} else {
		mem = cache.NewLRUBlockCache(cc.MemoryBytes, n.rc)
	}
	if cc.DiskBytes == 0 {
		return mem, nil
	}

	disk, err := cache.NewDiskBlockCache(cache.DiskCacheConfig{
		RootDir:      cc.DiskDir,
		MaxSizeBytes: cc.DiskBytes,
	})
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("disk cache: %w", err)
	}
	return cache.NewTieredCache(mem, disk), nil
}

func (n *Node) creator(ctx context.Context, opts options) (directory.CreateFunc, func(string) (string, error), error) {
	dc := n.cfg.Directory

	switch n.backend {
	case config.BackendFS:
		fsOpts := []directory.FSOption{
			directory.WithMmap(dc.MMap),
			directory.WithReadAhead(index.OrdinalsExt),
		}
		if opts.fileSystem != nil {
			fsOpts = append(fsOpts, directory.WithFileSystem(opts.fileSystem))
		}
		create := func(_ context.Context, path string) (directory.Directory, error) {
			return directory.NewFSDirectory(path, fsOpts...)
		}
		normalize := func(path string) (string, error) {
			if path != "" && !filepath.IsAbs(path) {
				path = filepath.Join(dc.Root, path)
			}
			return directory.NormalizeFilePath(path)
		}
		return create, normalize, nil

	case config.BackendMemory:
		create := func(context.Context, string) (directory.Directory, error) {
			return directory.NewMemoryDirectory(), nil
		}
		return create, directory.NormalizeKeyPrefix, nil
	}

	store, native, err := n.openStore(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if n.cache != nil {
		store = blobstore.NewCachingStore(store, n.cache, n.cfg.Cache.BlockSize, blobstore.WithFetchLimit(n.rc))
	}

	create := func(_ context.Context, path string) (directory.Directory, error) {
		blobOpts := []directory.BlobOption{directory.WithResourceController(n.rc)}
		if native != nil {
			blobOpts = append(blobOpts, directory.WithNativeLockFactory(native.WithScope(dc.S3.Bucket+path)))
		}
		return directory.NewBlobDirectory(store, path, blobOpts...), nil
	}
	return create, directory.NormalizeKeyPrefix, nil
}

// openStore returns the blob store for the configured backend and, for S3
// with a lock table, the DynamoDB lock factory that scopes per directory.
func (n *Node) openStore(ctx context.Context, opts options) (blobstore.BlobStore, *s3.DDBLockFactory, error) {
	dc := n.cfg.Directory

	var native *s3.DDBLockFactory
	if n.cfg.BackendType() == config.BackendS3 && dc.S3.LockTable != "" {
		if opts.ddbClient != nil {
			native = s3.NewDDBLockFactory(opts.ddbClient, dc.S3.LockTable, "")
		} else {
			lf, err := s3.NewDDBLockFactoryFromConfig(ctx, dc.S3.LockTable, "", dc.S3.Region)
			if err != nil {
				return nil, nil, err
			}
			native = lf
		}
	}

	if opts.blobStore != nil {
		return opts.blobStore, native, nil
	}

	switch n.backend {
	case config.BackendLocal:
		return blobstore.NewLocalStore(dc.Root), nil, nil
	case config.BackendS3:
		s3Opts := []s3.Option{s3.WithPrefix(dc.Root)}
		if dc.S3.Region != "" {
			s3Opts = append(s3Opts, s3.WithRegion(dc.S3.Region))
		}
		if dc.S3.Endpoint != "" {
			s3Opts = append(s3Opts, s3.WithEndpoint(dc.S3.Endpoint))
		}
		store, err := s3.New(ctx, dc.S3.Bucket, s3Opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, native, nil
	case config.BackendMinIO:
		store, err := minio.New(minio.Config{
			Endpoint:  dc.MinIO.Endpoint,
			AccessKey: dc.MinIO.AccessKey,
			SecretKey: dc.MinIO.SecretKey,
			Region:    dc.MinIO.Region,
			Secure:    dc.MinIO.Secure,
			Bucket:    dc.MinIO.Bucket,
			Prefix:    dc.Root,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: backend %q", config.ErrInvalid, n.backend)
	}
}

// Directory returns the shared handle for path with the configured lock
// type and takes one reference on it. Pair every call with Release.
func (n *Node) Directory(ctx context.Context, path string) (directory.Directory, error) {
	return n.DirectoryWithLock(ctx, path, string(n.lockType))
}

// DirectoryWithLock is Directory with an explicit lock type. The lock type
// only applies when the handle is created.
func (n *Node) DirectoryWithLock(ctx context.Context, path, lockType string) (directory.Directory, error) {
	return n.get(ctx, path, lockType, false)
}

// ForceNew replaces the handle for path. The old handle closes after its
// last release.
func (n *Node) ForceNew(ctx context.Context, path string) (directory.Directory, error) {
	return n.get(ctx, path, string(n.lockType), true)
}

func (n *Node) get(ctx context.Context, path, lockType string, forceNew bool) (directory.Directory, error) {
	start := time.Now()

	var (
		dir directory.Directory
		err error
	)
	if forceNew {
		dir, err = n.factory.GetForceNew(ctx, path, directory.LockType(lockType))
	} else {
		dir, err = n.factory.Get(ctx, path, directory.LockType(lockType))
	}
	err = translateError(err)

	refs := 0
	if err == nil {
		refs, _ = n.factory.RefCount(dir)
	}
	n.metrics.RecordDirectoryGet(time.Since(start), err)
	n.logger.LogDirectoryGet(ctx, path, lockType, refs, err)
	return dir, err
}

// Release drops one reference taken by Directory.
func (n *Node) Release(ctx context.Context, dir directory.Directory) error {
	err := translateError(n.factory.Release(dir))
	n.metrics.RecordRelease(err)
	n.logger.LogRelease(ctx, dirPath(dir), err)
	return err
}

// Done marks dir for closing once every reference is released.
func (n *Node) Done(dir directory.Directory) error {
	return translateError(n.factory.DoneWithDirectory(dir))
}

// Remove marks dir for closing and deletes its contents after the close.
func (n *Node) Remove(dir directory.Directory) error {
	if err := n.factory.Remove(dir); err != nil {
		return translateError(err)
	}
	return translateError(n.factory.DoneWithDirectory(dir))
}

// Factory exposes the underlying directory factory for close listeners and
// reference inspection.
func (n *Node) Factory() *directory.CachingFactory {
	return n.factory
}

// WriteSegment stores the sort ordinals of every field of r in dir using
// the configured compression.
func (n *Node) WriteSegment(ctx context.Context, dir directory.Directory, segment string, r index.LeafReader) error {
	return translateError(index.WriteSegmentOrdinals(ctx, dir, segment, r, n.compression))
}

// WrapSegment serves the sort ordinals of r from the files WriteSegment
// stored in dir, sharing the node's block cache. Handles without a stable
// path, such as memory directories, are not cached.
func (n *Node) WrapSegment(dir directory.Directory, segment string, r index.LeafReader) index.LeafReader {
	scope := dirPath(dir)
	if n.cache == nil || scope == "" {
		return index.WithStoredOrdinals(r, dir, segment)
	}
	return index.WithStoredOrdinals(r, dir, segment, index.WithOrdinalCache(n.cache, scope))
}

// Search collects the top numHits live documents of r in sort order.
// scores may be nil, in which case every document scores 1.
func (n *Node) Search(ctx context.Context, r index.Reader, sort *search.Sort, numHits int, scores func(globalDoc int) float32, opts ...search.CollectorOption) (*search.TopDocs, error) {
	start := time.Now()

	td, err := n.search(r, sort, numHits, scores, opts)
	err = translateError(err)

	total := 0
	if td != nil {
		total = td.TotalHits
	}
	n.metrics.RecordSearch(total, time.Since(start), err)
	n.logger.LogSearch(ctx, sortString(sort), numHits, total, err)
	return td, err
}

func (n *Node) search(r index.Reader, sort *search.Sort, numHits int, scores func(int) float32, opts []search.CollectorOption) (*search.TopDocs, error) {
	c, err := search.NewTopFieldCollector(sort, numHits, opts...)
	if err != nil {
		return nil, err
	}
	if err := search.Search(r, c, scores); err != nil {
		return nil, err
	}
	return c.TopDocs(), nil
}

// Merge combines per-shard results into the global top n. A nil sort merges
// by score.
func (n *Node) Merge(ctx context.Context, sort *search.Sort, topN int, shards []*search.TopDocs) (*search.TopDocs, error) {
	start := time.Now()

	td, err := search.Merge(sort, topN, shards)
	err = translateError(err)

	hits := 0
	if td != nil {
		hits = len(td.ScoreDocs)
	}
	n.metrics.RecordMerge(len(shards), hits, time.Since(start), err)
	n.logger.LogMerge(ctx, len(shards), topN, hits, err)
	return td, err
}

// Close closes every directory handle, then the block cache. Calling Close
// twice returns ErrClosed.
func (n *Node) Close() error {
	err := n.factory.Close()
	if errors.Is(err, directory.ErrFactoryClosed) {
		return translateError(err)
	}
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	if n.cache != nil {
		if err := n.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	n.logger.Info("node closed")
	return errors.Join(errs...)
}

func dirPath(dir directory.Directory) string {
	switch d := dir.(type) {
	case *directory.FSDirectory:
		return d.Path()
	case *directory.BlobDirectory:
		return d.Prefix()
	default:
		return ""
	}
}

func sortString(s *search.Sort) string {
	if s == nil {
		return "<score>"
	}
	return s.String()
}
