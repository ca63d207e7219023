// Package segread reads and ranks segmented search indexes.
//
// A Node shares one handle per index directory across every caller in the
// process, counting references so a directory closes only after its last
// user releases it. Directories live on the local file system, in memory or
// in a blob store (a local root, S3 or MinIO) behind a block cache.
//
// # Quick Start
//
//	ctx := context.Background()
//	cfg, _ := config.Load("")  // segread.yaml + SEGREAD_* overrides
//	node, _ := segread.Open(ctx, cfg)
//	defer node.Close()
//
//	dir, _ := node.Directory(ctx, "cores/products")
//	defer node.Release(ctx, dir)
//
// # Sorting and Merging
//
// Each shard collects its own top hits with a TopFieldCollector; a
// coordinator combines them with Merge:
//
//	sort := search.NewSort(search.StringField("title", false), search.ScoreField())
//	shardA, _ := node.Search(ctx, readerA, sort, 10, nil)
//	shardB, _ := node.Search(ctx, readerB, sort, 10, nil)
//	top, _ := node.Merge(ctx, sort, 10, []*search.TopDocs{shardA, shardB})
//
// Field values on the shard hits are what makes the merge possible; hits
// without them fail with ErrInvalidArgument.
//
// # Replacing a Directory
//
// ForceNew swaps in a fresh handle for a path, e.g. after an index rebuild.
// Holders of the old handle keep using it until they release it:
//
//	fresh, _ := node.ForceNew(ctx, "cores/products")
//
// # Errors
//
// Errors returned by Node match one of ErrInvalidArgument, ErrNotFound,
// ErrClosed, ErrConfig or ErrCorrupt with errors.Is while keeping the
// package error in the chain.
package segread
