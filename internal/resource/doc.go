// Package resource enforces node-wide limits shared by every directory.
//
//   - Memory: bytes held by block caches (non-blocking, fail-fast)
//   - Fetches: concurrent backend reads that fill the block cache
//   - IO: remote directory throughput (token bucket)
//
// Cache memory is reserved without blocking; a cache that cannot reserve a
// block serves it uncached:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 30})
//	if rc.ReserveMemory(int64(len(block))) {
//	    defer rc.ReleaseMemory(int64(len(block)))
//	}
//
// Fetch slots block until free:
//
//	if err := rc.AcquireFetch(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseFetch()
//
// Remote IO goes through the rate-limited wrappers:
//
//	w := resource.NewRateLimitedWriter(ctx, blob, rc)
//	r := resource.NewRateLimitedReader(ctx, section, rc)
//
// A nil *Controller imposes no limits.
package resource
