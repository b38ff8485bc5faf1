// Package resource governs the resources a reader may consume.
//
// A Controller tracks three budgets:
//
//   - Memory: bytes held by block and page caches (fail-fast TryAcquire on cache fill)
//   - Workers: concurrent extraction jobs in the command line tool
//   - IO: a token bucket on bytes read from the source, useful for remote blobs
//
// All methods are safe for concurrent use, and a nil *Controller is a no-op:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    IOLimitBytesPerSec: 32 << 20,
//	})
//	f, err := pstgo.Open(ctx, pstgo.Local("mail.pst"), pstgo.WithResourceController(rc))
package resource
