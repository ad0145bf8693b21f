// Package store is the Redis-backed distributed store behind the page cache.
//
// It is made of three parts sharing one ConnectionManager:
//
//   - ConnectionManager owns one read and one write client, created lazily
//     and recreated when a periodic PING fails.
//   - Cache offers get/set/remove of gzip-compressed text and framed binary
//     values with optional TTL.
//   - Queue offers sorted-set enqueue, list push/pop and hash counters for
//     out-of-band jobs.
//
// Every operation fails open: errors are logged, counted and turned into
// the empty or false result. Nothing in this package returns a store error
// to its caller, except the operations that are deliberately not supported
// (ErrNotImplemented).
//
// # Basic Usage
//
//	conns := store.NewConnectionManager(store.DefaultConfig(), logger)
//	defer conns.Close()
//
//	cache := store.NewCache(conns, codec.New(0, logger), logger)
//	cache.Set(ctx, "home:desktop", "<html>...</html>", 10*time.Minute)
//
//	page, ok := cache.Get(ctx, "home:desktop", false)
//
//	queue := store.NewQueue(conns, logger)
//	queue.Push(ctx, "jobs", "payload")
package store
