// Package jobs consumes out-of-band work items from Redis lists.
//
// Producers push items with store.Queue.Push; a Consumer pops them with
// store.Queue.Pop and hands each one to a Handler on a small worker pool.
// Items are handed out in the order they were pushed.
//
// Example usage:
//
//	queue := store.NewQueue(conns, logger)
//	consumer := jobs.NewConsumer(queue, jobs.RemoveKeys(cache), jobs.DefaultConfig(), logger)
//
//	go consumer.Run(ctx, "pagecache:jobs:remove")
//
//	// elsewhere
//	queue.Push(ctx, "pagecache:jobs:remove", "products:desktop")
//
// The consumer:
//   - Runs a fixed number of workers (default 2)
//   - Sleeps PollInterval when the list is empty
//   - Bounds every handler call with Timeout
//   - Logs and counts handler failures; failed items are not retried
//
// RunOnce drains the whole list in one transaction and processes the
// snapshot oldest first, for batch use from CLIs and tests. Items still
// unhandled when ctx is cancelled are requeued in their original order.
package jobs
