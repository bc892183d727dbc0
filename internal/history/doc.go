// Package history records task status updates from the channel into
// PostgreSQL.
//
// The channel listener only converts and enqueues; a single writer
// goroutine drains the queue in batches so dispatch never waits on the
// database.
package history
