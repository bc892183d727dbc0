// Package poller periodically fetches server health and stats over REST.
//
// The channel only pushes task updates; health and counters are pulled
// every interval and handed to a SnapshotHandler. A failed cycle is logged
// and the next one runs on schedule.
package poller
