// Package channel implements the real-time channel to the AutoFilm server.
//
// The Manager:
//   - Maintains one persistent WebSocket connection per instance
//   - Sends a ping on connect and every heartbeat interval while open
//   - Reconnects with linear backoff (1s, 2s, ... 5s) and gives up after 5 attempts
//   - Decodes inbound frames into typed envelopes and fans them out by topic
//
// Every (re)connect runs in its own session scope. Heartbeat and retry timers
// belong to that scope and stop when it is cancelled.
package channel
