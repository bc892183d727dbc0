// Package dashboard renders channel events to a terminal.
//
// Each view is a channel listener: TaskBoard tracks task records from
// task_status_update, LogView prints the log stream, and StatusIndicator
// reports connection state and poller snapshots. Views write one line per
// event and never block the dispatch goroutine on anything but their writer.
package dashboard
