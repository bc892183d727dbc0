package dashboard

import (
	"io"
	"strings"
	"sync/atomic"

	"github.com/rickgao/autofilm-dash/internal/channel"
	"github.com/rickgao/autofilm-dash/internal/model"
)

// LogFilter selects which entries a LogView prints. Empty fields match all.
type LogFilter struct {
	Level   string // Exact level, case-insensitive
	Keyword string // Substring of the message, case-insensitive
}

// Match reports whether entry passes the filter.
func (f LogFilter) Match(entry model.LogEntry) bool {
	if f.Level != "" && !strings.EqualFold(entry.Level, f.Level) {
		return false
	}
	if f.Keyword != "" && !strings.Contains(strings.ToLower(entry.Message), strings.ToLower(f.Keyword)) {
		return false
	}
	return true
}

// LogView prints log entries pushed on the log stream.
type LogView struct {
	filter LogFilter
	attach attachment

	shown    atomic.Int64
	filtered atomic.Int64
	print    *printer
}

// NewLogView creates a view that writes matching entries to out.
func NewLogView(out io.Writer, filter LogFilter) *LogView {
	return &LogView{
		filter: filter,
		print:  newPrinter(out),
	}
}

// Attach subscribes the view to log_entry and error on s.
func (v *LogView) Attach(s Subscriber) {
	v.attach.attach(s, v.Listen, channel.TopicLogEntry, channel.TopicError)
}

// Detach removes the view's subscriptions.
func (v *LogView) Detach() {
	v.attach.detach()
}

// Listen prints a log_entry or error payload.
func (v *LogView) Listen(p channel.Payload) {
	switch p := p.(type) {
	case channel.LogEntryEvent:
		v.Print(p.Entry)
	case channel.ServerError:
		v.print.printf("stream error: %s", p.Message)
	}
}

// Print writes entry if it passes the filter.
func (v *LogView) Print(entry model.LogEntry) {
	if !v.filter.Match(entry) {
		v.filtered.Add(1)
		return
	}
	v.shown.Add(1)
	v.print.write(FormatLogEntry(entry) + "\n")
}

// Shown returns the number of entries printed.
func (v *LogView) Shown() int64 { return v.shown.Load() }

// Filtered returns the number of entries the filter rejected.
func (v *LogView) Filtered() int64 { return v.filtered.Load() }

// FormatLogEntry renders entry as "timestamp [LEVEL] message".
func FormatLogEntry(entry model.LogEntry) string {
	var sb strings.Builder
	if entry.Timestamp != "" {
		sb.WriteString(entry.Timestamp)
		sb.WriteByte(' ')
	}
	if entry.Level != "" {
		sb.WriteByte('[')
		sb.WriteString(strings.ToUpper(entry.Level))
		sb.WriteString("] ")
	}
	sb.WriteString(entry.Message)
	return sb.String()
}
