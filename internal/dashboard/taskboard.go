package dashboard

import (
	"fmt"
	"io"
	"sync"

	"github.com/rickgao/autofilm-dash/internal/channel"
	"github.com/rickgao/autofilm-dash/internal/model"
)

// TaskBoard keeps the latest record of every task and prints a line for each
// status update.
type TaskBoard struct {
	mu    sync.RWMutex
	tasks map[string]model.TaskStatus
	order []string // First-seen order

	print   *printer
	attach  attachment
	updates int
}

// NewTaskBoard creates a board that writes update lines to out.
func NewTaskBoard(out io.Writer) *TaskBoard {
	return &TaskBoard{
		tasks: make(map[string]model.TaskStatus),
		print: newPrinter(out),
	}
}

// Seed loads the initial task list, typically from api.Client.ListTasks.
// Existing records with the same id are replaced.
func (b *TaskBoard) Seed(tasks []model.TaskStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range tasks {
		b.putLocked(t)
	}
}

// Attach subscribes the board to task_status_update on s.
func (b *TaskBoard) Attach(s Subscriber) {
	b.attach.attach(s, b.Listen, channel.TopicTaskStatusUpdate)
}

// Detach removes the board's subscription.
func (b *TaskBoard) Detach() {
	b.attach.detach()
}

// Listen applies a task_status_update payload.
func (b *TaskBoard) Listen(p channel.Payload) {
	update, ok := p.(channel.TaskStatusUpdate)
	if !ok {
		return
	}

	b.mu.Lock()
	task := b.mergeLocked(update.Task)
	b.updates++
	b.mu.Unlock()

	b.print.printf("%s", formatUpdate(task))
}

// Task returns the record for id.
func (b *TaskBoard) Task(id string) (model.TaskStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	return t, ok
}

// Tasks returns all records in first-seen order.
func (b *TaskBoard) Tasks() []model.TaskStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.TaskStatus, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.tasks[id])
	}
	return out
}

// Updates returns the number of status updates applied since creation.
func (b *TaskBoard) Updates() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updates
}

// Render returns the board as a table.
func (b *TaskBoard) Render() string {
	return RenderTaskTable(b.Tasks())
}

// Print writes the rendered board to the board's writer.
func (b *TaskBoard) Print() {
	b.print.write(b.Render() + "\n")
}

// mergeLocked replaces the stored record, keeping identity fields a partial
// update leaves empty.
func (b *TaskBoard) mergeLocked(t model.TaskStatus) model.TaskStatus {
	if prev, ok := b.tasks[t.ID]; ok {
		if t.Name == "" {
			t.Name = prev.Name
		}
		if t.Type == "" {
			t.Type = prev.Type
		}
		if t.LastRun == nil {
			t.LastRun = prev.LastRun
		}
		if t.NextRun == nil {
			t.NextRun = prev.NextRun
		}
		if t.Config == nil {
			t.Config = prev.Config
		}
	}
	b.putLocked(t)
	return t
}

func (b *TaskBoard) putLocked(t model.TaskStatus) {
	if _, ok := b.tasks[t.ID]; !ok {
		b.order = append(b.order, t.ID)
	}
	b.tasks[t.ID] = t
}

// RenderTaskTable renders task records as a table.
func RenderTaskTable(tasks []model.TaskStatus) string {
	headers := []string{"ID", "Name", "Type", "Status", "Progress", "Message", "Last run"}
	aligns := []Alignment{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignLeft}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID,
			t.Name,
			t.Type,
			t.Status,
			formatProgress(t.Progress),
			t.Message,
			formatTime(t.LastRun),
		})
	}
	return RenderTable(headers, rows, aligns)
}

func formatUpdate(t model.TaskStatus) string {
	name := t.ID
	if t.Name != "" && t.Name != t.ID {
		name = fmt.Sprintf("%s (%s)", t.ID, t.Name)
	}
	line := fmt.Sprintf("task %s %s %s", name, t.Status, formatProgress(t.Progress))
	if t.Message != "" {
		line += " " + t.Message
	}
	return line
}

func formatProgress(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}

func formatTime(t *model.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
