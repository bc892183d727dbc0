// Package database manages the PostgreSQL pool used by the task history
// recorder.
//
// The recorder owns a single table, task_status_history, created on
// startup by EnsureSchema.
package database
