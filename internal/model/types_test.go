package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTaskStatus_Unmarshal(t *testing.T) {
	data := []byte(`{
		"id": "alist_server_1",
		"name": "Movies",
		"type": "alist2strm",
		"status": "running",
		"progress": 42.5,
		"message": "processing",
		"last_run": "2024-01-15T12:00:00.123456",
		"next_run": null,
		"config": {"url": "http://localhost:5244", "cron": "0 2 * * *"}
	}`)

	var ts TaskStatus
	if err := json.Unmarshal(data, &ts); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if ts.ID != "alist_server_1" {
		t.Errorf("ID = %q, want %q", ts.ID, "alist_server_1")
	}
	if ts.Type != TaskTypeAlist2Strm {
		t.Errorf("Type = %q, want %q", ts.Type, TaskTypeAlist2Strm)
	}
	if ts.Progress != 42.5 {
		t.Errorf("Progress = %v, want 42.5", ts.Progress)
	}
	if !ts.IsActive() {
		t.Error("expected IsActive for running task")
	}
	if ts.LastRun == nil {
		t.Fatal("LastRun should be set")
	}
	want := time.Date(2024, 1, 15, 12, 0, 0, 123456000, time.Local)
	if !ts.LastRun.Equal(want) {
		t.Errorf("LastRun = %v, want %v", ts.LastRun.Time, want)
	}
	if ts.NextRun != nil && !ts.NextRun.IsZero() {
		t.Errorf("NextRun = %v, want zero", ts.NextRun.Time)
	}
	if ts.Config["cron"] != "0 2 * * *" {
		t.Errorf("Config[cron] = %v, want %q", ts.Config["cron"], "0 2 * * *")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "rfc3339", input: "2024-01-15T12:00:00Z"},
		{name: "rfc3339 with offset", input: "2024-01-15T12:00:00.5+08:00"},
		{name: "naive with micros", input: "2024-01-15T12:00:00.123456"},
		{name: "naive seconds", input: "2024-01-15T12:00:00"},
		{name: "space separated", input: "2024-01-15 12:00:00"},
		{name: "garbage", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTime(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTime(%q) unexpected error: %v", tt.input, err)
			}
			if got.Year() != 2024 || got.Month() != time.January || got.Day() != 15 {
				t.Errorf("ParseTime(%q) = %v, want 2024-01-15", tt.input, got.Time)
			}
		})
	}
}

func TestTime_MarshalJSON(t *testing.T) {
	var zero Time
	data, err := json.Marshal(zero)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("zero Time = %s, want null", data)
	}

	ts := Time{Time: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	data, err = json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"2024-01-15T12:00:00Z"` {
		t.Errorf("Time = %s, want %q", data, "2024-01-15T12:00:00Z")
	}

	var back Time
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !back.Equal(ts.Time) {
		t.Errorf("round trip = %v, want %v", back.Time, ts.Time)
	}
}

func TestTime_UnmarshalRejectsNumbers(t *testing.T) {
	var ts Time
	if err := json.Unmarshal([]byte(`12345`), &ts); err == nil {
		t.Error("expected error for numeric timestamp")
	}
}
