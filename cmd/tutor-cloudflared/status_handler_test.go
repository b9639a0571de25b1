package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

func TestStatusLogHandler(t *testing.T) {
	tests := []struct {
		level     status.Level
		wantLevel string
		wantMsg   string
	}{
		{status.LevelInfo, "INFO", "Status"},
		{status.LevelProgress, "INFO", "Progress"},
		{status.LevelSuccess, "INFO", "Success"},
		{status.LevelWarning, "WARN", "Warning"},
		{status.LevelError, "ERROR", "Error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			update := status.NewUpdate(tt.level, "creating record").
				WithResource("dns-record").
				WithAction("create").
				WithMetadata("hostname", "learn.example.com")
			statusLogHandler(logger)(update)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %s", entry["msg"], tt.wantMsg)
			}
			for key, want := range map[string]string{
				"message":  "creating record",
				"resource": "dns-record",
				"action":   "create",
				"hostname": "learn.example.com",
			} {
				if entry[key] != want {
					t.Errorf("%s = %v, want %s", key, entry[key], want)
				}
			}
		})
	}
}

func TestStatusLogHandler_OmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	statusLogHandler(logger)(status.NewUpdate(status.LevelInfo, "hello"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if _, ok := entry["resource"]; ok {
		t.Error("empty resource should not be logged")
	}
	if _, ok := entry["action"]; ok {
		t.Error("empty action should not be logged")
	}
}
