package main

import (
	"log/slog"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

// statusLogHandler logs status updates through slog, keeping presentation
// in the application layer.
func statusLogHandler(logger *slog.Logger) status.Handler {
	return func(update status.Update) {
		attrs := []any{"message", update.Message}
		if update.Resource != "" {
			attrs = append(attrs, "resource", update.Resource)
		}
		if update.Action != "" {
			attrs = append(attrs, "action", update.Action)
		}
		for key, value := range update.Metadata {
			attrs = append(attrs, key, value)
		}

		switch update.Level {
		case status.LevelProgress:
			logger.Info("Progress", attrs...)
		case status.LevelSuccess:
			logger.Info("Success", attrs...)
		case status.LevelWarning:
			logger.Warn("Warning", attrs...)
		case status.LevelError:
			logger.Error("Error", attrs...)
		default:
			logger.Info("Status", attrs...)
		}
	}
}
