// Package status carries progress updates from library code to whoever is
// listening on the context, without the library knowing how they are shown.
package status

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultChannelSize is the default buffer size for the status channel
	DefaultChannelSize = 100

	// DefaultFlushTimeout bounds how long cleanup waits for queued updates
	DefaultFlushTimeout = 5 * time.Second
)

// Level represents the severity of a status update
type Level string

const (
	LevelInfo     Level = "info"
	LevelProgress Level = "progress"
	LevelSuccess  Level = "success"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
)

// Update is a single status message.
type Update struct {
	Level   Level
	Message string

	// Resource is what the update is about, e.g. "doctor", "image", "dns-record".
	Resource string

	// Action is the step being performed, e.g. "nameservers", "build", "create".
	Action string

	Metadata  map[string]any
	Timestamp time.Time
}

// NewUpdate creates an Update stamped with the current time
func NewUpdate(level Level, message string) Update {
	return Update{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithResource sets the resource
func (u Update) WithResource(resource string) Update {
	u.Resource = resource
	return u
}

// WithAction sets the action
func (u Update) WithAction(action string) Update {
	u.Action = action
	return u
}

// WithMetadata adds a metadata entry
func (u Update) WithMetadata(key string, value any) Update {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = value
	return u
}

// Send delivers update to the channel attached to ctx, if any.
// It never blocks: when the channel is full the update is dropped.
func Send(ctx context.Context, update Update) {
	ch := getChannel(ctx)
	if ch == nil {
		return
	}

	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	select {
	case ch <- update:
	default:
	}
}

// Sendf sends a formatted update at level
func Sendf(ctx context.Context, level Level, format string, args ...any) {
	Send(ctx, NewUpdate(level, fmt.Sprintf(format, args...)))
}

// Infof sends a formatted informational update
func Infof(ctx context.Context, format string, args ...any) {
	Sendf(ctx, LevelInfo, format, args...)
}

// Progressf sends a formatted progress update
func Progressf(ctx context.Context, format string, args ...any) {
	Sendf(ctx, LevelProgress, format, args...)
}

// Successf sends a formatted success update
func Successf(ctx context.Context, format string, args ...any) {
	Sendf(ctx, LevelSuccess, format, args...)
}

// Warningf sends a formatted warning update
func Warningf(ctx context.Context, format string, args ...any) {
	Sendf(ctx, LevelWarning, format, args...)
}

// Errorf sends a formatted error update
func Errorf(ctx context.Context, format string, args ...any) {
	Sendf(ctx, LevelError, format, args...)
}

// Handler processes each update received on the channel
type Handler func(Update)

// CleanupFunc closes the channel and waits for the handler to drain it
type CleanupFunc func()

// StartHandler attaches a buffered status channel to ctx and consumes it with
// handler on a separate goroutine. The returned cleanup must be deferred.
//
//	ctx, cleanup := status.StartHandler(ctx, func(u status.Update) {
//	    slog.Info("Status", "message", u.Message)
//	})
//	defer cleanup()
func StartHandler(ctx context.Context, handler Handler) (context.Context, CleanupFunc) {
	return StartHandlerWithOptions(ctx, handler, DefaultChannelSize, DefaultFlushTimeout)
}

// StartHandlerWithOptions is StartHandler with a custom buffer size and flush timeout
func StartHandlerWithOptions(ctx context.Context, handler Handler, channelSize int, flushTimeout time.Duration) (context.Context, CleanupFunc) {
	ch := make(chan Update, channelSize)
	ctx = WithChannel(ctx, ch)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range ch {
			handler(update)
		}
	}()

	cleanup := func() {
		close(ch)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(flushTimeout):
		}
	}

	return ctx, cleanup
}
