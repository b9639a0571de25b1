package status

import "context"

type contextKey string

const statusChannelKey contextKey = "status-channel"

// WithChannel returns a context carrying ch. The channel should be buffered.
func WithChannel(ctx context.Context, ch chan<- Update) context.Context {
	return context.WithValue(ctx, statusChannelKey, ch)
}

func getChannel(ctx context.Context) chan<- Update {
	if ctx == nil {
		return nil
	}
	ch, ok := ctx.Value(statusChannelKey).(chan<- Update)
	if !ok {
		return nil
	}
	return ch
}
