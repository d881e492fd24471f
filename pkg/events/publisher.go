package events

import "context"

// Publisher is the interface for publishing invocation events.
type Publisher interface {
	PublishInvoked(ctx context.Context, event *InvocationEvent) error
}

// NoOpPublisher is a Publisher that does nothing (for in-process usage
// without events).
type NoOpPublisher struct{}

// PublishInvoked is a no-op.
func (p *NoOpPublisher) PublishInvoked(_ context.Context, _ *InvocationEvent) error {
	return nil
}

// CallbackPublisher is a Publisher that calls a callback function (for
// testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *InvocationEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *InvocationEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishInvoked calls the callback.
func (p *CallbackPublisher) PublishInvoked(ctx context.Context, event *InvocationEvent) error {
	return p.callback(ctx, event)
}
