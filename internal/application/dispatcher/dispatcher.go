// Package dispatcher delivers side-effect intents to their consumers. The
// workflow publishes after a transition is durable; consumer failures are
// logged and never reach the caller of DispatchAsync.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/pto-workflow/internal/domain/event"
	"go.uber.org/zap"
)

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler with a name for debugging
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(eventType event.Type, name string)

	// Dispatch sends event to all registered handlers synchronously.
	// Returns the first error encountered (handlers run in order).
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync sends events to handlers in the background.
	// Cancelling ctx after the call does not cancel running handlers.
	DispatchAsync(ctx context.Context, evts ...*event.Event)

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Stats returns dispatch counters
	Stats() Stats

	// Close shuts down the dispatcher and waits for async handlers
	Close() error
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   *zap.Logger

	wg         sync.WaitGroup
	closed     atomic.Bool
	dispatched atomic.Int64
	failed     atomic.Int64
	inFlight   atomic.Int64
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger *zap.Logger) Option {
	return func(d *eventDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers a handler for an event type with an auto-generated name
func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.RLock()
	name := fmt.Sprintf("handler-%d", len(d.handlers[eventType]))
	d.mu.RUnlock()
	d.SubscribeNamed(eventType, name, handler)
}

// SubscribeNamed registers a handler with a specific name for debugging
func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	d.logger.Debug("Handler registered",
		zap.String("event_type", eventType.String()),
		zap.String("handler_name", name))
}

// Unsubscribe removes a handler by name
func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	handlers := d.handlers[eventType]
	filtered := make([]HandlerInfo, 0, len(handlers))
	for _, h := range handlers {
		if h.Name != name {
			filtered = append(filtered, h)
		}
	}
	d.handlers[eventType] = filtered

	d.logger.Debug("Handler unregistered",
		zap.String("event_type", eventType.String()),
		zap.String("handler_name", name))
}

func (d *eventDispatcher) snapshot(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.handlers[eventType]...)
}

// Dispatch sends event to all registered handlers synchronously
func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	handlers := d.snapshot(evt.Type)
	d.logger.Debug("Dispatching event",
		eventFields(evt, zap.Int("handler_count", len(handlers)))...)

	for _, info := range handlers {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			d.failed.Add(1)
			d.logger.Error("Handler error", eventFields(evt,
				zap.String("handler_name", info.Name),
				zap.Error(err))...)
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
		d.dispatched.Add(1)
	}

	return nil
}

// DispatchAsync sends events to handlers asynchronously
func (d *eventDispatcher) DispatchAsync(ctx context.Context, evts ...*event.Event) {
	ctx = context.WithoutCancel(ctx)

	for _, evt := range evts {
		// wg.Add happens under the read lock so Close cannot start waiting
		// between the closed check and the Add
		d.mu.RLock()
		if d.closed.Load() {
			d.mu.RUnlock()
			d.logger.Error("Cannot dispatch async event, dispatcher is closed", eventFields(evt)...)
			return
		}
		handlers := append([]HandlerInfo(nil), d.handlers[evt.Type]...)
		d.wg.Add(len(handlers))
		d.inFlight.Add(int64(len(handlers)))
		d.mu.RUnlock()

		d.logger.Debug("Dispatching event asynchronously",
			eventFields(evt, zap.Int("handler_count", len(handlers)))...)

		for _, info := range handlers {
			go func(evt *event.Event, h HandlerInfo) {
				defer d.wg.Done()
				defer d.inFlight.Add(-1)

				if err := d.safeExecute(ctx, evt, h); err != nil {
					d.failed.Add(1)
					d.logger.Error("Async handler error", eventFields(evt,
						zap.String("handler_name", h.Name),
						zap.Error(err))...)
					return
				}
				d.dispatched.Add(1)
			}(evt, info)
		}
	}
}

// ListHandlers returns registered handlers for an event type, without the funcs
func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	handlers := d.snapshot(eventType)
	for i := range handlers {
		handlers[i].Handler = nil
	}
	return handlers
}

func (d *eventDispatcher) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Failed:     d.failed.Load(),
		InFlight:   d.inFlight.Load(),
	}
}

// Close shuts down the dispatcher and waits for async handlers to complete
func (d *eventDispatcher) Close() error {
	d.mu.Lock()
	swapped := d.closed.CompareAndSwap(false, true)
	d.mu.Unlock()
	if !swapped {
		return fmt.Errorf("dispatcher already closed")
	}

	d.logger.Info("Closing dispatcher, waiting for async handlers",
		zap.Int64("in_flight", d.inFlight.Load()))
	d.wg.Wait()
	d.logger.Info("Dispatcher closed")

	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.logger.Error("Handler panic recovered", eventFields(evt,
				zap.String("handler_name", info.Name),
				zap.Any("panic", r))...)
		}
	}()

	return info.Handler(ctx, evt)
}

func eventFields(evt *event.Event, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("event_type", evt.Type.String()),
		zap.String("event_id", evt.ID),
		zap.String("document_id", evt.DocumentID),
	}
	return append(fields, extra...)
}
