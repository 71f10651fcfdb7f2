package dispatcher

import (
	"context"

	"github.com/garyjia/pto-workflow/internal/domain/event"
)

// Handler consumes a side-effect intent
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// Stats counts dispatch outcomes since start
type Stats struct {
	Dispatched int64 `json:"dispatched"`
	Failed     int64 `json:"failed"`
	InFlight   int64 `json:"in_flight"`
}
