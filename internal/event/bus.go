package event

import (
	"sync"

	"go.uber.org/zap"

	"bx-rounds/internal/logger"
)

type Handler func(payload interface{})

// Bus delivers each published payload to the topic's handlers in
// registration order, on the publisher's goroutine. Handlers must not block.
type Bus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[event] = append(b.handlers[event], handler)
}

func (b *Bus) Publish(event string, payload interface{}) {
	b.mu.RLock()
	hs := b.handlers[event]
	b.mu.RUnlock()

	for _, h := range hs {
		dispatch(event, h, payload)
	}
}

func dispatch(event string, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("event handler panic", zap.String("event", event), zap.Any("panic", r))
		}
	}()

	h(payload)
}
