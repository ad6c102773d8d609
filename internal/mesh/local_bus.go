package mesh

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrBusClosed = errors.New("bus closed")

type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string]map[int]Handler
	nextID   int
	closed   bool
	wg       sync.WaitGroup
}

func NewLocalBus() *LocalBus { return &LocalBus{handlers: map[string]map[int]Handler{}} }

func (b *LocalBus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	hs := make([]Handler, 0, len(b.handlers[e.Topic]))
	for _, h := range b.handlers[e.Topic] {
		hs = append(hs, h)
	}
	b.wg.Add(len(hs))
	b.mu.RUnlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	// handlers must not outlive the request context
	ctx = context.WithoutCancel(ctx)
	for _, h := range hs {
		go func(h Handler) {
			defer b.wg.Done()
			h(ctx, e)
		}(h)
	}
	return nil
}

func (b *LocalBus) Subscribe(topic string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	if b.handlers[topic] == nil {
		b.handlers[topic] = map[int]Handler{}
	}
	id := b.nextID
	b.nextID++
	b.handlers[topic][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[topic], id)
	}, nil
}

// Close rejects further publishes and waits for in-flight handlers.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.handlers = map[string]map[int]Handler{}
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
