// Package publisher emits audit events into an audit.Store, either inline or
// through a bounded buffer drained by a background goroutine.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "molecule/pkg/platform/audit"
)

var (
	// ErrBufferFull is returned in async mode when the buffer cannot take more.
	ErrBufferFull = errors.New("audit buffer full")
	// ErrClosed is returned by Emit once Close has been called.
	ErrClosed = errors.New("audit publisher closed")
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	// mu guards closed and the buffer send against Close.
	mu     sync.RWMutex
	closed bool
	buffer chan audit.Event
	wg     sync.WaitGroup
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit stamps the timestamp and category when missing and persists the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.buffer <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// List returns the events recorded for a subject.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// Close drains buffered events. Later Emit calls return ErrClosed; calling
// Close again is a no-op.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Warn("failed to persist audit event",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
	}
}
