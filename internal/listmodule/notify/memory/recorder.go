package memory

import (
	"context"
	"sync"

	"molecule/internal/listmodule/models"
)

// Recorder keeps every notification and forwards it to subscribers.
type Recorder struct {
	mu   sync.RWMutex
	seen []models.Notification
	subs []chan models.Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify records n. Slow subscribers miss notifications rather than block
// the list.
func (r *Recorder) Notify(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
	for _, ch := range r.subs {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel receiving notifications sent after the call.
func (r *Recorder) Subscribe(buffer int) <-chan models.Notification {
	ch := make(chan models.Notification, buffer)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

func (r *Recorder) Notifications() []models.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Notification{}, r.seen...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = nil
}
