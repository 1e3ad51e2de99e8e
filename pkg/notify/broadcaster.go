// Package notify is a fire-and-forget publish/subscribe channel. Publishers
// never block on slow subscribers; a subscriber whose buffer is full misses
// the notification.
package notify

import (
	"log/slog"
	"sync"
)

const defaultBuffer = 16

type subscriber[T any] struct {
	ch   chan T
	done chan struct{}
}

type Broadcaster[T any] struct {
	log    *slog.Logger
	buffer int

	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber[T]
	closed bool
	wg     sync.WaitGroup
}

func NewBroadcaster[T any](log *slog.Logger) *Broadcaster[T] {
	return &Broadcaster[T]{
		log:    log,
		buffer: defaultBuffer,
		subs:   make(map[int]*subscriber[T]),
	}
}

// Subscribe registers fn and returns a function that unregisters it. fn runs
// on a goroutine owned by the subscription, one notification at a time.
func (b *Broadcaster[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	id := b.nextID
	b.nextID++
	s := &subscriber[T]{ch: make(chan T, b.buffer), done: make(chan struct{})}
	b.subs[id] = s

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case v := <-s.ch:
				fn(v)
			case <-s.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.done)
			}
		})
	}
}

// Publish hands v to every current subscriber without waiting for delivery.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, s := range b.subs {
		select {
		case s.ch <- v:
		default:
			b.log.Warn("notification dropped, subscriber buffer full", "subscriber", id)
		}
	}
}

func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops every subscriber goroutine and waits for them to exit.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.done)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
