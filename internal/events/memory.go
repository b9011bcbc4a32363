// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrBusClosed is returned when operating on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscriptionNotFound is returned when unsubscribing an unknown id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

const (
	idAlphabet         = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idLength           = 21
	defaultAsyncBuffer = 100
)

// NewID returns a random alphanumeric identifier.
func NewID() string {
	id, err := gonanoid.Generate(idAlphabet, idLength)
	if err != nil {
		panic(fmt.Sprintf("generate nanoid: %v", err))
	}
	return id
}

// MemoryBusConfig configures a MemoryBus.
type MemoryBusConfig struct {
	History HistoryConfig
}

// MemoryBus is an in-process Bus.
type MemoryBus struct {
	mu      sync.RWMutex
	subs    []*subscription // subscription order
	history *History
	closed  atomic.Bool
	wg      sync.WaitGroup
	stop    chan struct{}
	log     *slog.Logger
}

type subscription struct {
	id      SubscriptionID
	pattern Pattern
	handler Handler
	ch      chan Event // nil for synchronous subscribers
	done    chan struct{}
}

// NewMemoryBus creates a bus and starts its history pruner.
func NewMemoryBus(cfg MemoryBusConfig) *MemoryBus {
	bus := &MemoryBus{
		history: NewHistory(cfg.History),
		stop:    make(chan struct{}),
		log:     slog.With("component", "events"),
	}

	interval := min(max(bus.history.maxAge/10, time.Minute), time.Hour)
	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-bus.stop:
				return
			case <-ticker.C:
				bus.history.Prune()
			}
		}
	}()
	return bus
}

// Publish records event in history and delivers it to matching subscribers.
// ID and Timestamp are filled in when empty.
func (bus *MemoryBus) Publish(ctx context.Context, event Event) error {
	if bus.closed.Load() {
		return ErrBusClosed
	}
	if event.ID == "" {
		event.ID = NewID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	bus.history.Add(event)

	bus.mu.RLock()
	subs := make([]*subscription, len(bus.subs))
	copy(subs, bus.subs)
	bus.mu.RUnlock()

	for _, sub := range subs {
		if !sub.pattern.Match(event.Type) {
			continue
		}
		if sub.ch == nil {
			bus.invoke(ctx, sub.handler, event)
			continue
		}
		select {
		case sub.ch <- event:
		case <-sub.done:
		default:
			bus.log.Warn("dropped event, subscriber buffer full", "type", event.Type, "subscription", sub.id)
		}
	}
	return nil
}

func (bus *MemoryBus) invoke(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			bus.log.Error("event handler panic", "type", event.Type, "panic", r)
		}
	}()
	if err := h(ctx, event); err != nil {
		bus.log.Debug("event handler error", "type", event.Type, "error", err)
	}
}

// Subscribe registers a synchronous handler.
func (bus *MemoryBus) Subscribe(pattern string, handler Handler) (SubscriptionID, error) {
	return bus.add(pattern, handler, 0)
}

// SubscribeAsync registers a handler that runs on its own goroutine with a
// buffer of bufferSize events (100 when not positive).
func (bus *MemoryBus) SubscribeAsync(pattern string, handler Handler, bufferSize int) (SubscriptionID, error) {
	if bufferSize <= 0 {
		bufferSize = defaultAsyncBuffer
	}
	return bus.add(pattern, handler, bufferSize)
}

func (bus *MemoryBus) add(pattern string, handler Handler, buffer int) (SubscriptionID, error) {
	if bus.closed.Load() {
		return "", ErrBusClosed
	}
	p, err := ParsePattern(pattern)
	if err != nil {
		return "", err
	}
	sub := &subscription{
		id:      SubscriptionID(NewID()),
		pattern: p,
		handler: handler,
		done:    make(chan struct{}),
	}
	if buffer > 0 {
		sub.ch = make(chan Event, buffer)
		bus.wg.Add(1)
		go bus.run(sub)
	}

	bus.mu.Lock()
	bus.subs = append(bus.subs, sub)
	bus.mu.Unlock()
	return sub.id, nil
}

func (bus *MemoryBus) run(sub *subscription) {
	defer bus.wg.Done()
	for {
		select {
		case <-sub.done:
			return
		case ev := <-sub.ch:
			bus.invoke(context.Background(), sub.handler, ev)
		}
	}
}

// Unsubscribe removes a subscription. Pending async events are discarded.
func (bus *MemoryBus) Unsubscribe(id SubscriptionID) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subs {
		if sub.id == id {
			bus.subs = append(bus.subs[:i:i], bus.subs[i+1:]...)
			close(sub.done)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// History returns retained events matching filter.
func (bus *MemoryBus) History(filter Filter) ([]Event, error) {
	return bus.history.Query(filter), nil
}

// Close stops all subscribers and the pruner. It is safe to call twice.
func (bus *MemoryBus) Close() error {
	if bus.closed.Swap(true) {
		return nil
	}
	close(bus.stop)

	bus.mu.Lock()
	for _, sub := range bus.subs {
		close(sub.done)
	}
	bus.subs = nil
	bus.mu.Unlock()

	bus.wg.Wait()
	bus.history.Reset()
	return nil
}
