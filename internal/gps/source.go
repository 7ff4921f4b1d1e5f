// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "sync"

// Handler receives parsed fixes. HandleFix runs on the source's dispatch
// goroutine and must return quickly. Handlers are compared by identity on
// Unregister, so implementations should be pointer types.
type Handler interface {
	HandleFix(f Fix)
}

// Source is anything that delivers fixes to registered handlers.
// Later sources (replay from file, gpsd) plug in here too.
type Source interface {
	Register(h Handler)
	Unregister(h Handler)
}

// Dispatcher keeps the handler registrations of a Source and fans a fix out
// to them synchronously. The zero value is ready to use.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
}

// Register adds h. Registering the same handler twice is a no-op.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.handlers {
		if existing == h {
			return
		}
	}
	d.handlers = append(d.handlers, h)
}

// Unregister removes h. Unknown handlers are ignored.
func (d *Dispatcher) Unregister(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.handlers {
		if existing == h {
			d.handlers = append(d.handlers[:i:i], d.handlers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered handlers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Dispatch calls every registered handler with f, in registration order.
// The lock is not held while handlers run.
func (d *Dispatcher) Dispatch(f Fix) {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, h := range handlers {
		h.HandleFix(f)
	}
}
