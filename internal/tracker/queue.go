// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracker

import (
	"context"
	"sync/atomic"

	"github.com/relabs-tech/gps_power/internal/gps"
)

// QueueCapacity is the number of samples buffered between the dispatch
// goroutine and the worker.
const QueueCapacity = 8

// FixQueue is a bounded single-producer/single-consumer FIFO. Sends never
// block: when the queue is full the sample is dropped and counted.
type FixQueue struct {
	ch      chan gps.Sample
	dropped atomic.Uint64
}

// NewFixQueue returns a queue holding up to capacity samples. A capacity
// below 1 selects QueueCapacity.
func NewFixQueue(capacity int) *FixQueue {
	if capacity < 1 {
		capacity = QueueCapacity
	}
	return &FixQueue{ch: make(chan gps.Sample, capacity)}
}

// TrySend enqueues s without blocking and reports whether it was accepted.
func (q *FixQueue) TrySend(s gps.Sample) bool {
	select {
	case q.ch <- s:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Receive blocks until a sample is available. There is no timeout; it only
// returns early with ctx's error when ctx is cancelled.
func (q *FixQueue) Receive(ctx context.Context) (gps.Sample, error) {
	select {
	case s := <-q.ch:
		return s, nil
	case <-ctx.Done():
		return gps.Sample{}, ctx.Err()
	}
}

// Dropped returns how many samples were discarded because the queue was full.
func (q *FixQueue) Dropped() uint64 { return q.dropped.Load() }

// Len returns the number of queued samples.
func (q *FixQueue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *FixQueue) Cap() int { return cap(q.ch) }
