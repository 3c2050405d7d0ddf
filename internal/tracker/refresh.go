/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import (
	"sync"
	"time"

	"github.com/kentakayama/tracker-over-http/internal/domain/model"
)

// refresher runs the local status refresh while a session is active and
// fans the result out to subscribers.
type refresher struct {
	interval time.Duration
	tick     func()

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan model.Status
}

func newRefresher(interval time.Duration, tick func()) *refresher {
	return &refresher{
		interval: interval,
		tick:     tick,
		subs:     make(map[int]chan model.Status),
	}
}

// Start launches the loop unless it is already running and reports whether
// it did.
func (r *refresher) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return false
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(r.stop, r.done)
	return true
}

func (r *refresher) Stop() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (r *refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

func (r *refresher) loop(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *refresher) subscribe() (<-chan model.Status, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextID
	r.nextID++
	ch := make(chan model.Status, 1)
	r.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			delete(r.subs, id)
			close(ch)
		})
	}
}

// publish hands status to every subscriber, replacing a value the
// subscriber has not consumed yet.
func (r *refresher) publish(status model.Status) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- status:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- status:
		default:
		}
	}
}
