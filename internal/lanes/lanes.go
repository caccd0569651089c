// Package lanes runs work serially per key and in parallel across keys.
package lanes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when submitting to closed Lanes.
var ErrClosed = errors.New("lanes closed")

// DefaultMaxActive bounds how many keys execute at the same time.
const DefaultMaxActive = 64

// Lanes is a keyed serial executor. Work submitted under one key runs in
// submission order, one item at a time; different keys run concurrently up
// to the active limit. A key's worker exits once its queue drains.
type Lanes struct {
	mu     sync.Mutex
	lanes  map[string]*lane
	sem    chan struct{}
	wg     sync.WaitGroup
	closed bool
	logger *zap.Logger
}

type lane struct {
	queue []func()
}

// New creates Lanes allowing maxActive keys to run at once.
func New(maxActive int, logger *zap.Logger) *Lanes {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Lanes{
		lanes:  make(map[string]*lane),
		sem:    make(chan struct{}, maxActive),
		logger: logger,
	}
}

// Go enqueues fn on key's lane without waiting for it.
func (l *Lanes) Go(key string, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	ln, ok := l.lanes[key]
	if ok {
		ln.queue = append(ln.queue, fn)
		return nil
	}
	ln = &lane{queue: []func(){fn}}
	l.lanes[key] = ln
	l.wg.Add(1)
	go l.run(key, ln)
	return nil
}

// Do runs fn on key's lane and waits for its result. If ctx ends first Do
// returns ctx.Err(); fn is then skipped if it has not started yet.
func (l *Lanes) Do(ctx context.Context, key string, fn func() error) error {
	done := make(chan error, 1)
	err := l.Go(key, func() {
		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		done <- fn()
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for queued work to finish.
func (l *Lanes) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
}

// Active returns the number of keys with queued or running work.
func (l *Lanes) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

func (l *Lanes) run(key string, ln *lane) {
	defer l.wg.Done()
	l.sem <- struct{}{}
	defer func() { <-l.sem }()

	for {
		l.mu.Lock()
		if len(ln.queue) == 0 {
			delete(l.lanes, key)
			l.mu.Unlock()
			return
		}
		fn := ln.queue[0]
		ln.queue[0] = nil
		ln.queue = ln.queue[1:]
		l.mu.Unlock()

		l.exec(key, fn)
	}
}

func (l *Lanes) exec(key string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("lane task panicked", zap.String("key", key), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}
