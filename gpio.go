// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package sysgpio

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Handler is invoked by an interrupt-enabled Pin once per qualifying level
// transition, with the level observed at the transition.
//
// Handlers run on the pin's dispatcher goroutine, serially and in arrival
// order. A panic in a handler is not recovered; it belongs to the caller.
type Handler func(Level)

// Pin is an exported sysfs GPIO pin.
//
// A Pin is obtained from [Open] or [OpenWithInterrupt] and must be closed
// to release the export; an exported pin is unusable by every other process
// on the system.
//
// SetLevel, GetLevel and Close may be called concurrently with the pin's
// own background goroutines, but a Pin is not otherwise safe for concurrent
// use by multiple goroutines.
type Pin struct {
	id  uint
	res *resource

	handler      Handler
	watcher      *watcher
	wakeWrite    int
	watcherDone  chan struct{}
	dispatchDone chan struct{}

	closeOnce sync.Once
}

// Open exports the pin and configures it with the given direction.
//
// No background goroutines are started; the pin's level is read or written
// on demand with [Pin.GetLevel] and [Pin.SetLevel].
func Open(id uint, direction Direction, options ...Option) (*Pin, error) {
	cfg := defaultConfig()
	for _, o := range options {
		o.applyPinOption(&cfg)
	}
	r, err := acquire(id, direction, cfg)
	if err != nil {
		return nil, err
	}
	return &Pin{id: id, res: r, wakeWrite: -1}, nil
}

// OpenWithInterrupt exports the pin as an input and invokes handler once
// per transition selected by edge.
//
// The watcher and dispatcher goroutines are started before returning, so
// transitions occurring from this point on are detected. The stale level
// present at open time never reaches the handler.
func OpenWithInterrupt(id uint, edge Edge, handler Handler, options ...Option) (*Pin, error) {
	if handler == nil {
		return nil, errors.New("nil handler")
	}
	switch edge {
	case EdgeNone, EdgeRising, EdgeFalling, EdgeBoth:
	default:
		return nil, errors.Errorf("invalid edge %q", string(edge))
	}
	cfg := defaultConfig()
	for _, o := range options {
		o.applyPinOption(&cfg)
	}
	r, err := acquire(id, In, cfg)
	if err != nil {
		return nil, err
	}
	if err = r.setEdge(edge); err != nil {
		r.release()
		return nil, err
	}
	w, wakeWrite, err := newWatcher(r, cfg)
	if err != nil {
		r.release()
		return nil, err
	}

	p := &Pin{
		id:           id,
		res:          r,
		handler:      handler,
		watcher:      w,
		wakeWrite:    wakeWrite,
		watcherDone:  make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
	go func() {
		defer close(p.watcherDone)
		w.run()
	}()
	go func() {
		defer close(p.dispatchDone)
		p.dispatch()
	}()
	// Give both goroutines a chance to reach their blocking points so
	// detection is active promptly. A hint only; correctness does not
	// depend on it.
	runtime.Gosched()
	return p, nil
}

// dispatch drains the event channel and invokes the handler serially.
//
// The channel is closed by the watcher when it terminates, which is the
// only way this loop ends; buffered events are always delivered first.
func (p *Pin) dispatch() {
	for lvl := range p.watcher.events {
		p.handler(lvl)
	}
}

// Number returns the pin number.
func (p *Pin) Number() uint {
	return p.id
}

// SetLevel drives the pin to the given level.
//
// The pin must be an output; [ErrWrongDirection] is returned otherwise.
func (p *Pin) SetLevel(l Level) error {
	return p.res.writeLevel(l)
}

// GetLevel returns the pin's current level, for either direction.
func (p *Pin) GetLevel() (Level, error) {
	return p.res.readLevel()
}

// WatchError returns the error that terminated the pin's watcher, or nil
// if the pin has no watcher or the watcher is still running.
//
// Watcher failures happen off the caller's goroutine; this is how they are
// observed after the fact.
func (p *Pin) WatchError() error {
	if p.watcher == nil {
		return nil
	}
	return p.watcher.lastErr()
}

// Close tears the pin down and releases the export. It is idempotent and
// never fails; teardown diagnostics go to the configured logger.
//
// For an interrupt-enabled pin the shutdown sequence is: close the wakeup
// pipe's write side to unblock the watcher, wait for the watcher, wait for
// the dispatcher to drain the remaining events and finish any in-flight
// handler call, then close the value descriptor and unexport. The value
// descriptor is closed only after both goroutines have stopped, so it can
// never be recycled by the kernel while still referenced by poll.
func (p *Pin) Close() error {
	p.closeOnce.Do(func() {
		if p.watcher != nil {
			unix.Close(p.wakeWrite)
			<-p.watcherDone
			<-p.dispatchDone
			unix.Close(p.watcher.valueFd)
			unix.Close(p.watcher.wakeRead)
		}
		p.res.release()
	})
	return nil
}
