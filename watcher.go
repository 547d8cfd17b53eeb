// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package sysgpio

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// valueLen is the byte count of a value attribute read: the level digit
// plus a trailing newline.
const valueLen = 2

// watcher detects level transitions on a pin's value descriptor and pushes
// one decoded Level per transition into the events channel.
//
// It blocks in poll(2) over the value descriptor and the read side of a
// wakeup pipe. Nothing is ever written to the pipe; closing its write side
// is the sole termination signal, which keeps the loop free of both timers
// and signal handlers. A fatal error on the value stream also terminates
// the watcher, recorded for retrieval via Pin.WatchError.
//
// The events channel is closed when the watcher returns, for any reason,
// so the dispatcher always drains and stops.
type watcher struct {
	idStr    string
	valueFd  int
	wakeRead int
	events   chan Level
	logger   Logger

	// Poll request mask and re-read strategy for the value stream. Real
	// sysfs attributes signal a transition with POLLPRI and must be re-read
	// from offset zero; FIFO-backed streams, as created by the gpiotest
	// simulator, signal data with POLLIN and are not seekable.
	pollEvents int16
	seekable   bool

	mu  sync.Mutex
	err error
}

// newWatcher opens the pin's value descriptor and the wakeup pipe, and
// consumes the stale initial value. All failures here abort construction of
// the owning Pin; nothing runs in the background yet.
//
// The write side of the wakeup pipe is returned to the caller, which closes
// it to terminate the watcher.
func newWatcher(r *resource, cfg config) (*watcher, int, error) {
	fd, err := unix.Open(r.attrPath("value"), unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, -1, errors.Wrapf(err, "cannot open value for pin %s", r.idStr)
	}
	w := &watcher{
		idStr:      r.idStr,
		valueFd:    fd,
		events:     make(chan Level, cfg.capacity),
		logger:     cfg.logger,
		pollEvents: unix.POLLPRI,
		seekable:   true,
	}

	var st unix.Stat_t
	if err = unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, -1, errors.Wrapf(err, "cannot stat value for pin %s", r.idStr)
	}
	if st.Mode&unix.S_IFMT == unix.S_IFIFO {
		w.pollEvents = unix.POLLIN
		w.seekable = false
	}

	var p [2]int
	if err = unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		unix.Close(fd)
		return nil, -1, errors.Wrap(err, "cannot create wakeup pipe")
	}
	w.wakeRead = p[0]

	// The content present at open time is whatever level the pin already
	// had, not a transition; discard it.
	var buf [valueLen]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil || n != valueLen {
		unix.Close(fd)
		unix.Close(p[0])
		unix.Close(p[1])
		if err == nil {
			err = errors.Errorf("short read (%d bytes)", n)
		}
		return nil, -1, errors.Wrapf(err, "cannot consume initial value for pin %s", r.idStr)
	}
	return w, p[1], nil
}

// run is the watcher goroutine body.
func (w *watcher) run() {
	defer close(w.events)

	fds := []unix.PollFd{
		{Fd: int32(w.valueFd), Events: w.pollEvents},
		{Fd: int32(w.wakeRead), Events: unix.POLLRDHUP},
	}
	const closed = unix.POLLRDHUP | unix.POLLHUP | unix.POLLERR | unix.POLLNVAL

	for {
		fds[0].Revents = 0
		fds[1].Revents = 0
		n, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			w.fail(errors.Wrapf(err, "poll failed on pin %s", w.idStr))
			return
		}
		if n == 0 {
			// No timeout was requested, so a timeout return is impossible.
			w.fail(errors.Wrap(ErrInternal, "poll reported a timeout with no timeout requested"))
			return
		}

		if fds[0].Revents&w.pollEvents != 0 {
			lvl, err := w.readValue()
			if err != nil {
				w.fail(err)
				return
			}
			w.events <- lvl
		} else if fds[0].Revents&closed != 0 {
			// Error condition on the value stream with no data to go with
			// it. On sysfs POLLERR always accompanies POLLPRI, so this only
			// fires when the stream itself has failed.
			w.fail(errors.Errorf("value stream failed for pin %s (revents %#x)", w.idStr, fds[0].Revents))
			return
		}

		if fds[1].Revents&closed != 0 {
			// Shutdown. A transition that was ready in the same wake has
			// already been dispatched above, so no final event is lost.
			return
		}
	}
}

// readValue re-reads the value attribute after a transition and decodes it.
func (w *watcher) readValue() (Level, error) {
	if w.seekable {
		if _, err := unix.Seek(w.valueFd, 0, 0); err != nil {
			return Low, errors.Wrapf(err, "cannot rewind value for pin %s", w.idStr)
		}
	}
	var buf [valueLen]byte
	n, err := unix.Read(w.valueFd, buf[:])
	if err != nil {
		return Low, errors.Wrapf(err, "cannot read value for pin %s", w.idStr)
	}
	if n != valueLen {
		return Low, errors.Errorf("short value read for pin %s (%d bytes)", w.idStr, n)
	}
	return decodeLevel(buf[0], w.idStr)
}

// fail records a fatal watcher error. It runs off the caller's goroutine,
// so the error is both logged and stored for later retrieval.
func (w *watcher) fail(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
	w.logger.Printf("sysgpio: watcher for pin %s terminated: %v", w.idStr, err)
}

func (w *watcher) lastErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
