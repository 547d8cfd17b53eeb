// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package gpiotest

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/pinctl/sysgpio"
)

// Sim simulates the sysfs GPIO class tree under Root.
//
// A background goroutine tails the export and unexport control files and
// creates or removes per-pin attribute directories the way the kernel
// would. The goroutine runs until Close.
type Sim struct {
	// The directory the simulated class tree is rooted at.
	Root string

	banks []Bank

	mu    sync.Mutex
	lines map[uint]*line

	// Control file lines already processed.
	exportSeen   int
	unexportSeen int

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// line is the state of one exported pin.
type line struct {
	// Write side of the value FIFO, held open so the FIFO never reports
	// end-of-file to the consumer. -1 for pins without edge support.
	fifoFd int

	// Last injected level, for edge-capable pins whose value cannot be
	// re-read from the FIFO.
	level sysgpio.Level
}

type builder struct {
	banks []Bank
}

// tick is the period at which the simulator polls the control files.
const tick = time.Millisecond

// New constructs a Sim rooted at the given directory, which must exist and
// should be empty; a test's t.TempDir() is the expected choice.
//
// At least one WithBank option must be provided.
func New(root string, options ...NewSimOption) (*Sim, error) {
	b := builder{}
	for _, o := range options {
		o.applySimOption(&b)
	}
	if len(b.banks) == 0 {
		return nil, errors.New("no banks defined")
	}
	s := &Sim{
		Root:  root,
		banks: b.banks,
		lines: make(map[uint]*line),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if err := s.setupTree(); err != nil {
		return nil, err
	}
	go s.kernel()
	return s, nil
}

// setupTree creates the gpiochip directories and control files.
func (s *Sim) setupTree() error {
	for _, b := range s.banks {
		chipPath := path.Join(s.Root, fmt.Sprintf("gpiochip%d", b.Base))
		if err := os.MkdirAll(chipPath, 0755); err != nil {
			return err
		}
		if err := writeAttr(chipPath, "base", fmt.Sprintf("%d\n", b.Base)); err != nil {
			return err
		}
		if err := writeAttr(chipPath, "ngpio", fmt.Sprintf("%d\n", b.NumLines)); err != nil {
			return err
		}
		if err := writeAttr(chipPath, "label", b.Label+"\n"); err != nil {
			return err
		}
	}
	for _, ctl := range []string{"export", "unexport"} {
		if err := os.WriteFile(path.Join(s.Root, ctl), nil, 0666); err != nil {
			return err
		}
	}
	return nil
}

// kernel is the goroutine playing the kernel's part.
func (s *Sim) kernel() {
	defer close(s.done)
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.scanControl("export", &s.exportSeen, s.exportPin)
			s.scanControl("unexport", &s.unexportSeen, s.unexportPin)
		}
	}
}

// scanControl applies fn to each control file entry not yet processed.
func (s *Sim) scanControl(name string, seen *int, fn func(uint)) {
	data, err := os.ReadFile(path.Join(s.Root, name))
	if err != nil {
		return
	}
	entries := strings.Fields(string(data))
	for _, e := range entries[*seen:] {
		*seen++
		id, err := strconv.ParseUint(e, 10, 32)
		if err != nil {
			continue
		}
		fn(uint(id))
	}
}

func (s *Sim) bankFor(id uint) *Bank {
	for i := range s.banks {
		b := &s.banks[i]
		if b.Base <= id && id < b.Base+b.NumLines {
			return b
		}
	}
	return nil
}

func (s *Sim) pinPath(id uint) string {
	return path.Join(s.Root, fmt.Sprintf("gpio%d", id))
}

// exportPin materializes the attribute directory for a pin, as the kernel
// does in response to a write to export.
//
// The direction attribute is created last so a consumer waiting for it
// never observes a half-built directory.
func (s *Sim) exportPin(id uint) {
	b := s.bankFor(id)
	if b == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[id]; ok {
		return
	}
	p := s.pinPath(id)
	if err := os.Mkdir(p, 0755); err != nil {
		return
	}
	l := &line{fifoFd: -1}
	valuePath := path.Join(p, "value")
	if b.Edges {
		if err := unix.Mkfifo(valuePath, 0666); err != nil {
			return
		}
		fd, err := unix.Open(valuePath, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			return
		}
		l.fifoFd = fd
		unix.Write(fd, []byte("0\n"))
		writeAttr(p, "edge", "none\n")
	} else {
		writeAttr(p, "value", "0\n")
	}
	writeAttr(p, "active_low", "0\n")
	writeAttr(p, "direction", "in\n")
	s.lines[id] = l
}

// unexportPin removes a pin's attribute directory.
func (s *Sim) unexportPin(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok {
		return
	}
	if l.fifoFd >= 0 {
		unix.Close(l.fifoFd)
	}
	os.RemoveAll(s.pinPath(id))
	delete(s.lines, id)
}

// Exported reports whether the pin currently has an attribute directory.
func (s *Sim) Exported(id uint) bool {
	_, err := os.Stat(s.pinPath(id))
	return err == nil
}

// Inject writes a level transition into the pin's value stream, waking any
// watcher polling it. The pin must be exported on an edge-capable bank.
func (s *Sim) Inject(id uint, level sysgpio.Level) error {
	b := []byte("0\n")
	if level == sysgpio.High {
		b = []byte("1\n")
	}
	if err := s.InjectRaw(id, b); err != nil {
		return err
	}
	s.mu.Lock()
	if l, ok := s.lines[id]; ok {
		l.level = level
	}
	s.mu.Unlock()
	return nil
}

// InjectRaw writes arbitrary bytes into the pin's value stream. Intended
// for driving a consumer with malformed values; use Inject for well-formed
// transitions.
func (s *Sim) InjectRaw(id uint, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok {
		return errors.Errorf("pin %d is not exported", id)
	}
	if l.fifoFd < 0 {
		return errors.Errorf("pin %d has no edge support", id)
	}
	_, err := unix.Write(l.fifoFd, data)
	return errors.Wrapf(err, "cannot inject on pin %d", id)
}

// Level returns the level the pin currently holds: the value attribute for
// plain pins, or the last injected level for edge-capable pins.
func (s *Sim) Level(id uint) (sysgpio.Level, error) {
	s.mu.Lock()
	l, ok := s.lines[id]
	if ok && l.fifoFd >= 0 {
		lvl := l.level
		s.mu.Unlock()
		return lvl, nil
	}
	s.mu.Unlock()
	data, err := os.ReadFile(path.Join(s.pinPath(id), "value"))
	if err != nil {
		return sysgpio.Low, errors.Wrapf(err, "cannot read value for pin %d", id)
	}
	if len(data) > 0 && data[0] == '1' {
		return sysgpio.High, nil
	}
	return sysgpio.Low, nil
}

// SetLevel sets the value attribute of a plain exported pin, simulating an
// externally driven input level.
func (s *Sim) SetLevel(id uint, level sysgpio.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok {
		return errors.Errorf("pin %d is not exported", id)
	}
	if l.fifoFd >= 0 {
		return errors.Errorf("pin %d is edge-capable; use Inject", id)
	}
	b := "0\n"
	if level == sysgpio.High {
		b = "1\n"
	}
	return writeAttr(s.pinPath(id), "value", b)
}

// Close stops the simulator and removes every exported pin. Idempotent.
//
// Close the consumer's pins first; a pin watching a value stream sees the
// stream fail once the simulator is gone.
func (s *Sim) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.mu.Lock()
		defer s.mu.Unlock()
		for id, l := range s.lines {
			if l.fifoFd >= 0 {
				unix.Close(l.fifoFd)
			}
			os.RemoveAll(s.pinPath(id))
			delete(s.lines, id)
		}
	})
}

func writeAttr(p, attr, value string) error {
	return os.WriteFile(path.Join(p, attr), []byte(value), 0666)
}
