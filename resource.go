// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package sysgpio

import (
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Direction configures a pin as an input or an output.
//
// The direction is fixed when the pin is opened.
type Direction string

const (
	// In configures the pin as an input.
	In Direction = "in"

	// Out configures the pin as an output.
	Out Direction = "out"
)

// Edge selects which level transitions on an input pin invoke the handler.
type Edge string

const (
	// EdgeNone selects no transitions.
	EdgeNone Edge = "none"

	// EdgeRising selects low to high transitions.
	EdgeRising Edge = "rising"

	// EdgeFalling selects high to low transitions.
	EdgeFalling Edge = "falling"

	// EdgeBoth selects transitions in either direction.
	EdgeBoth Edge = "both"
)

// Level is the logic level of a pin.
type Level int

const (
	// Low is the inactive level.
	Low Level = iota

	// High is the active level.
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// resource owns the kernel-visible exported state for one pin.
//
// Acquisition exports and fully configures the pin; release unexports it.
// Export is exclusive system-wide, so while a resource is held no other
// process can use the pin.
type resource struct {
	id        uint
	idStr     string
	root      string
	direction Direction
	logger    Logger
}

// exportSettleTimeout bounds how long acquisition waits for the kernel to
// materialize the per-pin attribute files after a write to export.
const exportSettleTimeout = time.Second

func acquire(id uint, direction Direction, cfg config) (*resource, error) {
	if direction != In && direction != Out {
		return nil, errors.Errorf("invalid direction %q", string(direction))
	}
	if err := validatePin(cfg.root, id); err != nil {
		return nil, err
	}

	r := &resource{
		id:        id,
		idStr:     strconv.FormatUint(uint64(id), 10),
		root:      cfg.root,
		direction: direction,
		logger:    cfg.logger,
	}

	// The export is exclusive; an existing pin directory means some other
	// holder, in this or another process, already owns the pin.
	if _, err := os.Stat(r.pinPath()); err == nil {
		return nil, errors.Wrapf(ErrAlreadyExported, "pin %s", r.idStr)
	}
	if err := r.export(); err != nil {
		return nil, err
	}
	if err := r.configure(); err != nil {
		r.release()
		return nil, err
	}
	return r, nil
}

func (r *resource) pinPath() string {
	return path.Join(r.root, "gpio"+r.idStr)
}

func (r *resource) attrPath(attr string) string {
	return path.Join(r.pinPath(), attr)
}

func (r *resource) export() error {
	if err := appendControl(path.Join(r.root, "export"), r.idStr); err != nil {
		return errors.Wrapf(err, "cannot export pin %s", r.idStr)
	}
	// The kernel creates the attribute files asynchronously; wait for
	// direction, which appears last, before configuring.
	deadline := time.Now().Add(exportSettleTimeout)
	for {
		if _, err := os.Stat(r.attrPath("direction")); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Errorf("pin %s did not appear after export", r.idStr)
		}
		time.Sleep(time.Millisecond)
	}
}

func (r *resource) configure() error {
	if err := writeAttr(r.pinPath(), "direction", string(r.direction)+"\n"); err != nil {
		return errors.Wrapf(err, "cannot set direction for pin %s", r.idStr)
	}
	// Always active-high.
	if err := writeAttr(r.pinPath(), "active_low", "0\n"); err != nil {
		return errors.Wrapf(err, "cannot clear active_low for pin %s", r.idStr)
	}
	if r.direction == Out {
		// Outputs start driven low.
		if err := r.writeLevel(Low); err != nil {
			return errors.Wrapf(err, "cannot initialize value for pin %s", r.idStr)
		}
	}
	return nil
}

// setEdge writes the edge policy. The edge attribute only exists for pins
// whose controller supports edge detection.
func (r *resource) setEdge(edge Edge) error {
	f, err := os.OpenFile(r.attrPath("edge"), os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrapf(ErrEdgeUnsupported, "pin %s: %v", r.idStr, err)
	}
	_, werr := f.WriteString(string(edge) + "\n")
	cerr := f.Close()
	if werr != nil {
		return errors.Wrapf(ErrEdgeUnsupported, "pin %s: %v", r.idStr, werr)
	}
	if cerr != nil {
		return errors.Wrapf(cerr, "cannot set edge for pin %s", r.idStr)
	}
	return nil
}

func (r *resource) writeLevel(l Level) error {
	if r.direction != Out {
		return errors.Wrapf(ErrWrongDirection, "pin %s", r.idStr)
	}
	b := "0\n"
	if l == High {
		b = "1\n"
	}
	if err := writeAttr(r.pinPath(), "value", b); err != nil {
		return errors.Wrapf(err, "cannot set value for pin %s", r.idStr)
	}
	return nil
}

func (r *resource) readLevel() (Level, error) {
	data, err := os.ReadFile(r.attrPath("value"))
	if err != nil {
		return Low, errors.Wrapf(err, "cannot get value for pin %s", r.idStr)
	}
	if len(data) == 0 {
		return Low, errors.Wrapf(ErrCorruptValue, "pin %s: empty value", r.idStr)
	}
	return decodeLevel(data[0], r.idStr)
}

// release unexports the pin. It is best-effort: it runs on teardown paths
// where a failure must not prevent cleanup of the remaining resources, so
// errors are logged rather than returned.
func (r *resource) release() {
	if err := appendControl(path.Join(r.root, "unexport"), r.idStr); err != nil {
		r.logger.Printf("sysgpio: cannot unexport pin %s: %v", r.idStr, err)
		r.logger.Printf("sysgpio: pin %s remains exported and cannot be reopened until unexported", r.idStr)
	}
}

func decodeLevel(b byte, idStr string) (Level, error) {
	switch b {
	case '0':
		return Low, nil
	case '1':
		return High, nil
	}
	return Low, errors.Wrapf(ErrCorruptValue, "pin %s: byte %q", idStr, b)
}

// appendControl appends a pin number to one of the class control files
// (export or unexport).
func appendControl(p, idStr string) error {
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(idStr + "\n")
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
