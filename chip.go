// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package sysgpio

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Chip describes one GPIO controller as reported by sysfs.
//
// A controller manages the pins numbered Base to Base+Ngpio-1.
type Chip struct {
	// The number of the first pin managed by this controller.
	Base uint

	// The number of pins managed by this controller.
	Ngpio uint

	// The controller label, provided for diagnostics. Not always unique.
	Label string
}

// Chips enumerates the GPIO controllers exposed under the given class
// directory.
func Chips(root string) ([]Chip, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read GPIO class directory %s", root)
	}
	var chips []Chip
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "gpiochip") {
			continue
		}
		c, err := readChip(path.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		chips = append(chips, c)
	}
	return chips, nil
}

func readChip(chipPath string) (Chip, error) {
	c := Chip{}
	base, err := readUintAttr(chipPath, "base")
	if err != nil {
		return c, err
	}
	ngpio, err := readUintAttr(chipPath, "ngpio")
	if err != nil {
		return c, err
	}
	// label is purely informational and may be absent on exotic controllers.
	label, _ := readAttr(chipPath, "label")
	c.Base = base
	c.Ngpio = ngpio
	c.Label = label
	return c, nil
}

// Covers reports whether the pin number falls within this controller's
// range.
func (c Chip) Covers(id uint) bool {
	return c.Base <= id && id < c.Base+c.Ngpio
}

func (c Chip) String() string {
	return fmt.Sprintf("%s [%d..%d]", c.Label, c.Base, c.Base+c.Ngpio-1)
}

// validatePin confirms that some controller under root manages the pin.
func validatePin(root string, id uint) error {
	chips, err := Chips(root)
	if err != nil {
		return err
	}
	for _, c := range chips {
		if c.Covers(id) {
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidPin, "pin %d", id)
}

func readAttr(p, attr string) (string, error) {
	data, err := os.ReadFile(path.Join(p, attr))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readUintAttr(p, attr string) (uint, error) {
	s, err := readAttr(p, attr)
	if err != nil {
		return 0, errors.Wrapf(err, "cannot read %s", path.Join(p, attr))
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed %s attribute", attr)
	}
	return uint(v), nil
}

func writeAttr(p, attr, value string) error {
	return os.WriteFile(path.Join(p, attr), []byte(value), 0666)
}
