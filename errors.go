// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package sysgpio

import "github.com/pkg/errors"

var (
	// ErrInvalidPin indicates the pin number is not within the range of any
	// GPIO controller on the system.
	ErrInvalidPin = errors.New("invalid pin number")

	// ErrAlreadyExported indicates the pin is already exported, either by
	// another Pin in this process or by some other process entirely.
	ErrAlreadyExported = errors.New("pin already exported")

	// ErrWrongDirection indicates a write was attempted on an input pin.
	ErrWrongDirection = errors.New("cannot set level on an input pin")

	// ErrCorruptValue indicates the value attribute contained a byte other
	// than '0' or '1'.
	ErrCorruptValue = errors.New("corrupt value byte")

	// ErrEdgeUnsupported indicates the pin's controller does not support
	// edge detection.
	ErrEdgeUnsupported = errors.New("edge detection not supported")

	// ErrInternal indicates an invariant violation, such as poll(2)
	// reporting a timeout when none was requested.
	ErrInternal = errors.New("internal invariant violation")
)
