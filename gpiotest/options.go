// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package gpiotest

// Bank describes one simulated GPIO controller.
type Bank struct {
	// The controller label, exposed through the gpiochip's label attribute.
	Label string

	// The number of the first pin managed by this controller.
	Base uint

	// The number of pins managed by this controller.
	NumLines uint

	// Whether the controller's pins support edge detection.
	Edges bool
}

// NewBank constructs a Bank based on the provided options.
func NewBank(label string, base, numLines uint, options ...NewBankOption) *Bank {
	b := &Bank{Label: label, Base: base, NumLines: numLines}
	for _, o := range options {
		o.applyBankOption(b)
	}
	return b
}

// NewSimOption defines the interface required to provide an option to New.
type NewSimOption interface {
	applySimOption(*builder)
}

// WithBank returns an option that adds the given bank to the Sim.
func WithBank(b *Bank) Bank {
	return *b
}

func (o Bank) applySimOption(b *builder) {
	b.banks = append(b.banks, o)
}

// NewBankOption defines the interface required to provide an option to
// NewBank.
type NewBankOption interface {
	applyBankOption(*Bank)
}

// EdgesOption enables edge detection for a bank.
type EdgesOption struct{}

// WithEdges returns an option that makes a bank's pins capable of edge
// detection.
//
// Exported pins on an edge-capable bank carry an edge attribute, and their
// value is a FIFO the test drives with [Sim.Inject] rather than a plain
// file.
func WithEdges() EdgesOption {
	return EdgesOption{}
}

func (o EdgesOption) applyBankOption(b *Bank) {
	b.Edges = true
}
