// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package sysgpio

import "log"

// DefaultRoot is the sysfs GPIO class directory used unless overridden with
// [WithRoot].
const DefaultRoot = "/sys/class/gpio"

// DefaultQueueCapacity is the capacity of the event channel between the
// watcher and the dispatcher unless overridden with [WithQueueCapacity].
const DefaultQueueCapacity = 64

// Logger is the destination for diagnostics that occur where no error can
// be returned, such as a failed unexport during teardown.
//
// The stdlib *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

type config struct {
	root     string
	logger   Logger
	capacity int
}

func defaultConfig() config {
	return config{
		root:     DefaultRoot,
		logger:   log.Default(),
		capacity: DefaultQueueCapacity,
	}
}

// Option defines the interface required to provide an option to [Open] or
// [OpenWithInterrupt].
type Option interface {
	applyPinOption(*config)
}

// RootOption defines the class directory for a Pin.
type RootOption string

// WithRoot returns an option that sets the sysfs class directory the pin's
// attribute paths are rooted at.
//
// This exists for testing against a simulated class tree, such as the one
// provided by the gpiotest package.
func WithRoot(dir string) RootOption {
	return RootOption(dir)
}

func (o RootOption) applyPinOption(c *config) {
	c.root = string(o)
}

// LoggerOption defines the diagnostic logger for a Pin.
type LoggerOption struct {
	l Logger
}

// WithLogger returns an option that directs the pin's teardown and watcher
// diagnostics to l.
func WithLogger(l Logger) LoggerOption {
	return LoggerOption{l}
}

func (o LoggerOption) applyPinOption(c *config) {
	c.logger = o.l
}

// QueueCapacityOption defines the event channel capacity for a Pin.
type QueueCapacityOption int

// WithQueueCapacity returns an option that sets the capacity of the channel
// carrying decoded levels from the watcher to the dispatcher.
//
// The watcher blocks, rather than dropping events, when the channel is
// full, so the capacity only determines how far detection may run ahead of
// a slow handler.
func WithQueueCapacity(n int) QueueCapacityOption {
	return QueueCapacityOption(n)
}

func (o QueueCapacityOption) applyPinOption(c *config) {
	if o > 0 {
		c.capacity = int(o)
	}
}
