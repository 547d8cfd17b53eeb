// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

/*
Package sysgpio provides access to individual GPIO pins through the Linux
sysfs class interface (/sys/class/gpio).

A pin is opened in one of two modes. In static mode the pin is configured
as an input or output and its level is read or written on demand:

	p, err := sysgpio.Open(60, sysgpio.Out)
	p.SetLevel(sysgpio.High)
	defer p.Close()

In interrupt mode the pin is forced to be an input and a handler is invoked
once per qualifying level transition, serially and in arrival order:

	p, err := sysgpio.OpenWithInterrupt(15, sysgpio.EdgeRising, func(l sysgpio.Level) {
		fmt.Println("level is now", l)
	})
	defer p.Close()

Interrupt mode runs two goroutines per pin: a watcher that blocks in poll(2)
on the pin's value attribute, and a dispatcher that drains decoded levels
from a bounded channel and calls the handler. [Pin.Close] tears both down
deterministically, unblocking the watcher through a dedicated wakeup pipe
rather than a timeout or a signal.

Exporting a pin is exclusive across the whole system: while a Pin is open,
no other process can use the same GPIO, and an exported pin left behind by
an ungracefully terminated program must be manually unexported before it can
be opened again.

Pins are always configured active-high; the active_low attribute is cleared
on acquisition.

The sysfs GPIO interface is Linux-specific, as is this package.

For testing without a kernel GPIO controller, the gpiotest subpackage
simulates the sysfs class tree on a plain directory; point a Pin at it with
[WithRoot].
*/
package sysgpio
