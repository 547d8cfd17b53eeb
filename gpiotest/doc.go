// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

/*
Package gpiotest simulates the sysfs GPIO class tree on a plain directory,
so that users of the sysgpio package can be tested without a kernel GPIO
controller and without root permissions.

A simulator ([Sim]) is configured with one or more [Bank]s, each describing
a controller with a base pin number and a pin count. Taking the simulator
live creates the corresponding gpiochip directories and the export and
unexport control files under the given root; a background goroutine then
plays the kernel's part, materializing per-pin attribute directories when a
pin number is written to export and removing them on unexport.

Banks created with [WithEdges] simulate controllers capable of edge
detection: their pins carry an edge attribute and a value stream that can
be driven from the test with [Sim.Inject].

	s, err := gpiotest.New(t.TempDir(),
		gpiotest.WithBank(gpiotest.NewBank("left", 0, 32, gpiotest.WithEdges())),
		gpiotest.WithBank(gpiotest.NewBank("right", 32, 16)),
	)
	defer s.Close()

	p, err := sysgpio.OpenWithInterrupt(5, sysgpio.EdgeBoth, handler,
		sysgpio.WithRoot(s.Root))
	s.Inject(5, sysgpio.High)
*/
package gpiotest
