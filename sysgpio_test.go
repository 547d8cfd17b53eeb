// SPDX-FileCopyrightText: 2026 The sysgpio authors
//
// SPDX-License-Identifier: MIT

package sysgpio_test

import (
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinctl/sysgpio"
	"github.com/pinctl/sysgpio/gpiotest"
)

// newSim creates a simulated class tree with an edge-capable controller
// covering pins 0-31 and a plain controller covering pins 32-47.
func newSim(t *testing.T) *gpiotest.Sim {
	t.Helper()
	s, err := gpiotest.New(t.TempDir(),
		gpiotest.WithBank(gpiotest.NewBank("left", 0, 32, gpiotest.WithEdges())),
		gpiotest.WithBank(gpiotest.NewBank("right", 32, 16)),
	)
	require.Nil(t, err)
	t.Cleanup(s.Close)
	return s
}

func closeWithin(t *testing.T, p *sysgpio.Pin, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("Close did not complete")
	}
}

func waitUnexported(t *testing.T, s *gpiotest.Sim, id uint) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.Exported(id) },
		time.Second, time.Millisecond)
}

func TestChips(t *testing.T) {
	s := newSim(t)
	chips, err := sysgpio.Chips(s.Root)
	require.Nil(t, err)
	require.Equal(t, 2, len(chips))
	assert.Equal(t, sysgpio.Chip{Base: 0, Ngpio: 32, Label: "left"}, chips[0])
	assert.Equal(t, sysgpio.Chip{Base: 32, Ngpio: 16, Label: "right"}, chips[1])
	assert.True(t, chips[0].Covers(31))
	assert.False(t, chips[0].Covers(32))
	assert.True(t, chips[1].Covers(32))
	assert.False(t, chips[1].Covers(48))
}

func TestOpenInvalidPin(t *testing.T) {
	s := newSim(t)
	p, err := sysgpio.Open(48, sysgpio.Out, sysgpio.WithRoot(s.Root))
	require.ErrorIs(t, err, sysgpio.ErrInvalidPin)
	assert.Nil(t, p)
}

func TestOpenInvalidDirection(t *testing.T) {
	s := newSim(t)
	p, err := sysgpio.Open(33, sysgpio.Direction("sideways"), sysgpio.WithRoot(s.Root))
	require.NotNil(t, err)
	assert.Nil(t, p)
	assert.False(t, s.Exported(33))
}

func TestOpenAlreadyExported(t *testing.T) {
	s := newSim(t)
	p, err := sysgpio.Open(33, sysgpio.Out, sysgpio.WithRoot(s.Root))
	require.Nil(t, err)
	require.True(t, s.Exported(33))

	dup, err := sysgpio.Open(33, sysgpio.In, sysgpio.WithRoot(s.Root))
	require.ErrorIs(t, err, sysgpio.ErrAlreadyExported)
	assert.Nil(t, dup)

	p.Close()
	waitUnexported(t, s, 33)

	// releasing the pin makes it acquirable again
	p, err = sysgpio.Open(33, sysgpio.Out, sysgpio.WithRoot(s.Root))
	require.Nil(t, err)
	p.Close()
	waitUnexported(t, s, 33)
}

func TestOutputRoundTrip(t *testing.T) {
	s := newSim(t)
	p, err := sysgpio.Open(40, sysgpio.Out, sysgpio.WithRoot(s.Root))
	require.Nil(t, err)
	defer p.Close()

	assert.Equal(t, uint(40), p.Number())

	// outputs start driven low
	l, err := p.GetLevel()
	require.Nil(t, err)
	assert.Equal(t, sysgpio.Low, l)

	require.Nil(t, p.SetLevel(sysgpio.High))
	l, err = p.GetLevel()
	require.Nil(t, err)
	assert.Equal(t, sysgpio.High, l)

	require.Nil(t, p.SetLevel(sysgpio.Low))
	l, err = p.GetLevel()
	require.Nil(t, err)
	assert.Equal(t, sysgpio.Low, l)
}

func TestSetLevelOnInput(t *testing.T) {
	s := newSim(t)
	p, err := sysgpio.Open(34, sysgpio.In, sysgpio.WithRoot(s.Root))
	require.Nil(t, err)
	defer p.Close()

	err = p.SetLevel(sysgpio.High)
	require.ErrorIs(t, err, sysgpio.ErrWrongDirection)

	// reads remain valid for inputs
	require.Nil(t, s.SetLevel(34, sysgpio.High))
	l, err := p.GetLevel()
	require.Nil(t, err)
	assert.Equal(t, sysgpio.High, l)

	assert.Nil(t, p.WatchError())
}

func TestOpenWithInterruptEdgeUnsupported(t *testing.T) {
	s := newSim(t)
	p, err := sysgpio.OpenWithInterrupt(35, sysgpio.EdgeRising, func(sysgpio.Level) {},
		sysgpio.WithRoot(s.Root))
	require.ErrorIs(t, err, sysgpio.ErrEdgeUnsupported)
	assert.Nil(t, p)
	// acquisition was rolled back
	waitUnexported(t, s, 35)
}

func TestOpenWithInterruptNilHandler(t *testing.T) {
	s := newSim(t)
	p, err := sysgpio.OpenWithInterrupt(5, sysgpio.EdgeRising, nil,
		sysgpio.WithRoot(s.Root))
	require.NotNil(t, err)
	assert.Nil(t, p)
}

func TestOpenWithInterruptInvalidEdge(t *testing.T) {
	s := newSim(t)
	p, err := sysgpio.OpenWithInterrupt(5, sysgpio.Edge("sometimes"), func(sysgpio.Level) {},
		sysgpio.WithRoot(s.Root))
	require.NotNil(t, err)
	assert.Nil(t, p)
	assert.False(t, s.Exported(5))
}

func TestInterruptDeliveryInOrder(t *testing.T) {
	s := newSim(t)
	got := make(chan sysgpio.Level, 16)
	p, err := sysgpio.OpenWithInterrupt(5, sysgpio.EdgeBoth,
		func(l sysgpio.Level) { got <- l },
		sysgpio.WithRoot(s.Root))
	require.Nil(t, err)
	defer p.Close()

	want := []sysgpio.Level{
		sysgpio.High, sysgpio.Low, sysgpio.High, sysgpio.Low,
		sysgpio.High, sysgpio.Low, sysgpio.High, sysgpio.Low,
	}
	for _, l := range want {
		require.Nil(t, s.Inject(5, l))
	}
	for i, w := range want {
		select {
		case l := <-got:
			assert.Equal(t, w, l, "event %d", i)
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
	// exactly len(want) deliveries, no duplicates
	select {
	case l := <-got:
		t.Fatalf("unexpected extra event %v", l)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInterruptDeliveryUnderLoad(t *testing.T) {
	s := newSim(t)
	got := make(chan sysgpio.Level, 64)
	p, err := sysgpio.OpenWithInterrupt(6, sysgpio.EdgeBoth,
		func(l sysgpio.Level) {
			time.Sleep(2 * time.Millisecond) // slower than injection
			got <- l
		},
		sysgpio.WithRoot(s.Root))
	require.Nil(t, err)
	defer p.Close()

	const n = 20
	var want []sysgpio.Level
	for i := 0; i < n; i++ {
		l := sysgpio.Level(i % 2)
		want = append(want, l)
		require.Nil(t, s.Inject(6, l))
	}
	for i, w := range want {
		select {
		case l := <-got:
			assert.Equal(t, w, l, "event %d", i)
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}

func TestInterruptDeliveryWhenIdle(t *testing.T) {
	s := newSim(t)
	got := make(chan sysgpio.Level, 4)
	p, err := sysgpio.OpenWithInterrupt(7, sysgpio.EdgeBoth,
		func(l sysgpio.Level) { got <- l },
		sysgpio.WithRoot(s.Root))
	require.Nil(t, err)
	defer p.Close()

	for _, w := range []sysgpio.Level{sysgpio.High, sysgpio.Low} {
		time.Sleep(50 * time.Millisecond) // long gap between transitions
		require.Nil(t, s.Inject(7, w))
		select {
		case l := <-got:
			assert.Equal(t, w, l)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestCloseWhileWatcherIdle(t *testing.T) {
	s := newSim(t)
	called := make(chan sysgpio.Level, 1)
	p, err := sysgpio.OpenWithInterrupt(8, sysgpio.EdgeBoth,
		func(l sysgpio.Level) { called <- l },
		sysgpio.WithRoot(s.Root))
	require.Nil(t, err)

	// watcher is blocked in poll with nothing pending; Close must still
	// complete promptly, and the stale initial value must not surface.
	closeWithin(t, p, time.Second)
	select {
	case l := <-called:
		t.Fatalf("spurious handler call with %v", l)
	default:
	}
	waitUnexported(t, s, 8)

	// Close is idempotent
	assert.Nil(t, p.Close())
}

func TestCloseWaitsForHandler(t *testing.T) {
	s := newSim(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	p, err := sysgpio.OpenWithInterrupt(9, sysgpio.EdgeBoth,
		func(sysgpio.Level) {
			close(entered)
			<-release
		},
		sysgpio.WithRoot(s.Root))
	require.Nil(t, err)

	require.Nil(t, s.Inject(9, sysgpio.High))
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	// the in-flight handler holds Close open
	select {
	case <-closed:
		t.Fatal("Close returned while handler still running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not complete after handler returned")
	}
}

func TestCorruptValueStopsDispatch(t *testing.T) {
	s := newSim(t)
	got := make(chan sysgpio.Level, 8)
	p, err := sysgpio.OpenWithInterrupt(10, sysgpio.EdgeBoth,
		func(l sysgpio.Level) { got <- l },
		sysgpio.WithRoot(s.Root),
		sysgpio.WithLogger(log.New(testWriter{t}, "", 0)))
	require.Nil(t, err)

	require.Nil(t, s.Inject(10, sysgpio.High))
	select {
	case l := <-got:
		assert.Equal(t, sysgpio.High, l)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	require.Nil(t, s.InjectRaw(10, []byte("x\n")))
	require.Eventually(t, func() bool { return p.WatchError() != nil },
		time.Second, time.Millisecond)
	require.ErrorIs(t, p.WatchError(), sysgpio.ErrCorruptValue)

	// the watcher is dead; further injections go nowhere
	s.InjectRaw(10, []byte("1\n"))
	select {
	case l := <-got:
		t.Fatalf("unexpected event %v after corrupt value", l)
	case <-time.After(50 * time.Millisecond):
	}

	// and teardown still completes without hanging
	closeWithin(t, p, time.Second)
	waitUnexported(t, s, 10)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "high", sysgpio.High.String())
	assert.Equal(t, "low", sysgpio.Low.String())
}

// testWriter routes pin diagnostics through the test log.
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}
