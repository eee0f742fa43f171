/*
   timer is the CLINT-style machine timer: a free-running counter (mtime)
   advanced by a background ticker goroutine, compared against a
   software-set mtimecmp to raise the Machine Timer Interrupt.

   The ticker goroutine drives an atomic counter; the CPU polls Pending()
   once per cycle rather than being pushed events, so no channel sits
   between the timer and the run loop.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer drives mtime forward once per tick until Shutdown.
type Timer struct {
	wg      sync.WaitGroup
	mtime   atomic.Uint64
	mtimecmp atomic.Uint64
	done    chan struct{}
}

// New starts the background ticker immediately; tick is the wall-clock
// interval between ticks, and each tick adds 1 to mtime (a 100ns tick
// gives the 10MHz mtime rate typical of RISC-V reference platforms).
func New(tick time.Duration) *Timer {
	t := &Timer{done: make(chan struct{})}
	t.mtimecmp.Store(^uint64(0)) // never fires until software sets it
	t.wg.Add(1)
	go t.run(tick)
	return t
}

func (t *Timer) run(tick time.Duration) {
	defer t.wg.Done()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.mtime.Add(1)
		case <-t.done:
			return
		}
	}
}

// Shutdown stops the background ticker and waits for it to exit.
func (t *Timer) Shutdown() {
	close(t.done)
	t.wg.Wait()
}

// Mtime returns the current free-running counter value.
func (t *Timer) Mtime() uint64 {
	return t.mtime.Load()
}

// Mtimecmp returns the current compare value.
func (t *Timer) Mtimecmp() uint64 {
	return t.mtimecmp.Load()
}

// SetMtimecmp stores a new compare value, as written by the guest's CLINT
// mtimecmp MMIO register.
func (t *Timer) SetMtimecmp(v uint64) {
	t.mtimecmp.Store(v)
}

// Pending implements the interrupt source the CPU polls for the Machine
// Timer Interrupt: mtime has reached or passed mtimecmp.
func (t *Timer) Pending() bool {
	return t.mtime.Load() >= t.mtimecmp.Load()
}
