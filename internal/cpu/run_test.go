/*
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

package cpu

import (
	"context"
	"testing"
)

// fillNops writes an addi x0,x0,0 (NOP) at every word in [pc, pc+n*4) so
// Run can execute n real instructions without faulting.
func fillNops(c *CPU, pc uint64, n int) {
	for i := 0; i < n; i++ {
		c.Bus.StoreWord(pc+uint64(i)*4, 0x00000013)
	}
}

func TestRunStopsAtMaxCycles(t *testing.T) {
	c := newTestCPU(64)
	fillNops(c, 0, 5)
	reason := c.Run(context.Background(), 5)
	if reason != StopMaxCycles {
		t.Fatalf("got %v, want StopMaxCycles", reason)
	}
	if c.Cycles != 5 {
		t.Fatalf("got %d cycles, want 5", c.Cycles)
	}
}

func TestRunStopsWhenHalted(t *testing.T) {
	c := newTestCPU(64)
	c.Halted = true
	reason := c.Run(context.Background(), 100)
	if reason != StopHalted {
		t.Fatalf("got %v, want StopHalted", reason)
	}
	if c.Cycles != 0 {
		t.Fatalf("a CPU that is already halted should not execute any steps, got %d cycles", c.Cycles)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	c := newTestCPU(64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reason := c.Run(ctx, 100)
	if reason != StopContext {
		t.Fatalf("got %v, want StopContext", reason)
	}
	if c.Cycles != 0 {
		t.Fatalf("a canceled context should stop before any step runs, got %d cycles", c.Cycles)
	}
}

func TestRunHaltsMidLoopWhenHaltedFlagIsSetDuringExecution(t *testing.T) {
	c := newTestCPU(64)
	fillNops(c, 0, 1)
	// Simulate an exit syscall firing partway through by halting after one
	// manual step rather than going through Run's internal loop twice.
	c.Step()
	c.Halted = true
	reason := c.Run(context.Background(), 100)
	if reason != StopHalted {
		t.Fatalf("got %v, want StopHalted", reason)
	}
	if c.Cycles != 1 {
		t.Fatalf("got %d cycles, want 1 (the manual step before halting)", c.Cycles)
	}
}

func TestRunFastMatchesRun(t *testing.T) {
	a := newTestCPU(64)
	b := newTestCPU(64)
	fillNops(a, 0, 200)
	fillNops(b, 0, 200)

	a.Run(context.Background(), 200)
	b.RunFast(200)

	if a.PC != b.PC || a.Cycles != b.Cycles {
		t.Fatalf("fast mode diverged: pc %#x/%#x cycles %d/%d", a.PC, b.PC, a.Cycles, b.Cycles)
	}
}

func TestHistoryRingRecordsRecentPCs(t *testing.T) {
	c := newTestCPU(64)
	fillNops(c, 0, 5)
	c.Run(context.Background(), 5)

	pcs := c.History()
	if len(pcs) != 5 {
		t.Fatalf("got %d history entries, want 5", len(pcs))
	}
	for i, pc := range pcs {
		if pc != uint64(i)*4 {
			t.Fatalf("entry %d: got %#x, want %#x", i, pc, i*4)
		}
	}
}

func TestHistoryRingIsBounded(t *testing.T) {
	c := newTestCPU(64)
	fillNops(c, 0, historySize+10)
	c.Run(context.Background(), historySize+10)

	pcs := c.History()
	if len(pcs) != historySize {
		t.Fatalf("got %d history entries, want the ring capacity %d", len(pcs), historySize)
	}
	// Oldest surviving entry is the one pushed 10 instructions in.
	if pcs[0] != 10*4 {
		t.Fatalf("oldest entry %#x, want %#x", pcs[0], 10*4)
	}
}
