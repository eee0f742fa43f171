/*
   Run drives the fetch/execute loop in bounded batches so a caller (the
   monitor's single-step/continue commands, or a benchmark harness) can
   regain control without the CPU running away unbounded or needing a
   goroutine of its own per step.

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

import "context"

// StopReason explains why Run returned control to its caller.
type StopReason int

const (
	StopMaxCycles StopReason = iota
	StopHalted
	StopContext
	// StopFatal means a ModeUser run died on an exception with no guest
	// handler; CPU.Fatal carries the cause.
	StopFatal
)

// Run executes up to maxCycles instructions, or fewer if the CPU halts
// (ModeUser's exit/exit_group) or ctx is canceled first.
func (c *CPU) Run(ctx context.Context, maxCycles uint64) StopReason {
	for i := uint64(0); i < maxCycles; i++ {
		if c.Halted {
			return c.haltReason()
		}
		select {
		case <-ctx.Done():
			return StopContext
		default:
		}
		c.Step()
	}
	if c.Halted {
		return c.haltReason()
	}
	return StopMaxCycles
}

func (c *CPU) haltReason() StopReason {
	if c.Fatal != nil {
		return StopFatal
	}
	return StopHalted
}

// RunFast is the benchmarking variant of Run: no context poll, no PC
// history, and the interrupt check runs every fastPollStride instructions
// instead of every one. Behavior is identical to Run on well-formed
// programs — interrupts are still edge-triggered at cycle boundaries,
// just coarser ones.
func (c *CPU) RunFast(maxCycles uint64) StopReason {
	const fastPollStride = 64
	for i := uint64(0); i < maxCycles; i++ {
		if c.Halted {
			return c.haltReason()
		}
		if i%fastPollStride == 0 {
			if tr := c.pollInterrupt(); tr != nil {
				c.raiseTrap(*tr)
				continue
			}
		}
		if c.WFI {
			continue
		}
		c.stepNoPoll()
	}
	if c.Halted {
		return c.haltReason()
	}
	return StopMaxCycles
}
