/*
   CPU: main fetch/decode/execute loop for the RISC-V interpreter.

   Dispatch is a table of per-opcode handlers invoked after decode, keyed
   by isa.Op rather than a raw opcode byte, since the dispatch key space
   here is the (opcode, funct3, funct7) tuple the decoder has already
   folded into Op.

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
	"math"

	"github.com/go-riscv/rvsim/internal/csr"
	"github.com/go-riscv/rvsim/internal/device/plic"
	"github.com/go-riscv/rvsim/internal/isa"
	"github.com/go-riscv/rvsim/internal/kernel"
	"github.com/go-riscv/rvsim/internal/memory"
	"github.com/go-riscv/rvsim/internal/mmu"
	"github.com/go-riscv/rvsim/internal/progcache"
	"github.com/go-riscv/rvsim/internal/sched"
	"github.com/go-riscv/rvsim/internal/trap"
)

// Mode distinguishes the two execution environments.
type Mode uint8

const (
	// ModeUser proxies Linux syscalls directly and never traps into
	// supervisor/machine handlers; ECALL is resolved in-process against
	// the host via package kernel.
	ModeUser Mode = iota
	// ModeBareMetal runs with full privilege levels, CSRs, traps and an
	// Sv39 MMU; ECALL/exceptions are delivered to guest trap handlers.
	ModeBareMetal
)

// CPU is one hart's full architectural and emulator-internal state.
type CPU struct {
	XLen int // 32 or 64

	X [32]uint64 // integer registers; X[0] is always read as zero.
	F [32]uint64 // float registers, NaN-boxed: low 32 bits hold a single.

	PC uint64

	Priv trap.Privilege
	CSR  *csr.File
	Mode Mode

	Bus   *memory.Bus
	Cache *progcache.Cache
	PLIC  *plic.PLIC
	Timer TimerSource

	// Sched drives delayed device-completion callbacks (e.g. the virtio
	// block device's simulated disk latency), advanced once per retired
	// instruction.
	Sched *sched.Scheduler

	Kernel *kernel.Table
	Brk    uint64 // user-mode program break

	Halted bool
	WFI    bool
	Exit   ExitCode

	// Fatal is set when a ModeUser run dies on an exception it has no
	// guest handler for (undecodable fetch, translation failure); the
	// run loop reports it as StopFatal rather than a clean halt.
	Fatal *trap.Trap

	handlers map[isa.Op]handlerFunc

	// Cycles counts retired instructions, exposed for the bounded-batch
	// Run entry point. It is not reflected in any CSR: mcycle/minstret
	// are not backed by this value.
	Cycles uint64

	// hist is a ring of the most recent instruction PCs, kept for
	// post-mortem diagnostics (the monitor's "history" command). It has
	// no architectural effect.
	hist    [historySize]uint64
	histPos int
	histLen int
}

const historySize = 64

type handlerFunc func(c *CPU, d isa.Decoded, pc uint64, nextPC *uint64) *trap.Trap

// TimerSource is the machine timer interrupt source (internal/timer's
// CLINT-style mtime/mtimecmp counter, polled once per cycle).
type TimerSource interface {
	Pending() bool
}

// New constructs a CPU for the given XLen (32 or 64) and mode.
func New(xlen int, mode Mode, bus *memory.Bus) *CPU {
	c := &CPU{
		XLen:  xlen,
		Priv:  trap.Machine,
		CSR:   csr.New(xlen),
		Mode:  mode,
		Bus:   bus,
		Sched: &sched.Scheduler{},
	}
	if mode == ModeUser {
		c.Priv = trap.User
		c.Kernel = kernel.New()
	}
	c.handlers = buildHandlerTable()
	return c
}

// GetX reads integer register i, hardwiring x0 to zero.
func (c *CPU) GetX(i uint8) uint64 {
	if i == 0 {
		return 0
	}
	return c.X[i]
}

// SetX writes integer register i; writes to x0 are discarded.
func (c *CPU) SetX(i uint8, v uint64) {
	if i == 0 {
		return
	}
	if c.XLen == 32 {
		v = uint64(uint32(v))
	}
	c.X[i] = v
}

// nanBoxS converts a float32 to its NaN-boxed 64-bit register encoding:
// the upper 32 bits are all ones, per the ISA-standard NaN-boxing scheme.
func nanBoxS(bits uint32) uint64 {
	return 0xFFFFFFFF00000000 | uint64(bits)
}

// GetF32 reads float register i as a single-precision value, unboxing it;
// a register not validly NaN-boxed reads back as the canonical quiet NaN
// per the ISA's NaN-boxing rule.
func (c *CPU) GetF32(i uint8) float32 {
	v := c.F[i]
	if v>>32 != 0xFFFFFFFF {
		return float32(math.NaN())
	}
	return math.Float32frombits(uint32(v))
}

func (c *CPU) SetF32(i uint8, f float32) {
	c.F[i] = nanBoxS(math.Float32bits(f))
}

func (c *CPU) GetF64(i uint8) float64 {
	return math.Float64frombits(c.F[i])
}

func (c *CPU) SetF64(i uint8, f float64) {
	c.F[i] = math.Float64bits(f)
}

// translate runs the Sv39 walk for addr under the CPU's current satp/
// privilege/mstatus MXR+SUM state, or returns addr unchanged in user mode
// (the syscall-proxy mode has no MMU of its own: the host already
// provides the guest's address space).
func (c *CPU) translate(addr uint64, access mmu.AccessType) (uint64, *trap.Trap) {
	if c.Mode == ModeUser {
		return addr, nil
	}
	satp := mmu.DecodeSatp(c.CSR.Read64(csr.Satp))
	mstatus := c.CSR.Read64(csr.Mstatus)
	mxr := mstatus&(1<<19) != 0
	sum := mstatus&(1<<18) != 0
	return mmu.Translate(addr, satp, c.Priv, access, c.Bus, mxr, sum)
}

// fetch returns the decoded instruction at the current PC, consulting the
// program cache before falling back to a one-off decode+cache-fill.
func (c *CPU) fetch(pc uint64) (isa.Decoded, *trap.Trap) {
	if pc%2 != 0 {
		return isa.Decoded{}, &trap.Trap{Cause: trap.InstrAddrMisaligned, Tval: pc}
	}
	phys, tr := c.translate(pc, mmu.AccessInstruction)
	if tr != nil {
		return isa.Decoded{}, tr
	}
	if c.Cache != nil {
		if d, ok := c.Cache.Get(phys); ok {
			return d, nil
		}
	}
	word := c.Bus.LoadWord(phys)
	d, ok := isa.Decode(word, c.XLen)
	if !ok {
		return isa.Decoded{}, &trap.Trap{Cause: trap.IllegalInstruction, Tval: uint64(word)}
	}
	if c.Cache != nil {
		c.Cache.Put(phys, d)
	}
	return d, nil
}

// pushHistory records pc in the diagnostic ring.
func (c *CPU) pushHistory(pc uint64) {
	c.hist[c.histPos] = pc
	c.histPos = (c.histPos + 1) % historySize
	if c.histLen < historySize {
		c.histLen++
	}
}

// History returns the recorded instruction PCs, oldest first.
func (c *CPU) History() []uint64 {
	out := make([]uint64, 0, c.histLen)
	start := (c.histPos - c.histLen + historySize) % historySize
	for i := 0; i < c.histLen; i++ {
		out = append(out, c.hist[(start+i)%historySize])
	}
	return out
}

// Step fetches, decodes and executes exactly one instruction, delivering
// a trap if one is pending or raised during execution.
func (c *CPU) Step() {
	if c.Halted {
		return
	}
	c.pushHistory(c.PC)
	if tr := c.pollInterrupt(); tr != nil {
		c.raiseTrap(*tr)
		return
	}
	if c.WFI {
		return
	}
	c.stepNoPoll()
}

// stepNoPoll is the fetch/decode/execute tail of Step, shared with the
// fast-mode run loop (which hoists the interrupt poll and history push
// out of the per-instruction path).
func (c *CPU) stepNoPoll() {
	pc := c.PC
	d, tr := c.fetch(pc)
	if tr != nil {
		c.raiseTrap(*tr)
		return
	}

	nextPC := pc + 4
	h, ok := c.handlers[d.Op]
	if !ok {
		c.raiseTrap(trap.Trap{Cause: trap.IllegalInstruction, Tval: uint64(d.Raw)})
		return
	}
	if tr := h(c, d, pc, &nextPC); tr != nil {
		c.raiseTrap(*tr)
		return
	}
	if c.XLen == 32 {
		nextPC = uint64(uint32(nextPC))
	}
	c.PC = nextPC
	c.Cycles++
	c.Sched.Advance(1)
}
