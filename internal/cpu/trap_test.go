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
	"testing"

	"github.com/go-riscv/rvsim/internal/csr"
	"github.com/go-riscv/rvsim/internal/isa"
	"github.com/go-riscv/rvsim/internal/memory"
	"github.com/go-riscv/rvsim/internal/trap"
)

func newBareMetalCPU() *CPU {
	bus := memory.NewBus(memory.NewDense(0, 0x10000))
	c := New(64, ModeBareMetal, bus)
	c.Cache = nil
	return c
}

// TestSupervisorECALLTrapsToMachineAndMRETReturns exercises the full
// Supervisor-ECALL -> Machine-trap -> MRET round trip with no delegation.
func TestSupervisorECALLTrapsToMachineAndMRETReturns(t *testing.T) {
	c := newBareMetalCPU()
	c.Priv = trap.Supervisor
	c.PC = 0x1000
	c.CSR.Write64(csr.Mtvec, 0x8000)
	c.CSR.Write64(csr.Mstatus, csr.StatusMIE)

	h := c.handlers[isa.OpECALL]
	next := c.PC + 4
	tr := h(c, isa.Decoded{}, c.PC, &next)
	if tr == nil {
		t.Fatal("expected ECALL from Supervisor mode to raise a trap")
	}
	if tr.Cause != trap.ECallFromS {
		t.Fatalf("got cause %v, want ECallFromS", tr.Cause)
	}

	c.raiseTrap(*tr)
	if c.Priv != trap.Machine {
		t.Fatalf("undelegated trap should land in Machine mode, got priv=%d", c.Priv)
	}
	if c.PC != 0x8000 {
		t.Fatalf("PC got %#x, want mtvec base 0x8000", c.PC)
	}
	if c.CSR.Read64(csr.Mepc) != 0x1000 {
		t.Fatalf("mepc got %#x, want 0x1000", c.CSR.Read64(csr.Mepc))
	}
	if c.CSR.Read64(csr.Mstatus)&csr.StatusMIE != 0 {
		t.Fatal("MIE should be cleared on trap entry")
	}
	if c.CSR.Read64(csr.Mstatus)&csr.StatusMPIE == 0 {
		t.Fatal("MPIE should carry the old MIE value")
	}
	if trap.Privilege(csr.MPP(c.CSR.Read64(csr.Mstatus))) != trap.Supervisor {
		t.Fatal("MPP should record the previous privilege (Supervisor)")
	}

	c.mret()
	if c.Priv != trap.Supervisor {
		t.Fatalf("mret should restore Supervisor privilege, got %d", c.Priv)
	}
	if c.PC != 0x1000 {
		t.Fatalf("mret should restore PC from mepc, got %#x", c.PC)
	}
	if c.CSR.Read64(csr.Mstatus)&csr.StatusMIE == 0 {
		t.Fatal("mret should restore MIE from MPIE")
	}
}

func TestDelegatedTrapLandsInSupervisor(t *testing.T) {
	c := newBareMetalCPU()
	c.Priv = trap.User
	c.PC = 0x2000
	c.CSR.Write64(csr.Stvec, 0x9000)
	c.CSR.Write64(csr.Medeleg, 1<<uint(trap.ECallFromU))

	c.raiseTrap(trap.Trap{Cause: trap.ECallFromU})
	if c.Priv != trap.Supervisor {
		t.Fatalf("delegated trap should land in Supervisor, got %d", c.Priv)
	}
	if c.PC != 0x9000 {
		t.Fatalf("PC got %#x, want stvec base 0x9000", c.PC)
	}

	c.sret()
	if c.Priv != trap.User {
		t.Fatalf("sret should restore User privilege, got %d", c.Priv)
	}
	if c.PC != 0x2000 {
		t.Fatalf("sret should restore PC from sepc, got %#x", c.PC)
	}
}

func TestMachineNeverPreemptedByDelegatedInterrupt(t *testing.T) {
	c := newBareMetalCPU()
	c.Priv = trap.Machine
	c.CSR.Write64(csr.Mideleg, 1<<uint(trap.SupervisorTimer))
	c.CSR.Write64(csr.Mie, 1<<uint(trap.SupervisorTimer))
	c.CSR.Write64(csr.Mip, 1<<uint(trap.SupervisorTimer))
	c.CSR.Write64(csr.Mstatus, csr.StatusSIE)

	if tr := c.pollInterrupt(); tr != nil {
		t.Fatalf("a delegated interrupt must never preempt Machine mode, got %v", tr)
	}
}
