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

	"github.com/go-riscv/rvsim/internal/isa"
	"github.com/go-riscv/rvsim/internal/memory"
)

func newTestCPU(xlen int) *CPU {
	bus := memory.NewBus(nil)
	return New(xlen, ModeUser, bus)
}

func (c *CPU) exec(op isa.Op, d isa.Decoded) {
	h := c.handlers[op]
	next := c.PC + 4
	if tr := h(c, d, c.PC, &next); tr != nil {
		panic(tr)
	}
	c.PC = next
}

func TestX0AlwaysReadsZero(t *testing.T) {
	c := newTestCPU(64)
	c.SetX(0, 0xDEADBEEF)
	if v := c.GetX(0); v != 0 {
		t.Fatalf("x0 got %#x, want 0", v)
	}
}

func TestSetXTruncatesOnRV32(t *testing.T) {
	c := newTestCPU(32)
	c.SetX(5, 0x1_0000_0001)
	if v := c.GetX(5); v != 1 {
		t.Fatalf("got %#x, want truncated to 1", v)
	}
}

func TestADDI(t *testing.T) {
	c := newTestCPU(64)
	c.SetX(1, 10)
	c.exec(isa.OpADDI, isa.Decoded{Rd: 2, Rs1: 1, Imm: -3})
	if v := c.GetX(2); v != 7 {
		t.Fatalf("got %d, want 7", v)
	}
}

func TestADDIWSignExtends(t *testing.T) {
	c := newTestCPU(64)
	// 0x7FFFFFFF + 1 overflows the 32-bit result, must sign-extend to a
	// negative 64-bit value (0xFFFFFFFF80000000).
	c.SetX(1, 0x7FFFFFFF)
	c.exec(isa.OpADDIW, isa.Decoded{Rd: 2, Rs1: 1, Imm: 1})
	if v := c.GetX(2); v != 0xFFFFFFFF80000000 {
		t.Fatalf("got %#x, want 0xFFFFFFFF80000000", v)
	}
}

func TestSLTSigned(t *testing.T) {
	c := newTestCPU(64)
	c.SetX(1, ^uint64(0)) // -1
	c.SetX(2, 1)
	c.exec(isa.OpSLT, isa.Decoded{Rd: 3, Rs1: 1, Rs2: 2})
	if v := c.GetX(3); v != 1 {
		t.Fatalf("-1 < 1 should be true, got %d", v)
	}
}

func TestBranchNotTaken(t *testing.T) {
	c := newTestCPU(64)
	c.PC = 0x1000
	c.SetX(1, 1)
	c.SetX(2, 2)
	next := c.PC + 4
	h := c.handlers[isa.OpBEQ]
	h(c, isa.Decoded{Rs1: 1, Rs2: 2, Imm: 0x100}, c.PC, &next)
	if next != c.PC+4 {
		t.Fatalf("branch should not have been taken")
	}
}

func TestBranchTaken(t *testing.T) {
	c := newTestCPU(64)
	c.PC = 0x1000
	c.SetX(1, 5)
	c.SetX(2, 5)
	next := c.PC + 4
	h := c.handlers[isa.OpBEQ]
	h(c, isa.Decoded{Rs1: 1, Rs2: 2, Imm: 0x100}, c.PC, &next)
	if next != c.PC+0x100 {
		t.Fatalf("got next=%#x, want %#x", next, c.PC+0x100)
	}
}

func TestNaNBoxingRoundTrip(t *testing.T) {
	c := newTestCPU(64)
	c.SetF32(1, 3.5)
	if v := c.GetF32(1); v != 3.5 {
		t.Fatalf("got %v, want 3.5", v)
	}
	// A register never written through SetF32/SetF64 (here simulated by
	// forcing the upper bits to something other than all-ones) must read
	// back as the canonical quiet NaN per the NaN-boxing rule.
	c.F[2] = 0x0000000000000000
	if v := c.GetF32(2); v == v {
		t.Fatal("expected NaN for an invalidly-boxed float register")
	}
}

func TestFloatDoubleRoundTrip(t *testing.T) {
	c := newTestCPU(64)
	c.SetF64(1, 1.25)
	if v := c.GetF64(1); v != 1.25 {
		t.Fatalf("got %v, want 1.25", v)
	}
}
