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

	"github.com/go-riscv/rvsim/internal/csr"
	"github.com/go-riscv/rvsim/internal/isa"
	"github.com/go-riscv/rvsim/internal/trap"
)

// TestFibonacciLoopEndToEnd hand-assembles a tiny five-iteration Fibonacci
// loop and drives it entirely through Run/Step, exercising fetch, decode,
// the program cache and the ADD/ADDI/BNE handlers together rather than in
// isolation.
func TestFibonacciLoopEndToEnd(t *testing.T) {
	c := newTestCPU(64)
	words := []uint32{
		0x00000093, // addi x1, x0, 0      ; a = 0
		0x00100113, // addi x2, x0, 1      ; b = 1
		0x00500193, // addi x3, x0, 5      ; counter = 5
		0x00208233, // loop: add x4, x1, x2
		0x00010093, //       addi x1, x2, 0 ; a = b
		0x00020113, //       addi x2, x4, 0 ; b = a+b
		0xFFF18193, //       addi x3, x3, -1
		0xFE0198E3, //       bne  x3, x0, loop
		0x0000006F, // jal x0, 0            ; park here once the loop ends
	}
	for i, w := range words {
		c.Bus.StoreWord(uint64(i*4), w)
	}

	c.Run(context.Background(), 64)

	if got := c.GetX(2); got != 8 {
		t.Fatalf("got x2=%d after 5 iterations, want fib(6)=8", got)
	}
	if got := c.GetX(1); got != 5 {
		t.Fatalf("got x1=%d, want fib(5)=5", got)
	}
	if got := c.GetX(3); got != 0 {
		t.Fatalf("got x3=%d, want the loop counter exhausted to 0", got)
	}
}

// TestFibonacciMicrokernelComputesFib10 loads a small Fibonacci kernel at
// 0x1000 with its iteration count N read back from physical address 0, and
// runs it to completion purely through Run/Step.
func TestFibonacciMicrokernelComputesFib10(t *testing.T) {
	c := newTestCPU(64)
	c.Bus.StoreWord(0, 10) // N

	words := []uint32{
		0x00100093, 0x00100113, 0x00002183, 0x00000213,
		0x00010293, 0x00208133, 0x00028093, 0x00120213,
		0xfe3248e3, 0xfcdff06f,
	}
	for i, w := range words {
		c.Bus.StoreWord(0x1000+uint64(i*4), w)
	}
	c.PC = 0x1000

	c.Run(context.Background(), 500)

	if got := c.GetX(5); got != 55 {
		t.Fatalf("got x5=%d, want fib(10)=55", got)
	}
}

// TestLoadWordAcrossLazyPageBoundary exercises a real LW instruction whose
// source address straddles two backing pages of the sparse RAM, rather than
// calling memory.Sparse directly.
func TestLoadWordAcrossLazyPageBoundary(t *testing.T) {
	c := newTestCPU(64)
	const addr = 0x10000 - 2 // straddles the sparse page boundary

	c.Bus.StoreWord(addr, 0xCAFEBABE)
	c.SetX(5, addr)

	// lw x6, 0(x5)
	c.exec(isa.OpLW, isa.Decoded{Rd: 6, Rs1: 5, Imm: 0})

	if got := c.GetX(6); got != 0xFFFFFFFFCAFEBABE {
		t.Fatalf("got %#x, want 0xFFFFFFFFCAFEBABE (LW sign-extends on RV64)", got)
	}
}

// TestPagedLoadThroughGigapageLeaf hand-builds a one-entry Sv39 root table
// whose gigapage leaf identity-maps VA 0x80000000, then executes a real LW
// through the MMU in Supervisor mode.
func TestPagedLoadThroughGigapageLeaf(t *testing.T) {
	c := newBareMetalCPU()
	c.Priv = trap.Supervisor

	const (
		root = uint64(0x4000)
		va   = uint64(0x8000_0000)
	)
	vpn2 := (va >> 30) & 0x1FF
	// Gigapage leaf: PPN 0x80000 (PA 0x80000000), V|R|W|X|A|D set.
	pte := (uint64(0x80000) << 10) | 0xCF
	c.Bus.StoreDouble(root+vpn2*8, pte)

	c.Bus.StoreWord(va, 0xDEADBEEF)
	c.CSR.Write64(csr.Satp, (8<<60)|(root>>12))

	c.SetX(6, va)
	// lw x5, 0(x6)
	c.exec(isa.OpLW, isa.Decoded{Rd: 5, Rs1: 6, Imm: 0})

	if got := c.GetX(5); got != 0xDEADBEEF {
		t.Fatalf("got %#x, want 0xDEADBEEF through the Sv39 walk", got)
	}
}
