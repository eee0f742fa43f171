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

import "testing"

func TestSyscallExitHaltsWithCode(t *testing.T) {
	c := newTestCPU(64)
	c.SetX(17, sysExit)
	c.SetX(10, 42)
	c.handleSyscall()

	if !c.Halted {
		t.Fatal("exit should halt the CPU")
	}
	if c.Exit.Code != 42 {
		t.Fatalf("got exit code %d, want 42", c.Exit.Code)
	}
}

func TestSyscallUnknownNumberReportsError(t *testing.T) {
	c := newTestCPU(64)
	c.SetX(17, 9999)
	c.handleSyscall()

	if got := c.GetX(10); got != ^uint64(0) {
		t.Fatalf("a0 = %#x, want -1", got)
	}
	if got := c.GetX(11); got != 1 {
		t.Fatalf("a1 = %d, want the error flag 1", got)
	}
}

func TestSyscallBrkQueryAndGrow(t *testing.T) {
	c := newTestCPU(64)
	c.Brk = 0x10000

	// brk(0) queries the current break without moving it.
	c.SetX(17, sysBrk)
	c.SetX(10, 0)
	c.handleSyscall()
	if got := c.GetX(10); got != 0x10000 {
		t.Fatalf("brk(0) = %#x, want %#x", got, 0x10000)
	}
	if got := c.GetX(11); got != 0 {
		t.Fatalf("a1 = %d, want 0 on success", got)
	}

	// A higher address grows the break.
	c.SetX(10, 0x20000)
	c.handleSyscall()
	if got := c.GetX(10); got != 0x20000 {
		t.Fatalf("brk grow = %#x, want %#x", got, 0x20000)
	}
	if c.Brk != 0x20000 {
		t.Fatalf("break pointer = %#x, want %#x", c.Brk, 0x20000)
	}

	// A lower address is refused; the break stays put.
	c.SetX(10, 0x100)
	c.handleSyscall()
	if got := c.GetX(10); got != 0x20000 {
		t.Fatalf("brk shrink = %#x, want the unchanged break", got)
	}
}

func TestSyscallCloseUnknownFdFails(t *testing.T) {
	c := newTestCPU(64)
	c.SetX(17, sysClose)
	c.SetX(10, 17)
	c.handleSyscall()

	if got := c.GetX(10); got != ^uint64(0) {
		t.Fatalf("a0 = %#x, want -1", got)
	}
	if got := c.GetX(11); got != 1 {
		t.Fatalf("a1 = %d, want 1", got)
	}
}
