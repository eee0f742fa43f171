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

package progcache

import (
	"testing"

	"github.com/go-riscv/rvsim/internal/isa"
)

const addiX1X0_1 = 0x00100093 // addi x1, x0, 1

func TestGetMissOutsideRange(t *testing.T) {
	c := New(0x1000, 0x2000)
	if _, ok := c.Get(0x500); ok {
		t.Fatal("address below start should miss")
	}
	if _, ok := c.Get(0x3000); ok {
		t.Fatal("address above end should miss")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New(0x1000, 0x2000)
	d, ok := isa.Decode(addiX1X0_1, 64)
	if !ok {
		t.Fatal("expected addi to decode")
	}
	c.Put(0x1004, d)

	got, ok := c.Get(0x1004)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if got.Rd != 1 || got.Rs1 != 0 {
		t.Fatalf("got %+v, want rd=1 rs1=0", got)
	}
}

func TestInvalidateDropsEntry(t *testing.T) {
	c := New(0x1000, 0x2000)
	d, _ := isa.Decode(addiX1X0_1, 64)
	c.Put(0x1000, d)
	c.Invalidate(0x1000)
	if _, ok := c.Get(0x1000); ok {
		t.Fatal("expected a miss after Invalidate")
	}
}

func TestPopulateBulkDecodes(t *testing.T) {
	c := New(0x1000, 0x1010)
	words := []uint32{addiX1X0_1, addiX1X0_1, 0xFFFFFFFF, addiX1X0_1}
	c.Populate(words, 64)

	if _, ok := c.Get(0x1000); !ok {
		t.Fatal("word 0 should have decoded")
	}
	if _, ok := c.Get(0x1008); ok {
		t.Fatal("the undecodable word should leave its slot invalid")
	}
	if _, ok := c.Get(0x100c); !ok {
		t.Fatal("word 3 should have decoded")
	}
}

func TestContainsRespectsRange(t *testing.T) {
	c := New(0x1000, 0x1010)
	if !c.Contains(0x1000) || !c.Contains(0x100c) {
		t.Fatal("in-range addresses should report Contains")
	}
	if c.Contains(0x1010) || c.Contains(0xfff) {
		t.Fatal("out-of-range addresses should not report Contains")
	}
}

func TestNewRoundsStartDownToWordAlign(t *testing.T) {
	c := New(0x1001, 0x1010)
	if c.start != 0x1000 {
		t.Fatalf("got start %#x, want 0x1000", c.start)
	}
}
