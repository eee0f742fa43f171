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

package mmu

import (
	"testing"

	"github.com/go-riscv/rvsim/internal/trap"
)

// fakeRAM is a byte-addressed double-word store good enough to hold a
// small Sv39 page table for testing the walker in isolation.
type fakeRAM struct {
	words map[uint64]uint64
}

func newFakeRAM() *fakeRAM { return &fakeRAM{words: make(map[uint64]uint64)} }

func (r *fakeRAM) LoadDouble(addr uint64) uint64 { return r.words[addr] }

func (r *fakeRAM) setPTE(tableBase uint64, vpnIdx uint64, ppn uint64, flags uint64) {
	r.words[tableBase+vpnIdx*8] = (ppn << 10) | flags
}

func TestTranslateBareModeIsIdentity(t *testing.T) {
	ram := newFakeRAM()
	phys, tr := Translate(0x8000_1234, Satp{Mode: 0}, trap.Supervisor, AccessLoad, ram, false, false)
	if tr != nil {
		t.Fatalf("unexpected trap: %v", tr)
	}
	if phys != 0x8000_1234 {
		t.Fatalf("got %#x, want identity", phys)
	}
}

func TestTranslateThreeLevelLeaf(t *testing.T) {
	ram := newFakeRAM()
	root := uint64(0x1000)
	mid := uint64(0x2000)
	leaf := uint64(0x3000)

	va := uint64(0x0000_0040_1020_3456)
	vpn2 := (va >> 30) & 0x1FF
	vpn1 := (va >> 21) & 0x1FF
	vpn0 := (va >> 12) & 0x1FF

	ram.setPTE(root, vpn2, mid>>12, pteV)
	ram.setPTE(mid, vpn1, leaf>>12, pteV)
	ram.setPTE(leaf, vpn0, 0xABCDE, pteV|pteR|pteW|pteX|pteU|pteA|pteD)

	phys, tr := Translate(va, Satp{Mode: 8, PPN: root >> 12}, trap.User, AccessLoad, ram, false, false)
	if tr != nil {
		t.Fatalf("unexpected trap: %v", tr)
	}
	want := (uint64(0xABCDE) << 12) | (va & 0xFFF)
	if phys != want {
		t.Fatalf("got %#x, want %#x", phys, want)
	}
}

func TestTranslateInvalidPTEFaults(t *testing.T) {
	ram := newFakeRAM()
	_, tr := Translate(0x1000, Satp{Mode: 8, PPN: 1}, trap.Supervisor, AccessLoad, ram, false, false)
	if tr == nil {
		t.Fatal("expected a page fault for an all-zero (non-valid) PTE")
	}
	if tr.Cause != trap.LoadPageFault {
		t.Fatalf("got cause %v, want LoadPageFault", tr.Cause)
	}
}

func TestTranslateSuperpageMisalignedFaults(t *testing.T) {
	ram := newFakeRAM()
	root := uint64(0x1000)
	va := uint64(0x0000_0040_0000_0000)
	vpn2 := (va >> 30) & 0x1FF
	// A 1GiB leaf (level 2) whose PPN has nonzero low VPN bits is
	// misaligned and must fault.
	ram.setPTE(root, vpn2, 0x00000_1, pteV|pteR|pteW|pteX)

	_, tr := Translate(va, Satp{Mode: 8, PPN: root >> 12}, trap.Supervisor, AccessLoad, ram, false, false)
	if tr == nil {
		t.Fatal("expected a page fault for a misaligned superpage")
	}
}

func TestTranslateUserPageDeniedToSupervisorWithoutSUM(t *testing.T) {
	ram := newFakeRAM()
	root := uint64(0x1000)
	va := uint64(0x1000)
	vpn2 := (va >> 30) & 0x1FF
	vpn1 := (va >> 21) & 0x1FF
	vpn0 := (va >> 12) & 0x1FF
	mid := uint64(0x2000)
	leaf := uint64(0x3000)
	ram.setPTE(root, vpn2, mid>>12, pteV)
	ram.setPTE(mid, vpn1, leaf>>12, pteV)
	ram.setPTE(leaf, vpn0, 0x10, pteV|pteR|pteW|pteU)

	_, tr := Translate(va, Satp{Mode: 8, PPN: root >> 12}, trap.Supervisor, AccessLoad, ram, false, false)
	if tr == nil {
		t.Fatal("expected a page fault: Supervisor access to a U page without SUM")
	}

	_, tr = Translate(va, Satp{Mode: 8, PPN: root >> 12}, trap.Supervisor, AccessLoad, ram, false, true)
	if tr != nil {
		t.Fatalf("unexpected trap with SUM set: %v", tr)
	}
}
