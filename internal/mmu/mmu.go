/*
   Sv39 paged virtual memory translation: a three-level page table walk
   over VPN[2], VPN[1], VPN[0], each 9 bits, with a 12-bit page offset,
   matching the RISC-V privileged-spec Sv39 scheme this emulator targets.

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

import "github.com/go-riscv/rvsim/internal/trap"

// AccessType distinguishes the faulting access for cause selection.
type AccessType uint8

const (
	AccessInstruction AccessType = iota
	AccessLoad
	AccessStore
)

// PTE bit positions.
const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7
)

// PhysReader is the minimal memory access the walker needs: reading a raw
// 8-byte PTE out of physical RAM.
type PhysReader interface {
	LoadDouble(addr uint64) uint64
}

// Satp decodes the fields of the satp CSR relevant to Sv39.
type Satp struct {
	Mode uint8  // 8 = Sv39, 0 = Bare
	PPN  uint64 // physical page number of the root table
}

func DecodeSatp(raw uint64) Satp {
	return Satp{Mode: uint8(raw >> 60), PPN: raw & ((1 << 44) - 1)}
}

const (
	pageOffsetBits = 12
	vpnBits        = 9
)

// Translate walks the Sv39 page table rooted at satp for virtual address
// va, returning the translated physical address. When satp.Mode is Bare
// (0), translation is the identity function. priv is the effective
// privilege the access is made at (S-mode MPRV-redirected accesses pass
// Machine's satp but the original privilege); mxr/sum mirror mstatus's
// MXR/SUM bits.
func Translate(va uint64, satp Satp, priv trap.Privilege, access AccessType, mem PhysReader, mxr, sum bool) (uint64, *trap.Trap) {
	if satp.Mode == 0 || priv == trap.Machine {
		return va, nil
	}

	vpn := [3]uint64{
		(va >> 12) & 0x1FF,
		(va >> 21) & 0x1FF,
		(va >> 30) & 0x1FF,
	}

	ppn := satp.PPN
	var pte uint64
	level := 2
	for {
		pteAddr := (ppn << pageOffsetBits) + vpn[level]*8
		pte = mem.LoadDouble(pteAddr)
		if pte&pteV == 0 || (pte&pteR == 0 && pte&pteW != 0) {
			return 0, pageFault(access, va)
		}
		if pte&(pteR|pteX) != 0 {
			break // leaf
		}
		ppn = pte >> 10
		level--
		if level < 0 {
			return 0, pageFault(access, va)
		}
	}

	if !permitted(pte, priv, access, mxr, sum) {
		return 0, pageFault(access, va)
	}

	// Misaligned superpage: low VPN bits of a non-level-0 leaf's PPN must be
	// zero.
	ppnOut := pte >> 10
	if level > 0 {
		mask := uint64(1)<<(vpnBits*uint(level)) - 1
		if ppnOut&mask != 0 {
			return 0, pageFault(access, va)
		}
	}

	// For a superpage (level > 0), the low VPN fields come from va itself;
	// ppnOut's corresponding bits are already verified zero above.
	lowMask := uint64(1)<<(vpnBits*uint(level)) - 1
	physPPN := ppnOut | ((va >> pageOffsetBits) & lowMask)
	return (physPPN << pageOffsetBits) | (va & (uint64(1)<<pageOffsetBits - 1)), nil
}

func permitted(pte uint64, priv trap.Privilege, access AccessType, mxr, sum bool) bool {
	if pte&pteU != 0 && priv != trap.User && !sum {
		return false
	}
	if pte&pteU == 0 && priv == trap.User {
		return false
	}
	switch access {
	case AccessInstruction:
		return pte&pteX != 0
	case AccessStore:
		return pte&pteW != 0
	default: // AccessLoad
		if pte&pteR != 0 {
			return true
		}
		return mxr && pte&pteX != 0
	}
}

func pageFault(access AccessType, va uint64) *trap.Trap {
	var c trap.Cause
	switch access {
	case AccessInstruction:
		c = trap.InstrPageFault
	case AccessStore:
		c = trap.StorePageFault
	default:
		c = trap.LoadPageFault
	}
	return &trap.Trap{Cause: c, Tval: va}
}
