/*
   Control & Status Register file.

   Storage is a flat array of 4096 64-bit cells. A handful of addresses
   have aliasing semantics (sie/sip view mie/mip through mideleg; sstatus
   views mstatus through a fixed mask). Aliases are read/write hooks over
   the machine-level cells, never duplicated storage, so the views cannot
   drift apart.

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

package csr

// Address identifies a CSR by its 12-bit encoding.
type Address uint16

// Machine-mode addresses.
const (
	Mstatus   Address = 0x300
	Misa      Address = 0x301
	Medeleg   Address = 0x302
	Mideleg   Address = 0x303
	Mie       Address = 0x304
	Mtvec     Address = 0x305
	Mscratch  Address = 0x340
	Mepc      Address = 0x341
	Mcause    Address = 0x342
	Mtval     Address = 0x343
	Mip       Address = 0x344
	Mvendorid Address = 0xF11
	Marchid   Address = 0xF12
	Mimpid    Address = 0xF13
	Mhartid   Address = 0xF14
)

// Supervisor-mode addresses.
const (
	Sstatus  Address = 0x100
	Sedeleg  Address = 0x102
	Sideleg  Address = 0x103
	Sie      Address = 0x104
	Stvec    Address = 0x105
	Sscratch Address = 0x140
	Sepc     Address = 0x141
	Scause   Address = 0x142
	Stval    Address = 0x143
	Sip      Address = 0x144
	Satp     Address = 0x180
)

// Float rounding-mode/exception-flags addresses (Zicsr+F/D).
const (
	Fflags Address = 0x001
	Frm    Address = 0x002
	Fcsr   Address = 0x003
)

// mstatus bit positions used by the trap unit and xRET handlers.
const (
	statusSIE  = 1 << 1
	statusMIE  = 1 << 3
	statusSPIE = 1 << 5
	statusMPIE = 1 << 7
	statusSPP  = 1 << 8
	statusMPPShift = 11
	statusMPPMask  = 0x3 << statusMPPShift
)

// SSTATUS is a view of MSTATUS restricted to the bits visible to S-mode.
const sstatusMask uint64 = (1 << 1) | (1 << 5) | (1 << 8) |
	(0x3 << 13) /* FS */ | (0x3 << 15) /* XS */ |
	(1 << 18) /* SUM */ | (1 << 19) /* MXR */ | (1 << 63) /* SD */

// File is a CPU's control & status register bank.
type File struct {
	regs [4096]uint64
}

// New builds a CSR file: misa encodes the I, M, F and D extensions with MXL
// per xlen, mhartid=0, mvendorid=0, everything else zero.
func New(xlen int) *File {
	f := &File{}
	mxl := uint64(1)
	if xlen == 64 {
		mxl = 2
	}
	const extIM = (1 << 8) | (1 << 12) // I, M
	extFD := uint64((1 << 5) | (1 << 3))
	shift := uint(62)
	if xlen == 32 {
		shift = 30
	}
	f.regs[Misa] = (mxl << shift) | extIM | extFD
	f.regs[Mhartid] = 0
	f.regs[Mvendorid] = 0
	return f
}

// Read64 returns the full 64-bit value at addr, synthesizing aliases.
func (f *File) Read64(addr Address) uint64 {
	switch addr {
	case Sstatus:
		return f.regs[Mstatus] & sstatusMask
	case Sie:
		return f.regs[Mie] & f.regs[Mideleg]
	case Sip:
		return f.regs[Mip] & f.regs[Mideleg]
	default:
		return f.regs[addr]
	}
}

// Read32 returns the low 32 bits, as used by 32-bit accessors.
func (f *File) Read32(addr Address) uint32 {
	return uint32(f.Read64(addr))
}

// Write64 sets addr to value, delegating aliased writes to the cells
// they view.
func (f *File) Write64(addr Address, value uint64) {
	switch addr {
	case Sstatus:
		f.regs[Mstatus] = (f.regs[Mstatus] &^ sstatusMask) | (value & sstatusMask)
	case Sie:
		deleg := f.regs[Mideleg]
		f.regs[Mie] = (f.regs[Mie] &^ deleg) | (value & deleg)
	case Sip:
		deleg := f.regs[Mideleg]
		// Only the software-settable bits (SSIP) are meant to be writable by
		// software; for this emulator's purposes any delegated bit is.
		f.regs[Mip] = (f.regs[Mip] &^ deleg) | (value & deleg)
	case Misa, Mvendorid, Marchid, Mhartid:
		// Read-only in this emulator.
	default:
		f.regs[addr] = value
	}
}

// Write32 stores to the low 32 bits, leaving the high half untouched.
func (f *File) Write32(addr Address, value uint32) {
	cur := f.Read64(addr)
	f.Write64(addr, (cur &^ 0xFFFFFFFF) | uint64(value))
}

// Raw returns a direct pointer to a CSR's backing cell, bypassing the
// alias handling of Read64/Write64.
func (f *File) Raw(addr Address) *uint64 {
	return &f.regs[addr]
}

// TvecMode is the mode field of a machine/supervisor trap vector CSR.
type TvecMode uint8

const (
	TvecDirect TvecMode = 0
	TvecVectored TvecMode = 1
)

func DecodeTvec(raw uint64) (base uint64, mode TvecMode) {
	return raw &^ 0x3, TvecMode(raw & 0x3)
}

// StatusBits exposes the mstatus fields the trap unit and xRET need.
const (
	StatusSIE  = statusSIE
	StatusMIE  = statusMIE
	StatusSPIE = statusSPIE
	StatusMPIE = statusMPIE
	StatusSPP  = statusSPP
)

// MPP reads/writes the two-bit previous-privilege field of mstatus.
func MPP(mstatus uint64) uint8 {
	return uint8((mstatus & statusMPPMask) >> statusMPPShift)
}

func SetMPP(mstatus uint64, priv uint8) uint64 {
	return (mstatus &^ statusMPPMask) | (uint64(priv&0x3) << statusMPPShift)
}
