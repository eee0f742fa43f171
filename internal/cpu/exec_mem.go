/*
   Loads, stores, and the A extension. LR/SC and the AMO* family are
   modeled as a plain read-modify-write with no reservation tracking: SC
   always reports success. A faithful reservation set would need to model
   cache-line granularity this interpreter has no other use for, and
   nothing in the supported guest software depends on SC ever failing.

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
	"github.com/go-riscv/rvsim/internal/isa"
	"github.com/go-riscv/rvsim/internal/mmu"
	"github.com/go-riscv/rvsim/internal/trap"
)

func (c *CPU) loadAddr(rs1 uint8, imm int64) (uint64, *trap.Trap) {
	va := c.GetX(rs1) + uint64(imm)
	return c.translate(va, mmu.AccessLoad)
}

func (c *CPU) storeAddr(rs1 uint8, imm int64) (uint64, *trap.Trap) {
	va := c.GetX(rs1) + uint64(imm)
	return c.translate(va, mmu.AccessStore)
}

func registerLoadStoreHandlers(t map[isa.Op]handlerFunc) {
	t[isa.OpLB] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, uint64(int64(int8(c.Bus.LoadByte(a)))))
		return nil
	}
	t[isa.OpLBU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, uint64(c.Bus.LoadByte(a)))
		return nil
	}
	t[isa.OpLH] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, uint64(int64(int16(c.Bus.LoadHalf(a)))))
		return nil
	}
	t[isa.OpLHU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, uint64(c.Bus.LoadHalf(a)))
		return nil
	}
	t[isa.OpLW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, uint64(int64(int32(c.Bus.LoadWord(a)))))
		return nil
	}
	t[isa.OpLWU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, uint64(c.Bus.LoadWord(a)))
		return nil
	}
	t[isa.OpLD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, c.Bus.LoadDouble(a))
		return nil
	}

	t[isa.OpSB] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.storeAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.Bus.StoreByte(a, uint8(c.GetX(d.Rs2)))
		c.invalidateFetch(a)
		return nil
	}
	t[isa.OpSH] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.storeAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.Bus.StoreHalf(a, uint16(c.GetX(d.Rs2)))
		c.invalidateFetch(a)
		return nil
	}
	t[isa.OpSW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.storeAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.Bus.StoreWord(a, uint32(c.GetX(d.Rs2)))
		c.invalidateFetch(a)
		return nil
	}
	t[isa.OpSD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.storeAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.Bus.StoreDouble(a, c.GetX(d.Rs2))
		c.invalidateFetch(a)
		return nil
	}

	registerAtomicHandlers(t)
}

func (c *CPU) invalidateFetch(addr uint64) {
	if c.Cache != nil && c.Cache.Contains(addr) {
		c.Cache.Invalidate(addr)
	}
}

func registerAtomicHandlers(t map[isa.Op]handlerFunc) {
	t[isa.OpLRW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, 0)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, uint64(int64(int32(c.Bus.LoadWord(a)))))
		return nil
	}
	t[isa.OpSCW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.storeAddr(d.Rs1, 0)
		if tr != nil {
			return tr
		}
		c.Bus.StoreWord(a, uint32(c.GetX(d.Rs2)))
		c.SetX(d.Rd, 0) // always succeeds
		return nil
	}
	t[isa.OpLRD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, 0)
		if tr != nil {
			return tr
		}
		c.SetX(d.Rd, c.Bus.LoadDouble(a))
		return nil
	}
	t[isa.OpSCD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.storeAddr(d.Rs1, 0)
		if tr != nil {
			return tr
		}
		c.Bus.StoreDouble(a, c.GetX(d.Rs2))
		c.SetX(d.Rd, 0)
		return nil
	}

	amoW := func(f func(old, rhs int32) int32) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			a, tr := c.loadAddr(d.Rs1, 0)
			if tr != nil {
				return tr
			}
			old := c.Bus.LoadWord(a)
			result := f(int32(old), int32(c.GetX(d.Rs2)))
			c.Bus.StoreWord(a, uint32(result))
			c.invalidateFetch(a)
			c.SetX(d.Rd, uint64(int64(int32(old))))
			return nil
		}
	}
	t[isa.OpAMOSWAPW] = amoW(func(old, rhs int32) int32 { return rhs })
	t[isa.OpAMOADDW] = amoW(func(old, rhs int32) int32 { return old + rhs })
	t[isa.OpAMOXORW] = amoW(func(old, rhs int32) int32 { return old ^ rhs })
	t[isa.OpAMOANDW] = amoW(func(old, rhs int32) int32 { return old & rhs })
	t[isa.OpAMOORW] = amoW(func(old, rhs int32) int32 { return old | rhs })
	t[isa.OpAMOMINW] = amoW(func(old, rhs int32) int32 { return minI32(old, rhs) })
	t[isa.OpAMOMAXW] = amoW(func(old, rhs int32) int32 { return maxI32(old, rhs) })
	t[isa.OpAMOMINUW] = amoW(func(old, rhs int32) int32 { return int32(minU32(uint32(old), uint32(rhs))) })
	t[isa.OpAMOMAXUW] = amoW(func(old, rhs int32) int32 { return int32(maxU32(uint32(old), uint32(rhs))) })

	amoD := func(f func(old, rhs int64) int64) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			a, tr := c.loadAddr(d.Rs1, 0)
			if tr != nil {
				return tr
			}
			old := c.Bus.LoadDouble(a)
			result := f(int64(old), int64(c.GetX(d.Rs2)))
			c.Bus.StoreDouble(a, uint64(result))
			c.invalidateFetch(a)
			c.SetX(d.Rd, old)
			return nil
		}
	}
	t[isa.OpAMOSWAPD] = amoD(func(old, rhs int64) int64 { return rhs })
	t[isa.OpAMOADDD] = amoD(func(old, rhs int64) int64 { return old + rhs })
	t[isa.OpAMOXORD] = amoD(func(old, rhs int64) int64 { return old ^ rhs })
	t[isa.OpAMOANDD] = amoD(func(old, rhs int64) int64 { return old & rhs })
	t[isa.OpAMOORD] = amoD(func(old, rhs int64) int64 { return old | rhs })
	t[isa.OpAMOMIND] = amoD(func(old, rhs int64) int64 { return minI64(old, rhs) })
	t[isa.OpAMOMAXD] = amoD(func(old, rhs int64) int64 { return maxI64(old, rhs) })
	t[isa.OpAMOMINUD] = amoD(func(old, rhs int64) int64 { return int64(minU64(uint64(old), uint64(rhs))) })
	t[isa.OpAMOMAXUD] = amoD(func(old, rhs int64) int64 { return int64(maxU64(uint64(old), uint64(rhs))) })
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
