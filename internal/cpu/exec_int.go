/*
   RV32I/RV64I base integer instruction semantics plus the M extension.

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
	"github.com/go-riscv/rvsim/internal/trap"
)

func registerIntHandlers(t map[isa.Op]handlerFunc) {
	t[isa.OpLUI] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(d.Imm))
		return nil
	}
	t[isa.OpAUIPC] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, pc+uint64(d.Imm))
		return nil
	}
	t[isa.OpJAL] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, pc+4)
		target := pc + uint64(d.Imm)
		if target%2 != 0 {
			return &trap.Trap{Cause: trap.InstrAddrMisaligned, Tval: target}
		}
		*next = target
		return nil
	}
	t[isa.OpJALR] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		link := pc + 4
		target := (c.GetX(d.Rs1) + uint64(d.Imm)) &^ 1
		c.SetX(d.Rd, link)
		if target%2 != 0 {
			return &trap.Trap{Cause: trap.InstrAddrMisaligned, Tval: target}
		}
		*next = target
		return nil
	}

	branch := func(test func(a, b int64) bool, unsigned bool) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			a, b := c.GetX(d.Rs1), c.GetX(d.Rs2)
			var taken bool
			if unsigned {
				taken = test(int64(a), int64(b))
			} else {
				taken = test(signed(a, c.XLen), signed(b, c.XLen))
			}
			if taken {
				target := pc + uint64(d.Imm)
				if target%2 != 0 {
					return &trap.Trap{Cause: trap.InstrAddrMisaligned, Tval: target}
				}
				*next = target
			}
			return nil
		}
	}
	t[isa.OpBEQ] = branch(func(a, b int64) bool { return a == b }, false)
	t[isa.OpBNE] = branch(func(a, b int64) bool { return a != b }, false)
	t[isa.OpBLT] = branch(func(a, b int64) bool { return a < b }, false)
	t[isa.OpBGE] = branch(func(a, b int64) bool { return a >= b }, false)
	t[isa.OpBLTU] = branch(func(a, b int64) bool { return uint64(a) < uint64(b) }, true)
	t[isa.OpBGEU] = branch(func(a, b int64) bool { return uint64(a) >= uint64(b) }, true)

	alu := func(f func(a, b int64, xlen int) int64) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			c.SetX(d.Rd, uint64(f(signed(c.GetX(d.Rs1), c.XLen), d.Imm, c.XLen)))
			return nil
		}
	}
	t[isa.OpADDI] = alu(func(a, b int64, _ int) int64 { return a + b })
	t[isa.OpSLTI] = alu(func(a, b int64, _ int) int64 { return boolInt(a < b) })
	t[isa.OpSLTIU] = alu(func(a, b int64, _ int) int64 { return boolInt(uint64(a) < uint64(b)) })
	t[isa.OpXORI] = alu(func(a, b int64, _ int) int64 { return a ^ b })
	t[isa.OpORI] = alu(func(a, b int64, _ int) int64 { return a | b })
	t[isa.OpANDI] = alu(func(a, b int64, _ int) int64 { return a & b })

	t[isa.OpSLLI] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := shiftAmount(d, c.XLen)
		c.SetX(d.Rd, c.GetX(d.Rs1)<<shamt)
		return nil
	}
	t[isa.OpSRLI] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := shiftAmount(d, c.XLen)
		v := c.GetX(d.Rs1)
		if c.XLen == 32 {
			v = uint64(uint32(v))
		}
		c.SetX(d.Rd, v>>shamt)
		return nil
	}
	t[isa.OpSRAI] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := shiftAmount(d, c.XLen)
		c.SetX(d.Rd, uint64(signed(c.GetX(d.Rs1), c.XLen)>>shamt))
		return nil
	}

	reg := func(f func(a, b int64) int64) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			a := signed(c.GetX(d.Rs1), c.XLen)
			b := signed(c.GetX(d.Rs2), c.XLen)
			c.SetX(d.Rd, uint64(f(a, b)))
			return nil
		}
	}
	t[isa.OpADD] = reg(func(a, b int64) int64 { return a + b })
	t[isa.OpSUB] = reg(func(a, b int64) int64 { return a - b })
	t[isa.OpSLT] = reg(func(a, b int64) int64 { return boolInt(a < b) })
	t[isa.OpSLTU] = reg(func(a, b int64) int64 { return boolInt(uint64(a) < uint64(b)) })
	t[isa.OpXOR] = reg(func(a, b int64) int64 { return a ^ b })
	t[isa.OpOR] = reg(func(a, b int64) int64 { return a | b })
	t[isa.OpAND] = reg(func(a, b int64) int64 { return a & b })
	t[isa.OpSLL] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := c.GetX(d.Rs2) & shiftMask(c.XLen)
		c.SetX(d.Rd, c.GetX(d.Rs1)<<shamt)
		return nil
	}
	t[isa.OpSRL] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := c.GetX(d.Rs2) & shiftMask(c.XLen)
		v := c.GetX(d.Rs1)
		if c.XLen == 32 {
			v = uint64(uint32(v))
		}
		c.SetX(d.Rd, v>>shamt)
		return nil
	}
	t[isa.OpSRA] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := c.GetX(d.Rs2) & shiftMask(c.XLen)
		c.SetX(d.Rd, uint64(signed(c.GetX(d.Rs1), c.XLen)>>shamt))
		return nil
	}

	t[isa.OpFENCE] = noop
	t[isa.OpFENCEI] = noop
	t[isa.OpWFI] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.WFI = true
		return nil
	}
	t[isa.OpSFENCEVMA] = noop

	registerRV64Handlers(t)
	registerMExtHandlers(t)
	registerLoadStoreHandlers(t)
}

func noop(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap { return nil }

func registerRV64Handlers(t map[isa.Op]handlerFunc) {
	wreg := func(f func(a, b int32) int32) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			a := int32(c.GetX(d.Rs1))
			b := int32(c.GetX(d.Rs2))
			c.SetX(d.Rd, uint64(int64(f(a, b))))
			return nil
		}
	}
	t[isa.OpADDW] = wreg(func(a, b int32) int32 { return a + b })
	t[isa.OpSUBW] = wreg(func(a, b int32) int32 { return a - b })
	t[isa.OpSLLW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := c.GetX(d.Rs2) & 0x1F
		v := int32(uint32(c.GetX(d.Rs1)) << shamt)
		c.SetX(d.Rd, uint64(int64(v)))
		return nil
	}
	t[isa.OpSRLW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := c.GetX(d.Rs2) & 0x1F
		v := int32(uint32(c.GetX(d.Rs1)) >> shamt)
		c.SetX(d.Rd, uint64(int64(v)))
		return nil
	}
	t[isa.OpSRAW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := c.GetX(d.Rs2) & 0x1F
		v := int32(c.GetX(d.Rs1)) >> shamt
		c.SetX(d.Rd, uint64(int64(v)))
		return nil
	}
	t[isa.OpADDIW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		v := int32(c.GetX(d.Rs1)) + int32(d.Imm)
		c.SetX(d.Rd, uint64(int64(v)))
		return nil
	}
	t[isa.OpSLLIW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := uint32(d.Imm) & 0x1F
		v := int32(uint32(c.GetX(d.Rs1)) << shamt)
		c.SetX(d.Rd, uint64(int64(v)))
		return nil
	}
	t[isa.OpSRLIW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := uint32(d.Imm) & 0x1F
		v := int32(uint32(c.GetX(d.Rs1)) >> shamt)
		c.SetX(d.Rd, uint64(int64(v)))
		return nil
	}
	t[isa.OpSRAIW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		shamt := uint32(d.Imm) & 0x1F
		v := int32(c.GetX(d.Rs1)) >> shamt
		c.SetX(d.Rd, uint64(int64(v)))
		return nil
	}
}

// signed reinterprets the low xlen bits of v as a signed value.
func signed(v uint64, xlen int) int64 {
	if xlen == 32 {
		return int64(int32(uint32(v)))
	}
	return int64(v)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func shiftMask(xlen int) uint64 {
	if xlen == 32 {
		return 0x1F
	}
	return 0x3F
}

// shiftAmount extracts shamt from an I-format shift instruction's 12-bit
// immediate field: 5 bits for RV32, 6 for RV64.
func shiftAmount(d isa.Decoded, xlen int) uint64 {
	return uint64(d.Imm) & shiftMask(xlen)
}
