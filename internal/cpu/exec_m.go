/*
   M extension: integer multiply/divide, including the RV64 word-sized
   (*W) variants that operate on the low 32 bits and sign-extend the
   32-bit result.

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
	"math/bits"

	"github.com/go-riscv/rvsim/internal/isa"
	"github.com/go-riscv/rvsim/internal/trap"
)

func registerMExtHandlers(t map[isa.Op]handlerFunc) {
	t[isa.OpMUL] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, c.GetX(d.Rs1)*c.GetX(d.Rs2))
		return nil
	}
	t[isa.OpMULH] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := signed(c.GetX(d.Rs1), c.XLen), signed(c.GetX(d.Rs2), c.XLen)
		hi, _ := bits.Mul64(uint64(a), uint64(b))
		// Correct the unsigned 128-bit product for the sign of each
		// operand; math/bits has no signed 64x64->128 multiply.
		if a < 0 {
			hi -= uint64(b)
		}
		if b < 0 {
			hi -= uint64(a)
		}
		c.SetX(d.Rd, hi)
		return nil
	}
	t[isa.OpMULHU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		hi, _ := bits.Mul64(c.GetX(d.Rs1), c.GetX(d.Rs2))
		c.SetX(d.Rd, hi)
		return nil
	}
	t[isa.OpMULHSU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a := signed(c.GetX(d.Rs1), c.XLen)
		b := c.GetX(d.Rs2)
		hi, _ := bits.Mul64(uint64(a), b)
		if a < 0 {
			hi -= b
		}
		c.SetX(d.Rd, hi)
		return nil
	}
	t[isa.OpDIV] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := signed(c.GetX(d.Rs1), c.XLen), signed(c.GetX(d.Rs2), c.XLen)
		c.SetX(d.Rd, uint64(divSigned(a, b, c.XLen)))
		return nil
	}
	t[isa.OpDIVU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := c.GetX(d.Rs1), c.GetX(d.Rs2)
		if c.XLen == 32 {
			a, b = uint64(uint32(a)), uint64(uint32(b))
		}
		if b == 0 {
			c.SetX(d.Rd, ^uint64(0))
			return nil
		}
		c.SetX(d.Rd, a/b)
		return nil
	}
	t[isa.OpREM] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := signed(c.GetX(d.Rs1), c.XLen), signed(c.GetX(d.Rs2), c.XLen)
		c.SetX(d.Rd, uint64(remSigned(a, b, c.XLen)))
		return nil
	}
	t[isa.OpREMU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := c.GetX(d.Rs1), c.GetX(d.Rs2)
		if c.XLen == 32 {
			a, b = uint64(uint32(a)), uint64(uint32(b))
		}
		if b == 0 {
			c.SetX(d.Rd, a)
			return nil
		}
		c.SetX(d.Rd, a%b)
		return nil
	}

	t[isa.OpMULW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		v := int32(c.GetX(d.Rs1)) * int32(c.GetX(d.Rs2))
		c.SetX(d.Rd, uint64(int64(v)))
		return nil
	}
	t[isa.OpDIVW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := int32(c.GetX(d.Rs1)), int32(c.GetX(d.Rs2))
		c.SetX(d.Rd, uint64(int64(divSigned32(a, b))))
		return nil
	}
	t[isa.OpDIVUW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := uint32(c.GetX(d.Rs1)), uint32(c.GetX(d.Rs2))
		if b == 0 {
			c.SetX(d.Rd, ^uint64(0))
			return nil
		}
		c.SetX(d.Rd, uint64(int64(int32(a/b))))
		return nil
	}
	t[isa.OpREMW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := int32(c.GetX(d.Rs1)), int32(c.GetX(d.Rs2))
		c.SetX(d.Rd, uint64(int64(remSigned32(a, b))))
		return nil
	}
	t[isa.OpREMUW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, b := uint32(c.GetX(d.Rs1)), uint32(c.GetX(d.Rs2))
		if b == 0 {
			c.SetX(d.Rd, uint64(int64(int32(a))))
			return nil
		}
		c.SetX(d.Rd, uint64(int64(int32(a%b))))
		return nil
	}
}

// divSigned implements DIV's overflow and divide-by-zero special cases
// for an xlen-wide signed division.
func divSigned(a, b int64, xlen int) int64 {
	if b == 0 {
		return -1
	}
	minVal := int64(-1) << (xlen - 1)
	if a == minVal && b == -1 {
		return a
	}
	return a / b
}

func remSigned(a, b int64, xlen int) int64 {
	if b == 0 {
		return a
	}
	minVal := int64(-1) << (xlen - 1)
	if a == minVal && b == -1 {
		return 0
	}
	return a % b
}

func divSigned32(a, b int32) int32 {
	if b == 0 {
		return -1
	}
	if a == -2147483648 && b == -1 {
		return a
	}
	return a / b
}

func remSigned32(a, b int32) int32 {
	if b == 0 {
		return a
	}
	if a == -2147483648 && b == -1 {
		return 0
	}
	return a % b
}
