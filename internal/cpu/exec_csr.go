/*
   Zicsr: the six CSR read-modify-write instructions. Each reads the old
   value into rd before applying the write, and the *I forms source their
   operand from the 5-bit zimm field packed into Rs1 by the decoder rather
   than from a register.

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
	"github.com/go-riscv/rvsim/internal/csr"
	"github.com/go-riscv/rvsim/internal/isa"
	"github.com/go-riscv/rvsim/internal/trap"
)

func csrAddr(d isa.Decoded) csr.Address {
	return csr.Address(uint16(d.Imm) & 0xFFF)
}

func registerCSRHandlers(t map[isa.Op]handlerFunc) {
	t[isa.OpCSRRW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		addr := csrAddr(d)
		old := c.CSR.Read64(addr)
		c.CSR.Write64(addr, c.GetX(d.Rs1))
		c.SetX(d.Rd, old)
		return nil
	}
	t[isa.OpCSRRS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		addr := csrAddr(d)
		old := c.CSR.Read64(addr)
		if d.Rs1 != 0 {
			c.CSR.Write64(addr, old|c.GetX(d.Rs1))
		}
		c.SetX(d.Rd, old)
		return nil
	}
	t[isa.OpCSRRC] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		addr := csrAddr(d)
		old := c.CSR.Read64(addr)
		if d.Rs1 != 0 {
			c.CSR.Write64(addr, old&^c.GetX(d.Rs1))
		}
		c.SetX(d.Rd, old)
		return nil
	}
	t[isa.OpCSRRWI] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		addr := csrAddr(d)
		old := c.CSR.Read64(addr)
		c.CSR.Write64(addr, uint64(d.Rs1))
		c.SetX(d.Rd, old)
		return nil
	}
	t[isa.OpCSRRSI] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		addr := csrAddr(d)
		old := c.CSR.Read64(addr)
		if d.Rs1 != 0 {
			c.CSR.Write64(addr, old|uint64(d.Rs1))
		}
		c.SetX(d.Rd, old)
		return nil
	}
	t[isa.OpCSRRCI] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		addr := csrAddr(d)
		old := c.CSR.Read64(addr)
		if d.Rs1 != 0 {
			c.CSR.Write64(addr, old&^uint64(d.Rs1))
		}
		c.SetX(d.Rd, old)
		return nil
	}
}
