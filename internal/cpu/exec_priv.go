/*
   ECALL/EBREAK and the privileged MRET/SRET transfers. ECALL's behavior
   forks on CPU.Mode: in ModeUser it's resolved immediately against the
   host (see syscall.go) and never becomes a guest-visible trap; in
   ModeBareMetal it raises the appropriate ECall-from-<priv> exception for
   the trap unit to deliver.

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

func registerPrivHandlers(t map[isa.Op]handlerFunc) {
	t[isa.OpECALL] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		if c.Mode == ModeUser {
			c.handleSyscall()
			return nil
		}
		var cause trap.Cause
		switch c.Priv {
		case trap.User:
			cause = trap.ECallFromU
		case trap.Supervisor:
			cause = trap.ECallFromS
		default:
			cause = trap.ECallFromM
		}
		return &trap.Trap{Cause: cause}
	}
	t[isa.OpEBREAK] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		return &trap.Trap{Cause: trap.Breakpoint, Tval: pc}
	}
	t[isa.OpMRET] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.mret()
		*next = c.PC
		return nil
	}
	t[isa.OpSRET] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.sret()
		*next = c.PC
		return nil
	}
}

func buildHandlerTable() map[isa.Op]handlerFunc {
	t := make(map[isa.Op]handlerFunc, 160)
	registerIntHandlers(t)
	registerCSRHandlers(t)
	registerFPHandlers(t)
	registerPrivHandlers(t)
	return t
}
