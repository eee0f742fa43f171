/*
   Trap delivery and reversal: interrupt polling, the medeleg/mideleg-
   governed handoff to Supervisor or Machine mode, and MRET/SRET unwinding
   it. Delivery saves state into the target privilege's CSRs and
   redirects PC through that privilege's tvec.

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
	"log/slog"

	"github.com/go-riscv/rvsim/internal/csr"
	"github.com/go-riscv/rvsim/internal/trap"
)

// interruptPriority lists interrupt causes in the fixed priority order the
// privileged spec mandates when more than one is simultaneously pending
// and enabled.
var interruptPriority = []trap.Cause{
	trap.MachineExternal, trap.MachineSoftware, trap.MachineTimer,
	trap.SupervisorExternal, trap.SupervisorSoftware, trap.SupervisorTimer,
}

// pollInterrupt latches the PLIC's external-interrupt line into mip.SEIP,
// then returns the highest-priority pending+enabled interrupt, if any is
// currently globally enabled for delivery at the CPU's privilege.
func (c *CPU) pollInterrupt() *trap.Trap {
	if c.Mode == ModeUser {
		return nil
	}
	if c.PLIC != nil {
		c.PLIC.Poll()
		mip := c.CSR.Read64(csr.Mip)
		if c.PLIC.Asserted() {
			mip |= 1 << uint(trap.SupervisorExternal)
		} else {
			mip &^= 1 << uint(trap.SupervisorExternal)
		}
		c.CSR.Write64(csr.Mip, mip)
	}
	if c.Timer != nil {
		mip := c.CSR.Read64(csr.Mip)
		if c.Timer.Pending() {
			mip |= 1 << uint(trap.MachineTimer)
		} else {
			mip &^= 1 << uint(trap.MachineTimer)
		}
		c.CSR.Write64(csr.Mip, mip)
	}

	mip := c.CSR.Read64(csr.Mip)
	mie := c.CSR.Read64(csr.Mie)
	mideleg := c.CSR.Read64(csr.Mideleg)
	mstatus := c.CSR.Read64(csr.Mstatus)

	for _, cause := range interruptPriority {
		bit := uint64(1) << uint(cause)
		if mip&bit == 0 || mie&bit == 0 {
			continue
		}
		delegated := mideleg&bit != 0
		if delegated {
			if c.Priv == trap.Supervisor && mstatus&csr.StatusSIE == 0 {
				continue
			}
			if c.Priv == trap.Machine {
				continue // delegated interrupts never preempt Machine
			}
		} else {
			if c.Priv == trap.Machine && mstatus&csr.StatusMIE == 0 {
				continue
			}
			if c.Priv > trap.Machine {
				continue
			}
		}
		return &trap.Trap{Cause: trap.Interrupt(cause)}
	}
	return nil
}

// raiseTrap delivers t, choosing Supervisor or Machine as the destination
// privilege per medeleg/mideleg, pushing the interrupt-enable/previous-
// privilege state, and redirecting PC to the target tvec.
func (c *CPU) raiseTrap(t trap.Trap) {
	c.WFI = false
	if c.Mode == ModeUser {
		// The syscall-proxy mode has no guest trap handlers; any exception
		// here ends the run.
		slog.Error("fatal exception in user mode",
			"pc", c.PC, "cause", uint64(t.Cause), "tval", t.Tval)
		c.Fatal = &t
		c.Halted = true
		return
	}
	delegate := trap.Delegated(t.Cause, c.CSR.Read64(csr.Medeleg), c.CSR.Read64(csr.Mideleg)) &&
		c.Priv != trap.Machine

	if delegate {
		c.deliverTo(trap.Supervisor, t)
	} else {
		c.deliverTo(trap.Machine, t)
	}
}

func (c *CPU) deliverTo(dest trap.Privilege, t trap.Trap) {
	prevPriv := c.Priv
	mstatus := c.CSR.Read64(csr.Mstatus)

	if dest == trap.Supervisor {
		c.CSR.Write64(csr.Sepc, c.PC)
		c.CSR.Write64(csr.Scause, uint64(t.Cause))
		c.CSR.Write64(csr.Stval, t.Tval)

		sie := mstatus&csr.StatusSIE != 0
		mstatus = mstatus &^ csr.StatusSIE
		if sie {
			mstatus |= csr.StatusSPIE
		} else {
			mstatus &^= csr.StatusSPIE
		}
		if prevPriv == trap.User {
			mstatus &^= csr.StatusSPP
		} else {
			mstatus |= csr.StatusSPP
		}
		c.CSR.Write64(csr.Mstatus, mstatus)

		base, mode := csr.DecodeTvec(c.CSR.Read64(csr.Stvec))
		c.PC = vectoredTarget(base, mode, t.Cause)
		c.Priv = trap.Supervisor
		return
	}

	c.CSR.Write64(csr.Mepc, c.PC)
	c.CSR.Write64(csr.Mcause, uint64(t.Cause))
	c.CSR.Write64(csr.Mtval, t.Tval)

	mie := mstatus&csr.StatusMIE != 0
	mstatus = mstatus &^ csr.StatusMIE
	if mie {
		mstatus |= csr.StatusMPIE
	} else {
		mstatus &^= csr.StatusMPIE
	}
	mstatus = csr.SetMPP(mstatus, uint8(prevPriv))
	c.CSR.Write64(csr.Mstatus, mstatus)

	base, mode := csr.DecodeTvec(c.CSR.Read64(csr.Mtvec))
	c.PC = vectoredTarget(base, mode, t.Cause)
	c.Priv = trap.Machine
}

func vectoredTarget(base uint64, mode csr.TvecMode, cause trap.Cause) uint64 {
	if mode == csr.TvecVectored && cause.IsInterrupt() {
		return base + 4*cause.Code()
	}
	return base
}

// mret reverses Machine-mode trap entry: restores PC from mepc, MIE from
// MPIE, privilege from MPP (resetting MPP to User and MPIE to 1 per spec).
func (c *CPU) mret() {
	mstatus := c.CSR.Read64(csr.Mstatus)
	mpie := mstatus&csr.StatusMPIE != 0
	if mpie {
		mstatus |= csr.StatusMIE
	} else {
		mstatus &^= csr.StatusMIE
	}
	mpp := csr.MPP(mstatus)
	mstatus |= csr.StatusMPIE
	mstatus = csr.SetMPP(mstatus, uint8(trap.User))
	c.CSR.Write64(csr.Mstatus, mstatus)
	c.Priv = trap.Privilege(mpp)
	c.PC = c.CSR.Read64(csr.Mepc)
}

// sret reverses Supervisor-mode trap entry analogously through SPIE/SPP.
func (c *CPU) sret() {
	mstatus := c.CSR.Read64(csr.Mstatus)
	spie := mstatus&csr.StatusSPIE != 0
	if spie {
		mstatus |= csr.StatusSIE
	} else {
		mstatus &^= csr.StatusSIE
	}
	var spp trap.Privilege = trap.User
	if mstatus&csr.StatusSPP != 0 {
		spp = trap.Supervisor
	}
	mstatus |= csr.StatusSPIE
	mstatus &^= csr.StatusSPP
	c.CSR.Write64(csr.Mstatus, mstatus)
	c.Priv = spp
	c.PC = c.CSR.Read64(csr.Sepc)
}
