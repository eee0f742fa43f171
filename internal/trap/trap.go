/*
   Trap and interrupt cause codes and the delivery state machine that drives
   a privileged CPU through medeleg/mideleg-governed delegation.

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

package trap

// Cause is a trap cause value. Interrupts set the top bit (per mcause/scause
// encoding); exceptions leave it clear.
type Cause uint64

const interruptBit = uint64(1) << 63

// Synchronous exception causes.
const (
	InstrAddrMisaligned Cause = 0
	InstrAccessFault    Cause = 1
	IllegalInstruction  Cause = 2
	Breakpoint          Cause = 3
	LoadAddrMisaligned  Cause = 4
	LoadAccessFault     Cause = 5
	StoreAddrMisaligned Cause = 6
	StoreAccessFault    Cause = 7
	ECallFromU          Cause = 8
	ECallFromS          Cause = 9
	ECallFromM          Cause = 11
	InstrPageFault      Cause = 12
	LoadPageFault       Cause = 13
	StorePageFault      Cause = 15
)

// Asynchronous interrupt causes (mcause with bit 63 set reports Code()).
const (
	SupervisorSoftware Cause = 1
	MachineSoftware    Cause = 3
	SupervisorTimer    Cause = 5
	MachineTimer       Cause = 7
	SupervisorExternal Cause = 9
	MachineExternal    Cause = 11
)

// Interrupt builds the mcause-style value for an interrupt cause code.
func Interrupt(code Cause) Cause {
	return Cause(interruptBit) | code
}

// IsInterrupt reports whether c has the interrupt bit set.
func (c Cause) IsInterrupt() bool {
	return uint64(c)&interruptBit != 0
}

// Code strips the interrupt bit, leaving the bare cause number.
func (c Cause) Code() uint64 {
	return uint64(c) &^ interruptBit
}

// Trap is a pending synchronous exception or asynchronous interrupt,
// carrying the auxiliary value that lands in mtval/stval.
type Trap struct {
	Cause Cause
	Tval  uint64
}

func (t Trap) Error() string {
	if t.Cause.IsInterrupt() {
		return "interrupt"
	}
	return "exception"
}

// Privilege levels.
type Privilege uint8

const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

// Delegated reports whether cause is routed to S-mode by medeleg/mideleg.
// curPriv below Machine is a precondition the caller (cpu.raiseTrap) already
// checks — delegation never routes a trap to a privilege above Machine or
// below the trap's natural floor.
func Delegated(c Cause, medeleg, mideleg uint64) bool {
	if c.IsInterrupt() {
		return mideleg&(1<<c.Code()) != 0
	}
	return medeleg&(1<<c.Code()) != 0
}
