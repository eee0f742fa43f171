/*
   CLINT is the MMIO front-end for Timer: mtimecmp at +0x4000 and the
   free-running mtime counter at +0xBFF8, matching the SiFive CLINT layout
   most RISC-V bare-metal guests expect.

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

package timer

const (
	mtimecmpOff = 0x4000
	mtimeOff    = 0xBFF8
)

// CLINT adapts a Timer onto the MMIO bus.
type CLINT struct {
	base  uint64
	timer *Timer
}

// NewCLINT wraps timer as an MMIO device at base.
func NewCLINT(base uint64, timer *Timer) *CLINT {
	return &CLINT{base: base, timer: timer}
}

func (c *CLINT) Base() uint64 { return c.base }
func (c *CLINT) Size() uint64 { return 0xC000 }

func (c *CLINT) Load(addr uint64, size int) uint64 {
	off := addr - c.base
	switch off {
	case mtimeOff, mtimeOff + 4:
		return readHalfOrWhole(c.timer.Mtime(), off == mtimeOff+4, size)
	case mtimecmpOff, mtimecmpOff + 4:
		return readHalfOrWhole(c.timer.Mtimecmp(), off == mtimecmpOff+4, size)
	}
	return 0
}

func (c *CLINT) Store(addr uint64, size int, val uint64) {
	off := addr - c.base
	switch off {
	case mtimecmpOff:
		if size == 8 {
			c.timer.SetMtimecmp(val)
			return
		}
		cur := c.timer.Mtimecmp()
		c.timer.SetMtimecmp((cur &^ 0xFFFFFFFF) | (val & 0xFFFFFFFF))
	case mtimecmpOff + 4:
		cur := c.timer.Mtimecmp()
		c.timer.SetMtimecmp((cur & 0xFFFFFFFF) | (val << 32))
	}
}

// readHalfOrWhole serves RV32 guests that access a 64-bit register as two
// word-sized windows and RV64 guests that read it whole.
func readHalfOrWhole(v uint64, high bool, size int) uint64 {
	if high {
		return v >> 32
	}
	if size == 8 {
		return v
	}
	return v & 0xFFFFFFFF
}

func (c *CLINT) Shutdown() {}
