/*
   Linux syscall proxy: ModeUser's ECALL handler. The guest's a7 selects
   the syscall number and a0-a5 carry arguments, mirroring the standard
   RV64/RV32 Linux syscall ABI. Results use the shim's own convention
   rather than Linux's negative-errno one: on success a0 holds the result
   and a1 is 0; on failure a0 is -1 and a1 is 1.

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
	"io"
	"os"
	"time"
)

// Linux syscall numbers this proxy understands, from the generic RISC-V
// Linux numbering: close(57), lseek(62), read(63), write(64), fstat(80),
// exit(93), exit_group(94), gettimeofday(169), brk(214),
// clock_gettime(403, the 64-bit-time variant) and open(1024, the legacy
// generic number).
const (
	sysClose        = 57
	sysLseek        = 62
	sysRead         = 63
	sysWrite        = 64
	sysFstat        = 80
	sysExit         = 93
	sysExitGroup    = 94
	sysGettimeofday = 169
	sysBrk          = 214
	sysClockGettime = 403
	sysOpen         = 1024
)

// ExitCode is set by the sys_exit/sys_exit_group handlers; Run's caller
// reads it after the run loop stops on c.Halted.
type ExitCode struct {
	Code int32
	set  bool
}

func (c *CPU) handleSyscall() {
	num := c.GetX(17) // a7
	a0 := c.GetX(10)
	a1 := c.GetX(11)
	a2 := c.GetX(12)

	switch num {
	case sysExit, sysExitGroup:
		c.Exit = ExitCode{Code: int32(a0), set: true}
		c.Halted = true

	case sysWrite:
		c.sysWrite(int(a0), a1, a2)

	case sysRead:
		c.sysRead(int(a0), a1, a2)

	case sysOpen:
		c.sysOpen(a0, int(a1), uint32(a2))

	case sysClose:
		if c.Kernel == nil {
			c.sysErr()
			return
		}
		if err := c.Kernel.Close(int(a0)); err != nil {
			c.sysErr()
			return
		}
		c.sysRet(0)

	case sysLseek:
		c.sysLseek(int(a0), int64(a1), int(a2))

	case sysFstat:
		c.sysFstat(int(a0), a1)

	case sysBrk:
		c.sysBrk(a0)

	case sysGettimeofday:
		c.sysGettimeofday(a0)

	case sysClockGettime:
		c.sysClockGettime(a1)

	default:
		c.sysErr() // ENOSYS
	}
}

func (c *CPU) readCString(addr uint64, max int) string {
	buf := make([]byte, 0, 64)
	for i := 0; i < max; i++ {
		b := c.Bus.LoadByte(addr + uint64(i))
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

func (c *CPU) sysWrite(fd int, bufAddr, count uint64) {
	data := make([]byte, count)
	c.Bus.ReadBuf(bufAddr, data)
	var w io.Writer
	switch fd {
	case 1:
		w = os.Stdout
	case 2:
		w = os.Stderr
	default:
		if c.Kernel == nil {
			c.sysErr()
			return
		}
		h, err := c.Kernel.Get(fd)
		if err != nil {
			c.sysErr()
			return
		}
		n, err := h.Write(data)
		if err != nil {
			c.sysErr()
			return
		}
		c.sysRet(uint64(n))
		return
	}
	n, _ := w.Write(data)
	c.sysRet(uint64(n))
}

func (c *CPU) sysRead(fd int, bufAddr, count uint64) {
	if c.Kernel == nil {
		c.sysErr()
		return
	}
	h, err := c.Kernel.Get(fd)
	if err != nil {
		c.sysErr()
		return
	}
	buf := make([]byte, count)
	n, err := h.Read(buf)
	if err != nil && err != io.EOF {
		c.sysErr()
		return
	}
	c.Bus.WriteBuf(bufAddr, buf[:n])
	c.sysRet(uint64(n))
}

func (c *CPU) sysOpen(pathAddr uint64, flags int, mode uint32) {
	if c.Kernel == nil {
		c.sysErr()
		return
	}
	path := c.readCString(pathAddr, 4096)
	fd, err := c.Kernel.Open(path, flags, os.FileMode(mode))
	if err != nil {
		c.sysErr()
		return
	}
	c.sysRet(uint64(fd))
}

func (c *CPU) sysLseek(fd int, offset int64, whence int) {
	if c.Kernel == nil {
		c.sysErr()
		return
	}
	h, err := c.Kernel.Get(fd)
	if err != nil {
		c.sysErr()
		return
	}
	pos, err := h.Seek(offset, whence)
	if err != nil {
		c.sysErr()
		return
	}
	c.sysRet(uint64(pos))
}

// sysFstat fills only the struct stat fields typical libc stat() callers
// consume: mode, size and the mtime seconds field.
func (c *CPU) sysFstat(fd int, statAddr uint64) {
	if c.Kernel == nil {
		c.sysErr()
		return
	}
	h, err := c.Kernel.Get(fd)
	if err != nil {
		c.sysErr()
		return
	}
	info, err := h.Stat()
	if err != nil {
		c.sysErr()
		return
	}
	buf := make([]byte, 128)
	putLE64(buf[16:], uint64(info.Mode()))
	putLE64(buf[48:], uint64(info.Size()))
	putLE64(buf[88:], uint64(info.ModTime().Unix()))
	c.Bus.WriteBuf(statAddr, buf)
	c.sysRet(0)
}

func (c *CPU) sysBrk(newBrk uint64) {
	if newBrk == 0 || newBrk < c.Brk {
		c.sysRet(c.Brk)
		return
	}
	c.Brk = newBrk
	c.sysRet(c.Brk)
}

func (c *CPU) sysGettimeofday(tvAddr uint64) {
	now := time.Now()
	buf := make([]byte, 16)
	putLE64(buf[0:], uint64(now.Unix()))
	putLE64(buf[8:], uint64(now.Nanosecond()/1000))
	c.Bus.WriteBuf(tvAddr, buf)
	c.sysRet(0)
}

func (c *CPU) sysClockGettime(tsAddr uint64) {
	now := time.Now()
	buf := make([]byte, 16)
	putLE64(buf[0:], uint64(now.Unix()))
	putLE64(buf[8:], uint64(now.Nanosecond()))
	c.Bus.WriteBuf(tsAddr, buf)
	c.sysRet(0)
}

// sysRet reports a successful syscall: result in a0, 0 in a1.
func (c *CPU) sysRet(v uint64) {
	c.SetX(10, v)
	c.SetX(11, 0)
}

// sysErr reports a failed syscall per the local convention: -1 in a0 and
// 1 in a1 (a coarse errno stand-in; the hosted guests only test nonzero).
func (c *CPU) sysErr() {
	c.SetX(10, ^uint64(0))
	c.SetX(11, 1)
}

func putLE64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}
