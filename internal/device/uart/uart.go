/*
   A 16550-compatible UART, MMIO-mapped at a fixed base. The host side is
   a goroutine that feeds input bytes through a bounded channel; the
   register file drains it without ever blocking the CPU.

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

package uart

import (
	"io"
	"sync"
)

// Register offsets from Base, matching the 8250/16550 layout.
const (
	regRBR = 0 // receiver buffer (read)
	regTHR = 0 // transmit holding (write)
	regIER = 1 // interrupt enable
	regIIR = 2 // interrupt identification (read)
	regFCR = 2 // FIFO control (write)
	regLCR = 3 // line control
	regMCR = 4 // modem control
	regLSR = 5 // line status
	regMSR = 6 // modem status
	regSCR = 7 // scratch
)

const (
	lsrDataReady  = 1 << 0
	lsrThrEmpty   = 1 << 5
	lsrTransEmpty = 1 << 6

	ierRxAvail = 1 << 0
	ierThrE    = 1 << 1
)

// UART is an MMIO device occupying 8 bytes at Base.
type UART struct {
	base uint64
	out  io.Writer

	mu      sync.Mutex
	ier     uint8
	lcr     uint8
	mcr     uint8
	scratch uint8
	rxQueue []byte

	input chan byte
	done  chan struct{}
	once  sync.Once
}

// New constructs a UART at the given MMIO base. out receives every
// transmitted byte (normally the host's stdout); in, if non-nil, is read
// by a background goroutine and delivered to the guest as receiver bytes.
func New(base uint64, out io.Writer, in io.Reader) *UART {
	u := &UART{base: base, out: out, input: make(chan byte, 256), done: make(chan struct{})}
	if in != nil {
		go u.pump(in)
	}
	return u
}

func (u *UART) pump(in io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			select {
			case u.input <- buf[0]:
			case <-u.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Base and Size implement device.Device.
func (u *UART) Base() uint64 { return u.base }
func (u *UART) Size() uint64 { return 8 }

func (u *UART) drain() {
	for {
		select {
		case b := <-u.input:
			u.rxQueue = append(u.rxQueue, b)
		default:
			return
		}
	}
}

// Load implements device.Device. size is ignored; every UART register is
// byte-wide.
func (u *UART) Load(addr uint64, size int) uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.drain()
	switch addr - u.base {
	case regRBR:
		if len(u.rxQueue) == 0 {
			return 0
		}
		b := u.rxQueue[0]
		u.rxQueue = u.rxQueue[1:]
		return uint64(b)
	case regIER:
		return uint64(u.ier)
	case regIIR:
		if len(u.rxQueue) > 0 {
			return 0x04 // interrupt pending: data ready
		}
		return 0x01 // no interrupt pending
	case regLCR:
		return uint64(u.lcr)
	case regMCR:
		return uint64(u.mcr)
	case regLSR:
		lsr := uint8(lsrThrEmpty | lsrTransEmpty)
		if len(u.rxQueue) > 0 {
			lsr |= lsrDataReady
		}
		return uint64(lsr)
	case regMSR:
		return 0
	case regSCR:
		return uint64(u.scratch)
	}
	return 0
}

// Store implements device.Device.
func (u *UART) Store(addr uint64, size int, val uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch addr - u.base {
	case regTHR:
		if u.out != nil {
			u.out.Write([]byte{byte(val)})
		}
	case regIER:
		u.ier = uint8(val)
	case regFCR:
		// FIFO control accepted but this model has no hardware FIFO depth.
	case regLCR:
		u.lcr = uint8(val)
	case regMCR:
		u.mcr = uint8(val)
	case regSCR:
		u.scratch = uint8(val)
	}
}

// Pending reports whether the UART has an asserted interrupt: received
// data available while RX interrupts are enabled.
func (u *UART) Pending() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.drain()
	return u.ier&ierRxAvail != 0 && len(u.rxQueue) > 0
}

// Shutdown stops the host-input pump goroutine.
func (u *UART) Shutdown() {
	u.once.Do(func() { close(u.done) })
}
