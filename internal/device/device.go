/*
rvsim MMIO device interface

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
	RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
	IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
	CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/
package device

// Device is implemented by every MMIO peripheral (UART, PLIC, VIRTIO-MMIO)
// addressable on the bus. Load/Store operate in host byte order; the bus
// handles little-endian reassembly before/after calling in.
type Device interface {
	Base() uint64
	Size() uint64
	Load(addr uint64, size int) uint64
	Store(addr uint64, size int, val uint64)
	// Shutdown closes any host-side resources (open files, goroutines).
	Shutdown()
}

// IRQLine is implemented by devices that assert a PLIC interrupt source.
type IRQLine interface {
	// Pending reports whether the device currently has an interrupt
	// condition asserted.
	Pending() bool
}
