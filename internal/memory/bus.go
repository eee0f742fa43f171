/*
   Bus is the flat physical-address-space router: it dispatches a physical
   access to the dense kernel-image region, the sparse RAM backing the rest
   of guest physical memory, or an MMIO device, by address range.

   Dispatch is a linear scan of a small range table; the device count is
   fixed and tiny, so nothing fancier is warranted.

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

package memory

import "github.com/go-riscv/rvsim/internal/device"

type mmioRegion struct {
	base uint64
	size uint64
	dev  device.Device
}

// Bus is the CPU-facing physical memory: a dense image region, sparse RAM
// for everything else, and zero or more MMIO devices.
type Bus struct {
	image   *Dense
	ram     *Sparse
	regions []mmioRegion
}

// NewBus builds a bus with image as the dense kernel-load region and a
// lazily backed sparse region for the remainder of the address space.
func NewBus(image *Dense) *Bus {
	return &Bus{image: image, ram: NewSparse()}
}

// Attach registers an MMIO device at its own base/size.
func (b *Bus) Attach(d device.Device) {
	b.regions = append(b.regions, mmioRegion{base: d.Base(), size: d.Size(), dev: d})
}

func (b *Bus) findDevice(addr uint64) device.Device {
	for _, r := range b.regions {
		if addr >= r.base && addr < r.base+r.size {
			return r.dev
		}
	}
	return nil
}

// LoadByte, LoadHalf, LoadWord, LoadDouble read a little-endian value of the
// given width from addr, routing through MMIO devices when addr falls in a
// registered region.
func (b *Bus) LoadByte(addr uint64) uint8 {
	if d := b.findDevice(addr); d != nil {
		return uint8(d.Load(addr, 1))
	}
	if b.image != nil && b.image.Contains(addr) {
		return b.image.ReadByte(addr)
	}
	return b.ram.ReadByte(addr)
}

func (b *Bus) StoreByte(addr uint64, v uint8) {
	if d := b.findDevice(addr); d != nil {
		d.Store(addr, 1, uint64(v))
		return
	}
	if b.image != nil && b.image.Contains(addr) {
		b.image.WriteByte(addr, v)
		return
	}
	b.ram.WriteByte(addr, v)
}

func (b *Bus) load(addr uint64, size int) uint64 {
	if d := b.findDevice(addr); d != nil {
		return d.Load(addr, size)
	}
	var v uint64
	for i := 0; i < size; i++ {
		v |= uint64(b.LoadByte(addr+uint64(i))) << (8 * uint(i))
	}
	return v
}

func (b *Bus) store(addr uint64, size int, v uint64) {
	if d := b.findDevice(addr); d != nil {
		d.Store(addr, size, v)
		return
	}
	for i := 0; i < size; i++ {
		b.StoreByte(addr+uint64(i), uint8(v>>(8*uint(i))))
	}
}

func (b *Bus) LoadHalf(addr uint64) uint16   { return uint16(b.load(addr, 2)) }
func (b *Bus) LoadWord(addr uint64) uint32   { return uint32(b.load(addr, 4)) }
func (b *Bus) LoadDouble(addr uint64) uint64 { return b.load(addr, 8) }

func (b *Bus) StoreHalf(addr uint64, v uint16)   { b.store(addr, 2, uint64(v)) }
func (b *Bus) StoreWord(addr uint64, v uint32)   { b.store(addr, 4, uint64(v)) }
func (b *Bus) StoreDouble(addr uint64, v uint64) { b.store(addr, 8, v) }

// ReadBuf/WriteBuf bypass device routing; they are used for bulk ELF
// loading and virtqueue descriptor walks against RAM only.
func (b *Bus) ReadBuf(addr uint64, dst []byte) {
	if b.image != nil && b.image.Contains(addr) {
		b.image.ReadBuf(addr, dst)
		return
	}
	b.ram.ReadBuf(addr, dst)
}

func (b *Bus) WriteBuf(addr uint64, src []byte) {
	if b.image != nil && b.image.Contains(addr) {
		b.image.WriteBuf(addr, src)
		return
	}
	b.ram.WriteBuf(addr, src)
}

// Devices returns the attached MMIO devices, for IRQ polling and shutdown.
func (b *Bus) Devices() []device.Device {
	out := make([]device.Device, len(b.regions))
	for i, r := range b.regions {
		out[i] = r.dev
	}
	return out
}
