/*
   A virtio-mmio block device: the legacy virtio-mmio register layout plus
   a single virtqueue's descriptor-chain walk, enough to serve read/write
   requests against a backing byte slice (a loaded disk image).

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

package virtio

import (
	"github.com/go-riscv/rvsim/internal/device"
	"github.com/go-riscv/rvsim/internal/sched"
)

// completionDelay is the simulated number of CPU cycles between a queue
// notify and the device raising its used-buffer interrupt, standing in for
// real disk latency instead of completing the request synchronously.
const completionDelay = 64

const (
	blockSize = 512

	regMagic       = 0x000
	regVersion     = 0x004
	regDeviceID    = 0x008
	regVendorID    = 0x00c
	regHostFeat    = 0x010
	regHostFeatSel = 0x014
	regGuestFeat   = 0x020
	regGuestFeatSel = 0x024
	regQueueSel    = 0x030
	regQueueNumMax = 0x034
	regQueueNum    = 0x038
	regQueueAlign  = 0x03c
	regQueuePfn    = 0x040
	regQueueNotify = 0x050
	regInterruptStatus = 0x060
	regInterruptACK    = 0x064
	regStatus      = 0x070
	regConfig      = 0x100
)

const queueNumMax = 128

// descriptor flags.
const (
	descFNext  = 1 << 0
	descFWrite = 1 << 1
)

type virtqDesc struct {
	addr  uint64
	len   uint32
	flags uint16
	next  uint16
}

// Mem is the subset of the bus a virtio device needs: raw byte access to
// guest physical memory for descriptor and data-buffer traversal.
type Mem interface {
	ReadBuf(addr uint64, dst []byte)
	WriteBuf(addr uint64, src []byte)
	LoadWord(addr uint64) uint32
	LoadHalf(addr uint64) uint16
	LoadDouble(addr uint64) uint64
	StoreHalf(addr uint64, v uint16)
}

// Block is a virtio-mmio block device backed by an in-memory disk image.
type Block struct {
	base  uint64
	mem   Mem
	disk  []byte
	sched *sched.Scheduler

	queuePFN   uint32
	queueNum   uint32
	queueAlign uint32
	status     uint32
	irqStatus  uint32
	featSel    uint32
	guestFeat  uint32
}

var _ device.Device = (*Block)(nil)

// New constructs a virtio block device at base, serving reads/writes
// against disk (mutated in place for writes). s schedules the completion
// interrupt after a simulated disk-latency delay; the caller is expected
// to call s.Advance(1) once per retired instruction.
func New(base uint64, mem Mem, disk []byte, s *sched.Scheduler) *Block {
	return &Block{base: base, mem: mem, disk: disk, sched: s, queueAlign: 4096}
}

func (b *Block) Base() uint64 { return b.base }
func (b *Block) Size() uint64 { return 0x200 }

func (b *Block) Load(addr uint64, size int) uint64 {
	switch addr - b.base {
	case regMagic:
		return 0x74726976 // "virt"
	case regVersion:
		return 1 // legacy
	case regDeviceID:
		return 2 // block device
	case regVendorID:
		return 0x554d4551
	case regHostFeat:
		return 0
	case regQueueNumMax:
		return queueNumMax
	case regQueuePfn:
		return uint64(b.queuePFN)
	case regInterruptStatus:
		return uint64(b.irqStatus)
	case regStatus:
		return uint64(b.status)
	}
	if off := addr - b.base; off >= regConfig {
		return uint64(b.configByte(off - regConfig))
	}
	return 0
}

func (b *Block) configByte(off uint64) uint8 {
	// Config space exposes the disk capacity in 512-byte sectors,
	// little-endian, at offset 0.
	capacity := uint64(len(b.disk)) / blockSize
	if off < 8 {
		return uint8(capacity >> (8 * off))
	}
	return 0
}

func (b *Block) Store(addr uint64, size int, val uint64) {
	switch addr - b.base {
	case regGuestFeatSel:
		b.featSel = uint32(val)
	case regGuestFeat:
		b.guestFeat = uint32(val)
	case regQueueSel:
		// single-queue device; selection is a no-op.
	case regQueueNum:
		b.queueNum = uint32(val)
	case regQueueAlign:
		b.queueAlign = uint32(val)
	case regQueuePfn:
		b.queuePFN = uint32(val)
	case regQueueNotify:
		b.processQueue()
	case regInterruptACK:
		b.irqStatus &^= uint32(val)
	case regStatus:
		b.status = uint32(val)
	}
}

// Pending implements device.IRQLine.
func (b *Block) Pending() bool {
	return b.irqStatus != 0
}

func (b *Block) Shutdown() {}

// virtio block request header, little-endian on the wire.
type blockReqHeader struct {
	reqType uint32
	_       uint32
	sector  uint64
}

const (
	reqTypeIn  = 0 // read from device
	reqTypeOut = 1 // write to device
)

// processQueue walks the legacy split virtqueue's descriptor table for
// every available entry and services it as a block read or write.
func (b *Block) processQueue() {
	if b.queuePFN == 0 {
		return
	}
	queueBase := uint64(b.queuePFN) * uint64(b.queueAlign)
	descTable := queueBase
	availRing := descTable + 16*uint64(b.queueNum)

	availIdx := b.mem.LoadHalf(availRing + 2)
	usedRing := alignUp(availRing+4+2*uint64(b.queueNum), uint64(b.queueAlign))

	// Legacy layout tracks a single running "last seen" index via the
	// avail ring; for this emulator's purposes, reprocess every entry the
	// driver has published up to availIdx on each notify.
	for i := uint16(0); i < availIdx; i++ {
		descIdx := b.mem.LoadHalf(availRing + 4 + 2*uint64(i)%(2*uint64(b.queueNum)))
		b.serviceChain(descTable, descIdx)
	}

	complete := func(int) {
		usedIdx := b.mem.LoadHalf(usedRing + 2)
		b.mem.StoreHalf(usedRing+2, usedIdx+1)
		b.irqStatus |= 1
	}
	if b.sched != nil {
		b.sched.Add(b, complete, completionDelay, 0)
	} else {
		complete(0)
	}
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

func (b *Block) readDesc(descTable uint64, idx uint16) virtqDesc {
	base := descTable + 16*uint64(idx)
	return virtqDesc{
		addr:  b.mem.LoadDouble(base),
		len:   b.mem.LoadWord(base + 8),
		flags: b.mem.LoadHalf(base + 12),
		next:  b.mem.LoadHalf(base + 14),
	}
}

// serviceChain walks one descriptor chain: header, data buffer, status
// byte, performing the requested sector I/O against the backing disk.
func (b *Block) serviceChain(descTable uint64, headIdx uint16) {
	hdrDesc := b.readDesc(descTable, headIdx)
	if hdrDesc.flags&descFNext == 0 {
		return
	}
	hdrBuf := make([]byte, hdrDesc.len)
	b.mem.ReadBuf(hdrDesc.addr, hdrBuf)
	reqType := uint32(hdrBuf[0]) | uint32(hdrBuf[1])<<8 | uint32(hdrBuf[2])<<16 | uint32(hdrBuf[3])<<24
	var sector uint64
	for i := 0; i < 8; i++ {
		sector |= uint64(hdrBuf[8+i]) << (8 * i)
	}

	dataDesc := b.readDesc(descTable, hdrDesc.next)
	offset := sector * blockSize

	switch reqType {
	case reqTypeOut:
		buf := make([]byte, dataDesc.len)
		b.mem.ReadBuf(dataDesc.addr, buf)
		if int(offset)+len(buf) <= len(b.disk) {
			copy(b.disk[offset:], buf)
		}
	default: // reqTypeIn
		n := int(dataDesc.len)
		if int(offset)+n > len(b.disk) {
			n = len(b.disk) - int(offset)
		}
		if n > 0 {
			b.mem.WriteBuf(dataDesc.addr, b.disk[offset:int(offset)+n])
		}
	}

	if dataDesc.flags&descFNext != 0 {
		statusDesc := b.readDesc(descTable, dataDesc.next)
		b.mem.WriteBuf(statusDesc.addr, []byte{0}) // VIRTIO_BLK_S_OK
	}
}
