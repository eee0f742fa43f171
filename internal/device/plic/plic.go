/*
   A minimal platform-level interrupt controller: lowest-numbered-source
   claim arbitration, per-context enable bits, and the claim/complete
   handshake, MMIO-mapped per the standard PLIC layout.

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

package plic

import "sync"

const (
	maxSources = 32
	// Register windows within the PLIC's MMIO region.
	priorityBase = 0x000000
	pendingBase  = 0x001000
	enableBase   = 0x002000
	contextBase  = 0x200000
	contextSize  = 0x1000
)

// Source identifies a PLIC interrupt source number, 1..maxSources-1 (0
// means "no interrupt").
type Source uint32

// IRQLine is implemented by an MMIO device whose Pending() this PLIC polls
// once per cycle to latch a pending bit for its assigned source.
type IRQLine interface {
	Pending() bool
}

// PLIC is an MMIO device occupying a standard PLIC-sized region at Base.
type PLIC struct {
	base uint64

	mu        sync.Mutex
	priority  [maxSources]uint32
	pending   [maxSources]bool
	enable    [maxSources]bool // single context: supervisor external
	claimed   [maxSources]bool
	sources   map[Source]IRQLine
}

// New constructs an empty PLIC at the given MMIO base.
func New(base uint64) *PLIC {
	return &PLIC{base: base, sources: make(map[Source]IRQLine)}
}

// Attach registers dev as the owner of interrupt source src. The PLIC polls
// dev.Pending() on every Poll call to latch source's pending bit.
func (p *PLIC) Attach(src Source, dev IRQLine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[src] = dev
}

// Poll latches each attached source's current Pending() state. Called once
// per CPU cycle from the interrupt-poll step of the run loop.
func (p *PLIC) Poll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for src, dev := range p.sources {
		if dev.Pending() {
			p.pending[src] = true
		}
	}
}

// Asserted reports whether any enabled source has a latched, unclaimed
// pending bit — the condition that raises the supervisor-external-
// interrupt line into mip.
func (p *PLIC) Asserted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for src := Source(0); src < maxSources; src++ {
		if p.pending[src] && p.enable[src] && !p.claimed[src] {
			return true
		}
	}
	return false
}

func (p *PLIC) Base() uint64 { return p.base }
func (p *PLIC) Size() uint64 { return contextBase + contextSize }

// Load implements device.Device.
func (p *PLIC) Load(addr uint64, size int) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	off := addr - p.base
	switch {
	case off >= priorityBase && off < pendingBase:
		src := off / 4
		if src < maxSources {
			return uint64(p.priority[src])
		}
	case off >= pendingBase && off < enableBase:
		var bits uint64
		for src := Source(0); src < maxSources; src++ {
			if p.pending[src] {
				bits |= 1 << src
			}
		}
		return bits
	case off >= enableBase && off < contextBase:
		var bits uint64
		for src := Source(0); src < maxSources; src++ {
			if p.enable[src] {
				bits |= 1 << src
			}
		}
		return bits
	case off == contextBase+4: // claim/complete register, claim on read
		return uint64(p.claim())
	}
	return 0
}

// Store implements device.Device.
func (p *PLIC) Store(addr uint64, size int, val uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	off := addr - p.base
	switch {
	case off >= priorityBase && off < pendingBase:
		src := off / 4
		if src < maxSources {
			p.priority[src] = uint32(val)
		}
	case off >= pendingBase && off < enableBase:
		for src := Source(0); src < maxSources; src++ {
			if val&(1<<src) != 0 {
				p.pending[src] = true
			}
		}
	case off >= enableBase && off < contextBase:
		for src := Source(0); src < maxSources; src++ {
			p.enable[src] = val&(1<<src) != 0
		}
	case off == contextBase+4: // claim/complete register, complete on write
		src := Source(val)
		if src < maxSources {
			p.claimed[src] = false
			p.pending[src] = false
		}
	}
}

// TriggerIRQ sets src's pending bit directly: the software-visible
// equivalent of an attached device's Pending() going true, and of a write
// to the pending register over MMIO.
func (p *PLIC) TriggerIRQ(src Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if src < maxSources {
		p.pending[src] = true
	}
}

// claim returns the lowest-numbered source that is both enabled and
// pending, clearing its pending bit as the read side of the claim/complete
// handshake. Priority plays no role in selection.
func (p *PLIC) claim() Source {
	for src := Source(0); src < maxSources; src++ {
		if p.pending[src] && p.enable[src] && !p.claimed[src] {
			p.claimed[src] = true
			p.pending[src] = false
			return src
		}
	}
	return 0
}

// Shutdown is a no-op; the PLIC owns no host resources.
func (p *PLIC) Shutdown() {}
