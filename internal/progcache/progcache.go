/*
   Program cache: a predecoded instruction array covering the flat region
   where the guest's executable image lives. Fetch on the hot path becomes
   an index into this array instead of a decode on every cycle; decode
   still runs once at load time (Populate) and again, one word at a time,
   on any fetch outside the cached range (Get's ok=false case).

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

package progcache

import "github.com/go-riscv/rvsim/internal/isa"

// Cache holds decoded instructions for addresses in [start, start+N*4).
type Cache struct {
	start   uint64
	entries []isa.Decoded
	valid   []bool
}

// New allocates an empty cache over the half-open byte range [start, end),
// rounded down/up to instruction (4-byte) granularity.
func New(start, end uint64) *Cache {
	start &^= 3
	if end < start {
		end = start
	}
	n := (end - start + 3) / 4
	return &Cache{
		start:   start,
		entries: make([]isa.Decoded, n),
		valid:   make([]bool, n),
	}
}

func (c *Cache) index(pc uint64) (int, bool) {
	if pc < c.start {
		return 0, false
	}
	i := (pc - c.start) / 4
	if i >= uint64(len(c.entries)) {
		return 0, false
	}
	return int(i), true
}

// Get returns the cached decode for pc, if pc falls within the cache's
// range and that slot has been populated.
func (c *Cache) Get(pc uint64) (isa.Decoded, bool) {
	i, ok := c.index(pc)
	if !ok || !c.valid[i] {
		return isa.Decoded{}, false
	}
	return c.entries[i], true
}

// Put records the decode of the word at pc, growing coverage lazily for
// addresses that fall in-range but were not populated up front (self-
// modifying or lazily-paged-in code).
func (c *Cache) Put(pc uint64, d isa.Decoded) {
	if i, ok := c.index(pc); ok {
		c.entries[i] = d
		c.valid[i] = true
	}
}

// Invalidate drops a cached decode, used when a store targets the program
// image (self-modifying code, or the loader patching a relocation).
func (c *Cache) Invalidate(pc uint64) {
	if i, ok := c.index(pc); ok {
		c.valid[i] = false
	}
}

// Populate bulk-decodes every word in [start, start+len(words)*4) up front.
// Words that fail to decode are left invalid so the first fetch falls back
// to per-instruction decoding, which will itself raise the illegal-
// instruction trap.
func (c *Cache) Populate(words []uint32, xlen int) {
	for i, w := range words {
		pc := c.start + uint64(i)*4
		if d, ok := isa.Decode(w, xlen); ok {
			c.Put(pc, d)
		}
	}
}

// Contains reports whether pc falls within the cache's covered range.
func (c *Cache) Contains(pc uint64) bool {
	_, ok := c.index(pc)
	return ok
}
