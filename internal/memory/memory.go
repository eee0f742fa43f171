/*
   Physical memory: a sparse, page-backed address space plus a dense
   variant for the fixed kernel-image region. Pages are allocated lazily on
   first touch so a 64-bit address space never requires pre-sized backing
   storage.

   All state is instance-owned, so several address spaces can coexist in
   one process.

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

const (
	pageBits = 16
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// pageStore is the page-table back-end behind Sparse. Both implementations
// honor the same contract: Get returns nil for a page never created,
// GetOrCreate allocates zeroed storage on first touch, Len counts allocated
// pages.
type pageStore interface {
	Get(id uint64) []byte
	GetOrCreate(id uint64) []byte
	Len() int
}

// mapStore keys pages with a plain Go map: O(1) lookups, no ordering.
type mapStore struct {
	pages map[uint64][]byte
}

func (s *mapStore) Get(id uint64) []byte { return s.pages[id] }

func (s *mapStore) GetOrCreate(id uint64) []byte {
	p, ok := s.pages[id]
	if !ok {
		p = make([]byte, pageSize)
		s.pages[id] = p
	}
	return p
}

func (s *mapStore) Len() int { return len(s.pages) }

// sortedStore keeps pages in an id-ordered slice with binary-search
// lookup: slower to insert, denser and cache-friendlier to scan, for
// guests that touch few distinct regions.
type sortedStore struct {
	ids   []uint64
	pages [][]byte
}

func (s *sortedStore) search(id uint64) int {
	lo, hi := 0, len(s.ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.ids[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (s *sortedStore) Get(id uint64) []byte {
	i := s.search(id)
	if i < len(s.ids) && s.ids[i] == id {
		return s.pages[i]
	}
	return nil
}

func (s *sortedStore) GetOrCreate(id uint64) []byte {
	i := s.search(id)
	if i < len(s.ids) && s.ids[i] == id {
		return s.pages[i]
	}
	p := make([]byte, pageSize)
	s.ids = append(s.ids, 0)
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
	s.pages = append(s.pages, nil)
	copy(s.pages[i+1:], s.pages[i:])
	s.pages[i] = p
	return p
}

func (s *sortedStore) Len() int { return len(s.ids) }

// Sparse is a byte-addressable physical memory backed by lazily allocated
// fixed-size pages, with the page table itself pluggable at construction.
type Sparse struct {
	pages pageStore
}

// NewSparse returns an empty sparse address space over the map back-end,
// the right default for general guests.
func NewSparse() *Sparse {
	return &Sparse{pages: &mapStore{pages: make(map[uint64][]byte)}}
}

// NewSparseSorted returns an empty sparse address space over the sorted-
// slice back-end.
func NewSparseSorted() *Sparse {
	return &Sparse{pages: &sortedStore{}}
}

// Pages reports how many backing pages have been allocated.
func (m *Sparse) Pages() int {
	return m.pages.Len()
}

func (m *Sparse) page(addr uint64, create bool) []byte {
	key := addr >> pageBits
	if create {
		return m.pages.GetOrCreate(key)
	}
	return m.pages.Get(key)
}

// ReadByte returns the byte at addr, zero if the backing page was never
// written.
func (m *Sparse) ReadByte(addr uint64) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// WriteByte stores b at addr, allocating the backing page if needed.
func (m *Sparse) WriteByte(addr uint64, b uint8) {
	p := m.page(addr, true)
	p[addr&pageMask] = b
}

// ReadHalf, ReadWord and ReadDouble read little-endian multi-byte values
// that may straddle a page boundary.
func (m *Sparse) ReadHalf(addr uint64) uint16 {
	return uint16(m.ReadByte(addr)) | uint16(m.ReadByte(addr+1))<<8
}

func (m *Sparse) ReadWord(addr uint64) uint32 {
	var v uint32
	for i := uint(0); i < 4; i++ {
		v |= uint32(m.ReadByte(addr+uint64(i))) << (8 * i)
	}
	return v
}

func (m *Sparse) ReadDouble(addr uint64) uint64 {
	var v uint64
	for i := uint(0); i < 8; i++ {
		v |= uint64(m.ReadByte(addr+uint64(i))) << (8 * i)
	}
	return v
}

func (m *Sparse) WriteHalf(addr uint64, v uint16) {
	m.WriteByte(addr, uint8(v))
	m.WriteByte(addr+1, uint8(v>>8))
}

func (m *Sparse) WriteWord(addr uint64, v uint32) {
	for i := uint(0); i < 4; i++ {
		m.WriteByte(addr+uint64(i), uint8(v>>(8*i)))
	}
}

func (m *Sparse) WriteDouble(addr uint64, v uint64) {
	for i := uint(0); i < 8; i++ {
		m.WriteByte(addr+uint64(i), uint8(v>>(8*i)))
	}
}

// ReadBuf copies len(dst) bytes starting at addr.
func (m *Sparse) ReadBuf(addr uint64, dst []byte) {
	for i := range dst {
		dst[i] = m.ReadByte(addr + uint64(i))
	}
}

// WriteBuf copies src into memory starting at addr.
func (m *Sparse) WriteBuf(addr uint64, src []byte) {
	for i, b := range src {
		m.WriteByte(addr+uint64(i), b)
	}
}

// Dense is a contiguous byte slice used for the kernel-image region, where
// per-page allocation overhead isn't worth paying and the extent is known
// up front (set by the ELF loader).
type Dense struct {
	base uint64
	data []byte
}

// NewDense allocates size bytes of backing storage starting at base.
func NewDense(base uint64, size uint64) *Dense {
	return &Dense{base: base, data: make([]byte, size)}
}

func (m *Dense) Contains(addr uint64) bool {
	return addr >= m.base && addr < m.base+uint64(len(m.data))
}

func (m *Dense) ReadByte(addr uint64) uint8 {
	return m.data[addr-m.base]
}

func (m *Dense) WriteByte(addr uint64, b uint8) {
	m.data[addr-m.base] = b
}

func (m *Dense) ReadBuf(addr uint64, dst []byte) {
	copy(dst, m.data[addr-m.base:])
}

func (m *Dense) WriteBuf(addr uint64, src []byte) {
	copy(m.data[addr-m.base:], src)
}

// Len reports the size of the dense region in bytes.
func (m *Dense) Len() uint64 {
	return uint64(len(m.data))
}

// Base reports the dense region's starting physical address.
func (m *Dense) Base() uint64 {
	return m.base
}
