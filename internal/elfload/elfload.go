/*
   elfload reads a RISC-V ELF32/ELF64 executable and loads its PT_LOAD
   segments into physical memory, using the standard library's debug/elf
   reader rather than a hand-rolled parser — ELF parsing sits squarely
   outside this interpreter's domain, and debug/elf already covers the
   section/segment/symbol surface a loader needs.

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

package elfload

import (
	"bytes"
	"debug/elf"
	"fmt"
)

// Segment is one PT_LOAD program header's load image.
type Segment struct {
	VAddr uint64
	Data  []byte
	// MemSize may exceed len(Data); the remainder is BSS and must be
	// zero-filled (the destination memory is already zero on first touch,
	// so callers backed by the memory package's sparse/dense memory need not
	// special-case this).
	MemSize uint64
}

// ProgramFile is the result of loading an ELF image.
type ProgramFile struct {
	Entry    uint64
	XLen     int // 32 or 64
	Segments []Segment
	// EndOfData is the highest address touched by any PT_LOAD segment,
	// rounded up to a page boundary — the initial program break.
	EndOfData uint64
}

const pageSize = 4096

// Load parses an ELF image from data and extracts its loadable segments.
func Load(data []byte) (*ProgramFile, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("elfload: %w", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("elfload: not a RISC-V image (machine=%v)", f.Machine)
	}

	xlen := 32
	if f.Class == elf.ELFCLASS64 {
		xlen = 64
	}

	pf := &ProgramFile{Entry: f.Entry, XLen: xlen}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		buf := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(buf, 0); err != nil {
			return nil, fmt.Errorf("elfload: reading segment: %w", err)
		}
		pf.Segments = append(pf.Segments, Segment{
			VAddr:   prog.Vaddr,
			Data:    buf,
			MemSize: prog.Memsz,
		})
		end := prog.Vaddr + prog.Memsz
		if end > pf.EndOfData {
			pf.EndOfData = end
		}
	}
	pf.EndOfData = (pf.EndOfData + pageSize - 1) &^ (pageSize - 1)
	return pf, nil
}

// Writer is the subset of memory a loader writes segment bytes into.
type Writer interface {
	WriteBuf(addr uint64, src []byte)
}

// LoadInto copies every segment of pf into mem.
func LoadInto(pf *ProgramFile, mem Writer) {
	for _, seg := range pf.Segments {
		mem.WriteBuf(seg.VAddr, seg.Data)
	}
}

// InitialSP returns the architecture-appropriate initial stack pointer for
// a freshly loaded program, per the user-space ABI this emulator proxies.
func InitialSP(xlen int) uint64 {
	if xlen == 32 {
		return 0xBFFFFF00
	}
	return 0x00007FFFFFFFFFFF &^ 0xF
}
