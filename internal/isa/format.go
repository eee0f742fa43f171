/*
   Instruction formats and the decoded-instruction record.

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

package isa

// Format names the operand-field layout used to decode a word.
type Format uint8

const (
	FmtR Format = iota
	FmtI
	FmtS
	FmtSB
	FmtU
	FmtUJ
	// FmtR4 is the four-register format used by fused multiply-add (F/D).
	FmtR4
)

// Op identifies a decoded operation. The handler table in package cpu is
// indexed by Op, not dispatched through a function pointer stored here —
// keeping isa free of any dependency on cpu avoids an import cycle while
// still giving O(1) dispatch on a cache miss.
type Op uint16

// Decoded is the result of decoding one 32-bit instruction word.
type Decoded struct {
	Op     Op
	Format Format
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Rs3    uint8 // fused multiply-add only
	Funct3 uint8
	Funct7 uint8
	RM     uint8  // rounding mode, F/D only (same bits as Funct3)
	Imm    int64  // sign-extended immediate, format-dependent
	Raw    uint32 // original word, for illegal-instruction reporting
}
