/*
   RISC-V bit-field helpers.

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

// Field extracts bits [hi:lo] (inclusive) from word.
func Field(word uint32, hi, lo int) uint32 {
	n := hi - lo + 1
	mask := uint32(1)<<uint(n) - 1
	return (word >> uint(lo)) & mask
}

// Bit extracts a single bit.
func Bit(word uint32, pos int) uint32 {
	return (word >> uint(pos)) & 1
}

// SignExtend32 sign-extends the low `bits` bits of v to a full int32, then
// returns it as an int64 (the caller narrows to xlen as needed).
func SignExtend32(v uint32, bits int) int64 {
	shift := uint(32 - bits)
	return int64(int32(v<<shift)) >> shift
}

// SignExtend64 sign-extends the low `bits` bits of v (given as uint64) to a
// full int64.
func SignExtend64(v uint64, bits int) int64 {
	shift := uint(64 - bits)
	return int64(v<<shift) >> shift
}
