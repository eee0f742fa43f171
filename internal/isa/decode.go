/*
   Decoder: maps a 32-bit instruction word plus xlen (32 or 64) to a Decoded
   record. Used both for per-word decode on a program-cache miss and to
   populate the program cache in bulk.

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

// Decode looks up word in the table for the given xlen (32 or 64) and, on a
// match, extracts operand fields per the instruction's format. ok is false
// on no match (caller raises an illegal-instruction trap).
func Decode(word uint32, xlen int) (Decoded, bool) {
	buckets := rv32Buckets
	if xlen == 64 {
		buckets = rv64Buckets
	}
	key := word & 0x7F
	for _, e := range buckets[key] {
		if word&e.mask == e.bits {
			return decodeFields(word, e), true
		}
	}
	return Decoded{Raw: word}, false
}

func decodeFields(word uint32, e entry) Decoded {
	d := Decoded{Op: e.op, Format: e.fmt, Raw: word}
	d.Funct3 = uint8(Field(word, 14, 12))
	d.RM = d.Funct3
	switch e.fmt {
	case FmtR:
		d.Rd = uint8(Field(word, 11, 7))
		d.Rs1 = uint8(Field(word, 19, 15))
		d.Rs2 = uint8(Field(word, 24, 20))
		d.Funct7 = uint8(Field(word, 31, 25))
	case FmtR4:
		d.Rd = uint8(Field(word, 11, 7))
		d.Rs1 = uint8(Field(word, 19, 15))
		d.Rs2 = uint8(Field(word, 24, 20))
		d.Rs3 = uint8(Field(word, 31, 27))
	case FmtI:
		d.Rd = uint8(Field(word, 11, 7))
		d.Rs1 = uint8(Field(word, 19, 15))
		d.Imm = SignExtend32(Field(word, 31, 20), 12)
	case FmtS:
		d.Rs1 = uint8(Field(word, 19, 15))
		d.Rs2 = uint8(Field(word, 24, 20))
		imm := (Field(word, 31, 25) << 5) | Field(word, 11, 7)
		d.Imm = SignExtend32(imm, 12)
	case FmtSB:
		d.Rs1 = uint8(Field(word, 19, 15))
		d.Rs2 = uint8(Field(word, 24, 20))
		imm := (Bit(word, 31) << 12) | (Bit(word, 7) << 11) |
			(Field(word, 30, 25) << 5) | (Field(word, 11, 8) << 1)
		d.Imm = SignExtend32(imm, 13)
	case FmtU:
		d.Rd = uint8(Field(word, 11, 7))
		d.Imm = int64(int32(word & 0xFFFFF000))
	case FmtUJ:
		d.Rd = uint8(Field(word, 11, 7))
		imm := (Bit(word, 31) << 20) | (Field(word, 19, 12) << 12) |
			(Bit(word, 20) << 11) | (Field(word, 30, 21) << 1)
		d.Imm = SignExtend32(imm, 21)
	}
	return d
}
