/*
   Static instruction catalog: (mask, match-bits, format, op) tuples, bucketed
   by the 7-bit major opcode for O(1) average-case decode. Two catalogs exist,
   one for RV32 and one for RV64, because several encodings (SLLI's
   shift-amount width, the RV64-only word-sized ops) differ between them.

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

type entry struct {
	mask uint32
	bits uint32
	op   Op
	fmt  Format
}

const (
	opLUI    = 0x37
	opAUIPC  = 0x17
	opJAL    = 0x6F
	opJALR   = 0x67
	opBranch = 0x63
	opLoad   = 0x03
	opStore  = 0x23
	opImm    = 0x13
	opImm32  = 0x1B
	opReg    = 0x33
	opReg32  = 0x3B
	opMisc   = 0x0F
	opSystem = 0x73
	opAMO    = 0x2F
	opFLoad  = 0x07
	opFStore = 0x27
	opFMAdd  = 0x43
	opFMSub  = 0x47
	opFNMSub = 0x4B
	opFNMAdd = 0x4F
	opFP     = 0x53
)

// maskBitsF3 matches opcode + funct3 (bits 14:12), leaving rs1/rs2/rd/imm free.
func maskBitsF3(opcode, funct3 uint32) (mask, bits uint32) {
	return 0x707F, (funct3 << 12) | opcode
}

// maskBitsF3F7 additionally pins funct7 (bits 31:25).
func maskBitsF3F7(opcode, funct3, funct7 uint32) (mask, bits uint32) {
	return 0xFE00707F, (funct7 << 25) | (funct3 << 12) | opcode
}

// maskBitsF3F7Rs2 additionally pins rs2 (bits 24:20) — used by the
// single-operand FP conversions/moves and the privileged no-operand forms.
func maskBitsF3F7Rs2(opcode, funct3, funct7, rs2 uint32) (mask, bits uint32) {
	return 0xFFF0707F, (funct7 << 25) | (rs2 << 20) | (funct3 << 12) | opcode
}

// maskBitsShift builds the mask/bits pair for a shift-immediate op, where
// shamtBits (5 for RV32, 6 for RV64) of the immediate field are the actual
// shift amount and the bits above that carry a funct code.
func maskBitsShift(opcode, funct3, funcCode uint32, shamtBits int) (mask, bits uint32) {
	if shamtBits == 5 {
		return 0xFE00707F, (funcCode << 25) | (funct3 << 12) | opcode
	}
	return 0xFC00707F, (funcCode << 26) | (funct3 << 12) | opcode
}

func add(list []entry, mask, bits uint32, op Op, f Format) []entry {
	return append(list, entry{mask, bits, op, f})
}

// baseTable returns the RV32I/RV64I base + Zifencei + Zicsr + M + privileged
// entries common to both arch modes (shift-immediate and word-sized RV64
// variants are layered on by rv32Table/rv64Table).
func baseTable() []entry {
	var t []entry

	t = add(t, 0x7F, opLUI, OpLUI, FmtU)
	t = add(t, 0x7F, opAUIPC, OpAUIPC, FmtU)
	t = add(t, 0x7F, opJAL, OpJAL, FmtUJ)

	m, b := maskBitsF3(opJALR, 0)
	t = add(t, m, b, OpJALR, FmtI)

	branch := []struct {
		f3 uint32
		op Op
	}{{0, OpBEQ}, {1, OpBNE}, {4, OpBLT}, {5, OpBGE}, {6, OpBLTU}, {7, OpBGEU}}
	for _, e := range branch {
		m, b := maskBitsF3(opBranch, e.f3)
		t = add(t, m, b, e.op, FmtSB)
	}

	load := []struct {
		f3 uint32
		op Op
	}{{0, OpLB}, {1, OpLH}, {2, OpLW}, {4, OpLBU}, {5, OpLHU}}
	for _, e := range load {
		m, b := maskBitsF3(opLoad, e.f3)
		t = add(t, m, b, e.op, FmtI)
	}

	store := []struct {
		f3 uint32
		op Op
	}{{0, OpSB}, {1, OpSH}, {2, OpSW}}
	for _, e := range store {
		m, b := maskBitsF3(opStore, e.f3)
		t = add(t, m, b, e.op, FmtS)
	}

	imm := []struct {
		f3 uint32
		op Op
	}{{0, OpADDI}, {2, OpSLTI}, {3, OpSLTIU}, {4, OpXORI}, {6, OpORI}, {7, OpANDI}}
	for _, e := range imm {
		m, b := maskBitsF3(opImm, e.f3)
		t = add(t, m, b, e.op, FmtI)
	}

	reg := []struct {
		f3, f7 uint32
		op     Op
	}{
		{0, 0, OpADD}, {0, 0x20, OpSUB}, {1, 0, OpSLL}, {2, 0, OpSLT}, {3, 0, OpSLTU},
		{4, 0, OpXOR}, {5, 0, OpSRL}, {5, 0x20, OpSRA}, {6, 0, OpOR}, {7, 0, OpAND},
		{0, 1, OpMUL}, {1, 1, OpMULH}, {2, 1, OpMULHSU}, {3, 1, OpMULHU},
		{4, 1, OpDIV}, {5, 1, OpDIVU}, {6, 1, OpREM}, {7, 1, OpREMU},
	}
	for _, e := range reg {
		m, b := maskBitsF3F7(opReg, e.f3, e.f7)
		t = add(t, m, b, e.op, FmtR)
	}

	m, b = maskBitsF3(opMisc, 0)
	t = add(t, m, b, OpFENCE, FmtI)
	m, b = maskBitsF3(opMisc, 1)
	t = add(t, m, b, OpFENCEI, FmtI)

	t = add(t, 0xFFFFFFFF, opSystem, OpECALL, FmtI)
	t = add(t, 0xFFFFFFFF, 0x00100073, OpEBREAK, FmtI)

	m, b = maskBitsF3F7Rs2(opSystem, 0, 0x18, 2)
	t = add(t, m, b, OpMRET, FmtI)
	m, b = maskBitsF3F7Rs2(opSystem, 0, 0x08, 2)
	t = add(t, m, b, OpSRET, FmtI)
	m, b = maskBitsF3F7(opSystem, 0, 0x09)
	t = add(t, m, b, OpSFENCEVMA, FmtR)
	m, b = maskBitsF3F7Rs2(opSystem, 0, 0x08, 5)
	t = add(t, m, b, OpWFI, FmtI)

	csr := []struct {
		f3 uint32
		op Op
	}{{1, OpCSRRW}, {2, OpCSRRS}, {3, OpCSRRC}, {5, OpCSRRWI}, {6, OpCSRRSI}, {7, OpCSRRCI}}
	for _, e := range csr {
		m, b := maskBitsF3(opSystem, e.f3)
		t = add(t, m, b, e.op, FmtI)
	}

	amo := []struct {
		f5 uint32
		id Op
	}{
		{0x02, OpLRW}, {0x03, OpSCW}, {0x01, OpAMOSWAPW}, {0x00, OpAMOADDW},
		{0x04, OpAMOXORW}, {0x0C, OpAMOANDW}, {0x08, OpAMOORW},
		{0x10, OpAMOMINW}, {0x14, OpAMOMAXW}, {0x18, OpAMOMINUW}, {0x1C, OpAMOMAXUW},
	}
	for _, e := range amo {
		// funct7 = funct5:aq:rl ; match funct5 only (ignore aq/rl low 2 bits).
		mask := uint32(0x1F<<27) | 0x707F
		bits := (e.f5 << 27) | (2 << 12) | opAMO
		t = add(t, mask, bits, e.id, FmtR)
	}

	return fpCommon(t)
}

func fpCommon(t []entry) []entry {
	m, b := maskBitsF3(opFLoad, 2)
	t = add(t, m, b, OpFLW, FmtI)
	m, b = maskBitsF3(opFLoad, 3)
	t = add(t, m, b, OpFLD, FmtI)
	m, b = maskBitsF3(opFStore, 2)
	t = add(t, m, b, OpFSW, FmtS)
	m, b = maskBitsF3(opFStore, 3)
	t = add(t, m, b, OpFSD, FmtS)

	fma := []struct {
		opcode     uint32
		sOp, dOp   Op
	}{
		{opFMAdd, OpFMADDS, OpFMADDD},
		{opFMSub, OpFMSUBS, OpFMSUBD},
		{opFNMSub, OpFNMSUBS, OpFNMSUBD},
		{opFNMAdd, OpFNMADDS, OpFNMADDD},
	}
	for _, f := range fma {
		// fmt field is bits 26:25 (00=S, 01=D); rs3/funct3(rounding)/rd/rs1/rs2 free.
		t = add(t, 0x0600007F, f.opcode, f.sOp, FmtR4)
		t = add(t, 0x0600007F, (1<<25)|f.opcode, f.dOp, FmtR4)
	}

	fp7 := []struct {
		f7 uint32
		op Op
	}{
		{0x00, OpFADDS}, {0x01, OpFADDD}, {0x04, OpFSUBS}, {0x05, OpFSUBD},
		{0x08, OpFMULS}, {0x09, OpFMULD}, {0x0C, OpFDIVS}, {0x0D, OpFDIVD},
	}
	for _, f := range fp7 {
		t = add(t, 0xFE00007F, (f.f7<<25)|opFP, f.op, FmtR)
	}

	sqrt := []struct {
		f7 uint32
		op Op
	}{{0x2C, OpFSQRTS}, {0x2D, OpFSQRTD}}
	for _, s := range sqrt {
		m, b := maskBitsF3F7Rs2(opFP, 0, s.f7, 0)
		m &^= 0x7000 // funct3 carries the rounding mode, not a discriminant
		t = add(t, m, b, s.op, FmtR)
	}

	sgnjMinMax := []struct {
		f3, f7 uint32
		op     Op
	}{
		{0, 0x10, OpFSGNJS}, {1, 0x10, OpFSGNJNS}, {2, 0x10, OpFSGNJXS},
		{0, 0x11, OpFSGNJD}, {1, 0x11, OpFSGNJND}, {2, 0x11, OpFSGNJXD},
		{0, 0x14, OpFMINS}, {1, 0x14, OpFMAXS},
		{0, 0x15, OpFMIND}, {1, 0x15, OpFMAXD},
	}
	for _, e := range sgnjMinMax {
		m, b := maskBitsF3F7(opFP, e.f3, e.f7)
		t = add(t, m, b, e.op, FmtR)
	}

	cmp := []struct {
		f3, f7 uint32
		op     Op
	}{
		{2, 0x50, OpFEQS}, {1, 0x50, OpFLTS}, {0, 0x50, OpFLES},
		{2, 0x51, OpFEQD}, {1, 0x51, OpFLTD}, {0, 0x51, OpFLED},
	}
	for _, e := range cmp {
		m, b := maskBitsF3F7(opFP, e.f3, e.f7)
		t = add(t, m, b, e.op, FmtR)
	}

	moveClass := []struct {
		f3, f7, rs2 uint32
		op          Op
	}{
		{0, 0x70, 0, OpFMVXW}, {1, 0x70, 0, OpFCLASSS},
		{0, 0x71, 0, OpFMVXD}, {1, 0x71, 0, OpFCLASSD},
		{0, 0x78, 0, OpFMVWX},
		{0, 0x79, 0, OpFMVDX},
	}
	for _, e := range moveClass {
		m, b := maskBitsF3F7Rs2(opFP, e.f3, e.f7, e.rs2)
		t = add(t, m, b, e.op, FmtR)
	}

	cvt := []struct {
		f7, rs2 uint32
		op      Op
	}{
		{0x60, 0, OpFCVTWS}, {0x60, 1, OpFCVTWUS}, {0x60, 2, OpFCVTLS}, {0x60, 3, OpFCVTLUS},
		{0x61, 0, OpFCVTWD}, {0x61, 1, OpFCVTWUD}, {0x61, 2, OpFCVTLD}, {0x61, 3, OpFCVTLUD},
		{0x68, 0, OpFCVTSW}, {0x68, 1, OpFCVTSWU}, {0x68, 2, OpFCVTSL}, {0x68, 3, OpFCVTSLU},
		{0x69, 0, OpFCVTDW}, {0x69, 1, OpFCVTDWU}, {0x69, 2, OpFCVTDL}, {0x69, 3, OpFCVTDLU},
		{0x20, 1, OpFCVTSD}, {0x21, 0, OpFCVTDS},
	}
	for _, e := range cvt {
		m, b := maskBitsF3F7Rs2(opFP, 0, e.f7, e.rs2)
		// Rounding-mode field (funct3) is free for all of these except the
		// narrow->wide moves above, so mask it out.
		m &^= 0x7000
		t = add(t, m, b, e.op, FmtR)
	}

	return t
}

func rv32Table() []entry {
	t := baseTable()
	shift := []struct {
		f3, fc uint32
		op     Op
	}{{1, 0, OpSLLI}, {5, 0, OpSRLI}, {5, 0x20, OpSRAI}}
	for _, e := range shift {
		m, b := maskBitsShift(opImm, e.f3, e.fc, 5)
		t = add(t, m, b, e.op, FmtI)
	}
	return t
}

func rv64Table() []entry {
	t := baseTable()

	shift := []struct {
		f3, fc uint32
		op     Op
	}{{1, 0, OpSLLI}, {5, 0, OpSRLI}, {5, 0x10, OpSRAI}}
	for _, e := range shift {
		m, b := maskBitsShift(opImm, e.f3, e.fc, 6)
		t = add(t, m, b, e.op, FmtI)
	}

	m, b := maskBitsF3(opLoad, 6)
	t = add(t, m, b, OpLWU, FmtI)
	m, b = maskBitsF3(opLoad, 3)
	t = add(t, m, b, OpLD, FmtI)
	m, b = maskBitsF3(opStore, 3)
	t = add(t, m, b, OpSD, FmtS)

	m, b = maskBitsF3(opImm32, 0)
	t = add(t, m, b, OpADDIW, FmtI)
	m, b = maskBitsShift(opImm32, 1, 0, 5)
	t = add(t, m, b, OpSLLIW, FmtI)
	m, b = maskBitsShift(opImm32, 5, 0, 5)
	t = add(t, m, b, OpSRLIW, FmtI)
	m, b = maskBitsShift(opImm32, 5, 0x20, 5)
	t = add(t, m, b, OpSRAIW, FmtI)

	reg32 := []struct {
		f3, f7 uint32
		op     Op
	}{
		{0, 0, OpADDW}, {0, 0x20, OpSUBW}, {1, 0, OpSLLW}, {5, 0, OpSRLW}, {5, 0x20, OpSRAW},
		{0, 1, OpMULW}, {4, 1, OpDIVW}, {5, 1, OpDIVUW}, {6, 1, OpREMW}, {7, 1, OpREMUW},
	}
	for _, e := range reg32 {
		m, b := maskBitsF3F7(opReg32, e.f3, e.f7)
		t = add(t, m, b, e.op, FmtR)
	}

	amo64 := []struct {
		f5 uint32
		id Op
	}{
		{0x02, OpLRD}, {0x03, OpSCD}, {0x01, OpAMOSWAPD}, {0x00, OpAMOADDD},
		{0x04, OpAMOXORD}, {0x0C, OpAMOANDD}, {0x08, OpAMOORD},
		{0x10, OpAMOMIND}, {0x14, OpAMOMAXD}, {0x18, OpAMOMINUD}, {0x1C, OpAMOMAXUD},
	}
	mask := uint32(0x1F<<27) | 0x707F
	for _, e := range amo64 {
		bits := (e.f5 << 27) | (3 << 12) | opAMO
		t = add(t, mask, bits, e.id, FmtR)
	}

	return t
}

// buckets groups a flat entry list by major opcode for O(1) average decode.
func buckets(list []entry) map[uint32][]entry {
	m := make(map[uint32][]entry)
	for _, e := range list {
		key := e.bits & 0x7F
		m[key] = append(m[key], e)
	}
	return m
}

var rv32Buckets = buckets(rv32Table())
var rv64Buckets = buckets(rv64Table())
