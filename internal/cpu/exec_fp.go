/*
   F/D extensions: single- and double-precision loads/stores, the fused
   multiply-add family, arithmetic, square root, sign-injection, min/max,
   comparison, conversion, register-move and classification.

   Rounding mode (rm/frm) is accepted and decoded but every operation
   computes in Go's native round-to-nearest-even float32/float64 semantics
   regardless of its value; guest software that actually switches rounding
   modes at runtime is out of scope for this interpreter.

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

package cpu

import (
	"math"

	"github.com/go-riscv/rvsim/internal/isa"
	"github.com/go-riscv/rvsim/internal/trap"
)

func registerFPHandlers(t map[isa.Op]handlerFunc) {
	t[isa.OpFLW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.SetF32(d.Rd, math.Float32frombits(c.Bus.LoadWord(a)))
		return nil
	}
	t[isa.OpFSW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.storeAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.Bus.StoreWord(a, math.Float32bits(c.GetF32(d.Rs2)))
		return nil
	}
	t[isa.OpFLD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.loadAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.F[d.Rd] = c.Bus.LoadDouble(a)
		return nil
	}
	t[isa.OpFSD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		a, tr := c.storeAddr(d.Rs1, d.Imm)
		if tr != nil {
			return tr
		}
		c.Bus.StoreDouble(a, c.F[d.Rs2])
		return nil
	}

	registerFPArithS(t)
	registerFPArithD(t)
}

func registerFPArithS(t map[isa.Op]handlerFunc) {
	fma := func(f func(a, b, cc float32) float32) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			c.SetF32(d.Rd, f(c.GetF32(d.Rs1), c.GetF32(d.Rs2), c.GetF32(d.Rs3)))
			return nil
		}
	}
	t[isa.OpFMADDS] = fma(func(a, b, cc float32) float32 { return float32(math.FMA(float64(a), float64(b), float64(cc))) })
	t[isa.OpFMSUBS] = fma(func(a, b, cc float32) float32 { return float32(math.FMA(float64(a), float64(b), float64(-cc))) })
	t[isa.OpFNMSUBS] = fma(func(a, b, cc float32) float32 { return float32(math.FMA(float64(-a), float64(b), float64(cc))) })
	t[isa.OpFNMADDS] = fma(func(a, b, cc float32) float32 { return float32(math.FMA(float64(-a), float64(b), float64(-cc))) })

	bin := func(f func(a, b float32) float32) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			c.SetF32(d.Rd, f(c.GetF32(d.Rs1), c.GetF32(d.Rs2)))
			return nil
		}
	}
	t[isa.OpFADDS] = bin(func(a, b float32) float32 { return a + b })
	t[isa.OpFSUBS] = bin(func(a, b float32) float32 { return a - b })
	t[isa.OpFMULS] = bin(func(a, b float32) float32 { return a * b })
	t[isa.OpFDIVS] = bin(func(a, b float32) float32 { return a / b })
	t[isa.OpFMINS] = bin(func(a, b float32) float32 { return float32(fMin(float64(a), float64(b))) })
	t[isa.OpFMAXS] = bin(func(a, b float32) float32 { return float32(fMax(float64(a), float64(b))) })

	t[isa.OpFSQRTS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF32(d.Rd, float32(math.Sqrt(float64(c.GetF32(d.Rs1)))))
		return nil
	}

	sgnj := func(combine func(sign uint32, mag uint32) uint32) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			a := math.Float32bits(c.GetF32(d.Rs1))
			b := math.Float32bits(c.GetF32(d.Rs2))
			c.SetF32(d.Rd, math.Float32frombits(combine(b, a)))
			return nil
		}
	}
	t[isa.OpFSGNJS] = sgnj(func(sign, mag uint32) uint32 { return (sign & 0x80000000) | (mag &^ 0x80000000) })
	t[isa.OpFSGNJNS] = sgnj(func(sign, mag uint32) uint32 { return (^sign & 0x80000000) | (mag &^ 0x80000000) })
	t[isa.OpFSGNJXS] = sgnj(func(sign, mag uint32) uint32 { return ((sign ^ mag) & 0x80000000) | (mag &^ 0x80000000) })

	t[isa.OpFEQS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(boolInt(c.GetF32(d.Rs1) == c.GetF32(d.Rs2))))
		return nil
	}
	t[isa.OpFLTS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(boolInt(c.GetF32(d.Rs1) < c.GetF32(d.Rs2))))
		return nil
	}
	t[isa.OpFLES] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(boolInt(c.GetF32(d.Rs1) <= c.GetF32(d.Rs2))))
		return nil
	}
	t[isa.OpFCLASSS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, classifyS(c.GetF32(d.Rs1)))
		return nil
	}
	t[isa.OpFMVXW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(int64(int32(math.Float32bits(c.GetF32(d.Rs1))))))
		return nil
	}
	t[isa.OpFMVWX] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF32(d.Rd, math.Float32frombits(uint32(c.GetX(d.Rs1))))
		return nil
	}

	t[isa.OpFCVTWS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(int64(int32(c.GetF32(d.Rs1)))))
		return nil
	}
	t[isa.OpFCVTWUS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(int64(int32(uint32(c.GetF32(d.Rs1))))))
		return nil
	}
	t[isa.OpFCVTLS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(int64(c.GetF32(d.Rs1))))
		return nil
	}
	t[isa.OpFCVTLUS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(c.GetF32(d.Rs1)))
		return nil
	}
	t[isa.OpFCVTSW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF32(d.Rd, float32(int32(c.GetX(d.Rs1))))
		return nil
	}
	t[isa.OpFCVTSWU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF32(d.Rd, float32(uint32(c.GetX(d.Rs1))))
		return nil
	}
	t[isa.OpFCVTSL] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF32(d.Rd, float32(int64(c.GetX(d.Rs1))))
		return nil
	}
	t[isa.OpFCVTSLU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF32(d.Rd, float32(c.GetX(d.Rs1)))
		return nil
	}
	t[isa.OpFCVTDS] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF64(d.Rd, float64(c.GetF32(d.Rs1)))
		return nil
	}
}

func registerFPArithD(t map[isa.Op]handlerFunc) {
	fma := func(f func(a, b, cc float64) float64) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			c.SetF64(d.Rd, f(c.GetF64(d.Rs1), c.GetF64(d.Rs2), c.GetF64(d.Rs3)))
			return nil
		}
	}
	t[isa.OpFMADDD] = fma(func(a, b, cc float64) float64 { return math.FMA(a, b, cc) })
	t[isa.OpFMSUBD] = fma(func(a, b, cc float64) float64 { return math.FMA(a, b, -cc) })
	t[isa.OpFNMSUBD] = fma(func(a, b, cc float64) float64 { return math.FMA(-a, b, cc) })
	t[isa.OpFNMADDD] = fma(func(a, b, cc float64) float64 { return math.FMA(-a, b, -cc) })

	bin := func(f func(a, b float64) float64) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			c.SetF64(d.Rd, f(c.GetF64(d.Rs1), c.GetF64(d.Rs2)))
			return nil
		}
	}
	t[isa.OpFADDD] = bin(func(a, b float64) float64 { return a + b })
	t[isa.OpFSUBD] = bin(func(a, b float64) float64 { return a - b })
	t[isa.OpFMULD] = bin(func(a, b float64) float64 { return a * b })
	t[isa.OpFDIVD] = bin(func(a, b float64) float64 { return a / b })
	t[isa.OpFMIND] = bin(fMin)
	t[isa.OpFMAXD] = bin(fMax)

	t[isa.OpFSQRTD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF64(d.Rd, math.Sqrt(c.GetF64(d.Rs1)))
		return nil
	}

	sgnj := func(combine func(sign, mag uint64) uint64) handlerFunc {
		return func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
			a := math.Float64bits(c.GetF64(d.Rs1))
			b := math.Float64bits(c.GetF64(d.Rs2))
			c.SetF64(d.Rd, math.Float64frombits(combine(b, a)))
			return nil
		}
	}
	const signBit = uint64(1) << 63
	t[isa.OpFSGNJD] = sgnj(func(sign, mag uint64) uint64 { return (sign & signBit) | (mag &^ signBit) })
	t[isa.OpFSGNJND] = sgnj(func(sign, mag uint64) uint64 { return (^sign & signBit) | (mag &^ signBit) })
	t[isa.OpFSGNJXD] = sgnj(func(sign, mag uint64) uint64 { return ((sign ^ mag) & signBit) | (mag &^ signBit) })

	t[isa.OpFEQD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(boolInt(c.GetF64(d.Rs1) == c.GetF64(d.Rs2))))
		return nil
	}
	t[isa.OpFLTD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(boolInt(c.GetF64(d.Rs1) < c.GetF64(d.Rs2))))
		return nil
	}
	t[isa.OpFLED] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(boolInt(c.GetF64(d.Rs1) <= c.GetF64(d.Rs2))))
		return nil
	}
	t[isa.OpFCLASSD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, classifyD(c.GetF64(d.Rs1)))
		return nil
	}
	t[isa.OpFMVXD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, math.Float64bits(c.GetF64(d.Rs1)))
		return nil
	}
	t[isa.OpFMVDX] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF64(d.Rd, math.Float64frombits(c.GetX(d.Rs1)))
		return nil
	}

	t[isa.OpFCVTWD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(int64(int32(c.GetF64(d.Rs1)))))
		return nil
	}
	t[isa.OpFCVTWUD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(int64(int32(uint32(c.GetF64(d.Rs1))))))
		return nil
	}
	t[isa.OpFCVTLD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(int64(c.GetF64(d.Rs1))))
		return nil
	}
	t[isa.OpFCVTLUD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetX(d.Rd, uint64(c.GetF64(d.Rs1)))
		return nil
	}
	t[isa.OpFCVTDW] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF64(d.Rd, float64(int32(c.GetX(d.Rs1))))
		return nil
	}
	t[isa.OpFCVTDWU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF64(d.Rd, float64(uint32(c.GetX(d.Rs1))))
		return nil
	}
	t[isa.OpFCVTDL] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF64(d.Rd, float64(int64(c.GetX(d.Rs1))))
		return nil
	}
	t[isa.OpFCVTDLU] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF64(d.Rd, float64(c.GetX(d.Rs1)))
		return nil
	}
	t[isa.OpFCVTSD] = func(c *CPU, d isa.Decoded, pc uint64, next *uint64) *trap.Trap {
		c.SetF32(d.Rd, float32(c.GetF64(d.Rs1)))
		return nil
	}
}

// fMin/fMax implement the RISC-V min/max semantics: propagate a non-NaN
// operand over a NaN one; if both are NaN, produce the canonical qNaN.
func fMin(a, b float64) float64 {
	if math.IsNaN(a) && math.IsNaN(b) {
		return math.Float64frombits(0x7FF8000000000000)
	}
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return math.Min(a, b)
}

func fMax(a, b float64) float64 {
	if math.IsNaN(a) && math.IsNaN(b) {
		return math.Float64frombits(0x7FF8000000000000)
	}
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return math.Max(a, b)
}

// FCLASS result bit positions.
const (
	classNegInf = 1 << 0
	classNegNorm = 1 << 1
	classNegSub = 1 << 2
	classNegZero = 1 << 3
	classPosZero = 1 << 4
	classPosSub = 1 << 5
	classPosNorm = 1 << 6
	classPosInf = 1 << 7
	classSigNaN = 1 << 8
	classQuietNaN = 1 << 9
)

func classifyS(f float32) uint64 {
	bits := math.Float32bits(f)
	exp := (bits >> 23) & 0xFF
	mant := bits & 0x7FFFFF
	neg := bits>>31 != 0
	return classifyBits(neg, exp == 0xFF, exp == 0, mant == 0, mant != 0 && bits&(1<<22) == 0)
}

func classifyD(f float64) uint64 {
	bits := math.Float64bits(f)
	exp := (bits >> 52) & 0x7FF
	mant := bits & 0xFFFFFFFFFFFFF
	neg := bits>>63 != 0
	return classifyBits(neg, exp == 0x7FF, exp == 0, mant == 0, mant != 0 && bits&(1<<51) == 0)
}

// classifyBits builds the FCLASS result from the decomposed IEEE-754
// fields: isInfOrNaN/isZeroExp together with mantZero/sigNaN disambiguate
// infinity vs NaN and zero vs subnormal.
func classifyBits(neg, isInfOrNaN, isZeroExp, mantZero, sigNaN bool) uint64 {
	switch {
	case isInfOrNaN && mantZero:
		if neg {
			return classNegInf
		}
		return classPosInf
	case isInfOrNaN:
		if sigNaN {
			return classSigNaN
		}
		return classQuietNaN
	case isZeroExp && mantZero:
		if neg {
			return classNegZero
		}
		return classPosZero
	case isZeroExp:
		if neg {
			return classNegSub
		}
		return classPosSub
	default:
		if neg {
			return classNegNorm
		}
		return classPosNorm
	}
}
