package channel

import (
	"math"

	"github.com/cocosip/go-j2k-engine/errs"
)

// FloatReinterpretConfig describes one channel's custom floating-point
// reinterpretation (spec §4.9).
type FloatReinterpretConfig struct {
	FloatExpBits int
	TotalBits    int // P: total bits including sign for signed sources
	Signed       bool
	DenormScale  float64 // power-of-two fallback scale; 1 when unused
}

func (c FloatReinterpretConfig) expBits() int {
	e := c.FloatExpBits
	if max := c.TotalBits - 1; e > max {
		e = max
	}
	return e
}

func (c FloatReinterpretConfig) mantissaBits() int {
	return c.TotalBits - 1 - c.expBits()
}

// ReinterpretAsFloat implements spec §4.9: reinterprets an absolute
// 32-bit integer sample as a custom floating-point number and converts it
// to a regular float32. Only defined for absolute 32-bit sources.
func ReinterpretAsFloat(c FloatReinterpretConfig, ival int64, isAbsolute32Bit bool) (float32, error) {
	if !isAbsolute32Bit {
		return 0, errs.New(errs.KindUnsupportedFormat, nil)
	}

	expBits := c.expBits()
	mantissaBits := c.mantissaBits()

	maxMag := int64(1)<<(c.TotalBits-1) - 1
	if ival > maxMag {
		ival = maxMag
	}
	if ival < -maxMag-1 {
		ival = -maxMag - 1
	}

	expOff := int64(1)<<(expBits-1) - 1
	preAdjust := (expOff - 127) << uint(mantissaBits)

	var mag int64
	var negative bool
	if c.Signed {
		negative = ival < 0
		if negative {
			mag = -ival
		} else {
			mag = ival
		}
	} else {
		mag = ival
	}

	biased := mag - preAdjust
	if biased < 0 {
		biased = 0
	}

	mantissaUpshift := uint(23 - mantissaBits)
	ieeeBits := uint32(biased) << mantissaUpshift

	f := math.Float32frombits(ieeeBits)

	if c.DenormScale != 0 && c.DenormScale != 1 {
		f *= float32(c.DenormScale)
	}

	if c.Signed {
		f *= 0.5
		if negative {
			f = -f
		}
	} else {
		f -= 0.5
	}

	return f, nil
}
