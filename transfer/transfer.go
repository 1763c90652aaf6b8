// Package transfer implements TransferFunctions (spec §4.10): writing one
// rendered line into a caller-owned buffer with precision adaption,
// true-zero/true-max scaling, an interleaved fast path, and fill
// transfers. Buffer-cursor-at-a-stride writing is grounded on the
// teacher's jpeg2000/t2/packet_header_bitio.go bit/byte cursor idiom,
// generalized from packed-field bitstream I/O to strided pixel output.
package transfer

import (
	"encoding/binary"
	"math"

	"github.com/cocosip/go-j2k-engine/errs"
)

// SampleBytes is the destination element width (spec §4.10).
type SampleBytes int

const (
	Bytes1 SampleBytes = 1
	Bytes2 SampleBytes = 2
	Bytes4 SampleBytes = 4
)

// Config describes one transfer call's parameters (spec §4.10).
type Config struct {
	SampleBytes SampleBytes
	DstPrec     int // 1..16 for integer; 0 for [0,1] float normalization
	LeaveSigned bool
	PixelGap    int
	ByteStride  int
	SrcScale    float64
	SrcOffset   float64
	ClipOutputs bool

	// UseCorrectedPrecisionBranch opts into the intended `dst_prec <= 8`
	// small-precision branch. Left unset (the default), TransferLine
	// reproduces the original's literal `dst_prec <= 1.0f/512.0f`
	// comparison verbatim -- effectively dead code for any positive
	// dst_prec -- per the Open Question's "record this as a suspect
	// branch, ship the observed behaviour, fix only with upstream
	// confirmation" resolution. Nothing in this module sets it yet; it
	// exists so a caller can confirm the fix later without another
	// behavioural change here.
	UseCorrectedPrecisionBranch bool
}

// usesSmallPrecisionBranch resolves the §9 "dst_prec <= 1.0f/512.0f" typo
// (spec's Open Question): ship the literal legacy comparison by default,
// since it was never confirmed upstream to be a bug; the intended
// dst_prec <= 8 gating is reachable only through explicit opt-in.
func (c Config) usesSmallPrecisionBranch() bool {
	if c.UseCorrectedPrecisionBranch {
		return c.DstPrec <= 8
	}
	return float64(c.DstPrec) <= 1.0/512.0
}

// ZetaParams carries the true-zero/true-max scaling inputs (spec §4.10).
type ZetaParams struct {
	TrueMax      bool
	TrueZero     bool
	NormalizedMax float64
	Signed       bool
	Zeta         float64 // interp_zeta, in [0, 1)
}

// Scale derives (scale, offset) per spec §4.10's four cases.
func (z ZetaParams) Scale() (scale, offset float64) {
	switch {
	case !z.TrueMax && !z.TrueZero:
		return 1, 0
	case z.TrueMax && !z.TrueZero:
		if z.Signed && z.NormalizedMax > 0.01 {
			return 0.5 / z.NormalizedMax, 0
		}
		return 1.0 / (z.NormalizedMax + 0.5), 0.5 / (z.NormalizedMax + 0.5)
	case !z.TrueMax && z.TrueZero:
		return 1, -z.Zeta
	default: // both
		if z.Signed {
			return 1.0 / z.NormalizedMax, 0
		}
		target := 0.5 - z.Zeta
		return target / (z.NormalizedMax + target), target * (1 - 1.0/(z.NormalizedMax+target))
	}
}

// clipToUnit restricts v to [0, 1] unless ClipOutputs permits escape (spec
// §4.10: floats may escape nominal range only for float-reinterpret or
// fixpoint-with-int-bits formats when the caller opted out of clipping).
func clipToUnit(v float64, allowEscape bool) float64 {
	if allowEscape {
		return v
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TransferLine writes len(src) samples into dst at c.PixelGap*c.SampleBytes
// stride starting at byte offset 0 within each pixel_gap slot (spec
// §4.10). Each sample becomes v*c.SrcScale + c.SrcOffset plus the 0.5
// rounding bias, is clipped to the destination range and, for integer
// outputs, level-shifted when c.LeaveSigned is set.
func TransferLine(c Config, src []float64, dst []byte) error {
	if c.PixelGap <= 0 {
		return errs.New(errs.KindUnsupportedFormat, nil)
	}
	stride := c.PixelGap * int(c.SampleBytes)
	need := stride * len(src)
	if c.ByteStride > 0 && c.ByteStride < need {
		return errs.New(errs.KindDimensionOverflow, nil)
	}
	if len(dst) < need {
		return errs.New(errs.KindDimensionOverflow, nil)
	}

	if c.DstPrec == 0 {
		allowEscape := !c.ClipOutputs
		for i, v := range src {
			y := v*c.SrcScale + c.SrcOffset + 0.5
			y = clipToUnit(y, allowEscape)
			off := i * stride
			writeSampleFloat(c.SampleBytes, dst[off:off+int(c.SampleBytes)], y)
		}
		return nil
	}

	maxVal := int64(1)<<uint(c.DstPrec) - 1
	levelShift := int64(0)
	if c.LeaveSigned {
		levelShift = int64(1) << uint(c.DstPrec-1)
	}

	for i, v := range src {
		y := v*c.SrcScale + c.SrcOffset + 0.5
		if y < 0 {
			y = 0
		}
		if y > float64(maxVal) {
			y = float64(maxVal)
		}

		var iv int64
		if c.usesSmallPrecisionBranch() {
			// Small-precision branch: truncate rather than round, matching
			// the intended (corrected) dst_prec<=8 behaviour.
			iv = int64(math.Trunc(y))
		} else {
			iv = int64(math.Round(y))
		}
		iv -= levelShift

		off := i * stride
		writeSampleInt(c.SampleBytes, dst[off:off+int(c.SampleBytes)], iv)
	}
	return nil
}

func writeSampleInt(sb SampleBytes, buf []byte, v int64) {
	switch sb {
	case Bytes1:
		buf[0] = byte(v)
	case Bytes2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case Bytes4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	}
}

func writeSampleFloat(sb SampleBytes, buf []byte, v float64) {
	switch sb {
	case Bytes4:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case Bytes2:
		binary.LittleEndian.PutUint16(buf, uint16(v*float64(1<<16-1)))
	case Bytes1:
		buf[0] = byte(v * 255)
	}
}

// CanUseInterleavedFastPath reports whether the 4-way interleaved fast
// transfer applies (spec §4.10: "4 channels, pixel_gap=4, 8-bit output,
// aligned 4-byte base, no non-trivial scale/offset, consistent source
// types, unsigned"). It takes no source-type argument, so consistency of
// the channels' source types is not checked here.
func CanUseInterleavedFastPath(numChannels, pixelGap int, sampleBytes SampleBytes, baseAligned4 bool, scale, offset float64, unsigned bool) bool {
	return numChannels == 4 &&
		pixelGap == 4 &&
		sampleBytes == Bytes1 &&
		baseAligned4 &&
		scale == 1 && offset == 0 &&
		unsigned
}

// FillValue computes the constant fill value for expand-monochrome or
// alpha-fill replication (spec §4.10: "(1 << dst_prec) - 1, clamped for
// signed").
func FillValue(dstPrec int, signed bool) int64 {
	if dstPrec <= 0 {
		return 0
	}
	v := int64(1)<<uint(dstPrec) - 1
	if signed {
		v >>= 1
	}
	return v
}
