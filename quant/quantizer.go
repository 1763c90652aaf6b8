// Package quant implements the Quantizer and Dequantizer (spec §4.2, §4.3):
// mapping DWT subband samples to sign-magnitude integers keyed to a
// subband's K_max magnitude bit-planes, and back. Step-size derivation
// style is grounded on the teacher's jpeg2000/quantization.go
// (OpenJPEG step-size-table idiom, generalized from "quality -> step
// size" to "K_max/delta -> integer scale"); ROI handling is grounded on
// the teacher's jpeg2000/roi*.go files.
package quant

import (
	"math"
	"math/bits"

	"github.com/cocosip/go-j2k-engine/errs"
	"github.com/cocosip/go-j2k-engine/sample"
)

// Params describes the per-code-block quantization configuration derived
// from the subband descriptor (spec §3.3, §4.2).
type Params struct {
	KMax       int     // magnitude bit-planes, excluding ROI upshift
	KMaxPrime  int     // magnitude bit-planes including ROI upshift; >= KMax
	Delta      float64 // irreversible step size; ignored when Reversible
	Reversible bool

	// SourceKind/SourceAbsolute describe the incoming sample
	// representation (spec §4.2: "first treat ival as already-integer
	// magnitude" for fixed-point/absolute-integer sources).
	SourceKind     sample.Kind
	SourceAbsolute bool
}

// Result is the outcome of quantizing one rectangular block of samples.
type Result struct {
	// Samples is sign-magnitude, row-major, bit 31 = sign.
	Samples []uint32
	Width   int
	Height  int

	// ORMagnitude is the bitwise OR of every produced magnitude
	// (sign bit masked out) — spec §4.2 aggregation.
	ORMagnitude uint32

	// MissingMSBs and NumPasses are derived from ORMagnitude for the
	// entropy-coder contract (spec §3.2).
	MissingMSBs int
	NumPasses   int
}

// Quantize implements spec §4.2 for a rectangular block of already-extracted
// source samples (geometry permutation, if any, is the caller's
// responsibility — see the subband/codestream collaborator in §6). src is
// row-major, height rows of width samples each.
func Quantize(p Params, src [][]float64) (*Result, error) {
	height := len(src)
	width := 0
	if height > 0 {
		width = len(src[0])
	}

	if p.Reversible && p.KMax > 31 {
		return nil, errs.New(errs.KindInsufficientPrecision, nil)
	}

	shift := 31 - p.KMax
	var scale float64
	if !p.Reversible {
		if p.KMax <= 31 {
			scale = (1.0 / p.Delta) * math.Pow(2, float64(shift))
		} else {
			scale = (1.0 / p.Delta) / math.Pow(2, float64(p.KMax-31))
		}
		if p.SourceKind == sample.Fix16 && !p.SourceAbsolute {
			// Fold the 2^KDU_FIX_POINT factor into the scale so the raw
			// fixed-point integer need not be divided down first.
			scale /= math.Pow(2, float64(sample.FixPointBits))
		}
	}

	out := make([]uint32, width*height)
	var orMag uint32

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := src[y][x]
			sign := v < 0
			mag := math.Abs(v)

			var encodedMag uint32
			if p.Reversible {
				// Reversible: ival is already an integer magnitude
				// (possibly from an absolute/fixed-point source).
				encodedMag = uint32(int64(mag)) << uint(shift)
			} else {
				// Irreversible: rounded truncation toward zero.
				scaled := mag * scale
				encodedMag = uint32(int64(math.Trunc(scaled)))
			}
			encodedMag &= 0x7FFFFFFF

			if p.KMaxPrime > p.KMax {
				encodedMag = roiTopBitsMask(encodedMag, p.KMax+1)
			}

			word := encodedMag
			if sign {
				word |= 0x80000000
			}
			out[y*width+x] = word
			orMag |= encodedMag
		}
	}

	missing, passes := planesFromOR(orMag, shift)

	return &Result{
		Samples:     out,
		Width:       width,
		Height:      height,
		ORMagnitude: orMag,
		MissingMSBs: missing,
		NumPasses:   passes,
	}, nil
}

// roiTopBitsMask keeps only the top keepBits of the 31-bit magnitude field
// (bits 30 downto 0), zeroing the rest, per spec §4.2's ROI post-step:
// "apply an AND mask keeping only the top K_max+1 bits so background and
// foreground remain separable".
func roiTopBitsMask(mag uint32, keepBits int) uint32 {
	if keepBits <= 0 {
		return 0
	}
	if keepBits >= 31 {
		return mag & 0x7FFFFFFF
	}
	mask := uint32(0x7FFFFFFF) &^ ((uint32(1) << uint(31-keepBits)) - 1)
	return mag & mask
}

// planesFromOR derives MissingMSBs/NumPasses from the aggregated,
// shift-encoded OR-of-magnitudes (spec §3.2, §4.2, worked example in
// §8.4 S1: K_max=5 magnitudes 1..16 -> missing_msbs=27, num_passes=10).
//
// topPlane is the 0-indexed bit-plane, in the *original* (unshifted)
// magnitude's own numbering, of the highest set bit across the block;
// missing_msbs = 31 - topPlane and num_passes = 3*topPlane - 2 (clamped
// to at least 1 pass for an all-but-one-plane-empty block).
func planesFromOR(orMag uint32, shift int) (missing, passes int) {
	if orMag == 0 {
		return 31, 1
	}
	topBit := 31 - bits.LeadingZeros32(orMag) // highest set bit index in the shifted word
	topPlane := topBit - shift
	if topPlane < 0 {
		topPlane = 0
	}
	missing = 31 - topPlane
	passes = 3*topPlane - 2
	if passes < 1 {
		passes = 1
	}
	return missing, passes
}

// ApplyROIBackgroundDownshift implements spec §4.2's "ROI background
// downshift": background-flagged samples (background[y][x] == true) have
// their magnitude right-shifted by (K_max_prime - K_max); if no
// foreground exists at all, the aggregated OR is downshifted too.
func ApplyROIBackgroundDownshift(res *Result, background [][]bool, kMax, kMaxPrime int) error {
	if kMaxPrime <= kMax {
		return errs.New(errs.KindROIShiftTooSmall, nil)
	}
	downshift := uint(kMaxPrime - kMax)

	anyForeground := false
	for y := 0; y < res.Height; y++ {
		for x := 0; x < res.Width; x++ {
			isBackground := background != nil && y < len(background) && x < len(background[y]) && background[y][x]
			if isBackground {
				idx := y*res.Width + x
				word := res.Samples[idx]
				sign := word & 0x80000000
				mag := (word &^ 0x80000000) >> downshift
				res.Samples[idx] = mag | sign
			} else {
				anyForeground = true
			}
		}
	}
	if !anyForeground {
		res.ORMagnitude >>= downshift
	}
	return nil
}
