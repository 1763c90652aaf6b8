package quant_test

import (
	"testing"

	"github.com/cocosip/go-j2k-engine/errs"
	"github.com/cocosip/go-j2k-engine/quant"
	"github.com/cocosip/go-j2k-engine/sample"
	"github.com/stretchr/testify/require"
)

// S1 — Trivial 4x4 reversible encode/decode (spec §8.4).
func TestS1TrivialReversibleRoundTrip(t *testing.T) {
	src := [][]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
		{13, 14, 15, 16},
	}
	p := quant.Params{KMax: 5, KMaxPrime: 5, Reversible: true}

	res, err := quant.Quantize(p, src)
	require.NoError(t, err)

	require.Equal(t, uint32(0x1F)<<26, res.ORMagnitude)
	require.Equal(t, 27, res.MissingMSBs)
	require.Equal(t, 10, res.NumPasses)

	out := quant.Dequantize(p, res.Samples, res.Width, res.Height)
	for y := range src {
		for x := range src[y] {
			require.InDelta(t, src[y][x], out[y][x], 1e-9)
		}
	}
}

func TestReversibleEncodeNegativeValues(t *testing.T) {
	src := [][]float64{{-3, 4}}
	p := quant.Params{KMax: 5, KMaxPrime: 5, Reversible: true}
	res, err := quant.Quantize(p, src)
	require.NoError(t, err)
	require.NotZero(t, res.Samples[0]&0x80000000)
	require.Zero(t, res.Samples[1]&0x80000000)

	out := quant.Dequantize(p, res.Samples, res.Width, res.Height)
	require.InDelta(t, -3, out[0][0], 1e-9)
	require.InDelta(t, 4, out[0][1], 1e-9)
}

func TestReversibleInsufficientPrecision(t *testing.T) {
	p := quant.Params{KMax: 32, KMaxPrime: 32, Reversible: true}
	_, err := quant.Quantize(p, [][]float64{{1}})
	require.ErrorIs(t, err, errs.ErrInsufficientPrecision)
}

func TestIrreversibleRoundTripWithinTolerance(t *testing.T) {
	p := quant.Params{KMax: 10, KMaxPrime: 10, Delta: 0.01, Reversible: false, SourceKind: sample.Float32}
	src := [][]float64{{0.12, -0.34, 0.0, 0.999}}
	res, err := quant.Quantize(p, src)
	require.NoError(t, err)
	out := quant.Dequantize(p, res.Samples, res.Width, res.Height)
	for i := range src[0] {
		require.InDelta(t, src[0][i], out[0][i], p.Delta*1.01)
	}
}

func TestSingleColumnBlockQuantizesCorrectly(t *testing.T) {
	// spec §8.3: "A single-column code-block still quantizes correctly
	// (width=1)".
	src := [][]float64{{1}, {2}, {3}}
	p := quant.Params{KMax: 4, KMaxPrime: 4, Reversible: true}
	res, err := quant.Quantize(p, src)
	require.NoError(t, err)
	require.Equal(t, 1, res.Width)
	require.Equal(t, 3, res.Height)
}

func TestROIBackgroundDownshift(t *testing.T) {
	src := [][]float64{
		{1, 2},
		{3, 4},
	}
	p := quant.Params{KMax: 4, KMaxPrime: 6, Reversible: true}
	res, err := quant.Quantize(p, src)
	require.NoError(t, err)

	background := [][]bool{
		{true, false},
		{false, false},
	}
	before := res.Samples[0]
	require.NoError(t, quant.ApplyROIBackgroundDownshift(res, background, p.KMax, p.KMaxPrime))
	require.NotEqual(t, before, res.Samples[0])
}

func TestROIBackgroundDownshiftRejectsTooSmallShift(t *testing.T) {
	res := &quant.Result{Samples: []uint32{1}, Width: 1, Height: 1}
	err := quant.ApplyROIBackgroundDownshift(res, [][]bool{{true}}, 5, 5)
	require.ErrorIs(t, err, errs.ErrROIShiftTooSmall)
}
