package mask_test

import (
	"testing"

	"github.com/cocosip/go-j2k-engine/mask"
	"github.com/stretchr/testify/require"
)

func TestDisabledWhenFloorNonPositive(t *testing.T) {
	p := mask.Params{Floor: 0, Scale: 1}
	require.False(t, p.Enabled())
}

func TestWeightFormula(t *testing.T) {
	p := mask.Params{Floor: 2, Scale: 0.5}
	w := p.Weight(4) // 1 / (2 + 0.5*16) = 1/10
	require.InDelta(t, 0.1, w, 1e-9)
}

func TestSingleLineSubbandStillProducesCellWeights(t *testing.T) {
	// spec §8.3: "A 1-line subband still produces well-defined cell
	// weights (MaskingWeightGenerator)".
	p := mask.Params{Floor: 1, Scale: 1, IsLL: false}
	g := mask.New(p, 8, 4, 4)
	g.PushLine([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	g.Drain()
	require.NotEmpty(t, g.CellWeights())
	for _, row := range g.CellWeights() {
		weights := p.WeightRow(row)
		for _, w := range weights {
			require.Greater(t, w, 0.0)
		}
	}
}

func TestLLSubbandAppliesHighPassBeforeAccumulation(t *testing.T) {
	flat := make([]float64, 16)
	for i := range flat {
		flat[i] = 10
	}
	pLL := mask.Params{Floor: 1, Scale: 1, IsLL: true}
	pDetail := mask.Params{Floor: 1, Scale: 1, IsLL: false}

	gLL := mask.New(pLL, 16, 4, 4)
	gDetail := mask.New(pDetail, 16, 4, 4)
	for i := 0; i < 8; i++ {
		gLL.PushLine(flat)
		gDetail.PushLine(flat)
	}
	gLL.Drain()
	gDetail.Drain()

	// A constant line has zero high-pass response, so LL cell activity
	// should be far smaller than the unfiltered detail-subband activity.
	llSum, detailSum := 0.0, 0.0
	for _, row := range gLL.CellWeights() {
		for _, v := range row {
			llSum += v
		}
	}
	for _, row := range gDetail.CellWeights() {
		for _, v := range row {
			detailSum += v
		}
	}
	require.Less(t, llSum, detailSum)
}

func TestSlidingWindowHopIsFourLines(t *testing.T) {
	// spec §4.6: two overlapping 8-row cell neighbourhoods advancing on a
	// 4-line hop. With every pushed line contributing identically, each
	// emitted cell row windows a full, non-doubled 8-line neighbourhood,
	// so consecutive rows must carry the same per-cell value rather than
	// the second row reflecting an undiscounted re-accumulation of the
	// first.
	p := mask.Params{Floor: 1, Scale: 1}
	g := mask.New(p, 4, 4, 4)
	line := []float64{4, 4, 4, 4} // sqrt(4) = 2 per sample
	for i := 0; i < 12; i++ {
		g.PushLine(line)
	}
	rows := g.CellWeights()
	require.Len(t, rows, 2, "12 lines at 4-line hop after the first 8-line window emit exactly 2 rows")
	require.InDelta(t, 2.0, rows[0][0], 1e-9)
	require.InDelta(t, 2.0, rows[1][0], 1e-9, "second window must not double the first window's weight")
}

func TestDrainIsIdempotent(t *testing.T) {
	p := mask.Params{Floor: 1, Scale: 1}
	g := mask.New(p, 8, 4, 4)
	g.PushLine([]float64{1, 1, 1, 1, 1, 1, 1, 1})
	g.Drain()
	before := len(g.CellWeights())
	g.Drain()
	require.Equal(t, before, len(g.CellWeights()))
}
