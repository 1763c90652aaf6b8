// Package mask implements the MaskingWeightGenerator (spec §4.6): a
// pipelined visual-activity accumulator that turns subband sample energy
// into per-cell encoder weights. Per-subband auxiliary parameters are
// threaded through in the same table-of-params idiom the teacher uses in
// jpeg2000/quantization.go for dwtNorm97/subbandParams.
package mask

import "math"

// CellSize is the fixed overlapping-cell neighbourhood width/height (spec
// §4.6: "4x4 overlapping cell masking weights").
const CellSize = 4

// Params are the per-subband visual-masking controls (spec §4.6, §6
// Subband::get_masking_params).
type Params struct {
	Floor    float64 // f: visibility floor; masking disabled when Floor <= 0
	Exponent float64 // fixed at 0.5 per spec; retained for clarity at call sites
	Scale    float64 // s: visual scale
	IsLL     bool    // LL subbands pre-filter with a 5-tap high-pass
}

// Enabled reports whether masking applies to this subband at all.
func (p Params) Enabled() bool { return p.Floor > 0 }

// numDelayLines is the number of times Drain replicates the last pushed
// line: 2 for detail subbands, 3 for the LL band. The Generator has no
// hand-off to a base encoder, so this count sets no output latency.
func (p Params) numDelayLines() int {
	if p.IsLL {
		return 3
	}
	return 2
}

// llHighPassTaps is the 5-tap high-pass filter applied to LL samples
// before activity accumulation (spec §4.6).
var llHighPassTaps = [5]float64{-1.0 / 16, -4.0 / 16, 10.0 / 16, -4.0 / 16, -1.0 / 16}

// Generator accumulates overlapping 8-row cell neighbourhoods on a 4-row
// hop and produces a per-stripe cell-weight table as lines are pushed
// (spec §4.6: "overlapping 8-row cell neighbourhoods"). It keeps a ring
// of the per-cell activity sums for (at most) the last 8 pushed lines, so
// a cell row emitted every 4 lines always windows the correct 8-line
// neighbourhood, sharing 4 lines with the previous emission and 4 with
// the next.
type Generator struct {
	params Params
	width  int

	// lineSums holds, oldest first, the per-cell activity sum for each of
	// the last min(totalLines, 8) pushed lines.
	lineSums   [][]float64
	totalLines int
	sinceEmit  int // lines pushed since the last completed cell row

	// pending keeps a copy of every pushed line, in push order; nothing in
	// this package removes lines from it or passes them to an encoder.
	pending     [][]float64
	lastPushed  []float64
	drained     bool
	firstCellW  int
	lastCellW   int
	cellWeights [][]float64 // completed per-stripe cell-weight rows
}

// New builds a Generator for a subband of the given sample width, with
// edge cells possibly narrower than CellSize (spec §4.6: "first_cell_width
// and last_cell_width").
func New(p Params, width, firstCellWidth, lastCellWidth int) *Generator {
	return &Generator{
		params:     p,
		width:      width,
		firstCellW: firstCellWidth,
		lastCellW:  lastCellWidth,
	}
}

// PushLine accumulates one subband line's activity (sqrt(|x|) per sample)
// into the sliding 8-line window, applying the LL high-pass pre-filter
// first when this is the LL subband. Every 4th line once 8 lines have
// been seen, it emits a completed cell row for the trailing 8-line
// neighbourhood.
func (g *Generator) PushLine(line []float64) {
	activity := line
	if g.params.IsLL {
		activity = highPass(line, llHighPassTaps[:])
	}

	numCells := (g.width + CellSize - 1) / CellSize
	sums := make([]float64, numCells)
	for c := 0; c < numCells; c++ {
		start := c * CellSize
		end := start + CellSize
		if end > len(activity) {
			end = len(activity)
		}
		var sum float64
		for i := start; i < end; i++ {
			sum += math.Sqrt(math.Abs(activity[i]))
		}
		sums[c] = sum
	}

	g.lineSums = append(g.lineSums, sums)
	if len(g.lineSums) > CellSize+CellSize {
		g.lineSums = g.lineSums[1:]
	}

	g.totalLines++
	g.sinceEmit++
	if g.totalLines >= CellSize+CellSize && g.sinceEmit >= CellSize {
		g.completeCellRow()
		g.sinceEmit = 0
	}

	g.lastPushed = append([]float64(nil), line...)
	g.pending = append(g.pending, g.lastPushed)
}

// highPass applies a symmetric odd-length FIR filter with edge
// replication, matching how the teacher's resampling code (kernel §4.7)
// handles boundary samples.
func highPass(line []float64, taps []float64) []float64 {
	half := len(taps) / 2
	out := make([]float64, len(line))
	for i := range line {
		var acc float64
		for t, w := range taps {
			idx := i + t - half
			if idx < 0 {
				idx = 0
			}
			if idx >= len(line) {
				idx = len(line) - 1
			}
			acc += w * line[idx]
		}
		out[i] = acc
	}
	return out
}

// completeCellRow normalizes the trailing window in g.lineSums by cell
// area and files it into the per-stripe cell-weight table, honoring the
// narrower edge-cell widths. The window covers however many lines are
// currently buffered (up to 8; fewer only for the short-subband boundary
// case handled by Drain).
func (g *Generator) completeCellRow() {
	if len(g.lineSums) == 0 {
		return
	}
	numCells := len(g.lineSums[0])
	lines := len(g.lineSums)
	row := make([]float64, numCells)
	for c := 0; c < numCells; c++ {
		var sum float64
		for _, ls := range g.lineSums {
			sum += ls[c]
		}
		area := float64(CellSize * lines)
		switch {
		case c == 0 && g.firstCellW > 0 && g.firstCellW < CellSize:
			area = float64(g.firstCellW * lines)
		case c == numCells-1 && g.lastCellW > 0 && g.lastCellW < CellSize:
			area = float64(g.lastCellW * lines)
		}
		row[c] = sum / area
	}
	g.cellWeights = append(g.cellWeights, row)
}

// Drain replicates the last pushed line numDelayLines times, per spec
// §4.6's end-of-subband handling (the replicas are pushed like any other
// line, so they are also appended to pending), and force-completes any
// partial cell row still accumulating (spec §8.3: a
// subband shorter than one full 8-line cell neighbourhood must still
// produce well-defined cell weights).
func (g *Generator) Drain() {
	if g.drained || g.lastPushed == nil {
		return
	}
	g.drained = true
	for i := 0; i < g.params.numDelayLines(); i++ {
		g.PushLine(g.lastPushed)
	}
	if g.sinceEmit > 0 {
		g.completeCellRow()
		g.sinceEmit = 0
	}
}

// CellWeights returns the completed per-stripe cell-averages table
// (un-normalized by floor/scale; callers apply Weight per code-block).
func (g *Generator) CellWeights() [][]float64 { return g.cellWeights }

// Weight computes the cellular_encode weight w = 1/(f + s*v^2) for one
// cell value v (spec §4.6).
func (p Params) Weight(v float64) float64 {
	return 1.0 / (p.Floor + p.Scale*v*v)
}

// WeightRow converts one cell-average row into encoder weights in place.
func (p Params) WeightRow(cells []float64) []float64 {
	out := make([]float64, len(cells))
	for i, v := range cells {
		out[i] = p.Weight(v)
	}
	return out
}
