// Package render implements RegionRenderer and TileBank (spec §2, §5):
// orchestrating a horizontal run of codestream tiles, fanning each
// component out through a channel.Pipeline, invoking an optional colour
// conversion hook, and writing the final rows through transfer.TransferLine.
// The top-level "parse -> per-tile reconstruct -> assemble" shape is
// grounded on the teacher's jpeg2000/decoder.go orchestration, generalized
// from whole-image decode to windowed incremental rendering across two
// live tile banks (current + background); render-pass correlation ids
// reuse the teacher's otherwise-unused google/uuid dependency, the same
// way sched.Scheduler does for encode passes.
package render

import (
	"github.com/google/uuid"

	"github.com/cocosip/go-j2k-engine/channel"
	"github.com/cocosip/go-j2k-engine/errs"
	"github.com/cocosip/go-j2k-engine/sample"
	"github.com/cocosip/go-j2k-engine/transfer"
	"github.com/cocosip/go-j2k-engine/upstream"
)

// ColorConverter is the out-of-scope colour-space maths hook (spec §1:
// "colour-space conversion maths" is an external collaborator); when set,
// Process calls it once per rendered row with that row's single channel
// and uses the first line it returns.
type ColorConverter func(channels [][]float64) [][]float64

// TileBank holds a horizontal run of codestream tiles opened for one
// render pass, and each tile's per-component synthesis engine (spec §2).
type TileBank struct {
	Tiles      []upstream.TileHandle
	Engines    map[int]upstream.MultiSynthesisEngine // keyed by component index
	FirstIndex int
}

// Close releases every tile this bank holds open. Real Codestream
// implementations would free resources here; the interface contract
// (spec §6) has no explicit close, so this is a no-op placeholder for
// callers that track per-bank cleanup themselves.
func (b *TileBank) Close() {}

// Config captures one RegionRenderer's static per-pass configuration
// (spec §2, §5).
type Config struct {
	Codestream   upstream.Codestream
	Component    int
	Pipeline     *channel.Pipeline
	Transfer     transfer.Config
	ColorConvert ColorConverter
}

// Renderer orchestrates two concurrently-live tile banks: "current"
// (actively read out) and "background" (tiles being opened and
// synthesized for the next run), per spec §5's concurrency model.
type Renderer struct {
	cfg        Config
	current    *TileBank
	background *TileBank

	// PassID correlates one render pass's log lines, mirroring
	// sched.Scheduler.PassID for the encode side.
	PassID string
}

// New builds a Renderer bound to cfg.
func New(cfg Config) *Renderer {
	return &Renderer{cfg: cfg, PassID: uuid.NewString()}
}

// StartTileBank opens tiles beginning at firstIndex into bank (current or
// background), per spec §7's recovered-locally behaviour: "start_tile_bank
// returning 'no tile survives the region' advances the tile index cursor
// without error" rather than failing.
func (r *Renderer) StartTileBank(firstIndex int, region upstream.Rect, numTiles int) (*TileBank, error) {
	bank := &TileBank{Engines: map[int]upstream.MultiSynthesisEngine{}, FirstIndex: firstIndex}
	for i := 0; i < numTiles; i++ {
		idx := firstIndex + i
		dims, err := r.cfg.Codestream.GetTileDims(idx, r.cfg.Component, true)
		if err != nil {
			return nil, errs.New(errs.KindCodestreamFailure, err)
		}
		mapped, err := r.cfg.Codestream.MapRegion(r.cfg.Component, region, true)
		if err != nil {
			return nil, errs.New(errs.KindCodestreamFailure, err)
		}
		if dims.Empty() || mapped.Empty() {
			// No tile survives the region at this index: skip it rather
			// than failing (spec §7).
			continue
		}
		handle, err := r.cfg.Codestream.OpenTile(idx)
		if err != nil {
			return nil, errs.New(errs.KindCodestreamFailure, err)
		}
		bank.Tiles = append(bank.Tiles, handle)
	}
	return bank, nil
}

// SetCurrent installs bank as the actively-read-out tile bank.
func (r *Renderer) SetCurrent(bank *TileBank) { r.current = bank }

// SetBackground installs bank as the bank being prepared for the next run.
func (r *Renderer) SetBackground(bank *TileBank) { r.background = bank }

// PromoteBackground swaps the background bank into current, closing the
// previous current bank (spec §5: "two concurrent tile banks").
func (r *Renderer) PromoteBackground() {
	if r.current != nil {
		r.current.Close()
	}
	r.current = r.background
	r.background = nil
}

// Process renders one incomplete region into buf, returning the
// rectangle actually written (spec §6 Renderer::process). An empty
// incompleteRegion leaves buf untouched (spec §8.1 invariant 7).
func (r *Renderer) Process(buf []byte, env upstream.RenderEnv, incompleteRegion upstream.Rect) (upstream.Rect, error) {
	if incompleteRegion.Empty() {
		return upstream.Rect{}, nil
	}
	if r.current == nil {
		return upstream.Rect{}, errs.New(errs.KindCodestreamFailure, nil)
	}

	eng, ok := r.current.Engines[r.cfg.Component]
	if !ok {
		return upstream.Rect{}, errs.New(errs.KindCodestreamFailure, nil)
	}

	rendered := upstream.Rect{X: incompleteRegion.X, Y: incompleteRegion.Y}
	rowBytes := r.cfg.Transfer.PixelGap * int(r.cfg.Transfer.SampleBytes) * incompleteRegion.Width
	off := 0
	for y := 0; y < incompleteRegion.Height; y++ {
		line, ok, err := eng.GetLine(r.cfg.Component, env)
		if err != nil {
			return rendered, errs.New(errs.KindCodestreamFailure, err)
		}
		if !ok {
			break
		}

		src := lineToFloats(line)
		if r.cfg.Pipeline != nil {
			src = r.cfg.Pipeline.ConvertAndCopy(src)
		}
		if r.cfg.ColorConvert != nil {
			converted := r.cfg.ColorConvert([][]float64{src})
			if len(converted) > 0 {
				src = converted[0]
			}
		}

		if off+rowBytes > len(buf) {
			return rendered, errs.New(errs.KindDimensionOverflow, nil)
		}
		if err := transfer.TransferLine(r.cfg.Transfer, src, buf[off:off+rowBytes]); err != nil {
			return rendered, err
		}
		off += rowBytes
		rendered.Height++
	}
	rendered.Width = incompleteRegion.Width
	return rendered, nil
}

// lineToFloats reads a sample.Line's values into natural-units float64,
// normalizing fix16 by its implicit binary point. Dequantization already
// happened upstream (spec §2's render data-flow: "Dequantizer already
// applied upstream"), so every representation here is a plain linear
// value.
func lineToFloats(line *sample.Line) []float64 {
	width := line.GetWidth()
	out := make([]float64, width)
	switch line.Kind() {
	case sample.Fix16:
		scale := 1.0
		if !line.Absolute() {
			scale = 1.0 / float64(int(1)<<sample.FixPointBits)
		}
		for i := 0; i < width; i++ {
			v, _ := line.At16(i)
			out[i] = float64(v) * scale
		}
	case sample.Int32:
		for i := 0; i < width; i++ {
			v, _ := line.At32(i)
			out[i] = float64(v)
		}
	default:
		for i := 0; i < width; i++ {
			v, _ := line.AtFloat(i)
			out[i] = float64(v)
		}
	}
	return out
}
