// Package upstream declares the external collaborator contracts spec §6
// names but places out of scope: the codestream/container parser, the
// DWT multi-resolution synthesis engine, and the subband's block-stream
// interface. Only the shape is specified here, never an implementation
// (spec §1). The interface-for-external-collaborator boundary is
// grounded on jpeg2000/codestream/types.go's marker/tile handle type
// definitions, generalized from concrete parser structs to Go interfaces
// so this module can be built and tested against fakes.
package upstream

import "github.com/cocosip/go-j2k-engine/sample"

// Rect is an axis-aligned integer rectangle, shared by every upstream
// geometry query (spec §6).
type Rect struct {
	X, Y, Width, Height int
}

// Empty reports whether the rectangle covers zero area (spec §8.1
// invariant 7: "For an empty incomplete region, process returns without
// modifying any output buffer").
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// TileHandle is the opaque handle returned by Codestream.OpenTile.
type TileHandle interface {
	Index() int
}

// Codestream is the upstream container/parser contract (spec §6).
type Codestream interface {
	OpenTile(index int) (TileHandle, error)
	GetTileDims(index, component int, transformed bool) (Rect, error)
	MapRegion(component int, r Rect, transformed bool) (Rect, error)
	GetSubsampling(component int, transformed bool) (sx, sy int, err error)
	ApplyInputRestrictions(region Rect, maxLayers int) error
	GetValidTiles() (Rect, error)
}

// RenderEnv carries the per-call environment (cancellation, pass id)
// threaded through every upstream/downstream call (spec §6).
type RenderEnv struct {
	PassID string
	Done   <-chan struct{}
}

// MultiSynthesisEngine is the upstream DWT inverse-transform contract
// (spec §6: "MultiSynthesisEngine::get_line").
type MultiSynthesisEngine interface {
	GetLine(componentIdx int, env RenderEnv) (*sample.Line, bool, error)
}

// CodeBlock is the opaque per-block handle Subband.OpenBlock hands to
// the (out-of-scope) entropy coder gateway.
type CodeBlock interface {
	Index() int
}

// BlockNotifier receives stripe-completion callbacks from a Subband
// (spec §6: attach_block_notifier/block_row_generated).
type BlockNotifier interface {
	BlockRowGenerated(height int, isFinal bool, env RenderEnv)
}

// MaskingParams mirrors Subband.get_masking_params's optional result
// (spec §6, §4.6).
type MaskingParams struct {
	Floor    float64
	Exponent float64
	Scale    float64
}

// Subband is the upstream per-subband block-stream contract (spec §6).
type Subband interface {
	OpenBlock(idx int, env RenderEnv, remaining int, scanStart bool) (CodeBlock, error)
	CloseBlock(block CodeBlock, env RenderEnv) error
	AttachBlockNotifier(n BlockNotifier, env RenderEnv)
	DetachBlockNotifier(env RenderEnv)
	AdvanceBlockRowsNeeded(rows, quantumBits, numQuantumBlocks int, env RenderEnv)
	GetMaskingParams() (MaskingParams, bool)
}

// TransferFn is the downstream buffer-write contract (spec §6). Package
// transfer's TransferLine performs the same kind of write through a
// Config-based signature; it is not of this type.
type TransferFn func(srcLine *sample.Line, skip, numSamples int, dstBuf []byte, dstPrec, pixelGap int, signed bool, scale, offset float64, clip bool) error

// Renderer is the downstream render-pass contract (spec §6).
type Renderer interface {
	Process(buf []byte, geometry Rect, incompleteRegion Rect) (renderedRect Rect, err error)
}

// Encoder is the downstream push-encode contract (spec §6).
type Encoder interface {
	Start(env RenderEnv) error
	Push(line *sample.Line, env RenderEnv) error
}
