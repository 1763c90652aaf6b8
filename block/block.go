// Package block defines the code-block data structure and the
// BlockCoderGateway contract to the entropy coder kernel (spec §3.2, §4.4).
// The entropy coder kernel itself is an external collaborator (spec §1):
// this package specifies the interface only, plus a small reference fake
// (see blocktest) used by this module's own tests.
package block

// Geometry carries the transpose/flip flags a code-block inherits from its
// subband's orientation (spec §3.2).
type Geometry struct {
	Transposed bool
	VFlip      bool
	HFlip      bool
}

// Block is one code-block: its absolute subband-relative index, its
// sample rectangle, geometry flags, and the bookkeeping fields the
// quantizer/entropy-coder contract shares (spec §3.2).
type Block struct {
	BX, BY int // absolute code-block index within the subband
	Width  int
	Height int

	Geometry Geometry

	// Samples is sign-magnitude after Quantizer, row-major, length
	// Width*Height. Bit 31 holds the sign; lower bits hold magnitude.
	Samples []uint32

	// MaxSamples is the code-block's allocated capacity (spec §3.2); it
	// may exceed Width*Height for a reused buffer.
	MaxSamples int

	// MissingMSBs is the number of known-zero top magnitude bit-planes,
	// set by the quantizer from its OR-of-magnitudes aggregation
	// (spec §4.2) before the block is handed to the entropy coder.
	MissingMSBs int

	// NumPasses is the number of coding passes the entropy coder is
	// expected to emit, derived from MissingMSBs and K_max (spec §3.2).
	NumPasses int

	// InsufficientPrecisionDetected flags that a sample's encoded
	// magnitude required more than 31 bit-planes (spec §3.2, §4.2).
	InsufficientPrecisionDetected bool

	// PassData and SlopeThresholds are populated by Gateway.Encode /
	// Gateway.CellularEncode (spec §4.4 "output contract").
	PassData        [][]byte
	SlopeThresholds []float64
}

// New allocates a Block sized for width x height samples, with capacity
// maxSamples (>= width*height).
func New(bx, by, width, height, maxSamples int, geom Geometry) *Block {
	if maxSamples < width*height {
		maxSamples = width * height
	}
	return &Block{
		BX:         bx,
		BY:         by,
		Width:      width,
		Height:     height,
		Geometry:   geom,
		Samples:    make([]uint32, width*height),
		MaxSamples: maxSamples,
	}
}

// Gateway is the thin contract to an external block entropy codec: one
// code-block in, compressed passes out (or vice versa) (spec §4.4).
//
// Input contract: blk.Samples is sign-magnitude; MissingMSBs and NumPasses
// must already be set by the quantizer. Output contract: blk carries
// emitted pass data and R-D slope thresholds; the codestream layer (not
// this package) is responsible for final truncation.
type Gateway interface {
	// Encode performs ordinary (non-masked) encoding of blk.
	Encode(blk *Block, reversible bool, blockMSBWMSE float64, estimatedSlopeThreshold float64) error

	// CellularEncode is the MaskingWeightGenerator variant: distortion is
	// scaled by per-cell visual weights (spec §4.4, §4.6). cellWeights is
	// row-major over the block's overlapping 4x4 cell grid; firstCellCols
	// and firstCellRows give the partial-cell width/height at the
	// subband's edge (spec §4.6 "first_cell_width"/"last_cell_width").
	CellularEncode(blk *Block, reversible bool, msbWMSE float64, cellWeights []float64, firstCellCols, firstCellRows int, slopeThreshold float64) error

	// Decode is the inverse direction: blk.PassData in, blk.Samples out.
	Decode(blk *Block, reversible bool, numBitplanes int) error
}
