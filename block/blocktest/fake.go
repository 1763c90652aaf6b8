// Package blocktest provides a minimal in-memory Gateway fake for testing
// the quantizer/scheduler plumbing without a real entropy coder kernel
// (the kernel itself is out of scope per spec §1; this fake just moves
// sign-magnitude samples to bytes and back so round-trip tests such as
// spec §8.4 S1 can exercise the rest of the pipeline).
package blocktest

import (
	"encoding/binary"

	"github.com/cocosip/go-j2k-engine/block"
)

// Gateway is a Gateway that serializes blk.Samples verbatim into
// blk.PassData[0] on Encode and restores them on Decode. It is not a real
// entropy coder: it performs no compression and no rate-distortion
// optimization; NumPasses/slope thresholds are recorded but not acted on.
type Gateway struct {
	// Calls counts Encode/CellularEncode/Decode invocations, for tests
	// that assert on scheduling fan-out.
	Calls int
}

func (g *Gateway) Encode(blk *block.Block, reversible bool, blockMSBWMSE float64, estimatedSlopeThreshold float64) error {
	g.Calls++
	return g.encode(blk, estimatedSlopeThreshold)
}

func (g *Gateway) CellularEncode(blk *block.Block, reversible bool, msbWMSE float64, cellWeights []float64, firstCellCols, firstCellRows int, slopeThreshold float64) error {
	g.Calls++
	return g.encode(blk, slopeThreshold)
}

func (g *Gateway) encode(blk *block.Block, slopeThreshold float64) error {
	buf := make([]byte, len(blk.Samples)*4)
	for i, s := range blk.Samples {
		binary.BigEndian.PutUint32(buf[i*4:], s)
	}
	blk.PassData = [][]byte{buf}
	blk.SlopeThresholds = []float64{slopeThreshold}
	return nil
}

func (g *Gateway) Decode(blk *block.Block, reversible bool, numBitplanes int) error {
	g.Calls++
	if len(blk.PassData) == 0 {
		return nil
	}
	buf := blk.PassData[0]
	n := len(buf) / 4
	blk.Samples = make([]uint32, n)
	for i := 0; i < n; i++ {
		blk.Samples[i] = binary.BigEndian.Uint32(buf[i*4:])
	}
	return nil
}
