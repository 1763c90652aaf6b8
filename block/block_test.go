package block_test

import (
	"testing"

	"github.com/cocosip/go-j2k-engine/block"
	"github.com/cocosip/go-j2k-engine/block/blocktest"
	"github.com/stretchr/testify/require"
)

func TestNewBlockAllocatesSamples(t *testing.T) {
	b := block.New(1, 2, 4, 4, 0, block.Geometry{})
	require.Equal(t, 16, len(b.Samples))
	require.Equal(t, 16, b.MaxSamples)
}

func TestFakeGatewayRoundTrips(t *testing.T) {
	b := block.New(0, 0, 2, 2, 0, block.Geometry{})
	b.Samples = []uint32{1, 2, 3, 4}

	var gw blocktest.Gateway
	require.NoError(t, gw.Encode(b, true, 0, 0))
	require.Equal(t, 1, gw.Calls)

	b.Samples = nil
	require.NoError(t, gw.Decode(b, true, 5))
	require.Equal(t, []uint32{1, 2, 3, 4}, b.Samples)
	require.Equal(t, 2, gw.Calls)
}
