package upstream_test

import (
	"testing"

	"github.com/cocosip/go-j2k-engine/sample"
	"github.com/cocosip/go-j2k-engine/upstream"
	"github.com/stretchr/testify/require"
)

func TestRectEmpty(t *testing.T) {
	require.True(t, upstream.Rect{Width: 0, Height: 5}.Empty())
	require.True(t, upstream.Rect{Width: 5, Height: -1}.Empty())
	require.False(t, upstream.Rect{Width: 1, Height: 1}.Empty())
}

type fakeTileHandle int

func (f fakeTileHandle) Index() int { return int(f) }

type fakeCodestream struct{}

func (fakeCodestream) OpenTile(index int) (upstream.TileHandle, error) {
	return fakeTileHandle(index), nil
}
func (fakeCodestream) GetTileDims(index, component int, transformed bool) (upstream.Rect, error) {
	return upstream.Rect{Width: 64, Height: 64}, nil
}
func (fakeCodestream) MapRegion(component int, r upstream.Rect, transformed bool) (upstream.Rect, error) {
	return r, nil
}
func (fakeCodestream) GetSubsampling(component int, transformed bool) (int, int, error) {
	return 1, 1, nil
}
func (fakeCodestream) ApplyInputRestrictions(region upstream.Rect, maxLayers int) error {
	return nil
}
func (fakeCodestream) GetValidTiles() (upstream.Rect, error) {
	return upstream.Rect{Width: 1, Height: 1}, nil
}

func TestCodestreamContractIsSatisfiable(t *testing.T) {
	var cs upstream.Codestream = fakeCodestream{}
	handle, err := cs.OpenTile(3)
	require.NoError(t, err)
	require.Equal(t, 3, handle.Index())
}

type fakeEngine struct{ calls int }

func (f *fakeEngine) GetLine(componentIdx int, env upstream.RenderEnv) (*sample.Line, bool, error) {
	f.calls++
	if f.calls > 1 {
		return nil, false, nil
	}
	return sample.New(sample.Fix16, 4, false, 0, 0), true, nil
}

func TestMultiSynthesisEngineContractIsSatisfiable(t *testing.T) {
	var eng upstream.MultiSynthesisEngine = &fakeEngine{}
	line, ok, err := eng.GetLine(0, upstream.RenderEnv{})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, line.GetWidth())

	_, ok, err = eng.GetLine(0, upstream.RenderEnv{})
	require.NoError(t, err)
	require.False(t, ok)
}

type fakeBlock int

func (f fakeBlock) Index() int { return int(f) }

type recordingNotifier struct {
	rows []int
}

func (n *recordingNotifier) BlockRowGenerated(height int, isFinal bool, env upstream.RenderEnv) {
	n.rows = append(n.rows, height)
}

type fakeSubband struct {
	notifier upstream.BlockNotifier
}

func (s *fakeSubband) OpenBlock(idx int, env upstream.RenderEnv, remaining int, scanStart bool) (upstream.CodeBlock, error) {
	return fakeBlock(idx), nil
}
func (s *fakeSubband) CloseBlock(block upstream.CodeBlock, env upstream.RenderEnv) error { return nil }
func (s *fakeSubband) AttachBlockNotifier(n upstream.BlockNotifier, env upstream.RenderEnv) {
	s.notifier = n
}
func (s *fakeSubband) DetachBlockNotifier(env upstream.RenderEnv) { s.notifier = nil }
func (s *fakeSubband) AdvanceBlockRowsNeeded(rows, quantumBits, numQuantumBlocks int, env upstream.RenderEnv) {
	if s.notifier != nil {
		s.notifier.BlockRowGenerated(rows, false, env)
	}
}
func (s *fakeSubband) GetMaskingParams() (upstream.MaskingParams, bool) {
	return upstream.MaskingParams{Floor: 1, Exponent: 0.5, Scale: 2}, true
}

func TestSubbandContractAndNotifierWiring(t *testing.T) {
	sb := &fakeSubband{}
	n := &recordingNotifier{}
	var subband upstream.Subband = sb
	subband.AttachBlockNotifier(n, upstream.RenderEnv{})
	subband.AdvanceBlockRowsNeeded(2, 2, 4, upstream.RenderEnv{})
	require.Equal(t, []int{2}, n.rows)

	params, ok := subband.GetMaskingParams()
	require.True(t, ok)
	require.Equal(t, 0.5, params.Exponent)

	subband.DetachBlockNotifier(upstream.RenderEnv{})
	require.Nil(t, sb.notifier)
}
