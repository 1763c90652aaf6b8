package kernel_test

import (
	"testing"

	"github.com/cocosip/go-j2k-engine/kernel"
	"github.com/stretchr/testify/require"
)

func TestSincBankHasFullLengthAndPhaseCount(t *testing.T) {
	p := kernel.Params{ExpansionFactor: 1, MaxOvershoot: 0.1, ZeroOvershootThreshold: 4}
	b := kernel.Build(p)
	require.Equal(t, 6, b.Length)
	require.Len(t, b.Phases, 33)
	for _, ph := range b.Phases {
		require.Len(t, ph.Float, 6)
		require.Len(t, ph.Fixed, 6)
	}
}

func TestLinearBankChosenWhenExpansionExceedsThreshold(t *testing.T) {
	p := kernel.Params{ExpansionFactor: 10, MaxOvershoot: 0.1, ZeroOvershootThreshold: 4}
	b := kernel.Build(p)
	require.Equal(t, 2, b.Length)
}

func TestLinearBankChosenWhenMaxOvershootZero(t *testing.T) {
	p := kernel.Params{ExpansionFactor: 2, MaxOvershoot: 0, ZeroOvershootThreshold: 8}
	b := kernel.Build(p)
	require.Equal(t, 2, b.Length)
}

func TestFixedPointTapsAreNegatedRoundedScale(t *testing.T) {
	p := kernel.Params{ExpansionFactor: 1, MaxOvershoot: 0.1, ZeroOvershootThreshold: 4}
	b := kernel.Build(p)
	ph := b.Phases[0]
	for i, f := range ph.Float {
		require.InDelta(t, -f*32768, float64(ph.Fixed[i]), 1.0)
	}
}

func TestCacheReusesWithinTolerance(t *testing.T) {
	c := &kernel.Cache{}
	p1 := kernel.Params{ExpansionFactor: 1.0, MaxOvershoot: 0.1, ZeroOvershootThreshold: 4}
	p2 := kernel.Params{ExpansionFactor: 1.02, MaxOvershoot: 0.1, ZeroOvershootThreshold: 4}
	b1 := c.Get(p1)
	b2 := c.Get(p2)
	require.Same(t, b1, b2)
}

func TestCacheBuildsNewBankOutsideTolerance(t *testing.T) {
	c := &kernel.Cache{}
	p1 := kernel.Params{ExpansionFactor: 1.0, MaxOvershoot: 0.1, ZeroOvershootThreshold: 4}
	p2 := kernel.Params{ExpansionFactor: 2.0, MaxOvershoot: 0.1, ZeroOvershootThreshold: 4}
	b1 := c.Get(p1)
	b2 := c.Get(p2)
	require.NotSame(t, b1, b2)
}

func TestLinearBankStoresProgressiveLengths(t *testing.T) {
	p := kernel.Params{ExpansionFactor: 10, MaxOvershoot: 0.1, ZeroOvershootThreshold: 4}
	b := kernel.Build(p)
	seenLengths := map[int]bool{}
	for _, ph := range b.Phases[:4] {
		seenLengths[len(ph.Float)] = true
	}
	require.True(t, len(seenLengths) > 1, "four consecutive phases should use progressive kernel lengths")
}
