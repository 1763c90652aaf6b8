package attrs_test

import (
	"testing"

	"github.com/cocosip/go-j2k-engine/attrs"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetInt(t *testing.T) {
	s := attrs.New()
	s.SetInt("K_max", 5)
	v, ok := s.GetInt("K_max")
	require.True(t, ok)
	require.EqualValues(t, 5, v)
}

func TestSetAndGetFloat(t *testing.T) {
	s := attrs.New()
	s.SetFloat("delta", 0.125)
	v, ok := s.GetFloat("delta")
	require.True(t, ok)
	require.InDelta(t, 0.125, v, 1e-12)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	s := attrs.New()
	_, ok := s.GetInt("missing")
	require.False(t, ok)
}

func TestGetWrongKindReturnsFalse(t *testing.T) {
	s := attrs.New()
	s.SetInt("n", 1)
	_, ok := s.GetFloat("n")
	require.False(t, ok)
}

func TestRestartDiscardsUnrenewedRecords(t *testing.T) {
	s := attrs.New()
	s.SetInt("stable", 1)
	s.SetInt("stale", 2)

	s.MarkAll()
	require.Equal(t, 2, s.MarkedCount())

	s.SetInt("stable", 10) // re-set: unmarks it
	s.Restart()

	v, ok := s.GetInt("stable")
	require.True(t, ok)
	require.EqualValues(t, 10, v)

	_, ok = s.GetInt("stale")
	require.False(t, ok)
	require.Equal(t, 0, s.MarkedCount())
}

func TestSetIntOverwritesPreviousFloatKind(t *testing.T) {
	s := attrs.New()
	s.SetFloat("x", 1.5)
	s.SetInt("x", 7)
	_, ok := s.GetFloat("x")
	require.False(t, ok)
	v, ok := s.GetInt("x")
	require.True(t, ok)
	require.EqualValues(t, 7, v)
}
