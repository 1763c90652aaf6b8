package errs_test

import (
	"errors"
	"testing"

	"github.com/cocosip/go-j2k-engine/errs"
	"github.com/stretchr/testify/require"
)

func TestErrorIsSentinel(t *testing.T) {
	err := errs.New(errs.KindInvalidExpansion, nil)
	require.True(t, errors.Is(err, errs.ErrInvalidExpansion))
	require.False(t, errors.Is(err, errs.ErrDimensionOverflow))
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := errs.New(errs.KindCodestreamFailure, cause)
	require.True(t, errors.Is(err, errs.ErrCodestreamFailure))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "boom")
}

func TestOutOfMemoryTag(t *testing.T) {
	err := errs.NewOutOfMemory()
	require.Equal(t, errs.KindCodestreamFailure, err.Kind)
	require.ErrorIs(t, err, errs.ErrOutOfMemory)
}

func TestFailureLatchFirstWins(t *testing.T) {
	var f errs.Failure
	first := errs.New(errs.KindInsufficientPrecision, nil)
	second := errs.New(errs.KindDimensionOverflow, nil)

	require.True(t, f.Store(first))
	require.False(t, f.Store(second))
	require.Same(t, first, f.Load())
}

func TestFailureLatchNilIgnored(t *testing.T) {
	var f errs.Failure
	require.False(t, f.Store(nil))
	require.Nil(t, f.Load())
}
