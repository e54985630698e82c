package components

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressShowsCount(t *testing.T) {
	t.Parallel()

	out := NewProgress(4).View(2)
	require.Contains(t, out, "2/4")
}

func TestProgressRatioIsClamped(t *testing.T) {
	t.Parallel()

	p := NewProgress(2)
	require.Equal(t, 1.0, p.ratio(5))
	require.Equal(t, 0.5, p.ratio(1))

	empty := NewProgress(0)
	require.Zero(t, empty.ratio(3))
	require.Contains(t, empty.View(0), "0/0")
}
