package inputgen

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateZeroYieldsSingleEmptyInput(t *testing.T) {
	require.Equal(t, []string{""}, Generate(0))
}

func TestGeneratePrefixIsDeterministic(t *testing.T) {
	a := Generate(10)
	b := Generate(10)
	require.Equal(t, a, b)
	require.Len(t, a, 10)
	require.Equal(t, "", a[0])
	require.Equal(t, "0", a[1])
}

func TestGenerateBeyondSeedsAppendsPlaceholders(t *testing.T) {
	out := Generate(len(seeds) + 3)
	require.Len(t, out, len(seeds)+3)
	require.Equal(t, seeds, out[:len(seeds)])
	require.Equal(t, "input_"+strconv.Itoa(len(seeds)+1), out[len(seeds)])
}
