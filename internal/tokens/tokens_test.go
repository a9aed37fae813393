package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristicCount(t *testing.T) {
	var h Heuristic
	require.Equal(t, 0, h.Count(""))
	require.Equal(t, 1, h.Count("a"))
	require.Equal(t, 1, h.Count("abcd"))
	require.Equal(t, 2, h.Count("abcde"))
}

func TestHeuristicDeterministicAndMonotonic(t *testing.T) {
	var h Heuristic
	text := strings.Repeat("transformer attention ", 50)
	require.Equal(t, h.Count(text), h.Count(text))
	require.LessOrEqual(t, h.Count(text), h.Count(text+"more"))
}

func TestHeuristicArbitraryBytes(t *testing.T) {
	var h Heuristic
	require.NotPanics(t, func() { h.Count("\x00\xff\xfe<think>") })
	require.Equal(t, "heuristic-4cpt", h.Profile())
}

func TestBPECounterLoadsWithoutNetwork(t *testing.T) {
	c := New("")
	require.Equal(t, DefaultEncoding, c.Profile())
	require.Equal(t, 2, c.Count("hello world"))
	require.Equal(t, 0, c.Count(""))
}

func TestUnknownEncodingFallsBackToDefault(t *testing.T) {
	c := New("no_such_encoding")
	require.Equal(t, DefaultEncoding, c.Profile())
}
