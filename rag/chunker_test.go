package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEmptyText(t *testing.T) {
	c := NewChunker(10, 0.2)
	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("   \n\t  "))
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	c := NewChunker(10, 0.2)
	chunks := c.Chunk("one two three")
	require.Len(t, chunks, 1)
	assert.Equal(t, "one two three", chunks[0])
}

func TestChunkWindowsOverlap(t *testing.T) {
	c := NewChunker(4, 0.5)
	words := []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8"}
	chunks := c.Chunk(strings.Join(words, " "))

	// window 4, overlap 0.5 -> step 2
	require.Len(t, chunks, 3)
	assert.Equal(t, "w1 w2 w3 w4", chunks[0])
	assert.Equal(t, "w3 w4 w5 w6", chunks[1])
	assert.Equal(t, "w5 w6 w7 w8", chunks[2])
}

func TestChunkEveryWordAppears(t *testing.T) {
	c := NewChunker(5, 0.15)
	var words []string
	for i := 0; i < 23; i++ {
		words = append(words, "word"+string(rune('a'+i)))
	}
	chunks := c.Chunk(strings.Join(words, " "))

	joined := strings.Join(chunks, " ")
	for _, w := range words {
		assert.Contains(t, joined, w)
	}
}

func TestChunkerBadConfigFallsBack(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, DefaultWindow, c.window)
	assert.Equal(t, DefaultOverlap, c.overlap)
}
