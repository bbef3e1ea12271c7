package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	chunks := Split("a short letter", DefaultConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short letter", chunks[0])
}

func TestSplitEmptyInput(t *testing.T) {
	assert.Nil(t, Split("", DefaultConfig()))
	assert.Nil(t, Split("   \n\n  ", DefaultConfig()))
}

func TestSplitRepeatedSentences(t *testing.T) {
	// "Hello world. " repeated past 800 characters must produce at
	// least two chunks, none above the size limit, overlapping by
	// roughly the configured amount.
	text := strings.TrimSpace(strings.Repeat("Hello world. ", 62))
	cfg := DefaultConfig()

	chunks := Split(text, cfg)
	require.GreaterOrEqual(t, len(chunks), 2)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), cfg.MaxSize, "chunk %d too long", i)
		assert.NotEmpty(t, c)
	}

	// Adjacent chunks share overlapping text.
	tail := chunks[0][len(chunks[0])-50:]
	assert.Contains(t, chunks[1], strings.TrimSpace(tail)[:20])
}

func TestSplitCoversAllWords(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta epsilon. ", 100))
	chunks := Split(text, DefaultConfig())
	require.NotEmpty(t, chunks)

	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		assert.Contains(t, joined, strings.TrimSuffix(word, "."), "word lost: %s", word)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("word ", 90) // ~450 chars
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

	chunks := Split(text, Config{
		MaxSize:    500,
		Overlap:    0,
		Separators: []string{"\n\n", "\n", ". ", " "},
	})

	require.GreaterOrEqual(t, len(chunks), 2)
	// The first cut happens at the paragraph break, not mid-paragraph.
	assert.Equal(t, strings.TrimSpace(para), chunks[0])
}

func TestSplitOversizedUnbreakableToken(t *testing.T) {
	token := strings.Repeat("x", 1200)
	text := "intro. " + token + " outro"
	cfg := Config{
		MaxSize:    800,
		Overlap:    100,
		Separators: []string{"\n\n", "\n", ". ", " "},
	}

	chunks := Split(text, cfg)
	require.NotEmpty(t, chunks)

	var sawOversized bool
	for _, c := range chunks {
		if len(c) > cfg.MaxSize {
			// Only an unbreakable token may exceed the limit, and it
			// must be exactly that token.
			assert.Contains(t, c, token)
			sawOversized = true
		}
	}
	assert.True(t, sawOversized, "expected the long token to form an oversized chunk")

	joined := strings.Join(chunks, " ")
	assert.Contains(t, joined, "intro")
	assert.Contains(t, joined, token)
	assert.Contains(t, joined, "outro")
}

func TestSplitNoEmptyChunks(t *testing.T) {
	text := strings.Repeat("one two three.   \n\n   ", 120)
	for _, c := range Split(text, DefaultConfig()) {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitZeroConfigUsesDefaults(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("Hello world. ", 80))
	chunks := Split(text, Config{})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 800)
	}
}
