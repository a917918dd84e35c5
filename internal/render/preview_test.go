package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestHighlightTerms(t *testing.T) {
	out := highlightTerms("why does this panic", "panic")
	assert.Equal(t, "why does this "+colorHit+"panic"+colorReset, out)

	// Case-insensitive, original casing kept.
	out = highlightTerms("Panic in the handler", "panic")
	assert.Equal(t, colorHit+"Panic"+colorReset+" in the handler", out)

	// Multiple occurrences and multiple terms.
	out = highlightTerms("retry retry", "retry")
	assert.Equal(t, 2, strings.Count(out, colorHit))
	out = highlightTerms("nil map write", "nil write")
	assert.Equal(t, 2, strings.Count(out, colorHit))

	// No match leaves the text alone.
	assert.Equal(t, "plain text", highlightTerms("plain text", "absent"))
}

func TestHighlightTermsFoldChangesByteLength(t *testing.T) {
	// U+023A lowercases to U+2C65, which is one byte longer; matching
	// must stay aligned to the original bytes.
	out := highlightTerms("Ⱥtest", "test")
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "Ⱥ"+colorHit+"test"+colorReset, out)

	out = highlightTerms("ȺȺȺ done", "done")
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, colorHit+"done"+colorReset)

	// Length-changing rune inside the term itself.
	out = highlightTerms("xⱥx marks", "XȺX")
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, colorHit+"xⱥx"+colorReset)
}

func TestHighlightTermsCJK(t *testing.T) {
	out := highlightTerms("修复数据库超时", "数据库")
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "修复"+colorHit+"数据库"+colorReset+"超时", out)
}

func TestWrapLineSkipsANSIWidth(t *testing.T) {
	line := colorUser + "USER" + colorReset + " hello"
	wrapped := wrapLine(line, 20)
	assert.Len(t, wrapped, 1)

	// Escape sequences take no display width, so a colored 10-char line
	// still fits in 10 columns.
	wrapped = wrapLine(colorDim+"0123456789"+colorReset, 10)
	assert.Len(t, wrapped, 1)

	wrapped = wrapLine("0123456789", 4)
	assert.Equal(t, []string{"0123", "4567", "89"}, wrapped)
}
