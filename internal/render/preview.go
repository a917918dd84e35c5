package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/gupsammy/Claudest/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorUser   = "\033[1;34m"
	colorAssist = "\033[1;32m"
	colorDim    = "\033[2m"
	colorHit    = "\033[1;31m"
)

// PreviewOptions controls the ANSI conversation rendering used by the
// interactive browser.
type PreviewOptions struct {
	Width int    // wrap width, 0 = no wrap
	Query string // terms to highlight
}

// Conversation renders a session's messages as a colored transcript.
func Conversation(sess store.Session, opts PreviewOptions) string {
	var b strings.Builder
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
		}
	}

	writeLine(fmt.Sprintf("%s--- %s [%s] %s ---%s",
		colorDim, shortUUID(sess.UUID), sess.Project, formatTime(sess.StartedAt), colorReset))

	if len(sess.Messages) == 0 {
		writeLine("(empty session)")
		return b.String()
	}

	for i, m := range sess.Messages {
		if i > 0 {
			writeLine(colorDim + "--------------------------------------------------" + colorReset)
		}

		roleColor, roleName := colorAssist, "ASST"
		if m.Role == "user" {
			roleColor, roleName = colorUser, "USER"
		}
		ts := ""
		if !m.Timestamp.IsZero() {
			ts = m.Timestamp.Format("2006-01-02 15:04")
		}
		writeLine(fmt.Sprintf("%s%s >%s %s%s%s", roleColor, roleName, colorReset, colorDim, ts, colorReset))

		text := highlightTerms(m.Content, opts.Query)
		for _, tl := range strings.Split(text, "\n") {
			writeLine("  " + tl)
		}
		writeLine("")
	}
	return b.String()
}

// highlightTerms wraps case-insensitive occurrences of the query terms
// in bold red. Matching is rune-aligned: case folding can change UTF-8
// byte lengths, so byte offsets into a lowered copy are never safe
// against the original string.
func highlightTerms(text, query string) string {
	for _, term := range strings.Fields(query) {
		termRunes := utf8.RuneCountInString(term)
		if termRunes == 0 {
			continue
		}

		var b strings.Builder
		i := 0
		for i < len(text) {
			if n := foldMatchLen(text[i:], term, termRunes); n > 0 {
				b.WriteString(colorHit)
				b.WriteString(text[i : i+n])
				b.WriteString(colorReset)
				i += n
				continue
			}
			_, size := utf8.DecodeRuneInString(text[i:])
			b.WriteString(text[i : i+size])
			i += size
		}
		text = b.String()
	}
	return text
}

// foldMatchLen reports the byte length of a case-insensitive match of
// term at the start of s, or 0 when it does not match there.
func foldMatchLen(s, term string, termRunes int) int {
	n := 0
	for j := 0; j < termRunes; j++ {
		if n >= len(s) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(s[n:])
		n += size
	}
	if strings.EqualFold(s[:n], term) {
		return n
	}
	return 0
}

// wrapLine breaks one line into display-width-bounded lines, skipping
// ANSI escape sequences when measuring.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)
		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}
		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}
	if len(result) == 0 {
		return []string{""}
	}
	return result
}
