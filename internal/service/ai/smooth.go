package ai

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// wordChunker regroups arbitrary model chunks into word-sized deltas so the
// client stream reads evenly regardless of provider chunking.
type wordChunker struct {
	emit func(string) error
	buf  strings.Builder
}

func newWordChunker(emit func(string) error) *wordChunker {
	return &wordChunker{emit: emit}
}

// Write buffers text and emits every completed word together with its
// trailing whitespace. The trailing partial word stays buffered.
func (c *wordChunker) Write(text string) error {
	if text == "" {
		return nil
	}
	c.buf.WriteString(text)
	s := c.buf.String()

	idx := strings.LastIndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return nil
	}
	_, size := utf8.DecodeRuneInString(s[idx:])
	ready, rest := s[:idx+size], s[idx+size:]

	c.buf.Reset()
	c.buf.WriteString(rest)

	for _, word := range splitWords(ready) {
		if err := c.emitDelta(word); err != nil {
			return err
		}
	}
	return nil
}

// Flush emits whatever is still buffered.
func (c *wordChunker) Flush() error {
	rest := c.buf.String()
	c.buf.Reset()
	if rest == "" {
		return nil
	}
	return c.emitDelta(rest)
}

func (c *wordChunker) emitDelta(s string) error {
	if c.emit == nil {
		return nil
	}
	return c.emit(s)
}

// splitWords slices s into units of one word plus its trailing whitespace.
// Leading whitespace attaches to the first unit.
func splitWords(s string) []string {
	var (
		out     []string
		start   int
		inSpace bool
	)
	for i, r := range s {
		space := unicode.IsSpace(r)
		if inSpace && !space {
			out = append(out, s[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
