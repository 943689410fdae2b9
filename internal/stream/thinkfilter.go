// Package stream provides the streaming filter that strips hidden-reasoning
// markup (<think>...</think> and <thinking>...</thinking>) from an
// incrementally delivered token stream. Correctness does not depend on where
// the input is split: markers broken across Feed calls are still recognized.
package stream

import "strings"

// closeTailMax bounds the buffer retained while inside a tag, so a close
// marker split across chunks is still found without holding the whole span.
const closeTailMax = 64

// Filter is a single-pass stateful transducer. One instance serves exactly
// one token stream; it is not safe for concurrent use.
type Filter struct {
	buf    string
	inside string // "" when outside, otherwise "think" or "thinking"
}

// NewFilter creates a filter in the outside state.
func NewFilter() *Filter {
	return &Filter{}
}

// Feed appends chunk to the internal buffer and returns all text that is
// known to lie outside any reasoning span. Text that could still belong to a
// partially received marker is held back until a later Feed or Flush decides.
func (f *Filter) Feed(chunk string) string {
	if chunk == "" {
		return ""
	}

	buf := f.buf + chunk
	f.buf = ""

	var out strings.Builder
	for buf != "" {
		if f.inside != "" {
			closeTag := "</" + f.inside + ">"
			end := strings.Index(buf, closeTag)
			if end == -1 {
				if len(buf) > closeTailMax {
					buf = buf[len(buf)-closeTailMax:]
				}
				f.buf = buf
				return out.String()
			}
			buf = buf[end+len(closeTag):]
			f.inside = ""
			continue
		}

		start, name, markerLen := findOpen(buf)
		if start == -1 {
			// Hold back a tail that may be the start of a marker split
			// across chunks; emit everything before it.
			keep := partialOpenLen(buf)
			out.WriteString(buf[:len(buf)-keep])
			f.buf = buf[len(buf)-keep:]
			return out.String()
		}
		out.WriteString(buf[:start])
		buf = buf[start+markerLen:]
		f.inside = name
	}

	return out.String()
}

// Flush terminates the stream. Outside a tag it emits whatever is buffered;
// inside a tag the remainder is an unterminated reasoning span and is
// discarded rather than leaked.
func (f *Filter) Flush() string {
	out := f.buf
	f.buf = ""
	if f.inside != "" {
		return ""
	}
	return out
}

// findOpen locates the earliest complete open marker in s. The earlier
// offset wins; <think> is checked first, which decides exact ties.
func findOpen(s string) (start int, name string, markerLen int) {
	i1 := strings.Index(s, "<think>")
	i2 := strings.Index(s, "<thinking>")
	if i1 == -1 && i2 == -1 {
		return -1, "", 0
	}
	if i2 == -1 || (i1 != -1 && i1 < i2) {
		return i1, "think", len("<think>")
	}
	return i2, "thinking", len("<thinking>")
}

// partialOpenLen returns the length of the longest suffix of s that is a
// proper prefix of an open marker. Every proper prefix of "<think>" is also
// a prefix of "<thinking>", so checking the latter covers both.
func partialOpenLen(s string) int {
	const marker = "<thinking>"
	max := len(marker) - 1
	if len(s) < max {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return n
		}
	}
	return 0
}
