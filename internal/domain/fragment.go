package domain

import "regexp"

// tokenRegex matches a token: alphanumeric start followed by at least one
// alphanumeric, hyphen, or underscore. Single characters never match.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9][a-zA-Z0-9_\-]+`)

// Fragment is the unit of retrieval: a bounded slice of one page's extracted
// text plus its precomputed token set (immutable after creation).
type Fragment struct {
	documentID string
	title      string
	page       int
	text       string
	tokens     map[string]struct{}
}

// NewFragment creates a Fragment and derives its token set from text.
func NewFragment(documentID, title string, page int, text string) Fragment {
	tokens := make(map[string]struct{})
	for _, t := range Tokenize(text) {
		tokens[t] = struct{}{}
	}
	return Fragment{
		documentID: documentID,
		title:      title,
		page:       page,
		text:       text,
		tokens:     tokens,
	}
}

// DocumentID returns the owning document's resolved identifier.
func (f *Fragment) DocumentID() string { return f.documentID }

// Title returns the document display name.
func (f *Fragment) Title() string { return f.title }

// Page returns the 1-based page number.
func (f *Fragment) Page() int { return f.page }

// Text returns the fragment text.
func (f *Fragment) Text() string { return f.text }

// HasToken reports whether the fragment's token set contains t.
func (f *Fragment) HasToken(t string) bool {
	_, ok := f.tokens[t]
	return ok
}

// TokenCount returns the number of distinct tokens in the fragment.
func (f *Fragment) TokenCount() int { return len(f.tokens) }

// Tokenize splits text into lowercased tokens. A token is a maximal run of
// alphanumerics plus hyphen/underscore, at least two characters long.
func Tokenize(text string) []string {
	matches := tokenRegex.FindAllString(text, -1)
	tokens := make([]string, len(matches))
	for i, m := range matches {
		tokens[i] = lower(m)
	}
	return tokens
}

// lower is an ASCII-only lowercase; the token regex only admits ASCII.
func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
