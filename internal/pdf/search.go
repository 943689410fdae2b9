package pdf

import "strings"

// snippetContext is how many characters of surrounding text a hit carries on
// each side of the match.
const snippetContext = 80

// Hit is one substring match within a document.
type Hit struct {
	Page    int    `json:"page"`
	Snippet string `json:"snippet"`
}

// SearchPages scans extracted pages for the first case-insensitive occurrence
// of query on each page and returns a snippet around each hit. Pages are
// visited in ascending order; empty pages and an empty query match nothing.
func SearchPages(pages map[int]string, query string) []Hit {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)

	maxPage := 0
	for p := range pages {
		if p > maxPage {
			maxPage = p
		}
	}

	var hits []Hit
	for p := 1; p <= maxPage; p++ {
		text, ok := pages[p]
		if !ok || text == "" {
			continue
		}
		idx := strings.Index(strings.ToLower(text), q)
		if idx == -1 {
			continue
		}
		start := idx - snippetContext
		if start < 0 {
			start = 0
		}
		end := idx + len(query) + snippetContext
		if end > len(text) {
			end = len(text)
		}
		snippet := strings.ReplaceAll(text[start:end], "\n", " ")
		hits = append(hits, Hit{Page: p, Snippet: snippet})
	}
	return hits
}
