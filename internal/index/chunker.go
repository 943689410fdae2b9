package index

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/docstream/internal/domain"
)

// BuildPageFragments slides a window of chunkSize characters over each page's
// text with step chunkSize-overlap and produces fragments in deterministic
// order: ascending page number, then window order within the page.
// chunkSize is clamped to at least 200 and overlap to [0, chunkSize-1].
// Empty windows are dropped, so a page with no extractable text yields no
// fragments rather than an error.
func BuildPageFragments(
	documentID, title string, pages map[int]string, chunkSize, overlap int,
) []domain.Fragment {
	if chunkSize < 200 {
		chunkSize = 200
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > chunkSize-1 {
		overlap = chunkSize - 1
	}

	pageNums := make([]int, 0, len(pages))
	for p := range pages {
		pageNums = append(pageNums, p)
	}
	sort.Ints(pageNums)

	var fragments []domain.Fragment
	for _, page := range pageNums {
		for _, text := range chunkText(pages[page], chunkSize, overlap) {
			fragments = append(fragments, domain.NewFragment(documentID, title, page, flatten(text)))
		}
	}
	return fragments
}

// chunkText cuts text into trimmed windows. The loop stops once a window
// reaches end-of-text; no trailing overlap-only window is emitted.
func chunkText(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	i := 0
	n := len(text)
	for i < n {
		end := i + chunkSize
		if end > n {
			end = n
		}
		chunk := strings.TrimSpace(text[i:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == n {
			break
		}
		i = end - overlap
	}
	return chunks
}

// flatten normalizes newlines to spaces and trims the result.
func flatten(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
