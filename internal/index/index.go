// Package index holds the in-memory retrieval index: all fragments of all
// uploaded documents, scored by query-token overlap, with a recency fallback
// for queries that match nothing.
package index

import (
	"sort"
	"sync"

	"github.com/kailas-cloud/docstream/internal/domain"
)

// Index is the shared retrieval index. It is mutated only by upload workers
// and read by generation workers; an RWMutex lets readers run concurrently
// with each other but never with a writer. There is no delete or eviction:
// fragments live until the process exits.
type Index struct {
	mu          sync.RWMutex
	fragments   []domain.Fragment
	uploadOrder []string // document IDs, most recent last, no duplicates
}

// New creates an empty index.
func New() *Index {
	return &Index{}
}

// Upsert atomically replaces all fragments of documentID with the given set
// and moves documentID to the end of the recency ledger.
func (ix *Index) Upsert(documentID string, fragments []domain.Fragment) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.fragments[:0]
	for _, f := range ix.fragments {
		if f.DocumentID() != documentID {
			kept = append(kept, f)
		}
	}
	ix.fragments = append(kept, fragments...)

	order := ix.uploadOrder[:0]
	for _, id := range ix.uploadOrder {
		if id != documentID {
			order = append(order, id)
		}
	}
	ix.uploadOrder = append(order, documentID)
}

// Search tokenizes query and returns up to topK fragments ranked by the
// number of query tokens present in each fragment's token set, highest
// first. Fragments matching no query token are excluded; an empty query or
// empty index returns nil.
func (ix *Index) Search(query string, topK int) []domain.Fragment {
	qTokens := domain.Tokenize(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(qTokens) == 0 || len(ix.fragments) == 0 {
		return nil
	}

	type scored struct {
		score    int
		fragment domain.Fragment
	}
	var hits []scored
	for _, f := range ix.fragments {
		s := 0
		for _, t := range qTokens {
			if f.HasToken(t) {
				s++
			}
		}
		if s > 0 {
			hits = append(hits, scored{score: s, fragment: f})
		}
	}

	if len(hits) == 0 {
		return nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]domain.Fragment, len(hits))
	for i, h := range hits {
		out[i] = h.fragment
	}
	return out
}

// FallbackRecent returns up to topK fragments of the most recently upserted
// document, ordered by page ascending then text length ascending. Callers use
// it only when Search returned nothing; the two result sets are never mixed.
func (ix *Index) FallbackRecent(topK int) []domain.Fragment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.uploadOrder) == 0 {
		return nil
	}
	recent := ix.uploadOrder[len(ix.uploadOrder)-1]

	var out []domain.Fragment
	for _, f := range ix.fragments {
		if f.DocumentID() == recent {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page() != out[j].Page() {
			return out[i].Page() < out[j].Page()
		}
		return len(out[i].Text()) < len(out[j].Text())
	})

	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
