package index

import (
	"fmt"
	"sort"

	"kwsearch/internal/domain"
)

// Tokenizer is the part of the analyzer the builder needs.
type Tokenizer interface {
	Tokenize(text string) []string
}

// ProgressFunc is called after each document is indexed.
type ProgressFunc func(done, total int)

// Builder scans a whole corpus into a fresh Index.
type Builder struct {
	tokenizer Tokenizer
	progress  ProgressFunc
}

func NewBuilder(tokenizer Tokenizer) *Builder {
	return &Builder{tokenizer: tokenizer}
}

// WithProgress sets a callback invoked once per document.
func (b *Builder) WithProgress(fn ProgressFunc) *Builder {
	b.progress = fn
	return b
}

// Build indexes docs. The result depends only on docs and the tokenizer,
// so building the same corpus twice produces identical parts.
func (b *Builder) Build(docs []domain.Document) (*Index, error) {
	idx := Empty()
	postingSets := make(map[string]map[int]struct{})

	for i, doc := range docs {
		if _, exists := idx.docs[doc.ID]; exists {
			return nil, fmt.Errorf("%w: %d", domain.ErrDuplicateDocument, doc.ID)
		}

		tokens := b.tokenizer.Tokenize(doc.Text())

		tf := make(map[string]int)
		for _, token := range tokens {
			tf[token]++
		}
		for term := range tf {
			set, ok := postingSets[term]
			if !ok {
				set = make(map[int]struct{})
				postingSets[term] = set
			}
			set[doc.ID] = struct{}{}
		}

		idx.docs[doc.ID] = doc
		idx.termFreqs[doc.ID] = tf
		idx.docLengths[doc.ID] = len(tokens)
		idx.totalLength += len(tokens)

		if b.progress != nil {
			b.progress(i+1, len(docs))
		}
	}

	for term, set := range postingSets {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		idx.postings[term] = ids
	}

	return idx, nil
}
