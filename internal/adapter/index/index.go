// Package index holds the in-memory inverted index: postings, per-document
// term counts, document lengths and the document map.
//
// An Index is immutable once built or loaded. Accessors never create map
// entries and return copies of internal slices, so one Index can be shared
// by any number of goroutines without locking.
package index

import (
	"fmt"
	"sort"

	"kwsearch/internal/domain"
)

type Index struct {
	postings   map[string][]int
	termFreqs  map[int]map[string]int
	docLengths map[int]int
	docs       map[int]domain.Document

	totalLength int
}

// Parts is the exported form of an Index used by persistence.
type Parts struct {
	Documents  map[int]domain.Document
	Postings   map[string][]int
	TermFreqs  map[int]map[string]int
	DocLengths map[int]int
}

// Empty returns an index over zero documents.
func Empty() *Index {
	return &Index{
		postings:   map[string][]int{},
		termFreqs:  map[int]map[string]int{},
		docLengths: map[int]int{},
		docs:       map[int]domain.Document{},
	}
}

// FromParts validates p and builds an Index that owns a copy of it.
func FromParts(p Parts) (*Index, error) {
	idx := Empty()

	for id, doc := range p.Documents {
		if doc.ID != id {
			return nil, fmt.Errorf("document key %d holds id %d", id, doc.ID)
		}
		idx.docs[id] = doc
	}

	for id, length := range p.DocLengths {
		if _, ok := idx.docs[id]; !ok {
			return nil, fmt.Errorf("document length for unknown document %d", id)
		}
		if length < 0 {
			return nil, fmt.Errorf("negative length for document %d", id)
		}
		idx.docLengths[id] = length
		idx.totalLength += length
	}

	for id, tf := range p.TermFreqs {
		if _, ok := idx.docs[id]; !ok {
			return nil, fmt.Errorf("term frequencies for unknown document %d", id)
		}
		sum := 0
		counts := make(map[string]int, len(tf))
		for term, n := range tf {
			if n <= 0 {
				return nil, fmt.Errorf("non-positive count %d for term %q in document %d", n, term, id)
			}
			counts[term] = n
			sum += n
		}
		if sum != idx.docLengths[id] {
			return nil, fmt.Errorf("document %d has length %d but term counts sum to %d", id, idx.docLengths[id], sum)
		}
		idx.termFreqs[id] = counts
	}

	for id := range idx.docs {
		if _, ok := idx.docLengths[id]; !ok {
			return nil, fmt.Errorf("document %d has no length", id)
		}
		if _, ok := idx.termFreqs[id]; !ok {
			return nil, fmt.Errorf("document %d has no term frequencies", id)
		}
	}

	postingCount := 0
	for term, ids := range p.Postings {
		if len(ids) == 0 {
			return nil, fmt.Errorf("empty postings for term %q", term)
		}
		list := make([]int, len(ids))
		copy(list, ids)
		for i, id := range list {
			if i > 0 && list[i-1] >= id {
				return nil, fmt.Errorf("postings for term %q not strictly ascending", term)
			}
			if idx.termFreqs[id][term] == 0 {
				return nil, fmt.Errorf("term %q lists document %d without a count", term, id)
			}
		}
		idx.postings[term] = list
		postingCount += len(list)
	}

	termCount := 0
	for _, tf := range idx.termFreqs {
		termCount += len(tf)
	}
	if termCount != postingCount {
		return nil, fmt.Errorf("%d term counts but %d postings", termCount, postingCount)
	}

	return idx, nil
}

// Parts returns a deep copy of the index structures.
func (idx *Index) Parts() Parts {
	p := Parts{
		Documents:  make(map[int]domain.Document, len(idx.docs)),
		Postings:   make(map[string][]int, len(idx.postings)),
		TermFreqs:  make(map[int]map[string]int, len(idx.termFreqs)),
		DocLengths: make(map[int]int, len(idx.docLengths)),
	}
	for id, doc := range idx.docs {
		p.Documents[id] = doc
	}
	for term := range idx.postings {
		p.Postings[term] = idx.Postings(term)
	}
	for id, tf := range idx.termFreqs {
		counts := make(map[string]int, len(tf))
		for term, n := range tf {
			counts[term] = n
		}
		p.TermFreqs[id] = counts
	}
	for id, n := range idx.docLengths {
		p.DocLengths[id] = n
	}
	return p
}

// Postings returns the ascending ids of documents containing term.
func (idx *Index) Postings(term string) []int {
	ids := idx.postings[term]
	if len(ids) == 0 {
		return nil
	}
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

// DocFrequency is the number of documents containing term.
func (idx *Index) DocFrequency(term string) int {
	return len(idx.postings[term])
}

// TermFrequency returns the count of term in document id, 0 if either is
// unknown.
func (idx *Index) TermFrequency(id int, term string) int {
	tf, ok := idx.termFreqs[id]
	if !ok {
		return 0
	}
	return tf[term]
}

// DocLength returns the normalized token count of document id.
func (idx *Index) DocLength(id int) int {
	return idx.docLengths[id]
}

func (idx *Index) Document(id int) (domain.Document, bool) {
	doc, ok := idx.docs[id]
	return doc, ok
}

func (idx *Index) DocCount() int {
	return len(idx.docs)
}

func (idx *Index) TermCount() int {
	return len(idx.postings)
}

// AvgDocLength is the mean document length, 0 for an empty index.
func (idx *Index) AvgDocLength() float64 {
	if len(idx.docs) == 0 {
		return 0
	}
	return float64(idx.totalLength) / float64(len(idx.docs))
}

// DocIDs returns every document id in ascending order.
func (idx *Index) DocIDs() []int {
	ids := make([]int, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Documents returns every document ordered by id.
func (idx *Index) Documents() []domain.Document {
	ids := idx.DocIDs()
	docs := make([]domain.Document, len(ids))
	for i, id := range ids {
		docs[i] = idx.docs[id]
	}
	return docs
}

// Terms returns every indexed term in lexical order.
func (idx *Index) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
