package retriever

import (
	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

// MMRReranker reorders results with Maximal Marginal Relevance so that
// near-duplicate documents do not crowd the top of the list.
type MMRReranker struct {
	tokenizer    port.Tokenizer
	lambda       float64
	dedupJaccard float64
}

func NewMMRReranker(tokenizer port.Tokenizer, lambda, dedupJaccard float64) *MMRReranker {
	return &MMRReranker{
		tokenizer:    tokenizer,
		lambda:       lambda,
		dedupJaccard: dedupJaccard,
	}
}

// Rerank picks up to k candidates.
// MMR(d) = lambda * relevance(d) - (1-lambda) * max_similarity(d, selected)
// Candidates whose similarity to a selected document exceeds the dedup
// threshold are dropped.
func (r *MMRReranker) Rerank(candidates []domain.ScoredDocument, k int) []domain.ScoredDocument {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	maxScore := candidates[0].Score
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	type candidate struct {
		doc    domain.ScoredDocument
		tokens []string
	}
	remaining := make([]candidate, len(candidates))
	for i, c := range candidates {
		remaining[i] = candidate{doc: c, tokens: r.tokenizer.Tokenize(c.Text())}
	}

	selected := make([]candidate, 0, k)
	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestMMR := -1e9

		for i, c := range remaining {
			relevance := c.doc.Score / maxScore

			maxSim := 0.0
			for _, sel := range selected {
				if sim := jaccardSimilarity(c.tokens, sel.tokens); sim > maxSim {
					maxSim = sim
				}
			}
			if maxSim > r.dedupJaccard {
				continue
			}

			if mmr := r.lambda*relevance - (1-r.lambda)*maxSim; mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		// everything left is a near duplicate
		if bestIdx == -1 {
			break
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]domain.ScoredDocument, len(selected))
	for i, c := range selected {
		out[i] = c.doc
	}
	return out
}

// jaccardSimilarity compares a and b as sets. Two empty sets are identical.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		if len(a) == len(b) {
			return 1
		}
		return 0
	}

	seen := make(map[string]uint8, len(a)+len(b))
	for _, t := range a {
		seen[t] |= 1
	}
	for _, t := range b {
		seen[t] |= 2
	}

	shared := 0
	for _, mask := range seen {
		if mask == 3 {
			shared++
		}
	}
	return float64(shared) / float64(len(seen))
}

func JaccardSimilarity(a, b []string) float64 {
	return jaccardSimilarity(a, b)
}
