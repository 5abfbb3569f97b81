package index

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kwsearch/internal/adapter/analyzer"
	"kwsearch/internal/domain"
)

func testTokenizer() *analyzer.Tokenizer {
	return analyzer.NewTokenizer(analyzer.NewPorterStemmer(), []string{"a", "who", "in", "the", "about"})
}

func movieCorpus() []domain.Document {
	return []domain.Document{
		{ID: 1, Title: "Brave", Description: "A girl who defies a custom"},
		{ID: 2, Title: "Bears", Description: "A story about bears in the woods",
			Extra: map[string]json.RawMessage{"year": json.RawMessage(`2014`)}},
		{ID: 3, Title: "Cars", Description: "Race cars compete"},
	}
}

func TestBuild_Structures(t *testing.T) {
	idx, err := NewBuilder(testTokenizer()).Build(movieCorpus())
	require.NoError(t, err)

	assert.Equal(t, 3, idx.DocCount())
	assert.Equal(t, []int{2}, idx.Postings("bear"))
	assert.Equal(t, []int{3}, idx.Postings("car"))
	assert.Equal(t, 2, idx.TermFrequency(2, "bear"))
	assert.Equal(t, 1, idx.TermFrequency(2, "wood"))

	assert.Equal(t, 4, idx.DocLength(1)) // brave girl defi custom
	assert.Equal(t, 4, idx.DocLength(2)) // bear stori bear wood
	assert.Equal(t, 4, idx.DocLength(3)) // car race car compet
	assert.InDelta(t, 4.0, idx.AvgDocLength(), 1e-12)

	doc, ok := idx.Document(2)
	require.True(t, ok)
	assert.Equal(t, "Bears", doc.Title)
	assert.JSONEq(t, `2014`, string(doc.Extra["year"]))
}

func TestBuild_LengthEqualsSumOfCounts(t *testing.T) {
	idx, err := NewBuilder(testTokenizer()).Build(movieCorpus())
	require.NoError(t, err)

	p := idx.Parts()
	for id, tf := range p.TermFreqs {
		sum := 0
		for term, n := range tf {
			sum += n
			assert.Contains(t, p.Postings[term], id)
		}
		assert.Equal(t, p.DocLengths[id], sum, "document %d", id)
	}
}

func TestBuild_BlankDocument(t *testing.T) {
	docs := []domain.Document{
		{ID: 7, Title: "", Description: "   "},
		{ID: 8, Title: "The", Description: "a"},
	}
	idx, err := NewBuilder(testTokenizer()).Build(docs)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.DocCount())
	assert.Equal(t, 0, idx.DocLength(7))
	assert.Equal(t, 0, idx.DocLength(8))
	assert.Equal(t, 0, idx.TermCount())
	assert.Zero(t, idx.AvgDocLength())
}

func TestBuild_EmptyCorpus(t *testing.T) {
	idx, err := NewBuilder(testTokenizer()).Build(nil)
	require.NoError(t, err)

	assert.Equal(t, 0, idx.DocCount())
	assert.Zero(t, idx.AvgDocLength())
	assert.Empty(t, idx.DocIDs())
}

func TestBuild_DuplicateID(t *testing.T) {
	docs := []domain.Document{
		{ID: 1, Title: "one"},
		{ID: 1, Title: "uno"},
	}
	_, err := NewBuilder(testTokenizer()).Build(docs)
	require.ErrorIs(t, err, domain.ErrDuplicateDocument)
}

func TestBuild_Idempotent(t *testing.T) {
	first, err := NewBuilder(testTokenizer()).Build(movieCorpus())
	require.NoError(t, err)
	second, err := NewBuilder(testTokenizer()).Build(movieCorpus())
	require.NoError(t, err)

	assert.Equal(t, first.Parts(), second.Parts())
}

func TestBuild_Progress(t *testing.T) {
	var calls [][2]int
	_, err := NewBuilder(testTokenizer()).
		WithProgress(func(done, total int) { calls = append(calls, [2]int{done, total}) }).
		Build(movieCorpus())
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestReadsDoNotAutovivify(t *testing.T) {
	idx, err := NewBuilder(testTokenizer()).Build(movieCorpus())
	require.NoError(t, err)
	before := idx.Parts()

	assert.Nil(t, idx.Postings("zebra"))
	assert.Zero(t, idx.DocFrequency("zebra"))
	assert.Zero(t, idx.TermFrequency(99, "bear"))
	assert.Zero(t, idx.TermFrequency(1, "zebra"))
	assert.Zero(t, idx.DocLength(99))
	_, ok := idx.Document(99)
	assert.False(t, ok)

	assert.Equal(t, before, idx.Parts())
}

func TestPostingsReturnsCopy(t *testing.T) {
	idx, err := NewBuilder(testTokenizer()).Build(movieCorpus())
	require.NoError(t, err)

	ids := idx.Postings("bear")
	ids[0] = 42
	assert.Equal(t, []int{2}, idx.Postings("bear"))
}

func TestFromParts_RoundTrip(t *testing.T) {
	idx, err := NewBuilder(testTokenizer()).Build(movieCorpus())
	require.NoError(t, err)

	restored, err := FromParts(idx.Parts())
	require.NoError(t, err)
	assert.Equal(t, idx.Parts(), restored.Parts())
	assert.Equal(t, idx.AvgDocLength(), restored.AvgDocLength())
}

func TestFromParts_RejectsInconsistentState(t *testing.T) {
	valid := func() Parts {
		idx, err := NewBuilder(testTokenizer()).Build(movieCorpus())
		require.NoError(t, err)
		return idx.Parts()
	}

	tests := []struct {
		name   string
		mutate func(p *Parts)
	}{
		{"posting for unknown document", func(p *Parts) { p.Postings["bear"] = []int{2, 9} }},
		{"posting without count", func(p *Parts) { p.Postings["bear"] = []int{1, 2} }},
		{"unsorted postings", func(p *Parts) {
			p.Postings["zzz"] = []int{3, 1}
			p.TermFreqs[1]["zzz"] = 1
			p.TermFreqs[3]["zzz"] = 1
			p.DocLengths[1]++
			p.DocLengths[3]++
		}},
		{"count without posting", func(p *Parts) {
			p.TermFreqs[1]["bear"] = 1
			p.DocLengths[1]++
		}},
		{"length mismatch", func(p *Parts) { p.DocLengths[1] = 10 }},
		{"missing length", func(p *Parts) { delete(p.DocLengths, 3) }},
		{"missing term frequencies", func(p *Parts) { delete(p.TermFreqs, 3) }},
		{"missing document", func(p *Parts) { delete(p.Documents, 1) }},
		{"document key mismatch", func(p *Parts) {
			doc := p.Documents[1]
			doc.ID = 5
			p.Documents[1] = doc
		}},
		{"empty postings", func(p *Parts) { p.Postings["ghost"] = []int{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			_, err := FromParts(p)
			assert.Error(t, err)
		})
	}
}
