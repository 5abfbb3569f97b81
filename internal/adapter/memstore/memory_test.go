package memstore

import (
	"testing"

	"kwsearch/internal/port"
)

func TestMemoryVectorStore_ReplaceAndSearch(t *testing.T) {
	s := NewMemoryVectorStore()

	err := s.Replace("mock", []port.VectorItem{
		{ID: 2, Vector: []float32{0, 1}},
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 3, Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	results, err := s.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 1 || results[1].ID != 3 {
		t.Errorf("expected ids [1 3], got [%d %d]", results[0].ID, results[1].ID)
	}

	if model, _ := s.Model(); model != "mock" {
		t.Errorf("expected model mock, got %q", model)
	}
}

func TestMemoryVectorStore_ReplaceIsAllOrNothing(t *testing.T) {
	s := NewMemoryVectorStore()
	if err := s.Replace("a", []port.VectorItem{{ID: 1, Vector: []float32{1, 1}}}); err != nil {
		t.Fatal(err)
	}

	err := s.Replace("b", []port.VectorItem{
		{ID: 1, Vector: []float32{1, 1}},
		{ID: 2, Vector: []float32{1}},
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}

	if count, _ := s.Count(); count != 1 {
		t.Errorf("expected previous vectors to survive, count = %d", count)
	}
	if model, _ := s.Model(); model != "a" {
		t.Errorf("expected previous model to survive, got %q", model)
	}
}

func TestMemoryVectorStore_QueryDimension(t *testing.T) {
	s := NewMemoryVectorStore()
	if err := s.Replace("a", []port.VectorItem{{ID: 1, Vector: []float32{1, 1}}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Search([]float32{1}, 1); err == nil {
		t.Error("expected dimension mismatch error")
	}

	empty := NewMemoryVectorStore()
	results, err := empty.Search([]float32{1}, 5)
	if err != nil || len(results) != 0 {
		t.Errorf("expected no results and no error on empty store, got %v, %v", results, err)
	}
}
