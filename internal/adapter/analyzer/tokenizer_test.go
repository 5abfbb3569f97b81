package analyzer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var testStopwords = []string{"a", "who", "in", "the", "about", "are"}

func TestTokenizer_Tokenize_WithStemming(t *testing.T) {
	tok := NewTokenizer(NewPorterStemmer(), testStopwords)

	tokens := tok.Tokenize("running dogs are playing")
	if len(tokens) != 3 {
		t.Errorf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}

	hasRun := false
	for _, token := range tokens {
		if token == "run" {
			hasRun = true
		}
	}
	if !hasRun {
		t.Errorf("expected 'running' to be stemmed to 'run', got %v", tokens)
	}
}

func TestTokenizer_Tokenize_WithoutStemming(t *testing.T) {
	tok := NewTokenizer(nil, testStopwords)

	tokens := tok.Tokenize("running dogs are playing")
	want := []string{"running", "dogs", "playing"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(nil, testStopwords)

	tokens := tok.Tokenize("The quick brown fox")
	for _, token := range tokens {
		if token == "the" {
			t.Errorf("stopword 'the' should be removed, got %v", tokens)
		}
	}
}

func TestTokenizer_StopwordsMatchedBeforeStemming(t *testing.T) {
	// "bears" stems to "bear"; a stopword "bear" must not remove it since
	// stopwords are compared against the raw token.
	tok := NewTokenizer(NewPorterStemmer(), []string{"bear"})

	tokens := tok.Tokenize("bears bear")
	want := []string{"bear"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_StripsPunctuationWithoutSplitting(t *testing.T) {
	tok := NewTokenizer(nil, nil)

	tests := []struct {
		input string
		want  []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"hello-world", []string{"helloworld"}},
		{"snake_case_name", []string{"snakecasename"}},
		{"it's (really) \"quoted\"", []string{"its", "really", "quoted"}},
		{"  spaced\tout\nlines  ", []string{"spaced", "out", "lines"}},
		{"... --- !!!", []string{}},
		{"café", []string{"café"}},
	}

	for _, tt := range tests {
		got := tok.Tokenize(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTokenizer_KeepsDuplicates(t *testing.T) {
	tok := NewTokenizer(NewPorterStemmer(), testStopwords)

	tokens := tok.Tokenize("Bears: a story about bears in the woods")
	want := []string{"bear", "stori", "bear", "wood"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer(NewPorterStemmer(), testStopwords)

	tokens := tok.Tokenize("")
	if len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}
}

func TestTokenizer_Fingerprint(t *testing.T) {
	a := NewTokenizer(NewPorterStemmer(), []string{"a", "the"})
	b := NewTokenizer(NewPorterStemmer(), []string{"the", "a", ""})
	c := NewTokenizer(SnowballStemmer{}, []string{"a", "the"})
	d := NewTokenizer(NewPorterStemmer(), []string{"a"})

	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("stopword order should not change fingerprint: %s != %s", a.Fingerprint(), b.Fingerprint())
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different stemmers should produce different fingerprints")
	}
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("different stopword sets should produce different fingerprints")
	}
}

func TestNewStemmer(t *testing.T) {
	tests := []struct {
		name    string
		word    string
		want    string
		wantErr bool
	}{
		{StemmerPorter, "cars", "car", false},
		{"", "bears", "bear", false},
		{StemmerSnowball, "running", "run", false},
		{StemmerNone, "running", "running", false},
		{"lancaster", "", "", true},
	}

	for _, tt := range tests {
		s, err := NewStemmer(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewStemmer(%q): expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewStemmer(%q): %v", tt.name, err)
		}
		if got := s.Stem(tt.word); got != tt.want {
			t.Errorf("%s.Stem(%q) = %q, want %q", tt.name, tt.word, got, tt.want)
		}
	}
}

func TestLoadStopwords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	if err := os.WriteFile(path, []byte("a\nthe\n\n  in \n"), 0644); err != nil {
		t.Fatal(err)
	}

	words, err := LoadStopwords(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "the", "in"}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("expected %v, got %v", want, words)
	}

	if _, err := LoadStopwords(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing stopwords file")
	}
}
