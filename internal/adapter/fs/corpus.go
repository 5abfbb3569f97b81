package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/tidwall/jsonc"

	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

const DefaultCorpusKey = "movies"

// CorpusLoader reads documents from one or more JSON files. Each file holds
// either an object with the document list under key or a bare array.
// Comments and trailing commas are accepted.
type CorpusLoader struct {
	pattern  string
	key      string
	excludes []string
}

var _ port.CorpusLoader = (*CorpusLoader)(nil)

func NewCorpusLoader(pattern, key string, excludes []string) *CorpusLoader {
	if key == "" {
		key = DefaultCorpusKey
	}
	return &CorpusLoader{pattern: pattern, key: key, excludes: excludes}
}

// Load concatenates the documents of every matching file in path order.
func (l *CorpusLoader) Load() ([]domain.Document, error) {
	paths, err := Expand(l.pattern, l.excludes)
	if err != nil {
		return nil, fmt.Errorf("expand corpus pattern %q: %w", l.pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no corpus files match %q", l.pattern)
	}

	var docs []domain.Document
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read corpus: %w", err)
		}
		fileDocs, err := ParseCorpus(data, l.key)
		if err != nil {
			return nil, fmt.Errorf("parse corpus %s: %w", path, err)
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

// ParseCorpus decodes one corpus file. Fields other than id, title and
// description are kept verbatim in Document.Extra.
func ParseCorpus(data []byte, key string) ([]domain.Document, error) {
	data = bytes.TrimSpace(jsonc.ToJSON(data))

	var records []map[string]json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	} else {
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return nil, err
		}
		list, ok := top[key]
		if !ok {
			return nil, fmt.Errorf("missing %q list", key)
		}
		if err := json.Unmarshal(list, &records); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
	}

	docs := make([]domain.Document, 0, len(records))
	for i, rec := range records {
		doc, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func parseRecord(rec map[string]json.RawMessage) (domain.Document, error) {
	var doc domain.Document

	rawID, ok := rec["id"]
	if !ok {
		return doc, fmt.Errorf("missing id")
	}
	var id float64
	if err := json.Unmarshal(rawID, &id); err != nil {
		return doc, fmt.Errorf("id: %w", err)
	}
	if id != math.Trunc(id) || math.Abs(id) > 1<<53 {
		return doc, fmt.Errorf("id %v is not an integer", id)
	}
	doc.ID = int(id)

	if raw, ok := rec["title"]; ok {
		if err := json.Unmarshal(raw, &doc.Title); err != nil {
			return doc, fmt.Errorf("title: %w", err)
		}
	}
	if raw, ok := rec["description"]; ok {
		if err := json.Unmarshal(raw, &doc.Description); err != nil {
			return doc, fmt.Errorf("description: %w", err)
		}
	}

	for k, v := range rec {
		switch k {
		case "id", "title", "description":
			continue
		}
		if doc.Extra == nil {
			doc.Extra = make(map[string]json.RawMessage)
		}
		doc.Extra[k] = append(json.RawMessage(nil), v...)
	}
	return doc, nil
}
