package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"kwsearch/internal/adapter/codec"
	"kwsearch/internal/adapter/index"
	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

var (
	bucketMeta       = []byte("meta")
	bucketDocs       = []byte("docs")
	bucketPostings   = []byte("postings")
	bucketTermFreqs  = []byte("term_freqs")
	bucketDocLengths = []byte("doc_lengths")
)

var indexBuckets = [][]byte{bucketMeta, bucketDocs, bucketPostings, bucketTermFreqs, bucketDocLengths}

// BoltStore persists a whole index snapshot into one bbolt file.
//
// Save writes into <path>.tmp inside a single transaction and renames the
// result over <path>, so readers only ever see a complete old file or a
// complete new one.
type BoltStore struct {
	path string
}

var _ port.IndexStore = (*BoltStore)(nil)

func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

func (s *BoltStore) Path() string {
	return s.path
}

// Exists reports whether a persisted index is present.
func (s *BoltStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

type docRecord struct {
	ID          int               `cbor:"id"`
	Title       string            `cbor:"title"`
	Description string            `cbor:"description"`
	Extra       map[string][]byte `cbor:"extra,omitempty"`
}

func toDocRecord(doc domain.Document) docRecord {
	rec := docRecord{ID: doc.ID, Title: doc.Title, Description: doc.Description}
	if len(doc.Extra) > 0 {
		rec.Extra = make(map[string][]byte, len(doc.Extra))
		for k, v := range doc.Extra {
			rec.Extra[k] = []byte(v)
		}
	}
	return rec
}

func (r docRecord) document() domain.Document {
	doc := domain.Document{ID: r.ID, Title: r.Title, Description: r.Description}
	if len(r.Extra) > 0 {
		doc.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			doc.Extra[k] = json.RawMessage(v)
		}
	}
	return doc
}

// idKey encodes a document id so that bbolt's byte ordering matches
// numeric ordering, negative ids included.
func idKey(id int) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(int64(id))^(1<<63))
	return key[:]
}

func parseIDKey(key []byte) (int, error) {
	if len(key) != 8 {
		return 0, fmt.Errorf("invalid document key length %d", len(key))
	}
	return int(int64(binary.BigEndian.Uint64(key) ^ (1 << 63))), nil
}

// Save replaces the persisted index with idx.
func (s *BoltStore) Save(idx *index.Index, meta port.IndexMeta) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale staging file: %w", err)
	}

	db, err := bbolt.Open(tmp, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		return writeIndex(tx, idx, meta)
	})
	if closeErr := db.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write index: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish index: %w", err)
	}
	return nil
}

func writeIndex(tx *bbolt.Tx, idx *index.Index, meta port.IndexMeta) error {
	for _, name := range indexBuckets {
		if _, err := tx.CreateBucket(name); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
	}

	info := SchemaInfo{
		Version:   CurrentSchemaVersion,
		Analyzer:  meta.Analyzer,
		DocCount:  idx.DocCount(),
		TermCount: idx.TermCount(),
		BuiltAt:   meta.BuiltAt,
	}
	if err := writeSchemaInfo(tx.Bucket(bucketMeta), info); err != nil {
		return err
	}

	p := idx.Parts()

	docs := tx.Bucket(bucketDocs)
	for id, doc := range p.Documents {
		if err := putCBOR(docs, idKey(id), toDocRecord(doc)); err != nil {
			return err
		}
	}

	postings := tx.Bucket(bucketPostings)
	for term, ids := range p.Postings {
		if err := putCBOR(postings, []byte(term), ids); err != nil {
			return err
		}
	}

	termFreqs := tx.Bucket(bucketTermFreqs)
	for id, tf := range p.TermFreqs {
		if err := putCBOR(termFreqs, idKey(id), tf); err != nil {
			return err
		}
	}

	lengths := tx.Bucket(bucketDocLengths)
	for id, n := range p.DocLengths {
		if err := putCBOR(lengths, idKey(id), n); err != nil {
			return err
		}
	}

	return nil
}

func putCBOR(b *bbolt.Bucket, key []byte, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// Load reads the persisted index. When analyzer is non-empty it must equal
// the fingerprint stored at build time.
func (s *BoltStore) Load(analyzer string) (*index.Index, port.IndexMeta, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, port.IndexMeta{}, fmt.Errorf("%w: %s", domain.ErrMissingIndex, s.path)
		}
		return nil, port.IndexMeta{}, fmt.Errorf("failed to stat index: %w", err)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, port.IndexMeta{}, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	defer db.Close()

	var (
		info  SchemaInfo
		parts index.Parts
	)
	err = db.View(func(tx *bbolt.Tx) error {
		for _, name := range indexBuckets {
			if tx.Bucket(name) == nil {
				return corruptf("missing bucket %s", name)
			}
		}

		var err error
		info, err = readSchemaInfo(tx.Bucket(bucketMeta))
		if err != nil {
			return err
		}
		if err := info.check(analyzer); err != nil {
			return err
		}

		parts, err = readParts(tx)
		return err
	})
	if err != nil {
		return nil, port.IndexMeta{}, err
	}

	if len(parts.Documents) != info.DocCount || len(parts.Postings) != info.TermCount {
		return nil, port.IndexMeta{}, corruptf("meta records %d documents and %d terms, found %d and %d",
			info.DocCount, info.TermCount, len(parts.Documents), len(parts.Postings))
	}

	idx, err := index.FromParts(parts)
	if err != nil {
		return nil, port.IndexMeta{}, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}

	return idx, port.IndexMeta{
		SchemaVersion: info.Version,
		Analyzer:      info.Analyzer,
		BuiltAt:       info.BuiltAt,
	}, nil
}

// Info reads only the meta bucket.
func (s *BoltStore) Info() (SchemaInfo, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return SchemaInfo{}, fmt.Errorf("%w: %s", domain.ErrMissingIndex, s.path)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return SchemaInfo{}, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	defer db.Close()

	var info SchemaInfo
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return corruptf("missing bucket %s", bucketMeta)
		}
		var err error
		info, err = readSchemaInfo(b)
		return err
	})
	return info, err
}

func readParts(tx *bbolt.Tx) (index.Parts, error) {
	p := index.Parts{
		Documents:  make(map[int]domain.Document),
		Postings:   make(map[string][]int),
		TermFreqs:  make(map[int]map[string]int),
		DocLengths: make(map[int]int),
	}

	err := tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
		id, err := parseIDKey(k)
		if err != nil {
			return corruptf("docs: %v", err)
		}
		var rec docRecord
		if err := codec.Unmarshal(v, &rec); err != nil {
			return corruptf("docs: document %d: %v", id, err)
		}
		p.Documents[id] = rec.document()
		return nil
	})
	if err != nil {
		return index.Parts{}, err
	}

	err = tx.Bucket(bucketPostings).ForEach(func(k, v []byte) error {
		var ids []int
		if err := codec.Unmarshal(v, &ids); err != nil {
			return corruptf("postings: term %q: %v", k, err)
		}
		p.Postings[string(k)] = ids
		return nil
	})
	if err != nil {
		return index.Parts{}, err
	}

	err = tx.Bucket(bucketTermFreqs).ForEach(func(k, v []byte) error {
		id, err := parseIDKey(k)
		if err != nil {
			return corruptf("term_freqs: %v", err)
		}
		tf := make(map[string]int)
		if err := codec.Unmarshal(v, &tf); err != nil {
			return corruptf("term_freqs: document %d: %v", id, err)
		}
		p.TermFreqs[id] = tf
		return nil
	})
	if err != nil {
		return index.Parts{}, err
	}

	err = tx.Bucket(bucketDocLengths).ForEach(func(k, v []byte) error {
		id, err := parseIDKey(k)
		if err != nil {
			return corruptf("doc_lengths: %v", err)
		}
		var n int
		if err := codec.Unmarshal(v, &n); err != nil {
			return corruptf("doc_lengths: document %d: %v", id, err)
		}
		p.DocLengths[id] = n
		return nil
	})
	if err != nil {
		return index.Parts{}, err
	}

	return p, nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrCorruptIndex, fmt.Sprintf(format, args...))
}
