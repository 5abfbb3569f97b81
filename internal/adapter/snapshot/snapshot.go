// Package snapshot reads and writes portable index files.
//
// A snapshot is a fixed header followed by a compressed CBOR payload:
//
//	magic        [4]byte  "KWSX"
//	version      uint16   format version, currently 1
//	compression  uint8    CompressionTag
//	digest       [32]byte blake3 of the compressed payload
//	compressed   uint64   payload length on disk
//	raw          uint64   payload length after decompression
//	payload      []byte
//
// All integers are big-endian. Unlike the bbolt index file a snapshot is a
// single stream, so it can be copied between hosts or piped.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
	"kwsearch/internal/adapter/codec"
	"kwsearch/internal/adapter/index"
	"kwsearch/internal/domain"
)

const (
	FormatVersion = 1

	headerSize = 4 + 2 + 1 + 32 + 8 + 8

	// maxPayload bounds allocations when reading an untrusted header.
	maxPayload = 1 << 32
)

var magic = [4]byte{'K', 'W', 'S', 'X'}

type payload struct {
	Version    int                    `cbor:"version"`
	Analyzer   string                 `cbor:"analyzer"`
	Documents  []document             `cbor:"documents"`
	Postings   map[string][]int       `cbor:"postings"`
	TermFreqs  map[int]map[string]int `cbor:"term_freqs"`
	DocLengths map[int]int            `cbor:"doc_lengths"`
}

type document struct {
	ID          int               `cbor:"id"`
	Title       string            `cbor:"title"`
	Description string            `cbor:"description"`
	Extra       map[string][]byte `cbor:"extra,omitempty"`
}

// Snapshot is the decoded content of a snapshot file.
type Snapshot struct {
	Index    *index.Index
	Analyzer string
}

// Write encodes idx to w using tag for compression.
func Write(w io.Writer, idx *index.Index, analyzer string, tag CompressionTag) error {
	p := idx.Parts()
	pl := payload{
		Version:    FormatVersion,
		Analyzer:   analyzer,
		Documents:  make([]document, 0, len(p.Documents)),
		Postings:   p.Postings,
		TermFreqs:  p.TermFreqs,
		DocLengths: p.DocLengths,
	}
	for _, doc := range idx.Documents() {
		d := document{ID: doc.ID, Title: doc.Title, Description: doc.Description}
		if len(doc.Extra) > 0 {
			d.Extra = make(map[string][]byte, len(doc.Extra))
			for k, v := range doc.Extra {
				d.Extra[k] = []byte(v)
			}
		}
		pl.Documents = append(pl.Documents, d)
	}

	raw, err := codec.Marshal(pl)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	compressed, tag, err := compress(raw, tag)
	if err != nil {
		return err
	}

	var header [headerSize]byte
	copy(header[0:4], magic[:])
	binary.BigEndian.PutUint16(header[4:6], FormatVersion)
	header[6] = byte(tag)
	digest := blake3.Sum256(compressed)
	copy(header[7:39], digest[:])
	binary.BigEndian.PutUint64(header[39:47], uint64(len(compressed)))
	binary.BigEndian.PutUint64(header[47:55], uint64(len(raw)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("failed to write snapshot payload: %w", err)
	}
	return nil
}

// Read decodes a snapshot. Any structural problem, from a short header to a
// failed index invariant, is reported as ErrCorruptIndex.
func Read(r io.Reader) (*Snapshot, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, corruptf("header: %v", err)
	}
	if !bytes.Equal(header[0:4], magic[:]) {
		return nil, corruptf("bad magic %q", header[0:4])
	}
	if v := binary.BigEndian.Uint16(header[4:6]); v != FormatVersion {
		return nil, corruptf("unsupported format version %d", v)
	}
	tag := CompressionTag(header[6])
	var digest [32]byte
	copy(digest[:], header[7:39])
	compressedLen := binary.BigEndian.Uint64(header[39:47])
	rawLen := binary.BigEndian.Uint64(header[47:55])
	if compressedLen > maxPayload || rawLen > maxPayload {
		return nil, corruptf("payload too large")
	}

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, corruptf("payload: %v", err)
	}
	if blake3.Sum256(compressed) != digest {
		return nil, corruptf("checksum mismatch")
	}

	raw, err := decompress(compressed, tag, int(rawLen))
	if err != nil {
		return nil, corruptf("%v", err)
	}

	var pl payload
	if err := codec.Unmarshal(raw, &pl); err != nil {
		return nil, corruptf("decode: %v", err)
	}
	if pl.Version != FormatVersion {
		return nil, corruptf("payload version %d", pl.Version)
	}

	parts := index.Parts{
		Documents:  make(map[int]domain.Document, len(pl.Documents)),
		Postings:   pl.Postings,
		TermFreqs:  pl.TermFreqs,
		DocLengths: pl.DocLengths,
	}
	for _, d := range pl.Documents {
		if _, dup := parts.Documents[d.ID]; dup {
			return nil, corruptf("duplicate document %d", d.ID)
		}
		doc := domain.Document{ID: d.ID, Title: d.Title, Description: d.Description}
		if len(d.Extra) > 0 {
			doc.Extra = make(map[string]json.RawMessage, len(d.Extra))
			for k, v := range d.Extra {
				doc.Extra[k] = json.RawMessage(v)
			}
		}
		parts.Documents[d.ID] = doc
	}

	idx, err := index.FromParts(parts)
	if err != nil {
		return nil, corruptf("%v", err)
	}
	return &Snapshot{Index: idx, Analyzer: pl.Analyzer}, nil
}

// WriteFile writes a snapshot to <path>.tmp and renames it into place.
func WriteFile(path string, idx *index.Index, analyzer string, tag CompressionTag) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	err = Write(f, idx, analyzer, tag)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingIndex, path)
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: snapshot %s", domain.ErrCorruptIndex, fmt.Sprintf(format, args...))
}
