package store

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"kwsearch/internal/adapter/codec"
	"kwsearch/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyAnalyzer      = []byte("analyzer")
	keyDocCount      = []byte("doc_count")
	keyTermCount     = []byte("term_count")
	keyBuiltAt       = []byte("built_at")
)

// SchemaInfo is the content of the meta bucket.
type SchemaInfo struct {
	Version   int
	Analyzer  string
	DocCount  int
	TermCount int
	BuiltAt   time.Time
}

func writeSchemaInfo(b *bbolt.Bucket, info SchemaInfo) error {
	values := []struct {
		key []byte
		v   any
	}{
		{keySchemaVersion, info.Version},
		{keyAnalyzer, info.Analyzer},
		{keyDocCount, info.DocCount},
		{keyTermCount, info.TermCount},
		{keyBuiltAt, info.BuiltAt.UTC().Format(time.RFC3339Nano)},
	}
	for _, kv := range values {
		if err := putCBOR(b, kv.key, kv.v); err != nil {
			return fmt.Errorf("failed to write %s: %w", kv.key, err)
		}
	}
	return nil
}

func readSchemaInfo(b *bbolt.Bucket) (SchemaInfo, error) {
	var (
		info    SchemaInfo
		builtAt string
	)
	targets := []struct {
		key []byte
		v   any
	}{
		{keySchemaVersion, &info.Version},
		{keyAnalyzer, &info.Analyzer},
		{keyDocCount, &info.DocCount},
		{keyTermCount, &info.TermCount},
		{keyBuiltAt, &builtAt},
	}
	for _, kv := range targets {
		data := b.Get(kv.key)
		if data == nil {
			return SchemaInfo{}, corruptf("meta: missing %s", kv.key)
		}
		if err := codec.Unmarshal(data, kv.v); err != nil {
			return SchemaInfo{}, corruptf("meta: %s: %v", kv.key, err)
		}
	}

	t, err := time.Parse(time.RFC3339Nano, builtAt)
	if err != nil {
		return SchemaInfo{}, corruptf("meta: built_at: %v", err)
	}
	info.BuiltAt = t
	return info, nil
}

// check rejects files this build cannot read and indexes produced by a
// different analyzer. An empty analyzer skips the fingerprint comparison.
func (info SchemaInfo) check(analyzer string) error {
	switch {
	case info.Version > CurrentSchemaVersion:
		return corruptf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
	case info.Version < 1:
		return corruptf("unknown schema version %d", info.Version)
	}
	if analyzer != "" && info.Analyzer != analyzer {
		return fmt.Errorf("%w: index built with %s, query pipeline is %s",
			domain.ErrAnalyzerMismatch, info.Analyzer, analyzer)
	}
	return nil
}
