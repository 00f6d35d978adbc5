package fingerprint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// CurrentVersion is the on-disk fingerprint schema version.
// Bump it whenever a field is added; never reorder or remove existing
// fields, since the version prefix only buys forward-compatible *addition*,
// not renumbering.
const CurrentVersion uint16 = 1

// Encode serializes a fingerprint with a 2-byte big-endian version prefix
// followed by its JSON body. JSON follows pkg/memory/store's own pattern: every
// store backend in the retrieved pack (pkg/memory/store/postgres_store.go's
// metadata column, model/metadata.go's NormalizeMetadata) moves fingerprint
// payloads as JSON, and JSON's keyed fields already give the property that
// inserting a field later never shifts earlier bytes — no positional/
// binary framing is needed beyond the version prefix that guards
// migrations. No third-party serialization library appears
// anywhere in the retrieval pack for this concern, so the format stays
// encoding/json + encoding/binary, both standard library.
func Encode(f *Fingerprint) ([]byte, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode fingerprint: %w", err)
	}
	out := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(out[:2], CurrentVersion)
	copy(out[2:], body)
	return out, nil
}

// Decode reverses Encode, returning the schema version found on disk so the
// caller (store.BoltStore) can decide whether migration is required.
func Decode(data []byte) (*Fingerprint, uint16, error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("decode fingerprint: truncated record (%d bytes)", len(data))
	}
	version := binary.BigEndian.Uint16(data[:2])
	var f Fingerprint
	if err := json.Unmarshal(data[2:], &f); err != nil {
		return nil, version, fmt.Errorf("decode fingerprint: %w", err)
	}
	return &f, version, nil
}
