// Package canonical produces deterministic byte encodings for signing
// and content-addressing: sorted object keys, numbers in the shortest
// round-trip form RFC 8785 prescribes, and NFC-normalized UTF-8
// throughout, so the same logical value always hashes and signs to the
// same bytes regardless of origin. Integers are not padded to a fixed
// width.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// normalizeUnicode walks a decoded JSON value and rewrites every string
// to Unicode NFC, so two payloads that are the same logical text in
// different normalization forms (a common side effect of passing
// strings through different clients and locales) canonicalize to the
// same bytes and therefore the same signature and hash.
func normalizeUnicode(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, elem := range val {
			out[norm.NFC.String(k)] = normalizeUnicode(elem)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = normalizeUnicode(elem)
		}
		return out
	default:
		return v
	}
}

// Marshal encodes v as RFC 8785 JSON Canonicalization Scheme bytes:
// sorted object keys, no insignificant whitespace, no HTML escaping,
// and NFC-normalized strings throughout.
func Marshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("canonical: decode for normalization: %w", err)
	}
	normalized, err := json.Marshal(normalizeUnicode(decoded))
	if err != nil {
		return nil, fmt.Errorf("canonical: re-encode normalized value: %w", err)
	}

	out, err := jcs.Transform(normalized)
	if err != nil {
		return nil, fmt.Errorf("canonical: jcs transform: %w", err)
	}
	return out, nil
}

// Hash returns the lowercase-hex SHA-256 digest of v's canonical
// encoding, prefixed "sha256:" as used throughout the ledger and
// contract content-addressing.
func Hash(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the lowercase-hex SHA-256 digest of raw bytes,
// prefixed "sha256:".
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}
