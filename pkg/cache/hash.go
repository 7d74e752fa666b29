package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// Algorithm names a content digest algorithm.
type Algorithm string

// Supported digest algorithms.
const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm maps a configuration value to an Algorithm. Empty selects
// SHA256.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q (want sha256 or blake3)", s)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Digest returns "<alg>:<hex>" for data, the tagged form stored next to
// uploaded objects.
func Digest(alg Algorithm, data []byte) string {
	switch alg {
	case BLAKE3:
		sum := blake3.Sum256(data)
		return string(BLAKE3) + ":" + hex.EncodeToString(sum[:])
	default:
		return string(SHA256) + ":" + Hash(data)
	}
}

// CanonicalJSON serializes v with object keys sorted, no insignificant
// whitespace and non-ASCII characters written as \u escapes, so equal values
// always produce equal bytes.
//
// Map keys are sorted by encoding/json; struct values are first converted to
// generic maps so their keys are sorted too.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return asciiOnly(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// asciiOnly rewrites every non-ASCII rune as a JSON \u escape, using
// surrogate pairs outside the basic multilingual plane. Non-ASCII bytes only
// occur inside JSON strings, so the rewrite is safe on encoded output.
func asciiOnly(data []byte) []byte {
	if !slices.ContainsFunc(data, func(b byte) bool { return b >= utf8.RuneSelf }) {
		return data
	}
	var out bytes.Buffer
	out.Grow(len(data) + len(data)/2)
	for _, r := range string(data) {
		switch {
		case r < utf8.RuneSelf:
			out.WriteByte(byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&out, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&out, `\u%04x`, r)
		}
	}
	return out.Bytes()
}

// DigestJSON returns the tagged digest of the canonical serialization of v.
func DigestJSON(alg Algorithm, v any) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return Digest(alg, data), nil
}
