// Copyright 2026 SiaLedger Authors
//
// Package canonical implements the canonical JSON encoding and the derived
// certificate-id / chain-hash recomputation used by the chain verifier.
//
// The encoding matches Python's
//
//	json.dumps(obj, sort_keys=True, separators=(",", ":"), ensure_ascii=True)
//
// byte for byte: object keys sorted by code point at every nesting level, no
// insignificant whitespace, and every non-ASCII code point escaped as \uXXXX
// (surrogate pairs above U+FFFF). encoding/json's default Marshal does not
// ensure_ascii-escape, so this package encodes decoded values directly.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sialedger/auditbundle/internal/record"
)

// CanonicalAdvise is the only non-null value the "advise" field may hold
// when decision == ABSTAIN.
const CanonicalAdvise = "use classical analysis (limits/asymptotics/numerical methods) with explicit acknowledgement of approximation"

// GenesisFallback is the prev_chain_hash used when a bundle's first record
// carries no explicit predecessor hash.
const GenesisFallback = "GENESIS"

// HashingBody returns the subset of rec that participates in
// certificate_id hashing: certificate_id and chain_hash are always
// excluded; seal_id and label are additionally excluded when op == "seal".
func HashingBody(rec record.Record) map[string]interface{} {
	body := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		body[k] = v
	}
	delete(body, "certificate_id")
	delete(body, "chain_hash")
	if op, _ := body["op"].(string); op == "seal" {
		delete(body, "seal_id")
		delete(body, "label")
	}
	return body
}

// Marshal renders v (built from decoded JSON — nil, bool, json.Number,
// string, map[string]interface{}, []interface{}) as canonical JSON text.
func Marshal(v interface{}) (string, error) {
	var b strings.Builder
	if err := encodeValue(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func encodeValue(b *strings.Builder, v interface{}) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		b.WriteString(t.String())
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		encodeString(b, t)
	case map[string]interface{}:
		return encodeObject(b, t)
	case []interface{}:
		return encodeArray(b, t)
	default:
		return fmt.Errorf("canonical: unsupported value type %T", v)
	}
	return nil
}

func encodeObject(b *strings.Builder, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		encodeString(b, k)
		b.WriteByte(':')
		if err := encodeValue(b, m[k]); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func encodeArray(b *strings.Builder, a []interface{}) error {
	b.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := encodeValue(b, v); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

// encodeString writes s as a JSON string literal with every non-ASCII code
// point (and the usual control/escape characters) escaped, matching
// ensure_ascii=True.
func encodeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r < 0x20:
				fmt.Fprintf(b, `\u%04x`, r)
			case r < 0x7f:
				b.WriteByte(byte(r))
			case r <= 0xFFFF:
				fmt.Fprintf(b, `\u%04x`, r)
			default:
				r1, r2 := utf16Surrogates(r)
				fmt.Fprintf(b, `\u%04x\u%04x`, r1, r2)
			}
		}
	}
	b.WriteByte('"')
}

func utf16Surrogates(r rune) (rune, rune) {
	r -= 0x10000
	hi := 0xD800 + (r >> 10)
	lo := 0xDC00 + (r & 0x3FF)
	return hi, lo
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CertificateID recomputes the content hash of rec's hashing body.
func CertificateID(rec record.Record) (string, error) {
	body := HashingBody(rec)
	canon, err := Marshal(body)
	if err != nil {
		return "", err
	}
	return sha256Hex(canon), nil
}

// ChainHash recomputes SHA256(prevChainHash + "|" + certificateID).
func ChainHash(prevChainHash, certificateID string) string {
	return sha256Hex(prevChainHash + "|" + certificateID)
}
