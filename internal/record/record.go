// Copyright 2026 SiaLedger Authors
//
// Package record reads certificate records from a sealed JSONL ledger.
package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sialedger/auditbundle/internal/verifyerr"
)

// Record is one decoded certificate line. Keys decode as generic values with
// json.Number preserved verbatim so canonical re-encoding reproduces the
// original source text for numeric fields.
type Record map[string]interface{}

// Op returns the "op" field, or "" if absent or not a string.
func (r Record) Op() string {
	return stringField(r, "op")
}

// Decision returns the "decision" field, or "" if absent or not a string.
func (r Record) Decision() string {
	return stringField(r, "decision")
}

// Mode returns the "mode" field, or "" if absent or not a string.
func (r Record) Mode() string {
	return stringField(r, "mode")
}

// Label returns the "label" field, or "" if absent or not a string.
func (r Record) Label() string {
	return stringField(r, "label")
}

// CertificateID returns the "certificate_id" field, or "" if absent.
func (r Record) CertificateID() string {
	return stringField(r, "certificate_id")
}

// ChainHash returns the "chain_hash" field, or "" if absent.
func (r Record) ChainHash() string {
	return stringField(r, "chain_hash")
}

// TopLevelSealID returns the record's own top-level seal_id field, ignoring
// any finality object. Used when a seal event first assigns the canonical
// seal id.
func (r Record) TopLevelSealID() string {
	return stringField(r, "seal_id")
}

// BoundSealID returns the seal id a later record binds to: finality.seal_id
// if present and non-empty, else the record's own top-level seal_id.
func (r Record) BoundSealID() string {
	if fin, ok := r["finality"].(map[string]interface{}); ok {
		if sid, ok := fin["seal_id"].(string); ok && sid != "" {
			return sid
		}
	}
	return stringField(r, "seal_id")
}

// FinalitySealID returns finality.seal_id only, or "" if absent.
func (r Record) FinalitySealID() string {
	fin, ok := r["finality"].(map[string]interface{})
	if !ok {
		return ""
	}
	sid, _ := fin["seal_id"].(string)
	return sid
}

// Sealed reports whether the "sealed" field is boolean true.
func (r Record) Sealed() bool {
	b, _ := r["sealed"].(bool)
	return b
}

// FinalitySealed reports whether finality.sealed is boolean true.
func (r Record) FinalitySealed() (value bool, present bool) {
	fin, ok := r["finality"].(map[string]interface{})
	if !ok {
		return false, false
	}
	v, ok := fin["sealed"].(bool)
	return v, ok
}

// HasFinality reports whether the finality object is present.
func (r Record) HasFinality() bool {
	_, ok := r["finality"].(map[string]interface{})
	return ok
}

// Reason returns the "reason" field as text, treating null/absent as "".
func (r Record) Reason() string {
	v, ok := r["reason"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Advise returns the "advise" field and whether it was present and non-null.
func (r Record) Advise() (value string, present bool) {
	v, ok := r["advise"]
	if !ok || v == nil {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// PrevChainHash returns a non-empty "prev_chain_hash" field, if any.
func (r Record) PrevChainHash() (string, bool) {
	s := stringField(r, "prev_chain_hash")
	return s, s != ""
}

// SealPrevChainHash returns inputs.seal_prev_chain_hash, if present and non-empty.
func (r Record) SealPrevChainHash() (string, bool) {
	in, ok := r["inputs"].(map[string]interface{})
	if !ok {
		return "", false
	}
	s, _ := in["seal_prev_chain_hash"].(string)
	return s, s != ""
}

func stringField(r Record, key string) string {
	s, _ := r[key].(string)
	return s
}

// ReadJSONL decodes a newline-delimited JSON file into Records, skipping
// blank lines. Numeric literals are preserved as json.Number so their
// source text survives untouched through canonical re-encoding.
func ReadJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jsonl: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, verifyerr.Newf(verifyerr.CodeJSONLParse, "JSONL parse error at line %d: %v", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, verifyerr.Newf(verifyerr.CodeJSONLParse, "JSONL parse error: %v", err)
		}
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	if len(records) == 0 {
		return nil, verifyerr.New(verifyerr.CodeJSONLEmpty, "JSONL is empty")
	}
	return records, nil
}
