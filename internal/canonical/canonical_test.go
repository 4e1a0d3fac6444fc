package canonical

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sialedger/auditbundle/internal/record"
)

func decodeLine(t *testing.T, line string) record.Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var rec record.Record
	if err := dec.Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec
}

func TestMarshal_SortsKeysAtEveryLevel(t *testing.T) {
	rec := decodeLine(t, `{"b":1,"a":{"z":1,"y":2},"c":[3,2,1]}`)
	got, err := Marshal(map[string]interface{}(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"a":{"y":2,"z":1},"b":1,"c":[3,2,1]}`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestMarshal_NoInsignificantWhitespace(t *testing.T) {
	rec := decodeLine(t, `{ "a" : 1 , "b" : 2 }`)
	got, err := Marshal(map[string]interface{}(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.ContainsAny(got, " \t\n") {
		t.Fatalf("unexpected whitespace in %q", got)
	}
}

func TestMarshal_EscapesNonASCII(t *testing.T) {
	rec := decodeLine(t, `{"label":"café"}`)
	got, err := Marshal(map[string]interface{}(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "{\"label\":\"caf\\u00e9\"}"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestMarshal_EscapesAstralPlaneAsSurrogatePair(t *testing.T) {
	rec := decodeLine(t, `{"emoji":"`+"\U0001F600"+`"}`)
	got, err := Marshal(map[string]interface{}(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "{\"emoji\":\"\\ud83d\\ude00\"}"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestMarshal_PreservesNumberSourceText(t *testing.T) {
	rec := decodeLine(t, `{"a_decimals":1.50000}`)
	got, err := Marshal(map[string]interface{}(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"a_decimals":1.50000}`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestHashingBody_StripsDerivedFieldsAlways(t *testing.T) {
	rec := decodeLine(t, `{"op":"issue","certificate_id":"x","chain_hash":"y","label":"L"}`)
	body := HashingBody(rec)
	if _, ok := body["certificate_id"]; ok {
		t.Fatalf("certificate_id should be stripped")
	}
	if _, ok := body["chain_hash"]; ok {
		t.Fatalf("chain_hash should be stripped")
	}
	if _, ok := body["label"]; !ok {
		t.Fatalf("label should survive on a non-seal record")
	}
}

func TestHashingBody_SealRecordAlsoStripsSealIDAndLabel(t *testing.T) {
	rec := decodeLine(t, `{"op":"seal","certificate_id":"x","chain_hash":"y","seal_id":"s","label":"L"}`)
	body := HashingBody(rec)
	for _, key := range []string{"certificate_id", "chain_hash", "seal_id", "label"} {
		if _, ok := body[key]; ok {
			t.Fatalf("%s should be stripped on seal record", key)
		}
	}
	if _, ok := body["op"]; !ok {
		t.Fatalf("op should survive")
	}
}

func TestCertificateID_Deterministic(t *testing.T) {
	rec := decodeLine(t, `{"op":"issue","label":"L","a_decimals":1}`)
	id1, err := CertificateID(rec)
	if err != nil {
		t.Fatalf("certificate id: %v", err)
	}
	id2, err := CertificateID(rec)
	if err != nil {
		t.Fatalf("certificate id: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected deterministic certificate id, got %q then %q", id1, id2)
	}
	if len(id1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(id1))
	}
}

func TestChainHash_MatchesFormula(t *testing.T) {
	got := ChainHash(GenesisFallback, "abc")
	want := sha256Hex(GenesisFallback + "|" + "abc")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}
}
