// Copyright 2026 SiaLedger Authors
//
// Package chain verifies the linear certificate hash chain: per-record
// content-hash recomputation, chain-hash advancement, the one-shot finality
// seal, and post-seal issuance discipline.
package chain

import (
	"strings"

	"github.com/sialedger/auditbundle/internal/canonical"
	"github.com/sialedger/auditbundle/internal/record"
	"github.com/sialedger/auditbundle/internal/verifyerr"
)

var requiredKeys = []string{
	"mode", "phase", "label", "op", "decision", "reason",
	"certificate_id", "chain_hash", "a_decimals",
}

// Result carries the outcome of a successful chain verification.
type Result struct {
	RecordCount int
	SealIndex   int
	SealID      string
	SealedChain string
	FinalChain  string
}

// Verify walks records in order, recomputing certificate ids and chain
// hashes and enforcing the seal state machine. It returns on the first
// failure, matching the bundle's all-or-nothing admissibility.
func Verify(records []record.Record) (*Result, error) {
	var (
		sealIndex     = -1
		sealID        string
		sealedChain   string
		prevChainHash string
	)

	for i, rec := range records {
		idx := i + 1
		if err := requireKeys(rec, requiredKeys); err != nil {
			return nil, err.AtRecord(idx, rec.Label())
		}

		if err := checkAdviseDiscipline(rec); err != nil {
			return nil, err.AtRecord(idx, rec.Label())
		}

		certID, cerr := canonical.CertificateID(rec)
		if cerr != nil {
			return nil, verifyerr.Wrap(verifyerr.CodeCertificateIDMismatch, "failed to recompute certificate_id", cerr).AtRecord(idx, rec.Label())
		}
		if certID != rec.CertificateID() {
			return nil, verifyerr.New(verifyerr.CodeCertificateIDMismatch, "certificate_id mismatch").AtRecord(idx, rec.Label())
		}

		if i == 0 {
			prevChainHash = genesisPrevHash(rec)
		}

		if sealedChain == "" {
			expected := canonical.ChainHash(prevChainHash, rec.CertificateID())
			if expected != rec.ChainHash() {
				return nil, verifyerr.New(verifyerr.CodeChainHashMismatch, "chain_hash mismatch").AtRecord(idx, rec.Label())
			}
			prevChainHash = rec.ChainHash()
		} else {
			if rec.ChainHash() != sealedChain {
				return nil, verifyerr.New(verifyerr.CodePostSealChainChanged,
					"Post-seal chain_hash changed (must remain stable after seal)").AtRecord(idx, rec.Label())
			}
		}

		if rec.Op() == "seal" && rec.Sealed() {
			if sealIndex < 0 {
				sealIndex = i
				sealID = rec.TopLevelSealID()
				if sealID == "" {
					sealID = rec.CertificateID()
				}
				sealedChain = rec.ChainHash()
			} else {
				if !isResealRefusal(rec) {
					return nil, verifyerr.New(verifyerr.CodeMultipleSeals,
						"Multiple seal assertions found (later sealed=true seal records must be reseal refusals)").AtRecord(idx, rec.Label())
				}
				boundID := rec.BoundSealID()
				if boundID == "" {
					boundID = sealID
				}
				if boundID != sealID {
					return nil, verifyerr.New(verifyerr.CodeSealIDMismatch,
						"Post-seal seal assertion does not bind to original seal_id").AtRecord(idx, rec.Label())
				}
				if rec.ChainHash() != sealedChain {
					return nil, verifyerr.New(verifyerr.CodeSealChainMismatch,
						"Post-seal seal assertion must preserve sealed chain_hash").AtRecord(idx, rec.Label())
				}
			}
		}
	}

	if sealIndex < 0 {
		return nil, verifyerr.New(verifyerr.CodeNoFinalitySeal, "No finality seal record found (op='seal' and sealed=true)")
	}

	for j := sealIndex + 1; j < len(records); j++ {
		rec := records[j]
		idx := j + 1
		if rec.Mode() != "proof_assistant_cert" {
			continue
		}
		if rec.Decision() != "ABSTAIN" {
			return nil, verifyerr.New(verifyerr.CodePostSealMustAbstain, "Post-seal issuance must ABSTAIN").AtRecord(idx, rec.Label())
		}
		rt := strings.ToUpper(strings.TrimSpace(rec.Reason()))
		if !(strings.HasPrefix(rt, "FINALITY_VIOLATION") || strings.Contains(rt, "SEAL") || strings.Contains(rt, "FINALITY")) {
			return nil, verifyerr.New(verifyerr.CodePostSealReason, "Post-seal issuance reason must indicate finality/seal").AtRecord(idx, rec.Label())
		}
		if rec.HasFinality() {
			sealed, _ := rec.FinalitySealed()
			if !sealed {
				return nil, verifyerr.New(verifyerr.CodePostSealNotSealed, "finality.sealed must be true post-seal").AtRecord(idx, rec.Label())
			}
			if finSealID := rec.FinalitySealID(); finSealID != "" && finSealID != sealID {
				return nil, verifyerr.New(verifyerr.CodePostSealSealIDMismat, "finality.seal_id mismatch").AtRecord(idx, rec.Label())
			}
		}
	}

	return &Result{
		RecordCount: len(records),
		SealIndex:   sealIndex,
		SealID:      sealID,
		SealedChain: sealedChain,
		FinalChain:  prevChainHash,
	}, nil
}

func genesisPrevHash(rec record.Record) string {
	if prev, ok := rec.PrevChainHash(); ok {
		return prev
	}
	if prev, ok := rec.SealPrevChainHash(); ok {
		return prev
	}
	return canonical.GenesisFallback
}

func requireKeys(rec record.Record, keys []string) *verifyerr.Error {
	for _, k := range keys {
		if _, ok := rec[k]; !ok {
			return verifyerr.New(verifyerr.CodeMissingKey, "Missing required key: "+k)
		}
	}
	return nil
}

func checkAdviseDiscipline(rec record.Record) *verifyerr.Error {
	advise, present := rec.Advise()
	if rec.Decision() == "ABSTAIN" {
		if present && advise != canonical.CanonicalAdvise {
			return verifyerr.New(verifyerr.CodeAdviseDiscipline, "advise must be canonical or null")
		}
		return nil
	}
	if present {
		return verifyerr.New(verifyerr.CodeAdviseDiscipline, "advise must be null when decision != ABSTAIN")
	}
	return nil
}

// isResealRefusal mirrors the reference implementation's permissive
// classification of a later sealed=true seal record as an expected refusal
// rather than a protocol violation.
func isResealRefusal(rec record.Record) bool {
	if rec.Decision() != "ABSTAIN" {
		return false
	}
	rt := strings.ToUpper(strings.TrimSpace(rec.Reason()))
	if strings.HasPrefix(rt, "FINALITY_VIOLATION") {
		return true
	}
	if strings.Contains(rt, "ALREADY") && strings.Contains(rt, "SEAL") {
		return true
	}
	if strings.HasPrefix(rt, "ALREADY_SEALED") || strings.HasPrefix(rt, "SEALED") || strings.Contains(rt, "SEALED") {
		return true
	}
	if strings.Contains(rt, "FINALITY") && strings.Contains(rt, "VIOL") {
		return true
	}
	if sealed, present := rec.FinalitySealed(); present && sealed {
		return true
	}
	return false
}
