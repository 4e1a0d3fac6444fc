// Copyright 2026 SiaLedger Authors
//
// Package bundle orchestrates whole-bundle verification: manifest integrity
// checking followed by hash-chain verification of the certificate ledger.
package bundle

import (
	"os"
	"path/filepath"

	"github.com/sialedger/auditbundle/internal/chain"
	"github.com/sialedger/auditbundle/internal/manifest"
	"github.com/sialedger/auditbundle/internal/record"
	"github.com/sialedger/auditbundle/internal/verifyerr"
)

// DefaultCertsName and DefaultManifestName are the bundle's conventional
// file names when the caller doesn't override them.
const (
	DefaultCertsName    = "CERTS.jsonl"
	DefaultManifestName = "MANIFEST.sha256"
)

// VerifyOptions configures a bundle verification run.
type VerifyOptions struct {
	BundleDir    string
	CertsName    string
	ManifestName string
}

// VerifyReport summarizes a passed verification.
type VerifyReport struct {
	RecordCount int
	SealID      string
	FinalChain  string
}

// Verify checks MANIFEST.sha256 integrity, then parses and hash-chain
// verifies CERTS.jsonl. It returns on the first failing rule.
func Verify(opts VerifyOptions) (*VerifyReport, error) {
	certsName := opts.CertsName
	if certsName == "" {
		certsName = DefaultCertsName
	}
	manifestName := opts.ManifestName
	if manifestName == "" {
		manifestName = DefaultManifestName
	}

	certsPath := filepath.Join(opts.BundleDir, certsName)
	manifestPath := filepath.Join(opts.BundleDir, manifestName)

	if !isFile(certsPath) {
		return nil, verifyerr.Newf(verifyerr.CodeMissingCerts, "missing %s", certsName)
	}
	if !isFile(manifestPath) {
		return nil, verifyerr.Newf(verifyerr.CodeMissingManifest, "missing %s", manifestName)
	}

	entries, err := manifest.Parse(manifestPath)
	if err != nil {
		return nil, err
	}
	if err := manifest.Check(opts.BundleDir, entries); err != nil {
		return nil, err
	}

	records, err := record.ReadJSONL(certsPath)
	if err != nil {
		return nil, err
	}

	result, err := chain.Verify(records)
	if err != nil {
		return nil, err
	}

	return &VerifyReport{
		RecordCount: result.RecordCount,
		SealID:      result.SealID,
		FinalChain:  result.FinalChain,
	}, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
