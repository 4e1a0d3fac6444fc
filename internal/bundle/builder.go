// Copyright 2026 SiaLedger Authors
//
// Bundle assembly: copies the sealed ledger and an embedded verifier
// executable into a bundle directory, then seals the directory with a
// manifest covering every file it writes.
package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sialedger/auditbundle/internal/manifest"
	"github.com/sialedger/auditbundle/internal/record"
)

const (
	rulesetFileName = "RULESET.txt"
	readmeFileName  = "README_AUDIT.md"
)

// verifierArtifactName is the name the embedded verifier executable is
// given inside the bundle directory.
func verifierArtifactName() string {
	if runtime.GOOS == "windows" {
		return "verify.exe"
	}
	return "verify"
}

// BuildOptions configures bundle assembly from a sealed JSONL ledger.
type BuildOptions struct {
	InputJSONL string
	BundleDir  string
	RulesetID  string
	Overwrite  bool

	// VerifierBinary is the path to the verifier executable to embed in the
	// bundle. If empty, Build locates one next to the running process (see
	// locateVerifierBinary).
	VerifierBinary string
}

// BuildReport summarizes an assembled bundle.
type BuildReport struct {
	BundleDir   string
	RecordCount int
}

// Build assembles a bundle directory from a sealed JSONL ledger: it copies
// the ledger to CERTS.jsonl, writes RULESET.txt and README_AUDIT.md, embeds
// a verifier executable, and finally computes MANIFEST.sha256 over the
// assembled files, last and self-excluding.
func Build(opts BuildOptions) (*BuildReport, error) {
	records, err := record.ReadJSONL(opts.InputJSONL)
	if err != nil {
		return nil, fmt.Errorf("validate input ledger: %w", err)
	}

	if _, err := os.Stat(opts.BundleDir); err == nil {
		if !opts.Overwrite {
			return nil, fmt.Errorf("bundle_dir exists: %s (use --overwrite)", opts.BundleDir)
		}
		if err := os.RemoveAll(opts.BundleDir); err != nil {
			return nil, fmt.Errorf("remove existing bundle_dir: %w", err)
		}
	}
	if err := os.MkdirAll(opts.BundleDir, 0o755); err != nil {
		return nil, fmt.Errorf("create bundle_dir: %w", err)
	}

	certsPath := filepath.Join(opts.BundleDir, DefaultCertsName)
	if err := copyFile(opts.InputJSONL, certsPath, 0o644); err != nil {
		return nil, fmt.Errorf("copy ledger into bundle: %w", err)
	}

	rulesetID := strings.TrimSpace(opts.RulesetID)
	if rulesetID == "" {
		rulesetID = "SIA_CORE_RULESET_v1"
	}
	if err := os.WriteFile(filepath.Join(opts.BundleDir, rulesetFileName), []byte(rulesetID+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write ruleset: %w", err)
	}

	if err := os.WriteFile(filepath.Join(opts.BundleDir, readmeFileName), []byte(readmeTemplate), 0o644); err != nil {
		return nil, fmt.Errorf("write readme: %w", err)
	}

	verifierSrc := opts.VerifierBinary
	if verifierSrc == "" {
		verifierSrc, err = locateVerifierBinary()
		if err != nil {
			return nil, fmt.Errorf("locate verifier binary: %w", err)
		}
	}
	verifierName := verifierArtifactName()
	if err := copyFile(verifierSrc, filepath.Join(opts.BundleDir, verifierName), 0o755); err != nil {
		return nil, fmt.Errorf("embed verifier binary: %w", err)
	}

	relFiles := []string{DefaultCertsName, rulesetFileName, readmeFileName, verifierName}
	if err := manifest.Write(opts.BundleDir, relFiles); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return &BuildReport{BundleDir: opts.BundleDir, RecordCount: len(records)}, nil
}

// locateVerifierBinary finds a verifier executable to embed when the caller
// does not supply one explicitly. It first looks for a "verify" (or
// "verify.exe") binary alongside the running executable, matching how this
// module ships build-bundle and verify as sibling binaries; failing that, it
// falls back to the running executable itself.
func locateVerifierBinary() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate running executable: %w", err)
	}
	sibling := filepath.Join(filepath.Dir(exePath), verifierArtifactName())
	if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
		return sibling, nil
	}
	return exePath, nil
}

const readmeTemplate = `# Audit Bundle

This bundle is an offline-verifiable audit artifact.

Contents:
- CERTS.jsonl: sealed certificate chain
- MANIFEST.sha256: file hashes for integrity (self-excluding)
- RULESET.txt: pinned ruleset identifier
- verify: embedded verifier executable

How to verify:
  ./verify --bundle_dir .

Expected:
  VERIFY: PASS
`

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
