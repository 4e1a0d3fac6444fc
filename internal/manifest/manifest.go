// Copyright 2026 SiaLedger Authors
//
// Package manifest parses and checks MANIFEST.sha256, the whitelist of
// bundle files and their expected digests.
package manifest

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sialedger/auditbundle/internal/verifyerr"
)

const (
	digestHexLength  = 64
	selfReferenceRel = "MANIFEST.sha256"
	hashChunkSize    = 1 << 20 // 1 MiB, matching the original streaming reader
)

// Entry is one parsed manifest line: a 64-hex-digit digest and the file's
// path relative to the bundle directory.
type Entry struct {
	Digest  string
	RelPath string
}

// Parse reads a manifest file. A line is split on the first occurrence of
// two literal ASCII spaces anywhere in it, and both halves are trimmed
// afterward — this matches the reference implementation's grammar rather
// than requiring an exactly-once separator. The digest half must then be
// 64 characters long.
func Parse(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.Index(line, "  ")
		if idx < 0 {
			return nil, verifyerr.Newf(verifyerr.CodeManifestMalformed,
				"Manifest line %d malformed (missing double-space separator)", lineNo)
		}
		digest := strings.TrimSpace(line[:idx])
		rel := strings.TrimSpace(line[idx+2:])
		if len(digest) != digestHexLength {
			return nil, verifyerr.Newf(verifyerr.CodeManifestMalformed,
				"Manifest line %d has invalid sha256 length", lineNo)
		}
		entries = append(entries, Entry{Digest: digest, RelPath: rel})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(entries) == 0 {
		return nil, verifyerr.New(verifyerr.CodeManifestEmpty, "Manifest is empty")
	}
	for _, e := range entries {
		if strings.ReplaceAll(e.RelPath, "\\", "/") == selfReferenceRel {
			return nil, verifyerr.New(verifyerr.CodeManifestSelfListed,
				"Manifest must not include itself: "+selfReferenceRel)
		}
	}
	return entries, nil
}

// Check verifies every entry's file exists under bundleDir and its SHA256
// digest matches. Files present in bundleDir but absent from the manifest
// are permitted (whitelist semantics).
func Check(bundleDir string, entries []Entry) error {
	for _, e := range entries {
		abs := filepath.Join(bundleDir, e.RelPath)
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			return verifyerr.Newf(verifyerr.CodeManifestFileMissing,
				"Missing file listed in manifest: %s", e.RelPath)
		}
		got, err := fileSHA256(abs)
		if err != nil {
			return fmt.Errorf("hash %s: %w", e.RelPath, err)
		}
		if got != e.Digest {
			return verifyerr.Newf(verifyerr.CodeManifestHashMismatch,
				"Hash mismatch for %s: expected %s, got %s", e.RelPath, e.Digest, got)
		}
	}
	return nil
}

// fileSHA256 streams a file through SHA256 in 1 MiB chunks.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Write computes digests for relFiles (relative to bundleDir) and writes
// MANIFEST.sha256 sorted ascending by relative path, excluding itself.
func Write(bundleDir string, relFiles []string) error {
	sorted := append([]string(nil), relFiles...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, rel := range sorted {
		if strings.ReplaceAll(rel, "\\", "/") == selfReferenceRel {
			continue
		}
		digest, err := fileSHA256(filepath.Join(bundleDir, rel))
		if err != nil {
			return fmt.Errorf("hash %s: %w", rel, err)
		}
		fmt.Fprintf(&b, "%s  %s\n", digest, rel)
	}
	return os.WriteFile(filepath.Join(bundleDir, selfReferenceRel), []byte(b.String()), 0o644)
}
