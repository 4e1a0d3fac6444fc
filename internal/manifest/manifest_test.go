package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_AcceptsFirstDoubleSpaceAsSeparator(t *testing.T) {
	dir := t.TempDir()
	digest := "0000000000000000000000000000000000000000000000000000000000000000"
	manifestPath := writeFile(t, dir, "MANIFEST.sha256", digest+"   path with  two spaces.txt\n")
	entries, err := Parse(manifestPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "path with  two spaces.txt", entries[0].RelPath)
}

func TestParse_RejectsMissingSeparator(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeFile(t, dir, "MANIFEST.sha256", "deadbeef file.txt\n")
	_, err := Parse(manifestPath)
	require.Error(t, err)
}

func TestParse_RejectsEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeFile(t, dir, "MANIFEST.sha256", "\n\n")
	_, err := Parse(manifestPath)
	require.Error(t, err)
}

func TestParse_RejectsSelfListing(t *testing.T) {
	dir := t.TempDir()
	digest := "abcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	manifestPath := writeFile(t, dir, "MANIFEST.sha256", digest+"  MANIFEST.sha256\n")
	_, err := Parse(manifestPath)
	require.Error(t, err)
}

func TestCheck_PassesOnMatchingDigest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CERTS.jsonl", `{"a":1}`)
	err := Write(dir, []string{"CERTS.jsonl"})
	require.NoError(t, err)
	entries, err := Parse(filepath.Join(dir, "MANIFEST.sha256"))
	require.NoError(t, err)
	require.NoError(t, Check(dir, entries))
}

func TestCheck_FailsOnTamperedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CERTS.jsonl", `{"a":1}`)
	require.NoError(t, Write(dir, []string{"CERTS.jsonl"}))
	entries, err := Parse(filepath.Join(dir, "MANIFEST.sha256"))
	require.NoError(t, err)
	writeFile(t, dir, "CERTS.jsonl", `{"a":2}`)
	require.Error(t, Check(dir, entries))
}

func TestCheck_FailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CERTS.jsonl", `{"a":1}`)
	require.NoError(t, Write(dir, []string{"CERTS.jsonl"}))
	entries, err := Parse(filepath.Join(dir, "MANIFEST.sha256"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "CERTS.jsonl")))
	require.Error(t, Check(dir, entries))
}

func TestCheck_AllowsExtraFilesNotInManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "CERTS.jsonl", `{"a":1}`)
	writeFile(t, dir, "EXTRA.txt", "not tracked")
	require.NoError(t, Write(dir, []string{"CERTS.jsonl"}))
	entries, err := Parse(filepath.Join(dir, "MANIFEST.sha256"))
	require.NoError(t, err)
	require.NoError(t, Check(dir, entries))
}

func TestWrite_ExcludesItselfAndSortsAscending(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.txt", "a")
	require.NoError(t, Write(dir, []string{"b.txt", "a.txt", "MANIFEST.sha256"}))
	entries, err := Parse(filepath.Join(dir, "MANIFEST.sha256"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a.txt", entries[0].RelPath)
	require.Equal(t, "b.txt", entries[1].RelPath)
}
