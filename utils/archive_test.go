package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "dataset.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestExtractArchive(t *testing.T) {
	src := writeZip(t, map[string][]byte{
		"ETL1/ETL1C_01": []byte("section data"),
		"ETL1/README":   []byte("about"),
	})
	dest := t.TempDir()

	files, err := ExtractArchive(src, dest)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	data, err := os.ReadFile(filepath.Join(dest, "ETL1", "ETL1C_01"))
	require.NoError(t, err)
	assert.Equal(t, []byte("section data"), data)
}

func TestExtractArchiveRejectsEscape(t *testing.T) {
	src := writeZip(t, map[string][]byte{
		"../evil": []byte("nope"),
	})
	parent := t.TempDir()
	dest := filepath.Join(parent, "out")

	_, err := ExtractArchive(src, dest)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(parent, "evil"))
}

func TestExtractArchiveMissing(t *testing.T) {
	_, err := ExtractArchive(filepath.Join(t.TempDir(), "absent.zip"), t.TempDir())
	assert.Error(t, err)
}
