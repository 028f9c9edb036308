package etl

import (
	"encoding/binary"
	"encoding/csv"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// makeETL8BFile writes a synthetic ETL8B section: the header record
// followed by one record per code, all with reading "A.HI" and the
// first pixel of the bitmap set.
func makeETL8BFile(t *testing.T, dir, name string, codes []uint16) string {
	t.Helper()
	buf := make([]byte, 512*(len(codes)+1))
	for i, code := range codes {
		o := 512 * (i + 1)
		binary.BigEndian.PutUint16(buf[o:], uint16(i+1))
		binary.BigEndian.PutUint16(buf[o+2:], code)
		copy(buf[o+4:], "A.HI")
		buf[o+8] = 0x80
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(string(data), "\n")
}

func grayAt(t *testing.T, path string, x, y int) uint32 {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	r, _, _, _ := img.At(x, y).RGBA()
	return r
}

func TestUnpackFile(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	path := makeETL8BFile(t, srcDir, "ETL8B2_00", []uint16{0x2422, 0x0000, 0x2423})

	res := UnpackFile(path, outDir, testTables(), zap.NewNop())
	require.NoError(t, res.Err)
	assert.True(t, res.Ok())
	assert.Equal(t, "ETL8B2_00", res.Base)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 1, res.Batches)
	assert.Len(t, res.Checksum, 16)

	lines := readLines(t, filepath.Join(outDir, "ETL8B2_00_00.txt"))
	require.Len(t, lines, gridRows)
	assert.Equal(t, "あ"+NoChar+"ぃ", lines[0])
	assert.Empty(t, lines[39])

	sheet := filepath.Join(outDir, "ETL8B2_00_00.png")
	assert.Equal(t, uint32(0xFFFF), grayAt(t, sheet, 0, 0))
	assert.Equal(t, uint32(0xFFFF), grayAt(t, sheet, 128, 0))
	assert.Equal(t, uint32(0), grayAt(t, sheet, 192, 0))

	cf, err := os.Open(filepath.Join(outDir, "ETL8B2_00.csv"))
	require.NoError(t, err)
	defer cf.Close()
	rows, err := csv.NewReader(cf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Serial Sheet Number", "JIS Kanji Code", "JIS Typical Reading"}, rows[0])
	assert.Equal(t, []string{"1", "2422", "A.HI"}, rows[1])
	assert.Equal(t, []string{"2", "0000", "A.HI"}, rows[2])

	// Same bytes, same checksum.
	again := UnpackFile(path, outDir, testTables(), zap.NewNop())
	assert.Equal(t, res.Checksum, again.Checksum)
}

func TestUnpackFileUndecodableCharacter(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	// 0x0101 is not a valid JIS X 0208 cell: the escape decode fails and
	// the record keeps its slot under the null label.
	path := makeETL8BFile(t, srcDir, "ETL8B2_00", []uint16{0x2422, 0x0101, 0x2423})

	res := UnpackFile(path, outDir, testTables(), zap.NewNop())
	require.NoError(t, res.Err)
	assert.True(t, res.Ok())
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 1, res.Batches)

	lines := readLines(t, filepath.Join(outDir, "ETL8B2_00_00.txt"))
	require.Len(t, lines, gridRows)
	assert.Equal(t, "あ"+NullLabel+"ぃ", lines[0])

	cf, err := os.Open(filepath.Join(outDir, "ETL8B2_00.csv"))
	require.NoError(t, err)
	defer cf.Close()
	rows, err := csv.NewReader(cf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2", "0101", "A.HI"}, rows[2])
}

func TestUnpackFileAlongsideSource(t *testing.T) {
	dir := t.TempDir()
	path := makeETL8BFile(t, dir, "ETL8B2_00", []uint16{0x2422})

	res := UnpackFile(path, "", testTables(), zap.NewNop())
	require.NoError(t, res.Err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t,
		[]string{"ETL8B2_00", "ETL8B2_00_00.txt", "ETL8B2_00_00.png", "ETL8B2_00.csv"},
		names)
}

func TestUnpackFileUnknownFormat(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	path := filepath.Join(srcDir, "MNIST_00")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0644))

	res := UnpackFile(path, outDir, testTables(), zap.NewNop())
	var ufe *UnknownFormatError
	require.ErrorAs(t, res.Err, &ufe)
	assert.False(t, res.Ok())
	assert.Zero(t, res.Records)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnpackFileTruncated(t *testing.T) {
	t.Run("mid-record", func(t *testing.T) {
		srcDir, outDir := t.TempDir(), t.TempDir()
		path := makeETL8BFile(t, srcDir, "ETL8B2_00", []uint16{0x2422})
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, append(data, make([]byte, 100)...), 0644))

		res := UnpackFile(path, outDir, testTables(), zap.NewNop())
		var tre *TruncatedRecordError
		require.ErrorAs(t, res.Err, &tre)
		assert.Equal(t, 100, tre.Remain)

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "partial artifacts must be removed")
	})

	t.Run("shorter than the header", func(t *testing.T) {
		srcDir, outDir := t.TempDir(), t.TempDir()
		path := filepath.Join(srcDir, "ETL8B2_00")
		require.NoError(t, os.WriteFile(path, make([]byte, 100), 0644))

		res := UnpackFile(path, outDir, testTables(), zap.NewNop())
		var tre *TruncatedRecordError
		require.ErrorAs(t, res.Err, &tre)
		assert.Equal(t, 512, tre.Need)

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestUnpackFileBatchRollover(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	codes := make([]uint16, 2500)
	for i := range codes {
		codes[i] = 0x2422
	}
	path := makeETL8BFile(t, srcDir, "ETL8B2_00", codes)

	res := UnpackFile(path, outDir, testTables(), zap.NewNop())
	require.NoError(t, res.Err)
	assert.Equal(t, 2500, res.Records)
	assert.Equal(t, 2, res.Batches)

	full := readLines(t, filepath.Join(outDir, "ETL8B2_00_00.txt"))
	require.Len(t, full, gridRows)
	for _, line := range full {
		assert.Equal(t, strings.Repeat("あ", gridCols), line)
	}

	rest := readLines(t, filepath.Join(outDir, "ETL8B2_00_01.txt"))
	require.Len(t, rest, gridRows)
	for _, line := range rest[:10] {
		assert.Equal(t, strings.Repeat("あ", gridCols), line)
	}
	for _, line := range rest[10:] {
		assert.Empty(t, line)
	}

	// Record 2500 sits in cell 499 of the second sheet; cell 500 is blank.
	sheet := filepath.Join(outDir, "ETL8B2_00_01.png")
	assert.Equal(t, uint32(0xFFFF), grayAt(t, sheet, 49*64, 9*63))
	assert.Equal(t, uint32(0), grayAt(t, sheet, 0, 10*63))
}

func TestUnpackFileHeaderOnly(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	path := makeETL8BFile(t, srcDir, "ETL8B2_00", nil)

	res := UnpackFile(path, outDir, testTables(), zap.NewNop())
	require.NoError(t, res.Err)
	assert.Zero(t, res.Records)
	assert.Zero(t, res.Batches)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ETL8B2_00.csv", entries[0].Name())

	rows, err := csv.NewReader(strings.NewReader(readFileString(t, filepath.Join(outDir, "ETL8B2_00.csv")))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Serial Sheet Number", "JIS Kanji Code", "JIS Typical Reading"}, rows[0])
}

func readFileString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
