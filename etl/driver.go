package etl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Result reports the outcome of unpacking one source file.
type Result struct {
	Base     string // source file name
	Records  int    // records decoded
	Batches  int    // sheet/label pairs written
	Checksum string // xxhash64 of the raw source bytes
	Err      error  // nil on success
}

func (r Result) Ok() bool { return r.Err == nil }

// UnpackFile decodes every record in one source file and writes the
// sheet, label, and metadata artifacts named after it. Artifacts land
// next to the source unless outDir says otherwise. A failure removes
// everything already written for this file; characters that fail to
// resolve are logged and labelled NullLabel without stopping the run.
func UnpackFile(path, outDir string, tables *CodeTables, log *zap.Logger) Result {
	res := Result{Base: filepath.Base(path)}
	f, err := ResolveFormat(path)
	if err != nil {
		res.Err = err
		return res
	}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("read source: %w", err)
		return res
	}
	res.Checksum = fmt.Sprintf("%016x", xxhash.Sum64(data))
	if outDir == "" {
		outDir = filepath.Dir(path)
	}

	off := f.SkipRecords * f.RecordSize
	if off > len(data) {
		res.Err = &TruncatedRecordError{Format: f.Name, Offset: 0, Remain: len(data), Need: off}
		return res
	}

	b := newGridBatcher(outDir, res.Base, f)
	for off < len(data) {
		rec, next, err := ReadRecord(data, off, f)
		if err != nil {
			b.cleanup()
			res.Err = err
			return res
		}
		ch, err := ResolveChar(f, rec, tables, log)
		if err != nil {
			log.Warn("record character failed to decode",
				zap.String("file", res.Base), zap.Int("offset", off), zap.Error(err))
			ch = NullLabel
		}
		rec.Char = ch
		img, err := DecodeImage(rec.raw, f.Geom)
		if err != nil {
			b.cleanup()
			res.Err = fmt.Errorf("record at offset %d: %w", off, err)
			return res
		}
		rec.Image = img
		if err := b.add(rec); err != nil {
			b.cleanup()
			res.Err = err
			return res
		}
		res.Records++
		off = next
	}
	if err := b.finish(); err != nil {
		b.cleanup()
		res.Err = err
		return res
	}
	res.Batches = b.seq
	return res
}
