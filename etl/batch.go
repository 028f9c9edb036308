package etl

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

const (
	gridCols  = 50
	gridRows  = 40
	batchSize = gridCols * gridRows
)

// gridBatcher accumulates decoded records into tiled sheet images with
// aligned label files, two thousand records per sheet. Metadata rows
// collect across the whole source file and land in a single table at
// the end.
type gridBatcher struct {
	prefix  string // output path stem, shared by all artifacts
	geom    Geometry
	seq     int
	count   int
	labels  []string
	canvas  *image.Gray
	header  []string
	rows    [][]string
	created []string
}

func newGridBatcher(outDir, base string, f *Format) *gridBatcher {
	g := f.Geom
	return &gridBatcher{
		prefix: filepath.Join(outDir, base),
		geom:   g,
		canvas: image.NewGray(image.Rect(0, 0, g.Width*gridCols, g.Height*gridRows)),
		header: f.csvHeader(),
	}
}

func (b *gridBatcher) add(rec *Record) error {
	x := (b.count % gridCols) * b.geom.Width
	y := (b.count / gridCols) * b.geom.Height
	cell := image.Rect(x, y, x+b.geom.Width, y+b.geom.Height)
	draw.Draw(b.canvas, cell, rec.Image, rec.Image.Rect.Min, draw.Src)
	b.labels = append(b.labels, rec.Char)
	b.rows = append(b.rows, rec.csvRow())
	b.count++
	if b.count == batchSize {
		return b.flush()
	}
	return nil
}

// flush writes the current sheet and its labels, then resets for the
// next batch. Label files always carry forty lines; a short final
// batch leaves the tail lines empty.
func (b *gridBatcher) flush() error {
	lines := make([]string, gridRows)
	for j := 0; j < gridRows; j++ {
		lo := j * gridCols
		if lo >= len(b.labels) {
			continue
		}
		hi := lo + gridCols
		if hi > len(b.labels) {
			hi = len(b.labels)
		}
		lines[j] = strings.Join(b.labels[lo:hi], "")
	}
	txt := fmt.Sprintf("%s_%02d.txt", b.prefix, b.seq)
	b.created = append(b.created, txt)
	if err := os.WriteFile(txt, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}
	sheet := fmt.Sprintf("%s_%02d.png", b.prefix, b.seq)
	b.created = append(b.created, sheet)
	if err := writePNG(sheet, b.canvas); err != nil {
		return err
	}
	b.seq++
	b.count = 0
	b.labels = b.labels[:0]
	b.canvas = image.NewGray(b.canvas.Rect)
	return nil
}

// finish flushes any partial batch and writes the metadata table. The
// table is written even when the source held no records at all.
func (b *gridBatcher) finish() error {
	if b.count > 0 {
		if err := b.flush(); err != nil {
			return err
		}
	}
	path := b.prefix + ".csv"
	b.created = append(b.created, path)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(b.header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(b.rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// cleanup removes every artifact written so far, leaving nothing
// behind when the source turns out to be bad partway through.
func (b *gridBatcher) cleanup() {
	for _, path := range b.created {
		os.Remove(path)
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
