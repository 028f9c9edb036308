package etl

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/japanese"
)

// Record is one decoded character sample: the metadata fields in layout
// order plus the resolved character and reconstructed image. The raw
// image payload never leaves the package; DecodeImage consumes it.
type Record struct {
	fields []fieldValue
	raw    []byte

	Char  string
	Image *image.Gray
}

// fieldValue holds one decoded field. val is a uint64, string or
// CO59Code depending on the field kind.
type fieldValue struct {
	name string
	val  any
}

func (r *Record) fieldString(name string) string {
	for _, fv := range r.fields {
		if fv.name == name {
			s, _ := fv.val.(string)
			return s
		}
	}
	return ""
}

func (r *Record) fieldTuple(name string) (CO59Code, bool) {
	for _, fv := range r.fields {
		if fv.name == name {
			c, ok := fv.val.(CO59Code)
			return c, ok
		}
	}
	return CO59Code{}, false
}

// csvRow renders the metadata fields in layout order: integers in
// decimal, strings as they are, CO-59 codes as their (row, col) pair.
func (r *Record) csvRow() []string {
	row := make([]string, len(r.fields))
	for i, fv := range r.fields {
		switch v := fv.val.(type) {
		case uint64:
			row[i] = strconv.FormatUint(v, 10)
		case string:
			row[i] = v
		case CO59Code:
			row[i] = fmt.Sprintf("(%d, %d)", v.Row, v.Col)
		default:
			row[i] = fmt.Sprint(v)
		}
	}
	return row
}

// ReadRecord decodes one record of format f starting at off and returns
// it with the offset of the next record. The cursor advances by exactly
// f.RecordSize bytes no matter how many bits the layout names; trailing
// unnamed bits are discarded.
func ReadRecord(buf []byte, off int, f *Format) (*Record, int, error) {
	remain := len(buf) - off
	if remain < f.RecordSize {
		return nil, 0, &TruncatedRecordError{Format: f.Name, Offset: off, Remain: remain, Need: f.RecordSize}
	}

	br := newBitReader(buf[off : off+f.RecordSize])
	rec := &Record{fields: make([]fieldValue, 0, len(f.Fields))}
	for _, fs := range f.Fields {
		switch fs.Kind {
		case KindUint:
			v, err := br.readBits(uint8(fs.Bits))
			if err != nil {
				return nil, 0, readFieldErr(f, fs, err)
			}
			rec.fields = append(rec.fields, fieldValue{fs.Name, v})
		case KindHex:
			v, err := br.readBits(uint8(fs.Bits))
			if err != nil {
				return nil, 0, readFieldErr(f, fs, err)
			}
			rec.fields = append(rec.fields, fieldValue{fs.Name, fmt.Sprintf("%0*x", fs.Bits/4, v)})
		case KindBytes:
			b, err := br.readBytes(fs.Bits / 8)
			if err != nil {
				return nil, 0, readFieldErr(f, fs, err)
			}
			rec.fields = append(rec.fields, fieldValue{fs.Name, decodeText(b, fs.Enc)})
		case KindT56:
			var sb strings.Builder
			for i := 0; i < fs.Groups; i++ {
				v, err := br.readBits(6)
				if err != nil {
					return nil, 0, readFieldErr(f, fs, err)
				}
				sb.WriteString(t56(v))
			}
			rec.fields = append(rec.fields, fieldValue{fs.Name, sb.String()})
		case KindCO59:
			row, err := br.readBits(6)
			if err != nil {
				return nil, 0, readFieldErr(f, fs, err)
			}
			col, err := br.readBits(6)
			if err != nil {
				return nil, 0, readFieldErr(f, fs, err)
			}
			rec.fields = append(rec.fields, fieldValue{fs.Name, CO59Code{Row: int(row), Col: int(col)}})
		case KindPad:
			if err := br.skipBits(fs.Bits); err != nil {
				return nil, 0, readFieldErr(f, fs, err)
			}
		case KindImage:
			b, err := br.readBytes(fs.Bits / 8)
			if err != nil {
				return nil, 0, readFieldErr(f, fs, err)
			}
			rec.raw = b
		}
	}
	return rec, off + f.RecordSize, nil
}

func readFieldErr(f *Format, fs FieldSpec, err error) error {
	return fmt.Errorf("%s: read %s: %w", f.Name, fs.Name, err)
}

// decodeText renders a byte field as text. ETL9B stores its reading in
// Shift JIS; every other byte field is plain ASCII and kept verbatim.
func decodeText(b []byte, enc TextEncoding) string {
	if enc == EncShiftJIS {
		if s, err := japanese.ShiftJIS.NewDecoder().Bytes(b); err == nil {
			return string(s)
		}
	}
	return string(b)
}
