// Package etl decodes the fixed-record binary files of the ETL
// handwritten-character database into tiled grid images, aligned label
// texts and per-record metadata tables. Each dataset generation has its
// own record layout and character encoding; the registry in this file
// describes all of them.
package etl

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FieldKind selects how a field's bits are decoded.
type FieldKind int

const (
	KindUint  FieldKind = iota // fixed-width unsigned integer
	KindHex                    // fixed-width value kept as hex digits
	KindBytes                  // fixed-length byte string decoded as text
	KindT56                    // grouped 6-bit symbols through the T56 table
	KindCO59                   // two 6-bit numbers forming a CO-59 pair
	KindPad                    // consumed, never surfaced
	KindImage                  // bit-packed image payload
)

// TextEncoding names the character set of a byte-string field.
type TextEncoding int

const (
	EncASCII TextEncoding = iota
	EncShiftJIS
)

// FieldSpec declares one slot in a record layout.
type FieldSpec struct {
	Name   string
	Kind   FieldKind
	Bits   int
	Groups int          // KindT56: number of 6-bit symbols
	Enc    TextEncoding // KindBytes only
}

// Geometry fixes the image payload shape of one format. Scale is the
// factor that stretches raw samples onto the 0..255 intensity range.
type Geometry struct {
	Width  int
	Height int
	Depth  int // bits per pixel: 1, 4 or 6
	Scale  int
}

// Strategy tags the character-resolution logic of one format.
type Strategy int

const (
	StrategyJIS0201     Strategy = iota // JIS X 0201 table, half-width folded to full-width
	StrategyHiragana                    // JIS X 0201 table, folded down to hiragana
	StrategyClassBranch                 // fold chosen by the record's character-class symbols
	StrategyCO59                        // CO-59 tuple table
	StrategyEscape                      // ISO-2022-JP escape sequence
)

// Format describes one on-disk record layout variant. Formats are fixed
// at startup and shared read-only across workers.
type Format struct {
	Name        string
	Prefix      string // file base-name prefix that selects this format
	RecordSize  int    // bytes per record
	SkipRecords int    // leading header records that are not data
	Fields      []FieldSpec
	Geom        Geometry
	Strategy    Strategy
	CodeField   string // field carrying the raw character code
	ClassField  string // StrategyClassBranch: auxiliary class symbols
}

func uintField(name string, bits int) FieldSpec {
	return FieldSpec{Name: name, Kind: KindUint, Bits: bits}
}

func hexField(name string, bits int) FieldSpec {
	return FieldSpec{Name: name, Kind: KindHex, Bits: bits}
}

func padField(bits int) FieldSpec {
	return FieldSpec{Kind: KindPad, Bits: bits}
}

func imageField(bytes int) FieldSpec {
	return FieldSpec{Name: "Image Data", Kind: KindImage, Bits: bytes * 8}
}

func co59Field(name string) FieldSpec {
	return FieldSpec{Name: name, Kind: KindCO59, Bits: 12}
}

func bytesField(name string, bytes int, enc TextEncoding) FieldSpec {
	return FieldSpec{Name: name, Kind: KindBytes, Bits: bytes * 8, Enc: enc}
}

func t56Field(name string, groups int) FieldSpec {
	return FieldSpec{Name: name, Kind: KindT56, Bits: groups * 6, Groups: groups}
}

// The oldest generations (ETL1, ETL6, ETL7) share one layout.
var etl167Fields = []FieldSpec{
	uintField("Data Number", 16),
	bytesField("Character Code", 2, EncASCII),
	uintField("Serial Sheet Number", 16),
	hexField("JIS Code", 8),
	hexField("EBCDIC Code", 8),
	uintField("Evaluation of Individual Character Image", 8),
	uintField("Evaluation of Character Group", 8),
	uintField("Male-Female Code", 8),
	uintField("Age of Writer", 8),
	uintField("Serial Data Number", 32),
	uintField("Industry Classification Code", 16),
	uintField("Occupation Classification Code", 16),
	uintField("Sheet Gatherring Date", 16),
	uintField("Scanning Date", 16),
	uintField("Sample Position Y on Sheet", 8),
	uintField("Sample Position X on Sheet", 8),
	uintField("Minimum Scanned Level", 8),
	uintField("Maximum Scanned Level", 8),
	padField(32),
	imageField(2016),
	padField(32),
}

var etl2Fields = []FieldSpec{
	uintField("Serial Data Number", 36),
	t56Field("Mark of Style", 1),
	padField(30),
	t56Field("Contents", 6),
	t56Field("Style", 6),
	padField(24),
	co59Field("CO-59 Code"),
	padField(180),
	imageField(2700),
}

var etl345Fields = []FieldSpec{
	uintField("Serial Data Number", 36),
	uintField("Serial Sheet Number", 36),
	hexField("JIS Code", 8),
	padField(28),
	hexField("EBCDIC Code", 8),
	padField(28),
	t56Field("4 Character Code", 4),
	padField(12),
	uintField("Evaluation of Individual Character Image", 36),
	uintField("Evaluation of Character Group", 36),
	uintField("Sample Position Y on Sheet", 36),
	uintField("Sample Position X on Sheet", 36),
	uintField("Male-Female Code", 36),
	uintField("Age of Writer", 36),
	uintField("Industry Classification Code", 36),
	uintField("Occupation Classification Code", 36),
	uintField("Sheet Gatherring Date", 36),
	uintField("Scanning Date", 36),
	uintField("Number of X-Axis Sampling Points", 36),
	uintField("Number of Y-Axis Sampling Points", 36),
	uintField("Number of Levels of Pixel", 36),
	uintField("Magnification of Scanning Lenz", 36),
	uintField("Serial Data Number (old)", 36),
	padField(1008),
	imageField(2736),
}

// ETL8G and ETL9G differ only in where their padding sits.
func etl89gFields(lead, tail int) []FieldSpec {
	return []FieldSpec{
		uintField("Serial Sheet Number", 16),
		hexField("JIS Kanji Code", 16),
		bytesField("JIS Typical Reading", 8, EncASCII),
		uintField("Serial Data Number", 32),
		uintField("Evaluation of Individual Character Image", 8),
		uintField("Evaluation of Character Group", 8),
		uintField("Male-Female Code", 8),
		uintField("Age of Writer", 8),
		uintField("Industry Classification Code", 16),
		uintField("Occupation Classification Code", 16),
		uintField("Sheet Gatherring Date", 16),
		uintField("Scanning Date", 16),
		uintField("Sample Position X on Sheet", 8),
		uintField("Sample Position Y on Sheet", 8),
		padField(lead),
		imageField(8128),
		padField(tail),
	}
}

func etl89bFields(enc TextEncoding, tailPad int) []FieldSpec {
	fields := []FieldSpec{
		uintField("Serial Sheet Number", 16),
		hexField("JIS Kanji Code", 16),
		bytesField("JIS Typical Reading", 4, enc),
		imageField(504),
	}
	if tailPad > 0 {
		fields = append(fields, padField(tailPad))
	}
	return fields
}

var (
	geom167 = Geometry{Width: 64, Height: 63, Depth: 4, Scale: 16}
	geom2   = Geometry{Width: 60, Height: 60, Depth: 6, Scale: 4}
	geom345 = Geometry{Width: 72, Height: 76, Depth: 4, Scale: 16}
	geom89g = Geometry{Width: 128, Height: 127, Depth: 4, Scale: 16}
	geom89b = Geometry{Width: 64, Height: 63, Depth: 1, Scale: 255}
)

// Formats is the registry of every known layout, ordered longest prefix
// first so a looser pattern never claims a more specific generation's
// files. The first record of ETL8B and ETL9B files is a header, not data.
var Formats = []*Format{
	{Name: "ETL8B", Prefix: "ETL8B", RecordSize: 512, SkipRecords: 1,
		Fields: etl89bFields(EncASCII, 0), Geom: geom89b,
		Strategy: StrategyEscape, CodeField: "JIS Kanji Code"},
	{Name: "ETL8G", Prefix: "ETL8G", RecordSize: 8199,
		Fields: etl89gFields(240, 88), Geom: geom89g,
		Strategy: StrategyEscape, CodeField: "JIS Kanji Code"},
	{Name: "ETL9B", Prefix: "ETL9B", RecordSize: 576, SkipRecords: 1,
		Fields: etl89bFields(EncShiftJIS, 512), Geom: geom89b,
		Strategy: StrategyEscape, CodeField: "JIS Kanji Code"},
	{Name: "ETL9G", Prefix: "ETL9G", RecordSize: 8199,
		Fields: etl89gFields(272, 56), Geom: geom89g,
		Strategy: StrategyEscape, CodeField: "JIS Kanji Code"},
	{Name: "ETL1", Prefix: "ETL1", RecordSize: 2052,
		Fields: etl167Fields, Geom: geom167,
		Strategy: StrategyJIS0201, CodeField: "JIS Code"},
	{Name: "ETL2", Prefix: "ETL2", RecordSize: 2745,
		Fields: etl2Fields, Geom: geom2,
		Strategy: StrategyCO59, CodeField: "CO-59 Code"},
	{Name: "ETL3", Prefix: "ETL3", RecordSize: 2952,
		Fields: etl345Fields, Geom: geom345,
		Strategy: StrategyClassBranch, CodeField: "JIS Code", ClassField: "4 Character Code"},
	{Name: "ETL4", Prefix: "ETL4", RecordSize: 2952,
		Fields: etl345Fields, Geom: geom345,
		Strategy: StrategyClassBranch, CodeField: "JIS Code", ClassField: "4 Character Code"},
	{Name: "ETL5", Prefix: "ETL5", RecordSize: 2952,
		Fields: etl345Fields, Geom: geom345,
		Strategy: StrategyClassBranch, CodeField: "JIS Code", ClassField: "4 Character Code"},
	{Name: "ETL6", Prefix: "ETL6", RecordSize: 2052,
		Fields: etl167Fields, Geom: geom167,
		Strategy: StrategyJIS0201, CodeField: "JIS Code"},
	{Name: "ETL7", Prefix: "ETL7", RecordSize: 2052,
		Fields: etl167Fields, Geom: geom167,
		Strategy: StrategyHiragana, CodeField: "JIS Code"},
}

func init() {
	if len(t56Symbols) != 64 {
		panic(fmt.Sprintf("etl: T56 table has %d symbols, want 64", len(t56Symbols)))
	}
	for _, f := range Formats {
		if err := f.validate(); err != nil {
			panic(fmt.Sprintf("etl: format %s: %v", f.Name, err))
		}
	}
}

// validate checks a layout once at registry construction. A failure here
// is a typo in the tables above, not a runtime condition.
func (f *Format) validate() error {
	bits := 0
	imageBytes := -1
	names := make(map[string]bool)
	for _, fs := range f.Fields {
		switch fs.Kind {
		case KindUint:
			if fs.Bits < 1 || fs.Bits > maxFieldBits {
				return fmt.Errorf("uint field %q is %d bits wide", fs.Name, fs.Bits)
			}
		case KindHex:
			if fs.Bits < 4 || fs.Bits%4 != 0 || fs.Bits > maxFieldBits {
				return fmt.Errorf("hex field %q is %d bits wide", fs.Name, fs.Bits)
			}
		case KindBytes, KindImage:
			if fs.Bits%8 != 0 {
				return fmt.Errorf("byte field %q is %d bits wide", fs.Name, fs.Bits)
			}
			if bits%8 != 0 {
				return fmt.Errorf("byte field %q starts off a byte boundary", fs.Name)
			}
			if fs.Kind == KindImage {
				imageBytes = fs.Bits / 8
			}
		case KindT56:
			if fs.Groups < 1 || fs.Bits != fs.Groups*6 {
				return fmt.Errorf("T56 field %q: %d groups in %d bits", fs.Name, fs.Groups, fs.Bits)
			}
		case KindCO59:
			if fs.Bits != 12 {
				return fmt.Errorf("CO-59 field %q is %d bits wide", fs.Name, fs.Bits)
			}
		case KindPad:
			if fs.Name != "" {
				return fmt.Errorf("padding carries a name %q", fs.Name)
			}
		}
		if fs.Kind != KindPad {
			if fs.Name == "" {
				return fmt.Errorf("unnamed %v field", fs.Kind)
			}
			if names[fs.Name] {
				return fmt.Errorf("duplicate field %q", fs.Name)
			}
			names[fs.Name] = true
		}
		bits += fs.Bits
	}
	if bits != f.RecordSize*8 {
		return fmt.Errorf("layout is %d bits, record size implies %d", bits, f.RecordSize*8)
	}
	need := (f.Geom.Width*f.Geom.Height*f.Geom.Depth + 7) / 8
	if imageBytes != need {
		return fmt.Errorf("image field is %d bytes, geometry needs %d", imageBytes, need)
	}
	if !names[f.CodeField] {
		return fmt.Errorf("code field %q not in layout", f.CodeField)
	}
	if f.Strategy == StrategyClassBranch && !names[f.ClassField] {
		return fmt.Errorf("class field %q not in layout", f.ClassField)
	}
	return nil
}

// ResolveFormat picks the record format for an ETL file. Matching runs on
// the base name, first prefix wins.
func ResolveFormat(filename string) (*Format, error) {
	base := filepath.Base(filename)
	for _, f := range Formats {
		if strings.HasPrefix(base, f.Prefix) {
			return f, nil
		}
	}
	return nil, &UnknownFormatError{Name: base}
}

// csvHeader lists the metadata columns: every named field except the
// image payload.
func (f *Format) csvHeader() []string {
	cols := make([]string, 0, len(f.Fields))
	for _, fs := range f.Fields {
		if fs.Kind == KindPad || fs.Kind == KindImage {
			continue
		}
		cols = append(cols, fs.Name)
	}
	return cols
}
