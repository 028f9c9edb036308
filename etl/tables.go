package etl

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// t56Symbols maps the 6-bit symbol codes the oldest ETL generations use
// for style marks, content tags and character classes.
const t56Symbols = `0123456789[#@:>? ABCDEFGHI&.](<  JKLMNOPQR-$*);'|/STUVWXYZ ,%="!`

func t56(code uint64) string { return string(t56Symbols[code&0x3F]) }

// CO59Code is one CO-59 character code, a (row, column) pair.
type CO59Code struct {
	Row int
	Col int
}

// CodeTables bundles the three lookup tables record decoding needs. They
// are loaded once per run and shared read-only across all workers; decode
// calls receive them explicitly instead of reaching for globals.
type CodeTables struct {
	JIS0201 map[uint16]rune
	JIS0208 map[uint16]rune
	CO59    map[CO59Code]string
}

// LoadTables reads the two JIS hex-pair tables and the EUC-JP encoded
// CO-59 tuple table. Any malformed entry fails the whole load: decoding
// must never start on a partial table.
func LoadTables(jis0201Path, jis0208Path, co59Path string) (*CodeTables, error) {
	t := &CodeTables{}
	var err error
	if t.JIS0201, err = loadJISTable(jis0201Path); err != nil {
		return nil, err
	}
	if t.JIS0208, err = loadJISTable(jis0208Path); err != nil {
		return nil, err
	}
	if t.CO59, err = loadCO59Table(co59Path); err != nil {
		return nil, err
	}
	return t, nil
}

// loadJISTable parses a tab-separated table of hex code pairs. Lines
// starting with # are comments; columns past the second are ignored.
func loadJISTable(path string) (map[uint16]rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MissingTableFile{Path: path, Err: err}
	}
	defer f.Close()

	table := make(map[uint16]rune)
	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			return nil, &MalformedTableLine{Path: path, Line: lineno, Text: line}
		}
		code, err1 := parseHexCode(parts[0])
		val, err2 := parseHexCode(parts[1])
		if err1 != nil || err2 != nil {
			return nil, &MalformedTableLine{Path: path, Line: lineno, Text: line}
		}
		table[uint16(code)] = rune(val)
	}
	if err := sc.Err(); err != nil {
		return nil, &MissingTableFile{Path: path, Err: err}
	}
	return table, nil
}

func parseHexCode(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "0x"), 16, 16)
}

// loadCO59Table parses the EUC-JP tuple table: whitespace-separated
// entries of the form <char>:<row>,<col>.
func loadCO59Table(path string) (map[CO59Code]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &MissingTableFile{Path: path, Err: err}
	}
	decoded, err := japanese.EUCJP.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, &MissingTableFile{Path: path, Err: err}
	}
	text := string(decoded)
	if strings.ContainsRune(text, utf8.RuneError) {
		return nil, &MalformedTableLine{Path: path, Text: "<invalid EUC-JP byte sequence>"}
	}

	table := make(map[CO59Code]string)
	for _, entry := range strings.Fields(text) {
		sep := strings.LastIndex(entry, ":")
		if sep < 1 || sep == len(entry)-1 {
			return nil, &MalformedTableLine{Path: path, Text: entry}
		}
		rowcol := strings.Split(entry[sep+1:], ",")
		if len(rowcol) != 2 {
			return nil, &MalformedTableLine{Path: path, Text: entry}
		}
		row, err1 := strconv.Atoi(rowcol[0])
		col, err2 := strconv.Atoi(rowcol[1])
		if err1 != nil || err2 != nil {
			return nil, &MalformedTableLine{Path: path, Text: entry}
		}
		table[CO59Code{Row: row, Col: col}] = entry[:sep]
	}
	return table, nil
}
