package etl

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/unicode/norm"
)

const (
	// NoChar fills a record slot that carries no character at all. A raw
	// code of zero resolves to it on every strategy, before any lookup.
	NoChar = "\x00"
	// NullLabel is written to the label files for a record whose
	// character failed to decode.
	NullLabel = "__null__"
)

var (
	hiraOldKana = strings.NewReplacer("ぃ", "ゐ", "ぇ", "ゑ")
	kataOldKana = strings.NewReplacer("ィ", "ヰ", "ェ", "ヱ")
)

// ResolveChar turns a record's raw code fields into its character. Table
// misses are logged and yield NoChar; tuple misses and escape failures
// come back as errors for the caller to turn into NullLabel. Neither
// stops the file.
func ResolveChar(f *Format, rec *Record, tables *CodeTables, log *zap.Logger) (string, error) {
	switch f.Strategy {
	case StrategyJIS0201:
		ch, ok := lookupJIS0201(f, rec, tables, log)
		if !ok {
			return ch, nil
		}
		return foldFullwidth(ch, "ウ゛"), nil
	case StrategyHiragana:
		ch, ok := lookupJIS0201(f, rec, tables, log)
		if !ok {
			return ch, nil
		}
		return jisToHiragana(ch), nil
	case StrategyClassBranch:
		ch, ok := lookupJIS0201(f, rec, tables, log)
		if !ok {
			return ch, nil
		}
		switch class := rec.fieldString(f.ClassField); {
		case strings.HasPrefix(class, "H"):
			ch = hiraOldKana.Replace(kataToHira(hanToZen(ch)))
		case strings.HasPrefix(class, "K"):
			ch = kataOldKana.Replace(hanToZen(ch))
		}
		return jisToHiragana(ch), nil
	case StrategyCO59:
		code, _ := rec.fieldTuple(f.CodeField)
		if code == (CO59Code{}) {
			return NoChar, nil
		}
		ch, ok := tables.CO59[code]
		if !ok {
			return "", &TupleLookupMiss{Code: code}
		}
		return ch, nil
	case StrategyEscape:
		return resolveEscape(rec.fieldString(f.CodeField))
	}
	return "", fmt.Errorf("%s: unhandled strategy %d", f.Name, f.Strategy)
}

// lookupJIS0201 resolves the record's hex code through the JIS X 0201
// table. The second return is false when the character is settled: a
// zero code or a logged miss, both yielding NoChar with no fold applied.
func lookupJIS0201(f *Format, rec *Record, tables *CodeTables, log *zap.Logger) (string, bool) {
	raw := strings.TrimPrefix(rec.fieldString(f.CodeField), "0x")
	code, err := strconv.ParseUint(raw, 16, 16)
	if err != nil {
		log.Warn("unparsable character code",
			zap.String("format", f.Name), zap.String("code", raw))
		return NoChar, false
	}
	if code == 0 {
		return NoChar, false
	}
	r, ok := tables.JIS0201[uint16(code)]
	if !ok {
		log.Warn("character code not in table",
			zap.String("format", f.Name),
			zap.Error(&CodeLookupMiss{Table: "jis0201", Code: uint16(code)}))
		return NoChar, false
	}
	return string(r), true
}

// resolveEscape decodes a four-digit kanji code by framing it in an
// ISO-2022-JP escape sequence. The decoder substitutes U+FFFD rather
// than failing, so a replacement rune in the output is a decode failure.
func resolveEscape(code string) (string, error) {
	raw, err := hex.DecodeString(code)
	if err != nil || len(raw) != 2 {
		return "", &EscapeDecodeFailure{Code: code, Err: err}
	}
	if raw[0] == 0 && raw[1] == 0 {
		return NoChar, nil
	}
	seq := []byte{0x1b, '$', 'B', raw[0], raw[1], 0x1b, '(', 'B'}
	out, err := japanese.ISO2022JP.NewDecoder().Bytes(seq)
	if err != nil {
		return "", &EscapeDecodeFailure{Code: code, Err: err}
	}
	ch := string(out)
	if ch == "" || strings.ContainsRune(ch, utf8.RuneError) {
		return "", &EscapeDecodeFailure{Code: code}
	}
	return ch, nil
}

// foldFullwidth collapses a half-width katakana character to its
// full-width form, leaving anything else untouched. vu is the spelling
// substituted for ヴ; the kana generations write it differently.
func foldFullwidth(ch, vu string) string {
	r, _ := utf8.DecodeRuneInString(ch)
	if r < 0xFF61 || r > 0xFF9F {
		return ch
	}
	return strings.ReplaceAll(norm.NFKC.String(ch), "ヴ", vu)
}

// jisToHiragana folds a half-width katakana character through its
// full-width form down to hiragana. Characters outside the half-width
// block, and folds that land outside the katakana range, pass through
// unchanged.
func jisToHiragana(ch string) string {
	r, _ := utf8.DecodeRuneInString(ch)
	if r < 0xFF61 || r > 0xFF9F {
		return ch
	}
	x := strings.ReplaceAll(norm.NFKC.String(ch), "ヴ", "う゛")
	xr, size := utf8.DecodeRuneInString(x)
	if size == len(x) && xr >= 0x30A1 && xr <= 0x30F3 {
		return string(xr - 0x60)
	}
	return ch
}

// hanToZen folds half-width katakana runes to their full-width forms.
func hanToZen(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0xFF61 && r <= 0xFF9F {
			b.WriteString(norm.NFKC.String(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// kataToHira shifts full-width katakana down to the hiragana block.
func kataToHira(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x30A1 && r <= 0x30F6 {
			return r - 0x60
		}
		return r
	}, s)
}
