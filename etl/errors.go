package etl

import "fmt"

// UnknownFormatError reports a file whose name matches no registry prefix.
// It fires before a single byte is read, so the file produces no artifacts.
type UnknownFormatError struct {
	Name string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("no record format matches %q", e.Name)
}

// TruncatedRecordError reports a file that ends in the middle of a record.
// It fails the whole file.
type TruncatedRecordError struct {
	Format string
	Offset int // byte offset the record started at
	Remain int // bytes left, fewer than one record
	Need   int // record size of the format
}

func (e *TruncatedRecordError) Error() string {
	return fmt.Sprintf("%s: truncated record at offset %d: %d of %d bytes",
		e.Format, e.Offset, e.Remain, e.Need)
}

// ImageSizeMismatch reports an image payload shorter than its geometry
// implies. It fails the whole file.
type ImageSizeMismatch struct {
	Want int
	Got  int
}

func (e *ImageSizeMismatch) Error() string {
	return fmt.Sprintf("image payload is %d bytes, geometry needs %d", e.Got, e.Want)
}

// CodeLookupMiss notes a character code absent from its lookup table.
// Misses are logged and the record keeps the no-character sentinel; they
// never stop a file.
type CodeLookupMiss struct {
	Table string
	Code  uint16
}

func (e *CodeLookupMiss) Error() string {
	return fmt.Sprintf("%s has no entry for code 0x%04x", e.Table, e.Code)
}

// TupleLookupMiss reports a CO-59 pair absent from the tuple table. It
// fails the one record carrying it, never the whole file.
type TupleLookupMiss struct {
	Code CO59Code
}

func (e *TupleLookupMiss) Error() string {
	return fmt.Sprintf("co59 table has no entry for (%d, %d)", e.Code.Row, e.Code.Col)
}

// EscapeDecodeFailure reports a kanji code whose ISO-2022-JP escape
// sequence does not decode to a character. Like a tuple miss it costs
// only the record carrying it.
type EscapeDecodeFailure struct {
	Code string
	Err  error
}

func (e *EscapeDecodeFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jis code %q does not decode: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("jis code %q decodes to no valid character", e.Code)
}

func (e *EscapeDecodeFailure) Unwrap() error { return e.Err }

// MissingTableFile reports a code table that could not be read at all.
type MissingTableFile struct {
	Path string
	Err  error
}

func (e *MissingTableFile) Error() string {
	return fmt.Sprintf("code table %s: %v", e.Path, e.Err)
}

func (e *MissingTableFile) Unwrap() error { return e.Err }

// MalformedTableLine reports a table line or entry that is neither a
// comment nor a parsable code pair. Loading stops there: decoding must
// never start on a partial table.
type MalformedTableLine struct {
	Path string
	Line int // zero when the source has no line structure
	Text string
}

func (e *MalformedTableLine) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("code table %s line %d: malformed entry %q", e.Path, e.Line, e.Text)
	}
	return fmt.Sprintf("code table %s: malformed entry %q", e.Path, e.Text)
}
