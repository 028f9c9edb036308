package etl

import (
	"errors"
	"io"
)

var errUnalignedRead = errors.New("bit cursor not on a byte boundary")

// maxFieldBits is the widest single readBits call the cursor supports.
// With up to 7 leftover bits already in the accumulator, a wider read
// shifts loaded bytes off the top of acc before they can be returned.
const maxFieldBits = 57

// bitReader walks a byte buffer most-significant-bit first, the order the
// ETL scanning hardware recorded its fields in.
type bitReader struct {
	data []byte
	acc  uint64
	n    uint8
	pos  int
}

func newBitReader(b []byte) *bitReader { return &bitReader{data: b} }

// readBits returns the next bits as an unsigned integer. Widths up to
// maxFieldBits are supported; validate holds every registry field to that.
func (r *bitReader) readBits(bits uint8) (uint64, error) {
	for r.n < bits {
		if r.pos >= len(r.data) {
			return 0, io.ErrUnexpectedEOF
		}
		r.acc = r.acc<<8 | uint64(r.data[r.pos])
		r.n += 8
		r.pos++
	}
	r.n -= bits
	v := r.acc >> r.n
	r.acc &= (1 << r.n) - 1
	return v, nil
}

// skipBits discards the next count bits.
func (r *bitReader) skipBits(count int) error {
	for count > 0 {
		step := count
		if step > 32 {
			step = 32
		}
		if _, err := r.readBits(uint8(step)); err != nil {
			return err
		}
		count -= step
	}
	return nil
}

// readBytes returns the next n bytes without copying. The cursor must sit
// on a byte boundary; the registry layouts guarantee that for every byte
// field, so hitting errUnalignedRead means a broken layout table.
func (r *bitReader) readBytes(n int) ([]byte, error) {
	if r.n != 0 {
		return nil, errUnalignedRead
	}
	if r.pos+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
