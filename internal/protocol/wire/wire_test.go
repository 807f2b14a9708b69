package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(32)
	w.I32(-7)
	w.F32(0.25)
	w.Bool(true)
	w.U16(0xBEEF)
	w.I64(math.MinInt64)
	w.Raw([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	if got := r.I32(); got != -7 {
		t.Fatalf("i32 got=%d", got)
	}
	if got := r.F32(); got != 0.25 {
		t.Fatalf("f32 got=%v", got)
	}
	if got := r.U8(); got != 1 {
		t.Fatalf("bool byte got=%d", got)
	}
	if got := r.U16(); got != 0xBEEF {
		t.Fatalf("u16 got=%x", got)
	}
	if got := r.I64(); got != math.MinInt64 {
		t.Fatalf("i64 got=%d", got)
	}
	if got := r.Rest(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("rest got=%v", got)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected err: %v", r.Err())
	}
}

func TestReaderLittleEndianLayout(t *testing.T) {
	r := NewReader([]byte{0x02, 0x00, 0x00, 0x00})
	if got := r.U32(); got != 2 {
		t.Fatalf("expected little-endian 2, got %d", got)
	}
}

func TestReaderShortReadIsSticky(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if got := r.U32(); got != 0 {
		t.Fatalf("expected zero value on short read, got %d", got)
	}
	if !errors.Is(r.Err(), ErrShort) {
		t.Fatalf("expected ErrShort, got %v", r.Err())
	}
	if got := r.U8(); got != 0 {
		t.Fatalf("expected sticky failure, got %d", got)
	}
}

func TestReaderBytesCopies(t *testing.T) {
	src := []byte{9, 8, 7}
	r := NewReader(src)
	out := r.Bytes(3)
	src[0] = 0
	if out[0] != 9 {
		t.Fatalf("reader must not alias the borrowed buffer")
	}
}
