package fast

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadPresenceMap(t *testing.T) {
	tests := []struct {
		input  []byte
		bitmap uint64
		size   uint
	}{
		{[]byte{0x80}, 0b0, 7},
		{[]byte{0x81}, 0b1, 7},
		{[]byte{0x0f, 0x8f}, 0b11110001111, 14},
	}
	for _, tt := range tests {
		bitmap, size, err := readPresenceMap(bytes.NewReader(tt.input), false)
		if err != nil {
			t.Fatalf("%x: %v", tt.input, err)
		}
		if bitmap != tt.bitmap || size != tt.size {
			t.Fatalf("%x: got (%b, %d), want (%b, %d)", tt.input, bitmap, size, tt.bitmap, tt.size)
		}
	}
}

func TestReadPresenceMapEOF(t *testing.T) {
	if _, _, err := readPresenceMap(bytes.NewReader(nil), true); !errors.Is(err, ErrEOF) {
		t.Fatalf("at message start: %v", err)
	}
	if _, _, err := readPresenceMap(bytes.NewReader(nil), false); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("mid-message: %v", err)
	}
	// stop bit never arrives
	if _, _, err := readPresenceMap(bytes.NewReader([]byte{0x01, 0x02}), false); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("truncated: %v", err)
	}
}

func TestReadUInt(t *testing.T) {
	tests := []struct {
		input []byte
		value uint64
	}{
		{[]byte{0x80}, 0},
		{[]byte{0x81}, 1},
		{[]byte{0xb9}, 57},
		{[]byte{0x00, 0x00, 0xb9}, 57},
		{[]byte{0x39, 0x45, 0xa3}, 942755},
	}
	for _, tt := range tests {
		v, err := readUInt(bytes.NewReader(tt.input))
		if err != nil {
			t.Fatalf("%x: %v", tt.input, err)
		}
		if v != tt.value {
			t.Fatalf("%x: got %d, want %d", tt.input, v, tt.value)
		}
	}
}

func TestReadUIntOverflow(t *testing.T) {
	long := bytes.Repeat([]byte{0x01}, 10)
	long = append(long, 0x81)
	if _, err := readUInt(bytes.NewReader(long)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("got %v, want ErrOverflow", err)
	}
}

func TestReadUIntNullable(t *testing.T) {
	tests := []struct {
		input   []byte
		value   uint64
		present bool
	}{
		{[]byte{0x80}, 0, false},
		{[]byte{0x81}, 0, true},
		{[]byte{0x39, 0x45, 0xa4}, 942755, true},
	}
	for _, tt := range tests {
		v, present, err := readUIntNullable(bytes.NewReader(tt.input))
		if err != nil {
			t.Fatalf("%x: %v", tt.input, err)
		}
		if present != tt.present || v != tt.value {
			t.Fatalf("%x: got (%d, %v), want (%d, %v)", tt.input, v, present, tt.value, tt.present)
		}
	}
}

func TestReadInt(t *testing.T) {
	tests := []struct {
		input []byte
		value int64
	}{
		{[]byte{0x39, 0x45, 0xa3}, 942755},
		{[]byte{0x7c, 0x1b, 0x1b, 0x9d}, -7942755},
		// sign-bit extension
		{[]byte{0x00, 0x40, 0x81}, 8193},
		{[]byte{0x7f, 0x3f, 0xff}, -8193},
	}
	for _, tt := range tests {
		v, err := readInt(bytes.NewReader(tt.input))
		if err != nil {
			t.Fatalf("%x: %v", tt.input, err)
		}
		if v != tt.value {
			t.Fatalf("%x: got %d, want %d", tt.input, v, tt.value)
		}
	}
}

func TestReadIntNullable(t *testing.T) {
	tests := []struct {
		input   []byte
		value   int64
		present bool
	}{
		{[]byte{0x80}, 0, false},
		{[]byte{0x39, 0x45, 0xa4}, 942755, true},
		{[]byte{0x46, 0x3a, 0xdd}, -942755, true},
	}
	for _, tt := range tests {
		v, present, err := readIntNullable(bytes.NewReader(tt.input))
		if err != nil {
			t.Fatalf("%x: %v", tt.input, err)
		}
		if present != tt.present || v != tt.value {
			t.Fatalf("%x: got (%d, %v), want (%d, %v)", tt.input, v, present, tt.value, tt.present)
		}
	}
}

func TestReadASCIIString(t *testing.T) {
	tests := []struct {
		input []byte
		value string
	}{
		{[]byte{0x80}, ""},
		{[]byte{0x41, 0x42, 0xc3}, "ABC"},
	}
	for _, tt := range tests {
		v, err := readASCIIString(bytes.NewReader(tt.input))
		if err != nil {
			t.Fatalf("%x: %v", tt.input, err)
		}
		if v != tt.value {
			t.Fatalf("%x: got %q, want %q", tt.input, v, tt.value)
		}
	}
}

func TestReadASCIIStringNullable(t *testing.T) {
	tests := []struct {
		input   []byte
		value   string
		present bool
	}{
		{[]byte{0x80}, "", false},
		{[]byte{0x00, 0x80}, "", true},
		{[]byte{0x41, 0x42, 0xc3}, "ABC", true},
	}
	for _, tt := range tests {
		v, present, err := readASCIIStringNullable(bytes.NewReader(tt.input))
		if err != nil {
			t.Fatalf("%x: %v", tt.input, err)
		}
		if present != tt.present || v != tt.value {
			t.Fatalf("%x: got (%q, %v), want (%q, %v)", tt.input, v, present, tt.value, tt.present)
		}
	}
}

func TestReadByteVector(t *testing.T) {
	v, err := readByteVector(bytes.NewReader([]byte{0x83, 0x41, 0x42, 0x43}))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(v, []byte{0x41, 0x42, 0x43}) {
		t.Fatalf("got %x", v)
	}

	v, present, err := readByteVectorNullable(bytes.NewReader([]byte{0x80}))
	if err != nil || present {
		t.Fatalf("null vector: %x %v %v", v, present, err)
	}
	v, present, err = readByteVectorNullable(bytes.NewReader([]byte{0x81}))
	if err != nil || !present || len(v) != 0 {
		t.Fatalf("empty vector: %x %v %v", v, present, err)
	}
}

func TestReadUnicodeString(t *testing.T) {
	v, err := readUnicodeString(bytes.NewReader([]byte{0x83, 0x41, 0x42, 0x43}))
	if err != nil || v != "ABC" {
		t.Fatalf("got %q, %v", v, err)
	}
	if _, err := readUnicodeString(bytes.NewReader([]byte{0x82, 0xff, 0xfe})); err == nil {
		t.Fatalf("invalid UTF-8 accepted")
	}
	v, present, err := readUnicodeStringNullable(bytes.NewReader([]byte{0x80}))
	if err != nil || present {
		t.Fatalf("null string: %q %v %v", v, present, err)
	}
}

func TestReadTruncated(t *testing.T) {
	if _, err := readUInt(bytes.NewReader([]byte{0x39})); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("uint: %v", err)
	}
	if _, err := readASCIIString(bytes.NewReader([]byte{0x41})); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("string: %v", err)
	}
	if _, err := readByteVector(bytes.NewReader([]byte{0x83, 0x41})); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("vector: %v", err)
	}
}
