package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type product struct {
	ID    int
	Name  string
	Tags  []string
	Price float64
}

func newTestCodec(buf *bytes.Buffer, threshold int) *Codec {
	logger := zerolog.New(buf).Level(zerolog.DebugLevel)
	return New(threshold, logger)
}

func TestText_RoundTrip(t *testing.T) {
	c := newTestCodec(&bytes.Buffer{}, 0)

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"html", "<html><body><h1>Products</h1></body></html>"},
		{"unicode", "Giá sản phẩm: 100.000₫ – ✓"},
		{"large", strings.Repeat("<p>lorem ipsum</p>", 5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := c.EncodeText("k", tt.in)
			if err != nil {
				t.Fatalf("EncodeText() error = %v", err)
			}

			decoded, err := c.DecodeText(encoded)
			if err != nil {
				t.Fatalf("DecodeText() error = %v", err)
			}
			if decoded != tt.in {
				t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(decoded), len(tt.in))
			}
		})
	}
}

func TestText_Compresses(t *testing.T) {
	c := newTestCodec(&bytes.Buffer{}, 0)
	in := strings.Repeat("<div class=\"row\"></div>", 1000)

	encoded, err := c.EncodeText("k", in)
	if err != nil {
		t.Fatalf("EncodeText() error = %v", err)
	}
	if len(encoded) >= len(in) {
		t.Errorf("encoded size %d not smaller than input %d", len(encoded), len(in))
	}
}

func TestDecodeText_Empty(t *testing.T) {
	c := newTestCodec(&bytes.Buffer{}, 0)

	s, err := c.DecodeText(nil)
	if err != nil || s != "" {
		t.Errorf("DecodeText(nil) = %q, %v; want empty, nil", s, err)
	}
}

func TestDecodeText_NotGzip(t *testing.T) {
	c := newTestCodec(&bytes.Buffer{}, 0)

	if _, err := c.DecodeText([]byte("plain text")); err == nil {
		t.Error("DecodeText() should fail for non-gzip input")
	}
}

func TestValue_RoundTrip(t *testing.T) {
	c := newTestCodec(&bytes.Buffer{}, 0)
	in := product{ID: 42, Name: "Lamp", Tags: []string{"home", "light"}, Price: 19.5}

	encoded, err := c.EncodeValue("product:42", in)
	if err != nil {
		t.Fatalf("EncodeValue() error = %v", err)
	}

	out, err := Decode[product](c, encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.ID != in.ID || out.Name != in.Name || out.Price != in.Price || len(out.Tags) != 2 {
		t.Errorf("Decode() = %+v, want %+v", out, in)
	}
}

func TestValue_Scalars(t *testing.T) {
	c := newTestCodec(&bytes.Buffer{}, 0)

	encoded, err := c.EncodeValue("n", 12345)
	if err != nil {
		t.Fatalf("EncodeValue() error = %v", err)
	}
	n, err := Decode[int](c, encoded)
	if err != nil || n != 12345 {
		t.Errorf("Decode[int]() = %d, %v; want 12345", n, err)
	}

	encoded, err = c.EncodeValue("m", map[string]int{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("EncodeValue() error = %v", err)
	}
	m, err := Decode[map[string]int](c, encoded)
	if err != nil || m["a"] != 1 || m["b"] != 2 {
		t.Errorf("Decode[map]() = %v, %v", m, err)
	}
}

func TestEncodeValue_Nil(t *testing.T) {
	c := newTestCodec(&bytes.Buffer{}, 0)
	var p *product

	for _, v := range []any{nil, p} {
		encoded, err := c.EncodeValue("k", v)
		if err != nil {
			t.Fatalf("EncodeValue(nil) error = %v", err)
		}
		if encoded != nil {
			t.Errorf("EncodeValue(nil) = %v, want nil", encoded)
		}
	}
}

func TestDecodeValue_InvalidFrames(t *testing.T) {
	c := newTestCodec(&bytes.Buffer{}, 0)
	valid, err := c.EncodeValue("k", product{ID: 1})
	if err != nil {
		t.Fatalf("EncodeValue() error = %v", err)
	}

	tests := []struct {
		name    string
		in      []byte
		wantErr error
	}{
		{"empty", nil, ErrEmptyPayload},
		{"short header", []byte{0, 1}, ErrInvalidFrame},
		{"truncated payload", valid[:len(valid)-1], ErrInvalidFrame},
		{"trailing bytes", append(append([]byte{}, valid...), 0xFF), ErrInvalidFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out product
			err := c.DecodeValue(tt.in, &out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeValue() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonitor_LogsOversizedPayloads(t *testing.T) {
	buf := &bytes.Buffer{}
	c := newTestCodec(buf, 16)

	if _, err := c.EncodeText("small", "<p>x</p>"); err != nil {
		t.Fatalf("EncodeText() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("small payload should not be logged, got %q", buf.String())
	}

	if _, err := c.EncodeText("page:big", strings.Repeat("x", 64)); err != nil {
		t.Fatalf("EncodeText() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "page:big") || !strings.Contains(out, `"size":64`) {
		t.Errorf("oversized payload log missing key/size: %q", out)
	}
}

func TestNew_DefaultThreshold(t *testing.T) {
	c := New(0, zerolog.Nop())
	if c.maxSizeForMonitor != DefaultMaxSizeForMonitor {
		t.Errorf("maxSizeForMonitor = %d, want %d", c.maxSizeForMonitor, DefaultMaxSizeForMonitor)
	}
}
