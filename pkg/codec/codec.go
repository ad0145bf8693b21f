// Package codec converts cache payloads to bytes and back.
//
// Text payloads (rendered pages) are UTF-8 encoded and gzip-compressed.
// Arbitrary values are gob-encoded and framed with a 4-byte big-endian
// length header so truncated entries are detected on read.
//
// Sizes above the monitoring threshold are logged and counted but never
// rejected.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultMaxSizeForMonitor is the payload size in bytes above which encodes are logged.
const DefaultMaxSizeForMonitor = 10000

const frameHeaderSize = 4

// Kind labels the payload family in metrics and logs.
type Kind string

const (
	// KindText is a gzip-compressed UTF-8 string.
	KindText Kind = "text"

	// KindValue is a length-framed gob value.
	KindValue Kind = "value"
)

var (
	// ErrEmptyPayload is returned when decoding an empty byte slice into a value.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrInvalidFrame indicates the length header does not match the payload.
	ErrInvalidFrame = errors.New("invalid value frame")
)

var (
	payloadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pagecache_codec_payload_bytes",
		Help:    "Size of encoded cache payloads before compression, by kind",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"kind"})

	oversizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagecache_codec_oversized_total",
		Help: "Payloads larger than the monitoring threshold, by kind",
	}, []string{"kind"})
)

// Codec encodes and decodes cache payloads.
type Codec struct {
	maxSizeForMonitor int
	logger            zerolog.Logger
}

// New creates a codec. A non-positive maxSizeForMonitor selects DefaultMaxSizeForMonitor.
func New(maxSizeForMonitor int, logger zerolog.Logger) *Codec {
	if maxSizeForMonitor <= 0 {
		maxSizeForMonitor = DefaultMaxSizeForMonitor
	}
	return &Codec{
		maxSizeForMonitor: maxSizeForMonitor,
		logger:            logger,
	}
}

// EncodeText gzip-compresses s. The key is only used for size monitoring.
func (c *Codec) EncodeText(key, s string) ([]byte, error) {
	raw := []byte(s)
	c.monitor(KindText, key, len(raw))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeText reverses EncodeText. An empty input decodes to "".
func (c *Codec) DecodeText(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("gzip read: %w", err)
	}

	return string(raw), nil
}

// EncodeValue gob-encodes v behind a length header. A nil value (or nil
// pointer) encodes to nil, meaning nothing should be stored.
func (c *Codec) EncodeValue(key string, v any) ([]byte, error) {
	if isNil(v) {
		return nil, nil
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, frameHeaderSize))
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}

	framed := buf.Bytes()
	binary.BigEndian.PutUint32(framed[:frameHeaderSize], uint32(len(framed)-frameHeaderSize))
	c.monitor(KindValue, key, len(framed))

	return framed, nil
}

// DecodeValue decodes a framed value into out, which must be a pointer.
func (c *Codec) DecodeValue(b []byte, out any) error {
	if len(b) == 0 {
		return ErrEmptyPayload
	}
	if len(b) < frameHeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(b))
	}

	size := binary.BigEndian.Uint32(b[:frameHeaderSize])
	payload := b[frameHeaderSize:]
	if uint64(size) != uint64(len(payload)) {
		return fmt.Errorf("%w: header %d, payload %d", ErrInvalidFrame, size, len(payload))
	}

	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(out); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	return nil
}

// Decode decodes a framed value into a new T.
func Decode[T any](c *Codec, b []byte) (T, error) {
	var out T
	if err := c.DecodeValue(b, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *Codec) monitor(kind Kind, key string, size int) {
	payloadBytes.WithLabelValues(string(kind)).Observe(float64(size))

	if size > c.maxSizeForMonitor {
		oversizedTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Debug().
			Str("kind", string(kind)).
			Str("key", key).
			Int("size", size).
			Int("threshold", c.maxSizeForMonitor).
			Msg("Payload above monitoring threshold")
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
