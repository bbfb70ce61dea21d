// Package stream decodes the model's output stream. The generation model
// interleaves prose with machine-readable edit payloads, delimited on both
// sides by a single reserved rune; the decoder splits the two so prose can be
// relayed to the client as it arrives while payloads are parsed whole.
package stream

import (
	"strings"
	"unicode/utf8"
)

// Sentinel is the reserved rune delimiting edit payloads inside model output.
// It is multi-byte in UTF-8, so chunk boundaries can fall inside it.
const Sentinel = '␞'

// SentinelString is Sentinel as a string, for prompt templates and tests.
const SentinelString = string(Sentinel)

// Sink receives decoded output. Prose is called zero or more times with
// displayable text in arrival order; Payload is called once per completed
// payload with the raw bytes between two sentinels, exclusive.
type Sink interface {
	Prose(text string)
	Payload(raw string)
}

// Decoder is a push decoder over arbitrarily chunked model output. Chunks may
// split anywhere, including mid-rune; the decoder holds incomplete trailing
// bytes until the next chunk completes them. Not safe for concurrent use.
type Decoder struct {
	sink    Sink
	pending []byte // trailing bytes of an incomplete rune
	payload strings.Builder
	inside  bool
	raw     strings.Builder
}

// NewDecoder returns a decoder delivering to sink.
func NewDecoder(sink Sink) *Decoder {
	return &Decoder{sink: sink}
}

// Write feeds one chunk to the decoder.
func (d *Decoder) Write(chunk []byte) {
	d.raw.Write(chunk)

	buf := chunk
	if len(d.pending) > 0 {
		buf = append(d.pending, chunk...)
		d.pending = nil
	}

	var prose strings.Builder
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size == 1 && !utf8.FullRune(buf) {
			// Incomplete trailing rune, wait for the next chunk.
			d.pending = append(d.pending, buf...)
			break
		}
		buf = buf[size:]
		if r == Sentinel {
			if d.inside {
				d.sink.Payload(d.payload.String())
				d.payload.Reset()
			} else if prose.Len() > 0 {
				d.sink.Prose(prose.String())
				prose.Reset()
			}
			d.inside = !d.inside
			continue
		}
		if d.inside {
			d.payload.WriteRune(r)
		} else {
			prose.WriteRune(r)
		}
	}
	if prose.Len() > 0 {
		d.sink.Prose(prose.String())
	}
}

// WriteString feeds one chunk given as a string.
func (d *Decoder) WriteString(chunk string) {
	d.Write([]byte(chunk))
}

// Close flushes the decoder at end of stream. An unterminated payload is
// delivered as-is; its opening sentinel is never shown as prose. Trailing
// bytes of an incomplete rune are dropped.
func (d *Decoder) Close() {
	d.pending = nil
	if d.inside {
		d.sink.Payload(d.payload.String())
		d.payload.Reset()
		d.inside = false
	}
}

// Raw returns everything written so far, byte for byte. The conversation
// store persists this form so payloads survive verbatim.
func (d *Decoder) Raw() string {
	return d.raw.String()
}

// Collector is a Sink accumulating decoded output in memory.
type Collector struct {
	ProseParts []string
	Payloads   []string
}

func (c *Collector) Prose(text string)  { c.ProseParts = append(c.ProseParts, text) }
func (c *Collector) Payload(raw string) { c.Payloads = append(c.Payloads, raw) }

// ProseText returns the concatenated prose.
func (c *Collector) ProseText() string { return strings.Join(c.ProseParts, "") }
