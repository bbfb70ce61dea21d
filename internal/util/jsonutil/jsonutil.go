package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & into < etc.
// Model prompts and code payloads must round-trip verbatim.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalIndentNoEscape is MarshalNoEscape with indentation, for payloads that
// are embedded in prompts and read by a model.
func MarshalIndentNoEscape(v any, prefix, indent string) ([]byte, error) {
	b, err := MarshalNoEscape(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, prefix, indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Unmarshal tries to decode raw into v, tolerating the two envelope mistakes
// models habitually make: a markdown code fence around the document, and a
// JSON document delivered as one quoted JSON string.
func Unmarshal(raw []byte, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errors.New("jsonutil: empty input")
	}
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	if fenced := stripFence(raw); fenced != nil {
		if err := json.Unmarshal(fenced, v); err == nil {
			return nil
		}
		raw = fenced
	}
	// A document wrapped in quotes: "{\"k\": ...}"
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return json.Unmarshal([]byte(s), v)
	}
	return json.Unmarshal(raw, v)
}

// UnmarshalRaw accepts json.RawMessage directly.
func UnmarshalRaw(raw json.RawMessage, v any) error {
	return Unmarshal([]byte(raw), v)
}

// stripFence removes a surrounding ```...``` fence, with or without a language
// tag on the opening line. Returns nil when the input is not fenced.
func stripFence(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return nil
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	if s == "" {
		return nil
	}
	return []byte(s)
}
