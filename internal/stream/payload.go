package stream

import (
	"fmt"
	"strings"

	"codeassist/internal/util/jsonutil"
)

// Change is one replacement inside a file. The original snippet is located in
// the file by exact match.
type Change struct {
	Original string `json:"original_code_snippet"`
	Modified string `json:"modified_code_snippet"`
}

// FileModification groups the ordered changes for one file.
type FileModification struct {
	Filename string   `json:"filename"`
	Changes  []Change `json:"changes_array"`
}

// ModificationArray is the edit payload carried between sentinels.
type ModificationArray struct {
	Modifications []FileModification `json:"modifications_array"`
}

// ParsePayload decodes the raw text between two sentinels. It tolerates the
// markdown fences some models wrap JSON in.
func ParsePayload(raw string) (ModificationArray, error) {
	var m ModificationArray
	if err := jsonutil.Unmarshal([]byte(raw), &m); err != nil {
		return ModificationArray{}, fmt.Errorf("parse edit payload: %w", err)
	}
	for _, fm := range m.Modifications {
		if fm.Filename == "" {
			return ModificationArray{}, fmt.Errorf("parse edit payload: modification without filename")
		}
		for _, c := range fm.Changes {
			if c.Original == "" {
				return ModificationArray{}, fmt.Errorf("parse edit payload: empty original snippet in %q", fm.Filename)
			}
		}
	}
	return m, nil
}

// StripPayloads removes every sentinel-delimited payload, sentinels included,
// from raw model output. Used when assembling conversation history windows so
// the model is not re-fed its own edit payloads.
func StripPayloads(text string) string {
	var b strings.Builder
	inside := false
	for _, r := range text {
		if r == Sentinel {
			inside = !inside
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractPayloads returns every parseable payload in raw model output, in
// order. Unparseable payloads are skipped.
func ExtractPayloads(text string) []ModificationArray {
	var out []ModificationArray
	var cur strings.Builder
	inside := false
	for _, r := range text {
		if r == Sentinel {
			if inside {
				if m, err := ParsePayload(cur.String()); err == nil {
					out = append(out, m)
				}
				cur.Reset()
			}
			inside = !inside
			continue
		}
		if inside {
			cur.WriteRune(r)
		}
	}
	return out
}
