package stream

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// remapThreshold is the minimum line-level similarity for a stale original
// snippet to be remapped onto drifted file content.
const remapThreshold = 0.75

// Reconcile adjusts the changes of one file modification against the file's
// current content, which may have drifted since the payload was produced.
// Changes whose original snippet still matches verbatim are kept; changes
// whose modified snippet is already present are dropped; stale originals are
// remapped to the closest current region when similar enough, and dropped
// otherwise. The returned modification may be empty.
func Reconcile(current string, fm FileModification) FileModification {
	out := FileModification{Filename: fm.Filename}
	for _, c := range fm.Changes {
		switch {
		case strings.Contains(current, c.Original):
			out.Changes = append(out.Changes, c)
		case strings.Contains(current, c.Modified):
			// Already applied.
		default:
			if remapped, ok := remap(current, c.Original); ok {
				out.Changes = append(out.Changes, Change{Original: remapped, Modified: c.Modified})
			}
		}
	}
	return out
}

// ReconcileAgainst adjusts changes using the content the payload was produced
// against. Stale snippets are located in that original content and their line
// range is mapped through the original-to-current diff; snippets that cannot
// be mapped that way fall back to similarity-based remapping.
func ReconcileAgainst(original, current string, fm FileModification) FileModification {
	out := FileModification{Filename: fm.Filename}
	origLines := splitLines(original)
	curLines := splitLines(current)
	var opcodes []difflib.OpCode
	if len(origLines) > 0 && len(curLines) > 0 {
		opcodes = difflib.NewMatcher(origLines, curLines).GetOpCodes()
	}
	for _, c := range fm.Changes {
		switch {
		case strings.Contains(current, c.Original):
			out.Changes = append(out.Changes, c)
		case strings.Contains(current, c.Modified):
			// Already applied.
		default:
			if mapped, ok := mapThroughDiff(original, curLines, opcodes, c.Original); ok {
				out.Changes = append(out.Changes, Change{Original: mapped, Modified: c.Modified})
			} else if remapped, ok := remap(current, c.Original); ok {
				out.Changes = append(out.Changes, Change{Original: remapped, Modified: c.Modified})
			}
		}
	}
	return out
}

// mapThroughDiff locates the snippet's line range in the original content and
// projects it onto the current content through the diff opcodes.
func mapThroughDiff(original string, curLines []string, opcodes []difflib.OpCode, snippet string) (string, bool) {
	off := strings.Index(original, snippet)
	if off < 0 || len(opcodes) == 0 {
		return "", false
	}
	start := strings.Count(original[:off], "\n")
	n := len(splitLines(snippet))
	if n == 0 {
		return "", false
	}

	j1, ok1 := mapLine(opcodes, start, false)
	j2, ok2 := mapLine(opcodes, start+n, true)
	if !ok1 || !ok2 || j1 >= j2 || j2 > len(curLines) {
		return "", false
	}
	return strings.Join(curLines[j1:j2], ""), true
}

// mapLine projects one original line index onto the current side. Inside a
// replaced or deleted block the index snaps to the block's current-side start,
// or its end when the index closes a range.
func mapLine(opcodes []difflib.OpCode, i int, isEnd bool) (int, bool) {
	for _, op := range opcodes {
		if i < op.I1 || i > op.I2 {
			continue
		}
		if i == op.I2 && !isEnd {
			continue
		}
		if op.Tag == 'e' {
			return op.J1 + (i - op.I1), true
		}
		if isEnd {
			return op.J2, true
		}
		return op.J1, true
	}
	return 0, false
}

// remap slides a window of the original's line count over the current content
// and returns the most similar region, if any crosses the threshold.
func remap(current, original string) (string, bool) {
	origLines := splitLines(original)
	curLines := splitLines(current)
	if len(origLines) == 0 || len(origLines) > len(curLines) {
		return "", false
	}

	best := -1.0
	bestAt := -1
	for i := 0; i+len(origLines) <= len(curLines); i++ {
		window := strings.Join(curLines[i:i+len(origLines)], "")
		if r := similarity(original, window); r > best {
			best = r
			bestAt = i
		}
	}
	if best < remapThreshold {
		return "", false
	}
	return strings.Join(curLines[bestAt:bestAt+len(origLines)], ""), true
}

// similarity is a character-level difflib ratio, so single-identifier drift
// inside a line still scores high.
func similarity(a, b string) float64 {
	return difflib.NewMatcher(explode(a), explode(b)).Ratio()
}

func explode(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Apply performs the changes in order against content. Each original snippet
// must occur in the content it is applied to; only its first occurrence is
// replaced.
func Apply(content string, fm FileModification) (string, error) {
	for i, c := range fm.Changes {
		if !strings.Contains(content, c.Original) {
			return "", fmt.Errorf("apply %q change %d: original snippet not found", fm.Filename, i)
		}
		content = strings.Replace(content, c.Original, c.Modified, 1)
	}
	return content, nil
}

// splitLines splits keeping line terminators, so joins reproduce the input.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
