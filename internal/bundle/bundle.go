// Package bundle carries the code attached to one chat request and resolves
// which parts of it a classified task actually references.
package bundle

import (
	"fmt"
	"regexp"
	"strconv"
)

// CodeFile is a complete uploaded file. Name is the unique key inside a bundle.
type CodeFile struct {
	Name    string
	Content string
}

// CodeSnippet is a line-range excerpt. Its name carries a trailing
// "(start-end)" range, e.g. "main.go (12-14)", which distinguishes it from a
// full file with the same base name.
type CodeSnippet struct {
	Name    string
	Content string
}

var snippetRangeRe = regexp.MustCompile(`\((\d+)-(\d+)\)$`)

// SnippetRange reports whether name encodes a snippet line range and, if so,
// the start and end lines.
func SnippetRange(name string) (start, end int, ok bool) {
	m := snippetRangeRe.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	start, _ = strconv.Atoi(m[1])
	end, _ = strconv.Atoi(m[2])
	return start, end, true
}

// Bundle is the full set of files and snippets attached to a request.
type Bundle struct {
	Files    []CodeFile
	Snippets []CodeSnippet

	fileByName    map[string]int
	snippetByName map[string]int
}

// New builds a bundle and its name indexes. Later duplicates of a name are
// ignored; the first upload wins.
func New(files []CodeFile, snippets []CodeSnippet) Bundle {
	b := Bundle{
		fileByName:    make(map[string]int, len(files)),
		snippetByName: make(map[string]int, len(snippets)),
	}
	for _, f := range files {
		if _, dup := b.fileByName[f.Name]; dup {
			continue
		}
		b.fileByName[f.Name] = len(b.Files)
		b.Files = append(b.Files, f)
	}
	for _, s := range snippets {
		if _, dup := b.snippetByName[s.Name]; dup {
			continue
		}
		b.snippetByName[s.Name] = len(b.Snippets)
		b.Snippets = append(b.Snippets, s)
	}
	return b
}

// Split separates raw uploads into files and snippets by the name convention.
func Split(names []string, contents []string) (Bundle, error) {
	if len(names) != len(contents) {
		return Bundle{}, fmt.Errorf("bundle: %d names for %d contents", len(names), len(contents))
	}
	var files []CodeFile
	var snippets []CodeSnippet
	for i, name := range names {
		if _, _, ok := SnippetRange(name); ok {
			snippets = append(snippets, CodeSnippet{Name: name, Content: contents[i]})
		} else {
			files = append(files, CodeFile{Name: name, Content: contents[i]})
		}
	}
	return New(files, snippets), nil
}

// HasFile reports whether the bundle holds a full file with the given name.
func (b Bundle) HasFile(name string) bool {
	_, ok := b.fileByName[name]
	return ok
}

// HasSnippet reports whether the bundle holds a snippet with the given name.
func (b Bundle) HasSnippet(name string) bool {
	_, ok := b.snippetByName[name]
	return ok
}

// Empty reports whether the bundle carries no content at all.
func (b Bundle) Empty() bool {
	return len(b.Files) == 0 && len(b.Snippets) == 0
}

// Refs is one task's view of the bundle: the names it declared relevant.
type Refs struct {
	FileNames    []string
	SnippetNames []string
}

// Resolve gathers the contents referenced by refs into a new bundle,
// de-duplicated and in first-reference order. Names that do not exist in the
// source bundle are an error: a classifier inventing names is a contract
// violation the caller must reject.
func (b Bundle) Resolve(refs []Refs) (Bundle, error) {
	var files []CodeFile
	var snippets []CodeSnippet
	seenFile := map[string]bool{}
	seenSnippet := map[string]bool{}
	for _, r := range refs {
		for _, name := range r.FileNames {
			if seenFile[name] {
				continue
			}
			i, ok := b.fileByName[name]
			if !ok {
				return Bundle{}, fmt.Errorf("bundle: unknown file %q referenced", name)
			}
			seenFile[name] = true
			files = append(files, b.Files[i])
		}
		for _, name := range r.SnippetNames {
			if seenSnippet[name] {
				continue
			}
			i, ok := b.snippetByName[name]
			if !ok {
				return Bundle{}, fmt.Errorf("bundle: unknown snippet %q referenced", name)
			}
			seenSnippet[name] = true
			snippets = append(snippets, b.Snippets[i])
		}
	}
	return New(files, snippets), nil
}

// FileMap returns name->content for every file, in a freshly allocated map.
func (b Bundle) FileMap() map[string]string {
	out := make(map[string]string, len(b.Files))
	for _, f := range b.Files {
		out[f.Name] = f.Content
	}
	return out
}

// SnippetMap returns name->content for every snippet.
func (b Bundle) SnippetMap() map[string]string {
	out := make(map[string]string, len(b.Snippets))
	for _, s := range b.Snippets {
		out[s.Name] = s.Content
	}
	return out
}
