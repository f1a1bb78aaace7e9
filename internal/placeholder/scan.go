// Package placeholder finds {{name}} and [name] placeholders in template markup.
package placeholder

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Syntax identifies the delimiter style of an occurrence.
type Syntax int

const (
	Braces   Syntax = iota // {{name}}
	Brackets               // [name]
)

var (
	braceRe   = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	bracketRe = regexp.MustCompile(`\[([^\]]+)\]`)
)

// Occurrence is a single placeholder match in a piece of markup.
type Occurrence struct {
	Start  int
	End    int
	Raw    string
	Name   string
	Syntax Syntax
}

// Canonical turns a captured placeholder name into its lookup key:
// trimmed, lower-cased, with whitespace runs collapsed to "_".
func Canonical(raw string) string {
	s := norm.NFC.String(raw)
	return strings.ToLower(strings.Join(strings.Fields(s), "_"))
}

// Find returns every placeholder occurrence in content, in order.
// Both syntaxes are matched in separate passes; a bracketed span that
// overlaps a {{name}} occurrence is prose around it, not a placeholder.
// Captures that are blank after canonicalisation are skipped.
func Find(content string) []Occurrence {
	braces := match(content, braceRe, Braces)
	out := make([]Occurrence, 0, len(braces))
	for _, o := range braces {
		if o.Name != "" {
			out = append(out, o)
		}
	}
	for _, o := range match(content, bracketRe, Brackets) {
		if o.Name != "" && !overlaps(o, braces) {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b Occurrence) int { return a.Start - b.Start })
	return out
}

func match(content string, re *regexp.Regexp, syntax Syntax) []Occurrence {
	idx := re.FindAllStringSubmatchIndex(content, -1)
	out := make([]Occurrence, 0, len(idx))
	for _, m := range idx {
		out = append(out, Occurrence{
			Start:  m[0],
			End:    m[1],
			Raw:    content[m[0]:m[1]],
			Name:   Canonical(content[m[2]:m[3]]),
			Syntax: syntax,
		})
	}
	return out
}

// overlaps reports whether o intersects any of occs, which are sorted and
// disjoint.
func overlaps(o Occurrence, occs []Occurrence) bool {
	i, _ := slices.BinarySearchFunc(occs, o.Start, func(e Occurrence, start int) int {
		if e.End <= start {
			return -1
		}
		return 1
	})
	return i < len(occs) && occs[i].Start < o.End
}

// Scan returns the distinct canonical placeholder names in content,
// ordered by first occurrence.
func Scan(content string) []string {
	occs := Find(content)
	seen := make(map[string]struct{}, len(occs))
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		if _, ok := seen[o.Name]; ok {
			continue
		}
		seen[o.Name] = struct{}{}
		out = append(out, o.Name)
	}
	return out
}

// Count returns the number of placeholder occurrences, duplicates included.
func Count(content string) int {
	return len(Find(content))
}

// Replace rewrites every occurrence with the string returned by fn in a
// single pass. Replacement text is never rescanned.
func Replace(content string, fn func(Occurrence) string) string {
	occs := Find(content)
	if len(occs) == 0 {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, o := range occs {
		b.WriteString(content[last:o.Start])
		b.WriteString(fn(o))
		last = o.End
	}
	b.WriteString(content[last:])
	return b.String()
}
