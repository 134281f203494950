// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize repairs the Markdown that format extractors produce:
// heading structure, whitespace, and front matter. Every function is a pure
// transformation from one Markdown string to another.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/docsmith/pkg/types"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Headings rewrites a heading sequence so the document has a single
// top-level heading and no level skips. Additional H1s are demoted to H2;
// a heading more than one level below its predecessor is clamped to
// predecessor+1. Warnings are returned in encounter order. Lines that are
// not well-formed headings (seven hashes, no space) pass through verbatim.
func Headings(content string) (string, []string) {
	var warnings []string
	lines := strings.Split(content, "\n")
	h1Count := 0
	lastLevel := 0

	for i, line := range lines {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := len(m[1])
		title := m[2]

		if level == 1 {
			h1Count++
			if h1Count > 1 {
				level = 2
				warnings = append(warnings,
					fmt.Sprintf("Multiple H1 headings found, converted '%s' to H2", title))
			}
		}

		if lastLevel > 0 && level > lastLevel+1 {
			orig := level
			level = lastLevel + 1
			warnings = append(warnings,
				fmt.Sprintf("Heading level jump detected (H%d -> H%d), adjusted '%s' to H%d",
					lastLevel, orig, title, level))
		}

		lastLevel = level
		lines[i] = strings.Repeat("#", level) + " " + title
	}

	return strings.Join(lines, "\n"), warnings
}

// Whitespace strips trailing whitespace per line, caps blank-line runs at
// two, and ends the content with exactly one newline. Idempotent:
// Whitespace(Whitespace(x)) == Whitespace(x).
func Whitespace(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	blanks := 0

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		kept = append(kept, line)
	}

	return strings.TrimRight(strings.Join(kept, "\n"), " \t\n") + "\n"
}

// FrontMatter prepends a YAML front-matter block: title, source, and
// conversion timestamp, followed by the extra fields in their given order.
// Values are embedded verbatim; callers own any YAML escaping concerns.
func FrontMatter(content, title, source, convertedAt string, extra []types.MetaField) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", title)
	fmt.Fprintf(&b, "source: %s\n", source)
	fmt.Fprintf(&b, "converted_at: %s\n", convertedAt)
	for _, f := range extra {
		fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
	}
	b.WriteString("---\n")
	b.WriteString("\n")
	b.WriteString(content)
	return b.String()
}

// TitleFromStem converts a sanitized filename stem into a display title:
// hyphens to spaces, each word capitalized.
func TitleFromStem(stem string) string {
	words := strings.Split(strings.ReplaceAll(stem, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
