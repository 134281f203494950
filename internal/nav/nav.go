// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nav generates a MkDocs navigation snippet covering the Markdown
// files a batch run produced. The snippet is meant to be pasted into (or
// merged with) the site's mkdocs.yml by the operator; it is written next
// to the converted tree rather than into any live site config.
package nav

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docsmith/internal/normalize"
	"github.com/pdiddy/docsmith/internal/report"
)

// SnippetFile is the name of the generated file inside the output tree.
const SnippetFile = "mkdocs-nav-snippet.yml"

// node is one level of the navigation tree. Leaves carry a path; interior
// nodes carry children keyed and ordered by name.
type node struct {
	title    string
	path     string
	children map[string]*node
	order    []string
}

func newNode(title string) *node {
	return &node{title: title, children: make(map[string]*node)}
}

func (n *node) child(name, title string) *node {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := newNode(title)
	n.children[name] = c
	n.order = append(n.order, name)
	return c
}

// Build assembles the nav entries for every successfully converted file in
// the report, expressed relative to outputRoot. Files sort before
// subdirectories at each level, both alphabetically.
func Build(outputRoot string, rep *report.ConversionReport) ([]any, error) {
	var rels []string
	for _, fr := range rep.Files {
		if !fr.Success || fr.OutputFile == "" {
			continue
		}
		rel, err := filepath.Rel(outputRoot, fr.OutputFile)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("output file %s is outside %s", fr.OutputFile, outputRoot)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)

	root := newNode("")
	for _, rel := range rels {
		parts := strings.Split(rel, "/")
		cur := root
		for _, dir := range parts[:len(parts)-1] {
			cur = cur.child(dir, normalize.TitleFromStem(dir))
		}
		base := parts[len(parts)-1]
		leaf := cur.child(base, normalize.TitleFromStem(strings.TrimSuffix(base, ".md")))
		leaf.path = rel
	}
	return entries(root), nil
}

// entries converts a tree level into the YAML shape MkDocs expects: a list
// of single-key maps, title to path for pages and title to sub-list for
// sections.
func entries(n *node) []any {
	var files, dirs []string
	for _, name := range n.order {
		if n.children[name].path != "" {
			files = append(files, name)
		} else {
			dirs = append(dirs, name)
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)

	var out []any
	for _, name := range files {
		c := n.children[name]
		out = append(out, map[string]string{c.title: c.path})
	}
	for _, name := range dirs {
		c := n.children[name]
		out = append(out, map[string]any{c.title: entries(c)})
	}
	return out
}

// Write renders the snippet and writes it to outputRoot/mkdocs-nav-snippet.yml.
// An empty report produces no file.
func Write(outputRoot string, rep *report.ConversionReport) error {
	items, err := Build(outputRoot, rep)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	data, err := yaml.Marshal(map[string]any{"nav": items})
	if err != nil {
		return fmt.Errorf("rendering nav snippet: %w", err)
	}
	out := filepath.Join(outputRoot, SnippetFile)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}
