// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package links rewrites Markdown link targets so that references between
// converted documents point at the generated Markdown tree. External URLs
// pass through, in-page anchors are canonicalized to the site generator's
// heading-slug convention, and references to convertible source files are
// resolved through the batch registry.
package links

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/docsmith/internal/registry"
)

var (
	inlineLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	refDefRe     = regexp.MustCompile(`(?m)^\[([^\]]+)\]:\s*(.+)$`)
	anchorCharRe = regexp.MustCompile(`[^a-z0-9\-]`)
)

// sourceExtensions are the convertible document extensions recognized as
// cross-document references.
var sourceExtensions = map[string]bool{
	".docx": true,
	".doc":  true,
	".pdf":  true,
	".xlsx": true,
	".xls":  true,
}

// Resolver rewrites links inside one output document. currentFile is that
// document's final output path; resolved targets are expressed relative to
// its directory. Unresolved document references accumulate as warnings
// retrievable after Rewrite returns.
type Resolver struct {
	reg         *registry.Registry
	currentFile string
	outputRoot  string
	warnings    []string
}

// NewResolver builds a resolver for the document being written to
// currentFile under outputRoot.
func NewResolver(reg *registry.Registry, outputRoot, currentFile string) *Resolver {
	return &Resolver{reg: reg, currentFile: currentFile, outputRoot: outputRoot}
}

// Warnings returns the unresolved-link warnings recorded so far, in order.
func (r *Resolver) Warnings() []string {
	return r.warnings
}

// Rewrite applies the URL rewrite rule to every inline link [text](url) and
// every reference-style definition "[ref]: url" in content.
func (r *Resolver) Rewrite(content string) string {
	content = inlineLinkRe.ReplaceAllStringFunc(content, func(link string) string {
		m := inlineLinkRe.FindStringSubmatch(link)
		return fmt.Sprintf("[%s](%s)", m[1], r.rewriteURL(m[2]))
	})
	content = refDefRe.ReplaceAllStringFunc(content, func(def string) string {
		m := refDefRe.FindStringSubmatch(def)
		return fmt.Sprintf("[%s]: %s", m[1], r.rewriteURL(m[2]))
	})
	return content
}

// rewriteURL applies the per-URL rules in order: external schemes pass
// through, bare anchors are normalized, convertible document references go
// through the registry, and everything else is left alone.
func (r *Resolver) rewriteURL(url string) string {
	for _, scheme := range []string{"http://", "https://", "ftp://", "mailto:"} {
		if strings.HasPrefix(url, scheme) {
			return url
		}
	}

	if strings.HasPrefix(url, "#") {
		return "#" + NormalizeAnchor(url[1:])
	}

	path := url
	fragment := ""
	if i := strings.Index(url, "#"); i >= 0 {
		path, fragment = url[:i], url[i:]
	}

	if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
		return url
	}

	target, ok := r.reg.Resolve(path)
	if !ok {
		r.warnings = append(r.warnings, fmt.Sprintf("Unresolved document link: %s", url))
		return url
	}

	if fragment != "" {
		fragment = "#" + NormalizeAnchor(fragment[1:])
	}
	return relativeRef(target, filepath.Dir(r.currentFile), r.outputRoot) + fragment
}

// NormalizeAnchor canonicalizes a heading anchor to the target site
// generator's slug convention: lowercase, spaces to hyphens, everything
// outside [a-z0-9-] stripped. If the real generator's slugger differs
// (Unicode handling, duplicate-heading suffixes), cross-page anchors will
// mis-resolve; that is an integration constraint of the convention, not
// something this function can detect.
func NormalizeAnchor(anchor string) string {
	anchor = strings.ToLower(anchor)
	anchor = strings.ReplaceAll(anchor, " ", "-")
	return anchorCharRe.ReplaceAllString(anchor, "")
}

// relativeRef expresses target relative to fromDir, or absolute from the
// output root when the two do not share a subtree.
func relativeRef(target, fromDir, outputRoot string) string {
	if rel, err := filepath.Rel(fromDir, target); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	if rel, err := filepath.Rel(outputRoot, target); err == nil && !strings.HasPrefix(rel, "..") {
		return "/" + filepath.ToSlash(rel)
	}
	return filepath.ToSlash(target)
}
