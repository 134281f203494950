// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package images persists extracted binary assets under a per-document
// directory and rewrites Markdown image references to the placed paths.
package images

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/docsmith/internal/sanitize"
)

var imageRefRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// Placer writes one document's assets into <assetsRoot>/<slug>/ and keeps
// the mapping from original names to relative paths. Construct one per
// source document.
type Placer struct {
	assetsRoot string
	outputRoot string
	slug       string
}

// NewPlacer builds a placer for the document named documentName (the source
// filename; its sanitized stem becomes the asset directory slug). outputRoot
// is the root of the Markdown tree, used as the fallback base when an image
// is not reachable relatively from the referencing document.
func NewPlacer(assetsRoot, outputRoot, documentName string) *Placer {
	stem := strings.TrimSuffix(documentName, filepath.Ext(documentName))
	slug := sanitize.Filename(stem, true)
	slug = strings.TrimSuffix(slug, filepath.Ext(slug))
	return &Placer{
		assetsRoot: assetsRoot,
		outputRoot: outputRoot,
		slug:       slug,
	}
}

// Slug returns the asset directory name derived from the document.
func (p *Placer) Slug() string {
	return p.slug
}

// Mapping is an ordered original-name to relative-path mapping. Order
// follows the order images were placed so rewrites are deterministic.
type Mapping struct {
	paths map[string]string
	order []string
}

// Get returns the placed path for an original name.
func (m *Mapping) Get(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	p, ok := m.paths[name]
	return p, ok
}

// Len reports how many images were placed.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.paths)
}

// Paths returns the placed relative paths in placement order.
func (m *Mapping) Paths() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.paths[name])
	}
	return out
}

// Place writes each image under the document's asset directory, sanitizing
// and de-duplicating filenames, and returns the original-name to
// relative-path mapping. Paths are relative to the output document's parent
// directory with forward slashes; when the asset tree is not reachable
// relatively, the path is rooted at the output tree root with a leading
// slash. An empty image set is a no-op: no directory is created.
func (p *Placer) Place(imgs map[string][]byte, order []string, outputDocPath string) (*Mapping, error) {
	mapping := &Mapping{paths: make(map[string]string)}
	if len(imgs) == 0 {
		return mapping, nil
	}

	dir := filepath.Join(p.assetsRoot, p.slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset directory %s: %w", dir, err)
	}

	if len(order) == 0 {
		for name := range imgs {
			order = append(order, name)
		}
	}

	docDir := filepath.Dir(outputDocPath)
	for _, name := range order {
		data, ok := imgs[name]
		if !ok {
			continue
		}

		path := sanitize.UniquePath(dir, sanitize.Filename(name, true))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("writing image %s: %w", path, err)
		}

		mapping.paths[name] = relativeRef(path, docDir, p.outputRoot)
		mapping.order = append(mapping.order, name)
	}

	return mapping, nil
}

// relativeRef computes the path of target as referenced from docDir, falling
// back to an absolute-from-output-root path when the two trees do not share
// a root.
func relativeRef(target, docDir, outputRoot string) string {
	if rel, err := filepath.Rel(docDir, target); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	if rel, err := filepath.Rel(outputRoot, target); err == nil && !strings.HasPrefix(rel, "..") {
		return "/" + filepath.ToSlash(rel)
	}
	return filepath.ToSlash(target)
}

// RewritePaths substitutes placed paths into Markdown image references.
// Each ![alt](path) is looked up first by the path's basename, then by the
// full original path; unmatched references are left alone. Plain links are
// never touched.
func RewritePaths(content string, mapping *Mapping) string {
	if mapping.Len() == 0 {
		return content
	}
	return imageRefRe.ReplaceAllStringFunc(content, func(ref string) string {
		m := imageRefRe.FindStringSubmatch(ref)
		alt, path := m[1], m[2]

		newPath, ok := mapping.Get(filepath.Base(path))
		if !ok {
			newPath, ok = mapping.Get(path)
		}
		if !ok {
			return ref
		}
		return fmt.Sprintf("![%s](%s)", alt, newPath)
	})
}
