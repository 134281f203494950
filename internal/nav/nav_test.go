// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nav

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docsmith/internal/report"
)

func reportWith(root string, rels ...string) *report.ConversionReport {
	rep := report.New()
	for _, rel := range rels {
		rep.Add(report.FileReport{
			SourceFile:   rel + ".docx",
			OutputFile:   filepath.Join(root, rel),
			Success:      true,
			QualityScore: 1.0,
		})
	}
	rep.Finalize()
	return rep
}

func TestBuild_FlatTree(t *testing.T) {
	root := t.TempDir()
	rep := reportWith(root, "beta.md", "alpha.md")

	items, err := Build(root, rep)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, map[string]string{"Alpha": "alpha.md"}, items[0])
	assert.Equal(t, map[string]string{"Beta": "beta.md"}, items[1])
}

func TestBuild_NestedSections(t *testing.T) {
	root := t.TempDir()
	rep := reportWith(root, "index.md", "guides/setup-guide.md", "guides/faq.md")

	items, err := Build(root, rep)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, map[string]string{"Index": "index.md"}, items[0])

	section, ok := items[1].(map[string]any)
	require.True(t, ok, "second entry should be a section: %#v", items[1])
	sub, ok := section["Guides"].([]any)
	require.True(t, ok)
	require.Len(t, sub, 2)
	assert.Equal(t, map[string]string{"Faq": "guides/faq.md"}, sub[0])
	assert.Equal(t, map[string]string{"Setup Guide": "guides/setup-guide.md"}, sub[1])
}

func TestBuild_SkipsFailures(t *testing.T) {
	root := t.TempDir()
	rep := report.New()
	rep.Add(report.FileReport{SourceFile: "bad.docx", Success: false})
	rep.Finalize()

	items, err := Build(root, rep)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWrite_RoundTrips(t *testing.T) {
	root := t.TempDir()
	rep := reportWith(root, "overview.md", "manual/intro.md")

	require.NoError(t, Write(root, rep))

	data, err := os.ReadFile(filepath.Join(root, SnippetFile))
	require.NoError(t, err)

	var doc struct {
		Nav []any `yaml:"nav"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Len(t, doc.Nav, 2)
}

func TestWrite_EmptyReportWritesNothing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Write(root, report.New()))

	_, err := os.Stat(filepath.Join(root, SnippetFile))
	assert.True(t, os.IsNotExist(err))
}
