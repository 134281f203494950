// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package images

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPlace_EmptyIsNoOp(t *testing.T) {
	root := t.TempDir()
	p := NewPlacer(filepath.Join(root, "assets"), root, "My Report.docx")

	mapping, err := p.Place(nil, nil, filepath.Join(root, "my-report.md"))
	if err != nil {
		t.Fatal(err)
	}
	if mapping.Len() != 0 {
		t.Errorf("mapping len = %d, want 0", mapping.Len())
	}
	if _, err := os.Stat(filepath.Join(root, "assets")); !os.IsNotExist(err) {
		t.Error("asset directory should not be created for an empty image set")
	}
}

func TestPlace_WritesAndMaps(t *testing.T) {
	root := t.TempDir()
	assets := filepath.Join(root, "assets")
	p := NewPlacer(assets, root, "My Report.docx")

	if got := p.Slug(); got != "my-report" {
		t.Fatalf("Slug = %q, want my-report", got)
	}

	imgs := map[string][]byte{
		"Chart One.png": []byte("png-a"),
		"diagram.png":   []byte("png-b"),
	}
	docPath := filepath.Join(root, "my-report.md")
	mapping, err := p.Place(imgs, []string{"Chart One.png", "diagram.png"}, docPath)
	if err != nil {
		t.Fatal(err)
	}

	rel, ok := mapping.Get("Chart One.png")
	if !ok || rel != "assets/my-report/chart-one.png" {
		t.Errorf("mapping for Chart One.png = %q, %v", rel, ok)
	}

	data, err := os.ReadFile(filepath.Join(assets, "my-report", "chart-one.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-a" {
		t.Errorf("placed bytes = %q", data)
	}

	paths := mapping.Paths()
	if len(paths) != 2 || paths[0] != "assets/my-report/chart-one.png" {
		t.Errorf("Paths order = %v", paths)
	}
}

func TestPlace_CollisionSuffixes(t *testing.T) {
	root := t.TempDir()
	assets := filepath.Join(root, "assets")
	p := NewPlacer(assets, root, "doc.docx")

	docPath := filepath.Join(root, "doc.md")
	// Two different original names that sanitize to the same filename.
	imgs := map[string][]byte{
		"img one.png": []byte("a"),
		"img_one.png": []byte("b"),
	}
	mapping, err := p.Place(imgs, []string{"img one.png", "img_one.png"}, docPath)
	if err != nil {
		t.Fatal(err)
	}

	first, _ := mapping.Get("img one.png")
	second, _ := mapping.Get("img_one.png")
	if first == second {
		t.Errorf("colliding names mapped to the same path %q", first)
	}
	if !strings.HasSuffix(second, "img-one-2.png") {
		t.Errorf("second path = %q, want -2 suffix", second)
	}
}

func TestPlace_CrossRootFallsBackToAbsolute(t *testing.T) {
	root := t.TempDir()
	assets := filepath.Join(root, "assets")
	p := NewPlacer(assets, root, "doc.docx")

	// The document lives deeper than the asset tree, so no forward-relative
	// path exists; expect a /-rooted path from the output root.
	docPath := filepath.Join(root, "section", "sub", "doc.md")
	mapping, err := p.Place(map[string][]byte{"pic.png": []byte("x")}, []string{"pic.png"}, docPath)
	if err != nil {
		t.Fatal(err)
	}

	rel, _ := mapping.Get("pic.png")
	if rel != "/assets/doc/pic.png" {
		t.Errorf("cross-root path = %q, want /assets/doc/pic.png", rel)
	}
}

func TestRewritePaths(t *testing.T) {
	mapping := &Mapping{paths: map[string]string{
		"image1.png": "assets/doc/image1.png",
	}, order: []string{"image1.png"}}

	content := "![Alt text](image1.png)\n![missing](other.png)\n[not an image](image1.png)\n"
	got := RewritePaths(content, mapping)

	if !strings.Contains(got, "![Alt text](assets/doc/image1.png)") {
		t.Errorf("mapped image not rewritten: %q", got)
	}
	if !strings.Contains(got, "![missing](other.png)") {
		t.Errorf("unmapped image should be untouched: %q", got)
	}
	if !strings.Contains(got, "[not an image](image1.png)") {
		t.Errorf("plain link must not be rewritten: %q", got)
	}
}

func TestRewritePaths_MatchesByBasename(t *testing.T) {
	mapping := &Mapping{paths: map[string]string{
		"image1.png": "assets/doc/image1.png",
	}, order: []string{"image1.png"}}

	got := RewritePaths("![a](media/image1.png)", mapping)
	if got != "![a](assets/doc/image1.png)" {
		t.Errorf("basename lookup failed: %q", got)
	}
}
