// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestResolve(t *testing.T) {
	r := New()
	r.Register("/input/guides/setup.docx", "/docs/guides/setup.md")
	r.Register("/input/intro.pdf", "/docs/intro.md")

	tests := []struct {
		name    string
		ref     string
		want    string
		wantHit bool
	}{
		{"exact path", "/input/guides/setup.docx", "/docs/guides/setup.md", true},
		{"basename only", "setup.docx", "/docs/guides/setup.md", true},
		{"relative suffix", "guides/setup.docx", "/docs/guides/setup.md", true},
		{"other document", "intro.pdf", "/docs/intro.md", true},
		{"unknown document", "missing.docx", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.ref)
			if ok != tt.wantHit {
				t.Fatalf("Resolve(%q) hit = %v, want %v", tt.ref, ok, tt.wantHit)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestRegister_DuplicateLastWriterWins(t *testing.T) {
	r := New()
	r.Register("/in/a.docx", "/out/a.md")
	r.Register("/in/a.docx", "/out/a-2.md")

	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	got, _ := r.Resolve("a.docx")
	if got != "/out/a-2.md" {
		t.Errorf("Resolve = %q, want the later entry", got)
	}
}

func TestRegister_ParallelWriters(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := fmt.Sprintf("/in/doc-%d.docx", i)
			r.Register(src, fmt.Sprintf("/out/doc-%d.md", i))
		}(i)
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Fatalf("Len = %d, want 50", r.Len())
	}
	for i := 0; i < 50; i++ {
		want := fmt.Sprintf("/out/doc-%d.md", i)
		got, ok := r.Resolve(fmt.Sprintf("doc-%d.docx", i))
		if !ok || got != want {
			t.Errorf("Resolve(doc-%d.docx) = %q, %v", i, got, ok)
		}
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	r := New()
	r.Register("/in/a.docx", "/out/a.md")

	snap := r.Snapshot()
	snap["/in/a.docx"] = "tampered"

	got, _ := r.Resolve("/in/a.docx")
	if got != "/out/a.md" {
		t.Errorf("snapshot mutation leaked into registry: %q", got)
	}
}
