// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry tracks which output path each source document was
// assigned, so links between documents resolve even though documents are
// converted independently and out of order.
package registry

import (
	"path/filepath"
	"sync"
)

// Registry maps source-document paths to their final output paths. One
// instance is scoped to one batch run and handed to every orchestrator
// invocation; it is never process-global, so concurrent batches do not see
// each other's entries.
//
// In the two-phase batch model every Register happens in phase 1 and every
// Resolve in phase 2, so lookups never race a registration for the same run.
// The mutex still guards parallel phase-1 writers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]string
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]string)}
}

// Register records the output path for a source document. Registering the
// same source twice overwrites the entry; duplicate inputs are a caller
// error, and last-writer-wins keeps the registry consistent with what was
// actually written.
func (r *Registry) Register(sourcePath, outputPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[sourcePath]; !exists {
		r.order = append(r.order, sourcePath)
	}
	r.entries[sourcePath] = outputPath
}

// Resolve finds the output path for a source reference. It matches an exact
// registered path first, then any registered source whose basename equals
// the reference's basename, then any registered source path ending with the
// reference (for relative references like "sub/report.docx").
func (r *Registry) Resolve(ref string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if out, ok := r.entries[ref]; ok {
		return out, true
	}

	base := filepath.Base(ref)
	for _, src := range r.order {
		if filepath.Base(src) == base {
			return r.entries[src], true
		}
	}
	for _, src := range r.order {
		if len(src) > len(ref) && src[len(src)-len(ref):] == ref {
			return r.entries[src], true
		}
	}
	return "", false
}

// Len reports the number of registered documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of the source-to-output mapping.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}
