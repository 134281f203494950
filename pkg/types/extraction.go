// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MetaField is one front-matter key/value pair. Metadata is carried as an
// ordered slice rather than a map so that injected front matter preserves
// insertion order.
type MetaField struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ExtractionResult is the common intermediate representation every format
// extractor produces: raw Markdown, extracted binary assets, and diagnostic
// metadata. The normalization pipeline consumes it without inspecting how it
// was produced.
type ExtractionResult struct {
	// Success is false when extraction failed outright; the pipeline then
	// short-circuits to a failed file report.
	Success bool `json:"success"`

	// Markdown is the raw converted content before normalization.
	Markdown string `json:"markdown"`

	// Images maps original asset names to their bytes. ImageOrder records
	// the extraction order of the keys for deterministic placement.
	Images     map[string][]byte `json:"-"`
	ImageOrder []string          `json:"-"`

	// Warnings and Errors accumulate in the order encountered.
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`

	// QualityScore starts at 1.0 and degrades by 0.05 per warning and 0.2
	// per error, floored at 0.
	QualityScore float64 `json:"quality_score"`

	// Metadata holds document properties (title, author, ...) destined for
	// front matter, in insertion order.
	Metadata []MetaField `json:"metadata,omitempty"`
}

// NewExtractionResult returns a successful result with a full quality score.
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		Success:      true,
		Images:       make(map[string][]byte),
		QualityScore: 1.0,
	}
}

// AddWarning records a non-fatal problem and degrades the quality score.
func (r *ExtractionResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
	r.QualityScore = clampScore(r.QualityScore - 0.05)
}

// AddError records a fatal problem, marks the result failed, and degrades
// the quality score.
func (r *ExtractionResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Success = false
	r.QualityScore = clampScore(r.QualityScore - 0.2)
}

// AddImage stores an extracted asset and remembers its insertion order.
func (r *ExtractionResult) AddImage(name string, data []byte) {
	if _, exists := r.Images[name]; !exists {
		r.ImageOrder = append(r.ImageOrder, name)
	}
	r.Images[name] = data
}

// SetMeta appends a metadata field, replacing an earlier value for the same
// key in place so order is stable.
func (r *ExtractionResult) SetMeta(key, value string) {
	for i := range r.Metadata {
		if r.Metadata[i].Key == key {
			r.Metadata[i].Value = value
			return
		}
	}
	r.Metadata = append(r.Metadata, MetaField{Key: key, Value: value})
}

// Meta returns the value for key, or "" when absent.
func (r *ExtractionResult) Meta(key string) string {
	for _, f := range r.Metadata {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	return s
}
