// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sanitize derives filesystem- and URL-safe names from arbitrary
// document and asset names.
package sanitize

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-.]`)
	hyphenRuns  = regexp.MustCompile(`-+`)
)

// Filename turns an arbitrary name into a slug safe for filesystems and
// URLs. Spaces and underscores become hyphens, anything outside
// [A-Za-z0-9-.] is stripped, hyphen runs collapse, and the stem is
// lowercased when lowercase is true. The extension is reattached unchanged.
// A stem that strips away entirely becomes "unnamed".
func Filename(name string, lowercase bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	stem = strings.ReplaceAll(stem, " ", "-")
	stem = strings.ReplaceAll(stem, "_", "-")
	stem = unsafeChars.ReplaceAllString(stem, "")
	stem = hyphenRuns.ReplaceAllString(stem, "-")
	stem = strings.Trim(stem, "-")

	if lowercase {
		stem = strings.ToLower(stem)
	}
	if stem == "" {
		stem = "unnamed"
	}

	return stem + ext
}

// UniquePath returns dir/desired if nothing exists there, otherwise the
// first dir/<stem>-N<ext> (N = 2, 3, ...) that does not exist. Termination
// is bounded by the number of existing entries in dir; no upper limit is
// enforced beyond that.
func UniquePath(dir, desired string) string {
	path := filepath.Join(dir, desired)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(desired)
	stem := strings.TrimSuffix(desired, ext)

	for n := 2; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
