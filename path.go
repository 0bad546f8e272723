package vaultik

import "strings"

// joinURL joins URL parts with single "/" separators. Leading and trailing
// separators are stripped from each part, empty parts are dropped, and any
// separator runs remaining in the joined output are collapsed. A scheme
// prefix ("https://") on the first part is left alone.
func joinURL(parts ...string) string {
	elems := make([]string, 0, len(parts))

	for _, part := range parts {
		if part = strings.Trim(part, "/"); part != "" {
			elems = append(elems, part)
		}
	}

	joined := strings.Join(elems, "/")

	prefix := ""
	if i := strings.Index(joined, "://"); i >= 0 {
		prefix, joined = joined[:i+3], joined[i+3:]
	}

	return prefix + collapseSlashes(joined)
}

// collapseSlashes rewrites p until no doubled separators remain. Bounded by
// the length of p, so it cannot loop forever.
func collapseSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	return p
}
