package routing

import "strings"

// PathPattern is a parsed allowlist path containing {param} placeholders.
// Matching is structural: same segment count, literal segments compare
// equal, placeholder segments accept any single non-empty value.
type PathPattern struct {
	raw      string
	segments []string
	isParam  []bool
}

// parsePathPattern returns false for paths with no placeholders; those are
// matched exactly by the classifier without a pattern.
func parsePathPattern(raw string) (PathPattern, bool) {
	if !strings.Contains(raw, "{") {
		return PathPattern{}, false
	}
	if !strings.HasPrefix(raw, "/") {
		return PathPattern{}, false
	}

	segs := splitPathSegments(raw)
	params := make([]bool, len(segs))
	for i, s := range segs {
		switch {
		case s == "":
			return PathPattern{}, false
		case !strings.ContainsAny(s, "{}"):
			// literal
		case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && len(s) > 2:
			params[i] = true
		default:
			return PathPattern{}, false
		}
	}
	return PathPattern{raw: raw, segments: segs, isParam: params}, true
}

func (p PathPattern) Match(path string) bool {
	if p.raw == "" {
		return false
	}
	in := splitPathSegments(path)
	if len(in) != len(p.segments) {
		return false
	}
	for i, got := range in {
		if got == "" {
			return false
		}
		if p.isParam[i] {
			continue
		}
		if got != p.segments[i] {
			return false
		}
	}
	return true
}

func splitPathSegments(path string) []string {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
