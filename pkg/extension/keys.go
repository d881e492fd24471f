package extension

import (
	"strings"
	"unicode"
)

// DeriveKey derives the default selection parameter key from a capability
// name: the name is split at upper-case boundaries, each segment is
// lower-cased, and the segments are joined with dots. Acronym runs stay
// together, and any package-path prefix is stripped first.
//
//	YyyInvokerWrapper -> yyy.invoker.wrapper
//	HTTPInvoker       -> http.invoker
//	protocol          -> protocol
func DeriveKey(capability string) string {
	if i := strings.LastIndexByte(capability, '/'); i >= 0 {
		capability = capability[i+1:]
	}
	if i := strings.LastIndexByte(capability, '.'); i >= 0 {
		capability = capability[i+1:]
	}

	runes := []rune(capability)
	var segments []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev := runes[i-1]
		cur := runes[i]
		// Boundary at lower->Upper, or at the last capital of an acronym
		// run followed by a lower-case letter (HTTPInvoker -> HTTP|Invoker).
		boundary := (!unicode.IsUpper(prev) && unicode.IsUpper(cur)) ||
			(unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]))
		if boundary {
			segments = append(segments, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		segments = append(segments, string(runes[start:]))
	}

	for i := range segments {
		segments[i] = strings.ToLower(segments[i])
	}
	return strings.Join(segments, ".")
}
