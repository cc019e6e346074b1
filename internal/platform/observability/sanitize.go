package observability

import "unicode"

// Field limits keep log lines bounded. Routes are chi patterns, methods are
// HTTP verbs, and addresses are at most an IPv6 literal.
const (
	routeFieldLimit  = 180
	methodFieldLimit = 10
	addrFieldLimit   = 64
)

// sanitizeField strips control characters so header- or path-derived values
// cannot inject log lines, and clamps the result to limit runes.
func sanitizeField(value string, limit int) string {
	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		cleaned = append(cleaned, r)
		if limit > 0 && len(cleaned) >= limit {
			break
		}
	}
	return string(cleaned)
}

// SanitizeRoute normalises a route pattern for logging and span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeField(route, routeFieldLimit)
}

// SanitizeMethod normalises an HTTP method for logging.
func SanitizeMethod(method string) string {
	return sanitizeField(method, methodFieldLimit)
}
