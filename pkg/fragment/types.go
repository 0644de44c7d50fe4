package fragment

import "mime"

// supportedTypes is the closed set of media types a fragment may carry.
// Owners cannot store arbitrary payloads: every fragment is typed, and the
// type gates which conversions are available at retrieval time.
var supportedTypes = map[string]struct{}{
	"text/plain":       {},
	"text/html":        {},
	"text/css":         {},
	"text/javascript":  {},
	"text/markdown":    {},
	"text/xml":         {},
	"application/json": {},
	"application/xml":  {},
	"image/png":        {},
	"image/jpeg":       {},
	"image/webp":       {},
	"image/avif":       {},
	"image/gif":        {},
}

// IsSupportedType reports whether value names a storable media type.
// Parameters after a ";" (such as charset) are ignored; only the bare
// type/subtype is checked.
func IsSupportedType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	_, ok := supportedTypes[mediaType]
	return ok
}

// SupportedTypes returns the storable media types. The slice is a copy.
func SupportedTypes() []string {
	out := make([]string, 0, len(supportedTypes))
	for t := range supportedTypes {
		out = append(out, t)
	}
	return out
}
