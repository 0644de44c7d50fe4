// Package convert re-encodes fragment payloads between media types.
//
// Conversions are gated by a capability matrix: a payload can be returned
// as-is (identity, any type) or re-encoded within its family. The text
// family is driven by an explicit pair table, so two text types being in the
// same family does not imply a conversion exists between them. The image
// family is uniform: any supported image decodes to pixels and re-encodes
// to any other supported image type.
package convert

import (
	"errors"
	"fmt"
	"mime"
)

// ErrUnsupported is returned when no conversion exists between two types.
var ErrUnsupported = errors.New("unsupported conversion")

const (
	TypePlain      = "text/plain"
	TypeHTML       = "text/html"
	TypeCSS        = "text/css"
	TypeJavaScript = "text/javascript"
	TypeMarkdown   = "text/markdown"
	TypeJSON       = "application/json"

	TypePNG  = "image/png"
	TypeJPEG = "image/jpeg"
	TypeWebP = "image/webp"
	TypeAVIF = "image/avif"
	TypeGIF  = "image/gif"
)

var textFamily = map[string]struct{}{
	TypePlain:      {},
	TypeHTML:       {},
	TypeCSS:        {},
	TypeJavaScript: {},
	TypeMarkdown:   {},
	TypeJSON:       {},
}

var imageFamily = map[string]struct{}{
	TypePNG:  {},
	TypeJPEG: {},
	TypeWebP: {},
	TypeAVIF: {},
	TypeGIF:  {},
}

type pair struct {
	from string
	to   string
}

// transform re-encodes a payload. Input bytes are never modified.
type transform func(data []byte) ([]byte, error)

// textTransforms is the closed set of supported text conversions. Pairs not
// listed here are unsupported even when both types are text.
var textTransforms = map[pair]transform{
	{TypeMarkdown, TypeHTML}:    markdownToHTML,
	{TypeMarkdown, TypePlain}:   markdownToPlain,
	{TypeHTML, TypePlain}:       htmlToPlain,
	{TypePlain, TypeHTML}:       plainToHTML,
	{TypeJSON, TypePlain}:       jsonToPlain,
	{TypePlain, TypeJSON}:       plainToJSON,
	{TypeCSS, TypePlain}:        passthrough,
	{TypeJavaScript, TypePlain}: passthrough,
	{TypePlain, TypeCSS}:        plainToCSS,
	{TypePlain, TypeJavaScript}: plainToJavaScript,
}

// CanConvert reports whether a payload of type from can be returned as type
// to: always for identity, otherwise only within a family. Media-type
// parameters on either side are ignored.
func CanConvert(from, to string) bool {
	from, to = bareType(from), bareType(to)
	if from == "" || to == "" {
		return false
	}
	if from == to {
		return true
	}
	if _, ok := textFamily[from]; ok {
		_, ok := textFamily[to]
		return ok
	}
	if _, ok := imageFamily[from]; ok {
		_, ok := imageFamily[to]
		return ok
	}
	return false
}

// Convert re-encodes data from one media type to another.
//
// Identity conversions return data unchanged, with no decode step: a stored
// payload is always retrievable byte for byte under its own type. A missing
// pair returns ErrUnsupported wrapped with both type names.
func Convert(data []byte, from, to string) ([]byte, error) {
	fromBare, toBare := bareType(from), bareType(to)
	if fromBare == "" || toBare == "" {
		return nil, fmt.Errorf("%w: %q to %q", ErrUnsupported, from, to)
	}
	if fromBare == toBare {
		return data, nil
	}

	if _, ok := textFamily[fromBare]; ok {
		fn, ok := textTransforms[pair{fromBare, toBare}]
		if !ok {
			return nil, fmt.Errorf("%w: %q to %q", ErrUnsupported, fromBare, toBare)
		}
		return fn(data)
	}

	if _, ok := imageFamily[fromBare]; ok {
		if _, ok := imageFamily[toBare]; ok {
			return convertImage(data, fromBare, toBare)
		}
	}

	return nil, fmt.Errorf("%w: %q to %q", ErrUnsupported, fromBare, toBare)
}

// bareType strips media-type parameters and normalizes case. Returns "" for
// values that do not parse as a media type.
func bareType(value string) string {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return mediaType
}
