package convert_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragstore/fragstore/pkg/convert"
)

func TestCanConvertIdentity(t *testing.T) {
	for _, mediaType := range []string{
		"text/plain", "text/html", "text/css", "text/javascript",
		"text/markdown", "application/json",
		"image/png", "image/jpeg", "image/webp", "image/avif", "image/gif",
	} {
		assert.True(t, convert.CanConvert(mediaType, mediaType), "identity for %q", mediaType)
	}
}

func TestCanConvertWithinFamily(t *testing.T) {
	assert.True(t, convert.CanConvert("text/markdown", "text/html"))
	assert.True(t, convert.CanConvert("text/html", "text/plain"))
	assert.True(t, convert.CanConvert("image/png", "image/jpeg"))
	assert.True(t, convert.CanConvert("image/avif", "image/gif"))
}

func TestCanConvertAcrossFamilies(t *testing.T) {
	assert.False(t, convert.CanConvert("text/plain", "image/png"))
	assert.False(t, convert.CanConvert("image/jpeg", "text/plain"))
	assert.False(t, convert.CanConvert("text/markdown", "image/gif"))
}

func TestCanConvertUnknownTypes(t *testing.T) {
	assert.False(t, convert.CanConvert("application/pdf", "text/plain"))
	assert.False(t, convert.CanConvert("text/plain", "application/pdf"))
	assert.False(t, convert.CanConvert("", "text/plain"))
}

func TestCanConvertIgnoresParameters(t *testing.T) {
	assert.True(t, convert.CanConvert("text/plain; charset=utf-8", "text/html"))
}

// XML types are storable but belong to no conversion family: identity only.
func TestXMLIdentityOnly(t *testing.T) {
	payload := []byte(`<note><to>you</to></note>`)

	out, err := convert.Convert(payload, "text/xml", "text/xml")
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	assert.False(t, convert.CanConvert("text/xml", "text/plain"))
	_, err = convert.Convert(payload, "application/xml", "text/plain")
	assert.ErrorIs(t, err, convert.ErrUnsupported)
}

// Identity conversion must return the stored bytes untouched and must not
// involve a codec: even a payload that does not decode under its claimed
// type comes back byte for byte.
func TestIdentityIsByteExact(t *testing.T) {
	notReallyAPNG := []byte("definitely not a png")

	out, err := convert.Convert(notReallyAPNG, "image/png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, notReallyAPNG, out)
}

func TestConvertCrossFamilyFails(t *testing.T) {
	_, err := convert.Convert([]byte("hello"), "text/plain", "image/png")
	require.ErrorIs(t, err, convert.ErrUnsupported)
	// The error names both ends of the failed pair.
	assert.Contains(t, err.Error(), "text/plain")
	assert.Contains(t, err.Error(), "image/png")
}

// Same family does not imply convertible: the pair table is explicit.
func TestConvertMissingTextPairFails(t *testing.T) {
	_, err := convert.Convert([]byte("body { color: red }"), "text/css", "text/html")
	assert.ErrorIs(t, err, convert.ErrUnsupported)

	_, err = convert.Convert([]byte(`{"a":1}`), "application/json", "text/html")
	assert.ErrorIs(t, err, convert.ErrUnsupported)
}

func TestMarkdownToHTML(t *testing.T) {
	out, err := convert.Convert([]byte("# Title"), "text/markdown", "text/html")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>")
	assert.Contains(t, string(out), "Title")
}

func TestMarkdownToPlain(t *testing.T) {
	out, err := convert.Convert([]byte("# Title\n\nSome *emphasis* here."), "text/markdown", "text/plain")
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Some emphasis here.")
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "*")
}

func TestHTMLToPlain(t *testing.T) {
	input := []byte(`<html><head><style>p { color: red }</style></head>` +
		`<body><h1>Heading</h1><p>A &amp; B</p><script>alert(1)</script></body></html>`)

	out, err := convert.Convert(input, "text/html", "text/plain")
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "A & B")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color")
	assert.NotContains(t, text, "<")
}

func TestPlainToHTMLEscapes(t *testing.T) {
	out, err := convert.Convert([]byte("a < b & c"), "text/plain", "text/html")
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "a &lt; b &amp; c")
	assert.NotContains(t, html, "a < b")
}

func TestJSONToPlain(t *testing.T) {
	out, err := convert.Convert([]byte(`{"b":2,"a":1}`), "application/json", "text/plain")
	require.NoError(t, err)

	// Pretty-printed, still the same document.
	assert.Contains(t, string(out), "\n")
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, decoded)
}

func TestJSONToPlainRejectsInvalidJSON(t *testing.T) {
	_, err := convert.Convert([]byte("{not json"), "application/json", "text/plain")
	assert.Error(t, err)
}

func TestPlainToJSON(t *testing.T) {
	out, err := convert.Convert([]byte("line one\nline \"two\""), "text/plain", "application/json")
	require.NoError(t, err)

	var decoded string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "line one\nline \"two\"", decoded)
}

func TestCSSAndJavaScriptToPlain(t *testing.T) {
	css := []byte("body { margin: 0 }")
	out, err := convert.Convert(css, "text/css", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, css, out)

	js := []byte("console.log('hi')")
	out, err = convert.Convert(js, "text/javascript", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, js, out)
}

func TestPlainToCSSIsCommented(t *testing.T) {
	out, err := convert.Convert([]byte("notes with */ inside"), "text/plain", "text/css")
	require.NoError(t, err)

	css := string(out)
	assert.True(t, strings.HasPrefix(css, "/*"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(css), "*/"))
	// The embedded terminator must not close the comment early.
	assert.Equal(t, 1, strings.Count(css, "*/"))
}

func TestPlainToJavaScriptIsCommented(t *testing.T) {
	out, err := convert.Convert([]byte("first\nsecond"), "text/plain", "text/javascript")
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, "// "), "line %q", line)
	}
}

// testImage builds a small opaque image with a recognizable size.
func testImage(t *testing.T) image.Image {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPNGToJPEG(t *testing.T) {
	src := encodePNG(t, testImage(t))

	out, err := convert.Convert(src, "image/png", "image/jpeg")
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), decoded.Bounds())
}

func TestPNGToGIFAndBack(t *testing.T) {
	src := encodePNG(t, testImage(t))

	asGIF, err := convert.Convert(src, "image/png", "image/gif")
	require.NoError(t, err)

	backAsPNG, err := convert.Convert(asGIF, "image/gif", "image/png")
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(backAsPNG))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), decoded.Bounds())
}

func TestPNGToWebP(t *testing.T) {
	src := encodePNG(t, testImage(t))

	out, err := convert.Convert(src, "image/png", "image/webp")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.NotEqual(t, src, out)
}

func TestConvertCorruptImageFails(t *testing.T) {
	_, err := convert.Convert([]byte("not image data"), "image/png", "image/jpeg")
	assert.Error(t, err)
}

func TestExtensionToMimeType(t *testing.T) {
	cases := map[string]string{
		".txt":  "text/plain",
		".html": "text/html",
		".css":  "text/css",
		".js":   "text/javascript",
		".md":   "text/markdown",
		".json": "application/json",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".webp": "image/webp",
		".avif": "image/avif",
		".gif":  "image/gif",
	}
	for ext, want := range cases {
		got, ok := convert.ExtensionToMimeType(ext)
		require.True(t, ok, "extension %q", ext)
		assert.Equal(t, want, got)
	}
}

func TestExtensionToMimeTypeNormalizes(t *testing.T) {
	got, ok := convert.ExtensionToMimeType(".MD")
	require.True(t, ok)
	assert.Equal(t, "text/markdown", got)

	got, ok = convert.ExtensionToMimeType("json")
	require.True(t, ok)
	assert.Equal(t, "application/json", got)
}

func TestExtensionToMimeTypeUnknown(t *testing.T) {
	for _, ext := range []string{".pdf", ".exe", ".markdown", ""} {
		got, ok := convert.ExtensionToMimeType(ext)
		assert.False(t, ok, "extension %q", ext)
		assert.Empty(t, got)
	}
}
