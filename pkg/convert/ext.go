package convert

import "strings"

// extensions is the closed filename-extension map. It intentionally covers
// only the convertible types: extension-based retrieval has no meaning for
// types the engine cannot target.
var extensions = map[string]string{
	".txt":  TypePlain,
	".html": TypeHTML,
	".css":  TypeCSS,
	".js":   TypeJavaScript,
	".md":   TypeMarkdown,
	".json": TypeJSON,
	".png":  TypePNG,
	".jpg":  TypeJPEG,
	".jpeg": TypeJPEG,
	".webp": TypeWebP,
	".avif": TypeAVIF,
	".gif":  TypeGIF,
}

// ExtensionToMimeType maps a filename extension to its media type. The
// lookup is case-insensitive and tolerates a missing leading dot. Unknown
// extensions return ("", false).
func ExtensionToMimeType(ext string) (string, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	mediaType, ok := extensions[ext]
	return mediaType, ok
}
