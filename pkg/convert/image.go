package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// jpegQuality is used for every jpeg encode. Re-encoding is lossy for the
// lossy formats regardless of the value chosen.
const jpegQuality = 90

// convertImage decodes the source payload to pixels and re-encodes it in
// the target format. Animated inputs keep only the first frame. Identity is
// handled by the caller, so decode always runs here.
func convertImage(data []byte, from, to string) ([]byte, error) {
	img, err := decodeImage(data, from)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", from, err)
	}

	out, err := encodeImage(img, to)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", to, err)
	}
	return out, nil
}

func decodeImage(data []byte, mediaType string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mediaType {
	case TypePNG:
		return png.Decode(r)
	case TypeJPEG:
		return jpeg.Decode(r)
	case TypeGIF:
		return gif.Decode(r)
	case TypeWebP:
		return webp.Decode(r)
	case TypeAVIF:
		return avif.Decode(r)
	default:
		return nil, fmt.Errorf("%w: no decoder for %q", ErrUnsupported, mediaType)
	}
}

func encodeImage(img image.Image, mediaType string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch mediaType {
	case TypePNG:
		err = png.Encode(&buf, img)
	case TypeJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case TypeGIF:
		err = gif.Encode(&buf, img, nil)
	case TypeWebP:
		err = webp.Encode(&buf, img)
	case TypeAVIF:
		err = avif.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("%w: no encoder for %q", ErrUnsupported, mediaType)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
