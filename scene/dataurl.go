package scene

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"strings"

	// registered decoders for image payloads
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"

	"github.com/pkg/errors"
)

var ErrNotDataURL = errors.New("not a base64 data url")

// DecodeDataURL decodes a base64 image data URL.
func DecodeDataURL(s string) (image.Image, string, error) {
	raw, err := dataURLBytes(s)
	if err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", errors.Wrap(err, "decode image payload")
	}
	return img, format, nil
}

// DataURLSize returns the pixel size of an image data URL without decoding
// the whole image.
func DataURLSize(s string) (int, int, error) {
	raw, err := dataURLBytes(s)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0, errors.Wrap(err, "decode image payload")
	}
	return cfg.Width, cfg.Height, nil
}

// EncodeDataURL encodes img as a PNG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "encode png")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func dataURLBytes(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, ErrNotDataURL
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
		return nil, ErrNotDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 payload")
	}
	return raw, nil
}
