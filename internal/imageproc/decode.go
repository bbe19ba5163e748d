package imageproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Decoded is an upright, opaque RGB image ready for display or normalization.
type Decoded struct {
	Image       *image.NRGBA
	Format      string
	Orientation Orientation
}

func (d *Decoded) Width() int {
	return d.Image.Bounds().Dx()
}

func (d *Decoded) Height() int {
	return d.Image.Bounds().Dy()
}

// DefaultMaxPixels is the largest width*height Decode accepts, the same bound
// Pillow uses for its decompression bomb warning.
const DefaultMaxPixels int64 = 89_478_485

// Decode parses JPEG, PNG, GIF or WebP bytes, applies the EXIF orientation
// and discards the alpha channel. The declared content type of the source is
// never consulted: the bytes decide.
func Decode(data []byte) (*Decoded, error) {
	return DecodeLimited(data, DefaultMaxPixels)
}

// DecodeLimited is Decode with an explicit pixel budget. The header is read
// first so oversized images are rejected before any pixel buffer exists.
// A maxPixels of zero or less disables the check.
func DecodeLimited(data []byte, maxPixels int64) (*Decoded, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmptyImage}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && pixels > maxPixels {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())}
	}

	orientation := ReadOrientation(data)
	upright := orientation.Apply(img)
	dropAlpha(upright)

	return &Decoded{
		Image:       upright,
		Format:      format,
		Orientation: orientation,
	}, nil
}

// EncodePNG writes the image without any metadata, so orientation is baked
// into the pixels and never applied twice.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func dropAlpha(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}
