package imageproc

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Orientation is the EXIF orientation tag (1..8).
type Orientation int

const (
	OrientationNormal     Orientation = 1
	OrientationFlipH      Orientation = 2
	OrientationRotate180  Orientation = 3
	OrientationFlipV      Orientation = 4
	OrientationTranspose  Orientation = 5
	OrientationRotate270  Orientation = 6
	OrientationTransverse Orientation = 7
	OrientationRotate90   Orientation = 8
)

func (o Orientation) Valid() bool {
	return o >= OrientationNormal && o <= OrientationRotate90
}

// SwapsAxes reports whether applying o exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	return o >= OrientationTranspose && o <= OrientationRotate90
}

// ReadOrientation returns the orientation stored in the EXIF block of data:
// the APP1 segment of a JPEG, the eXIf chunk of a PNG or the EXIF chunk of a
// WebP. Images without EXIF, or with an unreadable or out-of-range tag, are
// upright.
func ReadOrientation(data []byte) Orientation {
	block := exifBlock(data)
	if len(block) == 0 {
		return OrientationNormal
	}
	x, err := exif.Decode(bytes.NewReader(block))
	if err != nil {
		return OrientationNormal
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientationNormal
	}
	v, err := tag.Int(0)
	if err != nil {
		return OrientationNormal
	}
	o := Orientation(v)
	if !o.Valid() {
		return OrientationNormal
	}
	return o
}

// Apply returns img transformed so that it displays upright.
// imaging rotates counter-clockwise, hence tag 6 maps to Rotate270.
func (o Orientation) Apply(img image.Image) *image.NRGBA {
	switch o {
	case OrientationFlipH:
		return imaging.FlipH(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationFlipV:
		return imaging.FlipV(img)
	case OrientationTranspose:
		return imaging.Transpose(img)
	case OrientationRotate270:
		return imaging.Rotate270(img)
	case OrientationTransverse:
		return imaging.Transverse(img)
	case OrientationRotate90:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}
