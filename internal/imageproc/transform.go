package imageproc

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// CenterCropSquare crops img to the largest square centered in it.
func CenterCropSquare(img image.Image) *image.NRGBA {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	left := b.Min.X + (b.Dx()-side)/2
	top := b.Min.Y + (b.Dy()-side)/2
	return imaging.Crop(img, image.Rect(left, top, left+side, top+side))
}

// Resize scales img to exactly size x size with Lanczos3 interpolation,
// ignoring the aspect ratio.
func Resize(img image.Image, size int) *image.NRGBA {
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	if nrgba, ok := resized.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	return imaging.Clone(resized)
}
