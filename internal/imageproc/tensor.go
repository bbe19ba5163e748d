package imageproc

import (
	"fmt"
	"image"
)

const DefaultSize = 224

type Layout string

const (
	LayoutNHWC Layout = "NHWC"
	LayoutNCHW Layout = "NCHW"
)

// Mode selects the per-channel preprocessing a network was trained with.
type Mode string

const (
	// ModeTF scales to [-1, 1] (MobileNet, Inception).
	ModeTF Mode = "tf"
	// ModeTorch scales to [0, 1] then standardizes with ImageNet mean/std.
	ModeTorch Mode = "torch"
	// ModeCaffe reorders to BGR and subtracts the ImageNet mean, unscaled.
	ModeCaffe Mode = "caffe"
	// ModeUnit scales to [0, 1].
	ModeUnit Mode = "unit"
)

var (
	imageNetMean     = [3]float32{0.485, 0.456, 0.406}
	imageNetStd      = [3]float32{0.229, 0.224, 0.225}
	imageNetCaffeBGR = [3]float32{103.939, 116.779, 123.68}
)

type Options struct {
	Size       int
	CenterCrop bool
	Layout     Layout
	Mode       Mode
}

func DefaultOptions() Options {
	return Options{
		Size:       DefaultSize,
		CenterCrop: true,
		Layout:     LayoutNHWC,
		Mode:       ModeTF,
	}
}

func (o Options) Validate() error {
	if o.Size <= 0 {
		return fmt.Errorf("invalid target size %d", o.Size)
	}
	switch o.Layout {
	case LayoutNHWC, LayoutNCHW:
	default:
		return fmt.Errorf("unknown tensor layout %q", o.Layout)
	}
	switch o.Mode {
	case ModeTF, ModeTorch, ModeCaffe, ModeUnit:
	default:
		return fmt.Errorf("unknown preprocessing mode %q", o.Mode)
	}
	return nil
}

// Tensor is a single image laid out for a batch of one.
type Tensor struct {
	Data     []float32
	Height   int
	Width    int
	Channels int
	Layout   Layout
}

func (t *Tensor) Shape() []int64 {
	if t.Layout == LayoutNCHW {
		return []int64{1, int64(t.Channels), int64(t.Height), int64(t.Width)}
	}
	return []int64{1, int64(t.Height), int64(t.Width), int64(t.Channels)}
}

// At returns the preprocessed value of channel c at (x, y).
func (t *Tensor) At(x, y, c int) float32 {
	if t.Layout == LayoutNCHW {
		return t.Data[c*t.Height*t.Width+y*t.Width+x]
	}
	return t.Data[(y*t.Width+x)*t.Channels+c]
}

// Normalize turns an upright image into the model input tensor: optional
// center crop, resize to opts.Size, then per-channel preprocessing.
func Normalize(img image.Image, opts Options) (*Tensor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.CenterCrop {
		img = CenterCropSquare(img)
	}
	resized := Resize(img, opts.Size)

	width, height := opts.Size, opts.Size
	channels := 3
	plane := width * height
	data := make([]float32, channels*plane)

	for y := 0; y < height; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			rgb := [3]float32{float32(px[0]), float32(px[1]), float32(px[2])}
			values := preprocess(rgb, opts.Mode)

			pixelIndex := y*width + x
			for c := 0; c < channels; c++ {
				if opts.Layout == LayoutNCHW {
					data[c*plane+pixelIndex] = values[c]
				} else {
					data[pixelIndex*channels+c] = values[c]
				}
			}
		}
	}

	return &Tensor{
		Data:     data,
		Height:   height,
		Width:    width,
		Channels: channels,
		Layout:   opts.Layout,
	}, nil
}

func preprocess(rgb [3]float32, mode Mode) [3]float32 {
	var out [3]float32
	switch mode {
	case ModeTF:
		for c := range rgb {
			out[c] = rgb[c]/127.5 - 1
		}
	case ModeTorch:
		for c := range rgb {
			out[c] = (rgb[c]/255 - imageNetMean[c]) / imageNetStd[c]
		}
	case ModeCaffe:
		bgr := [3]float32{rgb[2], rgb[1], rgb[0]}
		for c := range bgr {
			out[c] = bgr[c] - imageNetCaffeBGR[c]
		}
	case ModeUnit:
		for c := range rgb {
			out[c] = rgb[c] / 255
		}
	}
	return out
}
