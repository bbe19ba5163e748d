package classify

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/Brownie44l1/imgclass-api/internal/imageproc"
	"github.com/Brownie44l1/imgclass-api/internal/model"
)

// Predictor runs the pretrained network over a normalized tensor.
type Predictor interface {
	Predict(ctx context.Context, tensor *imageproc.Tensor) (model.PredictionVector, time.Duration, error)
	ImageOptions(centerCrop bool) imageproc.Options
}

// Params are the user-facing classification settings.
type Params struct {
	TopK       int     `json:"top_k"`
	Threshold  float64 `json:"threshold"`
	CenterCrop bool    `json:"center_crop"`
}

// Validate checks p against the largest Top-K the UI offers.
func (p Params) Validate(maxTopK int) error {
	if p.TopK < 1 || p.TopK > maxTopK {
		return &ValidationError{Field: "top_k", Message: fmt.Sprintf("must be between 1 and %d", maxTopK)}
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return &ValidationError{Field: "threshold", Message: "must be between 0 and 1"}
	}
	return nil
}

type Settings struct {
	Defaults  Params
	MaxTopK   int
	// MaxPixels bounds width*height of decoded images.
	MaxPixels int64
}

// Loaded is an image that decoded successfully, kept for redisplay and for
// repeated classification without another fetch or decode.
type Loaded struct {
	Display     []byte
	Source      string
	Format      string
	Width       int
	Height      int
	Orientation imageproc.Orientation
	Image       *image.NRGBA
}

type Result struct {
	Predictions         []model.Prediction `json:"predictions"`
	Duration            time.Duration      `json:"-"`
	NoQualifyingResults bool               `json:"no_qualifying_results"`
	Params              Params             `json:"params"`
}

// DurationText renders the inference time for people.
func (r *Result) DurationText() string {
	return FormatDuration(r.Duration)
}

func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d µs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1f ms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2f s", d.Seconds())
	}
}
