package classify

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Brownie44l1/imgclass-api/internal/fetch"
	"github.com/Brownie44l1/imgclass-api/internal/imageproc"
	"github.com/Brownie44l1/imgclass-api/internal/model"
)

type fakePredictor struct {
	scores     []float32
	err        error
	calls      atomic.Int32
	lastTensor *imageproc.Tensor
}

func (f *fakePredictor) Predict(ctx context.Context, tensor *imageproc.Tensor) (model.PredictionVector, time.Duration, error) {
	f.calls.Add(1)
	f.lastTensor = tensor
	if f.err != nil {
		return nil, 0, f.err
	}
	return model.NewPredictionVector(f.scores, model.ImageNetLabels), 12 * time.Millisecond, nil
}

func (f *fakePredictor) ImageOptions(centerCrop bool) imageproc.Options {
	return model.DefaultMetadata().ImageOptions(centerCrop)
}

// mugScores puts most of the mass on "coffee mug" and a little on "cup".
func mugScores() []float32 {
	scores := make([]float32, 1000)
	rest := float32(0.1) / 998
	for i := range scores {
		scores[i] = rest
	}
	scores[504] = 0.7
	scores[968] = 0.2
	return scores
}

// flatScores is an ambiguous prediction: every class equally likely.
func flatScores() []float32 {
	scores := make([]float32, 1000)
	for i := range scores {
		scores[i] = 0.001
	}
	return scores
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newService(t *testing.T, predictor Predictor) *Service {
	t.Helper()
	fetcher := fetch.NewCachingFetcher(fetch.NewHTTPClient(fetch.Config{Timeout: time.Second}, testLogger()), fetch.NewMemoryCache(0), testLogger())
	return NewService(fetcher, predictor, Settings{
		Defaults: Params{TopK: 3, Threshold: 0.05, CenterCrop: true},
		MaxTopK:  5,
	}, testLogger())
}

func TestService_EndToEndFromURL(t *testing.T) {
	data := pngBytes(t, 320, 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	predictor := &fakePredictor{scores: mugScores()}
	svc := newService(t, predictor)

	loaded, err := svc.LoadURL(context.Background(), srv.URL+"/mug.png")
	if err != nil {
		t.Fatalf("LoadURL failed: %v", err)
	}
	if loaded.Width != 320 || loaded.Height != 200 {
		t.Errorf("unexpected size %dx%d", loaded.Width, loaded.Height)
	}
	if _, err := png.Decode(bytes.NewReader(loaded.Display)); err != nil {
		t.Errorf("display bytes should be a PNG: %v", err)
	}

	result, err := svc.Classify(context.Background(), loaded, Params{TopK: 3, Threshold: 0.1, CenterCrop: false})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.NoQualifyingResults || len(result.Predictions) == 0 || len(result.Predictions) > 3 {
		t.Fatalf("expected 1..3 predictions, got %+v", result)
	}
	if result.Predictions[0].Label != "coffee mug" {
		t.Errorf("expected coffee mug first, got %s", result.Predictions[0].Label)
	}
	for i, p := range result.Predictions {
		if p.Score < 0.1 {
			t.Errorf("score %v below threshold", p.Score)
		}
		if i > 0 && p.Score > result.Predictions[i-1].Score {
			t.Error("predictions not sorted")
		}
	}
	if result.Duration != 12*time.Millisecond || result.DurationText() != "12.0 ms" {
		t.Errorf("unexpected duration %v (%s)", result.Duration, result.DurationText())
	}
	if got := predictor.lastTensor.Shape(); got[1] != 224 || got[2] != 224 || got[3] != 3 {
		t.Errorf("unexpected tensor shape %v", got)
	}
}

func TestService_HighThresholdYieldsEmptyResult(t *testing.T) {
	svc := newService(t, &fakePredictor{scores: flatScores()})
	loaded, err := svc.LoadUpload("blurry.png", pngBytes(t, 64, 64))
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.Classify(context.Background(), loaded, Params{TopK: 3, Threshold: 0.99})
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if !result.NoQualifyingResults || len(result.Predictions) != 0 {
		t.Errorf("expected no qualifying results, got %+v", result)
	}
}

func TestService_MalformedURL(t *testing.T) {
	predictor := &fakePredictor{scores: mugScores()}
	svc := newService(t, predictor)

	_, err := svc.LoadURL(context.Background(), "htp:/not-a-url")
	var fetchErr *fetch.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if msg := UserMessage(err); !strings.HasPrefix(msg, "Failed to load from URL") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestService_NotAnImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("<html>definitely not a png</html>"))
	}))
	defer srv.Close()

	svc := newService(t, &fakePredictor{scores: mugScores()})
	_, err := svc.LoadURL(context.Background(), srv.URL)
	var decodeErr *imageproc.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Source != srv.URL {
		t.Errorf("expected source %s, got %s", srv.URL, decodeErr.Source)
	}
	if UserMessage(err) != "Could not read image" {
		t.Errorf("unexpected message %q", UserMessage(err))
	}
}

func TestService_InferenceErrorPropagates(t *testing.T) {
	predictor := &fakePredictor{err: &model.InferenceError{Err: errors.New("boom")}}
	svc := newService(t, predictor)
	loaded, err := svc.LoadUpload("x.png", pngBytes(t, 10, 10))
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Classify(context.Background(), loaded, Params{TopK: 1})
	var inferenceErr *model.InferenceError
	if !errors.As(err, &inferenceErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if predictor.calls.Load() != 1 {
		t.Errorf("inference must not be retried, got %d calls", predictor.calls.Load())
	}
	if UserMessage(err) != "Classification failed" {
		t.Errorf("unexpected message %q", UserMessage(err))
	}
}

func TestService_ValidatesParams(t *testing.T) {
	predictor := &fakePredictor{scores: mugScores()}
	svc := newService(t, predictor)
	loaded, err := svc.LoadUpload("x.png", pngBytes(t, 10, 10))
	if err != nil {
		t.Fatal(err)
	}

	for _, params := range []Params{{TopK: 0}, {TopK: 6}, {TopK: 3, Threshold: 1.2}, {TopK: 3, Threshold: -0.5}} {
		_, err := svc.Classify(context.Background(), loaded, params)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("%+v: expected ValidationError, got %v", params, err)
		}
	}
	if predictor.calls.Load() != 0 {
		t.Error("invalid params should not reach the model")
	}
}

func TestService_CenterCropChangesTensor(t *testing.T) {
	predictor := &fakePredictor{scores: mugScores()}
	svc := newService(t, predictor)
	loaded, err := svc.LoadUpload("wide.png", pngBytes(t, 250, 80))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Classify(context.Background(), loaded, Params{TopK: 1, CenterCrop: true}); err != nil {
		t.Fatal(err)
	}
	cropped := predictor.lastTensor
	if _, err := svc.Classify(context.Background(), loaded, Params{TopK: 1, CenterCrop: false}); err != nil {
		t.Fatal(err)
	}
	full := predictor.lastTensor

	if len(cropped.Data) != len(full.Data) {
		t.Fatal("crop must not change the tensor shape")
	}
	same := true
	for i := range cropped.Data {
		if cropped.Data[i] != full.Data[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("center crop should change the sampled pixels")
	}
}

func TestService_ClassifyBytes(t *testing.T) {
	svc := newService(t, &fakePredictor{scores: mugScores()})
	loaded, result, err := svc.ClassifyBytes(context.Background(), "mug.png", pngBytes(t, 30, 30), Params{TopK: 2, Threshold: 0})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Source != "mug.png" {
		t.Errorf("unexpected source %s", loaded.Source)
	}
	if len(result.Predictions) != 2 {
		t.Errorf("expected 2 predictions, got %d", len(result.Predictions))
	}

	if _, _, err := svc.ClassifyBytes(context.Background(), "empty.png", nil, Params{TopK: 1}); err == nil {
		t.Error("expected error for empty upload")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500 µs"},
		{42 * time.Millisecond, "42.0 ms"},
		{1500 * time.Millisecond, "1.50 s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestUserMessage_Unknown(t *testing.T) {
	if UserMessage(errors.New("x")) != "Something went wrong" {
		t.Error("unexpected fallback message")
	}
}

func TestService_RejectsOversizedImage(t *testing.T) {
	fetcher := fetch.NewCachingFetcher(fetch.NewHTTPClient(fetch.Config{Timeout: time.Second}, testLogger()), fetch.NewMemoryCache(0), testLogger())
	svc := NewService(fetcher, &fakePredictor{scores: mugScores()}, Settings{
		Defaults:  Params{TopK: 3},
		MaxTopK:   5,
		MaxPixels: 1000,
	}, testLogger())

	_, err := svc.LoadUpload("big.png", pngBytes(t, 50, 40))
	var decodeErr *imageproc.DecodeError
	if !errors.As(err, &decodeErr) || !errors.Is(err, imageproc.ErrImageTooLarge) {
		t.Fatalf("expected oversized DecodeError, got %v", err)
	}
	if decodeErr.Source != "big.png" {
		t.Errorf("expected source big.png, got %s", decodeErr.Source)
	}
	if msg := UserMessage(err); msg != "Image is too large to process" {
		t.Errorf("unexpected message %q", msg)
	}

	if _, err := svc.LoadUpload("small.png", pngBytes(t, 25, 40)); err != nil {
		t.Errorf("image within budget should load: %v", err)
	}
}
