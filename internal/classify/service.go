package classify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/Brownie44l1/imgclass-api/internal/fetch"
	"github.com/Brownie44l1/imgclass-api/internal/imageproc"
	"github.com/Brownie44l1/imgclass-api/internal/model"
)

type Service struct {
	fetcher   fetch.Fetcher
	predictor Predictor
	settings  Settings
	logger    *slog.Logger
}

func NewService(fetcher fetch.Fetcher, predictor Predictor, settings Settings, logger *slog.Logger) *Service {
	if settings.MaxTopK < 1 {
		settings.MaxTopK = 5
	}
	if settings.MaxPixels <= 0 {
		settings.MaxPixels = imageproc.DefaultMaxPixels
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:   fetcher,
		predictor: predictor,
		settings:  settings,
		logger:    logger,
	}
}

func (s *Service) Settings() Settings {
	return s.settings
}

func (s *Service) LoadURL(ctx context.Context, url string) (*Loaded, error) {
	img, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn("failed to fetch image", "url", url, "error", err)
		return nil, err
	}
	return s.Load(img)
}

func (s *Service) LoadUpload(name string, data []byte) (*Loaded, error) {
	return s.Load(fetch.FromUpload(name, data))
}

// Load decodes img upright and re-encodes it as PNG for display.
func (s *Service) Load(img *fetch.Image) (*Loaded, error) {
	decoded, err := imageproc.DecodeLimited(img.Data, s.settings.MaxPixels)
	if err != nil {
		var decodeErr *imageproc.DecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.Source = img.Source
		}
		s.logger.Warn("failed to decode image", "source", img.Source, "bytes", len(img.Data), "error", err)
		return nil, err
	}

	var buf bytes.Buffer
	if err := imageproc.EncodePNG(&buf, decoded.Image); err != nil {
		return nil, &imageproc.DecodeError{Source: img.Source, Err: err}
	}

	s.logger.Info("image loaded",
		"source", img.Source,
		"format", decoded.Format,
		"width", decoded.Width(),
		"height", decoded.Height(),
		"orientation", int(decoded.Orientation),
	)

	return &Loaded{
		Display:     buf.Bytes(),
		Source:      img.Source,
		Format:      decoded.Format,
		Width:       decoded.Width(),
		Height:      decoded.Height(),
		Orientation: decoded.Orientation,
		Image:       decoded.Image,
	}, nil
}

// Classify normalizes the loaded image, runs the network and filters the
// scores. An empty result is reported through NoQualifyingResults.
func (s *Service) Classify(ctx context.Context, loaded *Loaded, params Params) (*Result, error) {
	if err := params.Validate(s.settings.MaxTopK); err != nil {
		return nil, err
	}

	tensor, err := imageproc.Normalize(loaded.Image, s.predictor.ImageOptions(params.CenterCrop))
	if err != nil {
		return nil, &model.InferenceError{Err: err}
	}

	vec, elapsed, err := s.predictor.Predict(ctx, tensor)
	if err != nil {
		s.logger.Error("prediction failed", "source", loaded.Source, "error", err)
		return nil, err
	}

	filtered := model.Filter(vec, params.TopK, float32(params.Threshold))

	s.logger.Info("image classified",
		"source", loaded.Source,
		"top_k", params.TopK,
		"threshold", params.Threshold,
		"center_crop", params.CenterCrop,
		"results", len(filtered.Predictions),
		"duration", elapsed,
	)

	return &Result{
		Predictions:         filtered.Predictions,
		Duration:            elapsed,
		NoQualifyingResults: filtered.Empty(),
		Params:              params,
	}, nil
}

// ClassifyBytes loads and classifies in one step, without session state.
func (s *Service) ClassifyBytes(ctx context.Context, name string, data []byte, params Params) (*Loaded, *Result, error) {
	loaded, err := s.LoadUpload(name, data)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.Classify(ctx, loaded, params)
	if err != nil {
		return loaded, nil, err
	}
	return loaded, result, nil
}
