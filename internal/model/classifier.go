package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Brownie44l1/imgclass-api/internal/imageproc"
	ort "github.com/yalue/onnxruntime_go"
)

type Config struct {
	ModelPath      string
	MetadataPath   string
	ORTLibraryPath string
}

// Classifier owns the single ONNX session of the process. The session is
// built on the first Predict and reused afterwards; a failed build is not
// retried.
type Classifier struct {
	cfg      Config
	metadata Metadata
	logger   *slog.Logger

	once    sync.Once
	initErr error

	mu           sync.Mutex
	closed       bool
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewClassifier reads the metadata; the network itself is loaded lazily.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	metadata, err := LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		cfg:      cfg,
		metadata: metadata,
		logger:   logger,
	}, nil
}

func (c *Classifier) Metadata() Metadata {
	return c.metadata
}

func (c *Classifier) ImageOptions(centerCrop bool) imageproc.Options {
	return c.metadata.ImageOptions(centerCrop)
}

// Loaded reports whether the session has been built successfully.
func (c *Classifier) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

func (c *Classifier) load() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.initErr = ErrClosed
		return
	}

	start := time.Now()
	c.logger.Info("loading model", "path", c.cfg.ModelPath)

	if c.cfg.ORTLibraryPath != "" {
		ort.SetSharedLibraryPath(c.cfg.ORTLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			c.initErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
			return
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(c.metadata.InputShape...))
	if err != nil {
		c.initErr = fmt.Errorf("failed to create input tensor: %w", err)
		return
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(c.metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		c.initErr = fmt.Errorf("failed to create output tensor: %w", err)
		return
	}

	session, err := ort.NewAdvancedSession(c.cfg.ModelPath,
		[]string{c.metadata.InputName}, []string{c.metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		c.initErr = fmt.Errorf("failed to create ONNX session: %w", err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		session.Destroy()
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		c.initErr = ErrClosed
		return
	}
	c.session = session
	c.inputTensor = inputTensor
	c.outputTensor = outputTensor
	c.mu.Unlock()

	c.logger.Info("model loaded",
		"path", c.cfg.ModelPath,
		"classes", len(c.metadata.Classes),
		"input_shape", c.metadata.InputShape,
		"duration", time.Since(start),
	)
}

// Predict runs one forward pass and returns a score per class along with
// the wall-clock duration of the pass. Inference has no timeout; ctx is
// only checked before the pass starts.
func (c *Classifier) Predict(ctx context.Context, tensor *imageproc.Tensor) (PredictionVector, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if len(tensor.Data) != c.metadata.InputSize() {
		return nil, 0, &InferenceError{Err: fmt.Errorf("%w: expected %d values, got %d",
			ErrShapeMismatch, c.metadata.InputSize(), len(tensor.Data))}
	}

	c.once.Do(c.load)
	if c.initErr != nil {
		return nil, 0, &InferenceError{Err: c.initErr}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, 0, &InferenceError{Err: ErrClosed}
	}

	copy(c.inputTensor.GetData(), tensor.Data)

	start := time.Now()
	if err := c.session.Run(); err != nil {
		return nil, 0, &InferenceError{Err: err}
	}
	elapsed := time.Since(start)

	outputData := c.outputTensor.GetData()
	scores := make([]float32, len(outputData))
	copy(scores, outputData)
	if c.metadata.ApplySoftmax {
		scores = Softmax(scores)
	}

	return NewPredictionVector(scores, c.metadata.Classes), elapsed, nil
}

func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
		ort.DestroyEnvironment()
	}
}
