package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Brownie44l1/imgclass-api/internal/imageproc"
)

// DefaultMetadata describes a Keras MobileNetV2 exported to ONNX with
// tf2onnx: NHWC input scaled to [-1, 1], softmax already applied.
func DefaultMetadata() Metadata {
	m := Metadata{}
	m.applyDefaults()
	return m
}

func LoadMetadata(path string) (Metadata, error) {
	if path == "" {
		return DefaultMetadata(), nil
	}

	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	metadata.applyDefaults()
	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (m *Metadata) applyDefaults() {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if m.Layout == "" {
		m.Layout = string(imageproc.LayoutNHWC)
	}
	if m.Preprocessing == "" {
		m.Preprocessing = string(imageproc.ModeTF)
	}
	if m.ImageSize == 0 {
		m.ImageSize = imageproc.DefaultSize
	}
	if len(m.Classes) == 0 {
		m.Classes = ImageNetLabels
	}
	size := int64(m.ImageSize)
	if len(m.InputShape) == 0 {
		if m.Layout == string(imageproc.LayoutNCHW) {
			m.InputShape = []int64{1, 3, size, size}
		} else {
			m.InputShape = []int64{1, size, size, 3}
		}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
}

func (m Metadata) Validate() error {
	if err := m.ImageOptions(false).Validate(); err != nil {
		return fmt.Errorf("invalid metadata: %w", err)
	}
	if got, want := m.InputSize(), m.ImageSize*m.ImageSize*3; got != want {
		return fmt.Errorf("invalid metadata: input shape %v holds %d values, image size %d needs %d",
			m.InputShape, got, m.ImageSize, want)
	}
	if got := m.OutputSize(); got != len(m.Classes) {
		return fmt.Errorf("invalid metadata: output shape %v has %d values for %d classes",
			m.OutputShape, got, len(m.Classes))
	}
	return nil
}

// InputSize is the number of values in one input tensor.
func (m Metadata) InputSize() int {
	return shapeSize(m.InputShape)
}

func (m Metadata) OutputSize() int {
	return shapeSize(m.OutputShape)
}

// ImageOptions returns the normalization the network expects.
func (m Metadata) ImageOptions(centerCrop bool) imageproc.Options {
	return imageproc.Options{
		Size:       m.ImageSize,
		CenterCrop: centerCrop,
		Layout:     imageproc.Layout(m.Layout),
		Mode:       imageproc.Mode(m.Preprocessing),
	}
}

func shapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	size := 1
	for _, dim := range shape {
		size *= int(dim)
	}
	return size
}
