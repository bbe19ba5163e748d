package handlers

import (
	"github.com/Brownie44l1/imgclass-api/internal/classify"
	"github.com/Brownie44l1/imgclass-api/internal/model"
)

type LoadURLRequest struct {
	URL string `json:"url"`
}

type ClassifyRequest struct {
	TopK       *int     `json:"top_k"`
	Threshold  *float64 `json:"threshold"`
	CenterCrop *bool    `json:"center_crop"`
}

type ImageResponse struct {
	State       string `json:"state"`
	Source      string `json:"source,omitempty"`
	Format      string `json:"format,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Orientation int    `json:"orientation,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ClassifyResponse struct {
	Source              string             `json:"source,omitempty"`
	Predictions         []model.Prediction `json:"predictions"`
	NoQualifyingResults bool               `json:"no_qualifying_results"`
	Message             string             `json:"message,omitempty"`
	InferenceMs         float64            `json:"inference_ms"`
	InferenceTime       string             `json:"inference_time"`
	Params              classify.Params    `json:"params"`
}

type SettingsResponse struct {
	DefaultTopK       int     `json:"default_top_k"`
	DefaultThreshold  float64 `json:"default_threshold"`
	DefaultCenterCrop bool    `json:"default_center_crop"`
	MaxTopK           int     `json:"max_top_k"`
	MaxUploadBytes    int64   `json:"max_upload_bytes"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Sessions    int    `json:"sessions"`
}
