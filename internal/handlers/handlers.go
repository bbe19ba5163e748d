package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Brownie44l1/imgclass-api/internal/classify"
	"github.com/Brownie44l1/imgclass-api/internal/imageproc"
	"github.com/Brownie44l1/imgclass-api/internal/model"
	"github.com/Brownie44l1/imgclass-api/internal/session"
	"github.com/Brownie44l1/imgclass-api/internal/shared"
	"github.com/labstack/echo/v4"
)

const SessionCookie = "imgclass_session"

// ModelStatus reports whether the network has been loaded yet.
type ModelStatus interface {
	Loaded() bool
}

type Config struct {
	MaxUploadBytes int64
	SecureCookies  bool
}

type Handler struct {
	service   *classify.Service
	predictor classify.Predictor
	sessions  *session.Store
	status    ModelStatus
	cfg       Config
	logger    *slog.Logger
}

func NewHandler(service *classify.Service, predictor classify.Predictor, sessions *session.Store, status ModelStatus, cfg Config, logger *slog.Logger) *Handler {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:   service,
		predictor: predictor,
		sessions:  sessions,
		status:    status,
		cfg:       cfg,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.GET("/settings", h.Settings)
	api.GET("/image", h.GetImage)
	api.GET("/image/info", h.ImageInfo)
	api.POST("/image/upload", h.UploadImage)
	api.POST("/image/url", h.LoadURL)
	api.DELETE("/image", h.ClearImage)
	api.POST("/classify", h.Classify)

	e.POST("/predict", h.Predict)
	e.POST("/predict/image", h.PredictFromImage)
}

func (h *Handler) Health(c echo.Context) error {
	loaded := false
	if h.status != nil {
		loaded = h.status.Loaded()
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: loaded,
		Sessions:    h.sessions.Len(),
	})
}

func (h *Handler) Settings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.settingsResponse())
}

func (h *Handler) settingsResponse() SettingsResponse {
	s := h.service.Settings()
	return SettingsResponse{
		DefaultTopK:       s.Defaults.TopK,
		DefaultThreshold:  s.Defaults.Threshold,
		DefaultCenterCrop: s.Defaults.CenterCrop,
		MaxTopK:           s.MaxTopK,
		MaxUploadBytes:    h.cfg.MaxUploadBytes,
	}
}

func (h *Handler) UploadImage(c echo.Context) error {
	name, data, err := h.readUpload(c)
	if err != nil {
		return err
	}

	loaded, err := h.service.LoadUpload(name, data)
	if err != nil {
		return toHTTPError(err)
	}

	sess := h.session(c)
	sess.Load(loaded)
	return c.JSON(http.StatusOK, imageResponse(loaded))
}

func (h *Handler) LoadURL(c echo.Context) error {
	var req LoadURLRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "Invalid request body")
	}
	if req.URL == "" {
		return shared.BadRequest("invalid_request", "url is required")
	}

	loaded, err := h.service.LoadURL(c.Request().Context(), req.URL)
	if err != nil {
		return toHTTPError(err)
	}

	sess := h.session(c)
	sess.Load(loaded)
	return c.JSON(http.StatusOK, imageResponse(loaded))
}

func (h *Handler) GetImage(c echo.Context) error {
	loaded, err := h.loadedImage(c)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", loaded.Display)
}

func (h *Handler) ImageInfo(c echo.Context) error {
	sess, ok := h.existingSession(c)
	if !ok {
		return c.JSON(http.StatusOK, ImageResponse{State: string(session.StateUnloaded)})
	}
	loaded, err := sess.Image()
	if err != nil {
		return c.JSON(http.StatusOK, ImageResponse{State: string(session.StateUnloaded)})
	}
	return c.JSON(http.StatusOK, imageResponse(loaded))
}

func (h *Handler) ClearImage(c echo.Context) error {
	if sess, ok := h.existingSession(c); ok {
		sess.Clear()
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Classify(c echo.Context) error {
	var req ClassifyRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "Invalid request body")
	}
	params := h.service.Settings().Defaults
	if req.TopK != nil {
		params.TopK = *req.TopK
	}
	if req.Threshold != nil {
		params.Threshold = *req.Threshold
	}
	if req.CenterCrop != nil {
		params.CenterCrop = *req.CenterCrop
	}

	sess, ok := h.existingSession(c)
	if !ok {
		return toHTTPError(session.ErrNoImage)
	}

	var source string
	result, err := sess.Classify(func(loaded *classify.Loaded) (*classify.Result, error) {
		source = loaded.Source
		return h.service.Classify(c.Request().Context(), loaded, params)
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, classifyResponse(source, result))
}

// PredictFromImage classifies an uploaded image in one request, without
// touching session state. Settings come from the query string.
func (h *Handler) PredictFromImage(c echo.Context) error {
	params, err := h.queryParams(c)
	if err != nil {
		return err
	}

	name, data, err := h.readUpload(c)
	if err != nil {
		return err
	}

	h.logger.Info("received file", "name", name, "bytes", len(data))

	loaded, result, err := h.service.ClassifyBytes(c.Request().Context(), name, data, params)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, classifyResponse(loaded.Source, result))
}

// Predict runs the network over an already normalized tensor.
func (h *Handler) Predict(c echo.Context) error {
	var req model.PredictionRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "Invalid JSON")
	}

	opts := h.predictor.ImageOptions(false)
	expectedSize := opts.Size * opts.Size * 3
	if len(req.Image) != expectedSize {
		return shared.BadRequest("invalid_tensor", fmt.Sprintf("Expected %d values, got %d", expectedSize, len(req.Image)))
	}

	tensor := &imageproc.Tensor{
		Data:     req.Image,
		Height:   opts.Size,
		Width:    opts.Size,
		Channels: 3,
		Layout:   opts.Layout,
	}
	vec, elapsed, err := h.predictor.Predict(c.Request().Context(), tensor)
	if err != nil {
		h.logger.Error("prediction error", "error", err)
		return toHTTPError(err)
	}

	topK := req.TopK
	if topK == 0 {
		topK = len(vec)
	}
	filtered := model.Filter(vec, topK, req.Threshold)

	resp := model.PredictionResponse{
		Predictions: filtered.Predictions,
		InferenceMs: durationMs(elapsed),
	}
	if len(filtered.Predictions) > 0 {
		resp.Class = filtered.Predictions[0].Label
		resp.Confidence = filtered.Predictions[0].Score
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) readUpload(c echo.Context) (string, []byte, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return "", nil, shared.BadRequest("missing_image", "No image file provided. Use 'image' as the form field name")
	}
	if header.Size > h.cfg.MaxUploadBytes {
		return "", nil, shared.Error(http.StatusRequestEntityTooLarge, "image_too_large", fmt.Sprintf("Image exceeds %d bytes", h.cfg.MaxUploadBytes))
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, shared.BadRequest("invalid_upload", "Failed to read uploaded image")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", nil, shared.BadRequest("invalid_upload", "Failed to read uploaded image")
	}
	if int64(len(data)) > h.cfg.MaxUploadBytes {
		return "", nil, shared.Error(http.StatusRequestEntityTooLarge, "image_too_large", fmt.Sprintf("Image exceeds %d bytes", h.cfg.MaxUploadBytes))
	}
	return header.Filename, data, nil
}

func (h *Handler) queryParams(c echo.Context) (classify.Params, error) {
	params := h.service.Settings().Defaults
	if v := c.QueryParam("top_k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return params, shared.BadRequest("invalid_request", "top_k must be an integer")
		}
		params.TopK = k
	}
	if v := c.QueryParam("threshold"); v != "" {
		th, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, shared.BadRequest("invalid_request", "threshold must be a number")
		}
		params.Threshold = th
	}
	if v := c.QueryParam("center_crop"); v != "" {
		crop, err := strconv.ParseBool(v)
		if err != nil {
			return params, shared.BadRequest("invalid_request", "center_crop must be a boolean")
		}
		params.CenterCrop = crop
	}
	return params, nil
}

// session returns the caller's session, issuing a cookie for a new one.
func (h *Handler) session(c echo.Context) *session.Session {
	var id string
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}

	sess, created := h.sessions.Get(id)
	if created {
		c.SetCookie(&http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

func (h *Handler) existingSession(c echo.Context) (*session.Session, bool) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return h.sessions.Lookup(cookie.Value)
}

func (h *Handler) loadedImage(c echo.Context) (*classify.Loaded, error) {
	sess, ok := h.existingSession(c)
	if !ok {
		return nil, shared.Error(http.StatusNotFound, "no_image", "No image loaded")
	}
	loaded, err := sess.Image()
	if errors.Is(err, session.ErrNoImage) {
		return nil, shared.Error(http.StatusNotFound, "no_image", "No image loaded")
	}
	return loaded, nil
}

func imageResponse(loaded *classify.Loaded) ImageResponse {
	return ImageResponse{
		State:       string(session.StateImageLoaded),
		Source:      loaded.Source,
		Format:      loaded.Format,
		Width:       loaded.Width,
		Height:      loaded.Height,
		Orientation: int(loaded.Orientation),
		ImageURL:    "/api/image",
	}
}

func classifyResponse(source string, result *classify.Result) ClassifyResponse {
	resp := ClassifyResponse{
		Source:              source,
		Predictions:         result.Predictions,
		NoQualifyingResults: result.NoQualifyingResults,
		InferenceMs:         durationMs(result.Duration),
		InferenceTime:       result.DurationText(),
		Params:              result.Params,
	}
	if result.NoQualifyingResults {
		resp.Message = classify.NoQualifyingResultsMessage
	}
	return resp
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
