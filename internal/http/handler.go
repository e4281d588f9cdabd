package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"potholytics-service/internal/config"
	"potholytics-service/internal/domain/pothole"
	"potholytics-service/internal/results"
	"potholytics-service/internal/service"
	"potholytics-service/internal/upload"
)

type Handler struct {
	workbench *service.WorkbenchService
	config    *config.Config
	log       zerolog.Logger
}

func NewHandler(
	workbench *service.WorkbenchService,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		workbench: workbench,
		config:    cfg,
		log:       log,
	}
}

// multipartOverhead covers boundaries and part headers around the file.
const multipartOverhead = 1 << 20

type detectRequest struct {
	Model string `json:"model"`
}

type compareRequest struct {
	ModelA string `json:"model_a"`
	ModelB string `json:"model_b"`
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/health", h.health)

	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/models", h.listModels)

		public.POST("/sessions", h.createSession)
		public.GET("/sessions/:id", h.getSession)
		public.POST("/sessions/:id/file", h.selectFile)
		public.GET("/previews/:handle", h.servePreview)

		public.POST("/sessions/:id/detect", h.detect)
		public.POST("/sessions/:id/stop", h.stopDetection)

		public.POST("/sessions/:id/compare", h.compare)
		public.GET("/sessions/:id/comparison", h.getComparison)
		public.POST("/sessions/:id/comparison/panel", h.toggleComparison)
		public.DELETE("/sessions/:id/comparison/panel", h.closeComparison)

		public.GET("/sessions/:id/results", h.getResults)
		public.POST("/sessions/:id/results/panel", h.openResults)
		public.DELETE("/sessions/:id/results/panel", h.closeResults)
		public.POST("/sessions/:id/results/rows/:index/toggle", h.toggleRow)
		public.POST("/sessions/:id/results/rows/delete", h.deleteRows)
		public.POST("/sessions/:id/results/detail/next", h.nextImage)
		public.POST("/sessions/:id/results/detail/previous", h.previousImage)
		public.POST("/sessions/:id/results/detail/:index", h.openDetail)
		public.DELETE("/sessions/:id/results/detail", h.closeDetail)

		public.GET("/dashboard", h.dashboard)
		public.GET("/dashboard/markers/:index", h.markerOverlay)
	}

	// Protected endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/sessions/:id/results/save", h.saveDetections)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.workbench.Sessions().Len(),
		"previews": h.workbench.ActivePreviews(),
	})
}

func (h *Handler) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.workbench.Models()))
}

func (h *Handler) createSession(c *gin.Context) {
	c.JSON(http.StatusCreated, successResponse(h.workbench.CreateSession()))
}

func (h *Handler) getSession(c *gin.Context) {
	view, err := h.workbench.GetSession(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) selectFile(c *gin.Context) {
	limit := h.config.Upload.MaxBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse(tooLargeMessage(h.config.Upload.MaxBytes)))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse(tooLargeMessage(h.config.Upload.MaxBytes)))
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse("file is required"))
		return
	}

	src, err := header.Open()
	if err != nil {
		h.handleError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer src.Close()

	file, err := upload.ReadMediaFile(header.Filename, header.Header.Get("Content-Type"), src, h.config.Upload.MaxBytes)
	if err != nil {
		h.handleError(c, err)
		return
	}

	preview, err := h.workbench.SelectFile(c.Param("id"), file)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(preview))
}

func (h *Handler) servePreview(c *gin.Context) {
	file, err := h.workbench.OpenPreview(c.Param("handle"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *Handler) detect(c *gin.Context) {
	var req detectRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	view, err := h.workbench.Detect(c.Request.Context(), c.Param("id"), req.Model)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) stopDetection(c *gin.Context) {
	res, err := h.workbench.StopDetection(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(res))
}

func (h *Handler) compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	res, err := h.workbench.Compare(c.Request.Context(), c.Param("id"), req.ModelA, req.ModelB)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(res))
}

func (h *Handler) getComparison(c *gin.Context) {
	view, err := h.workbench.Comparison(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) toggleComparison(c *gin.Context) {
	view, err := h.workbench.ToggleComparison(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) closeComparison(c *gin.Context) {
	view, err := h.workbench.CloseComparison(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) getResults(c *gin.Context) {
	h.respondResults(c, h.workbench.Results)
}

func (h *Handler) openResults(c *gin.Context) {
	h.respondResults(c, h.workbench.OpenResults)
}

func (h *Handler) closeResults(c *gin.Context) {
	h.respondResults(c, h.workbench.CloseResults)
}

func (h *Handler) deleteRows(c *gin.Context) {
	h.respondResults(c, h.workbench.DeleteSelected)
}

func (h *Handler) nextImage(c *gin.Context) {
	h.respondResults(c, h.workbench.NextImage)
}

func (h *Handler) previousImage(c *gin.Context) {
	h.respondResults(c, h.workbench.PreviousImage)
}

func (h *Handler) closeDetail(c *gin.Context) {
	h.respondResults(c, h.workbench.CloseDetail)
}

func (h *Handler) toggleRow(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	view, err := h.workbench.ToggleRow(c.Param("id"), index)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) openDetail(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	view, err := h.workbench.OpenDetail(c.Param("id"), index)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) saveDetections(c *gin.Context) {
	saved, err := h.workbench.SaveDetections(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status": "ok",
		"saved":  saved,
	})
}

func (h *Handler) dashboard(c *gin.Context) {
	summary, err := h.workbench.Dashboard(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(summary))
}

func (h *Handler) markerOverlay(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	overlay, err := h.workbench.MarkerOverlay(c.Request.Context(), index)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(overlay))
}

func (h *Handler) respondResults(c *gin.Context, op func(id string) (results.View, error)) {
	view, err := op(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pothole.ErrValidation), errors.Is(err, pothole.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, pothole.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, pothole.ErrBusy):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, pothole.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, pothole.ErrDetectionFailed), errors.Is(err, pothole.ErrHistoryUnavailable):
		h.log.Warn().Err(err).Str("path", c.FullPath()).Msg("upstream failure")
		c.JSON(http.StatusBadGateway, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return false
	}
	return true
}

func tooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("file exceeds %d bytes", maxBytes)
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := parseInt(strings.TrimSpace(c.Param("index")))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("index must be a non-negative integer"))
		return 0, false
	}
	return index, true
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
