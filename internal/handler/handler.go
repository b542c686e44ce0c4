package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shinokawa/Web-annotation-tool/internal/domain"
	"github.com/Shinokawa/Web-annotation-tool/internal/service"
)

const uploadField = "files"

type Handler struct {
	service service.AnnotationService
	log     *zap.Logger
}

func NewHandler(service service.AnnotationService, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) ListImages(c *gin.Context) {
	list, err := h.service.ListImages(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list images", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetImage(c *gin.Context) {
	filename := c.Param("filename")

	file, info, err := h.service.OpenImage(c.Request.Context(), filename)
	if err != nil {
		h.log.Warn("Error serving image",
			zap.String("filename", filename),
			zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	defer file.Close()

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}

func (h *Handler) GetMask(c *gin.Context) {
	filename := c.Param("filename")

	data, err := h.service.GetMask(c.Request.Context(), filename)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		h.log.Error("Failed to get mask",
			zap.String("filename", filename),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}

func (h *Handler) SaveMask(c *gin.Context) {
	var req domain.SaveMaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Warn("Invalid save_mask body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing filename or mask data"})
		return
	}

	maskName, err := h.service.SaveMask(c.Request.Context(), req)
	if err != nil {
		var decodeErr *domain.DecodeError
		switch {
		case errors.Is(err, domain.ErrInvalidName):
			h.log.Warn("Rejected mask filename",
				zap.String("filename", req.Filename))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		case errors.Is(err, domain.ErrBadRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing filename or mask data"})
		case errors.As(err, &decodeErr):
			h.log.Warn("Failed to decode mask",
				zap.String("filename", req.Filename),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": decodeErr.Error()})
		default:
			h.log.Error("Failed to save mask",
				zap.String("filename", req.Filename),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Mask saved: " + maskName,
	})
}

func (h *Handler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.log.Warn("Failed to parse multipart form", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	// A part without a filename lands in form.Value; the field is still present.
	headers, hasFiles := form.File[uploadField]
	_, hasValues := form.Value[uploadField]
	if !hasFiles && !hasValues {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, domain.UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	result, err := h.service.UploadImages(c.Request.Context(), files)
	if err != nil {
		h.log.Error("Failed to upload images", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"uploaded_files": result.UploadedFiles,
		"count":          result.Count,
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *Handler) GetUI(c *gin.Context) {
	c.HTML(http.StatusOK, "annotation.html", gin.H{})
}

func (h *Handler) GetTestPage(c *gin.Context) {
	c.HTML(http.StatusOK, "test.html", gin.H{})
}

// PageUnavailable answers the page routes when no templates were found.
func (h *Handler) PageUnavailable(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Page template not found"})
}
