package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/config"
)

// maxUploadBytes caps a single photo or proof clip.
const maxUploadBytes = 25 << 20

// Extensions accepted for listing photos and dispute proof clips.
var allowedUploadExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".mp4":  true,
	".mov":  true,
}

// UploadHandler stores listing photos and dispute proof videos on local
// disk under a random name and returns the public URL.
type UploadHandler struct {
	Cfg config.Config
}

func NewUploadHandler(cfg config.Config) *UploadHandler {
	return &UploadHandler{Cfg: cfg}
}

// Upload accepts one multipart file under the "file" field.
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedUploadExt[ext] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported file type"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "open upload failed"})
	}
	defer src.Close()

	if err := os.MkdirAll(h.Cfg.UploadDir, 0o755); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage unavailable"})
	}
	name := uuid.NewString() + ext
	dstPath := filepath.Join(h.Cfg.UploadDir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage unavailable"})
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes)); err != nil {
		_ = os.Remove(dstPath)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "write failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"url":      strings.TrimRight(h.Cfg.UploadBase, "/") + "/" + name,
		"filename": name,
	})
}
