package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fernwiki/fern/config"
	"github.com/fernwiki/fern/models"
	"github.com/fernwiki/fern/utils"
)

// UploadController stores uploaded files in a flat upload directory and backs
// the gallery listing with uploaded_files records.
type UploadController struct {
	db *gorm.DB
}

// NewUploadController creates an UploadController.
func NewUploadController(db *gorm.DB) *UploadController {
	return &UploadController{db: db}
}

// Upload accepts one multipart file, stores it under a collision-free name and
// records it for the gallery.
func (u *UploadController) Upload(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "no file uploaded")
		return
	}
	defer file.Close()

	cfg := config.Get()
	maxSize := int64(cfg.UploadMax) * 1024 * 1024
	if header.Size > 0 && header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40041, fmt.Sprintf("file size exceeds %dMB", cfg.UploadMax))
		return
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to create upload directory")
		return
	}

	safeName := uuid.NewString() + "_" + sanitizeFilename(header.Filename)
	dstPath := filepath.Join(cfg.UploadDir, safeName)

	out, err := os.Create(dstPath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to save file")
		return
	}
	defer out.Close()

	lr := &io.LimitedReader{R: file, N: maxSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to write file")
		return
	}
	if written > maxSize {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusBadRequest, 40041, fmt.Sprintf("file size exceeds %dMB", cfg.UploadMax))
		return
	}

	record := models.UploadedFile{
		FileName:    sanitizeFilename(header.Filename),
		FilePath:    dstPath,
		URL:         "/uploads/" + safeName,
		Size:        written,
		ContentType: header.Header.Get("Content-Type"),
	}
	if err := u.db.Create(&record).Error; err != nil {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to record upload")
		return
	}

	utils.Success(ctx, record)
}

// Gallery lists uploaded files, newest first.
func (u *UploadController) Gallery(ctx *gin.Context) {
	var files []models.UploadedFile
	if err := u.db.Order("created_at DESC").Find(&files).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to list uploads")
		return
	}
	utils.Success(ctx, files)
}

// sanitizeFilename keeps only filesystem-safe characters from the client name.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
