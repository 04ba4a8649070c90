package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/personal_cloud/internal/logging"
	authmw "github.com/Skotchmaster/personal_cloud/internal/middleware/auth"
	"github.com/Skotchmaster/personal_cloud/internal/mykafka"
	"github.com/Skotchmaster/personal_cloud/internal/storage"
)

type FilesHandler struct {
	Allocator *storage.Allocator
	Producer  *mykafka.Producer
}

type fileResponse struct {
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

func toFileResponse(info storage.FileInfo) fileResponse {
	return fileResponse{
		Filename:   info.Name,
		FileType:   info.FileType,
		Size:       info.Size,
		ModifiedAt: info.ModifiedAt.Format(time.RFC3339),
	}
}

func (h *FilesHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "file_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("kafka publish error", "error", err)
	}
}

func (h *FilesHandler) List(c echo.Context) error {
	user := authmw.CurrentUser(c)

	files, err := h.Allocator.List(user.StoragePath)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("list_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list files")
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FilesHandler) Upload(c echo.Context) error {
	user := authmw.CurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no file selected for uploading")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file")
	}
	defer src.Close()

	info, err := h.Allocator.Save(user.StoragePath, fileHeader.Filename, src)
	if err != nil {
		if errors.Is(err, storage.ErrBadName) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid file name")
		}
		logging.FromContext(c.Request().Context()).Error("upload_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to upload file")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "file_uploaded",
		"user_id":  user.ID,
		"filename": info.Name,
		"size":     info.Size,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "File uploaded successfully",
		"file":    info.Name,
	})
}

func (h *FilesHandler) Download(c echo.Context) error {
	user := authmw.CurrentUser(c)
	filename := c.Param("filename")

	f, err := h.Allocator.Open(user.StoragePath, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to download file")
	}
	defer f.Close()

	name := filepath.Base(f.Name())
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, name))
	return c.Stream(http.StatusOK, contentType, f)
}

func (h *FilesHandler) Delete(c echo.Context) error {
	user := authmw.CurrentUser(c)
	filename := c.Param("filename")

	if err := h.Allocator.Delete(user.StoragePath, filename); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		logging.FromContext(c.Request().Context()).Error("delete_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete file")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "file_deleted",
		"user_id":  user.ID,
		"filename": filename,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("File '%s' deleted successfully", filename),
	})
}

func (h *FilesHandler) Rename(c echo.Context) error {
	user := authmw.CurrentUser(c)

	var req struct {
		OldFilename string `json:"old_filename"`
		NewFilename string `json:"new_filename"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.OldFilename == "" || req.NewFilename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "both old and new filenames are required")
	}

	finalName, err := h.Allocator.Rename(user.StoragePath, req.OldFilename, req.NewFilename)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		case errors.Is(err, storage.ErrExists):
			return echo.NewHTTPError(http.StatusConflict, "a file with the new name already exists")
		case errors.Is(err, storage.ErrBadName):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid file name")
		default:
			logging.FromContext(c.Request().Context()).Error("rename_failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to rename file")
		}
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":         "file_renamed",
		"user_id":      user.ID,
		"old_filename": req.OldFilename,
		"new_filename": finalName,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "File renamed successfully",
		"old_filename": req.OldFilename,
		"new_filename": finalName,
	})
}
