package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/example/tesfa/internal/apperr"
)

const maxUploadSize = 5 << 20

var allowedPhotoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// SaveProfilePhoto writes an uploaded photo into dir under a timestamped
// name and returns the path stored on the user row. The file is written
// before the owning database row is committed; the caller must remove it
// again when that write fails.
func SaveProfilePhoto(c *fiber.Ctx, file *multipart.FileHeader, dir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedPhotoExts[ext] {
		return "", apperr.Validation(fmt.Sprintf("unsupported image type %q", ext))
	}
	if file.Size > maxUploadSize {
		return "", apperr.Validation(fmt.Sprintf("image exceeds %d bytes", maxUploadSize))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(file.Filename))
	path := filepath.Join(dir, name)
	if err := c.SaveFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

// RemoveUpload deletes a previously stored upload. Missing files are fine;
// anything else is logged, since an orphaned file is a cleanup chore, not a
// request failure.
func RemoveUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", path).Warn("failed to remove upload")
	}
}
