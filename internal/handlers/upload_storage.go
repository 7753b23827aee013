package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadsURLPrefix is where the upload directory is served.
const UploadsURLPrefix = "/uploads"

const maxImageSize = 5 << 20

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

var uploadFolders = map[string]struct{}{
	"products": {},
	"banners":  {},
	"store":    {},
}

// Uploads keeps uploaded images on local disk below root.
type Uploads struct {
	root string
}

func NewUploads(root string) *Uploads {
	return &Uploads{root: filepath.Clean(root)}
}

func (u *Uploads) Root() string {
	return u.root
}

// SaveImage stores file under folder and returns its public URL path.
func (u *Uploads) SaveImage(file *multipart.FileHeader, folder string) (string, error) {
	if _, ok := uploadFolders[folder]; !ok {
		return "", fmt.Errorf("unknown upload folder: %s", folder)
	}
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", fmt.Errorf("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", fmt.Errorf("unsupported image type: %s", extension)
	}
	if file.Size > maxImageSize {
		return "", fmt.Errorf("image file too large (max 5MB)")
	}

	dir := filepath.Join(u.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	filename := uuid.NewString() + extension
	fullPath := filepath.Join(dir, filename)

	in, err := file.Open()
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(fullPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(fullPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	logger.WithField("path", fullPath).Debug("image saved")
	return path.Join(UploadsURLPrefix, folder, filename), nil
}

// Delete removes the file behind a URL returned by SaveImage. URLs outside the
// upload prefix and missing files are ignored or refused, never followed.
func (u *Uploads) Delete(publicPath string) error {
	trimmed := strings.TrimSpace(publicPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	if !strings.HasPrefix(cleanRel, UploadsURLPrefix+"/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", publicPath)
	}
	cleanRel = strings.TrimPrefix(cleanRel, UploadsURLPrefix+"/")

	target := filepath.Clean(filepath.Join(u.root, filepath.FromSlash(cleanRel)))
	if target == u.root || !strings.HasPrefix(target, u.root+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload root: %s", publicPath)
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// discardUpload removes an image that will not be referenced after all.
func (u *Uploads) discardUpload(publicPath, route string) {
	if err := u.Delete(publicPath); err != nil {
		logger.WithError(err).WithField("route", route).Warn("could not remove upload")
	}
}
