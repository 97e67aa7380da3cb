package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/suPer8Hu/dispensary/internal/common"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/heic"}

// Image is an uploaded chat image persisted on disk.
type Image struct {
	URL      string
	Path     string
	MIMEType string
	Data     []byte
}

type ImageStore struct {
	dir        string
	publicPath string
	maxBytes   int64
}

func NewImageStore(dir, publicPath string, maxBytes int64) (*ImageStore, error) {
	if dir == "" {
		return nil, errors.New("storage: upload dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create upload dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	publicPath = strings.Trim(publicPath, "/")
	if publicPath == "" {
		publicPath = "uploads"
	}
	return &ImageStore{dir: dir, publicPath: "/" + publicPath, maxBytes: maxBytes}, nil
}

func (s *ImageStore) Dir() string { return s.dir }

// PublicPath is the URL prefix the stored files are served under.
func (s *ImageStore) PublicPath() string { return s.publicPath }

// Save reads r fully, checks that it is an allowed image and writes it under a
// fresh ULID name. The original file name is never used on disk.
func (s *ImageStore) Save(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, common.Invalid("image exceeds %d bytes", s.maxBytes)
	}
	if len(data) == 0 {
		return nil, common.Invalid("empty image")
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return nil, common.Invalid("unsupported image type %s", mt.String())
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(id) + mt.Extension()
	full := filepath.Join(s.dir, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return nil, fmt.Errorf("storage: write image: %w", err)
	}
	return &Image{
		URL:      path.Join(s.publicPath, name),
		Path:     full,
		MIMEType: mt.String(),
		Data:     data,
	}, nil
}

// Remove deletes a file written by Save. A missing file is not an error.
func (s *ImageStore) Remove(p string) error {
	if p == "" {
		return nil
	}
	if filepath.Dir(filepath.Clean(p)) != filepath.Clean(s.dir) {
		return fmt.Errorf("storage: %s is outside the upload dir", p)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove image: %w", err)
	}
	return nil
}
