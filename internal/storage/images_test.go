package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/dispensary/internal/common"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageStore_SavesSniffedImage(t *testing.T) {
	s, err := NewImageStore(t.TempDir(), "uploads/", 1<<20)
	require.NoError(t, err)

	img, err := s.Save(bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.True(t, strings.HasPrefix(img.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(img.URL, ".png"))

	onDisk, err := os.ReadFile(img.Path)
	require.NoError(t, err)
	assert.Equal(t, img.Data, onDisk)
}

func TestImageStore_RejectsNonImagesAndOversize(t *testing.T) {
	s, err := NewImageStore(t.TempDir(), "/uploads", 32)
	require.NoError(t, err)

	_, err = s.Save(strings.NewReader("#!/bin/sh\necho hi\n"))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Save(bytes.NewReader(pngBytes(t)))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Save(bytes.NewReader(nil))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestImageStore_Remove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewImageStore(dir, "", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "/uploads", s.PublicPath())

	img, err := s.Save(bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)

	require.NoError(t, s.Remove(img.Path))
	_, err = os.Stat(img.Path)
	assert.True(t, os.IsNotExist(err))

	// already gone
	require.NoError(t, s.Remove(img.Path))
	require.NoError(t, s.Remove(""))

	assert.Error(t, s.Remove(filepath.Join(t.TempDir(), "other.png")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
