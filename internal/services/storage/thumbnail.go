package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// writeThumbnail renders a bounded preview next to the materialized file.
// Thumbnails are best-effort; callers treat failures as soft.
func (m *Materializer) writeThumbnail(path string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	size := m.thumbnailSize
	if size <= 0 {
		size = 256
	}
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	ext := filepath.Ext(path)
	thumbPath := strings.TrimSuffix(path, ext) + "_thumb.jpg"
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return thumbPath, nil
}
