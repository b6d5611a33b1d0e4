package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/doanvu/image-editing/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "golang.org/x/image/webp"
)

// Materializer writes edited image bytes to durable storage. The file on
// disk is the single source of truth for a result; everything returned
// here is metadata describing it.
//
// Writes are atomic (temp file in the target directory, then rename) and
// name conflicts are claimed with O_EXCL so two workers proposing the same
// free name can never both win it.
type Materializer struct {
	thumbnailSize int
	logger        *zap.Logger
}

func NewMaterializer(thumbnailSize int, logger *zap.Logger) *Materializer {
	return &Materializer{
		thumbnailSize: thumbnailSize,
		logger:        logger,
	}
}

// Materialize computes a destination path from the naming policy, resolves
// conflicts per the policy's explicit choice, and durably writes the bytes.
func (m *Materializer) Materialize(data []byte, policy models.NamingPolicy, item ItemContext) (*models.MaterializedFile, error) {
	width, height := decodeDims(data)

	dir := computeDirectory(policy, width, height)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, mapFSError(err, dir)
	}

	if err := checkDiskSpace(dir, int64(len(data))); err != nil {
		return nil, err
	}

	baseName := computeBaseName(data, policy, item)
	ext := extensionFor(policy)

	path, skipped, err := m.claimPath(dir, baseName, ext, policy)
	if err != nil {
		return nil, err
	}
	if skipped {
		// Conflict policy "skip": the existing file stands; report it.
		return describeExisting(path, width, height)
	}

	if err := m.writeAtomic(path, data); err != nil {
		return nil, err
	}

	file := &models.MaterializedFile{
		AbsolutePath: path,
		Directory:    filepath.Dir(path),
		Filename:     filepath.Base(path),
		SizeBytes:    int64(len(data)),
		Width:        width,
		Height:       height,
		WrittenAt:    time.Now().UTC(),
	}

	if policy.Thumbnail {
		if thumbPath, err := m.writeThumbnail(path, data); err != nil {
			m.logger.Warn("Thumbnail generation failed",
				zap.String("path", path),
				zap.Error(err))
		} else {
			file.ThumbnailPath = thumbPath
		}
	}

	m.logger.Debug("Materialized file",
		zap.String("path", path),
		zap.Int64("size", file.SizeBytes))
	return file, nil
}

// claimPath picks the final destination and, for auto_rename, atomically
// reserves it with O_EXCL so a racing worker moves on to the next suffix.
// content_hash naming is idempotent: the same bytes land on the same path,
// so an existing file is simply rewritten in place.
func (m *Materializer) claimPath(dir, baseName, ext string, policy models.NamingPolicy) (string, bool, error) {
	path := filepath.Join(dir, baseName+"."+ext)

	if policy.Strategy == models.NameByContentHash || policy.Conflict == models.ConflictOverwrite {
		return path, false, nil
	}

	if policy.Conflict == models.ConflictSkip {
		if _, err := os.Stat(path); err == nil {
			return path, true, nil
		}
		return path, false, nil
	}

	// auto_rename (default): append a numeric suffix until a name is free,
	// claiming it with create-exclusive rather than check-then-write.
	for i := 0; ; i++ {
		candidate := path
		if i > 0 {
			candidate = filepath.Join(dir, fmt.Sprintf("%s-%d.%s", baseName, i, ext))
		}
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return candidate, false, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", false, mapFSError(err, candidate)
	}
}

// writeAtomic writes to a temp name in the same directory and renames into
// place, so a concurrent reader never observes a partial file.
func (m *Materializer) writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+uuid.NewString()[:8])
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return mapFSError(err, tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return mapFSError(err, path)
	}
	return nil
}

func describeExisting(path string, width, height int) (*models.MaterializedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, mapFSError(err, path)
	}
	return &models.MaterializedFile{
		AbsolutePath: path,
		Directory:    filepath.Dir(path),
		Filename:     filepath.Base(path),
		SizeBytes:    info.Size(),
		Width:        width,
		Height:       height,
		WrittenAt:    info.ModTime().UTC(),
	}, nil
}

// checkDiskSpace rejects a write up front when the filesystem cannot hold
// the payload.
func checkDiskSpace(dir string, need int64) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		// Statfs failing is not a space problem; let the write surface
		// the real error.
		return nil
	}
	available := int64(stat.Bavail) * int64(stat.Bsize)
	if available < need {
		return models.NewEditError(models.ErrKindDiskSpace,
			fmt.Sprintf("need %d bytes, only %d available in %s", need, available, dir))
	}
	return nil
}

func decodeDims(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func mapFSError(err error, path string) error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return models.NewEditError(models.ErrKindPermissionDenied,
			fmt.Sprintf("permission denied: %s", path))
	case errors.Is(err, syscall.ENOSPC):
		return models.NewEditError(models.ErrKindDiskSpace,
			fmt.Sprintf("no space left writing %s", path))
	case errors.Is(err, syscall.ENAMETOOLONG):
		return models.NewEditError(models.ErrKindPathTooLong,
			fmt.Sprintf("path too long: %s", path))
	default:
		return models.NewEditError(models.ErrKindPermissionDenied,
			fmt.Sprintf("filesystem error at %s: %v", path, err))
	}
}
