package resolver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/doanvu/image-editing/internal/models"
	"github.com/doanvu/image-editing/pkg/utils"
	"go.uber.org/zap"
)

// Resolver normalizes a tagged image reference into raw bytes ready to
// submit to the remote edit API. Resolution happens exactly once per batch
// item and never retries on its own; a failed resolution is terminal for
// that job and left to the scheduler's policy.
type Resolver struct {
	client  *http.Client
	maxSize int64
	logger  *zap.Logger
}

func NewResolver(maxSize int64, logger *zap.Logger) *Resolver {
	return &Resolver{
		client:  &http.Client{Timeout: 30 * time.Second},
		maxSize: maxSize,
		logger:  logger,
	}
}

// Resolve dispatches on the reference kind. Every failure carries one of
// the resolution error kinds (UNREACHABLE, TOO_LARGE, MALFORMED_ENCODING,
// NOT_FOUND, PERMISSION_DENIED).
func (r *Resolver) Resolve(ctx context.Context, ref models.ImageReference) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch ref.Kind {
	case models.RefRemoteURL:
		data, err = r.fetchRemote(ctx, ref.Value)
	case models.RefInlineData:
		data, err = r.decodeInline(ref.Value)
	case models.RefLocalPath:
		data, err = r.readLocal(ref.Value)
	default:
		return nil, models.NewEditError(models.ErrKindInvalidInput,
			fmt.Sprintf("unknown reference kind %q", ref.Kind))
	}
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > r.maxSize {
		return nil, models.NewEditError(models.ErrKindTooLarge,
			fmt.Sprintf("input is %d bytes, limit is %d", len(data), r.maxSize))
	}
	if len(data) == 0 {
		return nil, models.NewEditError(models.ErrKindMalformedEncoding, "empty image data")
	}
	if ct := utils.DetectImageType(data); !utils.IsValidImageType(ct) {
		return nil, models.NewEditError(models.ErrKindInvalidInput,
			fmt.Sprintf("unsupported content type %s", ct))
	}

	return data, nil
}

func (r *Resolver) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewEditError(models.ErrKindUnreachable,
			fmt.Sprintf("invalid URL %s: %v", url, err))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, models.NewEditError(models.ErrKindUnreachable,
			fmt.Sprintf("failed to fetch %s: %v", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewEditError(models.ErrKindUnreachable,
			fmt.Sprintf("fetch %s returned status %d", url, resp.StatusCode))
	}

	// Read one byte past the limit so oversized payloads are detected
	// without downloading the whole thing.
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxSize+1))
	if err != nil {
		return nil, models.NewEditError(models.ErrKindUnreachable,
			fmt.Sprintf("failed to read response from %s: %v", url, err))
	}
	if int64(len(data)) > r.maxSize {
		return nil, models.NewEditError(models.ErrKindTooLarge,
			fmt.Sprintf("remote payload exceeds %d byte limit", r.maxSize))
	}

	r.logger.Debug("Fetched remote image",
		zap.String("url", url),
		zap.Int("size", len(data)))
	return data, nil
}

func (r *Resolver) decodeInline(value string) ([]byte, error) {
	// Accept both bare base64 and data URIs.
	if idx := strings.Index(value, ";base64,"); idx >= 0 && strings.HasPrefix(value, "data:") {
		value = value[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, models.NewEditError(models.ErrKindMalformedEncoding,
			fmt.Sprintf("invalid base64 payload: %v", err))
	}
	return data, nil
}

func (r *Resolver) readLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, models.NewEditError(models.ErrKindNotFound,
				fmt.Sprintf("file not found: %s", path))
		case errors.Is(err, os.ErrPermission):
			return nil, models.NewEditError(models.ErrKindPermissionDenied,
				fmt.Sprintf("permission denied: %s", path))
		default:
			return nil, models.NewEditError(models.ErrKindNotFound,
				fmt.Sprintf("failed to read %s: %v", path, err))
		}
	}
	return data, nil
}
