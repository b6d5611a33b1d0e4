package storage

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"time"

	"github.com/doanvu/image-editing/internal/models"
	"github.com/doanvu/image-editing/pkg/utils"
)

const promptSlugMaxLen = 60

// ItemContext carries the per-item inputs the naming strategies draw on.
type ItemContext struct {
	Prompt  string
	Index   int
	BatchID string
}

// computeDirectory appends the organize_by segment to the base directory.
func computeDirectory(policy models.NamingPolicy, width, height int) string {
	base := policy.BaseDirectory
	switch policy.OrganizeBy {
	case models.OrganizeByDate:
		return filepath.Join(base, time.Now().UTC().Format("2006-01-02"))
	case models.OrganizeByAspect:
		return filepath.Join(base, classifyAspect(width, height))
	case models.OrganizeByQuality:
		quality := policy.Quality
		if quality == "" {
			quality = "standard"
		}
		return filepath.Join(base, quality)
	default:
		return base
	}
}

func classifyAspect(width, height int) string {
	switch {
	case width <= 0 || height <= 0:
		return "unknown"
	case width == height:
		return "square"
	case width > height:
		return "landscape"
	default:
		return "portrait"
	}
}

// computeBaseName derives the extensionless filename for one result.
// content_hash is deterministic over the bytes, so re-materializing
// identical data always lands on the same name.
func computeBaseName(data []byte, policy models.NamingPolicy, item ItemContext) string {
	var name string
	switch policy.Strategy {
	case models.NameByPrompt:
		name = utils.Slugify(item.Prompt, promptSlugMaxLen)
	case models.NameByContentHash:
		sum := sha256.Sum256(data)
		name = fmt.Sprintf("%x", sum[:8])
	case models.NameExplicit:
		if policy.ExplicitName != "" {
			name = utils.Slugify(policy.ExplicitName, 0)
		} else {
			name = timestampToken()
		}
	default:
		name = timestampToken()
	}

	if policy.Prefix != "" {
		name = policy.Prefix + "-" + name
	}
	return name
}

func timestampToken() string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s-%09d", now.Format("20060102-150405"), now.Nanosecond())
}

func extensionFor(policy models.NamingPolicy) string {
	if policy.Extension != "" {
		return utils.ExtensionForFormat(policy.Extension)
	}
	return "png"
}
