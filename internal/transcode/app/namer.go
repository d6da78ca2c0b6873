package app

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"video_transcode_service/internal/transcode/domain"

	"github.com/google/uuid"
)

const maxStemLen = 48

var (
	unsafeStemChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

	// 讓測試可以固定 uuid
	newUUID = uuid.NewString
)

// NewSourceID build the per-upload identifier: <stem>-<unix millis>-<8 hex><ext>.
// Two uploads with the same original name never share an id.
func NewSourceID(originalName string, at time.Time) (string, error) {
	base := filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))
	if originalName == "" || base == "." || base == "/" {
		return "", fmt.Errorf("%w: empty file name", domain.ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(base))
	stem := unsafeStemChars.ReplaceAllString(strings.TrimSuffix(base, filepath.Ext(base)), "-")
	stem = strings.Trim(stem, "-")
	if len(stem) > maxStemLen {
		stem = stem[:maxStemLen]
	}
	if stem == "" {
		stem = "video"
	}

	suffix := strings.ReplaceAll(newUUID(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-%d-%s%s", stem, at.UnixMilli(), suffix, ext), nil
}

// ArtifactNamer 決定每個產出檔案的路徑, 全部放在同一個目錄下
type ArtifactNamer struct {
	dir string
}

// NewArtifactNamer create a namer rooted at dir
func NewArtifactNamer(dir string) ArtifactNamer {
	return ArtifactNamer{dir: filepath.Clean(dir)}
}

// Dir artifact directory
func (n ArtifactNamer) Dir() string {
	return n.dir
}

// RenditionPath <dir>/<label>-<stem>.<container>
func (n ArtifactNamer) RenditionPath(sourceID string, spec domain.RenditionSpec) (string, error) {
	if err := validateName(sourceID); err != nil {
		return "", err
	}
	if err := validateName(spec.Label); err != nil {
		return "", err
	}
	container := spec.Profile.Container
	if container == "" {
		container = domain.H264Profile.Container
	}
	return filepath.Join(n.dir, fmt.Sprintf("%s-%s.%s", spec.Label, stemOf(sourceID), container)), nil
}

// ThumbnailPath <dir>/thumbnail-<stem>.png
func (n ArtifactNamer) ThumbnailPath(sourceID string) (string, error) {
	if err := validateName(sourceID); err != nil {
		return "", err
	}
	return filepath.Join(n.dir, fmt.Sprintf("%s-%s.%s", domain.JobThumbnail, stemOf(sourceID), domain.ThumbnailFormat)), nil
}

// Resolve map a retrieval name to its path inside the artifact directory
func (n ArtifactNamer) Resolve(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(n.dir, name), nil
}

func stemOf(id string) string {
	return strings.TrimSuffix(id, filepath.Ext(id))
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", domain.ErrInvalidInput)
	case strings.HasPrefix(name, "."),
		strings.Contains(name, ".."),
		strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: illegal name %q", domain.ErrInvalidInput, name)
	}
	return nil
}
