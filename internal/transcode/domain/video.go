package domain

import (
	"fmt"
	"time"
)

// Video 影片記錄, one row per successful pipeline run
type Video struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           int64     `gorm:"index;not null" json:"user_id"`
	OriginalFilename string    `gorm:"not null" json:"original_filename"`
	Thumbnail        string    `gorm:"not null" json:"thumbnail"`
	Path720p         string    `gorm:"column:path_720p;not null" json:"path_720p"`
	Path480p         string    `gorm:"column:path_480p;not null" json:"path_480p"`
	Path360p         string    `gorm:"column:path_360p;not null" json:"path_360p"`
	CreatedAt        time.Time `gorm:"column:upload_date;autoCreateTime" json:"upload_date"`
}

// TableName gorm table
func (Video) TableName() string {
	return "videos"
}

// RenditionPaths the three rendition paths keyed in ladder order
type RenditionPaths [3]string

// RenditionPathsFrom pick the ladder renditions out of artifacts
func RenditionPathsFrom(artifacts []Artifact) (RenditionPaths, error) {
	var paths RenditionPaths
	for i, spec := range Ladder() {
		for _, a := range artifacts {
			if a.Kind == JobRendition && a.Label == spec.Label {
				paths[i] = a.Path
			}
		}
		if paths[i] == "" {
			return paths, fmt.Errorf("%w: missing %s rendition", ErrInvalidInput, spec.Label)
		}
	}
	return paths, nil
}

// Owner the member row a video belongs to
type Owner struct {
	ID       int64  `gorm:"primaryKey"`
	MemberID string `gorm:"uniqueIndex"`
	Username string `gorm:"uniqueIndex"`
}

// TableName gorm table shared with the member service
func (Owner) TableName() string {
	return "member"
}
