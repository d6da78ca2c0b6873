package domain

import (
	"io"
	"time"
)

// SourceFile an accepted upload sitting on local storage. Immutable once built.
type SourceFile struct {
	// ID unique per upload, also the file name under the upload dir
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	OriginalName string    `json:"original_name"`
	StoragePath  string    `json:"storage_path"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// UploadVideoReq usecase upload video request
type UploadVideoReq struct {
	UserID   string
	FileName string
	MimeType string

	// Size declared by the client, -1 when unknown
	Size int64
	File io.Reader
}

// UploadStatus result of a submit call
type UploadStatus string

const (
	// UploadCompleted pipeline ran inline and the record exists
	UploadCompleted UploadStatus = "completed"
	// UploadAccepted source stored and queued for the worker
	UploadAccepted UploadStatus = "accepted"
)

// UploadVideoRes usecase upload video response
type UploadVideoRes struct {
	Status    UploadStatus
	Message   string
	SourceID  string
	VideoID   uint
	Artifacts []Artifact
}
