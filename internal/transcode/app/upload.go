package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg"
	errprocess "video_transcode_service/pkg/err"
	"video_transcode_service/pkg/logger"
	"video_transcode_service/pkg/metrics"

	"go.uber.org/zap"
)

// DefaultMaxUploadBytes 上傳大小上限
const DefaultMaxUploadBytes int64 = 100_000_000

// 副檔名 -> 允許的 MIME type
var allowedTypes = map[string][]string{
	".mp4": {"video/mp4"},
	".mov": {"video/quicktime"},
	".avi": {"video/x-msvideo", "video/avi", "video/msvideo"},
	".mkv": {"video/x-matroska"},
}

// 讓測試可以替換檔案操作
var (
	createDir = func(path string) error {
		return os.MkdirAll(path, 0755)
	}

	createFile = func(name string) (*os.File, error) {
		return os.Create(name)
	}

	copyFile = func(dst *os.File, src io.Reader) (written int64, err error) {
		return io.Copy(dst, src)
	}

	timeNow = time.Now
)

// UploadReceiver validate an upload and persist it as a SourceFile
type UploadReceiver interface {
	Accept(ctx context.Context, req domain.UploadVideoReq) (*domain.SourceFile, error)
}

type uploadReceiver struct {
	dir      string
	maxBytes int64
}

// NewUploadReceiver 上傳檔案存放在 dir, 超過 maxBytes 的上傳會被拒絕
func NewUploadReceiver(dir string, maxBytes int64) UploadReceiver {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &uploadReceiver{dir: dir, maxBytes: maxBytes}
}

// ValidateUpload check extension, MIME type and declared size. Nothing is written.
func ValidateUpload(fileName, mimeType string, size, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	allowed, ok := allowedTypes[ext]
	if !ok {
		return fmt.Errorf("%w: extension %q is not accepted", domain.ErrInvalidInput, ext)
	}

	mediaType, _, _ := strings.Cut(mimeType, ";")
	mediaType = strings.TrimSpace(mediaType)
	if !pkg.ContainsFold(allowed, mediaType) {
		return fmt.Errorf("%w: mime type %q does not match %s", domain.ErrInvalidInput, mimeType, ext)
	}

	if size > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrPayloadTooLarge, size, maxBytes)
	}
	return nil
}

// Accept 驗證並寫入上傳檔, 回傳不可變的 SourceFile
func (u *uploadReceiver) Accept(ctx context.Context, req domain.UploadVideoReq) (*domain.SourceFile, error) {
	src, err := u.accept(req)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(uploadResult(err)).Inc()
		return nil, err
	}
	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	metrics.UploadBytes.Add(float64(src.Size))

	logger.Log.Info("upload accepted",
		zap.String("source", src.ID),
		zap.String("user", src.UserID),
		zap.Int64("size", src.Size),
	)
	return src, nil
}

func (u *uploadReceiver) accept(req domain.UploadVideoReq) (*domain.SourceFile, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", domain.ErrInvalidInput)
	}
	if req.File == nil {
		return nil, fmt.Errorf("%w: missing file", domain.ErrInvalidInput)
	}
	if err := ValidateUpload(req.FileName, req.MimeType, req.Size, u.maxBytes); err != nil {
		return nil, err
	}

	now := timeNow()
	id, err := NewSourceID(req.FileName, now)
	if err != nil {
		return nil, err
	}

	if err := createDir(u.dir); err != nil {
		errMsg := fmt.Sprintf("fileName[%s] 建立上傳目錄失敗 : %v", req.FileName, err)
		return nil, errprocess.Set(errMsg)
	}

	path := filepath.Join(u.dir, id)
	file, err := createFile(path)
	if err != nil {
		errMsg := fmt.Sprintf("fileName[%s] 建立上傳檔案失敗 : %v", req.FileName, err)
		return nil, errprocess.Set(errMsg)
	}

	// 多讀一個 byte 判斷是否超過上限
	written, err := copyFile(file, io.LimitReader(req.File, u.maxBytes+1))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		errMsg := fmt.Sprintf("fileName[%s] 儲存上傳檔案失敗 : %v", req.FileName, err)
		return nil, errprocess.Set(errMsg)
	}

	switch {
	case written > u.maxBytes:
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: more than %d bytes received", domain.ErrPayloadTooLarge, u.maxBytes)
	case written == 0:
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}

	return &domain.SourceFile{
		ID:           id,
		UserID:       req.UserID,
		OriginalName: filepath.Base(strings.ReplaceAll(req.FileName, `\`, "/")),
		StoragePath:  path,
		Size:         written,
		MimeType:     req.MimeType,
		UploadedAt:   now,
	}, nil
}

func uploadResult(err error) string {
	switch domain.KindOf(err) {
	case domain.ErrInvalidInput:
		return "invalid"
	case domain.ErrPayloadTooLarge:
		return "too_large"
	default:
		return "error"
	}
}
