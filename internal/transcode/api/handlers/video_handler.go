package handlers

import (
	"errors"
	"path/filepath"
	"time"

	"video_transcode_service/internal/transcode/app"
	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/logger"
	"video_transcode_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UploadField multipart field holding the video
const UploadField = "video"

// PublicPrefix URL prefix artifacts are served under
const PublicPrefix = "/uploads/"

// VideoHandler 定義影片上傳與讀取處理器
type VideoHandler struct {
	Usecase app.TranscodeUseCase
}

// NewVideoHandler create VideoHandler
func NewVideoHandler(usecase app.TranscodeUseCase) *VideoHandler {
	return &VideoHandler{Usecase: usecase}
}

type videoRes struct {
	ID               uint              `json:"id"`
	OriginalFilename string            `json:"original_filename"`
	Thumbnail        string            `json:"thumbnail"`
	Renditions       map[string]string `json:"renditions"`
	UploadDate       time.Time         `json:"upload_date"`
}

// UploadVideo 上傳影片並轉碼
// @Summary 上傳影片
// @Tags Videos
// @Accept multipart/form-data
// @Produce json
// @Param video formData file true "mp4 / mov / avi / mkv"
// @Success 200 {object} map[string]interface{} "轉碼完成"
// @Success 202 {object} map[string]interface{} "已排入佇列"
// @Failure 400 {object} map[string]string "格式錯誤"
// @Failure 413 {object} map[string]string "檔案過大"
// @Failure 500 {object} map[string]string "轉碼失敗"
// @Failure 503 {object} map[string]string "紀錄寫入失敗"
// @Router /upload [post]
func (h *VideoHandler) UploadVideo(c *fiber.Ctx) error {
	memberID, ok := c.Locals(middlewares.TokenMemberID).(string)
	if !ok || memberID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	fileHeader, err := c.FormFile(UploadField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no video file uploaded"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Log.Error("open multipart file failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	defer file.Close()

	res, err := h.Usecase.Submit(c.UserContext(), domain.UploadVideoReq{
		UserID:   memberID,
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get(fiber.HeaderContentType),
		Size:     fileHeader.Size,
		File:     file,
	})
	if err != nil {
		return writeError(c, err)
	}

	if res.Status == domain.UploadAccepted {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message":   res.Message,
			"source_id": res.SourceID,
		})
	}

	files := make(map[string]string, len(res.Artifacts))
	for _, a := range res.Artifacts {
		files[a.Label] = publicURL(a.Path)
	}
	return c.JSON(fiber.Map{
		"message":  res.Message,
		"video_id": res.VideoID,
		"files":    files,
	})
}

// ListFiles 取得目前會員的影片列表
// @Summary 影片列表
// @Tags Videos
// @Produce json
// @Success 200 {array} videoRes
// @Router /files [get]
func (h *VideoHandler) ListFiles(c *fiber.Ctx) error {
	memberID, ok := c.Locals(middlewares.TokenMemberID).(string)
	if !ok || memberID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	videos, err := h.Usecase.ListVideos(c.UserContext(), memberID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list videos failed"})
	}

	out := make([]videoRes, 0, len(videos))
	for _, v := range videos {
		out = append(out, videoRes{
			ID:               v.ID,
			OriginalFilename: v.OriginalFilename,
			Thumbnail:        publicURL(v.Thumbnail),
			Renditions: map[string]string{
				domain.Label720p: publicURL(v.Path720p),
				domain.Label480p: publicURL(v.Path480p),
				domain.Label360p: publicURL(v.Path360p),
			},
			UploadDate: v.CreatedAt,
		})
	}
	return c.JSON(out)
}

// ServeArtifact 播放產出檔, 支援 Range
// @Summary 讀取影片或縮圖
// @Tags Videos
// @Param name path string true "file name"
// @Success 200 {file} file
// @Success 206 {file} file
// @Failure 404 {object} map[string]string
// @Router /uploads/{name} [get]
func (h *VideoHandler) ServeArtifact(c *fiber.Ctx) error {
	path, err := h.Usecase.ArtifactPath(c.Params("name"))
	if err != nil {
		return artifactError(c, err)
	}
	return c.SendFile(path)
}

// DownloadArtifact 下載產出檔
// @Summary 下載影片或縮圖
// @Tags Videos
// @Param name path string true "file name"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Router /download/{name} [get]
func (h *VideoHandler) DownloadArtifact(c *fiber.Ctx) error {
	name := c.Params("name")
	path, err := h.Usecase.ArtifactPath(name)
	if err != nil {
		return artifactError(c, err)
	}
	return c.Download(path, name)
}

// writeError map pipeline errors to a status. Engine diagnostics never reach the client.
func writeError(c *fiber.Ctx, err error) error {
	switch domain.KindOf(err) {
	case domain.ErrInvalidInput:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid upload: only mp4, mov, avi and mkv videos are accepted"})
	case domain.ErrPayloadTooLarge:
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file too large"})
	case domain.ErrUnsupportedInput, domain.ErrEngineFailure, domain.ErrTimeout, domain.ErrEngineNotFound:
		logger.Log.Error("upload transcoding failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transcoding failed"})
	case domain.ErrRecord:
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "video processed but could not be saved, try again later"})
	}
	logger.Log.Error("request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

// artifactError unsafe names look the same as missing ones
func artifactError(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	return writeError(c, err)
}

func publicURL(path string) string {
	if path == "" {
		return ""
	}
	return PublicPrefix + filepath.Base(path)
}
