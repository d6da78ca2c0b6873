package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/logger"
	"video_transcode_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUseCase Mock TranscodeUseCase
type MockUseCase struct {
	mock.Mock
}

func (m *MockUseCase) Submit(ctx context.Context, req domain.UploadVideoReq) (*domain.UploadVideoRes, error) {
	args := m.Called(req.UserID, req.FileName, req.MimeType)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.UploadVideoRes), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUseCase) Process(ctx context.Context, src domain.SourceFile) domain.PipelineOutcome {
	args := m.Called(src)
	return args.Get(0).(domain.PipelineOutcome)
}

func (m *MockUseCase) RetryRecord(ctx context.Context, outcome domain.PipelineOutcome) domain.PipelineOutcome {
	args := m.Called(outcome)
	return args.Get(0).(domain.PipelineOutcome)
}

func (m *MockUseCase) ListVideos(ctx context.Context, userID string) ([]domain.Video, error) {
	args := m.Called(userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUseCase) ArtifactPath(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func newVideoApp(uc *MockUseCase) *fiber.App {
	logger.SetNewNop()
	h := NewVideoHandler(uc)
	app := fiber.New()
	asMember := func(c *fiber.Ctx) error {
		c.Locals(middlewares.TokenMemberID, "member-1")
		return c.Next()
	}
	app.Post("/upload", asMember, h.UploadVideo)
	app.Get("/files", asMember, h.ListFiles)
	app.Get("/uploads/:name", h.ServeArtifact)
	app.Get("/download/:name", h.DownloadArtifact)
	return app
}

func uploadRequest(t *testing.T, field, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestVideoHandler_UploadVideo(t *testing.T) {
	t.Run("inline 完成", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("Submit", "member-1", "clip.mp4", "video/mp4").Return(&domain.UploadVideoRes{
			Status:  domain.UploadCompleted,
			Message: "video uploaded and processed",
			VideoID: 5,
			Artifacts: []domain.Artifact{
				{Label: "720p", Kind: domain.JobRendition, Path: "/data/artifacts/720p-clip-1-abcd1234.mp4"},
				{Label: "thumbnail", Kind: domain.JobThumbnail, Path: "/data/artifacts/thumbnail-clip-1-abcd1234.png"},
			},
		}, nil).Once()

		resp, err := newVideoApp(uc).Test(uploadRequest(t, UploadField, "clip.mp4", "video/mp4", []byte("video")))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decode(t, resp)
		assert.EqualValues(t, 5, body["video_id"])
		files := body["files"].(map[string]interface{})
		assert.Equal(t, "/uploads/720p-clip-1-abcd1234.mp4", files["720p"])
		assert.Equal(t, "/uploads/thumbnail-clip-1-abcd1234.png", files["thumbnail"])
	})

	t.Run("queue 模式回 202", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("Submit", "member-1", "clip.mov", "video/quicktime").Return(&domain.UploadVideoRes{
			Status:   domain.UploadAccepted,
			Message:  "video accepted, processing",
			SourceID: "clip-1-abcd1234.mov",
		}, nil).Once()

		resp, err := newVideoApp(uc).Test(uploadRequest(t, UploadField, "clip.mov", "video/quicktime", []byte("video")))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
		assert.Equal(t, "clip-1-abcd1234.mov", decode(t, resp)["source_id"])
	})

	t.Run("沒有檔案", func(t *testing.T) {
		uc := new(MockUseCase)
		resp, err := newVideoApp(uc).Test(uploadRequest(t, "other", "clip.mp4", "video/mp4", []byte("video")))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		uc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
	})

	errCases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"格式錯誤", domain.ErrInvalidInput, fiber.StatusBadRequest, "invalid upload"},
		{"檔案過大", domain.ErrPayloadTooLarge, fiber.StatusRequestEntityTooLarge, "file too large"},
		{"無法解碼", domain.NewTranscodeError(domain.ErrUnsupportedInput, "720p", "moov atom not found", nil), fiber.StatusInternalServerError, "transcoding failed"},
		{"逾時", domain.NewTranscodeError(domain.ErrTimeout, "480p", "", context.DeadlineExceeded), fiber.StatusInternalServerError, "transcoding failed"},
		{"紀錄失敗", domain.NewRecordError(domain.RecordStorageWrite, nil), fiber.StatusServiceUnavailable, "could not be saved"},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			uc := new(MockUseCase)
			uc.On("Submit", "member-1", "clip.mp4", "video/mp4").Return(nil, tc.err).Once()

			resp, err := newVideoApp(uc).Test(uploadRequest(t, UploadField, "clip.mp4", "video/mp4", []byte("video")))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			raw, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(raw), tc.msg)
			assert.NotContains(t, string(raw), "moov atom")
		})
	}
}

func TestVideoHandler_ListFiles(t *testing.T) {
	uc := new(MockUseCase)
	uc.On("ListVideos", "member-1").Return([]domain.Video{{
		ID:               3,
		OriginalFilename: "clip.mp4",
		Thumbnail:        "/data/artifacts/thumbnail-clip.png",
		Path720p:         "/data/artifacts/720p-clip.mp4",
		Path480p:         "/data/artifacts/480p-clip.mp4",
		Path360p:         "/data/artifacts/360p-clip.mp4",
		CreatedAt:        time.Unix(1700000000, 0).UTC(),
	}}, nil).Once()

	resp, err := newVideoApp(uc).Test(httptest.NewRequest(http.MethodGet, "/files", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out []videoRes
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "clip.mp4", out[0].OriginalFilename)
	assert.Equal(t, "/uploads/thumbnail-clip.png", out[0].Thumbnail)
	assert.Equal(t, "/uploads/480p-clip.mp4", out[0].Renditions["480p"])
}

func TestVideoHandler_ServeArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "720p-clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	t.Run("byte range", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("ArtifactPath", "720p-clip.mp4").Return(path, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/uploads/720p-clip.mp4", nil)
		req.Header.Set("Range", "bytes=2-5")
		resp, err := newVideoApp(uc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusPartialContent, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "2345", string(raw))
	})

	t.Run("不存在", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("ArtifactPath", "missing.mp4").Return("", domain.ErrNotFound).Once()

		resp, err := newVideoApp(uc).Test(httptest.NewRequest(http.MethodGet, "/uploads/missing.mp4", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("不合法名稱視為不存在", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("ArtifactPath", "..secret").Return("", domain.ErrInvalidInput).Once()

		resp, err := newVideoApp(uc).Test(httptest.NewRequest(http.MethodGet, "/uploads/..secret", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("下載", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("ArtifactPath", "720p-clip.mp4").Return(path, nil).Once()

		resp, err := newVideoApp(uc).Test(httptest.NewRequest(http.MethodGet, "/download/720p-clip.mp4", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	})
}
