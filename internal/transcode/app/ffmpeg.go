package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/logger"
	"video_transcode_service/pkg/metrics"

	"go.uber.org/zap"
)

const (
	defaultFFmpeg = "ffmpeg"
	defaultPreset = "veryfast"
	// maxDiagnostic bytes of stderr kept on an error
	maxDiagnostic = 4096
)

// ffmpeg 錯誤輸出中代表來源無法解碼的片段
var unsupportedMarkers = []string{
	"Invalid data found when processing input",
	"moov atom not found",
	"could not find codec parameters",
	"does not contain any stream",
	"Invalid NAL unit size",
}

// 讓測試可以替換
var (
	lookPath    = exec.LookPath
	execCommand = exec.CommandContext
)

// FFmpegConfig ffmpeg engine settings
type FFmpegConfig struct {
	Binary  string
	Preset  string
	Timeout time.Duration
}

type ffmpegEngine struct {
	bin     string
	preset  string
	timeout time.Duration
}

// NewFFmpegEngine resolve the ffmpeg binary, missing binary is ErrEngineNotFound
func NewFFmpegEngine(cfg FFmpegConfig) (CodecEngine, error) {
	bin := cfg.Binary
	if bin == "" {
		bin = defaultFFmpeg
	}
	path, err := lookPath(bin)
	if err != nil {
		return nil, domain.NewTranscodeError(domain.ErrEngineNotFound, "", "", err)
	}

	preset := cfg.Preset
	if preset == "" {
		preset = defaultPreset
	}
	return &ffmpegEngine{bin: path, preset: preset, timeout: cfg.Timeout}, nil
}

func (f *ffmpegEngine) Transcode(ctx context.Context, sourcePath, targetPath string, width, height int) error {
	job := fmt.Sprintf("%dx%d", width, height)
	if width <= 0 || height <= 0 {
		return domain.NewTranscodeError(domain.ErrInvalidInput, job, "", fmt.Errorf("bad geometry %s", job))
	}

	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-n",
		"-i", sourcePath,
		"-vf", "scale=" + strconv.Itoa(width) + ":" + strconv.Itoa(height),
		"-c:v", domain.H264Profile.VideoCodec,
		"-preset", f.preset,
		"-c:a", domain.H264Profile.AudioCodec,
		"-movflags", "+faststart",
		targetPath,
	}
	return f.run(ctx, domain.JobRendition, job, sourcePath, targetPath, args)
}

// Thumbnail 取第一個 keyframe, 縮放為 320x240
func (f *ffmpegEngine) Thumbnail(ctx context.Context, sourcePath, targetPath string) error {
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-n",
		"-skip_frame", "nokey",
		"-i", sourcePath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", domain.ThumbnailWidth, domain.ThumbnailHeight),
		targetPath,
	}
	return f.run(ctx, domain.JobThumbnail, string(domain.JobThumbnail), sourcePath, targetPath, args)
}

func (f *ffmpegEngine) run(ctx context.Context, kind domain.JobKind, job, sourcePath, targetPath string, args []string) (err error) {
	start := time.Now()
	metrics.EngineInFlight.Inc()
	defer func() {
		metrics.EngineInFlight.Dec()
		metrics.EngineDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
		metrics.EngineInvocationsTotal.WithLabelValues(string(kind), statusLabel(err)).Inc()
	}()

	if _, statErr := os.Stat(sourcePath); statErr != nil {
		return domain.NewTranscodeError(domain.ErrUnsupportedInput, job, statErr.Error(), statErr)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := execCommand(ctx, f.bin, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	logger.Log.Debug("ffmpeg start", zap.String("job", job), zap.Strings("args", args))

	runErr := cmd.Run()
	diagnostic := tail(stderr.String(), maxDiagnostic)

	if runErr == nil {
		info, statErr := os.Stat(targetPath)
		if statErr != nil || info.Size() == 0 {
			return domain.NewTranscodeError(domain.ErrEngineFailure, job, diagnostic, errors.New("no output produced"))
		}
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.NewTranscodeError(contextKind(ctxErr), job, diagnostic, ctxErr)
	}
	if isUnsupported(diagnostic) {
		return domain.NewTranscodeError(domain.ErrUnsupportedInput, job, diagnostic, runErr)
	}
	return domain.NewTranscodeError(domain.ErrEngineFailure, job, diagnostic, runErr)
}

func contextKind(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return domain.ErrEngineFailure
}

func isUnsupported(diagnostic string) bool {
	for _, marker := range unsupportedMarkers {
		if strings.Contains(diagnostic, marker) {
			return true
		}
	}
	return false
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != nil {
		return strings.ReplaceAll(kind.Error(), " ", "_")
	}
	return "error"
}
