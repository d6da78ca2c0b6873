package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"video_transcode_service/pkg/config"
	"video_transcode_service/pkg/logger"

	"go.uber.org/zap"
)

// PprofAddr local-only pprof listener
const PprofAddr = "127.0.0.1:6060"

// StartPprof 非 production 環境時在本機啟動 pprof, 回傳是否有啟動
func StartPprof() bool {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return false
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", PprofAddr))
		if err := http.ListenAndServe(PprofAddr, nil); err != nil {
			logger.Log.Warn("pprof server stopped", zap.Error(err))
		}
	}()
	return true
}
