package router

import (
	memberhandlers "video_transcode_service/internal/member/api/handlers"
	"video_transcode_service/internal/transcode/api/handlers"
	"video_transcode_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 註冊 transcode_service 的路由
// @title Video Transcode Service API
// @version 1.0
// @host localhost:8080
// @BasePath /
func RegisterRoutes(app *fiber.App, videoHandler *handlers.VideoHandler, memberHandler *memberhandlers.MemberHandler, validators ...middlewares.SessionValidator) {
	app.Get("/", handlers.ConnectCheck)
	app.Post("/debug", handlers.DebugLogFlag)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	auth := middlewares.JWTMiddleware(validators...)

	memberRoutes := app.Group("/member")
	memberRoutes.Post("/register", memberHandler.Register)
	memberRoutes.Post("/login", memberHandler.Login)
	memberRoutes.Post("/logout", auth, memberHandler.Logout)

	app.Post("/upload", auth, videoHandler.UploadVideo)
	app.Get("/files", auth, videoHandler.ListFiles)
	app.Get("/uploads/:name", videoHandler.ServeArtifact)
	app.Get("/download/:name", auth, videoHandler.DownloadArtifact)
}
