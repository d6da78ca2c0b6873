package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	memberhandlers "video_transcode_service/internal/member/api/handlers"
	memberapp "video_transcode_service/internal/member/app"
	memberdomain "video_transcode_service/internal/member/domain"
	memberrepo "video_transcode_service/internal/member/repository"
	"video_transcode_service/internal/transcode/api/handlers"
	"video_transcode_service/internal/transcode/api/router"
	"video_transcode_service/internal/transcode/app"
	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/internal/transcode/repository"
	"video_transcode_service/pkg/config"
	"video_transcode_service/pkg/database"
	"video_transcode_service/pkg/logger"
	testtool "video_transcode_service/pkg/test_tool"
	"video_transcode_service/pkg/token"
	"video_transcode_service/pkg/workers"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

const (
	sessionPrefix   = "session:"
	uploadBodySlack = 10 << 20
	shutdownTimeout = 30 * time.Second
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.TranscodeService, config.EnvConfig.TranscodeLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.Transcode](config.EnvConfig.TranscodeService, config.EnvConfig.TranscodeYAMLPath)
	if cfg.Port == "" {
		cfg.Port = config.EnvConfig.TranscodeServicePort
	}
	token.SetSecret(cfg.JWTSecret)
	token.SetExpiration(cfg.SessionTTL)
	testtool.StartPprof()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.ArtifactDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Log.Fatal("建立儲存目錄失敗", zap.String("dir", dir), zap.Error(err))
		}
	}

	// 1. 連線 PostgreSQL, member 走 pgx, videos 走 gorm
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	pgConn := database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	}
	pool, err := database.NewDatabaseConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL pool after retries",
			zap.String("host", cfg.PostgreSQL.Host),
			zap.Error(err),
		)
	}
	defer pool.Close()

	memberRepo := memberrepo.NewMemberRepository(pool)
	if err := memberRepo.Migrate(ctx); err != nil {
		logger.Log.Fatal("member 資料表遷移失敗", zap.Error(err))
	}

	db, err := database.NewPGConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries",
			zap.String("host", cfg.PostgreSQL.Host),
			zap.Error(err),
		)
	}
	videoRepo := repository.NewVideoRepo(db)
	if err := videoRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("videos 資料表遷移失敗", zap.Error(err))
	}

	// 2. Redis: session 與影片列表快取
	redisClient, err := database.NewRedisClient(cfg.Redis.Addrs, cfg.Redis.MasterName, cfg.Redis.Password, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis failed", zap.Strings("addrs", cfg.Redis.Addrs), zap.Error(err))
	}
	defer redisClient.Close()

	sessionRepo := database.NewRedisRepository[memberdomain.MemberSession](redisClient, sessionPrefix)
	videoCache := repository.NewVideoCache(
		database.NewRedisRepository[[]domain.Video](redisClient, repository.VideoListPrefix),
		database.NewRedisCounter(redisClient, repository.VideoListGenerationPrefix),
		cfg.Redis.ListTTL,
	)

	// 3. 選用的輸出: mongo journal, kafka 事件, minio 鏡像
	journal, closeJournal := newRunJournal(ctx, cfg.Mongo)
	defer closeJournal()
	publisher, closePublisher := newOutcomePublisher(cfg.Kafka)
	defer closePublisher()
	store := newArtifactStore(cfg.MinIO)

	// 4. 轉碼 pipeline
	ffmpeg, err := app.NewFFmpegEngine(app.FFmpegConfig{
		Binary:  cfg.Engine.FFmpegPath,
		Preset:  cfg.Engine.Preset,
		Timeout: cfg.Engine.Timeout,
	})
	if err != nil {
		logger.Log.Fatal("codec engine unavailable", zap.String("binary", cfg.Engine.FFmpegPath), zap.Error(err))
	}
	engineSlots := workers.ForEngine(cfg.Engine.MaxConcurrent, len(domain.Ladder())+1)
	engine := app.NewBoundedEngine(ffmpeg, engineSlots)

	namer := app.NewArtifactNamer(cfg.Storage.ArtifactDir)
	recorder := app.NewResultRecorder(videoRepo, videoCache)
	orchestrator := app.NewOrchestrator(engine, namer, recorder, app.WithFailFast(cfg.Engine.FailFast))

	deps := app.TranscodeDeps{
		Receiver:  app.NewUploadReceiver(cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes),
		Pipeline:  orchestrator,
		Recorder:  recorder,
		Namer:     namer,
		VideoRepo: videoRepo,
		Cache:     videoCache,
		Journal:   journal,
		Publisher: publisher,
		Store:     store,
	}

	// 5. queue mode: 上傳交給 rabbitmq worker
	consumerDone := make(chan struct{})
	if cfg.Pipeline.Mode == config.PipelineModeQueue {
		rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    rabbitURL,
			RetryCount:    cfg.RabbitMQ.RetryCount,
			RetryInterval: cfg.RabbitMQ.RetryInterval,
		})
		if err != nil {
			logger.Log.Fatal("RabbitMQ 連線失敗", zap.Error(err))
		}
		defer conn.Close()

		rabbitChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, cfg.RabbitMQ.RetryInterval)
		if err != nil {
			logger.Log.Fatal("取得 RabbitMQ Channel 失敗", zap.Error(err))
		}
		defer rabbitChannel.Close()

		if err := database.DeclareDurableQueue(rabbitChannel, domain.QueueName); err != nil {
			logger.Log.Fatal("Queue Declare failed", zap.String("queue", domain.QueueName), zap.Error(err))
		}
		deps.Rabbit = database.NewRabbitRepository(rabbitChannel)
	} else {
		close(consumerDone)
	}

	usecase := app.NewTranscodeUseCase(deps, app.TranscodeOptions{
		Mode:             cfg.Pipeline.Mode,
		KeepSource:       cfg.Storage.KeepSource,
		RecordRetryLimit: cfg.Pipeline.RecordRetryLimit,
	})

	if deps.Rabbit != nil {
		consumer := app.NewConsumer(deps.Rabbit.GetRabbit(), usecase, domain.QueueName)
		go func() {
			defer close(consumerDone)
			if err := consumer.StartConsumer(ctx); err != nil {
				logger.Log.Error("consumer stopped", zap.Error(err))
			}
		}()
	}

	// 6. 會員
	memberUsecase := memberapp.NewMemberUseCase(memberRepo, cfg.SessionTTL, sessionRepo, nil)

	// 7. HTTP
	maxUpload := cfg.Storage.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = app.DefaultMaxUploadBytes
	}
	r := fiber.New(fiber.Config{
		BodyLimit:    int(maxUpload) + uploadBodySlack,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: cfg.Engine.Timeout + time.Minute,
	})

	accessLog, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.TranscodeLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		logger.Log.Fatal("Failed to open access log file", zap.Error(err))
	}
	defer accessLog.Close()
	r.Use(fiber_log.New(fiber_log.Config{
		Output: accessLog,
	}))

	router.RegisterRoutes(r,
		handlers.NewVideoHandler(usecase),
		memberhandlers.NewMemberHandler(memberUsecase),
		memberUsecase.ValidateSession,
	)

	go func() {
		addr := cfg.IP + ":" + cfg.Port
		logger.Log.Info("transcode service listening",
			zap.String("addr", addr),
			zap.String("mode", cfg.Pipeline.Mode),
			zap.Int("engine_slots", engineSlots),
		)
		if err := r.Listen(addr); err != nil {
			logger.Log.Error("Server failed to start", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down transcode service")
	ctxShut, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.ShutdownWithContext(ctxShut); err != nil {
		logger.Log.Error("fiber shutdown", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-ctxShut.Done():
		logger.Log.Warn("consumer did not stop in time")
	}
}

func newRunJournal(ctx context.Context, c config.MongoConfig) (repository.RunJournal, func()) {
	if !c.Enabled {
		return repository.NewNoopRunJournal(), func() {}
	}
	mongoDB, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    c.URI,
		RetryCount:    c.RetryCount,
		RetryInterval: c.RetryInterval,
	}, c.Database)
	if err != nil {
		logger.Log.Fatal("connect mongo failed", zap.Error(err))
	}
	return repository.NewMongoRunJournal(mongoDB, c.Collection), func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoDB.Close(closeCtx); err != nil {
			logger.Log.Warn("close mongo", zap.Error(err))
		}
	}
}

func newOutcomePublisher(c config.KafkaConfig) (repository.OutcomePublisher, func()) {
	if !c.Enabled {
		return repository.NewNoopOutcomePublisher(), func() {}
	}
	writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
		Brokers:       c.Brokers,
		Topic:         c.Topic,
		RetryCount:    c.RetryCount,
		RetryInterval: c.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("Kafka Writer 建立失敗", zap.Error(err))
	}
	return repository.NewKafkaOutcomePublisher(writer), func() {
		if err := writer.Close(); err != nil {
			logger.Log.Warn("close kafka writer", zap.Error(err))
		}
	}
}

func newArtifactStore(c config.MinIOConfig) repository.ArtifactStore {
	if !c.Enabled {
		return repository.NewNoopArtifactStore()
	}
	client, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      fmt.Sprintf("%s:%d", c.Host, c.Port),
		User:          c.User,
		Password:      c.Password,
		BucketName:    c.BucketName,
		UseSSL:        c.UseSSL,
		RetryCount:    c.RetryCount,
		RetryInterval: c.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to minio after retries", zap.String("host", c.Host), zap.Error(err))
	}
	return repository.NewMinIOArtifactStore(client)
}
