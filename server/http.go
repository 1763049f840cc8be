package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"worker-shorts/config"
	"worker-shorts/constant"
	jobHandler "worker-shorts/handler"
	"worker-shorts/pkg/blob"
	"worker-shorts/pkg/ffmpeg"
	"worker-shorts/pkg/progress"
	"worker-shorts/pkg/rabbitmq"
	"worker-shorts/pkg/tts"
	"worker-shorts/pkg/videogen"
	"worker-shorts/repository"
	"worker-shorts/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	}

	repo := repository.NewRepo(cfg.DB)
	store := blob.NewMinioStore(cfg.Storage, cfg.MinIOBucket)
	media := ffmpeg.New(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath)
	narrator := tts.NewClient(cfg.TTS)

	registry := videogen.NewRegistry(
		videogen.NewVeo3(cfg.Providers.Veo3),
		videogen.NewXAI(cfg.Providers.XAI),
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pub := progress.NewPublisher(rdb)

	orch := service.NewOrchestrator(registry, store)
	adjuster := service.NewAdjuster(media)
	merger := service.NewMerger(media)

	shortsService := service.NewShortsService(repo, cfg, registry, orch, merger, media, narrator, store, pub)
	sceneService := service.NewSceneService(repo, cfg, registry, orch, adjuster, merger, store, pub)

	serviceDeps := jobHandler.ServiceDependencies{
		ShortsService: shortsService,
		SceneService:  sceneService,
	}

	shortsConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, rabbitmq.Topology{
		ExchangeName: "shorts_exchange",
		QueueName:    "shorts_render_queue",
		RoutingKey:   "shorts.render.request",
	}, cfg.Server.Workers, jobHandler.ShortsJobHandler)
	go func() {
		if err := shortsConsumer.Consume(ctx, serviceDeps); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Shorts consumer error")
		}
	}()

	sceneConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, rabbitmq.Topology{
		ExchangeName: "scene_exchange",
		QueueName:    "scene_render_queue",
		RoutingKey:   "scene.render.request",
	}, cfg.Server.Workers, jobHandler.SceneJobHandler)
	go func() {
		if err := sceneConsumer.Consume(ctx, serviceDeps); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Scene consumer error")
		}
	}()

	r := gin.Default()
	addHealth(r)
	addProgress(r, pub)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

// addProgress exposes the Redis-backed progress snapshot for a job.
func addProgress(r *gin.Engine, pub *progress.Publisher) {
	r.GET("/jobs/:id/progress", func(c *gin.Context) {
		snapshot, err := pub.Snapshot(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(snapshot) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no progress recorded"})
			return
		}
		c.JSON(http.StatusOK, snapshot)
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
