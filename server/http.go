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
	"github.com/rs/zerolog"

	"github.com/davidnge/ytconverter-dev/config"
	"github.com/davidnge/ytconverter-dev/constant"
	jobHandler "github.com/davidnge/ytconverter-dev/handler"
	"github.com/davidnge/ytconverter-dev/pkg/rabbitmq"
	"github.com/davidnge/ytconverter-dev/repository"
	"github.com/davidnge/ytconverter-dev/service"
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
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewRabbitMQConn")
	}

	repo := repository.NewRepo(cfg.DB)
	uploader := service.NewUploader(cfg.Storage, cfg.MinIOBucket)
	conversionService := service.NewService(
		repo,
		service.NewExtractor(cfg.Converter),
		service.NewProber(),
		uploader,
		cfg.Converter,
	)

	serviceDeps := jobHandler.ServiceDependencies{
		ConversionService: conversionService,
	}

	consumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.ConversionHandler)
	go func() {
		if err := consumer.Consume(ctx, serviceDeps); err != nil && !errors.Is(err, context.Canceled) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("conversion consumer error")
		}
	}()

	sweeper := service.NewSweeper(repo, cfg.Converter)
	go sweeper.Run(ctx)

	r := gin.Default()
	addHealth(r)
	api := NewConversionAPI(repo, rabbitmq.NewPublisher(conn, cfg.Queue), uploader)
	api.Register(r)

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

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
