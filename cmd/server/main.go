package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/perentalassist/hub/internal/config"
	"github.com/perentalassist/hub/internal/database"
	"github.com/perentalassist/hub/internal/hub"
	"github.com/perentalassist/hub/internal/relay"
	"github.com/perentalassist/hub/internal/repository"
	"github.com/perentalassist/hub/internal/server"
	"github.com/perentalassist/hub/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	feedRepo := repository.NewFeedRepository(db)
	chatRepo := repository.NewChatRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)
	communityRepo := repository.NewCommunityRepository(db)

	h := hub.New(logger)
	pushRelay := relay.New(h, redisClient, natsConn, cfg.RelayChannel, logger)
	pushRelay.Start(ctx)

	accountService := service.NewAccountService(userRepo, validate, logger)
	chatService := service.NewChatService(chatRepo, pushRelay, logger)
	feedService := service.NewFeedService(feedRepo, userRepo, pushRelay, logger)
	doctorService := service.NewDoctorService(doctorRepo, logger)
	bookingService := service.NewBookingService(doctorRepo, apptRepo, chatService, pushRelay, cfg.VideoBaseURL, logger)
	communityService := service.NewCommunityService(communityRepo, logger)

	dispatcher := server.NewDispatcher(server.Services{
		Accounts:  accountService,
		Feed:      feedService,
		Chat:      chatService,
		Doctors:   doctorService,
		Booking:   bookingService,
		Community: communityService,
	}, h, logger)

	srv := server.New(server.Options{
		Addr:        cfg.ListenAddr,
		MaxConns:    cfg.MaxConns,
		ReadTimeout: cfg.ReadTimeout,
	}, dispatcher, h, logger)

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	<-ctx.Done()
	srv.Shutdown()
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	metricsSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server failed")
	}
}
