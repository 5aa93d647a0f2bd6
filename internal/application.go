package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/boxes"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/config"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/presence"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/repository"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/repository/storage"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/room"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/service"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/transport/rest"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/transport/websocket"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/usecase"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	router := room.NewRouter(logger)
	registry := presence.NewRegistry(logger, router)

	deps := usecase.Deps{
		Users:    repository.NewUserRepository(sqliteStorage.Connection),
		Sessions: repository.NewSessionRepository(redisStorage.Connection),
		Presence: registry,
		Router:   router,
		Locker:   usecase.NewLocker(),
	}

	negotiator := usecase.NewChallengeNegotiator(logger, deps)
	games := usecase.NewGameManager(logger, deps, boxes.NewRules(conf.Game.OrientationAwareMoves, conf.Game.GridSize), conf.Game.MaxMoves)
	coordinator := usecase.NewDisconnectCoordinator(logger, deps, negotiator, games)
	lobby := usecase.NewLobby(logger, deps, coordinator, conf.Presence.RequireRegistration)

	var auth service.AuthService
	if conf.AuthEnabled() {
		auth = service.NewAuthService(conf.JWTSecretKey)
	} else {
		log.Warn("JWT secret is empty, websocket upgrades are not authenticated")
	}

	wsServer := websocket.New(logger, conf, auth, router, registry, websocket.UseCases{
		Lobby:      lobby,
		Negotiator: negotiator,
		Games:      games,
		Disconnect: coordinator,
	})

	httpHandler := rest.NewRouter(logger, map[string]rest.HealthChecker{
		"redis":  redisStorage,
		"sqlite": sqliteStorage,
	})

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, httpHandler); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
