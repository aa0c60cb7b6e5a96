package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	grpchealth "google.golang.org/grpc/health"
	gormlogger "gorm.io/gorm/logger"

	grpcrouter "github.com/dtroode/userauth-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/userauth-server/internal/api/grpc/server"
	httpcontext "github.com/dtroode/userauth-server/internal/api/http/context"
	"github.com/dtroode/userauth-server/internal/api/http/handler"
	httprouter "github.com/dtroode/userauth-server/internal/api/http/router"
	httpserver "github.com/dtroode/userauth-server/internal/api/http/server"
	"github.com/dtroode/userauth-server/internal/config"
	"github.com/dtroode/userauth-server/internal/health"
	"github.com/dtroode/userauth-server/internal/logger"
	"github.com/dtroode/userauth-server/internal/metrics"
	"github.com/dtroode/userauth-server/internal/model"
	"github.com/dtroode/userauth-server/internal/password"
	"github.com/dtroode/userauth-server/internal/repository/memory"
	"github.com/dtroode/userauth-server/internal/repository/postgres"
	"github.com/dtroode/userauth-server/internal/repository/sqlite"
	"github.com/dtroode/userauth-server/internal/server"
	"github.com/dtroode/userauth-server/internal/service"
	"github.com/dtroode/userauth-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

type store interface {
	model.UserStore
	model.Pinger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	users, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err, "driver", cfg.Database.Driver)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	hasher, err := password.NewHasher(
		password.Algorithm(cfg.Password.Algorithm),
		cfg.Password.BcryptCost,
		password.NewArgon2idParams(cfg.KDF.Time, cfg.KDF.MemKiB, cfg.KDF.Par),
	)
	if err != nil {
		logger.Fatal("failed to initialize password hasher", "error", err)
	}

	authService, err := service.NewAuth(users, hasher, token.NewSessionID(), logger)
	if err != nil {
		logger.Fatal("failed to initialize auth service", "error", err)
	}

	healthStatus := grpchealth.NewServer()
	checker := health.NewChecker(users, healthStatus, cfg.Health.Interval, logger)
	go checker.Run(ctx)

	httpRouter := httprouter.New(
		authService,
		checker,
		metrics.New(),
		httpcontext.NewManager(),
		handler.Cookie{Name: cfg.Session.CookieName, Secure: cfg.HTTP.SecureCookies},
		logger,
	)
	httpSrv := httpserver.NewHTTPServer(httpRouter.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	grpcSrv := grpcserver.NewGRPCServer(
		grpcrouter.New(healthStatus, logger).Register(),
		fmt.Sprintf(":%s", cfg.GRPC.Port),
	)

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	servers := []model.Server{httpSrv, grpcSrv}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s)
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg config.Database) (store, func() error, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		conn, err := postgres.NewConnection(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepository(conn), conn.Close, nil
	case config.DriverSQLite:
		conn, err := sqlite.NewConnection(cfg.DSN, gormlogger.Warn)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewUserRepository(conn), conn.Close, nil
	case config.DriverMemory:
		return memory.NewUserRepository(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
