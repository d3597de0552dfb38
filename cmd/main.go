package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"signal-market/internal/access"
	"signal-market/internal/auth"
	"signal-market/internal/blob"
	s3blob "signal-market/internal/blob/s3"
	rediscache "signal-market/internal/cache/redis"
	"signal-market/internal/config"
	"signal-market/internal/custody"
	"signal-market/internal/database"
	"signal-market/internal/handlers"
	"signal-market/internal/jobs"
	"signal-market/internal/ledger"
	"signal-market/internal/services"
	"signal-market/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logrus.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogger(log, cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Run migrations
	if err := database.AutoMigrate(db, log); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Ledger state; the writer lock is shared through Redis when configured
	var (
		opts   []ledger.Option
		nonces services.NonceStore
	)
	if cfg.Redis.Addr != "" {
		rdb, err := rediscache.NewClient(ctx, rediscache.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer rdb.Close()
		opts = append(opts, ledger.WithLocker(rediscache.NewLocker(rdb, cfg.LockTTL(), log)))
		nonces = rediscache.NewNonceStore(rdb)
		log.WithFields(logrus.Fields{
			"addr": cfg.Redis.Addr,
			"tls":  cfg.Redis.TLSEnabled,
		}).Info("Using distributed ledger lock and login nonces")
	}
	state := ledger.New(db, log, opts...)

	ac, err := access.New(ctx, state, cfg.App.OwnerAddress, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize access control")
	}
	log.WithField("owner", ac.Owner()).Info("Ledger owner loaded")

	// Initialize services
	hub := ws.NewHub(log)
	vault := custody.NewVault(db, log)
	authService := services.NewAuthService(state, cfg.App.AuthMessage, cfg.NonceTTL(), nonces)
	userService := services.NewUserService(state, ac)
	marketService := services.NewMarketService(state, ac, hub)
	positionService := services.NewPositionService(state, hub)
	payoutService := services.NewPayoutService(state)
	queryService := services.NewQueryService(state, ac)
	reportService := services.NewReportService(state)
	settlementService := services.NewSettlementService(state, positionService, payoutService, vault, hub)

	faucetMax, err := cfg.FaucetMax()
	if err != nil {
		log.WithError(err).Fatal("Invalid faucet cap")
	}
	if cfg.Faucet.Enabled {
		log.WithField("max", faucetMax.String()).Warn("Test-funds faucet is enabled")
	}

	// Initialize handlers
	router := (&handlers.Router{
		Log:            log,
		AllowedOrigins: allowedOrigins(cfg),
		Hub:            hub,
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUserHandler(userService),
		Markets:        handlers.NewMarketHandler(marketService, payoutService, queryService),
		Positions:      handlers.NewPositionHandler(settlementService, positionService, payoutService, queryService),
		Vault:          handlers.NewVaultHandler(vault, cfg.Faucet.Enabled, faucetMax),
		Admin:          handlers.NewAdminHandler(ac),
	}).Engine()

	// Settlement reports go to S3 when a bucket is configured
	var reportWriter blob.Writer
	if cfg.S3.Bucket != "" {
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to create S3 client")
		}
		if err := client.Health(ctx); err != nil {
			log.WithError(err).Warn("S3 bucket not reachable; archiving will retry")
		}
		reportWriter = s3blob.NewWriter(client)
	}

	sweeper := jobs.NewDeadlineSweeper(marketService, cfg.SweepInterval(), log)
	archiver := jobs.NewSettlementArchiver(reportService, settlementService, reportWriter, "", cfg.ArchiveInterval(), log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error { return archiver.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
	log.Info("Server stopped")
}

func setupLogger(log *logrus.Logger, cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

func allowedOrigins(cfg *config.Config) []string {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.Server.FrontendURL != "" {
		origins = append(origins, cfg.Server.FrontendURL)
	}
	return origins
}
