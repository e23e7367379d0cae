package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/assistant"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"github.com/martabak-juara/loyalty-club/internal/config"
	"github.com/martabak-juara/loyalty-club/internal/dashboard"
	"github.com/martabak-juara/loyalty-club/internal/db"
	"github.com/martabak-juara/loyalty-club/internal/events"
	internalhttp "github.com/martabak-juara/loyalty-club/internal/http/api/admin"
	"github.com/martabak-juara/loyalty-club/internal/http/api/front"
	"github.com/martabak-juara/loyalty-club/internal/inventory"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/logging"
	"github.com/martabak-juara/loyalty-club/internal/members"
	"github.com/martabak-juara/loyalty-club/internal/metrics"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/security"
	internalsettings "github.com/martabak-juara/loyalty-club/internal/settings"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// CreateAdminParams holds inputs for admin creation from the command line.
type CreateAdminParams struct {
	Username string
	Password string
	Super    bool
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("migrations applied")
	return nil
}

// CreateAdmin migrates the database and inserts an admin account.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	admin, errCreate := createAdmin(ctx, conn, params)
	if errCreate != nil {
		return errCreate
	}
	log.WithFields(log.Fields{"admin_id": admin.ID, "username": admin.Username, "super": admin.IsSuperAdmin}).Info("admin created")
	return nil
}

// RunServer boots the loyalty API and blocks until ctx is cancelled or the listener fails.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if errValidate := conf.Validate(); errValidate != nil {
		return errValidate
	}

	logCloser, errLog := logging.Setup(conf.Logging)
	if errLog != nil {
		return fmt.Errorf("setup logging: %w", errLog)
	}
	defer func() { _ = logCloser.Close() }()

	conn, err := db.Open(conf.Database.DSN)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := internalsettings.Reload(ctx, conn); errRefresh != nil {
		return fmt.Errorf("load settings: %w", errRefresh)
	}
	if errBootstrap := bootstrapAdmin(ctx, conn, conf.Admin); errBootstrap != nil {
		return errBootstrap
	}

	var publisher events.Publisher
	natsPublisher, errNATS := events.ConnectNATS(conf.NATS.URL, conf.NATS.SubjectPrefix)
	switch {
	case errNATS != nil:
		log.WithError(errNATS).Warn("nats unavailable, domain events disabled")
	case natsPublisher != nil:
		defer natsPublisher.Close()
		publisher = natsPublisher
		log.WithField("url", conf.NATS.URL).Info("publishing domain events to nats")
	}

	chatStore, closeStore := buildSessionStore(conf)
	defer closeStore()

	var generator assistant.Generator
	gemini, errGemini := assistant.NewGemini(ctx, conf.Gemini.APIKey, conf.Gemini.Model)
	switch {
	case errors.Is(errGemini, assistant.ErrUnavailable):
		log.Info("assistant running with fallback replies")
	case errGemini != nil:
		log.WithError(errGemini).Warn("gemini client unavailable, assistant running with fallback replies")
	default:
		generator = gemini
	}

	notifier := auth.NewNotifier()
	tracker := auth.NewTracker()
	unsubscribeLog := notifier.Subscribe(auth.LogHook)
	defer unsubscribeLog()
	unsubscribeTracker := notifier.Subscribe(tracker.Handle)
	defer unsubscribeTracker()

	memberStore := members.NewStore(conn)
	ledgerSvc := ledger.NewService(conn, publisher)
	inventorySvc := inventory.NewService(conn, publisher)
	stats := dashboard.NewAggregator(conn)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinLogger(), metrics.GinMiddleware())
	if conf.Server.Metrics {
		engine.GET("/metrics", metrics.Handler())
	}

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:        conn,
		JWT:       conf.JWT,
		Members:   memberStore,
		Ledger:    ledgerSvc,
		Auth:      auth.NewProvider(conn, conf.JWT, notifier),
		Assistant: assistant.NewService(generator, chatStore),
	})
	internalhttp.RegisterAdminRoutes(engine, internalhttp.Deps{
		DB:        conn,
		JWT:       conf.JWT,
		Members:   memberStore,
		Ledger:    ledgerSvc,
		Inventory: inventorySvc,
		Stats:     stats,
		Notifier:  notifier,
		Sessions:  tracker,
	})

	srv := &http.Server{
		Addr:              conf.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("loyalty server listening on %s (config=%s)", conf.Server.Addr, configPath)
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down loyalty server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildSessionStore picks Redis when configured and falls back to memory.
func buildSessionStore(conf *config.Config) (assistant.SessionStore, func()) {
	if strings.TrimSpace(conf.Redis.Addr) == "" {
		return assistant.NewMemoryStore(conf.Gemini.SessionTTL).WithLimit(conf.Gemini.MaxSessions), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	log.WithField("addr", conf.Redis.Addr).Info("chat sessions stored in redis")
	return assistant.NewRedisStore(client, "loyalty", conf.Gemini.SessionTTL), func() {
		if errClose := client.Close(); errClose != nil {
			log.WithError(errClose).Warn("close redis client")
		}
	}
}

// bootstrapAdmin creates the configured super admin when no admin exists yet.
func bootstrapAdmin(ctx context.Context, conn *gorm.DB, boot config.AdminBootstrap) error {
	if strings.TrimSpace(boot.Username) == "" || strings.TrimSpace(boot.Password) == "" {
		return nil
	}
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("count admins: %w", errCount)
	}
	if count > 0 {
		return nil
	}
	admin, errCreate := createAdmin(ctx, conn, CreateAdminParams{Username: boot.Username, Password: boot.Password, Super: true})
	if errCreate != nil {
		return fmt.Errorf("bootstrap admin: %w", errCreate)
	}
	log.WithField("username", admin.Username).Info("bootstrap super admin created")
	return nil
}

func createAdmin(ctx context.Context, conn *gorm.DB, params CreateAdminParams) (*models.Admin, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(params.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	hash, errHash := security.HashPassword(params.Password)
	if errHash != nil {
		return nil, fmt.Errorf("hash password: %w", errHash)
	}
	admin := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: params.Super,
		Permissions:  datatypes.JSON("[]"),
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return nil, fmt.Errorf("create admin: %w", errCreate)
	}
	return &admin, nil
}

func closeDB(conn *gorm.DB) {
	if sqlDB, errDB := conn.DB(); errDB == nil {
		_ = sqlDB.Close()
	}
}
