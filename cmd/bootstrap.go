package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"webdesk/config"
	"webdesk/repository"
	"webdesk/routes"
	"webdesk/services"
	"webdesk/storage"
	"webdesk/utils"
)

const storageURLPrefix = "/storage"

// app is the wired process: configuration, connections and services.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	repos   *repository.Repositories
	redis   *redis.Client
	storage storage.Store
	local   *storage.LocalStore

	auth      *services.AuthService
	accounts  *services.AccountService
	files     *services.FileService
	trash     *services.TrashService
	quota     *services.QuotaService
	messaging *services.MessagingService
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	cfg.LogSummary(logger)

	a := &app{cfg: cfg, logger: logger}
	if err := a.connect(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.wire()
	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	repos, err := repository.Open(ctx, repository.DatabaseConfig{
		Driver:       a.cfg.DBDriver,
		MongoURI:     a.cfg.MongoURI,
		DatabaseName: a.cfg.DatabaseName,
		DSN:          a.cfg.DatabaseDSN,
	}, a.logger)
	if err != nil {
		return err
	}
	a.repos = repos

	if err := a.openStorage(ctx); err != nil {
		return err
	}

	if a.cfg.QuotaAlertMode == string(services.AlertModeEdge) {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.logger.Info("Connected to Redis", zap.String("addr", a.cfg.RedisAddr))
	}
	return nil
}

func (a *app) openStorage(ctx context.Context) error {
	switch a.cfg.StorageBackend {
	case "b2":
		store, err := storage.NewB2Store(ctx, a.cfg.B2ApplicationKeyID, a.cfg.B2ApplicationKey, a.cfg.B2BucketName, storageURLPrefix)
		if err != nil {
			return err
		}
		a.storage = store
	case "minio":
		store, err := storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  a.cfg.MinIOEndpoint,
			AccessKey: a.cfg.MinIOAccessKey,
			SecretKey: a.cfg.MinIOSecretKey,
			Bucket:    a.cfg.MinIOBucket,
			UseSSL:    a.cfg.MinIOUseSSL,
		}, storageURLPrefix)
		if err != nil {
			return err
		}
		a.storage = store
	default:
		store, err := storage.NewLocalStore(a.cfg.StorageRoot, storageURLPrefix)
		if err != nil {
			return err
		}
		a.storage = store
		a.local = store
	}
	a.logger.Info("Storage backend ready", zap.String("backend", a.cfg.StorageBackend))
	return nil
}

func (a *app) wire() {
	notifier := a.notifier()

	var tiers services.TierStore
	if a.redis != nil {
		tiers = services.NewRedisTierStore(a.redis, 90*24*time.Hour)
	}

	locks := services.NewRecordLocks()
	a.quota = services.NewQuotaService(a.repos.Files, a.repos.Users, notifier, a.cfg.StorageLimitBytes,
		services.AlertMode(a.cfg.QuotaAlertMode), tiers, a.logger)
	a.files = services.NewFileService(a.repos.Files, a.repos.Users, a.storage, a.quota, locks, a.cfg.MaxFileSize, a.logger)
	a.trash = services.NewTrashService(a.repos.Files, a.repos.Users, a.storage, locks, a.cfg.TrashRetention, a.logger)
	a.auth = services.NewAuthService(a.repos.Users, a.storage, notifier, services.AuthConfig{
		JWTSecret: a.cfg.JWTSecret,
		Issuer:    a.cfg.JWTIssuer,
		TokenTTL:  a.cfg.JWTExpiration,
	}, a.logger)
	a.accounts = services.NewAccountService(a.repos.Users, a.repos.Files, a.storage, a.quota, notifier, services.AccountConfig{
		JWTSecret:     a.cfg.JWTSecret,
		Issuer:        a.cfg.JWTIssuer,
		ResetTokenTTL: a.cfg.ResetTokenTTL,
		ResetURL:      a.cfg.ResetURL,
	}, a.logger)
	a.messaging = services.NewMessagingService(a.repos.Users, notifier, a.logger)
}

// notifier sends real mail when SMTP is configured and only logs otherwise.
func (a *app) notifier() services.Notifier {
	if a.cfg.SMTPHost == "" {
		a.logger.Warn("SMTP_HOST not set, email notifications are disabled")
		return services.NewLogNotifier(a.logger)
	}

	mailer, err := services.NewSMTPMailer(services.MailConfig{
		Host:        a.cfg.SMTPHost,
		Port:        a.cfg.SMTPPort,
		Username:    a.cfg.SMTPUsername,
		Password:    a.cfg.SMTPPassword,
		FromAddress: a.cfg.MailFrom,
		FromName:    a.cfg.MailFromName,
	})
	if err != nil {
		a.logger.Error("Invalid mail settings, email notifications are disabled", zap.Error(err))
		return services.NewLogNotifier(a.logger)
	}
	return services.NewNotificationService(mailer, a.cfg.AppName, a.cfg.SupportEmail, a.cfg.StorageLimitBytes, a.logger)
}

func (a *app) container() *routes.ServiceContainer {
	c := &routes.ServiceContainer{
		JWTSecret:        a.cfg.JWTSecret,
		MaxFileSize:      a.cfg.MaxFileSize,
		AuthService:      a.auth,
		AccountService:   a.accounts,
		FileService:      a.files,
		TrashService:     a.trash,
		QuotaService:     a.quota,
		MessagingService: a.messaging,
	}
	if a.local != nil {
		c.StorageRoot = a.local.Root()
	}
	return c
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.repos != nil {
		if err := a.repos.Close(ctx); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

