// Package app assembles the service from configuration. It is shared by the
// HTTP server and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"

	"user-service/internal/auth"
	"user-service/internal/cache"
	"user-service/internal/config"
	apphttp "user-service/internal/http"
	"user-service/internal/notify"
	"user-service/internal/repository"
	"user-service/internal/repository/bunstore"
	"user-service/internal/repository/sqlite"
	"user-service/internal/service"
	"user-service/internal/storage"
	"user-service/internal/telemetry"
)

// App holds the wired components.
type App struct {
	Config     config.Config
	Logger     *logrus.Logger
	Users      service.UserService
	Tokens     *auth.TokenCodec
	Identities *auth.IdentityResolver
	Metrics    *telemetry.Metrics
	Meters     *telemetry.Provider
	Storage    storage.Service
	Dispatcher *notify.Dispatcher

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}

	key, err := auth.DecodeSigningKey(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	a.Tokens, err = auth.NewTokenCodec(key, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	logger.WithField("ttl", a.Tokens.TTL().String()).Debug("token codec ready")

	var meter metric.Meter
	if cfg.Telemetry.Metrics {
		a.Meters = telemetry.NewProvider()
		a.closers = append(a.closers, func() error { return a.Meters.Shutdown(context.Background()) })
		meter = a.Meters.Meter()
	}
	a.Metrics, err = telemetry.NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	users, err := a.buildRepository(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := users.Init(ctx); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init user repository: %w", err)
	}

	userCache, err := a.buildCache(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	if cfg.Storage.Bucket != "" {
		a.Storage, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("setup storage: %w", err)
		}
	}

	a.Dispatcher = notify.NewDispatcher(notify.Config{
		MaxConcurrent: cfg.Notify.MaxConcurrent,
		QueueSize:     cfg.Notify.QueueSize,
		Timeout:       cfg.Notify.Timeout,
		Logger:        logger,
	}, notify.NewLogNotifier(logger))

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	a.Identities = auth.NewIdentityResolver(users, hasher)
	a.Users = service.NewUserService(service.Deps{
		Users:      users,
		Hasher:     hasher,
		Tokens:     a.Tokens,
		Identities: a.Identities,
		Cache:      userCache,
		Notifier:   a.Dispatcher,
		Storage:    a.Storage,
		KeyPrefix:  cfg.Storage.KeyPrefix,
		PresignTTL: cfg.Storage.PresignTTL,
		Metrics:    a.Metrics,
		Logger:     logger,
	})
	return a, nil
}

// Router returns the gin engine serving the API.
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	gate := auth.NewGate(a.Tokens, a.Identities, a.Metrics)
	policy := auth.DefaultPolicy(a.Config.Server.BasePath)
	apphttp.NewHandler(a.Users, gate, policy, a.Config.Server.BasePath, a.Logger).RegisterRoutes(router)
	return router
}

// Close drains pending notifications and releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) buildRepository(ctx context.Context) (repository.UserRepository, error) {
	switch a.Config.Database.Driver {
	case "postgres":
		db, err := bunstore.Open(ctx, a.Config.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.Logger.Info("using postgres user store")
		return bunstore.NewUserRepository(db), nil
	default:
		db, err := sqlite.Open(a.Config.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.Logger.Infof("using sqlite user store at %s", a.Config.Database.Path)
		return sqlite.NewUserRepository(db), nil
	}
}

func (a *App) buildCache(ctx context.Context) (*cache.Users, error) {
	cfg := a.Config.Cache
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.Logger.Infof("using redis user cache at %s", a.Config.Redis.Addr)
		return cache.NewUsers(cache.NewRedis(client, a.Config.Redis.Prefix, cfg.TTL), a.Logger), nil
	default:
		return cache.NewUsers(cache.NewLRU(cfg.Size, cfg.TTL), a.Logger), nil
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, cfg.Storage.Bucket)
}
