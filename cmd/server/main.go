package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"tagmark/internal/config"
	apphttp "tagmark/internal/http"
	"tagmark/internal/repository"
	"tagmark/internal/repository/postgres"
	"tagmark/internal/repository/sqlite"
	"tagmark/internal/service"
	"tagmark/internal/storage"
	"tagmark/internal/twitter"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	tokens, err := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatalf("auth jwt secret is required: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeDB, err := openRepositories(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer closeDB()

	if err := repos.users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := repos.tags.Init(ctx); err != nil {
		logger.Fatalf("init tag repository: %v", err)
	}
	if err := repos.posts.Init(ctx); err != nil {
		logger.Fatalf("init post repository: %v", err)
	}

	userService := service.NewUserService(repos.users, service.NewPasswordHasher(cfg.Auth.BcryptCost))

	var fetcher twitter.Fetcher = twitter.NewClient(cfg.Twitter.BaseURL, cfg.Twitter.BearerToken, cfg.Twitter.Timeout)
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping: %v", err)
		}
		fetcher = twitter.NewCachedFetcher(fetcher, rdb, cfg.Cache.TTL, logger)
		logger.Infof("caching tweets in redis at %s", cfg.Cache.RedisAddr)
	}

	var archive storage.Archive
	if cfg.Storage.Bucket != "" {
		s3Archive, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		archive = s3Archive
	} else {
		logger.Info("storage bucket not set, tweet snapshots disabled")
	}

	postService := service.NewPostService(repos.posts, repos.tags, fetcher, archive, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, postService, tokens, apphttp.Config{
		Cookie: apphttp.CookieConfig{
			Name:     cfg.Auth.CookieName,
			Domain:   cfg.Auth.CookieDomain,
			Secure:   cfg.Auth.CookieSecure,
			SameSite: apphttp.ParseSameSite(cfg.Auth.CookieSameSite),
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

type repositories struct {
	users repository.UserRepository
	posts repository.PostRepository
	tags  repository.TagRepository
}

func openRepositories(ctx context.Context, cfg config.Config) (repositories, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := postgres.Open(ctx, cfg.Database.DSN, int32(cfg.Database.MaxConns))
		if err != nil {
			return repositories{}, nil, err
		}
		return repositories{
			users: postgres.NewUserRepository(pool),
			posts: postgres.NewPostRepository(pool),
			tags:  postgres.NewTagRepository(pool),
		}, pool.Close, nil
	default:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return repositories{}, nil, err
		}
		return repositories{
			users: sqlite.NewUserRepository(db),
			posts: sqlite.NewPostRepository(db),
			tags:  sqlite.NewTagRepository(db),
		}, func() { _ = db.Close() }, nil
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*storage.S3Archive, error) {
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
	logger.Infof("archiving tweet snapshots to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Archive(client, cfg.Storage.Bucket, cfg.Storage.KeyPrefix)
}
