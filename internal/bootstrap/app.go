package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mentor-ai/internal/ai"
	"mentor-ai/internal/app"
	"mentor-ai/internal/auth"
	"mentor-ai/internal/cache"
	"mentor-ai/internal/config"
	"mentor-ai/internal/library"
	mysqlClient "mentor-ai/internal/platform/mysql"
	rabbitmqClient "mentor-ai/internal/platform/rabbitmq"
	redisClient "mentor-ai/internal/platform/redis"
	"mentor-ai/internal/repository"
	"mentor-ai/internal/worker"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type App struct {
	Config *config.Config
	Logger *slog.Logger

	MySQL            *gorm.DB
	Redis            *redis.Client
	MQConn           *amqp.Connection
	Publisher        *rabbitmqClient.TranscriptPublisher
	TranscriptWorker *worker.TranscriptArchiveWorker

	Backend ai.Backend
	Library *library.Cache
	Watcher *library.Watcher

	AuthService *app.AuthService
	ChatService *app.ChatService

	StartedAt time.Time
	cancel    context.CancelFunc
}

func New(ctx context.Context, logger *slog.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	backend, err := newBackend(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	a.Backend = backend

	var userRepo *repository.UserRepository
	var messageRepo *repository.MessageRepository
	if cfg.MySQL.Enabled {
		a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return err
		}
		if err := repository.Migrate(a.MySQL); err != nil {
			return err
		}
		userRepo = repository.NewUserRepository(a.MySQL)
		messageRepo = repository.NewMessageRepository(a.MySQL)
	}

	if cfg.Redis.Enabled || cfg.Session.Store == "redis" {
		a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
	}

	var publisher app.TranscriptPublisher
	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.TranscriptQueue)
		if err != nil {
			return err
		}
		a.Publisher = rabbitmqClient.NewTranscriptPublisher(a.MQConn, cfg.RabbitMQ.TranscriptQueue)
		publisher = a.Publisher

		if messageRepo != nil {
			a.TranscriptWorker = worker.NewTranscriptArchiveWorker(a.MQConn, messageRepo, cfg.RabbitMQ.TranscriptQueue, a.Logger)
			if err := a.TranscriptWorker.Start(ctx); err != nil {
				return fmt.Errorf("start transcript worker failed: %w", err)
			}
		} else {
			a.Logger.Warn("rabbitmq enabled without mysql, transcript turns are queued but not archived")
		}
	}

	verifier, err := newVerifier(cfg.Auth, userRepo, a.Logger)
	if err != nil {
		return err
	}

	var sessions app.SessionStore
	var limiter app.LoginLimiter
	if cfg.Session.Store == "redis" {
		sessions = cache.NewRedisSessionStore(a.Redis, cfg.SessionTTL())
		limiter = cache.NewRedisLoginLimiter(a.Redis, cfg.Auth.MaxFailedAttempts, cfg.LockoutWindow())
	} else {
		sessions = cache.NewMemorySessionStore(cfg.SessionTTL())
		limiter = cache.NewMemoryLoginLimiter(cfg.Auth.MaxFailedAttempts, cfg.LockoutWindow())
	}

	syncer := library.NewSynchronizer(backend, library.Config{
		Dir:        cfg.Library.Dir,
		Extensions: cfg.Library.Extensions,
		Policy: library.RetryPolicy{
			MaxAttempts:   cfg.Library.MaxAttempts,
			Interval:      cfg.PollInterval(),
			UploadRetries: cfg.Library.UploadRetries,
			Deadline:      cfg.SyncDeadline(),
		},
		Logger: a.Logger.With("component", "library"),
		OnProgress: func(done, total int, file string) {
			a.Logger.Info("library progress", "done", done, "total", total, "file", file)
		},
	})
	a.Library = library.NewCache(syncer)

	resolver := ai.NewModelResolver(backend, ai.ModelResolverConfig{
		Explicit:   cfg.LLM.Model,
		Capability: cfg.LLM.RequiredCapability,
		Tag:        cfg.LLM.PreferredTag,
		Fallback:   cfg.LLM.FallbackModel,
	}, a.Logger)

	a.AuthService = app.NewAuthService(verifier, sessions, limiter, app.AuthConfig{
		JWTSecret:     cfg.Auth.JWTSecret,
		JWTExpiration: cfg.JWTExpiration(),
		Greeting:      cfg.LLM.Greeting,
	}, a.Logger)
	a.ChatService = app.NewChatService(sessions, a.Library, backend, resolver, publisher, app.ChatConfig{
		SystemInstruction: cfg.LLM.SystemInstruction,
		MaxContext:        cfg.LLM.MaxContextMessage,
	}, a.Logger)

	bgCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if cfg.Library.Watch {
		a.Watcher, err = library.NewWatcher(syncer.Dir(), syncer.Matches, a.Library.Invalidate, a.Logger)
		if err != nil {
			// The directory may appear later; queries still report it as offline.
			a.Logger.Warn("library watch disabled", "dir", syncer.Dir(), "error", err)
		} else {
			a.Watcher.Start(bgCtx)
		}
	}

	if cfg.Library.SyncOnStartup {
		go func() {
			result, err := a.Library.Get(bgCtx)
			if err != nil {
				a.Logger.Error("initial library sync failed", "error", err)
				return
			}
			a.Logger.Info("library ready", "documents", len(result.Documents), "report", result.Report())
		}()
	}
	return nil
}

func newBackend(ctx context.Context, cfg config.LLMConfig) (ai.Backend, error) {
	switch cfg.Provider {
	case "gemini":
		return ai.NewGeminiBackend(ctx, cfg.APIKey, cfg.BaseURL)
	case "openai":
		return ai.NewOpenAIBackend(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

func newVerifier(cfg config.AuthConfig, users *repository.UserRepository, logger *slog.Logger) (auth.CredentialVerifier, error) {
	switch cfg.CredentialBackend {
	case "static":
		if len(cfg.Users) == 0 {
			logger.Warn("no users configured, every login will be rejected")
		}
		return auth.NewStaticVerifier(cfg.Users), nil
	case "bcrypt":
		return auth.NewBcryptVerifier(cfg.Users)
	case "mysql":
		if users == nil {
			return nil, fmt.Errorf("%w: mysql credential backend requires mysql.enabled", ErrInvalidConfig)
		}
		created, err := users.SeedUsers(cfg.Users)
		if err != nil {
			return nil, fmt.Errorf("seed users failed: %w", err)
		}
		if created > 0 {
			logger.Info("seeded users", "count", created)
		}
		return auth.NewUserRepositoryVerifier(users), nil
	default:
		return nil, fmt.Errorf("%w: unknown credential backend %q", ErrInvalidConfig, cfg.CredentialBackend)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.cancel != nil {
		a.cancel()
	}
	if a.Watcher != nil {
		if err := a.Watcher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TranscriptWorker != nil {
		a.TranscriptWorker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
