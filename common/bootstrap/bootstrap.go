package bootstrap

import (
	"context"
	"fmt"

	"github.com/libnare/sermcs/common/cache"
	"github.com/libnare/sermcs/common/config"
	"github.com/libnare/sermcs/common/db"
	"github.com/libnare/sermcs/common/logger"
	"github.com/libnare/sermcs/common/redis"
	"github.com/libnare/sermcs/common/telemetry"
)

// Setup initializes all service components.
// This is the main entry point for the service process.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize database (if not skipped)
	if !options.skipDB {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.DB.Close()
			return nil
		})

		if components.Config.Database.Migrate {
			components.Logger.Info("applying database migrations")
			if err := db.RunMigrations(ctx, components.Config); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("failed to apply migrations: %w", err)
			}
		}

		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := options.dbInitHook(components.DB); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Initialize the resolver record cache: Redis when configured,
	// in-process otherwise
	if !options.skipRedis && components.Config.RedisEnabled() {
		components.Logger.Info("connecting to redis", "addr", components.Config.Redis.Addr)
		components.Redis, err = redis.NewClient(ctx, components.Config.Redis, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.Records = components.Redis
		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	} else {
		components.Records = cache.NewMemoryCache(components.Logger)
		components.addCleanup(func() error {
			return components.Records.Close()
		})
	}

	// 5. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && components.Config.Telemetry.EnablePprof {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(
			components.Config.Telemetry.PprofPort,
			components.Logger,
		)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}
