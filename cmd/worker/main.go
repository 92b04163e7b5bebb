// Package main - точка входа воркера SkillPath Progression.
//
// Воркер обслуживает фоновую часть движка прогрессии:
// - периодическое перестроение лидерборда и запись рангов в агрегаты
// - ежедневную сверку журнала XP с хранимыми суммами
// - доставку доменных событий подписчикам (локально и через Redis)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/skillpath-hub/skillpath-progression/config"
	"github.com/skillpath-hub/skillpath-progression/internal/application/eventhandler"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/progression"
	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/internal/infrastructure/messaging"
	"github.com/skillpath-hub/skillpath-progression/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/skillpath-hub/skillpath-progression/internal/infrastructure/persistence/redis"
	"github.com/skillpath-hub/skillpath-progression/internal/infrastructure/scheduler"
	"github.com/skillpath-hub/skillpath-progression/internal/infrastructure/scheduler/jobs"
	"github.com/skillpath-hub/skillpath-progression/pkg/logger"
	"github.com/skillpath-hub/skillpath-progression/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	// .env используется только локально; в продакшене переменные
	// приходят из окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	})
	log.Info("starting SkillPath Progression worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("day_boundary_tz", cfg.Progression.DayBoundaryTZ),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ДОМЕННОЕ ЯДРО
	// ─────────────────────────────────────────────────────────────────────────
	table := progression.DefaultMilestoneTable()
	registry := progression.DefaultBadgeRegistry()
	calendar := timeutil.NewCalendar(cfg.Progression.Location)

	// Воркер не выполняет команды, но сборка движка на старте
	// валидирует таблицу вех и реестр значков до запуска задач.
	if _, err := progression.NewEngine(table, registry, calendar); err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	stateRepo := postgres.NewProgressionRepo(dbConn, table)
	ledgerRepo := postgres.NewLedgerRepo(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS
	// ─────────────────────────────────────────────────────────────────────────
	var redisClient *redis.Client
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisClient, err = newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	localConfig := messaging.InMemoryConfig{
		AsyncMode:      cfg.EventBus.AsyncMode,
		WorkerPoolSize: cfg.EventBus.WorkerPoolSize,
		Logger:         log,
	}

	var bus shared.EventBus
	if cfg.EventBus.PublishToRedis && redisClient != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisConfig{
			Client: redisClient,
			Local:  localConfig,
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("failed to build event bus: %w", err)
		}
		defer redisBus.Close()
		bus = redisBus
	} else {
		localBus := messaging.NewInMemoryEventBus(localConfig)
		defer localBus.Close()
		bus = localBus
	}

	achievements := eventhandler.NewOnAchievementHandler(logNotifier{log: log}, log)
	if err := achievements.Register(bus); err != nil {
		return fmt.Errorf("failed to register achievement handler: %w", err)
	}
	drift := eventhandler.NewOnDriftDetectedHandler(log)
	if err := drift.Register(bus); err != nil {
		return fmt.Errorf("failed to register drift handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: cfg.Progression.Location,
	})

	if cfg.Scheduler.Enabled {
		if redisClient != nil && cfg.Features.IsEnabled(config.FeatureLeaderboard) {
			lbCache := redisinfra.NewLeaderboardCache(redisClient)
			rebuild := jobs.NewRebuildLeaderboardJob(stateRepo, lbCache, table, bus, log)
			schedule := scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)
			if err := sched.Register(rebuild, schedule); err != nil {
				return fmt.Errorf("failed to register rebuild job: %w", err)
			}
		}

		repair := cfg.Scheduler.RepairDrift && cfg.Features.IsEnabled(config.FeatureDriftRepair)
		reconcile := jobs.NewReconcileLedgerJob(stateRepo, ledgerRepo, bus, repair, log)
		daily := scheduler.NewDailySchedule(
			cfg.Scheduler.ReconcileHour, cfg.Scheduler.ReconcileMinute, cfg.Progression.Location)
		if err := sched.Register(reconcile, daily); err != nil {
			return fmt.Errorf("failed to register reconcile job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("SkillPath Progression worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))
	log.Info("starting graceful shutdown...",
		logger.Duration("timeout", cfg.App.ShutdownTimeout),
	)

	return nil
}

// newRedisClient строит клиент Redis из URL или отдельных полей конфига.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// logNotifier пишет уведомления в лог. Воркер не доставляет сообщения
// пользователям сам; этим занимается внешний сервис уведомлений,
// подписанный на те же события через Redis.
type logNotifier struct {
	log *logger.Logger
}

func (n logNotifier) Notify(_ context.Context, userID shared.UserID, message string) error {
	n.log.Info("notification",
		logger.UserID(userID.String()),
		logger.String("message", message),
	)
	return nil
}
