// main.go — точка входа Search Module.
// Порядок инициализации: config → logger → миграции → PostgreSQL →
// репозитории → сервисный слой → dephealth → handlers → HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/kittylit/search-module/internal/api/handlers"
	"github.com/bigkaa/kittylit/search-module/internal/api/middleware"
	"github.com/bigkaa/kittylit/search-module/internal/booksapi"
	"github.com/bigkaa/kittylit/search-module/internal/config"
	"github.com/bigkaa/kittylit/search-module/internal/database"
	"github.com/bigkaa/kittylit/search-module/internal/repository"
	"github.com/bigkaa/kittylit/search-module/internal/server"
	"github.com/bigkaa/kittylit/search-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Search Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Миграции схемы БД
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		log.Fatalf("Миграции не применены: %v", err)
	}

	// 4. Подключение к PostgreSQL
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		log.Fatalf("PostgreSQL недоступен: %v", err)
	}
	defer pool.Close()

	// *sql.DB поверх pgxpool — для dephealth-проверок
	sqlDB := stdlib.OpenDBFromPool(pool)

	// 5. Репозитории
	bookRepo := repository.NewBookRepository(pool)
	quotaRepo := repository.NewQuotaRepository(pool)

	// 6. Клиент live-источника (Books API)
	liveClient := booksapi.New(
		cfg.BooksAPIURL,
		cfg.BooksAPIKey,
		cfg.BooksAPIMaxResults,
		cfg.BooksAPITimeout,
		logger,
	)

	// 7. Сервисный слой
	resultCache := service.NewResultCache(cfg.CacheSize, cfg.CacheTTL)
	policy := service.NewCacheFirstPolicy(resultCache)
	quota := service.NewQuotaTracker(quotaRepo, cfg.BooksAPIDailyLimit, logger)
	augmenter := service.NewPopularityAugmenter(bookRepo, cfg.AugmentLimit, logger)
	combiner := service.NewCombiner()
	telemetry := service.NewTelemetrySink(logger)

	resolver := service.NewResolver(
		policy,
		resultCache,
		bookRepo,
		liveClient,
		quota,
		augmenter,
		combiner,
		telemetry,
		cfg.SideEffectTimeout,
		logger,
	)

	// 8. Мониторинг зависимостей (topologymetrics)
	dephealthSvc, err := service.NewDephealthService(
		"search-module",
		cfg.DephealthGroup,
		sqlDB,
		cfg.DatabaseURL(),
		cfg.BooksAPIURL,
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка инициализации dephealth", slog.String("error", err.Error()))
		log.Fatalf("Dephealth не инициализирован: %v", err)
	}
	if err := dephealthSvc.Start(ctx); err != nil {
		logger.Error("Ошибка запуска dephealth", slog.String("error", err.Error()))
		log.Fatalf("Dephealth не запущен: %v", err)
	}
	defer dephealthSvc.Stop()

	// 9. Handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	dropdownsHandler := handlers.NewDropdownsHandler(bookRepo, logger)
	apiHandler := handlers.NewAPIHandler(healthHandler, resolver, dropdownsHandler, logger)

	// 10. Middleware chain: correlation → логирование → метрики → JWT (опционально)
	middlewares := []func(http.Handler) http.Handler{
		middleware.WithCorrelationID(),
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
	}

	if cfg.AuthEnabled() {
		jwtAuth, err := middleware.NewJWTAuth(cfg.JWKSURL, cfg.JWTIssuer, cfg.JWKSRefreshInterval, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT middleware", slog.String("error", err.Error()))
			log.Fatalf("JWT middleware не инициализирован: %v", err)
		}
		// Health и метрики доступны без токена
		middlewares = append(middlewares,
			server.JWTAuthWithExclusions(jwtAuth.Middleware(), "/health", "/metrics"))
		logger.Info("JWT-аутентификация включена", slog.String("jwks_url", cfg.JWKSURL))
	} else {
		logger.Warn("JWT-аутентификация отключена (SM_JWKS_URL не задан)")
	}

	// 11. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler, middlewares...)

	// 12. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("Search Module остановлен")
}
