package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // Драйвер миграций postgres
	_ "github.com/golang-migrate/migrate/v4/source/file"       // Источник миграций file://
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL
	"github.com/opencodehub/opencodehub/internal/handlers"
	appmiddleware "github.com/opencodehub/opencodehub/internal/middleware"
	"github.com/opencodehub/opencodehub/internal/repository"
	"github.com/opencodehub/opencodehub/internal/services"
	"github.com/opencodehub/opencodehub/internal/storage"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second // Скачивание крупных файлов версий
	defaultIdleTimeout  = 30 * time.Second
	corsMaxAge          = 300
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db             *sqlx.DB
	fileStorage    storage.FileStorage
	authHandler    *handlers.AuthHandler
	projectHandler *handlers.ProjectHandler
	versionHandler *handlers.VersionHandler
	commentHandler *handlers.CommentHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера OpenCodeHub...")

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	// Применяем миграции до открытия пула соединений
	if err = runMigrations(cfg.MigrationsPath, cfg.DatabaseDSN); err != nil {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	// Инициализация зависимостей
	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	// Отложенное закрытие соединения с БД
	defer func() {
		if deps.db != nil {
			if closeErr := deps.db.Close(); closeErr != nil {
				log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
			}
		}
	}()

	// Настройка роутера
	r := setupRouter(cfg, deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	// TLS включается при наличии сертификата и ключа
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		log.Printf("Запуск HTTPS-сервера на порту %s...", cfg.Port)
		err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		log.Printf("Запуск HTTP-сервера на порту %s...", cfg.Port)
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	}
	return nil
}

// runMigrations применяет миграции схемы БД при старте сервера.
func runMigrations(migrationsPath, databaseDSN string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseDSN)
	if err != nil {
		return fmt.Errorf("ошибка инициализации мигратора: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("Ошибка закрытия мигратора: source=%v database=%v", srcErr, dbErr)
		}
	}()

	// Сбрасываем dirty-состояние после прерванной миграции
	if version, dirty, versionErr := m.Version(); versionErr == nil && dirty {
		log.Printf("Обнаружена незавершенная миграция (версия %d), принудительный сброс...", version)
		if forceErr := m.Force(int(version)); forceErr != nil {
			return fmt.Errorf("ошибка сброса dirty-состояния миграций: %w", forceErr)
		}
	}

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("Миграции не требуются, схема БД актуальна.")
			return nil
		}
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	log.Println("Миграции успешно применены.")
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД
	deps.db, err = repository.NewPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	log.Println("Соединение с БД успешно установлено.")

	// 2. Инициализация клиента MinIO
	minioCfg := storage.MinioConfig{
		Endpoint:        cfg.MinioEndpoint,
		AccessKeyID:     cfg.MinioUser,
		SecretAccessKey: cfg.MinioPassword,
		UseSSL:          cfg.MinioUseSSL,
		BucketName:      cfg.MinioBucket,
	}
	deps.fileStorage, err = storage.NewMinioClient(minioCfg)
	if err != nil {
		// Закрываем соединение с БД перед выходом
		if dbCloseErr := deps.db.Close(); dbCloseErr != nil {
			log.Printf("Ошибка закрытия соединения с БД при ошибке MinIO: %v", dbCloseErr)
		}
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	// 3. Создание репозиториев
	userRepo := repository.NewPostgresUserRepository(deps.db)
	projectRepo := repository.NewPostgresProjectRepository(deps.db)
	versionRepo := repository.NewPostgresVersionRepository(deps.db)
	commentRepo := repository.NewPostgresCommentRepository(deps.db)

	// 4. Создание сервисов
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	projectService := services.NewProjectService(projectRepo, userRepo)
	versionService := services.NewVersionService(versionRepo, projectRepo, deps.fileStorage, cfg.MaxUploadSize)
	commentService := services.NewCommentService(commentRepo, projectRepo, userRepo)

	// 5. Создание обработчиков
	deps.authHandler = handlers.NewAuthHandler(authService)
	deps.projectHandler = handlers.NewProjectHandler(projectService)
	deps.versionHandler = handlers.NewVersionHandler(versionService)
	deps.commentHandler = handlers.NewCommentHandler(commentService)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(cfg *config, deps *dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Клиенты присылают пути и с завершающим слешем, и без
	r.Use(middleware.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	}))

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты (регистрация, вход)
		r.Post("/register", deps.authHandler.Register)
		r.Post("/login", deps.authHandler.Login)

		// Приватные маршруты (требуют аутентификации)
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Authenticator(cfg.JWTSecret))

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", deps.projectHandler.List)
				r.Post("/", deps.projectHandler.Create)

				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", deps.projectHandler.Get)
					r.Post("/share", deps.projectHandler.Share)
					r.Delete("/share/{userID}", deps.projectHandler.Unshare)

					r.Route("/versions", func(r chi.Router) {
						r.Get("/", deps.versionHandler.List)
						r.Post("/upload", deps.versionHandler.Upload)
						r.Get("/latest", deps.versionHandler.GetLatest)

						r.Route("/{versionID}", func(r chi.Router) {
							r.Get("/", deps.versionHandler.Get)
							r.Patch("/", deps.versionHandler.Update)
							r.Delete("/", deps.versionHandler.Delete)
							r.Post("/set-latest", deps.versionHandler.SetLatest)
							r.Get("/download", deps.versionHandler.Download)
						})
					})

					r.Route("/comments", func(r chi.Router) {
						r.Get("/", deps.commentHandler.List)
						r.Post("/", deps.commentHandler.Create)
					})
				})
			})
		})
	})
	return r
}
