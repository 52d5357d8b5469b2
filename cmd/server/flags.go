package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
)

const (
	// Порт по умолчанию для HTTP.
	defaultServerPort = "8080"

	// Путь к миграциям по умолчанию (относительно рабочей директории).
	defaultMigrationsPath = "migrations"

	// Лимит размера загружаемого файла по умолчанию (50MB).
	defaultMaxUploadSize = 50 << 20

	// Значения по умолчанию для MinIO (из docker-compose).
	defaultMinioEndpoint = "localhost:9000"
	defaultMinioUser     = "minioadmin"
	defaultMinioPassword = "minioadmin"
	defaultMinioBucket   = "opencodehub-versions"

	// Переменные окружения.
	envServerPort     = "SERVER_PORT"
	envTLSCertFile    = "TLS_CERT_FILE"
	envTLSKeyFile     = "TLS_KEY_FILE"
	envDatabaseDSN    = "DATABASE_DSN"
	envJWTSecret      = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, не секрет
	envMigrationsPath = "MIGRATIONS_PATH"
	envMaxUploadSize  = "MAX_UPLOAD_SIZE"
	envMinioEndpoint  = "MINIO_ENDPOINT"
	envMinioUser      = "MINIO_USER"
	envMinioPassword  = "MINIO_PASSWORD"
	envMinioBucket    = "MINIO_BUCKET"
	envMinioUseSSL    = "MINIO_USE_SSL"
)

// config хранит конфигурацию сервера.
type config struct {
	Port           string
	CertFile       string
	KeyFile        string
	DatabaseDSN    string
	JWTSecret      string
	MigrationsPath string
	MaxUploadSize  int64
	MinioEndpoint  string
	MinioUser      string
	MinioPassword  string
	MinioBucket    string
	MinioUseSSL    bool
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
// Приоритет: флаг > переменная окружения > значение по умолчанию.
func parseFlags() (*config, error) {
	cfg := &config{}

	// Определяем флаги
	flag.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт для запуска сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата, опционально (env: %s)", envTLSCertFile))
	flag.StringVar(&cfg.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа, опционально (env: %s)", envTLSKeyFile))
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секретный ключ подписи JWT (env: %s)", envJWTSecret))
	flag.StringVar(&cfg.MigrationsPath, "migrations-path", "",
		fmt.Sprintf("Путь к директории миграций (env: %s, default: %s)", envMigrationsPath, defaultMigrationsPath))
	flag.Int64Var(&cfg.MaxUploadSize, "max-upload-size", 0,
		fmt.Sprintf("Максимальный размер файла версии в байтах (env: %s, default: %d)",
			envMaxUploadSize, defaultMaxUploadSize))
	flag.StringVar(&cfg.MinioEndpoint, "minio-endpoint", "",
		fmt.Sprintf("Адрес MinIO (env: %s, default: %s)", envMinioEndpoint, defaultMinioEndpoint))
	flag.StringVar(&cfg.MinioUser, "minio-user", "",
		fmt.Sprintf("Логин MinIO (env: %s)", envMinioUser))
	flag.StringVar(&cfg.MinioPassword, "minio-password", "",
		fmt.Sprintf("Пароль MinIO (env: %s)", envMinioPassword))
	flag.StringVar(&cfg.MinioBucket, "minio-bucket", "",
		fmt.Sprintf("Имя бакета MinIO (env: %s, default: %s)", envMinioBucket, defaultMinioBucket))
	flag.BoolVar(&cfg.MinioUseSSL, "minio-use-ssl", false,
		fmt.Sprintf("Использовать SSL для MinIO (env: %s)", envMinioUseSSL))

	// Парсим флаги
	flag.Parse()

	// Применяем переменные окружения, если флаги не заданы
	applyString(&cfg.Port, envServerPort, defaultServerPort)
	applyString(&cfg.CertFile, envTLSCertFile, "")
	applyString(&cfg.KeyFile, envTLSKeyFile, "")
	applyString(&cfg.DatabaseDSN, envDatabaseDSN, "")
	applyString(&cfg.JWTSecret, envJWTSecret, "")
	applyString(&cfg.MigrationsPath, envMigrationsPath, defaultMigrationsPath)
	applyString(&cfg.MinioEndpoint, envMinioEndpoint, defaultMinioEndpoint)
	applyString(&cfg.MinioUser, envMinioUser, defaultMinioUser)
	applyString(&cfg.MinioPassword, envMinioPassword, defaultMinioPassword)
	applyString(&cfg.MinioBucket, envMinioBucket, defaultMinioBucket)

	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
		if value, ok := os.LookupEnv(envMaxUploadSize); ok {
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("некорректное значение %s: %w", envMaxUploadSize, err)
			}
			cfg.MaxUploadSize = parsed
		}
	}
	if !cfg.MinioUseSSL {
		if value, ok := os.LookupEnv(envMinioUseSSL); ok {
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("некорректное значение %s: %w", envMinioUseSSL, err)
			}
			cfg.MinioUseSSL = parsed
		}
	}

	// Проверяем обязательные параметры
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секретный ключ JWT (--jwt-secret или " + envJWTSecret + ")")
	}
	// TLS опционален, но сертификат и ключ идут только парой
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.New("TLS-сертификат и ключ должны быть указаны вместе (--cert-file и --key-file)")
	}

	return cfg, nil
}

// applyString подставляет в пустое поле значение из окружения или значение по умолчанию.
func applyString(target *string, envKey, fallback string) {
	if *target != "" {
		return
	}
	if value, ok := os.LookupEnv(envKey); ok {
		*target = value
		return
	}
	*target = fallback
}
