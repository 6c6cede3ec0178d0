package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/kazz187/kanban/internal/board"
	"github.com/kazz187/kanban/internal/board/repositoryimpl"
	"github.com/kazz187/kanban/pkg/storage"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:"127.0.0.1"`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	// AllowedOrigins applies to both CORS and event stream upgrades.
	AllowedOrigins []string `envconfig:"HTTP_ALLOWED_ORIGINS" default:"*"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".kanban/data"`
	// Format selects the snapshot codec: json or yaml.
	Format string `envconfig:"STORAGE_FORMAT" default:"json"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"kanban/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	// SQLite settings (used when Type == "sqlite")
	SQLitePath string `envconfig:"SQLITE_PATH" default:".kanban/kanban.db"`
	// WriteTimeout bounds each background snapshot write.
	WriteTimeout time.Duration `envconfig:"STORAGE_WRITE_TIMEOUT" default:"10s"`
}

type InboxEnv struct {
	// Dir enables the drop folder importer when set.
	Dir      string        `envconfig:"INBOX_DIR"`
	Debounce time.Duration `envconfig:"INBOX_DEBOUNCE" default:"500ms"`
	Strict   bool          `envconfig:"INBOX_STRICT" default:"false"`
}

type Env struct {
	BaseEnv
	StorageEnv
	InboxEnv
}

const namespace = "KANBAN"

// LoadEnv reads the given dotenv files (".env" when none are given) and then
// the process environment. Variables already set in the environment win.
func LoadEnv(dotenvFiles ...string) (*Env, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) Validate() error {
	switch e.StorageEnv.Type {
	case "local", "memory", "sqlite":
	case "s3":
		if e.S3Bucket == "" {
			return errors.New("KANBAN_S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", e.StorageEnv.Type)
	}
	switch e.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown storage format %q", e.Format)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func InboxEnvFromEnv(env *Env) *InboxEnv {
	return &env.InboxEnv
}

// OpenStorage builds the storage backend selected by e. The returned close
// function releases backend resources and is never nil.
func OpenStorage(ctx context.Context, e *StorageEnv) (storage.Storage, func() error, error) {
	noop := func() error { return nil }
	switch e.Type {
	case "s3":
		s, err := storage.NewS3Storage(ctx, e.S3Bucket, e.S3Prefix, e.S3Region)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, noop, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(e.SQLitePath), 0o755); err != nil {
			return nil, noop, fmt.Errorf("failed to create database directory: %w", err)
		}
		s, err := storage.NewSQLiteStorage(ctx, e.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		return s, s.Close, nil
	case "memory":
		return storage.NewMemoryStorage(), noop, nil
	default:
		s, err := storage.NewLocalStorage(e.BaseDir)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, noop, nil
	}
}

// NewRepository wraps s with the snapshot codec selected by e.
func NewRepository(e *StorageEnv, s storage.Storage) board.Repository {
	if e.Format == "yaml" {
		return repositoryimpl.NewYAMLRepository(s)
	}
	return repositoryimpl.NewJSONRepository(s)
}
