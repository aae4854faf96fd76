package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultAddr        = ":8080"
	defaultMaxUploadMB = 25
)

type Config struct {
	LogLevel  string
	LogFormat string

	// HTTP API
	Addr           string
	MaxUploadBytes int64
	AllowedOrigins []string

	// TempDir receives "<name>.jpg" outputs when no explicit path is given.
	TempDir string

	// CatalogPath is the SQLite ledger. It is off unless EXIFGPS_CATALOG is set.
	CatalogPath string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		slog.Warn("invalid integer setting, using default", "key", key, "value", valStr, "default", defaultVal)
		return defaultVal
	}
	return val
}

// Load reads the given .env files (".env" when none are named) and then the
// EXIFGPS_* environment. Missing .env files are not an error; variables
// already set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return fromEnv(), nil
}

func fromEnv() Config {
	var origins []string
	for _, o := range strings.Split(getEnvOrDefault("EXIFGPS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return Config{
		LogLevel:       getEnvOrDefault("EXIFGPS_LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("EXIFGPS_LOG_FORMAT", "text"),
		Addr:           getEnvOrDefault("EXIFGPS_ADDR", defaultAddr),
		MaxUploadBytes: int64(getEnvIntOrDefault("EXIFGPS_MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		AllowedOrigins: origins,
		TempDir:        getEnvOrDefault("EXIFGPS_TEMP_DIR", os.TempDir()),
		CatalogPath:    strings.TrimSpace(os.Getenv("EXIFGPS_CATALOG")),
	}
}
