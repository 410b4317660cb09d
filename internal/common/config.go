package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Ingest   IngestConfig
	OCR      OCRConfig
	Quality  QualityConfig
	Fields   FieldsConfig
	Database DatabaseConfig
	Server   ServerConfig
	Watch    WatchConfig
	LogLevel string
}

// IngestConfig holds screening, text-layer and worker settings
type IngestConfig struct {
	MaxFileSize        int64
	TextTimeout        time.Duration
	ImageOnlyThreshold int
	EnableOCRFallback  bool
	Pdftotext          string
	Workers            int
	QueueSize          int
	ProcessTimeout     time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string
	Languages   []string
	DPI         int
	Timeout     time.Duration
	MaxPages    int
	Pdftoppm    string
	Tesseract   string
	TessdataDir string
	TempDir     string
}

// QualityConfig holds the OCR quality-gate thresholds
type QualityConfig struct {
	Disabled           bool
	CriticalMean       float64
	WarningMean        float64
	LowConfidenceRatio float64
	MinWords           int
}

// FieldsConfig holds anchor-extraction tuning
type FieldsConfig struct {
	AmbiguityConfidence float64
	AmbiguityRatio      float64
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr  string
	AdminAddr string
}

// WatchConfig holds folder-watcher configuration
type WatchConfig struct {
	Roots       []string
	Debounce    time.Duration
	InitialScan bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			MaxFileSize:        getEnvAsInt64("INGEST_MAX_FILE_SIZE_MB", 50) << 20,
			TextTimeout:        getEnvAsDuration("INGEST_TEXT_TIMEOUT", 30*time.Second),
			ImageOnlyThreshold: getEnvAsInt("INGEST_IMAGE_ONLY_THRESHOLD", 50),
			EnableOCRFallback:  getEnvAsBool("INGEST_ENABLE_OCR_FALLBACK", true),
			Pdftotext:          getEnv("PDFTOTEXT_PATH", ""),
			Workers:            getEnvAsInt("INGEST_WORKERS", 4),
			QueueSize:          getEnvAsInt("INGEST_QUEUE_SIZE", 256),
			ProcessTimeout:     getEnvAsDuration("INGEST_PROCESS_TIMEOUT", 3*time.Minute),
		},
		OCR: OCRConfig{
			Engine:      getEnv("OCR_ENGINE", "tesseract"),
			Languages:   getEnvAsList("OCR_LANGUAGES", []string{"heb", "eng"}),
			DPI:         getEnvAsInt("OCR_DPI", 600),
			Timeout:     getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
			Pdftoppm:    getEnv("PDFTOPPM_PATH", ""),
			Tesseract:   getEnv("TESSERACT_PATH", ""),
			TessdataDir: getEnv("OCR_TESSDATA_DIR", ""),
			TempDir:     getEnv("OCR_TEMP_DIR", ""),
		},
		Quality: QualityConfig{
			Disabled:           getEnvAsBool("OCR_QUALITY_DISABLED", false),
			CriticalMean:       getEnvAsFloat64("OCR_CRITICAL_MEAN", 40),
			WarningMean:        getEnvAsFloat64("OCR_WARNING_MEAN", 60),
			LowConfidenceRatio: getEnvAsFloat64("OCR_LOW_CONFIDENCE_RATIO", 0.3),
			MinWords:           getEnvAsInt("OCR_MIN_WORDS", 10),
		},
		Fields: FieldsConfig{
			AmbiguityConfidence: getEnvAsFloat64("FIELDS_AMBIGUITY_CONFIDENCE", 0.7),
			AmbiguityRatio:      getEnvAsFloat64("FIELDS_AMBIGUITY_RATIO", 0.8),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "form106.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr:  getEnv("GRPC_ADDR", ":8080"),
			AdminAddr: getEnv("ADMIN_ADDR", ":8081"),
		},
		Watch: WatchConfig{
			Roots:       getEnvAsList("WATCH_DIRS", nil),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
			InitialScan: getEnvAsBool("WATCH_INITIAL_SCAN", true),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return splitList(value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch {
	case c.Ingest.MaxFileSize <= 0:
		return NewAppError("CONFIG_ERROR", "INGEST_MAX_FILE_SIZE_MB must be positive", ErrInvalidInput)
	case c.Ingest.TextTimeout <= 0:
		return NewAppError("CONFIG_ERROR", "INGEST_TEXT_TIMEOUT must be positive", ErrInvalidInput)
	case c.Ingest.ImageOnlyThreshold < 0:
		return NewAppError("CONFIG_ERROR", "INGEST_IMAGE_ONLY_THRESHOLD must not be negative", ErrInvalidInput)
	case c.Ingest.Workers <= 0:
		return NewAppError("CONFIG_ERROR", "INGEST_WORKERS must be positive", ErrInvalidInput)
	case len(c.OCR.Languages) == 0:
		return NewAppError("CONFIG_ERROR", "OCR_LANGUAGES must list at least one language", ErrInvalidInput)
	case c.OCR.DPI < 72 || c.OCR.DPI > 1200:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("OCR_DPI %d out of range [72, 1200]", c.OCR.DPI), ErrInvalidInput)
	case c.OCR.Timeout <= 0:
		return NewAppError("CONFIG_ERROR", "OCR_TIMEOUT must be positive", ErrInvalidInput)
	case c.OCR.Engine != "tesseract" && c.OCR.Engine != "gosseract":
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be tesseract or gosseract", ErrInvalidInput)
	case c.Quality.CriticalMean < 0 || c.Quality.CriticalMean > c.Quality.WarningMean || c.Quality.WarningMean > 100:
		return NewAppError("CONFIG_ERROR", "OCR quality thresholds must satisfy 0 <= critical <= warning <= 100", ErrInvalidInput)
	case c.Quality.LowConfidenceRatio < 0 || c.Quality.LowConfidenceRatio > 1:
		return NewAppError("CONFIG_ERROR", "OCR_LOW_CONFIDENCE_RATIO must be within [0, 1]", ErrInvalidInput)
	case c.Fields.AmbiguityRatio <= 0 || c.Fields.AmbiguityRatio > 1:
		return NewAppError("CONFIG_ERROR", "FIELDS_AMBIGUITY_RATIO must be within (0, 1]", ErrInvalidInput)
	}
	return nil
}
