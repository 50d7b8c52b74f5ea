package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingEnv is matched by errors.Is on every *MissingEnvError.
var ErrMissingEnv = errors.New("missing required environment variables")

// MissingEnvError lists every required variable that was unset or empty.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingEnv.Error(), strings.Join(e.Names, ", "))
}

func (e *MissingEnvError) Is(target error) bool {
	return target == ErrMissingEnv
}

// Config holds all configuration for the application
type Config struct {
	DatabaseURL string // Run history, optional
	RedisURL    string // Scheduler queue and run lock
	LogLevel    string
	APIPort     string
	MetricsPort string // Worker /metrics listener

	SummaryLogFolderID  string
	CompanyConfigFileID string
	ExportSchedule      string

	Storage StorageConfig
	NAV     NAVConfig
}

// StorageConfig describes the S3 compatible document store.
type StorageConfig struct {
	Bucket       string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type NAVConfig struct {
	InvoiceDirection  string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	StrictPagination  bool
	Software          SoftwareConfig
}

type SoftwareConfig struct {
	ID          string
	Name        string
	Operation   string
	MainVersion string
	DevName     string
	DevContact  string
}

// LoadConfig reads configuration from environment variables (.env file)
func LoadConfig() (*Config, error) {
	// Load .env file. In production, env variables are often set directly.
	_ = godotenv.Load()

	timeout, err := getEnvDuration("NAV_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	rps, err := getEnvFloat("NAV_REQUESTS_PER_SECOND", 0)
	if err != nil {
		return nil, err
	}
	strict, err := getEnvBool("NAV_STRICT_PAGINATION", false)
	if err != nil {
		return nil, err
	}
	pathStyle, err := getEnvBool("STORAGE_USE_PATH_STYLE", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		APIPort:             getEnv("API_PORT", "8080"),
		MetricsPort:         getEnv("METRICS_PORT", "9090"),
		SummaryLogFolderID:  getEnv("SUMMARY_LOG_FOLDER_ID", ""),
		CompanyConfigFileID: getEnv("COMPANY_CONFIG_FILE_ID", ""),
		ExportSchedule:      getEnv("EXPORT_SCHEDULE", "0 3 * * 1"),
		Storage: StorageConfig{
			Bucket:       getEnv("STORAGE_BUCKET", ""),
			Endpoint:     getEnv("STORAGE_ENDPOINT", ""),
			Region:       getEnv("STORAGE_REGION", "us-east-1"),
			AccessKey:    getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:    getEnv("STORAGE_SECRET_KEY", ""),
			UsePathStyle: pathStyle,
		},
		NAV: NAVConfig{
			InvoiceDirection:  getEnv("NAV_INVOICE_DIRECTION", "OUTBOUND"),
			RequestTimeout:    timeout,
			RequestsPerSecond: rps,
			StrictPagination:  strict,
			Software: SoftwareConfig{
				ID:          getEnv("NAV_SOFTWARE_ID", "MULTI_COMPANY_EXPORT"),
				Name:        getEnv("NAV_SOFTWARE_NAME", "WeeklyInvoiceExport"),
				Operation:   getEnv("NAV_SOFTWARE_OPERATION", "ONLINE_SERVICE"),
				MainVersion: getEnv("NAV_SOFTWARE_MAIN_VERSION", "1.0"),
				DevName:     getEnv("NAV_SOFTWARE_DEV_NAME", "Internal"),
				DevContact:  getEnv("NAV_SOFTWARE_DEV_CONTACT", "noreply@example.com"),
			},
		},
	}, nil
}

// Validate reports every required variable an export run cannot do without.
func (c *Config) Validate() error {
	var missing []string
	for _, v := range []struct {
		name  string
		value string
	}{
		{"SUMMARY_LOG_FOLDER_ID", c.SummaryLogFolderID},
		{"COMPANY_CONFIG_FILE_ID", c.CompanyConfigFileID},
		{"STORAGE_BUCKET", c.Storage.Bucket},
	} {
		if strings.TrimSpace(v.value) == "" {
			missing = append(missing, v.name)
		}
	}

	if len(missing) > 0 {
		return &MissingEnvError{Names: missing}
	}
	return nil
}

// Helper function to get env var or return default
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}
