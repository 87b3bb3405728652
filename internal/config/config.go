package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret    string
	AuthTokenTTL     time.Duration
	AuthCookieSecure bool

	OTLPEndpoint string

	DBType            string
	DBDSN             string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Storage StorageConfig

	RateLimit RateLimitConfig

	AttachmentPolicyFile string
}

// StorageConfig points at the S3-compatible bucket holding case photos.
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
}

// RateLimitConfig sizes the token buckets; a zero capacity disables the bucket.
type RateLimitConfig struct {
	UploadCapacity   int
	UploadRefillRate float64
	LoginCapacity    int
	LoginRefillRate  float64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:              getenv("APP_SERVICE", "repair-manager"),
		AppVersion:           getenv("APP_VERSION", "0.1.0"),
		Environment:          environment,
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret:        strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTL:         getenvDuration("AUTH_TOKEN_TTL", 7*24*time.Hour),
		AuthCookieSecure:     authCookieSecure,
		OTLPEndpoint:         getenv("OTLP_ENDPOINT", ""),
		DBType:               getenv("DATABASE_TYPE", "postgres"),
		DBDSN:                strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBHost:               getenv("DATABASE_HOST", "localhost"),
		DBPort:               getenv("DATABASE_PORT", "5432"),
		DBName:               getenv("DATABASE_NAME", "repair_manager"),
		DBUser:               getenv("DATABASE_USER", "postgres"),
		DBPassword:           getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:            getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:        getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:        getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:    getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime:    getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		RedisAddr:            strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:        getenv("REDIS_PASSWORD", ""),
		RedisDB:              getenvInt("REDIS_DB", 0),
		AttachmentPolicyFile: strings.TrimSpace(getenv("ATTACHMENT_POLICY_FILE", "")),
		Storage: StorageConfig{
			Endpoint:      strings.TrimSpace(getenv("STORAGE_ENDPOINT", "localhost:9000")),
			AccessKey:     strings.TrimSpace(getenv("STORAGE_ACCESS_KEY", "")),
			SecretKey:     strings.TrimSpace(getenv("STORAGE_SECRET_KEY", "")),
			Bucket:        getenv("STORAGE_BUCKET", "attachments"),
			Region:        getenv("STORAGE_REGION", ""),
			UseSSL:        getenvBool("STORAGE_USE_SSL", false),
			PublicBaseURL: strings.TrimRight(getenv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
		},
		RateLimit: RateLimitConfig{
			UploadCapacity:   getenvInt("RATE_LIMIT_UPLOAD_CAPACITY", 30),
			UploadRefillRate: getenvFloat("RATE_LIMIT_UPLOAD_REFILL_PER_SEC", 0.5),
			LoginCapacity:    getenvInt("RATE_LIMIT_LOGIN_CAPACITY", 10),
			LoginRefillRate:  getenvFloat("RATE_LIMIT_LOGIN_REFILL_PER_SEC", 0.1),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
