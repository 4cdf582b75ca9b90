package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and the post sequence counter
	RedisHost      string
	RedisPort      int
	RedisDB        int
	RedisPassword  string
	CounterBackend string
	ListCacheTTL   int
	// Attachments
	StorageBackend  string
	UploadDir       string
	MaxUploadMB     int
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	PurgeSchedule   string
	PurgeAfterHours int
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	SentryDSN     string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
//
// Precedence: defaults -> config/config.json -> .env -> environment variables.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(filepath.Join("config", "config.json"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("invalid config file: %v", err)
		}
	}

	cfg = fromViper(v)
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Intended for tests and embedding.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}
	v.SetDefault("AppPort", "8080")
	v.SetDefault("RateLimitPerMinute", 60)
	v.SetDefault("AllowedOrigins", []string{"*"})
	v.SetDefault("DBDriver", "mysql")
	v.SetDefault("DBHost", "127.0.0.1")
	v.SetDefault("DBPort", "3306")
	v.SetDefault("DBUser", "root")
	v.SetDefault("DBName", "threadbbs")
	v.SetDefault("RedisHost", "127.0.0.1")
	v.SetDefault("RedisPort", 6379)
	v.SetDefault("CounterBackend", "db")
	v.SetDefault("ListCacheTTLSeconds", 3600)
	v.SetDefault("StorageBackend", "local")
	v.SetDefault("UploadDir", "uploadedFiles")
	v.SetDefault("MaxUploadMB", 50)
	v.SetDefault("PurgeAfterHours", 72)
	v.SetDefault("GinMode", "release")
	v.SetDefault("GinPath", "logs/go_gin.log")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogMaxSizeMB", 100)
	v.SetDefault("LogMaxBackups", 3)
	v.SetDefault("LogMaxAgeDays", 7)
	return v
}

// envKeys maps config keys onto the environment variables that override them.
var envKeys = map[string]string{
	"AppPort":             "APP_PORT",
	"JWTSecret":           "JWT_SECRET",
	"RateLimitPerMinute":  "RATE_LIMIT_PER_MINUTE",
	"AllowedOrigins":      "CORS_ALLOWED_ORIGINS",
	"DBDriver":            "DB_DRIVER",
	"DatabaseURI":         "DATABASE_URI",
	"DBHost":              "DB_HOST",
	"DBPort":              "DB_PORT",
	"DBUser":              "DB_USER",
	"DBPassword":          "DB_PASSWORD",
	"DBName":              "DB_NAME",
	"RedisHost":           "REDIS_HOST",
	"RedisPort":           "REDIS_PORT",
	"RedisDB":             "REDIS_DB",
	"RedisPassword":       "REDIS_PASSWORD",
	"CounterBackend":      "COUNTER_BACKEND",
	"ListCacheTTLSeconds": "LIST_CACHE_TTL_SECONDS",
	"StorageBackend":      "STORAGE_BACKEND",
	"UploadDir":           "UPLOAD_DIR",
	"MaxUploadMB":         "MAX_UPLOAD_MB",
	"S3Region":            "S3_REGION",
	"S3Bucket":            "S3_BUCKET",
	"S3AccessKey":         "S3_ACCESS_KEY",
	"S3SecretKey":         "S3_SECRET_KEY",
	"S3Endpoint":          "S3_ENDPOINT",
	"PurgeSchedule":       "PURGE_SCHEDULE",
	"PurgeAfterHours":     "PURGE_AFTER_HOURS",
	"GinMode":             "GIN_MODE",
	"GinPath":             "GIN_PATH",
	"LogLevel":            "LOG_LEVEL",
	"LogPath":             "LOG_PATH",
	"LogMaxSizeMB":        "LOG_MAX_SIZE_MB",
	"LogMaxBackups":       "LOG_MAX_BACKUPS",
	"LogMaxAgeDays":       "LOG_MAX_AGE_DAYS",
	"LogCompress":         "LOG_COMPRESS",
	"SentryDSN":           "SENTRY_DSN",
}

func fromViper(v *viper.Viper) AppConfig {
	c := AppConfig{
		AppPort:            v.GetString("AppPort"),
		JWTSecret:          v.GetString("JWTSecret"),
		RateLimitPerMinute: v.GetInt("RateLimitPerMinute"),
		AllowedOrigins:     readList(v, "AllowedOrigins"),
		DBDriver:           strings.ToLower(v.GetString("DBDriver")),
		DatabaseURI:        v.GetString("DatabaseURI"),
		DBHost:             v.GetString("DBHost"),
		DBPort:             v.GetString("DBPort"),
		DBUser:             v.GetString("DBUser"),
		DBPassword:         v.GetString("DBPassword"),
		DBName:             v.GetString("DBName"),
		RedisHost:          v.GetString("RedisHost"),
		RedisPort:          v.GetInt("RedisPort"),
		RedisDB:            v.GetInt("RedisDB"),
		RedisPassword:      v.GetString("RedisPassword"),
		CounterBackend:     strings.ToLower(v.GetString("CounterBackend")),
		ListCacheTTL:       v.GetInt("ListCacheTTLSeconds"),
		StorageBackend:     strings.ToLower(v.GetString("StorageBackend")),
		UploadDir:          v.GetString("UploadDir"),
		MaxUploadMB:        v.GetInt("MaxUploadMB"),
		S3Region:           v.GetString("S3Region"),
		S3Bucket:           v.GetString("S3Bucket"),
		S3AccessKey:        v.GetString("S3AccessKey"),
		S3SecretKey:        v.GetString("S3SecretKey"),
		S3Endpoint:         v.GetString("S3Endpoint"),
		PurgeSchedule:      v.GetString("PurgeSchedule"),
		PurgeAfterHours:    v.GetInt("PurgeAfterHours"),
		GinMode:            v.GetString("GinMode"),
		GinPath:            v.GetString("GinPath"),
		LogLevel:           v.GetString("LogLevel"),
		LogPath:            v.GetString("LogPath"),
		LogMaxSizeMB:       v.GetInt("LogMaxSizeMB"),
		LogMaxBackups:      v.GetInt("LogMaxBackups"),
		LogMaxAgeDays:      v.GetInt("LogMaxAgeDays"),
		LogCompress:        v.GetBool("LogCompress"),
		SentryDSN:          v.GetString("SentryDSN"),
	}
	applyDefaults(&c)
	return c
}

// applyDefaults sets sane defaults for zero-value fields that bypassed viper (e.g. Set).
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.CounterBackend == "" {
		c.CounterBackend = "db"
	}
	if c.ListCacheTTL == 0 {
		c.ListCacheTTL = 3600
	}
	if c.StorageBackend == "" {
		c.StorageBackend = "local"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploadedFiles"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 50
	}
	if c.PurgeAfterHours == 0 {
		c.PurgeAfterHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// readList accepts both JSON arrays and comma separated env values.
func readList(v *viper.Viper, key string) []string {
	raw := v.GetStringSlice(key)
	items := []string{}
	for _, entry := range raw {
		for _, item := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
