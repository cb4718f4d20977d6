package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"webdesk/utils"
)

type Config struct {
	Port string
	Env  string

	DBDriver     string
	MongoURI     string
	DatabaseName string
	DatabaseDSN  string

	JWTSecret     string
	JWTExpiration time.Duration
	JWTIssuer     string
	ResetTokenTTL time.Duration
	ResetURL      string

	StorageBackend string
	StorageRoot    string

	B2ApplicationKeyID string
	B2ApplicationKey   string
	B2BucketName       string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	StorageLimitBytes int64
	MaxFileSize       int64
	TrashRetention    time.Duration

	QuotaAlertMode string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailFromName string
	SupportEmail string
	AppName      string

	Log utils.LogConfig

	AllowedOrigins []string
	SweepLockFile  string

	// EnvFile is the .env file that was loaded, if any.
	EnvFile string
}

const defaultJWTSecret = "your-super-secret-jwt-key"

var defaults = map[string]interface{}{
	"port":                "8080",
	"env":                 "development",
	"db_driver":           "mongo",
	"mongo_uri":           "mongodb://localhost:27017",
	"database_name":       "webdesk",
	"database_dsn":        "",
	"jwt_secret":          defaultJWTSecret,
	"jwt_expiration":      "24h",
	"jwt_issuer":          "webdesk",
	"reset_token_ttl":     "30m",
	"reset_url":           "http://localhost:3000/reset-password",
	"storage_backend":     "local",
	"storage_root":        "./storage",
	"minio_use_ssl":       false,
	"storage_limit_bytes": int64(5 << 30),
	"max_file_size":       int64(0),
	"trash_retention":     "720h",
	"quota_alert_mode":    "level",
	"redis_addr":          "",
	"redis_db":            0,
	"smtp_port":           587,
	"mail_from":           "noreply@webdesk.local",
	"mail_from_name":      "WebDesk",
	"support_email":       "support@webdesk.local",
	"app_name":            "WebDesk",
	"log_level":           "info",
	"log_format":          "json",
	"log_output":          "console",
	"log_file":            "logs/webdesk.log",
	"log_max_size":        100,
	"log_max_age":         30,
	"log_max_backups":     10,
	"log_compress":        true,
	"allowed_origins":     "http://localhost:3000,http://localhost:5173",
	"sweep_lock_file":     filepath.Join(os.TempDir(), "webdesk-sweep.lock"),
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	envFile := loadEnvFile()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// older variable names are still accepted
	_ = v.BindEnv("mongo_uri", "MONGO_URI", "MONGODB_URI")
	_ = v.BindEnv("b2_application_key_id", "B2_APPLICATION_KEY_ID", "B2_KEY_ID", "BACKBLAZE_KEY_ID")
	_ = v.BindEnv("b2_application_key", "B2_APPLICATION_KEY", "B2_APP_KEY", "BACKBLAZE_APP_KEY")
	_ = v.BindEnv("b2_bucket_name", "B2_BUCKET_NAME", "B2_BUCKET", "BACKBLAZE_BUCKET")

	cfg := &Config{
		Port: v.GetString("port"),
		Env:  v.GetString("env"),

		DBDriver:     strings.ToLower(v.GetString("db_driver")),
		MongoURI:     v.GetString("mongo_uri"),
		DatabaseName: v.GetString("database_name"),
		DatabaseDSN:  v.GetString("database_dsn"),

		JWTSecret:     v.GetString("jwt_secret"),
		JWTExpiration: v.GetDuration("jwt_expiration"),
		JWTIssuer:     v.GetString("jwt_issuer"),
		ResetTokenTTL: v.GetDuration("reset_token_ttl"),
		ResetURL:      v.GetString("reset_url"),

		StorageBackend: strings.ToLower(v.GetString("storage_backend")),
		StorageRoot:    v.GetString("storage_root"),

		B2ApplicationKeyID: v.GetString("b2_application_key_id"),
		B2ApplicationKey:   v.GetString("b2_application_key"),
		B2BucketName:       v.GetString("b2_bucket_name"),

		MinIOEndpoint:  v.GetString("minio_endpoint"),
		MinIOAccessKey: v.GetString("minio_access_key"),
		MinIOSecretKey: v.GetString("minio_secret_key"),
		MinIOBucket:    v.GetString("minio_bucket"),
		MinIOUseSSL:    v.GetBool("minio_use_ssl"),

		StorageLimitBytes: v.GetInt64("storage_limit_bytes"),
		MaxFileSize:       v.GetInt64("max_file_size"),
		TrashRetention:    v.GetDuration("trash_retention"),

		QuotaAlertMode: strings.ToLower(v.GetString("quota_alert_mode")),
		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		RedisDB:        v.GetInt("redis_db"),

		SMTPHost:     v.GetString("smtp_host"),
		SMTPPort:     v.GetInt("smtp_port"),
		SMTPUsername: v.GetString("smtp_username"),
		SMTPPassword: v.GetString("smtp_password"),
		MailFrom:     v.GetString("mail_from"),
		MailFromName: v.GetString("mail_from_name"),
		SupportEmail: v.GetString("support_email"),
		AppName:      v.GetString("app_name"),

		Log: utils.LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
			Output: v.GetString("log_output"),
			File: utils.LogFileConfig{
				Filename:   v.GetString("log_file"),
				MaxSize:    v.GetInt("log_max_size"),
				MaxAge:     v.GetInt("log_max_age"),
				MaxBackups: v.GetInt("log_max_backups"),
				Compress:   v.GetBool("log_compress"),
			},
		},

		AllowedOrigins: parseStringSlice(v.GetString("allowed_origins")),
		SweepLockFile:  v.GetString("sweep_lock_file"),

		EnvFile: envFile,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate reports every problem at once instead of stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		problems = append(problems, "JWT_SECRET must be changed in production")
	}
	if c.JWTExpiration <= 0 {
		problems = append(problems, "JWT_EXPIRATION must be positive")
	}

	switch c.DBDriver {
	case "mongo":
		if c.MongoURI == "" || c.DatabaseName == "" {
			problems = append(problems, "MONGO_URI and DATABASE_NAME are required for the mongo driver")
		}
	case "postgres", "sqlite":
		if c.DatabaseDSN == "" {
			problems = append(problems, fmt.Sprintf("DATABASE_DSN is required for the %s driver", c.DBDriver))
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.DBDriver))
	}

	switch c.StorageBackend {
	case "local":
		if c.StorageRoot == "" {
			problems = append(problems, "STORAGE_ROOT is required for local storage")
		}
	case "b2":
		var missing []string
		for key, value := range map[string]string{
			"B2_APPLICATION_KEY_ID": c.B2ApplicationKeyID,
			"B2_APPLICATION_KEY":    c.B2ApplicationKey,
			"B2_BUCKET_NAME":        c.B2BucketName,
		} {
			if value == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			problems = append(problems, fmt.Sprintf("missing B2 settings: %s", strings.Join(missing, ", ")))
		}
	case "minio":
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" || c.MinIOBucket == "" {
			problems = append(problems, "MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required for minio storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.StorageLimitBytes <= 0 {
		problems = append(problems, "STORAGE_LIMIT_BYTES must be positive")
	}
	if c.MaxFileSize < 0 {
		problems = append(problems, "MAX_FILE_SIZE cannot be negative")
	}
	if c.TrashRetention <= 0 {
		problems = append(problems, "TRASH_RETENTION must be positive")
	}

	switch c.QuotaAlertMode {
	case "level":
	case "edge":
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required when QUOTA_ALERT_MODE is edge")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported QUOTA_ALERT_MODE %q", c.QuotaAlertMode))
	}

	if err := c.Log.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LogSummary writes the effective configuration with secrets masked.
func (c *Config) LogSummary(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("env_file", c.EnvFile),
		zap.String("port", c.Port),
		zap.String("env", c.Env),
		zap.String("db_driver", c.DBDriver),
		zap.String("database", c.DatabaseName),
		zap.String("mongo_uri", maskConnectionString(c.MongoURI)),
		zap.String("database_dsn", maskConnectionString(c.DatabaseDSN)),
		zap.String("jwt_secret", maskSecret(c.JWTSecret)),
		zap.Duration("jwt_expiration", c.JWTExpiration),
		zap.String("storage_backend", c.StorageBackend),
		zap.String("storage_root", c.StorageRoot),
		zap.String("b2_key_id", maskSecret(c.B2ApplicationKeyID)),
		zap.String("b2_bucket", c.B2BucketName),
		zap.String("minio_endpoint", c.MinIOEndpoint),
		zap.String("minio_access_key", maskSecret(c.MinIOAccessKey)),
		zap.Int64("storage_limit_bytes", c.StorageLimitBytes),
		zap.Int64("max_file_size", c.MaxFileSize),
		zap.Duration("trash_retention", c.TrashRetention),
		zap.String("quota_alert_mode", c.QuotaAlertMode),
		zap.String("smtp_host", c.SMTPHost),
		zap.String("smtp_password", maskSecret(c.SMTPPassword)),
		zap.Strings("allowed_origins", c.AllowedOrigins),
	)
}

// loadEnvFile loads the first .env found near the working directory and
// returns its path.
func loadEnvFile() string {
	pwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	envPaths := []string{
		filepath.Join(pwd, ".env"),
		filepath.Join(filepath.Dir(pwd), ".env"),
		filepath.Join(filepath.Dir(filepath.Dir(pwd)), ".env"),
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			return envPath
		}
	}
	return ""
}

func maskSecret(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	if len(secret) <= 8 {
		return "[HIDDEN]"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

func maskConnectionString(uri string) string {
	if uri == "" {
		return "[NOT SET]"
	}
	if strings.Contains(uri, "@") {
		parts := strings.Split(uri, "@")
		return "[CREDENTIALS_HIDDEN]@" + parts[len(parts)-1]
	}
	if strings.Contains(uri, "password=") {
		return "[CREDENTIALS_HIDDEN]"
	}
	return uri
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
