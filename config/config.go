package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	Environment        string
	JWTSecret          string
	SessionTTLSeconds  int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// TLS termination; when both are set the server listens with TLS.
	TLSCertFile string
	TLSKeyFile  string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// Redis for caching / token revocation / signup throttling
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Signup abuse throttling
	SignupMaxPerIPPerDay int
	SignupCooldownSec    int
	// Settlement rules
	Timezone            string
	DailyBonusPoints    int
	WeeklyBonusPoints   int
	WeeklyPenaltyPoints int
	WeeklyWorkoutTarget int
	WorkoutTypeName     string
	DailyCloseCron      string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Best-effort .env bootstrap for local development.
	_ = godotenv.Load()

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

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

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.Environment = getString(app, "Environment")
		out.JWTSecret = getString(app, "JWTSecret")
		if v := getInt(app, "SessionTTLSeconds"); v != 0 {
			out.SessionTTLSeconds = v
		}
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		out.TLSCertFile = getString(app, "TLSCertFile")
		out.TLSKeyFile = getString(app, "TLSKeyFile")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.DBSSLMode = getString(dbs, "DBSSLMode")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	if sg, ok := raw["signup"].(map[string]any); ok {
		if v := getInt(sg, "MaxPerIPPerDay"); v != 0 {
			out.SignupMaxPerIPPerDay = v
		}
		if v := getInt(sg, "CooldownSec"); v != 0 {
			out.SignupCooldownSec = v
		}
	}

	if st, ok := raw["settlement"].(map[string]any); ok {
		if v := getString(st, "Timezone"); v != "" {
			out.Timezone = v
		}
		if v := getInt(st, "DailyBonusPoints"); v != 0 {
			out.DailyBonusPoints = v
		}
		if v := getInt(st, "WeeklyBonusPoints"); v != 0 {
			out.WeeklyBonusPoints = v
		}
		if v := getInt(st, "WeeklyPenaltyPoints"); v != 0 {
			out.WeeklyPenaltyPoints = v
		}
		if v := getInt(st, "WeeklyWorkoutTarget"); v != 0 {
			out.WeeklyWorkoutTarget = v
		}
		if v := getString(st, "WorkoutTypeName"); v != "" {
			out.WorkoutTypeName = v
		}
		if v := getString(st, "DailyCloseCron"); v != "" {
			out.DailyCloseCron = v
		}
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SessionTTLSeconds == 0 {
		c.SessionTTLSeconds = 3600
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "5432"
	}
	if c.DBUser == "" {
		c.DBUser = "postgres"
	}
	if c.DBName == "" {
		c.DBName = "questlog"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.SignupMaxPerIPPerDay == 0 {
		c.SignupMaxPerIPPerDay = 5
	}
	if c.SignupCooldownSec == 0 {
		c.SignupCooldownSec = 10
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Zagreb"
	}
	if c.DailyBonusPoints == 0 {
		c.DailyBonusPoints = 10
	}
	if c.WeeklyBonusPoints == 0 {
		c.WeeklyBonusPoints = 20
	}
	if c.WeeklyPenaltyPoints == 0 {
		c.WeeklyPenaltyPoints = 30
	}
	if c.WeeklyWorkoutTarget == 0 {
		c.WeeklyWorkoutTarget = 3
	}
	if c.WorkoutTypeName == "" {
		c.WorkoutTypeName = "Trening"
	}
	if c.DailyCloseCron == "" {
		c.DailyCloseCron = "10 2 * * *"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("ENVIRONMENT", ""); v != "" {
		c.Environment = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("SESSION_TTL_SECONDS", ""); v != "" {
		c.SessionTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("TLS_CERT_FILE", ""); v != "" {
		c.TLSCertFile = v
	}
	if v := getEnv("TLS_KEY_FILE", ""); v != "" {
		c.TLSKeyFile = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("DB_SSLMODE", ""); v != "" {
		c.DBSSLMode = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("SIGNUP_MAX_PER_IP_PER_DAY", ""); v != "" {
		c.SignupMaxPerIPPerDay = mustParseInt(v)
	}
	if v := getEnv("SIGNUP_COOLDOWN_SEC", ""); v != "" {
		c.SignupCooldownSec = mustParseInt(v)
	}
	if v := getEnv("TIMEZONE", ""); v != "" {
		c.Timezone = v
	}
	if v := getEnv("DAILY_BONUS_POINTS", ""); v != "" {
		c.DailyBonusPoints = mustParseInt(v)
	}
	if v := getEnv("WEEKLY_BONUS_POINTS", ""); v != "" {
		c.WeeklyBonusPoints = mustParseInt(v)
	}
	if v := getEnv("WEEKLY_PENALTY_POINTS", ""); v != "" {
		c.WeeklyPenaltyPoints = mustParseInt(v)
	}
	if v := getEnv("WEEKLY_WORKOUT_TARGET", ""); v != "" {
		c.WeeklyWorkoutTarget = mustParseInt(v)
	}
	if v := getEnv("WORKOUT_TYPE_NAME", ""); v != "" {
		c.WorkoutTypeName = v
	}
	if v := getEnv("DAILY_CLOSE_CRON", ""); v != "" {
		c.DailyCloseCron = v
	}
}

// IsProduction reports whether the app runs in production mode (controls the Secure cookie flag).
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
