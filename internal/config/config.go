package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Quiz      QuizConfig
	Admin     AdminConfig
	WebSocket WebSocketConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки авторитетного хранилища
type DatabaseConfig struct {
	// Driver: "postgres" или "memory" (хранилище в памяти процесса для разработки)
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	Migrations   string `mapstructure:"migrations"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Enabled: без Redis кеш и счетчики работают в памяти процесса
	Enabled bool `mapstructure:"enabled"`

	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: адрес для режима 'single', если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// QuizConfig содержит настройки движка викторин
type QuizConfig struct {
	JoinRateLimit           int           `mapstructure:"join_rate_limit"`
	JoinRateWindow          time.Duration `mapstructure:"join_rate_window"`
	MetadataCacheTTL        time.Duration `mapstructure:"metadata_cache_ttl"`
	LockRegistryMaxEntries  int           `mapstructure:"lock_registry_max_entries"`
	LockRegistryKeep        int           `mapstructure:"lock_registry_keep"`
	LockSweepInterval       time.Duration `mapstructure:"lock_sweep_interval"`
	LeaderboardLimit        int           `mapstructure:"leaderboard_limit"`
	StatsActiveWindow       time.Duration `mapstructure:"stats_active_window"`
	StatsRetention          time.Duration `mapstructure:"stats_retention"`
	StoreTimeout            time.Duration `mapstructure:"store_timeout"`
	DefaultParticipantLimit int           `mapstructure:"default_participant_limit"`
}

// AdminConfig содержит токен административных маршрутов
type AdminConfig struct {
	Token string
}

// WebSocketConfig содержит настройки комнат викторин
type WebSocketConfig struct {
	MaxClientsPerRoom int `mapstructure:"max_clients_per_room"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PostgresURL формирует URL подключения для golang-migrate
func (d *DatabaseConfig) PostgresURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 10)
	vip.SetDefault("server.write_timeout", 10)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	vip.SetDefault("database.driver", "postgres")
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.max_open_conns", 50)
	vip.SetDefault("database.max_idle_conns", 10)
	vip.SetDefault("database.migrations", "migrations")

	vip.SetDefault("redis.mode", "single")

	vip.SetDefault("quiz.join_rate_limit", 50)
	vip.SetDefault("quiz.join_rate_window", 60*time.Second)
	vip.SetDefault("quiz.metadata_cache_ttl", 300*time.Second)
	vip.SetDefault("quiz.lock_registry_max_entries", 1000)
	vip.SetDefault("quiz.lock_registry_keep", 500)
	vip.SetDefault("quiz.lock_sweep_interval", time.Minute)
	vip.SetDefault("quiz.leaderboard_limit", 50)
	vip.SetDefault("quiz.stats_active_window", 5*time.Minute)
	vip.SetDefault("quiz.stats_retention", time.Hour)
	vip.SetDefault("quiz.store_timeout", 800*time.Millisecond)
	vip.SetDefault("quiz.default_participant_limit", 100)

	vip.SetDefault("websocket.max_clients_per_room", 5000)
}

func bindEnv(vip *viper.Viper) {
	// Database
	vip.BindEnv("database.driver", "DATABASE_DRIVER")
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Redis
	vip.BindEnv("redis.enabled", "REDIS_ENABLED")
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Quiz
	vip.BindEnv("quiz.join_rate_limit", "QUIZ_JOIN_RATE_LIMIT")
	vip.BindEnv("quiz.store_timeout", "QUIZ_STORE_TIMEOUT")
	vip.BindEnv("quiz.default_participant_limit", "QUIZ_DEFAULT_PARTICIPANT_LIMIT")

	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("admin.token", "ADMIN_TOKEN")
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New()

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Отсутствие файла не фатально: остаются env и умолчания
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				log.Printf("[Config] Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("[Config] WARNING: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Driver: %s", cfg.Database.Driver)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Enabled: %t (mode %s)", cfg.Redis.Enabled, cfg.Redis.Mode)
		log.Printf("Join Rate Limit: %d per %s", cfg.Quiz.JoinRateLimit, cfg.Quiz.JoinRateWindow)
		log.Printf("Store Timeout: %s", cfg.Quiz.StoreTimeout)
		log.Printf("Admin Token Set: %t", cfg.Admin.Token != "")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры и границы значений
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
			return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
		}
	default:
		return fmt.Errorf("unknown database driver %q (expected postgres or memory)", c.Database.Driver)
	}

	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case "single", "sentinel", "cluster":
		default:
			return fmt.Errorf("unknown redis mode %q", c.Redis.Mode)
		}
		if len(c.Redis.Addrs) == 0 && c.Redis.Addr == "" {
			return fmt.Errorf("redis is enabled but no address is configured (check REDIS_ADDR or REDIS_ADDRS)")
		}
		if c.Redis.Mode == "sentinel" && c.Redis.MasterName == "" {
			return fmt.Errorf("redis sentinel mode requires master_name")
		}
	}

	q := c.Quiz
	switch {
	case q.JoinRateLimit <= 0 || q.JoinRateWindow <= 0:
		return fmt.Errorf("quiz.join_rate_limit and quiz.join_rate_window must be positive")
	case q.MetadataCacheTTL <= 0:
		return fmt.Errorf("quiz.metadata_cache_ttl must be positive")
	case q.LockRegistryKeep <= 0 || q.LockRegistryKeep > q.LockRegistryMaxEntries:
		return fmt.Errorf("quiz.lock_registry_keep must be in 1..lock_registry_max_entries")
	case q.LockSweepInterval <= 0:
		return fmt.Errorf("quiz.lock_sweep_interval must be positive")
	case q.LeaderboardLimit <= 0:
		return fmt.Errorf("quiz.leaderboard_limit must be positive")
	case q.StatsActiveWindow <= 0 || q.StatsRetention < q.StatsActiveWindow:
		return fmt.Errorf("quiz.stats_retention must cover quiz.stats_active_window")
	case q.StoreTimeout <= 0:
		return fmt.Errorf("quiz.store_timeout must be positive")
	case q.DefaultParticipantLimit <= 0:
		return fmt.Errorf("quiz.default_participant_limit must be positive")
	}

	if c.Admin.Token == "" {
		log.Println("[Config] WARNING: admin.token is not set, admin endpoints are disabled")
	}
	return nil
}
