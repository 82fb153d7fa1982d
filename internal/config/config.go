package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/Trungnc273/ebay-be/pkg/config"
	"github.com/Trungnc273/ebay-be/pkg/database"
	"github.com/Trungnc273/ebay-be/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Crypto    CryptoConfig
	Auth      AuthConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string `mapstructure:"db_name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type CryptoConfig struct {
	MasterKey string `mapstructure:"master_key"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ToDatabaseConfig adapts the service config to pkg/database.
func (c DatabaseConfig) ToDatabaseConfig() *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.DBName,
		SSLMode:         c.SSLMode,
		FilePath:        c.FilePath,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", "marketplace")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.file_path", "marketplace.db")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("crypto.master_key", "default_master_key_32chars_min_len!!")
	v.SetDefault("auth.jwt_secret", "dev_jwt_secret")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "chat-service")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.db_name", "DB_NAME")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("crypto.master_key", "MASTER_KEY")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.TTL = parseDuration(v, "cache.ttl", 30*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
