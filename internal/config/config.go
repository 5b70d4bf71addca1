package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the hub server.
type Config struct {
	AppName      string
	AppEnv       string
	ListenAddr   string
	MetricsAddr  string
	DatabaseURL  string
	RedisURL     string
	NATSURL      string
	RelayChannel string
	VideoBaseURL string
	MaxConns     int64
	ReadTimeout  time.Duration
	AutoMigrate  bool
}

// Load reads configuration values from environment variables and an optional
// .env file. Only the database URL is mandatory; redis and NATS relays stay
// off when their URLs are empty.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "perentalassist-hub")
	v.SetDefault("app.env", "development")
	v.SetDefault("listen.addr", ":5555")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("relay.channel", "pa-hub")
	v.SetDefault("video.base_url", "https://meet.jit.si/")
	v.SetDefault("max_conns", 50)
	v.SetDefault("read_timeout", "15m")
	v.SetDefault("auto_migrate", true)

	timeoutString := v.GetString("read_timeout")
	readTimeout, err := time.ParseDuration(timeoutString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid read timeout %q: %w", timeoutString, err)
	}

	cfg := Config{
		AppName:      v.GetString("app.name"),
		AppEnv:       v.GetString("app.env"),
		ListenAddr:   v.GetString("listen.addr"),
		MetricsAddr:  v.GetString("metrics.addr"),
		DatabaseURL:  v.GetString("database.url"),
		RedisURL:     v.GetString("redis.url"),
		NATSURL:      v.GetString("nats.url"),
		RelayChannel: v.GetString("relay.channel"),
		VideoBaseURL: v.GetString("video.base_url"),
		MaxConns:     v.GetInt64("max_conns"),
		ReadTimeout:  readTimeout,
		AutoMigrate:  v.GetBool("auto_migrate"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 50
	}

	return cfg, nil
}
