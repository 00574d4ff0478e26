package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	JWTSecret           string
	JWTRefreshSecret    string
	PythonBin           string
	GoBin               string
	RunTimeout          time.Duration
	TimedWindow         time.Duration
	StoredOutputLimit   int
	DisplayOutputLimit  int
	LeaderboardCacheTTL time.Duration
	RedactionRetention  time.Duration
	RedactionInterval   time.Duration
	AIProvider          string
	OpenAIAPIKey        string
	AnthropicAPIKey     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DOJO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "DOJO API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("runner.python_bin", "python3")
	v.SetDefault("runner.go_bin", "go")
	v.SetDefault("runner.timeout", "10s")
	v.SetDefault("timed.window", "10m")
	v.SetDefault("output.stored_limit", 5000)
	v.SetDefault("output.display_limit", 2000)
	v.SetDefault("leaderboard.cache_ttl", "1m")
	v.SetDefault("redaction.retention", "168h")
	v.SetDefault("redaction.interval", "1h")
	v.SetDefault("ai.provider", "openai")

	parseDuration := func(key string) (time.Duration, error) {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return parsed, nil
	}

	runTimeout, err := parseDuration("runner.timeout")
	if err != nil {
		return Config{}, err
	}
	timedWindow, err := parseDuration("timed.window")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration("leaderboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	retention, err := parseDuration("redaction.retention")
	if err != nil {
		return Config{}, err
	}
	interval, err := parseDuration("redaction.interval")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		JWTRefreshSecret:    v.GetString("jwt.refresh_secret"),
		PythonBin:           v.GetString("runner.python_bin"),
		GoBin:               v.GetString("runner.go_bin"),
		RunTimeout:          runTimeout,
		TimedWindow:         timedWindow,
		StoredOutputLimit:   v.GetInt("output.stored_limit"),
		DisplayOutputLimit:  v.GetInt("output.display_limit"),
		LeaderboardCacheTTL: cacheTTL,
		RedactionRetention:  retention,
		RedactionInterval:   interval,
		AIProvider:          strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		AnthropicAPIKey:     v.GetString("anthropic_api_key"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.StoredOutputLimit <= 0 {
		cfg.StoredOutputLimit = 5000
	}

	if cfg.DisplayOutputLimit <= 0 {
		cfg.DisplayOutputLimit = 2000
	}

	return cfg, nil
}
