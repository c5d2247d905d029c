package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/rewired-gh/mobatips/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	LiveFeed    LiveFeedConfig    `mapstructure:"live_feed"`
	Odds        OddsConfig        `mapstructure:"odds"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Prediction  PredictionConfig  `mapstructure:"prediction"`
	Validator   ValidatorConfig   `mapstructure:"validator"`
	Draft       DraftConfig       `mapstructure:"draft"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// LiveFeedConfig holds the live match API configuration
type LiveFeedConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

// OddsConfig holds the Redis odds cache configuration
type OddsConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// MonitorConfig holds scan loop behavior configuration
type MonitorConfig struct {
	Leagues              []string      `mapstructure:"leagues"`
	MinGameTime          time.Duration `mapstructure:"min_game_time"`
	MaxGameTime          time.Duration `mapstructure:"max_game_time"`
	MinDataQuality       float64       `mapstructure:"min_data_quality"`
	RequireCompleteDraft bool          `mapstructure:"require_complete_draft"`
	MaxTipsPerWindow     int           `mapstructure:"max_tips_per_window"`
	RateWindow           time.Duration `mapstructure:"rate_window"`
	TipRetention         time.Duration `mapstructure:"tip_retention"`
	EvictionGrace        time.Duration `mapstructure:"eviction_grace"`
	DedupRetention       time.Duration `mapstructure:"dedup_retention"` // 0 = process lifetime
	PredictionCacheTTL   time.Duration `mapstructure:"prediction_cache_ttl"`
	Method               string        `mapstructure:"method"`
	OddsConcurrency      int           `mapstructure:"odds_concurrency"`
}

// PredictionConfig holds the hybrid blend weights
type PredictionConfig struct {
	ModelWeight       float64 `mapstructure:"model_weight"`
	AlgorithmicWeight float64 `mapstructure:"algorithmic_weight"`
}

// ValidatorConfig holds tip acceptance thresholds
type ValidatorConfig struct {
	MinStrength      float64       `mapstructure:"min_strength"`
	CompositionBonus float64       `mapstructure:"composition_bonus"`
	StrengthFloor    float64       `mapstructure:"strength_floor"`
	MinEVPercent     float64       `mapstructure:"min_ev_percent"`
	MinOdds          float64       `mapstructure:"min_odds"`
	MaxOdds          float64       `mapstructure:"max_odds"`
	TipWindow        time.Duration `mapstructure:"tip_window"`
	MaxUnits         float64       `mapstructure:"max_units"`
}

// DraftConfig overrides built-in champion winrates
type DraftConfig struct {
	ChampionWinrates map[string]float64 `mapstructure:"champion_winrates"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// KafkaConfig holds the tip topic configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	MaxTips int    `mapstructure:"max_tips"`
	DBPath  string `mapstructure:"db_path"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// MaintenanceConfig holds the cron schedule for cache cleanup and log rotation
type MaintenanceConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// MOBATIPS_TELEGRAM_BOT_TOKEN overrides telegram.bot_token
	v.SetEnvPrefix("MOBATIPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// keys without a default cannot be set from the environment alone
	v.SetDefault("live_feed.base_url", "")
	v.SetDefault("live_feed.api_key", "")
	v.SetDefault("live_feed.poll_interval", "45s")
	v.SetDefault("live_feed.timeout", "10s")
	v.SetDefault("live_feed.requests_per_minute", 30)
	v.SetDefault("live_feed.breaker_failures", 5)
	v.SetDefault("live_feed.breaker_timeout", "2m")

	v.SetDefault("odds.redis_addr", "localhost:6379")
	v.SetDefault("odds.redis_password", "")
	v.SetDefault("odds.redis_db", 0)
	v.SetDefault("odds.key_prefix", "odds:current:")
	v.SetDefault("odds.max_age", "2m")
	v.SetDefault("odds.timeout", "2s")

	v.SetDefault("monitor.leagues", []string{"LCK", "LPL", "LEC", "LCS"})
	v.SetDefault("monitor.min_game_time", "1m")
	v.SetDefault("monitor.max_game_time", "10m")
	v.SetDefault("monitor.min_data_quality", 0.5)
	v.SetDefault("monitor.require_complete_draft", false)
	v.SetDefault("monitor.max_tips_per_window", 3)
	v.SetDefault("monitor.rate_window", "1h")
	v.SetDefault("monitor.tip_retention", "20m")
	v.SetDefault("monitor.eviction_grace", "10m")
	v.SetDefault("monitor.dedup_retention", "0s")
	v.SetDefault("monitor.prediction_cache_ttl", "5m")
	v.SetDefault("monitor.method", "hybrid")
	v.SetDefault("monitor.odds_concurrency", 4)

	v.SetDefault("prediction.model_weight", 0.6)
	v.SetDefault("prediction.algorithmic_weight", 0.4)

	v.SetDefault("validator.min_strength", 0.15)
	v.SetDefault("validator.composition_bonus", 0.05)
	v.SetDefault("validator.strength_floor", 0.08)
	v.SetDefault("validator.min_ev_percent", 5.0)
	v.SetDefault("validator.min_odds", 1.01)
	v.SetDefault("validator.max_odds", 50.0)
	v.SetDefault("validator.tip_window", "2m")
	v.SetDefault("validator.max_units", 3.0)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "mobatips.tips")

	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.max_tips", 5000)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9108")

	v.SetDefault("maintenance.schedule", "@every 10m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.LiveFeed.BaseURL == "" {
		return fmt.Errorf("live_feed.base_url is required")
	}
	if c.LiveFeed.PollInterval < 10*time.Second {
		return fmt.Errorf("live_feed.poll_interval must be at least 10 seconds")
	}
	if c.LiveFeed.Timeout <= 0 {
		return fmt.Errorf("live_feed.timeout must be positive")
	}
	if c.LiveFeed.RequestsPerMinute < 0 {
		return fmt.Errorf("live_feed.requests_per_minute must not be negative")
	}

	if c.Odds.RedisAddr == "" {
		return fmt.Errorf("odds.redis_addr is required")
	}
	if c.Odds.MaxAge < 0 {
		return fmt.Errorf("odds.max_age must not be negative")
	}

	m := c.Monitor
	if m.MinGameTime < 0 {
		return fmt.Errorf("monitor.min_game_time must not be negative")
	}
	if m.MaxGameTime != 0 && m.MaxGameTime < m.MinGameTime {
		return fmt.Errorf("monitor.max_game_time must not be less than monitor.min_game_time")
	}
	if m.MinDataQuality < 0 || m.MinDataQuality > 1 {
		return fmt.Errorf("monitor.min_data_quality must be between 0.0 and 1.0")
	}
	if m.MaxTipsPerWindow < 1 {
		return fmt.Errorf("monitor.max_tips_per_window must be at least 1")
	}
	if m.RateWindow < time.Minute {
		return fmt.Errorf("monitor.rate_window must be at least 1 minute")
	}
	if m.TipRetention < time.Minute {
		return fmt.Errorf("monitor.tip_retention must be at least 1 minute")
	}
	if m.EvictionGrace < 0 || m.DedupRetention < 0 || m.PredictionCacheTTL < 0 {
		return fmt.Errorf("monitor durations must not be negative")
	}
	if _, err := models.ParsePredictionMethod(m.Method); err != nil {
		return fmt.Errorf("monitor.method: %w", err)
	}
	if m.OddsConcurrency < 1 {
		return fmt.Errorf("monitor.odds_concurrency must be at least 1")
	}

	p := c.Prediction
	if p.ModelWeight < 0 || p.AlgorithmicWeight < 0 {
		return fmt.Errorf("prediction weights must not be negative")
	}
	if math.Abs(p.ModelWeight+p.AlgorithmicWeight-1) > 1e-6 {
		return fmt.Errorf("prediction.model_weight and prediction.algorithmic_weight must sum to 1")
	}

	vc := c.Validator
	if vc.MinStrength < 0 || vc.MinStrength > 1 {
		return fmt.Errorf("validator.min_strength must be between 0.0 and 1.0")
	}
	if vc.CompositionBonus < 0 {
		return fmt.Errorf("validator.composition_bonus must not be negative")
	}
	if vc.StrengthFloor < 0 || vc.StrengthFloor > vc.MinStrength {
		return fmt.Errorf("validator.strength_floor must be between 0.0 and validator.min_strength")
	}
	if vc.MinOdds < 1 || vc.MaxOdds <= vc.MinOdds {
		return fmt.Errorf("validator odds range must satisfy 1 <= min_odds < max_odds")
	}
	if vc.TipWindow < 0 {
		return fmt.Errorf("validator.tip_window must not be negative")
	}
	if vc.MaxUnits <= 0 {
		return fmt.Errorf("validator.max_units must be positive")
	}

	for champ, wr := range c.Draft.ChampionWinrates {
		if wr <= 0 || wr >= 1 {
			return fmt.Errorf("draft.champion_winrates[%s] must be between 0 and 1", champ)
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}

	if !c.Telegram.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("at least one of telegram or kafka must be enabled")
	}

	if c.Storage.MaxTips < 1 {
		return fmt.Errorf("storage.max_tips must be at least 1")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	if _, err := cron.ParseStandard(c.Maintenance.Schedule); err != nil {
		return fmt.Errorf("maintenance.schedule is invalid: %w", err)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
