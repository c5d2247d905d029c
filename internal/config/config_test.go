package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempConfig(t, `
live_feed:
  base_url: "https://feed.example.com/v1"
  poll_interval: 30s

monitor:
  leagues:
    - LCK
    - LEC
  max_tips_per_window: 2
  method: model

prediction:
  model_weight: 0.7
  algorithmic_weight: 0.3

draft:
  champion_winrates:
    jinx: 0.53

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  db_path: "./data/test.db"

logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LiveFeed.PollInterval != 30*time.Second {
		t.Errorf("Unexpected poll interval: %v", cfg.LiveFeed.PollInterval)
	}
	if len(cfg.Monitor.Leagues) != 2 {
		t.Errorf("Expected 2 leagues, got %d", len(cfg.Monitor.Leagues))
	}
	if cfg.Monitor.MaxTipsPerWindow != 2 {
		t.Errorf("Unexpected max tips per window: %d", cfg.Monitor.MaxTipsPerWindow)
	}
	if cfg.Prediction.ModelWeight != 0.7 {
		t.Errorf("Unexpected model weight: %f", cfg.Prediction.ModelWeight)
	}
	if cfg.Draft.ChampionWinrates["jinx"] != 0.53 {
		t.Errorf("Unexpected champion winrates: %v", cfg.Draft.ChampionWinrates)
	}

	// defaults
	if cfg.Monitor.TipRetention != 20*time.Minute {
		t.Errorf("Unexpected tip retention default: %v", cfg.Monitor.TipRetention)
	}
	if cfg.Validator.TipWindow != 2*time.Minute {
		t.Errorf("Unexpected tip window default: %v", cfg.Validator.TipWindow)
	}
	if cfg.LiveFeed.BreakerFailures != 5 {
		t.Errorf("Unexpected breaker failures default: %d", cfg.LiveFeed.BreakerFailures)
	}
	if cfg.Odds.KeyPrefix != "odds:current:" {
		t.Errorf("Unexpected odds key prefix default: %q", cfg.Odds.KeyPrefix)
	}
	if cfg.Maintenance.Schedule != "@every 10m" {
		t.Errorf("Unexpected maintenance schedule default: %q", cfg.Maintenance.Schedule)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeTempConfig(t, `
live_feed:
  base_url: "https://feed.example.com/v1"
telegram:
  enabled: true
  chat_id: "1"
`)
	t.Setenv("MOBATIPS_TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("MOBATIPS_MONITOR_MAX_TIPS_PER_WINDOW", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Errorf("BotToken = %q, want from-env", cfg.Telegram.BotToken)
	}
	if cfg.Monitor.MaxTipsPerWindow != 5 {
		t.Errorf("MaxTipsPerWindow = %d, want 5", cfg.Monitor.MaxTipsPerWindow)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func validConfig() *Config {
	return &Config{
		LiveFeed: LiveFeedConfig{
			BaseURL:      "https://feed.example.com",
			PollInterval: 45 * time.Second,
			Timeout:      10 * time.Second,
		},
		Odds: OddsConfig{RedisAddr: "localhost:6379"},
		Monitor: MonitorConfig{
			MinGameTime:      time.Minute,
			MaxGameTime:      10 * time.Minute,
			MinDataQuality:   0.5,
			MaxTipsPerWindow: 3,
			RateWindow:       time.Hour,
			TipRetention:     20 * time.Minute,
			Method:           "hybrid",
			OddsConcurrency:  4,
		},
		Prediction: PredictionConfig{ModelWeight: 0.6, AlgorithmicWeight: 0.4},
		Validator: ValidatorConfig{
			MinStrength:      0.15,
			CompositionBonus: 0.05,
			StrengthFloor:    0.08,
			MinEVPercent:     5,
			MinOdds:          1.01,
			MaxOdds:          50,
			TipWindow:        2 * time.Minute,
			MaxUnits:         3,
		},
		Telegram:    TelegramConfig{Enabled: true, BotToken: "token", ChatID: "1"},
		Storage:     StorageConfig{MaxTips: 100},
		Maintenance: MaintenanceConfig{Schedule: "@every 10m"},
		Logging:     LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing base url", func(c *Config) { c.LiveFeed.BaseURL = "" }, true},
		{"poll interval too short", func(c *Config) { c.LiveFeed.PollInterval = time.Second }, true},
		{"missing telegram token when enabled", func(c *Config) { c.Telegram.BotToken = "" }, true},
		{"no delivery sink", func(c *Config) { c.Telegram.Enabled = false }, true},
		{"kafka without brokers", func(c *Config) { c.Kafka = KafkaConfig{Enabled: true, Topic: "tips"} }, true},
		{"kafka only", func(c *Config) {
			c.Telegram.Enabled = false
			c.Kafka = KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "tips"}
		}, false},
		{"weights do not sum to one", func(c *Config) { c.Prediction.ModelWeight = 0.7 }, true},
		{"negative weight", func(c *Config) { c.Prediction = PredictionConfig{ModelWeight: 1.2, AlgorithmicWeight: -0.2} }, true},
		{"unknown method", func(c *Config) { c.Monitor.Method = "neural" }, true},
		{"max game time below min", func(c *Config) { c.Monitor.MaxGameTime = 30 * time.Second }, true},
		{"unbounded max game time", func(c *Config) { c.Monitor.MaxGameTime = 0 }, false},
		{"zero rate limit", func(c *Config) { c.Monitor.MaxTipsPerWindow = 0 }, true},
		{"data quality above one", func(c *Config) { c.Monitor.MinDataQuality = 1.5 }, true},
		{"floor above min strength", func(c *Config) { c.Validator.StrengthFloor = 0.2 }, true},
		{"inverted odds range", func(c *Config) { c.Validator.MaxOdds = 1.0 }, true},
		{"bad champion winrate", func(c *Config) { c.Draft.ChampionWinrates = map[string]float64{"jinx": 53} }, true},
		{"bad schedule", func(c *Config) { c.Maintenance.Schedule = "every so often" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"metrics without addr", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
