package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Venue     VenueConfig     `mapstructure:"venue"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Estimator EstimatorConfig `mapstructure:"estimator"`
	Debate    DebateConfig    `mapstructure:"debate"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ScanCycle       string `mapstructure:"scan_cycle"`
	ResolutionCheck string `mapstructure:"resolution_check"`
	DayRollover     string `mapstructure:"day_rollover"`
}

type VenueConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	StreamURL      string        `mapstructure:"stream_url"`
	StreamEnabled  bool          `mapstructure:"stream_enabled"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	RequestBurst   int           `mapstructure:"request_burst"`
}

type ScannerConfig struct {
	PageLimit         int     `mapstructure:"page_limit"`
	MaxPages          int     `mapstructure:"max_pages"`
	MinVolume24h      int64   `mapstructure:"min_volume_24h"`
	MaxDaysToExpiry   int     `mapstructure:"max_days_to_expiry"`
	MaxSpread         float64 `mapstructure:"max_spread"`
	MaxConcurrent     int     `mapstructure:"max_concurrent_markets"`
	MaxMarketsPerScan int     `mapstructure:"max_markets_per_scan"`
}

type EstimatorConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"`
	Research ResearchConfig `mapstructure:"research"`
}

// ResearchConfig points the research desk at an OpenAI-compatible
// completion endpoint. The desk is skipped when the endpoint is empty.
type ResearchConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKeyEnv      string        `mapstructure:"api_key_env"`
	Model          string        `mapstructure:"model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
}

type DebateConfig struct {
	DivergenceThreshold float64       `mapstructure:"divergence_threshold"`
	ConvergenceBand     float64       `mapstructure:"convergence_band"`
	MaxRounds           int           `mapstructure:"max_rounds"`
	RoundTimeout        time.Duration `mapstructure:"round_timeout"`
	ModeratorPolicy     string        `mapstructure:"moderator_policy"`
}

type RiskConfig struct {
	Bankroll                   float64 `mapstructure:"bankroll"`
	MinEdgeThreshold           float64 `mapstructure:"min_edge_threshold"`
	MaxPositionFraction        float64 `mapstructure:"max_position_fraction"`
	MaxConcurrentPositions     int     `mapstructure:"max_concurrent_positions"`
	DailyDrawdownLimitFraction float64 `mapstructure:"daily_drawdown_limit_fraction"`
}

type ExecutorConfig struct {
	DryRun bool `mapstructure:"dry_run"`
}

// Hard safety rails. Config may tighten these but never loosen them.
const (
	MaxPositionFractionCeiling = 0.25
	MinNegotiationRounds       = 3
)

const (
	ModeratorPolicyConfidenceWeighted = "confidence-weighted"
	ModeratorPolicyConservative       = "conservative"
)

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.scan_cycle", "@every 6h")
	v.SetDefault("cron.resolution_check", "@every 1h")
	v.SetDefault("cron.day_rollover", "0 0 0 * * *")

	v.SetDefault("venue.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("venue.timeout", "15s")
	v.SetDefault("venue.stream_url", "")
	v.SetDefault("venue.stream_enabled", false)
	v.SetDefault("venue.requests_per_sec", 5.0)
	v.SetDefault("venue.request_burst", 10)

	v.SetDefault("scanner.page_limit", 100)
	v.SetDefault("scanner.max_pages", 5)
	v.SetDefault("scanner.min_volume_24h", 200)
	v.SetDefault("scanner.max_days_to_expiry", 30)
	v.SetDefault("scanner.max_spread", 0.15)
	v.SetDefault("scanner.max_concurrent_markets", 4)
	v.SetDefault("scanner.max_markets_per_scan", 50)

	v.SetDefault("estimator.timeout", "90s")
	v.SetDefault("estimator.research.endpoint", "")
	v.SetDefault("estimator.research.api_key_env", "PD_RESEARCH_API_KEY")
	v.SetDefault("estimator.research.model", "")
	v.SetDefault("estimator.research.timeout", "60s")
	v.SetDefault("estimator.research.requests_per_sec", 1.0)

	v.SetDefault("debate.divergence_threshold", 0.10)
	v.SetDefault("debate.convergence_band", 0.05)
	v.SetDefault("debate.max_rounds", 5)
	v.SetDefault("debate.round_timeout", "60s")
	v.SetDefault("debate.moderator_policy", ModeratorPolicyConfidenceWeighted)

	v.SetDefault("risk.bankroll", 10000)
	v.SetDefault("risk.min_edge_threshold", 0.05)
	v.SetDefault("risk.max_position_fraction", 0.05)
	v.SetDefault("risk.max_concurrent_positions", 15)
	v.SetDefault("risk.daily_drawdown_limit_fraction", 0.02)

	v.SetDefault("executor.dry_run", true)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configurations that could weaken the safety rails.
// It runs once at process start; a failure here is fatal by design of
// the caller, never at runtime.
func (c Config) Validate() error {
	if c.Risk.Bankroll <= 0 {
		return fmt.Errorf("risk.bankroll must be > 0, got %v", c.Risk.Bankroll)
	}
	for name, val := range map[string]float64{
		"risk.min_edge_threshold":            c.Risk.MinEdgeThreshold,
		"risk.max_position_fraction":         c.Risk.MaxPositionFraction,
		"risk.daily_drawdown_limit_fraction": c.Risk.DailyDrawdownLimitFraction,
		"debate.divergence_threshold":        c.Debate.DivergenceThreshold,
		"debate.convergence_band":            c.Debate.ConvergenceBand,
	} {
		if val < 0 || val > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, val)
		}
	}
	if c.Risk.MaxPositionFraction > MaxPositionFractionCeiling {
		return fmt.Errorf("risk.max_position_fraction %v exceeds hard ceiling %v",
			c.Risk.MaxPositionFraction, MaxPositionFractionCeiling)
	}
	if c.Risk.MaxConcurrentPositions <= 0 {
		return fmt.Errorf("risk.max_concurrent_positions must be > 0, got %d", c.Risk.MaxConcurrentPositions)
	}
	if c.Debate.MaxRounds < MinNegotiationRounds {
		return fmt.Errorf("debate.max_rounds must be >= %d, got %d", MinNegotiationRounds, c.Debate.MaxRounds)
	}
	switch c.Debate.ModeratorPolicy {
	case ModeratorPolicyConfidenceWeighted, ModeratorPolicyConservative:
	default:
		return fmt.Errorf("debate.moderator_policy must be %q or %q, got %q",
			ModeratorPolicyConfidenceWeighted, ModeratorPolicyConservative, c.Debate.ModeratorPolicy)
	}
	return nil
}
