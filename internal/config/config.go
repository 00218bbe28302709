package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Risk      RiskConfig      `yaml:"risk" mapstructure:"risk"`
	Tariff    TariffConfig    `yaml:"tariff" mapstructure:"tariff"`
	Suppliers SuppliersConfig `yaml:"suppliers" mapstructure:"suppliers"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnalysisConfig holds the build and strategy settings for one analysis run.
// Percentages are fractions (0.15 means 15%).
type AnalysisConfig struct {
	TotalUnits         int     `yaml:"total_units" mapstructure:"total_units" json:"total_units"`
	TargetLeadTimeDays int     `yaml:"target_lead_time_days" mapstructure:"target_lead_time_days" json:"target_lead_time_days"`
	MaxCostPremiumPct  float64 `yaml:"max_cost_premium_pct" mapstructure:"max_cost_premium_pct" json:"max_cost_premium_pct"`
	CostWeight         float64 `yaml:"cost_weight" mapstructure:"cost_weight" json:"cost_weight"`
	LeadTimeWeight     float64 `yaml:"lead_time_weight" mapstructure:"lead_time_weight" json:"lead_time_weight"`
	BuyUpThresholdPct  float64 `yaml:"buy_up_threshold_pct" mapstructure:"buy_up_threshold_pct" json:"buy_up_threshold_pct"`
	LifecyclePenalty   float64 `yaml:"lifecycle_penalty" mapstructure:"lifecycle_penalty" json:"lifecycle_penalty"`
	StockGapPenalty    float64 `yaml:"stock_gap_penalty" mapstructure:"stock_gap_penalty" json:"stock_gap_penalty"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency" json:"concurrency"`
}

// RiskConfig holds the risk scorer thresholds. Stock ratios are multiples of
// the required quantity.
type RiskConfig struct {
	StockTightRatio      float64            `yaml:"stock_tight_ratio" mapstructure:"stock_tight_ratio"`
	StockGapRatio        float64            `yaml:"stock_gap_ratio" mapstructure:"stock_gap_ratio"`
	LeadTimeHighDays     int                `yaml:"lead_time_high_days" mapstructure:"lead_time_high_days"`
	LeadTimeModerateDays int                `yaml:"lead_time_moderate_days" mapstructure:"lead_time_moderate_days"`
	UnknownCountryScore  float64            `yaml:"unknown_country_score" mapstructure:"unknown_country_score"`
	GeoScores            map[string]float64 `yaml:"geo_scores" mapstructure:"geo_scores"`
}

// TariffConfig holds duty rates (fractions) keyed by country.
type TariffConfig struct {
	Overrides    map[string]float64 `yaml:"overrides" mapstructure:"overrides"`
	Defaults     map[string]float64 `yaml:"defaults" mapstructure:"defaults"`
	FallbackRate float64            `yaml:"fallback_rate" mapstructure:"fallback_rate"`
}

// SuppliersConfig configures the supplier lookup collaborators.
type SuppliersConfig struct {
	Mouser      MouserConfig `yaml:"mouser" mapstructure:"mouser"`
	Nexar       NexarConfig  `yaml:"nexar" mapstructure:"nexar"`
	TimeoutSecs int          `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int          `yaml:"max_retries" mapstructure:"max_retries"`
}

// MouserConfig holds Mouser Search API settings.
type MouserConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// NexarConfig holds Nexar (Octopart) API credentials.
type NexarConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string  `yaml:"client_secret" mapstructure:"client_secret"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TokenURL     string  `yaml:"token_url" mapstructure:"token_url"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds settings for the narrative summary model.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultGeoScores is the geographic risk table by country of origin.
func DefaultGeoScores() map[string]float64 {
	return map[string]float64{
		"china": 7, "russia": 9, "taiwan": 5, "malaysia": 4, "vietnam": 4,
		"india": 5, "philippines": 4, "thailand": 4, "south korea": 3,
		"usa": 1, "united states": 1, "mexico": 2, "canada": 1, "japan": 1,
		"germany": 1, "france": 1, "uk": 1, "ireland": 1, "switzerland": 1, "eu": 1,
	}
}

// DefaultTariffRates is the built-in duty table.
func DefaultTariffRates() map[string]float64 {
	return map[string]float64{
		"china":  0.25,
		"russia": 0.25,
		"taiwan": 0.0,
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("analysis.total_units", 100)
	v.SetDefault("analysis.target_lead_time_days", 56)
	v.SetDefault("analysis.max_cost_premium_pct", 0.15)
	v.SetDefault("analysis.cost_weight", 0.5)
	v.SetDefault("analysis.lead_time_weight", 0.5)
	v.SetDefault("analysis.buy_up_threshold_pct", 0.01)
	v.SetDefault("analysis.lifecycle_penalty", 0.5)
	v.SetDefault("analysis.stock_gap_penalty", 0.1)
	v.SetDefault("analysis.concurrency", 6)
	v.SetDefault("risk.stock_tight_ratio", 1.5)
	v.SetDefault("risk.stock_gap_ratio", 1.0)
	v.SetDefault("risk.lead_time_high_days", 90)
	v.SetDefault("risk.lead_time_moderate_days", 45)
	v.SetDefault("risk.unknown_country_score", 4)
	v.SetDefault("risk.geo_scores", DefaultGeoScores())
	v.SetDefault("tariff.defaults", DefaultTariffRates())
	v.SetDefault("tariff.fallback_rate", 0.035)
	v.SetDefault("suppliers.timeout_secs", 20)
	v.SetDefault("suppliers.max_retries", 3)
	v.SetDefault("suppliers.mouser.base_url", "https://api.mouser.com")
	v.SetDefault("suppliers.mouser.rate_per_sec", 5)
	v.SetDefault("suppliers.nexar.base_url", "https://api.nexar.com/graphql")
	v.SetDefault("suppliers.nexar.token_url", "https://identity.nexar.com/connect/token")
	v.SetDefault("suppliers.nexar.rate_per_sec", 3)
	v.SetDefault("suppliers.mouser.key", "")
	v.SetDefault("suppliers.nexar.client_id", "")
	v.SetDefault("suppliers.nexar.client_secret", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1200)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	if v.IsSet("tariff.overrides") {
		v.Set("tariff.overrides", dropBlankRates(v.GetStringMap("tariff.overrides")))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// dropBlankRates removes null and blank-string entries so those countries
// fall back to the default table instead of decoding to a zero rate.
func dropBlankRates(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for country, rate := range raw {
		if rate == nil {
			continue
		}
		if s, ok := rate.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out[country] = rate
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
