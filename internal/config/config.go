package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type PricingConfig struct {
	Env           string `yaml:"env" env-default:"local"`
	LogConfig     `yaml:"log_config"`
	PricingDB     `yaml:"pricing_db"`
	KafkaService  `yaml:"kafka-service"`
	MetricsServer `yaml:"metrics_server"`

	Providers   ProvidersConfig   `yaml:"providers"`
	Cache       CacheConfig       `yaml:"cache"`
	Pairs       []PairConfig      `yaml:"pairs"`
	CrossPairs  []CrossPairConfig `yaml:"cross_pairs"`
	Locks       LocksConfig       `yaml:"locks"`
	Limits      LimitsConfig      `yaml:"limits"`
	Distributor DistributorConfig `yaml:"distributor"`
	FeedClient  FeedClientConfig  `yaml:"feed_client"`
}

type LogConfig struct {
	LogLevel   string `yaml:"log_level" env-default:"info"`
	LogFormat  string `yaml:"log_format" env-default:"json"`
	LogOutput  string `yaml:"log_output" env-default:"stdout"`
	MaxSizeMB  int    `yaml:"max_size_mb" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env-default:"5"`
}

type PricingDB struct {
	Dsn string `yaml:"dsn"`
	// MigrationsPath switches schema management from gorm auto-migration to
	// versioned SQL migrations when set.
	MigrationsPath string `yaml:"migrations_path"`
}

type KafkaService struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	RateTopic string `yaml:"rate_topic" env-default:"rate-events"`
}

type MetricsServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env-default:"9201"`
}

type ProvidersConfig struct {
	Timeout          time.Duration `yaml:"timeout" env-default:"8s"`
	PrimaryBaseURL   string        `yaml:"primary_base_url" env-default:"https://dolarapi.com"`
	SecondaryBaseURL string        `yaml:"secondary_base_url" env-default:"https://api.bluelytics.com.ar"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" env-default:"30s"`
	// MinRefreshInterval dedupes force-refresh storms: a refresh requested
	// within this window of the last update is a no-op.
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval" env-default:"5s"`
	MaxQuoteAge        time.Duration `yaml:"max_quote_age" env-default:"5m"`
}

type PairConfig struct {
	Pair           string  `yaml:"pair"`
	BaseCurrency   string  `yaml:"base_currency"`
	TargetCurrency string  `yaml:"target_currency"`
	Symbol         string  `yaml:"symbol"`
	SellAdjustment float64 `yaml:"sell_adjustment"`
	BuyAdjustment  float64 `yaml:"buy_adjustment"`
	CommissionRate float64 `yaml:"commission_rate"`
}

// CrossPairConfig derives a synthetic pair from two primary pairs sharing a
// currency: sell = rate_leg.sell / base_leg.sell, same for buy.
type CrossPairConfig struct {
	Pair           string  `yaml:"pair"`
	BaseCurrency   string  `yaml:"base_currency"`
	TargetCurrency string  `yaml:"target_currency"`
	RateLeg        string  `yaml:"rate_leg"`
	BaseLeg        string  `yaml:"base_leg"`
	CommissionRate float64 `yaml:"commission_rate"`
}

type LocksConfig struct {
	TTL           time.Duration `yaml:"ttl" env-default:"15m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1m"`
	// AmountTolerance is the relative mismatch allowed between the locked
	// amount and the redeemed amount.
	AmountTolerance float64 `yaml:"amount_tolerance" env-default:"0.01"`
}

type LimitsConfig struct {
	MinTransactionUSD      float64 `yaml:"min_transaction_usd" env-default:"5"`
	MaxTransactionUSD      float64 `yaml:"max_transaction_usd" env-default:"10000"`
	MonthlyCeilingUSD      float64 `yaml:"monthly_ceiling_usd" env-default:"50000"`
	DailyTransactionLimit  int     `yaml:"daily_transaction_limit" env-default:"10"`
	MonthlyWarningFraction float64 `yaml:"monthly_warning_fraction" env-default:"0.8"`
	// USDApproximations converts non-USD volumes with fixed constants.
	// Limit enforcement does not need rate-exact precision.
	USDApproximations map[string]float64 `yaml:"usd_approximations"`
}

type DistributorConfig struct {
	UpdateInterval    time.Duration `yaml:"update_interval" env-default:"30s"`
	GlobalInterval    time.Duration `yaml:"global_interval" env-default:"30s"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env-default:"15s"`
	SubscriberBuffer  int           `yaml:"subscriber_buffer" env-default:"16"`
}

type FeedClientConfig struct {
	BackoffBase  time.Duration `yaml:"backoff_base" env-default:"1s"`
	MaxAttempts  int           `yaml:"max_attempts" env-default:"5"`
	PollInterval time.Duration `yaml:"poll_interval" env-default:"30s"`
}

func MustLoad() *PricingConfig {
	configPath := os.Getenv("PRICING_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("PRICING_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	var cfg PricingConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}
