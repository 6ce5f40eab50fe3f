package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnv                = "development"
	defaultInvestEndpoint     = "invest-public-api.tinkoff.ru:443"
	defaultInvestAppName      = "bondtrader"
	defaultHomeCurrency       = "rub"
	defaultRefreshInterval    = 3 * time.Hour
	defaultRetryDelay         = 30 * time.Second
	defaultCouponConcurrency  = 8
	defaultTelegramAPIURL     = "https://api.telegram.org"
	defaultTelegramTimeout    = 10 * time.Second
	defaultRedisDB            = 0
	defaultRedisKey           = "bondtrader:last_deal"
	defaultPurchasesExchange  = "bond_purchases"
	defaultJournalQueue       = "bond_purchases.journal"
	defaultPrefetch           = 16
	defaultBatchSize          = 50
	defaultBatchTimeout       = 2 * time.Second
	defaultHTTPHost           = "0.0.0.0"
	defaultHTTPPort           = 8080
	defaultLogLevel           = "info"
	defaultShutdownTimeout    = 5 * time.Second
	legacyRefreshIntervalUnit = time.Hour
)

// Config keeps the runtime configuration for the trader.
type Config struct {
	Env      string
	Invest   InvestConfig
	Strategy StrategyConfig
	Session  SessionConfig
	Telegram TelegramConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	HTTP     HTTPConfig
	Log      LogConfig
}

// InvestConfig holds T-Invest API connection settings.
type InvestConfig struct {
	Token         string
	Endpoint      string
	AppName       string
	AccountID     string
	SkipTLSVerify bool
}

// StrategyConfig holds the trading rules.
type StrategyConfig struct {
	FeePercent             float64
	DaysToMaturityMax      int
	AnnualYieldMin         float64
	AnnualYieldMax         float64
	BondSumMax             float64
	BondSumMaxSingle       float64
	HomeCurrency           string
	ExcludeUnspecifiedRisk bool
	StrictMaturityWindow   bool
	BlacklistTickers       []string
	DryRun                 bool
}

// SessionConfig controls the streaming session lifecycle.
type SessionConfig struct {
	RefreshInterval   time.Duration
	RetryDelay        time.Duration
	CouponConcurrency int
}

// TelegramConfig stores Bot API credentials. Empty token or chat disables delivery.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIURL   string
	Timeout  time.Duration
}

// Enabled reports whether notifications can be delivered.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// PostgresConfig stores database connection parameters. Empty DSN disables the journal.
type PostgresConfig struct {
	DSN string
}

// RedisConfig stores Redis connection parameters. Empty Addr selects the in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RabbitMQConfig stores broker connection parameters. Empty URL disables publishing.
type RabbitMQConfig struct {
	URL               string
	PurchasesExchange string
	JournalQueue      string
	Prefetch          int
	BatchSize         int
	BatchTimeout      time.Duration
}

// HTTPConfig holds HTTP server related settings. Port 0 disables the server.
type HTTPConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Addr renders the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// Enabled reports whether the status server should run.
func (h HTTPConfig) Enabled() bool {
	return h.Port > 0
}

// LogConfig controls logger output.
type LogConfig struct {
	Level string
	File  string
}

// Load builds Config from environment variables, reading .env first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds Config from the current process environment only.
func FromEnv() (*Config, error) {
	token := os.Getenv("INVEST_TOKEN")
	if token == "" {
		token = os.Getenv("TINVEST_TOKEN")
	}
	if token == "" {
		return nil, errors.New("INVEST_TOKEN is required")
	}
	skipTLS, err := getBool("INVEST_SKIP_TLS_VERIFY", false)
	if err != nil {
		return nil, err
	}

	strategy, err := loadStrategy()
	if err != nil {
		return nil, err
	}
	session, err := loadSession()
	if err != nil {
		return nil, err
	}

	telegramTimeout, err := getDuration("TELEGRAM_TIMEOUT", defaultTelegramTimeout)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, err
	}
	rabbit, err := loadRabbitMQ()
	if err != nil {
		return nil, err
	}
	port, err := getInt("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, err
	}
	if port < 0 {
		return nil, errors.New("HTTP_PORT must not be negative")
	}
	shutdownTimeout, err := getDuration("HTTP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		return nil, err
	}

	return &Config{
		Env: getString("APP_ENV", defaultEnv),
		Invest: InvestConfig{
			Token:         token,
			Endpoint:      getString("INVEST_ENDPOINT", defaultInvestEndpoint),
			AppName:       getString("INVEST_APP_NAME", defaultInvestAppName),
			AccountID:     os.Getenv("ACCOUNT_ID"),
			SkipTLSVerify: skipTLS,
		},
		Strategy: *strategy,
		Session:  *session,
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
			APIURL:   strings.TrimRight(getString("TELEGRAM_API_URL", defaultTelegramAPIURL), "/"),
			Timeout:  telegramTimeout,
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("DATABASE_DSN"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Key:      getString("REDIS_LAST_DEAL_KEY", defaultRedisKey),
		},
		RabbitMQ: *rabbit,
		HTTP: HTTPConfig{
			Host:            getString("HTTP_HOST", defaultHTTPHost),
			Port:            port,
			ShutdownTimeout: shutdownTimeout,
		},
		Log: LogConfig{
			Level: getString("LOG_LEVEL", defaultLogLevel),
			File:  os.Getenv("LOG_FILE"),
		},
	}, nil
}

func loadStrategy() (*StrategyConfig, error) {
	fee, err := requireFloat("FEE_PERCENT")
	if err != nil {
		return nil, err
	}
	days, err := requireInt("DAYS_TO_MATURITY_MAX")
	if err != nil {
		return nil, err
	}
	yieldMin, err := requireFloat("ANNUAL_YIELD_MIN")
	if err != nil {
		return nil, err
	}
	yieldMax, err := requireFloat("ANNUAL_YIELD_MAX")
	if err != nil {
		return nil, err
	}
	sumMax, err := requireFloat("BOND_SUM_MAX")
	if err != nil {
		return nil, err
	}
	sumMaxSingle, err := requireFloat("BOND_SUM_MAX_SINGLE")
	if err != nil {
		return nil, err
	}
	excludeUnspecified, err := getBool("EXCLUDE_UNSPECIFIED_RISK", true)
	if err != nil {
		return nil, err
	}
	strictWindow, err := getBool("STRICT_MATURITY_WINDOW", false)
	if err != nil {
		return nil, err
	}
	dryRun, err := getBool("DRY_RUN", false)
	if err != nil {
		return nil, err
	}

	switch {
	case fee < 0:
		return nil, errors.New("FEE_PERCENT must not be negative")
	case days < 0:
		return nil, errors.New("DAYS_TO_MATURITY_MAX must not be negative")
	case yieldMin > yieldMax:
		return nil, errors.New("ANNUAL_YIELD_MIN must not exceed ANNUAL_YIELD_MAX")
	case sumMax < 0 || sumMaxSingle < 0:
		return nil, errors.New("BOND_SUM_MAX and BOND_SUM_MAX_SINGLE must not be negative")
	}

	return &StrategyConfig{
		FeePercent:             fee,
		DaysToMaturityMax:      days,
		AnnualYieldMin:         yieldMin,
		AnnualYieldMax:         yieldMax,
		BondSumMax:             sumMax,
		BondSumMaxSingle:       sumMaxSingle,
		HomeCurrency:           strings.ToLower(getString("HOME_CURRENCY", defaultHomeCurrency)),
		ExcludeUnspecifiedRisk: excludeUnspecified,
		StrictMaturityWindow:   strictWindow,
		BlacklistTickers:       getList("BLACK_LIST_TICKERS"),
		DryRun:                 dryRun,
	}, nil
}

func loadSession() (*SessionConfig, error) {
	refresh, err := refreshInterval()
	if err != nil {
		return nil, err
	}
	if refresh <= 0 {
		return nil, errors.New("BOND_REFRESH_INTERVAL must be positive")
	}
	retry, err := getDuration("UNIVERSE_RETRY_DELAY", defaultRetryDelay)
	if err != nil {
		return nil, err
	}
	concurrency, err := getInt("COUPON_CONCURRENCY", defaultCouponConcurrency)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	return &SessionConfig{
		RefreshInterval:   refresh,
		RetryDelay:        retry,
		CouponConcurrency: concurrency,
	}, nil
}

func loadRabbitMQ() (*RabbitMQConfig, error) {
	prefetch, err := getInt("RABBITMQ_PREFETCH", defaultPrefetch)
	if err != nil {
		return nil, err
	}
	batchSize, err := getInt("JOURNAL_BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, err
	}
	batchTimeout, err := getDuration("JOURNAL_BATCH_TIMEOUT", defaultBatchTimeout)
	if err != nil {
		return nil, err
	}

	return &RabbitMQConfig{
		URL:               os.Getenv("RABBITMQ_URL"),
		PurchasesExchange: getString("RABBITMQ_PURCHASES_EXCHANGE", defaultPurchasesExchange),
		JournalQueue:      getString("RABBITMQ_JOURNAL_QUEUE", defaultJournalQueue),
		Prefetch:          prefetch,
		BatchSize:         batchSize,
		BatchTimeout:      batchTimeout,
	}, nil
}

func refreshInterval() (time.Duration, error) {
	if os.Getenv("BOND_REFRESH_INTERVAL") != "" {
		return getDuration("BOND_REFRESH_INTERVAL", defaultRefreshInterval)
	}
	hours, err := getInt("BOND_REFRESH_INTERVAL_HOURS", 0)
	if err != nil {
		return 0, err
	}
	if hours == 0 {
		return defaultRefreshInterval, nil
	}
	return time.Duration(hours) * legacyRefreshIntervalUnit, nil
}

// JournalConfig is the subset of settings used by the purchase journal consumer.
type JournalConfig struct {
	Postgres PostgresConfig
	RabbitMQ RabbitMQConfig
	Log      LogConfig
}

// LoadJournal reads .env when present and builds JournalConfig. Both the
// database and the broker are required here.
func LoadJournal() (*JournalConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return JournalFromEnv()
}

// JournalFromEnv builds JournalConfig from the current process environment.
func JournalFromEnv() (*JournalConfig, error) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}
	rabbit, err := loadRabbitMQ()
	if err != nil {
		return nil, err
	}
	if rabbit.URL == "" {
		return nil, errors.New("RABBITMQ_URL is required")
	}
	return &JournalConfig{
		Postgres: PostgresConfig{DSN: dsn},
		RabbitMQ: *rabbit,
		Log: LogConfig{
			Level: getString("LOG_LEVEL", defaultLogLevel),
			File:  os.Getenv("LOG_FILE"),
		},
	}, nil
}
