// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // ops console port, e.g. "8081"
	BackofficeAllowedIPs string        // comma-separated allowlist; empty = allow all
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds JWT signing settings.
type JWTConfig struct {
	AccessSecret  string        // must be set
	RefreshSecret string        // must be set
	AccessTTL     time.Duration // default 15m
	RefreshTTL    time.Duration // default 720h (30 days)
}

// RoundConfig holds the settlement round parameters.
type RoundConfig struct {
	Duration       time.Duration   // submission/staking window, default 168h
	GraceDelay     time.Duration   // rescue unlock delay past the deadline, default 72h
	StakeAmount    decimal.Decimal // fixed stake per submit/stake call
	CurveBasePrice decimal.Decimal // bonding curve price at zero shares
	CurveIncrement decimal.Decimal // price increase per whole share issued
	AllowSelfStake bool            // submitter may back-stake own entry, default true
	AdminAccount   uuid.UUID       // initial round authority
	BurnAccount    uuid.UUID       // permanent burn destination
}

// LedgerConfig holds dev-ledger settings.
type LedgerConfig struct {
	FaucetAmount decimal.Decimal // amount minted per faucet call, default 1000
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	Round  RoundConfig
	Ledger LedgerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	// JWT secrets are mandatory
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Round.Duration <= 0 {
		errs = append(errs, errors.New("ROUND_DURATION must be positive"))
	}
	if c.Round.GraceDelay <= 0 {
		errs = append(errs, errors.New("ROUND_GRACE_DELAY must be positive"))
	}
	if !c.Round.StakeAmount.IsPositive() {
		errs = append(errs, fmt.Errorf(
			"ROUND_STAKE_AMOUNT must be positive, got %s", c.Round.StakeAmount,
		))
	}
	if !c.Round.CurveBasePrice.IsPositive() {
		errs = append(errs, fmt.Errorf(
			"CURVE_BASE_PRICE must be positive, got %s", c.Round.CurveBasePrice,
		))
	}
	if c.Round.CurveIncrement.IsNegative() {
		errs = append(errs, fmt.Errorf(
			"CURVE_INCREMENT must not be negative, got %s", c.Round.CurveIncrement,
		))
	}
	if c.Round.AdminAccount == uuid.Nil {
		errs = append(errs, errors.New("ROUND_ADMIN_ACCOUNT must be set to a non-zero UUID"))
	}
	if c.Round.BurnAccount == uuid.Nil {
		errs = append(errs, errors.New("ROUND_BURN_ACCOUNT must be set to a non-zero UUID"))
	}
	if c.Round.BurnAccount == c.Round.AdminAccount {
		errs = append(errs, errors.New("ROUND_BURN_ACCOUNT must differ from ROUND_ADMIN_ACCOUNT"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "stakeround"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}

	// ── Round ─────────────────────────────────────────────────────────────────
	stakeAmount, err := getDecimal("ROUND_STAKE_AMOUNT", "10")
	if err != nil {
		return nil, fmt.Errorf("ROUND_STAKE_AMOUNT: %w", err)
	}
	basePrice, err := getDecimal("CURVE_BASE_PRICE", "1")
	if err != nil {
		return nil, fmt.Errorf("CURVE_BASE_PRICE: %w", err)
	}
	increment, err := getDecimal("CURVE_INCREMENT", "0.1")
	if err != nil {
		return nil, fmt.Errorf("CURVE_INCREMENT: %w", err)
	}
	adminAccount, err := getUUID("ROUND_ADMIN_ACCOUNT")
	if err != nil {
		return nil, fmt.Errorf("ROUND_ADMIN_ACCOUNT: %w", err)
	}
	burnAccount, err := getUUID("ROUND_BURN_ACCOUNT")
	if err != nil {
		return nil, fmt.Errorf("ROUND_BURN_ACCOUNT: %w", err)
	}

	cfg.Round = RoundConfig{
		Duration:       getDuration("ROUND_DURATION", 168*time.Hour),
		GraceDelay:     getDuration("ROUND_GRACE_DELAY", 72*time.Hour),
		StakeAmount:    stakeAmount,
		CurveBasePrice: basePrice,
		CurveIncrement: increment,
		AllowSelfStake: getBool("ROUND_ALLOW_SELF_STAKE", true),
		AdminAccount:   adminAccount,
		BurnAccount:    burnAccount,
	}

	// ── Ledger ────────────────────────────────────────────────────────────────
	faucet, err := getDecimal("LEDGER_FAUCET_AMOUNT", "1000")
	if err != nil {
		return nil, fmt.Errorf("LEDGER_FAUCET_AMOUNT: %w", err)
	}
	cfg.Ledger = LedgerConfig{FaucetAmount: faucet}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getDecimal parses an env var as an exact decimal string (e.g. "10", "0.25").
func getDecimal(key, defaultVal string) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		v = defaultVal
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q", v)
	}
	return d, nil
}

// getUUID parses an env var as a UUID. Unset resolves to uuid.Nil, which
// Validate rejects for the accounts that are mandatory.
func getUUID(key string) (uuid.UUID, error) {
	v := os.Getenv(key)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid uuid %q", v)
	}
	return id, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Log warning and fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
