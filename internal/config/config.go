package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"bx-rounds/internal/outcome"
)

// Config is loaded from defaults, then the optional YAML file named by
// CONFIG_FILE, then environment variables.
type Config struct {
	Port       string `yaml:"port"`
	DBPath     string `yaml:"db_path"`
	RedisAddr  string `yaml:"redis_addr"`
	LogLevel   string `yaml:"log_level"`
	APIKey     string `yaml:"-"`
	AdminToken string `yaml:"-"`

	StartingBalance decimal.Decimal `yaml:"-"`
	MaxBet          decimal.Decimal `yaml:"-"`
	RotateEvery     int             `yaml:"rotate_every"`

	Countdown      time.Duration `yaml:"countdown"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	Grace          time.Duration `yaml:"grace"`
	ResultStagger  time.Duration `yaml:"result_stagger"`
	TickInterval   time.Duration `yaml:"tick_interval"`

	Curve outcome.Curve `yaml:"drift_curve"`

	SendBuffer   int `yaml:"send_buffer"`
	ChatCapacity int `yaml:"chat_capacity"`
	AuditQueue   int `yaml:"audit_queue"`
}

// file carries the money fields as strings so they parse exactly.
type file struct {
	Config          `yaml:",inline"`
	StartingBalance string `yaml:"starting_balance"`
	MaxBet          string `yaml:"max_bet"`
}

func defaults() *Config {
	return &Config{
		Port:            "8080",
		DBPath:          "rounds.sqlite",
		LogLevel:        "info",
		StartingBalance: decimal.NewFromInt(100),
		MaxBet:          decimal.NewFromInt(100),
		RotateEvery:     1000,
		Countdown:       10 * time.Second,
		UpdateInterval:  250 * time.Millisecond,
		Grace:           time.Second,
		ResultStagger:   100 * time.Millisecond,
		TickInterval:    100 * time.Millisecond,
		Curve:           outcome.DefaultCurve(),
		SendBuffer:      64,
		ChatCapacity:    50,
		AuditQueue:      1024,
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.fromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) overlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	f := file{Config: *c}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	*c = f.Config

	if c.StartingBalance, err = parseMoney("starting_balance", f.StartingBalance, c.StartingBalance); err != nil {
		return err
	}

	if c.MaxBet, err = parseMoney("max_bet", f.MaxBet, c.MaxBet); err != nil {
		return err
	}

	return nil
}

func parseMoney(key, v string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if v == "" {
		return fallback, nil
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return d, nil
}

func (c *Config) fromEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.APIKey = getEnv("API_KEY", c.APIKey)
	c.AdminToken = getEnv("ADMIN_TOKEN", c.AdminToken)

	var err error

	if c.StartingBalance, err = getDecimal("STARTING_BALANCE", c.StartingBalance); err != nil {
		return err
	}

	if c.MaxBet, err = getDecimal("MAX_BET", c.MaxBet); err != nil {
		return err
	}

	if c.RotateEvery, err = getInt("ROTATE_EVERY", c.RotateEvery); err != nil {
		return err
	}

	if c.Countdown, err = getDuration("COUNTDOWN", c.Countdown); err != nil {
		return err
	}

	if c.ResultStagger, err = getDuration("RESULT_STAGGER", c.ResultStagger); err != nil {
		return err
	}

	if c.TickInterval, err = getDuration("TICK_INTERVAL", c.TickInterval); err != nil {
		return err
	}

	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if !c.MaxBet.IsPositive() {
		errs = append(errs, errors.New("max bet must be positive"))
	}

	if c.StartingBalance.IsNegative() {
		errs = append(errs, errors.New("starting balance must not be negative"))
	}

	if c.Countdown <= 0 || c.UpdateInterval <= 0 || c.TickInterval <= 0 || c.Grace < 0 || c.ResultStagger < 0 {
		errs = append(errs, errors.New("timer durations must be positive"))
	}

	if c.Curve.HouseEdge < 0 || c.Curve.HouseEdge >= 1 {
		errs = append(errs, errors.New("drift house edge must be in [0, 1)"))
	}

	if c.Curve.GrowthRate <= 0 {
		errs = append(errs, errors.New("drift growth rate must be positive"))
	}

	if c.ChatCapacity <= 0 {
		errs = append(errs, errors.New("chat capacity must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	return parseMoney(key, os.Getenv(key), fallback)
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return d, nil
}
