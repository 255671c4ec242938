// Package config provides configuration management for the optionstrat CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"optionstrat/internal/chain"
	"optionstrat/internal/chainopt"
	"optionstrat/internal/deltaneutral"
	"optionstrat/internal/errors"
	"optionstrat/internal/logging"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/pricing"
	"optionstrat/internal/probability"
)

// Config holds all application configuration.
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	UI          UIConfig          `mapstructure:"ui"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Adjustment  AdjustmentConfig  `mapstructure:"adjustment"`
	Optimizer   OptimizerConfig   `mapstructure:"optimizer"`
	Probability ProbabilityConfig `mapstructure:"probability"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"` // debug, info, warn, error
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
	// Precision is the number of decimals shown for prices.
	Precision int32 `mapstructure:"precision"`
}

// AnalysisConfig holds the payoff display settings.
type AnalysisConfig struct {
	// BestRangeStep is the price step of payoff tables.
	BestRangeStep float64 `mapstructure:"best_range_step"`
	// DeltaThreshold is the net delta treated as neutral by the neutral command.
	DeltaThreshold float64 `mapstructure:"delta_threshold"`
}

// PricingConfig holds the numerical settings of the pricing models.
type PricingConfig struct {
	BinomialSteps int `mapstructure:"binomial_steps"`
	RainbowPaths  int `mapstructure:"rainbow_paths"`
}

// AdjustmentConfig mirrors the optimizer constraints of deltaneutral.
type AdjustmentConfig struct {
	CanBuyOptions      bool     `mapstructure:"can_buy_options"`
	CanSellOptions     bool     `mapstructure:"can_sell_options"`
	CanTradeUnderlying bool     `mapstructure:"can_trade_underlying"`
	CanAddNewLegs      bool     `mapstructure:"can_add_new_legs"`
	MaxNewLegCost      float64  `mapstructure:"max_new_leg_cost"` // 0 = no cap
	MaxTradesPerPlan   int      `mapstructure:"max_trades_per_plan"`
	MaxNewLegs         int      `mapstructure:"max_new_legs"`
	AllowedStyles      []string `mapstructure:"allowed_styles"`
	MinOpenInterest    uint64   `mapstructure:"min_open_interest"`
	DeltaTolerance     float64  `mapstructure:"delta_tolerance"`
	PreferExistingLegs bool     `mapstructure:"prefer_existing_legs"`
}

// OptimizerConfig holds the chain search settings.
type OptimizerConfig struct {
	MaxCandidates int     `mapstructure:"max_candidates"`
	Criterion     string  `mapstructure:"criterion"` // ratio, area
	Side          string  `mapstructure:"side"`      // All, Upper, Lower, Range, DeltaRange
	SideLow       float64 `mapstructure:"side_low"`
	SideHigh      float64 `mapstructure:"side_high"`
	OpenFee       float64 `mapstructure:"open_fee"`
	CloseFee      float64 `mapstructure:"close_fee"`
	Workers       int     `mapstructure:"workers"` // 0 = one per CPU
}

// ProbabilityConfig holds the probability analysis settings.
type ProbabilityConfig struct {
	SimpsonIntervals  int     `mapstructure:"simpson_intervals"`
	DefaultVolatility float64 `mapstructure:"default_volatility"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/optionstrat"
	}
	return filepath.Join(home, ".config", "optionstrat")
}

// Default returns the configuration written to a fresh template.
func Default() *Config {
	log := logging.DefaultLogConfig()
	return &Config{
		Logging: LoggingConfig{
			Level:      log.Level,
			Console:    log.Console,
			File:       log.File,
			FilePath:   log.FilePath,
			MaxSize:    log.MaxSize,
			MaxBackups: log.MaxBackups,
			MaxAge:     log.MaxAge,
		},
		UI:       UIConfig{ColorEnabled: true, Precision: 2},
		Analysis: AnalysisConfig{BestRangeStep: 1, DeltaThreshold: deltaneutral.DeltaThreshold},
		Pricing:  PricingConfig{BinomialSteps: pricing.DefaultBinomialSteps, RainbowPaths: pricing.RainbowPaths},
		Adjustment: AdjustmentConfig{
			CanBuyOptions:      true,
			CanSellOptions:     true,
			CanAddNewLegs:      true,
			MaxTradesPerPlan:   3,
			MaxNewLegs:         2,
			AllowedStyles:      []string{"Call", "Put"},
			DeltaTolerance:     0.01,
			PreferExistingLegs: true,
		},
		Optimizer: OptimizerConfig{
			MaxCandidates: chainopt.DefaultMaxCandidates,
			Criterion:     string(chainopt.Ratio),
			Side:          string(chain.SideAll),
		},
		Probability: ProbabilityConfig{
			SimpsonIntervals:  probability.DefaultSimpsonIntervals,
			DefaultVolatility: 0.2,
		},
	}
}

// Load loads config.toml from configDir, writing the template first when
// the file is missing. If configDir is empty, uses the default directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.console", d.Logging.Console)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.file_path", d.Logging.FilePath)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("ui.color_enabled", d.UI.ColorEnabled)
	v.SetDefault("ui.precision", d.UI.Precision)
	v.SetDefault("analysis.best_range_step", d.Analysis.BestRangeStep)
	v.SetDefault("analysis.delta_threshold", d.Analysis.DeltaThreshold)
	v.SetDefault("pricing.binomial_steps", d.Pricing.BinomialSteps)
	v.SetDefault("pricing.rainbow_paths", d.Pricing.RainbowPaths)
	v.SetDefault("adjustment.can_buy_options", d.Adjustment.CanBuyOptions)
	v.SetDefault("adjustment.can_sell_options", d.Adjustment.CanSellOptions)
	v.SetDefault("adjustment.can_trade_underlying", d.Adjustment.CanTradeUnderlying)
	v.SetDefault("adjustment.can_add_new_legs", d.Adjustment.CanAddNewLegs)
	v.SetDefault("adjustment.max_new_leg_cost", d.Adjustment.MaxNewLegCost)
	v.SetDefault("adjustment.max_trades_per_plan", d.Adjustment.MaxTradesPerPlan)
	v.SetDefault("adjustment.max_new_legs", d.Adjustment.MaxNewLegs)
	v.SetDefault("adjustment.allowed_styles", d.Adjustment.AllowedStyles)
	v.SetDefault("adjustment.min_open_interest", d.Adjustment.MinOpenInterest)
	v.SetDefault("adjustment.delta_tolerance", d.Adjustment.DeltaTolerance)
	v.SetDefault("adjustment.prefer_existing_legs", d.Adjustment.PreferExistingLegs)
	v.SetDefault("optimizer.max_candidates", d.Optimizer.MaxCandidates)
	v.SetDefault("optimizer.criterion", d.Optimizer.Criterion)
	v.SetDefault("optimizer.side", d.Optimizer.Side)
	v.SetDefault("optimizer.workers", d.Optimizer.Workers)
	v.SetDefault("probability.simpson_intervals", d.Probability.SimpsonIntervals)
	v.SetDefault("probability.default_volatility", d.Probability.DefaultVolatility)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("OPTIONSTRAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("OPTIONSTRAT_MAX_CANDIDATES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(errors.ErrConfigInvalid, "OPTIONSTRAT_MAX_CANDIDATES=%q is not an integer", v)
		}
		cfg.Optimizer.MaxCandidates = n
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return errors.Wrapf(errors.ErrConfigInvalid, "invalid log level: %s", c.Logging.Level)
	}

	if c.Analysis.BestRangeStep <= 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "best_range_step must be positive")
	}
	if c.Analysis.DeltaThreshold <= 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "delta_threshold must be positive")
	}

	if c.Pricing.BinomialSteps <= 0 || c.Pricing.RainbowPaths <= 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "binomial_steps and rainbow_paths must be positive")
	}

	if c.Optimizer.MaxCandidates <= 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "max_candidates must be positive")
	}
	if c.Optimizer.Workers < 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "workers must not be negative")
	}
	if _, err := chainopt.ParseCriterion(c.Optimizer.Criterion); err != nil {
		return invalid(err)
	}
	if _, err := chain.ParseSide(c.Optimizer.Side, c.Optimizer.SideLow, c.Optimizer.SideHigh); err != nil {
		return invalid(err)
	}

	if n := c.Probability.SimpsonIntervals; n <= 0 || n%2 != 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "simpson_intervals must be a positive even number, got %d", n)
	}
	if c.Probability.DefaultVolatility <= 0 {
		return errors.Wrap(errors.ErrConfigInvalid, "default_volatility must be positive")
	}

	_, err := c.AdjustmentConfig()
	return err
}

// LogConfig maps the logging section onto a logger configuration.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// PricingEngine builds a pricing engine from the pricing section.
func (c *Config) PricingEngine() *pricing.Engine {
	e := pricing.NewEngine()
	e.BinomialSteps = c.Pricing.BinomialSteps
	e.RainbowPaths = c.Pricing.RainbowPaths
	return e
}

// AdjustmentConfig converts the adjustment section and validates it.
func (c *Config) AdjustmentConfig() (deltaneutral.AdjustmentConfig, error) {
	a := c.Adjustment
	out := deltaneutral.AdjustmentConfig{
		CanBuyOptions:      a.CanBuyOptions,
		CanSellOptions:     a.CanSellOptions,
		CanTradeUnderlying: a.CanTradeUnderlying,
		CanAddNewLegs:      a.CanAddNewLegs,
		MaxTradesPerPlan:   a.MaxTradesPerPlan,
		MaxNewLegs:         a.MaxNewLegs,
		MinOpenInterest:    a.MinOpenInterest,
		DeltaTolerance:     decimal.NewFromFloat(a.DeltaTolerance),
		PreferExistingLegs: a.PreferExistingLegs,
	}
	if a.MaxNewLegCost > 0 {
		cost, err := positive.NewFromFloat(a.MaxNewLegCost)
		if err != nil {
			return deltaneutral.AdjustmentConfig{}, invalid(err)
		}
		out.MaxNewLegCost = &cost
	}
	for _, s := range a.AllowedStyles {
		style, err := options.ParseStyle(s)
		if err != nil {
			return deltaneutral.AdjustmentConfig{}, invalid(err)
		}
		out.AllowedStyles = append(out.AllowedStyles, style)
	}
	if err := out.Validate(); err != nil {
		return deltaneutral.AdjustmentConfig{}, err
	}
	return out, nil
}

// OptimizerConfig converts the optimizer section.
func (c *Config) OptimizerConfig() (chainopt.Config, error) {
	criterion, err := chainopt.ParseCriterion(c.Optimizer.Criterion)
	if err != nil {
		return chainopt.Config{}, err
	}
	side, err := chain.ParseSide(c.Optimizer.Side, c.Optimizer.SideLow, c.Optimizer.SideHigh)
	if err != nil {
		return chainopt.Config{}, invalid(err)
	}
	return chainopt.Config{
		Criterion:     criterion,
		Side:          side,
		MaxCandidates: c.Optimizer.MaxCandidates,
		Quantity:      positive.One,
		OpenFee:       positive.Saturating(decimal.NewFromFloat(c.Optimizer.OpenFee)),
		CloseFee:      positive.Saturating(decimal.NewFromFloat(c.Optimizer.CloseFee)),
		Workers:       c.Optimizer.Workers,
	}, nil
}

// ProbabilityConfig converts the probability section.
func (c *Config) ProbabilityConfig() probability.Config {
	return probability.Config{
		SimpsonIntervals:  c.Probability.SimpsonIntervals,
		DefaultVolatility: c.Probability.DefaultVolatility,
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", errors.ErrConfigInvalid, err)
}
