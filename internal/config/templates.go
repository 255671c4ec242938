package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# optionstrat configuration

[logging]
# Log level: debug, info, warn, error
level = "info"
# Log to stderr
console = true
# Also log to a rotating file
file = false
# max_size in megabytes, max_age in days
max_size = 100
max_backups = 7
max_age = 30

[ui]
# Enable colored output
color_enabled = true
# Decimals shown for prices
precision = 2

[analysis]
# Price step of payoff tables
best_range_step = 1.0
# Largest net delta treated as neutral
delta_threshold = 0.0001

[pricing]
# CRR tree depth for American and Bermuda options
binomial_steps = 100
# Monte-Carlo pairs for rainbow options
rainbow_paths = 10000

[adjustment]
can_buy_options = true
can_sell_options = true
can_trade_underlying = false
can_add_new_legs = true
# Premium cap for a single new leg, 0 for none
max_new_leg_cost = 0.0
max_trades_per_plan = 3
max_new_legs = 2
allowed_styles = ["Call", "Put"]
min_open_interest = 0
delta_tolerance = 0.01
prefer_existing_legs = true

[optimizer]
# Upper bound on evaluated chain candidates
max_candidates = 10000
# Ranking: ratio or area
criterion = "ratio"
# Rows considered: All, Upper, Lower, Range, DeltaRange
side = "All"
side_low = 0.0
side_high = 0.0
# Fees per contract applied to every candidate leg
open_fee = 0.0
close_fee = 0.0
# Goroutines scoring candidates, 0 = one per CPU
workers = 0

[probability]
# Simpson sub-intervals per integration piece, must be even
simpson_intervals = 64
# Volatility used when no leg quotes one
default_volatility = 0.2
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

// Template returns the text written to a missing config.toml.
func Template() string { return configTemplate }
