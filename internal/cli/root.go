// Package cli provides the command-line interface for the options analytics
// engines.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"optionstrat/internal/config"
	"optionstrat/internal/logging"
	"optionstrat/internal/pricing"
	"optionstrat/internal/strategies"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pricing *pricing.Engine
}

func (a *App) commandLogger(operation string, s strategies.Strategy) zerolog.Logger {
	return logging.WithOperation(logging.WithStrategy(a.Logger, s.Name()), operation)
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config directory before the first command runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "optionstrat",
		Short: "Options pricing, strategy and risk analytics",
		Long: `optionstrat prices vanilla and exotic options, builds multi-leg strategies,
and analyses them: payoff, break-evens, delta neutrality, adjustment plans,
probability of profit, and chain-driven strategy search.

Strategies are read from YAML or JSON definition files; option chains from
CSV, YAML or JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				loaded, err := config.Load(configDir(cmd))
				if err != nil {
					return err
				}
				app.Config = loaded
				app.Logger = logging.NewLoggerWithConfig(loaded.LogConfig())
			}
			app.Pricing = app.Config.PricingEngine()

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			app.Logger.Debug().Str("command", cmd.CommandPath()).Msg("Running command")
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/optionstrat)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addPricingCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addAdjustmentCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("optionstrat v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			path := filepath.Join(configDir(cmd), "config.toml")
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "template",
		Short: "Print the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			NewOutput(cmd, app).Printf("%s", config.Template())
			return nil
		},
	})

	return cmd
}

func configDir(cmd *cobra.Command) string {
	if dir, _ := cmd.Flags().GetString("config"); dir != "" {
		return dir
	}
	return config.DefaultConfigDir()
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Logging")
	output.KeyValues([][2]string{
		{"Level", cfg.Logging.Level},
		{"File", boolString(cfg.Logging.File) + " " + cfg.Logging.FilePath},
	})
	output.Println()

	output.Bold("Pricing")
	output.KeyValues([][2]string{
		{"Binomial steps", itoa(cfg.Pricing.BinomialSteps)},
		{"Rainbow paths", itoa(cfg.Pricing.RainbowPaths)},
	})
	output.Println()

	a := cfg.Adjustment
	output.Bold("Adjustment")
	output.KeyValues([][2]string{
		{"Buy options", boolString(a.CanBuyOptions)},
		{"Sell options", boolString(a.CanSellOptions)},
		{"Trade underlying", boolString(a.CanTradeUnderlying)},
		{"Add new legs", boolString(a.CanAddNewLegs)},
		{"Max trades per plan", itoa(a.MaxTradesPerPlan)},
		{"Delta tolerance", ftoa(a.DeltaTolerance)},
	})
	output.Println()

	output.Bold("Optimizer")
	output.KeyValues([][2]string{
		{"Max candidates", itoa(cfg.Optimizer.MaxCandidates)},
		{"Criterion", cfg.Optimizer.Criterion},
		{"Side", cfg.Optimizer.Side},
		{"Workers", itoa(cfg.Optimizer.Workers)},
	})
	output.Println()

	output.Bold("Probability")
	output.KeyValues([][2]string{
		{"Simpson intervals", itoa(cfg.Probability.SimpsonIntervals)},
		{"Default volatility", ftoa(cfg.Probability.DefaultVolatility)},
	})
}
