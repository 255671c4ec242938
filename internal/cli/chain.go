package cli

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"optionstrat/internal/chain"
	"optionstrat/internal/chainopt"
	"optionstrat/internal/errors"
	"optionstrat/internal/logging"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
	"optionstrat/pkg/utils"
)

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Option chain commands",
		Long:  "Load, generate and search option chains.",
	}

	cmd.AddCommand(newChainShowCmd(app))
	cmd.AddCommand(newChainBuildCmd(app))
	cmd.AddCommand(newChainBestCmd(app))

	return cmd
}

func newChainShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Display an option chain",
		Long: `Display an option chain read from JSON, YAML or CSV.

CSV files carry rows only; pass the underlying with --chain-underlying.`,
		Example: `  optionstrat chain show spy.json
  optionstrat chain show spy.csv --chain-symbol SPY --chain-underlying 450 --chain-days 30
  optionstrat chain show spy.yaml --strikes 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			oc, err := loadChain(cmd, args[0])
			if err != nil {
				output.Error("Failed to load chain: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(oc)
			}

			strikes, _ := cmd.Flags().GetInt("strikes")
			displayChain(output, oc, strikes)
			return nil
		},
	}

	cmd.Flags().Int("strikes", 0, "number of strikes to show around ATM (0 = all)")
	addChainMetaFlags(cmd)
	return cmd
}

func displayChain(output *Output, oc *chain.OptionChain, strikes int) {
	output.Bold("Option Chain - %s", oc.Symbol)
	output.Printf("  Underlying: %s  Rows: %d\n\n", output.Price(oc.UnderlyingPrice), oc.Len())

	rows := oc.Rows()
	if strikes > 0 {
		rows = oc.Nearest(strikes)
	}

	atm, _ := oc.ATMStrike()
	table := NewTable(output, "Call Bid", "Call Ask", "Call Δ", "Strike", "Put Bid", "Put Ask", "Put Δ", "IV", "OI")
	for _, r := range rows {
		strike := output.Price(r.Strike)
		if r.Strike.Equal(atm) {
			strike = "*" + strike
		}
		table.AddRow(
			optionalPrice(output, r.CallBid), optionalPrice(output, r.CallAsk), optionalGreek(r.DeltaCall),
			strike,
			optionalPrice(output, r.PutBid), optionalPrice(output, r.PutAsk), optionalGreek(r.DeltaPut),
			optionalVol(r.ImpliedVolatility), optionalCount(r.OpenInterest),
		)
	}
	table.Render()
}

func newChainBuildCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate a synthetic chain from model prices",
		Long: `Generate an option chain by pricing every strike with Black-Scholes and
quoting a bid/ask around the theoretical price.`,
		Example: `  optionstrat chain build --symbol SPY --spot 450 --days 30 --vol 0.18 > spy.json
  optionstrat chain build --spot 100 --interval 2.5 --strikes 20 --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			flags := cmd.Flags()

			symbol, _ := flags.GetString("symbol")
			spot, _ := flags.GetFloat64("spot")
			days, _ := flags.GetFloat64("days")
			vol, _ := flags.GetFloat64("vol")
			rate, _ := flags.GetFloat64("rate")
			div, _ := flags.GetFloat64("div")
			interval, _ := flags.GetFloat64("interval")
			strikes, _ := flags.GetInt("strikes")
			spread, _ := flags.GetFloat64("spread")
			smile, _ := flags.GetFloat64("smile")
			format, _ := flags.GetString("format")

			values, err := positives(map[string]float64{"spot": spot, "vol": vol, "div": div, "interval": interval})
			if err != nil {
				return err
			}

			oc, err := chain.Build(chain.BuildParams{
				Symbol:          symbol,
				UnderlyingPrice: values["spot"],
				Expiration:      options.Days(days),
				Volatility:      values["vol"],
				RiskFreeRate:    decimal.NewFromFloat(rate),
				DividendYield:   values["div"],
				StrikeInterval:  values["interval"],
				StrikesPerSide:  strikes,
				Spread:          spread,
				Smile:           smile,
			})
			if err != nil {
				output.Error("Failed to build chain: %v", err)
				return err
			}

			switch strings.ToLower(format) {
			case "json":
				return output.JSON(oc)
			case "yaml", "yml":
				enc := yaml.NewEncoder(output.writer)
				enc.SetIndent(2)
				if err := enc.Encode(oc); err != nil {
					return err
				}
				return enc.Close()
			case "csv":
				return chain.WriteCSV(output.writer, oc)
			}
			return errors.NewValidationError("format", format, "expected json, yaml or csv")
		},
	}

	cmd.Flags().String("symbol", "", "underlying symbol")
	cmd.Flags().Float64("spot", 100, "underlying price")
	cmd.Flags().Float64("days", 30, "days to expiration")
	cmd.Flags().Float64("vol", 0.2, "at-the-money volatility")
	cmd.Flags().Float64("rate", 0, "risk-free rate")
	cmd.Flags().Float64("div", 0, "dividend yield")
	cmd.Flags().Float64("interval", 5, "strike interval")
	cmd.Flags().Int("strikes", 10, "strikes on each side of the money")
	cmd.Flags().Float64("spread", 0.05, "bid/ask width as a fraction of the price")
	cmd.Flags().Float64("smile", 0, "volatility smile curvature")
	cmd.Flags().String("format", "json", "json, yaml or csv")
	return cmd
}

func newChainBestCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "best <file>",
		Short: "Find the best strategy of a kind in a chain",
		Long: `Enumerate every strike combination of a strategy kind in the chain and
keep the one with the highest score.

Criteria: ratio (max profit / max loss) or area (profit area).
Sides restrict the strikes considered: All, Upper, Lower, Range (--low/--high
are prices) or DeltaRange (--low/--high are deltas).`,
		Example: `  optionstrat chain best spy.json --kind BullCallSpread
  optionstrat chain best spy.json --kind IronCondor --criterion area
  optionstrat chain best spy.json --kind ShortStrangle --side DeltaRange --low -0.3 --high 0.3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			flags := cmd.Flags()

			kindRaw, _ := flags.GetString("kind")
			kind, err := strategies.ParseKind(kindRaw)
			if err != nil {
				return err
			}

			config, err := app.Config.OptimizerConfig()
			if err != nil {
				return err
			}
			if flags.Changed("criterion") {
				raw, _ := flags.GetString("criterion")
				if config.Criterion, err = chainopt.ParseCriterion(raw); err != nil {
					return err
				}
			}
			if flags.Changed("side") {
				raw, _ := flags.GetString("side")
				low, _ := flags.GetFloat64("low")
				high, _ := flags.GetFloat64("high")
				if config.Side, err = chain.ParseSide(raw, low, high); err != nil {
					return err
				}
			}
			if flags.Changed("max-candidates") {
				config.MaxCandidates, _ = flags.GetInt("max-candidates")
			}
			if flags.Changed("qty") {
				qty, _ := flags.GetFloat64("qty")
				if config.Quantity, err = positive.NewFromFloat(qty); err != nil {
					return err
				}
			}

			oc, err := loadChain(cmd, args[0])
			if err != nil {
				output.Error("Failed to load chain: %v", err)
				return err
			}

			res, err := chainopt.NewOptimizer(config, logging.WithSymbol(app.Logger, oc.Symbol)).Best(kind, oc)
			if err != nil {
				output.Error("Search failed: %v", err)
				return err
			}

			if output.IsJSON() {
				data, err := strategies.Marshal(res.Strategy)
				if err != nil {
					return err
				}
				return output.JSON(map[string]interface{}{
					"strategy":  json.RawMessage(data),
					"score":     res.Score,
					"strikes":   strategies.Strikes(res.Strategy),
					"evaluated": res.Evaluated,
					"truncated": res.Truncated,
				})
			}

			output.Success("Best %s by %s (%s)", kind, config.Criterion, config.Side)
			output.KeyValues([][2]string{
				{"Strikes", utils.FormatPrices(strategies.Strikes(res.Strategy), output.precision)},
				{"Score", res.Score.StringFixed(4)},
				{"Evaluated", itoa(res.Evaluated)},
			})
			if res.Truncated {
				output.Warning("Search stopped at %d candidates; raise --max-candidates to see all", config.MaxCandidates)
			}
			output.Println()
			output.Println(strategies.Summary(res.Strategy))
			return nil
		},
	}

	cmd.Flags().String("kind", "", "strategy kind (see 'strategy kinds')")
	cmd.Flags().String("criterion", "", "ratio or area (default: optimizer.criterion)")
	cmd.Flags().String("side", "", "All, Upper, Lower, Range or DeltaRange (default: optimizer.side)")
	cmd.Flags().Float64("low", 0, "lower bound of Range or DeltaRange")
	cmd.Flags().Float64("high", 0, "upper bound of Range or DeltaRange")
	cmd.Flags().Int("max-candidates", 0, "candidate budget (default: optimizer.max_candidates)")
	cmd.Flags().Float64("qty", 1, "base leg quantity")
	_ = cmd.MarkFlagRequired("kind")
	addChainMetaFlags(cmd)
	return cmd
}

// addChainMetaFlags registers the market data CSV chains do not carry.
func addChainMetaFlags(cmd *cobra.Command) {
	cmd.Flags().String("chain-symbol", "", "symbol of a CSV chain")
	cmd.Flags().Float64("chain-underlying", 0, "underlying price of a CSV chain")
	cmd.Flags().Float64("chain-days", 30, "days to expiration of a CSV chain")
	cmd.Flags().Float64("chain-rate", 0, "risk-free rate of a CSV chain")
	cmd.Flags().Float64("chain-div", 0, "dividend yield of a CSV chain")
}

func loadChain(cmd *cobra.Command, path string) (*chain.OptionChain, error) {
	var meta *chain.Meta
	if u, _ := cmd.Flags().GetFloat64("chain-underlying"); u > 0 {
		symbol, _ := cmd.Flags().GetString("chain-symbol")
		days, _ := cmd.Flags().GetFloat64("chain-days")
		rate, _ := cmd.Flags().GetFloat64("chain-rate")
		div, _ := cmd.Flags().GetFloat64("chain-div")
		meta = &chain.Meta{
			Symbol:          symbol,
			UnderlyingPrice: u,
			ExpirationDays:  days,
			RiskFreeRate:    rate,
			DividendYield:   div,
		}
	}
	return chain.LoadFile(path, meta)
}

func optionalPrice(output *Output, p *positive.Positive) string {
	if p == nil {
		return "-"
	}
	return output.Price(*p)
}

func optionalGreek(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(3)
}

func optionalVol(p *positive.Positive) string {
	if p == nil {
		return "-"
	}
	return utils.FormatProbability(*p)
}

func optionalCount(n *uint64) string {
	if n == nil {
		return "-"
	}
	return utils.FormatMoney(decimal.NewFromInt(int64(*n)), 0)
}
