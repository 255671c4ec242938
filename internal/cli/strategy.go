package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
	"optionstrat/pkg/utils"
)

// addStrategyCommands adds strategy inspection commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStrategyCmd(app))
	rootCmd.AddCommand(newPayoffCmd(app))
}

func newStrategyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Strategy commands",
		Long:  "Build strategies from definition files and show their risk profile.",
	}

	cmd.AddCommand(newStrategyShowCmd(app))
	cmd.AddCommand(newStrategyExportCmd(app))
	cmd.AddCommand(newStrategyKindsCmd(app))

	return cmd
}

func newStrategyShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Show break-evens, max profit and loss of a strategy",
		Long: `Show the risk profile of a strategy read from a YAML or JSON definition.

A definition names the kind, the common market data and the option legs:

  kind: BullCallSpread
  symbol: SPY
  underlying_price: 100
  days: 30
  implied_volatility: 0.2
  legs:
    - {strike: 95, premium: 7.5}
    - {strike: 105, premium: 2.5}`,
		Example: `  optionstrat strategy show spread.yaml
  optionstrat strategy show condor.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			s, err := LoadStrategy(args[0])
			if err != nil {
				output.Error("Failed to load strategy: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(newStrategyReport(s))
			}

			output.Println(strategies.Summary(s))
			return nil
		},
	}
}

func newStrategyExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export a strategy with all of its legs as tagged JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			s, err := LoadStrategy(args[0])
			if err != nil {
				output.Error("Failed to load strategy: %v", err)
				return err
			}

			data, err := strategies.Marshal(s)
			if err != nil {
				return err
			}
			return output.RawJSON(data)
		},
	}
}

func newStrategyKindsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the named strategy kinds and their legs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			type kindInfo struct {
				Kind  strategies.Kind   `json:"kind"`
				Spot  bool              `json:"spot"`
				Slots []strategies.Slot `json:"slots"`
			}
			var kinds []kindInfo
			for _, k := range strategies.Kinds() {
				slots, spot, err := strategies.Shape(k)
				if err != nil {
					return err
				}
				kinds = append(kinds, kindInfo{Kind: k, Spot: spot, Slots: slots})
			}

			if output.IsJSON() {
				return output.JSON(kinds)
			}

			table := NewTable(output, "Kind", "Spot", "Legs")
			for _, k := range kinds {
				legs := ""
				for i, s := range k.Slots {
					if i > 0 {
						legs += ", "
					}
					legs += fmt.Sprintf("%dx %s %s", s.Ratio, s.Side, s.Style)
				}
				table.AddRow(string(k.Kind), boolString(k.Spot), legs)
			}
			table.Render()
			return nil
		},
	}
}

func newPayoffCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payoff <file>",
		Short: "Show the P&L at expiration across prices",
		Long: `Show the expiration P&L of a strategy over the price range that covers
its strikes and break-even points.`,
		Example: `  optionstrat payoff straddle.yaml
  optionstrat payoff condor.yaml --step 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			s, err := LoadStrategy(args[0])
			if err != nil {
				output.Error("Failed to load strategy: %v", err)
				return err
			}

			step, _ := cmd.Flags().GetFloat64("step")
			if step <= 0 {
				step = app.Config.Analysis.BestRangeStep
			}
			stepValue, err := positive.NewFromFloat(step)
			if err != nil {
				return err
			}

			prices, err := strategies.BestRangeToShow(s, stepValue)
			if err != nil {
				output.Error("Failed to compute price range: %v", err)
				return err
			}

			if output.IsJSON() {
				curve := strategies.PnLCurve(s, prices)
				points := make([]map[string]interface{}, len(prices))
				for i, p := range prices {
					points[i] = map[string]interface{}{"price": p, "pnl": curve[i]}
				}
				return output.JSON(map[string]interface{}{
					"break_even_points": s.BreakEvenPoints(),
					"points":            points,
				})
			}

			output.Bold("%s payoff at expiration", s.Name())
			output.Dim("Break-even: %s", utils.FormatPrices(s.BreakEvenPoints(), output.precision))
			output.Println(strategies.PnLTable(s, prices))
			return nil
		},
	}

	cmd.Flags().Float64("step", 0, "price step (default: analysis.best_range_step)")
	return cmd
}

// strategyReport is the JSON view of strategy show.
type strategyReport struct {
	Name            string              `json:"name"`
	Kind            strategies.Kind     `json:"kind"`
	Symbol          string              `json:"symbol"`
	UnderlyingPrice positive.Positive   `json:"underlying_price"`
	BreakEvenPoints []positive.Positive `json:"break_even_points"`
	MaxProfit       *positive.Positive  `json:"max_profit,omitempty"`
	MaxLoss         *positive.Positive  `json:"max_loss,omitempty"`
	ProfitRatio     *positive.Positive  `json:"profit_ratio,omitempty"`
	NetCost         string              `json:"net_cost"`
	Fees            positive.Positive   `json:"fees"`
}

func newStrategyReport(s strategies.Strategy) strategyReport {
	r := strategyReport{
		Name:            s.Name(),
		Kind:            s.Kind(),
		Symbol:          s.Symbol(),
		UnderlyingPrice: s.UnderlyingPrice(),
		BreakEvenPoints: s.BreakEvenPoints(),
		NetCost:         strategies.NetCost(s).String(),
		Fees:            strategies.Fees(s),
	}
	if mp, err := s.MaxProfit(); err == nil {
		r.MaxProfit = &mp
	}
	if ml, err := s.MaxLoss(); err == nil {
		r.MaxLoss = &ml
	}
	if ratio, err := strategies.ProfitRatio(s); err == nil {
		r.ProfitRatio = &ratio
	}
	return r
}
