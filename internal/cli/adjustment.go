package cli

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"optionstrat/internal/chain"
	"optionstrat/internal/deltaneutral"
	"optionstrat/internal/errors"
	"optionstrat/internal/strategies"
	"optionstrat/pkg/utils"
)

// addAdjustmentCommands adds delta-neutral analysis and adjustment commands.
func addAdjustmentCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newNeutralCmd(app))
	rootCmd.AddCommand(newOptimizeCmd(app))
}

func newNeutralCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "neutral <file>",
		Short: "Show net delta and the adjustments that neutralise it",
		Long: `Show the per-leg and net delta of a strategy and the buy, sell or
same-size adjustments that bring it back to neutral.

With --apply the first adjustment allowed by the filter is applied and the
resulting delta is shown.`,
		Example: `  optionstrat neutral straddle.yaml
  optionstrat neutral strangle.yaml --apply sell`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			s, err := LoadStrategy(args[0])
			if err != nil {
				output.Error("Failed to load strategy: %v", err)
				return err
			}

			engine := deltaneutral.NewEngine(app.commandLogger("neutral", s)).WithThreshold(app.Config.Analysis.DeltaThreshold)
			info, err := engine.DeltaNeutrality(s)
			if err != nil {
				output.Error("Delta analysis failed: %v", err)
				return err
			}
			adjustments, err := engine.DeltaAdjustments(s)
			if err != nil {
				output.Error("Delta adjustments failed: %v", err)
				return err
			}

			report := map[string]interface{}{
				"delta":       info,
				"adjustments": adjustments,
			}

			applyRaw, _ := cmd.Flags().GetString("apply")
			var applied *deltaneutral.DeltaAdjustment
			var after deltaneutral.DeltaInfo
			if cmd.Flags().Changed("apply") {
				filter, err := deltaneutral.ParseApplyFilter(applyRaw)
				if err != nil {
					return err
				}
				adj, ok := s.(deltaneutral.Adjustable)
				if !ok {
					return errors.NewUnsupportedError(string(s.Kind()), "apply delta adjustment")
				}
				done, err := engine.ApplyDeltaAdjustments(adj, filter)
				if err != nil {
					output.Error("Failed to apply adjustment: %v", err)
					return err
				}
				applied = &done
				if after, err = engine.DeltaNeutrality(s); err != nil {
					return err
				}
				report["applied"] = done
				report["delta_after"] = after
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			displayDeltaInfo(output, info)
			output.Println()
			output.Bold("Adjustments")
			for _, a := range adjustments {
				output.Printf("  %s\n", a)
			}
			if applied != nil {
				output.Println()
				output.Success("Applied: %s", applied)
				output.Printf("Net delta after: %s (neutral: %s)\n",
					utils.FormatGreek(after.NetDelta), boolString(after.IsNeutral))
			}
			return nil
		},
	}

	cmd.Flags().String("apply", "any", "apply the first adjustment: any, buy, sell, same-size")
	return cmd
}

func displayDeltaInfo(output *Output, info deltaneutral.DeltaInfo) {
	table := NewTable(output, "Leg", "Side", "Style", "Strike", "Qty", "Delta")
	for i, d := range info.IndividualDeltas {
		style := string(d.Style)
		if style == "" {
			style = string(d.Kind)
		}
		table.AddRow(itoa(i), string(d.Side), style, output.Price(d.Strike),
			d.Quantity.String(), utils.FormatGreek(d.Delta))
	}
	table.Render()

	status := output.Red("not neutral")
	if info.IsNeutral {
		status = output.Green("neutral")
	}
	output.Printf("Net delta: %s (%s, threshold %s)\n",
		utils.FormatGreek(info.NetDelta), status, info.Threshold.String())
}

func newOptimizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "Plan trades that reach a Greek target",
		Long: `Search for the cheapest set of trades that brings the strategy's
Greeks to a target. Existing legs can be resized or closed; with --chain new
legs are taken from an option chain; the underlying is used when the
[adjustment] section allows it.

Targets: delta, delta-gamma, full (delta, gamma and vega).`,
		Example: `  optionstrat optimize strangle.yaml
  optionstrat optimize condor.yaml --target delta-gamma --chain chain.json
  optionstrat optimize straddle.yaml --delta 0.25 --apply`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			s, err := LoadStrategy(args[0])
			if err != nil {
				output.Error("Failed to load strategy: %v", err)
				return err
			}

			target, err := targetFromFlags(cmd)
			if err != nil {
				return err
			}

			config, err := app.Config.AdjustmentConfig()
			if err != nil {
				return err
			}

			var oc *chain.OptionChain
			if path, _ := cmd.Flags().GetString("chain"); path != "" {
				if oc, err = loadChain(cmd, path); err != nil {
					output.Error("Failed to load chain: %v", err)
					return err
				}
			}

			engine := deltaneutral.NewEngine(app.commandLogger("optimize", s))
			plan, err := engine.Optimize(s, config, target, oc)
			if err != nil {
				output.Error("No plan found: %v", err)
				return err
			}

			apply, _ := cmd.Flags().GetBool("apply")
			var adjusted strategies.Strategy
			if apply {
				legs, err := deltaneutral.ApplyPlan(s.Legs(), s.UnderlyingPrice(), plan)
				if err != nil {
					output.Error("Failed to apply plan: %v", err)
					return err
				}
				adjusted, err = strategies.NewCustom(s.Name()+" (adjusted)", s.Symbol(), s.UnderlyingPrice(), legs...)
				if err != nil {
					output.Error("Adjusted strategy is invalid: %v", err)
					return err
				}
			}

			if output.IsJSON() {
				if adjusted == nil {
					return output.JSON(plan)
				}
				data, err := strategies.Marshal(adjusted)
				if err != nil {
					return err
				}
				return output.JSON(map[string]interface{}{"plan": plan, "adjusted": json.RawMessage(data)})
			}

			displayPlan(output, target, plan)
			if adjusted != nil {
				output.Println()
				output.Println(strategies.Summary(adjusted))
			}
			return nil
		},
	}

	cmd.Flags().String("target", "delta", "delta, delta-gamma or full")
	cmd.Flags().Float64("delta", 0, "target net delta")
	cmd.Flags().String("chain", "", "option chain file for new legs")
	cmd.Flags().Bool("apply", false, "apply the plan and show the adjusted strategy")
	addChainMetaFlags(cmd)
	return cmd
}

func targetFromFlags(cmd *cobra.Command) (deltaneutral.AdjustmentTarget, error) {
	raw, _ := cmd.Flags().GetString("target")
	var target deltaneutral.AdjustmentTarget
	switch strings.ToLower(raw) {
	case "delta":
		target = deltaneutral.DeltaNeutral()
	case "delta-gamma", "delta_gamma":
		target = deltaneutral.DeltaGammaNeutral()
	case "full":
		target = deltaneutral.FullNeutral()
	default:
		return target, errors.NewValidationError("target", raw, "expected delta, delta-gamma or full")
	}
	if cmd.Flags().Changed("delta") {
		d, _ := cmd.Flags().GetFloat64("delta")
		target = target.WithDelta(decimal.NewFromFloat(d))
	}
	return target, nil
}

func displayPlan(output *Output, target deltaneutral.AdjustmentTarget, plan deltaneutral.AdjustmentPlan) {
	output.Bold("Adjustment plan for %s", target)
	if len(plan.Actions) == 0 {
		output.Success("Target already met, no trades needed")
	}
	for i, a := range plan.Actions {
		output.Printf("  %d. %s\n", i+1, a)
	}
	output.Println()

	g := plan.ResultingGreeks
	output.KeyValues([][2]string{
		{"Estimated cost", output.PnL(plan.EstimatedCost.Neg())},
		{"Residual delta", utils.FormatGreek(plan.ResidualDelta)},
		{"Quality score", plan.QualityScore.StringFixed(4)},
		{"Delta", utils.FormatGreek(g.Delta)},
		{"Gamma", utils.FormatGreek(g.Gamma)},
		{"Vega", utils.FormatGreek(g.Vega)},
		{"Theta", utils.FormatGreek(g.Theta)},
	})
}
