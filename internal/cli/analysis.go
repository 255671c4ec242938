package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"optionstrat/internal/positive"
	"optionstrat/internal/probability"
	"optionstrat/pkg/utils"
)

// addAnalysisCommands adds probability and option chain commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newProbabilityCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
}

func newProbabilityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probability <file>",
		Short: "Probability of profit and expected value of a strategy",
		Long: `Split the expiration price axis at the break-even points and integrate a
lognormal price distribution over each zone.

Volatility defaults to the legs' implied volatilities widened by their
dispersion; --vol fixes it. --drift and --confidence tilt the distribution.`,
		Example: `  optionstrat probability condor.yaml
  optionstrat probability straddle.yaml --vol 0.35 --vol-std 0.1
  optionstrat probability spread.yaml --drift 0.08 --confidence 0.6`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			s, err := LoadStrategy(args[0])
			if err != nil {
				output.Error("Failed to load strategy: %v", err)
				return err
			}

			vol, trend, err := distributionFromFlags(cmd)
			if err != nil {
				return err
			}

			analyzer := probability.NewAnalyzer(app.Config.ProbabilityConfig(), app.commandLogger("probability", s))
			res, err := analyzer.Analyze(s, vol, trend)
			if err != nil {
				output.Error("Probability analysis failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}

			displayProbability(output, res)
			return nil
		},
	}

	cmd.Flags().Float64("vol", 0, "base volatility (default: from the legs)")
	cmd.Flags().Float64("vol-std", 0, "relative volatility widening")
	cmd.Flags().Float64("drift", 0, "annual price drift")
	cmd.Flags().Float64("confidence", 1, "weight of the drift in [0, 1]")
	return cmd
}

func distributionFromFlags(cmd *cobra.Command) (*probability.VolatilityAdjustment, *probability.PriceTrend, error) {
	flags := cmd.Flags()
	var vol *probability.VolatilityAdjustment
	if flags.Changed("vol") {
		base, _ := flags.GetFloat64("vol")
		std, _ := flags.GetFloat64("vol-std")
		values, err := positives(map[string]float64{"vol": base, "vol-std": std})
		if err != nil {
			return nil, nil, err
		}
		vol = &probability.VolatilityAdjustment{
			BaseVolatility:   values["vol"],
			StdDevAdjustment: values["vol-std"],
		}
	}

	var trend *probability.PriceTrend
	if flags.Changed("drift") {
		drift, _ := flags.GetFloat64("drift")
		confidence, _ := flags.GetFloat64("confidence")
		trend = &probability.PriceTrend{DriftRate: drift, Confidence: confidence}
	}
	return vol, trend, nil
}

func displayProbability(output *Output, res probability.StrategyProbabilityAnalysis) {
	output.KeyValues([][2]string{
		{"Probability of profit", utils.FormatProbability(res.ProbabilityOfProfit)},
		{"Probability of max profit", utils.FormatProbability(res.ProbabilityOfMaxProfit)},
		{"Probability of max loss", utils.FormatProbability(res.ProbabilityOfMaxLoss)},
		{"Expected value", output.PnL(res.ExpectedValue)},
		{"Risk/reward", utils.FormatRatio(res.RiskRewardRatio)},
		{"Break-even", utils.FormatPrices(res.BreakEvenPoints, output.precision)},
		{"Volatility", fmt.Sprintf("%.2f%%", res.Volatility*100)},
	})
	output.Println()

	table := NewTable(output, "From", "To", "Zone", "Probability", "Expected P&L")
	for _, r := range res.Ranges {
		zone := output.Red("loss")
		if r.IsProfit {
			zone = output.Green("profit")
		}
		table.AddRow(bound(output, r.Lower, "0"), bound(output, r.Upper, utils.InfinitySymbol), zone,
			utils.FormatProbability(r.Probability), output.PnL(r.ExpectedPnL))
	}
	table.Render()
}

func bound(output *Output, p *positive.Positive, open string) string {
	if p == nil {
		return open
	}
	return output.Price(*p)
}
