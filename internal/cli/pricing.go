package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"optionstrat/internal/options"
	"optionstrat/internal/pricing"
	"optionstrat/pkg/utils"
)

// addPricingCommands adds single-option pricing commands.
func addPricingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newGreeksCmd(app))
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a single option",
		Long: `Price a single option under the model selected by its type.

European and American options are priced in closed form and on a binomial
tree; exotic types take their parameters from --exotic.`,
		Example: `  optionstrat price --style call --spot 100 --strike 105 --days 30 --vol 0.25
  optionstrat price --type American --style put --spot 50 --strike 55 --days 90 --vol 0.3
  optionstrat price --type '{"Barrier":{"kind":"UpAndOut","level":120}}' --spot 100 --strike 100 --vol 0.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			opt, err := optionFromFlags(cmd)
			if err != nil {
				output.Error("Invalid option: %v", err)
				return err
			}

			price, err := app.Pricing.Price(opt)
			if err != nil {
				output.Error("Pricing failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"option_type": opt.Type().TypeName(),
					"style":       opt.Style,
					"side":        opt.Side,
					"price":       price,
				})
			}

			output.Bold("%s %s %s", opt.Side, opt.Type().TypeName(), opt.Style)
			output.KeyValues([][2]string{
				{"Underlying", output.Price(opt.UnderlyingPrice)},
				{"Strike", output.Price(opt.StrikePrice)},
				{"Days", fmt.Sprintf("%.1f", opt.Years()*options.DaysPerYear)},
				{"Volatility", utils.FormatProbability(opt.ImpliedVolatility)},
				{"Price", output.PnL(price)},
			})
			return nil
		},
	}

	addOptionFlags(cmd)
	return cmd
}

func newGreeksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Compute option Greeks",
		Long: `Compute delta, gamma, theta, vega and rho of a single option.

Values are signed by side and scaled by quantity.`,
		Example: `  optionstrat greeks --style call --spot 100 --strike 100 --days 30 --vol 0.2
  optionstrat greeks --style put --side short --qty 2 --spot 100 --strike 95 --vol 0.3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			opt, err := optionFromFlags(cmd)
			if err != nil {
				output.Error("Invalid option: %v", err)
				return err
			}

			greeks, err := app.Pricing.Greeks(opt)
			if err != nil {
				output.Error("Greeks failed: %v", err)
				return err
			}

			greeks = holdingGreeks(greeks, opt)
			if output.IsJSON() {
				return output.JSON(greeks)
			}

			displayGreeks(output, greeks)
			return nil
		},
	}

	addOptionFlags(cmd)
	return cmd
}

func displayGreeks(output *Output, g pricing.Greeks) {
	table := NewTable(output, "Greek", "Value")
	table.AddRow("Delta", utils.FormatGreek(g.Delta))
	table.AddRow("Gamma", utils.FormatGreek(g.Gamma))
	table.AddRow("Theta", utils.FormatGreek(g.Theta))
	table.AddRow("Vega", utils.FormatGreek(g.Vega))
	table.AddRow("Rho", utils.FormatGreek(g.Rho))
	table.Render()
}

// holdingGreeks signs per-unit Greeks by side and scales them by quantity.
func holdingGreeks(g pricing.Greeks, opt *options.Options) pricing.Greeks {
	k := opt.Quantity.Decimal()
	if opt.Side == options.Short {
		k = k.Neg()
	}
	return pricing.Greeks{
		Delta: g.Delta.Mul(k),
		Gamma: g.Gamma.Mul(k),
		Theta: g.Theta.Mul(k),
		Vega:  g.Vega.Mul(k),
		Rho:   g.Rho.Mul(k),
	}
}

func addOptionFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "European", "option type name or tagged JSON, e.g. '{\"Asian\":{\"averaging\":\"Arithmetic\"}}'")
	cmd.Flags().String("style", "call", "call or put")
	cmd.Flags().String("side", "long", "long or short")
	cmd.Flags().String("symbol", "", "underlying symbol")
	cmd.Flags().Float64("spot", 100, "underlying price")
	cmd.Flags().Float64("strike", 100, "strike price")
	cmd.Flags().Float64("days", 30, "days to expiration")
	cmd.Flags().Float64("vol", 0.2, "implied volatility")
	cmd.Flags().Float64("rate", 0, "risk-free rate")
	cmd.Flags().Float64("div", 0, "dividend yield")
	cmd.Flags().Float64("qty", 1, "quantity")
	cmd.Flags().String("exotic", "", "exotic parameters as JSON")
}

// optionFromFlags assembles and validates an option from addOptionFlags.
func optionFromFlags(cmd *cobra.Command) (*options.Options, error) {
	flags := cmd.Flags()
	styleRaw, _ := flags.GetString("style")
	sideRaw, _ := flags.GetString("side")
	typeRaw, _ := flags.GetString("type")
	exoticRaw, _ := flags.GetString("exotic")
	symbol, _ := flags.GetString("symbol")
	spot, _ := flags.GetFloat64("spot")
	strike, _ := flags.GetFloat64("strike")
	days, _ := flags.GetFloat64("days")
	vol, _ := flags.GetFloat64("vol")
	rate, _ := flags.GetFloat64("rate")
	div, _ := flags.GetFloat64("div")
	qty, _ := flags.GetFloat64("qty")

	style, err := options.ParseStyle(styleRaw)
	if err != nil {
		return nil, err
	}
	side, err := options.ParseSide(sideRaw)
	if err != nil {
		return nil, err
	}
	optType, err := parseOptionType(typeRaw)
	if err != nil {
		return nil, err
	}

	parsed, err := positives(map[string]float64{"spot": spot, "strike": strike, "vol": vol, "div": div, "qty": qty})
	if err != nil {
		return nil, err
	}

	opt := options.NewEuropean(side, style, symbol, parsed["spot"], parsed["strike"], options.Days(days),
		parsed["vol"], parsed["qty"], decimal.NewFromFloat(rate), parsed["div"])
	opt.OptionType = optType

	if exoticRaw != "" {
		var params options.ExoticParams
		if err := json.Unmarshal([]byte(exoticRaw), &params); err != nil {
			return nil, fmt.Errorf("--exotic: %w", err)
		}
		opt.ExoticParams = &params
	}

	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

// parseOptionType accepts a bare variant name or the tagged JSON form.
func parseOptionType(raw string) (options.OptionType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return options.European{}, nil
	}
	if !strings.HasPrefix(raw, "{") {
		raw = fmt.Sprintf("{%q:{}}", raw)
	}
	return options.UnmarshalOptionType([]byte(raw))
}
