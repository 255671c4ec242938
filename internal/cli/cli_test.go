package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionstrat/internal/config"
	"optionstrat/internal/errors"
	"optionstrat/internal/options"
	"optionstrat/internal/strategies"
)

const bullCallSpread = `
kind: BullCallSpread
symbol: TEST
underlying_price: 100
days: 365
implied_volatility: 0.2
legs:
  - {strike: 90, premium: 5.71, open_fee: 1, close_fee: 1}
  - {strike: 110, premium: 5.71, open_fee: 1, close_fee: 1}
`

const syntheticPut = `{
  "kind": "Custom",
  "name": "synthetic put",
  "symbol": "TEST",
  "underlying_price": 100,
  "days": 30,
  "implied_volatility": 0.25,
  "spot": {"side": "short", "quantity": 1, "cost_basis": 100},
  "legs": [{"style": "call", "side": "long", "strike": 100, "premium": 3}]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(config.Default(), zerolog.Nop())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, target interface{}, args ...string) {
	t.Helper()
	out, err := run(t, append(args, "--json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), target), out)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestVersion(t *testing.T) {
	var got map[string]string
	runJSON(t, &got, "version")
	assert.Equal(t, Version, got["version"])

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "optionstrat v"+Version)
}

func TestConfigCommands(t *testing.T) {
	var valid map[string]bool
	runJSON(t, &valid, "config", "validate")
	assert.True(t, valid["valid"])

	var path map[string]string
	runJSON(t, &path, "config", "path", "--config", "/tmp/optionstrat")
	assert.Equal(t, "/tmp/optionstrat/config.toml", path["path"])

	out, err := run(t, "config", "template")
	require.NoError(t, err)
	assert.Contains(t, out, "[optimizer]")

	out, err = run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Simpson intervals")
}

func TestPriceCommand(t *testing.T) {
	var got map[string]interface{}
	runJSON(t, &got, "price", "--style", "call", "--spot", "100", "--strike", "100",
		"--days", "365", "--vol", "0.2", "--rate", "0.05")
	assert.Equal(t, "European", got["option_type"])
	assert.InDelta(t, 10.4506, got["price"].(float64), 1e-3)

	runJSON(t, &got, "price", "--type", "American", "--style", "put", "--spot", "100", "--strike", "100",
		"--days", "365", "--vol", "0.2", "--rate", "0.05")
	assert.Equal(t, "American", got["option_type"])
	// early exercise premium over the European 5.5735
	assert.Greater(t, got["price"].(float64), 5.5735)

	_, err := run(t, "price", "--style", "straddle")
	assert.Error(t, err)
	_, err = run(t, "price", "--spot", "-1")
	assert.Error(t, err)
}

func TestGreeksCommand(t *testing.T) {
	var long, short map[string]float64
	runJSON(t, &long, "greeks", "--style", "call", "--spot", "100", "--strike", "100", "--days", "365", "--vol", "0.2")
	runJSON(t, &short, "greeks", "--style", "call", "--side", "short", "--qty", "2",
		"--spot", "100", "--strike", "100", "--days", "365", "--vol", "0.2")

	assert.InDelta(t, 0.5398, long["delta"], 1e-3)
	assert.InDelta(t, -2*long["delta"], short["delta"], 1e-9)
	assert.Greater(t, long["gamma"], 0.0)
}

func TestParseOptionType(t *testing.T) {
	got, err := parseOptionType("American")
	require.NoError(t, err)
	assert.Equal(t, options.American{}, got)

	got, err = parseOptionType(`{"Barrier":{"kind":"UpAndOut","level":120}}`)
	require.NoError(t, err)
	assert.Equal(t, options.Barrier{Kind: options.UpAndOut, Level: 120}, got)

	got, err = parseOptionType("")
	require.NoError(t, err)
	assert.Equal(t, options.European{}, got)

	_, err = parseOptionType("Vanilla")
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy([]byte(bullCallSpread))
	require.NoError(t, err)
	assert.Equal(t, strategies.KindBullCallSpread, s.Kind())
	require.Len(t, s.BreakEvenPoints(), 1)
	assert.InDelta(t, 94, s.BreakEvenPoints()[0].Float64(), 1e-6)

	custom, err := ParseStrategy([]byte(syntheticPut))
	require.NoError(t, err)
	assert.Equal(t, strategies.KindCustom, custom.Kind())
	assert.Len(t, custom.Legs(), 2)
	require.Len(t, custom.BreakEvenPoints(), 1)
	assert.InDelta(t, 97, custom.BreakEvenPoints()[0].Float64(), 1e-6)

	// exported form loads back
	data, err := strategies.Marshal(s)
	require.NoError(t, err)
	back, err := ParseStrategy(data)
	require.NoError(t, err)
	assert.Equal(t, s.Kind(), back.Kind())

	_, err = ParseStrategy([]byte("kind: Butterfly\n"))
	assert.True(t, errors.Is(err, errors.ErrInputValidation))

	_, err = ParseStrategy([]byte("kind: LongCall\nunderlying_price: 100\nlegs:\n  - {strike: -5}\n"))
	assert.Error(t, err)
}

func TestStrategyShowAndPayoff(t *testing.T) {
	path := writeFile(t, "spread.yaml", bullCallSpread)

	var report strategyReport
	runJSON(t, &report, "strategy", "show", path)
	assert.Equal(t, strategies.KindBullCallSpread, report.Kind)
	require.NotNil(t, report.MaxProfit)
	require.NotNil(t, report.MaxLoss)
	assert.InDelta(t, 16, report.MaxProfit.Float64(), 1e-9)
	assert.InDelta(t, 4, report.MaxLoss.Float64(), 1e-9)
	require.NotNil(t, report.ProfitRatio)
	assert.InDelta(t, 400, report.ProfitRatio.Float64(), 1e-9)

	var payoff struct {
		BreakEvenPoints []float64 `json:"break_even_points"`
		Points          []struct {
			Price float64 `json:"price"`
			PnL   float64 `json:"pnl"`
		} `json:"points"`
	}
	runJSON(t, &payoff, "payoff", path, "--step", "5")
	require.Len(t, payoff.BreakEvenPoints, 1)
	assert.InDelta(t, 94, payoff.BreakEvenPoints[0], 1e-6)
	require.NotEmpty(t, payoff.Points)
	for _, p := range payoff.Points {
		assert.GreaterOrEqual(t, p.PnL, -4.0-1e-9)
		assert.LessOrEqual(t, p.PnL, 16.0+1e-9)
	}

	out, err := run(t, "payoff", path)
	require.NoError(t, err)
	assert.Contains(t, out, "94")

	out, err = run(t, "strategy", "export", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"BullCallSpread"`)

	_, err = run(t, "strategy", "show", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStrategyKinds(t *testing.T) {
	var kinds []struct {
		Kind strategies.Kind `json:"kind"`
		Spot bool            `json:"spot"`
	}
	runJSON(t, &kinds, "strategy", "kinds")
	assert.Len(t, kinds, len(strategies.Kinds()))
}

func TestNeutralCommand(t *testing.T) {
	path := writeFile(t, "spread.yaml", bullCallSpread)

	var got struct {
		Delta struct {
			NetDelta  float64 `json:"net_delta"`
			IsNeutral bool    `json:"is_neutral"`
		} `json:"delta"`
		Adjustments []json.RawMessage `json:"adjustments"`
	}
	runJSON(t, &got, "neutral", path)
	// long the lower strike: net delta is positive
	assert.Greater(t, got.Delta.NetDelta, 0.0)
	assert.False(t, got.Delta.IsNeutral)
	assert.NotEmpty(t, got.Adjustments)

	out, err := run(t, "neutral", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Net delta")
}

func TestProbabilityCommand(t *testing.T) {
	path := writeFile(t, "spread.yaml", bullCallSpread)

	var got struct {
		ProbabilityOfProfit float64 `json:"probability_of_profit"`
		Ranges              []struct {
			Probability float64 `json:"probability"`
		} `json:"ranges"`
	}
	runJSON(t, &got, "probability", path, "--vol", "0.2")
	assert.Greater(t, got.ProbabilityOfProfit, 0.0)
	assert.Less(t, got.ProbabilityOfProfit, 1.0)

	sum := 0.0
	for _, r := range got.Ranges {
		sum += r.Probability
	}
	assert.InDelta(t, 1, sum, 1e-3)

	out, err := run(t, "probability", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Probability of profit")
}

func TestChainBuildShowBest(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "chain", "build", "--symbol", "TEST", "--spot", "100", "--strikes", "6", "--vol", "0.25")
	require.NoError(t, err)
	path := filepath.Join(dir, "chain.json")
	require.NoError(t, os.WriteFile(path, []byte(out), 0644))

	out, err = run(t, "chain", "show", path, "--strikes", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Option Chain - TEST")

	var best struct {
		Score     float64   `json:"score"`
		Strikes   []float64 `json:"strikes"`
		Evaluated int       `json:"evaluated"`
	}
	runJSON(t, &best, "chain", "best", path, "--kind", "BullCallSpread")
	assert.Greater(t, best.Evaluated, 0)
	require.Len(t, best.Strikes, 2)
	assert.Less(t, best.Strikes[0], best.Strikes[1])

	csvOut, err := run(t, "chain", "build", "--spot", "100", "--strikes", "2", "--format", "csv")
	require.NoError(t, err)
	csvPath := filepath.Join(dir, "chain.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csvOut), 0644))

	_, err = run(t, "chain", "show", csvPath)
	assert.True(t, errors.Is(err, errors.ErrChain))
	_, err = run(t, "chain", "show", csvPath, "--chain-underlying", "100")
	assert.NoError(t, err)

	_, err = run(t, "chain", "best", path, "--kind", "Custom")
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
	_, err = run(t, "chain", "build", "--format", "xml")
	assert.Error(t, err)
}

func TestOptimizeCommand(t *testing.T) {
	path := writeFile(t, "spread.yaml", bullCallSpread)

	var plan struct {
		Actions       []json.RawMessage `json:"actions"`
		ResidualDelta float64           `json:"residual_delta"`
	}
	runJSON(t, &plan, "optimize", path)
	assert.NotEmpty(t, plan.Actions)

	_, err := run(t, "optimize", path, "--target", "vanna")
	assert.True(t, errors.Is(err, errors.ErrInputValidation))
}
