package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"optionstrat/internal/positive"
	"optionstrat/pkg/utils"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
	precision    int32
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command, app *App) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	enabled := !jsonMode && !noColor && isTerminal()
	precision := int32(2)
	if app != nil && app.Config != nil {
		enabled = enabled && app.Config.UI.ColorEnabled
		precision = app.Config.UI.Precision
	}
	return &Output{
		writer:       cmd.OutOrStdout(),
		jsonMode:     jsonMode,
		colorEnabled: enabled,
		precision:    precision,
	}
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// RawJSON re-indents already encoded JSON.
func (o *Output) RawJSON(data []byte) error {
	return o.JSON(json.RawMessage(data))
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.colored(color.New(color.FgGreen), format, args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.colored(color.New(color.FgRed), format, args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.colored(color.New(color.FgYellow), format, args...)
}

// Bold prints a bold message.
func (o *Output) Bold(format string, args ...interface{}) {
	o.colored(color.New(color.Bold), format, args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.colored(color.New(color.Faint), format, args...)
}

func (o *Output) colored(c *color.Color, format string, args ...interface{}) {
	o.paint(c)
	c.Fprintf(o.writer, format+"\n", args...)
}

func (o *Output) paint(c *color.Color) *color.Color {
	if o.colorEnabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Green returns green colored text.
func (o *Output) Green(text string) string {
	return o.paint(color.New(color.FgGreen)).Sprint(text)
}

// Red returns red colored text.
func (o *Output) Red(text string) string {
	return o.paint(color.New(color.FgRed)).Sprint(text)
}

// Price formats a non-negative amount, ∞ included.
func (o *Output) Price(p positive.Positive) string {
	return utils.FormatPositive(p, o.precision)
}

// PnL formats P&L in green when positive and red when negative.
func (o *Output) PnL(pnl decimal.Decimal) string {
	formatted := utils.FormatPnL(pnl, o.precision)
	switch {
	case pnl.Round(o.precision).IsPositive():
		return o.Green(formatted)
	case pnl.Round(o.precision).IsNegative():
		return o.Red(formatted)
	}
	return formatted
}

// Table wraps a tablewriter bound to the output.
type Table struct {
	tw *tablewriter.Table
}

// NewTable creates a new table with right-aligned cells.
func NewTable(output *Output, headers ...string) *Table {
	tw := tablewriter.NewWriter(output.writer)
	tw.SetHeader(headers)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetAutoFormatHeaders(false)
	if output.colorEnabled {
		colors := make([]tablewriter.Colors, len(headers))
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.Bold}
		}
		tw.SetHeaderColor(colors...)
	}
	return &Table{tw: tw}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.tw.Append(cells)
}

// Render renders the table.
func (t *Table) Render() {
	t.tw.Render()
}

// KeyValues renders label/value pairs without borders.
func (o *Output) KeyValues(pairs [][2]string) {
	tw := tablewriter.NewWriter(o.writer)
	tw.SetBorder(false)
	tw.SetColumnSeparator("")
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	for _, p := range pairs {
		tw.Append([]string{p[0], p[1]})
	}
	tw.Render()
}
