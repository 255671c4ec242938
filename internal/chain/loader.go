package chain

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
)

// Meta describes the chain a CSV file belongs to; CSV files carry rows only.
type Meta struct {
	Symbol          string
	UnderlyingPrice float64
	ExpirationDays  float64
	RiskFreeRate    float64
	DividendYield   float64
}

type rowDoc struct {
	Strike            float64  `json:"strike" yaml:"strike"`
	CallBid           *float64 `json:"call_bid,omitempty" yaml:"call_bid,omitempty"`
	CallAsk           *float64 `json:"call_ask,omitempty" yaml:"call_ask,omitempty"`
	PutBid            *float64 `json:"put_bid,omitempty" yaml:"put_bid,omitempty"`
	PutAsk            *float64 `json:"put_ask,omitempty" yaml:"put_ask,omitempty"`
	ImpliedVolatility *float64 `json:"implied_volatility,omitempty" yaml:"implied_volatility,omitempty"`
	DeltaCall         *float64 `json:"delta_call,omitempty" yaml:"delta_call,omitempty"`
	DeltaPut          *float64 `json:"delta_put,omitempty" yaml:"delta_put,omitempty"`
	Gamma             *float64 `json:"gamma,omitempty" yaml:"gamma,omitempty"`
	Volume            *float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	OpenInterest      *uint64  `json:"open_interest,omitempty" yaml:"open_interest,omitempty"`
}

type chainDoc struct {
	Symbol          string     `json:"symbol" yaml:"symbol"`
	UnderlyingPrice float64    `json:"underlying_price" yaml:"underlying_price"`
	ExpirationDays  float64    `json:"expiration_days,omitempty" yaml:"expiration_days,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
	RiskFreeRate    float64    `json:"risk_free_rate" yaml:"risk_free_rate"`
	DividendYield   float64    `json:"dividend_yield" yaml:"dividend_yield"`
	Rows            []rowDoc   `json:"rows" yaml:"rows"`
}

// csvRow is the CSV layout; empty cells are absent quotes.
type csvRow struct {
	Strike            string `csv:"strike"`
	CallBid           string `csv:"call_bid"`
	CallAsk           string `csv:"call_ask"`
	PutBid            string `csv:"put_bid"`
	PutAsk            string `csv:"put_ask"`
	ImpliedVolatility string `csv:"implied_volatility"`
	DeltaCall         string `csv:"delta_call"`
	DeltaPut          string `csv:"delta_put"`
	Gamma             string `csv:"gamma"`
	Volume            string `csv:"volume"`
	OpenInterest      string `csv:"open_interest"`
}

// ParseJSON decodes a chain document.
func ParseJSON(data []byte) (*OptionChain, error) {
	var doc chainDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrChain, fmt.Sprintf("decode json: %v", err))
	}
	return doc.build()
}

// ParseYAML decodes a chain document.
func ParseYAML(data []byte) (*OptionChain, error) {
	var doc chainDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrChain, fmt.Sprintf("decode yaml: %v", err))
	}
	return doc.build()
}

// ParseCSV decodes CSV rows into a chain described by meta.
func ParseCSV(data []byte, meta Meta) (*OptionChain, error) {
	var rows []*csvRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrChain, fmt.Sprintf("decode csv: %v", err))
	}
	doc := chainDoc{
		Symbol:          meta.Symbol,
		UnderlyingPrice: meta.UnderlyingPrice,
		ExpirationDays:  meta.ExpirationDays,
		RiskFreeRate:    meta.RiskFreeRate,
		DividendYield:   meta.DividendYield,
	}
	for i, r := range rows {
		rd, err := r.toDoc()
		if err != nil {
			return nil, errors.Wrapf(errors.ErrChain, "csv row %d: %v", i+1, err)
		}
		doc.Rows = append(doc.Rows, rd)
	}
	return doc.build()
}

// LoadFile reads a chain from path, choosing the format by extension. meta
// is required for CSV files and ignored otherwise.
func LoadFile(path string, meta *Meta) (*OptionChain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrChain, "read %s: %v", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".csv":
		if meta == nil {
			return nil, errors.Wrapf(errors.ErrChain, "%s: csv chains need symbol and underlying price", path)
		}
		return ParseCSV(data, *meta)
	}
	return nil, errors.Wrapf(errors.ErrChain, "%s: unsupported chain format", path)
}

// WriteCSV writes the rows of c.
func WriteCSV(w io.Writer, c *OptionChain) error {
	rows := make([]*csvRow, 0, c.Len())
	for _, r := range c.rows {
		rows = append(rows, fromRow(r))
	}
	return gocsv.Marshal(&rows, w)
}

// MarshalJSON encodes the chain in the document layout accepted by ParseJSON.
func (c *OptionChain) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toDoc())
}

// MarshalYAML encodes the chain in the document layout accepted by ParseYAML.
func (c *OptionChain) MarshalYAML() (interface{}, error) {
	return c.toDoc(), nil
}

func (c *OptionChain) toDoc() chainDoc {
	doc := chainDoc{
		Symbol:          c.Symbol,
		UnderlyingPrice: c.UnderlyingPrice.Float64(),
		RiskFreeRate:    c.RiskFreeRate.InexactFloat64(),
		DividendYield:   c.DividendYield.Float64(),
	}
	if c.Expiration.IsTime() {
		at := c.Expiration.Time()
		doc.ExpirationDate = &at
	} else {
		doc.ExpirationDays = c.Expiration.DaysLeft()
	}
	for _, r := range c.rows {
		doc.Rows = append(doc.Rows, rowDoc{
			Strike:            r.Strike.Float64(),
			CallBid:           posFloat(r.CallBid),
			CallAsk:           posFloat(r.CallAsk),
			PutBid:            posFloat(r.PutBid),
			PutAsk:            posFloat(r.PutAsk),
			ImpliedVolatility: posFloat(r.ImpliedVolatility),
			DeltaCall:         decFloat(r.DeltaCall),
			DeltaPut:          decFloat(r.DeltaPut),
			Gamma:             decFloat(r.Gamma),
			Volume:            posFloat(r.Volume),
			OpenInterest:      r.OpenInterest,
		})
	}
	return doc
}

func (d chainDoc) build() (*OptionChain, error) {
	underlying, err := positive.NewFromFloat(d.UnderlyingPrice)
	if err != nil || underlying.IsZero() {
		return nil, errors.Wrap(errors.ErrChain, "underlying_price must be greater than zero")
	}
	dividend, err := positive.NewFromFloat(d.DividendYield)
	if err != nil {
		return nil, errors.Wrap(errors.ErrChain, "dividend_yield must be non-negative")
	}
	expiration := options.Days(d.ExpirationDays)
	if d.ExpirationDate != nil {
		expiration = options.At(*d.ExpirationDate)
	}

	c := New(d.Symbol, underlying, expiration, decimal.NewFromFloat(d.RiskFreeRate), dividend)
	for _, rd := range d.Rows {
		row, err := rd.toRow()
		if err != nil {
			return nil, errors.Wrapf(errors.ErrChain, "strike %v: %v", rd.Strike, err)
		}
		c.AddRow(row)
	}
	return c, nil
}

func (rd rowDoc) toRow() (OptionRow, error) {
	strike, err := positive.NewFromFloat(rd.Strike)
	if err != nil || strike.IsZero() {
		return OptionRow{}, fmt.Errorf("strike must be greater than zero")
	}
	row := OptionRow{Strike: strike, OpenInterest: rd.OpenInterest}
	for _, f := range []struct {
		dst  **positive.Positive
		src  *float64
		name string
	}{
		{&row.CallBid, rd.CallBid, "call_bid"},
		{&row.CallAsk, rd.CallAsk, "call_ask"},
		{&row.PutBid, rd.PutBid, "put_bid"},
		{&row.PutAsk, rd.PutAsk, "put_ask"},
		{&row.ImpliedVolatility, rd.ImpliedVolatility, "implied_volatility"},
		{&row.Volume, rd.Volume, "volume"},
	} {
		if f.src == nil {
			continue
		}
		v, err := positive.NewFromFloat(*f.src)
		if err != nil {
			return OptionRow{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = &v
	}
	row.DeltaCall = floatDec(rd.DeltaCall)
	row.DeltaPut = floatDec(rd.DeltaPut)
	row.Gamma = floatDec(rd.Gamma)
	return row, nil
}

func (r *csvRow) toDoc() (rowDoc, error) {
	var rd rowDoc
	strike, err := strconv.ParseFloat(strings.TrimSpace(r.Strike), 64)
	if err != nil {
		return rowDoc{}, fmt.Errorf("strike: %w", err)
	}
	rd.Strike = strike
	for _, f := range []struct {
		dst  **float64
		src  string
		name string
	}{
		{&rd.CallBid, r.CallBid, "call_bid"},
		{&rd.CallAsk, r.CallAsk, "call_ask"},
		{&rd.PutBid, r.PutBid, "put_bid"},
		{&rd.PutAsk, r.PutAsk, "put_ask"},
		{&rd.ImpliedVolatility, r.ImpliedVolatility, "implied_volatility"},
		{&rd.DeltaCall, r.DeltaCall, "delta_call"},
		{&rd.DeltaPut, r.DeltaPut, "delta_put"},
		{&rd.Gamma, r.Gamma, "gamma"},
		{&rd.Volume, r.Volume, "volume"},
	} {
		s := strings.TrimSpace(f.src)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rowDoc{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = &v
	}
	if s := strings.TrimSpace(r.OpenInterest); s != "" {
		oi, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return rowDoc{}, fmt.Errorf("open_interest: %w", err)
		}
		rd.OpenInterest = &oi
	}
	return rd, nil
}

func fromRow(r OptionRow) *csvRow {
	out := &csvRow{
		Strike:            r.Strike.String(),
		CallBid:           posString(r.CallBid),
		CallAsk:           posString(r.CallAsk),
		PutBid:            posString(r.PutBid),
		PutAsk:            posString(r.PutAsk),
		ImpliedVolatility: posString(r.ImpliedVolatility),
		DeltaCall:         decString(r.DeltaCall),
		DeltaPut:          decString(r.DeltaPut),
		Gamma:             decString(r.Gamma),
		Volume:            posString(r.Volume),
	}
	if r.OpenInterest != nil {
		out.OpenInterest = strconv.FormatUint(*r.OpenInterest, 10)
	}
	return out
}

func posFloat(p *positive.Positive) *float64 {
	if p == nil {
		return nil
	}
	v := p.Float64()
	return &v
}

func decFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

func floatDec(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func posString(p *positive.Positive) string {
	if p == nil {
		return ""
	}
	return p.String()
}

func decString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
