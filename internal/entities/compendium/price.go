package compendium

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Denomination is a coin unit
type Denomination string

// Coin denominations
const (
	DenominationCopper   Denomination = "cp"
	DenominationSilver   Denomination = "sp"
	DenominationElectrum Denomination = "ep"
	DenominationGold     Denomination = "gp"
	DenominationPlatinum Denomination = "pp"
)

// copperRates converts one coin of each denomination to copper
var copperRates = map[Denomination]int{
	DenominationCopper:   1,
	DenominationSilver:   10,
	DenominationElectrum: 50,
	DenominationGold:     100,
	DenominationPlatinum: 1000,
}

// ParseDenomination accepts the short codes and their long names
func ParseDenomination(s string) (Denomination, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cp", "copper":
		return DenominationCopper, true
	case "sp", "silver":
		return DenominationSilver, true
	case "ep", "electrum":
		return DenominationElectrum, true
	case "gp", "gold", "":
		return DenominationGold, true
	case "pp", "platinum":
		return DenominationPlatinum, true
	default:
		return "", false
	}
}

// PriceKind tags which representation a Price carries
type PriceKind int

const (
	// PriceKindUnknown means no usable price
	PriceKindUnknown PriceKind = iota
	// PriceKindSingle is an amount in one denomination
	PriceKindSingle
	// PriceKindBreakdown is a split across several denominations
	PriceKindBreakdown
)

// Price is the normalized price of a document. Host-store shapes are parsed
// once at the ingestion boundary (UnmarshalJSON, NewPrice, NewBreakdownPrice)
// and everything downstream only calls Copper.
type Price struct {
	Kind         PriceKind
	Amount       float64
	Denomination Denomination
	Breakdown    map[Denomination]int
}

// NewPrice creates a single-denomination price
func NewPrice(amount float64, denomination Denomination) *Price {
	return &Price{
		Kind:         PriceKindSingle,
		Amount:       amount,
		Denomination: denomination,
	}
}

// NewBreakdownPrice creates a multi-denomination price
func NewBreakdownPrice(breakdown map[Denomination]int) *Price {
	copied := make(map[Denomination]int, len(breakdown))
	for k, v := range breakdown {
		copied[k] = v
	}
	return &Price{
		Kind:      PriceKindBreakdown,
		Breakdown: copied,
	}
}

// Copper returns the copper-equivalent amount.
// ok is false when the price is missing or uses an unknown denomination.
func (p *Price) Copper() (int, bool) {
	if p == nil {
		return 0, false
	}

	switch p.Kind {
	case PriceKindSingle:
		rate, exists := copperRates[p.Denomination]
		if !exists || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
			return 0, false
		}
		return int(math.Round(p.Amount * float64(rate))), true
	case PriceKindBreakdown:
		if len(p.Breakdown) == 0 {
			return 0, false
		}
		total := 0
		for denom, count := range p.Breakdown {
			rate, exists := copperRates[denom]
			if !exists {
				return 0, false
			}
			total += count * rate
		}
		return total, true
	default:
		return 0, false
	}
}

// Clone returns a deep copy
func (p *Price) Clone() *Price {
	if p == nil {
		return nil
	}
	c := *p
	if p.Breakdown != nil {
		c.Breakdown = make(map[Denomination]int, len(p.Breakdown))
		for k, v := range p.Breakdown {
			c.Breakdown[k] = v
		}
	}
	return &c
}

// String renders the price for logs and CLI output
func (p *Price) String() string {
	if p == nil {
		return "-"
	}
	switch p.Kind {
	case PriceKindSingle:
		return fmt.Sprintf("%s %s", strconv.FormatFloat(p.Amount, 'f', -1, 64), p.Denomination)
	case PriceKindBreakdown:
		parts := make([]string, 0, len(p.Breakdown))
		for _, denom := range []Denomination{
			DenominationPlatinum, DenominationGold, DenominationElectrum, DenominationSilver, DenominationCopper,
		} {
			if n := p.Breakdown[denom]; n != 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, denom))
			}
		}
		return strings.Join(parts, " ")
	default:
		return "-"
	}
}

type singlePriceJSON struct {
	Value        float64      `json:"value"`
	Denomination Denomination `json:"denomination"`
}

// MarshalJSON emits the canonical shape: {"value","denomination"} for single
// prices and a denomination map for breakdowns.
func (p Price) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PriceKindSingle:
		return json.Marshal(singlePriceJSON{Value: p.Amount, Denomination: p.Denomination})
	case PriceKindBreakdown:
		out := make(map[string]int, len(p.Breakdown))
		for k, v := range p.Breakdown {
			out[string(k)] = v
		}
		return json.Marshal(out)
	default:
		return []byte("null"), nil
	}
}

var priceStringPattern = regexp.MustCompile(`^([0-9][0-9,\s]*(?:\.[0-9]+)?)\s*([a-zA-Z]*)$`)

// UnmarshalJSON accepts every price shape the host stores produce:
//
//	{"value": 15, "denomination": "gp"}
//	{"quantity": 15, "unit": "gp"}
//	{"gp": 1, "sp": 5}
//	"15 gp"
//	15
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*p = Price{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, ok := ParsePriceString(s)
		if ok {
			*p = *parsed
		}
		return nil
	case '{':
		return p.unmarshalObject(data)
	default:
		var amount float64
		if err := json.Unmarshal(data, &amount); err != nil {
			return nil
		}
		*p = *NewPrice(amount, DenominationGold)
		return nil
	}
}

func (p *Price) unmarshalObject(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	amountKey, unitKey := "", ""
	switch {
	case fields["value"] != nil:
		amountKey, unitKey = "value", "denomination"
	case fields["quantity"] != nil:
		amountKey, unitKey = "quantity", "unit"
	}

	if amountKey != "" {
		amount, ok := rawNumber(fields[amountKey])
		if !ok {
			return nil
		}
		var unit string
		if raw := fields[unitKey]; raw != nil {
			_ = json.Unmarshal(raw, &unit) // nolint:errcheck // non-string units fall back to gp
		}
		denom, ok := ParseDenomination(unit)
		if !ok {
			return nil
		}
		*p = *NewPrice(amount, denom)
		return nil
	}

	breakdown := make(map[Denomination]int)
	for key, raw := range fields {
		denom, ok := ParseDenomination(key)
		if !ok || key == "" {
			continue
		}
		amount, ok := rawNumber(raw)
		if !ok {
			continue
		}
		breakdown[denom] += int(math.Round(amount))
	}
	if len(breakdown) > 0 {
		*p = *NewBreakdownPrice(breakdown)
	}
	return nil
}

// rawNumber reads a JSON number or a numeric string
func rawNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParsePriceString parses "15 gp", "1,500gp" or a bare "15" (gold)
func ParsePriceString(s string) (*Price, bool) {
	matches := priceStringPattern.FindStringSubmatch(strings.TrimSpace(s))
	if len(matches) != 3 {
		return nil, false
	}
	numeric := strings.NewReplacer(",", "", " ", "").Replace(matches[1])
	amount, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return nil, false
	}
	denom, ok := ParseDenomination(matches[2])
	if !ok {
		return nil, false
	}
	return NewPrice(amount, denom), true
}
