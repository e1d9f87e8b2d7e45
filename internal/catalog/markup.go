// Package catalog zawiera reguły katalogu dostawcy: narzut, grupowanie,
// warianty kolorystyczne i czyszczenie tekstów. Bez I/O.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MarkupPercentage = "percentage"
	MarkupFixed      = "fixed"
	MarkupNone       = "none"
)

var (
	hundred   = decimal.NewFromInt(100)
	threshold = hundred // próg progów narzutu: poniżej / od 100
)

// Pricing – ustawienia narzutu. Progi są opcjonalne (nil = nieustawione).
type Pricing struct {
	MarkupType     string           `json:"price_markup_type"`
	MarkupValue    decimal.Decimal  `json:"price_markup_value"`
	MarkupBelow100 *decimal.Decimal `json:"price_markup_value_below_100"`
	MarkupAbove100 *decimal.Decimal `json:"price_markup_value_above_100"`
	ShippingFee    decimal.Decimal  `json:"pre_markup_shipping_fee"`
}

// Normalize: nieznany typ -> none, ujemne kwoty -> 0.
func (p *Pricing) Normalize() {
	switch t := strings.ToLower(strings.TrimSpace(p.MarkupType)); t {
	case MarkupPercentage, MarkupFixed, MarkupNone:
		p.MarkupType = t
	default:
		p.MarkupType = MarkupNone
	}
	p.MarkupValue = nonNegative(p.MarkupValue)
	p.ShippingFee = nonNegative(p.ShippingFee)
	if p.MarkupBelow100 != nil {
		v := nonNegative(*p.MarkupBelow100)
		p.MarkupBelow100 = &v
	}
	if p.MarkupAbove100 != nil {
		v := nonNegative(*p.MarkupAbove100)
		p.MarkupAbove100 = &v
	}
}

func (p Pricing) valueFor(base decimal.Decimal) decimal.Decimal {
	if base.LessThan(threshold) && p.MarkupBelow100 != nil {
		return *p.MarkupBelow100
	}
	if !base.LessThan(threshold) && p.MarkupAbove100 != nil {
		return *p.MarkupAbove100
	}
	return p.MarkupValue
}

// ApplyMarkup liczy cenę sklepową:
//  1. cena bazowa przycięta do >= 0,
//  2. + opłata wysyłkowa przed narzutem (>= 0),
//  3. narzut procentowy albo stały na sumie; próg 100 liczony od ceny bazowej.
//
// Wynik nigdy nie jest ujemny, zaokrąglony do 2 miejsc.
func ApplyMarkup(base decimal.Decimal, p Pricing) decimal.Decimal {
	base = nonNegative(base)
	subtotal := base.Add(nonNegative(p.ShippingFee))
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	value := p.valueFor(base)
	switch p.MarkupType {
	case MarkupPercentage:
		subtotal = subtotal.Add(subtotal.Mul(value).Div(hundred))
	case MarkupFixed:
		subtotal = subtotal.Add(value)
	}
	return nonNegative(subtotal).Round(2)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
