package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
)

// ColorAttribute – jedyny atrybut wariantów w sklepie.
const ColorAttribute = "Color"

// Variation – wariant kolorystyczny gotowy do zapisania w sklepie.
type Variation struct {
	SKU            string
	OptionID       string
	Color          string // kolor bez oznaczeń próby (14K, S925...)
	AttributeValue string // unikalna wartość atrybutu Color w obrębie produktu
	RegularPrice   decimal.Decimal
	Stock          int
	StockKnown     bool
	Image          string
}

var (
	rePurity = regexp.MustCompile(`(?i)\b(?:\d{1,2}\s?(?:karat|kt|ct|k)|s?925)\b`)
	reColor  = regexp.MustCompile(`(?i)colou?r|warna`)
)

// NormalizeColor usuwa oznaczenia próby i zbędne spacje: "Rose Gold 14K" -> "Rose Gold".
func NormalizeColor(s string) string {
	s = rePurity.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -,/")
}

func optionColor(o silverbene.Option) string {
	for _, p := range o.Pairs {
		if reColor.MatchString(p.Name) && strings.TrimSpace(p.Value) != "" {
			return NormalizeColor(p.Value)
		}
	}
	return ""
}

// ColorVariations buduje warianty z opcji produktu. Wartość atrybutu to kolor,
// a gdy go brak – SKU opcji. Powtórzony kolor dostaje sufiks " (SKU)".
// Cena opcji przechodzi przez narzut; brak ceny opcji -> cena produktu.
func ColorVariations(p silverbene.Product, pricing Pricing) []Variation {
	fallback := decimal.Zero
	if p.HasPrice {
		fallback = p.Price
	}

	var out []Variation
	used := map[string]struct{}{}
	for i, o := range p.Options {
		color := optionColor(o)
		value := color
		if value == "" {
			value = o.SKU
		}
		if value == "" {
			continue
		}
		if _, dup := used[strings.ToLower(value)]; dup {
			suffix := o.SKU
			if suffix == "" || strings.EqualFold(suffix, value) {
				suffix = o.ID
			}
			if suffix == "" {
				suffix = strconv.Itoa(i + 1)
			}
			value = value + " (" + suffix + ")"
		}
		used[strings.ToLower(value)] = struct{}{}

		base := fallback
		if o.HasPrice {
			base = o.Price
		}
		image := o.Image
		if image != "" && !ValidImageURL(image) {
			image = ""
		}
		// opcja rodzica z tym samym SKU: wariant bez własnego SKU (sklep odrzuca duplikaty)
		sku := o.SKU
		if strings.EqualFold(sku, p.SKU) {
			sku = ""
		}
		out = append(out, Variation{
			SKU:            sku,
			OptionID:       o.ID,
			Color:          color,
			AttributeValue: value,
			RegularPrice:   ApplyMarkup(base, pricing),
			Stock:          o.Stock,
			StockKnown:     o.HasStock,
			Image:          image,
		})
	}
	return out
}

// InStock – wariant bez informacji o stanie traktujemy jak dostępny.
func (v Variation) InStock() bool { return !v.StockKnown || v.Stock > 0 }

// AttributeValues – wartości atrybutu Color w kolejności wariantów.
func AttributeValues(vars []Variation) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.AttributeValue)
	}
	return out
}
