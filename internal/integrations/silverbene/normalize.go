// internal/integrations/silverbene/normalize.go
package silverbene

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Aliasy pól – API dostawcy zwraca te same dane pod różnymi kluczami.
var (
	keysSKU        = []string{"sku", "product_sku", "goods_sn", "spu", "item_sku", "SKU"}
	keysName       = []string{"name", "title", "product_name", "goods_name", "product_title"}
	keysDesc       = []string{"description", "desc", "detail", "content", "product_description", "product_detail", "product_content", "goods_desc"}
	keysShortDesc  = []string{"short_description", "short_desc", "summary", "brief"}
	keysPrice      = []string{"price", "regular_price", "selling_price", "sale_price", "shop_price", "market_price"}
	keysStock      = []string{"stock", "stock_qty", "stock_quantity", "quantity", "qty", "inventory", "real_qty", "option_qty"}
	keysImages     = []string{"images", "image_urls", "image_list", "img_urls", "img_list", "product_images", "gallery", "imgs", "pictures", "photos", "image", "thumb"}
	keysImageItem  = []string{"url", "image", "image_url", "thumb", "src"}
	keysOptions    = []string{"options", "option_list", "option", "variants", "skus", "items"}
	keysCategories = []string{"categories", "category", "product_category"}
	keysTags       = []string{"tags", "tag_list"}
	keysAttributes = []string{"attributes", "attribute_list", "product_attributes"}
	keysStatus     = []string{"status", "product_status"}
	keysID         = []string{"id", "product_id"}
	keysParentSKU  = []string{"parent_sku", "spu", "goods_sn"}
	keysParentID   = []string{"parent_id", "product_id"}

	keysOptionID    = []string{"option_id", "id", "variant_id"}
	keysOptionSKU   = []string{"sku", "option_sku", "variant_sku"}
	keysOptionPrice = []string{"price", "selling_price", "sale_price", "shop_price"}
	keysOptionStock = []string{"stock", "qty", "stock_qty", "inventory", "option_qty"}
	keysOptionImage = []string{"image", "image_url", "img", "thumb", "option_image"}
	keysColor       = []string{"color", "colour", "Color", "Colour"}
)

// unwrapData wyciąga właściwą listę z różnych kontenerów odpowiedzi.
func unwrapData(res gjson.Result) gjson.Result {
	if data := res.Get("data"); data.Exists() && data.Type != gjson.Null {
		for _, inner := range []string{"data", "list", "items"} {
			if d := data.Get(inner); d.IsArray() || d.IsObject() {
				return d
			}
		}
		if data.IsArray() || data.IsObject() {
			return data
		}
	}
	for _, k := range []string{"items", "products", "data_list"} {
		if v := res.Get(k); v.IsArray() || v.IsObject() {
			return v
		}
	}
	return res
}

// elements – tablica albo wartości obiektu (API czasem zwraca mapę id -> item).
func elements(v gjson.Result) []gjson.Result {
	if v.IsArray() {
		return v.Array()
	}
	if v.IsObject() {
		var out []gjson.Result
		v.ForEach(func(_, val gjson.Result) bool {
			out = append(out, val)
			return true
		})
		return out
	}
	return nil
}

func normalizeProducts(res gjson.Result) []Product {
	var out []Product
	for _, item := range elements(unwrapData(res)) {
		if !item.IsObject() {
			continue
		}
		out = append(out, normalizeProduct(item))
	}
	return out
}

func normalizeProduct(item gjson.Result) Product {
	m := item.Map()
	p := Product{
		SKU:              str(m, keysSKU...),
		Name:             str(m, keysName...),
		Description:      str(m, keysDesc...),
		ShortDescription: str(m, keysShortDesc...),
		Weight:           str(m, "weight"),
		Length:           str(m, "length"),
		Width:            str(m, "width"),
		Height:           str(m, "height"),
		Status:           str(m, keysStatus...),
		ID:               str(m, keysID...),
		Raw:              item,
	}
	if v, ok := first(m, keysPrice...); ok {
		p.Price, p.HasPrice = parseDecimal(v)
	}
	if v, ok := first(m, keysStock...); ok {
		p.Stock, p.HasStock = parseInt(v)
	}
	p.ParentSKU = firstOther(m, p.SKU, keysParentSKU...)
	p.ParentID = firstOther(m, p.SKU, keysParentID...)
	p.Images = extractImages(m)
	p.Options = extractOptions(m)
	if v, ok := first(m, keysCategories...); ok {
		p.Categories = stringList(v)
	}
	if v, ok := first(m, keysTags...); ok {
		p.Tags = stringList(v)
	}
	if v, ok := first(m, keysAttributes...); ok {
		p.Attributes = extractAttributes(v)
	}
	return p
}

func extractImages(m map[string]gjson.Result) []string {
	for _, k := range keysImages {
		v, ok := first(m, k)
		if !ok {
			continue
		}
		if v.Type == gjson.String {
			s := strings.TrimSpace(v.Str)
			if gjson.Valid(s) {
				if parsed := gjson.Parse(s); parsed.IsArray() {
					v = parsed
				}
			}
		}

		var urls []string
		switch {
		case v.IsArray():
			for _, it := range v.Array() {
				if it.IsObject() {
					if u := str(it.Map(), keysImageItem...); u != "" {
						urls = append(urls, u)
					}
				} else if it.Type == gjson.String {
					urls = append(urls, it.Str)
				}
			}
		case v.IsObject():
			if u := str(v.Map(), keysImageItem...); u != "" {
				urls = append(urls, u)
			}
		case v.Type == gjson.String:
			urls = strings.Split(v.Str, ",")
		}

		if urls = uniqueNonEmpty(urls); len(urls) > 0 {
			return urls
		}
	}
	return nil
}

func extractOptions(m map[string]gjson.Result) []Option {
	for _, k := range keysOptions {
		v, ok := m[k]
		if !ok || !(v.IsArray() || v.IsObject()) {
			continue
		}
		var opts []Option
		for _, it := range elements(v) {
			if !it.IsObject() {
				continue
			}
			opts = append(opts, normalizeOption(it))
		}
		if len(opts) > 0 {
			return opts
		}
	}
	return nil
}

var reOptionKey = regexp.MustCompile(`(?i)^option\s*(\d+)\s*(name|value)$`)

func normalizeOption(it gjson.Result) Option {
	m := it.Map()
	o := Option{
		ID:    str(m, keysOptionID...),
		SKU:   str(m, keysOptionSKU...),
		Image: str(m, keysOptionImage...),
		Raw:   it,
	}
	if v, ok := first(m, keysOptionPrice...); ok {
		o.Price, o.HasPrice = parseDecimal(v)
	}
	if v, ok := first(m, keysOptionStock...); ok {
		o.Stock, o.HasStock = parseInt(v)
	}
	if img, ok := first(m, keysOptionImage...); ok && img.IsObject() {
		o.Image = str(img.Map(), keysImageItem...)
	}
	o.Pairs = optionPairs(m)
	return o
}

// optionPairs zbiera "OptionN Name"/"OptionN Value" (kolejność po N),
// plus option_name/option_value i luźne pole color.
func optionPairs(m map[string]gjson.Result) []OptionPair {
	byIdx := map[int]*OptionPair{}
	for k, v := range m {
		sm := reOptionKey.FindStringSubmatch(strings.TrimSpace(k))
		if sm == nil {
			continue
		}
		n, _ := strconv.Atoi(sm[1])
		p := byIdx[n]
		if p == nil {
			p = &OptionPair{}
			byIdx[n] = p
		}
		if strings.EqualFold(sm[2], "name") {
			p.Name = strings.TrimSpace(v.String())
		} else {
			p.Value = strings.TrimSpace(v.String())
		}
	}
	idx := make([]int, 0, len(byIdx))
	for n := range byIdx {
		idx = append(idx, n)
	}
	sort.Ints(idx)

	var pairs []OptionPair
	for _, n := range idx {
		if p := byIdx[n]; p.Name != "" || p.Value != "" {
			pairs = append(pairs, *p)
		}
	}
	if name, val := str(m, "option_name"), str(m, "option_value"); name != "" || val != "" {
		pairs = append(pairs, OptionPair{Name: name, Value: val})
	}
	if c := str(m, keysColor...); c != "" {
		pairs = append(pairs, OptionPair{Name: "Color", Value: c})
	}
	return pairs
}

func extractAttributes(v gjson.Result) []Attribute {
	var out []Attribute
	switch {
	case v.IsObject():
		// {"Material": "925 Silver", "Stone": ["Zircon", "Pearl"]}
		v.ForEach(func(k, val gjson.Result) bool {
			if vals := stringList(val); len(vals) > 0 {
				out = append(out, Attribute{Name: strings.TrimSpace(k.String()), Values: vals})
			}
			return true
		})
	case v.IsArray():
		// [{"name": "Material", "value": "925 Silver"}]
		for _, it := range v.Array() {
			if !it.IsObject() {
				continue
			}
			m := it.Map()
			name := str(m, "name", "attribute_name", "label")
			val, ok := first(m, "value", "values", "options", "attribute_value")
			if name == "" || !ok {
				continue
			}
			if vals := stringList(val); len(vals) > 0 {
				out = append(out, Attribute{Name: name, Values: vals})
			}
		}
	}
	return out
}

// stringList: ["a","b"], [{"name":"a"}], "a, b".
func stringList(v gjson.Result) []string {
	var out []string
	switch {
	case v.IsArray():
		for _, it := range v.Array() {
			if it.IsObject() {
				out = append(out, str(it.Map(), "name", "title", "value"))
			} else {
				out = append(out, it.String())
			}
		}
	case v.IsObject():
		out = append(out, str(v.Map(), "name", "title", "value"))
	default:
		out = strings.Split(v.String(), ",")
	}
	return uniqueNonEmpty(out)
}

// first zwraca pierwszą obecną wartość, która nie jest null ani pustym stringiem.
func first(m map[string]gjson.Result, keys ...string) (gjson.Result, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v.Type == gjson.Null {
			continue
		}
		if v.Type == gjson.String && strings.TrimSpace(v.Str) == "" {
			continue
		}
		return v, true
	}
	return gjson.Result{}, false
}

// firstOther – pierwszy niepusty alias różny od skip.
func firstOther(m map[string]gjson.Result, skip string, keys ...string) string {
	for _, k := range keys {
		if v := str(m, k); v != "" && v != skip {
			return v
		}
	}
	return ""
}

func str(m map[string]gjson.Result, keys ...string) string {
	v, ok := first(m, keys...)
	if !ok || v.IsArray() || v.IsObject() {
		return ""
	}
	return strings.TrimSpace(v.String())
}

var (
	reLeadingNumber = regexp.MustCompile(`^-?\d+(?:[.,]\d+)?`)
	reLeadingInt    = regexp.MustCompile(`^-?\d+`)
)

// parseDecimal – "12.50", 12.5, "12,50", "12.50 USD".
func parseDecimal(v gjson.Result) (decimal.Decimal, bool) {
	num := reLeadingNumber.FindString(strings.TrimSpace(v.String()))
	if num == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(num, ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseInt – "3", 3, "3.0", "3 pcs".
func parseInt(v gjson.Result) (int, bool) {
	if v.Type == gjson.Number {
		return int(v.Int()), true
	}
	num := reLeadingInt.FindString(strings.TrimSpace(v.String()))
	if num == "" {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return n, true
}

func uniqueNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// OptionFromProduct – pozycja na poziomie opcji (osobny SKU w feedzie)
// zamieniona na opcję produktu-rodzica.
func OptionFromProduct(p Product) Option {
	o := Option{
		ID:       p.ID,
		SKU:      p.SKU,
		Price:    p.Price,
		HasPrice: p.HasPrice,
		Stock:    p.Stock,
		HasStock: p.HasStock,
		Raw:      p.Raw,
	}
	if len(p.Images) > 0 {
		o.Image = p.Images[0]
	}
	if p.Raw.IsObject() {
		m := p.Raw.Map()
		o.Pairs = optionPairs(m)
		if id := str(m, "option_id", "variant_id"); id != "" {
			o.ID = id
		}
	}
	return o
}
