// internal/integrations/silverbene/products.go
package silverbene

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// GetProducts pobiera jedną stronę produktów i normalizuje payload.
// Stany opcji są dociągane z option_qty (błąd tego kroku tylko logujemy).
func (c *Client) GetProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	token, err := c.token()
	if err != nil {
		c.log.Error().Msg("API token is missing, cannot fetch products.")
		return nil, err
	}

	query := productQueryValues(q)
	query.Set("token", token)

	endpoint := c.cfg.ProductsEndpoint
	if q.byDate() {
		endpoint = c.cfg.ProductsByDateEndpoint
	}

	res, err := c.Request(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return nil, err
	}
	if !res.Exists() {
		return nil, nil
	}
	if err := c.checkCode(res, "Product request"); err != nil {
		return nil, err
	}

	products := normalizeProducts(res)
	if len(products) == 0 {
		return nil, nil
	}
	return c.enrichOptionQuantities(ctx, products), nil
}

func productQueryValues(q ProductQuery) url.Values {
	v := url.Values{}
	if len(q.SKUs) > 0 {
		var skus []string
		for _, s := range q.SKUs {
			if s = strings.TrimSpace(s); s != "" {
				skus = append(skus, s)
			}
		}
		if len(skus) > 0 {
			v.Set("sku", strings.Join(skus, ","))
		}
	}
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	if q.IsReallyStock != nil {
		v.Set("is_really_stock", strconv.Itoa(*q.IsReallyStock))
	}
	if q.Keywords != "" {
		v.Set("keywords", q.Keywords)
	}
	for k, n := range map[string]int{"page": q.Page, "per_page": q.PerPage, "limit": q.Limit, "offset": q.Offset} {
		if n > 0 {
			v.Set(k, strconv.Itoa(n))
		}
	}
	return v
}

// GetOptionQuantities zwraca option_id -> qty.
func (c *Client) GetOptionQuantities(ctx context.Context, optionIDs []string) (map[string]int, error) {
	ids := uniqueNonEmpty(optionIDs)
	if len(ids) == 0 {
		return map[string]int{}, nil
	}
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("token", token)
	query.Set("option_id", strings.Join(ids, ","))

	res, err := c.Request(ctx, http.MethodGet, c.cfg.OptionQtyEndpoint, query, nil)
	if err != nil {
		return nil, err
	}
	out := map[string]int{}
	if !res.Exists() {
		return out, nil
	}
	if err := c.checkCode(res, "Option quantity request"); err != nil {
		return nil, err
	}

	for _, it := range elements(unwrapData(res)) {
		if !it.IsObject() {
			continue
		}
		m := it.Map()
		id := str(m, keysOptionID...)
		if id == "" {
			continue
		}
		v, ok := first(m, "qty", "stock", "stock_qty", "inventory", "option_qty")
		if !ok {
			continue
		}
		if n, ok := parseInt(v); ok {
			out[id] = n
		}
	}
	return out, nil
}

func (c *Client) enrichOptionQuantities(ctx context.Context, products []Product) []Product {
	var ids []string
	for _, p := range products {
		for _, o := range p.Options {
			if o.ID != "" {
				ids = append(ids, o.ID)
			}
		}
	}
	if len(ids) == 0 {
		return products
	}

	qty, err := c.GetOptionQuantities(ctx, ids)
	if err != nil {
		c.log.Warn().Err(err).Int("options", len(ids)).Msg("option quantities unavailable, keeping payload stock")
		return products
	}
	if len(qty) == 0 {
		return products
	}

	for i := range products {
		total := 0
		for j := range products[i].Options {
			o := &products[i].Options[j]
			n, ok := qty[o.ID]
			if o.ID == "" || !ok {
				continue
			}
			o.Stock, o.HasStock = n, true
			total += n
		}
		if products[i].Stock == 0 && total > 0 {
			products[i].Stock, products[i].HasStock = total, true
		}
	}
	return products
}
