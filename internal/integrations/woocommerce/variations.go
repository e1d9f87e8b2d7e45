package woocommerce

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const batchLimit = 100 // limit operacji na jedno wywołanie /batch

// ListVariations – wszystkie warianty produktu (wszystkie strony).
func (c *Client) ListVariations(ctx context.Context, productID int64) ([]Variation, error) {
	var out []Variation
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", "100")
		q.Set("page", strconv.Itoa(page))

		var items []Variation
		h, err := c.do(ctx, http.MethodGet, productPath(productID)+"/variations", q, nil, &items)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)

		total := totalPages(h)
		if len(items) < 100 || (total > 0 && page >= total) {
			return out, nil
		}
	}
}

// BatchVariations dzieli create/update/delete na paczki po 100 operacji.
func (c *Client) BatchVariations(ctx context.Context, productID int64, b VariationBatch) (VariationBatchResult, error) {
	var res VariationBatchResult
	for _, chunk := range splitBatch(b) {
		var part VariationBatchResult
		if _, err := c.do(ctx, http.MethodPost, productPath(productID)+"/variations/batch", nil, chunk, &part); err != nil {
			return res, err
		}
		res.Create = append(res.Create, part.Create...)
		res.Update = append(res.Update, part.Update...)
		res.Delete = append(res.Delete, part.Delete...)
	}
	return res, nil
}

func splitBatch(b VariationBatch) []VariationBatch {
	var (
		out []VariationBatch
		cur VariationBatch
		n   int
	)
	flush := func() {
		if n > 0 {
			out = append(out, cur)
			cur, n = VariationBatch{}, 0
		}
	}
	for _, v := range b.Create {
		cur.Create = append(cur.Create, v)
		if n++; n == batchLimit {
			flush()
		}
	}
	for _, v := range b.Update {
		cur.Update = append(cur.Update, v)
		if n++; n == batchLimit {
			flush()
		}
	}
	for _, id := range b.Delete {
		cur.Delete = append(cur.Delete, id)
		if n++; n == batchLimit {
			flush()
		}
	}
	flush()
	return out
}
