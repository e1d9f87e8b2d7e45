package woocommerce

import (
	"context"
	"html"
	"net/http"
	"net/url"
	"strings"
)

const (
	pathCategories = "products/categories"
	pathTags       = "products/tags"
	pathBrands     = "products/brands"
)

func (c *Client) EnsureCategory(ctx context.Context, name string) (int64, error) {
	return c.ensureTerm(ctx, pathCategories, name)
}

func (c *Client) EnsureTag(ctx context.Context, name string) (int64, error) {
	return c.ensureTerm(ctx, pathTags, name)
}

// EnsureBrand – taksonomia product_brand (WooCommerce 9.6+).
func (c *Client) EnsureBrand(ctx context.Context, name string) (int64, error) {
	return c.ensureTerm(ctx, pathBrands, name)
}

// ensureTerm szuka termu po nazwie (bez wielkości liter), a gdy brak – tworzy.
// Wynik trzymany w pamięci do końca życia klienta. Pusta nazwa -> 0.
func (c *Client) ensureTerm(ctx context.Context, path, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	key := path + "|" + strings.ToLower(name)

	c.mu.Lock()
	id, ok := c.terms[key]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	q := url.Values{}
	q.Set("search", name)
	q.Set("per_page", "100")
	var found []Term
	if _, err := c.do(ctx, http.MethodGet, path, q, nil, &found); err != nil {
		return 0, err
	}
	for _, t := range found {
		if strings.EqualFold(html.UnescapeString(t.Name), name) {
			id = t.ID
			break
		}
	}

	if id == 0 {
		var created Term
		_, err := c.do(ctx, http.MethodPost, path, nil, Term{Name: name}, &created)
		switch {
		case err == nil:
			id = created.ID
		case isTermExists(err):
			ae, _ := asAPIError(err)
			id = ae.ResourceID
		default:
			return 0, err
		}
	}

	c.mu.Lock()
	c.terms[key] = id
	c.mu.Unlock()
	return id, nil
}

func isTermExists(err error) bool {
	ae, ok := asAPIError(err)
	return ok && ae.Code == "term_exists" && ae.ResourceID > 0
}
