package woocommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// FindBySKU – produkt-rodzic o dokładnie tym SKU (dowolny status). nil gdy brak.
func (c *Client) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	q := url.Values{}
	q.Set("sku", sku)
	q.Set("status", "any")
	q.Set("per_page", "10")

	var items []Product
	if _, err := c.do(ctx, http.MethodGet, "products", q, nil, &items); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].SKU == sku && items[i].Type != "variation" {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	if _, err := c.do(ctx, http.MethodGet, productPath(id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductStatus – status produktu w sklepie; "" gdy produktu już nie ma.
func (c *Client) ProductStatus(ctx context.Context, id int64) (string, error) {
	q := url.Values{}
	q.Set("_fields", "id,status")
	var p Product
	if _, err := c.do(ctx, http.MethodGet, productPath(id), q, nil, &p); err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if p.Status == "" {
		p.Status = "publish"
	}
	return p.Status, nil
}

func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	p.ID = 0
	var out Product
	if _, err := c.do(ctx, http.MethodPost, "products", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, p Product) (*Product, error) {
	p.ID = 0
	var out Product
	if _, err := c.do(ctx, http.MethodPut, productPath(id), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct usuwa trwale (force=true, bez kosza). Brak produktu nie jest błędem.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	q := url.Values{}
	q.Set("force", "true")
	_, err := c.do(ctx, http.MethodDelete, productPath(id), q, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// ListProducts – jedna strona (orderby modified desc). Zwraca też X-WP-TotalPages.
func (c *Client) ListProducts(ctx context.Context, page, perPage int, fields string) ([]Product, int, error) {
	q := url.Values{}
	q.Set("orderby", "modified")
	q.Set("order", "desc")
	q.Set("status", "any")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	if fields != "" {
		q.Set("_fields", fields)
	}

	var items []Product
	h, err := c.do(ctx, http.MethodGet, "products", q, nil, &items)
	if err != nil {
		return nil, 0, fmt.Errorf("woo products page %d: %w", page, err)
	}
	return items, totalPages(h), nil
}

func productPath(id int64) string {
	return "products/" + strconv.FormatInt(id, 10)
}
