// internal/integrations/silverbene/orders.go
package silverbene

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var ErrEmptyResponse = errors.New("silverbene: empty response")

// CreateOrder wysyła zamówienie do dostawcy (jedna próba, bez retry).
// Przy code != 0 zwraca wynik razem z *APIError.
func (c *Client) CreateOrder(ctx context.Context, p OrderPayload) (*OrderResult, error) {
	token, err := c.token()
	if err != nil {
		c.log.Error().Msg("API token is missing, cannot create order.")
		return nil, err
	}
	if p.Token == "" {
		p.Token = token
	}

	res, err := c.Request(ctx, http.MethodPost, c.cfg.OrdersEndpoint, nil, p)
	if err != nil {
		return nil, err
	}
	if !res.Exists() {
		return nil, ErrEmptyResponse
	}

	out := &OrderResult{
		Code:    res.Get("code").Int(),
		Message: res.Get("message").String(),
		Raw:     res,
	}
	for _, path := range []string{"order_id", "data.order_id", "data.id"} {
		if v := strings.TrimSpace(res.Get(path).String()); v != "" {
			out.OrderID = v
			break
		}
	}
	if err := c.checkCode(res, "Create order request"); err != nil {
		return out, err
	}
	return out, nil
}

// GetShippingMethods – metody wysyłki dla kraju (ISO 3166-1 alpha-2).
func (c *Client) GetShippingMethods(ctx context.Context, countryID string) ([]ShippingMethod, error) {
	countryID = strings.ToUpper(strings.TrimSpace(countryID))
	if countryID == "" {
		return nil, nil
	}
	token, err := c.token()
	if err != nil {
		c.log.Error().Msg("API token is missing, cannot fetch shipping methods.")
		return nil, err
	}

	query := url.Values{}
	query.Set("token", token)
	query.Set("country_id", countryID)

	res, err := c.Request(ctx, http.MethodGet, c.cfg.ShippingMethodsEndpoint, query, nil)
	if err != nil {
		return nil, err
	}
	if !res.Exists() {
		return nil, nil
	}
	if err := c.checkCode(res, "Shipping method request"); err != nil {
		return nil, err
	}

	var out []ShippingMethod
	for _, it := range elements(unwrapData(res)) {
		if !it.IsObject() {
			continue
		}
		m := it.Map()
		sm := ShippingMethod{
			ID:   str(m, "id", "shipping_method_id", "code", "method_id"),
			Name: str(m, "name", "title", "shipping_method", "method_name"),
			Days: str(m, "days", "delivery_time", "shipping_time"),
			Raw:  it,
		}
		if v, ok := first(m, "price", "fee", "shipping_fee", "cost"); ok {
			sm.Price, _ = parseDecimal(v)
		}
		out = append(out, sm)
	}
	return out, nil
}
