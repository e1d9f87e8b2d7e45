package woocommerce

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type OrderQuery struct {
	Statuses      []string
	ModifiedAfter string // ISO8601 GMT
	Page          int
	PerPage       int
}

// ListOrders – zamówienia wg statusów, od najstarszej modyfikacji.
func (c *Client) ListOrders(ctx context.Context, oq OrderQuery) ([]Order, int, error) {
	q := url.Values{}
	if len(oq.Statuses) > 0 {
		q.Set("status", strings.Join(oq.Statuses, ","))
	}
	if oq.ModifiedAfter != "" {
		q.Set("modified_after", oq.ModifiedAfter)
		q.Set("dates_are_gmt", "true")
	}
	if oq.Page <= 0 {
		oq.Page = 1
	}
	if oq.PerPage <= 0 {
		oq.PerPage = 50
	}
	q.Set("orderby", "modified")
	q.Set("order", "asc")
	q.Set("page", strconv.Itoa(oq.Page))
	q.Set("per_page", strconv.Itoa(oq.PerPage))

	var items []Order
	h, err := c.do(ctx, http.MethodGet, "orders", q, nil, &items)
	if err != nil {
		return nil, 0, err
	}
	return items, totalPages(h), nil
}

func (c *Client) UpdateOrderMeta(ctx context.Context, id int64, meta []Meta) error {
	body := struct {
		MetaData []Meta `json:"meta_data"`
	}{meta}
	_, err := c.do(ctx, http.MethodPut, orderPath(id), nil, body, nil)
	return err
}

// AddOrderNote – notatka prywatna (nie do klienta).
func (c *Client) AddOrderNote(ctx context.Context, id int64, note string) error {
	_, err := c.do(ctx, http.MethodPost, orderPath(id)+"/notes", nil, OrderNote{Note: note}, nil)
	return err
}

func orderPath(id int64) string {
	return "orders/" + strconv.FormatInt(id, 10)
}
