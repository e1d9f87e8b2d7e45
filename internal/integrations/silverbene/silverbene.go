// internal/integrations/silverbene/silverbene.go
package silverbene

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bartek5186/silverbene2woo/internal/logs"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html/charset"
)

const (
	DefaultAPIURL                  = "https://s.silverbene.com/api"
	DefaultProductsEndpoint        = "/dropshipping/product_list"
	DefaultProductsByDateEndpoint  = "/dropshipping/product_list_by_date"
	DefaultOptionQtyEndpoint       = "/dropshipping/option_qty"
	DefaultOrdersEndpoint          = "/dropshipping/create_order"
	DefaultShippingMethodsEndpoint = "/dropshipping/get_shipping_method"

	defaultTimeout = 60 * time.Second
	minTimeout     = 5 * time.Second
	maxTimeout     = 120 * time.Second
)

type Config struct {
	APIURL                  string `json:"api_url"`
	APIKey                  string `json:"api_key"`
	APISecret               string `json:"api_secret"`
	ProductsEndpoint        string `json:"products_endpoint"`
	ProductsByDateEndpoint  string `json:"products_by_date_endpoint"`
	OptionQtyEndpoint       string `json:"option_qty_endpoint"`
	OrdersEndpoint          string `json:"orders_endpoint"`
	ShippingMethodsEndpoint string `json:"shipping_methods_endpoint"`
	TimeoutSec              int    `json:"timeout_seconds"`
	MaxRetries              int    `json:"max_retries"`
}

func DefaultConfig() Config {
	return Config{
		APIURL:                  DefaultAPIURL,
		ProductsEndpoint:        DefaultProductsEndpoint,
		ProductsByDateEndpoint:  DefaultProductsByDateEndpoint,
		OptionQtyEndpoint:       DefaultOptionQtyEndpoint,
		OrdersEndpoint:          DefaultOrdersEndpoint,
		ShippingMethodsEndpoint: DefaultShippingMethodsEndpoint,
		TimeoutSec:              int(defaultTimeout / time.Second),
		MaxRetries:              2,
	}
}

var reEndpoint = regexp.MustCompile(`^/[a-zA-Z0-9_\-/]*$`)

// Normalize uzupełnia puste pola domyślnymi i odrzuca dziwne endpointy.
func (c *Config) Normalize() {
	d := DefaultConfig()
	c.APIURL = strings.TrimSpace(c.APIURL)
	if u, err := url.ParseRequestURI(c.APIURL); err != nil || u.Host == "" {
		c.APIURL = d.APIURL
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.APISecret = strings.TrimSpace(c.APISecret)

	endpoint := func(v *string, def string) {
		s := strings.TrimSpace(*v)
		if !reEndpoint.MatchString(s) {
			s = def
		}
		*v = s
	}
	endpoint(&c.ProductsEndpoint, d.ProductsEndpoint)
	endpoint(&c.ProductsByDateEndpoint, d.ProductsByDateEndpoint)
	endpoint(&c.OptionQtyEndpoint, d.OptionQtyEndpoint)
	endpoint(&c.OrdersEndpoint, d.OrdersEndpoint)
	endpoint(&c.ShippingMethodsEndpoint, d.ShippingMethodsEndpoint)

	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return defaultTimeout
	}
	t := time.Duration(c.TimeoutSec) * time.Second
	if t < minTimeout {
		return minTimeout
	}
	if t > maxTimeout {
		return maxTimeout
	}
	return t
}

var ErrMissingToken = errors.New("silverbene: API token is missing")

// APIError – odpowiedź 2xx, ale z polem code != 0.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("silverbene: api code %d: %s", e.Code, e.Message)
}

// HTTPError – status spoza 2xx.
type HTTPError struct {
	Status   int
	Message  string
	Endpoint string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("silverbene: %s: http %d: %s", e.Endpoint, e.Status, e.Message)
}

type Client struct {
	log  zerolog.Logger
	cfg  Config
	http *retryablehttp.Client // GET z ponowieniami
	once *retryablehttp.Client // POST (create_order) – jedna próba, bez duplikatów zamówień
}

func New(log zerolog.Logger, cfg Config) *Client {
	cfg.Normalize()
	mk := func(retries int) *retryablehttp.Client {
		rc := retryablehttp.NewClient()
		rc.HTTPClient.Timeout = cfg.timeout()
		rc.RetryMax = retries
		rc.Logger = logs.NewRetryLogger(log)
		rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
		return rc
	}
	return &Client{
		log:  log,
		cfg:  cfg,
		http: mk(cfg.MaxRetries),
		once: mk(0),
	}
}

func (c *Client) Config() Config { return c.cfg }

func (c *Client) token() (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingToken
	}
	return c.cfg.APIKey, nil
}

// Request wykonuje zapytanie do API dostawcy i zwraca zdekodowane JSON body.
// Puste body to pusty gjson.Result (Exists()==false), nie błąd.
func (c *Client) Request(ctx context.Context, method, endpoint string, query url.Values, body any) (gjson.Result, error) {
	u := strings.TrimRight(c.cfg.APIURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	method = strings.ToUpper(method)

	var payload any // nil interface = brak body (GET bez chunked)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("silverbene: encode body: %w", err)
		}
		payload = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "silverbene2woo/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.http
	if method != http.MethodGet {
		client = c.once
	}

	// endpoint bez tokena do logów
	logURL := strings.TrimRight(c.cfg.APIURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	resp, err := client.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", logURL).Msg("API request failed")
		return gjson.Result{}, fmt.Errorf("silverbene: %s %s: %w", method, logURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(decodeCharset(resp.Body, resp.Header.Get("Content-Type")))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("silverbene: read body: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	var decoded gjson.Result
	if len(raw) > 0 && gjson.ValidBytes(raw) {
		decoded = gjson.ParseBytes(raw)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("API request returned a non-success status code %d.", resp.StatusCode)
		if m := decoded.Get("message").String(); m != "" {
			msg = m
		}
		c.log.Error().
			Str("endpoint", logURL).
			Int("status_code", resp.StatusCode).
			RawJSON("body", rawOrNull(decoded)).
			Msg(msg)
		return gjson.Result{}, &HTTPError{Status: resp.StatusCode, Message: msg, Endpoint: logURL}
	}

	if len(raw) > 0 && !decoded.Exists() {
		return gjson.Result{}, fmt.Errorf("silverbene: %s: response is not JSON", logURL)
	}
	return decoded, nil
}

// checkCode zamienia {"code": N != 0} na *APIError.
func (c *Client) checkCode(res gjson.Result, what string) error {
	code := res.Get("code")
	if !code.Exists() || code.Int() == 0 {
		return nil
	}
	msg := res.Get("message").String()
	if msg == "" {
		msg = "Unknown API error"
	}
	c.log.Error().Int64("code", code.Int()).Str("message", msg).Msg(what + " returned non zero status code")
	return &APIError{Code: code.Int(), Message: msg}
}

// decodeCharset – tylko gdy serwer jawnie poda charset inny niż utf-8.
func decodeCharset(r io.Reader, contentType string) io.Reader {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r
	}
	cs := strings.TrimSpace(params["charset"])
	if cs == "" || strings.EqualFold(cs, "utf-8") || strings.EqualFold(cs, "utf8") {
		return r
	}
	dr, err := charset.NewReaderLabel(cs, r)
	if err != nil {
		return r
	}
	return dr
}

func rawOrNull(r gjson.Result) []byte {
	if !r.Exists() || r.Raw == "" {
		return []byte("null")
	}
	return []byte(r.Raw)
}
