// internal/integrations/woocommerce/woocommerce.go
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bartek5186/silverbene2woo/internal/logs"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const apiPrefix = "/wp-json/wc/v3"

type CacheConfig struct {
	PrimeOnStart bool   `json:"prime_on_start"`
	Fields       string `json:"fields"` // _fields przy primowaniu
}

type Config struct {
	BaseURL     string      `json:"base_url"` // https://shop.example.com
	ConsumerKey string      `json:"consumer_key"`
	ConsumerSec string      `json:"consumer_secret"`
	TimeoutSec  int         `json:"timeout_seconds"`
	MaxRetries  int         `json:"max_retries"`
	Cache       CacheConfig `json:"cache"`
}

const defaultCacheFields = "id,sku,name,type,status,date_modified_gmt,meta_data"

func DefaultConfig() Config {
	return Config{
		TimeoutSec: 30,
		MaxRetries: 2,
		Cache:      CacheConfig{PrimeOnStart: true, Fields: defaultCacheFields},
	}
}

func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.ConsumerKey = strings.TrimSpace(c.ConsumerKey)
	c.ConsumerSec = strings.TrimSpace(c.ConsumerSec)
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = 30
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if strings.TrimSpace(c.Cache.Fields) == "" {
		c.Cache.Fields = defaultCacheFields
	}
}

// APIError – błąd REST WooCommerce: {"code": "...", "message": "...", "data": {"status": 400}}
type APIError struct {
	Status     int
	Code       string
	Message    string
	Path       string
	ResourceID int64 // data.resource_id (np. duplikat SKU)
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("woo: %s: http %d: %s (%s)", e.Path, e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("woo: %s: http %d: %s", e.Path, e.Status, e.Message)
}

func asAPIError(err error) (*APIError, bool) {
	var ae *APIError
	ok := errors.As(err, &ae)
	return ae, ok
}

func IsNotFound(err error) bool {
	ae, ok := asAPIError(err)
	return ok && (ae.Status == http.StatusNotFound || strings.HasSuffix(ae.Code, "_invalid_id"))
}

// IsInvalidImage – Woo odrzuca id załącznika (usunięty z biblioteki mediów).
func IsInvalidImage(err error) bool {
	ae, ok := asAPIError(err)
	return ok && strings.Contains(ae.Code, "invalid_image")
}

// IsDuplicateSKU – SKU zajęte przez inny produkt; ResourceID wskazuje właściciela.
func IsDuplicateSKU(err error) bool {
	ae, ok := asAPIError(err)
	return ok && ae.Code == "product_invalid_sku"
}

// ResourceID – id zasobu wskazanego w błędzie (właściciel zajętego SKU, istniejący term).
func ResourceID(err error) int64 {
	if ae, ok := asAPIError(err); ok {
		return ae.ResourceID
	}
	return 0
}

type Client struct {
	log  zerolog.Logger
	cfg  Config
	http *retryablehttp.Client // GET/PUT/DELETE
	once *retryablehttp.Client // POST – tworzenie nie jest idempotentne

	mu    sync.Mutex
	terms map[string]int64 // "product_cat|nazwa" -> id
}

func New(log zerolog.Logger, cfg Config) *Client {
	cfg.Normalize()
	mk := func(retries int) *retryablehttp.Client {
		rc := retryablehttp.NewClient()
		rc.HTTPClient.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
		rc.RetryMax = retries
		rc.Logger = logs.NewRetryLogger(log)
		rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
		return rc
	}
	return &Client{
		log:   log,
		cfg:   cfg,
		http:  mk(cfg.MaxRetries),
		once:  mk(0),
		terms: map[string]int64{},
	}
}

func (c *Client) Config() Config { return c.cfg }

// Configured – bez adresu i kluczy nie ma sensu dzwonić.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != "" && c.cfg.ConsumerKey != "" && c.cfg.ConsumerSec != ""
}

// do wykonuje zapytanie do /wp-json/wc/v3/<path>, dekoduje JSON do out (jeśli != nil)
// i zwraca nagłówki odpowiedzi (X-WP-TotalPages itd.).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (http.Header, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("woo: base_url / consumer key / secret not configured")
	}
	u := c.cfg.BaseURL + apiPrefix + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload any
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("woo: encode %s: %w", path, err)
		}
		payload = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "silverbene2woo/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSec)

	client := c.http
	if method == http.MethodPost {
		client = c.once
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("woo: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("woo: read %s: %w", path, err)
	}
	raw = bytes.TrimSpace(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ae := &APIError{Status: resp.StatusCode, Path: path, Message: http.StatusText(resp.StatusCode)}
		if gjson.ValidBytes(raw) {
			res := gjson.ParseBytes(raw)
			ae.Code = res.Get("code").String()
			if m := res.Get("message").String(); m != "" {
				ae.Message = m
			}
			ae.ResourceID = res.Get("data.resource_id").Int()
		}
		c.log.Debug().Str("method", method).Str("path", path).Int("status_code", resp.StatusCode).
			Str("code", ae.Code).Msg(ae.Message)
		return resp.Header, ae
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.Header, fmt.Errorf("woo: decode %s: %w", path, err)
		}
	}
	return resp.Header, nil
}

func totalPages(h http.Header) int {
	n, _ := strconv.Atoi(h.Get("X-WP-TotalPages"))
	return n
}
