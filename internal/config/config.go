// internal/config/config.go
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations/orders"
	"github.com/bartek5186/silverbene2woo/internal/integrations/products"
	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
)

// Główny config aplikacji
type Config struct {
	AutoStart           bool                       `json:"auto_start"`
	SyncIntervalSeconds int                        `json:"sync_interval_seconds"` // heartbeat
	Database            db.Config                  `json:"database"`
	Silverbene          silverbene.Config          `json:"silverbene"`
	WooCommerce         woocommerce.Config         `json:"woocommerce"`
	Integrations        map[string]json.RawMessage `json:"integrations"` // nazwa -> surowy JSON integracji
}

// Zmienne środowiskowe nadpisujące config (.env obok config.json, potem env procesu).
const (
	EnvSupplierURL    = "SILVERBENE_API_URL"
	EnvSupplierKey    = "SILVERBENE_API_KEY"
	EnvSupplierSecret = "SILVERBENE_API_SECRET"
	EnvWooBaseURL     = "WOO_BASE_URL"
	EnvWooKey         = "WOO_CONSUMER_KEY"
	EnvWooSecret      = "WOO_CONSUMER_SECRET"
	EnvDBDriver       = "DB_DRIVER"
	EnvDBDSN          = "DB_DSN"
)

func Default() *Config {
	rawProducts, _ := json.Marshal(products.DefaultSettings())
	rawOrders, _ := json.Marshal(orders.DefaultSettings())

	return &Config{
		AutoStart:           false,
		SyncIntervalSeconds: 60,
		Database:            db.Config{Driver: "sqlite"},
		Silverbene:          silverbene.DefaultConfig(),
		WooCommerce:         woocommerce.DefaultConfig(), // base_url + klucze REST uzupełnia użytkownik
		Integrations: map[string]json.RawMessage{
			products.Name: rawProducts,
			orders.Name:   rawOrders,
		},
	}
}

// LoadOrCreate czyta config.json; przy pierwszym uruchomieniu zapisuje domyślny.
// Zwrócony config ma już nałożone zmienne środowiskowe i znormalizowane sekcje.
func LoadOrCreate(path string) (*Config, bool, error) {
	// upewnij się, że katalog istnieje
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("błąd zapisu domyślnego configa: %w", err)
			}
			cfg.ApplyEnv(filepath.Join(filepath.Dir(path), ".env"))
			cfg.Normalize()
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("błąd otwierania configa: %w", err)
	}
	defer f.Close()

	cfg := Default()
	cfg.Integrations = nil
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, false, fmt.Errorf("błąd parsowania configa: %w", err)
	}
	if cfg.Integrations == nil {
		cfg.Integrations = map[string]json.RawMessage{}
	}
	cfg.ApplyEnv(filepath.Join(filepath.Dir(path), ".env"))
	cfg.Normalize()
	return cfg, false, nil
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func (c *Config) Normalize() {
	if c.SyncIntervalSeconds <= 0 {
		c.SyncIntervalSeconds = 60
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	c.Silverbene.Normalize()
	c.WooCommerce.Normalize()
}

// ApplyEnv nakłada zmienne z pliku .env (jeśli jest) i środowiska; środowisko wygrywa.
func (c *Config) ApplyEnv(envFile string) {
	file, _ := godotenv.Read(envFile) // brak .env = pusta mapa
	get := func(k string) (string, bool) {
		if v, ok := os.LookupEnv(k); ok {
			return v, true
		}
		v, ok := file[k]
		return v, ok
	}
	set := func(dst *string, k string) {
		if v, ok := get(k); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.Silverbene.APIURL, EnvSupplierURL)
	set(&c.Silverbene.APIKey, EnvSupplierKey)
	set(&c.Silverbene.APISecret, EnvSupplierSecret)
	set(&c.WooCommerce.BaseURL, EnvWooBaseURL)
	set(&c.WooCommerce.ConsumerKey, EnvWooKey)
	set(&c.WooCommerce.ConsumerSec, EnvWooSecret)
	set(&c.Database.Driver, EnvDBDriver)
	set(&c.Database.DSN, EnvDBDSN)
}

// Helper do odczytu konkretnej integracji do struktury docelowej
func (c *Config) UnmarshalIntegration(name string, v any) error {
	raw, ok := c.Integrations[name]
	if !ok {
		return fmt.Errorf("brak integracji %q w configu", name)
	}
	return json.Unmarshal(raw, v)
}
