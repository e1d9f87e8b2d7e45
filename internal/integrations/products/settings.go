package products

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bartek5186/silverbene2woo/internal/catalog"
)

const (
	IntervalFifteenMinutes = "fifteen_minutes"
	IntervalHourly         = "hourly"
	IntervalTwiceDaily     = "twicedaily"
	IntervalDaily          = "daily"
)

var intervals = map[string]time.Duration{
	IntervalFifteenMinutes: 15 * time.Minute,
	IntervalHourly:         time.Hour,
	IntervalTwiceDaily:     12 * time.Hour,
	IntervalDaily:          24 * time.Hour,
}

// Settings – sekcja integrations.products w config.json.
type Settings struct {
	SyncEnabled     bool   `json:"sync_enabled"`
	SyncInterval    string `json:"sync_interval"`
	DefaultCategory string `json:"default_category"`
	DefaultBrand    string `json:"default_brand"`
	catalog.Pricing
	SyncStartDate string `json:"sync_start_date"` // YYYY-MM-DD, puste = od 1970-01-01
	PerPage       int    `json:"per_page"`
	MaxPages      int    `json:"max_pages"`
}

func DefaultSettings() Settings {
	return Settings{
		SyncEnabled:  false,
		SyncInterval: IntervalHourly,
		Pricing: catalog.Pricing{
			MarkupType:  catalog.MarkupPercentage,
			MarkupValue: decimal.Zero,
		},
		PerPage:  50,
		MaxPages: 500,
	}
}

func (s *Settings) Normalize() {
	s.SyncInterval = strings.ToLower(strings.TrimSpace(s.SyncInterval))
	if _, ok := intervals[s.SyncInterval]; !ok {
		s.SyncInterval = IntervalHourly
	}
	s.DefaultCategory = strings.TrimSpace(s.DefaultCategory)
	s.DefaultBrand = strings.TrimSpace(s.DefaultBrand)
	s.Pricing.Normalize()

	s.SyncStartDate = strings.TrimSpace(s.SyncStartDate)
	if _, err := time.Parse("2006-01-02", s.SyncStartDate); err != nil {
		s.SyncStartDate = ""
	}
	if s.PerPage <= 0 || s.PerPage > 100 {
		s.PerPage = 50
	}
	if s.MaxPages <= 0 {
		s.MaxPages = 500
	}
}

func (s Settings) Interval() time.Duration {
	if d, ok := intervals[s.SyncInterval]; ok {
		return d
	}
	return time.Hour
}
