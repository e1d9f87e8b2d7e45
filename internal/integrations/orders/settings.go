package orders

import (
	"strings"
	"time"
)

// Settings – sekcja integrations.orders w config.json.
type Settings struct {
	Enabled     bool     `json:"enabled"`
	PollSec     int      `json:"poll_sec"`
	Statuses    []string `json:"statuses"`
	MaxAttempts int      `json:"max_attempts"`
	PerPage     int      `json:"per_page"`
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:     false,
		PollSec:     300,
		Statuses:    []string{"processing", "completed"},
		MaxAttempts: 3,
		PerPage:     50,
	}
}

func (s *Settings) Normalize() {
	d := DefaultSettings()
	if s.PollSec < 30 {
		s.PollSec = d.PollSec
	}
	var st []string
	seen := map[string]bool{}
	for _, v := range s.Statuses {
		v = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "wc-")
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		st = append(st, v)
	}
	if len(st) == 0 {
		st = d.Statuses
	}
	s.Statuses = st
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = d.MaxAttempts
	}
	if s.PerPage <= 0 || s.PerPage > 100 {
		s.PerPage = d.PerPage
	}
}

func (s Settings) Interval() time.Duration {
	return time.Duration(s.PollSec) * time.Second
}
