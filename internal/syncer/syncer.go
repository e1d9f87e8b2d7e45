// internal/syncer/syncer.go
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	conf "github.com/bartek5186/silverbene2woo/internal/config"
	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations"
	_ "github.com/bartek5186/silverbene2woo/internal/integrations/orders"   // rejestracja
	_ "github.com/bartek5186/silverbene2woo/internal/integrations/products" // rejestracja
	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// wrapper na uruchomioną integrację (products, orders)
type runningInt struct {
	Name string
	Inst integrations.Integration
}

type Syncer struct {
	log     zerolog.Logger // logowanie
	db      *gorm.DB       // dostęp do bazy
	mu      sync.Mutex     // ochrona sekcji krytycznych
	cfg     *conf.Config   // aktualna konfiguracja
	deps    integrations.Deps
	running bool            // czy syncer działa
	parent  context.Context // kontekst wywołującego (sygnały), do restartu po reloadzie
	cancel  context.CancelFunc
	wg      sync.WaitGroup // śledzi goroutines
	ticks   uint64         // licznik heartbeatów
	ints    []runningInt   // lista aktywnych integracji
}

func New(log zerolog.Logger, cfg *conf.Config, gdb *gorm.DB) *Syncer {
	s := &Syncer{log: log, cfg: cfg, db: gdb}
	s.deps = s.buildDeps(cfg)
	return s
}

// buildDeps – klienci dostawcy i sklepu z bieżącego configu.
func (s *Syncer) buildDeps(cfg *conf.Config) integrations.Deps {
	sc, wc := silverbene.DefaultConfig(), woocommerce.DefaultConfig()
	if cfg != nil {
		sc, wc = cfg.Silverbene, cfg.WooCommerce
	}
	return integrations.Deps{
		DB:       s.db,
		Supplier: silverbene.New(s.log.With().Str("client", "silverbene").Logger(), sc),
		Store:    woocommerce.New(s.log.With().Str("client", "woocommerce").Logger(), wc),
		Now:      time.Now,
	}
}

// Supplier – klient dostawcy (komenda shipping).
func (s *Syncer) Supplier() *silverbene.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deps.Supplier
}

func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.parent = ctx
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.ticks = 0
	s.wg.Add(1)

	// zbuduj integracje
	ints := s.buildIntegrationsLocked()
	s.ints = ints
	deps := s.deps
	prime := s.cfg != nil && s.cfg.WooCommerce.Cache.PrimeOnStart
	s.mu.Unlock()

	s.log.Info().Msg("Syncer: start")
	go s.loop(ctx)

	// najpierw cache linków sklepu, potem integracje – każda w swojej gorutinie
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if prime {
			s.primeLinks(ctx, deps)
		}
		for i := range ints {
			if ctx.Err() != nil {
				return
			}
			s.wg.Add(1)
			go func(intg integrations.Integration) {
				defer s.wg.Done()
				if err := intg.Start(ctx); err != nil {
					s.log.Error().Err(err).Str("integration", intg.Name()).Msg("zakończona z błędem")
				}
			}(ints[i].Inst)
		}
	}()
	return nil
}

func (s *Syncer) primeLinks(ctx context.Context, deps integrations.Deps) {
	if !deps.Store.Configured() {
		s.log.Warn().Msg("WooCommerce nie skonfigurowany – pomijam prime cache")
		return
	}
	start := time.Now()
	n, err := deps.Store.PrimeLinks(ctx, deps.DB)
	if err != nil {
		s.log.Error().Err(err).Int("rows", n).Msg("prime product links failed")
		return
	}
	s.log.Info().Int("rows", n).Dur("took", time.Since(start)).Msg("product links primed")
}

func (s *Syncer) buildIntegrationsLocked() []runningInt {
	var out []runningInt
	if s.cfg == nil || len(s.cfg.Integrations) == 0 {
		s.log.Warn().Msg("Integrations: brak lub puste (sprawdź config.json)")
		return out
	}
	s.log.Info().Int("count", len(s.cfg.Integrations)).Msg("Integrations in config")

	names := make([]string, 0, len(s.cfg.Integrations))
	for name := range s.cfg.Integrations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		inst, err := s.newIntegration(name, s.cfg.Integrations[name])
		if err != nil {
			s.log.Error().Err(err).Str("integration", name).Msg("błąd inicjalizacji")
			continue
		}
		out = append(out, runningInt{Name: name, Inst: inst})
	}
	s.log.Info().Int("started", len(out)).Msg("Integrations built")
	return out
}

func (s *Syncer) newIntegration(name string, raw json.RawMessage) (integrations.Integration, error) {
	f, ok := integrations.Get(name)
	if !ok {
		return nil, fmt.Errorf("brak fabryki dla %q (znane: %v)", name, integrations.Names())
	}
	return f(s.log.With().Str("integration", name).Logger(), raw, s.deps)
}

// RunNow – jeden przebieg integracji: działającej instancji albo świeżej z configu.
func (s *Syncer) RunNow(ctx context.Context, name string, force bool) error {
	s.mu.Lock()
	var inst integrations.Integration
	for _, ri := range s.ints {
		if ri.Name == name {
			inst = ri.Inst
			break
		}
	}
	if inst == nil {
		var raw json.RawMessage
		if s.cfg != nil {
			raw = s.cfg.Integrations[name]
		}
		var err error
		if inst, err = s.newIntegration(name, raw); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	r, ok := inst.(integrations.Runner)
	if !ok {
		return errors.New("integracja nie wspiera jednorazowego uruchomienia: " + name)
	}
	return r.RunOnce(ctx, force)
}

func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	ints := s.ints
	s.ints = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, ri := range ints {
		ri.Inst.Stop()
	}
	s.wg.Wait()
	s.log.Info().Msg("Syncer: stop")
}

func (s *Syncer) UpdateConfig(cfg *conf.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.deps = s.buildDeps(cfg)
	isRunning := s.running
	parent := s.parent
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	s.log.Info().Msg("Syncer: config zaktualizowany")

	if isRunning {
		// szybki restart integracji, żeby wzięły nową konfigurację
		s.log.Info().Msg("Syncer: restart integracji po zmianie configu")
		s.Stop()
		_ = s.Start(parent)
	}
}

func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Syncer) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil && s.cfg.SyncIntervalSeconds > 0 {
		return time.Duration(s.cfg.SyncIntervalSeconds) * time.Second
	}
	return time.Minute
}

func (s *Syncer) loop(ctx context.Context) {
	defer s.wg.Done()

	// pierwszy strzał od razu
	s.tickOnce()

	cur := s.interval()
	ticker := time.NewTicker(cur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Syncer: koniec pętli")
			return
		case <-ticker.C:
			// jeśli ktoś zmienił interwał w cfg – odśwież ticker
			if next := s.interval(); next != cur {
				cur = next
				ticker.Reset(cur)
			}
			s.tickOnce()
		}
	}
}

// Health – stan do heartbeatu i komendy status.
type Health struct {
	Links   int64
	Issues  int64
	LastRun *db.SyncRun
}

func (s *Syncer) Health() (Health, error) {
	var h Health
	if err := s.db.Model(&db.ProductLink{}).Count(&h.Links).Error; err != nil {
		return h, err
	}
	if err := s.db.Model(&db.LinkIssue{}).Count(&h.Issues).Error; err != nil {
		return h, err
	}
	var run db.SyncRun
	err := s.db.Order("started_at desc").Take(&run).Error
	switch {
	case err == nil:
		h.LastRun = &run
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return h, err
	}
	return h, nil
}

func (s *Syncer) tickOnce() {
	s.mu.Lock()
	s.ticks++
	n := s.ticks
	s.mu.Unlock()

	h, err := s.Health()
	if err != nil {
		s.log.Warn().Err(err).Uint64("tick", n).Msg("Syncer: heartbeat – błąd odczytu stanu")
		return
	}
	ev := s.log.Info().Uint64("tick", n).Int64("links", h.Links).Int64("issues", h.Issues)
	if h.LastRun != nil {
		ev = ev.Str("last_run", h.LastRun.Kind).Str("last_status", h.LastRun.Status).Time("last_started", h.LastRun.StartedAt)
	}
	ev.Msg("Syncer: heartbeat")
}
