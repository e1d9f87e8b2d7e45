// internal/integrations/products/products.go
package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bartek5186/silverbene2woo/internal/integrations"
	"github.com/rs/zerolog"
)

const Name = "products"

var ErrSyncRunning = errors.New("products: sync already running")

type Sync struct {
	log  zerolog.Logger
	cfg  Settings
	deps integrations.Deps

	running sync.Mutex // jeden przebieg naraz

	mu      sync.Mutex // cancel: Start i Stop z różnych gorutyn
	cancel  context.CancelFunc
	stopped bool
}

func New(log zerolog.Logger, cfg Settings, deps integrations.Deps) *Sync {
	cfg.Normalize()
	return &Sync{log: log, cfg: cfg, deps: deps}
}

func (s *Sync) Name() string { return Name }

func (s *Sync) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()
	s.log.Info().Str("integration", s.Name()).Dur("interval", s.cfg.Interval()).Msg("start")

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	// pierwszy przebieg
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Str("integration", s.Name()).Msg("stop")
			return nil
		case <-ticker.C:
			s.tick(ctx)
			ticker.Reset(s.cfg.Interval())
		}
	}
}

func (s *Sync) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.stopped = true
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Sync) tick(ctx context.Context) {
	if err := s.RunOnce(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Msg("product sync failed")
	}
}

// RunOnce – jeden pełny przebieg synchronizacji produktów.
func (s *Sync) RunOnce(ctx context.Context, force bool) error {
	_, err := s.SyncProducts(ctx, force)
	return err
}

func factory(log zerolog.Logger, raw json.RawMessage, deps integrations.Deps) (integrations.Integration, error) {
	cfg := DefaultSettings()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("products config: %w", err)
		}
	}
	if deps.DB == nil || deps.Supplier == nil || deps.Store == nil {
		return nil, errors.New("products: missing db / supplier / store")
	}
	return New(log, cfg, deps), nil
}

func init() {
	integrations.Register(Name, factory)
}
