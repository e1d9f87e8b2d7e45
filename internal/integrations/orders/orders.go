// internal/integrations/orders/orders.go
package orders

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

const Name = "orders"

var ErrForwardRunning = errors.New("orders: forwarding already running")

// Forwarder – przekazuje opłacone zamówienia sklepu do dostawcy.
type Forwarder struct {
	log  zerolog.Logger
	cfg  Settings
	deps integrations.Deps

	running sync.Mutex

	mu      sync.Mutex // cancel: Start i Stop z różnych gorutyn
	cancel  context.CancelFunc
	stopped bool
}

func New(log zerolog.Logger, cfg Settings, deps integrations.Deps) *Forwarder {
	cfg.Normalize()
	return &Forwarder{log: log, cfg: cfg, deps: deps}
}

func (f *Forwarder) Name() string { return Name }

func (f *Forwarder) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()
	defer cancel()
	f.log.Info().Str("integration", f.Name()).Dur("interval", f.cfg.Interval()).Msg("start")

	ticker := time.NewTicker(f.cfg.Interval())
	defer ticker.Stop()

	f.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			f.log.Info().Str("integration", f.Name()).Msg("stop")
			return nil
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *Forwarder) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	f.stopped = true
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (f *Forwarder) tick(ctx context.Context) {
	if err := f.RunOnce(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
		f.log.Error().Err(err).Msg("order forwarding failed")
	}
}

func (f *Forwarder) RunOnce(ctx context.Context, force bool) error {
	_, err := f.ForwardPending(ctx, force)
	return err
}

func factory(log zerolog.Logger, raw json.RawMessage, deps integrations.Deps) (integrations.Integration, error) {
	cfg := DefaultSettings()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("orders config: %w", err)
		}
	}
	if deps.DB == nil || deps.Supplier == nil || deps.Store == nil {
		return nil, errors.New("orders: missing db / supplier / store")
	}
	return New(log, cfg, deps), nil
}

func init() {
	integrations.Register(Name, factory)
}
