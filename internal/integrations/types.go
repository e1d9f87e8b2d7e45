// internal/integrations/types.go
package integrations

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Integration interface {
	Name() string
	Start(ctx context.Context) error // blokuje do ctx.Done (long-running) lub odpala własną pętlę
	Stop()                           // idempotent
}

// Runner – integracja, którą da się odpalić jednorazowo (komenda sync/orders).
// force=true pomija przełącznik "enabled" z configu.
type Runner interface {
	RunOnce(ctx context.Context, force bool) error
}

// Deps – współdzielone zasoby przekazywane do fabryk.
type Deps struct {
	DB       *gorm.DB
	Supplier *silverbene.Client
	Store    *woocommerce.Client
	Now      func() time.Time
}

func (d Deps) Clock() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

type Factory func(log zerolog.Logger, raw json.RawMessage, deps Deps) (Integration, error)
