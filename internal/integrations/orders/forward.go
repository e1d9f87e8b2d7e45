package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
)

const (
	KVModifiedAfter = "orders.modified_after"
	MetaOrderID     = "_silverbene_order_id"

	NoteSent   = "Order sent to Silverbene."
	NoteFailed = "Failed to send order to Silverbene. Check the logs for details."
)

var errNoOrderID = errors.New("supplier response without order_id")

// Result – podsumowanie jednego przebiegu.
type Result struct {
	Seen    int
	Sent    int
	Failed  int
	Skipped int
}

type verdict int

const (
	verdictSkipped verdict = iota
	verdictSent
	verdictFailed
)

// ForwardPending przegląda zamówienia w skonfigurowanych statusach zmienione po checkpoincie
// i wysyła do dostawcy te, których jeszcze nie wysłano.
// Checkpoint zatrzymuje się przed pierwszym zamówieniem, które trzeba będzie ponowić.
func (f *Forwarder) ForwardPending(ctx context.Context, force bool) (*Result, error) {
	if !force && !f.cfg.Enabled {
		f.log.Debug().Msg("order forwarding disabled, skip")
		return nil, nil
	}
	if !f.running.TryLock() {
		return nil, ErrForwardRunning
	}
	defer f.running.Unlock()

	if !f.deps.Store.Configured() {
		return nil, errors.New("woocommerce is not configured")
	}

	run := &db.SyncRun{
		RunID:     uuid.NewString(),
		Kind:      Name,
		Forced:    force,
		StartedAt: f.deps.Clock(),
		Status:    db.RunRunning,
	}
	log := f.log.With().Str("run_id", run.RunID).Logger()
	if err := f.deps.DB.Create(run).Error; err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}

	after, err := db.GetKV(f.deps.DB, KVModifiedAfter)
	if err != nil {
		return nil, f.finish(log, run, nil, fmt.Errorf("read checkpoint: %w", err))
	}

	// najpierw cała lista: zapis meta/notatki podbija date_modified i przestawia strony
	var pending []woocommerce.Order
	seen := map[int64]struct{}{}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, f.finish(log, run, nil, err)
		}
		list, pages, err := f.deps.Store.ListOrders(ctx, woocommerce.OrderQuery{
			Statuses:      f.cfg.Statuses,
			ModifiedAfter: after,
			Page:          page,
			PerPage:       f.cfg.PerPage,
		})
		if err != nil {
			return nil, f.finish(log, run, nil, fmt.Errorf("list orders page %d: %w", page, err))
		}
		run.Pages = page
		for _, o := range list {
			if _, dup := seen[o.ID]; dup {
				continue
			}
			seen[o.ID] = struct{}{}
			pending = append(pending, o)
		}
		if len(list) == 0 || page >= pages {
			break
		}
	}
	log.Debug().Int("orders", len(pending)).Int("pages", run.Pages).Msg("orders listed")

	res := &Result{}
	checkpoint, hold := after, false
	for _, o := range pending {
		if err := ctx.Err(); err != nil {
			f.saveCheckpoint(log, after, checkpoint)
			return res, f.finish(log, run, res, err)
		}
		res.Seen++
		v, retry := f.handle(ctx, log, o)
		switch v {
		case verdictSent:
			res.Sent++
		case verdictFailed:
			res.Failed++
		default:
			res.Skipped++
		}
		if retry {
			hold = true
		}
		if !hold && o.DateModified > checkpoint {
			checkpoint = o.DateModified
		}
	}

	f.saveCheckpoint(log, after, checkpoint)
	return res, f.finish(log, run, res, nil)
}

// handle decyduje o jednym zamówieniu; retry=true gdy trzeba je zobaczyć w kolejnym przebiegu.
func (f *Forwarder) handle(ctx context.Context, log zerolog.Logger, o woocommerce.Order) (verdict, bool) {
	olog := log.With().Int64("order_id", o.ID).Str("order_number", o.Number).Logger()

	if woocommerce.MetaValue(o.MetaData, MetaOrderID) != "" {
		return verdictSkipped, false
	}

	var fw db.OrderForward
	err := f.deps.DB.Where("woo_order_id = ?", o.ID).Take(&fw).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fw = db.OrderForward{WooOrderID: uint(o.ID)}
	case err != nil:
		olog.Error().Err(err).Msg("order forward lookup failed")
		return verdictSkipped, true
	}
	if fw.Status == db.ForwardSent {
		return verdictSkipped, false
	}
	if fw.Attempts >= f.cfg.MaxAttempts {
		olog.Debug().Int("attempts", fw.Attempts).Msg("max attempts reached, skip")
		return verdictSkipped, false
	}

	payload, ok := f.buildPayload(olog, o)
	if !ok {
		olog.Warn().Msg("order without forwardable items, skip")
		return verdictSkipped, false
	}

	result, err := f.deps.Supplier.CreateOrder(ctx, payload)
	if err == nil && (result == nil || result.OrderID == "") {
		err = errNoOrderID
	}
	fw.OrderNumber = payload.OrderNumber
	fw.Attempts++

	if err != nil {
		fw.Status = db.ForwardFailed
		fw.LastError = err.Error()
		f.saveForward(olog, fw)
		olog.Error().Err(err).Int("attempts", fw.Attempts).Msg("order forward failed")
		if nerr := f.deps.Store.AddOrderNote(ctx, o.ID, NoteFailed); nerr != nil {
			olog.Warn().Err(nerr).Msg("add order note failed")
		}
		return verdictFailed, fw.Attempts < f.cfg.MaxAttempts
	}

	fw.Status = db.ForwardSent
	fw.SupplierOrderID = result.OrderID
	fw.LastError = ""
	f.saveForward(olog, fw)

	if merr := f.deps.Store.UpdateOrderMeta(ctx, o.ID, []woocommerce.Meta{{Key: MetaOrderID, Value: result.OrderID}}); merr != nil {
		olog.Warn().Err(merr).Msg("update order meta failed")
	}
	if nerr := f.deps.Store.AddOrderNote(ctx, o.ID, NoteSent); nerr != nil {
		olog.Warn().Err(nerr).Msg("add order note failed")
	}
	olog.Info().Str("supplier_order_id", result.OrderID).Msg("order sent to supplier")
	return verdictSent, false
}

// buildPayload – ok=false gdy żadna pozycja nie nadaje się do wysłania.
func (f *Forwarder) buildPayload(log zerolog.Logger, o woocommerce.Order) (silverbene.OrderPayload, bool) {
	var items []silverbene.OrderItem
	for _, li := range o.LineItems {
		if li.ProductID == 0 || li.Quantity <= 0 {
			continue
		}
		sku := strings.TrimSpace(li.SKU)
		if sku == "" {
			sku = f.supplierID(log, li)
		}
		items = append(items, silverbene.OrderItem{
			SKU:      sku,
			Name:     li.Name,
			Quantity: li.Quantity,
			Price:    unitPrice(li),
		})
	}
	if len(items) == 0 {
		return silverbene.OrderPayload{}, false
	}

	ship := o.Shipping
	if strings.TrimSpace(ship.FirstName) == "" {
		ship = o.Billing
	}

	var methods []string
	for _, sl := range o.ShippingLines {
		if t := strings.TrimSpace(sl.MethodTitle); t != "" {
			methods = append(methods, t)
		}
	}

	return silverbene.OrderPayload{
		OrderNumber: o.Number,
		Currency:    o.Currency,
		Total:       money(o.Total),
		Shipping: silverbene.OrderShipping{
			Method: strings.Join(methods, ", "),
			Total:  money(o.ShippingTotal),
			Address: silverbene.Address{
				FirstName: ship.FirstName,
				LastName:  ship.LastName,
				Company:   ship.Company,
				Address1:  ship.Address1,
				Address2:  ship.Address2,
				City:      ship.City,
				State:     ship.State,
				Postcode:  ship.Postcode,
				Country:   ship.Country,
				Phone:     o.Billing.Phone,
			},
		},
		Customer: silverbene.OrderCustomer{
			Email:     o.Billing.Email,
			FirstName: o.Billing.FirstName,
			LastName:  o.Billing.LastName,
			Phone:     o.Billing.Phone,
		},
		Items: items,
	}, true
}

// supplierID – SKU pusty w pozycji: id dostawcy z linku wariantu, potem produktu.
func (f *Forwarder) supplierID(log zerolog.Logger, li woocommerce.LineItem) string {
	for _, id := range []int64{li.VariationID, li.ProductID} {
		if id <= 0 {
			continue
		}
		var l db.ProductLink
		err := f.deps.DB.Select("supplier_id").Where("woo_id = ?", id).Take(&l).Error
		if err == nil && l.SupplierID != "" {
			return l.SupplierID
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Int64("woo_id", id).Msg("product link lookup failed")
		}
	}
	return ""
}

// unitPrice = total pozycji / ilość (bez podatku), 2 miejsca.
func unitPrice(li woocommerce.LineItem) string {
	total, err := decimal.NewFromString(strings.TrimSpace(li.Total))
	if err != nil || li.Quantity <= 0 {
		return "0.00"
	}
	return total.Div(decimal.NewFromInt(int64(li.Quantity))).StringFixed(2)
}

func money(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func (f *Forwarder) saveForward(log zerolog.Logger, fw db.OrderForward) {
	if err := f.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "woo_order_id"}},
		UpdateAll: true,
	}).Create(&fw).Error; err != nil {
		log.Error().Err(err).Msg("save order forward failed")
	}
}

func (f *Forwarder) saveCheckpoint(log zerolog.Logger, prev, next string) {
	if next == "" || next == prev {
		return
	}
	if err := db.SetKV(f.deps.DB, KVModifiedAfter, next); err != nil {
		log.Warn().Err(err).Msg("save orders checkpoint failed")
		return
	}
	log.Debug().Str("modified_after", next).Msg("orders checkpoint advanced")
}

// finish zapisuje przebieg w sync_runs (fetched=seen, created=sent, unchanged=skipped).
func (f *Forwarder) finish(log zerolog.Logger, run *db.SyncRun, res *Result, cause error) error {
	now := f.deps.Clock()
	run.FinishedAt = &now
	run.Status = db.RunDone
	if res != nil {
		run.Fetched = res.Seen
		run.Created = res.Sent
		run.Failed = res.Failed
		run.Unchanged = res.Skipped
	}
	if cause != nil {
		run.Status = db.RunError
		run.LastError = cause.Error()
	}
	if err := f.deps.DB.Save(run).Error; err != nil {
		log.Warn().Err(err).Msg("save sync run failed")
	}

	ev := log.Info()
	if cause != nil {
		ev = log.Error().Err(cause)
	}
	ev.Int("seen", run.Fetched).
		Int("sent", run.Created).
		Int("failed", run.Failed).
		Int("skipped", run.Unchanged).
		Msg("order forwarding finished")
	return cause
}
