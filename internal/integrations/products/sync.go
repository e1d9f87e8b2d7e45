package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bartek5186/silverbene2woo/internal/catalog"
	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
)

const (
	KVNotice = "sync.notice"

	epochStart = "1970-01-01"
	dateLayout = "2006-01-02"
)

// Notice – ostatni komunikat synchronizacji (success / error), trzymany w kv.
type Notice struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	RunID   string    `json:"run_id"`
	At      time.Time `json:"at"`
}

// runState – stan jednego przebiegu: indeks linków po SKU i co widział dostawca.
type runState struct {
	links map[string][]db.ProductLink
	seen  map[string]struct{}
	noSKU []silverbene.Product
}

// SyncProducts pobiera katalog dostawcy i uzgadnia go ze sklepem.
// Zwraca nil, nil gdy synchronizacja jest wyłączona, a force=false.
func (s *Sync) SyncProducts(ctx context.Context, force bool) (*db.SyncRun, error) {
	if !force && !s.cfg.SyncEnabled {
		s.log.Debug().Msg("product sync disabled, skip")
		return nil, nil
	}
	if !s.running.TryLock() {
		return nil, ErrSyncRunning
	}
	defer s.running.Unlock()

	run := &db.SyncRun{
		RunID:     uuid.NewString(),
		Kind:      Name,
		Forced:    force,
		StartedAt: s.deps.Clock(),
		Status:    db.RunRunning,
	}
	log := s.log.With().Str("run_id", run.RunID).Logger()
	if err := s.deps.DB.Create(run).Error; err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}
	log.Info().Bool("force", force).Msg("product sync started")

	if !s.deps.Store.Configured() {
		return run, s.fail(log, run, errors.New("woocommerce is not configured"))
	}

	items, complete, err := s.fetchAll(ctx, log, run)
	if err != nil {
		return run, s.fail(log, run, err)
	}

	st, err := s.loadState()
	if err != nil {
		return run, s.fail(log, run, err)
	}

	groups := catalog.GroupProducts(items)
	run.Groups = len(groups)
	log.Info().Int("items", len(items)).Int("groups", len(groups)).Msg("supplier catalog fetched")

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return run, s.fail(log, run, err)
		}
		s.processGroup(ctx, log, run, st, g)
	}

	if err := s.rebuildLinkIssues(log, st, complete && s.cfg.SyncStartDate == ""); err != nil {
		log.Warn().Err(err).Msg("link issues rebuild failed")
	}
	return run, s.finish(log, run)
}

// fetchAll stronicuje product_list_by_date aż do krótkiej/pustej/powtórzonej strony
// albo max_pages. complete=false gdy przerwał limit stron.
func (s *Sync) fetchAll(ctx context.Context, log zerolog.Logger, run *db.SyncRun) ([]silverbene.Product, bool, error) {
	start := s.cfg.SyncStartDate
	if start == "" {
		start = epochStart
	}
	end := s.deps.Clock().Format(dateLayout)
	inStock := 1

	var (
		all     []silverbene.Product
		prevSig string
	)
	for page := 1; page <= s.cfg.MaxPages; page++ {
		items, err := s.deps.Supplier.GetProducts(ctx, silverbene.ProductQuery{
			Page:          page,
			PerPage:       s.cfg.PerPage,
			IsReallyStock: &inStock,
			StartDate:     start,
			EndDate:       end,
		})
		if err != nil {
			return nil, false, fmt.Errorf("supplier page %d: %w", page, err)
		}
		run.Pages = page
		if len(items) == 0 {
			return all, true, nil
		}

		sig := pageSignature(items)
		if sig == prevSig {
			log.Warn().Int("page", page).Msg("supplier returned the same page twice, stop paging")
			return all, true, nil
		}
		prevSig = sig

		all = append(all, items...)
		run.Fetched = len(all)
		log.Debug().Int("page", page).Int("items", len(items)).Msg("supplier page")

		if len(items) < s.cfg.PerPage {
			return all, true, nil
		}
	}
	log.Warn().Int("max_pages", s.cfg.MaxPages).Msg("max_pages reached, catalog may be incomplete")
	return all, false, nil
}

func pageSignature(items []silverbene.Product) string {
	var b strings.Builder
	for _, p := range items {
		b.WriteString(p.ID)
		b.WriteByte(':')
		b.WriteString(p.SKU)
		b.WriteByte('|')
	}
	return b.String()
}

func (s *Sync) loadState() (*runState, error) {
	var links []db.ProductLink
	if err := s.deps.DB.Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load product links: %w", err)
	}
	st := &runState{
		links: make(map[string][]db.ProductLink, len(links)),
		seen:  map[string]struct{}{},
	}
	for _, l := range links {
		if l.SKU == "" {
			continue
		}
		st.links[l.SKU] = append(st.links[l.SKU], l)
	}
	return st, nil
}

// primary – link dla SKU; wpisy w koszu tylko gdy nie ma innych.
func (st *runState) primary(sku string) *db.ProductLink {
	ls := st.links[sku]
	for i := range ls {
		if ls[i].Status != "trash" {
			return &ls[i]
		}
	}
	if len(ls) > 0 {
		return &ls[0]
	}
	return nil
}

func (s *Sync) processGroup(ctx context.Context, log zerolog.Logger, run *db.SyncRun, st *runState, g catalog.Group) {
	if g.SKU == "" {
		st.noSKU = append(st.noSKU, g.Product)
		log.Warn().Str("supplier_id", g.Product.ID).Str("name", g.Product.Name).Msg("supplier item without SKU, skip")
		return
	}
	st.seen[g.SKU] = struct{}{}

	if catalog.TotalStock(g.Product) <= 0 {
		deleted, err := s.deleteStockOut(ctx, log, st, g.SKU)
		if err != nil {
			run.Failed++
			log.Error().Err(err).Str("sku", g.SKU).Msg("stock-out delete failed")
			return
		}
		if deleted {
			run.Deleted++
		}
		return
	}

	res, err := s.upsert(ctx, log, st, g)
	if err != nil {
		run.Failed++
		log.Error().Err(err).Str("sku", g.SKU).Msg("product upsert failed")
		return
	}
	switch res {
	case outcomeCreated:
		run.Created++
	case outcomeUpdated:
		run.Updated++
	default:
		run.Unchanged++
	}
}

// deleteStockOut usuwa trwale produkt sklepu o danym SKU i jego link.
func (s *Sync) deleteStockOut(ctx context.Context, log zerolog.Logger, st *runState, sku string) (bool, error) {
	var ids []int64
	for _, l := range st.links[sku] {
		ids = append(ids, int64(l.WooID))
	}
	if len(ids) == 0 {
		p, err := s.deps.Store.FindBySKU(ctx, sku)
		if err != nil {
			return false, fmt.Errorf("find by sku: %w", err)
		}
		if p == nil {
			return false, nil
		}
		ids = append(ids, p.ID)
	}

	for _, id := range ids {
		if err := s.deps.Store.DeleteProduct(ctx, id); err != nil {
			return false, err
		}
		if err := s.deps.DB.Where("woo_id = ?", id).Delete(&db.ProductLink{}).Error; err != nil {
			return false, fmt.Errorf("delete link %d: %w", id, err)
		}
		log.Info().Str("sku", sku).Int64("woo_id", id).Msg("product removed: out of stock")
	}
	delete(st.links, sku)
	return true, nil
}

// saveLink upsertuje link i podmienia go w indeksie przebiegu.
func (s *Sync) saveLink(st *runState, l db.ProductLink) error {
	if err := s.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "woo_id"}},
		UpdateAll: true,
	}).Create(&l).Error; err != nil {
		return fmt.Errorf("save link %d: %w", l.WooID, err)
	}
	ls := st.links[l.SKU]
	for i := range ls {
		if ls[i].WooID == l.WooID {
			ls[i] = l
			return nil
		}
	}
	st.links[l.SKU] = append(ls, l)
	return nil
}

func (s *Sync) dropLink(st *runState, sku string, wooID int64) {
	_ = s.deps.DB.Where("woo_id = ?", wooID).Delete(&db.ProductLink{}).Error
	ls := st.links[sku][:0]
	for _, l := range st.links[sku] {
		if int64(l.WooID) != wooID {
			ls = append(ls, l)
		}
	}
	st.links[sku] = ls
}

func (s *Sync) finish(log zerolog.Logger, run *db.SyncRun) error {
	now := s.deps.Clock()
	run.FinishedAt = &now
	run.Status = db.RunDone
	if err := s.deps.DB.Save(run).Error; err != nil {
		log.Warn().Err(err).Msg("save sync run failed")
	}

	msg := fmt.Sprintf("Product sync finished: %d created, %d updated, %d unchanged, %d deleted, %d failed.",
		run.Created, run.Updated, run.Unchanged, run.Deleted, run.Failed)
	s.notice(log, Notice{Type: "success", Message: msg, RunID: run.RunID, At: now})

	log.Info().
		Int("pages", run.Pages).
		Int("fetched", run.Fetched).
		Int("groups", run.Groups).
		Int("created", run.Created).
		Int("updated", run.Updated).
		Int("unchanged", run.Unchanged).
		Int("deleted", run.Deleted).
		Int("failed", run.Failed).
		Msg("product sync finished")
	return nil
}

func (s *Sync) fail(log zerolog.Logger, run *db.SyncRun, cause error) error {
	now := s.deps.Clock()
	run.FinishedAt = &now
	run.Status = db.RunError
	run.LastError = cause.Error()
	if err := s.deps.DB.Save(run).Error; err != nil {
		log.Warn().Err(err).Msg("save sync run failed")
	}
	s.notice(log, Notice{
		Type:    "error",
		Message: "Product sync failed: " + cause.Error() + ". Check the logs for details.",
		RunID:   run.RunID,
		At:      now,
	})
	log.Error().Err(cause).Msg("product sync aborted")
	return cause
}

func (s *Sync) notice(log zerolog.Logger, n Notice) {
	b, _ := json.Marshal(n)
	if err := db.SetKV(s.deps.DB, KVNotice, string(b)); err != nil {
		log.Warn().Err(err).Msg("save sync notice failed")
	}
}

// LastNotice – ostatni komunikat synchronizacji (nil gdy brak).
func LastNotice(gdb *gorm.DB) (*Notice, error) {
	v, err := db.GetKV(gdb, KVNotice)
	if err != nil || v == "" {
		return nil, err
	}
	var n Notice
	if err := json.Unmarshal([]byte(v), &n); err != nil {
		return nil, err
	}
	return &n, nil
}
