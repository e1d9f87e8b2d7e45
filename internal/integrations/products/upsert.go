package products

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bartek5186/silverbene2woo/internal/catalog"
	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
)

const (
	MetaSyncedAt = "_silverbene_synced_at"
	MetaOptionID = "_silverbene_option_id"

	typeSimple   = "simple"
	typeVariable = "variable"
)

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
)

var allowedStatuses = map[string]bool{"draft": true, "pending": true, "private": true, "publish": true}

func productStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if allowedStatuses[s] {
		return s
	}
	return "publish"
}

func (s *Sync) upsert(ctx context.Context, log zerolog.Logger, st *runState, g catalog.Group) (outcome, error) {
	link := st.primary(g.SKU)

	var wooID int64
	if link != nil {
		wooID = int64(link.WooID)
	} else {
		var err error
		if wooID, err = s.findWooID(ctx, g.SKU); err != nil {
			return 0, err
		}
	}

	desired, vars := s.buildProduct(ctx, log, g)
	images := validImages(g.Product.Images)
	hash := payloadHash(desired, images, vars)

	if link != nil && link.PayloadHash == hash {
		alive, err := s.linkAlive(ctx, log, st, g.SKU, wooID)
		if err != nil {
			return 0, err
		}
		if !alive {
			link = nil
			if wooID, err = s.findWooID(ctx, g.SKU); err != nil {
				return 0, err
			}
		}
	}
	if link != nil && link.PayloadHash == hash {
		now := s.deps.Clock()
		link.SyncStatus, link.SyncedAt = "unchanged", &now
		if err := s.deps.DB.Model(&db.ProductLink{}).Where("woo_id = ?", link.WooID).
			Updates(map[string]any{"sync_status": "unchanged", "synced_at": now}).Error; err != nil {
			log.Warn().Err(err).Str("sku", g.SKU).Msg("touch link failed")
		}
		return outcomeUnchanged, nil
	}

	now := s.deps.Clock()
	desired.Images = s.resolveImages(images)
	desired.MetaData = append(desired.MetaData, woocommerce.Meta{Key: MetaSyncedAt, Value: now.UTC().Format(time.RFC3339)})

	saved, created, err := s.writeProduct(ctx, log, st, g.SKU, wooID, desired, images)
	if err != nil {
		return 0, err
	}
	s.rememberMedia(log, images, saved.Images)

	res := outcomeUpdated
	if created {
		res = outcomeCreated
		log.Info().Str("sku", g.SKU).Int64("woo_id", saved.ID).Str("type", desired.Type).Msg("product created")
	} else {
		log.Debug().Str("sku", g.SKU).Int64("woo_id", saved.ID).Msg("product updated")
	}

	var varErr error
	if desired.Type == typeVariable {
		if varErr = s.reconcileVariations(ctx, log, saved.ID, vars); varErr != nil {
			// pusty hash: następny przebieg zapisze produkt jeszcze raz
			hash = ""
		}
	}

	l := db.ProductLink{
		WooID:        uint(saved.ID),
		SKU:          g.SKU,
		SupplierID:   supplierID(g),
		Name:         desired.Name,
		Type:         desired.Type,
		Status:       saved.Status,
		PayloadHash:  hash,
		SyncStatus:   "updated",
		SyncedAt:     &now,
		DateModified: saved.DateModified,
	}
	if created {
		l.SyncStatus = "created"
	}
	if l.Status == "" {
		l.Status = desired.Status
	}
	if err := s.saveLink(st, l); err != nil {
		return 0, err
	}
	if varErr != nil {
		return 0, fmt.Errorf("variations: %w", varErr)
	}
	return res, nil
}

func (s *Sync) findWooID(ctx context.Context, sku string) (int64, error) {
	found, err := s.deps.Store.FindBySKU(ctx, sku)
	if err != nil {
		return 0, fmt.Errorf("find by sku: %w", err)
	}
	if found == nil {
		return 0, nil
	}
	return found.ID, nil
}

// linkAlive sprawdza, czy produkt z linku nadal jest w sklepie (poza koszem).
// Brak produktu usuwa link; produkt w koszu zostaje nadpisany przy zapisie.
func (s *Sync) linkAlive(ctx context.Context, log zerolog.Logger, st *runState, sku string, wooID int64) (bool, error) {
	status, err := s.deps.Store.ProductStatus(ctx, wooID)
	if err != nil {
		return false, fmt.Errorf("check product %d: %w", wooID, err)
	}
	switch status {
	case "":
		log.Warn().Str("sku", sku).Int64("woo_id", wooID).Msg("linked product missing in shop, writing again")
		s.dropLink(st, sku, wooID)
		return false, nil
	case "trash":
		log.Warn().Str("sku", sku).Int64("woo_id", wooID).Msg("linked product in trash, writing again")
		return false, nil
	}
	return true, nil
}

// writeProduct zapisuje produkt; odrzucone id mediów -> czyści cache i ponawia raz z src.
func (s *Sync) writeProduct(ctx context.Context, log zerolog.Logger, st *runState, sku string, wooID int64, p woocommerce.Product, images []string) (*woocommerce.Product, bool, error) {
	saved, created, err := s.saveProduct(ctx, st, sku, wooID, p)
	if woocommerce.IsInvalidImage(err) {
		log.Warn().Err(err).Str("sku", sku).Msg("cached media rejected, retrying with source urls")
		s.forgetMedia(log, images)
		p.Images = srcImages(images)
		saved, created, err = s.saveProduct(ctx, st, sku, wooID, p)
	}
	return saved, created, err
}

func (s *Sync) saveProduct(ctx context.Context, st *runState, sku string, wooID int64, p woocommerce.Product) (*woocommerce.Product, bool, error) {
	if wooID > 0 {
		saved, err := s.deps.Store.UpdateProduct(ctx, wooID, p)
		if !woocommerce.IsNotFound(err) {
			return saved, false, err
		}
		// produkt usunięty w sklepie – link nieaktualny
		s.dropLink(st, sku, wooID)
	}

	saved, err := s.deps.Store.CreateProduct(ctx, p)
	if woocommerce.IsDuplicateSKU(err) {
		if owner := woocommerce.ResourceID(err); owner > 0 {
			saved, err = s.deps.Store.UpdateProduct(ctx, owner, p)
			return saved, false, err
		}
	}
	return saved, err == nil, err
}

// buildProduct składa docelowy stan produktu sklepu (bez obrazków i synced_at).
func (s *Sync) buildProduct(ctx context.Context, log zerolog.Logger, g catalog.Group) (woocommerce.Product, []catalog.Variation) {
	p := g.Product

	name := catalog.StripTags(p.Name)
	if name == "" {
		name = g.SKU
	}
	out := woocommerce.Product{
		Name:             name,
		SKU:              g.SKU,
		Type:             typeSimple,
		Status:           productStatus(p.Status),
		Description:      catalog.SanitizeHTML(p.Description),
		ShortDescription: catalog.SanitizeHTML(p.ShortDescription),
		Weight:           p.Weight,
		MetaData:         []woocommerce.Meta{{Key: woocommerce.MetaSupplierID, Value: supplierID(g)}},
	}
	if p.Length != "" || p.Width != "" || p.Height != "" {
		out.Dimensions = &woocommerce.Dimensions{Length: p.Length, Width: p.Width, Height: p.Height}
	}

	categories := p.Categories
	if len(categories) == 0 && s.cfg.DefaultCategory != "" {
		categories = []string{s.cfg.DefaultCategory}
	}
	out.Categories = s.ensureTerms(ctx, log, "category", s.deps.Store.EnsureCategory, categories)
	out.Tags = s.ensureTerms(ctx, log, "tag", s.deps.Store.EnsureTag, p.Tags)
	if s.cfg.DefaultBrand != "" {
		out.Brands = s.ensureTerms(ctx, log, "brand", s.deps.Store.EnsureBrand, []string{s.cfg.DefaultBrand})
	}

	attrs := supplierAttributes(p.Attributes)

	p.Price, p.HasPrice = basePrice(p)
	if g.Variable() {
		vars := catalog.ColorVariations(p, s.cfg.Pricing)
		var offered []string
		for _, v := range vars {
			if v.InStock() {
				offered = append(offered, v.AttributeValue)
			}
		}
		if len(offered) > 0 {
			out.Type = typeVariable
			out.Attributes = append(attrs, woocommerce.Attribute{
				Name:      catalog.ColorAttribute,
				Position:  len(attrs),
				Visible:   true,
				Variation: true,
				Options:   offered,
			})
			return out, vars
		}
	}

	// simple
	manage := true
	stock := catalog.TotalStock(p)
	out.RegularPrice = catalog.ApplyMarkup(p.Price, s.cfg.Pricing).StringFixed(2)
	out.ManageStock = &manage
	out.StockQuantity = &stock
	out.StockStatus = "instock"
	out.Attributes = attrs
	return out, nil
}

// basePrice: cena produktu, a gdy brak – cena pierwszej opcji z ceną.
func basePrice(p silverbene.Product) (decimal.Decimal, bool) {
	if p.HasPrice {
		return p.Price, true
	}
	for _, o := range p.Options {
		if o.HasPrice {
			return o.Price, true
		}
	}
	return decimal.Zero, false
}

func supplierID(g catalog.Group) string {
	if g.Product.ID != "" {
		return g.Product.ID
	}
	return g.SKU
}

// supplierAttributes – atrybuty dostawcy jako widoczne, niewariantowe atrybuty lokalne.
func supplierAttributes(in []silverbene.Attribute) []woocommerce.Attribute {
	out := make([]woocommerce.Attribute, 0, len(in))
	for _, a := range in {
		name := catalog.StripTags(a.Name)
		if name == "" || len(a.Values) == 0 || strings.EqualFold(name, catalog.ColorAttribute) {
			continue
		}
		out = append(out, woocommerce.Attribute{
			Name:     name,
			Position: len(out),
			Visible:  true,
			Options:  a.Values,
		})
	}
	return out
}

type ensureFunc func(ctx context.Context, name string) (int64, error)

// ensureTerms – błędy pojedynczych termów logujemy i pomijamy.
func (s *Sync) ensureTerms(ctx context.Context, log zerolog.Logger, kind string, ensure ensureFunc, names []string) []woocommerce.TermRef {
	var refs []woocommerce.TermRef
	seen := map[int64]bool{}
	for _, n := range names {
		id, err := ensure(ctx, n)
		if err != nil {
			log.Warn().Err(err).Str(kind, n).Msg("ensure term failed")
			continue
		}
		if id > 0 && !seen[id] {
			seen[id] = true
			refs = append(refs, woocommerce.TermRef{ID: id})
		}
	}
	return refs
}

// payloadHash – odcisk docelowego stanu (bez id mediów i synced_at).
func payloadHash(p woocommerce.Product, images []string, vars []catalog.Variation) string {
	p.Images = nil
	b, _ := json.Marshal(struct {
		Product    woocommerce.Product `json:"product"`
		Images     []string            `json:"images"`
		Variations []catalog.Variation `json:"variations"`
	}{p, images, vars})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
