package products

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartek5186/silverbene2woo/internal/catalog"
	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
)

func fixedNow() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }

func testSettings() Settings {
	s := DefaultSettings()
	s.SyncEnabled = true
	s.PerPage = 2
	s.DefaultBrand = "Silverbene"
	s.Pricing = catalog.Pricing{MarkupType: catalog.MarkupPercentage, MarkupValue: decimal.NewFromInt(50)}
	return s
}

func catalogPages() [][]map[string]any {
	return [][]map[string]any{
		{
			{
				"id": "101", "sku": "SB-A", "name": "<b>Ring A</b>", "price": "10", "stock": 3,
				"images":      []string{"https://img.test/a1.jpg", "https://img.test/a2.jpg", "not-a-url"},
				"category":    "Rings",
				"description": `<p onclick="x()">Nice</p><script>bad()</script>`,
				"attributes":  map[string]any{"Material": "925 Silver"},
			},
			{
				"id": "102", "sku": "SB-B", "name": "Necklace", "price": "20",
				"options": []map[string]any{
					{"option_id": "o1", "sku": "SB-B-RG", "price": "20", "qty": 2, "Option1 Name": "Color", "Option1 Value": "Rose Gold 14K", "image": "https://img.test/b-rg.jpg"},
					{"option_id": "o2", "sku": "SB-B-SV", "price": "22", "qty": 0, "Option1 Name": "Color", "Option1 Value": "Silver"},
				},
			},
		},
		{
			{"id": "103", "sku": "SB-C", "name": "Gone", "price": "5", "stock": 0},
			{"id": "900", "name": "Ghost", "stock": 1},
		},
	}
}

func TestSyncProducts_EndToEnd(t *testing.T) {
	h := newHarness(t, testSettings(), catalogPages()...)
	staleID := h.woo.seed(woocommerce.Product{SKU: "SB-C", Name: "Gone", Type: "simple"})
	ctx := context.Background()

	run, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, db.RunDone, run.Status)
	assert.Equal(t, 3, run.Pages)
	assert.Equal(t, 4, run.Fetched)
	assert.Equal(t, 4, run.Groups)
	assert.Equal(t, 2, run.Created)
	assert.Equal(t, 1, run.Deleted)
	assert.Equal(t, 0, run.Failed)

	assert.Equal(t, "1970-01-01", h.supplier.last["start_date"])
	assert.Equal(t, "2025-03-14", h.supplier.last["end_date"])
	assert.Equal(t, "1", h.supplier.last["is_really_stock"])

	// simple
	a := h.woo.bySKU("SB-A")
	require.NotNil(t, a)
	assert.Equal(t, "simple", a.Type)
	assert.Equal(t, "Ring A", a.Name)
	assert.Equal(t, "<p>Nice</p>", a.Description)
	assert.Equal(t, "15.00", a.RegularPrice)
	require.NotNil(t, a.StockQuantity)
	assert.Equal(t, 3, *a.StockQuantity)
	assert.Len(t, a.Images, 2)
	assert.Len(t, a.Categories, 1)
	assert.Len(t, a.Brands, 1)
	require.Len(t, a.Attributes, 1)
	assert.Equal(t, "Material", a.Attributes[0].Name)
	assert.Equal(t, "101", woocommerce.MetaValue(a.MetaData, woocommerce.MetaSupplierID))
	assert.Equal(t, "2025-03-14T10:00:00Z", woocommerce.MetaValue(a.MetaData, MetaSyncedAt))

	// variable: tylko dostępny kolor
	b := h.woo.bySKU("SB-B")
	require.NotNil(t, b)
	assert.Equal(t, "variable", b.Type)
	color := b.Attributes[len(b.Attributes)-1]
	assert.Equal(t, catalog.ColorAttribute, color.Name)
	assert.True(t, color.Variation)
	assert.Equal(t, []string{"Rose Gold"}, color.Options)
	vars := h.woo.variations[b.ID]
	require.Len(t, vars, 1)
	assert.Equal(t, "SB-B-RG", vars[0].SKU)
	assert.Equal(t, "30.00", vars[0].RegularPrice)
	assert.Equal(t, "Rose Gold", vars[0].Attributes[0].Option)
	assert.Equal(t, "o1", woocommerce.MetaValue(vars[0].MetaData, MetaOptionID))

	// stock-out
	assert.Nil(t, h.woo.bySKU("SB-C"))
	_, stillThere := h.woo.products[staleID]
	assert.False(t, stillThere)

	// media cache: 2 obrazki produktu + obrazek wariantu
	var media int64
	require.NoError(t, h.db.DB.Model(&db.MediaAsset{}).Count(&media).Error)
	assert.EqualValues(t, 3, media)

	var links []db.ProductLink
	require.NoError(t, h.db.DB.Order("sku").Find(&links).Error)
	require.Len(t, links, 2)
	assert.Equal(t, "SB-A", links[0].SKU)
	assert.Equal(t, "created", links[0].SyncStatus)
	assert.NotEmpty(t, links[0].PayloadHash)

	var issues []db.LinkIssue
	require.NoError(t, h.db.DB.Find(&issues).Error)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueMissingSKU, issues[0].Reason)
	assert.Equal(t, "900", issues[0].SKU)

	n, err := LastNotice(h.db.DB)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "success", n.Type)
	assert.Equal(t, run.RunID, n.RunID)
	assert.Contains(t, n.Message, "2 created")

	// drugi przebieg: bez zmian -> bez zapisów
	creates, updates := h.woo.creates, h.woo.updates
	run2, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, run2.Unchanged)
	assert.Equal(t, 0, run2.Created+run2.Updated+run2.Deleted+run2.Failed)
	assert.Equal(t, creates, h.woo.creates)
	assert.Equal(t, updates, h.woo.updates)

	// zmiana ceny: update z obrazkami po id z cache
	h.supplier.pages[0][0]["price"] = "12"
	run3, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, run3.Updated)
	assert.Equal(t, 1, run3.Unchanged)
	a = h.woo.bySKU("SB-A")
	assert.Equal(t, "18.00", a.RegularPrice)
	for _, img := range h.woo.lastWrite.Images {
		assert.Empty(t, img.Src, "known media goes by id")
		assert.NotZero(t, img.ID)
	}
}

func TestSyncProducts_VariationStockOutIsDeleted(t *testing.T) {
	h := newHarness(t, testSettings(), catalogPages()[0])
	ctx := context.Background()

	_, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	b := h.woo.bySKU("SB-B")
	require.NotNil(t, b)
	require.Len(t, h.woo.variations[b.ID], 1)

	// Rose Gold wyprzedany, Silver wraca
	opts := h.supplier.pages[0][1]["options"].([]map[string]any)
	opts[0]["qty"] = 0
	opts[1]["qty"] = 4

	run, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)

	vars := h.woo.variations[b.ID]
	require.Len(t, vars, 1)
	assert.Equal(t, "SB-B-SV", vars[0].SKU)
	assert.Equal(t, "33.00", vars[0].RegularPrice)
}

func TestSyncProducts_InvalidCachedImageRetriesWithSrc(t *testing.T) {
	h := newHarness(t, testSettings(), []map[string]any{
		{"id": "1", "sku": "SB-IMG", "name": "Img", "price": "1", "stock": 1, "images": []string{"https://img.test/x.jpg"}},
	})
	require.NoError(t, h.db.DB.Create(&db.MediaAsset{URLHash: mediaKey("https://img.test/x.jpg"), URL: "https://img.test/x.jpg", WooMediaID: 999}).Error)
	h.woo.badMedia[999] = true

	run, err := h.sync.SyncProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Created)
	assert.Equal(t, 0, run.Failed)

	var asset db.MediaAsset
	require.NoError(t, h.db.DB.First(&asset, "url_hash = ?", mediaKey("https://img.test/x.jpg")).Error)
	assert.NotEqual(t, int64(999), asset.WooMediaID)
	assert.NotZero(t, asset.WooMediaID)
}

func TestSyncProducts_AdoptsExistingShopProduct(t *testing.T) {
	h := newHarness(t, testSettings(), []map[string]any{
		{"id": "1", "sku": "SB-OLD", "name": "Old", "price": "1", "stock": 1, "status": "draft"},
	})
	id := h.woo.seed(woocommerce.Product{SKU: "SB-OLD", Name: "Manual", Type: "simple"})

	run, err := h.sync.SyncProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)
	assert.Equal(t, 0, h.woo.creates)

	p := h.woo.products[id]
	assert.Equal(t, "Old", p.Name)
	assert.Equal(t, "draft", p.Status)
}

func TestSyncProducts_StaleLinkRecreates(t *testing.T) {
	h := newHarness(t, testSettings(), []map[string]any{
		{"id": "1", "sku": "SB-S", "name": "S", "price": "1", "stock": 1},
	})
	require.NoError(t, h.db.DB.Create(&db.ProductLink{WooID: 4242, SKU: "SB-S", PayloadHash: "old"}).Error)

	run, err := h.sync.SyncProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Created)

	var count int64
	require.NoError(t, h.db.DB.Model(&db.ProductLink{}).Where("woo_id = ?", 4242).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSyncProducts_ProductDeletedInShopIsRecreated(t *testing.T) {
	h := newHarness(t, testSettings(), catalogPages()[0])
	ctx := context.Background()

	_, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	a := h.woo.bySKU("SB-A")
	require.NotNil(t, a)
	delete(h.woo.products, a.ID)

	run, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Created)
	assert.Equal(t, 1, run.Unchanged)

	again := h.woo.bySKU("SB-A")
	require.NotNil(t, again)
	assert.NotEqual(t, a.ID, again.ID)

	var links []db.ProductLink
	require.NoError(t, h.db.DB.Where("sku = ?", "SB-A").Find(&links).Error)
	require.Len(t, links, 1)
	assert.EqualValues(t, again.ID, links[0].WooID)
}

func TestSyncProducts_TrashedProductIsRestored(t *testing.T) {
	h := newHarness(t, testSettings(), catalogPages()[0])
	ctx := context.Background()

	_, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	a := h.woo.bySKU("SB-A")
	require.NotNil(t, a)
	h.woo.products[a.ID].Status = "trash"

	run, err := h.sync.SyncProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)
	assert.Equal(t, 0, run.Created)
	assert.Equal(t, "publish", h.woo.products[a.ID].Status)
}

func TestSyncProducts_ParentItemFirstKeepsGroupsApart(t *testing.T) {
	h := newHarness(t, testSettings(), []map[string]any{
		{"id": "1", "sku": "RING", "name": "Ring", "price": "10", "stock": 1},
		{"id": "2", "sku": "RING-RG", "parent_sku": "RING", "name": "Ring", "price": "11", "stock": 2},
		{"id": "3", "sku": "EAR", "name": "Earring", "price": "5", "stock": 1},
		{"id": "4", "sku": "EAR-S", "parent_sku": "EAR", "name": "Earring", "price": "6", "stock": 1},
	})

	run, err := h.sync.SyncProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Groups)
	assert.Equal(t, 2, run.Created)
	assert.Equal(t, 0, run.Failed)

	ring := h.woo.bySKU("RING")
	require.NotNil(t, ring)
	assert.Equal(t, "Ring", ring.Name)
	assert.Equal(t, "variable", ring.Type)
	assert.Equal(t, "1", woocommerce.MetaValue(ring.MetaData, woocommerce.MetaSupplierID))

	ear := h.woo.bySKU("EAR")
	require.NotNil(t, ear)
	assert.Equal(t, "Earring", ear.Name)

	skus := map[string]bool{}
	for _, v := range h.woo.variations[ring.ID] {
		skus[v.SKU] = true
	}
	assert.Equal(t, map[string]bool{"": true, "RING-RG": true}, skus)
}

func TestSyncProducts_DisabledAndRunning(t *testing.T) {
	s := testSettings()
	s.SyncEnabled = false
	h := newHarness(t, s, catalogPages()...)
	ctx := context.Background()

	run, err := h.sync.SyncProducts(ctx, false)
	assert.NoError(t, err)
	assert.Nil(t, run)
	assert.Zero(t, h.supplier.calls)

	h.sync.running.Lock()
	_, err = h.sync.SyncProducts(ctx, true)
	h.sync.running.Unlock()
	assert.ErrorIs(t, err, ErrSyncRunning)

	// force ignoruje sync_enabled
	run, err = h.sync.SyncProducts(ctx, true)
	require.NoError(t, err)
	assert.True(t, run.Forced)
	assert.Equal(t, 2, run.Created)
}

func TestSyncProducts_SupplierErrorAbortsRun(t *testing.T) {
	h := newHarness(t, testSettings(), catalogPages()...)
	h.supplier.status = 500

	run, err := h.sync.SyncProducts(context.Background(), false)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, db.RunError, run.Status)
	assert.Contains(t, run.LastError, "supplier page 1")
	assert.Zero(t, h.woo.creates)

	var stored db.SyncRun
	require.NoError(t, h.db.DB.First(&stored, "run_id = ?", run.RunID).Error)
	assert.Equal(t, db.RunError, stored.Status)
	require.NotNil(t, stored.FinishedAt)

	v, err := db.GetKV(h.db.DB, KVNotice)
	require.NoError(t, err)
	var n Notice
	require.NoError(t, json.Unmarshal([]byte(v), &n))
	assert.Equal(t, "error", n.Type)
	assert.Contains(t, n.Message, "Check the logs")
}

func TestSyncProducts_LinkIssues(t *testing.T) {
	h := newHarness(t, testSettings(), []map[string]any{
		{"id": "1", "sku": "SB-A", "name": "A", "price": "1", "stock": 1},
	})
	require.NoError(t, h.db.DB.Create(&[]db.ProductLink{
		{WooID: 50, SKU: "DUP"},
		{WooID: 51, SKU: "DUP"},
		{WooID: 60, SKU: "GONE", SupplierID: "77"},
		{WooID: 61, SKU: "MANUAL"},
	}).Error)

	_, err := h.sync.SyncProducts(context.Background(), false)
	require.NoError(t, err)

	var issues []db.LinkIssue
	require.NoError(t, h.db.DB.Order("reason").Find(&issues).Error)
	require.Len(t, issues, 2)
	assert.Equal(t, IssueDuplicateSKU, issues[0].Reason)
	assert.Equal(t, "DUP", issues[0].SKU)
	assert.Equal(t, "[50,51]", issues[0].WooIDs)
	assert.Equal(t, IssueMissingInSupplier, issues[1].Reason)
	assert.Equal(t, "GONE", issues[1].SKU)
}

func TestSyncProducts_RepeatedPageStopsPaging(t *testing.T) {
	page := []map[string]any{
		{"id": "1", "sku": "SB-A", "name": "A", "price": "1", "stock": 1},
		{"id": "2", "sku": "SB-B", "name": "B", "price": "1", "stock": 1},
	}
	h := newHarness(t, testSettings(), page, page, page)
	require.NoError(t, h.db.DB.Create(&db.ProductLink{WooID: 60, SKU: "GONE", SupplierID: "77"}).Error)

	run, err := h.sync.SyncProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Pages)
	assert.Equal(t, 2, h.supplier.calls)
	assert.Equal(t, 2, run.Fetched)
	assert.Equal(t, 2, run.Created)

	// pełny katalog: brakujący u dostawcy produkt jest zgłaszany
	var issues []db.LinkIssue
	require.NoError(t, h.db.DB.Where("reason = ?", IssueMissingInSupplier).Find(&issues).Error)
	require.Len(t, issues, 1)
	assert.Equal(t, "GONE", issues[0].SKU)
}

func TestSyncProducts_MaxPagesMarksCatalogIncomplete(t *testing.T) {
	cfg := testSettings()
	cfg.MaxPages = 1
	h := newHarness(t, cfg, catalogPages()...)
	require.NoError(t, h.db.DB.Create(&db.ProductLink{WooID: 60, SKU: "GONE", SupplierID: "77"}).Error)

	run, err := h.sync.SyncProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, db.RunDone, run.Status)
	assert.Equal(t, 1, run.Pages)
	assert.Equal(t, 1, h.supplier.calls)
	assert.Equal(t, 2, run.Fetched)
	assert.Equal(t, 2, run.Created)

	// niepełny katalog: bez missing_in_supplier
	var count int64
	require.NoError(t, h.db.DB.Model(&db.LinkIssue{}).Where("reason = ?", IssueMissingInSupplier).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSettingsNormalize(t *testing.T) {
	s := Settings{SyncInterval: "weekly", SyncStartDate: "2025-13-40", PerPage: 1000}
	s.Normalize()
	assert.Equal(t, IntervalHourly, s.SyncInterval)
	assert.Equal(t, time.Hour, s.Interval())
	assert.Equal(t, "", s.SyncStartDate)
	assert.Equal(t, 50, s.PerPage)
	assert.Equal(t, 500, s.MaxPages)
	assert.Equal(t, catalog.MarkupNone, s.MarkupType)

	s = Settings{SyncInterval: "TwiceDaily", SyncStartDate: "2024-06-01"}
	s.Normalize()
	assert.Equal(t, 12*time.Hour, s.Interval())
	assert.Equal(t, "2024-06-01", s.SyncStartDate)
}

func TestSettingsJSONFlattensPricing(t *testing.T) {
	var s Settings
	require.NoError(t, json.Unmarshal([]byte(`{
		"sync_enabled": true,
		"price_markup_type": "fixed",
		"price_markup_value": 5,
		"price_markup_value_below_100": null,
		"price_markup_value_above_100": "2.5",
		"pre_markup_shipping_fee": 1
	}`), &s))
	assert.True(t, s.SyncEnabled)
	assert.Equal(t, catalog.MarkupFixed, s.MarkupType)
	assert.True(t, decimal.NewFromInt(5).Equal(s.MarkupValue))
	assert.Nil(t, s.MarkupBelow100)
	require.NotNil(t, s.MarkupAbove100)
	assert.Equal(t, "2.5", s.MarkupAbove100.String())
}

func TestProductStatusAndHash(t *testing.T) {
	assert.Equal(t, "draft", productStatus(" Draft "))
	assert.Equal(t, "publish", productStatus("archived"))

	p := woocommerce.Product{SKU: "A", Images: []woocommerce.Image{{ID: 5}}}
	q := woocommerce.Product{SKU: "A", Images: []woocommerce.Image{{Src: "https://x/a.jpg"}}}
	assert.Equal(t, payloadHash(p, []string{"https://x/a.jpg"}, nil), payloadHash(q, []string{"https://x/a.jpg"}, nil))
	assert.NotEqual(t, payloadHash(p, []string{"https://x/a.jpg"}, nil), payloadHash(p, []string{"https://x/b.jpg"}, nil))
}
