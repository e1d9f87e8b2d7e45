package products

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations"
	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
)

// fakeSupplier – strony katalogu product_list_by_date.
type fakeSupplier struct {
	mu     sync.Mutex
	pages  [][]map[string]any
	status int
	calls  int
	last   map[string]string
}

func (f *fakeSupplier) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.HasSuffix(r.URL.Path, silverbene.DefaultProductsByDateEndpoint) {
		writeJSON(w, 200, map[string]any{"code": 0, "data": []any{}})
		return
	}
	f.calls++
	q := r.URL.Query()
	f.last = map[string]string{
		"start_date":      q.Get("start_date"),
		"end_date":        q.Get("end_date"),
		"is_really_stock": q.Get("is_really_stock"),
		"per_page":        q.Get("per_page"),
	}
	if f.status != 0 {
		writeJSON(w, f.status, map[string]any{"message": "supplier down"})
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	items := []map[string]any{}
	if page >= 1 && page <= len(f.pages) {
		items = f.pages[page-1]
	}
	writeJSON(w, 200, map[string]any{"code": 0, "data": items})
}

// fakeWoo – minimalny sklep WooCommerce w pamięci.
type fakeWoo struct {
	mu         sync.Mutex
	nextID     int64
	nextMedia  int64
	products   map[int64]*woocommerce.Product
	variations map[int64][]woocommerce.Variation
	terms      map[string][]woocommerce.Term
	badMedia   map[int64]bool

	creates, updates, deletes, batches int
	lastWrite                          woocommerce.Product
}

func newFakeWoo() *fakeWoo {
	return &fakeWoo{
		nextID:     100,
		nextMedia:  5000,
		products:   map[int64]*woocommerce.Product{},
		variations: map[int64][]woocommerce.Variation{},
		terms:      map[string][]woocommerce.Term{},
		badMedia:   map[int64]bool{},
	}
}

func (f *fakeWoo) seed(p woocommerce.Product) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.products[p.ID] = &p
	return p.ID
}

func (f *fakeWoo) bySKU(sku string) *woocommerce.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.SKU == sku {
			cp := *p
			return &cp
		}
	}
	return nil
}

// images: {id} musi być znane, {src} dostaje nowy id załącznika.
func (f *fakeWoo) attach(in []woocommerce.Image) ([]woocommerce.Image, bool) {
	out := make([]woocommerce.Image, 0, len(in))
	for _, img := range in {
		if img.ID > 0 {
			if f.badMedia[img.ID] {
				return nil, false
			}
			out = append(out, woocommerce.Image{ID: img.ID})
			continue
		}
		f.nextMedia++
		out = append(out, woocommerce.Image{ID: f.nextMedia, Src: img.Src})
	}
	return out, true
}

func (f *fakeWoo) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/wp-json/wc/v3/")
	parts := strings.Split(path, "/")
	invalidImage := map[string]any{"code": "woocommerce_product_invalid_image_id", "message": "invalid image ID", "data": map[string]any{"status": 400}}

	switch {
	case parts[0] == "products" && len(parts) == 2 && (parts[1] == "categories" || parts[1] == "tags" || parts[1] == "brands"):
		tax := parts[1]
		if r.Method == http.MethodGet {
			var found []woocommerce.Term
			for _, t := range f.terms[tax] {
				if strings.EqualFold(t.Name, r.URL.Query().Get("search")) {
					found = append(found, t)
				}
			}
			writeJSON(w, 200, found)
			return
		}
		var t woocommerce.Term
		_ = json.NewDecoder(r.Body).Decode(&t)
		f.nextID++
		t.ID = f.nextID
		f.terms[tax] = append(f.terms[tax], t)
		writeJSON(w, 201, t)

	case path == "products" && r.Method == http.MethodGet:
		sku := r.URL.Query().Get("sku")
		var out []woocommerce.Product
		for _, p := range f.products {
			if sku == "" || p.SKU == sku {
				out = append(out, *p)
			}
		}
		writeJSON(w, 200, out)

	case path == "products" && r.Method == http.MethodPost:
		var p woocommerce.Product
		_ = json.NewDecoder(r.Body).Decode(&p)
		imgs, ok := f.attach(p.Images)
		if !ok {
			writeJSON(w, 400, invalidImage)
			return
		}
		for _, ex := range f.products {
			if ex.SKU == p.SKU {
				writeJSON(w, 400, map[string]any{"code": "product_invalid_sku", "message": "dup", "data": map[string]any{"status": 400, "resource_id": ex.ID}})
				return
			}
		}
		f.creates++
		f.nextID++
		p.ID = f.nextID
		p.Images = imgs
		if p.Status == "" {
			p.Status = "publish"
		}
		f.products[p.ID] = &p
		f.lastWrite = p
		writeJSON(w, 201, p)

	case parts[0] == "products" && len(parts) == 2:
		id, _ := strconv.ParseInt(parts[1], 10, 64)
		p, ok := f.products[id]
		if !ok {
			writeJSON(w, 404, map[string]any{"code": "woocommerce_rest_product_invalid_id", "message": "Invalid ID."})
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, 200, p)
		case http.MethodDelete:
			f.deletes++
			delete(f.products, id)
			delete(f.variations, id)
			writeJSON(w, 200, p)
		case http.MethodPut:
			var in woocommerce.Product
			_ = json.NewDecoder(r.Body).Decode(&in)
			imgs, ok := f.attach(in.Images)
			if !ok {
				writeJSON(w, 400, invalidImage)
				return
			}
			f.updates++
			in.ID = id
			in.Images = imgs
			if in.Status == "" {
				in.Status = p.Status
			}
			f.products[id] = &in
			f.lastWrite = in
			writeJSON(w, 200, in)
		}

	case parts[0] == "products" && len(parts) == 3 && parts[2] == "variations":
		id, _ := strconv.ParseInt(parts[1], 10, 64)
		w.Header().Set("X-WP-TotalPages", "1")
		vs := f.variations[id]
		if vs == nil {
			vs = []woocommerce.Variation{}
		}
		writeJSON(w, 200, vs)

	case parts[0] == "products" && len(parts) == 4 && parts[3] == "batch":
		id, _ := strconv.ParseInt(parts[1], 10, 64)
		f.batches++
		var b woocommerce.VariationBatch
		_ = json.NewDecoder(r.Body).Decode(&b)
		var res woocommerce.VariationBatchResult
		cur := f.variations[id]
		for _, v := range b.Create {
			f.nextID++
			v.ID = f.nextID
			if v.Image != nil {
				imgs, _ := f.attach([]woocommerce.Image{*v.Image})
				if len(imgs) == 1 {
					v.Image = &imgs[0]
				}
			}
			cur = append(cur, v)
			res.Create = append(res.Create, v)
		}
		for _, v := range b.Update {
			for i := range cur {
				if cur[i].ID == v.ID {
					cur[i] = v
				}
			}
			res.Update = append(res.Update, v)
		}
		for _, del := range b.Delete {
			kept := cur[:0]
			for _, v := range cur {
				if v.ID != del {
					kept = append(kept, v)
				}
			}
			cur = kept
			res.Delete = append(res.Delete, woocommerce.Variation{ID: del})
		}
		f.variations[id] = cur
		writeJSON(w, 200, res)

	default:
		writeJSON(w, 404, map[string]any{"code": "rest_no_route", "message": path})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	sync     *Sync
	db       *db.Handle
	supplier *fakeSupplier
	woo      *fakeWoo
}

func newHarness(t *testing.T, settings Settings, pages ...[]map[string]any) *harness {
	t.Helper()

	h, err := db.OpenAt(t.TempDir(), db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, h.Migrate())

	sup := &fakeSupplier{pages: pages}
	supSrv := httptest.NewServer(http.HandlerFunc(sup.handler))
	t.Cleanup(supSrv.Close)

	woo := newFakeWoo()
	wooSrv := httptest.NewServer(http.HandlerFunc(woo.handler))
	t.Cleanup(wooSrv.Close)

	scfg := silverbene.DefaultConfig()
	scfg.APIURL = supSrv.URL + "/api"
	scfg.APIKey = "token"
	scfg.MaxRetries = 0

	wcfg := woocommerce.DefaultConfig()
	wcfg.BaseURL = wooSrv.URL
	wcfg.ConsumerKey, wcfg.ConsumerSec = "ck", "cs"
	wcfg.MaxRetries = 0

	deps := integrations.Deps{
		DB:       h.DB,
		Supplier: silverbene.New(zerolog.Nop(), scfg),
		Store:    woocommerce.New(zerolog.Nop(), wcfg),
		Now:      fixedNow,
	}
	return &harness{
		sync:     New(zerolog.Nop(), settings, deps),
		db:       h,
		supplier: sup,
		woo:      woo,
	}
}
