// internal/integrations/woocommerce/cache.go
package woocommerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/bartek5186/silverbene2woo/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetaSupplierID – meta produktu z id dostawcy.
const MetaSupplierID = "_silverbene_product_id"

const primePerPage = 100

// PrimeLinks przechodzi po produktach sklepu (orderby modified desc, _fields z configu)
// i upsertuje product_links. payload_hash zostaje nietknięty – liczy go tylko sync.
// Po pełnym przejściu linki do produktów, których sklep już nie zwraca, są usuwane.
func (c *Client) PrimeLinks(ctx context.Context, gdb *gorm.DB) (int, error) {
	cols := []string{"sku", "name", "type", "status", "date_modified"}
	if c.cfg.Cache.Fields == "" || strings.Contains(c.cfg.Cache.Fields, "meta_data") {
		cols = append(cols, "supplier_id")
	}

	total := 0
	seen := map[uint]struct{}{}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		items, pages, err := c.ListProducts(ctx, page, primePerPage, c.cfg.Cache.Fields)
		if err != nil {
			return total, err
		}
		if len(items) == 0 {
			break
		}

		/* Przykładowe dane
		    {
		        "id": 10816,
		        "sku": "SB-R0123",
		        "name": "925 Sterling Silver Ring",
		        "type": "variable",
		        "status": "publish",
		        "date_modified_gmt": "2025-03-02T10:11:12",
		        "meta_data": [{"id": 1, "key": "_silverbene_product_id", "value": "4411"}]
		    },
		*/

		rows := make([]db.ProductLink, 0, len(items))
		for _, p := range items {
			if p.ID <= 0 {
				continue
			}
			seen[uint(p.ID)] = struct{}{}
			rows = append(rows, db.ProductLink{
				WooID:        uint(p.ID),
				SKU:          p.SKU,
				SupplierID:   MetaValue(p.MetaData, MetaSupplierID),
				Name:         p.Name,
				Type:         p.Type,
				Status:       p.Status,
				SyncStatus:   "primed",
				DateModified: p.DateModified,
			})
		}
		if len(rows) > 0 {
			if err := gdb.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "woo_id"}}, // klucz unikalny
				DoUpdates: clause.AssignmentColumns(cols),
			}).Create(&rows).Error; err != nil {
				return total, fmt.Errorf("upsert links page %d: %w", page, err)
			}
		}
		total += len(rows)

		if len(items) < primePerPage || (pages > 0 && page >= pages) {
			break
		}
	}

	pruned, err := pruneLinks(gdb, seen)
	if err != nil {
		return total, err
	}
	c.log.Info().Int("products", total).Int("pruned", pruned).Msg("Woo cache primed (products)")
	return total, nil
}

const pruneChunk = 500

// pruneLinks usuwa linki, których woo_id nie pojawił się w pełnym przejściu sklepu.
func pruneLinks(gdb *gorm.DB, seen map[uint]struct{}) (int, error) {
	var known []uint
	if err := gdb.Model(&db.ProductLink{}).Pluck("woo_id", &known).Error; err != nil {
		return 0, fmt.Errorf("load links: %w", err)
	}
	var stale []uint
	for _, id := range known {
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	for i := 0; i < len(stale); i += pruneChunk {
		end := min(i+pruneChunk, len(stale))
		if err := gdb.Where("woo_id IN ?", stale[i:end]).Delete(&db.ProductLink{}).Error; err != nil {
			return i, fmt.Errorf("prune links: %w", err)
		}
	}
	return len(stale), nil
}
