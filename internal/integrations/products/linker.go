package products

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bartek5186/silverbene2woo/internal/db"
)

const (
	IssueMissingSKU        = "missing_sku_src"
	IssueDuplicateSKU      = "duplicate_sku_shop"
	IssueMissingInSupplier = "missing_in_supplier"
)

// rebuildLinkIssues – pełny rebuild link_issues po przebiegu.
// missing_in_supplier liczymy tylko gdy katalog dostawcy był pobrany w całości.
func (s *Sync) rebuildLinkIssues(log zerolog.Logger, st *runState, complete bool) error {
	return s.deps.DB.Transaction(func(tx *gorm.DB) error {
		// 1️⃣ Wyczyść istniejące problemy (pełny rebuild)
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&db.LinkIssue{}).Error; err != nil {
			return fmt.Errorf("błąd czyszczenia link_issues: %w", err)
		}

		// 2️⃣ Pozycje dostawcy bez SKU
		for _, p := range st.noSKU {
			key := p.ID
			if key == "" {
				key = p.Name
			}
			if err := saveLinkIssue(tx, key, IssueMissingSKU, "",
				fmt.Sprintf("Supplier item without SKU (id=%q, name=%q)", p.ID, p.Name)); err != nil {
				return err
			}
		}

		// 3️⃣ Linki sklepu po SKU
		var links []struct {
			WooID      uint
			SKU        string
			SupplierID string
		}
		if err := tx.Model(&db.ProductLink{}).
			Select("woo_id", "sku", "supplier_id").
			Order("woo_id").
			Find(&links).Error; err != nil {
			return fmt.Errorf("błąd odczytu product_links: %w", err)
		}
		bySKU := map[string][]uint{}
		for _, l := range links {
			if l.SKU != "" {
				bySKU[l.SKU] = append(bySKU[l.SKU], l.WooID)
			}
		}

		skus := make([]string, 0, len(bySKU))
		for sku := range bySKU {
			skus = append(skus, sku)
		}
		sort.Strings(skus)

		var duplicates, missing int
		for _, sku := range skus {
			ids := bySKU[sku]
			if len(ids) < 2 {
				continue
			}
			duplicates++
			idsJSON, _ := json.Marshal(ids)
			if err := saveLinkIssue(tx, sku, IssueDuplicateSKU, string(idsJSON),
				fmt.Sprintf("SKU=%s występuje %d× w Woo (woo_id: %v)", sku, len(ids), ids)); err != nil {
				return err
			}
		}

		// 4️⃣ Nasze produkty w Woo, których dostawca już nie zwraca
		if complete {
			for _, l := range links {
				if l.SupplierID == "" || l.SKU == "" {
					continue
				}
				if _, ok := st.seen[l.SKU]; ok {
					continue
				}
				missing++
				if err := saveLinkIssue(tx, l.SKU, IssueMissingInSupplier, fmt.Sprintf("[%d]", l.WooID),
					fmt.Sprintf("Produkt SKU=%s jest w Woo (woo_id=%d), ale dostawca go nie zwraca", l.SKU, l.WooID)); err != nil {
					return err
				}
			}
		}

		log.Info().
			Int("missing_sku_src", len(st.noSKU)).
			Int("duplicate_sku_shop", duplicates).
			Int("missing_in_supplier", missing).
			Bool("complete", complete).
			Msg("link issues rebuilt")
		return nil
	})
}

// saveLinkIssue – zapisuje pojedynczy problem w linkowaniu
func saveLinkIssue(tx *gorm.DB, sku, reason, wooIDs, details string) error {
	issue := db.LinkIssue{
		SKU:     sku,
		Reason:  reason,
		WooIDs:  wooIDs,
		Details: details,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "sku"},
			{Name: "reason"},
			{Name: "woo_ids"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"details":    details,
			"updated_at": time.Now(),
		}),
	}).Create(&issue).Error
	if err != nil {
		return fmt.Errorf("saveLinkIssue: sku=%s reason=%s: %w", sku, reason, err)
	}
	return nil
}
