package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bartek5186/silverbene2woo/internal/catalog"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
)

// reconcileVariations uzgadnia warianty produktu z opcjami dostawcy:
// dostępne -> update/create, wyprzedane lub znikłe -> delete. Jeden batch.
func (s *Sync) reconcileVariations(ctx context.Context, log zerolog.Logger, productID int64, vars []catalog.Variation) error {
	existing, err := s.deps.Store.ListVariations(ctx, productID)
	if err != nil {
		return fmt.Errorf("list variations: %w", err)
	}

	bySKU := map[string]woocommerce.Variation{}
	byColor := map[string]woocommerce.Variation{}
	for _, ev := range existing {
		if ev.SKU != "" {
			if _, dup := bySKU[ev.SKU]; !dup {
				bySKU[ev.SKU] = ev
			}
			continue
		}
		if opt := colorOption(ev); opt != "" {
			byColor[strings.ToLower(opt)] = ev
		}
	}

	var (
		batch     woocommerce.VariationBatch
		createImg []string
		updateImg []string
		kept      = map[int64]bool{}
	)
	for _, v := range vars {
		ev, ok := bySKU[v.SKU]
		if v.SKU == "" || !ok {
			ev, ok = byColor[strings.ToLower(v.AttributeValue)]
		}
		if ok && kept[ev.ID] {
			ok = false
		}

		if !v.InStock() {
			// wyprzedany wariant wylatuje ze sklepu (delete dopisze pętla niżej)
			continue
		}

		wv := s.variationPayload(v)
		if ok {
			kept[ev.ID] = true
			wv.ID = ev.ID
			batch.Update = append(batch.Update, wv)
			updateImg = append(updateImg, v.Image)
		} else {
			batch.Create = append(batch.Create, wv)
			createImg = append(createImg, v.Image)
		}
	}
	for _, ev := range existing {
		if !kept[ev.ID] {
			batch.Delete = append(batch.Delete, ev.ID)
		}
	}

	if batch.Empty() {
		return nil
	}
	res, err := s.deps.Store.BatchVariations(ctx, productID, batch)
	if err != nil {
		return fmt.Errorf("batch variations: %w", err)
	}

	failed := 0
	failed += s.afterBatch(log, productID, createImg, res.Create)
	failed += s.afterBatch(log, productID, updateImg, res.Update)
	for _, d := range res.Delete {
		if d.Error != nil {
			failed++
			log.Warn().Int64("woo_id", productID).Int64("variation_id", d.ID).Str("code", d.Error.Code).Msg(d.Error.Message)
		}
	}

	log.Debug().Int64("woo_id", productID).
		Int("create", len(batch.Create)).
		Int("update", len(batch.Update)).
		Int("delete", len(batch.Delete)).
		Int("failed", failed).
		Msg("variations reconciled")

	if failed > 0 {
		return fmt.Errorf("%d variation operations failed", failed)
	}
	return nil
}

// afterBatch zapamiętuje media wariantów i liczy błędy pozycji batcha.
func (s *Sync) afterBatch(log zerolog.Logger, productID int64, urls []string, got []woocommerce.Variation) int {
	failed := 0
	for i, v := range got {
		url := ""
		if i < len(urls) && len(urls) == len(got) {
			url = urls[i]
		}
		if v.Error != nil {
			failed++
			log.Warn().Int64("woo_id", productID).Str("sku", v.SKU).Str("code", v.Error.Code).Msg(v.Error.Message)
			if url != "" && strings.Contains(v.Error.Code, "invalid_image") {
				s.forgetMedia(log, []string{url})
			}
			continue
		}
		if url != "" && v.Image != nil && v.Image.ID > 0 {
			s.rememberMedia(log, []string{url}, []woocommerce.Image{*v.Image})
		}
	}
	return failed
}

func (s *Sync) variationPayload(v catalog.Variation) woocommerce.Variation {
	out := woocommerce.Variation{
		SKU:          v.SKU,
		RegularPrice: v.RegularPrice.StringFixed(2),
		StockStatus:  "instock",
		Attributes:   []woocommerce.VariationAttribute{{Name: catalog.ColorAttribute, Option: v.AttributeValue}},
	}
	manage := v.StockKnown
	out.ManageStock = &manage
	if v.StockKnown {
		stock := v.Stock
		out.StockQuantity = &stock
	}
	if v.OptionID != "" {
		out.MetaData = []woocommerce.Meta{{Key: MetaOptionID, Value: v.OptionID}}
	}
	if v.Image != "" {
		out.Image = s.resolveImage(v.Image)
	}
	return out
}

func colorOption(v woocommerce.Variation) string {
	for _, a := range v.Attributes {
		if strings.EqualFold(a.Name, catalog.ColorAttribute) {
			return a.Option
		}
	}
	return ""
}
