package products

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"
	"gorm.io/gorm/clause"

	"github.com/bartek5186/silverbene2woo/internal/catalog"
	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations/woocommerce"
)

func mediaKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// validImages – tylko absolutne http(s), bez powtórzeń.
func validImages(urls []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, u := range urls {
		if !catalog.ValidImageURL(u) || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func srcImages(urls []string) []woocommerce.Image {
	out := make([]woocommerce.Image, 0, len(urls))
	for _, u := range urls {
		out = append(out, woocommerce.Image{Src: u})
	}
	return out
}

// resolveImages – znany URL -> {id} (bez ponownego pobierania), nowy -> {src}.
func (s *Sync) resolveImages(urls []string) []woocommerce.Image {
	if len(urls) == 0 {
		return nil
	}
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		keys = append(keys, mediaKey(u))
	}
	var assets []db.MediaAsset
	if err := s.deps.DB.Where("url_hash IN ?", keys).Find(&assets).Error; err != nil {
		s.log.Warn().Err(err).Msg("media cache lookup failed")
		return srcImages(urls)
	}
	known := make(map[string]int64, len(assets))
	for _, a := range assets {
		known[a.URLHash] = a.WooMediaID
	}

	out := make([]woocommerce.Image, 0, len(urls))
	for i, u := range urls {
		if id := known[keys[i]]; id > 0 {
			out = append(out, woocommerce.Image{ID: id})
		} else {
			out = append(out, woocommerce.Image{Src: u})
		}
	}
	return out
}

func (s *Sync) resolveImage(url string) *woocommerce.Image {
	imgs := s.resolveImages([]string{url})
	if len(imgs) == 0 {
		return nil
	}
	return &imgs[0]
}

// rememberMedia zapisuje id załączników po pozycji (Woo zwraca obrazki w kolejności wysłania).
func (s *Sync) rememberMedia(log zerolog.Logger, urls []string, got []woocommerce.Image) {
	if len(urls) == 0 || len(urls) != len(got) {
		return
	}
	rows := make([]db.MediaAsset, 0, len(urls))
	for i, u := range urls {
		if got[i].ID <= 0 {
			continue
		}
		rows = append(rows, db.MediaAsset{URLHash: mediaKey(u), URL: u, WooMediaID: got[i].ID})
	}
	if len(rows) == 0 {
		return
	}
	if err := s.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"woo_media_id", "url", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		log.Warn().Err(err).Msg("media cache upsert failed")
	}
}

func (s *Sync) forgetMedia(log zerolog.Logger, urls []string) {
	if len(urls) == 0 {
		return
	}
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		keys = append(keys, mediaKey(u))
	}
	if err := s.deps.DB.Where("url_hash IN ?", keys).Delete(&db.MediaAsset{}).Error; err != nil {
		log.Warn().Err(err).Msg("media cache purge failed")
	}
}
