package catalog

import (
	"strconv"
	"strings"

	"github.com/bartek5186/silverbene2woo/internal/integrations/silverbene"
)

// Group – produkt-rodzic zbudowany z jednej lub wielu pozycji feedu.
type Group struct {
	Key     string
	SKU     string
	Product silverbene.Product // scalony rodzic; opcje = warianty
	Members []silverbene.Product
}

// Variable – rodzic z opcjami staje się produktem variable.
func (g Group) Variable() bool { return len(g.Product.Options) > 0 }

func groupKey(p silverbene.Product) string {
	switch {
	case p.ParentSKU != "":
		return "sku:" + p.ParentSKU
	case p.ParentID != "":
		return "id:" + p.ParentID
	case p.SKU != "":
		return "sku:" + p.SKU
	}
	return ""
}

// GroupProducts skleja pozycje na poziomie opcji (wspólny parent_sku/spu/parent_id)
// w jednego rodzica. Kolejność: pierwsze wystąpienie klucza. Powtórzone SKU
// w obrębie grupy (np. ta sama strona zwrócona dwa razy) są pomijane.
func GroupProducts(products []silverbene.Product) []Group {
	var (
		order  []string
		groups = map[string]*Group{}
		seen   = map[string]map[string]struct{}{}
	)
	for i, p := range products {
		key := groupKey(p)
		if key == "" {
			// bez SKU i bez rodzica – osobna grupa, sync zapisze link issue
			key = "anon:" + strconv.Itoa(i)
		}
		g, ok := groups[key]
		if !ok {
			g = &Group{Key: key}
			groups[key] = g
			seen[key] = map[string]struct{}{}
			order = append(order, key)
		}
		if p.SKU != "" {
			if _, dup := seen[key][p.SKU]; dup {
				continue
			}
			seen[key][p.SKU] = struct{}{}
		}
		g.Members = append(g.Members, p)
	}

	out := make([]Group, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.Product, g.SKU = mergeMembers(key, g.Members)
		out = append(out, *g)
	}
	return out
}

// groupSKU – SKU rodzica z klucza grupy: parent_sku, "SB-<parent_id>" albo własne SKU pozycji.
func groupSKU(key string) string {
	switch {
	case strings.HasPrefix(key, "sku:"):
		return strings.TrimPrefix(key, "sku:")
	case strings.HasPrefix(key, "id:"):
		return "SB-" + strings.TrimPrefix(key, "id:")
	}
	return ""
}

func mergeMembers(key string, members []silverbene.Product) (silverbene.Product, string) {
	head := members[0]
	if len(members) == 1 {
		return head, head.SKU
	}

	parent := head
	parent.SKU = groupSKU(key)
	// pierwsza pozycja to sam rodzic: zostaje jego id
	if head.ParentSKU != "" || head.ParentID != "" {
		if parent.ID == "" || parent.ID == head.SKU {
			parent.ID = head.ParentID
		}
	}
	parent.ParentSKU, parent.ParentID = "", ""
	parent.Stock, parent.HasStock = 0, false
	parent.Options = nil
	parent.Images = nil

	seenImg := map[string]struct{}{}
	for _, m := range members {
		if len(m.Options) > 0 {
			parent.Options = append(parent.Options, m.Options...)
		} else {
			parent.Options = append(parent.Options, silverbene.OptionFromProduct(m))
		}
		for _, u := range m.Images {
			if _, ok := seenImg[u]; ok {
				continue
			}
			seenImg[u] = struct{}{}
			parent.Images = append(parent.Images, u)
		}
		if !parent.HasPrice && m.HasPrice {
			parent.Price, parent.HasPrice = m.Price, true
		}
	}
	return parent, parent.SKU
}

// TotalStock: stan produktu, a gdy go brak – suma stanów opcji.
func TotalStock(p silverbene.Product) int {
	if p.HasStock {
		return p.Stock
	}
	total := 0
	for _, o := range p.Options {
		if o.HasStock {
			total += o.Stock
		}
	}
	return total
}
