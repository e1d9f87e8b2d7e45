// internal/integrations/woocommerce/types.go
package woocommerce

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Product – zapis i odczyt /products. Ceny i wymiary Woo trzyma jako stringi.
type Product struct {
	ID               int64       `json:"id,omitempty"`
	Name             string      `json:"name,omitempty"`
	SKU              string      `json:"sku,omitempty"`
	Type             string      `json:"type,omitempty"`   // "simple","variable", etc.
	Status           string      `json:"status,omitempty"` // "publish","draft","trash"
	Description      string      `json:"description,omitempty"`
	ShortDescription string      `json:"short_description,omitempty"`
	RegularPrice     string      `json:"regular_price,omitempty"`
	ManageStock      *bool       `json:"manage_stock,omitempty"`
	StockQuantity    *int        `json:"stock_quantity,omitempty"`
	StockStatus      string      `json:"stock_status,omitempty"`
	Weight           string      `json:"weight,omitempty"`
	Dimensions       *Dimensions `json:"dimensions,omitempty"`
	Categories       []TermRef   `json:"categories,omitempty"`
	Tags             []TermRef   `json:"tags,omitempty"`
	Brands           []TermRef   `json:"brands,omitempty"`
	Images           []Image     `json:"images,omitempty"`
	Attributes       []Attribute `json:"attributes,omitempty"`
	MetaData         []Meta      `json:"meta_data,omitempty"`
	Variations       []int64     `json:"variations,omitempty"`
	DateModified     string      `json:"date_modified_gmt,omitempty"`
}

type Dimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

type TermRef struct {
	ID int64 `json:"id"`
}

type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type Image struct {
	ID   int64  `json:"id,omitempty"`
	Src  string `json:"src,omitempty"`
	Name string `json:"name,omitempty"`
	Alt  string `json:"alt,omitempty"`
}

// Attribute – atrybut produktu (lokalny, bez id taksonomii).
type Attribute struct {
	ID        int64    `json:"id,omitempty"`
	Name      string   `json:"name"`
	Position  int      `json:"position"`
	Visible   bool     `json:"visible"`
	Variation bool     `json:"variation"`
	Options   []string `json:"options"`
}

type VariationAttribute struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

type Variation struct {
	ID            int64                `json:"id,omitempty"`
	SKU           string               `json:"sku,omitempty"`
	RegularPrice  string               `json:"regular_price,omitempty"`
	ManageStock   *bool                `json:"manage_stock,omitempty"`
	StockQuantity *int                 `json:"stock_quantity,omitempty"`
	StockStatus   string               `json:"stock_status,omitempty"`
	Image         *Image               `json:"image,omitempty"`
	Attributes    []VariationAttribute `json:"attributes,omitempty"`
	MetaData      []Meta               `json:"meta_data,omitempty"`

	// tylko w odpowiedzi batch
	Error *BatchError `json:"error,omitempty"`
}

type BatchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type VariationBatch struct {
	Create []Variation `json:"create,omitempty"`
	Update []Variation `json:"update,omitempty"`
	Delete []int64     `json:"delete,omitempty"`
}

func (b VariationBatch) Empty() bool {
	return len(b.Create) == 0 && len(b.Update) == 0 && len(b.Delete) == 0
}

type VariationBatchResult struct {
	Create []Variation `json:"create"`
	Update []Variation `json:"update"`
	Delete []Variation `json:"delete"`
}

type Meta struct {
	ID    int64  `json:"id,omitempty"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// MetaValue – wartość meta jako string ("" gdy brak).
func MetaValue(meta []Meta, key string) string {
	for _, m := range meta {
		if m.Key != key {
			continue
		}
		switch v := m.Value.(type) {
		case nil:
			return ""
		case string:
			return strings.TrimSpace(v)
		case float64, bool, json.Number:
			return fmt.Sprint(v)
		default:
			b, _ := json.Marshal(v)
			return string(b)
		}
	}
	return ""
}

type Order struct {
	ID            int64          `json:"id"`
	Number        string         `json:"number"`
	Status        string         `json:"status"`
	Currency      string         `json:"currency"`
	Total         string         `json:"total"`
	ShippingTotal string         `json:"shipping_total"`
	CustomerNote  string         `json:"customer_note"`
	DateModified  string         `json:"date_modified_gmt"`
	Billing       Address        `json:"billing"`
	Shipping      Address        `json:"shipping"`
	LineItems     []LineItem     `json:"line_items"`
	ShippingLines []ShippingLine `json:"shipping_lines"`
	MetaData      []Meta         `json:"meta_data"`
}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type LineItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ProductID   int64  `json:"product_id"`
	VariationID int64  `json:"variation_id"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total"`
	SKU         string `json:"sku"`
}

type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

type OrderNote struct {
	ID           int64  `json:"id,omitempty"`
	Note         string `json:"note"`
	CustomerNote bool   `json:"customer_note"`
}
