// internal/integrations/silverbene/types.go
package silverbene

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Product – znormalizowana pozycja z product_list / product_list_by_date.
// Pola Has* odróżniają "brak w payloadzie" od zera.
type Product struct {
	ID               string
	SKU              string
	ParentSKU        string // parent_sku / spu / goods_sn, gdy różny od SKU
	ParentID         string // parent_id / product_id, gdy różny od SKU
	Name             string
	Description      string
	ShortDescription string

	Price    decimal.Decimal
	HasPrice bool
	Stock    int
	HasStock bool

	Images     []string
	Options    []Option
	Categories []string
	Tags       []string
	Attributes []Attribute

	Weight string
	Length string
	Width  string
	Height string
	Status string

	Raw gjson.Result
}

type Option struct {
	ID       string
	SKU      string
	Price    decimal.Decimal
	HasPrice bool
	Stock    int
	HasStock bool
	Image    string
	Pairs    []OptionPair // "Option1 Name" / "Option1 Value" ...

	Raw gjson.Result
}

type OptionPair struct {
	Name  string
	Value string
}

type Attribute struct {
	Name   string
	Values []string
}

// ProductQuery – parametry product_list; zera = nie wysyłaj.
type ProductQuery struct {
	SKUs          []string
	StartDate     string // YYYY-MM-DD
	EndDate       string
	IsReallyStock *int
	Keywords      string
	Page          int
	PerPage       int
	Limit         int
	Offset        int
}

func (q ProductQuery) byDate() bool {
	return q.StartDate != "" || q.EndDate != ""
}

// OrderPayload – body dla /dropshipping/create_order.
type OrderPayload struct {
	Token       string        `json:"token,omitempty"`
	OrderNumber string        `json:"order_number"`
	Currency    string        `json:"currency"`
	Total       string        `json:"total"`
	Shipping    OrderShipping `json:"shipping"`
	Customer    OrderCustomer `json:"customer"`
	Items       []OrderItem   `json:"items"`
}

type OrderShipping struct {
	Method  string  `json:"method"`
	Total   string  `json:"total"`
	Address Address `json:"address"`
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
	Phone     string `json:"phone"`
}

type OrderCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type OrderItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type OrderResult struct {
	OrderID string
	Code    int64
	Message string
	Raw     gjson.Result
}

type ShippingMethod struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Days  string
	Raw   gjson.Result
}
