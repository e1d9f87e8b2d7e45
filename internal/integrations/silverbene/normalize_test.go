package silverbene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNormalizeProduct_Aliases(t *testing.T) {
	p := normalizeProduct(gjson.Parse(`{
		"goods_sn": "GS-1",
		"product_id": 991,
		"goods_name": "Pearl Earrings",
		"goods_desc": "<p>Freshwater</p>",
		"brief": "Short",
		"shop_price": "19.90",
		"real_qty": "12",
		"category": "Earrings, Pearl",
		"tag_list": ["gift", "gift", ""],
		"weight": 0.05,
		"status": "draft"
	}`))

	assert.Equal(t, "GS-1", p.SKU)
	assert.Equal(t, "991", p.ID)
	assert.Equal(t, "991", p.ParentID)
	assert.Empty(t, p.ParentSKU, "goods_sn is the sku itself")
	assert.Equal(t, "Pearl Earrings", p.Name)
	assert.Equal(t, "<p>Freshwater</p>", p.Description)
	assert.Equal(t, "Short", p.ShortDescription)
	assert.True(t, p.HasPrice)
	assert.Equal(t, "19.9", p.Price.String())
	assert.True(t, p.HasStock)
	assert.Equal(t, 12, p.Stock)
	assert.Equal(t, []string{"Earrings", "Pearl"}, p.Categories)
	assert.Equal(t, []string{"gift"}, p.Tags)
	assert.Equal(t, "0.05", p.Weight)
	assert.Equal(t, "draft", p.Status)
}

func TestNormalizeProduct_SkipsEmptyAliases(t *testing.T) {
	p := normalizeProduct(gjson.Parse(`{"sku": "", "product_sku": null, "goods_sn": "X-1", "price": "", "regular_price": 0}`))

	assert.Equal(t, "X-1", p.SKU)
	assert.True(t, p.HasPrice, "zero is a value, empty string is not")
	assert.True(t, p.Price.IsZero())
	assert.False(t, p.HasStock)
	assert.Empty(t, p.ParentSKU)
	assert.Empty(t, p.ParentID)
}

func TestExtractImages_Shapes(t *testing.T) {
	cases := map[string]struct {
		in   string
		want []string
	}{
		"array of strings": {`{"images": ["https://a/1.jpg", "https://a/2.jpg", "https://a/1.jpg"]}`, []string{"https://a/1.jpg", "https://a/2.jpg"}},
		"array of objects": {`{"gallery": [{"src": "https://a/1.jpg"}, {"url": "https://a/2.jpg"}, {"alt": "x"}]}`, []string{"https://a/1.jpg", "https://a/2.jpg"}},
		"json string":      {`{"image_urls": "[\"https://a/1.jpg\",\"https://a/2.jpg\"]"}`, []string{"https://a/1.jpg", "https://a/2.jpg"}},
		"comma list":       {`{"imgs": "https://a/1.jpg, https://a/2.jpg"}`, []string{"https://a/1.jpg", "https://a/2.jpg"}},
		"falls through":    {`{"images": [], "thumb": "https://a/t.jpg"}`, []string{"https://a/t.jpg"}},
		"none":             {`{"name": "x"}`, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := extractImages(gjson.Parse(tc.in).Map())
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeOption_PairsInOrder(t *testing.T) {
	o := normalizeOption(gjson.Parse(`{
		"Option2 Name": "Size",
		"Option2 Value": "7",
		"Option1 Name": "Color",
		"Option1 Value": "Rose Gold 14K",
		"variant_sku": "RG-7",
		"variant_id": 55,
		"option_qty": "2",
		"image": {"url": "https://a/rg.jpg"}
	}`))

	assert.Equal(t, "55", o.ID)
	assert.Equal(t, "RG-7", o.SKU)
	assert.Equal(t, 2, o.Stock)
	assert.Equal(t, "https://a/rg.jpg", o.Image)
	require.Len(t, o.Pairs, 2)
	assert.Equal(t, OptionPair{Name: "Color", Value: "Rose Gold 14K"}, o.Pairs[0])
	assert.Equal(t, OptionPair{Name: "Size", Value: "7"}, o.Pairs[1])
}

func TestExtractAttributes(t *testing.T) {
	obj := extractAttributes(gjson.Parse(`{"Material": "925 Silver", "Stone": ["Zircon", "Pearl"]}`))
	require.Len(t, obj, 2)
	assert.Equal(t, Attribute{Name: "Material", Values: []string{"925 Silver"}}, obj[0])
	assert.Equal(t, []string{"Zircon", "Pearl"}, obj[1].Values)

	arr := extractAttributes(gjson.Parse(`[{"name": "Plating", "value": "Gold, Rhodium"}, {"value": "orphan"}]`))
	require.Len(t, arr, 1)
	assert.Equal(t, []string{"Gold", "Rhodium"}, arr[0].Values)
}

func TestUnwrapData(t *testing.T) {
	assert.Len(t, normalizeProducts(gjson.Parse(`{"data": {"list": [{"sku": "A"}], "total": 1}}`)), 1)
	assert.Len(t, normalizeProducts(gjson.Parse(`{"products": [{"sku": "A"}, {"sku": "B"}]}`)), 2)
	assert.Len(t, normalizeProducts(gjson.Parse(`[{"sku": "A"}, 5, "x"]`)), 1)
	assert.Empty(t, normalizeProducts(gjson.Parse(`{"code": 0, "message": "ok"}`)))
}
