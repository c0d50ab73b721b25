package sales_invoice

import (
	"github.com/shopspring/decimal"

	"backoffice/internal/core/types"
)

// TaxType selects how tax relates to the taxed base.
type TaxType string

const (
	TaxInclude TaxType = "include"
	TaxExclude TaxType = "exclude"
	TaxNon     TaxType = "non"
)

// Valid reports whether t is a known tax type.
func (t TaxType) Valid() bool {
	switch t {
	case TaxInclude, TaxExclude, TaxNon:
		return true
	}
	return false
}

var (
	hundred     = decimal.NewFromInt(100)
	taxRate     = decimal.RequireFromString("0.1")
	taxIncluded = decimal.NewFromInt(110)
	ten         = decimal.NewFromInt(10)
)

// Totals are the computed invoice amounts.
type Totals struct {
	SubTotal types.Money `json:"subTotal"`
	TaxBase  types.Money `json:"taxBase"`
	Tax      types.Money `json:"tax"`
	Amount   types.Money `json:"amount"`
}

// Discounted applies a discount: a positive value wins over the percentage.
func Discounted(base types.Money, percent decimal.Decimal, value types.Money) types.Money {
	if value.IsPositive() {
		return base.Sub(value)
	}
	return base.Sub(base.Mul(percent).Div(hundred))
}

// LinePrice is the unit price after the line discount.
func (i *Item) LinePrice() types.Money {
	return Discounted(i.Price, i.DiscountPercent, i.DiscountValue)
}

// CalculateTotals computes the invoice amounts from the lines and the
// invoice level discount.
func CalculateTotals(items []Item, discountPercent decimal.Decimal, discountValue types.Money, taxType TaxType) Totals {
	subTotal := types.Zero()
	for i := range items {
		subTotal = subTotal.Add(items[i].Quantity.Decimal().Mul(items[i].LinePrice()))
	}
	subTotal = types.RoundMoney(subTotal)
	taxBase := types.RoundMoney(Discounted(subTotal, discountPercent, discountValue))

	t := Totals{SubTotal: subTotal, TaxBase: taxBase, Tax: types.Zero(), Amount: taxBase}
	switch taxType {
	case TaxInclude:
		t.Tax = types.RoundMoney(taxBase.Mul(ten).Div(taxIncluded))
	case TaxExclude:
		t.Tax = types.RoundMoney(taxBase.Mul(taxRate))
		t.Amount = taxBase.Add(t.Tax)
	}
	return t
}
