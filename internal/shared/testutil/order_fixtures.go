package testutil

import (
	"fmt"
	"time"

	"salespulse/pkg/contracts/domain"
)

// Date returns midnight UTC of the given calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// OrderBuilder builds valid order records with overridable fields.
type OrderBuilder struct {
	rec domain.OrderRecord
}

// NewOrder starts a valid record for the given order, product and customer.
func NewOrder(orderID, productID, customerID string) *OrderBuilder {
	return &OrderBuilder{rec: domain.OrderRecord{
		OrderID:      orderID,
		ProductID:    productID,
		CustomerID:   customerID,
		CustomerName: "Customer " + customerID,
		OrderDate:    Date(2024, time.January, 10),
		ShipDate:     Date(2024, time.January, 12),
		ShipMode:     "Standard Class",
		Segment:      "Consumer",
		Country:      "United States",
		City:         "Springfield",
		State:        "Illinois",
		PostalCode:   "62701",
		Region:       "Central",
		Category:     "Furniture",
		SubCategory:  "Chairs",
		ProductName:  "Product " + productID,
		Sale:         100,
		Discount:     0,
		Quantity:     1,
		Profit:       10,
	}}
}

func (b *OrderBuilder) Row(i int) *OrderBuilder { b.rec.RowIndex = i; return b }

func (b *OrderBuilder) On(d time.Time) *OrderBuilder {
	b.rec.OrderDate = d
	b.rec.ShipDate = d.AddDate(0, 0, 2)
	return b
}

func (b *OrderBuilder) Category(category, sub string) *OrderBuilder {
	b.rec.Category, b.rec.SubCategory = category, sub
	return b
}

func (b *OrderBuilder) Region(region string) *OrderBuilder { b.rec.Region = region; return b }

func (b *OrderBuilder) Sale(sale float64) *OrderBuilder { b.rec.Sale = sale; return b }

func (b *OrderBuilder) Profit(profit float64) *OrderBuilder { b.rec.Profit = profit; return b }

func (b *OrderBuilder) Discount(d float64) *OrderBuilder { b.rec.Discount = d; return b }

func (b *OrderBuilder) Quantity(q int64) *OrderBuilder { b.rec.Quantity = q; return b }

// Build returns the record.
func (b *OrderBuilder) Build() domain.OrderRecord {
	return b.rec
}

// Raw renders the record as a RawRow with string cells, the way file loaders
// deliver it.
func (b *OrderBuilder) Raw() domain.RawRow {
	r := b.rec
	row := domain.RawRow{
		domain.FieldOrderDate: r.OrderDate.Format("2006-01-02"),
		domain.FieldShipDate:  r.ShipDate.Format("2006-01-02"),
		domain.FieldSale:      fmt.Sprint(r.Sale),
		domain.FieldDiscount:  fmt.Sprint(r.Discount),
		domain.FieldQuantity:  fmt.Sprint(r.Quantity),
		domain.FieldProfit:    fmt.Sprint(r.Profit),
	}
	for _, spec := range domain.Schema {
		if spec.Kind == domain.KindString {
			row[spec.Name] = r.StringField(spec.Name)
		}
	}
	return row
}

// Records assigns row indexes in order and returns the built records.
func Records(builders ...*OrderBuilder) []domain.OrderRecord {
	out := make([]domain.OrderRecord, len(builders))
	for i, b := range builders {
		out[i] = b.Row(i).Build()
	}
	return out
}

// RawRows renders every builder as a RawRow.
func RawRows(builders ...*OrderBuilder) []domain.RawRow {
	out := make([]domain.RawRow, len(builders))
	for i, b := range builders {
		out[i] = b.Raw()
	}
	return out
}
