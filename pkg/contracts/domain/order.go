package domain

import (
	"time"
)

// Field is the canonical name of an OrderRecord column. Field names are the
// compatibility surface external loaders must satisfy before calling the normalizer.
type Field string

const (
	FieldOrderID      Field = "orderId"
	FieldProductID    Field = "productId"
	FieldCustomerID   Field = "customerId"
	FieldOrderDate    Field = "orderDate"
	FieldShipDate     Field = "shipDate"
	FieldShipMode     Field = "shipMode"
	FieldSegment      Field = "segment"
	FieldCountry      Field = "country"
	FieldCity         Field = "city"
	FieldState        Field = "state"
	FieldPostalCode   Field = "postalCode"
	FieldRegion       Field = "region"
	FieldCategory     Field = "category"
	FieldSubCategory  Field = "subCategory"
	FieldProductName  Field = "productName"
	FieldCustomerName Field = "customerName"
	FieldSale         Field = "sale"
	FieldDiscount     Field = "discount"
	FieldQuantity     Field = "quantity"
	FieldProfit       Field = "profit"
)

// FieldKind describes the declared type of a field.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindDate    FieldKind = "date"
	KindFloat   FieldKind = "float"
	KindInteger FieldKind = "integer"
)

// FieldSpec declares a field of the OrderRecord schema.
type FieldSpec struct {
	Name     Field
	Kind     FieldKind
	Required bool
}

// Schema lists every OrderRecord field in canonical column order.
var Schema = []FieldSpec{
	{FieldOrderID, KindString, true},
	{FieldProductID, KindString, true},
	{FieldCustomerID, KindString, true},
	{FieldOrderDate, KindDate, true},
	{FieldShipDate, KindDate, true},
	{FieldShipMode, KindString, false},
	{FieldSegment, KindString, false},
	{FieldCountry, KindString, false},
	{FieldCity, KindString, false},
	{FieldState, KindString, false},
	{FieldPostalCode, KindString, false},
	{FieldRegion, KindString, false},
	{FieldCategory, KindString, false},
	{FieldSubCategory, KindString, false},
	{FieldProductName, KindString, false},
	{FieldCustomerName, KindString, false},
	{FieldSale, KindFloat, true},
	{FieldDiscount, KindFloat, true},
	{FieldQuantity, KindInteger, true},
	{FieldProfit, KindFloat, true},
}

// NumericFields are the fields the profiler computes distribution statistics for.
var NumericFields = []Field{FieldSale, FieldDiscount, FieldQuantity, FieldProfit}

// RawRow is one unvalidated input row keyed by canonical field name. Values may be
// strings, Go numeric kinds, json.Number, time.Time or nil.
type RawRow map[Field]any

// OrderRecord represents one order line item after normalization.
// Many records may share an OrderID.
type OrderRecord struct {
	RowIndex int `json:"row_index"`

	OrderID    string `json:"order_id" validate:"required"`
	ProductID  string `json:"product_id" validate:"required"`
	CustomerID string `json:"customer_id" validate:"required"`

	OrderDate time.Time `json:"order_date" validate:"required"`
	ShipDate  time.Time `json:"ship_date" validate:"required"`

	ShipMode     string `json:"ship_mode"`
	Segment      string `json:"segment"`
	Country      string `json:"country"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Region       string `json:"region"`
	Category     string `json:"category"`
	SubCategory  string `json:"sub_category"`
	ProductName  string `json:"product_name"`
	CustomerName string `json:"customer_name"`

	Sale     float64 `json:"sale" validate:"min=0"`
	Discount float64 `json:"discount" validate:"min=0,max=1"`
	Quantity int64   `json:"quantity" validate:"min=1"`
	Profit   float64 `json:"profit"`
}

// StringField returns the value of a categorical or identity field. Unknown or
// non-string fields return the empty string.
func (r OrderRecord) StringField(f Field) string {
	switch f {
	case FieldOrderID:
		return r.OrderID
	case FieldProductID:
		return r.ProductID
	case FieldCustomerID:
		return r.CustomerID
	case FieldShipMode:
		return r.ShipMode
	case FieldSegment:
		return r.Segment
	case FieldCountry:
		return r.Country
	case FieldCity:
		return r.City
	case FieldState:
		return r.State
	case FieldPostalCode:
		return r.PostalCode
	case FieldRegion:
		return r.Region
	case FieldCategory:
		return r.Category
	case FieldSubCategory:
		return r.SubCategory
	case FieldProductName:
		return r.ProductName
	case FieldCustomerName:
		return r.CustomerName
	}
	return ""
}

// NumericField returns the value of a numeric field as float64.
func (r OrderRecord) NumericField(f Field) (float64, bool) {
	switch f {
	case FieldSale:
		return r.Sale, true
	case FieldDiscount:
		return r.Discount, true
	case FieldQuantity:
		return float64(r.Quantity), true
	case FieldProfit:
		return r.Profit, true
	}
	return 0, false
}

// ProfitMargin returns profit/sale. The margin is undefined when sale is zero.
func (r OrderRecord) ProfitMargin() (float64, bool) {
	if r.Sale == 0 {
		return 0, false
	}
	return r.Profit / r.Sale, true
}

// QuarantineReason classifies why a raw row was rejected by the normalizer.
type QuarantineReason string

const (
	ReasonMissingField   QuarantineReason = "MISSING_FIELD"
	ReasonTypeMismatch   QuarantineReason = "TYPE_MISMATCH"
	ReasonRangeViolation QuarantineReason = "RANGE_VIOLATION"
)

// QuarantinedRow reports a raw row excluded from the snapshot.
type QuarantinedRow struct {
	RowIndex int              `json:"row_index"`
	Reason   QuarantineReason `json:"reason"`
	Field    Field            `json:"field"`
	Detail   string           `json:"detail"`
}
