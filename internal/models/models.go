package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// Process is a procurement process: one bill of quantities with its
// quotations, orders and deliveries. Order numbers are sequenced per process.
type Process struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Currency     string  `json:"currency"`
	IGVRate      float64 `json:"igv_rate"`
	OrderSuffix  string  `json:"order_suffix"`
	NextOrderSeq int     `json:"next_order_seq"`
	CreatedAt    string  `json:"created_at"`
}

// BaselineItem is one required line of the official bill of quantities.
// Immutable after import.
type BaselineItem struct {
	ID            string   `json:"id"`
	ProcessID     string   `json:"process_id"`
	ItemCode      string   `json:"item_code"`
	Description   string   `json:"description"`
	Unit          string   `json:"unit"`
	SheetName     string   `json:"sheet_name"`
	SectionPath   []string `json:"section_path"`
	RequiredQty   float64  `json:"required_qty"`
	RefUnitPrice  float64  `json:"ref_unit_price"`
	RefTotalPrice float64  `json:"ref_total_price"`
}

// Quotation is one supplier quotation. The label may carry a " - variant"
// suffix; quotations sharing the base label group as one logical supplier.
type Quotation struct {
	ID            string      `json:"id"`
	ProcessID     string      `json:"process_id"`
	SupplierLabel string      `json:"supplier_label"`
	Currency      string      `json:"currency"`
	ExchangeRate  float64     `json:"exchange_rate"`
	CreatedAt     string      `json:"created_at"`
	Lines         []OfferLine `json:"lines,omitempty"`
}

// OfferLine is one quoted row. BaselineID is nil for offers the matcher could
// not pair with a baseline item; price fields are nil when the supplier left
// them blank.
type OfferLine struct {
	ID          string   `json:"id"`
	QuotationID string   `json:"quotation_id"`
	BaselineID  *string  `json:"baseline_id"`
	Description string   `json:"description"`
	Qty         *float64 `json:"qty"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
	RowOrder    *int     `json:"row_order"`
}

// PurchaseOrder commits quantities against the baseline. OrderNumber is
// NNN/SUFFIX, unique per process.
type PurchaseOrder struct {
	ID           string      `json:"id"`
	ProcessID    string      `json:"process_id"`
	QuotationID  *string     `json:"quotation_id"`
	SupplierName string      `json:"supplier_name"`
	OrderNumber  string      `json:"order_number"`
	IssueDate    string      `json:"issue_date"`
	Currency     string      `json:"currency"`
	Subtotal     float64     `json:"subtotal"`
	DiscountRate float64     `json:"discount_rate"`
	Discount     float64     `json:"discount"`
	NetSubtotal  float64     `json:"net_subtotal"`
	IGV          float64     `json:"igv"`
	Total        float64     `json:"total"`
	CreatedAt    string      `json:"created_at"`
	Lines        []OrderLine `json:"lines,omitempty"`
}

// OrderLine is one ordered row. RowOrder carries the supplier document row so
// saved lines can be re-sorted to match the quotation.
type OrderLine struct {
	ID          int     `json:"id"`
	OrderID     string  `json:"order_id"`
	BaselineID  *string `json:"baseline_id"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	RowOrder    *int    `json:"row_order"`
}

// Delivery records received quantities, optionally against an order.
type Delivery struct {
	ID           string         `json:"id"`
	ProcessID    string         `json:"process_id"`
	OrderID      *string        `json:"order_id"`
	SupplierName string         `json:"supplier_name"`
	GuideNumber  *string        `json:"guide_number"`
	Date         string         `json:"date"`
	CreatedAt    string         `json:"created_at"`
	Lines        []DeliveryLine `json:"lines,omitempty"`
}

// DeliveryLine is one received row.
type DeliveryLine struct {
	ID          int     `json:"id"`
	DeliveryID  string  `json:"delivery_id"`
	BaselineID  *string `json:"baseline_id"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Qty         float64 `json:"qty"`
}
