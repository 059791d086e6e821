package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed:
		return OrderStatus(s), true
	}
	return "", false
}

type Order struct {
	ID         int64       `db:"id" json:"id"`
	CustomerID int64       `db:"customer_id" json:"storeId"`
	Items      []OrderItem `json:"product"`
	Total      int64       `db:"total" json:"total"`
	Status     OrderStatus `db:"status" json:"status"`
	CreatedBy  int64       `db:"created_by" json:"createdBy"`
	Remarks    []Remark    `json:"remark"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}

type OrderItem struct {
	ID         int64  `db:"id" json:"id"`
	OrderID    int64  `db:"order_id" json:"-"`
	ProductID  int64  `db:"product_id" json:"productId"`
	VariantKey string `db:"variant_key" json:"variantKey"`
	Quantity   int64  `db:"quantity" json:"quantity"`
}

// Remark is one entry of an order's append-only status trail. The order's
// current status always mirrors the most recently appended remark.
type Remark struct {
	ID       int64       `db:"id" json:"id"`
	OrderID  int64       `db:"order_id" json:"-"`
	AuthorID int64       `db:"author_id" json:"by"`
	Message  string      `db:"message" json:"message"`
	Status   OrderStatus `db:"status" json:"status"`
	Time     time.Time   `db:"created_at" json:"time"`
}

// OrderDetails is the read projection returned by the listing: the order
// expanded with its customer, creator, product details and remark authors.
type OrderDetails struct {
	Order
	Customer      Customer            `json:"store"`
	CreatedByName string              `json:"createdByName"`
	ItemDetails   []OrderItemDetails  `json:"items"`
	RemarkDetails []OrderRemarkDetail `json:"remarks"`
}

type OrderItemDetails struct {
	OrderItem
	ProductName string `json:"productName"`
	ProductNo   string `json:"productNo"`
	ImageURL    string `json:"img"`
	Price       int64  `json:"price"`
}

type OrderRemarkDetail struct {
	Remark
	AuthorName string `json:"byName"`
}
