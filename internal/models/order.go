package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус жизненного цикла заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid проверяет, что статус входит в допустимый набор.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода статуса: из
// delivered и cancelled переходов нет, между остальными статусами
// администратор волен двигать заказ свободно.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	return next != s
}

// ShippingAddress - денормализованный снимок адреса доставки на момент заказа.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Order представляет заказ покупателя.
type Order struct {
	ID             int64           `db:"id"`
	UserID         int64           `db:"user_id"`
	Number         string          `db:"order_number"`
	Status         OrderStatus     `db:"status"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Shipping       ShippingAddress
	PaymentMethod  string          `db:"payment_method"`
	DeliverySpeed  string          `db:"delivery_speed"`
	DeliveryCharge decimal.Decimal `db:"delivery_charge"`
	Notes          string          `db:"notes"`
	Items          []*OrderItem
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// OrderItem - позиция заказа с денормализованными названием и ценой.
// ProductID обнуляется при удалении товара из каталога, снимок остаётся.
type OrderItem struct {
	ID          int64           `db:"id"`
	OrderID     int64           `db:"order_id"`
	ProductID   *int64          `db:"product_id"`
	ProductName string          `db:"product_name"`
	Quantity    int             `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
	Subtotal    decimal.Decimal `db:"subtotal"`
}

// OrderItemRequest - позиция во входящем запросе на создание заказа.
type OrderItemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CreateOrderRequest - запрос на создание заказа из явного списка позиций.
type CreateOrderRequest struct {
	Items          []OrderItemRequest `json:"items"`
	Shipping       ShippingAddress    `json:"shipping_address"`
	PaymentMethod  string             `json:"payment_method"`
	DeliverySpeed  string             `json:"delivery_speed,omitempty"`
	DeliveryCharge decimal.Decimal    `json:"delivery_charge"`
	Notes          string             `json:"notes,omitempty"`
}

// QuickBuyRequest - запрос на покупку одного товара в один шаг.
type QuickBuyRequest struct {
	ProductID      int64           `json:"product_id"`
	Quantity       int             `json:"quantity"`
	Shipping       ShippingAddress `json:"shipping_address"`
	PaymentMethod  string          `json:"payment_method"`
	DeliverySpeed  string          `json:"delivery_speed,omitempty"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Notes          string          `json:"notes,omitempty"`
}

// UpdateStatusRequest - тело PUT /api/admin/orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// OrderItemResponse - позиция заказа в HTTP-ответе.
type OrderItemResponse struct {
	ProductID   *int64 `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

// OrderResponse - заказ в HTTP-ответе.
type OrderResponse struct {
	ID             int64                `json:"id"`
	Number         string               `json:"order_number"`
	Status         string               `json:"status"`
	TotalAmount    string               `json:"total_amount"`
	Shipping       ShippingAddress      `json:"shipping_address"`
	PaymentMethod  string               `json:"payment_method"`
	DeliverySpeed  string               `json:"delivery_speed,omitempty"`
	DeliveryCharge string               `json:"delivery_charge"`
	Notes          string               `json:"notes,omitempty"`
	Items          []*OrderItemResponse `json:"items"`
	CreatedAt      string               `json:"created_at"`
}

// OrderListFilter - фильтры списка заказов для админских выборок.
type OrderListFilter struct {
	Status OrderStatus
	Limit  int
	Offset int
}
