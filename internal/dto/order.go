package dto

import "time"

// LineItem is one (product, quantity, price) tuple in a submitted cart. The
// price is a client-side snapshot and is stored verbatim.
type LineItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// PlaceOrderRequest is the POST /orders payload. Guest fields are required
// only when no bearer identity accompanies the request.
type PlaceOrderRequest struct {
	Items           []LineItem `json:"items"`
	TotalAmount     float64    `json:"total_amount"`
	GuestName       string     `json:"guest_name,omitempty"`
	GuestEmail      string     `json:"guest_email,omitempty"`
	Phone           string     `json:"phone"`
	Governorate     string     `json:"governorate,omitempty"`
	City            string     `json:"city,omitempty"`
	ShippingAddress string     `json:"shipping_address,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// OrderItemResponse is one order line as exposed via transport layers.
type OrderItemResponse struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID              int64               `json:"id"`
	Number          string              `json:"number"`
	UserID          int64               `json:"user_id"`
	Phone           string              `json:"phone,omitempty"`
	Governorate     string              `json:"governorate,omitempty"`
	City            string              `json:"city,omitempty"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	PaymentMethod   string              `json:"payment_method,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Total           float64             `json:"total_amount"`
	Status          string              `json:"status"`
	Items           []OrderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PlaceOrderResponse is the payload confirming a placed order. The temporary
// password appears exactly once, and only when an account was created.
type PlaceOrderResponse struct {
	Order             OrderResponse `json:"order"`
	OrderID           int64         `json:"order_id"`
	UserID            int64         `json:"user_id"`
	AccountCreated    bool          `json:"account_created"`
	TemporaryPassword string        `json:"temporary_password,omitempty"`
}

// UpdateOrderStatusRequest is the PATCH /orders/:id/status payload.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}
