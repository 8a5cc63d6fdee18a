package backend

import "time"

type CartItem struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	ImageRef  string `json:"imageRef"`
}

type Address struct {
	ID             string `json:"id"`
	ClientRef      string `json:"clientRef,omitempty"`
	Name           string `json:"name"`
	ContactNumber  string `json:"contactNumber"`
	AddressLine1   string `json:"address1"`
	AddressLine2   string `json:"address2,omitempty"`
	AddressLine3   string `json:"address3,omitempty"`
	Landmark       string `json:"landmark,omitempty"`
	CountryID      string `json:"countryId"`
	StateID        string `json:"stateId"`
	CityID         string `json:"cityId"`
	Pincode        string `json:"pincode"`
	DefaultAddress bool   `json:"isDefault"`
}

type GeoRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type OrderCreateRequest struct {
	CustomerID        string      `json:"customerId"`
	DeliveryAddressID string      `json:"deliveryAddressId"`
	BillingAddressID  string      `json:"billingAddressId"`
	IdempotencyKey    string      `json:"idempotencyKey"`
	Items             []OrderItem `json:"items"`
}

// PaymentOrder is the hosted-payment payload the backend returns when the
// order requires online collection.
type PaymentOrder struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	Key            string `json:"key"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

type OrderCreateResponse struct {
	OrderID     string        `json:"orderId"`
	OrderNumber int64         `json:"orderNumber"`
	Success     bool          `json:"success"`
	Payment     *PaymentOrder `json:"payment,omitempty"`
}

type VerifyPaymentRequest struct {
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewaySignature string `json:"gatewaySignature"`
	OrderID          string `json:"orderId,omitempty"`
}

// ReasonOrderNotFound is the backend's rejection when it cannot match the
// internal order ID during verification. The gateway identifiers alone must
// then suffice.
const ReasonOrderNotFound = "order_not_found"

type VerifyPaymentResponse struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

type Favourite struct {
	FavouriteID string    `json:"favouriteId"`
	ProductID   string    `json:"productId"`
	Title       string    `json:"title"`
	UnitPrice   int64     `json:"unitPrice"`
	ImageRef    string    `json:"imageRef"`
	AddedAt     time.Time `json:"addedAt"`
}
