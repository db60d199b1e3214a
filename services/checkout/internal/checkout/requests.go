package checkout

import (
	"github.com/appetiteclub/dineflow/services/checkout/internal/gateway"
	"github.com/appetiteclub/dineflow/services/checkout/internal/ledger"
	"github.com/google/uuid"
)

type CartItem struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  int64     `json:"unit_price"`
	Name       string    `json:"name"`
}

type Customer struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Phone  string     `json:"phone"`
}

type CheckoutRequest struct {
	OrderType       string     `json:"order_type"`
	Items           []CartItem `json:"items"`
	Customer        Customer   `json:"customer"`
	DiscountCode    string     `json:"discount_code,omitempty"`
	DeliveryAddress string     `json:"delivery_address,omitempty"`
}

type BookingRequest struct {
	Customer        Customer   `json:"customer"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	PartySize       int        `json:"party_size"`
	SpecialRequests string     `json:"special_requests,omitempty"`
	TableID         *uuid.UUID `json:"table_id,omitempty"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason"`
}

type CheckoutResult struct {
	Order     *ledger.Order       `json:"order"`
	Items     []*ledger.OrderItem `json:"items"`
	Reference string              `json:"reference"`
	Token     *gateway.Token      `json:"payment"`
	Callbacks gateway.Callbacks   `json:"callbacks"`
}

type BookingResult struct {
	Reservation *ledger.Reservation `json:"reservation"`
	Table       *ledger.Table       `json:"table"`
	Reference   string              `json:"reference"`
	Token       *gateway.Token      `json:"payment"`
	Callbacks   gateway.Callbacks   `json:"callbacks"`
}

type AvailabilityResult struct {
	Available bool            `json:"available"`
	Tables    []*ledger.Table `json:"tables,omitempty"`
}

type DiscountQuote struct {
	Code     string  `json:"code"`
	Type     string  `json:"type"`
	Value    float64 `json:"value"`
	Amount   int64   `json:"amount"`
	Discount int64   `json:"discount"`
	Total    int64   `json:"total"`
}
