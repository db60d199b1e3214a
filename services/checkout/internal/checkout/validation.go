package checkout

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/appetiteclub/dineflow/pkg/enums/ordertype"
	"github.com/google/uuid"
)

func ValidateCheckout(req CheckoutRequest) []string {
	var errs []string

	t := ordertype.ByName(req.OrderType)
	if t == nil {
		errs = append(errs, "order_type must be one of dine-in, takeaway, delivery")
	}

	if len(req.Items) == 0 {
		errs = append(errs, "cart is empty")
	}
	for i, item := range req.Items {
		if item.MenuItemID == uuid.Nil {
			errs = append(errs, fmt.Sprintf("items[%d].menu_item_id is required", i))
		}
		if item.Quantity < 1 {
			errs = append(errs, fmt.Sprintf("items[%d].quantity must be at least 1", i))
		}
		if item.UnitPrice < 0 {
			errs = append(errs, fmt.Sprintf("items[%d].unit_price must not be negative", i))
		}
	}

	if t != nil && *t == ordertype.Types.Delivery && strings.TrimSpace(req.DeliveryAddress) == "" {
		errs = append(errs, "delivery_address is required for delivery orders")
	}

	errs = append(errs, validateCustomer(req.Customer)...)
	return errs
}

func ValidateBooking(req BookingRequest) []string {
	var errs []string

	if strings.TrimSpace(req.Date) == "" {
		errs = append(errs, "date is required")
	}
	if strings.TrimSpace(req.Time) == "" {
		errs = append(errs, "time is required")
	}
	if req.PartySize < 1 {
		errs = append(errs, "party_size must be at least 1")
	}
	if req.TableID != nil && *req.TableID == uuid.Nil {
		errs = append(errs, "table_id is invalid")
	}

	errs = append(errs, validateCustomer(req.Customer)...)
	return errs
}

func validateCustomer(c Customer) []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "customer.name is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, "customer.email is required")
	} else if _, err := mail.ParseAddress(c.Email); err != nil {
		errs = append(errs, "customer.email is invalid")
	}
	return errs
}
