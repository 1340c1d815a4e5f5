package models

import (
	"time"

	"github.com/erimeilis/store-sub004/pkg/constants"
)

// Sale is one purchase record. ItemData snapshots the item as it looked
// before the stock decrement.
type Sale struct {
	ID            string               `json:"id"`
	SaleNumber    string               `json:"sale_number"`
	TableID       string               `json:"table_id"`
	ItemID        string               `json:"item_id"`
	ItemData      RowData              `json:"item_data"`
	CustomerID    string               `json:"customer_id"`
	Quantity      int                  `json:"quantity"`
	UnitPrice     float64              `json:"unit_price"`
	TotalAmount   float64              `json:"total_amount"`
	Status        constants.SaleStatus `json:"status"`
	PaymentMethod *string              `json:"payment_method,omitempty"`
	Notes         *string              `json:"notes,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Rental is one rental record. ItemData snapshots the item at rent time.
type Rental struct {
	ID           string                 `json:"id"`
	RentalNumber string                 `json:"rental_number"`
	TableID      string                 `json:"table_id"`
	ItemID       string                 `json:"item_id"`
	ItemData     RowData                `json:"item_data"`
	CustomerID   string                 `json:"customer_id"`
	Status       constants.RentalStatus `json:"status"`
	Notes        *string                `json:"notes,omitempty"`
	RentedAt     time.Time              `json:"rented_at"`
	ReleasedAt   *time.Time             `json:"released_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// OverdueBy reports how far past its rental period an active rental is.
// Zero when the table has no rental period or the rental is within it.
func (r *Rental) OverdueBy(periodDays int, now time.Time) time.Duration {
	if periodDays <= 0 || r.Status != constants.RentalStatusActive {
		return 0
	}
	due := r.RentedAt.AddDate(0, 0, periodDays)
	if now.Before(due) {
		return 0
	}
	return now.Sub(due)
}

// OverdueRental is an active rental that outstayed its table's rental
// period. OverdueDays rounds up, so anything past due counts at least one.
type OverdueRental struct {
	Rental
	RentalPeriod int `json:"rental_period"`
	OverdueDays  int `json:"overdue_days"`
}

// PurchaseRequest is the public buy call. Field names follow the public
// API wire format.
type PurchaseRequest struct {
	TableID       string  `json:"tableId" binding:"required"`
	ItemID        string  `json:"itemId" binding:"required"`
	CustomerID    string  `json:"customerId" binding:"required"`
	Quantity      int     `json:"quantity"`
	PaymentMethod *string `json:"paymentMethod,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// RentRequest is the public rent call
type RentRequest struct {
	TableID    string  `json:"tableId" binding:"required"`
	ItemID     string  `json:"itemId" binding:"required"`
	CustomerID string  `json:"customerId" binding:"required"`
	Notes      *string `json:"notes,omitempty"`
}

// ReleaseRequest ends a rental, addressed either by rental id or by the
// rented item.
type ReleaseRequest struct {
	RentalID string  `json:"rentalId,omitempty"`
	TableID  string  `json:"tableId,omitempty"`
	ItemID   string  `json:"itemId,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// UpdateSaleRequest is the admin mutation on a sale record
type UpdateSaleRequest struct {
	Status        *string `json:"status,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// UpdateRentalRequest is the admin mutation on a rental record
type UpdateRentalRequest struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// Availability answers whether an item can be bought or rented right now
type Availability struct {
	Available bool     `json:"available"`
	Reason    string   `json:"reason,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty"` // sale tables: current stock
}
