package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Inventory errors. These carry their own codes so callers can tell a stock
// shortage from a double rent without parsing messages.

// NotSaleTableError means a purchase was attempted on a table that is not a sale table
type NotSaleTableError struct {
	TableID string
	Type    string
}

func (e *NotSaleTableError) Error() string {
	return fmt.Sprintf("table '%s' is not a sale table (type '%s')", e.TableID, e.Type)
}

func (e *NotSaleTableError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *NotSaleTableError) Code() string {
	return "NOT_SALE_TABLE"
}

// NewNotSaleTableError creates a new NotSaleTableError
func NewNotSaleTableError(tableID, tableType string) *NotSaleTableError {
	return &NotSaleTableError{TableID: tableID, Type: tableType}
}

// NotRentTableError means a rent was attempted on a table that is not a rent table
type NotRentTableError struct {
	TableID string
	Type    string
}

func (e *NotRentTableError) Error() string {
	return fmt.Sprintf("table '%s' is not a rent table (type '%s')", e.TableID, e.Type)
}

func (e *NotRentTableError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *NotRentTableError) Code() string {
	return "NOT_RENT_TABLE"
}

// NewNotRentTableError creates a new NotRentTableError
func NewNotRentTableError(tableID, tableType string) *NotRentTableError {
	return &NotRentTableError{TableID: tableID, Type: tableType}
}

// InsufficientStockError means the requested quantity exceeds what the item has
type InsufficientStockError struct {
	ItemID    string
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item '%s': requested %g, available %g",
		e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *InsufficientStockError) Code() string {
	return "INSUFFICIENT_STOCK"
}

// NewInsufficientStockError creates a new InsufficientStockError
func NewInsufficientStockError(itemID string, requested, available float64) *InsufficientStockError {
	return &InsufficientStockError{ItemID: itemID, Requested: requested, Available: available}
}

// AlreadyRentedError means the item is currently rented out
type AlreadyRentedError struct {
	ItemID string
}

func (e *AlreadyRentedError) Error() string {
	return fmt.Sprintf("item '%s' is already rented", e.ItemID)
}

func (e *AlreadyRentedError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *AlreadyRentedError) Code() string {
	return "ALREADY_RENTED"
}

// NewAlreadyRentedError creates a new AlreadyRentedError
func NewAlreadyRentedError(itemID string) *AlreadyRentedError {
	return &AlreadyRentedError{ItemID: itemID}
}

// ItemUsedError means the item was rented before and can never be rented again
type ItemUsedError struct {
	ItemID string
}

func (e *ItemUsedError) Error() string {
	return fmt.Sprintf("item '%s' has already been used", e.ItemID)
}

func (e *ItemUsedError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *ItemUsedError) Code() string {
	return "ITEM_USED"
}

// NewItemUsedError creates a new ItemUsedError
func NewItemUsedError(itemID string) *ItemUsedError {
	return &ItemUsedError{ItemID: itemID}
}

// StaleItemError means a guarded inventory write found the item changed
// between read and write. The operation applied nothing; retrying is safe.
type StaleItemError struct {
	ItemID string
}

func (e *StaleItemError) Error() string {
	return fmt.Sprintf("item '%s' changed concurrently, nothing was applied", e.ItemID)
}

func (e *StaleItemError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *StaleItemError) Code() string {
	return "STALE_ITEM"
}

// NewStaleItemError creates a new StaleItemError
func NewStaleItemError(itemID string) *StaleItemError {
	return &StaleItemError{ItemID: itemID}
}

// RentalNotActiveError means a release was attempted on a rental that is not active
type RentalNotActiveError struct {
	RentalID string
	Status   string
}

func (e *RentalNotActiveError) Error() string {
	return fmt.Sprintf("rental '%s' is not active (status '%s')", e.RentalID, e.Status)
}

func (e *RentalNotActiveError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *RentalNotActiveError) Code() string {
	return "RENTAL_NOT_ACTIVE"
}

// NewRentalNotActiveError creates a new RentalNotActiveError
func NewRentalNotActiveError(rentalID, status string) *RentalNotActiveError {
	return &RentalNotActiveError{RentalID: rentalID, Status: status}
}

// IsInsufficientStock checks if an error is an InsufficientStockError
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// IsAlreadyRented checks if an error is an AlreadyRentedError
func IsAlreadyRented(err error) bool {
	var target *AlreadyRentedError
	return errors.As(err, &target)
}

// IsItemUsed checks if an error is an ItemUsedError
func IsItemUsed(err error) bool {
	var target *ItemUsedError
	return errors.As(err, &target)
}

// IsRentalNotActive checks if an error is a RentalNotActiveError
func IsRentalNotActive(err error) bool {
	var target *RentalNotActiveError
	return errors.As(err, &target)
}
