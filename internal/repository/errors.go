package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDatabase          = errors.New("database error")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockError is returned when an order asks for more units than the product has
type StockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: product %d has %d, requested %d",
		ErrInsufficientStock, e.ProductID, e.Available, e.Requested)
}

// Is lets errors.Is match StockError against ErrInsufficientStock
func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
