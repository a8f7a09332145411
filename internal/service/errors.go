package service

import "errors"

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
)
