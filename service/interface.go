package service

import (
	"context"

	"cart-management/model"
)

// CartService is everything the view layer gets to see of a cart.
type CartService interface {
	Cart() model.Cart
	AddProduct(ctx context.Context, productID int64)
	RemoveProduct(ctx context.Context, productID int64)
	UpdateProductAmount(ctx context.Context, req UpdateProductAmount)
	Subscribe(listener func(model.Cart)) (unsubscribe func())
}

// StockService reports how many units of a product are available.
type StockService interface {
	GetStock(ctx context.Context, productID int64) (model.Stock, error)
}

// CatalogService returns the display data of a product.
type CatalogService interface {
	GetProduct(ctx context.Context, productID int64) (model.Product, error)
}

// UpdateProductAmount is the input of CartService.UpdateProductAmount.
type UpdateProductAmount struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}
