package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrSellerNotFound     = errors.New("seller_not_found")
	ErrItemNotFound       = errors.New("item_not_found")
	ErrUnsupportedItem    = errors.New("unsupported_item_type")
	ErrInvalidEntitlement = errors.New("invalid_entitlement")
)

type Repository interface {
	FindSeller(ctx context.Context, db *gorm.DB, id string) (*Seller, error)
	FindItem(ctx context.Context, db *gorm.DB, itemType ItemType, id string) (*Item, error)

	// ApplyEntitlement performs the per-type mutation for a sale. It must run inside
	// the sale transaction and is safe to attempt more than once per payment intent.
	ApplyEntitlement(ctx context.Context, tx *gorm.DB, e Entitlement) (EntitlementResult, error)
}
