package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Repository persists carts and their items. Constraint violations reported by
// the database are returned wrapped but otherwise untouched.
type Repository interface {
	CreateCart(ctx context.Context, cart *Cart) error
	GetCartByID(ctx context.Context, id int) (*Cart, error)
	UpdateCartStatus(ctx context.Context, id int, status CartStatus) error
	DeleteCart(ctx context.Context, id int) error

	AddItem(ctx context.Context, item *CartItem) error
	GetItemByID(ctx context.Context, id int) (*CartItem, error)
	UpdateItemCount(ctx context.Context, id int, count int) error
	DeleteItem(ctx context.Context, id int) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateCart(ctx context.Context, cart *Cart) error {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		log.Error().Err(err).Msg("repository: failed to create cart")
		return fmt.Errorf("repository: failed to create cart: %w", err)
	}
	log.Debug().Int("cart_id", cart.ID).Int("items", len(cart.Items)).Msg("Cart created")
	return nil
}

func (r *gormRepository) GetCartByID(ctx context.Context, id int) (*Cart, error) {
	var cart Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		}).
		First(&cart, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to get cart %d: %w", id, err)
	}
	return &cart, nil
}

func (r *gormRepository) UpdateCartStatus(ctx context.Context, id int, status CartStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	res := r.db.WithContext(ctx).Model(&Cart{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("repository: failed to update status of cart %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCartNotFound
	}
	log.Info().Int("cart_id", id).Str("status", status.String()).Msg("Cart status updated")
	return nil
}

// DeleteCart removes the cart. Its items are removed by the ON DELETE CASCADE constraint.
func (r *gormRepository) DeleteCart(ctx context.Context, id int) error {
	res := r.db.WithContext(ctx).Delete(&Cart{}, id)
	if res.Error != nil {
		return fmt.Errorf("repository: failed to delete cart %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCartNotFound
	}
	log.Info().Int("cart_id", id).Msg("Cart deleted")
	return nil
}

func (r *gormRepository) AddItem(ctx context.Context, item *CartItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn().Err(err).Int("cart_id", item.CartID).Msg("repository: item references a missing cart")
		}
		return fmt.Errorf("repository: failed to add item to cart %d: %w", item.CartID, err)
	}
	return nil
}

func (r *gormRepository) GetItemByID(ctx context.Context, id int) (*CartItem, error) {
	var item CartItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to get cart item %d: %w", id, err)
	}
	return &item, nil
}

func (r *gormRepository) UpdateItemCount(ctx context.Context, id int, count int) error {
	res := r.db.WithContext(ctx).Model(&CartItem{}).Where("id = ?", id).Update("count", count)
	if res.Error != nil {
		return fmt.Errorf("repository: failed to update count of cart item %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *gormRepository) DeleteItem(ctx context.Context, id int) error {
	res := r.db.WithContext(ctx).Delete(&CartItem{}, id)
	if res.Error != nil {
		return fmt.Errorf("repository: failed to delete cart item %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}
