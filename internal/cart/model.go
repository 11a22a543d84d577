package cart

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type CartStatus string

const (
	StatusOpen    CartStatus = "OPEN"
	StatusOrdered CartStatus = "ORDERED"
)

func (s CartStatus) String() string {
	return string(s)
}

func (s CartStatus) Valid() bool {
	return s == StatusOpen || s == StatusOrdered
}

var validate = validator.New()

// Cart принадлежит пользователю и содержит позиции.
type Cart struct {
	ID     int        `json:"id" gorm:"primaryKey"`
	UserID *int       `json:"user_id" gorm:"column:user_id;not null" validate:"required"`
	Status CartStatus `json:"status" gorm:"type:varchar(16);not null;default:'OPEN';check:chk_carts_status,status IN ('OPEN','ORDERED')" validate:"omitempty,oneof=OPEN ORDERED"`
	// Позиции удаляются вместе с корзиной на уровне БД.
	Items []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func (Cart) TableName() string {
	return "carts"
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = StatusOpen
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCart, err)
	}
	return nil
}

type CartItem struct {
	ID        int  `json:"id" gorm:"primaryKey"`
	CartID    int  `json:"cart_id" gorm:"column:cart_id;not null;index"`
	ProductID *int `json:"product_id" gorm:"column:product_id;not null" validate:"required"`
	Count     *int `json:"count" gorm:"column:count;not null" validate:"required"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCartItem, err)
	}
	return nil
}

// Entities returns the models whose tables make up the cart schema.
func Entities() []any {
	return []any{&Cart{}, &CartItem{}}
}
