package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func orderedItems(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *GormRepo) CreateCart(ctx context.Context) (*models.Cart, error) {
	cart := models.Cart{}
	if err := r.DB.WithContext(ctx).Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCart loads the cart with its lines in list order and each line's product.
func (r *GormRepo) GetCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items", orderedItems).
		Preload("Items.Product").
		Where("id = ?", id).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// CartVersion reads the current version without loading lines.
func (r *GormRepo) CartVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).Select("id", "version").Where("id = ?", id).First(&cart).Error; err != nil {
		return 0, err
	}
	return cart.Version, nil
}

// LockCart loads the cart row FOR UPDATE with its lines. Meant to be called
// inside InTx.
func (r *GormRepo) LockCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&cart).Error; err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).
		Where("cart_id = ?", id).
		Order("position ASC").
		Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) ListCarts(ctx context.Context) ([]models.Cart, error) {
	var carts []models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items", orderedItems).
		Order("created_at ASC").
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

// AddLine increments the quantity of an existing line or appends a new one
// at the end of the list.
func (r *GormRepo) AddLine(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	db := r.DB.WithContext(ctx)
	res := db.Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var next int
	if err := db.Model(&models.CartItem{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&next).Error; err != nil {
		return err
	}
	return db.Create(&models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
		Position:  next,
	}).Error
}

// SetLineQuantity reports false when the product is not in the cart.
func (r *GormRepo) SetLineQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveLine reports false when the product is not in the cart.
func (r *GormRepo) RemoveLine(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) RemoveLines(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id IN ?", cartID, productIDs).
		Delete(&models.CartItem{}).Error
}

func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// BumpCartVersion moves the cart from expected to expected+1. It fails with
// ErrStaleVersion when another writer got there first.
func (r *GormRepo) BumpCartVersion(ctx context.Context, cartID uuid.UUID, expected int64) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND version = ?", cartID, expected).
		Updates(map[string]any{
			"version":    gorm.Expr("version + 1"),
			"updated_at": r.DB.NowFunc(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrStaleVersion
	}
	return expected + 1, nil
}

// DeleteCart drops the cart and its lines and unlinks it from its owner.
func (r *GormRepo) DeleteCart(ctx context.Context, id uuid.UUID) error {
	return r.InTx(ctx, func(tx *GormRepo) error {
		db := tx.DB.WithContext(ctx)
		if err := db.Where("cart_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := db.Delete(&models.Cart{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return db.Model(&models.User{}).Where("cart_id = ?", id).Update("cart_id", nil).Error
	})
}
