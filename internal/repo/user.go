package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/models"
)

// CreateUserWithCart creates an empty cart and the user pointing at it in
// one transaction. A taken email surfaces as gorm.ErrDuplicatedKey.
func (r *GormRepo) CreateUserWithCart(ctx context.Context, u *models.User) error {
	return r.InTx(ctx, func(tx *GormRepo) error {
		cart, err := tx.CreateCart(ctx)
		if err != nil {
			return err
		}
		u.CartID = &cart.ID
		return tx.DB.WithContext(ctx).Create(u).Error
	})
}

func (r *GormRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Documents").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Documents").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("email ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) TouchLastConnection(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_connection", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// EnsureCart returns the user's cart id, creating and linking an empty cart
// the first time. The link is written once and reused afterwards.
func (r *GormRepo) EnsureCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var cartID uuid.UUID
	err := r.InTx(ctx, func(tx *GormRepo) error {
		var user models.User
		if err := tx.DB.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", userID).
			First(&user).Error; err != nil {
			return err
		}
		if user.CartID != nil {
			cartID = *user.CartID
			return nil
		}
		cart, err := tx.CreateCart(ctx)
		if err != nil {
			return err
		}
		res := tx.DB.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND cart_id IS NULL", userID).
			Update("cart_id", cart.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleVersion
		}
		cartID = cart.ID
		return nil
	})
	return cartID, err
}

func (r *GormRepo) SetRole(ctx context.Context, id uuid.UUID, role access.Role) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) AddDocuments(ctx context.Context, userID uuid.UUID, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		docs[i].UserID = userID
	}
	return r.DB.WithContext(ctx).Create(&docs).Error
}

func (r *GormRepo) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	exp := expiresAt.UTC()
	return r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"reset_token_hash": tokenHash,
		"reset_expires_at": exp,
	}).Error
}

// FindByResetToken returns the user holding an unexpired reset token.
func (r *GormRepo) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_expires_at > ?", tokenHash, now.UTC()).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ResetPassword stores the new hash and burns the reset token.
func (r *GormRepo) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":    passwordHash,
		"reset_token_hash": nil,
		"reset_expires_at": nil,
	}).Error
}

// DeleteUser removes the user along with their cart, documents and tokens,
// and returns the row as it was.
func (r *GormRepo) DeleteUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.InTx(ctx, func(tx *GormRepo) error {
		if err := tx.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}
		return tx.deleteUsers(ctx, []models.User{user})
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// PurgeInactive deletes every user whose last connection is strictly before
// cutoff and returns them.
func (r *GormRepo) PurgeInactive(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	var victims []models.User
	err := r.InTx(ctx, func(tx *GormRepo) error {
		if err := tx.DB.WithContext(ctx).
			Where("last_connection < ?", cutoff.UTC()).
			Order("email ASC").
			Find(&victims).Error; err != nil {
			return err
		}
		return tx.deleteUsers(ctx, victims)
	})
	if err != nil {
		return nil, err
	}
	return victims, nil
}

func (r *GormRepo) deleteUsers(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(users))
	cartIDs := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
		if u.CartID != nil {
			cartIDs = append(cartIDs, *u.CartID)
		}
	}

	db := r.DB.WithContext(ctx)
	if err := db.Where("user_id IN ?", ids).Delete(&models.Document{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id IN ?", ids).Delete(&models.RefreshToken{}).Error; err != nil {
		return err
	}
	if len(cartIDs) > 0 {
		if err := db.Where("cart_id IN ?", cartIDs).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := db.Where("id IN ?", cartIDs).Delete(&models.Cart{}).Error; err != nil {
			return err
		}
	}
	return db.Where("id IN ?", ids).Delete(&models.User{}).Error
}
