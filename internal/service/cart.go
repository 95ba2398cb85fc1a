package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const defaultCartRetries = 3

type CartService struct {
	Repo    *repo.GormRepo
	Metrics *metrics.Business
	// Retries bounds optimistic retries for unpinned mutations.
	Retries int
	Now     func() time.Time
}

func (s *CartService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// authorize checks the cart exists and belongs to the caller. Admins may
// read any cart but never mutate one.
func (s *CartService) authorize(ctx context.Context, p Principal, cartID uuid.UUID, write bool) error {
	if _, err := s.Repo.CartVersion(ctx, cartID); err != nil {
		return storeErr(err, ErrCartNotFound)
	}
	if !write && p.Can(access.ActionViewCarts) {
		return nil
	}
	if err := p.require(access.ActionManageOwnCart); err != nil {
		return err
	}
	user, err := s.Repo.GetUser(ctx, p.UserID)
	if err != nil {
		return storeErr(err, ErrUserNotFound)
	}
	if user.CartID == nil || *user.CartID != cartID {
		return ErrForbidden
	}
	return nil
}

func (s *CartService) GetCart(ctx context.Context, p Principal, cartID uuid.UUID) (*models.Cart, error) {
	if err := s.authorize(ctx, p, cartID, false); err != nil {
		return nil, err
	}
	cart, err := s.Repo.GetCart(ctx, cartID)
	if err != nil {
		return nil, storeErr(err, ErrCartNotFound)
	}
	return cart, nil
}

func (s *CartService) ListCarts(ctx context.Context, p Principal) ([]models.Cart, error) {
	if err := p.require(access.ActionViewCarts); err != nil {
		return nil, err
	}
	return s.Repo.ListCarts(ctx)
}

// EnsureCart returns the caller's cart, creating it on first use.
func (s *CartService) EnsureCart(ctx context.Context, p Principal) (*models.Cart, error) {
	if err := p.require(access.ActionManageOwnCart); err != nil {
		return nil, err
	}
	cartID, err := s.Repo.EnsureCart(ctx, p.UserID)
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}
	cart, err := s.Repo.GetCart(ctx, cartID)
	if err != nil {
		return nil, storeErr(err, ErrCartNotFound)
	}
	return cart, nil
}

// mutate runs fn and the version bump in one transaction. With ifMatch the
// caller's version must be current; without it a lost race is retried.
func (s *CartService) mutate(ctx context.Context, p Principal, cartID uuid.UUID, ifMatch *int64, fn func(tx *repo.GormRepo) error) (*models.Cart, error) {
	l := logging.FromContext(ctx).With("svc", "cart.mutate", "cart_id", cartID.String())
	if err := s.authorize(ctx, p, cartID, true); err != nil {
		return nil, err
	}

	attempts := s.Retries
	if attempts <= 0 {
		attempts = defaultCartRetries
	}
	if ifMatch != nil {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
			version, err := tx.CartVersion(ctx, cartID)
			if err != nil {
				return err
			}
			if ifMatch != nil && *ifMatch != version {
				return repo.ErrStaleVersion
			}
			if err := fn(tx); err != nil {
				return err
			}
			_, err = tx.BumpCartVersion(ctx, cartID, version)
			return err
		})
		if !errors.Is(err, repo.ErrStaleVersion) || ifMatch != nil {
			break
		}
		l.Info("cart_version_retry", "attempt", i+1)
	}
	if err != nil {
		return nil, storeErr(err, ErrCartNotFound)
	}

	cart, err := s.Repo.GetCart(ctx, cartID)
	if err != nil {
		return nil, storeErr(err, ErrCartNotFound)
	}
	return cart, nil
}

// AddProduct accumulates qty onto the product's line. Premium users cannot
// buy their own products.
func (s *CartService) AddProduct(ctx context.Context, p Principal, cartID, productID uuid.UUID, qty int, ifMatch *int64) (*models.Cart, error) {
	if qty <= 0 {
		return nil, invalidField("quantity", "must be greater than 0")
	}
	prod, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, storeErr(err, ErrProductNotFound)
	}
	if p.Role == access.RolePremium && prod.OwnerID != nil && *prod.OwnerID == p.UserID {
		return nil, ErrForbidden
	}

	return s.mutate(ctx, p, cartID, ifMatch, func(tx *repo.GormRepo) error {
		return tx.AddLine(ctx, cartID, productID, qty)
	})
}

// SetQuantity replaces the line's quantity; zero removes the line.
func (s *CartService) SetQuantity(ctx context.Context, p Principal, cartID, productID uuid.UUID, qty int, ifMatch *int64) (*models.Cart, error) {
	if qty < 0 {
		return nil, invalidField("quantity", "must be >= 0")
	}
	if qty == 0 {
		return s.RemoveProduct(ctx, p, cartID, productID, ifMatch)
	}
	return s.mutate(ctx, p, cartID, ifMatch, func(tx *repo.GormRepo) error {
		found, err := tx.SetLineQuantity(ctx, cartID, productID, qty)
		if err != nil {
			return err
		}
		if !found {
			return ErrProductNotInCart
		}
		return nil
	})
}

func (s *CartService) RemoveProduct(ctx context.Context, p Principal, cartID, productID uuid.UUID, ifMatch *int64) (*models.Cart, error) {
	return s.mutate(ctx, p, cartID, ifMatch, func(tx *repo.GormRepo) error {
		removed, err := tx.RemoveLine(ctx, cartID, productID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrProductNotInCart
		}
		return nil
	})
}

// ClearCart empties the cart but keeps it linked to its owner.
func (s *CartService) ClearCart(ctx context.Context, p Principal, cartID uuid.UUID, ifMatch *int64) (*models.Cart, error) {
	return s.mutate(ctx, p, cartID, ifMatch, func(tx *repo.GormRepo) error {
		return tx.ClearCart(ctx, cartID)
	})
}

// DeleteCart drops the cart. The owner gets a fresh one on next use.
func (s *CartService) DeleteCart(ctx context.Context, p Principal, cartID uuid.UUID) error {
	if err := s.authorize(ctx, p, cartID, true); err != nil {
		return err
	}
	return storeErr(s.Repo.DeleteCart(ctx, cartID), ErrCartNotFound)
}
