package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CheckoutResult struct {
	Ticket       *models.Ticket
	NotPurchased []uuid.UUID
}

// Purchase checks the caller may buy from this cart and runs the checkout.
func (s *CartService) Purchase(ctx context.Context, p Principal, cartID uuid.UUID) (*CheckoutResult, error) {
	if err := p.require(access.ActionPurchase); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, cartID, true); err != nil {
		return nil, err
	}
	return s.Checkout(ctx, cartID, p.Email)
}

// Checkout turns the cart into a ticket in a single transaction.
//
// Each line is bought only if a conditional decrement on the product's
// stock succeeds, so two buyers can never both take the last units. Lines
// that cannot be filled, including ones whose product no longer exists,
// stay in the cart in their original order and are reported back. The
// ticket is issued even when nothing could be bought; its amount is then
// zero. Any store error rolls back stock, ticket and cart together.
func (s *CartService) Checkout(ctx context.Context, cartID uuid.UUID, purchaser string) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "cart.checkout", "cart_id", cartID.String())

	var (
		result    CheckoutResult
		purchased int
	)
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.LockCart(ctx, cartID)
		if err != nil {
			return storeErr(err, ErrCartNotFound)
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		amount := decimal.Zero
		lines := make([]models.TicketLine, 0, len(cart.Items))
		bought := make([]uuid.UUID, 0, len(cart.Items))
		notPurchased := make([]uuid.UUID, 0)

		for _, item := range cart.Items {
			prod, err := tx.GetProduct(ctx, item.ProductID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				notPurchased = append(notPurchased, item.ProductID)
				continue
			}
			if err != nil {
				return err
			}

			ok, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				notPurchased = append(notPurchased, item.ProductID)
				continue
			}

			lines = append(lines, models.TicketLine{
				ProductID: prod.ID,
				Title:     prod.Title,
				UnitPrice: prod.Price,
				Quantity:  item.Quantity,
			})
			amount = amount.Add(prod.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			bought = append(bought, item.ProductID)
		}

		ticket := &models.Ticket{
			Code:        uuid.NewString(),
			PurchasedAt: s.now(),
			Amount:      amount,
			Purchaser:   purchaser,
			Lines:       lines,
		}
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return err
		}
		if err := tx.RemoveLines(ctx, cartID, bought); err != nil {
			return err
		}
		if _, err := tx.BumpCartVersion(ctx, cartID, cart.Version); err != nil {
			return err
		}

		result = CheckoutResult{Ticket: ticket, NotPurchased: notPurchased}
		purchased = len(bought)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrValidation) {
			l.Error("checkout_failed", "status", 500, "error", err)
		}
		return nil, storeErr(err, ErrCartNotFound)
	}

	s.Metrics.RecordCheckout(ctx, result.Ticket.Amount, purchased, len(result.NotPurchased))
	l.Info("checkout_completed",
		"ticket", result.Ticket.Code,
		"amount", result.Ticket.Amount.String(),
		"purchased", purchased,
		"not_purchased", len(result.NotPurchased))
	return &result, nil
}

func (s *CartService) ListTickets(ctx context.Context, p Principal) ([]models.Ticket, error) {
	return s.Repo.ListTicketsByPurchaser(ctx, p.Email)
}
