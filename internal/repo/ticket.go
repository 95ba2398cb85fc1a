package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateTicket(ctx context.Context, t *models.Ticket) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	var t models.Ticket
	if err := r.DB.WithContext(ctx).Preload("Lines").Where("code = ?", code).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormRepo) ListTicketsByPurchaser(ctx context.Context, purchaser string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := r.DB.WithContext(ctx).
		Preload("Lines").
		Where("purchaser = ?", purchaser).
		Order("purchased_at DESC").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
