package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const indexTimeout = 3 * time.Second

type Indexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

type Notifier interface {
	Enqueue(ctx context.Context, in notify.Intent)
}

type CatalogService struct {
	Repo     *repo.GormRepo
	Index    Indexer
	Notifier Notifier
}

type ProductInput struct {
	Title       string
	Description string
	Category    string
	Code        string
	Price       decimal.Decimal
	Stock       int
	Thumbnails  []string
}

type ProductPatch struct {
	Title       *string
	Description *string
	Category    *string
	Code        *string
	Price       *decimal.Decimal
	Stock       *int
	Thumbnails  *[]string
}

func (in ProductInput) validate() error {
	for _, f := range []struct{ name, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"category", in.Category},
		{"code", in.Code},
	} {
		if strings.TrimSpace(f.value) == "" {
			return invalidField(f.name, "is required")
		}
	}
	if in.Price.IsNegative() {
		return invalidField("price", "must be >= 0")
	}
	if in.Stock < 0 {
		return invalidField("stock", "must be >= 0")
	}
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrProductNotFound)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, f repo.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, f, offset, limit)
}

// SearchProducts asks the index first and falls back to SQL when there is
// no index or it fails.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")
	if strings.TrimSpace(query) == "" {
		return 0, nil, invalidField("q", "is required")
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, query, offset, limit)
		if err == nil {
			items, err := s.Repo.GetProductsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			return total, items, nil
		}
		l.Warn("search_index_failed", "reason", "falling back to sql", "error", err)
	}
	return s.Repo.SearchProducts(ctx, query, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, p Principal, in ProductInput) (*models.Product, error) {
	if err := p.require(access.ActionCreateProduct); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	prod := &models.Product{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Code:        strings.TrimSpace(in.Code),
		Price:       in.Price,
		Stock:       in.Stock,
		Thumbnails:  in.Thumbnails,
	}
	if p.Role == access.RolePremium {
		owner := p.UserID
		prod.OwnerID = &owner
	}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, storeErr(err, ErrProductNotFound)
	}
	s.reindex(ctx, prod)
	return prod, nil
}

// UpdateProduct lets admins edit anything and premium users edit only what
// they own.
func (s *CatalogService) UpdateProduct(ctx context.Context, p Principal, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	if err := p.require(access.ActionUpdateProduct); err != nil {
		return nil, err
	}

	prod, err := s.Repo.UpdateProduct(ctx, id, func(prod *models.Product) error {
		if p.Role == access.RolePremium && (prod.OwnerID == nil || *prod.OwnerID != p.UserID) {
			return ErrForbidden
		}
		in := ProductInput{
			Title: prod.Title, Description: prod.Description, Category: prod.Category,
			Code: prod.Code, Price: prod.Price, Stock: prod.Stock, Thumbnails: prod.Thumbnails,
		}
		if patch.Title != nil {
			in.Title = *patch.Title
		}
		if patch.Description != nil {
			in.Description = *patch.Description
		}
		if patch.Category != nil {
			in.Category = *patch.Category
		}
		if patch.Code != nil {
			in.Code = *patch.Code
		}
		if patch.Price != nil {
			in.Price = *patch.Price
		}
		if patch.Stock != nil {
			in.Stock = *patch.Stock
		}
		if patch.Thumbnails != nil {
			in.Thumbnails = *patch.Thumbnails
		}
		if err := in.validate(); err != nil {
			return err
		}
		prod.Title, prod.Description, prod.Category, prod.Code = in.Title, in.Description, in.Category, in.Code
		prod.Price, prod.Stock, prod.Thumbnails = in.Price, in.Stock, in.Thumbnails
		return nil
	})
	if err != nil {
		return nil, storeErr(err, ErrProductNotFound)
	}
	s.reindex(ctx, prod)
	return prod, nil
}

// DeleteProduct removes the product and, when a premium user owned it,
// queues an email to them.
func (s *CatalogService) DeleteProduct(ctx context.Context, p Principal, id uuid.UUID) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.delete", "product_id", id.String())
	if err := p.require(access.ActionDeleteProduct); err != nil {
		return nil, err
	}

	prod, err := s.Repo.DeleteProduct(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrProductNotFound)
	}

	if s.Index != nil {
		ictx, cancel := context.WithTimeout(ctx, indexTimeout)
		if err := s.Index.DeleteProduct(ictx, id); err != nil {
			l.Warn("search_unindex_failed", "error", err)
		}
		cancel()
	}

	if prod.OwnerID != nil && s.Notifier != nil {
		owner, err := s.Repo.GetUser(ctx, *prod.OwnerID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			l.Info("owner_gone", "owner_id", prod.OwnerID.String())
		case err != nil:
			l.Error("owner_lookup_failed", "error", err)
		case owner.Role == access.RolePremium:
			s.Notifier.Enqueue(ctx, notify.ProductRemoved(owner.Email, prod.Title))
		}
	}
	return prod, nil
}

func (s *CatalogService) reindex(ctx context.Context, prod *models.Product) {
	if s.Index == nil {
		return
	}
	ictx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()
	if err := s.Index.IndexProduct(ictx, prod); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", prod.ID.String(), "error", err)
	}
}

// MockProducts fabricates n products for demos. Nothing is stored.
func MockProducts(n int) []models.Product {
	faker := gofakeit.New(0)
	out := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Product{
			ID:          uuid.New(),
			Title:       faker.ProductName(),
			Description: faker.ProductDescription(),
			Category:    faker.ProductCategory(),
			Stock:       faker.IntRange(0, 100),
			Code:        faker.UUID(),
			Price:       decimal.NewFromFloat(faker.Price(1, 500)).Round(2),
			Thumbnails:  []string{faker.URL()},
		})
	}
	return out
}
