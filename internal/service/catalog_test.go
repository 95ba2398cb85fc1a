package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
)

type fakeIndex struct {
	indexed map[uuid.UUID]string
	fail    bool
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	if f.indexed == nil {
		f.indexed = map[uuid.UUID]string{}
	}
	f.indexed[p.ID] = p.Title
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id uuid.UUID) error {
	delete(f.indexed, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, q string, _, _ int) (int64, []uuid.UUID, error) {
	if f.fail {
		return 0, nil, errors.New("cluster red")
	}
	var ids []uuid.UUID
	for id, title := range f.indexed {
		if title == q {
			ids = append(ids, id)
		}
	}
	return int64(len(ids)), ids, nil
}

func validInput(code string) ProductInput {
	return ProductInput{
		Title: "Lamp", Description: "desk lamp", Category: "home", Code: code,
		Price: decimal.RequireFromString("19.99"), Stock: 4,
	}
}

func TestCatalog_CreateOwnershipAndValidation(t *testing.T) {
	r := newTestRepo(t)
	idx := &fakeIndex{}
	svc := &CatalogService{Repo: r, Index: idx}
	ctx := context.Background()
	_, user := mustUser(t, r, "u@example.com", access.RoleUser)
	seller, sellerP := mustUser(t, r, "p@example.com", access.RolePremium)
	_, admin := mustUser(t, r, "a@example.com", access.RoleAdmin)

	_, err := svc.CreateProduct(ctx, user, validInput("X1"))
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := svc.CreateProduct(ctx, sellerP, validInput("X1"))
	require.NoError(t, err)
	require.NotNil(t, p.OwnerID)
	assert.Equal(t, seller.ID, *p.OwnerID)
	assert.Contains(t, idx.indexed, p.ID)

	ap, err := svc.CreateProduct(ctx, admin, validInput("X2"))
	require.NoError(t, err)
	assert.True(t, ap.AdminOwned())

	_, err = svc.CreateProduct(ctx, admin, validInput("X2"))
	assert.ErrorIs(t, err, ErrConflict)

	bad := validInput("X3")
	bad.Price = decimal.NewFromInt(-1)
	_, err = svc.CreateProduct(ctx, admin, bad)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "price", fe.Field)
}

func TestProductInput_ReportsFirstMissingField(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		err := ProductInput{Code: "C1"}.validate()
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "title", fe.Field)
	}

	in := validInput("C2")
	in.Category = " "
	in.Code = ""
	var fe *FieldError
	require.ErrorAs(t, in.validate(), &fe)
	assert.Equal(t, "category", fe.Field)
}

func TestCatalog_UpdateRespectsOwner(t *testing.T) {
	r := newTestRepo(t)
	svc := &CatalogService{Repo: r}
	ctx := context.Background()
	_, owner := mustUser(t, r, "owner@example.com", access.RolePremium)
	_, rival := mustUser(t, r, "rival@example.com", access.RolePremium)
	_, admin := mustUser(t, r, "a@example.com", access.RoleAdmin)

	p, err := svc.CreateProduct(ctx, owner, validInput("OWN"))
	require.NoError(t, err)

	title := "Rival lamp"
	_, err = svc.UpdateProduct(ctx, rival, p.ID, ProductPatch{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	stock := 9
	got, err := svc.UpdateProduct(ctx, owner, p.ID, ProductPatch{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 9, got.Stock)
	assert.Equal(t, "Lamp", got.Title)

	neg := -2
	_, err = svc.UpdateProduct(ctx, admin, p.ID, ProductPatch{Stock: &neg})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateProduct(ctx, admin, uuid.New(), ProductPatch{Stock: &stock})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalog_DeleteNotifiesPremiumOwner(t *testing.T) {
	r := newTestRepo(t)
	n := &recordingNotifier{}
	idx := &fakeIndex{}
	svc := &CatalogService{Repo: r, Notifier: n, Index: idx}
	ctx := context.Background()
	_, owner := mustUser(t, r, "owner@example.com", access.RolePremium)
	_, admin := mustUser(t, r, "a@example.com", access.RoleAdmin)

	owned, err := svc.CreateProduct(ctx, owner, validInput("OWN"))
	require.NoError(t, err)
	house, err := svc.CreateProduct(ctx, admin, validInput("HOUSE"))
	require.NoError(t, err)

	_, err = svc.DeleteProduct(ctx, owner, owned.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.DeleteProduct(ctx, admin, house.ID)
	require.NoError(t, err)
	assert.Empty(t, n.intents)

	_, err = svc.DeleteProduct(ctx, admin, owned.ID)
	require.NoError(t, err)
	require.Len(t, n.intents, 1)
	assert.Equal(t, notify.KindProductRemoved, n.intents[0].Kind)
	assert.Equal(t, "owner@example.com", n.intents[0].To)
	assert.NotContains(t, idx.indexed, owned.ID)
}

func TestCatalog_SearchFallsBackToSQL(t *testing.T) {
	r := newTestRepo(t)
	idx := &fakeIndex{}
	svc := &CatalogService{Repo: r, Index: idx}
	ctx := context.Background()
	_, admin := mustUser(t, r, "a@example.com", access.RoleAdmin)
	_, err := svc.CreateProduct(ctx, admin, validInput("L1"))
	require.NoError(t, err)

	total, items, err := svc.SearchProducts(ctx, "Lamp", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)

	idx.fail = true
	total, items, err = svc.SearchProducts(ctx, "desk", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, items, 1)

	_, _, err = svc.SearchProducts(ctx, "  ", 0, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMockProducts(t *testing.T) {
	items := MockProducts(100)
	require.Len(t, items, 100)
	for _, p := range items {
		assert.NotEmpty(t, p.Title)
		assert.False(t, p.Price.IsNegative())
	}
}
