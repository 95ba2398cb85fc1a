package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type recordingNotifier struct {
	mu      sync.Mutex
	intents []notify.Intent
}

func (n *recordingNotifier) Enqueue(_ context.Context, in notify.Intent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, in)
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.intents))
	for _, in := range n.intents {
		out = append(out, in.To)
	}
	return out
}

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return repo.New(testutil.NewDB(t))
}

func mustUser(t *testing.T, r *repo.GormRepo, email string, role access.Role) (*models.User, Principal) {
	t.Helper()
	u := &models.User{FirstName: "Test", Email: email, Role: role, LastConnection: time.Now().UTC()}
	require.NoError(t, r.CreateUserWithCart(context.Background(), u))
	return u, Principal{UserID: u.ID, Email: u.Email, Role: role}
}

func mustProduct(t *testing.T, r *repo.GormRepo, code string, stock int, price string, owner *models.User) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:       "Product " + code,
		Description: "test product",
		Category:    "test",
		Code:        code,
		Stock:       stock,
		Price:       decimal.RequireFromString(price),
	}
	if owner != nil {
		p.OwnerID = &owner.ID
	}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func stockOf(t *testing.T, r *repo.GormRepo, p *models.Product) int {
	t.Helper()
	got, err := r.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Stock
}
