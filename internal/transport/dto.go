package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"      validate:"required,email"`
	Age       int    `json:"age"        validate:"gte=0"`
	Password  string `json:"password"   validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"           validate:"required"`
	Password        string `json:"password"        validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type CreateProductRequest struct {
	Title       string          `json:"title"       validate:"required"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category"    validate:"required"`
	Code        string          `json:"code"        validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"       validate:"gte=0"`
	Thumbnails  []string        `json:"thumbnails"`
}

type PatchProductRequest struct {
	Title       *string          `json:"title"       validate:"omitempty,min=1"`
	Description *string          `json:"description" validate:"omitempty,min=1"`
	Category    *string          `json:"category"    validate:"omitempty,min=1"`
	Code        *string          `json:"code"        validate:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"       validate:"omitempty,gte=0"`
	Thumbnails  *[]string        `json:"thumbnails"`
}

type AddToCartRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type CartLineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  *int      `json:"quantity"  validate:"required,gte=0"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user premium admin"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type CurrentUser struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CartID    *uuid.UUID `json:"cart_id"`
}

func NewCurrentUser(u *models.User) CurrentUser {
	return CurrentUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role.String(),
		CartID:    u.CartID,
	}
}

type SessionResponse struct {
	User      CurrentUser `json:"user"`
	AccessExp time.Time   `json:"access_exp"`
}

type CheckoutResponse struct {
	Message      string         `json:"message"`
	Ticket       *models.Ticket `json:"ticket"`
	NotPurchased []uuid.UUID    `json:"productsNotPurchased"`
}

type PurgeResponse struct {
	Deleted []string `json:"deleted"`
	Count   int      `json:"count"`
}
