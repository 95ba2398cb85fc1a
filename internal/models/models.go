package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/access"
)

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"                 json:"id"`
	Title       string          `gorm:"not null"                             json:"title"`
	Description string          `gorm:"not null"                             json:"description"`
	Category    string          `gorm:"not null;index"                       json:"category"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0"  json:"stock"`
	Code        string          `gorm:"not null;uniqueIndex"                 json:"code"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"          json:"price"`
	Thumbnails  []string        `gorm:"type:text;serializer:json"            json:"thumbnails"`
	OwnerID     *uuid.UUID      `gorm:"type:uuid;index"                      json:"owner_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Product) TableName() string { return "products" }

// AdminOwned reports whether the product has no premium owner.
func (p *Product) AdminOwned() bool { return p.OwnerID == nil }

type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"        json:"id"`
	Version   int64      `gorm:"not null;default:1"          json:"version"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"products"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return nil
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                                json:"-"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_product"     json:"-"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_product"     json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity > 0"                         json:"quantity"`
	Position  int       `gorm:"not null;default:0"                                  json:"-"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"    json:"product,omitempty"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string { return "cart_items" }

type Ticket struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"            json:"id"`
	Code        string          `gorm:"not null;uniqueIndex"            json:"code"`
	PurchasedAt time.Time       `gorm:"not null"                        json:"purchase_datetime"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"     json:"amount"`
	Purchaser   string          `gorm:"not null;index"                  json:"purchaser"`
	Lines       []TicketLine    `gorm:"constraint:OnDelete:CASCADE"     json:"lines"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (Ticket) TableName() string { return "tickets" }

type TicketLine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"         json:"-"`
	TicketID  uuid.UUID       `gorm:"type:uuid;not null;index"     json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"           json:"product_id"`
	Title     string          `gorm:"not null"                     json:"title"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"unit_price"`
	Quantity  int             `gorm:"not null"                     json:"quantity"`
}

func (l *TicketLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (TicketLine) TableName() string { return "ticket_lines" }

type User struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"             json:"id"`
	FirstName      string      `gorm:"not null"                         json:"first_name"`
	LastName       string      `json:"last_name"`
	Email          string      `gorm:"not null;uniqueIndex"             json:"email"`
	Age            int         `json:"age,omitempty"`
	PasswordHash   string      `json:"-"`
	Role           access.Role `gorm:"type:varchar(16);not null;default:user" json:"role"`
	CartID         *uuid.UUID  `gorm:"type:uuid;uniqueIndex"            json:"cart_id"`
	Documents      []Document  `gorm:"constraint:OnDelete:CASCADE"      json:"documents"`
	ResetTokenHash *string     `gorm:"index"                            json:"-"`
	ResetExpiresAt *time.Time  `json:"-"`
	LastConnection time.Time   `gorm:"not null;index"                   json:"last_connection"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = access.RoleUser
	}
	return nil
}

func (User) TableName() string { return "users" }

// HasDocuments reports whether every name in required is among the
// user's uploaded documents.
func (u *User) HasDocuments(required ...string) bool {
	have := make(map[string]struct{}, len(u.Documents))
	for _, d := range u.Documents {
		have[d.Name] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

type Document struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Name      string    `gorm:"not null"                 json:"name"`
	Reference string    `gorm:"not null"                 json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (Document) TableName() string { return "documents" }

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string    `gorm:"not null;uniqueIndex"     json:"-"`
	JTI       string    `gorm:"not null;uniqueIndex"     json:"jti"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false"   json:"revoked"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"not null;index"       json:"email"`
	Body      string    `gorm:"not null"             json:"message"`
	CreatedAt time.Time `gorm:"index"                json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (Message) TableName() string { return "messages" }

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Product{},
		&Cart{},
		&CartItem{},
		&User{},
		&Document{},
		&RefreshToken{},
		&Ticket{},
		&TicketLine{},
		&Message{},
	}
}
