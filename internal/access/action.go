package access

type Action string

const (
	ActionPurchase       Action = "purchase"
	ActionManageOwnCart  Action = "manage_own_cart"
	ActionCreateProduct  Action = "create_product"
	ActionUpdateProduct  Action = "update_product"
	ActionDeleteProduct  Action = "delete_product"
	ActionManageUsers    Action = "manage_users"
	ActionViewCarts      Action = "view_carts"
	ActionChat           Action = "chat"
	ActionUploadDocument Action = "upload_document"
)

var policy = map[Action]Guard{
	ActionPurchase:       IsNotAdmin,
	ActionManageOwnCart:  IsNotAdmin,
	ActionCreateProduct:  IsPremiumOrAdmin,
	ActionUpdateProduct:  IsPremiumOrAdmin,
	ActionDeleteProduct:  IsAdmin,
	ActionManageUsers:    IsAdmin,
	ActionViewCarts:      IsAdmin,
	ActionChat:           IsUser,
	ActionUploadDocument: IsNotAdmin,
}

// Allowed reports whether role r may perform a. Unknown actions are denied.
func Allowed(r Role, a Action) bool {
	g, ok := policy[a]
	if !ok {
		return false
	}
	return g(r)
}
