package auth

import "github.com/Additional-Code/nutra/internal/entity"

// Action names a capability a caller may exercise.
type Action string

const (
	ActionManageProducts Action = "products.manage"
	ActionListOrders     Action = "orders.list"
	ActionUpdateOrder    Action = "orders.update"
	ActionReadOwnOrders  Action = "orders.read_own"
)

// Allowed is the single capability check consulted per request: role plus
// action in, verdict out.
func Allowed(role string, action Action) bool {
	switch action {
	case ActionManageProducts:
		return role == entity.RoleAdmin
	case ActionListOrders, ActionUpdateOrder:
		return entity.StaffRole(role)
	case ActionReadOwnOrders:
		return role != ""
	}
	return false
}
