package domain

import "time"

type Role string

const (
	RoleSalesman Role = "salesman"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// precedence: admin > manager > salesman
var rolePrecedence = map[Role]int{
	RoleSalesman: 1,
	RoleManager:  2,
	RoleAdmin:    3,
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := rolePrecedence[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := rolePrecedence[r]
	return ok
}

// AtLeast reports whether r grants every capability of other.
func (r Role) AtLeast(other Role) bool {
	return rolePrecedence[r] >= rolePrecedence[other]
}

// CanReviewOrders is the manager/admin capability gate for the review workflow.
func (r Role) CanReviewOrders() bool {
	return r.AtLeast(RoleManager)
}

// CanManageInventory gates product creation/editing and account management.
func (r Role) CanManageInventory() bool {
	return r.AtLeast(RoleAdmin)
}

// Actor is the authenticated caller as established by the identity
// capability at the request boundary.
type Actor struct {
	ID   int64
	Role Role
}

type User struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	ContactNumber string    `db:"contact_number" json:"number"`
	Role          Role      `db:"role" json:"role"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}
