package domain

import "time"

// Customer is a store profile keyed by contact email. The upsert at order
// placement overwrites every mutable field, including the owning salesman.
type Customer struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Address       string    `db:"address" json:"address"`
	ContactNumber string    `db:"contact_number" json:"number"`
	Email         string    `db:"email" json:"email"`
	SalesmanID    int64     `db:"salesman_id" json:"salesMan"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}
