package model

import "time"

// Role names carried in user records and JWT claims.
const (
	RoleDiner      = "diner"
	RoleFranchisee = "franchisee"
	RoleAdmin      = "admin"
)

// Role grants a user a capability. ObjectID scopes franchisee roles to a franchise.
type Role struct {
	Role     string `json:"role"`
	ObjectID int64  `json:"objectId,omitempty"`
}

// User is the public view of an account; the password hash never leaves the store.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Roles []Role `json:"roles"`
}

// IsRole reports whether the user holds role, regardless of scope.
func (u User) IsRole(role string) bool {
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// AdministersFranchise reports whether u may manage the franchise's stores.
func (u User) AdministersFranchise(franchiseID int64) bool {
	if u.IsRole(RoleAdmin) {
		return true
	}
	for _, r := range u.Roles {
		if r.Role == RoleFranchisee && r.ObjectID == franchiseID {
			return true
		}
	}
	return false
}

type MenuItem struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
}

type FranchiseAdmin struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type Store struct {
	ID           int64   `json:"id"`
	FranchiseID  int64   `json:"franchiseId,omitempty"`
	Name         string  `json:"name"`
	TotalRevenue float64 `json:"totalRevenue"`
}

type Franchise struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name"`
	Admins []FranchiseAdmin `json:"admins,omitempty"`
	Stores []Store          `json:"stores"`
}

type OrderItem struct {
	ID          int64   `json:"id,omitempty"`
	MenuID      int64   `json:"menuId"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type Order struct {
	ID          int64       `json:"id"`
	FranchiseID int64       `json:"franchiseId"`
	StoreID     int64       `json:"storeId"`
	Date        time.Time   `json:"date"`
	Items       []OrderItem `json:"items"`
}

// Total sums the item prices.
func (o Order) Total() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Price
	}
	return total
}
