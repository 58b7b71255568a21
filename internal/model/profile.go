package model

import "time"

const (
	RoleOwner  = "owner"
	RoleTenant = "tenant"
	RoleAdmin  = "admin"
)

type Profile struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	FullName    string    `db:"full_name"`
	Phone       string    `db:"phone"`
	Nationality string    `db:"nationality"`
	HomeAddress string    `db:"home_address"`
	Role        string    `db:"role"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
