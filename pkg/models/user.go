package models

type User struct {
	ID             int    `json:"id" db:"id"`
	OrganizationID int    `json:"organization_id" db:"organization_id"`
	Username       string `json:"username" db:"username"`
	Fullname       string `json:"fullname" db:"fullname"`
	PasswordHash   string `json:"-" db:"password_hash"`
	Role           string `json:"role" db:"role"`
}
