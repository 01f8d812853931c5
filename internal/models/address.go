package models

import "github.com/gocql/gocql"

type Address struct {
	ID         gocql.UUID `json:"id" db:"address_id"`
	UserID     string     `json:"user_id" db:"user_id"`
	Street     string     `json:"street" db:"street"`
	City       string     `json:"city" db:"city"`
	PostalCode string     `json:"postal_code" db:"postal_code"`
	Country    string     `json:"country" db:"country"`
	Phone      string     `json:"phone" db:"phone"`
	IsDefault  bool       `json:"is_default" db:"is_default"`
}
