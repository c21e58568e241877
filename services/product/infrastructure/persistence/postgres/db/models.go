package db

import (
	"database/sql"
	"time"
)

// Product is one row of the products table.
type Product struct {
	ID          int32
	Name        string
	Description sql.NullString
	Price       float64
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
