package db

import (
	"context"
	"database/sql"
)

const productColumns = `id, name, description, price, available, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Available,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) listProducts(ctx context.Context, query string, args ...interface{}) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertProduct = `INSERT INTO products (name, description, price, available)
VALUES ($1, $2, $3, $4)
RETURNING ` + productColumns

type InsertProductParams struct {
	Name        string
	Description sql.NullString
	Price       float64
	Available   bool
}

func (q *Queries) InsertProduct(ctx context.Context, arg InsertProductParams) (Product, error) {
	row := q.db.QueryRowContext(ctx, insertProduct,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Available,
	)
	return scanProduct(row)
}

const listAvailableProducts = `SELECT ` + productColumns + `
FROM products
WHERE available = TRUE
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`

type ListAvailableProductsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListAvailableProducts(ctx context.Context, arg ListAvailableProductsParams) ([]Product, error) {
	return q.listProducts(ctx, listAvailableProducts, arg.Limit, arg.Offset)
}

const countAvailableProducts = `SELECT count(*) FROM products WHERE available = TRUE`

func (q *Queries) CountAvailableProducts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countAvailableProducts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getAvailableProduct = `SELECT ` + productColumns + `
FROM products
WHERE id = $1 AND available = TRUE`

func (q *Queries) GetAvailableProduct(ctx context.Context, id int32) (Product, error) {
	row := q.db.QueryRowContext(ctx, getAvailableProduct, id)
	return scanProduct(row)
}

const listAvailableProductsByIDs = `SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::int[]) AND available = TRUE
ORDER BY id`

func (q *Queries) ListAvailableProductsByIDs(ctx context.Context, ids []int32) ([]Product, error) {
	return q.listProducts(ctx, listAvailableProductsByIDs, ids)
}

const updateProduct = `UPDATE products
SET name        = COALESCE($1, name),
    description = COALESCE($2, description),
    price       = COALESCE($3, price),
    available   = COALESCE($4, available),
    updated_at  = now()
WHERE id = $5
RETURNING ` + productColumns

type UpdateProductParams struct {
	Name        sql.NullString
	Description sql.NullString
	Price       sql.NullFloat64
	Available   sql.NullBool
	ID          int32
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRowContext(ctx, updateProduct,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Available,
		arg.ID,
	)
	return scanProduct(row)
}

const deleteProduct = `DELETE FROM products
WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) DeleteProduct(ctx context.Context, id int32) (Product, error) {
	row := q.db.QueryRowContext(ctx, deleteProduct, id)
	return scanProduct(row)
}
