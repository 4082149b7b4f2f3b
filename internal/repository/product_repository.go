package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

// ProductRepo persists marketplace listings.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productColumns = "id,seller_id,title,description,price,currency,image_url,created_at,updated_at"

// List returns products newest first.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]model.Product, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches a product by id.
func (r *ProductRepo) Get(ctx context.Context, id uint64) (model.Product, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? LIMIT 1", id)
	return scanProduct(row)
}

// Create inserts p and returns the stored row.
func (r *ProductRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO products (seller_id, title, description, price, currency, image_url) VALUES (?,?,?,?,?,?)",
		p.SellerID, p.Title, nullString(p.Description), p.Price, p.Currency, nullString(p.ImageURL))
	if err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Product{}, err
	}
	return r.Get(ctx, uint64(id))
}

// Update overwrites the editable fields of p.
func (r *ProductRepo) Update(ctx context.Context, p model.Product) (model.Product, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE products SET title=?, description=?, price=?, currency=?, image_url=? WHERE id=?",
		p.Title, nullString(p.Description), p.Price, p.Currency, nullString(p.ImageURL), p.ID)
	if err != nil {
		return model.Product{}, err
	}
	return r.Get(ctx, p.ID)
}

// Delete removes a product. Deleting a missing row returns ErrNotFound.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts all products and those listed by sellerID.
func (r *ProductRepo) Stats(ctx context.Context, sellerID uint64) (model.ProductStats, error) {
	var st model.ProductStats
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(seller_id = ?), 0) FROM products",
		sellerID).Scan(&st.Total, &st.Mine)
	return st, err
}

func scanProduct(row rowScanner) (model.Product, error) {
	var (
		p     model.Product
		desc  sql.NullString
		image sql.NullString
	)
	err := row.Scan(&p.ID, &p.SellerID, &p.Title, &desc, &p.Price, &p.Currency, &image, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Product{}, ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	p.Description = desc.String
	p.ImageURL = image.String
	return p, nil
}
