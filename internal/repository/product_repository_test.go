package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

var productCols = []string{"id", "seller_id", "title", "description", "price", "currency", "image_url", "created_at", "updated_at"}

func TestProductRepo_CreateStoresNullsAndReloads(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products (seller_id, title, description, price, currency, image_url) VALUES (?,?,?,?,?,?)")).
		WithArgs(uint64(3), "Lamp", nil, 9.5, "USD", nil).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + productColumns + " FROM products WHERE id=? LIMIT 1")).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(productCols).AddRow(11, 3, "Lamp", nil, 9.5, "USD", nil, now, now))

	p, err := repo.Create(context.Background(), model.Product{SellerID: 3, Title: "Lamp", Price: 9.5, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), p.ID)
	assert.Empty(t, p.Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_GetMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id=?")).
		WithArgs(uint64(4)).
		WillReturnError(sql.ErrNoRows)

	_, err := NewProductRepo(db).Get(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepo_DeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id=?")).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewProductRepo(db).Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepo_ListAndStats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")).
		WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(2, 1, "B", "second", 2.0, "EUR", "https://img/b", now, now).
			AddRow(1, 1, "A", nil, 1.0, "USD", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COALESCE(SUM(seller_id = ?), 0) FROM products")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "mine"}).AddRow(2, 2))

	items, err := repo.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://img/b", items[0].ImageURL)
	assert.Equal(t, "second", items[0].Description)

	st, err := repo.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStats{Total: 2, Mine: 2}, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}
