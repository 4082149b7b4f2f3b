package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/repository"
)

// Listing limits for ProductService.List.
const (
	DefaultProductLimit = 50
	MaxProductLimit     = 100
	DefaultCurrency     = "USD"
)

// ProductInput carries the editable fields of a listing.
type ProductInput struct {
	Title       string
	Description string
	Price       float64
	Currency    string
	ImageURL    string
}

// ProductService is the thin CRUD layer of the marketplace. Sellers and
// admins may list products; only the owner or an admin may change one.
type ProductService struct {
	products ProductStore
}

func NewProductService(products ProductStore) *ProductService {
	return &ProductService{products: products}
}

// List returns a page of products. limit is clamped to [1,100] and a
// negative offset is treated as zero.
func (s *ProductService) List(ctx context.Context, limit, offset int) ([]model.Product, error) {
	limit, offset = ClampPage(limit, offset)
	return s.products.List(ctx, limit, offset)
}

// ClampPage applies the listing bounds.
func ClampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxProductLimit {
		limit = MaxProductLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id uint64) (model.Product, error) {
	p, err := s.products.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Product{}, ErrNotFound
	}
	return p, err
}

// Create lists a new product owned by actor.
func (s *ProductService) Create(ctx context.Context, actor model.User, in ProductInput) (model.Product, error) {
	if err := Authorize(actor, model.RoleSeller, model.RoleAdmin); err != nil {
		return model.Product{}, err
	}
	in, err := normalizeProduct(in)
	if err != nil {
		return model.Product{}, err
	}
	p, err := s.products.Create(ctx, model.Product{
		SellerID:    actor.ID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Currency:    in.Currency,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// ProductPatch carries a partial update; nil fields keep their value.
type ProductPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Currency    *string
	ImageURL    *string
}

// Update applies patch to product id.
func (s *ProductService) Update(ctx context.Context, actor model.User, id uint64, patch ProductPatch) (model.Product, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	if err := AuthorizeOwner(actor, cur.SellerID); err != nil {
		return model.Product{}, err
	}
	in := ProductInput{
		Title:       pick(patch.Title, cur.Title),
		Description: pick(patch.Description, cur.Description),
		Price:       pick(patch.Price, cur.Price),
		Currency:    pick(patch.Currency, cur.Currency),
		ImageURL:    pick(patch.ImageURL, cur.ImageURL),
	}
	if in, err = normalizeProduct(in); err != nil {
		return model.Product{}, err
	}
	cur.Title, cur.Description, cur.Price = in.Title, in.Description, in.Price
	cur.Currency, cur.ImageURL = in.Currency, in.ImageURL
	return s.products.Update(ctx, cur)
}

func pick[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}

// Delete removes product id.
func (s *ProductService) Delete(ctx context.Context, actor model.User, id uint64) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeOwner(actor, cur.SellerID); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Stats returns catalogue totals for the dashboard.
func (s *ProductService) Stats(ctx context.Context, actor model.User) (model.ProductStats, error) {
	return s.products.Stats(ctx, actor.ID)
}

func normalizeProduct(in ProductInput) (ProductInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if in.Title == "" || in.Price < 0 || len(in.Currency) != 3 {
		return ProductInput{}, ErrInvalidInput
	}
	return in, nil
}
