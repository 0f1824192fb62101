package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vaidashi/storefront-api/internal/database"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

const productColumns = `product_id, product_name, description, price, stock_quantity,
	image1_url, image2_url, image3_url`

// ProductRepository handles database operations for products
type ProductRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *database.Database, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new product and sets its generated ID
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (
			product_name, description, price, stock_quantity,
			image1_url, image2_url, image3_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING product_id
	`

	err := r.db.DB.QueryRowxContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.Image1URL,
		product.Image2URL,
		product.Image3URL,
	).Scan(&product.ID)

	if err != nil {
		r.logger.Error("Failed to create product", "error", err, "name", product.Name)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`

	var product models.Product
	err := r.db.DB.GetContext(ctx, &product, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get product by ID", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &product, nil
}

// GetAll retrieves every product ordered by ID
func (r *ProductRepository) GetAll(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY product_id ASC`

	products := []*models.Product{}
	err := r.db.DB.SelectContext(ctx, &products, query)

	if err != nil {
		r.logger.Error("Failed to get all products", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// Update applies patch to the product in a single statement. Columns whose
// patch field is nil keep their current value.
func (r *ProductRepository) Update(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error) {
	query := `
		UPDATE products SET
			product_name = COALESCE($1, product_name),
			description = COALESCE($2, description),
			price = COALESCE($3, price),
			stock_quantity = COALESCE($4, stock_quantity),
			image1_url = COALESCE($5, image1_url),
			image2_url = COALESCE($6, image2_url),
			image3_url = COALESCE($7, image3_url)
		WHERE product_id = $8
		RETURNING ` + productColumns

	var product models.Product
	err := r.db.DB.GetContext(
		ctx,
		&product,
		query,
		patch.Name,
		patch.Description,
		patch.Price,
		patch.StockQuantity,
		patch.Images[0],
		patch.Images[1],
		patch.Images[2],
		id,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to update product", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &product, nil
}

// Delete deletes a product by its ID
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, id)

	if err != nil {
		r.logger.Error("Failed to delete product", "error", err, "productID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
