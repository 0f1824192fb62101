package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/internal/repository"
	"github.com/vaidashi/storefront-api/internal/storage"
	apperrors "github.com/vaidashi/storefront-api/pkg/errors"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// ProductStore is the persistence the product service depends on
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetAll(ctx context.Context) ([]*models.Product, error)
	Update(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
}

// ImageUpload is one file submitted for a product image slot (0-based)
type ImageUpload struct {
	Slot        int
	Filename    string
	ContentType string
	Body        io.Reader
}

// ProductForm carries raw admin form values. Nil fields were not submitted.
type ProductForm struct {
	Name          *string
	Description   *string
	Price         *string
	StockQuantity *string
	Images        []ImageUpload
}

// ProductService handles catalog management
type ProductService struct {
	products ProductStore
	images   storage.ImageStore
	logger   logger.Logger
}

// NewProductService creates a new ProductService
func NewProductService(products ProductStore, images storage.ImageStore, logger logger.Logger) *ProductService {
	return &ProductService{
		products: products,
		images:   images,
		logger:   logger,
	}
}

// CreateProduct validates form, stores its images and inserts the product
func (s *ProductService) CreateProduct(ctx context.Context, form ProductForm) (*models.Product, error) {
	if form.Name == nil || strings.TrimSpace(*form.Name) == "" {
		return nil, apperrors.NewInvalidInputError("Product name is required")
	}
	if form.Price == nil {
		return nil, apperrors.NewInvalidInputError("Price is required")
	}
	if form.StockQuantity == nil {
		return nil, apperrors.NewInvalidInputError("Stock quantity is required")
	}

	patch, err := s.parseForm(form)
	if err != nil {
		return nil, err
	}

	if err := s.storeImages(ctx, form.Images, patch); err != nil {
		return nil, err
	}

	product := &models.Product{}
	patch.Apply(product)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, apperrors.NewInternalError("Failed to create product", err)
	}

	s.logger.Info("Product created", "productID", product.ID, "name", product.Name)
	return product, nil
}

// UpdateProduct changes only the submitted fields of the product
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, form ProductForm) (*models.Product, error) {
	patch, err := s.parseForm(form)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperrors.NewInvalidInputError("Product name cannot be empty")
	}

	if len(form.Images) > 0 {
		// avoid storing files for a product that is not there
		if _, err := s.GetProduct(ctx, id); err != nil {
			return nil, err
		}
		if err := s.storeImages(ctx, form.Images, patch); err != nil {
			return nil, err
		}
	}

	if patch.IsEmpty() {
		return nil, apperrors.NewInvalidInputError("No fields to update")
	}

	product, err := s.products.Update(ctx, id, patch)
	if err != nil {
		return nil, productError(err, "Failed to update product")
	}

	s.logger.Info("Product updated", "productID", id)
	return product, nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, productError(err, "Failed to fetch product")
	}
	return product, nil
}

// ListProducts retrieves the whole catalog
func (s *ProductService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to fetch products", err)
	}
	return products, nil
}

// DeleteProduct removes a product
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return productError(err, "Failed to delete product")
	}

	s.logger.Info("Product deleted", "productID", id)
	return nil
}

// Upload stores a standalone file and returns its reference
func (s *ProductService) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	ref, err := s.images.Save(ctx, name, contentType, r)
	if err != nil {
		return "", apperrors.NewInternalError("Failed to upload file", err)
	}

	s.logger.Info("File uploaded", "ref", ref)
	return ref, nil
}

// ImageURL resolves a stored reference to a public URL
func (s *ProductService) ImageURL(ref string) string {
	return s.images.URL(ref)
}

func (s *ProductService) parseForm(form ProductForm) (*models.ProductPatch, error) {
	patch := &models.ProductPatch{
		Name:        form.Name,
		Description: form.Description,
	}

	if form.Price != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*form.Price))
		if err != nil || price.IsNegative() {
			return nil, apperrors.NewInvalidInputError("Price must be a non-negative number")
		}
		patch.Price = &price
	}

	if form.StockQuantity != nil {
		stock, err := strconv.Atoi(strings.TrimSpace(*form.StockQuantity))
		if err != nil || stock < 0 {
			return nil, apperrors.NewInvalidInputError("Stock quantity must be a non-negative integer")
		}
		patch.StockQuantity = &stock
	}

	for _, img := range form.Images {
		if img.Slot < 0 || img.Slot >= models.ImageSlots {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("Image slot must be between 1 and %d", models.ImageSlots))
		}
		if !storage.IsImage(img.Filename) {
			return nil, apperrors.NewInvalidInputError("Only image files are allowed").
				WithContext("file", img.Filename)
		}
	}

	return patch, nil
}

func (s *ProductService) storeImages(ctx context.Context, images []ImageUpload, patch *models.ProductPatch) error {
	for _, img := range images {
		ref, err := s.images.Save(ctx, img.Filename, img.ContentType, img.Body)
		if err != nil {
			return apperrors.NewInternalError("Failed to store product image", err)
		}
		patch.Images[img.Slot] = &ref
	}
	return nil
}

func productError(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError("Product not found")
	}
	return apperrors.NewInternalError(message, err)
}
