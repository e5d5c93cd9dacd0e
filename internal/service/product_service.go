package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"threadloom/internal/media"
	"threadloom/internal/model"
	"threadloom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultShopLimit = 4
	maxShopLimit     = 100
)

// productService implements ProductService.
type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	storage      media.Storage
	logger       zerolog.Logger
	now          func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	storage media.Storage,
	logger zerolog.Logger,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		storage:      storage,
		logger:       logger.With().Str("service", "product").Logger(),
		now:          time.Now,
	}
}

// normalizePage applies defaults and bounds to page and limit.
func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func totalPages(total, limit int) int {
	if total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Home returns the listed products and every category.
func (s *productService) Home(ctx context.Context) (*model.HomePage, error) {
	products, err := s.productRepo.List(ctx, model.ProductFilter{ListedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	categories, err := s.categoryRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	return &model.HomePage{Products: products, Categories: categories}, nil
}

// Shop retrieves a sorted page of listed products.
func (s *productService) Shop(ctx context.Context, sort string, page, limit int) (*model.ShopPage, error) {
	page, limit = normalizePage(page, limit, defaultShopLimit, maxShopLimit)

	filter := model.ProductFilter{
		ListedOnly: true,
		Sort:       model.ProductSort(sort),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Str("sort", sort).
			Int("page", page).
			Int("limit", limit).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	total, err := s.productRepo.Count(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	categories, err := s.categoryRepo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("page", page).
		Int("limit", limit).
		Msg("retrieved shop page")

	return &model.ShopPage{
		Products:    products,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
		Limit:       limit,
		Sort:        filter.Sort,
		Categories:  categories,
	}, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id.String()).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// ListAll returns every product, listed or not, for the admin list.
func (s *productService) ListAll(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.List(ctx, model.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

func (s *productService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, model.ErrCategoryNotFound
	}

	now := s.now().UTC()
	product := &model.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  categoryID,
		IsFeatured:  req.IsFeatured,
		Stock:       req.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("product_id", product.ID.String()).
		Str("name", product.Name).
		Msg("product created")
	return product, nil
}

func (s *productService) SetUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error {
	if err := s.productRepo.SetUnlisted(ctx, id, unlisted); err != nil {
		return err
	}
	s.logger.Info().Str("product_id", id.String()).Bool("unlisted", unlisted).Msg("product listing changed")
	return nil
}

// validOffer accepts zero, which removes an offer, or a percentage in range.
func validOffer(percent int) bool {
	return percent == 0 || (percent >= model.MinOfferPercent && percent <= model.MaxOfferPercent)
}

func (s *productService) SetOffer(ctx context.Context, id uuid.UUID, percent int) error {
	if !validOffer(percent) {
		return model.ErrInvalidOffer
	}
	if err := s.productRepo.SetOffer(ctx, id, percent); err != nil {
		return err
	}
	s.logger.Info().Str("product_id", id.String()).Int("percent", percent).Msg("product offer changed")
	return nil
}

// UploadImage stores the image under the product's id and records the URL.
func (s *productService) UploadImage(ctx context.Context, id uuid.UUID, contentType string, body io.ReadSeeker) (*model.Product, error) {
	ext, err := media.ImageExtension(contentType)
	if err != nil {
		return nil, model.ErrInvalidImage
	}

	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s-%d%s", id, s.now().UnixNano(), ext)
	url, err := s.storage.Save(ctx, key, contentType, body)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedImage) {
			return nil, model.ErrInvalidImage
		}
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to store product image")
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	if err := s.productRepo.SetImageURL(ctx, id, url); err != nil {
		return nil, err
	}
	product.ImageURL = url

	s.logger.Info().Str("product_id", id.String()).Str("url", url).Msg("product image uploaded")
	return product, nil
}

func (s *productService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

func (s *productService) CreateCategory(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error) {
	category := &model.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	s.logger.Info().Str("category_id", category.ID.String()).Str("name", category.Name).Msg("category created")
	return category, nil
}

// UpdateCategory renames a category and replaces its description.
func (s *productService) UpdateCategory(ctx context.Context, id uuid.UUID, req *model.CreateCategoryRequest) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if category == nil {
		return nil, model.ErrCategoryNotFound
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	s.logger.Info().Str("category_id", id.String()).Str("name", category.Name).Msg("category updated")
	return category, nil
}

func (s *productService) SetCategoryUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error {
	return s.categoryRepo.SetUnlisted(ctx, id, unlisted)
}

func (s *productService) SetCategoryOffer(ctx context.Context, id uuid.UUID, percent int) error {
	if !validOffer(percent) {
		return model.ErrInvalidOffer
	}
	if err := s.categoryRepo.SetOffer(ctx, id, percent); err != nil {
		return err
	}
	s.logger.Info().Str("category_id", id.String()).Int("percent", percent).Msg("category offer changed")
	return nil
}
