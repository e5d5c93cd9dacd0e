package model

import (
	"time"

	"github.com/google/uuid"
)

// Offer percentages accepted for products and categories.
const (
	MinOfferPercent = 1
	MaxOfferPercent = 90
)

// Product represents an item in the catalogue. Price is the selling price:
// RegularPrice less the better of the product's own offer and its
// category's offer.
type Product struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	RegularPrice  float64   `json:"regularPrice"`
	OfferPercent  int       `json:"offerPercent"`
	CategoryOffer int       `json:"categoryOffer"`
	CategoryID    uuid.UUID `json:"categoryId"`
	CategoryName  string    `json:"categoryName,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Popularity    int       `json:"popularity"`
	IsFeatured    bool      `json:"isFeatured"`
	IsUnlisted    bool      `json:"isUnlisted"`
	Stock         int       `json:"stock"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AppliedOffer returns the offer percentage Price was computed with.
func (p Product) AppliedOffer() int {
	return max(p.OfferPercent, p.CategoryOffer)
}

// Category groups products in the storefront.
type Category struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	OfferPercent int       `json:"offerPercent"`
	IsUnlisted   bool      `json:"isUnlisted"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProductSort is a shop listing order key.
type ProductSort string

const (
	SortPopularity  ProductSort = "popularity"
	SortPriceAsc    ProductSort = "priceinc"
	SortPriceDesc   ProductSort = "priceDesc"
	SortFeatured    ProductSort = "featured"
	SortNewArrivals ProductSort = "newArrivals"
	SortNameAsc     ProductSort = "az"
	SortNameDesc    ProductSort = "za"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	ListedOnly bool
	Sort       ProductSort
	Limit      int
	Offset     int
}

// CreateProductRequest is the admin payload for adding a product.
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,min=2"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price" validate:"gt=0"`
	CategoryID  string  `json:"categoryId" validate:"required,uuid"`
	Stock       int     `json:"stock" validate:"gte=0"`
	IsFeatured  bool    `json:"isFeatured"`
}

// CreateCategoryRequest is the admin payload for adding or editing a category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description"`
}

// OfferRequest sets a percentage offer on a product or category.
type OfferRequest struct {
	Percent int `json:"percent" validate:"min=1,max=90"`
}

// HomePage is the landing page payload.
type HomePage struct {
	Products   []Product  `json:"products"`
	Categories []Category `json:"categories"`
}

// ShopPage is a paginated, sorted product listing.
type ShopPage struct {
	Products    []Product   `json:"products"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"limit"`
	Sort        ProductSort `json:"sort"`
	Categories  []Category  `json:"category"`
}

// ListingRequest hides or shows a product or category in the storefront.
type ListingRequest struct {
	Unlisted *bool `json:"unlisted" validate:"required"`
}
