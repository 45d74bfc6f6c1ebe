package core

import (
	"errors"
	"fmt"
	"time"
)

// ResourceKind identifies a storefront resource family.
type ResourceKind string

const (
	KindProduct    ResourceKind = "product"
	KindCollection ResourceKind = "collection"
)

// Valid reports whether the kind is a known resource family.
func (k ResourceKind) Valid() bool {
	return k == KindProduct || k == KindCollection
}

// PathSegment returns the plural URL segment for the kind.
func (k ResourceKind) PathSegment() string {
	return string(k) + "s"
}

var (
	// ErrInvalidInput marks caller mistakes detected before any network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a resource the store reported as missing.
	ErrNotFound = errors.New("not found")
)

// RequestError reports a failed storefront request.
type RequestError struct {
	URL        string
	Context    string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Context
	if msg == "" {
		msg = "request failed"
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CanonicalHandle is the result of redirect resolution.
type CanonicalHandle struct {
	Requested  string `json:"requested"`
	Handle     string `json:"handle"`
	Redirected bool   `json:"redirected"`
}

// StoreInfo summarizes a storefront's public identity.
type StoreInfo struct {
	Domain              string            `json:"domain"`
	Name                string            `json:"name"`
	Title               string            `json:"title,omitempty"`
	Description         string            `json:"description,omitempty"`
	LogoURL             string            `json:"logo_url,omitempty"`
	Currency            string            `json:"currency,omitempty"`
	SocialLinks         map[string]string `json:"social_links,omitempty"`
	ContactEmails       []string          `json:"contact_emails,omitempty"`
	ContactPhones       []string          `json:"contact_phones,omitempty"`
	ShowcaseProducts    []string          `json:"showcase_products,omitempty"`
	ShowcaseCollections []string          `json:"showcase_collections,omitempty"`
	FetchedAt           time.Time         `json:"fetched_at"`
}

// Product is the normalized storefront product.
type Product struct {
	ID          int64     `json:"id"`
	Handle      string    `json:"handle"`
	Title       string    `json:"title"`
	Vendor      string    `json:"vendor,omitempty"`
	ProductType string    `json:"product_type,omitempty"`
	BodyHTML    string    `json:"body_html,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
	Images      []Image   `json:"images,omitempty"`
	Available   bool      `json:"available"`
	PriceMin    int64     `json:"price_min"`
	PriceMax    int64     `json:"price_max"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Option is a product option such as size or color.
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values,omitempty"`
}

// Variant is a purchasable product variant. Prices are minor units.
type Variant struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	SKU            string   `json:"sku,omitempty"`
	Price          int64    `json:"price"`
	CompareAtPrice int64    `json:"compare_at_price,omitempty"`
	Available      bool     `json:"available"`
	Options        []string `json:"options,omitempty"`
}

// Image is a product or collection image.
type Image struct {
	ID       int64  `json:"id,omitempty"`
	Src      string `json:"src"`
	Alt      string `json:"alt,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Position int    `json:"position,omitempty"`
}

// Collection is a normalized storefront collection.
type Collection struct {
	ID            int64     `json:"id"`
	Handle        string    `json:"handle"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Image         *Image    `json:"image,omitempty"`
	ProductsCount int       `json:"products_count,omitempty"`
	URL           string    `json:"url,omitempty"`
	PublishedAt   time.Time `json:"published_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Classification is an enrichment result for a product.
type Classification struct {
	Handle   string   `json:"handle"`
	Category string   `json:"category"`
	Audience string   `json:"audience,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Model    string   `json:"model,omitempty"`
}
