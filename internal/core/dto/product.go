// Package dto maps storefront JSON payloads onto core types.
package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/storelens/storelens/internal/core"
)

type listingProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	BodyHTML    string           `json:"body_html"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Tags        tagList          `json:"tags"`
	PublishedAt time.Time        `json:"published_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Options     []listingOption  `json:"options"`
	Variants    []listingVariant `json:"variants"`
	Images      []listingImage   `json:"images"`
}

type listingOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type listingVariant struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	SKU            string       `json:"sku"`
	Price          decimalPrice `json:"price"`
	CompareAtPrice decimalPrice `json:"compare_at_price"`
	Available      bool         `json:"available"`
	Option1        *string      `json:"option1"`
	Option2        *string      `json:"option2"`
	Option3        *string      `json:"option3"`
}

type listingImage struct {
	ID       int64  `json:"id"`
	Src      string `json:"src"`
	Alt      string `json:"alt"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Position int    `json:"position"`
}

// ajaxProduct is the /products/{handle}.js shape. Prices are minor units.
type ajaxProduct struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Handle      string          `json:"handle"`
	Description string          `json:"description"`
	Vendor      string          `json:"vendor"`
	Type        string          `json:"type"`
	Tags        tagList         `json:"tags"`
	PublishedAt time.Time       `json:"published_at"`
	Available   bool            `json:"available"`
	PriceMin    int64           `json:"price_min"`
	PriceMax    int64           `json:"price_max"`
	Options     []listingOption `json:"options"`
	Variants    []ajaxVariant   `json:"variants"`
	Images      []string        `json:"images"`
	URL         string          `json:"url"`
}

type ajaxVariant struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	SKU            string   `json:"sku"`
	Price          int64    `json:"price"`
	CompareAtPrice *int64   `json:"compare_at_price"`
	Available      bool     `json:"available"`
	Options        []string `json:"options"`
}

// DecodeProductListing decodes a /products.json page.
func DecodeProductListing(r io.Reader, base *url.URL) ([]core.Product, error) {
	var payload struct {
		Products []listingProduct `json:"products"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode product listing: %w", err)
	}

	products := make([]core.Product, 0, len(payload.Products))
	for _, item := range payload.Products {
		products = append(products, item.toCore(base))
	}
	return products, nil
}

// DecodeProductJS decodes a /products/{handle}.js payload.
func DecodeProductJS(r io.Reader, base *url.URL) (*core.Product, error) {
	var payload ajaxProduct
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	if payload.Handle == "" {
		return nil, fmt.Errorf("decode product: missing handle")
	}

	product := core.Product{
		ID:          payload.ID,
		Handle:      payload.Handle,
		Title:       payload.Title,
		Vendor:      payload.Vendor,
		ProductType: payload.Type,
		BodyHTML:    payload.Description,
		Tags:        payload.Tags,
		Available:   payload.Available,
		PriceMin:    payload.PriceMin,
		PriceMax:    payload.PriceMax,
		PublishedAt: payload.PublishedAt,
		URL:         productURL(base, payload.Handle),
	}
	for _, opt := range payload.Options {
		product.Options = append(product.Options, core.Option(opt))
	}
	for _, v := range payload.Variants {
		variant := core.Variant{
			ID:        v.ID,
			Title:     v.Title,
			SKU:       v.SKU,
			Price:     v.Price,
			Available: v.Available,
			Options:   v.Options,
		}
		if v.CompareAtPrice != nil {
			variant.CompareAtPrice = *v.CompareAtPrice
		}
		product.Variants = append(product.Variants, variant)
	}
	for i, src := range payload.Images {
		product.Images = append(product.Images, core.Image{Src: NormalizeImageURL(src), Position: i + 1})
	}
	return &product, nil
}

func (p listingProduct) toCore(base *url.URL) core.Product {
	product := core.Product{
		ID:          p.ID,
		Handle:      p.Handle,
		Title:       p.Title,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		BodyHTML:    p.BodyHTML,
		Tags:        p.Tags,
		PublishedAt: p.PublishedAt,
		UpdatedAt:   p.UpdatedAt,
		URL:         productURL(base, p.Handle),
	}

	for _, opt := range p.Options {
		product.Options = append(product.Options, core.Option(opt))
	}

	for i, v := range p.Variants {
		variant := core.Variant{
			ID:             v.ID,
			Title:          v.Title,
			SKU:            v.SKU,
			Price:          int64(v.Price),
			CompareAtPrice: int64(v.CompareAtPrice),
			Available:      v.Available,
		}
		for _, opt := range []*string{v.Option1, v.Option2, v.Option3} {
			if opt != nil && *opt != "" {
				variant.Options = append(variant.Options, *opt)
			}
		}
		product.Variants = append(product.Variants, variant)

		if v.Available {
			product.Available = true
		}
		if i == 0 || variant.Price < product.PriceMin {
			product.PriceMin = variant.Price
		}
		if variant.Price > product.PriceMax {
			product.PriceMax = variant.Price
		}
	}

	for _, img := range p.Images {
		product.Images = append(product.Images, core.Image{
			ID:       img.ID,
			Src:      NormalizeImageURL(img.Src),
			Alt:      img.Alt,
			Width:    img.Width,
			Height:   img.Height,
			Position: img.Position,
		})
	}
	return product
}

// NormalizeImageURL turns protocol-relative CDN links into https URLs.
func NormalizeImageURL(src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

func productURL(base *url.URL, handle string) string {
	return resourceURL(base, core.KindProduct, handle)
}

func resourceURL(base *url.URL, kind core.ResourceKind, handle string) string {
	if base == nil || handle == "" {
		return ""
	}
	return base.ResolveReference(&url.URL{Path: "/" + kind.PathSegment() + "/" + handle}).String()
}
