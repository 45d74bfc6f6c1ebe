package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/storelens/storelens/internal/core"
)

type listingCollection struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Handle        string        `json:"handle"`
	Description   string        `json:"description"`
	PublishedAt   time.Time     `json:"published_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ProductsCount int           `json:"products_count"`
	Image         *listingImage `json:"image"`
}

// DecodeCollectionListing decodes a /collections.json page.
func DecodeCollectionListing(r io.Reader, base *url.URL) ([]core.Collection, error) {
	var payload struct {
		Collections []listingCollection `json:"collections"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode collection listing: %w", err)
	}

	collections := make([]core.Collection, 0, len(payload.Collections))
	for _, item := range payload.Collections {
		collections = append(collections, item.toCore(base))
	}
	return collections, nil
}

// DecodeCollection decodes a /collections/{handle}.json payload.
func DecodeCollection(r io.Reader, base *url.URL) (*core.Collection, error) {
	var payload struct {
		Collection *listingCollection `json:"collection"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if payload.Collection == nil || payload.Collection.Handle == "" {
		return nil, fmt.Errorf("decode collection: missing collection")
	}

	collection := payload.Collection.toCore(base)
	return &collection, nil
}

func (c listingCollection) toCore(base *url.URL) core.Collection {
	collection := core.Collection{
		ID:            c.ID,
		Handle:        c.Handle,
		Title:         c.Title,
		Description:   c.Description,
		ProductsCount: c.ProductsCount,
		PublishedAt:   c.PublishedAt,
		UpdatedAt:     c.UpdatedAt,
		URL:           resourceURL(base, core.KindCollection, c.Handle),
	}
	if c.Image != nil && c.Image.Src != "" {
		collection.Image = &core.Image{
			ID:     c.Image.ID,
			Src:    NormalizeImageURL(c.Image.Src),
			Alt:    c.Image.Alt,
			Width:  c.Image.Width,
			Height: c.Image.Height,
		}
	}
	return collection
}
