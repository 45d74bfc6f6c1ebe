package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/storefront"
	apperrors "github.com/storelens/storelens/internal/errors"
	"github.com/storelens/storelens/internal/metrics"
)

// StoreClients hands out the storefront client for a store path parameter.
type StoreClients interface {
	Client(store string) (*storefront.Client, error)
}

// StoreHandler serves read-only storefront data under /v1/stores/{store}.
type StoreHandler struct {
	stores StoreClients
}

// NewStoreHandler creates a handler backed by stores.
func NewStoreHandler(stores StoreClients) *StoreHandler {
	return &StoreHandler{stores: stores}
}

// Register mounts the store routes on r.
func (h *StoreHandler) Register(r chi.Router) {
	r.Route("/v1/stores/{store}", func(r chi.Router) {
		r.Get("/info", h.Info)
		r.Get("/products", h.Products)
		r.Get("/products/{handle}", h.Product)
		r.Get("/showcase/products", h.ShowcasedProducts)
		r.Get("/collections", h.Collections)
		r.Get("/collections/{handle}", h.Collection)
		r.Get("/collections/{handle}/products", h.CollectionProducts)
		r.Get("/showcase/collections", h.ShowcasedCollections)
		r.Get("/handles/{kind}/{handle}", h.Handle)
	})
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Store string `json:"store"`
	Page  int    `json:"page,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Count int    `json:"count"`
	Items []T    `json:"items"`
}

// HandleResponse reports existence and the canonical form of a handle.
type HandleResponse struct {
	Store  string               `json:"store"`
	Kind   core.ResourceKind    `json:"kind"`
	Exists bool                 `json:"exists"`
	Handle core.CanonicalHandle `json:"canonical"`
}

func (h *StoreHandler) Info(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassStoreInfo, func(ctx context.Context, c *storefront.Client) (any, error) {
		force, err := queryBool(r, "force")
		if err != nil {
			return nil, err
		}
		return c.Info(ctx, storefront.InfoOptions{Force: force})
	})
}

func (h *StoreHandler) Products(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassProductsList, func(ctx context.Context, c *storefront.Client) (any, error) {
		return paged(r, c, c.ProductsPage, c.AllProducts)
	})
}

func (h *StoreHandler) Product(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassProductsFind, func(ctx context.Context, c *storefront.Client) (any, error) {
		handle := chi.URLParam(r, "handle")
		product, err := c.FindProduct(ctx, handle)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %q not found", handle))
		}
		return product, nil
	})
}

func (h *StoreHandler) ShowcasedProducts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassProductsFind, func(ctx context.Context, c *storefront.Client) (any, error) {
		products, err := c.ShowcasedProducts(ctx)
		if err != nil {
			return nil, err
		}
		return listResponse(c, 0, 0, products), nil
	})
}

func (h *StoreHandler) Collections(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassCollectionsList, func(ctx context.Context, c *storefront.Client) (any, error) {
		return paged(r, c, c.CollectionsPage, c.AllCollections)
	})
}

func (h *StoreHandler) Collection(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassCollectionsFind, func(ctx context.Context, c *storefront.Client) (any, error) {
		handle := chi.URLParam(r, "handle")
		collection, err := c.FindCollection(ctx, handle)
		if err != nil {
			return nil, err
		}
		if collection == nil {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("collection %q not found", handle))
		}
		return collection, nil
	})
}

func (h *StoreHandler) CollectionProducts(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassCollectionProducts, func(ctx context.Context, c *storefront.Client) (any, error) {
		handle := chi.URLParam(r, "handle")
		page := func(ctx context.Context, page, limit int) ([]core.Product, error) {
			return c.CollectionProductsPage(ctx, handle, page, limit)
		}
		all := func(ctx context.Context) ([]core.Product, error) {
			return c.AllCollectionProducts(ctx, handle)
		}
		return paged(r, c, page, all)
	})
}

func (h *StoreHandler) ShowcasedCollections(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassCollectionsFind, func(ctx context.Context, c *storefront.Client) (any, error) {
		collections, err := c.ShowcasedCollections(ctx)
		if err != nil {
			return nil, err
		}
		return listResponse(c, 0, 0, collections), nil
	})
}

// Handle checks a product or collection handle and resolves its canonical
// form.
func (h *StoreHandler) Handle(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storefront.ClassValidateHandle, func(ctx context.Context, c *storefront.Client) (any, error) {
		kind := core.ResourceKind(strings.ToLower(chi.URLParam(r, "kind")))
		if err := core.ValidateKind(kind); err != nil {
			return nil, err
		}
		handle := chi.URLParam(r, "handle")
		if err := core.ValidateHandle(strings.TrimSpace(handle)); err != nil {
			return nil, err
		}
		return HandleResponse{
			Store:  c.Domain(),
			Kind:   kind,
			Exists: c.HandleExists(ctx, kind, handle),
			Handle: c.ResolveCanonicalHandle(ctx, kind, handle),
		}, nil
	})
}

func (h *StoreHandler) serve(w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, *storefront.Client) (any, error)) {
	start := time.Now()
	client, err := h.stores.Client(chi.URLParam(r, "store"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := fn(r.Context(), client)
	metrics.RecordOperation(operation, err == nil, time.Since(start))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

// paged serves a single page when page or limit is given and the full
// listing otherwise.
func paged[T any](r *http.Request, c *storefront.Client, page func(context.Context, int, int) ([]T, error), all func(context.Context) ([]T, error)) (any, error) {
	query := r.URL.Query()
	if query.Get("page") == "" && query.Get("limit") == "" {
		items, err := all(r.Context())
		if err != nil {
			return nil, err
		}
		return listResponse(c, 0, 0, items), nil
	}

	pageNum, err := queryInt(r, "page", 1)
	if err != nil {
		return nil, err
	}
	limit, err := queryInt(r, "limit", 30)
	if err != nil {
		return nil, err
	}
	items, err := page(r.Context(), pageNum, limit)
	if err != nil {
		return nil, err
	}
	return listResponse(c, pageNum, limit, items), nil
}

func listResponse[T any](c *storefront.Client, page, limit int, items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{
		Store: c.Domain(),
		Page:  page,
		Limit: limit,
		Count: len(items),
		Items: items,
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrInvalidInput, key)
	}
	return value, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", core.ErrInvalidInput, key)
	}
	return value, nil
}
