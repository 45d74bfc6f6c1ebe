package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/core/engine"
)

const maxCellRunes = 60

// StoreInfoView shows store info as field/value rows.
type StoreInfoView struct{ Info *core.StoreInfo }

func (v StoreInfoView) Header() table.Row { return table.Row{"Field", "Value"} }

func (v StoreInfoView) Rows() []table.Row {
	info := v.Info
	if info == nil {
		return nil
	}
	rows := []table.Row{
		{"Domain", info.Domain},
		{"Name", info.Name},
	}
	rows = appendIf(rows, "Title", info.Title)
	rows = appendIf(rows, "Description", truncate(info.Description))
	rows = appendIf(rows, "Logo", info.LogoURL)
	rows = appendIf(rows, "Currency", info.Currency)
	rows = appendIf(rows, "Emails", strings.Join(info.ContactEmails, ", "))
	rows = appendIf(rows, "Phones", strings.Join(info.ContactPhones, ", "))

	networks := make([]string, 0, len(info.SocialLinks))
	for network := range info.SocialLinks {
		networks = append(networks, network)
	}
	sort.Strings(networks)
	for _, network := range networks {
		rows = append(rows, table.Row{"Social: " + network, info.SocialLinks[network]})
	}

	rows = appendIf(rows, "Showcase products", strings.Join(info.ShowcaseProducts, ", "))
	rows = appendIf(rows, "Showcase collections", strings.Join(info.ShowcaseCollections, ", "))
	if !info.FetchedAt.IsZero() {
		rows = append(rows, table.Row{"Fetched", info.FetchedAt.UTC().Format(time.RFC3339)})
	}
	return rows
}

// ProductsView lists products one per row.
type ProductsView struct{ Products []core.Product }

func (v ProductsView) Header() table.Row {
	return table.Row{"Handle", "Title", "Vendor", "Price", "Available"}
}

func (v ProductsView) Rows() []table.Row {
	rows := make([]table.Row, 0, len(v.Products))
	for _, p := range v.Products {
		rows = append(rows, table.Row{p.Handle, truncate(p.Title), p.Vendor, priceRange(p.PriceMin, p.PriceMax), yesNo(p.Available)})
	}
	return rows
}

func (v ProductsView) Footer() table.Row {
	return table.Row{"", "", "", "", fmt.Sprintf("%d products", len(v.Products))}
}

// ProductView shows one product followed by its variants.
type ProductView struct{ Product *core.Product }

func (v ProductView) Header() table.Row { return table.Row{"Field", "Value"} }

func (v ProductView) Rows() []table.Row {
	p := v.Product
	if p == nil {
		return nil
	}
	rows := []table.Row{
		{"Handle", p.Handle},
		{"Title", p.Title},
	}
	rows = appendIf(rows, "Vendor", p.Vendor)
	rows = appendIf(rows, "Type", p.ProductType)
	rows = append(rows,
		table.Row{"Price", priceRange(p.PriceMin, p.PriceMax)},
		table.Row{"Available", yesNo(p.Available)},
	)
	rows = appendIf(rows, "Tags", strings.Join(p.Tags, ", "))
	for _, option := range p.Options {
		rows = append(rows, table.Row{"Option: " + option.Name, strings.Join(option.Values, ", ")})
	}
	for _, variant := range p.Variants {
		label := variant.Title
		if variant.SKU != "" {
			label += " (" + variant.SKU + ")"
		}
		rows = append(rows, table.Row{"Variant: " + label, formatMinor(variant.Price) + " " + availability(variant.Available)})
	}
	rows = appendIf(rows, "Images", countLabel(len(p.Images), "image"))
	rows = appendIf(rows, "URL", p.URL)
	return rows
}

// CollectionsView lists collections one per row.
type CollectionsView struct{ Collections []core.Collection }

func (v CollectionsView) Header() table.Row {
	return table.Row{"Handle", "Title", "Products"}
}

func (v CollectionsView) Rows() []table.Row {
	rows := make([]table.Row, 0, len(v.Collections))
	for _, c := range v.Collections {
		count := "-"
		if c.ProductsCount > 0 {
			count = fmt.Sprint(c.ProductsCount)
		}
		rows = append(rows, table.Row{c.Handle, truncate(c.Title), count})
	}
	return rows
}

func (v CollectionsView) Footer() table.Row {
	return table.Row{"", "", fmt.Sprintf("%d collections", len(v.Collections))}
}

// CollectionView shows one collection.
type CollectionView struct{ Collection *core.Collection }

func (v CollectionView) Header() table.Row { return table.Row{"Field", "Value"} }

func (v CollectionView) Rows() []table.Row {
	c := v.Collection
	if c == nil {
		return nil
	}
	rows := []table.Row{
		{"Handle", c.Handle},
		{"Title", c.Title},
	}
	rows = appendIf(rows, "Description", truncate(c.Description))
	if c.ProductsCount > 0 {
		rows = append(rows, table.Row{"Products", c.ProductsCount})
	}
	if c.Image != nil {
		rows = appendIf(rows, "Image", c.Image.Src)
	}
	rows = appendIf(rows, "URL", c.URL)
	return rows
}

// ClassificationView shows an enrichment result.
type ClassificationView struct{ Classification *core.Classification }

func (v ClassificationView) Header() table.Row { return table.Row{"Field", "Value"} }

func (v ClassificationView) Rows() []table.Row {
	c := v.Classification
	if c == nil {
		return nil
	}
	rows := []table.Row{
		{"Handle", c.Handle},
		{"Category", c.Category},
	}
	rows = appendIf(rows, "Audience", c.Audience)
	rows = appendIf(rows, "Tags", strings.Join(c.Tags, ", "))
	rows = appendIf(rows, "Model", c.Model)
	return rows
}

// HandleView shows a canonical handle lookup.
type HandleView struct {
	Kind   core.ResourceKind    `json:"kind"`
	Exists bool                 `json:"exists"`
	Handle core.CanonicalHandle `json:"canonical"`
}

func (v HandleView) Header() table.Row {
	return table.Row{"Kind", "Requested", "Canonical", "Redirected", "Exists"}
}

func (v HandleView) Rows() []table.Row {
	return []table.Row{{string(v.Kind), v.Handle.Requested, v.Handle.Handle, yesNo(v.Handle.Redirected), yesNo(v.Exists)}}
}

// LimitsView lists configured rate limit scopes and, when present, live
// bucket state.
type LimitsView struct {
	Enabled    bool                  `json:"enabled"`
	Configured []engine.ScopeOptions `json:"configured"`
	Live       []engine.BucketStats  `json:"live,omitempty"`
}

func (v LimitsView) Header() table.Row {
	return table.Row{"Scope", "Requests", "Interval", "Concurrency", "Tokens", "In flight", "Queued"}
}

func (v LimitsView) Rows() []table.Row {
	live := make(map[engine.Scope]engine.BucketStats, len(v.Live))
	for _, stats := range v.Live {
		live[stats.Scope] = stats
	}

	rows := make([]table.Row, 0, len(v.Configured))
	for _, scope := range v.Configured {
		row := table.Row{
			string(scope.Scope),
			scope.Options.MaxRequestsPerInterval,
			scope.Options.Interval.String(),
			scope.Options.MaxConcurrency,
			"-", "-", "-",
		}
		if stats, ok := live[scope.Scope]; ok {
			row[4], row[5], row[6] = stats.Tokens, stats.InFlight, stats.Queued
		}
		rows = append(rows, row)
	}
	return rows
}

func (v LimitsView) Footer() table.Row {
	state := "rate limiting disabled"
	if v.Enabled {
		state = "rate limiting enabled"
	}
	return table.Row{state, "", "", "", "", "", ""}
}

func appendIf(rows []table.Row, field, value string) []table.Row {
	if strings.TrimSpace(value) == "" {
		return rows
	}
	return append(rows, table.Row{field, value})
}

func truncate(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= maxCellRunes {
		return value
	}
	return string(runes[:maxCellRunes-3]) + "..."
}

func formatMinor(units int64) string {
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}

func priceRange(lo, hi int64) string {
	if hi <= lo {
		return formatMinor(lo)
	}
	return formatMinor(lo) + " - " + formatMinor(hi)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func availability(available bool) string {
	if available {
		return "available"
	}
	return "sold out"
}

func countLabel(n int, noun string) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 " + noun
	default:
		return fmt.Sprintf("%d %ss", n, noun)
	}
}
