// Package appid holds the storelens application identity.
package appid

import (
	"context"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName  = "storelens"
	ConfigName  = "storelens"
	EnvPrefix   = "STORELENS_"
	Vendor      = "storelens"
	Description = "Read-only client for public Shopify storefronts"
)

// Default returns the built-in identity.
func Default() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  BinaryName,
		ConfigName:  ConfigName,
		EnvPrefix:   EnvPrefix,
		Vendor:      Vendor,
		Description: Description,
	}
}

// Get returns the identity file named by FULMEN_APP_IDENTITY_PATH when set,
// and the built-in identity otherwise.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	if strings.TrimSpace(os.Getenv(appidentity.EnvIdentityPath)) != "" {
		return appidentity.Get(ctx)
	}
	return Default(), nil
}
